package cli

import (
	"testing"
)

func TestShowRequiresID(t *testing.T) {
	_, err := executeCommand("show")
	if err == nil {
		t.Fatal("expected error when no ID provided")
	}
}

func TestShowRejectsNonNumericID(t *testing.T) {
	_, err := executeCommand("show", "abc")
	if err == nil {
		t.Fatal("expected error for non-numeric ID")
	}
}

func TestShowRejectsBadMonth(t *testing.T) {
	_, err := executeCommand("show", "1", "--month", "January")
	if err == nil {
		t.Fatal("expected error for malformed --month")
	}
}

func TestManualSetRequiresDate(t *testing.T) {
	_, err := executeCommand("manual", "set", "1")
	if err == nil {
		t.Fatal("expected error when no date provided")
	}
}

func TestManualSetRejectsUnknownStatus(t *testing.T) {
	_, err := executeCommand("manual", "set", "1", "2026-01-14", "--status", "maybe")
	if err == nil {
		t.Fatal("expected error for unknown status")
	}
}

func TestWeekdayRequiresPrice(t *testing.T) {
	_, err := executeCommand("weekday", "1", "--year", "2026", "--month", "1")
	if err == nil {
		t.Fatal("expected error without --price")
	}
}

func TestImportRequiresFile(t *testing.T) {
	_, err := executeCommand("import")
	if err == nil {
		t.Fatal("expected error when no file provided")
	}
}
