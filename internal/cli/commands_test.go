package cli

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/evcraddock/house-calendar/internal/calendar"
	"github.com/evcraddock/house-calendar/internal/db"
	"github.com/evcraddock/house-calendar/internal/house"
)

// testEnv returns --db and --config flags pointing into a temp dir with
// one house already created.
func testEnv(t *testing.T) (string, []string) {
	t.Helper()
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "test.db")

	d, err := db.Open(dbPath)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if _, err := house.NewRepository(d).Create(context.Background(), &house.House{Name: "Baan Suan", Zone: "Hua Hin"}); err != nil {
		t.Fatalf("create house: %v", err)
	}
	if err := d.Close(); err != nil {
		t.Fatalf("close db: %v", err)
	}

	return dbPath, []string{"--db", dbPath, "--config", filepath.Join(dir, "config.yaml")}
}

func readPrices(t *testing.T, dbPath string) calendar.Prices {
	t.Helper()
	d, err := db.Open(dbPath)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	defer func() {
		if err := d.Close(); err != nil {
			t.Errorf("close db: %v", err)
		}
	}()
	prices, err := house.NewRepository(d).ReadPrices(context.Background(), 1)
	if err != nil {
		t.Fatalf("ReadPrices: %v", err)
	}
	return prices
}

func TestHousesCommand(t *testing.T) {
	_, flags := testEnv(t)
	out, err := executeCommand(append([]string{"houses"}, flags...)...)
	if err != nil {
		t.Fatalf("houses: %v", err)
	}
	if !strings.Contains(out, "Baan Suan") || !strings.Contains(out, "Total: 1 houses") {
		t.Errorf("unexpected output:\n%s", out)
	}
}

func TestShowUnknownHouse(t *testing.T) {
	_, flags := testEnv(t)
	_, err := executeCommand(append([]string{"show", "9"}, flags...)...)
	if !errors.Is(err, house.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestWeekdayCommand(t *testing.T) {
	dbPath, flags := testEnv(t)
	args := append([]string{"weekday", "1", "--year", "2026", "--month", "1", "--price", "mon=1500"}, flags...)
	out, err := executeCommand(args...)
	if err != nil {
		t.Fatalf("weekday: %v", err)
	}
	if !strings.Contains(out, "2026-01-05") || !strings.Contains(out, "1,500") {
		t.Errorf("unexpected output:\n%s", out)
	}

	prices := readPrices(t, dbPath)
	if p := prices["2026-01-12"].Price; !p.Valid || p.Decimal.IntPart() != 1500 {
		t.Errorf("2026-01-12 price = %v", p)
	}
	if _, ok := prices["2026-01-06"]; ok {
		t.Error("Tuesday was written without a price")
	}
}

func TestHolidayCommand(t *testing.T) {
	dbPath, flags := testEnv(t)
	args := append([]string{"holiday", "1", "--date", "2026-04-13", "--date", "2026-04-14", "--price", "4000"}, flags...)
	if _, err := executeCommand(args...); err != nil {
		t.Fatalf("holiday: %v", err)
	}

	rec := readPrices(t, dbPath)["2026-04-13"]
	if !rec.IsHoliday || rec.Price.Decimal.IntPart() != 4000 {
		t.Errorf("holiday record = %+v", rec)
	}

	args = append([]string{"holiday", "1", "--date", "2026-04-13"}, flags...)
	if _, err := executeCommand(args...); !errors.Is(err, calendar.ErrValidation) {
		t.Errorf("missing price: expected ErrValidation, got %v", err)
	}
}

func TestManualThenSync(t *testing.T) {
	dbPath, flags := testEnv(t)

	args := append([]string{"manual", "set", "1", "2026-01-14", "--status", "closed", "--price", "1800"}, flags...)
	out, err := executeCommand(args...)
	if err != nil {
		t.Fatalf("manual set: %v", err)
	}
	if !strings.Contains(out, "closed") || !strings.Contains(out, "manual") {
		t.Errorf("unexpected output:\n%s", out)
	}

	feed := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"ชื่อบ้าน":"Baan Suan","เดือน":"มกราคม 2569","วันที่":"13, 14","สถานะ":"ติดจอง"}]`))
	}))
	defer feed.Close()

	args = append([]string{"sync", "--url", feed.URL, "--format", "json"}, flags...)
	out, err = executeCommand(args...)
	if err != nil {
		t.Fatalf("sync: %v", err)
	}
	if !strings.Contains(out, `"skippedManual": 1`) {
		t.Errorf("expected one skipped manual date:\n%s", out)
	}

	prices := readPrices(t, dbPath)
	if rec := prices["2026-01-13"]; rec.Status != calendar.StatusBooked || rec.Source != calendar.SourceScraper {
		t.Errorf("synced record = %+v", rec)
	}
	if rec := prices["2026-01-14"]; rec.Status != calendar.StatusClosed || !rec.Manual {
		t.Errorf("manual record overwritten: %+v", rec)
	}

	args = append([]string{"manual", "clear", "1", "2026-01-14"}, flags...)
	if _, err := executeCommand(args...); err != nil {
		t.Fatalf("manual clear: %v", err)
	}
	args = append([]string{"sync", "--url", feed.URL}, flags...)
	if _, err := executeCommand(args...); err != nil {
		t.Fatalf("second sync: %v", err)
	}
	if rec := readPrices(t, dbPath)["2026-01-14"]; rec.Status != calendar.StatusBooked || rec.Manual {
		t.Errorf("released record = %+v, want booked by feed", rec)
	}
}

func TestSyncFeedDown(t *testing.T) {
	_, flags := testEnv(t)
	feed := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
	}))
	defer feed.Close()

	args := append([]string{"sync", "--url", feed.URL}, flags...)
	if _, err := executeCommand(args...); err == nil {
		t.Error("expected error when the feed is down")
	}
}

func TestShowICal(t *testing.T) {
	_, flags := testEnv(t)
	args := append([]string{"manual", "set", "1", "2026-02-01", "--status", "booked"}, flags...)
	if _, err := executeCommand(args...); err != nil {
		t.Fatalf("manual set: %v", err)
	}

	out, err := executeCommand(append([]string{"show", "1", "--ics"}, flags...)...)
	if err != nil {
		t.Fatalf("show --ics: %v", err)
	}
	if !strings.Contains(out, "BEGIN:VEVENT") || !strings.Contains(out, "20260201") {
		t.Errorf("unexpected iCalendar output:\n%s", out)
	}
}
