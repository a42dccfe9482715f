package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestNewDevMode(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, true)

	logger.Debug("test debug")
	logger.Info("test info")

	output := buf.String()
	if !strings.Contains(output, "test debug") {
		t.Error("expected debug message visible in dev mode")
	}
	if !strings.Contains(output, "test info") {
		t.Error("expected info message visible in dev mode")
	}
}

func TestNewProdMode(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, false)

	logger.Debug("hidden")
	logger.Info("prod test", "house_id", 7)

	if strings.Contains(buf.String(), "hidden") {
		t.Error("debug message logged in prod mode")
	}
	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("expected JSON log line: %v", err)
	}
	if line["msg"] != "prod test" {
		t.Errorf("msg = %v", line["msg"])
	}
}

func TestSetupInstallsDefault(t *testing.T) {
	old := slog.Default()
	defer slog.SetDefault(old)

	logger := Setup(false)
	if slog.Default() != logger {
		t.Error("Setup did not install the returned logger")
	}
}

func serveLogged(t *testing.T, path string, status int) string {
	t.Helper()
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
	})

	req := httptest.NewRequest("GET", path, nil)
	rec := httptest.NewRecorder()
	RequestLogger(logger, inner).ServeHTTP(rec, req)
	return buf.String()
}

func TestRequestLogger(t *testing.T) {
	output := serveLogged(t, "/api/houses", http.StatusOK)
	if output == "" {
		t.Fatal("expected log output")
	}
	if !strings.Contains(output, "GET") {
		t.Error("expected method in log")
	}
	if !strings.Contains(output, "/api/houses") {
		t.Error("expected path in log")
	}
}

func TestRequestLoggerSkipsHealth(t *testing.T) {
	if output := serveLogged(t, "/health", http.StatusOK); output != "" {
		t.Errorf("expected no log for /health path, got %q", output)
	}
}

func TestResponseWriterCapturesStatus(t *testing.T) {
	output := serveLogged(t, "/missing", http.StatusNotFound)
	if !strings.Contains(output, "404") {
		t.Error("expected 404 status in log")
	}
	if !strings.Contains(output, "level=WARN") {
		t.Error("expected 4xx to log at warn")
	}
}
