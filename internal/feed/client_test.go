package feed

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestNewClient(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		wantErr bool
	}{
		{"valid url", "https://example.com/feed.json", false},
		{"empty url", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := NewClient(tt.url, 0)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if c.httpClient.Timeout != DefaultTimeout {
				t.Errorf("timeout = %v, want %v", c.httpClient.Timeout, DefaultTimeout)
			}
		})
	}
}

func TestFetch(t *testing.T) {
	tests := []struct {
		name       string
		response   string
		statusCode int
		wantRows   int
		wantErr    bool
	}{
		{
			name: "string fields",
			response: `[
				{"ชื่อบ้าน": "Pool Villa City", "รหัส": "CITY-743", "เดือน": "มกราคม 2569", "วันที่": "13", "สถานะ": "ติดจอง"},
				{"ชื่อบ้าน": "Baan Suan", "เดือน": "มกราคม 2569", "วันที่": "14", "สถานะ": "รอโอน"}
			]`,
			statusCode: http.StatusOK,
			wantRows:   2,
		},
		{
			name:       "empty feed",
			response:   `[]`,
			statusCode: http.StatusOK,
			wantRows:   0,
		},
		{
			name:       "server error",
			response:   `[]`,
			statusCode: http.StatusBadGateway,
			wantErr:    true,
		},
		{
			name:       "not an array",
			response:   `{"error": "rate limited"}`,
			statusCode: http.StatusOK,
			wantErr:    true,
		},
		{
			name:       "invalid json",
			response:   `[{`,
			statusCode: http.StatusOK,
			wantErr:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Query().Get("t") == "" {
					t.Error("missing cache-bust parameter")
				}
				w.WriteHeader(tt.statusCode)
				if _, err := w.Write([]byte(tt.response)); err != nil {
					t.Errorf("write: %v", err)
				}
			}))
			defer server.Close()

			c, err := NewClient("https://example.invalid/feed.json", time.Second)
			if err != nil {
				t.Fatalf("NewClient: %v", err)
			}
			SetTestURL(c, server.URL+"/booking_result.json")

			rows, err := c.Fetch(context.Background())
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(rows) != tt.wantRows {
				t.Errorf("got %d rows, want %d", len(rows), tt.wantRows)
			}
		})
	}
}

func TestFetchCacheBust(t *testing.T) {
	var got string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.URL.RawQuery
		_, _ = w.Write([]byte(`[]`))
	}))
	defer server.Close()

	c, err := NewClient(server.URL+"/feed.json?branch=master", time.Second)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	SetTestClock(c, func() time.Time { return time.UnixMilli(1767225600000) })

	if _, err := c.Fetch(context.Background()); err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if got != "branch=master&t=1767225600000" {
		t.Errorf("query = %q", got)
	}
}

func TestFetchHonoursContext(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer server.Close()

	c, err := NewClient(server.URL, 5*time.Second)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err = c.Fetch(ctx)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("err = %v, want deadline exceeded", err)
	}
}

func TestDecodeRowsStringifies(t *testing.T) {
	rows, err := DecodeRows([]byte(`[{"บ้าน": "A", "วันที่": 13, "day": [13, 14, "15"], "x": null, " code ": "C1", "flag": true}]`))
	if err != nil {
		t.Fatalf("DecodeRows: %v", err)
	}
	row := rows[0]
	want := map[string]string{
		"บ้าน":   "A",
		"วันที่": "13",
		"day":    "13, 14, 15",
		"x":      "",
		"code":   "C1",
		"flag":   "true",
	}
	for k, v := range want {
		if row[k] != v {
			t.Errorf("row[%q] = %q, want %q", k, row[k], v)
		}
	}
}
