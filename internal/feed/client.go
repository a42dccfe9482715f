// Package feed fetches booking rows published by the external scraper.
package feed

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/evcraddock/house-calendar/internal/normalize"
)

const (
	// DefaultURL is where the scraper publishes its results.
	DefaultURL     = "https://raw.githubusercontent.com/katawutntp/ICS/master/booking_result.json"
	DefaultTimeout = 15 * time.Second
	userAgent      = "house-calendar/1.0"
	maxBodyBytes   = 32 << 20
)

// Client fetches the booking feed over HTTP.
type Client struct {
	httpClient *http.Client
	url        string
	now        func() time.Time
}

// NewClient creates a feed client. A zero timeout uses DefaultTimeout.
func NewClient(feedURL string, timeout time.Duration) (*Client, error) {
	if feedURL == "" {
		return nil, fmt.Errorf("feed URL is required")
	}
	if _, err := url.Parse(feedURL); err != nil {
		return nil, fmt.Errorf("parsing feed URL: %w", err)
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		url:        feedURL,
		now:        time.Now,
	}, nil
}

// URL returns the feed location.
func (c *Client) URL() string {
	return c.url
}

// Fetch downloads the feed and returns its rows. Every value is rendered
// as text; arrays become comma-separated lists.
func (c *Client) Fetch(ctx context.Context) (_ []normalize.Row, err error) {
	u, err := url.Parse(c.url)
	if err != nil {
		return nil, fmt.Errorf("parsing feed URL: %w", err)
	}
	q := u.Query()
	q.Set("t", strconv.FormatInt(c.now().UnixMilli(), 10))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sending request: %w", err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("closing body: %w", closeErr)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	return DecodeRows(raw)
}

// DecodeRows parses a JSON array of objects into rows.
func DecodeRows(raw []byte) ([]normalize.Row, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var objects []map[string]any
	if err := dec.Decode(&objects); err != nil {
		return nil, fmt.Errorf("decoding feed: %w", err)
	}

	rows := make([]normalize.Row, 0, len(objects))
	for _, obj := range objects {
		row := make(normalize.Row, len(obj))
		for k, v := range obj {
			row[strings.TrimSpace(k)] = text(v)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func text(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case json.Number:
		return x.String()
	case bool:
		return strconv.FormatBool(x)
	case []any:
		parts := make([]string, 0, len(x))
		for _, e := range x {
			parts = append(parts, text(e))
		}
		return strings.Join(parts, ", ")
	default:
		b, err := json.Marshal(x)
		if err != nil {
			return ""
		}
		return string(b)
	}
}
