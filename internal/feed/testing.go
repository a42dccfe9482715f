package feed

import "time"

// SetTestURL points a client at a test server.
// This should only be used in tests.
func SetTestURL(c *Client, u string) {
	if u != "" {
		c.url = u
	}
}

// SetTestClock fixes the time used for the cache-bust parameter.
// This should only be used in tests.
func SetTestClock(c *Client, now func() time.Time) {
	c.now = now
}
