package rtsp

import (
	"net/url"
	"strconv"
	"strings"
	"time"
)

// SetSession overwrites the session identifier sent by Setup, Play, Pause and
// Teardown. The client never assigns it on its own.
func (c *Client) SetSession(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sessionID = id
}

func (c *Client) Session() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.sessionID
}

// URL returns a copy of the URL passed to Connect, nil before it.
func (c *Client) URL() *url.URL {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.uri == nil {
		return nil
	}
	u := *c.uri
	return &u
}

// target is the connect URL as written on request lines, without credentials.
func (c *Client) target() (*url.URL, error) {
	u := c.URL()
	if u == nil {
		return nil, ErrNotConnected
	}
	u.User = nil
	return u, nil
}

// ParseSession splits a Session header value such as "12345678;timeout=60"
// into its identifier and timeout. The timeout is zero when absent.
func ParseSession(value string) (string, time.Duration) {
	parts := strings.Split(value, ";")
	id := strings.TrimSpace(parts[0])
	var timeout time.Duration
	for _, part := range parts[1:] {
		kv := strings.SplitN(strings.TrimSpace(part), "=", 2)
		if len(kv) != 2 || !strings.EqualFold(kv[0], "timeout") {
			continue
		}
		seconds, err := strconv.Atoi(strings.TrimSpace(kv[1]))
		if err == nil && seconds > 0 {
			timeout = time.Duration(seconds) * time.Second
		}
	}
	return id, timeout
}
