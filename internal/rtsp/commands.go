package rtsp

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

type PlayOptions struct {
	// Range is sent verbatim, e.g. "npt=0-".
	Range string
}

func (c *Client) Options(ctx context.Context) (*Response, error) {
	return c.requestTarget(ctx, MethodOptions, nil)
}

func (c *Client) Describe(ctx context.Context) (*Response, error) {
	header := http.Header{}
	header.Set(HeaderAccept, "application/sdp")
	return c.requestTarget(ctx, MethodDescribe, header)
}

// Setup requests transport for the stream named by control, which is
// resolved against the connect URL. An already known session is included so
// further streams join it.
func (c *Client) Setup(ctx context.Context, control, transport string) (*Response, error) {
	base, err := c.target()
	if err != nil {
		return nil, err
	}
	setupURL, err := resolveControl(base, control)
	if err != nil {
		return nil, err
	}

	header := http.Header{}
	header.Set(HeaderTransport, transport)
	if session := c.Session(); session != "" {
		header.Set(HeaderSession, session)
	}
	return c.Request(ctx, MethodSetup, setupURL.String(), header)
}

func (c *Client) Play(ctx context.Context, options *PlayOptions) (*Response, error) {
	header, err := c.sessionHeader()
	if err != nil {
		return nil, err
	}
	if options != nil && options.Range != "" {
		header.Set(HeaderRange, options.Range)
	}
	return c.requestTarget(ctx, MethodPlay, header)
}

func (c *Client) Pause(ctx context.Context) (*Response, error) {
	header, err := c.sessionHeader()
	if err != nil {
		return nil, err
	}
	return c.requestTarget(ctx, MethodPause, header)
}

func (c *Client) Teardown(ctx context.Context) (*Response, error) {
	header, err := c.sessionHeader()
	if err != nil {
		return nil, err
	}
	return c.requestTarget(ctx, MethodTeardown, header)
}

// GetParameter sends an empty GET_PARAMETER, which servers treat as a
// session keep-alive.
func (c *Client) GetParameter(ctx context.Context) (*Response, error) {
	header := http.Header{}
	if session := c.Session(); session != "" {
		header.Set(HeaderSession, session)
	}
	return c.requestTarget(ctx, MethodGetParameter, header)
}

func (c *Client) requestTarget(ctx context.Context, method Method, header http.Header) (*Response, error) {
	target, err := c.target()
	if err != nil {
		return nil, err
	}
	return c.Request(ctx, method, target.String(), header)
}

func (c *Client) sessionHeader() (http.Header, error) {
	session := c.Session()
	if session == "" {
		return nil, ErrSessionNotSet
	}
	header := http.Header{}
	header.Set(HeaderSession, session)
	return header, nil
}

func resolveControl(base *url.URL, control string) (*url.URL, error) {
	ref, err := url.Parse(control)
	if err != nil {
		return nil, fmt.Errorf("failed to parse control %q: %w", control, err)
	}
	dir := *base
	dir.RawPath = ""
	dir.Path = strings.TrimSuffix(dir.Path, "/") + "/"
	return dir.ResolveReference(ref), nil
}
