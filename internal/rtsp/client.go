package rtsp

import (
	"bufio"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

const (
	DefaultPort      = 554
	DefaultTLSPort   = 322
	DefaultUserAgent = "rtsp-control"

	// UnknownAddress is reported by RemoteAddress while no connection is owned.
	UnknownAddress = "0.0.0.0"

	readBufferSize = 4096
)

type State int

const (
	StateUnconnected State = iota
	StateConnecting
	StateConnected
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateUnconnected:
		return "unconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

type Config struct {
	// UserAgent is sent on every request, DefaultUserAgent when empty.
	UserAgent string
	// DialTimeout bounds establishing the TCP connection. Zero means no limit
	// beyond the context passed to Connect.
	DialTimeout time.Duration
	// TLSConfig is used for rtsps URLs.
	TLSConfig *tls.Config
	Logger    *log.Entry
}

// Client is the control channel of a single RTSP connection. Requests may be
// issued from any number of goroutines; responses are matched to them by CSeq.
type Client struct {
	mu      sync.RWMutex
	writeMu sync.Mutex

	id     string
	cfg    Config
	logger *log.Entry

	state        State
	uri          *url.URL
	conn         net.Conn
	transactions *transactionTable
	sessionID    string
	err          error
	done         chan struct{}

	events *notifier

	framesMu                    sync.RWMutex
	interleavedFrameSubscribers map[string]func(channel uint8, payload []byte)
}

func NewClient(cfg Config) *Client {
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	id := uuid.NewString()
	logger := cfg.Logger
	if logger == nil {
		logger = log.NewEntry(log.StandardLogger())
	}
	return &Client{
		id:                          id,
		cfg:                         cfg,
		logger:                      logger.WithField("client", id),
		done:                        make(chan struct{}),
		events:                      newNotifier(),
		interleavedFrameSubscribers: make(map[string]func(channel uint8, payload []byte)),
	}
}

// Connect dials the server named by rawURL and starts reading responses.
// It fails without side effects when the client is connecting, connected
// or closed.
func (c *Client) Connect(ctx context.Context, rawURL string) error {
	c.mu.Lock()
	switch c.state {
	case StateConnecting, StateConnected:
		c.mu.Unlock()
		return ErrAlreadyConnected
	case StateClosed:
		c.mu.Unlock()
		return ErrClientClosed
	}
	c.state = StateConnecting
	c.mu.Unlock()

	nc, uri, err := c.dial(ctx, rawURL)
	if err != nil {
		c.mu.Lock()
		c.state = StateUnconnected
		c.mu.Unlock()
		return err
	}

	c.mu.Lock()
	c.uri = uri
	c.conn = nc
	c.transactions = newTransactionTable()
	c.state = StateConnected
	c.logger = c.logger.WithField("remote", nc.RemoteAddr().String())
	c.mu.Unlock()

	go c.readLoop(nc)

	c.logger.Debug("connected")
	c.events.Publish(&Event{Type: EventTypeConnected, Client: c})
	return nil
}

func (c *Client) dial(ctx context.Context, rawURL string) (net.Conn, *url.URL, error) {
	uri, address, err := parseTarget(rawURL)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrConnectionSetup, err)
	}

	dialer := &net.Dialer{Timeout: c.cfg.DialTimeout}
	nc, err := dialer.DialContext(ctx, "tcp", address)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to dial endpoint %s: %w", address, err)
	}

	if tcp, ok := nc.(*net.TCPConn); ok {
		_ = tcp.SetNoDelay(true)
	}

	if uri.Scheme == "rtsps" {
		config := &tls.Config{}
		if c.cfg.TLSConfig != nil {
			config = c.cfg.TLSConfig.Clone()
		}
		if config.ServerName == "" {
			config.ServerName = uri.Hostname()
		}
		tc := tls.Client(nc, config)
		err = tc.HandshakeContext(ctx)
		if err != nil {
			_ = nc.Close()
			return nil, nil, fmt.Errorf("failed TLS handshake with %s: %w", address, err)
		}
		nc = tc
	}

	return nc, uri, nil
}

// parseTarget validates rawURL and returns it with the dial address.
func parseTarget(rawURL string) (*url.URL, string, error) {
	uri, err := url.Parse(rawURL)
	if err != nil {
		return nil, "", fmt.Errorf("failed to parse URL: %w", err)
	}

	port := DefaultPort
	switch uri.Scheme {
	case "rtsp":
	case "rtsps":
		port = DefaultTLSPort
	default:
		return nil, "", fmt.Errorf("unsupported scheme %q", uri.Scheme)
	}
	if uri.Hostname() == "" {
		return nil, "", fmt.Errorf("no host in URL %q", rawURL)
	}
	if p := uri.Port(); p != "" {
		port, err = strconv.Atoi(p)
		if err != nil || port <= 0 || port > 65535 {
			return nil, "", fmt.Errorf("invalid port %q", p)
		}
	}
	return uri, net.JoinHostPort(uri.Hostname(), strconv.Itoa(port)), nil
}

// Request sends a request with the next CSeq and waits for its response.
// Cancelling ctx abandons the transaction; a response arriving afterwards is
// discarded as unmatched.
func (c *Client) Request(ctx context.Context, method Method, target string, header http.Header) (*Response, error) {
	c.mu.RLock()
	state, conn, table, lost := c.state, c.conn, c.transactions, c.err
	c.mu.RUnlock()

	switch {
	case state == StateClosed:
		return nil, ErrClientClosed
	case state != StateConnected:
		return nil, ErrNotConnected
	case lost != nil:
		return nil, lost
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	h := http.Header{}
	for k, v := range header {
		h[http.CanonicalHeaderKey(k)] = append([]string(nil), v...)
	}
	h.Set(HeaderUserAgent, c.cfg.UserAgent)

	// allocation and write share a lock so sequence numbers reach the wire in order
	c.writeMu.Lock()
	tx, err := table.Allocate(method)
	if err != nil {
		c.writeMu.Unlock()
		return nil, err
	}
	err = (&Request{
		Version:  Version,
		Url:      target,
		Sequence: strconv.FormatInt(tx.id, 10),
		Method:   method,
		Header:   h,
	}).Write(conn)
	c.writeMu.Unlock()

	if err != nil {
		table.Reject(tx.id, fmt.Errorf("failed to write %s request: %w", method, err))
	} else {
		table.MarkSent(tx.id)
		requestsSent.WithLabelValues(method.String()).Inc()
	}

	select {
	case r := <-tx.done:
		return r.response, r.err
	case <-ctx.Done():
		table.Reject(tx.id, ctx.Err())
		r := <-tx.done
		return r.response, r.err
	}
}

func (c *Client) readLoop(nc net.Conn) {
	defer close(c.done)

	br := bufio.NewReaderSize(nc, readBufferSize)
	for {
		first, err := br.Peek(1)
		if err != nil {
			c.connectionLost(err)
			return
		}

		if first[0] == interleavedMagic {
			channel, payload, err := readInterleavedFrame(br)
			if err != nil {
				c.connectionLost(err)
				return
			}
			c.dispatchFrame(channel, payload)
			continue
		}

		res, err := ReadResponse(br)
		switch {
		case errors.Is(err, ErrMalformedMessage):
			responsesDiscarded.WithLabelValues("malformed").Inc()
			c.logger.WithError(err).Warn("discarding undecodable message")
			continue
		case err != nil:
			c.connectionLost(err)
			return
		}
		c.dispatch(res)
	}
}

func (c *Client) dispatch(res *Response) {
	c.mu.RLock()
	table := c.transactions
	c.mu.RUnlock()
	if table == nil {
		return
	}

	seq, err := res.SequenceNumber()
	if err != nil {
		responsesDiscarded.WithLabelValues("missing_cseq").Inc()
		c.logger.WithError(err).Warn("discarding response")
		return
	}

	err = table.Resolve(seq, res)
	if err != nil {
		responsesDiscarded.WithLabelValues("unmatched").Inc()
		c.logger.WithError(err).WithField("cseq", seq).Warn("discarding response")
		return
	}
	responsesReceived.WithLabelValues(strconv.Itoa(res.Code)).Inc()
}

// connectionLost fails every pending transaction once the read side of the
// connection breaks, unless Close got there first.
func (c *Client) connectionLost(cause error) {
	c.mu.Lock()
	if c.state != StateConnected {
		c.mu.Unlock()
		return
	}
	c.err = fmt.Errorf("%w: %w", ErrConnectionLost, cause)
	lost, table := c.err, c.transactions
	c.mu.Unlock()

	n := table.RejectAll(lost)
	c.logger.WithError(cause).WithField("pending", n).Warn("connection lost")
}

func (c *Client) SubscribeInterleavedFrames(h func(channel uint8, payload []byte)) func() {
	c.framesMu.Lock()
	defer c.framesMu.Unlock()
	id := uuid.NewString()
	c.interleavedFrameSubscribers[id] = h
	return func() {
		c.framesMu.Lock()
		defer c.framesMu.Unlock()
		delete(c.interleavedFrameSubscribers, id)
	}
}

func (c *Client) dispatchFrame(channel uint8, payload []byte) {
	c.framesMu.RLock()
	handlers := make([]func(uint8, []byte), 0, len(c.interleavedFrameSubscribers))
	for _, h := range c.interleavedFrameSubscribers {
		handlers = append(handlers, h)
	}
	c.framesMu.RUnlock()

	for _, handler := range handlers {
		handler(channel, payload)
	}
}

// Subscribe registers h for the connected and closed events.
func (c *Client) Subscribe(h func(event *Event)) func() {
	return c.events.Subscribe(h)
}

// RemoteAddress returns the peer IP, or UnknownAddress when not connected.
func (c *Client) RemoteAddress() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.conn == nil {
		return UnknownAddress
	}
	host, _, err := net.SplitHostPort(c.conn.RemoteAddr().String())
	if err != nil {
		return c.conn.RemoteAddr().String()
	}
	return host
}

func (c *Client) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// Done is closed when the read loop of the connection exits.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

// Err returns the cause of a lost connection.
func (c *Client) Err() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.err
}

// Close fails every pending request with ErrClientDestroyed, drops the
// connection and publishes the closed event. It does nothing when no
// connection is owned.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.conn == nil {
		c.mu.Unlock()
		return nil
	}
	conn, table := c.conn, c.transactions
	c.state = StateClosed
	c.conn = nil
	c.transactions = nil
	c.mu.Unlock()

	n := table.RejectAll(ErrClientDestroyed)
	err := conn.Close()

	c.logger.WithField("rejected", n).Debug("closed")
	c.events.Publish(&Event{Type: EventTypeClosed, Client: c})
	c.events.Stop()

	if err != nil && !errors.Is(err, net.ErrClosed) {
		return fmt.Errorf("failed to close connection: %w", err)
	}
	return nil
}
