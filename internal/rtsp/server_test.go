package rtsp

import (
	"bufio"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const testTimeout = 5 * time.Second

// testServer accepts control connections on a loopback port and lets a test
// script the server side of each exchange.
type testServer struct {
	listener net.Listener
	conns    chan net.Conn
}

type serverConn struct {
	net.Conn
	br *bufio.Reader
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	s := &testServer{
		listener: listener,
		conns:    make(chan net.Conn, 4),
	}
	go func() {
		for {
			nc, err := listener.Accept()
			if err != nil {
				return
			}
			s.conns <- nc
		}
	}()
	t.Cleanup(func() { _ = listener.Close() })
	return s
}

func (s *testServer) URL(path string) string {
	return "rtsp://" + s.listener.Addr().String() + path
}

func (s *testServer) accept(t *testing.T) *serverConn {
	t.Helper()
	select {
	case nc := <-s.conns:
		t.Cleanup(func() { _ = nc.Close() })
		return &serverConn{Conn: nc, br: bufio.NewReader(nc)}
	case <-time.After(testTimeout):
		t.Fatal("no connection accepted")
		return nil
	}
}

func (c *serverConn) readRequest(t *testing.T) *Request {
	t.Helper()
	require.NoError(t, c.SetReadDeadline(time.Now().Add(testTimeout)))
	req, err := ReadRequest(c.br)
	require.NoError(t, err)
	return req
}

func (c *serverConn) writeResponse(t *testing.T, res *Response) {
	t.Helper()
	require.NoError(t, res.Write(c))
}

func (c *serverConn) writeRaw(t *testing.T, raw string) {
	t.Helper()
	_, err := c.Write([]byte(raw))
	require.NoError(t, err)
}

func okResponse(seq string, header http.Header) *Response {
	return &Response{
		Code:     http.StatusOK,
		Message:  http.StatusText(http.StatusOK),
		Sequence: seq,
		Header:   header,
	}
}

type callResult struct {
	res *Response
	err error
}

// async runs a blocking command and reports its outcome on the returned channel.
func async(f func() (*Response, error)) <-chan callResult {
	c := make(chan callResult, 1)
	go func() {
		res, err := f()
		c <- callResult{res: res, err: err}
	}()
	return c
}

func await(t *testing.T, c <-chan callResult) callResult {
	t.Helper()
	select {
	case r := <-c:
		return r
	case <-time.After(testTimeout):
		t.Fatal("request did not complete")
		return callResult{}
	}
}

// waitPending blocks until the client has n transactions outstanding.
func waitPending(t *testing.T, c *Client, n int) {
	t.Helper()
	require.Eventually(t, func() bool {
		c.mu.RLock()
		defer c.mu.RUnlock()
		return c.transactions != nil && c.transactions.Len() == n
	}, testTimeout, 5*time.Millisecond)
}
