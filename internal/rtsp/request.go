package rtsp

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
)

type Request struct {
	Version  string
	Url      string
	Sequence string
	Method   Method
	Header   http.Header
	Body     []byte
}

// Write serialises the request and hands it to w in a single call so that
// concurrent writers sharing a connection never interleave partial messages.
func (r *Request) Write(w io.Writer) error {
	buf := &bytes.Buffer{}
	writer := bufio.NewWriter(buf)

	version := r.Version
	if version == "" {
		version = Version
	}
	_, err := fmt.Fprintf(writer, "%s %s RTSP/%s\r\n", r.Method, r.Url, version)
	if err != nil {
		return fmt.Errorf("failed to write request line: %w", err)
	}
	h := r.Header.Clone()
	if h == nil {
		h = http.Header{}
	}

	h.Set(HeaderSequence, r.Sequence)
	if h.Get("Date") == "" {
		h.Set("Date", time.Now().UTC().Format(http.TimeFormat))
	}
	if len(r.Body) > 0 {
		h.Set("Content-Length", strconv.Itoa(len(r.Body)))
	}

	err = writeHeader(writer, h)
	if err != nil {
		return fmt.Errorf("failed to write request headers: %w", err)
	}
	_, _ = writer.WriteString("\r\n")
	_, _ = writer.Write(r.Body)

	err = writer.Flush()
	if err != nil {
		return err
	}
	_, err = w.Write(buf.Bytes())
	return err
}

// ReadRequest reads one request from br.
func ReadRequest(br *bufio.Reader) (*Request, error) {
	line, err := readStartLine(br)
	if err != nil {
		return nil, fmt.Errorf("failed to read RTSP request line: %w", err)
	}

	header, body, err := readHeaderAndBody(br)
	if err != nil {
		return nil, err
	}

	parts := strings.Split(line, " ")
	if len(parts) != 3 || parts[0] == "" || parts[1] == "" {
		return nil, fmt.Errorf("%w: invalid request line %q", ErrMalformedMessage, line)
	}
	version, err := parseVersion(parts[2])
	if err != nil {
		return nil, err
	}

	return &Request{
		Version:  version,
		Url:      parts[1],
		Sequence: header.Get(HeaderSequence),
		Method:   Method(parts[0]),
		Header:   header,
		Body:     body,
	}, nil
}
