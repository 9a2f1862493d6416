package rtsp

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
)

type Response struct {
	Version  string
	Code     int
	Message  string
	Sequence string
	Header   http.Header
	Body     []byte
}

// Write serialises the response. The client never sends responses; it is
// here so the codec can be exercised in both directions.
func (r *Response) Write(w io.Writer) error {
	buf := &bytes.Buffer{}
	writer := bufio.NewWriter(buf)

	version := r.Version
	if version == "" {
		version = Version
	}
	_, err := fmt.Fprintf(writer, "RTSP/%s %d %s\r\n", version, r.Code, r.Message)
	if err != nil {
		return fmt.Errorf("failed to write response line: %w", err)
	}
	h := r.Header.Clone()
	if h == nil {
		h = http.Header{}
	}

	if r.Sequence != "" {
		h.Set(HeaderSequence, r.Sequence)
	}
	if h.Get("Date") == "" {
		h.Set("Date", time.Now().UTC().Format(http.TimeFormat))
	}
	if len(r.Body) > 0 {
		h.Set("Content-Length", strconv.Itoa(len(r.Body)))
	}

	err = writeHeader(writer, h)
	if err != nil {
		return fmt.Errorf("failed to write response headers: %w", err)
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

// ReadResponse reads one response from br. A malformed status line still
// consumes the rest of the message so the stream stays aligned, and the
// returned error wraps ErrMalformedMessage.
func ReadResponse(br *bufio.Reader) (*Response, error) {
	line, err := readStartLine(br)
	if err != nil {
		return nil, fmt.Errorf("failed to read RTSP status line: %w", err)
	}

	header, body, err := readHeaderAndBody(br)
	if err != nil {
		return nil, err
	}

	parts := strings.SplitN(line, " ", 3)
	if len(parts) < 2 {
		return nil, fmt.Errorf("%w: invalid status line %q", ErrMalformedMessage, line)
	}
	version, err := parseVersion(parts[0])
	if err != nil {
		return nil, err
	}
	code, err := strconv.Atoi(parts[1])
	if err != nil {
		return nil, fmt.Errorf("%w: invalid status code %q", ErrMalformedMessage, parts[1])
	}
	message := ""
	if len(parts) == 3 {
		message = parts[2]
	}

	return &Response{
		Version:  version,
		Code:     code,
		Message:  message,
		Sequence: header.Get(HeaderSequence),
		Header:   header,
		Body:     body,
	}, nil
}

// ParseResponse parses a complete response held in b. Truncated input is
// reported as malformed.
func ParseResponse(b []byte) (*Response, error) {
	res, err := ReadResponse(bufio.NewReader(bytes.NewReader(b)))
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return nil, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}
	return res, err
}

// SequenceNumber returns the echoed CSeq as an integer.
func (r *Response) SequenceNumber() (int64, error) {
	if r.Sequence == "" {
		return 0, ErrMissingSequence
	}
	seq, err := strconv.ParseInt(strings.TrimSpace(r.Sequence), 10, 64)
	if err != nil || seq <= 0 {
		return 0, fmt.Errorf("%w: %q", ErrMissingSequence, r.Sequence)
	}
	return seq, nil
}

// IsSuccess reports whether the status code is in the 2xx class.
func (r *Response) IsSuccess() bool {
	return r.Code >= 200 && r.Code < 300
}
