package rtsp

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/textproto"
	"sort"
	"strconv"
	"strings"
)

const (
	HeaderSequence  = "CSeq"
	HeaderSession   = "Session"
	HeaderTransport = "Transport"
	HeaderRange     = "Range"
	HeaderAccept    = "Accept"
	HeaderUserAgent = "User-Agent"

	maxBodySize = 4 << 20
)

// wireHeaderNames holds the headers whose registered spelling differs from
// the MIME canonical form produced by http.Header.
var wireHeaderNames = map[string]string{
	"Cseq":             "CSeq",
	"Rtp-Info":         "RTP-Info",
	"Www-Authenticate": "WWW-Authenticate",
}

var headerValueReplacer = strings.NewReplacer("\r\n", " ", "\r", " ", "\n", " ")

func writeHeader(w *bufio.Writer, h http.Header) error {
	keys := make([]string, 0, len(h))
	for k := range h {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		name := http.CanonicalHeaderKey(k)
		if wire, ok := wireHeaderNames[name]; ok {
			name = wire
		}
		for _, v := range h[k] {
			_, err := fmt.Fprintf(w, "%s: %s\r\n", name, headerValueReplacer.Replace(v))
			if err != nil {
				return err
			}
		}
	}
	return nil
}

// readHeaderAndBody reads the MIME header block that follows a start line
// and the Content-Length delimited body after it.
func readHeaderAndBody(br *bufio.Reader) (http.Header, []byte, error) {
	reader := textproto.NewReader(br)
	mime, err := reader.ReadMIMEHeader()
	if err != nil {
		var pe textproto.ProtocolError
		if errors.As(err, &pe) {
			return nil, nil, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
		}
		return nil, nil, fmt.Errorf("failed to read RTSP headers: %w", err)
	}
	header := http.Header(mime)

	lengthHeader := header.Get("Content-Length")
	if lengthHeader == "" {
		return header, nil, nil
	}
	length, err := strconv.Atoi(strings.TrimSpace(lengthHeader))
	if err != nil || length < 0 || length > maxBodySize {
		return header, nil, fmt.Errorf("%w: invalid content-length %q", ErrMalformedMessage, lengthHeader)
	}
	body := make([]byte, length)
	_, err = io.ReadFull(br, body)
	if err != nil {
		return header, nil, fmt.Errorf("failed to read body of RTSP message: %w", err)
	}
	return header, body, nil
}

// parseVersion splits a protocol tag such as "RTSP/1.0" into its version.
func parseVersion(tag string) (string, error) {
	parts := strings.SplitN(tag, "/", 2)
	if len(parts) != 2 || parts[0] != "RTSP" || parts[1] == "" {
		return "", fmt.Errorf("%w: invalid protocol tag %q", ErrMalformedMessage, tag)
	}
	return parts[1], nil
}

// readStartLine returns the first non-empty line, tolerating the stray line
// terminators some peers emit between messages.
func readStartLine(br *bufio.Reader) (string, error) {
	reader := textproto.NewReader(br)
	for {
		line, err := reader.ReadLine()
		if err != nil {
			return "", err
		}
		if line != "" {
			return line, nil
		}
	}
}
