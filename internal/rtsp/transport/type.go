package transport

import "errors"

type Protocol string

const (
	ProtocolUDP Protocol = "UDP"
	ProtocolTCP Protocol = "TCP"
)

const (
	UnsupportedTransportMessage = "Unsupported Transport"
	UnsupportedTransportCode    = 461
)

var (
	ErrUnsupportedTransport = errors.New("unsupported transport")
	ErrMalformedTransport   = errors.New("malformed transport header")
)

type Header interface {
	Options() []Option
	String() string
}

type Option interface {
	IsUnicast() bool
	Protocol() Protocol
	Parameters() []Parameter
	// Interleaved returns the channel pair for TCP delivery.
	Interleaved() (Interleaved, bool)
	// ServerPort returns the server's RTP/RTCP ports for UDP delivery.
	ServerPort() (ServerPort, bool)
	String() string
}

type Parameter interface {
	String() string
}
