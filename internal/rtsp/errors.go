package rtsp

import "errors"

var (
	// ErrAlreadyConnected is returned by Connect when the client is connecting or connected.
	ErrAlreadyConnected = errors.New("rtsp client already connecting")
	// ErrConnectionSetup wraps URL parsing and validation failures raised by Connect.
	ErrConnectionSetup = errors.New("rtsp connection setup failed")
	// ErrSessionNotSet is returned before any I/O by commands that need a session.
	ErrSessionNotSet = errors.New("session id not set")
	// ErrClientDestroyed rejects every pending request when the client is closed.
	ErrClientDestroyed = errors.New("rtsp client is destroyed")
	ErrClientClosed    = errors.New("rtsp client is closed")
	ErrNotConnected    = errors.New("rtsp client is not connected")
	ErrConnectionLost  = errors.New("rtsp connection lost")

	ErrMalformedMessage    = errors.New("malformed rtsp message")
	ErrMissingSequence     = errors.New("cseq not found")
	ErrTransactionNotFound = errors.New("transaction not found")
)
