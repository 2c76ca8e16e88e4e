package client

import "errors"

var (
	// ErrCipherDesync means inbound frames stopped decoding after login.
	// The cipher positions of the peers diverged; only a new connection recovers.
	ErrCipherDesync = errors.New("cipher desync")

	// ErrDisconnected is returned when the server ends the session with a
	// disconnect message.
	ErrDisconnected = errors.New("disconnected by server")

	// ErrClosed is returned by operations on a closed session.
	ErrClosed = errors.New("session closed")
)
