package domain

import "errors"

// Domain errors. Check them with errors.Is.
var (
	// ErrMalformedPacket is returned when a datagram is not a valid fragment packet.
	ErrMalformedPacket = errors.New("usts: malformed packet")

	// ErrInvalidFragmentSize is returned when a message is segmented with a size below one byte.
	ErrInvalidFragmentSize = errors.New("usts: fragment size must be positive")

	// ErrInvalidMessageID is returned when a message id is empty, too long or contains the field separator.
	ErrInvalidMessageID = errors.New("usts: invalid message id")

	// ErrAlreadyRunning is returned when Start() is called on a running server.
	ErrAlreadyRunning = errors.New("usts: already running")

	// ErrNotRunning is returned when Stop() is called on a stopped server.
	ErrNotRunning = errors.New("usts: not running")

	// ErrShutdownTimeout is returned when in-flight work outlives the shutdown timeout.
	ErrShutdownTimeout = errors.New("usts: shutdown timeout")

	// ErrInvalidConfig is returned when configuration validation fails.
	ErrInvalidConfig = errors.New("usts: invalid configuration")

	// ErrExchangeAborted is returned when a client stops waiting for the
	// response sequence before the end marker arrived.
	ErrExchangeAborted = errors.New("usts: exchange aborted before response end")
)
