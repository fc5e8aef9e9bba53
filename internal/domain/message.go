package domain

import (
	"net"
	"time"
)

// ReassembledMessage is a message rebuilt from a complete fragment set.
// It is handed to the processing pipeline exactly once and then discarded.
type ReassembledMessage struct {
	MessageID string
	Text      string

	// From is the sender address responses are written back to
	From net.Addr

	// CompletedAt is when the last missing fragment arrived
	CompletedAt time.Time
}

// Outcome is the result reported by one persistence sink.
type Outcome struct {
	OK      bool
	Message string
}

// Succeeded builds a successful outcome.
func Succeeded(msg string) Outcome {
	return Outcome{OK: true, Message: msg}
}

// Failed builds a failed outcome.
func Failed(msg string) Outcome {
	return Outcome{OK: false, Message: msg}
}
