package domain

import "fmt"

// Fragment is one bounded-size slice of a message.
// Invariant: 0 <= Index < Total.
type Fragment struct {
	// MessageID correlates all fragments and responses of one message
	MessageID string

	// Index is the zero-based position of this fragment
	Index int

	// Total is the number of fragments the message was split into
	Total int

	// Payload is the raw slice of the encoded message (marker included on the last part)
	Payload []byte
}

// Validate checks the structural invariants of a fragment.
func (f Fragment) Validate() error {
	if f.MessageID == "" {
		return fmt.Errorf("%w: empty message id", ErrMalformedPacket)
	}
	if f.Total < 1 {
		return fmt.Errorf("%w: total parts %d", ErrMalformedPacket, f.Total)
	}
	if f.Index < 0 || f.Index >= f.Total {
		return fmt.Errorf("%w: part index %d outside [0,%d)", ErrMalformedPacket, f.Index, f.Total)
	}
	return nil
}

// Part returns the one-based part number used in acknowledgments.
func (f Fragment) Part() int {
	return f.Index + 1
}
