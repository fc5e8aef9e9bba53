package protocol

import (
	"fmt"
	"strings"

	"github.com/bft-labs/usts/internal/domain"
)

// Segment appends the end-of-message marker to body and splits the encoded
// bytes into fragments of at most size bytes. The split is deterministic and
// never produces an empty payload.
func Segment(id, body string, size int) ([]domain.Fragment, error) {
	if size < 1 {
		return nil, fmt.Errorf("%w: %d", domain.ErrInvalidFragmentSize, size)
	}
	if err := ValidateMessageID(id); err != nil {
		return nil, err
	}

	data := []byte(body + EndOfMessage)
	total := (len(data) + size - 1) / size

	frags := make([]domain.Fragment, 0, total)
	for i := 0; i < total; i++ {
		start := i * size
		end := start + size
		if end > len(data) {
			end = len(data)
		}
		frags = append(frags, domain.Fragment{
			MessageID: id,
			Index:     i,
			Total:     total,
			Payload:   data[start:end],
		})
	}
	return frags, nil
}

// Reassemble concatenates payloads in index order and strips the trailing
// end-of-message marker. Only a trailing marker is removed, so bodies that
// contain the marker text themselves survive the round trip.
func Reassemble(payloads [][]byte) string {
	var b strings.Builder
	n := 0
	for _, p := range payloads {
		n += len(p)
	}
	b.Grow(n)
	for _, p := range payloads {
		b.Write(p)
	}
	return strings.TrimSuffix(b.String(), EndOfMessage)
}
