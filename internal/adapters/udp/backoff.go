package udp

import (
	"context"
	"math/rand"
	"time"
)

// Read error backoff bounds.
const (
	DefaultBackoffInitial = 10 * time.Millisecond
	DefaultBackoffMax     = time.Second
)

// backoff implements exponential backoff with jitter.
type backoff struct {
	initial time.Duration
	max     time.Duration
	current time.Duration
}

func newBackoff(initial, max time.Duration) *backoff {
	return &backoff{initial: initial, max: max, current: initial}
}

// Wait sleeps for the current duration (±20%) or until ctx is done,
// then doubles the duration up to max.
func (b *backoff) Wait(ctx context.Context) {
	jitter := float64(b.current) * 0.2 * (rand.Float64()*2 - 1)
	t := time.NewTimer(time.Duration(float64(b.current) + jitter))
	defer t.Stop()

	select {
	case <-ctx.Done():
	case <-t.C:
	}

	b.current *= 2
	if b.current > b.max {
		b.current = b.max
	}
}

// Reset returns to the initial duration.
func (b *backoff) Reset() {
	b.current = b.initial
}
