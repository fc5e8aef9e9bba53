// Package client sends messages to a USTS server and follows the response
// sequence until the server reports the end of processing.
package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/google/uuid"

	"github.com/bft-labs/usts/internal/domain"
	"github.com/bft-labs/usts/internal/protocol"
	"github.com/bft-labs/usts/pkg/log"
)

// Client defaults.
const (
	DefaultSendDelay = 100 * time.Millisecond

	readPoll    = 100 * time.Millisecond
	readBufSize = 65536
)

// Config configures a Transmitter.
type Config struct {
	// Server is the host:port of the USTS server.
	Server string

	// FragmentSize is the number of message bytes per fragment.
	FragmentSize int

	// SendDelay is the pause after every fragment.
	SendDelay time.Duration

	// AckTimeout bounds the wait for the response sequence. Zero waits
	// until the context is cancelled.
	AckTimeout time.Duration
}

// Transmitter sends messages one at a time.
type Transmitter struct {
	cfg    Config
	out    io.Writer
	logger log.Logger
	newID  func() string
}

// Option configures a Transmitter.
type Option func(*Transmitter)

// WithOutput sets where progress and response lines are printed.
func WithOutput(w io.Writer) Option {
	return func(t *Transmitter) { t.out = w }
}

// WithLogger sets the diagnostic logger.
func WithLogger(l log.Logger) Option {
	return func(t *Transmitter) { t.logger = l }
}

// WithIDGenerator overrides the message id source.
func WithIDGenerator(fn func() string) Option {
	return func(t *Transmitter) { t.newID = fn }
}

// New creates a transmitter.
func New(cfg Config, opts ...Option) *Transmitter {
	if cfg.FragmentSize == 0 {
		cfg.FragmentSize = protocol.DefaultFragmentSize
	}
	t := &Transmitter{
		cfg:    cfg,
		out:    io.Discard,
		logger: log.NewNoopLogger(),
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Send segments body, transmits every fragment and waits for the response
// sequence to end. Each call uses its own socket.
//
// If ctx is cancelled or AckTimeout expires first, the partial result is
// returned with an error wrapping domain.ErrExchangeAborted.
func (t *Transmitter) Send(ctx context.Context, body string) (Result, error) {
	id := t.newID()
	frags, err := protocol.Segment(id, body, t.cfg.FragmentSize)
	if err != nil {
		return Result{MessageID: id}, err
	}

	conn, err := net.Dial("udp", t.cfg.Server)
	if err != nil {
		return Result{MessageID: id}, fmt.Errorf("dial %s: %w", t.cfg.Server, err)
	}
	defer conn.Close()

	if t.cfg.AckTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.cfg.AckTimeout)
		defer cancel()
	}

	fmt.Fprintf(t.out, "Sending message with ID: %s\n", id)
	for _, f := range frags {
		if _, err := conn.Write(protocol.EncodeFragment(f)); err != nil {
			return Result{MessageID: id, Parts: len(frags)}, fmt.Errorf("send part %d: %w", f.Part(), err)
		}
		fmt.Fprintf(t.out, "Sending part %d of %d\n", f.Part(), f.Total)
		if err := pause(ctx, t.cfg.SendDelay); err != nil {
			return Result{MessageID: id, Parts: len(frags)}, fmt.Errorf("%w: %v", domain.ErrExchangeAborted, err)
		}
	}
	fmt.Fprintln(t.out, "Message sent on client side")
	fmt.Fprintln(t.out)

	return t.await(ctx, conn, id, len(frags))
}

// await runs the acknowledgment state machine over inbound lines.
func (t *Transmitter) await(ctx context.Context, conn net.Conn, id string, total int) (Result, error) {
	state := newAckState(total)
	buf := make([]byte, readBufSize)

	for {
		if err := ctx.Err(); err != nil {
			return state.result(id), fmt.Errorf("%w: %v", domain.ErrExchangeAborted, err)
		}

		_ = conn.SetReadDeadline(time.Now().Add(readPoll))
		n, err := conn.Read(buf)
		if err != nil {
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				continue
			}
			return state.result(id), fmt.Errorf("read response: %w", err)
		}

		line := string(buf[:n])
		fmt.Fprintln(t.out, line)

		before := state.phase
		phase := state.Observe(line)
		if phase != before {
			t.logger.Debug("exchange phase changed",
				log.String("message_id", id),
				log.String("phase", phase.String()),
			)
		}
		if phase == PhaseDone {
			return state.result(id), nil
		}
	}
}

func pause(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
