package app

import (
	"context"
	"net"
	"sync/atomic"
	"time"

	"github.com/bft-labs/usts/internal/ports"
	"github.com/bft-labs/usts/internal/protocol"
	"github.com/bft-labs/usts/pkg/log"
)

// DefaultResponseDelay is the pause after every response packet.
const DefaultResponseDelay = 50 * time.Millisecond

// Emitter writes status lines back to senders as bounded, paced packets.
// No header is added: a line that spans several packets cannot be rebuilt by
// the receiver, so callers keep their lines within MaxPacket.
type Emitter struct {
	conn      ports.PacketWriter
	logger    log.Logger
	maxPacket int
	delay     atomic.Int64 // nanoseconds
	sleep     func(ctx context.Context, d time.Duration)
}

// NewEmitter creates an emitter. maxPacket < 1 selects protocol.MaxResponsePacket.
func NewEmitter(conn ports.PacketWriter, logger log.Logger, maxPacket int, delay time.Duration) *Emitter {
	if maxPacket < 1 {
		maxPacket = protocol.MaxResponsePacket
	}
	if logger == nil {
		logger = log.NewNoopLogger()
	}
	e := &Emitter{
		conn:      conn,
		logger:    logger,
		maxPacket: maxPacket,
		sleep:     sleepCtx,
	}
	e.SetDelay(delay)
	return e
}

// SetDelay changes the pacing delay. Safe to call while emitting.
func (e *Emitter) SetDelay(d time.Duration) {
	if d < 0 {
		d = 0
	}
	e.delay.Store(int64(d))
}

// Delay returns the current pacing delay.
func (e *Emitter) Delay() time.Duration {
	return time.Duration(e.delay.Load())
}

// MaxPacket returns the packet size bound.
func (e *Emitter) MaxPacket() int {
	return e.maxPacket
}

// Emit sends text to addr, split into packets of at most MaxPacket bytes.
// Write errors are logged and end the emission of this text.
func (e *Emitter) Emit(ctx context.Context, addr net.Addr, text string) {
	data := []byte(text)
	if len(data) > e.maxPacket {
		e.logger.Warn("response line exceeds one packet, receiver will see it split",
			log.Int("bytes", len(data)),
			log.Int("max_packet", e.maxPacket),
		)
	}

	for _, chunk := range Chunk(data, e.maxPacket) {
		if _, err := e.conn.WriteTo(chunk, addr); err != nil {
			e.logger.Warn("failed to send response packet",
				log.String("to", addr.String()),
				log.Err(err),
			)
			return
		}
		e.sleep(ctx, e.Delay())
	}
}

// Chunk splits data into consecutive slices of at most size bytes.
// Empty input yields one empty chunk so blank lines still reach the peer.
func Chunk(data []byte, size int) [][]byte {
	if len(data) == 0 {
		return [][]byte{data}
	}
	chunks := make([][]byte, 0, (len(data)+size-1)/size)
	for start := 0; start < len(data); start += size {
		end := start + size
		if end > len(data) {
			end = len(data)
		}
		chunks = append(chunks, data[start:end])
	}
	return chunks
}

func sleepCtx(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
