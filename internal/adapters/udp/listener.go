package udp

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/bft-labs/usts/pkg/log"
)

const (
	// maxDatagram fits any UDP payload.
	maxDatagram = 65536

	// socketBufferSize is requested from the OS to absorb bursts of fragments.
	socketBufferSize = 2 * 1024 * 1024

	// pollInterval bounds how long a read blocks before the loop checks ctx.
	pollInterval = 100 * time.Millisecond
)

// Handler processes one datagram. packet is owned by the handler.
type Handler func(ctx context.Context, packet []byte, from net.Addr)

// Spawner runs a unit of work concurrently.
type Spawner func(fn func())

// Listener owns the server UDP socket.
type Listener struct {
	conn   *net.UDPConn
	logger log.Logger
}

// Listen binds a UDP socket on bind:port. Port 0 picks a free port.
func Listen(bind string, port int, logger log.Logger) (*Listener, error) {
	if logger == nil {
		logger = log.NewNoopLogger()
	}

	addr, err := net.ResolveUDPAddr("udp", net.JoinHostPort(bind, fmt.Sprint(port)))
	if err != nil {
		return nil, fmt.Errorf("resolve %s:%d: %w", bind, port, err)
	}
	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen on udp port %d: %w", port, err)
	}
	if err := conn.SetReadBuffer(socketBufferSize); err != nil {
		logger.Warn("could not set udp read buffer",
			log.Int("buffer_size", socketBufferSize),
			log.Err(err),
		)
	}

	return &Listener{conn: conn, logger: logger}, nil
}

// Addr returns the bound local address.
func (l *Listener) Addr() net.Addr {
	return l.conn.LocalAddr()
}

// WriteTo sends a datagram from the listening socket.
func (l *Listener) WriteTo(p []byte, addr net.Addr) (int, error) {
	return l.conn.WriteTo(p, addr)
}

// Serve reads datagrams until ctx is done or the socket is closed, handing
// each one to handle through spawn. Every datagram is copied before hand-off.
// Units of work receive a context that outlives ctx, so cancelling the read
// loop never interrupts a message already being processed.
func (l *Listener) Serve(ctx context.Context, handle Handler, spawn Spawner) error {
	if spawn == nil {
		spawn = func(fn func()) { go fn() }
	}
	work := context.WithoutCancel(ctx)
	buf := make([]byte, maxDatagram)
	bo := newBackoff(DefaultBackoffInitial, DefaultBackoffMax)

	for {
		if ctx.Err() != nil {
			return nil
		}

		_ = l.conn.SetReadDeadline(time.Now().Add(pollInterval))
		n, from, err := l.conn.ReadFrom(buf)
		if err != nil {
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				continue
			}
			if errors.Is(err, net.ErrClosed) || ctx.Err() != nil {
				return nil
			}
			l.logger.Warn("udp read failed", log.Err(err))
			bo.Wait(ctx)
			continue
		}
		bo.Reset()

		packet := make([]byte, n)
		copy(packet, buf[:n])
		spawn(func() { handle(work, packet, from) })
	}
}

// Close releases the socket.
func (l *Listener) Close() error {
	return l.conn.Close()
}
