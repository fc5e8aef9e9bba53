package app

import (
	"context"
	"errors"
	"net"
	"sync"

	"github.com/bft-labs/usts/internal/domain"
	"github.com/bft-labs/usts/internal/protocol"
)

var peer = &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 40000}

// recordingResponder collects every emitted line in order.
type recordingResponder struct {
	mu    sync.Mutex
	lines []string
}

func (r *recordingResponder) Emit(_ context.Context, _ net.Addr, text string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lines = append(r.lines, text)
}

func (r *recordingResponder) Lines() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string{}, r.lines...)
}

func (r *recordingResponder) Count(line string) int {
	n := 0
	for _, l := range r.Lines() {
		if l == line {
			n++
		}
	}
	return n
}

// fakeFileSink succeeds unless err is set; panics when panicMsg is set.
type fakeFileSink struct {
	mu       sync.Mutex
	err      error
	panicMsg string
	got      map[string]string
}

func (s *fakeFileSink) Append(_ context.Context, id, text string) domain.Outcome {
	if s.panicMsg != "" {
		panic(s.panicMsg)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.got == nil {
		s.got = make(map[string]string)
	}
	if s.err != nil {
		return domain.Failed(protocol.FileFailedLine(id, s.err.Error()))
	}
	s.got[id] = text
	return domain.Succeeded(protocol.FileSavedLine(id))
}

type fakeStoreSink struct {
	mu       sync.Mutex
	err      error
	panicMsg string
	calls    int
}

func (s *fakeStoreSink) Put(_ context.Context, id, _ string) domain.Outcome {
	if s.panicMsg != "" {
		panic(s.panicMsg)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return domain.Failed(protocol.StoreFailedLine(id, s.err.Error()))
	}
	return domain.Succeeded(protocol.StoreSavedLine(id))
}

// packetRecorder is a ports.PacketWriter that keeps every datagram.
type packetRecorder struct {
	mu      sync.Mutex
	packets [][]byte
	err     error
}

func (w *packetRecorder) WriteTo(p []byte, _ net.Addr) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return 0, w.err
	}
	w.packets = append(w.packets, append([]byte(nil), p...))
	return len(p), nil
}

var errDiskFull = errors.New("disk full")
