package udp

import (
	"context"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListener_DeliversCopiedDatagrams(t *testing.T) {
	l, err := Listen("127.0.0.1", 0, nil)
	require.NoError(t, err)
	defer l.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	got := make(map[string]bool)
	received := make(chan struct{}, 8)

	done := make(chan error, 1)
	go func() {
		done <- l.Serve(ctx, func(_ context.Context, packet []byte, _ net.Addr) {
			mu.Lock()
			got[string(packet)] = true
			mu.Unlock()
			received <- struct{}{}
		}, nil)
	}()

	client, err := net.Dial("udp", l.Addr().String())
	require.NoError(t, err)
	defer client.Close()

	for _, msg := range []string{"a:0:1:first", "b:0:1:second-longer"} {
		_, err := client.Write([]byte(msg))
		require.NoError(t, err)
	}
	for i := 0; i < 2; i++ {
		select {
		case <-received:
		case <-time.After(2 * time.Second):
			t.Fatal("datagram not delivered")
		}
	}

	mu.Lock()
	assert.True(t, got["a:0:1:first"])
	assert.True(t, got["b:0:1:second-longer"])
	mu.Unlock()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
}

func TestListener_RepliesFromBoundSocket(t *testing.T) {
	l, err := Listen("127.0.0.1", 0, nil)
	require.NoError(t, err)
	defer l.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		_ = l.Serve(ctx, func(_ context.Context, packet []byte, from net.Addr) {
			_, _ = l.WriteTo(append([]byte("echo "), packet...), from)
		}, nil)
	}()

	client, err := net.Dial("udp", l.Addr().String())
	require.NoError(t, err)
	defer client.Close()

	_, err = client.Write([]byte("ping"))
	require.NoError(t, err)

	require.NoError(t, client.SetReadDeadline(time.Now().Add(2*time.Second)))
	buf := make([]byte, 64)
	n, err := client.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, "echo ping", string(buf[:n]))
}

func TestListener_ServeReturnsOnClose(t *testing.T) {
	l, err := Listen("127.0.0.1", 0, nil)
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		done <- l.Serve(context.Background(), func(context.Context, []byte, net.Addr) {}, nil)
	}()

	time.Sleep(20 * time.Millisecond)
	require.NoError(t, l.Close())

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not return after Close")
	}
}

func TestListen_PortInUse(t *testing.T) {
	l, err := Listen("127.0.0.1", 0, nil)
	require.NoError(t, err)
	defer l.Close()

	port := l.Addr().(*net.UDPAddr).Port
	_, err = Listen("127.0.0.1", port, nil)
	assert.Error(t, err)
}

func TestBackoff(t *testing.T) {
	b := newBackoff(time.Millisecond, 4*time.Millisecond)
	ctx := context.Background()

	b.Wait(ctx)
	assert.Equal(t, 2*time.Millisecond, b.current)
	b.Wait(ctx)
	b.Wait(ctx)
	assert.Equal(t, 4*time.Millisecond, b.current)

	b.Reset()
	assert.Equal(t, time.Millisecond, b.current)
}
