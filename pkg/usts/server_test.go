package usts

import (
	"bytes"
	"context"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bft-labs/usts/internal/domain"
	"github.com/bft-labs/usts/internal/protocol"
)

type recordingObserver struct {
	mu     sync.Mutex
	events []StateChangeEvent
}

func (o *recordingObserver) OnStateChange(e StateChangeEvent) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.events = append(o.events, e)
}

func (o *recordingObserver) states() []State {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]State, 0, len(o.events))
	for _, e := range o.events {
		out = append(out, e.Current)
	}
	return out
}

func startTestServer(t *testing.T, cfg ServerConfig, opts ...Option) *Server {
	t.Helper()
	if cfg.Bind == "" {
		cfg.Bind = "127.0.0.1"
	}
	if cfg.DataDir == "" {
		cfg.DataDir = t.TempDir()
	}
	cfg.ResponseDelay = NoResponseDelay

	srv, err := NewServer(cfg, opts...)
	require.NoError(t, err)
	require.NoError(t, srv.Start(context.Background()))
	t.Cleanup(func() { _ = srv.Close() })
	return srv
}

func newTestClient(srv *Server, out *bytes.Buffer) *Client {
	return NewClient(ClientConfig{
		Server:     srv.Addr().String(),
		SendDelay:  time.Millisecond,
		AckTimeout: 5 * time.Second,
		Output:     out,
	})
}

func TestServer_EndToEnd(t *testing.T) {
	mr := miniredis.RunT(t)
	dataDir := t.TempDir()
	srv := startTestServer(t, ServerConfig{
		DataDir:  dataDir,
		StoreURL: "redis://" + mr.Addr(),
	}, WithMetricsRegisterer(prometheus.NewRegistry()))

	var out bytes.Buffer
	body := strings.Repeat("abc:", 300)
	res, err := newTestClient(srv, &out).Send(context.Background(), body)
	require.NoError(t, err)

	assert.True(t, res.Ended)
	assert.True(t, res.Succeeded(), out.String())
	assert.Equal(t, 3, res.Parts)
	assert.Equal(t, 3, res.AckedParts)

	data, err := os.ReadFile(filepath.Join(dataDir, "data.txt"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "messageId: "+res.MessageID+", message: "+body+"\n\n")

	docs, err := mr.List("messages:docs")
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, res.MessageID, mr.HGet(docs[0], "messageId"))
	assert.Equal(t, body, mr.HGet(docs[0], "message"))

	printed := out.String()
	assert.Contains(t, printed, "---Response start---")
	assert.Contains(t, printed, protocol.ChainCompletedLine(res.MessageID))
	assert.Contains(t, printed, "---Response end---")
	assert.Zero(t, srv.PendingMessages())
}

func TestServer_StoreUnavailable(t *testing.T) {
	mr := miniredis.RunT(t)
	url := "redis://" + mr.Addr()
	mr.Close()

	srv := startTestServer(t, ServerConfig{
		StoreURL:     url,
		StoreTimeout: 500 * time.Millisecond,
	})

	var out bytes.Buffer
	res, err := newTestClient(srv, &out).Send(context.Background(), "hello")
	require.NoError(t, err)

	assert.True(t, res.Ended)
	assert.False(t, res.Succeeded())
	assert.Equal(t, []protocol.Milestone{protocol.MilestoneReceived, protocol.MilestoneFileSaved}, res.Milestones)
	assert.Contains(t, out.String(), "has !ERROR! with writing into DB on server side!")
	assert.Contains(t, out.String(), protocol.ChainFailedLine(res.MessageID))
}

func TestServer_CustomSinks(t *testing.T) {
	store := &memoryStore{}
	srv := startTestServer(t, ServerConfig{}, WithStoreSink(store))

	var out bytes.Buffer
	res, err := newTestClient(srv, &out).Send(context.Background(), "hi there")
	require.NoError(t, err)
	assert.True(t, res.Succeeded())
	assert.Equal(t, []string{"hi there"}, store.texts())
}

func TestServer_Lifecycle(t *testing.T) {
	obs := &recordingObserver{}
	srv, err := NewServer(ServerConfig{Bind: "127.0.0.1", DataDir: t.TempDir()},
		WithStoreSink(&memoryStore{}), WithStateObserver(obs))
	require.NoError(t, err)

	assert.Equal(t, StateStopped, srv.Status())
	assert.Nil(t, srv.Addr())
	assert.ErrorIs(t, srv.Stop(), domain.ErrNotRunning)

	require.NoError(t, srv.Start(context.Background()))
	assert.Equal(t, StateListening, srv.Status())
	assert.NotNil(t, srv.Addr())
	assert.ErrorIs(t, srv.Start(context.Background()), domain.ErrAlreadyRunning)

	require.NoError(t, srv.Stop())
	assert.Equal(t, StateStopped, srv.Status())

	require.NoError(t, srv.Start(context.Background()))
	require.NoError(t, srv.Stop())

	assert.Equal(t, []State{
		StateStarting, StateListening, StateStopping, StateStopped,
		StateStarting, StateListening, StateStopping, StateStopped,
	}, obs.states())
}

func TestServer_PortInUse(t *testing.T) {
	first := startTestServer(t, ServerConfig{}, WithStoreSink(&memoryStore{}))
	_, port := splitAddr(t, first.Addr().String())

	second, err := NewServer(ServerConfig{Bind: "127.0.0.1", Port: port, DataDir: t.TempDir()},
		WithStoreSink(&memoryStore{}))
	require.NoError(t, err)

	err = second.Start(context.Background())
	require.Error(t, err)
	assert.Equal(t, StateCrashed, second.Status())
	assert.ErrorIs(t, second.Stop(), domain.ErrNotRunning)
}

func TestServer_SetResponseDelay(t *testing.T) {
	srv := startTestServer(t, ServerConfig{}, WithStoreSink(&memoryStore{}))
	srv.SetResponseDelay(20 * time.Millisecond)

	var out bytes.Buffer
	start := time.Now()
	res, err := newTestClient(srv, &out).Send(context.Background(), "x")
	require.NoError(t, err)
	require.True(t, res.Ended)

	// nine lines precede the end marker
	assert.GreaterOrEqual(t, time.Since(start), 9*20*time.Millisecond)
}

func TestNewServer_InvalidConfig(t *testing.T) {
	_, err := NewServer(ServerConfig{Port: 70000})
	assert.ErrorIs(t, err, domain.ErrInvalidConfig)

	_, err = NewServer(ServerConfig{StoreURL: "http://not-redis"})
	assert.ErrorIs(t, err, domain.ErrInvalidConfig)
}

type memoryStore struct {
	mu   sync.Mutex
	docs []string
}

func (m *memoryStore) Put(_ context.Context, id, text string) Outcome {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs = append(m.docs, text)
	return domain.Succeeded(protocol.StoreSavedLine(id))
}

func (m *memoryStore) texts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.docs...)
}

func splitAddr(t *testing.T, addr string) (string, int) {
	t.Helper()
	host, p, err := net.SplitHostPort(addr)
	require.NoError(t, err)
	port, err := strconv.Atoi(p)
	require.NoError(t, err)
	return host, port
}
