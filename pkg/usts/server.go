package usts

import (
	"context"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	fsAdapter "github.com/bft-labs/usts/internal/adapters/fs"
	redisAdapter "github.com/bft-labs/usts/internal/adapters/redis"
	"github.com/bft-labs/usts/internal/adapters/udp"
	"github.com/bft-labs/usts/internal/app"
	"github.com/bft-labs/usts/internal/domain"
	"github.com/bft-labs/usts/internal/metrics"
	"github.com/bft-labs/usts/internal/ports"
	"github.com/bft-labs/usts/internal/protocol"
	"github.com/bft-labs/usts/pkg/log"
)

// ServerConfig configures a Server. Zero values select defaults.
type ServerConfig struct {
	// Bind is the listen address (default: all interfaces).
	Bind string
	// Port is the UDP port. Zero picks a free port; see Server.Addr.
	Port int

	// DataDir holds the data file (default: data).
	DataDir string
	// DataFile is the append target inside DataDir (default: data.txt).
	DataFile string

	// StoreURL is the Redis URL of the document store.
	StoreURL string
	// StoreCollection groups stored documents (default: messages).
	StoreCollection string
	// StoreTimeout bounds one store write (default 5s).
	StoreTimeout time.Duration

	// MaxResponsePacket bounds response datagrams (default 512).
	MaxResponsePacket int
	// ResponseDelay is the pause after each response datagram (default 50ms).
	// Set NoResponseDelay for no pause.
	ResponseDelay time.Duration
}

// DefaultPort is the UDP port servers and clients use when none is given.
const DefaultPort = 12345

// NoResponseDelay disables response pacing when used as ResponseDelay.
const NoResponseDelay time.Duration = -1

func (c *ServerConfig) setDefaults() {
	if c.Bind == "" {
		c.Bind = "0.0.0.0"
	}
	if c.DataDir == "" {
		c.DataDir = "data"
	}
	if c.DataFile == "" {
		c.DataFile = fsAdapter.DefaultDataFile
	}
	if c.StoreURL == "" {
		c.StoreURL = redisAdapter.DefaultURL
	}
	if c.MaxResponsePacket <= 0 {
		c.MaxResponsePacket = protocol.MaxResponsePacket
	}
	switch {
	case c.ResponseDelay == 0:
		c.ResponseDelay = app.DefaultResponseDelay
	case c.ResponseDelay < 0:
		c.ResponseDelay = 0
	}
}

func (c ServerConfig) validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("%w: port %d out of range", domain.ErrInvalidConfig, c.Port)
	}
	return nil
}

// Server receives fragmented messages and runs them through the pipeline.
type Server struct {
	config    ServerConfig
	opts      options
	logger    log.Logger
	lifecycle *app.Lifecycle
	metrics   ports.Metrics
	file      ports.FileSink
	store     ports.StoreSink
	collector *app.Collector

	mu        sync.Mutex
	listener  *udp.Listener
	emitter   *app.Emitter
	serveDone chan struct{}
	delay     time.Duration
}

// NewServer creates a server in StateStopped. Nothing is bound until Start.
func NewServer(cfg ServerConfig, opts ...Option) (*Server, error) {
	cfg.setDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.shutdownTimeout <= 0 {
		o.shutdownTimeout = app.ShutdownTimeout
	}

	var m ports.Metrics = ports.NopMetrics{}
	if o.registerer != nil {
		pm, err := metrics.New(o.registerer)
		if err != nil {
			return nil, fmt.Errorf("register metrics: %w", err)
		}
		m = pm
	}

	file := o.fileSink
	if file == nil {
		file = fsAdapter.NewFileSink(cfg.DataDir, cfg.DataFile)
	}
	store := o.storeSink
	if store == nil {
		rs, err := redisAdapter.New(redisAdapter.Config{
			URL:        cfg.StoreURL,
			Collection: cfg.StoreCollection,
			Timeout:    cfg.StoreTimeout,
		})
		if err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrInvalidConfig, err)
		}
		store = rs
	}

	return &Server{
		config:    cfg,
		opts:      o,
		logger:    o.logger,
		lifecycle: app.NewLifecycle(o.logger, observerAdapter{observer: o.observer}),
		metrics:   m,
		file:      file,
		store:     store,
		collector: app.NewCollector(),
		delay:     cfg.ResponseDelay,
	}, nil
}

// Start binds the socket and begins serving in the background.
// A bind failure is returned and leaves the server in StateCrashed.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.lifecycle.CanStart() {
		return domain.ErrAlreadyRunning
	}
	if err := s.lifecycle.TransitionTo(app.StateStarting, "Start() called"); err != nil {
		return err
	}

	listener, err := udp.Listen(s.config.Bind, s.config.Port, s.logger)
	if err != nil {
		s.logger.Error("failed to bind server socket", log.Int("port", s.config.Port), log.Err(err))
		_ = s.lifecycle.TransitionTo(app.StateCrashed, err.Error())
		return err
	}

	emitter := app.NewEmitter(listener, s.logger, s.config.MaxResponsePacket, s.delay)
	pipeline := app.NewPipeline(app.PipelineConfig{
		File:      s.file,
		Store:     s.store,
		Responder: emitter,
		Logger:    s.logger,
		Metrics:   s.metrics,
	})
	handler := app.NewHandler(s.collector, pipeline, emitter, s.logger, s.metrics)

	runCtx, cancel := context.WithCancel(ctx)
	s.lifecycle.SetCancel(cancel)
	s.listener = listener
	s.emitter = emitter
	s.serveDone = make(chan struct{})

	if err := s.lifecycle.TransitionTo(app.StateListening, "socket bound"); err != nil {
		cancel()
		_ = listener.Close()
		return err
	}
	s.logger.Info("server listening",
		log.String("addr", listener.Addr().String()),
		log.String("local_ip", LocalIPv4()),
	)

	done := s.serveDone
	go func() {
		defer close(done)
		if err := listener.Serve(runCtx, handler.HandlePacket, s.lifecycle.Go); err != nil {
			s.logger.Error("receive loop failed", log.Err(err))
		}
	}()
	return nil
}

// Stop ends the receive loop, waits for in-flight messages up to the
// shutdown timeout and releases the socket. Returns ErrShutdownTimeout if
// messages were still being processed.
func (s *Server) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.lifecycle.CanStop() {
		return domain.ErrNotRunning
	}
	if err := s.lifecycle.TransitionTo(app.StateStopping, "Stop() called"); err != nil {
		return err
	}

	s.lifecycle.Cancel()
	<-s.serveDone
	err := s.lifecycle.Wait(s.opts.shutdownTimeout)

	if cerr := s.listener.Close(); cerr != nil {
		s.logger.Warn("closing server socket", log.Err(cerr))
	}
	s.emitter = nil

	if err != nil {
		_ = s.lifecycle.TransitionTo(app.StateCrashed, "shutdown timeout")
		return err
	}
	_ = s.lifecycle.TransitionTo(app.StateStopped, "graceful shutdown")
	return nil
}

// Close stops the server if needed and releases the store connection.
func (s *Server) Close() error {
	if s.Status() == StateListening {
		_ = s.Stop()
	}
	if c, ok := s.store.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// Status returns the current lifecycle state.
func (s *Server) Status() State {
	return convertState(s.lifecycle.State())
}

// Addr returns the bound address, or nil before Start.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// SetResponseDelay changes the response pacing, also while serving.
func (s *Server) SetResponseDelay(d time.Duration) {
	if d < 0 {
		d = 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delay = d
	if s.emitter != nil {
		s.emitter.SetDelay(d)
	}
	s.logger.Info("response delay changed", log.Duration("delay", d))
}

// PendingMessages returns the number of messages still collecting fragments.
func (s *Server) PendingMessages() int {
	return s.collector.Pending()
}
