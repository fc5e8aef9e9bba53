package usts

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/bft-labs/usts/internal/domain"
	"github.com/bft-labs/usts/internal/ports"
	"github.com/bft-labs/usts/pkg/log"
)

// Re-exported types for implementing custom sinks.
type (
	// Outcome is the result a sink reports for one message.
	Outcome = domain.Outcome

	// FileSink persists messages to a local file.
	FileSink = ports.FileSink

	// StoreSink persists messages to a document store.
	StoreSink = ports.StoreSink
)

// Option configures optional behavior of a Server.
type Option func(*options)

type options struct {
	logger          log.Logger
	fileSink        FileSink
	storeSink       StoreSink
	registerer      prometheus.Registerer
	observer        StateObserver
	shutdownTimeout time.Duration
}

func defaultOptions() options {
	return options{
		logger: log.NewNoopLogger(),
	}
}

// WithLogger sets the structured logger. Without it nothing is logged.
func WithLogger(l log.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithFileSink replaces the data file sink.
func WithFileSink(s FileSink) Option {
	return func(o *options) { o.fileSink = s }
}

// WithStoreSink replaces the Redis store sink. StoreURL is then ignored.
func WithStoreSink(s StoreSink) Option {
	return func(o *options) { o.storeSink = s }
}

// WithMetricsRegisterer registers protocol metrics with r.
func WithMetricsRegisterer(r prometheus.Registerer) Option {
	return func(o *options) { o.registerer = r }
}

// WithStateObserver receives lifecycle transitions.
func WithStateObserver(obs StateObserver) Option {
	return func(o *options) { o.observer = obs }
}

// WithShutdownTimeout bounds how long Stop waits for in-flight messages.
func WithShutdownTimeout(d time.Duration) Option {
	return func(o *options) { o.shutdownTimeout = d }
}
