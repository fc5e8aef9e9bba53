// Package metrics exposes USTS protocol and pipeline counters to Prometheus.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/bft-labs/usts/internal/ports"
)

const namespace = "usts"

// Metrics implements ports.Metrics with Prometheus collectors.
type Metrics struct {
	packetsReceived   prometheus.Counter
	packetsMalformed  prometheus.Counter
	fragmentsAccepted prometheus.Counter
	messagesCompleted prometheus.Counter
	sinkResults       *prometheus.CounterVec
	processed         *prometheus.CounterVec
	processingTime    prometheus.Histogram
}

var _ ports.Metrics = (*Metrics)(nil)

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		packetsReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "udp",
			Name:      "packets_received_total",
			Help:      "Datagrams read from the server socket",
		}),
		packetsMalformed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "udp",
			Name:      "packets_malformed_total",
			Help:      "Datagrams dropped because they are not fragment packets",
		}),
		fragmentsAccepted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "collector",
			Name:      "fragments_accepted_total",
			Help:      "Fragments stored by the collector, duplicates included",
		}),
		messagesCompleted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "collector",
			Name:      "messages_completed_total",
			Help:      "Messages reassembled from a complete fragment set",
		}),
		sinkResults: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "sink_results_total",
			Help:      "Sink outcomes by sink and result",
		}, []string{"sink", "result"}),
		processed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "messages_processed_total",
			Help:      "Pipeline runs by aggregate result",
		}, []string{"result"}),
		processingTime: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "processing_duration_seconds",
			Help:      "Time from reassembly to the aggregate line",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}),
	}

	for _, c := range []prometheus.Collector{
		m.packetsReceived, m.packetsMalformed, m.fragmentsAccepted,
		m.messagesCompleted, m.sinkResults, m.processed, m.processingTime,
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) PacketReceived()   { m.packetsReceived.Inc() }
func (m *Metrics) PacketMalformed()  { m.packetsMalformed.Inc() }
func (m *Metrics) FragmentAccepted() { m.fragmentsAccepted.Inc() }
func (m *Metrics) MessageCompleted() { m.messagesCompleted.Inc() }

func (m *Metrics) SinkResult(sink string, ok bool) {
	m.sinkResults.WithLabelValues(sink, result(ok)).Inc()
}

func (m *Metrics) Processed(ok bool, elapsed time.Duration) {
	m.processed.WithLabelValues(result(ok)).Inc()
	m.processingTime.Observe(elapsed.Seconds())
}

// Handler serves the registry in the Prometheus text format.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

func result(ok bool) string {
	if ok {
		return "ok"
	}
	return "failed"
}
