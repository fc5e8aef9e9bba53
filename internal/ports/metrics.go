package ports

import "time"

// Metrics receives protocol and pipeline events.
// Implementations must be safe for concurrent use.
type Metrics interface {
	PacketReceived()
	PacketMalformed()
	FragmentAccepted()
	MessageCompleted()
	SinkResult(sink string, ok bool)
	Processed(ok bool, elapsed time.Duration)
}

// NopMetrics discards every event.
type NopMetrics struct{}

func (NopMetrics) PacketReceived()                          {}
func (NopMetrics) PacketMalformed()                         {}
func (NopMetrics) FragmentAccepted()                        {}
func (NopMetrics) MessageCompleted()                        {}
func (NopMetrics) SinkResult(sink string, ok bool)          {}
func (NopMetrics) Processed(ok bool, elapsed time.Duration) {}
