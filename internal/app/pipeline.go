package app

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/bft-labs/usts/internal/domain"
	"github.com/bft-labs/usts/internal/ports"
	"github.com/bft-labs/usts/internal/protocol"
	"github.com/bft-labs/usts/pkg/log"
)

// Sink names used in logs and metrics.
const (
	SinkFile  = "file"
	SinkStore = "store"
)

// Responder sends one status line to a sender.
type Responder interface {
	Emit(ctx context.Context, addr net.Addr, text string)
}

// PipelineResult summarizes one pipeline run.
type PipelineResult struct {
	File    domain.Outcome
	Store   domain.Outcome
	Elapsed time.Duration
}

// OK reports whether both sinks succeeded.
func (r PipelineResult) OK() bool {
	return r.File.OK && r.Store.OK
}

// Pipeline drives a reassembled message through the file and store sinks
// and reports every step back to the sender.
type Pipeline struct {
	file    ports.FileSink
	store   ports.StoreSink
	out     Responder
	logger  log.Logger
	metrics ports.Metrics
	now     func() time.Time
}

// PipelineConfig wires a Pipeline.
type PipelineConfig struct {
	File      ports.FileSink
	Store     ports.StoreSink
	Responder Responder
	Logger    log.Logger
	Metrics   ports.Metrics

	// Now overrides the clock; nil uses time.Now.
	Now func() time.Time
}

// NewPipeline creates a pipeline.
func NewPipeline(cfg PipelineConfig) *Pipeline {
	p := &Pipeline{
		file:    cfg.File,
		store:   cfg.Store,
		out:     cfg.Responder,
		logger:  cfg.Logger,
		metrics: cfg.Metrics,
		now:     cfg.Now,
	}
	if p.logger == nil {
		p.logger = log.NewNoopLogger()
	}
	if p.metrics == nil {
		p.metrics = ports.NopMetrics{}
	}
	if p.now == nil {
		p.now = time.Now
	}
	return p
}

// Run processes msg. Sinks run strictly in order and both always run;
// neither their errors nor their panics escape.
func (p *Pipeline) Run(ctx context.Context, msg domain.ReassembledMessage) PipelineResult {
	start := p.now()
	logger := p.logger.With(log.String("message_id", msg.MessageID))

	p.say(ctx, logger, msg.From, protocol.ReceivedLine(msg.MessageID))

	var res PipelineResult
	res.File = p.runSink(ctx, logger, SinkFile, msg.MessageID, func() domain.Outcome {
		return p.file.Append(ctx, msg.MessageID, msg.Text)
	})
	p.say(ctx, logger, msg.From, res.File.Message)

	res.Store = p.runSink(ctx, logger, SinkStore, msg.MessageID, func() domain.Outcome {
		return p.store.Put(ctx, msg.MessageID, msg.Text)
	})
	p.say(ctx, logger, msg.From, res.Store.Message)

	if res.OK() {
		p.say(ctx, logger, msg.From, protocol.ChainCompletedLine(msg.MessageID))
	} else {
		p.say(ctx, logger, msg.From, protocol.ChainFailedLine(msg.MessageID))
	}

	res.Elapsed = p.now().Sub(start)
	p.metrics.Processed(res.OK(), res.Elapsed)

	p.say(ctx, logger, msg.From, protocol.ElapsedLine(res.Elapsed))
	p.say(ctx, logger, msg.From, p.now().Format(protocol.EndTimestampLayout))
	p.say(ctx, logger, msg.From, protocol.ResponseEnd)

	return res
}

func (p *Pipeline) runSink(ctx context.Context, logger log.Logger, name, id string, call func() domain.Outcome) (out domain.Outcome) {
	defer func() {
		if r := recover(); r != nil {
			reason := fmt.Sprint(r)
			logger.Error("sink panicked", log.String("sink", name), log.String("panic", reason))
			if name == SinkFile {
				out = domain.Failed(protocol.FileFailedLine(id, reason))
			} else {
				out = domain.Failed(protocol.StoreFailedLine(id, reason))
			}
		}
		p.metrics.SinkResult(name, out.OK)
	}()
	return call()
}

// say forwards a line to the sender and records it in the server log.
func (p *Pipeline) say(ctx context.Context, logger log.Logger, to net.Addr, line string) {
	logger.Info(line)
	p.out.Emit(ctx, to, line)
}
