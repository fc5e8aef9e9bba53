package app

import (
	"context"
	"net"
	"time"

	"github.com/bft-labs/usts/internal/domain"
	"github.com/bft-labs/usts/internal/ports"
	"github.com/bft-labs/usts/internal/protocol"
	"github.com/bft-labs/usts/pkg/log"
)

// Handler is the unit of work run for every inbound datagram.
type Handler struct {
	collector *Collector
	pipeline  *Pipeline
	out       Responder
	logger    log.Logger
	metrics   ports.Metrics
	now       func() time.Time
}

// NewHandler creates a handler that feeds completed messages into pipeline.
func NewHandler(collector *Collector, pipeline *Pipeline, out Responder, logger log.Logger, metrics ports.Metrics) *Handler {
	if logger == nil {
		logger = log.NewNoopLogger()
	}
	if metrics == nil {
		metrics = ports.NopMetrics{}
	}
	return &Handler{
		collector: collector,
		pipeline:  pipeline,
		out:       out,
		logger:    logger,
		metrics:   metrics,
		now:       time.Now,
	}
}

// HandlePacket decodes one datagram, records the fragment and, when the
// message is complete, runs the pipeline on the reassembled text.
// Malformed datagrams are logged and dropped without a response.
func (h *Handler) HandlePacket(ctx context.Context, packet []byte, from net.Addr) {
	h.metrics.PacketReceived()

	frag, err := protocol.DecodeFragment(packet)
	if err != nil {
		h.metrics.PacketMalformed()
		h.logger.Warn("dropping malformed packet",
			log.String("from", from.String()),
			log.Int("bytes", len(packet)),
			log.Err(err),
		)
		return
	}

	logger := h.logger.With(log.String("message_id", frag.MessageID))
	res := h.collector.Add(frag)
	h.metrics.FragmentAccepted()

	if res.Started {
		h.say(ctx, logger, from, protocol.ResponseStart)
		h.say(ctx, logger, from, h.now().Format(protocol.TimestampLayout))
	}
	h.say(ctx, logger, from, protocol.PartReceivedLine(frag.MessageID, frag.Part()))

	if !res.Complete {
		return
	}
	h.metrics.MessageCompleted()

	msg := domain.ReassembledMessage{
		MessageID:   frag.MessageID,
		Text:        protocol.Reassemble(res.Payloads),
		From:        from,
		CompletedAt: h.now(),
	}
	logger.Debug("message reassembled", log.Int("parts", len(res.Payloads)), log.Int("bytes", len(msg.Text)))
	h.pipeline.Run(ctx, msg)
}

func (h *Handler) say(ctx context.Context, logger log.Logger, to net.Addr, line string) {
	logger.Info(line)
	h.out.Emit(ctx, to, line)
}
