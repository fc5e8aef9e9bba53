package client

import (
	"github.com/bft-labs/usts/internal/protocol"
)

// Phase is a step of the acknowledgment state machine.
type Phase int

const (
	PhaseAwaitingAcks Phase = iota
	PhaseAwaitingMilestones
	PhaseDone
)

func (p Phase) String() string {
	switch p {
	case PhaseAwaitingAcks:
		return "awaiting-acks"
	case PhaseAwaitingMilestones:
		return "awaiting-milestones"
	case PhaseDone:
		return "done"
	default:
		return "unknown"
	}
}

// ackState tracks the response sequence of one message.
type ackState struct {
	total      int
	phase      Phase
	acked      map[int]struct{}
	milestones map[protocol.Milestone]struct{}
}

func newAckState(total int) *ackState {
	return &ackState{
		total:      total,
		phase:      PhaseAwaitingAcks,
		acked:      make(map[int]struct{}, total),
		milestones: make(map[protocol.Milestone]struct{}, len(protocol.Milestones)),
	}
}

// Observe feeds one response line and returns the resulting phase.
// Milestones are recorded in every phase since the server may send them
// before the last acknowledgment arrives.
func (s *ackState) Observe(line string) Phase {
	if s.phase == PhaseDone {
		return s.phase
	}

	for _, m := range protocol.DetectMilestones(line) {
		s.milestones[m] = struct{}{}
	}

	switch s.phase {
	case PhaseAwaitingAcks:
		if part, ok := protocol.ParsePartAck(line); ok && part >= 1 && part <= s.total {
			s.acked[part] = struct{}{}
		}
		if len(s.acked) == s.total {
			s.phase = PhaseAwaitingMilestones
		}
	case PhaseAwaitingMilestones:
		if protocol.IsResponseEnd(line) {
			s.phase = PhaseDone
		}
	}
	return s.phase
}

func (s *ackState) result(id string) Result {
	r := Result{
		MessageID:  id,
		Parts:      s.total,
		AckedParts: len(s.acked),
		Ended:      s.phase == PhaseDone,
	}
	for _, m := range protocol.Milestones {
		if _, ok := s.milestones[m]; ok {
			r.Milestones = append(r.Milestones, m)
		}
	}
	return r
}

// Result summarizes one exchange.
type Result struct {
	MessageID  string
	Parts      int
	AckedParts int
	Milestones []protocol.Milestone
	Ended      bool
}

// Succeeded reports whether every milestone was observed.
func (r Result) Succeeded() bool {
	return len(r.Milestones) == len(protocol.Milestones)
}
