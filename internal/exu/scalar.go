package exu

import (
	"github.com/ucb-ee194-tapeout/npu-model/internal/archstate"
	"github.com/ucb-ee194-tapeout/npu-model/internal/isa"
	"github.com/ucb-ee194-tapeout/npu-model/internal/stagedata"
	"github.com/ucb-ee194-tapeout/npu-model/internal/trace"
)

// Scalar is the single-issue, one-cycle-latency integer unit. It
// claims its Uop immediately and applies the effect in the same cycle
// it claims, logging the retire one cycle later so the completion is
// visible as a distinct trace interval.
type Scalar struct {
	name   string
	lane   int
	arch   *archstate.ArchState
	sink   trace.Sink
	cycle  int

	pending *isa.Uop

	totalInstructions int
	busyCycles        int
	completeCount     int
}

func NewScalar(name string, lane int, arch *archstate.ArchState, sink trace.Sink) *Scalar {
	s := &Scalar{name: name, lane: lane, arch: arch, sink: sink}
	s.Reset()
	return s
}

func (s *Scalar) Name() string { return s.name }

func (s *Scalar) Reset() {
	s.pending = nil
	s.totalInstructions = 0
	s.busyCycles = 0
	s.completeCount = 0
}

func (s *Scalar) Tick(input *stagedata.StageData[*isa.Uop]) {
	s.cycle++

	// Log the deferred retire of the Uop that finished last cycle
	// before touching anything new this cycle.
	if s.pending != nil {
		s.sink.LogStageEnd(s.pending.ID, "E", s.lane, s.cycle)
		s.sink.LogRetire(s.pending.ID, trace.Retire)
		s.pending = nil
	}

	s.completeCount = 0

	uop, ok := input.Claim()
	if !ok {
		return
	}

	s.pending = uop
	s.totalInstructions++
	s.sink.LogStageEnd(uop.ID, "D", trace.LaneIDU, s.cycle)
	s.sink.LogStageStart(uop.ID, "E", s.lane, s.cycle)

	if uop.Insn.Mnemonic != "nop" {
		s.busyCycles++
	}
	s.completeCount = 1

	uop.Effect(s.arch, uop.Insn.Args)
}

func (s *Scalar) FlushCompletions() {
	if s.pending != nil {
		s.sink.LogStageEnd(s.pending.ID, "E", s.lane, s.cycle)
		s.sink.LogRetire(s.pending.ID, trace.Retire)
		s.pending = nil
	}
}

func (s *Scalar) HasInFlight() bool { return false }
func (s *Scalar) IsBusy() bool      { return s.pending != nil }

func (s *Scalar) CompleteCount() int      { return s.completeCount }
func (s *Scalar) TotalInstructions() int  { return s.totalInstructions }
func (s *Scalar) BusyCycles() int         { return s.busyCycles }

func (s *Scalar) SupportedInstructionTypes() []isa.Class {
	return []isa.Class{isa.Scalar}
}
