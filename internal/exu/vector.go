package exu

import (
	"github.com/ucb-ee194-tapeout/npu-model/internal/archstate"
	"github.com/ucb-ee194-tapeout/npu-model/internal/isa"
	"github.com/ucb-ee194-tapeout/npu-model/internal/stagedata"
	"github.com/ucb-ee194-tapeout/npu-model/internal/trace"
)

// Vector is the bf16 elementwise unit. Its file (vpu.py) did not
// survive retrieval from the original source; per spec.md's
// open-questions guidance it follows the same single-issue,
// one-cycle-latency pattern as Scalar, since every vector effect in the
// ISA is a short elementwise or broadcast op with no internal pipelining.
type Vector struct {
	name  string
	lane  int
	arch  *archstate.ArchState
	sink  trace.Sink
	cycle int

	pending *isa.Uop

	totalInstructions int
	busyCycles        int
	completeCount     int
}

func NewVector(name string, lane int, arch *archstate.ArchState, sink trace.Sink) *Vector {
	v := &Vector{name: name, lane: lane, arch: arch, sink: sink}
	v.Reset()
	return v
}

func (v *Vector) Name() string { return v.name }

func (v *Vector) Reset() {
	v.pending = nil
	v.totalInstructions = 0
	v.busyCycles = 0
	v.completeCount = 0
}

func (v *Vector) Tick(input *stagedata.StageData[*isa.Uop]) {
	v.cycle++

	if v.pending != nil {
		v.sink.LogStageEnd(v.pending.ID, "E", v.lane, v.cycle)
		v.sink.LogRetire(v.pending.ID, trace.Retire)
		v.pending = nil
	}

	v.completeCount = 0

	uop, ok := input.Claim()
	if !ok {
		return
	}

	v.pending = uop
	v.totalInstructions++
	v.sink.LogStageEnd(uop.ID, "D", trace.LaneIDU, v.cycle)
	v.sink.LogStageStart(uop.ID, "E", v.lane, v.cycle)

	if uop.Insn.Mnemonic != "nop" {
		v.busyCycles++
	}
	v.completeCount = 1

	uop.Effect(v.arch, uop.Insn.Args)
}

func (v *Vector) FlushCompletions() {
	if v.pending != nil {
		v.sink.LogStageEnd(v.pending.ID, "E", v.lane, v.cycle)
		v.sink.LogRetire(v.pending.ID, trace.Retire)
		v.pending = nil
	}
}

func (v *Vector) HasInFlight() bool { return false }
func (v *Vector) IsBusy() bool      { return v.pending != nil }

func (v *Vector) CompleteCount() int     { return v.completeCount }
func (v *Vector) TotalInstructions() int { return v.totalInstructions }
func (v *Vector) BusyCycles() int        { return v.busyCycles }

func (v *Vector) SupportedInstructionTypes() []isa.Class {
	return []isa.Class{isa.Vector}
}
