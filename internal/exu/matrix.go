package exu

import (
	"github.com/ucb-ee194-tapeout/npu-model/internal/archstate"
	"github.com/ucb-ee194-tapeout/npu-model/internal/isa"
	"github.com/ucb-ee194-tapeout/npu-model/internal/stagedata"
	"github.com/ucb-ee194-tapeout/npu-model/internal/trace"
)

// matrixUnit is the shared implementation behind the systolic and
// inner-product matrix multiplier variants: both hold exactly one Uop
// in flight for mrf_depth cycles, and both peek (rather than claim)
// their input for the whole latency window so Decode's backpressure
// check sees the slot as full until the instruction actually retires.
// Only supportedTypes differs between the two variants.
type matrixUnit struct {
	name  string
	lane  int
	arch  *archstate.ArchState
	sink  trace.Sink
	cycle int

	latency int

	inFlight *isa.Uop
	pending  *isa.Uop

	totalInstructions int
	busyCycles        int
	completeCount     int

	supportedTypes []isa.Class
}

func newMatrixUnit(name string, lane int, arch *archstate.ArchState, sink trace.Sink, latency int, supported []isa.Class) *matrixUnit {
	m := &matrixUnit{name: name, lane: lane, arch: arch, sink: sink, latency: latency, supportedTypes: supported}
	m.Reset()
	return m
}

func (m *matrixUnit) Name() string { return m.name }

func (m *matrixUnit) Reset() {
	m.inFlight = nil
	m.pending = nil
	m.totalInstructions = 0
	m.busyCycles = 0
	m.completeCount = 0
}

func (m *matrixUnit) Tick(input *stagedata.StageData[*isa.Uop]) {
	m.cycle++

	if m.pending != nil {
		m.sink.LogStageEnd(m.pending.ID, "E", m.lane, m.cycle)
		m.sink.LogRetire(m.pending.ID, trace.Retire)
		m.pending = nil
	}

	m.completeCount = 0

	if m.inFlight == nil {
		if uop, ok := input.Peek(); ok {
			uop.ExecuteDelayRemaining = m.latency
			m.inFlight = uop
			m.totalInstructions++
			m.sink.LogStageEnd(uop.ID, "D", trace.LaneIDU, m.cycle)
			m.sink.LogStageStart(uop.ID, "E", m.lane, m.cycle)
		}
	}

	if m.IsBusy() {
		m.busyCycles++
	}

	if m.inFlight != nil {
		m.inFlight.ExecuteDelayRemaining--
		if m.inFlight.ExecuteDelayRemaining <= 0 {
			m.inFlight.Effect(m.arch, m.inFlight.Insn.Args)
			m.completeCount = 1
			m.pending = m.inFlight
			input.Claim()
			m.inFlight = nil
		}
	}
}

func (m *matrixUnit) FlushCompletions() {
	if m.pending != nil {
		m.sink.LogStageEnd(m.pending.ID, "E", m.lane, m.cycle)
		m.sink.LogRetire(m.pending.ID, trace.Retire)
		m.pending = nil
	}
}

func (m *matrixUnit) HasInFlight() bool { return m.inFlight != nil }

func (m *matrixUnit) IsBusy() bool {
	return m.inFlight != nil && m.inFlight.Insn.Mnemonic != "nop"
}

func (m *matrixUnit) CompleteCount() int     { return m.completeCount }
func (m *matrixUnit) TotalInstructions() int { return m.totalInstructions }
func (m *matrixUnit) BusyCycles() int        { return m.busyCycles }

func (m *matrixUnit) SupportedInstructionTypes() []isa.Class {
	return m.supportedTypes
}

// MatrixSystolic is the systolic-array matmul variant: routable to
// both bare MATRIX and MATRIX_SYSTOLIC classed Uops.
type MatrixSystolic struct{ *matrixUnit }

// NewMatrixSystolic constructs a systolic matrix unit whose latency is
// the configured mrf_depth (one row of the activation streamed per
// cycle).
func NewMatrixSystolic(name string, lane int, arch *archstate.ArchState, sink trace.Sink, mrfDepth int) *MatrixSystolic {
	return &MatrixSystolic{newMatrixUnit(name, lane, arch, sink, mrfDepth, []isa.Class{isa.Matrix, isa.MatrixSystolic})}
}

// MatrixInner is the inner-product matmul variant: routable to both
// bare MATRIX and MATRIX_INNER classed Uops.
type MatrixInner struct{ *matrixUnit }

// NewMatrixInner constructs an inner-product matrix unit with the same
// latency model as the systolic variant.
func NewMatrixInner(name string, lane int, arch *archstate.ArchState, sink trace.Sink, mrfDepth int) *MatrixInner {
	return &MatrixInner{newMatrixUnit(name, lane, arch, sink, mrfDepth, []isa.Class{isa.Matrix, isa.MatrixInner})}
}
