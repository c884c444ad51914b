package exu

import (
	"github.com/ucb-ee194-tapeout/npu-model/internal/archstate"
	"github.com/ucb-ee194-tapeout/npu-model/internal/isa"
	"github.com/ucb-ee194-tapeout/npu-model/internal/stagedata"
	"github.com/ucb-ee194-tapeout/npu-model/internal/trace"
)

// dmaQueueDepth bounds how many DMA Uops may be in flight at once.
const dmaQueueDepth = 8

// DMA is the memory-transfer unit: a FIFO of up to dmaQueueDepth
// in-flight Uops, each with its own latency of 10+size cycles. Unlike
// Scalar/Vector/Matrix, multiple DMA Uops overlap in flight; only the
// head of the queue is actively counting down at any time, modeling a
// single shared transfer channel with bounded queuing.
type DMA struct {
	name  string
	lane  int
	arch  *archstate.ArchState
	sink  trace.Sink
	cycle int

	inFlight []*isa.Uop
	pending  []*isa.Uop

	totalInstructions int
	busyCycles        int
	completeCount     int
}

func NewDMA(name string, lane int, arch *archstate.ArchState, sink trace.Sink) *DMA {
	d := &DMA{name: name, lane: lane, arch: arch, sink: sink}
	d.Reset()
	return d
}

func (d *DMA) Name() string { return d.name }

func (d *DMA) Reset() {
	d.inFlight = nil
	d.pending = nil
	d.totalInstructions = 0
	d.busyCycles = 0
	d.completeCount = 0
}

func (d *DMA) Tick(input *stagedata.StageData[*isa.Uop]) {
	d.cycle++

	for _, uop := range d.pending {
		d.sink.LogStageEnd(uop.ID, "E", d.lane, d.cycle)
		d.sink.LogRetire(uop.ID, trace.Retire)
		if err := d.arch.ClearFlag(uop.Insn.Args.IntArg("flag")); err != nil {
			panic(err)
		}
		if len(d.inFlight) != 0 {
			d.sink.LogStageStart(d.inFlight[0].ID, "E", d.lane, d.cycle)
		}
	}
	d.pending = nil

	d.completeCount = 0

	if len(d.inFlight) < dmaQueueDepth {
		if uop, ok := input.Peek(); ok {
			uop.ExecuteDelayRemaining = 10 + uop.Insn.Args.IntArg("size")
			d.inFlight = append(d.inFlight, uop)
			d.totalInstructions++
			input.Claim()
			d.sink.LogStageEnd(uop.ID, "D", trace.LaneIDU, d.cycle)
			if len(d.inFlight) == 1 {
				d.sink.LogStageStart(uop.ID, "E", d.lane, d.cycle)
			}
		}
	}

	if d.IsBusy() {
		d.busyCycles++
	}

	if len(d.inFlight) != 0 {
		d.inFlight[0].ExecuteDelayRemaining--
		if d.inFlight[0].ExecuteDelayRemaining <= 0 {
			head := d.inFlight[0]
			head.Effect(d.arch, head.Insn.Args)
			d.completeCount = 1
			d.pending = append(d.pending, head)
			d.inFlight = d.inFlight[1:]
		}
	}
}

func (d *DMA) FlushCompletions() {
	for _, uop := range d.pending {
		d.sink.LogStageEnd(uop.ID, "E", d.lane, d.cycle)
		d.sink.LogRetire(uop.ID, trace.Retire)
	}
	d.pending = nil
}

func (d *DMA) HasInFlight() bool { return len(d.inFlight) != 0 }

func (d *DMA) IsBusy() bool {
	return len(d.inFlight) != 0 && d.inFlight[0].Insn.Mnemonic != "nop"
}

func (d *DMA) CompleteCount() int     { return d.completeCount }
func (d *DMA) TotalInstructions() int { return d.totalInstructions }
func (d *DMA) BusyCycles() int        { return d.busyCycles }

func (d *DMA) SupportedInstructionTypes() []isa.Class {
	return []isa.Class{isa.DMA}
}
