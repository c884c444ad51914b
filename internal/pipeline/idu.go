package pipeline

import (
	"github.com/ucb-ee194-tapeout/npu-model/internal/archstate"
	"github.com/ucb-ee194-tapeout/npu-model/internal/exu"
	"github.com/ucb-ee194-tapeout/npu-model/internal/isa"
	"github.com/ucb-ee194-tapeout/npu-model/internal/npuerr"
	"github.com/ucb-ee194-tapeout/npu-model/internal/stagedata"
	"github.com/ucb-ee194-tapeout/npu-model/internal/trace"
)

// DispatchStrategy selects which of several class-compatible EXUs a
// Uop is routed to.
type DispatchStrategy int

const (
	RoundRobin DispatchStrategy = iota
	Greedy
	Dummy
)

// Decode is the Instruction Decode/Dispatch Unit: claims a Uop from
// Fetch, observes its pre-dispatch delay, routes it to a
// class-compatible execution unit under backpressure, and consumes
// BARRIER Uops itself without ever handing them to an EXU.
type Decode struct {
	arch     *archstate.ArchState
	sink     trace.Sink
	registry *isa.Registry
	strategy DispatchStrategy

	exus    []exu.ExecutionUnit
	exuMap  map[isa.Class][]exu.ExecutionUnit
	Outputs map[exu.ExecutionUnit]*stagedata.StageData[*isa.Uop]

	current *isa.Uop
	cycle   int
	stalled bool
}

// NewDecode constructs a Decode unit wired to exus (in their fixed
// construction order, which also determines round-robin rotation and
// trace lane assignment).
func NewDecode(arch *archstate.ArchState, sink trace.Sink, registry *isa.Registry, strategy DispatchStrategy, exus []exu.ExecutionUnit) *Decode {
	d := &Decode{arch: arch, sink: sink, registry: registry, strategy: strategy, exus: exus}
	d.exuMap = make(map[isa.Class][]exu.ExecutionUnit)
	for _, e := range exus {
		for _, t := range e.SupportedInstructionTypes() {
			d.exuMap[t] = append(d.exuMap[t], e)
		}
	}
	d.Reset()
	return d
}

// Reset empties every per-EXU output slot and clears the in-progress
// Uop.
func (d *Decode) Reset() {
	d.Outputs = make(map[exu.ExecutionUnit]*stagedata.StageData[*isa.Uop])
	for _, e := range d.exus {
		d.Outputs[e] = stagedata.New[*isa.Uop]()
	}
	d.current = nil
	d.stalled = false
}

// IsFinished reports whether Decode has no in-progress Uop and every
// per-EXU output slot is empty.
func (d *Decode) IsFinished() bool {
	if d.current != nil {
		return false
	}
	for _, out := range d.Outputs {
		if out.IsValid() {
			return false
		}
	}
	return true
}

// IsStalled reports whether Decode is currently stalled.
func (d *Decode) IsStalled() bool { return d.stalled }

// Tick advances Decode by one cycle, claiming from fetchOutput when it
// has no in-progress Uop.
func (d *Decode) Tick(fetchOutput *stagedata.StageData[*isa.Uop]) {
	d.cycle++

	if d.current != nil {
		uop := d.current
		if uop.DispatchDelayRemaining > 0 {
			uop.DispatchDelayRemaining--
			return
		}
		if d.checkBackpressure(uop) {
			return
		}
		d.dispatch(uop)
		d.stalled = false
		return
	}

	uop, ok := fetchOutput.Claim()
	if !ok {
		return
	}

	op, err := d.registry.Lookup(uop.Insn.Mnemonic)
	if err != nil {
		panic(err)
	}
	uop.Effect = op.Effect

	d.sink.LogStageEnd(uop.ID, "F", trace.LaneIFU, d.cycle)
	d.sink.LogStageStart(uop.ID, "D", trace.LaneIDU, d.cycle)

	uop.DispatchDelayRemaining = uop.Insn.Delay
	d.current = uop

	if uop.DispatchDelayRemaining > 0 {
		uop.DispatchDelayRemaining--
		d.stalled = true
		return
	}
	if d.checkBackpressure(uop) {
		return
	}
	d.dispatch(uop)
}

func (d *Decode) classOf(uop *isa.Uop) isa.Class {
	op, err := d.registry.Lookup(uop.Insn.Mnemonic)
	if err != nil {
		panic(err)
	}
	return op.Class
}

func (d *Decode) checkBackpressure(uop *isa.Uop) bool {
	class := d.classOf(uop)

	if class == isa.Barrier {
		set, err := d.arch.CheckFlag(uop.Insn.Args.IntArg("flag"))
		if err != nil {
			panic(err)
		}
		d.stalled = set
		return set
	}

	target := d.exuMap[class][0]
	if d.Outputs[target].ShouldStall() {
		d.stalled = true
		return true
	}
	d.stalled = false
	return false
}

func (d *Decode) dispatch(uop *isa.Uop) {
	class := d.classOf(uop)

	if class == isa.Barrier {
		d.sink.LogStageEnd(uop.ID, "D", trace.LaneIDU, d.cycle+1)
		d.current = nil
		return
	}

	target := d.chooseTargetEXU(class)
	d.Outputs[target].Prepare(uop)

	if class == isa.DMA {
		flag := uop.Insn.Args.IntArg("flag")
		set, err := d.arch.CheckFlag(flag)
		if err != nil {
			panic(err)
		}
		if set {
			panic(&npuerr.FlagInvariant{Flag: flag})
		}
		if err := d.arch.SetFlag(flag); err != nil {
			panic(err)
		}
	}
	d.current = nil
}

func (d *Decode) chooseTargetEXU(class isa.Class) exu.ExecutionUnit {
	candidates := d.exuMap[class]
	switch d.strategy {
	case RoundRobin:
		return candidates[d.cycle%len(candidates)]
	case Greedy:
		for _, e := range candidates {
			if !e.IsBusy() {
				return e
			}
		}
		return candidates[0]
	case Dummy:
		return candidates[0]
	default:
		panic(&npuerr.ConfigurationError{What: "invalid dispatch strategy"})
	}
}
