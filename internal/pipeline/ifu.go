// Package pipeline implements the Fetch and Decode/Dispatch stages: the
// two in-order stages upstream of the execution units.
package pipeline

import (
	"github.com/ucb-ee194-tapeout/npu-model/internal/archstate"
	"github.com/ucb-ee194-tapeout/npu-model/internal/isa"
	"github.com/ucb-ee194-tapeout/npu-model/internal/program"
	"github.com/ucb-ee194-tapeout/npu-model/internal/stagedata"
	"github.com/ucb-ee194-tapeout/npu-model/internal/trace"
)

// Fetch is the Instruction Fetch Unit: reads the next instruction from
// the loaded program, wraps it in a freshly-id'd Uop, and offers it on
// Output. Stalls (holding its id allocator and PC) whenever Decode
// hasn't claimed the previous cycle's output.
type Fetch struct {
	sink    trace.Sink
	arch    *archstate.ArchState
	program *program.Program

	Output *stagedata.StageData[*isa.Uop]

	cycle   int
	stalled bool
	nextID  uint64
}

// NewFetch constructs a Fetch unit bound to arch and sink. LoadProgram
// must be called before the first Tick.
func NewFetch(arch *archstate.ArchState, sink trace.Sink) *Fetch {
	f := &Fetch{arch: arch, sink: sink}
	f.Reset()
	return f
}

// LoadProgram installs the instruction stream Fetch reads from.
func (f *Fetch) LoadProgram(p *program.Program) {
	f.program = p
}

// Reset empties the output slot, rewinds the PC to 0, and clears the
// stall flag. The id allocator is NOT reset — ids remain unique across
// the whole simulation, even across a mid-run reset.
func (f *Fetch) Reset() {
	f.Output = stagedata.New[*isa.Uop]()
	f.arch.SetPC(0)
	f.stalled = false
}

// IsFinished reports whether every instruction has been fetched and
// the output slot is empty.
func (f *Fetch) IsFinished() bool {
	return f.program.IsFinished(f.arch.PC()) && !f.Output.IsValid()
}

// Tick advances Fetch by one cycle.
func (f *Fetch) Tick() {
	f.cycle++

	if f.Output.ShouldStall() {
		if !f.stalled {
			if uop, ok := f.Output.Peek(); ok {
				f.sink.LogStageEnd(uop.ID, "F", trace.LaneIFU, f.cycle)
			}
		}
		f.stalled = true
		return
	}
	f.stalled = false

	if f.program.IsFinished(f.arch.PC()) {
		return
	}

	insn := f.program.GetInstruction(f.arch.PC())
	f.nextID++
	uop := &isa.Uop{ID: f.nextID, Insn: insn}

	f.sink.LogInsn(uop.ID, insn.Mnemonic)
	f.sink.LogStageStart(uop.ID, "F", trace.LaneIFU, f.cycle)

	f.Output.Prepare(uop)

	f.arch.SetPC(f.arch.NPC())
}

// IsStalled reports whether Fetch is currently holding its output
// because Decode hasn't claimed it.
func (f *Fetch) IsStalled() bool {
	return f.stalled
}
