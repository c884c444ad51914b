package pipeline

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ucb-ee194-tapeout/npu-model/internal/archstate"
	"github.com/ucb-ee194-tapeout/npu-model/internal/isa"
	"github.com/ucb-ee194-tapeout/npu-model/internal/program"
	"github.com/ucb-ee194-tapeout/npu-model/internal/trace"
)

func testArch() *archstate.ArchState {
	return archstate.New(archstate.Config{
		MrfDepth: 4, MrfWidth: 64, WbWidth: 1024,
		NumXRegisters: 8, NumMRegisters: 8, NumWbRegisters: 2,
		MemorySize: 1 << 10, NumFlags: 4,
	})
}

func testProgram(n int) *program.Program {
	insns := make([]isa.Instruction, n)
	for i := range insns {
		insns[i] = isa.Insn("nop", isa.Args{})
	}
	return &program.Program{Name: "nops", Instructions: insns}
}

// tick emulates Core.Tick's speculative NPC advance (Core normally does
// this before ticking Fetch each cycle) so Fetch can be exercised
// standalone without a branch ever overriding it.
func tick(arch *archstate.ArchState, f *Fetch) {
	arch.SetNPC(arch.PC() + 1)
	f.Tick()
}

func TestFetchStallsUntilClaimed(t *testing.T) {
	arch := testArch()
	f := NewFetch(arch, trace.NopSink{})
	f.LoadProgram(testProgram(3))

	tick(arch, f)
	require.True(t, f.Output.IsValid())
	require.False(t, f.IsStalled())

	tick(arch, f)
	require.True(t, f.IsStalled(), "must stall because output was never claimed")

	_, ok := f.Output.Claim()
	require.True(t, ok)

	tick(arch, f)
	require.False(t, f.IsStalled())
}

func TestFetchIsFinishedAfterLastInstructionClaimed(t *testing.T) {
	arch := testArch()
	f := NewFetch(arch, trace.NopSink{})
	f.LoadProgram(testProgram(1))

	require.False(t, f.IsFinished())
	tick(arch, f)
	require.False(t, f.IsFinished())

	f.Output.Claim()
	tick(arch, f)
	require.True(t, f.IsFinished())
}
