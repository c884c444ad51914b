package program

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ucb-ee194-tapeout/npu-model/internal/isa"
)

func TestProgramFinishedBoundary(t *testing.T) {
	p := &Program{
		Instructions: []isa.Instruction{
			isa.Insn("nop", isa.Args{}),
			isa.Insn("nop", isa.Args{}),
		},
	}

	require.Equal(t, 2, p.Len())
	require.False(t, p.IsFinished(0))
	require.False(t, p.IsFinished(1))
	require.True(t, p.IsFinished(2))
	require.Equal(t, "nop", p.GetInstruction(0).Mnemonic)
}
