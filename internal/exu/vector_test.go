package exu

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ucb-ee194-tapeout/npu-model/internal/archstate"
	"github.com/ucb-ee194-tapeout/npu-model/internal/isa"
	"github.com/ucb-ee194-tapeout/npu-model/internal/stagedata"
	"github.com/ucb-ee194-tapeout/npu-model/internal/trace"
)

func TestVectorOneCycleLatency(t *testing.T) {
	arch := testArch()
	v := NewVector("Vector0", trace.LaneEXUBase, arch, trace.NopSink{})

	in := stagedata.New[*isa.Uop]()
	fired := false
	in.Prepare(&isa.Uop{
		ID:   1,
		Insn: isa.Insn("vadd", isa.Args{}),
		Effect: func(*archstate.ArchState, isa.Args) {
			fired = true
		},
	})

	v.Tick(in)
	require.True(t, fired)
	require.Equal(t, 1, v.CompleteCount())
	require.False(t, in.IsValid())

	v.Tick(in)
	require.Equal(t, 0, v.CompleteCount())
	require.False(t, v.IsBusy())
}
