package isa

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ucb-ee194-tapeout/npu-model/internal/archstate"
	coreisa "github.com/ucb-ee194-tapeout/npu-model/internal/isa"
)

func testArch() *archstate.ArchState {
	return archstate.New(archstate.Config{
		MrfDepth:       4,
		MrfWidth:       64,
		WbWidth:        1024,
		NumXRegisters:  16,
		NumMRegisters:  16,
		NumWbRegisters: 2,
		MemorySize:     1 << 12,
		NumFlags:       4,
	})
}

func lookup(t *testing.T, r *coreisa.Registry, mnemonic string) coreisa.Operation {
	t.Helper()
	op, err := r.Lookup(mnemonic)
	require.NoError(t, err)
	return op
}

func TestBranchNPCFormulaTaken(t *testing.T) {
	r := Default()
	s := testArch()
	s.SetPC(10)

	blt := lookup(t, r, "blt")
	blt.Effect(s, coreisa.Args{"rs1": 0, "rs2": 1, "imm": 5})
	require.NoError(t, s.WriteXRF(1, 1))
	blt.Effect(s, coreisa.Args{"rs1": 0, "rs2": 1, "imm": 5})
	require.EqualValues(t, 10+5-PipelineLatency, s.NPC())
}

func TestBranchNotTakenLeavesNPCAlone(t *testing.T) {
	r := Default()
	s := testArch()
	s.SetPC(10)
	s.SetNPC(11)

	blt := lookup(t, r, "blt")
	blt.Effect(s, coreisa.Args{"rs1": 0, "rs2": 0, "imm": 5})
	require.EqualValues(t, 11, s.NPC(), "not-taken branch must not touch NPC")
}

func TestCorrectedPredicates(t *testing.T) {
	r := Default()

	cases := []struct {
		mnemonic   string
		rs1, rs2   uint64
		wantTaken  bool
	}{
		{"bge", 5, 3, true},
		{"bge", 3, 5, false},
		{"bltu", 3, 5, true},
		{"bltu", ^uint64(0), 1, false}, // unsigned: huge value is not < 1
		{"bgeu", ^uint64(0), 1, true},  // unsigned: huge value is >= 1
		{"bgeu", 1, 5, false},
	}
	for _, c := range cases {
		s := testArch()
		s.SetPC(100)
		require.NoError(t, s.WriteXRF(1, c.rs1))
		require.NoError(t, s.WriteXRF(2, c.rs2))
		op := lookup(t, r, c.mnemonic)
		op.Effect(s, coreisa.Args{"rs1": 1, "rs2": 2, "imm": 0})
		taken := s.NPC() == 100-PipelineLatency
		require.Equal(t, c.wantTaken, taken, "%s(%d,%d)", c.mnemonic, c.rs1, c.rs2)
	}
}

func TestMatmulEffectProducesF32(t *testing.T) {
	r := Default()
	s := testArch()

	rows, cols := s.MRFShape(archstate.BF16)
	activation := make([]float32, rows*cols)
	for i := range activation {
		activation[i] = 1
	}
	require.NoError(t, s.WriteMRF(archstate.BF16, 0, activation))

	wrows, wcols := s.WBShape(archstate.BF16)
	weight := make([]float32, wrows*wcols)
	for i := range weight {
		weight[i] = 2
	}
	require.NoError(t, s.WriteWB(archstate.BF16, 0, weight))

	op := lookup(t, r, "matmul")
	op.Effect(s, coreisa.Args{"rd": 0, "rs1": 0, "rs2": 0})

	out, err := s.ReadMRF(archstate.F32, 0)
	require.NoError(t, err)
	for _, v := range out {
		require.EqualValues(t, float32(cols)*2, v)
	}
}

func TestDMALoadStoreRoundTrip(t *testing.T) {
	r := Default()
	s := testArch()

	payload := make([]byte, 32)
	for i := range payload {
		payload[i] = byte(i + 1)
	}
	require.NoError(t, s.WriteMemory(0, payload))

	load := lookup(t, r, "dma.load.m")
	load.Effect(s, coreisa.Args{"rd": 0, "base": 0, "size": 32})

	got, err := s.ReadMRF(archstate.U8, 0)
	require.NoError(t, err)
	require.EqualValues(t, payload[0], got[0])

	store := lookup(t, r, "dma.store.m")
	store.Effect(s, coreisa.Args{"rs1": 0, "base": 64, "size": 32})

	roundtrip, err := s.ReadMemory(64, 32)
	require.NoError(t, err)
	require.Equal(t, payload, roundtrip)
}

func TestVectorBroadcastAndBinary(t *testing.T) {
	r := Default()
	s := testArch()

	broadcast := lookup(t, r, "vlibroadcast")
	broadcast.Effect(s, coreisa.Args{"rd": 0, "imm": 2.5})
	got, err := s.ReadMRF(archstate.BF16, 0)
	require.NoError(t, err)
	for _, v := range got {
		require.InDelta(t, 2.5, v, 0.02)
	}

	broadcast.Effect(s, coreisa.Args{"rd": 1, "imm": 1.5})
	add := lookup(t, r, "vadd")
	add.Effect(s, coreisa.Args{"vrd": 2, "vs1": 0, "vs2": 1})
	sum, err := s.ReadMRF(archstate.BF16, 2)
	require.NoError(t, err)
	for _, v := range sum {
		require.InDelta(t, 4.0, v, 0.05)
	}
}
