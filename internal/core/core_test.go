package core

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ucb-ee194-tapeout/npu-model/internal/archstate"
	"github.com/ucb-ee194-tapeout/npu-model/internal/config/hardware"
	cfgisa "github.com/ucb-ee194-tapeout/npu-model/internal/config/isa"
	"github.com/ucb-ee194-tapeout/npu-model/internal/isa"
	"github.com/ucb-ee194-tapeout/npu-model/internal/program"
	"github.com/ucb-ee194-tapeout/npu-model/internal/trace"
)

func smallConfig() hardware.Config {
	return hardware.Config{
		Name:       "test",
		FetchWidth: 1,
		ArchStateConfig: archstate.Config{
			MrfDepth:       4,
			MrfWidth:       64,
			WbWidth:        1024,
			NumXRegisters:  16,
			NumMRegisters:  16,
			NumWbRegisters: 2,
			MemorySize:     1 << 12,
			NumFlags:       8,
		},
		ExecutionUnits: []hardware.ExecutionUnitSpec{
			{Name: "Scalar0", Kind: hardware.Scalar},
			{Name: "Matrix0", Kind: hardware.MatrixSystolic},
			{Name: "Matrix1", Kind: hardware.MatrixInner},
			{Name: "Vector0", Kind: hardware.Vector},
			{Name: "DMA0", Kind: hardware.DMA},
		},
		DispatchStrategy: hardware.RoundRobin,
	}
}

func newTestCore(t *testing.T) *Core {
	t.Helper()
	c, err := New(smallConfig(), cfgisa.Default(), trace.NopSink{})
	require.NoError(t, err)
	return c
}

func runToCompletion(t *testing.T, c *Core, maxCycles int) {
	t.Helper()
	for i := 0; i < maxCycles; i++ {
		if c.IsFinished() {
			c.Stop()
			return
		}
		c.Tick()
	}
	t.Fatalf("program did not finish within %d cycles", maxCycles)
}

// S1: a straight-line sequence of scalar instructions completes and
// leaves the architected registers in the expected final state.
func TestStraightLineProgramCompletes(t *testing.T) {
	c := newTestCore(t)
	c.LoadProgram(&program.Program{
		Name: "straight",
		Instructions: []isa.Instruction{
			isa.Insn("addi", isa.Args{"rd": 1, "rs1": 0, "imm": 5}),
			isa.Insn("addi", isa.Args{"rd": 2, "rs1": 1, "imm": 3}),
			isa.Insn("add", isa.Args{"rd": 3, "rs1": 1, "rs2": 2}),
			isa.Insn("nop", isa.Args{}),
		},
	})

	runToCompletion(t, c, 100)

	require.EqualValues(t, 5, c.Arch.ReadXRF(1))
	require.EqualValues(t, 8, c.Arch.ReadXRF(2))
	require.EqualValues(t, 13, c.Arch.ReadXRF(3))
}

// S5: three back-to-back matmuls targeting the same inner-product unit
// must serialize — IDU backpressure holds each one until the prior
// instruction's mrf_depth-cycle latency has fully elapsed.
func TestMatmulBackpressureSerializes(t *testing.T) {
	c := newTestCore(t)
	c.LoadProgram(&program.Program{
		Name: "matmul_backpressure",
		Instructions: []isa.Instruction{
			isa.Insn("matmul.mxu1", isa.Args{"rd": 0, "rs1": 0, "rs2": 0}),
			isa.Insn("matmul.mxu1", isa.Args{"rd": 0, "rs1": 0, "rs2": 0}),
			isa.Insn("matmul.mxu1", isa.Args{"rd": 0, "rs1": 0, "rs2": 0}),
		},
	})

	runToCompletion(t, c, 100)

	stats := c.Stats()
	var matrix1 EXUStats
	for _, e := range stats.EXUs {
		if e.Name == "Matrix1" {
			matrix1 = e
		}
	}
	require.Equal(t, 3, matrix1.TotalInstructions)
	// Each matmul occupies the unit for mrf_depth=4 cycles; three
	// serialized matmuls must account for at least 3*4 busy cycles.
	require.GreaterOrEqual(t, matrix1.BusyCycles, 12)
	require.InDelta(t, float64(matrix1.BusyCycles)/float64(stats.Cycle), matrix1.Utilization, 0.0001)
	require.Greater(t, matrix1.Utilization, 0.0)
	require.LessOrEqual(t, matrix1.Utilization, 1.0)
}

// ArchState writes must surface through the trace sink as arch-value
// events so a downstream viewer can render register counters; Core
// wires ArchState's change hook to the sink at construction.
func TestArchValueChangesReachTraceSink(t *testing.T) {
	sink := &recordingSink{NopSink: trace.NopSink{}}
	c, err := New(smallConfig(), cfgisa.Default(), sink)
	require.NoError(t, err)
	c.LoadProgram(&program.Program{
		Name: "record",
		Instructions: []isa.Instruction{
			isa.Insn("addi", isa.Args{"rd": 1, "rs1": 0, "imm": 9}),
			isa.Insn("nop", isa.Args{}),
		},
	})

	runToCompletion(t, c, 100)

	require.Contains(t, sink.values, archValue{regFile: "xrf", index: 1, value: 9})
}

type archValue struct {
	regFile string
	index   int
	value   float64
}

type recordingSink struct {
	trace.NopSink
	values []archValue
}

func (r *recordingSink) LogArchValue(regFile string, index int, value float64) {
	r.values = append(r.values, archValue{regFile, index, value})
}

// S6: a DMA load followed by a wait and a store round-trips memory
// through the MRF.
func TestDMALoadWaitStoreRoundTrip(t *testing.T) {
	c := newTestCore(t)
	payload := make([]byte, 16)
	for i := range payload {
		payload[i] = byte(i + 1)
	}
	c.LoadProgram(&program.Program{
		Name: "dma_roundtrip",
		Instructions: []isa.Instruction{
			isa.Insn("dma.load.m", isa.Args{"rd": 0, "base": 0, "size": 16, "flag": 0}),
			isa.Insn("dma.wait", isa.Args{"flag": 0}),
			isa.Insn("dma.store.m", isa.Args{"rs1": 0, "base": 256, "size": 16, "flag": 1}),
			isa.Insn("dma.wait", isa.Args{"flag": 1}),
		},
		MemoryRegions: []program.MemoryRegion{{Base: 0, Data: payload}},
	})

	runToCompletion(t, c, 200)

	got, err := c.Arch.ReadMemory(256, 16)
	require.NoError(t, err)
	require.Equal(t, payload, got)
}

// S2: two DMA loads share the same completion flag; the dma.wait between
// them holds the second load in Decode until the first has retired and
// cleared the flag, so the second dispatch never finds the flag set.
func TestDMASameFlagWaitOrdering(t *testing.T) {
	c := newTestCore(t)
	c.LoadProgram(&program.Program{
		Name: "dma_same_flag",
		Instructions: []isa.Instruction{
			isa.Insn("dma.load.m", isa.Args{"rd": 0, "base": 0, "size": 8, "flag": 0}),
			isa.Insn("dma.wait", isa.Args{"flag": 0}),
			isa.Insn("dma.load.m", isa.Args{"rd": 1, "base": 8, "size": 8, "flag": 0}),
			isa.Insn("dma.wait", isa.Args{"flag": 0}),
		},
		MemoryRegions: []program.MemoryRegion{
			{Base: 0, Data: []byte{1, 2, 3, 4, 5, 6, 7, 8}},
			{Base: 8, Data: []byte{9, 10, 11, 12, 13, 14, 15, 16}},
		},
	})

	runToCompletion(t, c, 200)
	require.True(t, c.IsFinished())
}
