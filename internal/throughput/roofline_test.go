package throughput

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func refParams() TileParams {
	return TileParams{InputDtypeWidth: 1, OutputDtypeWidth: 2, MT: 64, NT: 16, KT: 32}
}

func TestOutputAndWeightStationaryAgreeOnCyclesAndInstructions(t *testing.T) {
	p := refParams()
	os := Simulate(p, OutputStationary, 816, 16384, 2048)
	ws := Simulate(p, WeightStationary, 816, 16384, 2048)

	require.Equal(t, os.Cycles, ws.Cycles)
	require.Equal(t, os.NumInstructions, ws.NumInstructions)
}

func TestWeightStationaryReloadsInputEveryMTile(t *testing.T) {
	p := refParams()
	ws := Simulate(p, WeightStationary, 2*p.MT, 16, 32)
	// Two M tiles under one (k, n) weight tile: weight loaded once,
	// input loaded once per M tile.
	require.EqualValues(t, 2, ws.NumInstructions)
	require.EqualValues(t, 2*p.MT*p.KT, ws.InputLoadBytes)
	require.EqualValues(t, p.NT*p.KT, ws.WeightLoadBytes)
}

func TestPeakFLOPsAndIdealCycles(t *testing.T) {
	p := refParams()
	require.EqualValues(t, 2*16*32, PeakFLOPsPerCycle(p))

	ideal := IdealCycles(p, 64, 16, 32)
	require.InDelta(t, 64, ideal, 0.01) // 2*64*16*32 FLOPs / (2*16*32) peak FLOPs/cycle = 64
}

func TestEfficiencyClampedToOne(t *testing.T) {
	require.InDelta(t, 1.0, Efficiency(100, 50), 0.001)
	require.InDelta(t, 0.5, Efficiency(50, 100), 0.001)
	require.Equal(t, 0.0, Efficiency(10, 0))
}
