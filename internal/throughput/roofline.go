// Package throughput provides an analytical, non-cycle-accurate estimate
// of matmul throughput for a given tiling and dataflow, independent of
// the cycle-accurate core. It answers "how many cycles and bytes would
// this matmul shape cost" without constructing a Core or running a
// program, the way a roofline model bounds an accelerator's achievable
// performance from its tile sizes and dtype widths alone.
package throughput

import "math"

// Dataflow selects which operand stays resident in the systolic array
// across the K-reduction loop.
type Dataflow int

const (
	// OutputStationary iterates M outermost, re-loading the weight tile
	// for every (m, n, k) triple; the output tile stays resident.
	OutputStationary Dataflow = iota
	// WeightStationary iterates K outermost, re-loading the input tile
	// for every (k, n, m) triple; the weight tile stays resident.
	WeightStationary
)

// TileParams is the tiling shape a matmul is decomposed into: MT rows
// of activation per tile, an NT-wide by KT-deep systolic/inner-product
// array, and the byte widths of the input and output dtypes.
type TileParams struct {
	InputDtypeWidth  int
	OutputDtypeWidth int
	MT               int
	NT               int
	KT               int
}

// Stats reports one dataflow's simulated cost for one matmul shape.
type Stats struct {
	Cycles            int64
	NumInstructions   int64
	InputLoadBytes    int64
	WeightLoadBytes   int64
	OutputStoreBytes  int64
}

func ceilDiv(a, b int) int64 {
	return int64(math.Ceil(float64(a) / float64(b)))
}

// Simulate estimates cycles, instruction count, and memory traffic for
// an M x K x K x N matmul tiled per p, under dataflow flow. It models
// only the outer loop-nest shape, not individual cycles: each matmul
// tile issue costs MT cycles (one row streamed per cycle, matching the
// systolic/inner-product EXU latency of mrf_depth cycles), and loads
// happen once per tile visit per the chosen dataflow's loop order.
func Simulate(p TileParams, flow Dataflow, m, n, k int) Stats {
	inputTileBytes := int64(p.InputDtypeWidth * p.MT * p.KT)
	weightTileBytes := int64(p.InputDtypeWidth * p.NT * p.KT)
	outputTileBytes := int64(p.OutputDtypeWidth * p.MT * p.NT)

	mIters := ceilDiv(m, p.MT)
	nIters := ceilDiv(n, p.NT)
	kIters := ceilDiv(k, p.KT)

	switch flow {
	case OutputStationary:
		// for m { for n { for k { load_input(); load_weight(); matmul() } store_output() } }
		nLoopIters := mIters * nIters
		kLoopIters := nLoopIters * kIters
		return Stats{
			NumInstructions:  kLoopIters,
			InputLoadBytes:   kLoopIters * inputTileBytes,
			WeightLoadBytes:  kLoopIters * weightTileBytes,
			Cycles:           kLoopIters * int64(p.MT),
			OutputStoreBytes: nLoopIters * outputTileBytes,
		}
	case WeightStationary:
		// for k { for n { load_weight(); for m { load_input(); matmul(); store_output() } } }
		nLoopIters := kIters * nIters
		mLoopIters := nLoopIters * mIters
		return Stats{
			WeightLoadBytes:  nLoopIters * weightTileBytes,
			InputLoadBytes:   mLoopIters * inputTileBytes,
			NumInstructions:  mLoopIters,
			Cycles:           mLoopIters * int64(p.MT),
			OutputStoreBytes: mLoopIters * outputTileBytes,
		}
	default:
		return Stats{}
	}
}

// PeakFLOPsPerCycle is the array's compute roofline: one multiply-add
// per PE per cycle, two FLOPs per multiply-add, NT*KT PEs.
func PeakFLOPsPerCycle(p TileParams) int64 {
	return 2 * int64(p.NT) * int64(p.KT)
}

// IdealCycles is the lower bound on cycles a perfectly-utilized array
// would need for an M x K x K x N matmul, ignoring memory traffic.
func IdealCycles(p TileParams, m, n, k int) float64 {
	totalFLOPs := 2.0 * float64(m) * float64(n) * float64(k)
	return totalFLOPs / float64(PeakFLOPsPerCycle(p))
}

// Efficiency returns ideal/actual clamped to [0, 1], or 0 if actual is 0.
// Used to compare a simulated byte count or cycle count against its
// roofline-ideal lower bound.
func Efficiency(ideal, actual float64) float64 {
	if actual <= 0 {
		return 0
	}
	eff := ideal / actual
	if eff > 1 {
		return 1
	}
	return eff
}
