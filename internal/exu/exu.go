// Package exu implements the execution units: Scalar, the two matrix
// multiplier variants (systolic and inner-product), Vector, and DMA.
// Each claims (or peeks) Uops from its Decode-owned input slot, models
// a latency, and applies the Uop's architectural effect at completion.
package exu

import (
	"github.com/ucb-ee194-tapeout/npu-model/internal/isa"
	"github.com/ucb-ee194-tapeout/npu-model/internal/stagedata"
)

// ExecutionUnit is the shared contract every functional unit
// implements. Decode owns each unit's input StageData and passes it
// into Tick every cycle; the unit claims or peeks it depending on
// whether it needs to hold backpressure across a multi-cycle latency.
type ExecutionUnit interface {
	Name() string
	Reset()
	Tick(input *stagedata.StageData[*isa.Uop])
	FlushCompletions()
	HasInFlight() bool
	IsBusy() bool
	CompleteCount() int
	TotalInstructions() int
	BusyCycles() int
	SupportedInstructionTypes() []isa.Class
}
