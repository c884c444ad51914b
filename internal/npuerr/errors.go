// Package npuerr defines the fatal and non-fatal error taxonomy raised by
// the NPU performance model. All but CycleCapReached are fatal: the
// component that detects them panics with the typed error, and the
// simulation driver recovers at the top level, logs, and aborts.
package npuerr

import "fmt"

// ConfigurationError reports an unknown hardware config, program name, or
// execution-unit type name.
type ConfigurationError struct {
	What string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("npu: configuration error: %s", e.What)
}

// ISADecodeError reports a mnemonic absent from the ISA registry.
type ISADecodeError struct {
	Mnemonic string
}

func (e *ISADecodeError) Error() string {
	return fmt.Sprintf("npu: ISA decode error: unknown mnemonic %q", e.Mnemonic)
}

// ShapeMismatch reports a typed MRF/WB access whose element count disagrees
// with the shape implied by its dtype width.
type ShapeMismatch struct {
	RegFile  string
	Index    int
	Dtype    string
	Want     int
	Got      int
}

func (e *ShapeMismatch) Error() string {
	return fmt.Sprintf("npu: shape mismatch on %s[%d] (%s): want %d elements, got %d",
		e.RegFile, e.Index, e.Dtype, e.Want, e.Got)
}

// MemoryBounds reports a memory read or write that crosses memory_size.
type MemoryBounds struct {
	Base, Len, MemorySize int
	Write                 bool
}

func (e *MemoryBounds) Error() string {
	op := "read"
	if e.Write {
		op = "write"
	}
	return fmt.Sprintf("npu: memory %s out of bounds: base=%d len=%d memory_size=%d",
		op, e.Base, e.Len, e.MemorySize)
}

// FlagInvariant reports an attempt to dispatch a DMA whose flag is already
// set, or any other violation of the flag set/clear protocol.
type FlagInvariant struct {
	Flag int
}

func (e *FlagInvariant) Error() string {
	return fmt.Sprintf("npu: flag invariant violated: flag %d already set", e.Flag)
}

// cycleCapReached is a non-fatal sentinel returned by the simulation driver
// when max_cycles is reached before the core reports IsFinished().
type cycleCapReached struct {
	MaxCycles int
}

func (e *cycleCapReached) Error() string {
	return fmt.Sprintf("npu: cycle cap of %d reached before completion", e.MaxCycles)
}

// NewCycleCapReached constructs the non-fatal CycleCapReached warning.
func NewCycleCapReached(maxCycles int) error {
	return &cycleCapReached{MaxCycles: maxCycles}
}

// IsCycleCapReached reports whether err is the CycleCapReached warning.
func IsCycleCapReached(err error) bool {
	_, ok := err.(*cycleCapReached)
	return ok
}
