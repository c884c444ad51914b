// Package hardware holds the configuration objects that describe one
// buildable NPU core: its ArchState sizing and the set of execution
// units it wires up, along with a small named registry of presets.
package hardware

import (
	"github.com/ucb-ee194-tapeout/npu-model/internal/archstate"
	"github.com/ucb-ee194-tapeout/npu-model/internal/npuerr"
)

// ExecutionUnitKind is a closed enumeration of the buildable EXU kinds,
// replacing the original's config-string-to-class `eval()` lookup with
// a factory keyed on an enum (see internal/core for the factory).
type ExecutionUnitKind int

const (
	Scalar ExecutionUnitKind = iota
	MatrixSystolic
	MatrixInner
	Vector
	DMA
)

// DispatchStrategy selects how the IDU picks among several EXUs that
// support the same instruction class.
type DispatchStrategy int

const (
	RoundRobin DispatchStrategy = iota
	Greedy
	Dummy
)

// ExecutionUnitSpec names one lane of the core: an identifying name
// (used for trace lane labels and stats) and which kind of unit backs
// it.
type ExecutionUnitSpec struct {
	Name string
	Kind ExecutionUnitKind
}

// Config describes one buildable core.
type Config struct {
	Name             string
	FetchWidth       int
	ArchStateConfig  archstate.Config
	ExecutionUnits   []ExecutionUnitSpec
	DispatchStrategy DispatchStrategy
}

// Default is the reference hardware configuration: a single lane of
// each kind, round-robin dispatch, and the ArchState sizing the
// original's `DefaultHardwareConfig` and `scripts/test_archstate.py`
// exercise (mrf_depth=64, mrf_width=64B, wb_width=1024B).
func Default() Config {
	return Config{
		Name:       "default",
		FetchWidth: 1,
		ArchStateConfig: archstate.Config{
			MrfDepth:       64,
			MrfWidth:       64,
			WbWidth:        1024,
			NumXRegisters:  32,
			NumMRegisters:  64,
			NumWbRegisters: 2,
			MemorySize:     1 << 20,
			NumFlags:       16,
		},
		ExecutionUnits: []ExecutionUnitSpec{
			{Name: "Scalar0", Kind: Scalar},
			{Name: "Matrix0", Kind: MatrixSystolic},
			{Name: "Matrix1", Kind: MatrixInner},
			{Name: "Vector0", Kind: Vector},
			{Name: "DMA0", Kind: DMA},
		},
		DispatchStrategy: RoundRobin,
	}
}

// registry is the set of named presets the driver can select by name.
var registry = map[string]func() Config{
	"default": Default,
}

// Lookup resolves a hardware configuration by name.
func Lookup(name string) (Config, error) {
	ctor, ok := registry[name]
	if !ok {
		return Config{}, &npuerr.ConfigurationError{What: "unknown hardware config: " + name}
	}
	return ctor(), nil
}

// Names lists every registered hardware configuration name.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	return names
}
