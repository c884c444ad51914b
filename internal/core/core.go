// Package core wires ArchState, the ISA registry, Fetch, Decode, and
// the execution units together and drives the per-cycle tick loop.
package core

import (
	"sync"

	"github.com/ucb-ee194-tapeout/npu-model/internal/archstate"
	"github.com/ucb-ee194-tapeout/npu-model/internal/config/hardware"
	"github.com/ucb-ee194-tapeout/npu-model/internal/exu"
	"github.com/ucb-ee194-tapeout/npu-model/internal/isa"
	"github.com/ucb-ee194-tapeout/npu-model/internal/npuerr"
	"github.com/ucb-ee194-tapeout/npu-model/internal/pipeline"
	"github.com/ucb-ee194-tapeout/npu-model/internal/program"
	"github.com/ucb-ee194-tapeout/npu-model/internal/trace"
)

// Stats is a point-in-time snapshot of per-EXU and aggregate execution
// counters, safe to read concurrently with the tick loop via Core.Stats.
type Stats struct {
	Cycle          int
	TotalCompleted int
	EXUs           []EXUStats
}

// EXUStats reports one execution unit's counters as of the snapshot.
type EXUStats struct {
	Name              string
	TotalInstructions int
	BusyCycles        int
	Utilization       float64 // BusyCycles / elapsed cycles, in [0,1]
}

// Core orchestrates one NPU pipeline: ArchState plus Fetch, Decode, and
// every execution unit, ticked once per cycle in reverse pipeline
// order (EXUs, then Decode, then Fetch) so a Uop advances at most one
// stage per cycle.
type Core struct {
	Arch *archstate.ArchState
	sink trace.Sink

	exus  []exu.ExecutionUnit
	ifu   *pipeline.Fetch
	idu   *pipeline.Decode

	cycle          int
	totalCompleted int

	// mu guards only the published snapshot below, not the tick path:
	// the simulation loop stays single-threaded and lock-free, but a
	// concurrent caller (e.g. a live dashboard polling Stats while the
	// simulation runs on another goroutine) can safely read the last
	// published snapshot without racing the hot path.
	mu       sync.RWMutex
	snapshot Stats
}

// New builds a Core from cfg's ArchState sizing and execution unit
// list, wiring every EXU's declared instruction classes into Decode's
// routing table.
func New(cfg hardware.Config, registry *isa.Registry, sink trace.Sink) (*Core, error) {
	if sink == nil {
		sink = trace.NopSink{}
	}

	arch := archstate.New(cfg.ArchStateConfig)
	arch.SetChangeHook(func(regFile string, index int, value float64) {
		sink.LogArchValue(regFile, index, value)
	})

	exus := make([]exu.ExecutionUnit, 0, len(cfg.ExecutionUnits))
	for i, spec := range cfg.ExecutionUnits {
		lane := trace.LaneEXUBase + i
		unit, err := buildEXU(spec, lane, arch, sink, cfg.ArchStateConfig.MrfDepth)
		if err != nil {
			return nil, err
		}
		exus = append(exus, unit)
	}

	strategy, err := translateStrategy(cfg.DispatchStrategy)
	if err != nil {
		return nil, err
	}

	c := &Core{
		Arch: arch,
		sink: sink,
		exus: exus,
	}
	c.ifu = pipeline.NewFetch(arch, sink)
	c.idu = pipeline.NewDecode(arch, sink, registry, strategy, exus)
	c.Reset()
	return c, nil
}

func buildEXU(spec hardware.ExecutionUnitSpec, lane int, arch *archstate.ArchState, sink trace.Sink, mrfDepth int) (exu.ExecutionUnit, error) {
	switch spec.Kind {
	case hardware.Scalar:
		return exu.NewScalar(spec.Name, lane, arch, sink), nil
	case hardware.MatrixSystolic:
		return exu.NewMatrixSystolic(spec.Name, lane, arch, sink, mrfDepth), nil
	case hardware.MatrixInner:
		return exu.NewMatrixInner(spec.Name, lane, arch, sink, mrfDepth), nil
	case hardware.Vector:
		return exu.NewVector(spec.Name, lane, arch, sink), nil
	case hardware.DMA:
		return exu.NewDMA(spec.Name, lane, arch, sink), nil
	default:
		return nil, &npuerr.ConfigurationError{What: "unknown execution unit kind for " + spec.Name}
	}
}

func translateStrategy(s hardware.DispatchStrategy) (pipeline.DispatchStrategy, error) {
	switch s {
	case hardware.RoundRobin:
		return pipeline.RoundRobin, nil
	case hardware.Greedy:
		return pipeline.Greedy, nil
	case hardware.Dummy:
		return pipeline.Dummy, nil
	default:
		return 0, &npuerr.ConfigurationError{What: "unknown dispatch strategy"}
	}
}

// LoadProgram installs p into Fetch and preloads its memory regions.
func (c *Core) LoadProgram(p *program.Program) {
	c.ifu.LoadProgram(p)
	for _, region := range p.MemoryRegions {
		if err := c.Arch.WriteMemory(region.Base, region.Data); err != nil {
			panic(err)
		}
	}
}

// Reset rewinds ArchState, Fetch, Decode, and every EXU to their
// initial state.
func (c *Core) Reset() {
	c.Arch.Reset()
	c.ifu.Reset()
	c.idu.Reset()
	for _, e := range c.exus {
		e.Reset()
	}
	c.totalCompleted = 0
	c.cycle = 0
}

// Tick executes one cycle: advance npc speculatively, tick every EXU
// (claiming from Decode), tick Decode (claiming from Fetch), tick
// Fetch, then publish an updated stats snapshot.
func (c *Core) Tick() {
	c.cycle++
	c.sink.LogCycle(1)

	c.Arch.SetNPC(c.Arch.PC() + 1)

	for _, e := range c.exus {
		e.Tick(c.idu.Outputs[e])
		c.totalCompleted += e.CompleteCount()
	}

	c.idu.Tick(c.ifu.Output)
	c.ifu.Tick()

	c.publishSnapshot()
}

// IsFinished reports whether Fetch is finished, Decode is idle, and no
// EXU has an in-flight Uop.
func (c *Core) IsFinished() bool {
	if !c.ifu.IsFinished() {
		return false
	}
	if !c.idu.IsFinished() {
		return false
	}
	for _, e := range c.exus {
		if e.HasInFlight() {
			return false
		}
	}
	return true
}

// Stop flushes any deferred retire logging still pending in every EXU.
// Call once after the tick loop ends.
func (c *Core) Stop() {
	for _, e := range c.exus {
		e.FlushCompletions()
	}
}

func (c *Core) publishSnapshot() {
	stats := Stats{
		Cycle:          c.cycle,
		TotalCompleted: c.totalCompleted,
		EXUs:           make([]EXUStats, len(c.exus)),
	}
	for i, e := range c.exus {
		busy := e.BusyCycles()
		utilization := 0.0
		if c.cycle > 0 {
			utilization = float64(busy) / float64(c.cycle)
		}
		stats.EXUs[i] = EXUStats{
			Name:              e.Name(),
			TotalInstructions: e.TotalInstructions(),
			BusyCycles:        busy,
			Utilization:       utilization,
		}
	}
	c.mu.Lock()
	c.snapshot = stats
	c.mu.Unlock()
}

// Stats returns the most recently published execution snapshot. Safe
// to call from a different goroutine than the one driving Tick.
func (c *Core) Stats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snapshot
}
