// Package simulation drives a Core to completion: load a program, tick
// until finished or a cycle cap is hit, and report the final stats.
package simulation

import (
	"github.com/sirupsen/logrus"

	"github.com/ucb-ee194-tapeout/npu-model/internal/config/hardware"
	coreisa "github.com/ucb-ee194-tapeout/npu-model/internal/isa"
	"github.com/ucb-ee194-tapeout/npu-model/internal/npuerr"
	"github.com/ucb-ee194-tapeout/npu-model/internal/program"
	"github.com/ucb-ee194-tapeout/npu-model/internal/trace"

	npucore "github.com/ucb-ee194-tapeout/npu-model/internal/core"
)

// Simulation owns one Core and the program it runs, mirroring the
// original's Simulation driver: construct once, call Run, inspect the
// returned report.
type Simulation struct {
	Core *npucore.Core
	log  *logrus.Entry
}

// Report summarizes one completed (or capped) run.
type Report struct {
	Cycles         int
	TotalCompleted int
	EXUs           []npucore.EXUStats
	Finished       bool
	IPC            float64 // TotalCompleted / Cycles
}

// New builds a Simulation from a hardware config, the populated ISA
// registry, and a trace sink (pass trace.NopSink{} to disable tracing).
func New(cfg hardware.Config, registry *coreisa.Registry, sink trace.Sink, log *logrus.Entry) (*Simulation, error) {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	c, err := npucore.New(cfg, registry, sink)
	if err != nil {
		return nil, err
	}
	return &Simulation{Core: c, log: log}, nil
}

// LoadProgram installs p onto the underlying Core.
func (s *Simulation) LoadProgram(p *program.Program) {
	s.log.WithField("program", p.Name).Info("loading program")
	s.Core.LoadProgram(p)
}

// Run ticks the Core until IsFinished or maxCycles is reached, then
// flushes any deferred retire logging and returns a Report. Reaching
// maxCycles without finishing is reported as a non-fatal
// CycleCapReached error alongside the (incomplete) Report; every other
// error surfaces as a panic from the Core, which Run does not recover.
func (s *Simulation) Run(maxCycles int) (Report, error) {
	cycles := 0
	for !s.Core.IsFinished() {
		if cycles >= maxCycles {
			s.Core.Stop()
			s.log.WithField("max_cycles", maxCycles).Warn("cycle cap reached before program finished")
			return s.report(false), npuerr.NewCycleCapReached(maxCycles)
		}
		s.Core.Tick()
		cycles++
	}
	s.Core.Stop()
	s.log.WithField("cycles", cycles).Info("simulation finished")
	return s.report(true), nil
}

func (s *Simulation) report(finished bool) Report {
	stats := s.Core.Stats()
	ipc := 0.0
	if stats.Cycle > 0 {
		ipc = float64(stats.TotalCompleted) / float64(stats.Cycle)
	}
	return Report{
		Cycles:         stats.Cycle,
		TotalCompleted: stats.TotalCompleted,
		EXUs:           stats.EXUs,
		Finished:       finished,
		IPC:            ipc,
	}
}
