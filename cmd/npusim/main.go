// Command npusim drives the NPU performance model from the command
// line: select a hardware configuration and a program, run it to
// completion (or a cycle cap), and optionally emit a Chrome Trace Event
// JSON file.
package main

import (
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/ucb-ee194-tapeout/npu-model/internal/config/hardware"
	coreisa "github.com/ucb-ee194-tapeout/npu-model/internal/config/isa"
	"github.com/ucb-ee194-tapeout/npu-model/internal/config/programs"
	"github.com/ucb-ee194-tapeout/npu-model/internal/npuerr"
	"github.com/ucb-ee194-tapeout/npu-model/internal/simulation"
	"github.com/ucb-ee194-tapeout/npu-model/internal/trace"
)

var log = logrus.New()

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var verbose bool

	root := &cobra.Command{
		Use:   "npusim",
		Short: "Cycle-accurate NPU performance model simulator",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if verbose {
				log.SetLevel(logrus.DebugLevel)
			}
		},
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(newRunCmd(), newTraceCmd(), newListConfigsCmd(), newListProgramsCmd())
	return root
}

// runFlags are the flags shared by run and trace: which config and
// program to simulate, how long to let it run, and where to write an
// architectural-state checkpoint.
type runFlags struct {
	hardwareConfig string
	programName    string
	maxCycles      int
	checkpoint     string
}

func (f *runFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.hardwareConfig, "hardware-config", "default", "hardware configuration name")
	cmd.Flags().StringVarP(&f.programName, "program", "p", "addi", "program name")
	cmd.Flags().IntVar(&f.maxCycles, "max-cycles", 10000, "maximum cycles to simulate")
	cmd.Flags().StringVar(&f.checkpoint, "checkpoint", "", "write a binary architectural state snapshot to this path after the run")
}

// runSimulation resolves the named config/program, builds sink (the
// caller decides whether that's a NopSink or a ChromeTraceSink), runs
// to completion or the cycle cap, prints the report, and writes a
// checkpoint if requested. Any fatal npuerr panic raised by the core
// is recovered into a returned error rather than a crash dump.
func runSimulation(f runFlags, entry *logrus.Entry, sink trace.Sink) (err error) {
	defer func() {
		if r := recover(); r != nil {
			if fatalErr, ok := r.(error); ok {
				entry.WithError(fatalErr).Error("simulation aborted")
				err = fatalErr
				return
			}
			entry.Errorf("simulation aborted: %v", r)
			err = fmt.Errorf("npu: simulation panic: %v", r)
		}
	}()

	cfg, cfgErr := hardware.Lookup(f.hardwareConfig)
	if cfgErr != nil {
		return cfgErr
	}
	prog, progErr := programs.Lookup(f.programName)
	if progErr != nil {
		return progErr
	}

	sim, simErr := simulation.New(cfg, coreisa.Default(), sink, entry)
	if simErr != nil {
		return simErr
	}
	sim.LoadProgram(prog)

	report, runErr := sim.Run(f.maxCycles)
	printReport(report)

	if f.checkpoint != "" {
		arch := sim.Core.Arch
		buf := make([]byte, arch.SerializeSize())
		if serErr := arch.Serialize(buf); serErr != nil {
			return serErr
		}
		if writeErr := os.WriteFile(f.checkpoint, buf, 0o644); writeErr != nil {
			return writeErr
		}
		entry.WithField("checkpoint", f.checkpoint).Info("wrote architectural state snapshot")
	}

	if runErr != nil {
		if npuerr.IsCycleCapReached(runErr) {
			entry.Warn(runErr.Error())
			return nil
		}
		return runErr
	}
	return nil
}

func newRunCmd() *cobra.Command {
	var f runFlags

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a program to completion and report execution statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			entry := log.WithField("run_id", uuid.New().String())
			return runSimulation(f, entry, trace.NopSink{})
		},
	}
	f.register(cmd)
	return cmd
}

// newTraceCmd is identical to run except it always emits a Chrome Trace
// Event JSON file alongside the statistics report.
func newTraceCmd() *cobra.Command {
	var (
		f      runFlags
		output string
	)

	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Run a program and emit a Chrome Trace Event JSON file",
		RunE: func(cmd *cobra.Command, args []string) error {
			entry := log.WithField("run_id", uuid.New().String())

			cfg, cfgErr := hardware.Lookup(f.hardwareConfig)
			if cfgErr != nil {
				return cfgErr
			}
			laneNames := map[int]string{trace.LaneIFU: "IFU", trace.LaneIDU: "IDU"}
			for i, spec := range cfg.ExecutionUnits {
				laneNames[trace.LaneEXUBase+i] = spec.Name
			}
			sink, sinkErr := trace.NewChromeTraceSink(output, cfg.Name, laneNames)
			if sinkErr != nil {
				return sinkErr
			}
			defer sink.Close()

			return runSimulation(f, entry, sink)
		},
	}
	f.register(cmd)
	cmd.Flags().StringVarP(&output, "output", "o", "trace.json", "trace output file")
	return cmd
}

func newListConfigsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list-configs",
		Short: "List available hardware configuration names",
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, name := range hardware.Names() {
				fmt.Println(name)
			}
			return nil
		},
	}
}

func newListProgramsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list-programs",
		Short: "List available program names",
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, name := range programs.Names() {
				fmt.Println(name)
			}
			return nil
		},
	}
}

func printReport(r simulation.Report) {
	fmt.Printf("cycles=%d completed=%d finished=%v ipc=%.3f\n", r.Cycles, r.TotalCompleted, r.Finished, r.IPC)
	for _, e := range r.EXUs {
		fmt.Printf("  %-10s instructions=%-6d busy_cycles=%-6d utilization=%.3f\n",
			e.Name, e.TotalInstructions, e.BusyCycles, e.Utilization)
	}
}
