// Package trace defines the event sink pipeline stages and execution
// units report to, and a Chrome Trace Event (catapult JSON) writer
// implementing it. The core has no compile-time dependency on this
// format — any Sink implementation can be substituted.
package trace

// Lane constants assign the deterministic trace lane ids spec.md §6 fixes:
// IFU is lane 0, IDU is lane 1, and every execution unit gets
// LaneEXUBase+i in construction order.
const (
	LaneIFU   = 0
	LaneIDU   = 1
	LaneEXUBase = 2
)

// RetireKind distinguishes a normal retire from a flush (unused by the
// core today, carried for sink completeness).
type RetireKind int

const (
	Retire RetireKind = iota
	Flush
)

// Sink receives pipeline and architectural-state events. Stage is one
// of "F", "D", "E".
type Sink interface {
	LogCycle(elapsed int)
	LogInsn(id uint64, label string)
	LogStageStart(id uint64, stage string, lane int, cycle int)
	LogStageEnd(id uint64, stage string, lane int, cycle int)
	LogRetire(id uint64, kind RetireKind)
	LogArchValue(regFile string, index int, value float64)
	Close() error
}

// NopSink discards every event. Useful for running the core without
// trace overhead (e.g. the run subcommand or tests).
type NopSink struct{}

func (NopSink) LogCycle(int)                                {}
func (NopSink) LogInsn(uint64, string)                       {}
func (NopSink) LogStageStart(uint64, string, int, int)       {}
func (NopSink) LogStageEnd(uint64, string, int, int)         {}
func (NopSink) LogRetire(uint64, RetireKind)                 {}
func (NopSink) LogArchValue(string, int, float64)            {}
func (NopSink) Close() error                                 { return nil }
