package trace

import (
	"encoding/json"
	"fmt"
	"os"
)

// ChromeTraceSink renders pipeline events as a Chrome Trace Event JSON
// stream: one process for functional-unit lanes (stage intervals as
// complete "X" events) and one for architectural-state counters ("C"
// events), matching the two-process layout the original Kanata-style
// logger produces so existing trace viewers (chrome://tracing,
// Perfetto) render it without modification.
type ChromeTraceSink struct {
	file       *os.File
	enc        *json.Encoder
	firstEvent bool

	insnLabels map[uint64]string
	active     map[activeKey]int
	archThread map[archKey]archThread

	ts int
}

type activeKey struct {
	id    uint64
	stage string
	lane  int
}

type archKey struct {
	regFile string
	index   int
}

type archThread struct {
	tid  int
	name string
}

const (
	fuPID   = 0
	archPID = 1
)

// NewChromeTraceSink opens path and writes the process/thread metadata
// events every trace needs before any stage events.
func NewChromeTraceSink(path, processName string, laneNames map[int]string) (*ChromeTraceSink, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	s := &ChromeTraceSink{
		file:       f,
		enc:        json.NewEncoder(f),
		firstEvent: true,
		insnLabels: make(map[uint64]string),
		active:     make(map[activeKey]int),
		archThread: make(map[archKey]archThread),
		ts:         1,
	}
	if _, err := f.WriteString("["); err != nil {
		return nil, err
	}
	s.writeEvent(map[string]any{
		"name": "process_name", "ph": "M", "pid": fuPID, "tid": 0,
		"args": map[string]any{"name": processName},
	})
	for lane, name := range laneNames {
		s.writeEvent(map[string]any{
			"name": "thread_name", "ph": "M", "pid": fuPID, "tid": lane,
			"args": map[string]any{"name": name},
		})
	}
	s.writeEvent(map[string]any{
		"name": "process_name", "ph": "M", "pid": archPID, "tid": 0,
		"args": map[string]any{"name": "ArchState"},
	})
	return s, nil
}

func (s *ChromeTraceSink) writeEvent(event map[string]any) {
	if !s.firstEvent {
		s.file.WriteString(",\n")
	} else {
		s.firstEvent = false
	}
	b, _ := json.Marshal(event)
	s.file.Write(b)
}

func (s *ChromeTraceSink) LogCycle(elapsed int) {
	s.ts += elapsed
}

func (s *ChromeTraceSink) LogInsn(id uint64, label string) {
	s.insnLabels[id] = fmt.Sprintf("%d: %s", id, label)
}

func (s *ChromeTraceSink) LogStageStart(id uint64, stage string, lane int, cycle int) {
	key := activeKey{id, stage, lane}
	if _, ok := s.active[key]; ok {
		return
	}
	s.active[key] = cycle
}

func (s *ChromeTraceSink) LogStageEnd(id uint64, stage string, lane int, cycle int) {
	key := activeKey{id, stage, lane}
	start, ok := s.active[key]
	if !ok {
		return
	}
	delete(s.active, key)
	dur := cycle - start
	if dur < 0 {
		dur = 0
	}
	label, ok := s.insnLabels[id]
	if !ok {
		label = fmt.Sprintf("insn-%d", id)
	}
	s.writeEvent(map[string]any{
		"name": label, "cat": stage, "ph": "X",
		"pid": fuPID, "tid": lane, "ts": start, "dur": dur,
		"args": map[string]any{"insn_id": id, "stage": stage},
	})
}

func (s *ChromeTraceSink) LogRetire(id uint64, kind RetireKind) {}

func (s *ChromeTraceSink) LogArchValue(regFile string, index int, value float64) {
	key := archKey{regFile, index}
	th, ok := s.archThread[key]
	if !ok {
		tid := 2000 + index
		name := fmt.Sprintf("%s[%02d]", regFile, index)
		switch regFile {
		case "xrf":
			tid = index
		case "pc":
			tid = 1000
			name = "pc"
		}
		th = archThread{tid: tid, name: name}
		s.archThread[key] = th
		s.writeEvent(map[string]any{
			"name": "thread_name", "ph": "M", "pid": archPID, "tid": th.tid,
			"args": map[string]any{"name": th.name},
		})
	}
	s.writeEvent(map[string]any{
		"name": th.name, "ph": "C", "pid": archPID, "tid": th.tid,
		"ts": s.ts, "args": map[string]any{"value": value},
	})
}

func (s *ChromeTraceSink) Close() error {
	s.file.WriteString("]\n")
	return s.file.Close()
}
