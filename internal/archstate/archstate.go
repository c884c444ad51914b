// Package archstate holds all architectural state visible to instruction
// effect functions: scalar registers, the matrix and weight-buffer typed
// register files, flat byte memory, flags, and the program counter pair.
// Nothing here is pipeline-stage state — StageData and Uop latency
// counters live in their own packages.
package archstate

import "github.com/ucb-ee194-tapeout/npu-model/internal/npuerr"

// ChangeHook is notified on every successful write with a value that
// differs from what was previously stored, carrying the new value so a
// trace sink can render architectural counters. The trace sink uses
// this to log only real architectural state transitions rather than
// every write attempt.
type ChangeHook func(regFile string, index int, value float64)

// ArchState is the scalar and matrix register files, weight buffer,
// flat memory, flags, and PC/NPC pair shared by every execution unit's
// effect function.
type ArchState struct {
	cfg Config

	memory []byte
	xrf    []uint64
	mrf    [][]byte
	wb     [][]byte
	flags  []bool
	pc     int
	npc    int

	onChange ChangeHook
}

// New allocates a zeroed ArchState sized by cfg.
func New(cfg Config) *ArchState {
	s := &ArchState{
		cfg:    cfg,
		memory: make([]byte, cfg.MemorySize),
		xrf:    make([]uint64, cfg.NumXRegisters),
		mrf:    make([][]byte, cfg.NumMRegisters),
		wb:     make([][]byte, cfg.NumWbRegisters),
		flags:  make([]bool, cfg.NumFlags),
	}
	for i := range s.mrf {
		s.mrf[i] = make([]byte, cfg.MrfDepth*cfg.MrfWidth)
	}
	for i := range s.wb {
		s.wb[i] = make([]byte, cfg.WbWidth)
	}
	return s
}

// SetChangeHook installs the callback invoked on every state-changing
// write. Pass nil to disable.
func (s *ArchState) SetChangeHook(hook ChangeHook) {
	s.onChange = hook
}

// Reset zeroes every register file, memory, flag, and the PC/NPC pair.
func (s *ArchState) Reset() {
	for i := range s.memory {
		s.memory[i] = 0
	}
	for i := range s.xrf {
		s.xrf[i] = 0
	}
	for _, row := range s.mrf {
		for i := range row {
			row[i] = 0
		}
	}
	for _, row := range s.wb {
		for i := range row {
			row[i] = 0
		}
	}
	for i := range s.flags {
		s.flags[i] = false
	}
	s.pc = 0
	s.npc = 0
}

func (s *ArchState) Config() Config { return s.cfg }

// --- Scalar register file (XRF) ---

// ReadXRF returns register i. Register 0 always reads as 0.
func (s *ArchState) ReadXRF(i int) uint64 {
	if i == 0 {
		return 0
	}
	return s.xrf[i]
}

// WriteXRF sets register i to v. Writes to register 0 are silently
// discarded, matching the hardwired-zero convention.
func (s *ArchState) WriteXRF(i int, v uint64) error {
	if i < 0 || i >= len(s.xrf) {
		return &npuerr.ShapeMismatch{RegFile: "xrf", Index: i, Want: len(s.xrf), Got: i + 1}
	}
	if i == 0 {
		return nil
	}
	if s.xrf[i] != v {
		s.xrf[i] = v
		s.signal("xrf", i, float64(v))
	}
	return nil
}

// --- Program counter ---

func (s *ArchState) PC() int  { return s.pc }
func (s *ArchState) NPC() int { return s.npc }

func (s *ArchState) SetPC(v int)  { s.pc = v }
func (s *ArchState) SetNPC(v int) { s.npc = v }

// --- Flags ---

func (s *ArchState) CheckFlag(i int) (bool, error) {
	if i < 0 || i >= len(s.flags) {
		return false, &npuerr.FlagInvariant{Flag: i}
	}
	return s.flags[i], nil
}

// SetFlag sets flag i. Setting an already-set flag violates the
// dispatch/retire handshake invariant and is reported rather than
// silently allowed, so a double-dispatch onto a busy DMA slot surfaces
// immediately instead of corrupting the in-flight count.
func (s *ArchState) SetFlag(i int) error {
	if i < 0 || i >= len(s.flags) {
		return &npuerr.FlagInvariant{Flag: i}
	}
	if s.flags[i] {
		return &npuerr.FlagInvariant{Flag: i}
	}
	s.flags[i] = true
	return nil
}

func (s *ArchState) ClearFlag(i int) error {
	if i < 0 || i >= len(s.flags) {
		return &npuerr.FlagInvariant{Flag: i}
	}
	s.flags[i] = false
	return nil
}

// --- Flat memory ---

func (s *ArchState) ReadMemory(base, length int) ([]byte, error) {
	if base < 0 || length < 0 || base+length > len(s.memory) {
		return nil, &npuerr.MemoryBounds{Base: base, Len: length, MemorySize: len(s.memory)}
	}
	out := make([]byte, length)
	copy(out, s.memory[base:base+length])
	return out, nil
}

func (s *ArchState) WriteMemory(base int, data []byte) error {
	if base < 0 || base+len(data) > len(s.memory) {
		return &npuerr.MemoryBounds{Base: base, Len: len(data), MemorySize: len(s.memory), Write: true}
	}
	copy(s.memory[base:base+len(data)], data)
	return nil
}

// --- Matrix register file (MRF) ---

// MRFShape returns the (rows, cols) shape a dtype-typed view of any MRF
// register presents: mrf_depth rows, each mrf_width/elem_width columns.
func (s *ArchState) MRFShape(dtype Dtype) (rows, cols int) {
	return s.cfg.MrfDepth, s.cfg.MrfWidth / dtype.Bytes()
}

// ReadMRF returns register idx's contents as a row-major flat slice of
// MRFShape(dtype) float32 elements, decoded from their packed dtype
// encoding.
func (s *ArchState) ReadMRF(dtype Dtype, idx int) ([]float32, error) {
	if idx < 0 || idx >= len(s.mrf) {
		return nil, &npuerr.ShapeMismatch{RegFile: "mrf", Index: idx, Dtype: dtype.String()}
	}
	rows, cols := s.MRFShape(dtype)
	n := rows * cols
	elemWidth := dtype.Bytes()
	out := make([]float32, n)
	row := s.mrf[idx]
	for i := 0; i < n; i++ {
		out[i] = decodeElem(dtype, row[i*elemWidth:(i+1)*elemWidth])
	}
	return out, nil
}

// WriteMRF stores a row-major flat slice of MRFShape(dtype) float32
// elements into register idx, encoding each into dtype's packed byte
// width.
func (s *ArchState) WriteMRF(dtype Dtype, idx int, data []float32) error {
	if idx < 0 || idx >= len(s.mrf) {
		return &npuerr.ShapeMismatch{RegFile: "mrf", Index: idx, Dtype: dtype.String()}
	}
	rows, cols := s.MRFShape(dtype)
	want := rows * cols
	if len(data) != want {
		return &npuerr.ShapeMismatch{RegFile: "mrf", Index: idx, Dtype: dtype.String(), Want: want, Got: len(data)}
	}
	elemWidth := dtype.Bytes()
	row := s.mrf[idx]
	changed := false
	for i, v := range data {
		buf := make([]byte, elemWidth)
		encodeElem(dtype, v, buf)
		off := i * elemWidth
		for b := 0; b < elemWidth; b++ {
			if row[off+b] != buf[b] {
				changed = true
			}
			row[off+b] = buf[b]
		}
	}
	if changed {
		// A tile write touches many elements at once; a Chrome Trace
		// counter is a single scalar per tid, so the head element of
		// the newly written tile stands in for the register's value.
		s.signal("mrf", idx, float64(data[0]))
	}
	return nil
}

// --- Weight buffer (WB) ---

// WBShape returns the (rows, cols) shape a dtype-typed view of any WB
// register presents.
//
// The weight buffer holds a single tile: K contraction elements per row,
// matching the MRF activation row's element count for the same dtype
// (K = mrf_width/elem_width), and N = wb_width/elem_width/K output
// columns. This makes `activation (mrf_depth, K) @ weight.T (K, N)`
// compose into an (mrf_depth, N) result, which is what the matmul effect
// and the MRF f32/bf16 shapes observed for the reference configuration
// (activation (64,32) bf16, weight (16,32), result (64,16) f32) require.
func (s *ArchState) WBShape(dtype Dtype) (rows, cols int) {
	elemWidth := dtype.Bytes()
	k := s.cfg.MrfWidth / elemWidth
	n := (s.cfg.WbWidth / elemWidth) / k
	return n, k
}

func (s *ArchState) ReadWB(dtype Dtype, idx int) ([]float32, error) {
	if idx < 0 || idx >= len(s.wb) {
		return nil, &npuerr.ShapeMismatch{RegFile: "wb", Index: idx, Dtype: dtype.String()}
	}
	rows, cols := s.WBShape(dtype)
	n := rows * cols
	elemWidth := dtype.Bytes()
	out := make([]float32, n)
	row := s.wb[idx]
	for i := 0; i < n; i++ {
		out[i] = decodeElem(dtype, row[i*elemWidth:(i+1)*elemWidth])
	}
	return out, nil
}

func (s *ArchState) WriteWB(dtype Dtype, idx int, data []float32) error {
	if idx < 0 || idx >= len(s.wb) {
		return &npuerr.ShapeMismatch{RegFile: "wb", Index: idx, Dtype: dtype.String()}
	}
	rows, cols := s.WBShape(dtype)
	want := rows * cols
	if len(data) != want {
		return &npuerr.ShapeMismatch{RegFile: "wb", Index: idx, Dtype: dtype.String(), Want: want, Got: len(data)}
	}
	elemWidth := dtype.Bytes()
	row := s.wb[idx]
	changed := false
	for i, v := range data {
		buf := make([]byte, elemWidth)
		encodeElem(dtype, v, buf)
		off := i * elemWidth
		for b := 0; b < elemWidth; b++ {
			if row[off+b] != buf[b] {
				changed = true
			}
			row[off+b] = buf[b]
		}
	}
	if changed {
		s.signal("wb", idx, float64(data[0]))
	}
	return nil
}

func (s *ArchState) signal(regFile string, index int, value float64) {
	if s.onChange != nil {
		s.onChange(regFile, index, value)
	}
}
