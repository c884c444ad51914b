// Package program defines the static instruction stream and initial
// memory image a Core executes.
package program

import "github.com/ucb-ee194-tapeout/npu-model/internal/isa"

// MemoryRegion is a block of initial memory contents to preload at a
// base address before simulation starts, e.g. an input activation tile
// a DMA load reads back during execution.
type MemoryRegion struct {
	Base int
	Data []byte
}

// Program is an immutable instruction stream plus the memory regions
// that must be preloaded before Fetch issues its first instruction.
type Program struct {
	Name          string
	Instructions  []isa.Instruction
	MemoryRegions []MemoryRegion
}

// Len returns the number of instructions.
func (p *Program) Len() int {
	return len(p.Instructions)
}

// GetInstruction returns the instruction at pc. Callers must check
// IsFinished(pc) first; GetInstruction does not bounds-check.
func (p *Program) GetInstruction(pc int) isa.Instruction {
	return p.Instructions[pc]
}

// IsFinished reports whether pc has run off the end of the instruction
// stream.
func (p *Program) IsFinished(pc int) bool {
	return pc >= len(p.Instructions)
}
