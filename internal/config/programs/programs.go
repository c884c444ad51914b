// Package programs holds the literal program definitions the driver
// can select by name, mirroring the original's configs/programs/*.py
// modules.
package programs

import (
	"github.com/ucb-ee194-tapeout/npu-model/internal/isa"
	"github.com/ucb-ee194-tapeout/npu-model/internal/npuerr"
	"github.com/ucb-ee194-tapeout/npu-model/internal/program"
)

func ones(n int) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = 1
	}
	return b
}

// Addi is the addi-loop-plus-matmul scenario spec.md §8 names S1.
func Addi() *program.Program {
	return &program.Program{
		Name: "addi",
		Instructions: []isa.Instruction{
			isa.Insn("addi", isa.Args{"rd": 2, "rs1": 0, "imm": 0}),
			isa.Insn("addi", isa.Args{"rd": 1, "rs1": 1, "imm": 0}),
			isa.Insn("addi", isa.Args{"rd": 2, "rs1": 2, "imm": 8}),
			isa.Insn("addi", isa.Args{"rd": 1, "rs1": 1, "imm": 1}),
			isa.Insn("blt", isa.Args{"rs1": 1, "rs2": 2, "imm": -1}),
			isa.Insn("matmul.mxu1", isa.Args{"rd": 1, "rs1": 1, "rs2": 1}),
			isa.Insn("addi", isa.Args{"rd": 4, "rs1": 4, "imm": 1}),
			isa.Insn("addi", isa.Args{"rd": 5, "rs1": 5, "imm": 1}),
		},
	}
}

// DMAStall is the DMA-queueing-and-barrier scenario spec.md §8 names S2.
func DMAStall() *program.Program {
	return &program.Program{
		Name: "dma_stall",
		Instructions: []isa.Instruction{
			isa.InsnDelay("dma.load.m", 5, isa.Args{"rd": 0, "base": 0, "size": 32, "flag": 0}),
			isa.InsnDelay("dma.load.m", 5, isa.Args{"rd": 1, "base": 32, "size": 32, "flag": 1}),
			isa.InsnDelay("dma.load.m", 5, isa.Args{"rd": 2, "base": 48, "size": 32, "flag": 2}),
			isa.Insn("addi", isa.Args{"rd": 5, "rs1": 0, "imm": 10}),
			isa.Insn("dma.wait", isa.Args{"flag": 2}),
			isa.InsnDelay("dma.store.m", 15, isa.Args{"rs1": 3, "base": 64, "size": 32, "flag": 1}),
			isa.Insn("dma.wait", isa.Args{"flag": 1}),
		},
		MemoryRegions: []program.MemoryRegion{
			{Base: 0, Data: ones(256)},
			{Base: 32, Data: ones(256)},
			{Base: 48, Data: ones(256)},
			{Base: 64, Data: ones(256)},
		},
	}
}

// Matmul issues three back-to-back matmuls to exercise matrix
// backpressure (spec.md §8 S5).
func Matmul() *program.Program {
	return &program.Program{
		Name: "matmul",
		Instructions: []isa.Instruction{
			isa.Insn("matmul.mxu1", isa.Args{"rd": 0, "rs1": 0, "rs2": 0}),
			isa.Insn("matmul.mxu1", isa.Args{"rd": 0, "rs1": 0, "rs2": 0}),
			isa.Insn("matmul.mxu1", isa.Args{"rd": 0, "rs1": 0, "rs2": 0}),
		},
	}
}

// GemmaMLP is a gate/up projection plus GELU approximation kernel, the
// supplemented feature drawn from the original's configs/programs/gemma_mlp.py.
func GemmaMLP() *program.Program {
	return &program.Program{
		Name: "gemma_mlp",
		Instructions: []isa.Instruction{
			isa.Insn("dma.load", isa.Args{"rd": 0, "base": 0, "size": 512, "flag": 0}),
			isa.Insn("dma.load", isa.Args{"rd": 1, "base": 0, "size": 512, "flag": 1}),
			isa.Insn("addi", isa.Args{"rd": 1, "rs1": 0, "imm": 8}),
			isa.Insn("addi", isa.Args{"rd": 2, "rs1": 0, "imm": 0}),
			isa.Insn("dma.wait", isa.Args{"flag": 0}),
			isa.Insn("dma.load", isa.Args{"rd": 0, "base": 0, "size": 2048, "flag": 0}),
			isa.Insn("dma.wait", isa.Args{"flag": 0}),
			isa.Insn("matmul", isa.Args{"rd": 1, "rs1": 0, "rs2": 0}),
			isa.Insn("matmul", isa.Args{"rd": 2, "rs1": 0, "rs2": 1}),
			isa.Insn("blt", isa.Args{"rs1": 2, "rs2": 1, "imm": -4}),
			isa.Insn("addi", isa.Args{"rd": 2, "rs1": 2, "imm": 1}),
			isa.Insn("nop", isa.Args{}),
			isa.Insn("vlibroadcast", isa.Args{"rd": 4, "imm": 0.7978845608028654}),
			isa.Insn("vlibroadcast", isa.Args{"rd": 5, "imm": 0.044715}),
			isa.Insn("addi", isa.Args{"rd": 2, "rs1": 0, "imm": 0}),
			isa.Insn("vmul", isa.Args{"vrd": 6, "vs1": 1, "vs2": 1}),
			isa.Insn("vmul", isa.Args{"vrd": 6, "vs1": 6, "vs2": 1}),
			isa.Insn("vmul", isa.Args{"vrd": 6, "vs1": 5, "vs2": 6}),
			isa.Insn("vadd", isa.Args{"vrd": 6, "vs1": 1, "vs2": 6}),
			isa.Insn("vmul", isa.Args{"vrd": 6, "vs1": 4, "vs2": 6}),
			isa.Insn("blt", isa.Args{"rs1": 2, "rs2": 1, "imm": -1}),
			isa.Insn("addi", isa.Args{"rd": 2, "rs1": 2, "imm": 1}),
			isa.Insn("nop", isa.Args{}),
			isa.InsnDelay("dma.store", 15, isa.Args{"rs1": 0, "base": 0, "size": 1024, "flag": 2}),
			isa.Insn("dma.wait", isa.Args{"flag": 2}),
		},
		MemoryRegions: []program.MemoryRegion{
			{Base: 0, Data: ones(2048)},
		},
	}
}

// VPUTests exercises every vector elementwise op once.
func VPUTests() *program.Program {
	return &program.Program{
		Name: "vpu_tests",
		Instructions: []isa.Instruction{
			isa.Insn("vadd", isa.Args{"vrd": 1, "vs1": 0, "vs2": 0}),
			isa.Insn("vsub", isa.Args{"vrd": 1, "vs1": 0, "vs2": 0}),
			isa.Insn("vmul", isa.Args{"vrd": 1, "vs1": 0, "vs2": 0}),
			isa.Insn("vsqrt", isa.Args{"vrd": 1, "vs1": 0}),
			isa.Insn("vreciprocal", isa.Args{"vrd": 1, "vs1": 0}),
			isa.Insn("vexp", isa.Args{"vrd": 1, "vs1": 0}),
			isa.Insn("vlog2", isa.Args{"vrd": 1, "vs1": 0}),
			isa.Insn("vexp2", isa.Args{"vrd": 1, "vs1": 0}),
			isa.Insn("vsin", isa.Args{"vrd": 1, "vs1": 0}),
			isa.Insn("vcos", isa.Args{"vrd": 1, "vs1": 0}),
			isa.Insn("vtanh", isa.Args{"vrd": 1, "vs1": 0}),
		},
	}
}

var registry = map[string]func() *program.Program{
	"addi":      Addi,
	"dma_stall": DMAStall,
	"matmul":    Matmul,
	"gemma_mlp": GemmaMLP,
	"vpu_tests": VPUTests,
}

// Lookup resolves a program by name.
func Lookup(name string) (*program.Program, error) {
	ctor, ok := registry[name]
	if !ok {
		return nil, &npuerr.ConfigurationError{What: "unknown program: " + name}
	}
	return ctor(), nil
}

// Names lists every registered program name.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	return names
}
