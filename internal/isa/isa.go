// Package isa defines the instruction and micro-op data model together
// with the ISA registry that maps a mnemonic to its instruction class and
// architectural effect.
package isa

import (
	"github.com/ucb-ee194-tapeout/npu-model/internal/archstate"
	"github.com/ucb-ee194-tapeout/npu-model/internal/npuerr"
)

// Class tags an instruction with the execution-unit family that can
// service it.
type Class int

const (
	Scalar Class = iota
	Vector
	Matrix
	MatrixSystolic
	MatrixInner
	DMA
	Barrier
)

func (c Class) String() string {
	switch c {
	case Scalar:
		return "SCALAR"
	case Vector:
		return "VECTOR"
	case Matrix:
		return "MATRIX"
	case MatrixSystolic:
		return "MATRIX_SYSTOLIC"
	case MatrixInner:
		return "MATRIX_INNER"
	case DMA:
		return "DMA"
	case Barrier:
		return "BARRIER"
	default:
		return "UNKNOWN"
	}
}

// Args holds one instruction's operands, string-keyed per the
// program/config boundary. Values are float64 rather than int because a
// handful of instructions (e.g. vlibroadcast's immediate) carry a literal
// floating-point operand; integer operands (register indices, sizes,
// flags) are whole-number float64s read back with IntArg.
type Args map[string]float64

// IntArg reads key as an int, truncating any fractional part (there
// shouldn't be one for register/size/flag operands).
func (a Args) IntArg(key string) int {
	return int(a[key])
}

// Instruction is an immutable, ordered record in a program's instruction
// stream. Delay is the pre-dispatch stall the IDU must observe before
// releasing the Uop to an execution unit.
type Instruction struct {
	Mnemonic string
	Args     Args
	Delay    int
}

// Insn is a convenience constructor for building Instruction literals in
// program definitions.
func Insn(mnemonic string, args Args) Instruction {
	return Instruction{Mnemonic: mnemonic, Args: args}
}

// InsnDelay is Insn with an explicit pre-dispatch delay.
func InsnDelay(mnemonic string, delay int, args Args) Instruction {
	return Instruction{Mnemonic: mnemonic, Args: args, Delay: delay}
}

func (i Instruction) String() string {
	return i.Mnemonic
}

// EffectFunc applies the architectural side effects of one instruction.
type EffectFunc func(state *archstate.ArchState, args Args)

// Uop is a dynamic instance of an Instruction flowing through the
// pipeline. Ids are unique across the whole simulation, allocated by the
// Fetch unit.
type Uop struct {
	ID                     uint64
	Insn                   Instruction
	DispatchDelayRemaining int
	ExecuteDelayRemaining  int
	Effect                 EffectFunc
}

// Operation is one entry of the ISA registry: a mnemonic's class and
// architectural effect.
type Operation struct {
	Mnemonic string
	Class    Class
	Effect   EffectFunc
}

// Registry maps mnemonic to Operation. It is populated once by the
// configuration layer at startup and is immutable afterwards — there are
// no module-load side effects and no global mutable state.
type Registry struct {
	operations map[string]Operation
}

// NewRegistry returns an empty, ready-to-populate registry.
func NewRegistry() *Registry {
	return &Registry{operations: make(map[string]Operation)}
}

// Register adds one mnemonic's class and effect to the registry.
func (r *Registry) Register(mnemonic string, class Class, effect EffectFunc) {
	r.operations[mnemonic] = Operation{Mnemonic: mnemonic, Class: class, Effect: effect}
}

// Lookup returns the Operation for mnemonic, or *npuerr.ISADecodeError if
// absent.
func (r *Registry) Lookup(mnemonic string) (Operation, error) {
	op, ok := r.operations[mnemonic]
	if !ok {
		return Operation{}, &npuerr.ISADecodeError{Mnemonic: mnemonic}
	}
	return op, nil
}

// Len returns the number of registered operations.
func (r *Registry) Len() int {
	return len(r.operations)
}
