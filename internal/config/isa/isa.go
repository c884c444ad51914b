// Package isa (config variant) builds the populated ISA registry: the
// concrete mnemonic -> (class, effect) bindings every HardwareConfig
// shares. This is the configuration-layer collaborator spec.md assigns
// the job of populating the registry once at startup; internal/isa only
// defines the registry's shape.
package isa

import (
	"math"

	"github.com/ucb-ee194-tapeout/npu-model/internal/archstate"
	coreisa "github.com/ucb-ee194-tapeout/npu-model/internal/isa"
)

// PipelineLatency is the fixed IF->EX cycle count branch and jump
// targets must be offset by so the fetched PC lands on the intended
// static target rather than PC+1 repeated across the in-flight
// instructions fetched while the branch resolves.
const PipelineLatency = 2

// Default builds the registry every built-in HardwareConfig uses: the
// scalar ALU and branches, bf16 vector elementwise ops, the matrix and
// weight-buffer move/matmul family, and the DMA/barrier memory family.
func Default() *coreisa.Registry {
	r := coreisa.NewRegistry()
	registerScalar(r)
	registerVector(r)
	registerMatrix(r)
	registerDMA(r)
	return r
}

func xrfWrite(s *archstate.ArchState, rd int, v int64) {
	_ = s.WriteXRF(rd, uint64(v))
}

func registerScalar(r *coreisa.Registry) {
	r.Register("nop", coreisa.Scalar, func(s *archstate.ArchState, a coreisa.Args) {})

	r.Register("add", coreisa.Scalar, func(s *archstate.ArchState, a coreisa.Args) {
		xrfWrite(s, a.IntArg("rd"), int64(s.ReadXRF(a.IntArg("rs1"))+s.ReadXRF(a.IntArg("rs2"))))
	})
	r.Register("addi", coreisa.Scalar, func(s *archstate.ArchState, a coreisa.Args) {
		xrfWrite(s, a.IntArg("rd"), int64(s.ReadXRF(a.IntArg("rs1")))+int64(a.IntArg("imm")))
	})
	r.Register("sub", coreisa.Scalar, func(s *archstate.ArchState, a coreisa.Args) {
		xrfWrite(s, a.IntArg("rd"), int64(s.ReadXRF(a.IntArg("rs1")))-int64(s.ReadXRF(a.IntArg("rs2"))))
	})

	r.Register("and", coreisa.Scalar, func(s *archstate.ArchState, a coreisa.Args) {
		xrfWrite(s, a.IntArg("rd"), int64(s.ReadXRF(a.IntArg("rs1"))&s.ReadXRF(a.IntArg("rs2"))))
	})
	r.Register("or", coreisa.Scalar, func(s *archstate.ArchState, a coreisa.Args) {
		xrfWrite(s, a.IntArg("rd"), int64(s.ReadXRF(a.IntArg("rs1"))|s.ReadXRF(a.IntArg("rs2"))))
	})
	r.Register("xor", coreisa.Scalar, func(s *archstate.ArchState, a coreisa.Args) {
		xrfWrite(s, a.IntArg("rd"), int64(s.ReadXRF(a.IntArg("rs1"))^s.ReadXRF(a.IntArg("rs2"))))
	})
	r.Register("sll", coreisa.Scalar, func(s *archstate.ArchState, a coreisa.Args) {
		xrfWrite(s, a.IntArg("rd"), int64(s.ReadXRF(a.IntArg("rs1"))<<(s.ReadXRF(a.IntArg("rs2"))&63)))
	})
	r.Register("srl", coreisa.Scalar, func(s *archstate.ArchState, a coreisa.Args) {
		xrfWrite(s, a.IntArg("rd"), int64(s.ReadXRF(a.IntArg("rs1"))>>(s.ReadXRF(a.IntArg("rs2"))&63)))
	})
	r.Register("sra", coreisa.Scalar, func(s *archstate.ArchState, a coreisa.Args) {
		signed := int64(s.ReadXRF(a.IntArg("rs1")))
		xrfWrite(s, a.IntArg("rd"), signed>>(s.ReadXRF(a.IntArg("rs2"))&63))
	})
	r.Register("slt", coreisa.Scalar, func(s *archstate.ArchState, a coreisa.Args) {
		v := int64(0)
		if int64(s.ReadXRF(a.IntArg("rs1"))) < int64(s.ReadXRF(a.IntArg("rs2"))) {
			v = 1
		}
		xrfWrite(s, a.IntArg("rd"), v)
	})
	r.Register("sltu", coreisa.Scalar, func(s *archstate.ArchState, a coreisa.Args) {
		v := int64(0)
		if s.ReadXRF(a.IntArg("rs1")) < s.ReadXRF(a.IntArg("rs2")) {
			v = 1
		}
		xrfWrite(s, a.IntArg("rd"), v)
	})

	branch := func(name string, pred func(rs1, rs2 uint64) bool) {
		r.Register(name, coreisa.Scalar, func(s *archstate.ArchState, a coreisa.Args) {
			if pred(s.ReadXRF(a.IntArg("rs1")), s.ReadXRF(a.IntArg("rs2"))) {
				s.SetNPC(s.PC() + a.IntArg("imm") - PipelineLatency)
			}
		})
	}
	branch("beq", func(rs1, rs2 uint64) bool { return rs1 == rs2 })
	branch("bne", func(rs1, rs2 uint64) bool { return rs1 != rs2 })
	branch("blt", func(rs1, rs2 uint64) bool { return int64(rs1) < int64(rs2) })
	// Corrects the source anomaly where bge/bltu/bgeu all reused blt's `<`
	// predicate: bge is signed >=, bltu/bgeu are unsigned.
	branch("bge", func(rs1, rs2 uint64) bool { return int64(rs1) >= int64(rs2) })
	branch("bltu", func(rs1, rs2 uint64) bool { return rs1 < rs2 })
	branch("bgeu", func(rs1, rs2 uint64) bool { return rs1 >= rs2 })

	r.Register("jal", coreisa.Scalar, func(s *archstate.ArchState, a coreisa.Args) {
		s.SetNPC(s.PC() + a.IntArg("imm") - PipelineLatency)
	})
}

func vecUnary(r *coreisa.Registry, name string, f func(float32) float32) {
	r.Register(name, coreisa.Vector, func(s *archstate.ArchState, a coreisa.Args) {
		x, err := s.ReadMRF(archstate.BF16, a.IntArg("vs1"))
		if err != nil {
			panic(err)
		}
		out := make([]float32, len(x))
		for i, v := range x {
			out[i] = f(v)
		}
		if err := s.WriteMRF(archstate.BF16, a.IntArg("vrd"), out); err != nil {
			panic(err)
		}
	})
}

func vecBinary(r *coreisa.Registry, name string, f func(a, b float32) float32) {
	r.Register(name, coreisa.Vector, func(s *archstate.ArchState, a coreisa.Args) {
		x, err := s.ReadMRF(archstate.BF16, a.IntArg("vs1"))
		if err != nil {
			panic(err)
		}
		y, err := s.ReadMRF(archstate.BF16, a.IntArg("vs2"))
		if err != nil {
			panic(err)
		}
		out := make([]float32, len(x))
		for i := range x {
			out[i] = f(x[i], y[i])
		}
		if err := s.WriteMRF(archstate.BF16, a.IntArg("vrd"), out); err != nil {
			panic(err)
		}
	})
}

func registerVector(r *coreisa.Registry) {
	vecBinary(r, "vadd", func(a, b float32) float32 { return a + b })
	vecBinary(r, "vsub", func(a, b float32) float32 { return a - b })
	vecBinary(r, "vmul", func(a, b float32) float32 { return a * b })
	vecUnary(r, "vsqrt", func(x float32) float32 { return float32(math.Sqrt(float64(x))) })
	vecUnary(r, "vreciprocal", func(x float32) float32 { return 1.0 / x })
	vecUnary(r, "vexp", func(x float32) float32 { return float32(math.Exp(float64(x))) })
	vecUnary(r, "vlog2", func(x float32) float32 { return float32(math.Log2(float64(x))) })
	vecUnary(r, "vexp2", func(x float32) float32 { return float32(math.Exp2(float64(x))) })
	vecUnary(r, "vsin", func(x float32) float32 { return float32(math.Sin(float64(x))) })
	vecUnary(r, "vcos", func(x float32) float32 { return float32(math.Cos(float64(x))) })
	vecUnary(r, "vtanh", func(x float32) float32 { return float32(math.Tanh(float64(x))) })

	// vlibroadcast fills the whole destination register with one
	// floating-point immediate: a supplemented op the gemma MLP kernel
	// program uses to materialize GELU constants.
	r.Register("vlibroadcast", coreisa.Vector, func(s *archstate.ArchState, a coreisa.Args) {
		rows, cols := s.MRFShape(archstate.BF16)
		out := make([]float32, rows*cols)
		imm := float32(a["imm"])
		for i := range out {
			out[i] = imm
		}
		if err := s.WriteMRF(archstate.BF16, a.IntArg("rd"), out); err != nil {
			panic(err)
		}
	})

	// mv.mm copies one MRF register to another (bf16 view), used to
	// stage an activation tile for a second consumer without re-running
	// the producing instruction.
	r.Register("mv.mm", coreisa.Vector, func(s *archstate.ArchState, a coreisa.Args) {
		x, err := s.ReadMRF(archstate.BF16, a.IntArg("rs1"))
		if err != nil {
			panic(err)
		}
		if err := s.WriteMRF(archstate.BF16, a.IntArg("rd"), x); err != nil {
			panic(err)
		}
	})
}

func matmulEffect(s *archstate.ArchState, a coreisa.Args) {
	activation, err := s.ReadMRF(archstate.BF16, a.IntArg("rs1"))
	if err != nil {
		panic(err)
	}
	weight, err := s.ReadWB(archstate.BF16, a.IntArg("rs2"))
	if err != nil {
		panic(err)
	}
	m, k := s.MRFShape(archstate.BF16)
	n, k2 := s.WBShape(archstate.BF16)
	if k != k2 {
		panic(&archstateShapeErr{})
	}
	out := make([]float32, m*n)
	for i := 0; i < m; i++ {
		for j := 0; j < n; j++ {
			var acc float32
			for kk := 0; kk < k; kk++ {
				acc += activation[i*k+kk] * weight[j*k+kk]
			}
			out[i*n+j] = acc
		}
	}
	if err := s.WriteMRF(archstate.F32, a.IntArg("rd"), out); err != nil {
		panic(err)
	}
}

type archstateShapeErr struct{}

func (archstateShapeErr) Error() string { return "npu: matmul operand shape mismatch" }

func registerMatrix(r *coreisa.Registry) {
	r.Register("matmul", coreisa.Matrix, matmulEffect)
	r.Register("matmul.mxu0", coreisa.MatrixSystolic, matmulEffect)
	r.Register("matmul.mxu1", coreisa.MatrixInner, matmulEffect)

	// mv.mw moves an MRF activation tile into the weight buffer (bf16),
	// letting a kernel stage its own output as the next stage's weight.
	r.Register("mv.mw", coreisa.Vector, func(s *archstate.ArchState, a coreisa.Args) {
		x, err := s.ReadMRF(archstate.BF16, a.IntArg("rs1"))
		if err != nil {
			panic(err)
		}
		if err := s.WriteWB(archstate.BF16, a.IntArg("rd"), x); err != nil {
			panic(err)
		}
	})
}

func zeroPad(data []byte, n int) []byte {
	if len(data) >= n {
		return data[:n]
	}
	out := make([]byte, n)
	copy(out, data)
	return out
}

func registerDMA(r *coreisa.Registry) {
	loadMRF := func(s *archstate.ArchState, a coreisa.Args) {
		data, err := s.ReadMemory(a.IntArg("base"), a.IntArg("size"))
		if err != nil {
			panic(err)
		}
		rows, cols := s.MRFShape(archstate.U8)
		data = zeroPad(data, rows*cols)
		out := make([]float32, len(data))
		for i, b := range data {
			out[i] = float32(b)
		}
		if err := s.WriteMRF(archstate.U8, a.IntArg("rd"), out); err != nil {
			panic(err)
		}
	}
	loadWB := func(s *archstate.ArchState, a coreisa.Args) {
		data, err := s.ReadMemory(a.IntArg("base"), a.IntArg("size"))
		if err != nil {
			panic(err)
		}
		rows, cols := s.WBShape(archstate.U8)
		data = zeroPad(data, rows*cols)
		out := make([]float32, len(data))
		for i, b := range data {
			out[i] = float32(b)
		}
		if err := s.WriteWB(archstate.U8, a.IntArg("rd"), out); err != nil {
			panic(err)
		}
	}
	storeMRF := func(s *archstate.ArchState, a coreisa.Args) {
		data, err := s.ReadMRF(archstate.U8, a.IntArg("rs1"))
		if err != nil {
			panic(err)
		}
		size := a.IntArg("size")
		if size > len(data) {
			size = len(data)
		}
		bytes := make([]byte, size)
		for i := 0; i < size; i++ {
			bytes[i] = byte(data[i])
		}
		if err := s.WriteMemory(a.IntArg("base"), bytes); err != nil {
			panic(err)
		}
	}

	r.Register("dma.load.m", coreisa.DMA, loadMRF)
	r.Register("dma.load.w", coreisa.DMA, loadWB)
	r.Register("dma.store.m", coreisa.DMA, storeMRF)

	// Legacy mnemonics retained from the original source's configs/
	// programs (gemma_mlp, matmul): aliases of the .m/.w suffixed forms.
	r.Register("dma.load", coreisa.DMA, loadMRF)
	r.Register("dma.loadw", coreisa.DMA, loadWB)
	r.Register("dma.store", coreisa.DMA, storeMRF)

	r.Register("dma.wait", coreisa.Barrier, func(s *archstate.ArchState, a coreisa.Args) {})
}
