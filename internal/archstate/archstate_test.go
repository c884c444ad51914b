package archstate

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func testConfig() Config {
	return Config{
		MrfDepth:       64,
		MrfWidth:       64,
		WbWidth:        1024,
		NumXRegisters:  32,
		NumMRegisters:  64,
		NumWbRegisters: 2,
		MemorySize:     1 << 20,
		NumFlags:       8,
	}
}

func TestXRFRegisterZeroIsHardwired(t *testing.T) {
	s := New(testConfig())

	require.NoError(t, s.WriteXRF(0, 42))
	require.EqualValues(t, 0, s.ReadXRF(0))

	require.NoError(t, s.WriteXRF(5, 42))
	require.EqualValues(t, 42, s.ReadXRF(5))
}

func TestMRFTypedViewRoundTrip(t *testing.T) {
	s := New(testConfig())

	rowsF32, colsF32 := s.MRFShape(F32)
	require.Equal(t, 64, rowsF32)
	require.Equal(t, 16, colsF32)

	data := make([]float32, rowsF32*colsF32)
	for i := range data {
		data[i] = 1
	}
	require.NoError(t, s.WriteMRF(F32, 0, data))
	got, err := s.ReadMRF(F32, 0)
	require.NoError(t, err)
	require.Equal(t, data, got)

	rowsBF16, colsBF16 := s.MRFShape(BF16)
	require.Equal(t, 64, rowsBF16)
	require.Equal(t, 32, colsBF16)

	bf16Data := make([]float32, rowsBF16*colsBF16)
	for i := range bf16Data {
		bf16Data[i] = 1
	}
	require.NoError(t, s.WriteMRF(BF16, 0, bf16Data))
	gotBF16, err := s.ReadMRF(BF16, 0)
	require.NoError(t, err)
	require.Equal(t, bf16Data, gotBF16)
}

func TestMRFShapeMismatchRejected(t *testing.T) {
	s := New(testConfig())
	err := s.WriteMRF(F32, 0, make([]float32, 3))
	require.Error(t, err)
}

func TestWBShapeComposesWithMatmul(t *testing.T) {
	s := New(testConfig())

	rows, cols := s.WBShape(BF16)
	require.Equal(t, 16, rows)
	require.Equal(t, 32, cols)

	activationRows, activationCols := s.MRFShape(BF16)
	require.Equal(t, activationCols, cols)

	data := make([]float32, rows*cols)
	for i := range data {
		data[i] = 2
	}
	require.NoError(t, s.WriteWB(BF16, 0, data))
	got, err := s.ReadWB(BF16, 0)
	require.NoError(t, err)
	require.InDeltaSlice(t, data, got, 0.01)

	_ = activationRows
}

func TestMemoryBoundsEnforced(t *testing.T) {
	s := New(testConfig())

	require.NoError(t, s.WriteMemory(0, []byte{1, 2, 3}))
	got, err := s.ReadMemory(0, 3)
	require.NoError(t, err)
	require.Equal(t, []byte{1, 2, 3}, got)

	_, err = s.ReadMemory(s.Config().MemorySize-1, 2)
	require.Error(t, err)

	err = s.WriteMemory(s.Config().MemorySize, []byte{1})
	require.Error(t, err)
}

func TestFlagInvariantDoubleSet(t *testing.T) {
	s := New(testConfig())

	require.NoError(t, s.SetFlag(0))
	set, err := s.CheckFlag(0)
	require.NoError(t, err)
	require.True(t, set)

	require.Error(t, s.SetFlag(0))

	require.NoError(t, s.ClearFlag(0))
	require.NoError(t, s.SetFlag(0))
}

func TestSerializeRoundTrip(t *testing.T) {
	s := New(testConfig())
	require.NoError(t, s.WriteXRF(3, 123))
	require.NoError(t, s.SetFlag(1))
	require.NoError(t, s.WriteMemory(10, []byte{9, 9, 9}))
	s.SetPC(5)
	s.SetNPC(6)

	buf := make([]byte, s.SerializeSize())
	require.NoError(t, s.Serialize(buf))

	restored := New(testConfig())
	require.NoError(t, restored.Deserialize(buf))

	require.EqualValues(t, 123, restored.ReadXRF(3))
	set, err := restored.CheckFlag(1)
	require.NoError(t, err)
	require.True(t, set)
	got, err := restored.ReadMemory(10, 3)
	require.NoError(t, err)
	require.Equal(t, []byte{9, 9, 9}, got)
	require.Equal(t, 5, restored.PC())
	require.Equal(t, 6, restored.NPC())
}

func TestDeserializeRejectsShortBuffer(t *testing.T) {
	s := New(testConfig())
	require.Error(t, s.Deserialize([]byte{1, 2, 3}))
}

func TestChangeHookFiresOnlyOnRealChange(t *testing.T) {
	s := New(testConfig())
	count := 0
	var lastValue float64
	s.SetChangeHook(func(regFile string, index int, value float64) {
		count++
		lastValue = value
	})

	require.NoError(t, s.WriteXRF(1, 7))
	require.Equal(t, 1, count)
	require.Equal(t, 7.0, lastValue)

	require.NoError(t, s.WriteXRF(1, 7))
	require.Equal(t, 1, count, "re-writing the same value must not re-signal")

	require.NoError(t, s.WriteXRF(1, 8))
	require.Equal(t, 2, count)
	require.Equal(t, 8.0, lastValue)
}
