package stagedata

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPrepareClaimHandshake(t *testing.T) {
	s := New[int]()

	require.False(t, s.IsValid())
	require.False(t, s.ShouldStall())

	require.True(t, s.Prepare(7))
	require.True(t, s.IsValid())
	require.True(t, s.ShouldStall())

	require.False(t, s.Prepare(9), "a second prepare before claim must stall")

	v, ok := s.Peek()
	require.True(t, ok)
	require.Equal(t, 7, v)
	require.True(t, s.IsValid(), "peek must not consume")

	v, ok = s.Claim()
	require.True(t, ok)
	require.Equal(t, 7, v)
	require.False(t, s.IsValid())

	_, ok = s.Claim()
	require.False(t, ok, "claiming an empty slot must fail cleanly")
}

func TestPrepareAfterClaimSucceeds(t *testing.T) {
	s := New[string]()
	require.True(t, s.Prepare("a"))
	_, _ = s.Claim()
	require.True(t, s.Prepare("b"))
	v, _ := s.Peek()
	require.Equal(t, "b", v)
}

func TestReset(t *testing.T) {
	s := New[int]()
	s.Prepare(3)
	s.Reset()
	require.False(t, s.IsValid())
	_, ok := s.Peek()
	require.False(t, ok)
}
