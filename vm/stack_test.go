package vm

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStackPushPopValue(t *testing.T) {
	s := NewStack(64)
	require.NoError(t, s.PushValue(NewU32(42)))
	require.Equal(t, 4, s.SP())
	got, err := s.PopValue(U32)
	require.NoError(t, err)
	require.Equal(t, uint32(42), got.U32())
	require.Equal(t, 0, s.SP())
}

func TestStackUnderflow(t *testing.T) {
	s := NewStack(64)
	_, err := s.PopValue(U32)
	require.ErrorIs(t, err, ErrStackUnderflow)
}

func TestStackOverflow(t *testing.T) {
	s := NewStack(2)
	require.NoError(t, s.Push([]byte{1, 2}))
	err := s.Push([]byte{3})
	require.ErrorIs(t, err, ErrStackOverflow)
}

func TestStackPeekDoesNotMutate(t *testing.T) {
	s := NewStack(64)
	require.NoError(t, s.PushValue(NewU16(7)))
	peeked, err := s.PeekValue(U16)
	require.NoError(t, err)
	require.Equal(t, uint16(7), peeked.U16())
	require.Equal(t, 2, s.SP())
}

func TestStackSaveRestore(t *testing.T) {
	s := NewStack(64)
	require.NoError(t, s.PushValue(NewU8(1)))
	s.Save()
	require.NoError(t, s.PushValue(NewU8(2)))
	require.Equal(t, 2, s.SP())
	require.NoError(t, s.Restore())
	require.Equal(t, 1, s.SP())
}

func TestStackRestoreWithoutSaveIsFatal(t *testing.T) {
	s := NewStack(64)
	require.ErrorIs(t, s.Restore(), ErrNoSavedStack)
}

func TestStackRegisterRoundTrip(t *testing.T) {
	s := NewStack(64)
	require.NoError(t, s.SetRegister(2, NewU16(0x1234).ToBytes()))
	got, err := s.PeekRegister(2, U16)
	require.NoError(t, err)
	require.Equal(t, uint16(0x1234), got.U16())
}

func TestStackRegisterZeroIsReserved(t *testing.T) {
	s := NewStack(64)
	err := s.SetRegister(0, []byte{1})
	require.ErrorIs(t, err, ErrRegisterOutOfBounds)
}

func TestStackRegisterOutOfBounds(t *testing.T) {
	s := NewStack(64)
	err := s.SetRegister(NumRegisters+1, []byte{1})
	require.ErrorIs(t, err, ErrRegisterOutOfBounds)
}

func TestStackRegisterOverflow(t *testing.T) {
	s := NewStack(64)
	err := s.SetRegister(1, make([]byte, UsizeBytes+1))
	require.ErrorIs(t, err, ErrRegisterOverflow)
}

func TestStackSetSPBeyondMaxIsFatal(t *testing.T) {
	s := NewStack(4)
	err := s.SetSP(5)
	require.ErrorIs(t, err, ErrStackOverflow)
}
