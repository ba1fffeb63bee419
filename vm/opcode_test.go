package vm

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func roundTrip(t *testing.T, ins Instruction) Instruction {
	t.Helper()
	encoded, err := ins.Encode()
	require.NoError(t, err)
	decoded, n, err := Decode(encoded)
	require.NoError(t, err)
	require.Equal(t, len(encoded), n)
	return decoded
}

func TestInstructionEncodeDecodeRoundTrip(t *testing.T) {
	cases := []Instruction{
		{Op: OpNop},
		{Op: OpHalt},
		{Op: OpReturn},
		{Op: OpGoto},
		{Op: OpProgramCounter},
		{Op: OpStackPointer},
		{Op: OpMove, Reg: 2, Value: NewU16(0x1234)},
		{Op: OpRegister, Type: U16, Reg: 2},
		{Op: OpMoveStackPointer, Offset: -16},
		{Op: OpPush, Value: NewI32(-10)},
		{Op: OpPop, Type: U32, Reg: 0},
		{Op: OpCopy, Type: U32},
		{Op: OpAdd, Type: I32},
		{Op: OpEquals, Type: Bool},
		{Op: OpJump, Addr: 7},
		{Op: OpExternal, Addr: 0},
		{Op: OpCall, Addr: 3},
	}
	for _, want := range cases {
		got := roundTrip(t, want)
		require.Equal(t, want.Op, got.Op)
		switch want.Op {
		case OpMove:
			require.Equal(t, want.Reg, got.Reg)
			require.Equal(t, want.Value.Bits(), got.Value.Bits())
		case OpRegister, OpPop:
			require.Equal(t, want.Type, got.Type)
			require.Equal(t, want.Reg, got.Reg)
		case OpMoveStackPointer:
			require.Equal(t, want.Offset, got.Offset)
		case OpPush:
			require.Equal(t, want.Value.Type, got.Value.Type)
			require.Equal(t, want.Value.Bits(), got.Value.Bits())
		case OpCopy, OpAdd, OpEquals:
			require.Equal(t, want.Type, got.Type)
		case OpJump, OpExternal, OpCall:
			require.Equal(t, want.Addr, got.Addr)
		}
	}
}

func TestPushAllCollapsesSingleValueToPush(t *testing.T) {
	ins := Instruction{Op: OpPushAllU8, Values: []Value{NewU8(9)}}
	encoded, err := ins.Encode()
	require.NoError(t, err)
	decoded, _, err := Decode(encoded)
	require.NoError(t, err)
	require.Equal(t, OpPush, decoded.Op)
	require.Equal(t, uint8(9), decoded.Value.U8())
}

func TestPushAllMultipleValues(t *testing.T) {
	ins := Instruction{Op: OpPushAllU8, Values: []Value{NewU8(1), NewU8(2), NewU8(3)}}
	encoded, err := ins.Encode()
	require.NoError(t, err)
	decoded, n, err := Decode(encoded)
	require.NoError(t, err)
	require.Equal(t, len(encoded), n)
	require.Len(t, decoded.Values, 3)
	require.Equal(t, uint8(1), decoded.Values[0].U8())
	require.Equal(t, uint8(3), decoded.Values[2].U8())
}

func TestPushBytesRoundTrip(t *testing.T) {
	payload := []byte("hello, world")
	ins := Instruction{Op: OpPushBytesU8, Raw: payload}
	encoded, err := ins.Encode()
	require.NoError(t, err)
	decoded, n, err := Decode(encoded)
	require.NoError(t, err)
	require.Equal(t, len(encoded), n)
	require.Equal(t, payload, decoded.Raw)
}

func TestDecodeTruncatedOperandIsFatal(t *testing.T) {
	_, _, err := Decode([]byte{byte(OpMove), 1})
	require.ErrorIs(t, err, ErrTruncatedOperand)
}

func TestDecodeUnknownOpcodeIsFatal(t *testing.T) {
	_, _, err := Decode([]byte{0x7F})
	require.ErrorIs(t, err, ErrInvalidOpCode)
}

func TestDecodeProgram(t *testing.T) {
	want := []Instruction{
		{Op: OpPush, Value: NewU8(1)},
		{Op: OpPush, Value: NewU8(2)},
		{Op: OpAdd, Type: U8},
		{Op: OpHalt},
	}
	encoded, err := EncodeProgram(want)
	require.NoError(t, err)
	got, err := DecodeProgram(encoded)
	require.NoError(t, err)
	require.Len(t, got, len(want))
	for i := range want {
		require.Equal(t, want[i].Op, got[i].Op)
	}
}
