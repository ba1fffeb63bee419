package vm

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestValueRoundTrip(t *testing.T) {
	cases := []Value{
		NewBool(true),
		NewBool(false),
		NewU8(0xAB),
		NewI8(-5),
		NewU16(0xBEEF),
		NewI16(-1234),
		NewU32(0xDEADBEEF),
		NewI32(-123456),
		NewU64(0x0102030405060708),
		NewI64(-9999999999),
		NewF32(3.5),
		NewF64(-2.25),
		NewUsize(42),
		NewIsize(-42),
	}
	for _, want := range cases {
		got, err := ValueFromBytes(want.ToBytes(), want.Type)
		require.NoError(t, err, want.Type)
		require.Equal(t, want.Bits(), got.Bits(), "round-trip mismatch for %s", want.Type)
	}
}

func TestValueRoundTripBytesAndString(t *testing.T) {
	b := NewBytes([]byte{1, 2, 3})
	got, err := ValueFromBytes(b.ToBytes(), Bytes)
	require.NoError(t, err)
	require.Equal(t, b.Bytes(), got.Bytes())

	s := NewString("hello")
	gotS, err := ValueFromBytes(s.ToBytes(), String)
	require.NoError(t, err)
	require.Equal(t, "hello", gotS.String_())
}

func TestTypeFromByteUnknown(t *testing.T) {
	_, err := TypeFromByte(0xFF)
	require.Error(t, err)
}

func TestTypeFromName(t *testing.T) {
	for name, want := range typeFromName {
		got, ok := TypeFromName(name)
		require.True(t, ok)
		require.Equal(t, want, got)
	}
	_, ok := TypeFromName("not-a-type")
	require.False(t, ok)
}

func TestSize(t *testing.T) {
	widths := map[PrimitiveType]int{
		Bool: 1, U8: 1, I8: 1,
		U16: 2, I16: 2,
		U32: 4, I32: 4, F32: 4,
		U64: 8, I64: 8, F64: 8,
		Usize: UsizeBytes, Isize: UsizeBytes,
	}
	for ty, want := range widths {
		got, ok := Size(ty)
		require.True(t, ok)
		require.Equal(t, want, got, ty)
	}
	_, ok := Size(String)
	require.False(t, ok)
	_, ok = Size(Bytes)
	require.False(t, ok)
}
