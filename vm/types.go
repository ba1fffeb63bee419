package vm

import (
	"encoding/binary"
	"fmt"
	"math"
)

// PrimitiveType is the closed set of value kinds the VM understands. The
// byte values below are part of the wire format and must never be
// renumbered: existing .bin files depend on them staying put.
type PrimitiveType byte

const (
	U8     PrimitiveType = 0x00
	I8     PrimitiveType = 0x01
	U16    PrimitiveType = 0x02
	I16    PrimitiveType = 0x03
	U32    PrimitiveType = 0x04
	I32    PrimitiveType = 0x05
	U64    PrimitiveType = 0x06
	I64    PrimitiveType = 0x07
	F32    PrimitiveType = 0x08
	F64    PrimitiveType = 0x09
	Usize  PrimitiveType = 0x0A
	Bool   PrimitiveType = 0x0C
	Isize  PrimitiveType = 0x0D
	String PrimitiveType = 0x0E
	Bytes  PrimitiveType = 0x0F
)

// UsizeBytes is the pointer width of the host this VM/bytecode pair is built
// for. spec.md requires Usize/Isize-sized operands to match the host running
// the VM; we fix it at 8 (amd64/arm64) rather than deriving it from
// unsafe.Sizeof, since the wire format has no room for a runtime-variable
// width and cross-host interchange is explicitly not guaranteed anyway.
const UsizeBytes = 8

var typeNames = map[PrimitiveType]string{
	Bool: "bool", U8: "u8", I8: "i8", U16: "u16", I16: "i16",
	U32: "u32", I32: "i32", U64: "u64", I64: "i64",
	F32: "f32", F64: "f64", Usize: "usize", Isize: "isize",
	String: "str", Bytes: "bytes",
}

var typeFromName = func() map[string]PrimitiveType {
	m := make(map[string]PrimitiveType, len(typeNames))
	for t, name := range typeNames {
		m[name] = t
	}
	return m
}()

func (t PrimitiveType) String() string {
	if name, ok := typeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("PrimitiveType(0x%02x)", byte(t))
}

// TypeFromName resolves an assembler type-name token ("u8", "usize", ...)
// to its PrimitiveType, as used by PUSH/MOV/REG/... operand parsing.
func TypeFromName(name string) (PrimitiveType, bool) {
	t, ok := typeFromName[name]
	return t, ok
}

// TypeFromByte decodes a wire type-tag byte. An unrecognized code is always
// a fatal decode error (spec.md §4.2, "unknown type tag").
func TypeFromByte(b byte) (PrimitiveType, error) {
	t := PrimitiveType(b)
	if _, ok := typeNames[t]; !ok {
		return 0, fmt.Errorf("%w: type tag 0x%02x", ErrInvalidType, b)
	}
	return t, nil
}

// Size reports the fixed in-memory width of t. Bytes and String have no
// intrinsic static size; ok is false for them.
func Size(t PrimitiveType) (size int, ok bool) {
	switch t {
	case Bool, U8, I8:
		return 1, true
	case U16, I16:
		return 2, true
	case U32, I32, F32:
		return 4, true
	case U64, I64, F64:
		return 8, true
	case Usize, Isize:
		return UsizeBytes, true
	default:
		return 0, false
	}
}

// Value is a tagged variant carrying the payload for exactly one
// PrimitiveType. Numeric and Bool payloads are stored in bits (the raw
// big-endian-independent machine representation); Bytes/String payloads
// live in raw. The two are never both meaningful for the same Value.
type Value struct {
	Type PrimitiveType
	bits uint64
	raw  []byte
}

func NewBool(v bool) Value {
	if v {
		return Value{Type: Bool, bits: 1}
	}
	return Value{Type: Bool}
}

func NewU8(v uint8) Value   { return Value{Type: U8, bits: uint64(v)} }
func NewI8(v int8) Value    { return Value{Type: I8, bits: uint64(uint8(v))} }
func NewU16(v uint16) Value { return Value{Type: U16, bits: uint64(v)} }
func NewI16(v int16) Value  { return Value{Type: I16, bits: uint64(uint16(v))} }
func NewU32(v uint32) Value { return Value{Type: U32, bits: uint64(v)} }
func NewI32(v int32) Value  { return Value{Type: I32, bits: uint64(uint32(v))} }
func NewU64(v uint64) Value { return Value{Type: U64, bits: v} }
func NewI64(v int64) Value  { return Value{Type: I64, bits: uint64(v)} }
func NewF32(v float32) Value {
	return Value{Type: F32, bits: uint64(math.Float32bits(v))}
}
func NewF64(v float64) Value { return Value{Type: F64, bits: math.Float64bits(v)} }
func NewUsize(v uint64) Value { return Value{Type: Usize, bits: v} }
func NewIsize(v int64) Value  { return Value{Type: Isize, bits: uint64(v)} }
func NewBytes(b []byte) Value {
	cp := make([]byte, len(b))
	copy(cp, b)
	return Value{Type: Bytes, raw: cp}
}
func NewString(s string) Value { return Value{Type: String, raw: []byte(s)} }

func (v Value) U8() uint8     { return uint8(v.bits) }
func (v Value) I8() int8      { return int8(uint8(v.bits)) }
func (v Value) U16() uint16   { return uint16(v.bits) }
func (v Value) I16() int16    { return int16(uint16(v.bits)) }
func (v Value) U32() uint32   { return uint32(v.bits) }
func (v Value) I32() int32    { return int32(uint32(v.bits)) }
func (v Value) U64() uint64   { return v.bits }
func (v Value) I64() int64    { return int64(v.bits) }
func (v Value) F32() float32  { return math.Float32frombits(uint32(v.bits)) }
func (v Value) F64() float64  { return math.Float64frombits(v.bits) }
func (v Value) Usize() uint64 { return v.bits }
func (v Value) Isize() int64  { return int64(v.bits) }
func (v Value) Bool() bool    { return v.bits != 0 }
func (v Value) Bytes() []byte { return v.raw }
func (v Value) String_() string {
	return string(v.raw)
}

// Bits returns the raw numeric/bool bit pattern, used by the arithmetic
// dispatch and by register storage where a Usize-wide cell holds any
// fixed-width value right-aligned.
func (v Value) Bits() uint64 { return v.bits }

// ToBytes encodes v per spec.md §4.1: big-endian for numerics, a single
// 0/1 byte for Bool, raw payload for Bytes, UTF-8 bytes for String.
func (v Value) ToBytes() []byte {
	switch v.Type {
	case Bool:
		if v.bits != 0 {
			return []byte{1}
		}
		return []byte{0}
	case Bytes, String:
		return v.raw
	default:
		size, _ := Size(v.Type)
		buf := make([]byte, size)
		switch size {
		case 1:
			buf[0] = byte(v.bits)
		case 2:
			binary.BigEndian.PutUint16(buf, uint16(v.bits))
		case 4:
			binary.BigEndian.PutUint32(buf, uint32(v.bits))
		case 8:
			binary.BigEndian.PutUint64(buf, v.bits)
		}
		return buf
	}
}

// ValueFromBytes is the inverse of ToBytes. For fixed-width tags it reads
// exactly Size(t) bytes from the front of data. For String/Bytes the
// entire slice is consumed — the caller (an opcode decoder or the stack)
// is responsible for having already isolated the right number of bytes,
// per spec.md §4.1's "the convention of the surrounding context supplies
// the length".
func ValueFromBytes(data []byte, t PrimitiveType) (Value, error) {
	if t == Bytes {
		return NewBytes(data), nil
	}
	if t == String {
		return NewString(string(data)), nil
	}

	size, ok := Size(t)
	if !ok {
		return Value{}, fmt.Errorf("%w: %s has no fixed size", ErrInvalidType, t)
	}
	if len(data) < size {
		return Value{}, fmt.Errorf("%w: need %d bytes for %s, got %d", ErrTruncatedOperand, size, t, len(data))
	}
	data = data[:size]

	switch t {
	case Bool:
		return NewBool(data[0] != 0), nil
	case U8:
		return NewU8(data[0]), nil
	case I8:
		return NewI8(int8(data[0])), nil
	case U16:
		return NewU16(binary.BigEndian.Uint16(data)), nil
	case I16:
		return NewI16(int16(binary.BigEndian.Uint16(data))), nil
	case U32:
		return NewU32(binary.BigEndian.Uint32(data)), nil
	case I32:
		return NewI32(int32(binary.BigEndian.Uint32(data))), nil
	case U64:
		return NewU64(binary.BigEndian.Uint64(data)), nil
	case I64:
		return NewI64(int64(binary.BigEndian.Uint64(data))), nil
	case F32:
		return NewF32(math.Float32frombits(binary.BigEndian.Uint32(data))), nil
	case F64:
		return NewF64(math.Float64frombits(binary.BigEndian.Uint64(data))), nil
	case Usize:
		return NewUsize(binary.BigEndian.Uint64(data)), nil
	case Isize:
		return NewIsize(int64(binary.BigEndian.Uint64(data))), nil
	default:
		return Value{}, fmt.Errorf("%w: unhandled type %s", ErrInvalidType, t)
	}
}

func (v Value) String() string {
	switch v.Type {
	case Bool:
		return fmt.Sprintf("bool(%v)", v.Bool())
	case U8:
		return fmt.Sprintf("u8(%d)", v.U8())
	case I8:
		return fmt.Sprintf("i8(%d)", v.I8())
	case U16:
		return fmt.Sprintf("u16(%d)", v.U16())
	case I16:
		return fmt.Sprintf("i16(%d)", v.I16())
	case U32:
		return fmt.Sprintf("u32(%d)", v.U32())
	case I32:
		return fmt.Sprintf("i32(%d)", v.I32())
	case U64:
		return fmt.Sprintf("u64(%d)", v.U64())
	case I64:
		return fmt.Sprintf("i64(%d)", v.I64())
	case F32:
		return fmt.Sprintf("f32(%v)", v.F32())
	case F64:
		return fmt.Sprintf("f64(%v)", v.F64())
	case Usize:
		return fmt.Sprintf("usize(%d)", v.Usize())
	case Isize:
		return fmt.Sprintf("isize(%d)", v.Isize())
	case Bytes:
		return fmt.Sprintf("bytes(%d)", len(v.raw))
	case String:
		return fmt.Sprintf("str(%q)", string(v.raw))
	default:
		return "invalid-value"
	}
}
