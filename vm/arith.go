package vm

import (
	"fmt"
	"math"
)

// Arithmetic, bitwise, and comparison dispatch. spec.md §9 ("No dynamic
// dispatch on value arithmetic") calls for switching on the instruction's
// type tag once, not once per operand — every function below does exactly
// one switch over PrimitiveType and operates on both operands inline,
// generalizing the teacher's generic numeric32 compare() helper in
// vm/vm.go to the full fifteen-tag value model.

func typeMismatch(op string, t PrimitiveType) error {
	return fmt.Errorf("%w: %s does not support type %s", ErrInvalidType, op, t)
}

// Add, Subtract, Multiply, Divide, Modulo implement the binary arithmetic
// family. spec.md §4.5: operands are popped right-hand-side first, then
// left-hand-side, but arrive here already in (left, right) order.

func Add(left, right Value) (Value, error) {
	t := left.Type
	switch t {
	case U8:
		return NewU8(left.U8() + right.U8()), nil
	case I8:
		return NewI8(left.I8() + right.I8()), nil
	case U16:
		return NewU16(left.U16() + right.U16()), nil
	case I16:
		return NewI16(left.I16() + right.I16()), nil
	case U32:
		return NewU32(left.U32() + right.U32()), nil
	case I32:
		return NewI32(left.I32() + right.I32()), nil
	case U64:
		return NewU64(left.U64() + right.U64()), nil
	case I64:
		return NewI64(left.I64() + right.I64()), nil
	case F32:
		return NewF32(left.F32() + right.F32()), nil
	case F64:
		return NewF64(left.F64() + right.F64()), nil
	case Usize:
		return NewUsize(left.Usize() + right.Usize()), nil
	case Isize:
		return NewIsize(left.Isize() + right.Isize()), nil
	default:
		return Value{}, typeMismatch("Add", t)
	}
}

func Subtract(left, right Value) (Value, error) {
	t := left.Type
	switch t {
	case U8:
		return NewU8(left.U8() - right.U8()), nil
	case I8:
		return NewI8(left.I8() - right.I8()), nil
	case U16:
		return NewU16(left.U16() - right.U16()), nil
	case I16:
		return NewI16(left.I16() - right.I16()), nil
	case U32:
		return NewU32(left.U32() - right.U32()), nil
	case I32:
		return NewI32(left.I32() - right.I32()), nil
	case U64:
		return NewU64(left.U64() - right.U64()), nil
	case I64:
		return NewI64(left.I64() - right.I64()), nil
	case F32:
		return NewF32(left.F32() - right.F32()), nil
	case F64:
		return NewF64(left.F64() - right.F64()), nil
	case Usize:
		return NewUsize(left.Usize() - right.Usize()), nil
	case Isize:
		return NewIsize(left.Isize() - right.Isize()), nil
	default:
		return Value{}, typeMismatch("Subtract", t)
	}
}

func Multiply(left, right Value) (Value, error) {
	t := left.Type
	switch t {
	case U8:
		return NewU8(left.U8() * right.U8()), nil
	case I8:
		return NewI8(left.I8() * right.I8()), nil
	case U16:
		return NewU16(left.U16() * right.U16()), nil
	case I16:
		return NewI16(left.I16() * right.I16()), nil
	case U32:
		return NewU32(left.U32() * right.U32()), nil
	case I32:
		return NewI32(left.I32() * right.I32()), nil
	case U64:
		return NewU64(left.U64() * right.U64()), nil
	case I64:
		return NewI64(left.I64() * right.I64()), nil
	case F32:
		return NewF32(left.F32() * right.F32()), nil
	case F64:
		return NewF64(left.F64() * right.F64()), nil
	case Usize:
		return NewUsize(left.Usize() * right.Usize()), nil
	case Isize:
		return NewIsize(left.Isize() * right.Isize()), nil
	default:
		return Value{}, typeMismatch("Multiply", t)
	}
}

func Divide(left, right Value) (Value, error) {
	t := left.Type
	switch t {
	case U8:
		if right.U8() == 0 {
			return Value{}, ErrDivisionByZero
		}
		return NewU8(left.U8() / right.U8()), nil
	case I8:
		if right.I8() == 0 {
			return Value{}, ErrDivisionByZero
		}
		return NewI8(left.I8() / right.I8()), nil
	case U16:
		if right.U16() == 0 {
			return Value{}, ErrDivisionByZero
		}
		return NewU16(left.U16() / right.U16()), nil
	case I16:
		if right.I16() == 0 {
			return Value{}, ErrDivisionByZero
		}
		return NewI16(left.I16() / right.I16()), nil
	case U32:
		if right.U32() == 0 {
			return Value{}, ErrDivisionByZero
		}
		return NewU32(left.U32() / right.U32()), nil
	case I32:
		if right.I32() == 0 {
			return Value{}, ErrDivisionByZero
		}
		return NewI32(left.I32() / right.I32()), nil
	case U64:
		if right.U64() == 0 {
			return Value{}, ErrDivisionByZero
		}
		return NewU64(left.U64() / right.U64()), nil
	case I64:
		if right.I64() == 0 {
			return Value{}, ErrDivisionByZero
		}
		return NewI64(left.I64() / right.I64()), nil
	case F32:
		return NewF32(left.F32() / right.F32()), nil
	case F64:
		return NewF64(left.F64() / right.F64()), nil
	case Usize:
		if right.Usize() == 0 {
			return Value{}, ErrDivisionByZero
		}
		return NewUsize(left.Usize() / right.Usize()), nil
	case Isize:
		if right.Isize() == 0 {
			return Value{}, ErrDivisionByZero
		}
		return NewIsize(left.Isize() / right.Isize()), nil
	default:
		return Value{}, typeMismatch("Divide", t)
	}
}

func Modulo(left, right Value) (Value, error) {
	t := left.Type
	switch t {
	case U8:
		if right.U8() == 0 {
			return Value{}, ErrDivisionByZero
		}
		return NewU8(left.U8() % right.U8()), nil
	case I8:
		if right.I8() == 0 {
			return Value{}, ErrDivisionByZero
		}
		return NewI8(left.I8() % right.I8()), nil
	case U16:
		if right.U16() == 0 {
			return Value{}, ErrDivisionByZero
		}
		return NewU16(left.U16() % right.U16()), nil
	case I16:
		if right.I16() == 0 {
			return Value{}, ErrDivisionByZero
		}
		return NewI16(left.I16() % right.I16()), nil
	case U32:
		if right.U32() == 0 {
			return Value{}, ErrDivisionByZero
		}
		return NewU32(left.U32() % right.U32()), nil
	case I32:
		if right.I32() == 0 {
			return Value{}, ErrDivisionByZero
		}
		return NewI32(left.I32() % right.I32()), nil
	case U64:
		if right.U64() == 0 {
			return Value{}, ErrDivisionByZero
		}
		return NewU64(left.U64() % right.U64()), nil
	case I64:
		if right.I64() == 0 {
			return Value{}, ErrDivisionByZero
		}
		return NewI64(left.I64() % right.I64()), nil
	case F32:
		return NewF32(float32(math.Mod(float64(left.F32()), float64(right.F32())))), nil
	case F64:
		return NewF64(math.Mod(left.F64(), right.F64())), nil
	case Usize:
		if right.Usize() == 0 {
			return Value{}, ErrDivisionByZero
		}
		return NewUsize(left.Usize() % right.Usize()), nil
	case Isize:
		if right.Isize() == 0 {
			return Value{}, ErrDivisionByZero
		}
		return NewIsize(left.Isize() % right.Isize()), nil
	default:
		return Value{}, typeMismatch("Modulo", t)
	}
}

// Negative promotes unsigned types to their signed counterpart before
// negating, matching vm/src/vm.rs's negative() handler: U8->I8, U16->I16,
// U32->I32, U64->I64, Usize->Isize; already-signed/float types negate in
// place. Bool/Bytes/String are fatal.
func Negative(v Value) (Value, error) {
	switch v.Type {
	case U8:
		return NewI8(-int8(v.U8())), nil
	case I8:
		return NewI8(-v.I8()), nil
	case U16:
		return NewI16(-int16(v.U16())), nil
	case I16:
		return NewI16(-v.I16()), nil
	case U32:
		return NewI32(-int32(v.U32())), nil
	case I32:
		return NewI32(-v.I32()), nil
	case U64:
		return NewI64(-int64(v.U64())), nil
	case I64:
		return NewI64(-v.I64()), nil
	case F32:
		return NewF32(-v.F32()), nil
	case F64:
		return NewF64(-v.F64()), nil
	case Usize:
		return NewIsize(-int64(v.Usize())), nil
	case Isize:
		return NewIsize(-v.Isize()), nil
	default:
		return Value{}, typeMismatch("Negative", v.Type)
	}
}

// Power computes base**exponent. Per spec.md §9, a signed negative exponent
// on an integer base is rejected as a fatal InvalidType rather than
// replicating the reference's ambiguous try_into().unwrap() panic.
func Power(base, exponent Value) (Value, error) {
	t := base.Type
	switch t {
	case U8, U16, U32, U64, Usize:
		var exp uint64
		switch exponent.Type {
		case I8, I16, I32, I64, Isize:
			signed := signedBits(exponent)
			if signed < 0 {
				return Value{}, fmt.Errorf("%w: negative exponent on unsigned base %s", ErrInvalidType, t)
			}
			exp = uint64(signed)
		default:
			exp = unsignedBits(exponent)
		}
		return intPow(t, unsignedBits(base), exp)
	case I8, I16, I32, I64, Isize:
		var exp uint64
		switch exponent.Type {
		case I8, I16, I32, I64, Isize:
			signed := signedBits(exponent)
			if signed < 0 {
				return Value{}, fmt.Errorf("%w: negative exponent on integer base %s", ErrInvalidType, t)
			}
			exp = uint64(signed)
		default:
			exp = unsignedBits(exponent)
		}
		return intPowSigned(t, signedBits(base), exp)
	case F32:
		return NewF32(float32(math.Pow(float64(base.F32()), float64(exponent.F32())))), nil
	case F64:
		return NewF64(math.Pow(base.F64(), exponent.F64())), nil
	default:
		return Value{}, typeMismatch("Power", t)
	}
}

func unsignedBits(v Value) uint64 { return v.Bits() }
func signedBits(v Value) int64 {
	switch v.Type {
	case I8:
		return int64(v.I8())
	case I16:
		return int64(v.I16())
	case I32:
		return int64(v.I32())
	case I64:
		return v.I64()
	case Isize:
		return v.Isize()
	default:
		return int64(v.Bits())
	}
}

func intPow(t PrimitiveType, base, exp uint64) (Value, error) {
	result := uint64(1)
	for i := uint64(0); i < exp; i++ {
		result *= base
	}
	switch t {
	case U8:
		return NewU8(uint8(result)), nil
	case U16:
		return NewU16(uint16(result)), nil
	case U32:
		return NewU32(uint32(result)), nil
	case U64:
		return NewU64(result), nil
	case Usize:
		return NewUsize(result), nil
	default:
		return Value{}, typeMismatch("Power", t)
	}
}

func intPowSigned(t PrimitiveType, base int64, exp uint64) (Value, error) {
	result := int64(1)
	for i := uint64(0); i < exp; i++ {
		result *= base
	}
	switch t {
	case I8:
		return NewI8(int8(result)), nil
	case I16:
		return NewI16(int16(result)), nil
	case I32:
		return NewI32(int32(result)), nil
	case I64:
		return NewI64(result), nil
	case Isize:
		return NewIsize(result), nil
	default:
		return Value{}, typeMismatch("Power", t)
	}
}

// Increment/Decrement are Add/Subtract by the type's literal 1.
func Increment(v Value) (Value, error) { return Add(v, one(v.Type)) }
func Decrement(v Value) (Value, error) { return Subtract(v, one(v.Type)) }

func one(t PrimitiveType) Value {
	switch t {
	case F32:
		return NewF32(1)
	case F64:
		return NewF64(1)
	default:
		return Value{Type: t, bits: 1}
	}
}

// And, Or, XOr: logical on Bool, bitwise on every integer width. Floats,
// Bytes and String are fatal (vm/src/vm.rs's and/or/xor handlers agree).
func And(left, right Value) (Value, error) { return bitwise(left, right, "And", func(a, b uint64) uint64 { return a & b }) }
func Or(left, right Value) (Value, error)  { return bitwise(left, right, "Or", func(a, b uint64) uint64 { return a | b }) }
func Xor(left, right Value) (Value, error) { return bitwise(left, right, "XOr", func(a, b uint64) uint64 { return a ^ b }) }

func bitwise(left, right Value, op string, f func(a, b uint64) uint64) (Value, error) {
	t := left.Type
	switch t {
	case Bool:
		return NewBool(f(left.Bits(), right.Bits()) != 0), nil
	case U8, I8, U16, I16, U32, I32, U64, I64, Usize, Isize:
		return maskedResult(t, f(left.Bits(), right.Bits())), nil
	default:
		return Value{}, typeMismatch(op, t)
	}
}

func maskedResult(t PrimitiveType, bits uint64) Value {
	size, _ := Size(t)
	if size < 8 {
		bits &= (uint64(1) << (uint(size) * 8)) - 1
	}
	return Value{Type: t, bits: bits}
}

// Not: bitwise complement per integer width, logical negation on Bool.
func Not(v Value) (Value, error) {
	switch v.Type {
	case Bool:
		return NewBool(!v.Bool()), nil
	case U8, I8, U16, I16, U32, I32, U64, I64, Usize, Isize:
		return maskedResult(v.Type, ^v.Bits()), nil
	default:
		return Value{}, typeMismatch("Not", v.Type)
	}
}

// ShiftLeft, ShiftRight: both operands are of the declared type T (spec.md
// §4.5's general "pop two operands of type T" operand discipline — this
// implementation does not replicate the reference's inconsistent
// always-read-the-shift-amount-as-u8 behavior; see DESIGN.md).
func ShiftLeft(left, right Value) (Value, error) {
	return shift(left, right, "ShiftLeft", func(a uint64, n uint) uint64 { return a << n })
}
func ShiftRight(left, right Value) (Value, error) {
	return shift(left, right, "ShiftRight", func(a uint64, n uint) uint64 { return a >> n })
}

func shift(left, right Value, op string, f func(a uint64, n uint) uint64) (Value, error) {
	t := left.Type
	switch t {
	case U8, I8, U16, I16, U32, I32, U64, I64, Usize, Isize:
		return maskedResult(t, f(left.Bits(), uint(right.Bits()&63))), nil
	default:
		return Value{}, typeMismatch(op, t)
	}
}

// Comparisons push Bool uniformly (spec.md §4.2); unlike the reference's
// NotEquals special case, every comparison here goes through the same
// typed-equality/ordering path.
func compareValues(left, right Value) (int, error) {
	t := left.Type
	switch t {
	case Bool:
		lb, rb := left.Bits(), right.Bits()
		if lb == rb {
			return 0, nil
		} else if lb < rb {
			return -1, nil
		}
		return 1, nil
	case U8, U16, U32, U64, Usize:
		a, b := left.Bits(), right.Bits()
		if a == b {
			return 0, nil
		} else if a < b {
			return -1, nil
		}
		return 1, nil
	case I8:
		return cmpOrdered(int64(left.I8()), int64(right.I8())), nil
	case I16:
		return cmpOrdered(int64(left.I16()), int64(right.I16())), nil
	case I32:
		return cmpOrdered(int64(left.I32()), int64(right.I32())), nil
	case I64:
		return cmpOrdered(left.I64(), right.I64()), nil
	case Isize:
		return cmpOrdered(left.Isize(), right.Isize()), nil
	case F32:
		return cmpOrderedFloat(float64(left.F32()), float64(right.F32())), nil
	case F64:
		return cmpOrderedFloat(left.F64(), right.F64()), nil
	case Bytes:
		return cmpBytes(left.Bytes(), right.Bytes()), nil
	case String:
		return cmpBytes(left.Bytes(), right.Bytes()), nil
	default:
		return 0, typeMismatch("compare", t)
	}
}

func cmpOrdered(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func cmpOrderedFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func cmpBytes(a, b []byte) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			if a[i] < b[i] {
				return -1
			}
			return 1
		}
	}
	return cmpOrdered(int64(len(a)), int64(len(b)))
}

func Equals(left, right Value) (Value, error) {
	c, err := compareValues(left, right)
	return NewBool(c == 0), err
}
func NotEquals(left, right Value) (Value, error) {
	c, err := compareValues(left, right)
	return NewBool(c != 0), err
}
func GreaterThan(left, right Value) (Value, error) {
	c, err := compareValues(left, right)
	return NewBool(c > 0), err
}
func GreaterOrEqual(left, right Value) (Value, error) {
	c, err := compareValues(left, right)
	return NewBool(c >= 0), err
}
func LessThan(left, right Value) (Value, error) {
	c, err := compareValues(left, right)
	return NewBool(c < 0), err
}
func LessOrEqual(left, right Value) (Value, error) {
	c, err := compareValues(left, right)
	return NewBool(c <= 0), err
}
