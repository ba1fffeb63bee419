package asm

import (
	"fmt"
	"strconv"
	"strings"

	"svm/vm"
)

// parseIntMagnitude parses the unsigned digits of lit (no leading sign) in
// whichever base its prefix names: 0x (hex), 0b (binary), 0o (octal), or
// decimal otherwise (spec.md §4.1).
func parseIntMagnitude(lit string, bits int) (uint64, error) {
	base := 10
	switch {
	case strings.HasPrefix(lit, "0x"), strings.HasPrefix(lit, "0X"):
		base = 16
		lit = lit[2:]
	case strings.HasPrefix(lit, "0b"), strings.HasPrefix(lit, "0B"):
		base = 2
		lit = lit[2:]
	case strings.HasPrefix(lit, "0o"), strings.HasPrefix(lit, "0O"):
		base = 8
		lit = lit[2:]
	}
	if lit == "" {
		return 0, fmt.Errorf("%w: empty numeric literal", vm.ErrNumberParse)
	}
	n, err := strconv.ParseUint(lit, base, bits)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", vm.ErrNumberParse, err)
	}
	return n, nil
}

// parseSignedLiteral splits off an optional leading '-' and parses the
// remainder as an unsigned magnitude in the literal's base, then negates.
// spec.md §9 leaves this choice open ("stripping the base prefix... or
// two's-complement reinterpretation"); this implementation strips the
// sign first and negates the resulting magnitude — the reading consistent
// with scenario 2 in spec.md §8 (`-0x0A` must mean decimal -10, not a
// reinterpreted 8-bit bit pattern). A result that does not fit in a signed
// integer of the given bit width fails with NumberParse.
func parseSignedLiteral(lit string, bits int) (int64, error) {
	orig := lit
	neg := false
	if strings.HasPrefix(lit, "-") {
		neg = true
		lit = lit[1:]
	} else if strings.HasPrefix(lit, "+") {
		lit = lit[1:]
	}
	mag, err := parseIntMagnitude(lit, bits)
	if err != nil {
		return 0, err
	}
	limit := uint64(1) << (uint(bits) - 1)
	if mag > limit || (!neg && mag == limit) {
		return 0, fmt.Errorf("%w: %q does not fit a %d-bit signed integer", vm.ErrNumberParse, orig, bits)
	}
	v := int64(mag)
	if neg {
		v = -v
	}
	return v, nil
}

// ParseValueForType parses lit as a literal of the given known type tag,
// using the minimal width that type implies and failing with NumberParse
// if the value is out of range (spec.md §4.1). A %reg operand is resolved
// through the same registerNames binding REG uses and contributes its
// bound index as the value, per spec.md §4.4's register->Usize rule
// (`_examples/original_source/assembler/src/assembler.rs`'s PUSH arm:
// `Operand::Register(register) => ... registers.get(register)`).
func ParseValueForType(lit string, t vm.PrimitiveType) (vm.Value, error) {
	if reg, ok := register(lit); ok {
		return valueFromUint(uint64(reg), t)
	}
	switch t {
	case vm.Bool:
		switch lit {
		case "true":
			return vm.NewBool(true), nil
		case "false":
			return vm.NewBool(false), nil
		default:
			return vm.Value{}, fmt.Errorf("%w: %q is not a bool literal", vm.ErrNumberParse, lit)
		}
	case vm.F32:
		f, err := strconv.ParseFloat(lit, 32)
		if err != nil {
			return vm.Value{}, fmt.Errorf("%w: %v", vm.ErrNumberParse, err)
		}
		return vm.NewF32(float32(f)), nil
	case vm.F64:
		f, err := strconv.ParseFloat(lit, 64)
		if err != nil {
			return vm.Value{}, fmt.Errorf("%w: %v", vm.ErrNumberParse, err)
		}
		return vm.NewF64(f), nil
	case vm.U8, vm.U16, vm.U32, vm.U64, vm.Usize:
		if ch, ok := charLiteral(lit); ok {
			lit = strconv.Itoa(int(ch))
		}
		bits, _ := vm.Size(t)
		n, err := parseIntMagnitude(strings.TrimPrefix(lit, "+"), bits*8)
		if err != nil {
			return vm.Value{}, err
		}
		switch t {
		case vm.U8:
			return vm.NewU8(uint8(n)), nil
		case vm.U16:
			return vm.NewU16(uint16(n)), nil
		case vm.U32:
			return vm.NewU32(uint32(n)), nil
		case vm.U64:
			return vm.NewU64(n), nil
		default:
			return vm.NewUsize(n), nil
		}
	case vm.I8, vm.I16, vm.I32, vm.I64, vm.Isize:
		if ch, ok := charLiteral(lit); ok {
			lit = strconv.Itoa(int(ch))
		}
		size, _ := vm.Size(t)
		n, err := parseSignedLiteral(lit, size*8)
		if err != nil {
			return vm.Value{}, err
		}
		switch t {
		case vm.I8:
			return vm.NewI8(int8(n)), nil
		case vm.I16:
			return vm.NewI16(int16(n)), nil
		case vm.I32:
			return vm.NewI32(int32(n)), nil
		case vm.I64:
			return vm.NewI64(n), nil
		default:
			return vm.NewIsize(n), nil
		}
	case vm.String:
		s, err := unquoteString(lit)
		if err != nil {
			return vm.Value{}, err
		}
		return vm.NewString(s), nil
	case vm.Bytes:
		s, err := unquoteString(lit)
		if err != nil {
			return vm.Value{}, err
		}
		return vm.NewBytes([]byte(s)), nil
	default:
		return vm.Value{}, fmt.Errorf("%w: cannot parse a literal of type %s", vm.ErrNumberParse, t)
	}
}

// valueFromUint builds a Value of type t out of a raw magnitude, used for
// the register-index operand form of PUSH (ParseValueForType).
func valueFromUint(n uint64, t vm.PrimitiveType) (vm.Value, error) {
	switch t {
	case vm.U8:
		return vm.NewU8(uint8(n)), nil
	case vm.U16:
		return vm.NewU16(uint16(n)), nil
	case vm.U32:
		return vm.NewU32(uint32(n)), nil
	case vm.U64:
		return vm.NewU64(n), nil
	case vm.Usize:
		return vm.NewUsize(n), nil
	case vm.I8:
		return vm.NewI8(int8(n)), nil
	case vm.I16:
		return vm.NewI16(int16(n)), nil
	case vm.I32:
		return vm.NewI32(int32(n)), nil
	case vm.I64:
		return vm.NewI64(int64(n)), nil
	case vm.Isize:
		return vm.NewIsize(int64(n)), nil
	case vm.Bool:
		return vm.NewBool(n != 0), nil
	default:
		return vm.Value{}, fmt.Errorf("%w: a register operand cannot hold type %s", vm.ErrAssemblerSyntax, t)
	}
}

// InferType picks a PrimitiveType for a literal with no declared type tag,
// per spec.md §4.4: boolean -> Bool, character -> I32, register -> Usize,
// integer -> the smallest signed/unsigned tag that fits.
func InferType(lit string) (vm.PrimitiveType, error) {
	if lit == "true" || lit == "false" {
		return vm.Bool, nil
	}
	if _, ok := register(lit); ok {
		return vm.Usize, nil
	}
	if _, ok := charLiteral(lit); ok {
		return vm.I32, nil
	}
	if strings.ContainsAny(lit, ".") {
		return vm.F64, nil
	}

	neg := strings.HasPrefix(lit, "-")
	magLit := strings.TrimPrefix(strings.TrimPrefix(lit, "-"), "+")
	mag, err := parseIntMagnitude(magLit, 64)
	if err != nil {
		return 0, err
	}

	if neg {
		for _, t := range []vm.PrimitiveType{vm.I8, vm.I16, vm.I32, vm.I64} {
			size, _ := vm.Size(t)
			limit := uint64(1) << (uint(size)*8 - 1)
			if mag <= limit {
				return t, nil
			}
		}
		return 0, fmt.Errorf("%w: %q does not fit any signed integer type", vm.ErrNumberParse, lit)
	}

	for _, t := range []vm.PrimitiveType{vm.U8, vm.U16, vm.U32, vm.U64} {
		size, _ := vm.Size(t)
		var limit uint64
		if size == 8 {
			limit = ^uint64(0)
		} else {
			limit = uint64(1)<<(uint(size)*8) - 1
		}
		if mag <= limit {
			return t, nil
		}
	}
	return 0, fmt.Errorf("%w: %q does not fit any unsigned integer type", vm.ErrNumberParse, lit)
}

// widerOf returns whichever of a, b has the higher width rank, for the
// PUSH-without-type-tag widening rule in spec.md §4.4. Ranks follow byte
// width only: signed, unsigned and float types of one width share a rank,
// and on a tie the first argument is kept, so signedness is not reconciled
// (U8 and I8 yield whichever came first). Bool has the lowest rank, so any
// numeric type wins over it.
var widthRank = map[vm.PrimitiveType]int{
	vm.Bool: 0,
	vm.U8: 1, vm.I8: 1,
	vm.U16: 2, vm.I16: 2,
	vm.U32: 3, vm.I32: 3, vm.F32: 3,
	vm.U64: 4, vm.I64: 4, vm.F64: 4, vm.Usize: 4, vm.Isize: 4,
}

func widerOf(a, b vm.PrimitiveType) vm.PrimitiveType {
	if widthRank[b] > widthRank[a] {
		return b
	}
	return a
}

func charLiteral(lit string) (rune, bool) {
	if len(lit) < 3 || lit[0] != '\'' || lit[len(lit)-1] != '\'' {
		return 0, false
	}
	body := unescape(lit[1 : len(lit)-1])
	runes := []rune(body)
	if len(runes) != 1 {
		return 0, false
	}
	return runes[0], true
}

func unquoteString(lit string) (string, error) {
	if len(lit) < 2 || lit[0] != '"' || lit[len(lit)-1] != '"' {
		return "", fmt.Errorf("%w: unterminated string literal: %s", vm.ErrAssemblerSyntax, lit)
	}
	return unescape(lit[1 : len(lit)-1]), nil
}

var escapes = map[byte]byte{'n': '\n', 'r': '\r', 't': '\t', '0': 0, '\\': '\\'}

func unescape(s string) string {
	var sb strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+1 < len(s) {
			if r, ok := escapes[s[i+1]]; ok {
				sb.WriteByte(r)
				i++
				continue
			}
		}
		sb.WriteByte(s[i])
	}
	return sb.String()
}
