// Package asm implements the two-pass text assembler from spec.md §4.4:
// label resolution first, then per-mnemonic instruction emission, grounded
// in the teacher's compile.go (_reference_teacher/vm/compile.go) preprocess
// + parseInputLine shape but generalized from a packed uint32-arg
// instruction to the typed vm.Instruction/vm.Value model.
package asm

import (
	"fmt"
	"strings"

	"svm/vm"
)

// registerNames binds the assembler's register mnemonics to the fixed
// indices spec.md §9 resolves the Goto convention against: 1 is "addr",
// 2-4 are general purpose.
var registerNames = map[string]byte{
	"addr": vm.AddrRegister,
	"a":    2,
	"b":    3,
	"c":    4,
}

// Assemble translates a full source program to a decoded instruction list.
func Assemble(source string) ([]vm.Instruction, error) {
	lines := lex(source)

	labels, err := resolveLabels(lines)
	if err != nil {
		return nil, err
	}

	program := make([]vm.Instruction, 0, len(lines))
	for _, ln := range lines {
		if ln.label != "" {
			continue
		}
		ins, err := assembleLine(ln, labels)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", ln.lineNo, err)
		}
		program = append(program, ins)
	}
	return program, nil
}

// resolveLabels is Pass A: walk the line list counting only
// instruction-producing lines, recording each label's target as the index
// of the next instruction that will be emitted.
func resolveLabels(lines []sourceLine) (map[string]int, error) {
	labels := make(map[string]int)
	index := 0
	for _, ln := range lines {
		if ln.label != "" {
			if _, dup := labels[ln.label]; dup {
				return nil, fmt.Errorf("line %d: %w: duplicate label %q", ln.lineNo, vm.ErrAssemblerSyntax, ln.label)
			}
			labels[ln.label] = index
			continue
		}
		index++
	}
	return labels, nil
}

func register(tok string) (byte, bool) {
	if !strings.HasPrefix(tok, "%") {
		return 0, false
	}
	reg, ok := registerNames[tok[1:]]
	return reg, ok
}

func resolveLabel(tok string, labels map[string]int) (uint64, error) {
	if !strings.HasPrefix(tok, ".") {
		return 0, fmt.Errorf("%w: expected a .label reference, got %q", vm.ErrAssemblerSyntax, tok)
	}
	name := tok[1:]
	idx, ok := labels[name]
	if !ok {
		return 0, fmt.Errorf("%w: %q", vm.ErrUnknownLabel, name)
	}
	return uint64(idx), nil
}

func resolveType(tok string) (vm.PrimitiveType, error) {
	t, ok := vm.TypeFromName(tok)
	if !ok {
		return 0, fmt.Errorf("%w: unknown type name %q", vm.ErrAssemblerSyntax, tok)
	}
	return t, nil
}

// nullary maps zero-operand mnemonics directly to their opcode.
var nullary = map[string]vm.Op{
	"NOP":  vm.OpNop,
	"HALT": vm.OpHalt,
	"PC":   vm.OpProgramCounter,
	"SP":   vm.OpStackPointer,
	"GOTO": vm.OpGoto,
	"GZ":   vm.OpGotoIfZero,
	"GNZ":  vm.OpGotoIfNotZero,
	"RET":  vm.OpReturn,
}

// typedUnary maps mnemonics whose sole operand is a type tag to their
// opcode — arithmetic, bitwise, comparison and COPY all share this shape
// (spec.md §4.2). TYPE also takes a single type operand but is handled by
// assembleType.
var typedUnary = map[string]vm.Op{
	"COPY": vm.OpCopy, "INC": vm.OpIncrement, "DEC": vm.OpDecrement,
	"ADD": vm.OpAdd, "SUB": vm.OpSubtract, "MUL": vm.OpMultiply,
	"DIV": vm.OpDivide, "MOD": vm.OpModulo, "NEG": vm.OpNegative,
	"POW": vm.OpPower, "AND": vm.OpAnd, "OR": vm.OpOr, "XOR": vm.OpXor,
	"NOT": vm.OpNot, "SHL": vm.OpShiftLeft, "SHR": vm.OpShiftRight,
	"EQ": vm.OpEquals, "NEQ": vm.OpNotEquals, "GT": vm.OpGreaterThan,
	"GTE": vm.OpGreaterOrEqual, "LT": vm.OpLessThan, "LTE": vm.OpLessOrEqual,
}

// labelJump maps mnemonics whose sole operand is a .label reference.
var labelJump = map[string]vm.Op{
	"JMP": vm.OpJump, "JZ": vm.OpJumpIfZero, "JNZ": vm.OpJumpIfNotZero,
	"CALL": vm.OpCall,
}

func assembleLine(ln sourceLine, labels map[string]int) (vm.Instruction, error) {
	mnemonic := strings.ToUpper(ln.tokens[0])
	operands := ln.tokens[1:]

	if op, ok := nullary[mnemonic]; ok {
		if len(operands) != 0 {
			return vm.Instruction{}, fmt.Errorf("%w: %s takes no operands", vm.ErrAssemblerSyntax, mnemonic)
		}
		return vm.Instruction{Op: op}, nil
	}

	if op, ok := typedUnary[mnemonic]; ok {
		if len(operands) != 1 {
			return vm.Instruction{}, fmt.Errorf("%w: %s expects a single type operand", vm.ErrAssemblerSyntax, mnemonic)
		}
		t, err := resolveType(operands[0])
		if err != nil {
			return vm.Instruction{}, err
		}
		return vm.Instruction{Op: op, Type: t}, nil
	}

	if op, ok := labelJump[mnemonic]; ok {
		if len(operands) != 1 {
			return vm.Instruction{}, fmt.Errorf("%w: %s expects a single label operand", vm.ErrAssemblerSyntax, mnemonic)
		}
		addr, err := resolveLabel(operands[0], labels)
		if err != nil {
			return vm.Instruction{}, err
		}
		return vm.Instruction{Op: op, Addr: addr}, nil
	}

	switch mnemonic {
	case "MOV":
		return assembleMove(operands)
	case "REG":
		return assembleRegister(operands)
	case "MSP":
		return assembleMoveStackPointer(operands)
	case "PUSH":
		return assemblePush(operands)
	case "POP":
		return assemblePop(operands)
	case "EXT":
		return assembleExternal(operands)
	case "TYPE":
		return assembleType(operands)
	default:
		return vm.Instruction{}, fmt.Errorf("%w: %q", vm.ErrUnknownMnemonic, ln.tokens[0])
	}
}

// MOV %reg <type> <literal> — spec.md §8 scenario: load an immediate into a
// register (encoding order [reg][type][value] per opcode.go's OpMove).
func assembleMove(operands []string) (vm.Instruction, error) {
	if len(operands) != 3 {
		return vm.Instruction{}, fmt.Errorf("%w: MOV expects %%reg, type, literal", vm.ErrAssemblerSyntax)
	}
	reg, ok := register(operands[0])
	if !ok {
		return vm.Instruction{}, fmt.Errorf("%w: %q is not a register", vm.ErrAssemblerSyntax, operands[0])
	}
	t, err := resolveType(operands[1])
	if err != nil {
		return vm.Instruction{}, err
	}
	val, err := ParseValueForType(operands[2], t)
	if err != nil {
		return vm.Instruction{}, err
	}
	return vm.Instruction{Op: vm.OpMove, Reg: reg, Value: val}, nil
}

// REG <type> %reg — spec.md §8 scenario 4 ("REG u16 %a"): push a register's
// current value, reinterpreted as type.
func assembleRegister(operands []string) (vm.Instruction, error) {
	if len(operands) != 2 {
		return vm.Instruction{}, fmt.Errorf("%w: REG expects type, %%reg", vm.ErrAssemblerSyntax)
	}
	t, err := resolveType(operands[0])
	if err != nil {
		return vm.Instruction{}, err
	}
	reg, ok := register(operands[1])
	if !ok {
		return vm.Instruction{}, fmt.Errorf("%w: %q is not a register", vm.ErrAssemblerSyntax, operands[1])
	}
	return vm.Instruction{Op: vm.OpRegister, Type: t, Reg: reg}, nil
}

// MSP <signed offset> — move the stack pointer by a relative amount.
func assembleMoveStackPointer(operands []string) (vm.Instruction, error) {
	if len(operands) != 1 {
		return vm.Instruction{}, fmt.Errorf("%w: MSP expects one signed integer literal", vm.ErrAssemblerSyntax)
	}
	off, err := parseSignedLiteral(operands[0], 64)
	if err != nil {
		return vm.Instruction{}, err
	}
	return vm.Instruction{Op: vm.OpMoveStackPointer, Offset: off}, nil
}

// POP <type> [%reg] — discard or capture the top of stack.
func assemblePop(operands []string) (vm.Instruction, error) {
	if len(operands) != 1 && len(operands) != 2 {
		return vm.Instruction{}, fmt.Errorf("%w: POP expects type [%%reg]", vm.ErrAssemblerSyntax)
	}
	t, err := resolveType(operands[0])
	if err != nil {
		return vm.Instruction{}, err
	}
	var reg byte
	if len(operands) == 2 {
		r, ok := register(operands[1])
		if !ok {
			return vm.Instruction{}, fmt.Errorf("%w: %q is not a register", vm.ErrAssemblerSyntax, operands[1])
		}
		reg = r
	}
	return vm.Instruction{Op: vm.OpPop, Type: t, Reg: reg}, nil
}

// TYPE <type> — compiles straight through to a Push of that type's own tag
// byte, exactly as the reference assembler does
// (`_examples/original_source/assembler/src/assembler.rs`:
// `"TYPE" => opcodes.push(OpCode::Push(Value::U8(data_type.to_bytes()[0])))`);
// no dedicated opcode or VM change is needed.
func assembleType(operands []string) (vm.Instruction, error) {
	if len(operands) != 1 {
		return vm.Instruction{}, fmt.Errorf("%w: TYPE expects a single type operand", vm.ErrAssemblerSyntax)
	}
	t, err := resolveType(operands[0])
	if err != nil {
		return vm.Instruction{}, err
	}
	return vm.Instruction{Op: vm.OpPush, Value: vm.NewU8(byte(t))}, nil
}

// EXT <id> — call a host-registered function by its small integer id.
func assembleExternal(operands []string) (vm.Instruction, error) {
	if len(operands) != 1 {
		return vm.Instruction{}, fmt.Errorf("%w: EXT expects one extern id", vm.ErrAssemblerSyntax)
	}
	id, err := parseIntMagnitude(operands[0], 64)
	if err != nil {
		return vm.Instruction{}, err
	}
	return vm.Instruction{Op: vm.OpExternal, Addr: id}, nil
}

// assemblePush implements spec.md §4.4's PUSH grouping/inference rules:
//
//   - PUSH <type> <lit>            -> Push{Value}
//   - PUSH <type> <lit> <lit>...   -> PushAll{Values} (same declared type)
//   - PUSH <string-literal>        -> PushBytes, a leading-length-prefixed
//     raw payload (the assembler needs no type tag for this form: the
//     decoder's PushBytes opcodes carry their own length, not a type).
//   - PUSH <lit> <lit>...          -> each literal's type is inferred
//     independently and the group widens to the broadest inferred type
//     (spec.md §4.4 "type inference when no tag is given"). A %reg operand
//     infers as Usize and contributes its bound register index as the
//     value (ParseValueForType), e.g. PUSH %a 3 widens to Usize.
func assemblePush(operands []string) (vm.Instruction, error) {
	if len(operands) == 0 {
		return vm.Instruction{}, fmt.Errorf("%w: PUSH expects at least one operand", vm.ErrAssemblerSyntax)
	}

	if len(operands) == 1 && strings.HasPrefix(operands[0], "\"") {
		s, err := unquoteString(operands[0])
		if err != nil {
			return vm.Instruction{}, err
		}
		return vm.Instruction{Op: vm.PushBytesOp(len(s)), Raw: []byte(s)}, nil
	}

	declaredType, rest, explicit := vm.PrimitiveType(0), operands, false
	if t, ok := vm.TypeFromName(operands[0]); ok {
		declaredType, rest, explicit = t, operands[1:], true
	}
	if len(rest) == 0 {
		return vm.Instruction{}, fmt.Errorf("%w: PUSH %s needs at least one literal", vm.ErrAssemblerSyntax, operands[0])
	}

	t := declaredType
	if !explicit {
		haveType := false
		for _, lit := range rest {
			inferred, err := InferType(lit)
			if err != nil {
				return vm.Instruction{}, err
			}
			if !haveType {
				t, haveType = inferred, true
			} else {
				t = widerOf(t, inferred)
			}
		}
	}

	values := make([]vm.Value, 0, len(rest))
	for _, lit := range rest {
		v, err := ParseValueForType(lit, t)
		if err != nil {
			return vm.Instruction{}, err
		}
		values = append(values, v)
	}

	if len(values) == 1 {
		return vm.Instruction{Op: vm.OpPush, Value: values[0]}, nil
	}
	return vm.Instruction{Op: vm.PushAllOp(len(values)), Values: values}, nil
}
