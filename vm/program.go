package vm

import (
	"fmt"
	"os"
	"strings"
)

// LoadProgramFile reads a flat bytecode file (spec.md §6: no header, no
// trailer, no alignment) and decodes it into an instruction list.
func LoadProgramFile(path string) ([]Instruction, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading bytecode file %q: %w", path, err)
	}
	program, err := DecodeProgram(data)
	if err != nil {
		return nil, fmt.Errorf("decoding %q: %w", path, err)
	}
	return program, nil
}

// SaveProgramFile encodes program and writes it as a flat byte file.
func SaveProgramFile(path string, program []Instruction) error {
	data, err := EncodeProgram(program)
	if err != nil {
		return fmt.Errorf("encoding program: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing bytecode file %q: %w", path, err)
	}
	return nil
}

// Disassemble renders program as one line per instruction, the format
// `cmd/svm disasm` prints (SPEC_FULL.md "Program disassembly"), adapting
// the teacher's printProgram helper to the typed instruction set.
func Disassemble(program []Instruction) string {
	var sb strings.Builder
	for i, ins := range program {
		fmt.Fprintf(&sb, "%04d  %s\n", i, formatInstruction(ins))
	}
	return sb.String()
}

func formatInstruction(ins Instruction) string {
	switch ins.Op {
	case OpMove:
		return fmt.Sprintf("%s r%d, %s", ins.Op, ins.Reg, ins.Value)
	case OpRegister, OpPop:
		return fmt.Sprintf("%s %s, r%d", ins.Op, ins.Type, ins.Reg)
	case OpMoveStackPointer:
		return fmt.Sprintf("%s %d", ins.Op, ins.Offset)
	case OpPush:
		return fmt.Sprintf("%s %s", ins.Op, ins.Value)
	case OpPushAllU8, OpPushAllU16, OpPushAllU32, OpPushAllU64:
		return fmt.Sprintf("%s %v", ins.Op, ins.Values)
	case OpPushBytesU8, OpPushBytesU16, OpPushBytesU32, OpPushBytesU64:
		return fmt.Sprintf("%s %d bytes", ins.Op, len(ins.Raw))
	case OpCopy, OpIncrement, OpDecrement, OpAdd, OpSubtract, OpMultiply,
		OpDivide, OpModulo, OpNegative, OpPower, OpAnd, OpOr, OpXor, OpNot,
		OpShiftLeft, OpShiftRight, OpEquals, OpNotEquals, OpGreaterThan,
		OpGreaterOrEqual, OpLessThan, OpLessOrEqual:
		return fmt.Sprintf("%s %s", ins.Op, ins.Type)
	case OpJump, OpJumpIfZero, OpJumpIfNotZero, OpCall, OpExternal:
		return fmt.Sprintf("%s %d", ins.Op, ins.Addr)
	default:
		return ins.Op.String()
	}
}
