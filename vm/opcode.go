package vm

import (
	"encoding/binary"
	"fmt"
)

// Op identifies an instruction at the head of its encoded form. Byte values
// match the reference bytecode family exactly (spec.md §4.2).
type Op byte

const (
	OpNop              Op = 0x00
	OpHalt             Op = 0x01
	OpMove             Op = 0x02
	OpRegister         Op = 0x03
	OpProgramCounter   Op = 0x04
	OpStackPointer     Op = 0x05
	OpMoveStackPointer Op = 0x06
	OpPush             Op = 0x07
	OpPushAllU8        Op = 0x08
	OpPushAllU16       Op = 0x09
	OpPushAllU32       Op = 0x10
	OpPushAllU64       Op = 0x11
	OpPop              Op = 0x12
	OpCopy             Op = 0x13
	OpIncrement        Op = 0x14
	OpDecrement        Op = 0x15
	OpAdd              Op = 0x16
	OpSubtract         Op = 0x17
	OpMultiply         Op = 0x18
	OpDivide           Op = 0x19
	OpModulo           Op = 0x1A
	OpNegative         Op = 0x1B
	OpPower            Op = 0x1C
	OpAnd              Op = 0x1D
	OpOr               Op = 0x1E
	OpXor              Op = 0x1F
	OpNot              Op = 0x20
	OpShiftLeft        Op = 0x21
	OpShiftRight       Op = 0x22
	OpEquals           Op = 0x23
	OpNotEquals        Op = 0x24
	OpGreaterThan      Op = 0x25
	OpGreaterOrEqual   Op = 0x26
	OpLessThan         Op = 0x27
	OpLessOrEqual      Op = 0x28
	OpJump             Op = 0x29
	OpJumpIfZero       Op = 0x30
	OpJumpIfNotZero    Op = 0x31
	OpGoto             Op = 0x32
	OpGotoIfZero       Op = 0x33
	OpGotoIfNotZero    Op = 0x34
	OpExternal         Op = 0x35
	OpCall             Op = 0x36
	OpReturn           Op = 0x37
	OpPushBytesU8      Op = 0x38
	OpPushBytesU16     Op = 0x39
	OpPushBytesU32     Op = 0x40
	OpPushBytesU64     Op = 0x41
)

var opNames = map[Op]string{
	OpNop: "NOP", OpHalt: "HALT", OpMove: "MOVE", OpRegister: "REGISTER",
	OpProgramCounter: "PROGRAM_COUNTER", OpStackPointer: "STACK_POINTER",
	OpMoveStackPointer: "MOVE_STACK_POINTER", OpPush: "PUSH",
	OpPushAllU8: "PUSH_ALL_U8", OpPushAllU16: "PUSH_ALL_U16",
	OpPushAllU32: "PUSH_ALL_U32", OpPushAllU64: "PUSH_ALL_U64",
	OpPop: "POP", OpCopy: "COPY", OpIncrement: "INCREMENT",
	OpDecrement: "DECREMENT", OpAdd: "ADD", OpSubtract: "SUBTRACTION",
	OpMultiply: "MULTIPLY", OpDivide: "DIVIDE", OpModulo: "MODULO",
	OpNegative: "NEGATIVE", OpPower: "POWER", OpAnd: "AND", OpOr: "OR",
	OpXor: "XOR", OpNot: "NOT", OpShiftLeft: "SHIFT_LEFT",
	OpShiftRight: "SHIFT_RIGHT", OpEquals: "EQUALS", OpNotEquals: "NOT_EQUALS",
	OpGreaterThan: "GREATER_THAN", OpGreaterOrEqual: "GREATER_THAN_OR_EQUAL",
	OpLessThan: "LESS_THAN", OpLessOrEqual: "LESS_THAN_OR_EQUAL",
	OpJump: "JUMP", OpJumpIfZero: "JUMP_IF_ZERO", OpJumpIfNotZero: "JUMP_IF_NOT_ZERO",
	OpGoto: "GOTO", OpGotoIfZero: "GOTO_IF_ZERO", OpGotoIfNotZero: "GOTO_IF_NOT_ZERO",
	OpExternal: "EXTERNAL", OpCall: "CALL", OpReturn: "RETURN",
	OpPushBytesU8: "PUSH_BYTES_U8", OpPushBytesU16: "PUSH_BYTES_U16",
	OpPushBytesU32: "PUSH_BYTES_U32", OpPushBytesU64: "PUSH_BYTES_U64",
}

func (o Op) String() string {
	if n, ok := opNames[o]; ok {
		return n
	}
	return fmt.Sprintf("Op(0x%02x)", byte(o))
}

// Instruction is the tagged variant described in spec.md §3: an opcode plus
// whichever of these fields its operand shape actually uses. Go has no sum
// type, so unlike the Rust OpCode enum this is one struct with unused
// fields left zero — Decode/Encode only ever touch the fields that Op
// specifies, the same discipline the comment on each case below documents.
type Instruction struct {
	Op     Op
	Reg    byte          // Move, Register, Pop (0 = discard/none)
	Type   PrimitiveType // Register, Pop, Copy, and every typed arithmetic/bitwise/comparison op
	Value  Value         // Move, Push
	Values []Value       // PushAll
	Raw    []byte        // PushBytes
	Addr   uint64        // Jump*, Call, External (absolute program-counter index or extern id)
	Offset int64         // MoveStackPointer
}

// PushAllOp returns the length-width-discriminated PushAll opcode for a
// group of n values, the same discriminator Encode computes internally —
// exposed so the assembler can emit an already-correct Op rather than a
// placeholder.
func PushAllOp(n int) Op {
	op, _ := lengthWidth(n)
	return op
}

// PushBytesOp is PushAllOp's counterpart for a raw byte payload of length n.
func PushBytesOp(n int) Op {
	_, op := lengthWidth(n)
	return op
}

func lengthWidth(n int) (Op, Op) {
	switch {
	case n <= 0xFF:
		return OpPushAllU8, OpPushBytesU8
	case n <= 0xFFFF:
		return OpPushAllU16, OpPushBytesU16
	case n <= 0xFFFFFFFF:
		return OpPushAllU32, OpPushBytesU32
	default:
		return OpPushAllU64, OpPushBytesU64
	}
}

// Encode produces the wire form of the instruction, symmetric with Decode.
func (ins Instruction) Encode() ([]byte, error) {
	buf := []byte{byte(ins.Op)}

	switch ins.Op {
	case OpNop, OpHalt, OpProgramCounter, OpStackPointer,
		OpGoto, OpGotoIfZero, OpGotoIfNotZero, OpReturn:
		return buf, nil

	case OpMove:
		buf = append(buf, ins.Reg, byte(ins.Value.Type))
		buf = append(buf, ins.Value.ToBytes()...)
		return buf, nil

	case OpRegister:
		buf = append(buf, byte(ins.Type), ins.Reg)
		return buf, nil

	case OpMoveStackPointer:
		var off [8]byte
		binary.BigEndian.PutUint64(off[:], uint64(ins.Offset))
		return append(buf, off[:]...), nil

	case OpPush:
		buf = append(buf, byte(ins.Value.Type))
		buf = append(buf, ins.Value.ToBytes()...)
		return buf, nil

	case OpPushAllU8, OpPushAllU16, OpPushAllU32, OpPushAllU64:
		if len(ins.Values) == 0 {
			return nil, fmt.Errorf("%w: PushAll with no values", ErrInvalidOpCode)
		}
		if len(ins.Values) == 1 {
			return Instruction{Op: OpPush, Value: ins.Values[0]}.Encode()
		}
		widthOp, _ := lengthWidth(len(ins.Values))
		buf[0] = byte(widthOp)
		buf = append(buf, byte(ins.Values[0].Type))
		buf = appendLen(buf, widthOp, len(ins.Values))
		for _, v := range ins.Values {
			buf = append(buf, v.ToBytes()...)
		}
		return buf, nil

	case OpPushBytesU8, OpPushBytesU16, OpPushBytesU32, OpPushBytesU64:
		_, widthOp := lengthWidth(len(ins.Raw))
		buf[0] = byte(widthOp)
		buf = appendLen(buf, widthOp, len(ins.Raw))
		buf = append(buf, ins.Raw...)
		return buf, nil

	case OpPop:
		return append(buf, byte(ins.Type), ins.Reg), nil

	case OpCopy, OpIncrement, OpDecrement, OpAdd, OpSubtract, OpMultiply,
		OpDivide, OpModulo, OpNegative, OpPower, OpAnd, OpOr, OpXor, OpNot,
		OpShiftLeft, OpShiftRight, OpEquals, OpNotEquals, OpGreaterThan,
		OpGreaterOrEqual, OpLessThan, OpLessOrEqual:
		return append(buf, byte(ins.Type)), nil

	case OpJump, OpJumpIfZero, OpJumpIfNotZero, OpExternal, OpCall:
		var addr [8]byte
		binary.BigEndian.PutUint64(addr[:], ins.Addr)
		return append(buf, addr[:]...), nil

	default:
		return nil, fmt.Errorf("%w: %s", ErrInvalidOpCode, ins.Op)
	}
}

func appendLen(buf []byte, widthOp Op, n int) []byte {
	switch widthOp {
	case OpPushAllU8, OpPushBytesU8:
		return append(buf, byte(n))
	case OpPushAllU16, OpPushBytesU16:
		var b [2]byte
		binary.BigEndian.PutUint16(b[:], uint16(n))
		return append(buf, b[:]...)
	case OpPushAllU32, OpPushBytesU32:
		var b [4]byte
		binary.BigEndian.PutUint32(b[:], uint32(n))
		return append(buf, b[:]...)
	default:
		var b [8]byte
		binary.BigEndian.PutUint64(b[:], uint64(n))
		return append(buf, b[:]...)
	}
}

func readLen(data []byte, widthOp Op) (n int, consumed int, err error) {
	var width int
	switch widthOp {
	case OpPushAllU8, OpPushBytesU8:
		width = 1
	case OpPushAllU16, OpPushBytesU16:
		width = 2
	case OpPushAllU32, OpPushBytesU32:
		width = 4
	default:
		width = 8
	}
	if len(data) < width {
		return 0, 0, fmt.Errorf("%w: length prefix", ErrTruncatedOperand)
	}
	switch width {
	case 1:
		return int(data[0]), 1, nil
	case 2:
		return int(binary.BigEndian.Uint16(data)), 2, nil
	case 4:
		return int(binary.BigEndian.Uint32(data)), 4, nil
	default:
		return int(binary.BigEndian.Uint64(data)), 8, nil
	}
}

// Decode reads exactly one instruction from the front of data and reports
// how many bytes it consumed. Decoding never looks ahead past the bytes an
// opcode's own layout calls for (spec.md §4.2).
func Decode(data []byte) (Instruction, int, error) {
	if len(data) == 0 {
		return Instruction{}, 0, fmt.Errorf("%w: empty instruction stream", ErrTruncatedOperand)
	}
	op := Op(data[0])
	rest := data[1:]
	n := 1

	need := func(k int) error {
		if len(rest) < k {
			return fmt.Errorf("%w: opcode %s needs %d more bytes, have %d", ErrTruncatedOperand, op, k, len(rest))
		}
		return nil
	}

	switch op {
	case OpNop, OpHalt, OpProgramCounter, OpStackPointer,
		OpGoto, OpGotoIfZero, OpGotoIfNotZero, OpReturn:
		return Instruction{Op: op}, n, nil

	case OpMove:
		if err := need(2); err != nil {
			return Instruction{}, 0, err
		}
		reg := rest[0]
		t, err := TypeFromByte(rest[1])
		if err != nil {
			return Instruction{}, 0, err
		}
		size, ok := Size(t)
		if !ok {
			return Instruction{}, 0, fmt.Errorf("%w: Move operand type %s has no fixed size", ErrInvalidType, t)
		}
		if err := need(2 + size); err != nil {
			return Instruction{}, 0, err
		}
		val, err := ValueFromBytes(rest[2:2+size], t)
		if err != nil {
			return Instruction{}, 0, err
		}
		return Instruction{Op: op, Reg: reg, Value: val}, n + 2 + size, nil

	case OpRegister:
		if err := need(2); err != nil {
			return Instruction{}, 0, err
		}
		t, err := TypeFromByte(rest[0])
		if err != nil {
			return Instruction{}, 0, err
		}
		return Instruction{Op: op, Type: t, Reg: rest[1]}, n + 2, nil

	case OpMoveStackPointer:
		if err := need(8); err != nil {
			return Instruction{}, 0, err
		}
		off := int64(binary.BigEndian.Uint64(rest[:8]))
		return Instruction{Op: op, Offset: off}, n + 8, nil

	case OpPush:
		if err := need(1); err != nil {
			return Instruction{}, 0, err
		}
		t, err := TypeFromByte(rest[0])
		if err != nil {
			return Instruction{}, 0, err
		}
		size, ok := Size(t)
		if !ok {
			return Instruction{}, 0, fmt.Errorf("%w: Push operand type %s has no fixed size", ErrInvalidType, t)
		}
		if err := need(1 + size); err != nil {
			return Instruction{}, 0, err
		}
		val, err := ValueFromBytes(rest[1:1+size], t)
		if err != nil {
			return Instruction{}, 0, err
		}
		return Instruction{Op: op, Value: val}, n + 1 + size, nil

	case OpPushAllU8, OpPushAllU16, OpPushAllU32, OpPushAllU64:
		if err := need(1); err != nil {
			return Instruction{}, 0, err
		}
		t, err := TypeFromByte(rest[0])
		if err != nil {
			return Instruction{}, 0, err
		}
		size, ok := Size(t)
		if !ok {
			return Instruction{}, 0, fmt.Errorf("%w: PushAll operand type %s has no fixed size", ErrInvalidType, t)
		}
		count, lenBytes, err := readLen(rest[1:], op)
		if err != nil {
			return Instruction{}, 0, err
		}
		consumed := 1 + lenBytes
		if err := need(consumed + count*size); err != nil {
			return Instruction{}, 0, err
		}
		values := make([]Value, 0, count)
		body := rest[consumed:]
		for i := 0; i < count; i++ {
			v, err := ValueFromBytes(body[i*size:(i+1)*size], t)
			if err != nil {
				return Instruction{}, 0, err
			}
			values = append(values, v)
		}
		return Instruction{Op: op, Values: values}, n + consumed + count*size, nil

	case OpPushBytesU8, OpPushBytesU16, OpPushBytesU32, OpPushBytesU64:
		count, lenBytes, err := readLen(rest, op)
		if err != nil {
			return Instruction{}, 0, err
		}
		if err := need(lenBytes + count); err != nil {
			return Instruction{}, 0, err
		}
		raw := make([]byte, count)
		copy(raw, rest[lenBytes:lenBytes+count])
		return Instruction{Op: op, Raw: raw}, n + lenBytes + count, nil

	case OpPop:
		if err := need(2); err != nil {
			return Instruction{}, 0, err
		}
		t, err := TypeFromByte(rest[0])
		if err != nil {
			return Instruction{}, 0, err
		}
		return Instruction{Op: op, Type: t, Reg: rest[1]}, n + 2, nil

	case OpCopy, OpIncrement, OpDecrement, OpAdd, OpSubtract, OpMultiply,
		OpDivide, OpModulo, OpNegative, OpPower, OpAnd, OpOr, OpXor, OpNot,
		OpShiftLeft, OpShiftRight, OpEquals, OpNotEquals, OpGreaterThan,
		OpGreaterOrEqual, OpLessThan, OpLessOrEqual:
		if err := need(1); err != nil {
			return Instruction{}, 0, err
		}
		t, err := TypeFromByte(rest[0])
		if err != nil {
			return Instruction{}, 0, err
		}
		return Instruction{Op: op, Type: t}, n + 1, nil

	case OpJump, OpJumpIfZero, OpJumpIfNotZero, OpExternal, OpCall:
		if err := need(8); err != nil {
			return Instruction{}, 0, err
		}
		addr := binary.BigEndian.Uint64(rest[:8])
		return Instruction{Op: op, Addr: addr}, n + 8, nil

	default:
		return Instruction{}, 0, fmt.Errorf("%w: opcode byte 0x%02x", ErrInvalidOpCode, byte(op))
	}
}

// DecodeProgram decodes a flat bytecode buffer (spec.md §6: no header, no
// trailer, no alignment) into an ordered instruction list.
func DecodeProgram(data []byte) ([]Instruction, error) {
	var program []Instruction
	for len(data) > 0 {
		ins, n, err := Decode(data)
		if err != nil {
			return nil, err
		}
		program = append(program, ins)
		data = data[n:]
	}
	return program, nil
}

// EncodeProgram is the inverse of DecodeProgram: flat concatenation of each
// instruction's encoding, in order.
func EncodeProgram(program []Instruction) ([]byte, error) {
	var buf []byte
	for _, ins := range program {
		b, err := ins.Encode()
		if err != nil {
			return nil, err
		}
		buf = append(buf, b...)
	}
	return buf, nil
}
