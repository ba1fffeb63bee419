package asm_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"svm/asm"
	"svm/vm"
)

func TestAssembleNullaryMnemonics(t *testing.T) {
	program, err := asm.Assemble("NOP\nHALT\n")
	require.NoError(t, err)
	require.Equal(t, []vm.Op{vm.OpNop, vm.OpHalt}, []vm.Op{program[0].Op, program[1].Op})
}

func TestAssemblePushExplicitTypeGroupsMultipleLiterals(t *testing.T) {
	program, err := asm.Assemble("PUSH u8 1 2 3\nHALT")
	require.NoError(t, err)
	require.Equal(t, vm.OpPushAllU8, program[0].Op)
	require.Len(t, program[0].Values, 3)
	require.Equal(t, uint8(2), program[0].Values[1].U8())
}

func TestAssemblePushSingleLiteralEmitsPush(t *testing.T) {
	program, err := asm.Assemble("PUSH i32 -10\nHALT")
	require.NoError(t, err)
	require.Equal(t, vm.OpPush, program[0].Op)
	require.Equal(t, int32(-10), program[0].Value.I32())
}

func TestAssemblePushNegativeHexStripsSignFromMagnitude(t *testing.T) {
	program, err := asm.Assemble("PUSH i32 -0x0A\nHALT")
	require.NoError(t, err)
	require.Equal(t, int32(-10), program[0].Value.I32())
}

func TestAssemblePushStringLiteralEmitsPushBytes(t *testing.T) {
	program, err := asm.Assemble(`PUSH "hi"` + "\nHALT")
	require.NoError(t, err)
	require.Equal(t, []byte("hi"), program[0].Raw)
}

func TestAssembleMoveAndRegister(t *testing.T) {
	program, err := asm.Assemble("MOV %a u16 0x1234\nREG u16 %a\nHALT")
	require.NoError(t, err)
	require.Equal(t, vm.OpMove, program[0].Op)
	require.Equal(t, byte(2), program[0].Reg)
	require.Equal(t, uint16(0x1234), program[0].Value.U16())
	require.Equal(t, vm.OpRegister, program[1].Op)
	require.Equal(t, vm.U16, program[1].Type)
	require.Equal(t, byte(2), program[1].Reg)
}

func TestAssembleTypeCompilesThroughPush(t *testing.T) {
	program, err := asm.Assemble("TYPE f64\nHALT")
	require.NoError(t, err)
	require.Equal(t, vm.OpPush, program[0].Op)
	require.Equal(t, vm.U8, program[0].Value.Type)
	require.Equal(t, byte(vm.F64), program[0].Value.U8())
}

func TestAssembleLabelsResolveToInstructionIndex(t *testing.T) {
	program, err := asm.Assemble(`
start:
	PUSH u32 0
loop:
	INC u32
	COPY u32
	PUSH u32 3
	LT u32
	JNZ .loop
	HALT
`)
	require.NoError(t, err)
	// loop: is the second emitted instruction (index 1); JNZ must target it.
	jnz := program[len(program)-2]
	require.Equal(t, vm.OpJumpIfNotZero, jnz.Op)
	require.Equal(t, uint64(1), jnz.Addr)
}

func TestAssembleUnknownLabelIsFatal(t *testing.T) {
	_, err := asm.Assemble("JMP .nowhere\nHALT")
	require.ErrorIs(t, err, vm.ErrUnknownLabel)
}

func TestAssembleUnknownMnemonicIsFatal(t *testing.T) {
	_, err := asm.Assemble("FROBNICATE\nHALT")
	require.ErrorIs(t, err, vm.ErrUnknownMnemonic)
}

func TestAssembleDuplicateLabelIsFatal(t *testing.T) {
	_, err := asm.Assemble("a:\nNOP\na:\nHALT")
	require.ErrorIs(t, err, vm.ErrAssemblerSyntax)
}

func TestAssembleCommentsAndBlankLinesIgnored(t *testing.T) {
	program, err := asm.Assemble(`
; a comment
		NOP   ; trailing comment

		HALT
`)
	require.NoError(t, err)
	require.Len(t, program, 2)
}

func TestAssembleCallResolvesLabel(t *testing.T) {
	program, err := asm.Assemble(`
main:
	CALL .inc
	HALT
inc:
	PUSH u8 1
	RET
`)
	require.NoError(t, err)
	require.Equal(t, vm.OpCall, program[0].Op)
	require.Equal(t, uint64(2), program[0].Addr)
}

func TestAssemblePopWithAndWithoutRegister(t *testing.T) {
	program, err := asm.Assemble("POP u32\nPOP u32 %b\nHALT")
	require.NoError(t, err)
	require.Equal(t, byte(0), program[0].Reg)
	require.Equal(t, byte(3), program[1].Reg)
}

func TestAssemblePushRegisterOperandInfersUsize(t *testing.T) {
	program, err := asm.Assemble("PUSH %a\nHALT")
	require.NoError(t, err)
	require.Equal(t, vm.OpPush, program[0].Op)
	require.Equal(t, vm.Usize, program[0].Value.Type)
	require.Equal(t, uint64(2), program[0].Value.Usize())
}

func TestAssemblePushMixedRegisterAndLiteralWidensToUsize(t *testing.T) {
	program, err := asm.Assemble("PUSH %a 3\nHALT")
	require.NoError(t, err)
	require.Equal(t, vm.OpPushAllU8, program[0].Op)
	require.Len(t, program[0].Values, 2)
	require.Equal(t, vm.Usize, program[0].Values[0].Type)
	require.Equal(t, uint64(2), program[0].Values[0].Usize())
	require.Equal(t, uint64(3), program[0].Values[1].Usize())
}

func TestInferTypePicksSmallestFittingUnsignedType(t *testing.T) {
	t8, err := asm.InferType("1")
	require.NoError(t, err)
	require.Equal(t, vm.U8, t8)

	tBig, err := asm.InferType("70000")
	require.NoError(t, err)
	require.Equal(t, vm.U32, tBig)
}
