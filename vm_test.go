// End-to-end tests assembling and running the six testable scenarios from
// spec.md §8, in the teacher's compile-then-run test style
// (_reference_teacher/vm/vm_test.go's compileAndCheckSource/
// runAndEnsureSpecificShutdown), adapted to the typed engine and testify.
package svm_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"svm/asm"
	"svm/vm"
)

func assembleAndRun(t *testing.T, source string, stdout *bytes.Buffer) *vm.VM {
	t.Helper()
	program, err := asm.Assemble(source)
	require.NoError(t, err)
	opts := vm.Options{}
	if stdout != nil {
		opts.Stdout = stdout
	}
	machine := vm.New(program, opts)
	require.NoError(t, machine.Run())
	return machine
}

// Scenario 1: sum of two u8 literals.
func TestScenarioSumOfTwoBytes(t *testing.T) {
	machine := assembleAndRun(t, `
		PUSH u8 1 2
		ADD u8
		HALT
	`, nil)
	require.Equal(t, []byte{3}, machine.StackBytes())
}

// Scenario 2: signed subtraction yielding a negative result, stored as the
// two's-complement bit pattern for i32.
func TestScenarioSignedSubtraction(t *testing.T) {
	machine := assembleAndRun(t, `
		PUSH i32 -0x0A 0x01
		SUB i32
		HALT
	`, nil)
	require.Equal(t, []byte{0xFF, 0xFF, 0xFF, 0xF5}, machine.StackBytes())
}

// Scenario 3: jump-loop countdown terminating with u32(3) on top.
func TestScenarioJumpLoopCountdown(t *testing.T) {
	machine := assembleAndRun(t, `
	start:
		PUSH u32 0
	loop:
		INC u32
		COPY u32
		PUSH u32 3
		LT u32
		JNZ .loop
		HALT
	`, nil)
	stack := machine.StackBytes()
	require.Len(t, stack, 4)
	require.Equal(t, []byte{0, 0, 0, 3}, stack)
}

// Scenario 4: register round-trip through MOV/REG.
func TestScenarioRegisterRoundTrip(t *testing.T) {
	machine := assembleAndRun(t, `
		MOV %a u16 0x1234
		REG u16 %a
		HALT
	`, nil)
	require.Equal(t, []byte{0x12, 0x34}, machine.StackBytes())
}

// Scenario 5: extern print of a u8 writes the ASCII character to stdout.
func TestScenarioExternPrintU8(t *testing.T) {
	var out bytes.Buffer
	assembleAndRun(t, `
		PUSH u8 65
		EXT 0
		HALT
	`, &out)
	require.Equal(t, "A", out.String())
}

// Scenario 6: call/return leaves exactly the callee's pushed value, no
// leftover return address.
func TestScenarioCallReturn(t *testing.T) {
	machine := assembleAndRun(t, `
	main:
		CALL .inc
		HALT
	inc:
		PUSH u8 1
		RET
	`, nil)
	require.Equal(t, []byte{1}, machine.StackBytes())
}

func TestDivisionByZeroIsFatal(t *testing.T) {
	program, err := asm.Assemble(`
		PUSH u32 1
		PUSH u32 0
		DIV u32
		HALT
	`)
	require.NoError(t, err)
	machine := vm.New(program, vm.Options{})
	err = machine.Run()
	require.ErrorIs(t, err, vm.ErrDivisionByZero)
}

func TestUnknownExternIsFatal(t *testing.T) {
	program, err := asm.Assemble(`
		PUSH u8 1
		EXT 99
		HALT
	`)
	require.NoError(t, err)
	machine := vm.New(program, vm.Options{})
	err = machine.Run()
	require.ErrorIs(t, err, vm.ErrUnknownExtern)
}
