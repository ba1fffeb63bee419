package vm

import "errors"

// Named fatal error kinds, spec.md §7. The VM and the codec never recover
// from these locally — they surface a sentinel, the caller wraps it with
// fmt.Errorf for context and reports it up, the same shape as the
// teacher's errProgramFinished/errSegmentationFault family in run.go.
var (
	ErrStackOverflow       = errors.New("stack overflow")
	ErrStackUnderflow      = errors.New("stack underflow")
	ErrNoSavedStack        = errors.New("no saved stack")
	ErrRegisterOutOfBounds = errors.New("register out of bounds")
	ErrRegisterOverflow    = errors.New("register overflow")
	ErrInvalidType         = errors.New("invalid type")
	ErrInvalidRegister     = errors.New("invalid register")
	ErrInvalidOpCode       = errors.New("invalid opcode")
	ErrDivisionByZero      = errors.New("division by zero")
	ErrUnknownLabel        = errors.New("unknown label")
	ErrUnknownExtern       = errors.New("unknown extern")
	ErrUnknownIODescriptor = errors.New("unknown io descriptor")
	ErrNumberParse         = errors.New("number parse error")
	ErrAssemblerSyntax     = errors.New("assembler syntax error")
	ErrUnknownMnemonic     = errors.New("unknown mnemonic")

	// ErrTruncatedOperand is the codec-level companion to ErrInvalidOpCode:
	// spec.md §4.2 calls out "truncated operand stream" as its own fatal
	// case distinct from an unrecognized opcode byte.
	ErrTruncatedOperand = errors.New("truncated operand stream")

	// ErrProgramHalted and ErrProgramFinished are not named error kinds in
	// spec.md §7 (falling off the end or hitting HALT are not failures),
	// but the fetch-decode-dispatch loop needs a sentinel to stop on, the
	// same role errProgramFinished plays in the teacher's run.go.
	ErrProgramHalted   = errors.New("program halted")
	ErrProgramFinished = errors.New("program finished")
)
