package vm

import (
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// State is the VM's coarse lifecycle (spec.md §4.5 "State machine").
type State int

const (
	Idle State = iota
	Running
	Halted
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Running:
		return "running"
	case Halted:
		return "halted"
	default:
		return "unknown"
	}
}

// VM is the execution engine: fetch-decode-dispatch loop over a decoded
// instruction list, a byte stack with registers, an extern table, and
// numbered IO ports. Grounded in the teacher's VM struct (vm/vm.go) and
// its execInstructions dispatch loop, generalized from flat uint32 words to
// the typed Value/Instruction model and switched from little-endian to
// big-endian per spec.md.
type VM struct {
	program []Instruction
	pc      int
	state   State

	stack   *Stack
	externs *Externs
	io      *IOPorts

	tick uint64

	Log *logrus.Logger
}

// Options configures a new VM. Zero value is usable: it gets a stack
// bounded at 1 MiB (1<<20 bytes), the conventional stdin/stdout/stderr IO
// ports, and a no-op logger.
type Options struct {
	StackSize int
	Stdin     io.Reader
	Stdout    io.Writer
	Stderr    io.Writer
	Log       *logrus.Logger
}

// New constructs a VM ready to run program. Register 0 ("none") and the
// externs table are wired before any instruction executes, matching
// spec.md §4.5's precondition that externs are host-supplied "before run".
func New(program []Instruction, opts Options) *VM {
	if opts.StackSize <= 0 {
		opts.StackSize = 1 << 20
	}
	if opts.Stdin == nil {
		opts.Stdin = os.Stdin
	}
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}
	if opts.Log == nil {
		opts.Log = logrus.New()
		opts.Log.SetOutput(io.Discard)
	}

	return &VM{
		program: program,
		state:   Idle,
		stack:   NewStack(opts.StackSize),
		externs: NewExterns(),
		io:      NewIOPorts(opts.Stdin, opts.Stdout, opts.Stderr),
		Log:     opts.Log,
	}
}

// Externs exposes the extern registry so host code can add
// application-defined ids before Run, per spec.md §6.
func (v *VM) Externs() *Externs { return v.externs }

// IO exposes the port table so host code can register additional
// descriptors before Run.
func (v *VM) IO() *IOPorts { return v.io }

// PC is the current program-counter index.
func (v *VM) PC() int { return v.pc }

// State reports the current lifecycle state.
func (v *VM) State() State { return v.state }

// StackBytes exposes the live portion of the operand stack, mainly for
// tests and the debug REPL.
func (v *VM) StackBytes() []byte { return v.stack.Bytes() }

// Registers exposes the live register bank, for diagnostics (the --debug
// REPL's --show-registers flag).
func (v *VM) Registers() [NumRegisters + 1]uint64 { return v.stack.Registers() }

// Run executes the fetch-decode-dispatch loop until Halt, falling off the
// end of the program, or a fatal error (spec.md §4.5). Falling off the end
// is not itself an error; a fatal condition is returned as the err value.
func (v *VM) Run() error {
	v.state = Running
	for v.state == Running {
		if v.pc >= len(v.program) {
			v.state = Halted
			return nil
		}
		if err := v.step(); err != nil {
			v.state = Halted
			if err == ErrProgramHalted {
				return nil
			}
			return err
		}
	}
	return nil
}

// Step executes exactly one instruction, for the debug/step CLI mode
// (SPEC_FULL.md "Debug/step mode"). It returns ErrProgramFinished once pc
// runs past the end of the program.
func (v *VM) Step() error {
	if v.state == Idle {
		v.state = Running
	}
	if v.pc >= len(v.program) {
		v.state = Halted
		return ErrProgramFinished
	}
	err := v.step()
	if err != nil {
		v.state = Halted
	}
	return err
}

func (v *VM) step() error {
	ins := v.program[v.pc]
	here := v.pc
	v.pc++

	if v.Log.IsLevelEnabled(logrus.DebugLevel) {
		v.Log.WithFields(logrus.Fields{"pc": here, "op": ins.Op.String(), "sp": v.stack.SP()}).Debug("exec")
	}

	switch ins.Op {
	case OpNop:
		return nil
	case OpHalt:
		return ErrProgramHalted

	case OpMove:
		return v.stack.SetRegister(ins.Reg, ins.Value.ToBytes())
	case OpRegister:
		val, err := v.stack.PeekRegister(ins.Reg, ins.Type)
		if err != nil {
			return err
		}
		return v.stack.PushValue(val)
	case OpProgramCounter:
		return v.stack.PushValue(NewUsize(uint64(here)))
	case OpStackPointer:
		return v.stack.PushValue(NewUsize(uint64(v.stack.SP())))

	case OpMoveStackPointer:
		return v.stack.SetSP(v.stack.SP() + int(ins.Offset))

	case OpPush:
		return v.stack.PushValue(ins.Value)
	case OpPushAllU8, OpPushAllU16, OpPushAllU32, OpPushAllU64:
		for _, val := range ins.Values {
			if err := v.stack.PushValue(val); err != nil {
				return err
			}
		}
		return nil
	case OpPushBytesU8, OpPushBytesU16, OpPushBytesU32, OpPushBytesU64:
		return v.stack.Push(ins.Raw)

	case OpPop:
		val, err := v.stack.PopValue(ins.Type)
		if err != nil {
			return err
		}
		if ins.Reg == 0 {
			return nil
		}
		return v.stack.SetRegister(ins.Reg, val.ToBytes())

	case OpCopy:
		val, err := v.stack.PeekValue(ins.Type)
		if err != nil {
			return err
		}
		return v.stack.PushValue(val)

	case OpIncrement, OpDecrement, OpNegative, OpNot:
		return v.unary(ins)

	case OpAdd, OpSubtract, OpMultiply, OpDivide, OpModulo, OpPower,
		OpAnd, OpOr, OpXor, OpShiftLeft, OpShiftRight,
		OpEquals, OpNotEquals, OpGreaterThan, OpGreaterOrEqual, OpLessThan, OpLessOrEqual:
		return v.binary(ins)

	case OpJump:
		v.pc = int(ins.Addr)
		return nil
	case OpJumpIfZero:
		cond, err := v.stack.PopValue(Bool)
		if err != nil {
			return err
		}
		if !cond.Bool() {
			v.pc = int(ins.Addr)
		}
		return nil
	case OpJumpIfNotZero:
		cond, err := v.stack.PopValue(Bool)
		if err != nil {
			return err
		}
		if cond.Bool() {
			v.pc = int(ins.Addr)
		}
		return nil

	case OpGoto, OpGotoIfZero, OpGotoIfNotZero:
		target, err := v.stack.PeekRegister(AddrRegister, Usize)
		if err != nil {
			return err
		}
		if ins.Op == OpGoto {
			v.pc = int(target.Usize())
			return nil
		}
		cond, err := v.stack.PopValue(Bool)
		if err != nil {
			return err
		}
		if (ins.Op == OpGotoIfZero) == !cond.Bool() {
			v.pc = int(target.Usize())
		}
		return nil

	case OpExternal:
		return v.externs.Call(v, ins.Addr)

	case OpCall:
		if err := v.stack.PushValue(NewUsize(uint64(v.pc))); err != nil {
			return err
		}
		v.pc = int(ins.Addr)
		return nil
	case OpReturn:
		ret, err := v.stack.PopValue(Usize)
		if err != nil {
			return err
		}
		v.pc = int(ret.Usize())
		return nil

	default:
		return fmt.Errorf("%w: %s", ErrInvalidOpCode, ins.Op)
	}
}

// AddrRegister is register 1, the "addr" register Goto/GotoIfZero/
// GotoIfNotZero read their jump target from (spec.md §9: "implementations
// should document and enforce this convention rather than infer it
// silently").
const AddrRegister = 1

func (v *VM) unary(ins Instruction) error {
	val, err := v.stack.PopValue(ins.Type)
	if err != nil {
		return err
	}
	var result Value
	switch ins.Op {
	case OpIncrement:
		result, err = Increment(val)
	case OpDecrement:
		result, err = Decrement(val)
	case OpNegative:
		result, err = Negative(val)
	case OpNot:
		result, err = Not(val)
	}
	if err != nil {
		return err
	}
	return v.stack.PushValue(result)
}

func (v *VM) binary(ins Instruction) error {
	right, err := v.stack.PopValue(ins.Type)
	if err != nil {
		return err
	}
	left, err := v.stack.PopValue(ins.Type)
	if err != nil {
		return err
	}

	var result Value
	switch ins.Op {
	case OpAdd:
		result, err = Add(left, right)
	case OpSubtract:
		result, err = Subtract(left, right)
	case OpMultiply:
		result, err = Multiply(left, right)
	case OpDivide:
		result, err = Divide(left, right)
	case OpModulo:
		result, err = Modulo(left, right)
	case OpPower:
		result, err = Power(left, right)
	case OpAnd:
		result, err = And(left, right)
	case OpOr:
		result, err = Or(left, right)
	case OpXor:
		result, err = Xor(left, right)
	case OpShiftLeft:
		result, err = ShiftLeft(left, right)
	case OpShiftRight:
		result, err = ShiftRight(left, right)
	case OpEquals:
		result, err = Equals(left, right)
	case OpNotEquals:
		result, err = NotEquals(left, right)
	case OpGreaterThan:
		result, err = GreaterThan(left, right)
	case OpGreaterOrEqual:
		result, err = GreaterOrEqual(left, right)
	case OpLessThan:
		result, err = LessThan(left, right)
	case OpLessOrEqual:
		result, err = LessOrEqual(left, right)
	}
	if err != nil {
		return err
	}
	return v.stack.PushValue(result)
}
