package vm

import (
	"bufio"
	"fmt"
	"io"
)

// HostFn is the extern contract from spec.md §4.5: "fn(&mut VM) -> Option<Value>".
// A host function reads its own operands off the stack and may push a
// result by returning a non-nil *Value.
type HostFn func(v *VM) (*Value, error)

// Externs is the small integer-id-keyed table spec.md §9 calls for:
// "plain function values registered in a small table, not a plugin object
// system". Convention: id 0 is print (spec.md §6).
type Externs struct {
	fns map[uint64]HostFn
}

// NewExterns builds a registry with the conventional id-0 print extern and
// the two supplemented ids documented in SPEC_FULL.md (read_line, now).
func NewExterns() *Externs {
	e := &Externs{fns: make(map[uint64]HostFn)}
	e.Register(0, externPrint)
	e.Register(1, externReadLine)
	e.Register(2, externNow)
	return e
}

// Register binds id to fn, overwriting any previous registration.
func (e *Externs) Register(id uint64, fn HostFn) {
	e.fns[id] = fn
}

// Call dispatches to the function registered at id. An unregistered id is
// fatal (UnknownExtern).
func (e *Externs) Call(vmachine *VM, id uint64) error {
	fn, ok := e.fns[id]
	if !ok {
		return fmt.Errorf("%w: id %d", ErrUnknownExtern, id)
	}
	result, err := fn(vmachine)
	if err != nil {
		return err
	}
	if result != nil {
		return vmachine.stack.PushValue(*result)
	}
	return nil
}

// externPrint is extern id 0: pops one U8 off the stack and writes it to
// IO port 1 as an ASCII byte (spec.md §8 scenario 5: "PUSH u8 65 EXT 0 HALT
// writes the ASCII character A to stdout" — the test's own literal
// instruction sequence, a single PUSH with no separate type-tag push,
// takes precedence over §6's looser "reads one type tag and one value of
// that type" prose). Programs that want to print other types push a TYPE
// tag and the value explicitly and invoke a host-registered extern with a
// wider contract; the built-in id 0 here only ever handles U8.
func externPrint(v *VM) (*Value, error) {
	val, err := v.stack.PopValue(U8)
	if err != nil {
		return nil, err
	}
	return nil, v.io.Write(1, []byte{val.U8()})
}

// externReadLine is extern id 1: reads a line of UTF-8 text from IO port 0
// (stdin) and pushes it as a Bytes value.
func externReadLine(v *VM) (*Value, error) {
	line, err := v.io.ReadLine(0)
	if err != nil && err != io.EOF {
		return nil, err
	}
	result := NewBytes([]byte(line))
	return &result, nil
}

// externNow is extern id 2: pushes a monotonically increasing U64 tick
// count, letting host programs time loops without real wall-clock access
// (spec.md explicitly keeps the VM single-threaded and deterministic).
func externNow(v *VM) (*Value, error) {
	v.tick++
	result := NewU64(v.tick)
	return &result, nil
}

// IOPort is a single numbered read/write sink. Conventional descriptors are
// 0=stdin, 1=stdout, 2=stderr (spec.md §6); application code may register
// more.
type IOPort struct {
	r *bufio.Reader
	w io.Writer
}

// IOPorts is the indexed port table the VM holds for the duration of Run.
type IOPorts struct {
	ports map[uint64]IOPort
}

// NewIOPorts builds the conventional three-port table over the given
// streams.
func NewIOPorts(stdin io.Reader, stdout, stderr io.Writer) *IOPorts {
	return &IOPorts{ports: map[uint64]IOPort{
		0: {r: bufio.NewReader(stdin)},
		1: {w: stdout},
		2: {w: stderr},
	}}
}

// Port looks up a descriptor. Out-of-range descriptors are fatal
// (UnknownIODescriptor).
func (p *IOPorts) Port(descriptor uint64) (IOPort, error) {
	port, ok := p.ports[descriptor]
	if !ok {
		return IOPort{}, fmt.Errorf("%w: descriptor %d", ErrUnknownIODescriptor, descriptor)
	}
	return port, nil
}

// Register binds an application-defined descriptor to a port.
func (p *IOPorts) Register(descriptor uint64, port IOPort) {
	p.ports[descriptor] = port
}

// Write dispatches a write to descriptor, flushing if the underlying
// writer buffers (e.g. a *bufio.Writer registered over a socket).
func (p *IOPorts) Write(descriptor uint64, data []byte) error {
	port, err := p.Port(descriptor)
	if err != nil {
		return err
	}
	if port.w == nil {
		return fmt.Errorf("%w: descriptor %d is not writable", ErrUnknownIODescriptor, descriptor)
	}
	if _, err := port.w.Write(data); err != nil {
		return err
	}
	if bw, ok := port.w.(*bufio.Writer); ok {
		return bw.Flush()
	}
	return nil
}

// ReadLine reads a single newline-terminated line from descriptor.
func (p *IOPorts) ReadLine(descriptor uint64) (string, error) {
	port, err := p.Port(descriptor)
	if err != nil {
		return "", err
	}
	if port.r == nil {
		return "", fmt.Errorf("%w: descriptor %d is not readable", ErrUnknownIODescriptor, descriptor)
	}
	return port.r.ReadString('\n')
}
