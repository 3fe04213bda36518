package vm

import (
	"fmt"

	"github.com/saferwall/jclassvm/classfile"
	"github.com/saferwall/jclassvm/opcode"
)

// frame is one activation record: the decoded instruction stream of a
// method's Code attribute, its operand stack, and its local-variable array,
// per §3's frame state.
type frame struct {
	cf     *classfile.ClassFile
	method *classfile.Member
	code   *classfile.CodeAttribute
	instrs []opcode.Instruction

	// byOffset maps a bytecode offset to its index in instrs, built once per
	// frame so branch targets resolve in O(1) instead of a linear scan.
	byOffset map[int]int

	stack  []Value
	locals []Value

	pc int // index into instrs, not a byte offset
}

func newFrame(cf *classfile.ClassFile, m *classfile.Member, code *classfile.CodeAttribute, locals []Value) (*frame, error) {
	instrs, err := opcode.Decode(code.Code)
	if err != nil {
		return nil, fmt.Errorf("vm: decoding %s.%s%s: %w", cf.ThisClassName, m.Name, m.Descriptor, err)
	}
	byOffset := make(map[int]int, len(instrs))
	for i, in := range instrs {
		byOffset[in.Offset] = i
	}
	if len(locals) < int(code.MaxLocals) {
		padded := make([]Value, code.MaxLocals)
		copy(padded, locals)
		locals = padded
	}
	return &frame{
		cf:       cf,
		method:   m,
		code:     code,
		instrs:   instrs,
		byOffset: byOffset,
		stack:    make([]Value, 0, code.MaxStack),
		locals:   locals,
	}, nil
}

func (f *frame) push(v Value) { f.stack = append(f.stack, v) }

func (f *frame) pop() Value {
	v := f.stack[len(f.stack)-1]
	f.stack = f.stack[:len(f.stack)-1]
	return v
}

func (f *frame) peek() Value { return f.stack[len(f.stack)-1] }

// jumpTo sets the frame's instruction cursor to the instruction at byte
// offset target; it is an interpreter-consistency invariant violation for
// target not to land exactly on an instruction boundary (§8 property 3).
func (f *frame) jumpTo(target int) error {
	idx, ok := f.byOffset[target]
	if !ok {
		return fmt.Errorf("%w: branch target %d is not an instruction boundary", ErrResolution, target)
	}
	f.pc = idx
	return nil
}
