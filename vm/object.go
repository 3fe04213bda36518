package vm

import "fmt"

// ObjectKind distinguishes the three shapes an arena entry can take, per
// §9's tagged-variant redesign note.
type ObjectKind int

const (
	ObjectInstance ObjectKind = iota
	ObjectArray
	ObjectString
)

// Object is one object-arena record. Only the fields relevant to Kind are
// populated.
type Object struct {
	Kind      ObjectKind
	ClassName string // Instance, Array (element class for reference arrays)

	Fields map[string]Value // Instance

	ElemKind Kind    // Array
	Elements []Value // Array

	Str string // String
}

// Arena is a growable, append-only sequence of object records; a Reference
// Value's Ref field is an index into it. There is no collector — entries
// persist for the VM's lifetime, per §3.
type Arena struct {
	objects []*Object
}

// NewArena returns an empty arena.
func NewArena() *Arena { return &Arena{} }

// Alloc appends o and returns its arena index.
func (a *Arena) Alloc(o *Object) int {
	a.objects = append(a.objects, o)
	return len(a.objects) - 1
}

// Get resolves idx to its object record.
func (a *Arena) Get(idx int) (*Object, error) {
	if idx < 0 || idx >= len(a.objects) {
		return nil, fmt.Errorf("vm: arena index %d out of range", idx)
	}
	return a.objects[idx], nil
}

// NewInstance allocates a zero-initialized instance of className. Field
// defaults are the descriptor's zero value; the field table is otherwise
// untyped (a flat name->Value map) since nothing beyond getfield/putfield
// needs field type metadata after construction.
func (a *Arena) NewInstance(className string) int {
	return a.Alloc(&Object{Kind: ObjectInstance, ClassName: className, Fields: make(map[string]Value)})
}

// NewArray allocates an array of length n, every element zero-valued per
// elemBase (a field-descriptor base type byte).
func (a *Arena) NewArray(elemBase byte, elemKind Kind, n int) int {
	elems := make([]Value, n)
	zero := zeroValueFor(elemBase)
	for i := range elems {
		elems[i] = zero
	}
	return a.Alloc(&Object{Kind: ObjectArray, ElemKind: elemKind, Elements: elems})
}

// NewString allocates a new String object wrapping s. Equal strings are not
// deduplicated: each call returns a distinct reference.
func (a *Arena) NewString(s string) int {
	return a.Alloc(&Object{Kind: ObjectString, Str: s})
}
