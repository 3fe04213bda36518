package classfile

import "fmt"

// BaseType identifies a descriptor's primitive/void/class/array shape.
type BaseType byte

// Primitive and structural descriptor type codes, per the JVM's field/method
// descriptor grammar.
const (
	TypeVoid    BaseType = 'V'
	TypeByte    BaseType = 'B'
	TypeChar    BaseType = 'C'
	TypeDouble  BaseType = 'D'
	TypeFloat   BaseType = 'F'
	TypeInt     BaseType = 'I'
	TypeLong    BaseType = 'J'
	TypeShort   BaseType = 'S'
	TypeBoolean BaseType = 'Z'
	TypeClass   BaseType = 'L'
	TypeArray   BaseType = '['
)

// FieldType is one parsed field/return type from a descriptor: a primitive,
// void, an object type (ClassName set), or an array (Dimensions > 0, Elem
// describing the element type).
type FieldType struct {
	Base       BaseType
	ClassName  string // set when Base == TypeClass
	Dimensions int    // set when Base == TypeArray
	Elem       *FieldType
}

// IsTwoSlot reports whether this type occupies two local-variable/operand-
// stack slots in the wire semantics (long and double only).
func (f FieldType) IsTwoSlot() bool {
	return f.Base == TypeLong || f.Base == TypeDouble
}

func (f FieldType) String() string {
	switch f.Base {
	case TypeClass:
		return "L" + f.ClassName + ";"
	case TypeArray:
		s := ""
		for i := 0; i < f.Dimensions; i++ {
			s += "["
		}
		return s + f.Elem.String()
	default:
		return string(rune(f.Base))
	}
}

// MethodDescriptor is a parsed method signature: ordered parameter types
// plus a return type (which may be TypeVoid).
type MethodDescriptor struct {
	Parameters []FieldType
	ReturnType FieldType
}

// ParameterSlotCount returns the number of operand-stack/local-variable
// wire slots the parameter list occupies (long/double count as two).
func (m MethodDescriptor) ParameterSlotCount() int {
	n := 0
	for _, p := range m.Parameters {
		if p.IsTwoSlot() {
			n += 2
		} else {
			n++
		}
	}
	return n
}

// ParseMethodDescriptor parses a string like "(Ljava/lang/String;I[B)V" into
// its structured parameter/return types via a single left-to-right scan.
func ParseMethodDescriptor(s string) (MethodDescriptor, error) {
	if len(s) == 0 || s[0] != '(' {
		return MethodDescriptor{}, fmt.Errorf("classfile: method descriptor %q must start with '('", s)
	}
	i := 1
	var params []FieldType
	for i < len(s) && s[i] != ')' {
		ft, next, err := parseFieldType(s, i)
		if err != nil {
			return MethodDescriptor{}, fmt.Errorf("classfile: method descriptor %q: %w", s, err)
		}
		params = append(params, ft)
		i = next
	}
	if i >= len(s) {
		return MethodDescriptor{}, fmt.Errorf("classfile: method descriptor %q missing ')'", s)
	}
	i++ // skip ')'

	if i >= len(s) {
		return MethodDescriptor{}, fmt.Errorf("classfile: method descriptor %q missing return type", s)
	}
	ret, next, err := parseFieldType(s, i)
	if err != nil {
		return MethodDescriptor{}, fmt.Errorf("classfile: method descriptor %q: %w", s, err)
	}
	if next != len(s) {
		return MethodDescriptor{}, fmt.Errorf("classfile: method descriptor %q has trailing data", s)
	}

	return MethodDescriptor{Parameters: params, ReturnType: ret}, nil
}

// ParseFieldDescriptor parses a single field/return type descriptor, e.g.
// "I", "[[Ljava/lang/String;", or "V" (only valid as a method's return type).
func ParseFieldDescriptor(s string) (FieldType, error) {
	ft, next, err := parseFieldType(s, 0)
	if err != nil {
		return FieldType{}, fmt.Errorf("classfile: field descriptor %q: %w", s, err)
	}
	if next != len(s) {
		return FieldType{}, fmt.Errorf("classfile: field descriptor %q has trailing data", s)
	}
	return ft, nil
}

// parseFieldType parses one type token starting at s[i], returning the
// parsed type and the index immediately after it.
func parseFieldType(s string, i int) (FieldType, int, error) {
	if i >= len(s) {
		return FieldType{}, i, fmt.Errorf("unexpected end of descriptor at %d", i)
	}

	switch BaseType(s[i]) {
	case TypeByte, TypeChar, TypeDouble, TypeFloat, TypeInt, TypeLong, TypeShort, TypeBoolean, TypeVoid:
		return FieldType{Base: BaseType(s[i])}, i + 1, nil

	case TypeClass:
		end := i + 1
		for end < len(s) && s[end] != ';' {
			end++
		}
		if end >= len(s) {
			return FieldType{}, i, fmt.Errorf("unterminated class type starting at %d (missing ';')", i)
		}
		return FieldType{Base: TypeClass, ClassName: s[i+1 : end]}, end + 1, nil

	case TypeArray:
		dims := 0
		j := i
		for j < len(s) && s[j] == '[' {
			dims++
			j++
		}
		elem, next, err := parseFieldType(s, j)
		if err != nil {
			return FieldType{}, i, err
		}
		return FieldType{Base: TypeArray, Dimensions: dims, Elem: &elem}, next, nil

	default:
		return FieldType{}, i, fmt.Errorf("unrecognized type tag %q at %d", s[i], i)
	}
}
