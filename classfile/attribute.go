package classfile

import "fmt"

// Known attribute names, per spec.md §4.4.
const (
	attrCode                        = "Code"
	attrLineNumberTable             = "LineNumberTable"
	attrSourceFile                  = "SourceFile"
	attrBootstrapMethods            = "BootstrapMethods"
	attrExceptions                  = "Exceptions"
	attrConstantValue               = "ConstantValue"
	attrSignature                   = "Signature"
	attrEnclosingMethod             = "EnclosingMethod"
	attrLocalVariableTable          = "LocalVariableTable"
	attrLocalVariableTypeTable      = "LocalVariableTypeTable"
	attrInnerClasses                = "InnerClasses"
	attrStackMapTable               = "StackMapTable"
	attrRuntimeVisibleAnnotations   = "RuntimeVisibleAnnotations"
	attrRuntimeInvisibleAnnotations = "RuntimeInvisibleAnnotations"
	attrModule                      = "Module"
	attrModulePackages              = "ModulePackages"
	attrModuleMainClass             = "ModuleMainClass"
	attrMethodParameters            = "MethodParameters"
	attrSourceDebugExtension        = "SourceDebugExtension"
	attrDeprecated                  = "Deprecated"
	attrSynthetic                   = "Synthetic"
)

// Attribute is a named, length-bounded class/member/code attribute. Data
// holds the structured decode for a recognized Name, or an
// *AnnotatedSkipped for any attribute the decoder doesn't deepen — either
// way the attribute's wire length is fully consumed so the surrounding
// stream stays aligned regardless of whether the payload was understood.
type Attribute struct {
	NameIndex uint16
	Name      string
	Length    uint32
	Data      interface{}
}

// AnnotatedSkipped marks a syntactically valid but un-decoded attribute;
// its raw payload is kept verbatim so a dumper can still show it.
type AnnotatedSkipped struct {
	Name string
	Raw  []byte
}

// CodeAttribute is the bytecode body of a method.
type CodeAttribute struct {
	MaxStack       uint16
	MaxLocals      uint16
	Code           []byte
	ExceptionTable []ExceptionTableEntry
	Attributes     []Attribute
}

// ExceptionTableEntry describes one protected region of a Code attribute.
// CatchType is a pool index to a Class entry, or 0 to match any throwable.
type ExceptionTableEntry struct {
	StartPC   uint16
	EndPC     uint16
	HandlerPC uint16
	CatchType uint16
}

// LineNumberTableAttribute maps bytecode offsets to source line numbers.
type LineNumberTableAttribute struct {
	Entries []LineNumberEntry
}

// LineNumberEntry is one (bytecode offset, source line) pair.
type LineNumberEntry struct {
	StartPC    uint16
	LineNumber uint16
}

// SourceFileAttribute names the source file a class was compiled from.
type SourceFileAttribute struct {
	SourceFileIndex uint16
}

// BootstrapMethodsAttribute holds the class's invokedynamic bootstrap
// methods.
type BootstrapMethodsAttribute struct {
	Methods []BootstrapMethod
}

// BootstrapMethod is one entry of a BootstrapMethods attribute: a
// MethodHandle pool reference plus its static bootstrap arguments (each a
// pool index).
type BootstrapMethod struct {
	MethodRef uint16
	Arguments []uint16
}

// ExceptionsAttribute lists the checked exception types a method declares.
type ExceptionsAttribute struct {
	ExceptionIndexTable []uint16
}

// ConstantValueAttribute gives a static final field's compile-time constant.
type ConstantValueAttribute struct {
	ConstantValueIndex uint16
}

// SignatureAttribute carries a generic-aware type signature string index.
type SignatureAttribute struct {
	SignatureIndex uint16
}

// EnclosingMethodAttribute names the innermost enclosing class/method of a
// local or anonymous class.
type EnclosingMethodAttribute struct {
	ClassIndex  uint16
	MethodIndex uint16
}

// LocalVariableTableAttribute maps local-variable slots to names/types over
// a bytecode range.
type LocalVariableTableAttribute struct {
	Entries []LocalVariableEntry
}

// LocalVariableEntry is one row of a LocalVariableTable/LocalVariableTypeTable.
// DescriptorOrSignatureIndex holds the descriptor_index for
// LocalVariableTable and the signature_index for LocalVariableTypeTable.
type LocalVariableEntry struct {
	StartPC                    uint16
	Length                     uint16
	NameIndex                  uint16
	DescriptorOrSignatureIndex uint16
	Index                      uint16
}

// InnerClassesAttribute lists the nested classes/interfaces referenced by
// this class file.
type InnerClassesAttribute struct {
	Classes []InnerClassEntry
}

// InnerClassEntry is one row of an InnerClasses attribute.
type InnerClassEntry struct {
	InnerClassInfoIndex   uint16
	OuterClassInfoIndex   uint16
	InnerNameIndex        uint16
	InnerClassAccessFlags uint16
}

// decodeAttributes reads `count` name_index/length/body attributes.
func decodeAttributes(r *Reader, pool *Pool, count uint16) ([]Attribute, error) {
	attrs := make([]Attribute, count)
	for i := range attrs {
		a, err := decodeAttribute(r, pool)
		if err != nil {
			return nil, fmt.Errorf("attribute[%d]: %w", i, err)
		}
		attrs[i] = a
	}
	return attrs, nil
}

func decodeAttribute(r *Reader, pool *Pool) (Attribute, error) {
	nameIndex, err := r.ReadU16()
	if err != nil {
		return Attribute{}, fmt.Errorf("reading attribute_name_index: %w", err)
	}
	length, err := r.ReadU32()
	if err != nil {
		return Attribute{}, fmt.Errorf("reading attribute_length: %w", err)
	}
	name, err := pool.GetUTF8(nameIndex)
	if err != nil {
		return Attribute{}, fmt.Errorf("resolving attribute_name_index %d: %w", nameIndex, err)
	}

	bodyStart := r.CurrentOffset()
	bodyEnd := bodyStart + int(length)
	if bodyEnd > r.Length() {
		return Attribute{}, fmt.Errorf("attribute %q length %d overruns buffer", name, length)
	}

	var data interface{}
	switch name {
	case attrCode:
		data, err = decodeCodeBody(r, pool, bodyEnd)
	case attrLineNumberTable:
		data, err = decodeLineNumberTableBody(r)
	case attrSourceFile:
		data, err = decodeSourceFileBody(r)
	case attrBootstrapMethods:
		data, err = decodeBootstrapMethodsBody(r)
	case attrExceptions:
		data, err = decodeExceptionsBody(r)
	case attrConstantValue:
		data, err = decodeConstantValueBody(r)
	case attrSignature:
		data, err = decodeSignatureBody(r)
	case attrEnclosingMethod:
		data, err = decodeEnclosingMethodBody(r)
	case attrLocalVariableTable, attrLocalVariableTypeTable:
		data, err = decodeLocalVariableTableBody(r)
	case attrInnerClasses:
		data, err = decodeInnerClassesBody(r)
	default:
		// StackMapTable, RuntimeVisible*/RuntimeInvisible* annotations,
		// Module*, MethodParameters, SourceDebugExtension, Deprecated,
		// Synthetic, and any attribute this decoder doesn't recognize:
		// skip exactly `length` bytes. Length-preserving even when
		// unhandled, per spec.md §4.4/§9.
		var raw []byte
		raw, err = r.ReadBytes(int(length))
		data = &AnnotatedSkipped{Name: name, Raw: raw}
	}
	if err != nil {
		return Attribute{}, fmt.Errorf("decoding %q body: %w", name, err)
	}

	if r.CurrentOffset() != bodyEnd {
		return Attribute{}, fmt.Errorf("attribute %q decoder consumed %d bytes, want %d",
			name, r.CurrentOffset()-bodyStart, length)
	}

	return Attribute{NameIndex: nameIndex, Name: name, Length: length, Data: data}, nil
}

func decodeCodeBody(r *Reader, pool *Pool, bodyEnd int) (*CodeAttribute, error) {
	maxStack, err := r.ReadU16()
	if err != nil {
		return nil, err
	}
	maxLocals, err := r.ReadU16()
	if err != nil {
		return nil, err
	}
	codeLength, err := r.ReadU32()
	if err != nil {
		return nil, err
	}
	code, err := r.ReadBytes(int(codeLength))
	if err != nil {
		return nil, err
	}

	excCount, err := r.ReadU16()
	if err != nil {
		return nil, err
	}
	excTable := make([]ExceptionTableEntry, excCount)
	for i := range excTable {
		startPC, err := r.ReadU16()
		if err != nil {
			return nil, err
		}
		endPC, err := r.ReadU16()
		if err != nil {
			return nil, err
		}
		handlerPC, err := r.ReadU16()
		if err != nil {
			return nil, err
		}
		catchType, err := r.ReadU16()
		if err != nil {
			return nil, err
		}
		excTable[i] = ExceptionTableEntry{StartPC: startPC, EndPC: endPC, HandlerPC: handlerPC, CatchType: catchType}
	}

	attrCount, err := r.ReadU16()
	if err != nil {
		return nil, err
	}
	nested, err := decodeAttributes(r, pool, attrCount)
	if err != nil {
		return nil, fmt.Errorf("nested attributes: %w", err)
	}

	return &CodeAttribute{
		MaxStack:       maxStack,
		MaxLocals:      maxLocals,
		Code:           code,
		ExceptionTable: excTable,
		Attributes:     nested,
	}, nil
}

func decodeLineNumberTableBody(r *Reader) (*LineNumberTableAttribute, error) {
	count, err := r.ReadU16()
	if err != nil {
		return nil, err
	}
	entries := make([]LineNumberEntry, count)
	for i := range entries {
		startPC, err := r.ReadU16()
		if err != nil {
			return nil, err
		}
		line, err := r.ReadU16()
		if err != nil {
			return nil, err
		}
		entries[i] = LineNumberEntry{StartPC: startPC, LineNumber: line}
	}
	return &LineNumberTableAttribute{Entries: entries}, nil
}

func decodeSourceFileBody(r *Reader) (*SourceFileAttribute, error) {
	idx, err := r.ReadU16()
	if err != nil {
		return nil, err
	}
	return &SourceFileAttribute{SourceFileIndex: idx}, nil
}

// decodeBootstrapMethodsBody follows spec.md §9's resolution of the
// original source's ambiguity: attribute_name_index and attribute_length
// are already consumed by decodeAttribute before this is called, and the
// body starts directly with num_bootstrap_methods — it is not re-read here.
func decodeBootstrapMethodsBody(r *Reader) (*BootstrapMethodsAttribute, error) {
	count, err := r.ReadU16()
	if err != nil {
		return nil, err
	}
	methods := make([]BootstrapMethod, count)
	for i := range methods {
		methodRef, err := r.ReadU16()
		if err != nil {
			return nil, err
		}
		argCount, err := r.ReadU16()
		if err != nil {
			return nil, err
		}
		args := make([]uint16, argCount)
		for j := range args {
			v, err := r.ReadU16()
			if err != nil {
				return nil, err
			}
			args[j] = v
		}
		methods[i] = BootstrapMethod{MethodRef: methodRef, Arguments: args}
	}
	return &BootstrapMethodsAttribute{Methods: methods}, nil
}

func decodeExceptionsBody(r *Reader) (*ExceptionsAttribute, error) {
	count, err := r.ReadU16()
	if err != nil {
		return nil, err
	}
	idx := make([]uint16, count)
	for i := range idx {
		v, err := r.ReadU16()
		if err != nil {
			return nil, err
		}
		idx[i] = v
	}
	return &ExceptionsAttribute{ExceptionIndexTable: idx}, nil
}

func decodeConstantValueBody(r *Reader) (*ConstantValueAttribute, error) {
	idx, err := r.ReadU16()
	if err != nil {
		return nil, err
	}
	return &ConstantValueAttribute{ConstantValueIndex: idx}, nil
}

func decodeSignatureBody(r *Reader) (*SignatureAttribute, error) {
	idx, err := r.ReadU16()
	if err != nil {
		return nil, err
	}
	return &SignatureAttribute{SignatureIndex: idx}, nil
}

func decodeEnclosingMethodBody(r *Reader) (*EnclosingMethodAttribute, error) {
	classIdx, err := r.ReadU16()
	if err != nil {
		return nil, err
	}
	methodIdx, err := r.ReadU16()
	if err != nil {
		return nil, err
	}
	return &EnclosingMethodAttribute{ClassIndex: classIdx, MethodIndex: methodIdx}, nil
}

func decodeLocalVariableTableBody(r *Reader) (*LocalVariableTableAttribute, error) {
	count, err := r.ReadU16()
	if err != nil {
		return nil, err
	}
	entries := make([]LocalVariableEntry, count)
	for i := range entries {
		startPC, err := r.ReadU16()
		if err != nil {
			return nil, err
		}
		length, err := r.ReadU16()
		if err != nil {
			return nil, err
		}
		nameIdx, err := r.ReadU16()
		if err != nil {
			return nil, err
		}
		descOrSigIdx, err := r.ReadU16()
		if err != nil {
			return nil, err
		}
		index, err := r.ReadU16()
		if err != nil {
			return nil, err
		}
		entries[i] = LocalVariableEntry{
			StartPC:                    startPC,
			Length:                     length,
			NameIndex:                  nameIdx,
			DescriptorOrSignatureIndex: descOrSigIdx,
			Index:                      index,
		}
	}
	return &LocalVariableTableAttribute{Entries: entries}, nil
}

func decodeInnerClassesBody(r *Reader) (*InnerClassesAttribute, error) {
	count, err := r.ReadU16()
	if err != nil {
		return nil, err
	}
	classes := make([]InnerClassEntry, count)
	for i := range classes {
		innerIdx, err := r.ReadU16()
		if err != nil {
			return nil, err
		}
		outerIdx, err := r.ReadU16()
		if err != nil {
			return nil, err
		}
		innerNameIdx, err := r.ReadU16()
		if err != nil {
			return nil, err
		}
		flags, err := r.ReadU16()
		if err != nil {
			return nil, err
		}
		classes[i] = InnerClassEntry{
			InnerClassInfoIndex:   innerIdx,
			OuterClassInfoIndex:   outerIdx,
			InnerNameIndex:        innerNameIdx,
			InnerClassAccessFlags: flags,
		}
	}
	return &InnerClassesAttribute{Classes: classes}, nil
}
