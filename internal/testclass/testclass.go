// Package testclass builds well-formed class file byte streams for tests
// across classfile, opcode, archive and vm, so fixture bytecode doesn't need
// to be checked in as compiled .class binaries (this repo does not carry
// forward the teacher's build-time compilation of sample sources).
package testclass

import (
	"encoding/binary"
	"math"
)

// Builder incrementally assembles a constant pool and a set of methods,
// then renders a complete class file with Bytes.
type Builder struct {
	pool        [][]byte // each entry is the full wire encoding (tag+payload)
	thisClass   string
	superClass  string
	interfaces  []string
	methods     []methodSpec
	fields      []fieldSpec
	accessFlags uint16
}

type methodSpec struct {
	name, descriptor string
	accessFlags      uint16
	code             []byte // nil => no Code attribute (abstract/native)
	maxStack         uint16
	maxLocals        uint16
	exceptions       []excEntry
}

type excEntry struct {
	startPC, endPC, handlerPC uint16
	catchType                 string // "" => any (catch_type = 0)
}

type fieldSpec struct {
	name, descriptor string
	accessFlags      uint16
}

// New starts a builder for a class named thisClass extending superClass
// ("" for none, i.e. java/lang/Object with super_class = 0).
func New(thisClass, superClass string) *Builder {
	return &Builder{thisClass: thisClass, superClass: superClass, accessFlags: 0x0021} // PUBLIC|SUPER
}

// AddInterface records an implemented interface's internal name.
func (b *Builder) AddInterface(name string) { b.interfaces = append(b.interfaces, name) }

// AddField declares a field.
func (b *Builder) AddField(name, descriptor string, accessFlags uint16) {
	b.fields = append(b.fields, fieldSpec{name: name, descriptor: descriptor, accessFlags: accessFlags})
}

// AddMethod declares a method with a Code attribute.
func (b *Builder) AddMethod(name, descriptor string, accessFlags uint16, maxStack, maxLocals uint16, code []byte) {
	b.methods = append(b.methods, methodSpec{
		name: name, descriptor: descriptor, accessFlags: accessFlags,
		code: code, maxStack: maxStack, maxLocals: maxLocals,
	})
}

// AddMethodWithHandler declares a method with a Code attribute and one
// exception table entry (catchType "" matches any throwable).
func (b *Builder) AddMethodWithHandler(name, descriptor string, accessFlags uint16, maxStack, maxLocals uint16, code []byte, startPC, endPC, handlerPC uint16, catchType string) {
	b.methods = append(b.methods, methodSpec{
		name: name, descriptor: descriptor, accessFlags: accessFlags,
		code: code, maxStack: maxStack, maxLocals: maxLocals,
		exceptions: []excEntry{{startPC: startPC, endPC: endPC, handlerPC: handlerPC, catchType: catchType}},
	})
}

// --- constant pool interning -------------------------------------------------

// internUTF8 appends a Utf8 entry for s and returns its 1-based pool index;
// an equal entry already in the pool is not reused.
func (b *Builder) internUTF8(s string) uint16 {
	enc := append([]byte{1}, u16(uint16(len(s)))...)
	enc = append(enc, []byte(s)...)
	return b.intern(enc)
}

func (b *Builder) internClass(name string) uint16 {
	nameIdx := b.internUTF8(name)
	enc := append([]byte{7}, u16(nameIdx)...)
	return b.intern(enc)
}

func (b *Builder) internNameAndType(name, descriptor string) uint16 {
	nameIdx := b.internUTF8(name)
	descIdx := b.internUTF8(descriptor)
	enc := append([]byte{12}, u16(nameIdx)...)
	enc = append(enc, u16(descIdx)...)
	return b.intern(enc)
}

// InternMethodref returns the pool index of a Methodref to
// className.name:descriptor, appending fresh Class, NameAndType, Utf8 and
// Methodref entries on every call.
func (b *Builder) InternMethodref(className, name, descriptor string) uint16 {
	classIdx := b.internClass(className)
	natIdx := b.internNameAndType(name, descriptor)
	enc := append([]byte{10}, u16(classIdx)...)
	enc = append(enc, u16(natIdx)...)
	return b.intern(enc)
}

// InternInterfaceMethodref is InternMethodref for invokeinterface targets.
func (b *Builder) InternInterfaceMethodref(className, name, descriptor string) uint16 {
	classIdx := b.internClass(className)
	natIdx := b.internNameAndType(name, descriptor)
	enc := append([]byte{11}, u16(classIdx)...)
	enc = append(enc, u16(natIdx)...)
	return b.intern(enc)
}

// InternFieldref returns the pool index of a Fieldref.
func (b *Builder) InternFieldref(className, name, descriptor string) uint16 {
	classIdx := b.internClass(className)
	natIdx := b.internNameAndType(name, descriptor)
	enc := append([]byte{9}, u16(classIdx)...)
	enc = append(enc, u16(natIdx)...)
	return b.intern(enc)
}

// InternClass returns the pool index of a Class entry for name.
func (b *Builder) InternClass(name string) uint16 { return b.internClass(name) }

// InternUTF8 returns the pool index of a Utf8 entry for s.
func (b *Builder) InternUTF8(s string) uint16 { return b.internUTF8(s) }

// InternString returns the pool index of a String entry for literal s.
func (b *Builder) InternString(s string) uint16 {
	utf := b.internUTF8(s)
	enc := append([]byte{8}, u16(utf)...)
	return b.intern(enc)
}

// InternInteger returns the pool index of an Integer entry.
func (b *Builder) InternInteger(v int32) uint16 {
	enc := append([]byte{3}, u32(uint32(v))...)
	return b.intern(enc)
}

// InternLong returns the pool index of a Long entry (occupies two slots).
func (b *Builder) InternLong(v int64) uint16 {
	enc := append([]byte{5}, u64(uint64(v))...)
	return b.intern(enc)
}

// InternFloat returns the pool index of a Float entry.
func (b *Builder) InternFloat(v float32) uint16 {
	bits := math.Float32bits(v)
	enc := append([]byte{4}, u32(bits)...)
	return b.intern(enc)
}

// InternDouble returns the pool index of a Double entry (occupies two slots).
func (b *Builder) InternDouble(v float64) uint16 {
	bits := math.Float64bits(v)
	enc := append([]byte{6}, u64(bits)...)
	return b.intern(enc)
}

// intern appends enc as a new pool entry (no dedup — tests want predictable
// indices more than a compact pool) and returns its 1-based slot, accounting
// for Long/Double's two-slot placeholder.
func (b *Builder) intern(enc []byte) uint16 {
	slot := 1
	for _, e := range b.pool {
		slot++
		if e[0] == 5 || e[0] == 6 {
			slot++
		}
	}
	b.pool = append(b.pool, enc)
	return uint16(slot)
}

// Bytes renders the complete class file. Every section after the pool is
// built into its own buffer first, so that constant-pool entries interned
// while rendering methods (the "Code" name, exception catch types, and so
// on) land in the pool before it is written out exactly once.
func (b *Builder) Bytes() []byte {
	thisIdx := b.internClass(b.thisClass)
	var superIdx uint16
	if b.superClass != "" {
		superIdx = b.internClass(b.superClass)
	}

	var interfaceIdx []uint16
	for _, i := range b.interfaces {
		interfaceIdx = append(interfaceIdx, b.internClass(i))
	}

	var fieldBytes []byte
	for _, f := range b.fields {
		fieldBytes = append(fieldBytes, u16(f.accessFlags)...)
		fieldBytes = append(fieldBytes, u16(b.internUTF8(f.name))...)
		fieldBytes = append(fieldBytes, u16(b.internUTF8(f.descriptor))...)
		fieldBytes = append(fieldBytes, u16(0)...) // attributes_count
	}

	var codeNameIdx uint16
	var methodBytes []byte
	for _, m := range b.methods {
		methodBytes = append(methodBytes, u16(m.accessFlags)...)
		methodBytes = append(methodBytes, u16(b.internUTF8(m.name))...)
		methodBytes = append(methodBytes, u16(b.internUTF8(m.descriptor))...)
		if m.code == nil {
			methodBytes = append(methodBytes, u16(0)...) // attributes_count
			continue
		}
		if codeNameIdx == 0 {
			codeNameIdx = b.internUTF8("Code")
		}
		codeAttr := b.renderCode(m)
		methodBytes = append(methodBytes, u16(1)...) // attributes_count: Code only
		methodBytes = append(methodBytes, u16(codeNameIdx)...)
		methodBytes = append(methodBytes, u32(uint32(len(codeAttr)))...)
		methodBytes = append(methodBytes, codeAttr...)
	}

	// Every intern call above has now run, so the pool is final.
	var out []byte
	out = append(out, 0xCA, 0xFE, 0xBA, 0xBE)
	out = append(out, u16(0)...)  // minor
	out = append(out, u16(52)...) // major

	poolSlots := 1
	for _, e := range b.pool {
		poolSlots++
		if e[0] == 5 || e[0] == 6 {
			poolSlots++
		}
	}
	out = append(out, u16(uint16(poolSlots))...)
	for _, e := range b.pool {
		out = append(out, e...)
	}

	out = append(out, u16(b.accessFlags)...)
	out = append(out, u16(thisIdx)...)
	out = append(out, u16(superIdx)...)

	out = append(out, u16(uint16(len(interfaceIdx)))...)
	for _, idx := range interfaceIdx {
		out = append(out, u16(idx)...)
	}

	out = append(out, u16(uint16(len(b.fields)))...)
	out = append(out, fieldBytes...)

	out = append(out, u16(uint16(len(b.methods)))...)
	out = append(out, methodBytes...)

	out = append(out, u16(0)...) // class attributes_count
	return out
}

func (b *Builder) renderCode(m methodSpec) []byte {
	var out []byte
	out = append(out, u16(m.maxStack)...)
	out = append(out, u16(m.maxLocals)...)
	out = append(out, u32(uint32(len(m.code)))...)
	out = append(out, m.code...)
	out = append(out, u16(uint16(len(m.exceptions)))...)
	for _, e := range m.exceptions {
		out = append(out, u16(e.startPC)...)
		out = append(out, u16(e.endPC)...)
		out = append(out, u16(e.handlerPC)...)
		var catchIdx uint16
		if e.catchType != "" {
			catchIdx = b.internClass(e.catchType)
		}
		out = append(out, u16(catchIdx)...)
	}
	out = append(out, u16(0)...) // nested attributes_count
	return out
}

func u16(v uint16) []byte {
	buf := make([]byte, 2)
	binary.BigEndian.PutUint16(buf, v)
	return buf
}

func u32(v uint32) []byte {
	buf := make([]byte, 4)
	binary.BigEndian.PutUint32(buf, v)
	return buf
}

func u64(v uint64) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, v)
	return buf
}
