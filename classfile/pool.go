package classfile

import (
	"errors"
	"fmt"
)

// Tag identifies the variant of a constant pool entry.
type Tag uint8

// Constant pool tags, per the JVM class file format.
const (
	TagUtf8               Tag = 1
	TagInteger             Tag = 3
	TagFloat               Tag = 4
	TagLong                Tag = 5
	TagDouble              Tag = 6
	TagClass               Tag = 7
	TagString              Tag = 8
	TagFieldref            Tag = 9
	TagMethodref           Tag = 10
	TagInterfaceMethodref  Tag = 11
	TagNameAndType         Tag = 12
	TagMethodHandle        Tag = 15
	TagMethodType          Tag = 16
	TagDynamic             Tag = 17
	TagInvokeDynamic       Tag = 18
	TagModule              Tag = 19
	TagPackage             Tag = 20
)

// ErrMissingEntry is returned by the typed accessors when an index is out of
// range, points at a Long/Double placeholder slot, or names a different tag
// than the accessor expects.
var ErrMissingEntry = errors.New("classfile: constant pool entry missing or wrong kind")

// Entry is a tagged constant pool entry. Only the fields relevant to Tag are
// populated; the rest are zero.
type Entry struct {
	Tag Tag

	// Utf8
	UTF8Value string

	// Integer / Float
	IntValue   int32
	FloatValue float32

	// Long / Double
	LongValue   int64
	DoubleValue float64

	// Class, String, MethodType, Module, Package: a single name/descriptor
	// index. NameAndType: NameIndex + DescriptorIndex below.
	Index1 uint16

	// FieldRef / MethodRef / InterfaceMethodRef: ClassIndex + NameAndTypeIndex.
	// NameAndType: NameIndex + DescriptorIndex.
	ClassIndex       uint16
	NameAndTypeIndex uint16
	NameIndex        uint16
	DescriptorIndex  uint16

	// MethodHandle
	ReferenceKind  uint8
	ReferenceIndex uint16

	// Dynamic / InvokeDynamic
	BootstrapMethodAttrIndex uint16
}

// placeholder marks the reserved second slot of a Long/Double entry.
var placeholder = Entry{Tag: 0}

// Pool is the ordered, 1-based constant pool of a class file. Index 0 is
// never valid.
type Pool struct {
	entries []Entry // entries[0] unused; entries[i] is pool index i
}

// newPool allocates a pool of `slotCount` slots (i.e. indices
// 1..slotCount-1 for a pool_count of slotCount), deferring to DecodePool to
// fill it.
func newPool(slotCount int) *Pool {
	return &Pool{entries: make([]Entry, slotCount)}
}

// Count returns the number of addressable slots, including the unused index
// 0 and any Long/Double placeholder slots.
func (p *Pool) Count() int { return len(p.entries) }

// DecodePool reads exactly poolCount-1 entries from r, placing each at its
// correct 1-based slot and leaving the slot after every Long/Double entry as
// a reserved placeholder, per the class file format's two-slot rule.
func DecodePool(r *Reader, poolCount uint16) (*Pool, error) {
	p := newPool(int(poolCount))
	slot := 1
	for i := 0; i < int(poolCount)-1; i++ {
		if slot >= int(poolCount) {
			return nil, fmt.Errorf("classfile: constant pool overruns pool_count at entry %d", i)
		}
		entry, wide, err := decodeEntry(r)
		if err != nil {
			return nil, fmt.Errorf("classfile: decoding constant pool entry %d (slot %d): %w", i, slot, err)
		}
		p.entries[slot] = entry
		if wide {
			p.entries[slot+1] = placeholder
			slot += 2
		} else {
			slot++
		}
	}
	return p, nil
}

func decodeEntry(r *Reader) (Entry, bool, error) {
	tagByte, err := r.ReadU8()
	if err != nil {
		return Entry{}, false, err
	}
	tag := Tag(tagByte)

	switch tag {
	case TagUtf8:
		length, err := r.ReadU16()
		if err != nil {
			return Entry{}, false, err
		}
		raw, err := r.ReadBytes(int(length))
		if err != nil {
			return Entry{}, false, err
		}
		s, err := decodeModifiedUTF8(raw)
		if err != nil {
			return Entry{}, false, err
		}
		return Entry{Tag: tag, UTF8Value: s}, false, nil

	case TagInteger:
		v, err := r.ReadI32()
		return Entry{Tag: tag, IntValue: v}, false, err

	case TagFloat:
		v, err := r.ReadF32()
		return Entry{Tag: tag, FloatValue: v}, false, err

	case TagLong:
		v, err := r.ReadI64()
		return Entry{Tag: tag, LongValue: v}, true, err

	case TagDouble:
		v, err := r.ReadF64()
		return Entry{Tag: tag, DoubleValue: v}, true, err

	case TagClass, TagString, TagMethodType, TagModule, TagPackage:
		v, err := r.ReadU16()
		return Entry{Tag: tag, Index1: v}, false, err

	case TagFieldref, TagMethodref, TagInterfaceMethodref:
		classIdx, err := r.ReadU16()
		if err != nil {
			return Entry{}, false, err
		}
		natIdx, err := r.ReadU16()
		if err != nil {
			return Entry{}, false, err
		}
		return Entry{Tag: tag, ClassIndex: classIdx, NameAndTypeIndex: natIdx}, false, nil

	case TagNameAndType:
		nameIdx, err := r.ReadU16()
		if err != nil {
			return Entry{}, false, err
		}
		descIdx, err := r.ReadU16()
		if err != nil {
			return Entry{}, false, err
		}
		return Entry{Tag: tag, NameIndex: nameIdx, DescriptorIndex: descIdx}, false, nil

	case TagMethodHandle:
		kind, err := r.ReadU8()
		if err != nil {
			return Entry{}, false, err
		}
		idx, err := r.ReadU16()
		if err != nil {
			return Entry{}, false, err
		}
		return Entry{Tag: tag, ReferenceKind: kind, ReferenceIndex: idx}, false, nil

	case TagDynamic, TagInvokeDynamic:
		bmIdx, err := r.ReadU16()
		if err != nil {
			return Entry{}, false, err
		}
		natIdx, err := r.ReadU16()
		if err != nil {
			return Entry{}, false, err
		}
		return Entry{Tag: tag, BootstrapMethodAttrIndex: bmIdx, NameAndTypeIndex: natIdx}, false, nil

	default:
		return Entry{}, false, fmt.Errorf("classfile: unknown constant pool tag %d", tagByte)
	}
}

// isReservedSlot reports whether index addresses a Long/Double placeholder.
func (p *Pool) isReservedSlot(index uint16) bool {
	i := int(index)
	if i <= 0 || i >= len(p.entries) {
		return false
	}
	return p.entries[i].Tag == 0
}

// Get returns the raw entry at index, or ErrMissingEntry if index is 0,
// out of range, or a Long/Double placeholder slot.
func (p *Pool) Get(index uint16) (Entry, error) {
	i := int(index)
	if i <= 0 || i >= len(p.entries) {
		return Entry{}, fmt.Errorf("%w: index %d out of range [1,%d)", ErrMissingEntry, index, len(p.entries))
	}
	e := p.entries[i]
	if e.Tag == 0 {
		return Entry{}, fmt.Errorf("%w: index %d addresses a Long/Double placeholder slot", ErrMissingEntry, index)
	}
	return e, nil
}

// GetUTF8 resolves index as a Utf8 entry and returns its decoded string.
func (p *Pool) GetUTF8(index uint16) (string, error) {
	e, err := p.Get(index)
	if err != nil {
		return "", err
	}
	if e.Tag != TagUtf8 {
		return "", fmt.Errorf("%w: index %d is tag %d, want Utf8", ErrMissingEntry, index, e.Tag)
	}
	return e.UTF8Value, nil
}

// GetClass resolves index as a Class entry and returns its internal
// (slash-delimited) type name.
func (p *Pool) GetClass(index uint16) (string, error) {
	e, err := p.Get(index)
	if err != nil {
		return "", err
	}
	if e.Tag != TagClass {
		return "", fmt.Errorf("%w: index %d is tag %d, want Class", ErrMissingEntry, index, e.Tag)
	}
	return p.GetUTF8(e.Index1)
}

// GetString resolves index as a String entry and returns its literal value.
func (p *Pool) GetString(index uint16) (string, error) {
	e, err := p.Get(index)
	if err != nil {
		return "", err
	}
	if e.Tag != TagString {
		return "", fmt.Errorf("%w: index %d is tag %d, want String", ErrMissingEntry, index, e.Tag)
	}
	return p.GetUTF8(e.Index1)
}

// NameAndType is the resolved (name, descriptor) pair of a NameAndType entry.
type NameAndType struct {
	Name       string
	Descriptor string
}

// GetNameAndType resolves index as a NameAndType entry.
func (p *Pool) GetNameAndType(index uint16) (NameAndType, error) {
	e, err := p.Get(index)
	if err != nil {
		return NameAndType{}, err
	}
	if e.Tag != TagNameAndType {
		return NameAndType{}, fmt.Errorf("%w: index %d is tag %d, want NameAndType", ErrMissingEntry, index, e.Tag)
	}
	name, err := p.GetUTF8(e.NameIndex)
	if err != nil {
		return NameAndType{}, err
	}
	desc, err := p.GetUTF8(e.DescriptorIndex)
	if err != nil {
		return NameAndType{}, err
	}
	return NameAndType{Name: name, Descriptor: desc}, nil
}

// Ref is the resolved (class-index, NameAndType-index) pair shared by
// FieldRef, MethodRef and InterfaceMethodRef entries.
type Ref struct {
	ClassIndex       uint16
	NameAndTypeIndex uint16
}

// GetRef resolves index as a FieldRef/MethodRef/InterfaceMethodRef entry.
func (p *Pool) GetRef(index uint16) (Ref, error) {
	e, err := p.Get(index)
	if err != nil {
		return Ref{}, err
	}
	switch e.Tag {
	case TagFieldref, TagMethodref, TagInterfaceMethodref:
		return Ref{ClassIndex: e.ClassIndex, NameAndTypeIndex: e.NameAndTypeIndex}, nil
	default:
		return Ref{}, fmt.Errorf("%w: index %d is tag %d, want a Ref kind", ErrMissingEntry, index, e.Tag)
	}
}

// RefExt is a fully-resolved method/field reference: the owning class's
// internal name plus the member's name and descriptor.
type RefExt struct {
	ClassName  string
	Name       string
	Descriptor string
}

// GetRefExt resolves a Ref entry and immediately dereferences its class and
// NameAndType in one step, which is what every invoke*/get*/put* opcode
// needs.
func (p *Pool) GetRefExt(index uint16) (RefExt, error) {
	ref, err := p.GetRef(index)
	if err != nil {
		return RefExt{}, err
	}
	className, err := p.GetClass(ref.ClassIndex)
	if err != nil {
		return RefExt{}, err
	}
	nat, err := p.GetNameAndType(ref.NameAndTypeIndex)
	if err != nil {
		return RefExt{}, err
	}
	return RefExt{ClassName: className, Name: nat.Name, Descriptor: nat.Descriptor}, nil
}
