package classfile

import (
	"errors"
	"fmt"
)

// Magic is the canonical 4-byte tag every class file must begin with.
const Magic uint32 = 0xCAFEBABE

// ErrBadMagic is returned when a candidate class file does not start with
// the canonical 0xCAFEBABE tag.
var ErrBadMagic = errors.New("classfile: bad magic, not a class file")

// AccessFlags is the access/property bitfield shared by classes, fields and
// methods. Not every bit is meaningful for every owner kind (e.g. SUPER only
// applies to classes), but the JVM spec reuses the bit positions.
type AccessFlags uint16

// Access flag bits, named by convention per spec.md §3.
const (
	AccPublic       AccessFlags = 0x0001
	AccPrivate      AccessFlags = 0x0002
	AccProtected    AccessFlags = 0x0004
	AccStatic       AccessFlags = 0x0008
	AccFinal        AccessFlags = 0x0010
	AccSuper        AccessFlags = 0x0020
	AccSynchronized AccessFlags = 0x0020
	AccVolatile     AccessFlags = 0x0040
	AccBridge       AccessFlags = 0x0040
	AccTransient    AccessFlags = 0x0080
	AccVarargs      AccessFlags = 0x0080
	AccNative       AccessFlags = 0x0100
	AccInterface    AccessFlags = 0x0200
	AccAbstract     AccessFlags = 0x0400
	AccStrict       AccessFlags = 0x0800
	AccSynthetic    AccessFlags = 0x1000
	AccAnnotation   AccessFlags = 0x2000
	AccEnum         AccessFlags = 0x4000
	AccModule       AccessFlags = 0x8000
)

// Has reports whether every bit in mask is set.
func (a AccessFlags) Has(mask AccessFlags) bool { return a&mask == mask }

// Member is the shared shape of a field_info / method_info structure.
type Member struct {
	AccessFlags     AccessFlags
	NameIndex       uint16
	DescriptorIndex uint16
	Attributes      []Attribute

	Name       string
	Descriptor string
}

// Code returns the member's Code attribute, if decoded as such.
func (m *Member) Code() (*CodeAttribute, bool) {
	for _, a := range m.Attributes {
		if c, ok := a.Data.(*CodeAttribute); ok {
			return c, true
		}
	}
	return nil, false
}

// ClassFile is the fully decoded, immutable representation of one class
// file. All cross-reference indices from the wire format are preserved in
// Pool; nothing here is resolved eagerly beyond what decoding requires.
type ClassFile struct {
	MinorVersion uint16
	MajorVersion uint16

	Pool *Pool

	AccessFlags AccessFlags
	ThisClass   uint16
	SuperClass  uint16

	Interfaces []uint16

	Fields  []Member
	Methods []Member

	Attributes []Attribute

	// ThisClassName and SuperClassName are resolved once at decode time as
	// a convenience; SuperClassName is empty for java/lang/Object.
	ThisClassName  string
	SuperClassName string
}

// Decode reads a complete class file from buf. Every structural index
// (this_class, super_class, interfaces, name/descriptor indices) must
// resolve within the pool or Decode fails; nothing is resolved against
// other class files at this stage.
func Decode(buf []byte) (*ClassFile, error) {
	r := NewReader(buf)

	magic, err := r.ReadU32()
	if err != nil {
		return nil, fmt.Errorf("classfile: reading magic: %w", err)
	}
	if magic != Magic {
		return nil, fmt.Errorf("%w: got %#08x", ErrBadMagic, magic)
	}

	minor, err := r.ReadU16()
	if err != nil {
		return nil, fmt.Errorf("classfile: reading minor_version: %w", err)
	}
	major, err := r.ReadU16()
	if err != nil {
		return nil, fmt.Errorf("classfile: reading major_version: %w", err)
	}

	poolCount, err := r.ReadU16()
	if err != nil {
		return nil, fmt.Errorf("classfile: reading constant_pool_count: %w", err)
	}
	pool, err := DecodePool(r, poolCount)
	if err != nil {
		return nil, err
	}

	accessFlags, err := r.ReadU16()
	if err != nil {
		return nil, fmt.Errorf("classfile: reading access_flags: %w", err)
	}
	thisClass, err := r.ReadU16()
	if err != nil {
		return nil, fmt.Errorf("classfile: reading this_class: %w", err)
	}
	superClass, err := r.ReadU16()
	if err != nil {
		return nil, fmt.Errorf("classfile: reading super_class: %w", err)
	}

	interfacesCount, err := r.ReadU16()
	if err != nil {
		return nil, fmt.Errorf("classfile: reading interfaces_count: %w", err)
	}
	interfaces := make([]uint16, interfacesCount)
	for i := range interfaces {
		v, err := r.ReadU16()
		if err != nil {
			return nil, fmt.Errorf("classfile: reading interfaces[%d]: %w", i, err)
		}
		interfaces[i] = v
		if _, err := pool.GetClass(v); err != nil {
			return nil, fmt.Errorf("classfile: resolving interfaces[%d]: %w", i, err)
		}
	}

	fields, err := decodeMembers(r, pool, "fields")
	if err != nil {
		return nil, err
	}
	methods, err := decodeMembers(r, pool, "methods")
	if err != nil {
		return nil, err
	}

	attrCount, err := r.ReadU16()
	if err != nil {
		return nil, fmt.Errorf("classfile: reading attributes_count: %w", err)
	}
	attrs, err := decodeAttributes(r, pool, attrCount)
	if err != nil {
		return nil, fmt.Errorf("classfile: decoding class attributes: %w", err)
	}

	cf := &ClassFile{
		MinorVersion: minor,
		MajorVersion: major,
		Pool:         pool,
		AccessFlags:  AccessFlags(accessFlags),
		ThisClass:    thisClass,
		SuperClass:   superClass,
		Interfaces:   interfaces,
		Fields:       fields,
		Methods:      methods,
		Attributes:   attrs,
	}

	cf.ThisClassName, err = pool.GetClass(thisClass)
	if err != nil {
		return nil, fmt.Errorf("classfile: resolving this_class: %w", err)
	}
	if superClass != 0 {
		cf.SuperClassName, err = pool.GetClass(superClass)
		if err != nil {
			return nil, fmt.Errorf("classfile: resolving super_class: %w", err)
		}
	}

	return cf, nil
}

func decodeMembers(r *Reader, pool *Pool, kind string) ([]Member, error) {
	count, err := r.ReadU16()
	if err != nil {
		return nil, fmt.Errorf("classfile: reading %s_count: %w", kind, err)
	}
	members := make([]Member, count)
	for i := range members {
		accessFlags, err := r.ReadU16()
		if err != nil {
			return nil, fmt.Errorf("classfile: reading %s[%d].access_flags: %w", kind, i, err)
		}
		nameIdx, err := r.ReadU16()
		if err != nil {
			return nil, fmt.Errorf("classfile: reading %s[%d].name_index: %w", kind, i, err)
		}
		descIdx, err := r.ReadU16()
		if err != nil {
			return nil, fmt.Errorf("classfile: reading %s[%d].descriptor_index: %w", kind, i, err)
		}
		attrCount, err := r.ReadU16()
		if err != nil {
			return nil, fmt.Errorf("classfile: reading %s[%d].attributes_count: %w", kind, i, err)
		}
		attrs, err := decodeAttributes(r, pool, attrCount)
		if err != nil {
			return nil, fmt.Errorf("classfile: decoding %s[%d] attributes: %w", kind, i, err)
		}

		name, err := pool.GetUTF8(nameIdx)
		if err != nil {
			return nil, fmt.Errorf("classfile: resolving %s[%d] name: %w", kind, i, err)
		}
		desc, err := pool.GetUTF8(descIdx)
		if err != nil {
			return nil, fmt.Errorf("classfile: resolving %s[%d] descriptor: %w", kind, i, err)
		}

		members[i] = Member{
			AccessFlags:     AccessFlags(accessFlags),
			NameIndex:       nameIdx,
			DescriptorIndex: descIdx,
			Attributes:      attrs,
			Name:            name,
			Descriptor:      desc,
		}
	}
	return members, nil
}
