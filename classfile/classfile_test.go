package classfile

import "testing"

// buildMinimalClass assembles the smallest valid class file: an empty
// interface list, no fields, one method ("<init>" with no attributes, not
// even Code), and no class attributes. Used across tests that only care
// about the outer structure.
func buildMinimalClass(t *testing.T) []byte {
	t.Helper()
	w := newByteWriter()
	w.u32(Magic)
	w.u16(0)  // minor
	w.u16(52) // major (Java 8)

	// constant pool: 1 Utf8 "Main", 2 Class(1), 3 Utf8 "<init>", 4 Utf8 "()V"
	w.u16(5) // pool_count = entries+1
	writeUTF8(w, "Main")
	w.u8(uint8(TagClass))
	w.u16(1)
	writeUTF8(w, "<init>")
	writeUTF8(w, "()V")

	w.u16(uint16(AccPublic | AccSuper)) // access_flags
	w.u16(2)                            // this_class
	w.u16(0)                            // super_class
	w.u16(0)                            // interfaces_count

	w.u16(0) // fields_count

	w.u16(1) // methods_count
	w.u16(uint16(AccPublic))
	w.u16(3) // name_index -> <init>
	w.u16(4) // descriptor_index -> ()V
	w.u16(0) // attributes_count (no Code, for a minimal structural test)

	w.u16(0) // class attributes_count
	return w.bytes()
}

func writeUTF8(w *byteWriter, s string) {
	enc := encodeModifiedUTF8(s)
	w.u8(uint8(TagUtf8))
	w.u16(uint16(len(enc)))
	w.bytesRaw(enc)
}

func TestDecodeMinimalClass(t *testing.T) {
	cf, err := Decode(buildMinimalClass(t))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if cf.ThisClassName != "Main" {
		t.Fatalf("ThisClassName = %q, want Main", cf.ThisClassName)
	}
	if cf.SuperClassName != "" {
		t.Fatalf("SuperClassName = %q, want empty (no super_class)", cf.SuperClassName)
	}
	if len(cf.Methods) != 1 || cf.Methods[0].Name != "<init>" || cf.Methods[0].Descriptor != "()V" {
		t.Fatalf("Methods = %+v, want one <init>()V", cf.Methods)
	}
	if !cf.AccessFlags.Has(AccPublic) {
		t.Fatalf("AccessFlags missing AccPublic")
	}
}

func TestDecodeBadMagic(t *testing.T) {
	buf := []byte{0xDE, 0xAD, 0xBE, 0xEF, 0, 0, 0, 0}
	if _, err := Decode(buf); err == nil {
		t.Fatalf("expected an error for bad magic")
	}
}

func TestDecodeTruncated(t *testing.T) {
	full := buildMinimalClass(t)
	if _, err := Decode(full[:len(full)-4]); err == nil {
		t.Fatalf("expected an error decoding a truncated class file")
	}
}

// TestDecodeIdempotent verifies decoding the same bytes twice yields equal
// structures, per spec.md §8 testable property 7.
func TestDecodeIdempotent(t *testing.T) {
	buf := buildMinimalClass(t)
	a, err := Decode(buf)
	if err != nil {
		t.Fatalf("first Decode: %v", err)
	}
	b, err := Decode(buf)
	if err != nil {
		t.Fatalf("second Decode: %v", err)
	}
	if a.ThisClassName != b.ThisClassName || a.MajorVersion != b.MajorVersion {
		t.Fatalf("decoding twice produced different results: %+v vs %+v", a, b)
	}
}
