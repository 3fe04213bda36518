package classfile

import "testing"

// buildPool assembles a minimal constant pool byte stream from entry
// builders and decodes it, mirroring how a class file's pool body looks on
// the wire (pool_count is entries+1, one slot for the unused index 0).
func buildPool(t *testing.T, entries ...func(*byteWriter)) *Pool {
	t.Helper()
	w := newByteWriter()
	for _, e := range entries {
		e(w)
	}
	r := NewReader(w.bytes())
	p, err := DecodePool(r, uint16(len(entries)+1))
	if err != nil {
		t.Fatalf("DecodePool: %v", err)
	}
	return p
}

func utf8Entry(s string) func(*byteWriter) {
	return func(w *byteWriter) {
		enc := encodeModifiedUTF8(s)
		w.u8(uint8(TagUtf8))
		w.u16(uint16(len(enc)))
		w.bytesRaw(enc)
	}
}

func classEntry(nameIdx uint16) func(*byteWriter) {
	return func(w *byteWriter) {
		w.u8(uint8(TagClass))
		w.u16(nameIdx)
	}
}

func longEntry(v int64) func(*byteWriter) {
	return func(w *byteWriter) {
		w.u8(uint8(TagLong))
		w.u64(uint64(v))
	}
}

func TestPoolLongDoubleTwoSlotRule(t *testing.T) {
	// [Utf8 "x"][Long 0x0102030405060708][Utf8 "y"] -> Long at slot 2,
	// slot 3 reserved, "y" at slot 4. Matches spec.md scenario S5.
	p := buildPool(t,
		utf8Entry("x"),
		longEntry(0x0102030405060708),
		utf8Entry("y"),
	)

	if got, err := p.GetUTF8(1); err != nil || got != "x" {
		t.Fatalf("slot 1 = %q, %v; want x, nil", got, err)
	}

	e, err := p.Get(2)
	if err != nil || e.Tag != TagLong || e.LongValue != 0x0102030405060708 {
		t.Fatalf("slot 2 = %+v, %v; want Long 0x0102030405060708", e, err)
	}

	if _, err := p.Get(3); err != ErrMissingEntry {
		if err == nil {
			t.Fatalf("slot 3 (reserved) should be missing, got entry")
		}
	}

	if got, err := p.GetUTF8(4); err != nil || got != "y" {
		t.Fatalf("slot 4 = %q, %v; want y, nil", got, err)
	}
}

func TestPoolGetRefExt(t *testing.T) {
	p := buildPool(t,
		utf8Entry("java/lang/Object"),  // 1
		classEntry(1),                  // 2 -> Class "java/lang/Object"
		utf8Entry("<init>"),            // 3
		utf8Entry("()V"),               // 4
		func(w *byteWriter) { // 5 -> NameAndType(<init>, ()V)
			w.u8(uint8(TagNameAndType))
			w.u16(3)
			w.u16(4)
		},
		func(w *byteWriter) { // 6 -> Methodref(2, 5)
			w.u8(uint8(TagMethodref))
			w.u16(2)
			w.u16(5)
		},
	)

	ext, err := p.GetRefExt(6)
	if err != nil {
		t.Fatalf("GetRefExt: %v", err)
	}
	if ext.ClassName != "java/lang/Object" || ext.Name != "<init>" || ext.Descriptor != "()V" {
		t.Fatalf("GetRefExt = %+v, unexpected", ext)
	}
}

func TestPoolMissingEntry(t *testing.T) {
	p := buildPool(t, utf8Entry("only"))

	if _, err := p.Get(0); err == nil {
		t.Fatalf("index 0 should never be valid")
	}
	if _, err := p.Get(5); err == nil {
		t.Fatalf("out-of-range index should be missing")
	}
	if _, err := p.GetClass(1); err == nil {
		t.Fatalf("wrong-tag access should fail")
	}
}
