package classfile

import "testing"

// buildClassWithAttributes assembles a minimal class file carrying one
// class-level SourceFile attribute and one BootstrapMethods attribute, plus
// a Code attribute on <init> carrying its own LineNumberTable, exercising
// attribute decoding beyond the attribute-free class buildMinimalClass builds.
func buildClassWithAttributes(t *testing.T) []byte {
	t.Helper()
	w := newByteWriter()
	w.u32(Magic)
	w.u16(0)
	w.u16(52)

	// pool: 1 Utf8 Main, 2 Class(1), 3 Utf8 <init>, 4 Utf8 ()V,
	// 5 Utf8 Code, 6 Utf8 LineNumberTable, 7 Utf8 SourceFile,
	// 8 Utf8 Main.java, 9 Utf8 BootstrapMethods
	w.u16(10)
	writeUTF8(w, "Main")
	w.u8(uint8(TagClass))
	w.u16(1)
	writeUTF8(w, "<init>")
	writeUTF8(w, "()V")
	writeUTF8(w, "Code")
	writeUTF8(w, "LineNumberTable")
	writeUTF8(w, "SourceFile")
	writeUTF8(w, "Main.java")
	writeUTF8(w, "BootstrapMethods")

	w.u16(uint16(AccPublic | AccSuper))
	w.u16(2) // this_class
	w.u16(0) // super_class
	w.u16(0) // interfaces_count
	w.u16(0) // fields_count

	w.u16(1) // methods_count
	w.u16(uint16(AccPublic))
	w.u16(3) // name -> <init>
	w.u16(4) // descriptor -> ()V
	w.u16(1) // attributes_count: Code only

	// Code attribute body, with one nested LineNumberTable attribute.
	code := newByteWriter()
	code.u16(1)                       // max_stack
	code.u16(1)                       // max_locals
	methodCode := []byte{0x2a, 0xb1}  // aload_0; return
	code.u32(uint32(len(methodCode)))
	code.bytesRaw(methodCode)
	code.u16(0) // exception_table_length

	lineTable := newByteWriter()
	lineTable.u16(1) // line_number_table_length
	lineTable.u16(0) // start_pc
	lineTable.u16(7) // line_number

	code.u16(1) // attributes_count
	code.u16(6) // name -> LineNumberTable
	code.u32(uint32(len(lineTable.bytes())))
	code.bytesRaw(lineTable.bytes())

	w.u16(5) // name -> Code
	w.u32(uint32(len(code.bytes())))
	w.bytesRaw(code.bytes())

	// class attributes: SourceFile, BootstrapMethods
	w.u16(2)

	w.u16(7) // name -> SourceFile
	w.u32(2)
	w.u16(8) // sourcefile_index -> Main.java

	bsm := newByteWriter()
	bsm.u16(1) // num_bootstrap_methods
	bsm.u16(99) // bootstrap_method_ref (not a real MethodHandle entry; unvalidated)
	bsm.u16(1)  // num_bootstrap_arguments
	bsm.u16(1)  // argument[0] -> pool index 1 ("Main")

	w.u16(9) // name -> BootstrapMethods
	w.u32(uint32(len(bsm.bytes())))
	w.bytesRaw(bsm.bytes())

	return w.bytes()
}

func TestDecodeClassAttributes(t *testing.T) {
	cf, err := Decode(buildClassWithAttributes(t))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}

	if len(cf.Attributes) != 2 {
		t.Fatalf("class Attributes = %+v, want 2 entries", cf.Attributes)
	}

	sf, ok := cf.Attributes[0].Data.(*SourceFileAttribute)
	if !ok {
		t.Fatalf("Attributes[0].Data = %T, want *SourceFileAttribute", cf.Attributes[0].Data)
	}
	name, err := cf.Pool.GetUTF8(sf.SourceFileIndex)
	if err != nil || name != "Main.java" {
		t.Errorf("SourceFile resolves to %q (err %v), want Main.java", name, err)
	}

	bsm, ok := cf.Attributes[1].Data.(*BootstrapMethodsAttribute)
	if !ok {
		t.Fatalf("Attributes[1].Data = %T, want *BootstrapMethodsAttribute", cf.Attributes[1].Data)
	}
	if len(bsm.Methods) != 1 || bsm.Methods[0].MethodRef != 99 || len(bsm.Methods[0].Arguments) != 1 || bsm.Methods[0].Arguments[0] != 1 {
		t.Fatalf("BootstrapMethods = %+v, want one method ref 99 with argument [1]", bsm.Methods)
	}
}

func TestDecodeCodeAttributeWithLineNumberTable(t *testing.T) {
	cf, err := Decode(buildClassWithAttributes(t))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(cf.Methods) != 1 {
		t.Fatalf("Methods = %+v, want one", cf.Methods)
	}
	code, ok := cf.Methods[0].Code()
	if !ok {
		t.Fatal("Methods[0].Code(): want a Code attribute")
	}
	if code.MaxStack != 1 || code.MaxLocals != 1 {
		t.Errorf("Code = %+v, want MaxStack=1 MaxLocals=1", code)
	}
	if len(code.Attributes) != 1 {
		t.Fatalf("Code.Attributes = %+v, want one nested attribute", code.Attributes)
	}
	lnt, ok := code.Attributes[0].Data.(*LineNumberTableAttribute)
	if !ok {
		t.Fatalf("Code.Attributes[0].Data = %T, want *LineNumberTableAttribute", code.Attributes[0].Data)
	}
	if len(lnt.Entries) != 1 || lnt.Entries[0].StartPC != 0 || lnt.Entries[0].LineNumber != 7 {
		t.Fatalf("LineNumberTable entries = %+v, want one {0,7}", lnt.Entries)
	}
}

func TestAttributeUnrecognizedIsSkippedVerbatim(t *testing.T) {
	w := newByteWriter()
	w.u32(Magic)
	w.u16(0)
	w.u16(52)

	w.u16(6)
	writeUTF8(w, "Main")
	w.u8(uint8(TagClass))
	w.u16(1)
	writeUTF8(w, "<init>")
	writeUTF8(w, "()V")
	writeUTF8(w, "Deprecated")

	w.u16(uint16(AccPublic | AccSuper))
	w.u16(2)
	w.u16(0)
	w.u16(0)
	w.u16(0)

	w.u16(1)
	w.u16(uint16(AccPublic))
	w.u16(3)
	w.u16(4)
	w.u16(0) // attributes_count (no Code here, just test class attribute below)

	w.u16(1)    // class attributes_count
	w.u16(5)    // name -> Deprecated
	w.u32(0)    // length 0, no payload

	cf, err := Decode(w.bytes())
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(cf.Attributes) != 1 {
		t.Fatalf("Attributes = %+v, want one", cf.Attributes)
	}
	skipped, ok := cf.Attributes[0].Data.(*AnnotatedSkipped)
	if !ok {
		t.Fatalf("Attributes[0].Data = %T, want *AnnotatedSkipped", cf.Attributes[0].Data)
	}
	if skipped.Name != "Deprecated" || len(skipped.Raw) != 0 {
		t.Errorf("AnnotatedSkipped = %+v, want {Deprecated, []}", skipped)
	}
}
