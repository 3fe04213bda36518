package archive

import (
	"encoding/binary"
	"testing"

	"github.com/saferwall/jclassvm/internal/testclass"
)

// zipBuilder assembles a minimal stored-only (uncompressed) ZIP archive by
// hand, the same way classfile's tests hand-build class file byte streams,
// so fixtures don't depend on any zip-writing library.
type zipBuilder struct {
	local   []byte
	central []byte
	count   uint16
}

func (z *zipBuilder) add(name string, data []byte) {
	offset := uint32(len(z.local))

	lh := []byte{0x50, 0x4B, 0x03, 0x04}
	lh = append(lh, le16(20)...)          // version needed
	lh = append(lh, le16(0)...)           // flags
	lh = append(lh, le16(0)...)           // method: stored
	lh = append(lh, le16(0)...)           // mod time
	lh = append(lh, le16(0)...)           // mod date
	lh = append(lh, le32(0)...)           // crc-32 (unchecked by this loader)
	lh = append(lh, le32(uint32(len(data)))...)
	lh = append(lh, le32(uint32(len(data)))...)
	lh = append(lh, le16(uint16(len(name)))...)
	lh = append(lh, le16(0)...) // extra length
	lh = append(lh, []byte(name)...)
	lh = append(lh, data...)
	z.local = append(z.local, lh...)

	cd := []byte{0x50, 0x4B, 0x01, 0x02}
	cd = append(cd, le16(20)...) // version made by
	cd = append(cd, le16(20)...) // version needed
	cd = append(cd, le16(0)...)  // flags
	cd = append(cd, le16(0)...)  // method
	cd = append(cd, le16(0)...)  // mod time
	cd = append(cd, le16(0)...)  // mod date
	cd = append(cd, le32(0)...)  // crc-32
	cd = append(cd, le32(uint32(len(data)))...)
	cd = append(cd, le32(uint32(len(data)))...)
	cd = append(cd, le16(uint16(len(name)))...)
	cd = append(cd, le16(0)...) // extra length
	cd = append(cd, le16(0)...) // comment length
	cd = append(cd, le16(0)...) // disk number start
	cd = append(cd, le16(0)...) // internal attrs
	cd = append(cd, le32(0)...) // external attrs
	cd = append(cd, le32(offset)...)
	cd = append(cd, []byte(name)...)
	z.central = append(z.central, cd...)
	z.count++
}

func (z *zipBuilder) bytes() []byte {
	out := append([]byte{}, z.local...)
	cdOffset := uint32(len(out))
	out = append(out, z.central...)

	eocd := []byte{0x50, 0x4B, 0x05, 0x06}
	eocd = append(eocd, le16(0)...) // disk number
	eocd = append(eocd, le16(0)...) // disk with central dir
	eocd = append(eocd, le16(z.count)...)
	eocd = append(eocd, le16(z.count)...)
	eocd = append(eocd, le32(uint32(len(z.central)))...)
	eocd = append(eocd, le32(cdOffset)...)
	eocd = append(eocd, le16(0)...) // comment length
	out = append(out, eocd...)
	return out
}

func le16(v uint16) []byte {
	b := make([]byte, 2)
	binary.LittleEndian.PutUint16(b, v)
	return b
}

func le32(v uint32) []byte {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, v)
	return b
}

func buildUtilClass(t *testing.T) []byte {
	t.Helper()
	b := testclass.New("com/example/Util", "java/lang/Object")
	code := []byte{
		0x1a,       // iload_0
		0x1b,       // iload_1
		0x60,       // iadd
		0xac,       // ireturn
	}
	b.AddMethod("add", "(II)I", 0x0009, 2, 2, code) // PUBLIC|STATIC
	return b.Bytes()
}

func buildMainClass(t *testing.T) []byte {
	t.Helper()
	b := testclass.New("com/example/Main", "java/lang/Object")
	addRef := b.InternMethodref("com/example/Util", "add", "(II)I")
	code := []byte{
		0x10, 2, // bipush 2
		0x10, 40, // bipush 40
		0xb8, byte(addRef >> 8), byte(addRef), // invokestatic
		0xac, // ireturn (scenario only cares the call happens)
	}
	b.AddMethod("main", "([Ljava/lang/String;)V", 0x0009, 2, 2, code)
	return b.Bytes()
}

func TestOpenBytesTwoClassJar(t *testing.T) {
	z := &zipBuilder{}
	z.add("com/example/Main.class", buildMainClass(t))
	z.add("com/example/Util.class", buildUtilClass(t))
	z.add(ManifestPath, []byte("Manifest-Version: 1.0\r\nMain-Class: com.example.Main\r\n"))

	a, err := NewBytes(z.bytes(), nil)
	if err != nil {
		t.Fatalf("NewBytes: %v", err)
	}

	if len(a.Classes) != 2 {
		t.Fatalf("got %d classes, want 2: %+v", len(a.Classes), a.Classes)
	}
	if _, ok := a.Classes["com/example/Main"]; !ok {
		t.Fatalf("missing com/example/Main in class map")
	}
	if _, ok := a.Classes["com/example/Util"]; !ok {
		t.Fatalf("missing com/example/Util in class map")
	}
	if a.Manifest.MainClass != "com/example/Main" {
		t.Fatalf("MainClass = %q, want com/example/Main", a.Manifest.MainClass)
	}
}

func TestOpenBytesNoManifestIsAnomalyNotError(t *testing.T) {
	z := &zipBuilder{}
	z.add("com/example/Util.class", buildUtilClass(t))

	a, err := NewBytes(z.bytes(), nil)
	if err != nil {
		t.Fatalf("NewBytes: %v", err)
	}
	found := false
	for _, an := range a.Anomalies {
		if an == AnoNoManifest {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected AnoNoManifest anomaly, got %+v", a.Anomalies)
	}
}

func TestOpenBytesNotAnArchive(t *testing.T) {
	if _, err := NewBytes([]byte("not a zip"), nil); err == nil {
		t.Fatalf("expected an error for non-archive input")
	}
}
