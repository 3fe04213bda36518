package vm_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/saferwall/jclassvm/classfile"
	"github.com/saferwall/jclassvm/gfunction"
	"github.com/saferwall/jclassvm/internal/testclass"
	"github.com/saferwall/jclassvm/vm"
)

// buildSample assembles one class, "Sample", with three static methods:
//
//	main([Ljava/lang/String;)V  drives the other two through System.out,
//	  exercising getstatic/ldc/invokevirtual/invokestatic end to end.
//	divSafe()I                  divides 1/0, catching the resulting
//	  ArithmeticException in its own exception_table and returning -1.
//	pick(I)I                    a tableswitch over 0..2 with a default arm.
func buildSample(t *testing.T) *classfile.ClassFile {
	t.Helper()
	b := testclass.New("Sample", "java/lang/Object")

	fieldSystemOut := b.InternFieldref("java/lang/System", "out", "Ljava/io/PrintStream;")
	stringHello := b.InternString("Hello, World!")
	printlnString := b.InternMethodref("java/io/PrintStream", "println", "(Ljava/lang/String;)V")
	printlnInt := b.InternMethodref("java/io/PrintStream", "println", "(I)V")
	divSafeRef := b.InternMethodref("Sample", "divSafe", "()I")
	pickRef := b.InternMethodref("Sample", "pick", "(I)I")

	var main []byte
	main = append(main, 0xb2, hi(fieldSystemOut), lo(fieldSystemOut)) // getstatic System.out
	main = append(main, 0x12, byte(stringHello))                     // ldc "Hello, World!"
	main = append(main, 0xb6, hi(printlnString), lo(printlnString))  // invokevirtual println(String)
	main = append(main, 0xb2, hi(fieldSystemOut), lo(fieldSystemOut))
	main = append(main, 0x05) // iconst_2
	main = append(main, 0x06) // iconst_3
	main = append(main, 0x60) // iadd
	main = append(main, 0xb6, hi(printlnInt), lo(printlnInt))
	main = append(main, 0xb2, hi(fieldSystemOut), lo(fieldSystemOut))
	main = append(main, 0xb8, hi(divSafeRef), lo(divSafeRef)) // invokestatic divSafe()I
	main = append(main, 0xb6, hi(printlnInt), lo(printlnInt))
	main = append(main, 0xb2, hi(fieldSystemOut), lo(fieldSystemOut))
	main = append(main, 0x04)                               // iconst_1
	main = append(main, 0xb8, hi(pickRef), lo(pickRef))      // invokestatic pick(I)I
	main = append(main, 0xb6, hi(printlnInt), lo(printlnInt))
	main = append(main, 0xb1) // return
	b.AddMethod("main", "([Ljava/lang/String;)V", accPublicStatic, 3, 1, main)

	// divSafe: iconst_1; iconst_0; idiv; ireturn -- throws, caught by the
	// handler below which pops the exception ref and returns -1.
	divSafe := []byte{
		0x04,       // iconst_1
		0x03,       // iconst_0
		0x6c,       // idiv
		0xac,       // ireturn (unreached; idiv always throws here)
		0x57,       // pop (handler: discard exception ref)
		0x02,       // iconst_m1
		0xac,       // ireturn
	}
	b.AddMethodWithHandler("divSafe", "()I", accPublicStatic, 2, 0, divSafe,
		0, 4, 4, "java/lang/ArithmeticException")

	// pick: tableswitch over key in [0,2] -> {4, 50, 5}, default -1.
	pick := []byte{
		0x1a,                   // iload_0, pc 0
		0xaa,                   // tableswitch, pc 1
		0x00, 0x00,             // 2 bytes padding (pc 2,3)
		0x00, 0x00, 0x00, 0x22, // default = pc(1) + 34 = 35
		0x00, 0x00, 0x00, 0x00, // low = 0
		0x00, 0x00, 0x00, 0x02, // high = 2
		0x00, 0x00, 0x00, 0x1b, // offset[0] = pc(1) + 27 = 28
		0x00, 0x00, 0x00, 0x1d, // offset[1] = pc(1) + 29 = 30
		0x00, 0x00, 0x00, 0x20, // offset[2] = pc(1) + 32 = 33
		// pc 28
		0x07, // iconst_4
		0xac, // ireturn
		// pc 30
		0x10, 0x32, // bipush 50
		0xac, // ireturn
		// pc 33
		0x08, // iconst_5
		0xac, // ireturn
		// pc 35
		0x02, // iconst_m1
		0xac, // ireturn
	}
	b.AddMethod("pick", "(I)I", accPublicStatic, 1, 1, pick)

	cf, err := classfile.Decode(b.Bytes())
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	return cf
}

const accPublicStatic = uint16(classfile.AccPublic | classfile.AccStatic)

func hi(idx uint16) byte { return byte(idx >> 8) }
func lo(idx uint16) byte { return byte(idx) }

func TestRunMainEndToEnd(t *testing.T) {
	cf := buildSample(t)
	var out bytes.Buffer
	registry := gfunction.NewRegistry()
	m := vm.New(map[string]*classfile.ClassFile{cf.ThisClassName: cf}, &vm.Config{
		Natives: registry,
		Stdout:  &out,
	})
	gfunction.Seed(m)

	if err := m.RunMain("Sample"); err != nil {
		t.Fatalf("RunMain: %v", err)
	}

	lines := strings.Split(strings.TrimRight(out.String(), "\n"), "\n")
	want := []string{"Hello, World!", "5", "-1", "50"}
	if len(lines) != len(want) {
		t.Fatalf("output lines = %q, want %q", lines, want)
	}
	for i, w := range want {
		if lines[i] != w {
			t.Errorf("line %d = %q, want %q", i, lines[i], w)
		}
	}
}

func TestRunMainRejectsNonPublicStatic(t *testing.T) {
	b := testclass.New("NotRunnable", "java/lang/Object")
	b.AddMethod("main", "([Ljava/lang/String;)V", uint16(classfile.AccStatic), 0, 1, []byte{0xb1})
	cf, err := classfile.Decode(b.Bytes())
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	m := vm.New(map[string]*classfile.ClassFile{cf.ThisClassName: cf}, nil)
	if err := m.RunMain("NotRunnable"); err == nil {
		t.Fatal("RunMain: want error for non-public main, got nil")
	}
}

func TestUncaughtExceptionPropagates(t *testing.T) {
	b := testclass.New("Thrower", "java/lang/Object")
	main := []byte{
		0x04, // iconst_1
		0x03, // iconst_0
		0x6c, // idiv, throws ArithmeticException, no handler
		0xac, // ireturn (unreached)
	}
	b.AddMethod("main", "([Ljava/lang/String;)V", accPublicStatic, 2, 1, main)
	cf, err := classfile.Decode(b.Bytes())
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	m := vm.New(map[string]*classfile.ClassFile{cf.ThisClassName: cf}, nil)
	err = m.RunMain("Thrower")
	if err == nil {
		t.Fatal("RunMain: want uncaught ArithmeticException error, got nil")
	}
	if !strings.Contains(err.Error(), "ArithmeticException") {
		t.Fatalf("RunMain error = %v, want it to mention ArithmeticException", err)
	}
}

func TestStringBuilderAndIntegerNatives(t *testing.T) {
	b := testclass.New("Builder", "java/lang/Object")

	fieldSystemOut := b.InternFieldref("java/lang/System", "out", "Ljava/io/PrintStream;")
	printlnString := b.InternMethodref("java/io/PrintStream", "println", "(Ljava/lang/String;)V")
	sbInit := b.InternMethodref("java/lang/StringBuilder", "<init>", "()V")
	sbAppendStr := b.InternMethodref("java/lang/StringBuilder", "append", "(Ljava/lang/String;)Ljava/lang/StringBuilder;")
	sbAppendInt := b.InternMethodref("java/lang/StringBuilder", "append", "(I)Ljava/lang/StringBuilder;")
	sbToString := b.InternMethodref("java/lang/StringBuilder", "toString", "()Ljava/lang/String;")
	sbClass := b.InternClass("java/lang/StringBuilder")
	parseInt := b.InternMethodref("java/lang/Integer", "parseInt", "(Ljava/lang/String;)I")
	literal := b.InternString("count=")
	numLiteral := b.InternString("42")

	var main []byte
	main = append(main, 0xbb, hi(sbClass), lo(sbClass)) // new StringBuilder
	main = append(main, 0x59)                           // dup
	main = append(main, 0xb7, hi(sbInit), lo(sbInit))    // invokespecial <init>
	main = append(main, 0x12, byte(literal))             // ldc "count="
	main = append(main, 0xb6, hi(sbAppendStr), lo(sbAppendStr))
	main = append(main, 0x12, byte(numLiteral)) // ldc "42"
	main = append(main, 0xb8, hi(parseInt), lo(parseInt))
	main = append(main, 0xb6, hi(sbAppendInt), lo(sbAppendInt))
	main = append(main, 0xb6, hi(sbToString), lo(sbToString))
	main = append(main, 0x4c) // astore_1
	main = append(main, 0xb2, hi(fieldSystemOut), lo(fieldSystemOut))
	main = append(main, 0x2b) // aload_1
	main = append(main, 0xb6, hi(printlnString), lo(printlnString))
	main = append(main, 0xb1) // return

	b.AddMethod("main", "([Ljava/lang/String;)V", accPublicStatic, 4, 2, main)

	cf, err := classfile.Decode(b.Bytes())
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	var out bytes.Buffer
	registry := gfunction.NewRegistry()
	m := vm.New(map[string]*classfile.ClassFile{cf.ThisClassName: cf}, &vm.Config{Natives: registry, Stdout: &out})
	gfunction.Seed(m)

	if err := m.RunMain("Builder"); err != nil {
		t.Fatalf("RunMain: %v", err)
	}
	got := strings.TrimRight(out.String(), "\n")
	if got != "count=42" {
		t.Fatalf("output = %q, want %q", got, "count=42")
	}
}
