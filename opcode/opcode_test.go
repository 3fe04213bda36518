package opcode

import "testing"

func TestDecodeSimpleSequence(t *testing.T) {
	code := []byte{byte(OpIconst1), byte(OpIconst2), byte(OpIadd), byte(OpIreturn)}
	insts, err := Decode(code)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(insts) != 4 {
		t.Fatalf("got %d instructions, want 4", len(insts))
	}
	for i, want := range []Op{OpIconst1, OpIconst2, OpIadd, OpIreturn} {
		if insts[i].Op != want {
			t.Fatalf("instruction %d = %#02x, want %#02x", i, insts[i].Op, want)
		}
		if insts[i].Offset != i || insts[i].Width != 1 {
			t.Fatalf("instruction %d offset/width = %d/%d, want %d/1", i, insts[i].Offset, insts[i].Width, i)
		}
	}
}

// TestDecodeBranchOffsetBase verifies §4.7: the branch displacement is
// relative to the branching instruction's own offset, not the offset after
// its operands.
func TestDecodeBranchOffsetBase(t *testing.T) {
	// offset 0: nop; offset 1: goto +4 (target = 1+4 = 5); offset 4: nop; offset 5: return
	code := []byte{byte(OpNop), byte(OpGoto), 0x00, 0x04, byte(OpNop), byte(OpReturn)}
	insts, err := Decode(code)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	g := insts[1]
	if g.Op != OpGoto || g.Branch != 5 {
		t.Fatalf("goto = %+v, want Branch=5", g)
	}
}

func TestDecodeBipushSipush(t *testing.T) {
	code := []byte{byte(OpBipush), 0xFF, byte(OpSipush), 0x01, 0x00}
	insts, err := Decode(code)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if insts[0].Const != -1 {
		t.Fatalf("bipush 0xFF = %d, want -1 (signed byte)", insts[0].Const)
	}
	if insts[1].Const != 256 {
		t.Fatalf("sipush 0x0100 = %d, want 256", insts[1].Const)
	}
}

func TestDecodeIinc(t *testing.T) {
	code := []byte{byte(OpIinc), 3, 0xFF} // local 3, delta -1
	insts, err := Decode(code)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if insts[0].Local != 3 || insts[0].Const != -1 {
		t.Fatalf("iinc = %+v, want Local=3 Const=-1", insts[0])
	}
}

// TestDecodeTableswitchAlignment verifies scenario S6's shape: padding to
// 4-byte alignment from the start of the code array, default/low/high plus
// offsets resolved to absolute targets.
func TestDecodeTableswitchAlignment(t *testing.T) {
	// tableswitch at offset 1 (after one nop): pad to align (1+1)=2 bytes to
	// reach a 4-byte boundary at offset 4.
	code := make([]byte, 0)
	code = append(code, byte(OpNop))
	code = append(code, byte(OpTableswitch))
	code = append(code, 0, 0) // 2 padding bytes -> next field starts at offset 4
	code = append(code, 0, 0, 0, 100) // default = +100 -> target 1+100=101
	code = append(code, 0, 0, 0, 0)   // low = 0
	code = append(code, 0, 0, 0, 2)   // high = 2
	code = append(code, 0, 0, 0, 10)  // offsets[0] = +10 -> target 11
	code = append(code, 0, 0, 0, 20)  // offsets[1] = +20 -> target 21
	code = append(code, 0, 0, 0, 30)  // offsets[2] = +30 -> target 31

	insts, err := Decode(code)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	ts := insts[1]
	if ts.Op != OpTableswitch {
		t.Fatalf("expected tableswitch at index 1, got %+v", ts)
	}
	if ts.Table.Default != 101 || ts.Table.Low != 0 || ts.Table.High != 2 {
		t.Fatalf("table = %+v, want Default=101 Low=0 High=2", ts.Table)
	}
	want := []int{11, 21, 31}
	for i, w := range want {
		if ts.Table.Offsets[i] != w {
			t.Fatalf("offsets[%d] = %d, want %d", i, ts.Table.Offsets[i], w)
		}
	}
}

func TestDecodeLookupswitch(t *testing.T) {
	code := make([]byte, 0)
	code = append(code, byte(OpLookupswitch))
	code = append(code, 0, 0, 0) // 3 padding bytes -> aligned fields start at offset 4
	code = append(code, 0, 0, 0, 9) // default = +9 -> target 9
	code = append(code, 0, 0, 0, 2) // npairs = 2
	code = append(code, 0, 0, 0, 1, 0, 0, 0, 5)  // match=1 offset=5 -> target 5
	code = append(code, 0, 0, 0, 2, 0, 0, 0, 6)  // match=2 offset=6 -> target 6

	insts, err := Decode(code)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	ls := insts[0].Lookup
	if ls.Default != 9 || len(ls.Pairs) != 2 {
		t.Fatalf("lookup = %+v", ls)
	}
	if ls.Pairs[0].Match != 1 || ls.Pairs[0].Target != 5 {
		t.Fatalf("pair 0 = %+v", ls.Pairs[0])
	}
}

func TestDecodeWideIload(t *testing.T) {
	code := []byte{byte(OpWide), byte(OpIload), 0x01, 0x00}
	insts, err := Decode(code)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if insts[0].WideOp != OpIload || insts[0].Local != 256 {
		t.Fatalf("wide iload = %+v, want WideOp=iload Local=256", insts[0])
	}
}

func TestDecodeWideIinc(t *testing.T) {
	code := []byte{byte(OpWide), byte(OpIinc), 0x00, 0x01, 0xFF, 0xFF}
	insts, err := Decode(code)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if insts[0].WideOp != OpIinc || insts[0].Local != 1 || insts[0].Const != -1 {
		t.Fatalf("wide iinc = %+v", insts[0])
	}
}

func TestDecodeUnsupportedOpcode(t *testing.T) {
	code := []byte{0xFD} // unused reserved byte
	if _, err := Decode(code); err == nil {
		t.Fatalf("expected an error for an unsupported opcode")
	}
}
