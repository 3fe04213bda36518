// Package opcode turns a method's raw Code bytes into a sequence of typed
// instructions, resolving every variable-length and aligned form (tableswitch,
// lookupswitch, wide) into a single decoded shape the vm package can dispatch
// on without re-parsing operand bytes itself.
package opcode

import (
	"encoding/binary"
	"fmt"
)

// Op identifies one JVM instruction opcode byte.
type Op uint8

// Opcode values, per the standard JVM instruction set. Every opcode from
// 0x00 through 0xc9 has a symbolic constant; Decode rejects any other byte
// with an UnsupportedOpcodeError.
const (
	OpNop         Op = 0x00
	OpAconstNull  Op = 0x01
	OpIconstM1    Op = 0x02
	OpIconst0     Op = 0x03
	OpIconst1     Op = 0x04
	OpIconst2     Op = 0x05
	OpIconst3     Op = 0x06
	OpIconst4     Op = 0x07
	OpIconst5     Op = 0x08
	OpLconst0     Op = 0x09
	OpLconst1     Op = 0x0a
	OpFconst0     Op = 0x0b
	OpFconst1     Op = 0x0c
	OpFconst2     Op = 0x0d
	OpDconst0     Op = 0x0e
	OpDconst1     Op = 0x0f
	OpBipush      Op = 0x10
	OpSipush      Op = 0x11
	OpLdc         Op = 0x12
	OpLdcW        Op = 0x13
	OpLdc2W       Op = 0x14
	OpIload       Op = 0x15
	OpLload       Op = 0x16
	OpFload       Op = 0x17
	OpDload       Op = 0x18
	OpAload       Op = 0x19
	OpIload0      Op = 0x1a
	OpIload1      Op = 0x1b
	OpIload2      Op = 0x1c
	OpIload3      Op = 0x1d
	OpLload0      Op = 0x1e
	OpLload1      Op = 0x1f
	OpLload2      Op = 0x20
	OpLload3      Op = 0x21
	OpFload0      Op = 0x22
	OpFload1      Op = 0x23
	OpFload2      Op = 0x24
	OpFload3      Op = 0x25
	OpDload0      Op = 0x26
	OpDload1      Op = 0x27
	OpDload2      Op = 0x28
	OpDload3      Op = 0x29
	OpAload0      Op = 0x2a
	OpAload1      Op = 0x2b
	OpAload2      Op = 0x2c
	OpAload3      Op = 0x2d
	OpIaload      Op = 0x2e
	OpLaload      Op = 0x2f
	OpFaload      Op = 0x30
	OpDaload      Op = 0x31
	OpAaload      Op = 0x32
	OpBaload      Op = 0x33
	OpCaload      Op = 0x34
	OpSaload      Op = 0x35
	OpIstore      Op = 0x36
	OpLstore      Op = 0x37
	OpFstore      Op = 0x38
	OpDstore      Op = 0x39
	OpAstore      Op = 0x3a
	OpIstore0     Op = 0x3b
	OpIstore1     Op = 0x3c
	OpIstore2     Op = 0x3d
	OpIstore3     Op = 0x3e
	OpLstore0     Op = 0x3f
	OpLstore1     Op = 0x40
	OpLstore2     Op = 0x41
	OpLstore3     Op = 0x42
	OpFstore0     Op = 0x43
	OpFstore1     Op = 0x44
	OpFstore2     Op = 0x45
	OpFstore3     Op = 0x46
	OpDstore0     Op = 0x47
	OpDstore1     Op = 0x48
	OpDstore2     Op = 0x49
	OpDstore3     Op = 0x4a
	OpAstore0     Op = 0x4b
	OpAstore1     Op = 0x4c
	OpAstore2     Op = 0x4d
	OpAstore3     Op = 0x4e
	OpIastore     Op = 0x4f
	OpLastore     Op = 0x50
	OpFastore     Op = 0x51
	OpDastore     Op = 0x52
	OpAastore     Op = 0x53
	OpBastore     Op = 0x54
	OpCastore     Op = 0x55
	OpSastore     Op = 0x56
	OpPop         Op = 0x57
	OpPop2        Op = 0x58
	OpDup         Op = 0x59
	OpDupX1       Op = 0x5a
	OpDupX2       Op = 0x5b
	OpDup2        Op = 0x5c
	OpDup2X1      Op = 0x5d
	OpDup2X2      Op = 0x5e
	OpSwap        Op = 0x5f
	OpIadd        Op = 0x60
	OpLadd        Op = 0x61
	OpFadd        Op = 0x62
	OpDadd        Op = 0x63
	OpIsub        Op = 0x64
	OpLsub        Op = 0x65
	OpFsub        Op = 0x66
	OpDsub        Op = 0x67
	OpImul        Op = 0x68
	OpLmul        Op = 0x69
	OpFmul        Op = 0x6a
	OpDmul        Op = 0x6b
	OpIdiv        Op = 0x6c
	OpLdiv        Op = 0x6d
	OpFdiv        Op = 0x6e
	OpDdiv        Op = 0x6f
	OpIrem        Op = 0x70
	OpLrem        Op = 0x71
	OpFrem        Op = 0x72
	OpDrem        Op = 0x73
	OpIneg        Op = 0x74
	OpLneg        Op = 0x75
	OpFneg        Op = 0x76
	OpDneg        Op = 0x77
	OpIshl        Op = 0x78
	OpLshl        Op = 0x79
	OpIshr        Op = 0x7a
	OpLshr        Op = 0x7b
	OpIushr       Op = 0x7c
	OpLushr       Op = 0x7d
	OpIand        Op = 0x7e
	OpLand        Op = 0x7f
	OpIor         Op = 0x80
	OpLor         Op = 0x81
	OpIxor        Op = 0x82
	OpLxor        Op = 0x83
	OpIinc        Op = 0x84
	OpI2l         Op = 0x85
	OpI2f         Op = 0x86
	OpI2d         Op = 0x87
	OpL2i         Op = 0x88
	OpL2f         Op = 0x89
	OpL2d         Op = 0x8a
	OpF2i         Op = 0x8b
	OpF2l         Op = 0x8c
	OpF2d         Op = 0x8d
	OpD2i         Op = 0x8e
	OpD2l         Op = 0x8f
	OpD2f         Op = 0x90
	OpI2b         Op = 0x91
	OpI2c         Op = 0x92
	OpI2s         Op = 0x93
	OpLcmp        Op = 0x94
	OpFcmpl       Op = 0x95
	OpFcmpg       Op = 0x96
	OpDcmpl       Op = 0x97
	OpDcmpg       Op = 0x98
	OpIfeq        Op = 0x99
	OpIfne        Op = 0x9a
	OpIflt        Op = 0x9b
	OpIfge        Op = 0x9c
	OpIfgt        Op = 0x9d
	OpIfle        Op = 0x9e
	OpIfIcmpeq    Op = 0x9f
	OpIfIcmpne    Op = 0xa0
	OpIfIcmplt    Op = 0xa1
	OpIfIcmpge    Op = 0xa2
	OpIfIcmpgt    Op = 0xa3
	OpIfIcmple    Op = 0xa4
	OpIfAcmpeq    Op = 0xa5
	OpIfAcmpne    Op = 0xa6
	OpGoto        Op = 0xa7
	OpJsr         Op = 0xa8
	OpRet         Op = 0xa9
	OpTableswitch Op = 0xaa
	OpLookupswitch Op = 0xab
	OpIreturn     Op = 0xac
	OpLreturn     Op = 0xad
	OpFreturn     Op = 0xae
	OpDreturn     Op = 0xaf
	OpAreturn     Op = 0xb0
	OpReturn      Op = 0xb1
	OpGetstatic   Op = 0xb2
	OpPutstatic   Op = 0xb3
	OpGetfield    Op = 0xb4
	OpPutfield    Op = 0xb5
	OpInvokevirtual   Op = 0xb6
	OpInvokespecial   Op = 0xb7
	OpInvokestatic    Op = 0xb8
	OpInvokeinterface Op = 0xb9
	OpInvokedynamic   Op = 0xba
	OpNew             Op = 0xbb
	OpNewarray        Op = 0xbc
	OpAnewarray       Op = 0xbd
	OpArraylength     Op = 0xbe
	OpAthrow          Op = 0xbf
	OpCheckcast       Op = 0xc0
	OpInstanceof      Op = 0xc1
	OpMonitorenter    Op = 0xc2
	OpMonitorexit     Op = 0xc3
	OpWide            Op = 0xc4
	OpMultianewarray  Op = 0xc5
	OpIfnull          Op = 0xc6
	OpIfnonnull       Op = 0xc7
	OpGotoW           Op = 0xc8
	OpJsrW            Op = 0xc9
)

// TableSwitch is the decoded operand of a tableswitch instruction. Offsets
// are absolute target program counters, already resolved from the base pc.
type TableSwitch struct {
	Default  int
	Low      int32
	High     int32
	Offsets  []int // len == High-Low+1
}

// LookupPair is one (match, target) entry of a lookupswitch.
type LookupPair struct {
	Match  int32
	Target int
}

// LookupSwitch is the decoded operand of a lookupswitch instruction, sorted
// ascending by Match per the class file format's requirement.
type LookupSwitch struct {
	Default int
	Pairs   []LookupPair
}

// Instruction is one decoded opcode plus whichever operand fields its shape
// populates. Offset/Width let the vm package step the pc without re-deriving
// instruction boundaries, satisfying §8 property 3.
type Instruction struct {
	Offset int
	Op     Op
	Width  int

	Local  uint16 // local variable slot (iload/istore/iinc/ret and the wide forms)
	Const  int32  // bipush/sipush/iinc-delta/newarray-type-tag/invokeinterface-count
	Pool   uint16 // constant pool index
	Branch int    // absolute target pc for branch/goto/jsr instructions
	Dims   uint8  // multianewarray dimension count

	Table  *TableSwitch
	Lookup *LookupSwitch

	// WideOp describes a decoded wide-prefixed instruction: Op is
	// OpWide, WideOp is the instruction it widens, Local/Const follow the
	// same meaning as the unprefixed form.
	WideOp Op
}

// UnsupportedOpcodeError is returned for an opcode byte with no known
// decode shape.
type UnsupportedOpcodeError struct {
	Op     byte
	Offset int
}

func (e *UnsupportedOpcodeError) Error() string {
	return fmt.Sprintf("opcode: unsupported opcode %#02x at offset %d", e.Op, e.Offset)
}

// Decode scans code sequentially into a typed instruction sequence.
func Decode(code []byte) ([]Instruction, error) {
	var out []Instruction
	pc := 0
	for pc < len(code) {
		inst, width, err := decodeOne(code, pc)
		if err != nil {
			return nil, err
		}
		inst.Offset = pc
		inst.Width = width
		out = append(out, inst)
		pc += width
	}
	return out, nil
}

func decodeOne(code []byte, pc int) (Instruction, int, error) {
	op := Op(code[pc])

	switch op {
	case OpNop, OpAconstNull,
		OpIconstM1, OpIconst0, OpIconst1, OpIconst2, OpIconst3, OpIconst4, OpIconst5,
		OpLconst0, OpLconst1, OpFconst0, OpFconst1, OpFconst2, OpDconst0, OpDconst1,
		OpIload0, OpIload1, OpIload2, OpIload3,
		OpLload0, OpLload1, OpLload2, OpLload3,
		OpFload0, OpFload1, OpFload2, OpFload3,
		OpDload0, OpDload1, OpDload2, OpDload3,
		OpAload0, OpAload1, OpAload2, OpAload3,
		OpIstore0, OpIstore1, OpIstore2, OpIstore3,
		OpLstore0, OpLstore1, OpLstore2, OpLstore3,
		OpFstore0, OpFstore1, OpFstore2, OpFstore3,
		OpDstore0, OpDstore1, OpDstore2, OpDstore3,
		OpAstore0, OpAstore1, OpAstore2, OpAstore3,
		OpIaload, OpLaload, OpFaload, OpDaload, OpAaload, OpBaload, OpCaload, OpSaload,
		OpIastore, OpLastore, OpFastore, OpDastore, OpAastore, OpBastore, OpCastore, OpSastore,
		OpPop, OpPop2, OpDup, OpDupX1, OpDupX2, OpDup2, OpDup2X1, OpDup2X2, OpSwap,
		OpIadd, OpLadd, OpFadd, OpDadd, OpIsub, OpLsub, OpFsub, OpDsub,
		OpImul, OpLmul, OpFmul, OpDmul, OpIdiv, OpLdiv, OpFdiv, OpDdiv,
		OpIrem, OpLrem, OpFrem, OpDrem, OpIneg, OpLneg, OpFneg, OpDneg,
		OpIshl, OpLshl, OpIshr, OpLshr, OpIushr, OpLushr, OpIand, OpLand, OpIor, OpLor, OpIxor, OpLxor,
		OpI2l, OpI2f, OpI2d, OpL2i, OpL2f, OpL2d, OpF2i, OpF2l, OpF2d, OpD2i, OpD2l, OpD2f,
		OpI2b, OpI2c, OpI2s, OpLcmp, OpFcmpl, OpFcmpg, OpDcmpl, OpDcmpg,
		OpIreturn, OpLreturn, OpFreturn, OpDreturn, OpAreturn, OpReturn,
		OpArraylength, OpAthrow, OpMonitorenter, OpMonitorexit:
		return instLocal(op, implicitLocal(op)), 1, nil

	case OpBipush:
		if pc+2 > len(code) {
			return Instruction{}, 0, truncated(op, pc)
		}
		return Instruction{Op: op, Const: int32(int8(code[pc+1]))}, 2, nil

	case OpSipush:
		if pc+3 > len(code) {
			return Instruction{}, 0, truncated(op, pc)
		}
		return Instruction{Op: op, Const: int32(int16(binary.BigEndian.Uint16(code[pc+1:])))}, 3, nil

	case OpLdc:
		if pc+2 > len(code) {
			return Instruction{}, 0, truncated(op, pc)
		}
		return Instruction{Op: op, Pool: uint16(code[pc+1])}, 2, nil

	case OpLdcW, OpLdc2W:
		if pc+3 > len(code) {
			return Instruction{}, 0, truncated(op, pc)
		}
		return Instruction{Op: op, Pool: binary.BigEndian.Uint16(code[pc+1:])}, 3, nil

	case OpIload, OpLload, OpFload, OpDload, OpAload,
		OpIstore, OpLstore, OpFstore, OpDstore, OpAstore, OpRet:
		if pc+2 > len(code) {
			return Instruction{}, 0, truncated(op, pc)
		}
		return Instruction{Op: op, Local: uint16(code[pc+1])}, 2, nil

	case OpIinc:
		if pc+3 > len(code) {
			return Instruction{}, 0, truncated(op, pc)
		}
		return Instruction{Op: op, Local: uint16(code[pc+1]), Const: int32(int8(code[pc+2]))}, 3, nil

	case OpIfeq, OpIfne, OpIflt, OpIfge, OpIfgt, OpIfle,
		OpIfIcmpeq, OpIfIcmpne, OpIfIcmplt, OpIfIcmpge, OpIfIcmpgt, OpIfIcmple,
		OpIfAcmpeq, OpIfAcmpne, OpGoto, OpJsr, OpIfnull, OpIfnonnull:
		if pc+3 > len(code) {
			return Instruction{}, 0, truncated(op, pc)
		}
		disp := int16(binary.BigEndian.Uint16(code[pc+1:]))
		return Instruction{Op: op, Branch: pc + int(disp)}, 3, nil

	case OpGotoW, OpJsrW:
		if pc+5 > len(code) {
			return Instruction{}, 0, truncated(op, pc)
		}
		disp := int32(binary.BigEndian.Uint32(code[pc+1:]))
		return Instruction{Op: op, Branch: pc + int(disp)}, 5, nil

	case OpGetstatic, OpPutstatic, OpGetfield, OpPutfield,
		OpInvokevirtual, OpInvokespecial, OpInvokestatic,
		OpNew, OpAnewarray, OpCheckcast, OpInstanceof:
		if pc+3 > len(code) {
			return Instruction{}, 0, truncated(op, pc)
		}
		return Instruction{Op: op, Pool: binary.BigEndian.Uint16(code[pc+1:])}, 3, nil

	case OpInvokeinterface:
		if pc+5 > len(code) {
			return Instruction{}, 0, truncated(op, pc)
		}
		return Instruction{Op: op, Pool: binary.BigEndian.Uint16(code[pc+1:]), Const: int32(code[pc+3])}, 5, nil

	case OpInvokedynamic:
		if pc+5 > len(code) {
			return Instruction{}, 0, truncated(op, pc)
		}
		return Instruction{Op: op, Pool: binary.BigEndian.Uint16(code[pc+1:])}, 5, nil

	case OpNewarray:
		if pc+2 > len(code) {
			return Instruction{}, 0, truncated(op, pc)
		}
		return Instruction{Op: op, Const: int32(code[pc+1])}, 2, nil

	case OpMultianewarray:
		if pc+4 > len(code) {
			return Instruction{}, 0, truncated(op, pc)
		}
		return Instruction{Op: op, Pool: binary.BigEndian.Uint16(code[pc+1:]), Dims: code[pc+3]}, 4, nil

	case OpTableswitch:
		return decodeTableswitch(code, pc)

	case OpLookupswitch:
		return decodeLookupswitch(code, pc)

	case OpWide:
		return decodeWide(code, pc)

	default:
		return Instruction{}, 0, &UnsupportedOpcodeError{Op: byte(op), Offset: pc}
	}
}

func truncated(op Op, pc int) error {
	return fmt.Errorf("opcode: truncated operand for opcode %#02x at offset %d", op, pc)
}

// implicitLocal returns the local-variable index folded into an *_n opcode's
// identity (e.g. iload_2 always addresses local 2), or 0 for opcodes with no
// such encoding (the zero value is simply unused in that case).
func implicitLocal(op Op) uint16 {
	switch op {
	case OpIload0, OpLload0, OpFload0, OpDload0, OpAload0,
		OpIstore0, OpLstore0, OpFstore0, OpDstore0, OpAstore0:
		return 0
	case OpIload1, OpLload1, OpFload1, OpDload1, OpAload1,
		OpIstore1, OpLstore1, OpFstore1, OpDstore1, OpAstore1:
		return 1
	case OpIload2, OpLload2, OpFload2, OpDload2, OpAload2,
		OpIstore2, OpLstore2, OpFstore2, OpDstore2, OpAstore2:
		return 2
	case OpIload3, OpLload3, OpFload3, OpDload3, OpAload3,
		OpIstore3, OpLstore3, OpFstore3, OpDstore3, OpAstore3:
		return 3
	default:
		return 0
	}
}

func instLocal(op Op, local uint16) Instruction {
	return Instruction{Op: op, Local: local}
}

// decodeTableswitch handles the padding-to-4-byte-alignment rule: padding is
// counted from the start of the method's code array (offset 0), so the
// operands begin at the first multiple of 4 after the opcode byte, per §4.6.
func decodeTableswitch(code []byte, pc int) (Instruction, int, error) {
	pad := (4 - (pc+1)%4) % 4
	p := pc + 1 + pad
	if p+12 > len(code) {
		return Instruction{}, 0, truncated(OpTableswitch, pc)
	}
	def := int32(binary.BigEndian.Uint32(code[p:]))
	low := int32(binary.BigEndian.Uint32(code[p+4:]))
	high := int32(binary.BigEndian.Uint32(code[p+8:]))
	p += 12
	n := int(high - low + 1)
	if n < 0 || p+4*n > len(code) {
		return Instruction{}, 0, truncated(OpTableswitch, pc)
	}
	offsets := make([]int, n)
	for i := 0; i < n; i++ {
		off := int32(binary.BigEndian.Uint32(code[p+4*i:]))
		offsets[i] = pc + int(off)
	}
	p += 4 * n
	return Instruction{
		Op: OpTableswitch,
		Table: &TableSwitch{
			Default: pc + int(def),
			Low:     low,
			High:    high,
			Offsets: offsets,
		},
	}, p - pc, nil
}

func decodeLookupswitch(code []byte, pc int) (Instruction, int, error) {
	pad := (4 - (pc+1)%4) % 4
	p := pc + 1 + pad
	if p+8 > len(code) {
		return Instruction{}, 0, truncated(OpLookupswitch, pc)
	}
	def := int32(binary.BigEndian.Uint32(code[p:]))
	npairs := int32(binary.BigEndian.Uint32(code[p+4:]))
	p += 8
	if npairs < 0 || p+8*int(npairs) > len(code) {
		return Instruction{}, 0, truncated(OpLookupswitch, pc)
	}
	pairs := make([]LookupPair, npairs)
	for i := 0; i < int(npairs); i++ {
		match := int32(binary.BigEndian.Uint32(code[p+8*i:]))
		off := int32(binary.BigEndian.Uint32(code[p+8*i+4:]))
		pairs[i] = LookupPair{Match: match, Target: pc + int(off)}
	}
	p += 8 * int(npairs)
	return Instruction{
		Op: OpLookupswitch,
		Lookup: &LookupSwitch{
			Default: pc + int(def),
			Pairs:   pairs,
		},
	}, p - pc, nil
}

func decodeWide(code []byte, pc int) (Instruction, int, error) {
	if pc+2 > len(code) {
		return Instruction{}, 0, truncated(OpWide, pc)
	}
	widened := Op(code[pc+1])
	if widened == OpIinc {
		if pc+6 > len(code) {
			return Instruction{}, 0, truncated(OpWide, pc)
		}
		local := binary.BigEndian.Uint16(code[pc+2:])
		delta := int32(int16(binary.BigEndian.Uint16(code[pc+4:])))
		return Instruction{Op: OpWide, WideOp: widened, Local: local, Const: delta}, 6, nil
	}
	if pc+4 > len(code) {
		return Instruction{}, 0, truncated(OpWide, pc)
	}
	local := binary.BigEndian.Uint16(code[pc+2:])
	return Instruction{Op: OpWide, WideOp: widened, Local: local}, 4, nil
}
