package vm

import (
	"errors"
	"fmt"
	"math"

	"github.com/saferwall/jclassvm/classfile"
	"github.com/saferwall/jclassvm/opcode"
)

// runFrame drives f's instruction stream to completion, handling every
// opcode family in §4.7 and converting a raised JVM exception into a
// handler jump when f's exception table covers the faulting offset.
func (vm *VM) runFrame(f *frame) (Value, bool, error) {
	for {
		if f.pc >= len(f.instrs) {
			return Value{}, false, fmt.Errorf("%w: fell off the end of %s.%s%s", ErrResolution, f.cf.ThisClassName, f.method.Name, f.method.Descriptor)
		}
		inst := f.instrs[f.pc]

		result, hasResult, done, jumped, err := vm.step(f, inst)
		if err != nil {
			var thrown *Thrown
			if errors.As(err, &thrown) {
				if handlerPC, ok := f.findHandler(inst.Offset, vm.exceptionClassName(thrown)); ok {
					f.stack = f.stack[:0]
					f.push(thrown.Ref)
					if jerr := f.jumpTo(handlerPC); jerr != nil {
						return Value{}, false, jerr
					}
					continue
				}
			}
			return Value{}, false, err
		}
		if done {
			return result, hasResult, nil
		}
		if !jumped {
			f.pc++
		}
	}
}

// exceptionClassName resolves the arena class name of a thrown reference.
func (vm *VM) exceptionClassName(t *Thrown) string {
	obj, err := vm.arena.Get(t.Ref.Ref)
	if err != nil {
		return ""
	}
	return obj.ClassName
}

// findHandler walks f's exception table for an entry covering offset whose
// catch type is either 0 (catch-any) or names exceptionClass exactly.
// Exact string match rather than a superclass walk is a deliberate
// simplification: the VM's own raised exceptions (ArithmeticException and
// friends) usually have no corresponding loaded ClassFile to walk a super
// chain against.
func (f *frame) findHandler(offset int, exceptionClass string) (int, bool) {
	for _, e := range f.code.ExceptionTable {
		if offset < int(e.StartPC) || offset >= int(e.EndPC) {
			continue
		}
		if e.CatchType == 0 {
			return int(e.HandlerPC), true
		}
		name, err := f.cf.Pool.GetClass(e.CatchType)
		if err != nil {
			continue
		}
		if name == exceptionClass {
			return int(e.HandlerPC), true
		}
	}
	return 0, false
}

// step executes one instruction. jumped is true when the instruction itself
// repositioned f.pc (branches, switches, invoke-triggered handler jumps are
// not part of this — those are driven by runFrame); done is true when the
// method returned, in which case result/hasResult carry the return value.
func (vm *VM) step(f *frame, inst opcode.Instruction) (result Value, hasResult bool, done bool, jumped bool, err error) {
	switch inst.Op {
	case opcode.OpNop:
		// no-op

	case opcode.OpAconstNull:
		f.push(NullVal())
	case opcode.OpIconstM1:
		f.push(IntVal(-1))
	case opcode.OpIconst0:
		f.push(IntVal(0))
	case opcode.OpIconst1:
		f.push(IntVal(1))
	case opcode.OpIconst2:
		f.push(IntVal(2))
	case opcode.OpIconst3:
		f.push(IntVal(3))
	case opcode.OpIconst4:
		f.push(IntVal(4))
	case opcode.OpIconst5:
		f.push(IntVal(5))
	case opcode.OpLconst0:
		f.push(LongVal(0))
	case opcode.OpLconst1:
		f.push(LongVal(1))
	case opcode.OpFconst0:
		f.push(FloatVal(0))
	case opcode.OpFconst1:
		f.push(FloatVal(1))
	case opcode.OpFconst2:
		f.push(FloatVal(2))
	case opcode.OpDconst0:
		f.push(DoubleVal(0))
	case opcode.OpDconst1:
		f.push(DoubleVal(1))

	case opcode.OpBipush, opcode.OpSipush:
		f.push(IntVal(inst.Const))

	case opcode.OpLdc, opcode.OpLdcW, opcode.OpLdc2W:
		v, lerr := vm.loadConstant(f, inst.Pool)
		if lerr != nil {
			return Value{}, false, false, false, lerr
		}
		f.push(v)

	case opcode.OpIload, opcode.OpLload, opcode.OpFload, opcode.OpDload, opcode.OpAload,
		opcode.OpIload0, opcode.OpIload1, opcode.OpIload2, opcode.OpIload3,
		opcode.OpLload0, opcode.OpLload1, opcode.OpLload2, opcode.OpLload3,
		opcode.OpFload0, opcode.OpFload1, opcode.OpFload2, opcode.OpFload3,
		opcode.OpDload0, opcode.OpDload1, opcode.OpDload2, opcode.OpDload3,
		opcode.OpAload0, opcode.OpAload1, opcode.OpAload2, opcode.OpAload3:
		f.push(f.locals[inst.Local])

	case opcode.OpIstore, opcode.OpLstore, opcode.OpFstore, opcode.OpDstore, opcode.OpAstore,
		opcode.OpIstore0, opcode.OpIstore1, opcode.OpIstore2, opcode.OpIstore3,
		opcode.OpLstore0, opcode.OpLstore1, opcode.OpLstore2, opcode.OpLstore3,
		opcode.OpFstore0, opcode.OpFstore1, opcode.OpFstore2, opcode.OpFstore3,
		opcode.OpDstore0, opcode.OpDstore1, opcode.OpDstore2, opcode.OpDstore3,
		opcode.OpAstore0, opcode.OpAstore1, opcode.OpAstore2, opcode.OpAstore3:
		f.locals[inst.Local] = f.pop()

	case opcode.OpIaload, opcode.OpLaload, opcode.OpFaload, opcode.OpDaload, opcode.OpAaload,
		opcode.OpBaload, opcode.OpCaload, opcode.OpSaload:
		idx := f.pop().I
		arr := f.pop()
		v, aerr := vm.arrayLoad(arr, idx)
		if aerr != nil {
			return Value{}, false, false, false, aerr
		}
		f.push(v)

	case opcode.OpIastore, opcode.OpLastore, opcode.OpFastore, opcode.OpDastore, opcode.OpAastore,
		opcode.OpBastore, opcode.OpCastore, opcode.OpSastore:
		val := f.pop()
		idx := f.pop().I
		arr := f.pop()
		if aerr := vm.arrayStore(arr, idx, val); aerr != nil {
			return Value{}, false, false, false, aerr
		}

	case opcode.OpPop:
		f.pop()
	case opcode.OpPop2:
		v := f.pop()
		if !v.IsTwoSlot() {
			f.pop()
		}

	case opcode.OpDup:
		f.push(f.peek())
	case opcode.OpDupX1:
		v1 := f.pop()
		v2 := f.pop()
		f.push(v1)
		f.push(v2)
		f.push(v1)
	case opcode.OpDupX2:
		v1 := f.pop()
		v2 := f.pop()
		if v2.IsTwoSlot() {
			f.push(v1)
			f.push(v2)
			f.push(v1)
		} else {
			v3 := f.pop()
			f.push(v1)
			f.push(v3)
			f.push(v2)
			f.push(v1)
		}
	case opcode.OpDup2:
		v1 := f.pop()
		if v1.IsTwoSlot() {
			f.push(v1)
			f.push(v1)
		} else {
			v2 := f.pop()
			f.push(v2)
			f.push(v1)
			f.push(v2)
			f.push(v1)
		}
	case opcode.OpDup2X1:
		v1 := f.pop()
		if v1.IsTwoSlot() {
			v2 := f.pop()
			f.push(v1)
			f.push(v2)
			f.push(v1)
		} else {
			v2 := f.pop()
			v3 := f.pop()
			f.push(v2)
			f.push(v1)
			f.push(v3)
			f.push(v2)
			f.push(v1)
		}
	case opcode.OpDup2X2:
		v1 := f.pop()
		if v1.IsTwoSlot() {
			v2 := f.pop()
			if v2.IsTwoSlot() {
				f.push(v1)
				f.push(v2)
				f.push(v1)
			} else {
				v3 := f.pop()
				f.push(v1)
				f.push(v3)
				f.push(v2)
				f.push(v1)
			}
		} else {
			v2 := f.pop()
			v3 := f.pop()
			if v3.IsTwoSlot() {
				f.push(v2)
				f.push(v1)
				f.push(v3)
				f.push(v2)
				f.push(v1)
			} else {
				v4 := f.pop()
				f.push(v2)
				f.push(v1)
				f.push(v4)
				f.push(v3)
				f.push(v2)
				f.push(v1)
			}
		}
	case opcode.OpSwap:
		v1 := f.pop()
		v2 := f.pop()
		f.push(v1)
		f.push(v2)

	case opcode.OpIadd:
		b, a := f.pop().I, f.pop().I
		f.push(IntVal(a + b))
	case opcode.OpLadd:
		b, a := f.pop().L, f.pop().L
		f.push(LongVal(a + b))
	case opcode.OpFadd:
		b, a := f.pop().F, f.pop().F
		f.push(FloatVal(a + b))
	case opcode.OpDadd:
		b, a := f.pop().D, f.pop().D
		f.push(DoubleVal(a + b))
	case opcode.OpIsub:
		b, a := f.pop().I, f.pop().I
		f.push(IntVal(a - b))
	case opcode.OpLsub:
		b, a := f.pop().L, f.pop().L
		f.push(LongVal(a - b))
	case opcode.OpFsub:
		b, a := f.pop().F, f.pop().F
		f.push(FloatVal(a - b))
	case opcode.OpDsub:
		b, a := f.pop().D, f.pop().D
		f.push(DoubleVal(a - b))
	case opcode.OpImul:
		b, a := f.pop().I, f.pop().I
		f.push(IntVal(a * b))
	case opcode.OpLmul:
		b, a := f.pop().L, f.pop().L
		f.push(LongVal(a * b))
	case opcode.OpFmul:
		b, a := f.pop().F, f.pop().F
		f.push(FloatVal(a * b))
	case opcode.OpDmul:
		b, a := f.pop().D, f.pop().D
		f.push(DoubleVal(a * b))
	case opcode.OpIdiv:
		b, a := f.pop().I, f.pop().I
		if b == 0 {
			return Value{}, false, false, false, vm.throwNew(classArithmeticException, "/ by zero")
		}
		f.push(IntVal(a / b))
	case opcode.OpLdiv:
		b, a := f.pop().L, f.pop().L
		if b == 0 {
			return Value{}, false, false, false, vm.throwNew(classArithmeticException, "/ by zero")
		}
		f.push(LongVal(a / b))
	case opcode.OpFdiv:
		b, a := f.pop().F, f.pop().F
		f.push(FloatVal(a / b))
	case opcode.OpDdiv:
		b, a := f.pop().D, f.pop().D
		f.push(DoubleVal(a / b))
	case opcode.OpIrem:
		b, a := f.pop().I, f.pop().I
		if b == 0 {
			return Value{}, false, false, false, vm.throwNew(classArithmeticException, "/ by zero")
		}
		f.push(IntVal(a % b))
	case opcode.OpLrem:
		b, a := f.pop().L, f.pop().L
		if b == 0 {
			return Value{}, false, false, false, vm.throwNew(classArithmeticException, "/ by zero")
		}
		f.push(LongVal(a % b))
	case opcode.OpFrem:
		b, a := f.pop().F, f.pop().F
		f.push(FloatVal(float32(math.Mod(float64(a), float64(b)))))
	case opcode.OpDrem:
		b, a := f.pop().D, f.pop().D
		f.push(DoubleVal(math.Mod(a, b)))
	case opcode.OpIneg:
		f.push(IntVal(-f.pop().I))
	case opcode.OpLneg:
		f.push(LongVal(-f.pop().L))
	case opcode.OpFneg:
		f.push(FloatVal(-f.pop().F))
	case opcode.OpDneg:
		f.push(DoubleVal(-f.pop().D))

	case opcode.OpIshl:
		b, a := f.pop().I, f.pop().I
		f.push(IntVal(a << (uint32(b) & 0x1f)))
	case opcode.OpLshl:
		b, a := f.pop().I, f.pop().L
		f.push(LongVal(a << (uint32(b) & 0x3f)))
	case opcode.OpIshr:
		b, a := f.pop().I, f.pop().I
		f.push(IntVal(a >> (uint32(b) & 0x1f)))
	case opcode.OpLshr:
		b, a := f.pop().I, f.pop().L
		f.push(LongVal(a >> (uint32(b) & 0x3f)))
	case opcode.OpIushr:
		b, a := f.pop().I, f.pop().I
		f.push(IntVal(int32(uint32(a) >> (uint32(b) & 0x1f))))
	case opcode.OpLushr:
		b, a := f.pop().I, f.pop().L
		f.push(LongVal(int64(uint64(a) >> (uint32(b) & 0x3f))))
	case opcode.OpIand:
		b, a := f.pop().I, f.pop().I
		f.push(IntVal(a & b))
	case opcode.OpLand:
		b, a := f.pop().L, f.pop().L
		f.push(LongVal(a & b))
	case opcode.OpIor:
		b, a := f.pop().I, f.pop().I
		f.push(IntVal(a | b))
	case opcode.OpLor:
		b, a := f.pop().L, f.pop().L
		f.push(LongVal(a | b))
	case opcode.OpIxor:
		b, a := f.pop().I, f.pop().I
		f.push(IntVal(a ^ b))
	case opcode.OpLxor:
		b, a := f.pop().L, f.pop().L
		f.push(LongVal(a ^ b))

	case opcode.OpIinc:
		f.locals[inst.Local] = IntVal(f.locals[inst.Local].I + inst.Const)

	case opcode.OpI2l:
		f.push(LongVal(int64(f.pop().I)))
	case opcode.OpI2f:
		f.push(FloatVal(float32(f.pop().I)))
	case opcode.OpI2d:
		f.push(DoubleVal(float64(f.pop().I)))
	case opcode.OpL2i:
		f.push(IntVal(int32(f.pop().L)))
	case opcode.OpL2f:
		f.push(FloatVal(float32(f.pop().L)))
	case opcode.OpL2d:
		f.push(DoubleVal(float64(f.pop().L)))
	case opcode.OpF2i:
		f.push(IntVal(float32ToInt32(f.pop().F)))
	case opcode.OpF2l:
		f.push(LongVal(float32ToInt64(f.pop().F)))
	case opcode.OpF2d:
		f.push(DoubleVal(float64(f.pop().F)))
	case opcode.OpD2i:
		f.push(IntVal(float64ToInt32(f.pop().D)))
	case opcode.OpD2l:
		f.push(LongVal(float64ToInt64(f.pop().D)))
	case opcode.OpD2f:
		f.push(FloatVal(float32(f.pop().D)))
	case opcode.OpI2b:
		f.push(IntVal(int32(int8(f.pop().I))))
	case opcode.OpI2c:
		f.push(IntVal(int32(uint16(f.pop().I))))
	case opcode.OpI2s:
		f.push(IntVal(int32(int16(f.pop().I))))

	case opcode.OpLcmp:
		b, a := f.pop().L, f.pop().L
		f.push(IntVal(cmp64(a, b)))
	case opcode.OpFcmpl:
		b, a := f.pop().F, f.pop().F
		f.push(IntVal(fcmp(float64(a), float64(b), -1)))
	case opcode.OpFcmpg:
		b, a := f.pop().F, f.pop().F
		f.push(IntVal(fcmp(float64(a), float64(b), 1)))
	case opcode.OpDcmpl:
		b, a := f.pop().D, f.pop().D
		f.push(IntVal(fcmp(a, b, -1)))
	case opcode.OpDcmpg:
		b, a := f.pop().D, f.pop().D
		f.push(IntVal(fcmp(a, b, 1)))

	case opcode.OpIfeq:
		if f.pop().I == 0 {
			jumped = true
			err = f.jumpTo(inst.Branch)
		}
	case opcode.OpIfne:
		if f.pop().I != 0 {
			jumped = true
			err = f.jumpTo(inst.Branch)
		}
	case opcode.OpIflt:
		if f.pop().I < 0 {
			jumped = true
			err = f.jumpTo(inst.Branch)
		}
	case opcode.OpIfge:
		if f.pop().I >= 0 {
			jumped = true
			err = f.jumpTo(inst.Branch)
		}
	case opcode.OpIfgt:
		if f.pop().I > 0 {
			jumped = true
			err = f.jumpTo(inst.Branch)
		}
	case opcode.OpIfle:
		if f.pop().I <= 0 {
			jumped = true
			err = f.jumpTo(inst.Branch)
		}
	case opcode.OpIfIcmpeq:
		b, a := f.pop().I, f.pop().I
		if a == b {
			jumped = true
			err = f.jumpTo(inst.Branch)
		}
	case opcode.OpIfIcmpne:
		b, a := f.pop().I, f.pop().I
		if a != b {
			jumped = true
			err = f.jumpTo(inst.Branch)
		}
	case opcode.OpIfIcmplt:
		b, a := f.pop().I, f.pop().I
		if a < b {
			jumped = true
			err = f.jumpTo(inst.Branch)
		}
	case opcode.OpIfIcmpge:
		b, a := f.pop().I, f.pop().I
		if a >= b {
			jumped = true
			err = f.jumpTo(inst.Branch)
		}
	case opcode.OpIfIcmpgt:
		b, a := f.pop().I, f.pop().I
		if a > b {
			jumped = true
			err = f.jumpTo(inst.Branch)
		}
	case opcode.OpIfIcmple:
		b, a := f.pop().I, f.pop().I
		if a <= b {
			jumped = true
			err = f.jumpTo(inst.Branch)
		}
	case opcode.OpIfAcmpeq:
		b, a := f.pop(), f.pop()
		if a.Ref == b.Ref {
			jumped = true
			err = f.jumpTo(inst.Branch)
		}
	case opcode.OpIfAcmpne:
		b, a := f.pop(), f.pop()
		if a.Ref != b.Ref {
			jumped = true
			err = f.jumpTo(inst.Branch)
		}
	case opcode.OpIfnull:
		if f.pop().IsNull() {
			jumped = true
			err = f.jumpTo(inst.Branch)
		}
	case opcode.OpIfnonnull:
		if !f.pop().IsNull() {
			jumped = true
			err = f.jumpTo(inst.Branch)
		}
	case opcode.OpGoto, opcode.OpGotoW:
		jumped = true
		err = f.jumpTo(inst.Branch)
	case opcode.OpJsr, opcode.OpJsrW:
		f.push(ReturnAddrVal(inst.Offset + inst.Width))
		jumped = true
		err = f.jumpTo(inst.Branch)
	case opcode.OpRet:
		jumped = true
		err = f.jumpTo(f.locals[inst.Local].RA)

	case opcode.OpTableswitch:
		key := f.pop().I
		target := inst.Table.Default
		if key >= inst.Table.Low && key <= inst.Table.High {
			target = inst.Table.Offsets[key-inst.Table.Low]
		}
		jumped = true
		err = f.jumpTo(target)
	case opcode.OpLookupswitch:
		key := f.pop().I
		target := inst.Lookup.Default
		for _, p := range inst.Lookup.Pairs {
			if p.Match == key {
				target = p.Target
				break
			}
		}
		jumped = true
		err = f.jumpTo(target)

	case opcode.OpIreturn, opcode.OpLreturn, opcode.OpFreturn, opcode.OpDreturn, opcode.OpAreturn:
		return f.pop(), true, true, false, nil
	case opcode.OpReturn:
		return Value{}, false, true, false, nil

	case opcode.OpGetstatic:
		ref, rerr := f.cf.Pool.GetRefExt(inst.Pool)
		if rerr != nil {
			return Value{}, false, false, false, rerr
		}
		if ownerCf, ok := vm.classes[ref.ClassName]; ok {
			if rerr = vm.ensureInitialized(ownerCf); rerr != nil {
				return Value{}, false, false, false, rerr
			}
		}
		f.push(vm.staticField(ref.ClassName, ref.Name, ref.Descriptor))
	case opcode.OpPutstatic:
		ref, rerr := f.cf.Pool.GetRefExt(inst.Pool)
		if rerr != nil {
			return Value{}, false, false, false, rerr
		}
		if ownerCf, ok := vm.classes[ref.ClassName]; ok {
			if rerr = vm.ensureInitialized(ownerCf); rerr != nil {
				return Value{}, false, false, false, rerr
			}
		}
		vm.setStaticField(ref.ClassName, ref.Name, f.pop())

	case opcode.OpGetfield:
		ref, rerr := f.cf.Pool.GetRefExt(inst.Pool)
		if rerr != nil {
			return Value{}, false, false, false, rerr
		}
		objRef := f.pop()
		if objRef.IsNull() {
			return Value{}, false, false, false, vm.throwNew(classNullPointerException, "")
		}
		obj, oerr := vm.arena.Get(objRef.Ref)
		if oerr != nil {
			return Value{}, false, false, false, oerr
		}
		v, ok := obj.Fields[ref.Name]
		if !ok {
			var base byte
			if len(ref.Descriptor) > 0 {
				base = ref.Descriptor[0]
			}
			v = zeroValueFor(base)
		}
		f.push(v)
	case opcode.OpPutfield:
		ref, rerr := f.cf.Pool.GetRefExt(inst.Pool)
		if rerr != nil {
			return Value{}, false, false, false, rerr
		}
		val := f.pop()
		objRef := f.pop()
		if objRef.IsNull() {
			return Value{}, false, false, false, vm.throwNew(classNullPointerException, "")
		}
		obj, oerr := vm.arena.Get(objRef.Ref)
		if oerr != nil {
			return Value{}, false, false, false, oerr
		}
		obj.Fields[ref.Name] = val

	case opcode.OpInvokestatic:
		ref, rerr := f.cf.Pool.GetRefExt(inst.Pool)
		if rerr != nil {
			return Value{}, false, false, false, rerr
		}
		v, has, ierr := vm.invokeStatic(ref, f)
		if ierr != nil {
			return Value{}, false, false, false, ierr
		}
		if has {
			f.push(v)
		}
	case opcode.OpInvokespecial:
		ref, rerr := f.cf.Pool.GetRefExt(inst.Pool)
		if rerr != nil {
			return Value{}, false, false, false, rerr
		}
		v, has, ierr := vm.invokeSpecial(ref, f)
		if ierr != nil {
			return Value{}, false, false, false, ierr
		}
		if has {
			f.push(v)
		}
	case opcode.OpInvokevirtual:
		ref, rerr := f.cf.Pool.GetRefExt(inst.Pool)
		if rerr != nil {
			return Value{}, false, false, false, rerr
		}
		v, has, ierr := vm.invokeVirtual(ref, f)
		if ierr != nil {
			return Value{}, false, false, false, ierr
		}
		if has {
			f.push(v)
		}
	case opcode.OpInvokeinterface:
		ref, rerr := f.cf.Pool.GetRefExt(inst.Pool)
		if rerr != nil {
			return Value{}, false, false, false, rerr
		}
		v, has, ierr := vm.invokeVirtual(ref, f)
		if ierr != nil {
			return Value{}, false, false, false, ierr
		}
		if has {
			f.push(v)
		}
	case opcode.OpInvokedynamic:
		return Value{}, false, false, false, fmt.Errorf("%w: invokedynamic", ErrUnsupportedFeature)

	case opcode.OpNew:
		className, rerr := f.cf.Pool.GetClass(inst.Pool)
		if rerr != nil {
			return Value{}, false, false, false, rerr
		}
		if ownerCf, ok := vm.classes[className]; ok {
			if rerr = vm.ensureInitialized(ownerCf); rerr != nil {
				return Value{}, false, false, false, rerr
			}
		}
		f.push(RefVal(vm.arena.NewInstance(className)))

	case opcode.OpNewarray:
		n := f.pop().I
		if n < 0 {
			return Value{}, false, false, false, vm.throwNew(classNegativeArraySizeException, "")
		}
		base, kind := primitiveArrayType(inst.Const)
		f.push(RefVal(vm.arena.NewArray(base, kind, int(n))))

	case opcode.OpAnewarray:
		n := f.pop().I
		if n < 0 {
			return Value{}, false, false, false, vm.throwNew(classNegativeArraySizeException, "")
		}
		className, rerr := f.cf.Pool.GetClass(inst.Pool)
		if rerr != nil {
			return Value{}, false, false, false, rerr
		}
		idx := vm.arena.Alloc(&Object{Kind: ObjectArray, ClassName: className, ElemKind: KindRef, Elements: make([]Value, n)})
		for i := range vm.mustArray(idx).Elements {
			vm.mustArray(idx).Elements[i] = NullVal()
		}
		f.push(RefVal(idx))

	case opcode.OpMultianewarray:
		className, rerr := f.cf.Pool.GetClass(inst.Pool)
		if rerr != nil {
			return Value{}, false, false, false, rerr
		}
		ft, perr := classfile.ParseFieldDescriptor(className)
		if perr != nil {
			return Value{}, false, false, false, perr
		}
		dims := int(inst.Dims)
		sizes := make([]int32, dims)
		for i := dims - 1; i >= 0; i-- {
			sizes[i] = f.pop().I
		}
		for _, sz := range sizes {
			if sz < 0 {
				return Value{}, false, false, false, vm.throwNew(classNegativeArraySizeException, "")
			}
		}
		f.push(vm.buildMultiArray(sizes, ft.Elem))

	case opcode.OpArraylength:
		arrRef := f.pop()
		if arrRef.IsNull() {
			return Value{}, false, false, false, vm.throwNew(classNullPointerException, "")
		}
		obj, oerr := vm.arena.Get(arrRef.Ref)
		if oerr != nil {
			return Value{}, false, false, false, oerr
		}
		f.push(IntVal(int32(len(obj.Elements))))

	case opcode.OpAthrow:
		v := f.pop()
		if v.IsNull() {
			return Value{}, false, false, false, vm.throwNew(classNullPointerException, "")
		}
		return Value{}, false, false, false, &Thrown{Ref: v}

	case opcode.OpCheckcast:
		v := f.peek()
		if !v.IsNull() {
			className, rerr := f.cf.Pool.GetClass(inst.Pool)
			if rerr != nil {
				return Value{}, false, false, false, rerr
			}
			ok, cerr := vm.isInstanceOf(v, className)
			if cerr != nil {
				return Value{}, false, false, false, cerr
			}
			if !ok {
				return Value{}, false, false, false, vm.throwNew("java/lang/ClassCastException", className)
			}
		}

	case opcode.OpInstanceof:
		v := f.pop()
		if v.IsNull() {
			f.push(IntVal(0))
		} else {
			className, rerr := f.cf.Pool.GetClass(inst.Pool)
			if rerr != nil {
				return Value{}, false, false, false, rerr
			}
			ok, cerr := vm.isInstanceOf(v, className)
			if cerr != nil {
				return Value{}, false, false, false, cerr
			}
			if ok {
				f.push(IntVal(1))
			} else {
				f.push(IntVal(0))
			}
		}

	case opcode.OpMonitorenter, opcode.OpMonitorexit:
		f.pop() // single-threaded interpreter: lock bookkeeping is a no-op

	case opcode.OpWide:
		return vm.stepWide(f, inst)

	default:
		return Value{}, false, false, false, fmt.Errorf("%w: opcode %#02x", ErrUnsupportedFeature, byte(inst.Op))
	}

	return result, hasResult, done, jumped, err
}

func (vm *VM) stepWide(f *frame, inst opcode.Instruction) (Value, bool, bool, bool, error) {
	switch inst.WideOp {
	case opcode.OpIload, opcode.OpLload, opcode.OpFload, opcode.OpDload, opcode.OpAload:
		f.push(f.locals[inst.Local])
	case opcode.OpIstore, opcode.OpLstore, opcode.OpFstore, opcode.OpDstore, opcode.OpAstore:
		f.locals[inst.Local] = f.pop()
	case opcode.OpIinc:
		f.locals[inst.Local] = IntVal(f.locals[inst.Local].I + inst.Const)
	case opcode.OpRet:
		if err := f.jumpTo(f.locals[inst.Local].RA); err != nil {
			return Value{}, false, false, false, err
		}
		return Value{}, false, false, true, nil
	default:
		return Value{}, false, false, false, fmt.Errorf("%w: wide %#02x", ErrUnsupportedFeature, byte(inst.WideOp))
	}
	return Value{}, false, false, false, nil
}

func (vm *VM) mustArray(idx int) *Object {
	obj, _ := vm.arena.Get(idx)
	return obj
}

func (vm *VM) arrayLoad(arr Value, idx int32) (Value, error) {
	if arr.IsNull() {
		return Value{}, vm.throwNew(classNullPointerException, "")
	}
	obj, err := vm.arena.Get(arr.Ref)
	if err != nil {
		return Value{}, err
	}
	if idx < 0 || int(idx) >= len(obj.Elements) {
		return Value{}, vm.throwNew(classArrayIndexOutOfBoundsException, fmt.Sprintf("index %d out of bounds for length %d", idx, len(obj.Elements)))
	}
	return obj.Elements[idx], nil
}

func (vm *VM) arrayStore(arr Value, idx int32, val Value) error {
	if arr.IsNull() {
		return vm.throwNew(classNullPointerException, "")
	}
	obj, err := vm.arena.Get(arr.Ref)
	if err != nil {
		return err
	}
	if idx < 0 || int(idx) >= len(obj.Elements) {
		return vm.throwNew(classArrayIndexOutOfBoundsException, fmt.Sprintf("index %d out of bounds for length %d", idx, len(obj.Elements)))
	}
	obj.Elements[idx] = val
	return nil
}

// loadConstant resolves an ldc/ldc_w/ldc2_w pool index to a runtime Value.
// String entries push a newly allocated string object holding the literal,
// and Class entries one holding the class's internal name rather than a
// reflective object; equal constants loaded twice are distinct references.
// MethodHandle, MethodType and other tags are not supported and fail with
// ErrUnsupportedFeature.
func (vm *VM) loadConstant(f *frame, idx uint16) (Value, error) {
	e, err := f.cf.Pool.Get(idx)
	if err != nil {
		return Value{}, err
	}
	switch e.Tag {
	case classfile.TagInteger:
		return IntVal(e.IntValue), nil
	case classfile.TagFloat:
		return FloatVal(e.FloatValue), nil
	case classfile.TagLong:
		return LongVal(e.LongValue), nil
	case classfile.TagDouble:
		return DoubleVal(e.DoubleValue), nil
	case classfile.TagString:
		s, serr := f.cf.Pool.GetUTF8(e.Index1)
		if serr != nil {
			return Value{}, serr
		}
		return RefVal(vm.arena.NewString(s)), nil
	case classfile.TagClass:
		name, cerr := f.cf.Pool.GetClass(idx)
		if cerr != nil {
			return Value{}, cerr
		}
		return RefVal(vm.arena.NewString(name)), nil
	default:
		return Value{}, fmt.Errorf("%w: ldc of unsupported pool tag %d", ErrUnsupportedFeature, e.Tag)
	}
}

func primitiveArrayType(atype int32) (byte, Kind) {
	switch atype {
	case 4: // T_BOOLEAN
		return 'Z', KindInt
	case 5: // T_CHAR
		return 'C', KindInt
	case 6: // T_FLOAT
		return 'F', KindFloat
	case 7: // T_DOUBLE
		return 'D', KindDouble
	case 8: // T_BYTE
		return 'B', KindInt
	case 9: // T_SHORT
		return 'S', KindInt
	case 10: // T_INT
		return 'I', KindInt
	case 11: // T_LONG
		return 'J', KindLong
	default:
		return 'I', KindInt
	}
}

func (vm *VM) buildMultiArray(sizes []int32, elem *classfile.FieldType) Value {
	n := int(sizes[0])
	if len(sizes) == 1 {
		base := byte(elem.Base)
		kind := KindInt
		switch elem.Base {
		case classfile.TypeLong:
			kind = KindLong
		case classfile.TypeFloat:
			kind = KindFloat
		case classfile.TypeDouble:
			kind = KindDouble
		case classfile.TypeClass, classfile.TypeArray:
			kind = KindRef
		}
		return RefVal(vm.arena.NewArray(base, kind, n))
	}
	idx := vm.arena.Alloc(&Object{Kind: ObjectArray, ElemKind: KindRef, Elements: make([]Value, n)})
	obj := vm.mustArray(idx)
	for i := 0; i < n; i++ {
		obj.Elements[i] = vm.buildMultiArray(sizes[1:], elem)
	}
	return RefVal(idx)
}

// isInstanceOf walks the super chain of v's runtime class looking for
// target. A class name the loaded class map doesn't cover (typically a
// JDK built-in the archive never shipped) is treated as an unverifiable
// match rather than a hard failure, since this interpreter has no JDK class
// library to consult.
func (vm *VM) isInstanceOf(v Value, target string) (bool, error) {
	obj, err := vm.arena.Get(v.Ref)
	if err != nil {
		return false, err
	}
	name := obj.ClassName
	for name != "" {
		if name == target {
			return true, nil
		}
		cf, ok := vm.classes[name]
		if !ok {
			return true, nil
		}
		name = cf.SuperClassName
	}
	return true, nil
}

func cmp64(a, b int64) int32 {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// fcmp implements fcmpl/dcmpl (nanResult=-1) and fcmpg/dcmpg (nanResult=1).
func fcmp(a, b float64, nanResult int32) int32 {
	if math.IsNaN(a) || math.IsNaN(b) {
		return nanResult
	}
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func float32ToInt32(f float32) int32 {
	if math.IsNaN(float64(f)) {
		return 0
	}
	if f >= math.MaxInt32 {
		return math.MaxInt32
	}
	if f <= math.MinInt32 {
		return math.MinInt32
	}
	return int32(f)
}

func float32ToInt64(f float32) int64 {
	if math.IsNaN(float64(f)) {
		return 0
	}
	if f >= math.MaxInt64 {
		return math.MaxInt64
	}
	if f <= math.MinInt64 {
		return math.MinInt64
	}
	return int64(f)
}

func float64ToInt32(d float64) int32 {
	if math.IsNaN(d) {
		return 0
	}
	if d >= math.MaxInt32 {
		return math.MaxInt32
	}
	if d <= math.MinInt32 {
		return math.MinInt32
	}
	return int32(d)
}

func float64ToInt64(d float64) int64 {
	if math.IsNaN(d) {
		return 0
	}
	if d >= math.MaxInt64 {
		return math.MaxInt64
	}
	if d <= math.MinInt64 {
		return math.MinInt64
	}
	return int64(d)
}
