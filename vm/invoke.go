package vm

import (
	"fmt"

	"github.com/saferwall/jclassvm/classfile"
)

// executeMethod runs m to completion, dispatching to the native registry
// when m is flagged NATIVE and to the bytecode interpreter otherwise. args
// is one logical Value per parameter (this included, as args[0], for
// instance methods) — not wire-slot-padded.
func (vm *VM) executeMethod(cf *classfile.ClassFile, m *classfile.Member, args []Value) (Value, bool, error) {
	desc, err := classfile.ParseMethodDescriptor(m.Descriptor)
	if err != nil {
		return Value{}, false, fmt.Errorf("%w: parsing %s.%s%s: %v", ErrResolution, cf.ThisClassName, m.Name, m.Descriptor, err)
	}
	hasReturn := desc.ReturnType.Base != classfile.TypeVoid

	if m.AccessFlags.Has(classfile.AccNative) {
		fn, ok := vm.natives.Lookup(cf.ThisClassName, m.Name, m.Descriptor)
		if !ok {
			return Value{}, false, fmt.Errorf("%w: %v", ErrUnsupportedFeature, &ErrNativeBridgeMissing{Owner: cf.ThisClassName, Name: m.Name, Descriptor: m.Descriptor})
		}
		v, nerr := fn(vm, args, desc)
		if nerr != nil {
			return Value{}, false, nerr
		}
		return v, hasReturn, nil
	}

	code, ok := m.Code()
	if !ok {
		return Value{}, false, fmt.Errorf("%w: %s.%s%s has no Code attribute and is not native", ErrResolution, cf.ThisClassName, m.Name, m.Descriptor)
	}

	locals := buildLocals(desc, m.AccessFlags.Has(classfile.AccStatic), args, code.MaxLocals)
	f, ferr := newFrame(cf, m, code, locals)
	if ferr != nil {
		return Value{}, false, ferr
	}
	v, has, rerr := vm.runFrame(f)
	if rerr != nil {
		return Value{}, false, rerr
	}
	return v, has, nil
}

// buildLocals places args into their wire-slot-numbered positions: an
// implicit `this` occupies slot 0 for instance methods, and each parameter
// after it advances the slot cursor by two for long/double, matching the
// local-variable numbering iload/istore/iinc address directly (§3).
func buildLocals(desc classfile.MethodDescriptor, isStatic bool, args []Value, maxLocals uint16) []Value {
	locals := make([]Value, maxLocals)
	slot := 0
	argIdx := 0
	if !isStatic {
		if argIdx < len(args) {
			locals[slot] = args[argIdx]
		}
		slot++
		argIdx++
	}
	for _, p := range desc.Parameters {
		if argIdx < len(args) && slot < len(locals) {
			locals[slot] = args[argIdx]
		}
		if p.IsTwoSlot() {
			slot += 2
		} else {
			slot++
		}
		argIdx++
	}
	return locals
}

// popMethodArgs pops len(desc.Parameters) logical values off f's operand
// stack, optionally preceded by a receiver reference, restoring call order
// (the receiver, then each argument left to right).
func popMethodArgs(f *frame, desc classfile.MethodDescriptor, hasReceiver bool) []Value {
	n := len(desc.Parameters)
	if hasReceiver {
		n++
	}
	args := make([]Value, n)
	for i := n - 1; i >= 0; i-- {
		args[i] = f.pop()
	}
	return args
}

// invokeStatic resolves and runs ref against its named owner class exactly,
// per invokestatic's static (non-virtual) dispatch. An owner the archive
// never shipped a class file for (java/lang/Integer, java/lang/String, ...)
// is a JDK builtin bridged entirely through the native registry.
func (vm *VM) invokeStatic(ref classfile.RefExt, f *frame) (Value, bool, error) {
	desc, err := classfile.ParseMethodDescriptor(ref.Descriptor)
	if err != nil {
		return Value{}, false, err
	}

	ownerCf, ok := vm.classes[ref.ClassName]
	if !ok {
		args := popMethodArgs(f, desc, false)
		return vm.invokeBuiltinNative(ref.ClassName, ref.Name, ref.Descriptor, args, desc)
	}
	if err := vm.ensureInitialized(ownerCf); err != nil {
		return Value{}, false, err
	}
	m, ok := findMethod(ownerCf, ref.Name, ref.Descriptor)
	if !ok {
		return Value{}, false, fmt.Errorf("%w: %s.%s%s not found", ErrResolution, ref.ClassName, ref.Name, ref.Descriptor)
	}
	args := popMethodArgs(f, desc, false)
	return vm.executeMethod(ownerCf, m, args)
}

// invokeSpecial resolves ref against its named owner class exactly —
// constructors, private methods and explicit superclass calls all bypass
// virtual dispatch per §4.7. A builtin owner with no registered native
// bridge (most JDK superclass constructors) is treated as a no-op, except
// for the common single-String-argument Throwable convenience below.
func (vm *VM) invokeSpecial(ref classfile.RefExt, f *frame) (Value, bool, error) {
	desc, err := classfile.ParseMethodDescriptor(ref.Descriptor)
	if err != nil {
		return Value{}, false, err
	}

	ownerCf, ok := vm.classes[ref.ClassName]
	if !ok {
		args := popMethodArgs(f, desc, true)
		if fn, ok := vm.natives.Lookup(ref.ClassName, ref.Name, ref.Descriptor); ok {
			_, nerr := fn(vm, args, desc)
			return Value{}, false, nerr
		}
		if ref.Name == "<init>" && len(desc.Parameters) == 1 && desc.Parameters[0].Base == classfile.TypeClass &&
			desc.Parameters[0].ClassName == "java/lang/String" && !args[0].IsNull() {
			if obj, oerr := vm.arena.Get(args[0].Ref); oerr == nil {
				obj.Fields["message"] = args[1]
			}
		}
		return Value{}, false, nil
	}
	m, ok := findMethod(ownerCf, ref.Name, ref.Descriptor)
	if !ok {
		return Value{}, false, fmt.Errorf("%w: %s.%s%s not found", ErrResolution, ref.ClassName, ref.Name, ref.Descriptor)
	}
	args := popMethodArgs(f, desc, true)
	return vm.executeMethod(ownerCf, m, args)
}

// invokeVirtual pops the receiver to find its runtime class and walks that
// class's super chain for the override, per invokevirtual/invokeinterface
// dynamic dispatch. A runtime class the class map never loaded (every JDK
// type instantiated through `new`) is bridged through the native registry,
// keyed by its runtime class name rather than the call site's static owner.
func (vm *VM) invokeVirtual(ref classfile.RefExt, f *frame) (Value, bool, error) {
	desc, err := classfile.ParseMethodDescriptor(ref.Descriptor)
	if err != nil {
		return Value{}, false, err
	}
	args := popMethodArgs(f, desc, true)
	receiver := args[0]
	if receiver.IsNull() {
		return Value{}, false, vm.throwNew(classNullPointerException, "")
	}
	obj, err := vm.arena.Get(receiver.Ref)
	if err != nil {
		return Value{}, false, err
	}
	runtimeClass := obj.ClassName
	if runtimeClass == "" {
		runtimeClass = ref.ClassName
	}

	if _, ok := vm.classes[runtimeClass]; !ok {
		if ref.Name == "getMessage" && len(desc.Parameters) == 0 {
			return obj.Fields["message"], true, nil
		}
		return vm.invokeBuiltinNative(runtimeClass, ref.Name, ref.Descriptor, args, desc)
	}

	ownerCf, m, err := vm.findVirtualMethod(runtimeClass, ref.Name, ref.Descriptor)
	if err != nil {
		return Value{}, false, err
	}
	return vm.executeMethod(ownerCf, m, args)
}

// invokeBuiltinNative dispatches a call whose owning class has no loaded
// ClassFile at all, i.e. every JDK type the archive didn't ship — the
// entirety of its behavior comes from the native registry.
func (vm *VM) invokeBuiltinNative(owner, name, descriptor string, args []Value, desc classfile.MethodDescriptor) (Value, bool, error) {
	fn, ok := vm.natives.Lookup(owner, name, descriptor)
	if !ok {
		return Value{}, false, fmt.Errorf("%w: %v", ErrUnsupportedFeature, &ErrNativeBridgeMissing{Owner: owner, Name: name, Descriptor: descriptor})
	}
	v, err := fn(vm, args, desc)
	if err != nil {
		return Value{}, false, err
	}
	return v, desc.ReturnType.Base != classfile.TypeVoid, nil
}
