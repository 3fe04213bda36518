package gfunction

import (
	"strconv"

	"github.com/saferwall/jclassvm/classfile"
	"github.com/saferwall/jclassvm/vm"
)

const stringBuilderOwner = "java/lang/StringBuilder"

// loadStringBuilder registers StringBuilder's constructors and append
// overloads. Buffer state lives in the receiver's arena Object under the
// "buf" field key as a Value wrapping a string object — there is
// no mutable byte buffer type in the object model, so every mutation
// allocates a fresh string object rather than growing one in place.
func loadStringBuilder(reg *vm.NativeRegistry) {
	reg.Register(stringBuilderOwner, "<init>", "()V", func(v *vm.VM, args []vm.Value, desc classfile.MethodDescriptor) (vm.Value, error) {
		return initBuf(v, args[0], "")
	})
	reg.Register(stringBuilderOwner, "<init>", "(Ljava/lang/String;)V", func(v *vm.VM, args []vm.Value, desc classfile.MethodDescriptor) (vm.Value, error) {
		return initBuf(v, args[0], readStr(v, args[1]))
	})

	appendAs := func(descriptor string, render func(v *vm.VM, val vm.Value) string) {
		reg.Register(stringBuilderOwner, "append", descriptor, func(v *vm.VM, args []vm.Value, desc classfile.MethodDescriptor) (vm.Value, error) {
			receiver := args[0]
			cur := bufOf(v, receiver)
			return appendBuf(v, receiver, cur+render(v, args[1]))
		})
	}
	appendAs("(Ljava/lang/String;)Ljava/lang/StringBuilder;", func(v *vm.VM, val vm.Value) string { return readStr(v, val) })
	appendAs("(I)Ljava/lang/StringBuilder;", func(v *vm.VM, val vm.Value) string { return strconv.FormatInt(int64(val.I), 10) })
	appendAs("(J)Ljava/lang/StringBuilder;", func(v *vm.VM, val vm.Value) string { return strconv.FormatInt(val.L, 10) })
	appendAs("(F)Ljava/lang/StringBuilder;", func(v *vm.VM, val vm.Value) string { return strconv.FormatFloat(float64(val.F), 'g', -1, 32) })
	appendAs("(D)Ljava/lang/StringBuilder;", func(v *vm.VM, val vm.Value) string { return strconv.FormatFloat(val.D, 'g', -1, 64) })
	appendAs("(Z)Ljava/lang/StringBuilder;", func(v *vm.VM, val vm.Value) string { return strconv.FormatBool(val.I != 0) })
	appendAs("(C)Ljava/lang/StringBuilder;", func(v *vm.VM, val vm.Value) string { return string(rune(val.I)) })
	appendAs("(Ljava/lang/Object;)Ljava/lang/StringBuilder;", objectDisplayString)

	reg.Register(stringBuilderOwner, "toString", "()Ljava/lang/String;", func(v *vm.VM, args []vm.Value, desc classfile.MethodDescriptor) (vm.Value, error) {
		return vm.RefVal(v.Arena().NewString(bufOf(v, args[0]))), nil
	})
	reg.Register(stringBuilderOwner, "length", "()I", func(v *vm.VM, args []vm.Value, desc classfile.MethodDescriptor) (vm.Value, error) {
		return vm.IntVal(int32(len(bufOf(v, args[0])))), nil
	})
}

func initBuf(v *vm.VM, receiver vm.Value, s string) (vm.Value, error) {
	obj, err := v.Arena().Get(receiver.Ref)
	if err != nil {
		return vm.Value{}, err
	}
	obj.Fields["buf"] = vm.RefVal(v.Arena().NewString(s))
	return vm.Value{}, nil
}

func appendBuf(v *vm.VM, receiver vm.Value, s string) (vm.Value, error) {
	if _, err := initBuf(v, receiver, s); err != nil {
		return vm.Value{}, err
	}
	return receiver, nil
}

func bufOf(v *vm.VM, receiver vm.Value) string {
	obj, err := v.Arena().Get(receiver.Ref)
	if err != nil {
		return ""
	}
	bufRef, ok := obj.Fields["buf"]
	if !ok {
		return ""
	}
	return readStr(v, bufRef)
}

func readStr(v *vm.VM, val vm.Value) string {
	if val.IsNull() {
		return "null"
	}
	obj, err := v.Arena().Get(val.Ref)
	if err != nil || obj.Kind != vm.ObjectString {
		return ""
	}
	return obj.Str
}
