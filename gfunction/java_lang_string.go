package gfunction

import (
	"strconv"

	"github.com/saferwall/jclassvm/classfile"
	"github.com/saferwall/jclassvm/vm"
)

const stringOwner = "java/lang/String"

func loadString(reg *vm.NativeRegistry) {
	valueOfAs := func(descriptor string, render func(val vm.Value) string) {
		reg.Register(stringOwner, "valueOf", descriptor, func(v *vm.VM, args []vm.Value, desc classfile.MethodDescriptor) (vm.Value, error) {
			return vm.RefVal(v.Arena().NewString(render(args[0]))), nil
		})
	}
	valueOfAs("(I)Ljava/lang/String;", func(val vm.Value) string { return strconv.FormatInt(int64(val.I), 10) })
	valueOfAs("(J)Ljava/lang/String;", func(val vm.Value) string { return strconv.FormatInt(val.L, 10) })
	valueOfAs("(F)Ljava/lang/String;", func(val vm.Value) string { return strconv.FormatFloat(float64(val.F), 'g', -1, 32) })
	valueOfAs("(D)Ljava/lang/String;", func(val vm.Value) string { return strconv.FormatFloat(val.D, 'g', -1, 64) })
	valueOfAs("(Z)Ljava/lang/String;", func(val vm.Value) string { return strconv.FormatBool(val.I != 0) })
	valueOfAs("(C)Ljava/lang/String;", func(val vm.Value) string { return string(rune(val.I)) })

	reg.Register(stringOwner, "valueOf", "(Ljava/lang/Object;)Ljava/lang/String;", func(v *vm.VM, args []vm.Value, desc classfile.MethodDescriptor) (vm.Value, error) {
		return vm.RefVal(v.Arena().NewString(objectDisplayString(v, args[0]))), nil
	})

	reg.Register(stringOwner, "length", "()I", func(v *vm.VM, args []vm.Value, desc classfile.MethodDescriptor) (vm.Value, error) {
		return vm.IntVal(int32(len(readStr(v, args[0])))), nil
	})
	reg.Register(stringOwner, "equals", "(Ljava/lang/Object;)Z", func(v *vm.VM, args []vm.Value, desc classfile.MethodDescriptor) (vm.Value, error) {
		if args[1].IsNull() {
			return vm.IntVal(0), nil
		}
		if readStr(v, args[0]) == readStr(v, args[1]) {
			return vm.IntVal(1), nil
		}
		return vm.IntVal(0), nil
	})
	reg.Register(stringOwner, "concat", "(Ljava/lang/String;)Ljava/lang/String;", func(v *vm.VM, args []vm.Value, desc classfile.MethodDescriptor) (vm.Value, error) {
		return vm.RefVal(v.Arena().NewString(readStr(v, args[0]) + readStr(v, args[1]))), nil
	})
}
