package gfunction

import (
	"strconv"

	"github.com/saferwall/jclassvm/classfile"
	"github.com/saferwall/jclassvm/vm"
)

const integerOwner = "java/lang/Integer"

func loadInteger(reg *vm.NativeRegistry) {
	reg.Register(integerOwner, "parseInt", "(Ljava/lang/String;)I", func(v *vm.VM, args []vm.Value, desc classfile.MethodDescriptor) (vm.Value, error) {
		n, err := strconv.ParseInt(readStr(v, args[0]), 10, 32)
		if err != nil {
			return vm.Value{}, v.ThrowNew("java/lang/NumberFormatException", err.Error())
		}
		return vm.IntVal(int32(n)), nil
	})
	reg.Register(integerOwner, "toString", "(I)Ljava/lang/String;", func(v *vm.VM, args []vm.Value, desc classfile.MethodDescriptor) (vm.Value, error) {
		return vm.RefVal(v.Arena().NewString(strconv.FormatInt(int64(args[0].I), 10))), nil
	})
	reg.Register(integerOwner, "valueOf", "(I)Ljava/lang/Integer;", func(v *vm.VM, args []vm.Value, desc classfile.MethodDescriptor) (vm.Value, error) {
		idx := v.Arena().NewInstance(integerOwner)
		obj, err := v.Arena().Get(idx)
		if err != nil {
			return vm.Value{}, err
		}
		obj.Fields["value"] = args[0]
		return vm.RefVal(idx), nil
	})
	reg.Register(integerOwner, "intValue", "()I", func(v *vm.VM, args []vm.Value, desc classfile.MethodDescriptor) (vm.Value, error) {
		obj, err := v.Arena().Get(args[0].Ref)
		if err != nil {
			return vm.Value{}, err
		}
		return obj.Fields["value"], nil
	})
}
