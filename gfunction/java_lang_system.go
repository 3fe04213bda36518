package gfunction

import (
	"os"
	"time"

	"github.com/saferwall/jclassvm/classfile"
	"github.com/saferwall/jclassvm/vm"
)

const systemOwner = "java/lang/System"

func loadSystem(reg *vm.NativeRegistry) {
	reg.Register(systemOwner, "currentTimeMillis", "()J", func(v *vm.VM, args []vm.Value, desc classfile.MethodDescriptor) (vm.Value, error) {
		return vm.LongVal(time.Now().UnixMilli()), nil
	})
	reg.Register(systemOwner, "nanoTime", "()J", func(v *vm.VM, args []vm.Value, desc classfile.MethodDescriptor) (vm.Value, error) {
		return vm.LongVal(time.Now().UnixNano()), nil
	})
	reg.Register(systemOwner, "exit", "(I)V", func(v *vm.VM, args []vm.Value, desc classfile.MethodDescriptor) (vm.Value, error) {
		os.Exit(int(args[0].I))
		return vm.Value{}, nil
	})
	reg.Register(systemOwner, "arraycopy", "(Ljava/lang/Object;ILjava/lang/Object;II)V",
		func(v *vm.VM, args []vm.Value, desc classfile.MethodDescriptor) (vm.Value, error) {
			src, srcPos, dst, dstPos, length := args[0], args[1].I, args[2], args[3].I, args[4].I
			srcObj, err := v.Arena().Get(src.Ref)
			if err != nil {
				return vm.Value{}, err
			}
			dstObj, err := v.Arena().Get(dst.Ref)
			if err != nil {
				return vm.Value{}, err
			}
			if srcPos < 0 || dstPos < 0 || length < 0 ||
				int(srcPos+length) > len(srcObj.Elements) || int(dstPos+length) > len(dstObj.Elements) {
				return vm.Value{}, v.ThrowNew("java/lang/ArrayIndexOutOfBoundsException", "arraycopy: bounds out of range")
			}
			copy(dstObj.Elements[dstPos:dstPos+length], srcObj.Elements[srcPos:srcPos+length])
			return vm.Value{}, nil
		})
}
