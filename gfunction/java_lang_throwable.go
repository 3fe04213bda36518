package gfunction

import (
	"github.com/saferwall/jclassvm/classfile"
	"github.com/saferwall/jclassvm/vm"
)

// commonThrowableClasses lists the built-in exception types the
// interpreter itself can raise (vm.classArithmeticException and friends)
// plus the ones user bytecode most often names explicitly. getMessage() is
// handled generically for any unloaded class by the vm package itself;
// toString() is registered per class here since it needs the class's own
// name baked into the rendered text.
var commonThrowableClasses = []string{
	"java/lang/Exception",
	"java/lang/RuntimeException",
	"java/lang/IllegalArgumentException",
	"java/lang/IllegalStateException",
	"java/lang/NullPointerException",
	"java/lang/ArithmeticException",
	"java/lang/ArrayIndexOutOfBoundsException",
	"java/lang/IndexOutOfBoundsException",
	"java/lang/NegativeArraySizeException",
	"java/lang/ClassCastException",
	"java/lang/NumberFormatException",
}

func loadThrowable(reg *vm.NativeRegistry) {
	for _, owner := range commonThrowableClasses {
		owner := owner
		reg.Register(owner, "toString", "()Ljava/lang/String;", func(v *vm.VM, args []vm.Value, desc classfile.MethodDescriptor) (vm.Value, error) {
			obj, err := v.Arena().Get(args[0].Ref)
			if err != nil {
				return vm.Value{}, err
			}
			text := owner
			if msg, ok := obj.Fields["message"]; ok && !msg.IsNull() {
				text += ": " + readStr(v, msg)
			}
			return vm.RefVal(v.Arena().NewString(text)), nil
		})
	}
}
