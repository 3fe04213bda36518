package gfunction

import (
	"fmt"

	"github.com/saferwall/jclassvm/classfile"
	"github.com/saferwall/jclassvm/vm"
)

const printStreamOwner = "java/io/PrintStream"

func loadPrintStream(reg *vm.NativeRegistry) {
	register := func(name, descriptor string, newline bool) {
		reg.Register(printStreamOwner, name, descriptor, printFunc(newline))
	}

	register("println", "()V", true)
	register("println", "(Ljava/lang/String;)V", true)
	register("println", "(I)V", true)
	register("println", "(J)V", true)
	register("println", "(F)V", true)
	register("println", "(D)V", true)
	register("println", "(Z)V", true)
	register("println", "(C)V", true)
	register("println", "(Ljava/lang/Object;)V", true)

	register("print", "(Ljava/lang/String;)V", false)
	register("print", "(I)V", false)
	register("print", "(J)V", false)
	register("print", "(F)V", false)
	register("print", "(D)V", false)
	register("print", "(Z)V", false)
	register("print", "(C)V", false)
	register("print", "(Ljava/lang/Object;)V", false)
}

// printFunc returns a bridge writing args[1] (the sole parameter, absent
// for the no-arg println) to vm.Stdout, formatted per its descriptor type.
func printFunc(newline bool) vm.NativeFunc {
	return func(v *vm.VM, args []vm.Value, desc classfile.MethodDescriptor) (vm.Value, error) {
		var s string
		if len(desc.Parameters) == 1 {
			s = displayString(v, args[1], desc.Parameters[0])
		}
		if newline {
			fmt.Fprintln(v.Stdout, s)
		} else {
			fmt.Fprint(v.Stdout, s)
		}
		return vm.Value{}, nil
	}
}

// displayString renders a Value the way PrintStream would, per its
// declared parameter type.
func displayString(v *vm.VM, val vm.Value, t classfile.FieldType) string {
	switch t.Base {
	case classfile.TypeInt, classfile.TypeShort, classfile.TypeByte:
		return fmt.Sprintf("%d", val.I)
	case classfile.TypeLong:
		return fmt.Sprintf("%d", val.L)
	case classfile.TypeFloat:
		return fmt.Sprintf("%g", val.F)
	case classfile.TypeDouble:
		return fmt.Sprintf("%g", val.D)
	case classfile.TypeBoolean:
		return fmt.Sprintf("%t", val.I != 0)
	case classfile.TypeChar:
		return string(rune(val.I))
	default:
		return objectDisplayString(v, val)
	}
}

// objectDisplayString renders a reference value the way Object.toString
// would for the handful of object shapes this interpreter models.
func objectDisplayString(v *vm.VM, val vm.Value) string {
	if val.IsNull() {
		return "null"
	}
	obj, err := v.Arena().Get(val.Ref)
	if err != nil {
		return "null"
	}
	if obj.Kind == vm.ObjectString {
		return obj.Str
	}
	return fmt.Sprintf("%s@%x", obj.ClassName, val.Ref)
}
