// Package gfunction is the native-method bridge layer: Go implementations
// of the handful of java.lang/java.io methods a class file can call without
// the VM ever loading a JDK class file for them, registered against
// vm.NativeRegistry by fully-qualified owner/name/descriptor.
package gfunction

import "github.com/saferwall/jclassvm/vm"

// NewRegistry builds a NativeRegistry with every bridge in this package
// installed, ready to hand to vm.Config.Natives.
func NewRegistry() *vm.NativeRegistry {
	reg := vm.NewNativeRegistry()
	loadSystem(reg)
	loadPrintStream(reg)
	loadStringBuilder(reg)
	loadInteger(reg)
	loadString(reg)
	loadThrowable(reg)
	return reg
}

// Seed installs the builtin static fields gfunction's bridges rely on —
// currently java/lang/System.out and .err, each a PrintStream instance
// identified only by ClassName (no JDK class file backs it; invokevirtual
// against it falls through to this package's registered bridges).
func Seed(v *vm.VM) {
	out := v.Arena().NewInstance("java/io/PrintStream")
	v.SetStatic("java/lang/System", "out", vm.RefVal(out))
	err := v.Arena().NewInstance("java/io/PrintStream")
	v.SetStatic("java/lang/System", "err", vm.RefVal(err))
}
