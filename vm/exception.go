package vm

import "fmt"

// Thrown carries an in-flight exception (a Reference into the arena) as it
// unwinds frames looking for a handler. It implements error so invocation
// call sites can recognize it with errors.As instead of threading a second
// return channel through every instruction.
type Thrown struct {
	Ref Value
}

func (t *Thrown) Error() string {
	return fmt.Sprintf("vm: uncaught exception (ref %d)", t.Ref.Ref)
}

// throwNew allocates a new exception instance of className with message set
// as its "message" field (gfunction's Throwable bridges read the same key)
// and wraps it as a Thrown.
func (vm *VM) throwNew(className, message string) *Thrown {
	idx := vm.arena.NewInstance(className)
	obj, _ := vm.arena.Get(idx)
	if message != "" {
		obj.Fields["message"] = vm.arena.newStringValue(message)
	}
	return &Thrown{Ref: RefVal(idx)}
}

func (a *Arena) newStringValue(s string) Value { return RefVal(a.NewString(s)) }

// ThrowNew lets a native bridge (gfunction) raise a JVM exception the same
// way the interpreter itself does, so it unwinds through exception_table
// handlers rather than surfacing as a hard Go error.
func (vm *VM) ThrowNew(className, message string) error {
	return vm.throwNew(className, message)
}

// Well-known exception class names the interpreter itself raises for the
// error kinds named in §7 that convert to a THROWING state rather than a
// hard Go error.
const (
	classArithmeticException           = "java/lang/ArithmeticException"
	classNullPointerException          = "java/lang/NullPointerException"
	classArrayIndexOutOfBoundsException = "java/lang/ArrayIndexOutOfBoundsException"
	classNegativeArraySizeException    = "java/lang/NegativeArraySizeException"
)
