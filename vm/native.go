package vm

import "github.com/saferwall/jclassvm/classfile"

// NativeFunc bridges a method flagged NATIVE: it receives the popped
// argument values (this included, as args[0], for instance methods) and the
// method's parsed descriptor, and returns a single value (zero Value{} for
// a void descriptor, which callers must not push).
type NativeFunc func(vm *VM, args []Value, desc classfile.MethodDescriptor) (Value, error)

// NativeRegistry maps a qualified "owner;name;descriptor" key to a handler,
// per §4.9 — the sole escape hatch from bytecode.
type NativeRegistry struct {
	funcs map[string]NativeFunc
}

// NewNativeRegistry returns an empty registry.
func NewNativeRegistry() *NativeRegistry {
	return &NativeRegistry{funcs: make(map[string]NativeFunc)}
}

// Register installs fn for owner.name:descriptor, overwriting any prior
// registration for the same key.
func (r *NativeRegistry) Register(owner, name, descriptor string, fn NativeFunc) {
	r.funcs[nativeKey(owner, name, descriptor)] = fn
}

// Lookup resolves a native bridge by exact (owner, name, descriptor).
func (r *NativeRegistry) Lookup(owner, name, descriptor string) (NativeFunc, bool) {
	fn, ok := r.funcs[nativeKey(owner, name, descriptor)]
	return fn, ok
}

func nativeKey(owner, name, descriptor string) string {
	return owner + ";" + name + ";" + descriptor
}

// ErrNativeBridgeMissing is returned when a NATIVE method has no registered
// handler; the vm package surfaces it as UnsupportedFeature per §7.
type ErrNativeBridgeMissing struct {
	Owner, Name, Descriptor string
}

func (e *ErrNativeBridgeMissing) Error() string {
	return "vm: no native bridge registered for " + e.Owner + "." + e.Name + e.Descriptor
}
