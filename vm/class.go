package vm

import (
	"fmt"

	"github.com/saferwall/jclassvm/classfile"
)

type clinitState int

const (
	clinitUninitialized clinitState = iota
	clinitInitializing
	clinitInitialized
	clinitFailed
)

// resolveClass looks up a class by internal name in the loaded class map.
func (vm *VM) resolveClass(name string) (*classfile.ClassFile, error) {
	cf, ok := vm.classes[name]
	if !ok {
		return nil, fmt.Errorf("vm: class %s not found in class map", name)
	}
	return cf, nil
}

// ensureInitialized runs cf's <clinit> exactly once, per the class
// initialization guard in §5: UNINITIALIZED -> INITIALIZING -> INITIALIZED
// (or FAILED). Re-entry from the same call stack (a static initializer that
// triggers its own class's static access) is allowed because the state is
// already INITIALIZING by the time that happens, so the guard is a no-op on
// the way back in rather than a deadlock.
func (vm *VM) ensureInitialized(cf *classfile.ClassFile) error {
	name := cf.ThisClassName
	switch vm.clinitState[name] {
	case clinitInitialized, clinitInitializing:
		return nil
	case clinitFailed:
		return fmt.Errorf("vm: class %s failed static initialization", name)
	}

	vm.clinitState[name] = clinitInitializing
	if _, ok := vm.statics[name]; !ok {
		vm.statics[name] = make(map[string]Value)
	}

	for i := range cf.Methods {
		m := &cf.Methods[i]
		if m.Name == "<clinit>" && m.Descriptor == "()V" {
			if _, _, err := vm.executeMethod(cf, m, nil); err != nil {
				vm.clinitState[name] = clinitFailed
				return fmt.Errorf("vm: initializing %s: %w", name, err)
			}
			break
		}
	}

	vm.clinitState[name] = clinitInitialized
	return nil
}

// staticField reads className's static field slot, defaulting to the zero
// value of the declared descriptor on first access within an initialized
// class (fields default to zero until <clinit> or a putstatic assigns them).
func (vm *VM) staticField(className, fieldName, descriptor string) Value {
	if v, ok := vm.statics[className][fieldName]; ok {
		return v
	}
	var base byte
	if len(descriptor) > 0 {
		base = descriptor[0]
	}
	return zeroValueFor(base)
}

// SetStatic installs v as className.fieldName's static slot directly,
// bypassing class resolution; gfunction uses this to seed builtin statics
// such as java/lang/System.out that have no backing ClassFile.
func (vm *VM) SetStatic(className, fieldName string, v Value) {
	vm.setStaticField(className, fieldName, v)
}

func (vm *VM) setStaticField(className, fieldName string, v Value) {
	if vm.statics[className] == nil {
		vm.statics[className] = make(map[string]Value)
	}
	vm.statics[className][fieldName] = v
}

// findMethod looks up an exactly-owned method by name and descriptor,
// without walking the super chain (used by invokestatic/invokespecial,
// which resolve against a specific class per §4.7).
func findMethod(cf *classfile.ClassFile, name, descriptor string) (*classfile.Member, bool) {
	for i := range cf.Methods {
		if cf.Methods[i].Name == name && cf.Methods[i].Descriptor == descriptor {
			return &cf.Methods[i], true
		}
	}
	return nil, false
}

// findVirtualMethod walks the super chain starting at className looking for
// name/descriptor, per invokevirtual/invokeinterface dispatch in §4.7.
func (vm *VM) findVirtualMethod(className, name, descriptor string) (*classfile.ClassFile, *classfile.Member, error) {
	for className != "" {
		cf, err := vm.resolveClass(className)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: resolving %s for virtual dispatch", ErrResolution, className)
		}
		if m, ok := findMethod(cf, name, descriptor); ok {
			return cf, m, nil
		}
		className = cf.SuperClassName
	}
	return nil, nil, fmt.Errorf("%w: %s.%s%s not found in super chain", ErrResolution, className, name, descriptor)
}
