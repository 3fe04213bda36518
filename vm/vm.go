package vm

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/saferwall/jclassvm/classfile"
	"github.com/saferwall/jclassvm/trace"
)

// Error kinds surfaced per §7 that aren't converted to a THROWING state.
var (
	ErrResolution         = errors.New("vm: resolution error")
	ErrUnsupportedFeature = errors.New("vm: unsupported feature")
	ErrUncaughtException  = errors.New("vm: uncaught exception propagated past the outermost frame")
)

// Config configures a VM at construction, mirroring the teacher's
// File/Options pattern: a pointer, nil-safe, with documented defaults.
type Config struct {
	// Natives is consulted for every method flagged NATIVE; nil means no
	// native bridges are registered (every native call becomes
	// ErrNativeBridgeMissing).
	Natives *NativeRegistry

	// Tracer receives structured diagnostics; nil is silent.
	Tracer trace.Tracer

	Stdout io.Writer
	Stderr io.Writer
}

// VM is one interpreter instance: a loaded class map, shared static-field
// store, class-initialization guard, and object arena, per §3's VM state
// and §5's shared-resource rules.
type VM struct {
	classes     map[string]*classfile.ClassFile
	statics     map[string]map[string]Value
	clinitState map[string]clinitState
	arena       *Arena
	natives     *NativeRegistry
	tracer      trace.Tracer

	Stdout io.Writer
	Stderr io.Writer
}

// New builds a VM over classes (typically an archive.Archive's Classes map,
// or a single-entry map for a standalone .class file).
func New(classes map[string]*classfile.ClassFile, cfg *Config) *VM {
	vm := &VM{
		classes:     classes,
		statics:     make(map[string]map[string]Value),
		clinitState: make(map[string]clinitState),
		arena:       NewArena(),
		natives:     NewNativeRegistry(),
		tracer:      trace.NewNop(),
		Stdout:      os.Stdout,
		Stderr:      os.Stderr,
	}
	if cfg != nil {
		if cfg.Natives != nil {
			vm.natives = cfg.Natives
		}
		if cfg.Tracer != nil {
			vm.tracer = trace.Safe(cfg.Tracer)
		}
		if cfg.Stdout != nil {
			vm.Stdout = cfg.Stdout
		}
		if cfg.Stderr != nil {
			vm.Stderr = cfg.Stderr
		}
	}
	return vm
}

// Arena exposes the object arena so native bridges (gfunction) can allocate
// and inspect objects using the same storage the interpreter uses.
func (vm *VM) Arena() *Arena { return vm.arena }

// RunMain locates className's public static void main(String[]) and
// executes it to completion, per §4.7's entrypoint contract.
func (vm *VM) RunMain(className string) error {
	cf, err := vm.resolveClass(className)
	if err != nil {
		return err
	}
	m, ok := findMethod(cf, "main", "([Ljava/lang/String;)V")
	if !ok {
		return fmt.Errorf("%w: %s has no main([Ljava/lang/String;)V", ErrResolution, className)
	}
	if !m.AccessFlags.Has(classfile.AccPublic) || !m.AccessFlags.Has(classfile.AccStatic) {
		return fmt.Errorf("%w: %s.main must be public static", ErrResolution, className)
	}

	argsArray := vm.arena.Alloc(&Object{Kind: ObjectArray, ElemKind: KindRef})
	_, _, err = vm.executeMethod(cf, m, []Value{RefVal(argsArray)})
	if err != nil {
		var thrown *Thrown
		if errors.As(err, &thrown) {
			return fmt.Errorf("%w: %s", ErrUncaughtException, vm.describeException(thrown))
		}
		return err
	}
	return nil
}

// describeException renders a thrown exception's class name and message
// for the top-level diagnostic, best-effort.
func (vm *VM) describeException(t *Thrown) string {
	obj, err := vm.arena.Get(t.Ref.Ref)
	if err != nil {
		return "exception"
	}
	msg := ""
	if mv, ok := obj.Fields["message"]; ok {
		if s, err := vm.arena.Get(mv.Ref); err == nil {
			msg = ": " + s.Str
		}
	}
	return obj.ClassName + msg
}
