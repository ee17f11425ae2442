package driver

import (
	"fmt"
	"unsafe"

	goLLVM "tinygo.org/x/go-llvm"
)

// Engine wraps an LLVM MCJIT execution engine bound to one optimized
// module, resolving and invoking the synthesized entrypoint(s).
type Engine struct {
	ee  goLLVM.ExecutionEngine
	mod goLLVM.Module
}

// NewEngine creates a JIT execution engine for mod. mod must already be
// optimized and verified (see Optimize).
func NewEngine(mod goLLVM.Module) (*Engine, error) {
	opts := goLLVM.NewMCJITCompilerOptions()
	opts.SetMCJITOptimizationLevel(2)
	ee, err := goLLVM.NewMCJITCompiler(mod, opts)
	if err != nil {
		return nil, fmt.Errorf("create JIT engine: %w", err)
	}
	return &Engine{ee: ee, mod: mod}, nil
}

// Dispose releases the execution engine.
func (e *Engine) Dispose() { e.ee.Dispose() }

// runtimeCtxArg wraps ctxPtr, the Go-side runtime context (the active
// Shuttle, see shuttlePtr), as the single opaque pointer argument an
// entrypoint takes.
func runtimeCtxArg(ctxPtr unsafe.Pointer) goLLVM.GenericValue {
	return goLLVM.NewGenericValueFromPointer(ctxPtr)
}

// CallEntrypoint resolves and invokes the named entrypoint function (e.g.
// "__frawk_main", or one member of the "__frawk_begin" /
// "__frawk_main_loop" / "__frawk_end_loop" triple), passing ctxPtr as its
// single runtime-context argument.
func (e *Engine) CallEntrypoint(name string, ctxPtr unsafe.Pointer) error {
	fn := e.mod.NamedFunction(name)
	if fn.IsNil() {
		return fmt.Errorf("entrypoint %s not found in module", name)
	}
	e.ee.RunFunction(fn, []goLLVM.GenericValue{runtimeCtxArg(ctxPtr)})
	return nil
}

// HasEntrypoint reports whether name is defined in the module, used to
// decide between the serial and parallel entrypoint shapes at run time.
func (e *Engine) HasEntrypoint(name string) bool {
	return !e.mod.NamedFunction(name).IsNil()
}
