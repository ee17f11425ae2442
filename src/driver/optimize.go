// Package driver assembles a compiled module, runs the LLVM optimization
// pipeline, and executes it via the JIT engine -- including the parallel
// execution orchestration (worker shuttles, the begin/main_loop/end
// entrypoint triple, and result combination) described by this module's
// design. Grounded on a real AWK JIT's optimize()/run_main().
package driver

import (
	goLLVM "tinygo.org/x/go-llvm"
)

// inlineThreshold maps an opt level (0-3) to the threshold LLVM's inliner
// pass uses, matching the reference mapping: level 0 disables inlining
// entirely, higher levels inline more aggressively.
func inlineThreshold(level int) int {
	switch level {
	case 0:
		return 0
	case 1:
		return 50
	case 2:
		return 100
	default:
		return 250
	}
}

// Optimize runs LLVM's function-level and module-level optimization passes
// over mod at the given opt level. Level 0 still runs the module verifier
// but skips every transformation pass.
func Optimize(mod goLLVM.Module, optLevel int) error {
	if err := goLLVM.VerifyModule(mod, goLLVM.ReturnStatusAction); err != nil {
		return err
	}
	if optLevel == 0 {
		return nil
	}

	pmb := goLLVM.NewPassManagerBuilder()
	defer pmb.Dispose()
	pmb.SetOptLevel(optLevel)
	pmb.UseInlinerWithThreshold(inlineThreshold(optLevel))

	fpm := goLLVM.NewFunctionPassManagerForModule(mod)
	defer fpm.Dispose()
	pmb.PopulateFunc(fpm)

	fpm.InitializeFunc()
	for fn := mod.FirstFunction(); !fn.IsNil(); fn = goLLVM.NextFunction(fn) {
		if fn.IsDeclaration() {
			continue
		}
		fpm.RunFunc(fn)
	}
	fpm.FinalizeFunc()

	mpm := goLLVM.NewPassManager()
	defer mpm.Dispose()
	pmb.Populate(mpm)
	mpm.Run(mod)

	return goLLVM.VerifyModule(mod, goLLVM.ReturnStatusAction)
}
