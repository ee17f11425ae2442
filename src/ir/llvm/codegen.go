// Package llvm lowers the typed SSA IR (src/ir) into LLVM IR and JIT-compiles
// it via tinygo.org/x/go-llvm. The overall per-function builder ownership
// and dispatch-by-node-kind structure is carried over from a Go compiler's
// LLVM backend; the lowering rules themselves (register binding discipline,
// phi wiring, iterator/reference-counting handling) follow a real AWK JIT's
// code generator.
package llvm

import (
	"fmt"
	"sync"

	goLLVM "tinygo.org/x/go-llvm"

	"jitawk/src/ir"
	"jitawk/src/util"
)

// typeMap resolves ir.Ty values to their LLVM representations. base is the
// value type itself; ptr is base wrapped in a pointer, used for by-reference
// arguments (globals, and any locals taken by address).
type typeRef struct {
	base goLLVM.Type
	ptr  goLLVM.Type
}

type typeMap struct {
	ctx goLLVM.Context
	m   map[ir.Ty]typeRef
}

func newTypeMap(ctx goLLVM.Context) *typeMap {
	tm := &typeMap{ctx: ctx, m: map[ir.Ty]typeRef{}}
	i64 := ctx.Int64Type()
	f64 := ctx.DoubleType()
	strTy := ctx.StructCreateNamed("Str") // refcount header + pointer + len, opaque to this package's callers
	strTy.StructSetBody([]goLLVM.Type{i64, ctx.Int8Type().PointerType(), i64}, false)
	mapTy := ctx.Int8Type().PointerType() // maps are opaque runtime handles

	reg := func(t ir.Ty, base goLLVM.Type) {
		tm.m[t] = typeRef{base: base, ptr: goLLVM.PointerType(base, 0)}
	}
	reg(ir.TyNull, ctx.VoidType())
	reg(ir.TyInt, i64)
	reg(ir.TyFloat, f64)
	reg(ir.TyStr, strTy)
	reg(ir.TyMapIntInt, mapTy)
	reg(ir.TyMapIntFloat, mapTy)
	reg(ir.TyMapIntStr, mapTy)
	reg(ir.TyMapStrInt, mapTy)
	reg(ir.TyMapStrFloat, mapTy)
	reg(ir.TyMapStrStr, mapTy)
	reg(ir.TyIterInt, goLLVM.PointerType(i64, 0))
	reg(ir.TyIterStr, goLLVM.PointerType(strTy, 0))
	return tm
}

func (tm *typeMap) base(t ir.Ty) goLLVM.Type { return tm.m[t].base }
func (tm *typeMap) ptr(t ir.Ty) goLLVM.Type  { return tm.m[t].ptr }

// iterState tracks a live iterator's backing storage: the heap-ish buffer
// pointer, the current index, and the length, mirroring the reference AWK
// JIT's IterState triple.
type iterState struct {
	ptr, idx, length goLLVM.Value
}

// genFunc holds all per-function codegen state. One genFunc, and one LLVM
// builder, is owned by a single goroutine for the duration of lowering that
// function -- functions are lowered in parallel, but a basic block is never
// touched by two builders at once.
type genFunc struct {
	fn      *ir.Function
	val     goLLVM.Value
	builder goLLVM.Builder
	entryB  goLLVM.Builder // pinned to the entry block's first instruction, for alloca hoisting
	locals   map[int]goLLVM.Value
	blocks   map[int]goLLVM.BasicBlock
	phis     map[int][]phiFixup // block id -> deferred incoming-edge wiring
	skipDrop map[int]bool       // registers not to drop on return (e.g. the returned value itself)
	regTypes map[int]ir.Ty      // register id -> type, needed by retVal to find refcounted locals
}

type phiFixup struct {
	phiVal goLLVM.Value
	from   int
	reg    ir.Reg
}

// Generator owns the module-wide state shared by every function: the LLVM
// context/module, the type map, the runtime intrinsic declarations, and the
// printf wrapper cache.
type Generator struct {
	ctx     goLLVM.Context
	mod     goLLVM.Module
	tm      *typeMap
	opt     util.Options
	interns map[string]goLLVM.Value // declared intrinsic/runtime functions, by symbolic name
	imx     sync.RWMutex
	printfs map[string]goLLVM.Value // cached wrapper stubs, see printf.go
	pmx     sync.Mutex
}

// NewGenerator creates a Generator with the given options whose module is
// named moduleName. The caller must call Dispose when done with the
// returned Generator's module.
func NewGenerator(opt util.Options, moduleName string) *Generator {
	ctx := goLLVM.NewContext()
	return &Generator{
		ctx:     ctx,
		mod:     ctx.NewModule(moduleName),
		tm:      newTypeMap(ctx),
		opt:     opt,
		interns: map[string]goLLVM.Value{},
		printfs: map[string]goLLVM.Value{},
	}
}

// Dispose releases the underlying LLVM context and module.
func (g *Generator) Dispose() {
	g.mod.Dispose()
	g.ctx.Dispose()
}

// Module returns the underlying LLVM module, e.g. for handing to the driver's
// JIT engine or optimizer.
func (g *Generator) Module() goLLVM.Module { return g.mod }

// Lower lowers every function in prog into the module, in parallel, one
// goroutine and one Builder per function -- mirroring the reference Go LLVM
// backend's per-thread-builder fan-out, generalized from "one goroutine per
// global/function declaration" to "one goroutine per function body".
func (g *Generator) Lower(prog *ir.Program) error {
	// First declare every function's signature so calls can resolve targets
	// regardless of definition order.
	for i := range prog.Funcs {
		g.declareFunc(&prog.Funcs[i])
	}

	agg := util.NewErrorAggregator(len(prog.Funcs))
	var wg sync.WaitGroup
	wg.Add(len(prog.Funcs))
	for i := range prog.Funcs {
		go func(fn *ir.Function) {
			defer wg.Done()
			if err := g.lowerFunc(fn); err != nil {
				agg.Append(fmt.Errorf("function %s: %w", fn.Name, err))
			}
		}(&prog.Funcs[i])
	}
	wg.Wait()
	return agg.Combined()
}

func (g *Generator) paramTypes(fn *ir.Function) []goLLVM.Type {
	types := make([]goLLVM.Type, 0, len(fn.Params)+len(fn.Globals))
	for _, p := range fn.Params {
		types = append(types, g.tm.base(p.Ty))
	}
	for _, gl := range fn.Globals {
		types = append(types, g.tm.ptr(gl.Ty))
	}
	return types
}

func (g *Generator) declareFunc(fn *ir.Function) {
	ftyp := goLLVM.FunctionType(g.tm.base(fn.Ret), g.paramTypes(fn), false)
	goLLVM.AddFunction(g.mod, fn.Name, ftyp)
}

// lowerFunc lowers one function body. It uses its own Builder, as required
// for safe parallel basic-block construction.
func (g *Generator) lowerFunc(fn *ir.Function) error {
	val := g.mod.NamedFunction(fn.Name)
	b := g.ctx.NewBuilder()
	defer b.Dispose()
	eb := g.ctx.NewBuilder()
	defer eb.Dispose()

	gf := &genFunc{
		fn: fn, val: val, builder: b, entryB: eb,
		locals: map[int]goLLVM.Value{}, blocks: map[int]goLLVM.BasicBlock{},
		phis: map[int][]phiFixup{}, skipDrop: map[int]bool{},
		regTypes: map[int]ir.Ty{},
	}

	// Pre-create every basic block so branches can target blocks not yet
	// visited (a function's block order need not be a DFS pre-order).
	for _, bb := range fn.Blocks {
		gf.blocks[bb.ID] = goLLVM.AddBasicBlock(val, fmt.Sprintf("bb%d", bb.ID))
	}

	entry := gf.blocks[fn.Entry]
	eb.SetInsertPointAtEnd(entry)
	// A no-op marker instruction keeps entryB's cursor stable at the top of
	// the entry block: eb inserts every later alloca just before the marker,
	// while b appends ordinary instructions after it -- every CreateAlloca
	// call below goes through eb, not b, so stack slots never accumulate
	// inside loop bodies.
	entryMarker := eb.CreateAlloca(g.ctx.Int1Type(), "entry")
	eb.SetInsertPointBefore(entryMarker)

	// Bind parameters and globals into the locals table. Parameters are
	// marked skip_drop: the caller retains ownership of their reference
	// counts, so retVal must never drop them on the way out.
	for idx, p := range fn.Params {
		alloc := gf.alloc(g, p.Ty, fmt.Sprintf("p%d", p.ID))
		b.SetInsertPointAtEnd(entry)
		b.CreateStore(val.Param(idx), alloc)
		gf.locals[p.ID] = alloc
		gf.regTypes[p.ID] = p.Ty
		gf.skipDrop[p.ID] = true
	}

	// visitStack walks blocks depth-first via the successor edges implicit
	// in each block's terminator, using util.Stack as the explicit
	// work-list so the walk doesn't recurse (functions can have long
	// straight-line chains of blocks).
	visited := map[int]bool{}
	stack := util.NewStack[int]()
	stack.Push(fn.Entry)
	order := make([]int, 0, len(fn.Blocks))
	for {
		id, ok := stack.Pop()
		if !ok {
			break
		}
		if visited[id] {
			continue
		}
		visited[id] = true
		order = append(order, id)
		bb := blockByID(fn, id)
		for _, t := range successors(bb) {
			if !visited[t] {
				stack.Push(t)
			}
		}
	}

	for _, id := range order {
		bb := blockByID(fn, id)
		b.SetInsertPointAtEnd(gf.blocks[id])
		for _, inst := range bb.Insts {
			if err := g.lowerInst(gf, id, inst); err != nil {
				return fmt.Errorf("block %d: %w", id, err)
			}
		}
	}

	// Second pass: wire every phi's deferred incoming edges now that every
	// block (and every local it might define) exists.
	for blockID, fixups := range gf.phis {
		phiBB := gf.blocks[blockID]
		_ = phiBB
		for _, fx := range fixups {
			incoming := gf.locals[fx.reg.ID]
			fx.phiVal.AddIncoming([]goLLVM.Value{incoming}, []goLLVM.BasicBlock{gf.blocks[fx.from]})
		}
	}

	return nil
}

func blockByID(fn *ir.Function, id int) *ir.BasicBlock {
	for i := range fn.Blocks {
		if fn.Blocks[i].ID == id {
			return &fn.Blocks[i]
		}
	}
	return nil
}

func successors(bb *ir.BasicBlock) []int {
	if bb == nil || len(bb.Insts) == 0 {
		return nil
	}
	last := bb.Insts[len(bb.Insts)-1]
	switch last.Op {
	case ir.OpBr:
		return last.Targets
	case ir.OpCondBr:
		return last.Targets
	default:
		return nil
	}
}

// alloc allocates a stack slot for type t in the function's entry block via
// entryB, never via the block builder -- this is what keeps alloca out of
// loop bodies (the classic hazard of allocating inside a basic block that
// may re-execute).
func (gf *genFunc) alloc(g *Generator, t ir.Ty, name string) goLLVM.Value {
	return gf.entryB.CreateAlloca(g.tm.base(t), name)
}
