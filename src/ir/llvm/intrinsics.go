package llvm

import (
	"fmt"

	goLLVM "tinygo.org/x/go-llvm"

	"jitawk/src/ir"
)

// intrinsicSig describes an external runtime function's LLVM signature.
// The actual Go implementation behind each symbolic name lives in the
// runtime package's intrinsic registry (src/runtime); this table only
// needs to agree with that registry on name and calling convention.
type intrinsicSig struct {
	ret  func(*typeMap) goLLVM.Type
	args []func(*typeMap) goLLVM.Type
}

func tInt(tm *typeMap) goLLVM.Type  { return tm.base(ir.TyInt) }
func tFloat(tm *typeMap) goLLVM.Type { return tm.base(ir.TyFloat) }
func tStrPtr(tm *typeMap) goLLVM.Type { return tm.ptr(ir.TyStr) }
func tMap(tm *typeMap) goLLVM.Type   { return tm.base(ir.TyMapStrStr) } // opaque handle, same repr for all 6 flavors
func tVoid(tm *typeMap) goLLVM.Type  { return tm.base(ir.TyNull) }
func tI8Ptr(tm *typeMap) goLLVM.Type { return goLLVM.PointerType(tm.ctx.Int8Type(), 0) }

// mapKindSuffixes names the six map flavors' runtime symbol suffixes, used
// to build lookup/insert/delete/contains/len/iter intrinsic names, e.g.
// "lookup_intint", "delete_strstr".
var mapKindSuffixes = map[ir.Ty]string{
	ir.TyMapIntInt:   "intint",
	ir.TyMapIntFloat: "intfloat",
	ir.TyMapIntStr:   "intstr",
	ir.TyMapStrInt:   "strint",
	ir.TyMapStrFloat: "strfloat",
	ir.TyMapStrStr:   "strstr",
}

func (g *Generator) intrinsicTable() map[string]intrinsicSig {
	return map[string]intrinsicSig{
		"drop_str":  {ret: tVoid, args: []func(*typeMap) goLLVM.Type{tStrPtr}},
		"drop_map":  {ret: tVoid, args: []func(*typeMap) goLLVM.Type{tMap}},
		"ref_str":   {ret: tVoid, args: []func(*typeMap) goLLVM.Type{tStrPtr}},
		"ref_map":   {ret: tVoid, args: []func(*typeMap) goLLVM.Type{tMap}},
		"pow":       {ret: tFloat, args: []func(*typeMap) goLLVM.Type{tFloat, tFloat}},
		"str_concat": {ret: tVoid, args: []func(*typeMap) goLLVM.Type{tStrPtr, tStrPtr, tStrPtr}},
		"str_cmp":   {ret: tInt, args: []func(*typeMap) goLLVM.Type{tStrPtr, tStrPtr}},
		"int_to_str": {ret: tVoid, args: []func(*typeMap) goLLVM.Type{tInt, tStrPtr}},
		"float_to_str": {ret: tVoid, args: []func(*typeMap) goLLVM.Type{tFloat, tStrPtr}},
		"str_to_int":   {ret: tInt, args: []func(*typeMap) goLLVM.Type{tStrPtr}},
		"str_to_float": {ret: tFloat, args: []func(*typeMap) goLLVM.Type{tStrPtr}},
		"load_slot":  {ret: tFloat, args: []func(*typeMap) goLLVM.Type{tI8Ptr, tInt}},
		"store_slot": {ret: tVoid, args: []func(*typeMap) goLLVM.Type{tI8Ptr, tInt, tFloat}},
		"printf_impl_stdout": {ret: tVoid, args: []func(*typeMap) goLLVM.Type{tI8Ptr, tI8Ptr, tI8Ptr, tInt}},
		"printf_impl_file":   {ret: tVoid, args: []func(*typeMap) goLLVM.Type{tStrPtr, tI8Ptr, tI8Ptr, tI8Ptr, tInt}},
		"sprintf_impl":       {ret: tVoid, args: []func(*typeMap) goLLVM.Type{tStrPtr, tI8Ptr, tI8Ptr, tI8Ptr, tInt}},
	}
}

// intrinsic returns (declaring if needed) the named external runtime
// function. Six map-kind families (lookup/insert/delete/contains/len/iter)
// are declared lazily per suffix the first time a given map flavor is used,
// since building all 36 combinations up front for programs that may only
// use one or two map flavors would be wasted module surface.
func (g *Generator) intrinsic(name string) goLLVM.Value {
	g.imx.RLock()
	if v, ok := g.interns[name]; ok {
		g.imx.RUnlock()
		return v
	}
	g.imx.RUnlock()

	g.imx.Lock()
	defer g.imx.Unlock()
	if v, ok := g.interns[name]; ok {
		return v
	}

	sig, ok := g.intrinsicTable()[name]
	if !ok {
		sig = intrinsicSig{ret: tVoid, args: nil}
	}
	argT := make([]goLLVM.Type, len(sig.args))
	for i, f := range sig.args {
		argT[i] = f(g.tm)
	}
	ftyp := goLLVM.FunctionType(sig.ret(g.tm), argT, false)
	fn := goLLVM.AddFunction(g.mod, name, ftyp)
	g.interns[name] = fn
	return fn
}

func mapIntrinsicName(verb string, t ir.Ty) (string, error) {
	suf, ok := mapKindSuffixes[t]
	if !ok {
		return "", fmt.Errorf("not a map type: %v", t)
	}
	return fmt.Sprintf("%s_%s", verb, suf), nil
}

func (g *Generator) lowerMapOp(gf *genFunc, inst ir.Instruction) error {
	mapReg := inst.Args[0]
	var verb string
	switch inst.Op {
	case ir.OpMapLookup:
		verb = "lookup"
	case ir.OpMapInsert:
		verb = "insert"
	case ir.OpMapDelete:
		verb = "delete"
	case ir.OpMapContains:
		verb = "contains"
	case ir.OpMapLen:
		verb = "len"
	}
	name, err := mapIntrinsicName(verb, mapReg.Ty)
	if err != nil {
		return err
	}
	fn := g.intrinsic(name)
	args := make([]goLLVM.Value, len(inst.Args))
	for i, a := range inst.Args {
		args[i] = g.loadReg(gf, a)
	}
	r := gf.builder.CreateCall(fn, args, "")
	if inst.Dst.Ty != ir.TyNull {
		g.bindVal(gf, inst.Dst, r)
	}
	return nil
}

// lowerIterOp lowers the iterator descriptor family. Iterators are
// stack-owned structures: OpIterBegin materializes the descriptor,
// OpIterHasNext/OpIterGetNext read it without mutating ownership, and
// OpDropIter releases the backing snapshot exactly once. They are never
// defaulted or refcounted the way Str/Map are.
func (g *Generator) lowerIterOp(gf *genFunc, inst ir.Instruction) error {
	switch inst.Op {
	case ir.OpIterBegin:
		name, err := mapIntrinsicName("iter", inst.Args[0].Ty)
		if err != nil {
			return err
		}
		fn := g.intrinsic(name)
		r := gf.builder.CreateCall(fn, []goLLVM.Value{g.loadReg(gf, inst.Args[0])}, "")
		gf.locals[inst.Dst.ID] = r
	case ir.OpIterHasNext:
		fn := g.intrinsic("iter_has_next")
		r := gf.builder.CreateCall(fn, []goLLVM.Value{g.loadReg(gf, inst.Args[0])}, "")
		g.bindVal(gf, inst.Dst, r)
	case ir.OpIterGetNext:
		fn := g.intrinsic("iter_get_next")
		r := gf.builder.CreateCall(fn, []goLLVM.Value{g.loadReg(gf, inst.Args[0])}, "")
		g.bindVal(gf, inst.Dst, r)
	case ir.OpDropIter:
		fn := g.intrinsic("iter_drop")
		gf.builder.CreateCall(fn, []goLLVM.Value{g.loadReg(gf, inst.Args[0])}, "")
	}
	return nil
}

// lowerSlotOp lowers per-worker aggregation slot access: each parallel
// worker shuttle owns a private slot array, addressed by numeric index,
// that the driver combines across workers once all shards finish.
func (g *Generator) lowerSlotOp(gf *genFunc, inst ir.Instruction) error {
	switch inst.Op {
	case ir.OpLoadSlot:
		fn := g.intrinsic("load_slot")
		r := gf.builder.CreateCall(fn, []goLLVM.Value{g.loadReg(gf, inst.Args[0]), g.loadReg(gf, inst.Args[1])}, "")
		g.bindVal(gf, inst.Dst, r)
	case ir.OpStoreSlot:
		fn := g.intrinsic("store_slot")
		gf.builder.CreateCall(fn, []goLLVM.Value{
			g.loadReg(gf, inst.Args[0]), g.loadReg(gf, inst.Args[1]), g.loadReg(gf, inst.Args[2]),
		}, "")
	}
	return nil
}
