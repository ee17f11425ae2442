package llvm

import (
	"fmt"

	goLLVM "tinygo.org/x/go-llvm"

	"jitawk/src/ir"
)

// bindVal stores val into the local slot for reg, dropping whatever
// refcounted value previously lived there first. This single rule is the
// crux of correct Str/Map ownership: every overwrite of a refcounted local
// must drop-before-store, while Int/Float/Null locals are trivially
// overwritten and Iter* locals are never bound this way at all (they are
// produced once by OpIterBegin and consumed in place).
func (g *Generator) bindVal(gf *genFunc, reg ir.Reg, val goLLVM.Value) {
	gf.regTypes[reg.ID] = reg.Ty
	if reg.Ty.IsIter() {
		gf.locals[reg.ID] = val
		return
	}
	slot, ok := gf.locals[reg.ID]
	if !ok {
		slot = gf.alloc(g, reg.Ty, fmt.Sprintf("r%d", reg.ID))
		gf.locals[reg.ID] = slot
	} else if reg.Ty.IsRefCounted() {
		old := gf.builder.CreateLoad(slot, "")
		g.dropVal(gf, reg.Ty, old)
	}
	gf.builder.CreateStore(val, slot)
}

// loadReg loads the current value of a bound register.
func (g *Generator) loadReg(gf *genFunc, reg ir.Reg) goLLVM.Value {
	slot := gf.locals[reg.ID]
	if reg.Ty.IsIter() {
		return slot
	}
	return gf.builder.CreateLoad(slot, "")
}

// dropVal emits a call to the runtime's refcount-drop intrinsic for
// refcounted types. Int/Float/Null are no-ops.
func (g *Generator) dropVal(gf *genFunc, t ir.Ty, val goLLVM.Value) {
	if !t.IsRefCounted() {
		return
	}
	name := "drop_str"
	if t.IsMap() {
		name = "drop_map"
	}
	fn := g.intrinsic(name)
	gf.builder.CreateCall(fn, []goLLVM.Value{val}, "")
}

// refVal emits a call to the runtime's refcount-increment intrinsic,
// materializing an independently owned copy of val rather than aliasing
// whatever register or global slot produced it. Int/Float/Null are no-ops.
func (g *Generator) refVal(gf *genFunc, t ir.Ty, val goLLVM.Value) {
	if !t.IsRefCounted() {
		return
	}
	name := "ref_str"
	if t.IsMap() {
		name = "ref_map"
	}
	fn := g.intrinsic(name)
	gf.builder.CreateCall(fn, []goLLVM.Value{val}, "")
}

// retVal drops every live local register except (a) the value actually
// being returned and (b) skipDrop-marked registers (parameters, whose
// counts the caller retains, and phi destinations, which alias a slot some
// other register already owns), before emitting the terminator -- so a
// function never leaks the refcounted locals still live on its return
// path.
func (g *Generator) retVal(gf *genFunc, ret *ir.Reg) {
	retID := -1
	if ret != nil {
		retID = ret.ID
	}
	for id, t := range gf.regTypes {
		if id == retID || gf.skipDrop[id] {
			continue
		}
		if !t.IsRefCounted() {
			continue
		}
		g.dropVal(gf, t, g.loadReg(gf, ir.Reg{ID: id, Ty: t}))
	}
	if ret == nil {
		gf.builder.CreateRetVoid()
		return
	}
	v := g.loadReg(gf, *ret)
	gf.builder.CreateRet(v)
}

// lowerInst dispatches one instruction of the typed IR into LLVM IR.
func (g *Generator) lowerInst(gf *genFunc, blockID int, inst ir.Instruction) error {
	switch inst.Op {
	case ir.OpConstInt:
		g.bindVal(gf, inst.Dst, goLLVM.ConstInt(g.tm.base(ir.TyInt), uint64(inst.ConstI), true))
	case ir.OpConstFloat:
		g.bindVal(gf, inst.Dst, goLLVM.ConstFloat(g.tm.base(ir.TyFloat), inst.ConstF))
	case ir.OpConstStr:
		g.bindVal(gf, inst.Dst, g.constStr(gf, inst.ConstS))

	case ir.OpAdd, ir.OpSub, ir.OpMul, ir.OpDiv, ir.OpMod, ir.OpPow:
		return g.lowerArith(gf, inst)
	case ir.OpNeg:
		a := g.loadReg(gf, inst.Args[0])
		var r goLLVM.Value
		if inst.Dst.Ty == ir.TyFloat {
			r = gf.builder.CreateFNeg(a, "")
		} else {
			r = gf.builder.CreateNeg(a, "")
		}
		g.bindVal(gf, inst.Dst, r)
	case ir.OpNot:
		a := g.loadReg(gf, inst.Args[0])
		g.bindVal(gf, inst.Dst, gf.builder.CreateNot(a, ""))

	case ir.OpCmpEQ, ir.OpCmpNE, ir.OpCmpLT, ir.OpCmpLE, ir.OpCmpGT, ir.OpCmpGE:
		return g.lowerCmp(gf, inst)

	case ir.OpIntrinsicCall:
		return g.lowerIntrinsicCall(gf, inst)

	case ir.OpMapLookup, ir.OpMapInsert, ir.OpMapDelete, ir.OpMapContains, ir.OpMapLen:
		return g.lowerMapOp(gf, inst)

	case ir.OpIterBegin, ir.OpIterHasNext, ir.OpIterGetNext, ir.OpDropIter:
		return g.lowerIterOp(gf, inst)

	case ir.OpLoadSlot, ir.OpStoreSlot:
		return g.lowerSlotOp(gf, inst)

	case ir.OpGlobalLoad:
		return g.lowerGlobalLoad(gf, inst)
	case ir.OpGlobalStore:
		return g.lowerGlobalStore(gf, inst)

	case ir.OpPrint:
		return g.lowerPrint(gf, inst)

	case ir.OpCall:
		return g.lowerCall(gf, inst)

	case ir.OpPhi:
		// Eagerly create the phi node on first visit; the second pass in
		// lowerFunc wires AddIncoming edges once every block (and every
		// predecessor's locals) exists -- a predecessor block may not have
		// been visited yet when this phi is created.
		phi := gf.builder.CreatePHI(g.tm.base(inst.Dst.Ty), "")
		gf.locals[inst.Dst.ID] = phi
		gf.skipDrop[inst.Dst.ID] = true
		for i, from := range inst.Targets {
			gf.phis[blockID] = append(gf.phis[blockID], phiFixup{phiVal: phi, from: from, reg: inst.PhiIns[i]})
		}

	case ir.OpBr:
		gf.builder.CreateBr(gf.blocks[inst.Targets[0]])
	case ir.OpCondBr:
		cond := g.loadReg(gf, inst.Args[0])
		gf.builder.CreateCondBr(cond, gf.blocks[inst.Targets[0]], gf.blocks[inst.Targets[1]])
	case ir.OpRet:
		if len(inst.Args) == 0 {
			g.retVal(gf, nil)
		} else {
			gf.skipDrop[inst.Args[0].ID] = true
			r := inst.Args[0]
			g.retVal(gf, &r)
		}
	default:
		return fmt.Errorf("unhandled opcode %d", inst.Op)
	}
	return nil
}

func (g *Generator) lowerArith(gf *genFunc, inst ir.Instruction) error {
	a := g.loadReg(gf, inst.Args[0])
	b := g.loadReg(gf, inst.Args[1])
	isFloat := inst.Dst.Ty == ir.TyFloat
	var r goLLVM.Value
	switch inst.Op {
	case ir.OpAdd:
		if isFloat {
			r = gf.builder.CreateFAdd(a, b, "")
		} else {
			r = gf.builder.CreateAdd(a, b, "")
		}
	case ir.OpSub:
		if isFloat {
			r = gf.builder.CreateFSub(a, b, "")
		} else {
			r = gf.builder.CreateSub(a, b, "")
		}
	case ir.OpMul:
		if isFloat {
			r = gf.builder.CreateFMul(a, b, "")
		} else {
			r = gf.builder.CreateMul(a, b, "")
		}
	case ir.OpDiv:
		if isFloat {
			r = gf.builder.CreateFDiv(a, b, "")
		} else {
			r = gf.builder.CreateSDiv(a, b, "")
		}
	case ir.OpMod:
		if isFloat {
			r = gf.builder.CreateFRem(a, b, "")
		} else {
			r = gf.builder.CreateSRem(a, b, "")
		}
	case ir.OpPow:
		r = gf.builder.CreateCall(g.intrinsic("pow"), []goLLVM.Value{a, b}, "")
	}
	g.bindVal(gf, inst.Dst, r)
	return nil
}

func (g *Generator) lowerCmp(gf *genFunc, inst ir.Instruction) error {
	a := g.loadReg(gf, inst.Args[0])
	b := g.loadReg(gf, inst.Args[1])
	isFloat := inst.Args[0].Ty == ir.TyFloat
	var r goLLVM.Value
	if isFloat {
		pred := map[ir.Op]goLLVM.FloatPredicate{
			ir.OpCmpEQ: goLLVM.FloatOEQ, ir.OpCmpNE: goLLVM.FloatONE,
			ir.OpCmpLT: goLLVM.FloatOLT, ir.OpCmpLE: goLLVM.FloatOLE,
			ir.OpCmpGT: goLLVM.FloatOGT, ir.OpCmpGE: goLLVM.FloatOGE,
		}[inst.Op]
		r = gf.builder.CreateFCmp(pred, a, b, "")
	} else {
		pred := map[ir.Op]goLLVM.IntPredicate{
			ir.OpCmpEQ: goLLVM.IntEQ, ir.OpCmpNE: goLLVM.IntNE,
			ir.OpCmpLT: goLLVM.IntSLT, ir.OpCmpLE: goLLVM.IntSLE,
			ir.OpCmpGT: goLLVM.IntSGT, ir.OpCmpGE: goLLVM.IntSGE,
		}[inst.Op]
		r = gf.builder.CreateICmp(pred, a, b, "")
	}
	g.bindVal(gf, inst.Dst, r)
	return nil
}

func (g *Generator) lowerIntrinsicCall(gf *genFunc, inst ir.Instruction) error {
	fn := g.intrinsic(inst.ConstS)
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

func (g *Generator) lowerCall(gf *genFunc, inst ir.Instruction) error {
	target := g.mod.NamedFunction(inst.ConstS)
	if target.IsNil() {
		return fmt.Errorf("call to undeclared function %s", inst.ConstS)
	}
	args := make([]goLLVM.Value, 0, len(inst.Args)+len(inst.Globals))
	for _, a := range inst.Args {
		args = append(args, g.loadReg(gf, a))
	}
	for _, gl := range inst.Globals {
		args = append(args, g.globalPtr(gf, gl))
	}
	r := gf.builder.CreateCall(target, args, "")
	if inst.Dst.Ty != ir.TyNull {
		g.bindVal(gf, inst.Dst, r)
	}
	return nil
}

// globalPtr returns the function's trailing pointer parameter bound to
// global gl -- globals are never addressed by name inside a function body,
// only via the pointer the caller passed in.
func (g *Generator) globalPtr(gf *genFunc, gl ir.Global) goLLVM.Value {
	base := len(gf.fn.Params)
	for i, fgl := range gf.fn.Globals {
		if fgl.ID == gl.ID {
			return gf.val.Param(base + i)
		}
	}
	return goLLVM.Value{}
}

// lowerGlobalLoad reads a global's current value into dst. A load
// "materializes" a copy only by incrementing the refcount: the global
// keeps its own reference, and the freshly bound local must own an
// independent count rather than alias the global's.
func (g *Generator) lowerGlobalLoad(gf *genFunc, inst ir.Instruction) error {
	gl := inst.Globals[0]
	ptr := g.globalPtr(gf, gl)
	val := gf.builder.CreateLoad(ptr, "")
	g.refVal(gf, gl.Ty, val)
	g.bindVal(gf, inst.Dst, val)
	return nil
}

// lowerGlobalStore implements the central binding rule's global case:
// - String: drop the previous value at the slot, store the new one, then
//   ref the slot.
// - Map: load the old pointer, drop it, ref the new pointer, store.
// - Other: plain store.
func (g *Generator) lowerGlobalStore(gf *genFunc, inst ir.Instruction) error {
	gl := inst.Globals[0]
	ptr := g.globalPtr(gf, gl)
	val := g.loadReg(gf, inst.Args[0])

	switch {
	case gl.Ty == ir.TyStr:
		old := gf.builder.CreateLoad(ptr, "")
		g.dropVal(gf, gl.Ty, old)
		gf.builder.CreateStore(val, ptr)
		g.refVal(gf, gl.Ty, val)
	case gl.Ty.IsMap():
		old := gf.builder.CreateLoad(ptr, "")
		g.dropVal(gf, gl.Ty, old)
		g.refVal(gf, gl.Ty, val)
		gf.builder.CreateStore(val, ptr)
	default:
		gf.builder.CreateStore(val, ptr)
	}
	return nil
}

func (g *Generator) constStr(gf *genFunc, s string) goLLVM.Value {
	return gf.builder.CreateGlobalStringPtr(s, "L_str")
}
