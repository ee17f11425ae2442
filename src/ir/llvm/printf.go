package llvm

import (
	"fmt"
	"strings"

	goLLVM "tinygo.org/x/go-llvm"

	"jitawk/src/ir"
)

// printfKind distinguishes the three destinations a print statement can
// target; each gets its own runtime entry point since stdout and named
// files go through the parallel writer while sprintf never touches I/O.
type printfKind int

const (
	printStdout printfKind = iota
	printFile
	printSprintf
)

func (k printfKind) String() string {
	switch k {
	case printStdout:
		return "stdout"
	case printFile:
		return "file"
	default:
		return "sprintf"
	}
}

// printfKey identifies a cached wrapper by the exact sequence of argument
// types being printed and the destination kind. Two print statements with
// the same type vector and kind share one compiled wrapper, regardless of
// how many times each appears in the source program.
func printfKey(types []ir.Ty, kind printfKind) string {
	var sb strings.Builder
	sb.WriteString(kind.String())
	sb.WriteByte(':')
	for _, t := range types {
		fmt.Fprintf(&sb, "%d,", t)
	}
	return sb.String()
}

// wrappedPrintf returns (building if needed) a private stub function for
// the given (argument types, kind) signature. The stub builds fixed-size
// stack arrays of type tags and argument words, then makes one call into
// the matching printf_impl_* / sprintf_impl runtime entry point, mirroring
// a variadic-printf-free native ABI: the AWK-level variadic print statement
// becomes a single fixed-arity native call per distinct shape it's used
// with, not a true variadic C call.
func (g *Generator) wrappedPrintf(types []ir.Ty, kind printfKind) goLLVM.Value {
	key := printfKey(types, kind)

	g.pmx.Lock()
	defer g.pmx.Unlock()
	if v, ok := g.printfs[key]; ok {
		return v
	}

	name := fmt.Sprintf("_pf_%x", hashKey(key))
	i32 := g.ctx.Int32Type()
	i64 := g.tm.base(ir.TyInt)
	argTypesArr := goLLVM.ArrayType(i32, len(types))
	argValsArr := goLLVM.ArrayType(i64, len(types))

	params := []goLLVM.Type{}
	if kind == printFile {
		params = append(params, g.tm.ptr(ir.TyStr))
	}
	for _, t := range types {
		params = append(params, g.tm.base(t))
	}
	ret := g.tm.base(ir.TyNull)
	if kind == printSprintf {
		ret = g.tm.base(ir.TyStr)
	}
	ftyp := goLLVM.FunctionType(ret, params, false)
	fn := goLLVM.AddFunction(g.mod, name, ftyp)
	fn.SetLinkage(goLLVM.PrivateLinkage)

	b := g.ctx.NewBuilder()
	defer b.Dispose()
	entry := goLLVM.AddBasicBlock(fn, "")
	b.SetInsertPointAtEnd(entry)

	tagsSlot := b.CreateAlloca(argTypesArr, "tags")
	valsSlot := b.CreateAlloca(argValsArr, "vals")

	paramOff := 0
	var fileArg goLLVM.Value
	if kind == printFile {
		fileArg = fn.Param(0)
		paramOff = 1
	}
	for i, t := range types {
		tagPtr := b.CreateGEP(tagsSlot, []goLLVM.Value{
			goLLVM.ConstInt(i64, 0, false), goLLVM.ConstInt(i32, uint64(i), false),
		}, "")
		b.CreateStore(goLLVM.ConstInt(i32, printfTag(t), false), tagPtr)

		valPtr := b.CreateGEP(valsSlot, []goLLVM.Value{
			goLLVM.ConstInt(i64, 0, false), goLLVM.ConstInt(i32, uint64(i), false),
		}, "")
		arg := fn.Param(paramOff + i)
		if t == ir.TyFloat {
			arg = b.CreateBitCast(arg, i64, "")
		} else if t == ir.TyStr {
			arg = b.CreatePtrToInt(arg, i64, "")
		}
		b.CreateStore(arg, valPtr)
	}

	tagsPtr := b.CreateGEP(tagsSlot, []goLLVM.Value{goLLVM.ConstInt(i64, 0, false), goLLVM.ConstInt(i32, 0, false)}, "")
	valsPtr := b.CreateGEP(valsSlot, []goLLVM.Value{goLLVM.ConstInt(i64, 0, false), goLLVM.ConstInt(i32, 0, false)}, "")
	n := goLLVM.ConstInt(i64, uint64(len(types)), false)

	i8p := goLLVM.PointerType(g.ctx.Int8Type(), 0)
	tagsI8 := b.CreateBitCast(tagsPtr, i8p, "")
	valsI8 := b.CreateBitCast(valsPtr, i8p, "")

	switch kind {
	case printStdout:
		impl := g.intrinsic("printf_impl_stdout")
		b.CreateCall(impl, []goLLVM.Value{goLLVM.Value{}, tagsI8, valsI8, n}, "")
		b.CreateRetVoid()
	case printFile:
		impl := g.intrinsic("printf_impl_file")
		b.CreateCall(impl, []goLLVM.Value{fileArg, goLLVM.Value{}, tagsI8, valsI8, n}, "")
		b.CreateRetVoid()
	case printSprintf:
		impl := g.intrinsic("sprintf_impl")
		res := b.CreateAlloca(g.tm.base(ir.TyStr), "")
		b.CreateCall(impl, []goLLVM.Value{res, goLLVM.Value{}, tagsI8, valsI8, n}, "")
		b.CreateRet(b.CreateLoad(res, ""))
	}

	g.printfs[key] = fn
	return fn
}

// printfTag maps an IR value type to the tag encoding src/runtime/print.go
// decodes the wrapper's argument array with (Int=0, Float=1, Str=2). This
// is deliberately not ir.Ty's own ordinal, which numbers Null first and so
// would shift every tag by one.
func printfTag(t ir.Ty) uint64 {
	switch t {
	case ir.TyInt:
		return 0
	case ir.TyFloat:
		return 1
	default:
		return 2
	}
}

func hashKey(s string) uint32 {
	var h uint32 = 2166136261
	for i := 0; i < len(s); i++ {
		h ^= uint32(s[i])
		h *= 16777619
	}
	return h
}

// lowerPrint assembles the argument type vector for one print statement,
// gets (or builds) the matching cached wrapper, and calls it.
func (g *Generator) lowerPrint(gf *genFunc, inst ir.Instruction) error {
	kind := printStdout
	switch inst.ConstS {
	case "file":
		kind = printFile
	case "sprintf":
		kind = printSprintf
	}

	valArgs := inst.Args
	var fileVal goLLVM.Value
	if kind == printFile {
		fileVal = g.loadReg(gf, inst.Args[0])
		valArgs = inst.Args[1:]
	}

	types := make([]ir.Ty, len(valArgs))
	llvmArgs := make([]goLLVM.Value, 0, len(valArgs)+1)
	if kind == printFile {
		llvmArgs = append(llvmArgs, fileVal)
	}
	for i, a := range valArgs {
		types[i] = a.Ty
		llvmArgs = append(llvmArgs, g.loadReg(gf, a))
	}

	fn := g.wrappedPrintf(types, kind)
	r := gf.builder.CreateCall(fn, llvmArgs, "")
	if kind == printSprintf {
		g.bindVal(gf, inst.Dst, r)
	}
	return nil
}
