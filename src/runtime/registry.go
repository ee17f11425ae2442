package runtime

import (
	"math"
	"reflect"
	"sync"
)

// Registry is the symbolic-name -> native-function table the driver
// consults when binding a JIT module's declared external intrinsics to
// their actual Go implementations (via the JIT engine's global-mapping
// API). Each entry's address is obtained through reflection rather than
// cgo export stubs, the same way small Go-hosted JIT experiments resolve
// native callbacks without a separate C shim per intrinsic.
type Registry struct {
	mx      sync.RWMutex
	symbols map[string]uintptr
}

// NewRegistry builds a Registry with every built-in intrinsic pre-registered.
func NewRegistry() *Registry {
	r := &Registry{symbols: map[string]uintptr{}}
	r.registerDefaults()
	return r
}

// Register binds name to fn, which must be a function value. Panics on a
// non-function argument since this is a programmer error, never a runtime
// condition the caller should need to handle.
func (r *Registry) Register(name string, fn interface{}) {
	v := reflect.ValueOf(fn)
	if v.Kind() != reflect.Func {
		panic("runtime.Registry.Register: fn must be a function value")
	}
	r.mx.Lock()
	defer r.mx.Unlock()
	r.symbols[name] = v.Pointer()
}

// Address returns the native address bound to name, and whether it was found.
func (r *Registry) Address(name string) (uintptr, bool) {
	r.mx.RLock()
	defer r.mx.RUnlock()
	a, ok := r.symbols[name]
	return a, ok
}

func (r *Registry) registerDefaults() {
	r.Register("ref_str", Str.Ref)
	r.Register("drop_str", Str.Drop)
	r.Register("ref_map", RefMapHandle)
	r.Register("drop_map", DropMapHandle)
	r.Register("pow", math.Pow)

	r.Register("iter_intint", IterBeginInt)
	r.Register("iter_intfloat", IterBeginIntFloat)
	r.Register("iter_intstr", IterBeginIntStr)
	r.Register("iter_strint", IterBeginStr)
	r.Register("iter_strfloat", IterBeginStrFloat)
	r.Register("iter_strstr", IterBeginStrStr)
	r.Register("iter_has_next", (*IterInt).HasNext)
	r.Register("iter_get_next", (*IterInt).GetNext)
	r.Register("iter_drop", (*IterInt).Drop)

	r.Register("printf_impl_stdout", PrintStdout)
	r.Register("printf_impl_file", PrintFile)
	r.Register("sprintf_impl", Sprintf)

	r.Register("load_slot", (*Slots).Load)
	r.Register("store_slot", (*Slots).Store)

	r.Register("int_to_str", IntToStr)
	r.Register("float_to_str", FloatToStr)
	r.Register("str_to_int", StrToInt)
	r.Register("str_to_float", StrToFloat)
	r.Register("str_concat", StrConcat)
	r.Register("str_cmp", StrCompare)
	r.Register("substr", Substr)
	r.Register("random", Random)
	r.Register("seed_random", SeedRandom)

	r.Register("lookup_intint", (*MapIntInt).Lookup)
	r.Register("insert_intint", (*MapIntInt).Insert)
	r.Register("delete_intint", (*MapIntInt).Delete)
	r.Register("contains_intint", (*MapIntInt).Contains)
	r.Register("len_intint", (*MapIntInt).Len)

	r.Register("lookup_strstr", (*MapStrStr).Lookup)
	r.Register("insert_strstr", (*MapStrStr).Insert)
	r.Register("delete_strstr", (*MapStrStr).Delete)
	r.Register("contains_strstr", (*MapStrStr).Contains)
	r.Register("len_strstr", (*MapStrStr).Len)

	r.Register("lookup_intfloat", (*MapIntFloat).Lookup)
	r.Register("insert_intfloat", (*MapIntFloat).Insert)
	r.Register("delete_intfloat", (*MapIntFloat).Delete)
	r.Register("contains_intfloat", (*MapIntFloat).Contains)
	r.Register("len_intfloat", (*MapIntFloat).Len)

	r.Register("lookup_intstr", (*MapIntStr).Lookup)
	r.Register("insert_intstr", (*MapIntStr).Insert)
	r.Register("delete_intstr", (*MapIntStr).Delete)
	r.Register("contains_intstr", (*MapIntStr).Contains)
	r.Register("len_intstr", (*MapIntStr).Len)

	r.Register("lookup_strint", (*MapStrInt).Lookup)
	r.Register("insert_strint", (*MapStrInt).Insert)
	r.Register("delete_strint", (*MapStrInt).Delete)
	r.Register("contains_strint", (*MapStrInt).Contains)
	r.Register("len_strint", (*MapStrInt).Len)

	r.Register("lookup_strfloat", (*MapStrFloat).Lookup)
	r.Register("insert_strfloat", (*MapStrFloat).Insert)
	r.Register("delete_strfloat", (*MapStrFloat).Delete)
	r.Register("contains_strfloat", (*MapStrFloat).Contains)
	r.Register("len_strfloat", (*MapStrFloat).Len)
}
