// Package runtime implements the native functions a JIT-compiled AWK
// program calls into: reference-counted Str/Map values, the six map-kind
// intrinsic families, numeric/string conversions, printf synthesis support,
// and per-worker slot storage. The symbolic name -> function registry that
// binds these to the generated LLVM module lives in registry.go.
package runtime

import "sync/atomic"

// Str is a reference-counted string value. Codegen keeps Str locals behind
// a drop-before-store discipline (see src/ir/llvm's bindVal); Str itself
// only needs to support Ref/Drop/value-access, never a copy-on-write path,
// because the generator guarantees at most one mutable binding at a time.
type Str struct {
	refs *int64
	data string
}

// NewStr creates a Str value with an initial reference count of one.
func NewStr(s string) Str {
	n := int64(1)
	return Str{refs: &n, data: s}
}

// Ref increments the reference count and returns the same value, used
// whenever a Str is copied into a new binding without transferring
// ownership (e.g. passing it to a function that doesn't consume it).
func (s Str) Ref() Str {
	if s.refs != nil {
		atomic.AddInt64(s.refs, 1)
	}
	return s
}

// Drop decrements the reference count. Since Go's garbage collector already
// reclaims the backing string memory once unreachable, Drop exists purely
// to keep the accounting symmetric with the JIT-generated code's explicit
// drop calls -- a mismatched ref/drop pair is a correctness bug worth
// catching in debug builds, not a memory leak in this implementation.
func (s Str) Drop() {
	if s.refs != nil {
		atomic.AddInt64(s.refs, -1)
	}
}

// String returns the underlying Go string.
func (s Str) String() string { return s.data }

// Len returns the byte length of the underlying string.
func (s Str) Len() int64 { return int64(len(s.data)) }
