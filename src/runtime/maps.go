package runtime

import (
	"sync"

	"github.com/google/btree"
)

// entry is one key stored in a Map's backing btree index; the values
// themselves live in the Map's values map.
type entry[K comparable] struct {
	key K
	idx int
}

// Map is the backing store for all six AWK map flavors (int/str keys x
// int/float/str values). An ordered btree index, rather than a Go map,
// makes for-in iteration order deterministic across runs -- AWK itself
// leaves iteration order unspecified, so fixing it to key order is a
// supported improvement over "whatever the host hash map does today".
type Map[K comparable, V any] struct {
	mx     sync.RWMutex
	values map[K]V
	index  *btree.BTreeG[entry[K]]
	less   func(a, b K) bool
}

func NewMap[K comparable, V any](less func(a, b K) bool) *Map[K, V] {
	m := &Map[K, V]{values: map[K]V{}, less: less}
	m.index = btree.NewG(32, func(a, b entry[K]) bool { return less(a.key, b.key) })
	return m
}

func NewIntKeyedMap[V any]() *Map[int64, V] {
	return NewMap[int64, V](func(a, b int64) bool { return a < b })
}

func NewStrKeyedMap[V any]() *Map[string, V] {
	return NewMap[string, V](func(a, b string) bool { return a < b })
}

func (m *Map[K, V]) Lookup(k K) V {
	m.mx.RLock()
	defer m.mx.RUnlock()
	return m.values[k]
}

func (m *Map[K, V]) Contains(k K) bool {
	m.mx.RLock()
	defer m.mx.RUnlock()
	_, ok := m.values[k]
	return ok
}

func (m *Map[K, V]) Insert(k K, v V) {
	m.mx.Lock()
	defer m.mx.Unlock()
	if _, exists := m.values[k]; !exists {
		m.index.ReplaceOrInsert(entry[K]{key: k})
	}
	m.values[k] = v
}

func (m *Map[K, V]) Delete(k K) {
	m.mx.Lock()
	defer m.mx.Unlock()
	if _, exists := m.values[k]; exists {
		delete(m.values, k)
		m.index.Delete(entry[K]{key: k})
	}
}

func (m *Map[K, V]) Len() int64 {
	m.mx.RLock()
	defer m.mx.RUnlock()
	return int64(len(m.values))
}

// Keys returns every key in ascending key order, a stable snapshot safe to
// iterate after the lock is released.
func (m *Map[K, V]) Keys() []K {
	m.mx.RLock()
	defer m.mx.RUnlock()
	keys := make([]K, 0, m.index.Len())
	m.index.Ascend(func(e entry[K]) bool {
		keys = append(keys, e.key)
		return true
	})
	return keys
}

// RefMapHandle and DropMapHandle back the ref_map/drop_map runtime
// intrinsics. A map value is a Go-GC-managed handle, not a manually
// counted allocation the way Str is: there is no separate refcount field
// to touch, so these exist purely to keep the generated code's symmetric
// ref/drop calls resolvable, the same accounting-not-memory-management
// role Str.Ref/Str.Drop play.
func RefMapHandle(uintptr)  {}
func DropMapHandle(uintptr) {}

// The six concrete map flavors the code generator's intrinsic names
// (lookup_intint, delete_strstr, ...) dispatch to.
type (
	MapIntInt   = Map[int64, int64]
	MapIntFloat = Map[int64, float64]
	MapIntStr   = Map[int64, Str]
	MapStrInt   = Map[string, int64]
	MapStrFloat = Map[string, float64]
	MapStrStr   = Map[string, Str]
)
