package runtime

// IterInt and IterStr are stack-owned iterator descriptors over a map's key
// snapshot. They are never refcounted and never default-allocated: the
// generated code produces one via an iter-begin intrinsic, reads it with
// has-next/get-next, then drops it exactly once with an explicit drop
// instruction once the loop exits, matching the iterator lifecycle the
// typed IR's OpIterBegin/OpIterHasNext/OpIterGetNext/OpDropIter family
// describes.
type IterInt struct {
	keys []int64
	pos  int
}

type IterStr struct {
	keys []string
	pos  int
}

func IterBeginInt(m *MapIntInt) *IterInt     { return &IterInt{keys: m.Keys()} }
func IterBeginIntFloat(m *MapIntFloat) *IterInt { return &IterInt{keys: m.Keys()} }
func IterBeginIntStr(m *MapIntStr) *IterInt  { return &IterInt{keys: m.Keys()} }

func IterBeginStr(m *MapStrInt) *IterStr      { return &IterStr{keys: m.Keys()} }
func IterBeginStrFloat(m *MapStrFloat) *IterStr { return &IterStr{keys: m.Keys()} }
func IterBeginStrStr(m *MapStrStr) *IterStr   { return &IterStr{keys: m.Keys()} }

func (it *IterInt) HasNext() bool { return it.pos < len(it.keys) }
func (it *IterInt) GetNext() int64 {
	v := it.keys[it.pos]
	it.pos++
	return v
}
func (it *IterInt) Drop() {}

func (it *IterStr) HasNext() bool { return it.pos < len(it.keys) }
func (it *IterStr) GetNext() string {
	v := it.keys[it.pos]
	it.pos++
	return v
}
func (it *IterStr) Drop() {}
