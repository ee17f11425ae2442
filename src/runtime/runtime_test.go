package runtime

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIntToStr(t *testing.T) {
	assert.Equal(t, "0", IntToStr(0))
	assert.Equal(t, "42", IntToStr(42))
	assert.Equal(t, "-7", IntToStr(-7))
}

func TestFloatToStr(t *testing.T) {
	assert.Equal(t, "3.14159", FloatToStr(3.14159265))
	assert.Equal(t, "100000", FloatToStr(100000))
}

func TestStrToNumeric(t *testing.T) {
	assert.Equal(t, int64(42), StrToInt("  42abc"))
	assert.InDelta(t, 3.5, StrToFloat("3.5kg"), 1e-9)
	assert.Equal(t, int64(0), StrToInt("not a number"))
}

func TestMapOrderedIteration(t *testing.T) {
	m := NewStrKeyedMap[int64]()
	m.Insert("b", 2)
	m.Insert("a", 1)
	m.Insert("c", 3)

	assert.Equal(t, []string{"a", "b", "c"}, m.Keys())
	assert.Equal(t, int64(2), m.Lookup("b"))
	assert.True(t, m.Contains("a"))

	m.Delete("b")
	assert.False(t, m.Contains("b"))
	assert.Equal(t, int64(2), m.Len())
}

func TestIterStr(t *testing.T) {
	m := NewStrKeyedMap[int64]()
	m.Insert("x", 1)
	m.Insert("y", 2)

	it := IterBeginStr(m)
	var seen []string
	for it.HasNext() {
		seen = append(seen, it.GetNext())
	}
	it.Drop()
	assert.Equal(t, []string{"x", "y"}, seen)
}

func TestSubstr(t *testing.T) {
	s := NewStr("hello world")
	assert.Equal(t, "hello", Substr(s, 1, 5).String())
	assert.Equal(t, "world", Substr(s, 7, -1).String())
}

func TestStrRefcount(t *testing.T) {
	s := NewStr("x")
	s2 := s.Ref()
	assert.Equal(t, "x", s2.String())
	s.Drop()
	s2.Drop()
}
