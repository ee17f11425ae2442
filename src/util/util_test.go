package util

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStackPushPop(t *testing.T) {
	s := NewStack[int]()
	s.Push(1)
	s.Push(2)
	s.Push(3)
	assert.Equal(t, 3, s.Size())

	v, ok := s.Pop()
	assert.True(t, ok)
	assert.Equal(t, 3, v)

	v, ok = s.Peek()
	assert.True(t, ok)
	assert.Equal(t, 2, v)
	assert.Equal(t, 2, s.Size())
}

func TestStackPopEmpty(t *testing.T) {
	s := NewStack[string]()
	_, ok := s.Pop()
	assert.False(t, ok)
}

func TestErrorAggregatorCombinesAll(t *testing.T) {
	agg := NewErrorAggregator(0)
	agg.Append(nil)
	agg.Append(errors.New("one"))
	agg.Append(errors.New("two"))

	assert.Equal(t, 2, agg.Len())
	combined := agg.Combined()
	assert.ErrorContains(t, combined, "one")
	assert.ErrorContains(t, combined, "two")
}

func TestErrorAggregatorEmpty(t *testing.T) {
	agg := NewErrorAggregator(4)
	assert.Nil(t, agg.Combined())
}
