package driver

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitInputsEvenly(t *testing.T) {
	got := splitInputs([]string{"a", "b", "c", "d"}, 2)
	assert.Equal(t, [][]string{{"a", "c"}, {"b", "d"}}, got)
}

func TestSplitInputsFewerFilesThanWorkers(t *testing.T) {
	got := splitInputs([]string{"a"}, 4)
	assert.Equal(t, [][]string{{"a"}}, got)
}

func TestSplitInputsEmpty(t *testing.T) {
	got := splitInputs(nil, 4)
	assert.Nil(t, got)
}
