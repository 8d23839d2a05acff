package pkg

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContains(t *testing.T) {
	assert.True(t, Contains([]string{"a", "b"}, "b"))
	assert.False(t, Contains(nil, "b"))
}

func TestReverse(t *testing.T) {
	s := []int{1, 2, 3, 4}
	Reverse(s)
	assert.Equal(t, []int{4, 3, 2, 1}, s)

	var empty []int
	Reverse(empty)
	assert.Empty(t, empty)
}
