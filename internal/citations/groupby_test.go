package citations

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGroupByPreservesFirstSeenOrder(t *testing.T) {
	items := []string{"banana", "apple", "blueberry", "cherry", "apricot"}

	order, groups := GroupBy(items, func(s string) byte { return s[0] })

	assert.Equal(t, []byte{'b', 'a', 'c'}, order)
	assert.Equal(t, []string{"banana", "blueberry"}, groups['b'])
	assert.Equal(t, []string{"apple", "apricot"}, groups['a'])
	assert.Equal(t, []string{"cherry"}, groups['c'])
}

func TestGroupByEmptyInput(t *testing.T) {
	order, groups := GroupBy(nil, func(i int) int { return i })

	assert.Empty(t, order)
	assert.Empty(t, groups)
}

func TestGroupByEveryItemLandsOnce(t *testing.T) {
	items := []int{1, 2, 3, 4, 5, 6}

	order, groups := GroupBy(items, func(i int) int { return i % 2 })

	require.Len(t, order, 2)
	total := 0
	for _, g := range groups {
		total += len(g)
	}
	assert.Equal(t, len(items), total)
}
