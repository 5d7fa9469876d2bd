package selector

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wyfcoding/randforest/xerrors"
)

func TestMultiplePicksDistinctSubset(t *testing.T) {
	idxes := []int{1, 3, 5, 7, 9, 11}
	rng := rand.New(rand.NewPCG(1, 2))

	for range 20 {
		got := NewMultiple(idxes, 3, rng).Features()
		require.Len(t, got, 3)
		seen := make(map[int]bool)
		for _, f := range got {
			assert.Contains(t, idxes, f)
			assert.False(t, seen[f])
			seen[f] = true
		}
	}
	assert.Equal(t, []int{1, 3, 5, 7, 9, 11}, idxes)
}

func TestMultipleReturnsAllWhenAskedForMore(t *testing.T) {
	got := NewMultiple([]int{4, 2}, 5, rand.New(rand.NewPCG(1, 2))).Features()
	assert.ElementsMatch(t, []int{4, 2}, got)
}

func TestNormalHalvesOversizedRequest(t *testing.T) {
	assert.Equal(t, 2, NewNormal(1, []int{0, 1, 2, 3, 4}, 5, 3).NumFeatures())
	assert.Equal(t, 2, NewNormal(1, []int{0, 1, 2, 3, 4}, 9, 3).NumFeatures())
	assert.Equal(t, 3, NewNormal(1, []int{0, 1, 2, 3, 4}, 3, 3).NumFeatures())
	assert.Equal(t, 1, NewNormal(1, []int{6}, 4, 3).NumFeatures())
}

func TestNormalProducesExactlyNumTrees(t *testing.T) {
	it := NewNormal(7, []int{0, 1, 2, 3}, 2, 4)
	count := 0
	for it.HasNext() {
		require.NotNil(t, it.Next())
		count++
	}
	assert.Equal(t, 4, count)
}

func TestNormalIsReproducible(t *testing.T) {
	idxes := []int{0, 2, 4, 6, 8, 10, 12}
	draw := func() [][]int {
		factories, err := Expand(NewNormal(99, idxes, 3, 5), 5)
		require.NoError(t, err)
		var out [][]int
		for _, f := range factories {
			for depth := range 4 {
				out = append(out, f.Selector(depth).Features())
			}
		}
		return out
	}
	first := draw()
	assert.Equal(t, first, draw())
	assert.NotEqual(t, first[0:4], first[4:8], "trees should see different feature streams")
}

func TestExpandReportsExhaustion(t *testing.T) {
	_, err := Expand(NewNormal(1, []int{0, 1}, 1, 2), 3)
	assert.ErrorIs(t, err, xerrors.ErrFactoryExhausted)
}
