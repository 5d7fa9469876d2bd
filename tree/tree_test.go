package tree

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/wyfcoding/randforest/dataset"
	"github.com/wyfcoding/randforest/selector"
)

// allFeatures 让每个节点都能看到全部特征。
type allFeatures []int

func (a allFeatures) Selector(int) selector.FeatureSelector { return selector.NewMultiple(a, len(a), nil) }

// informative 生成只有特征 0 决定类别的数据集，特征 1 为噪声。
func informative(t *testing.T, n int) *dataset.Dataset {
	t.Helper()
	rng := rand.New(rand.NewPCG(5, 6))
	features := mat.NewDense(n, 2, nil)
	classes := make([]int, n)
	for i := range n {
		x := rng.Float64()
		features.Set(i, 0, x)
		features.Set(i, 1, rng.Float64())
		if x > 0.5 {
			classes[i] = 1
		}
	}
	ds, err := dataset.FromClasses(features, classes, 2)
	require.NoError(t, err)
	return ds
}

func TestTreeLearnsThreshold(t *testing.T) {
	ds := informative(t, 200)
	dt := New(ds, Options{LeafLimit: 1, MaxDepth: 4}, allFeatures{0, 1})

	assert.InDelta(t, 0, dt.Score(), 1e-9)

	probe := mat.NewDense(2, 2, []float64{0.1, 0.9, 0.9, 0.1})
	assert.Equal(t, 0, dt.Predict(probe, 0))
	assert.Equal(t, 1, dt.Predict(probe, 1))
}

func TestImpactFavoursInformativeFeature(t *testing.T) {
	dt := New(informative(t, 200), Options{LeafLimit: 1, MaxDepth: 6}, allFeatures{0, 1})

	impact := make([]float64, 2)
	dt.AccumulateImpact(impact)
	assert.Greater(t, impact[0], 0.5)
	assert.Greater(t, impact[0], 10*impact[1])
}

func TestVoteIncrementsOneLabelPerRow(t *testing.T) {
	ds := informative(t, 50)
	dt := New(ds, Options{LeafLimit: 1, MaxDepth: 4}, allFeatures{0, 1})

	tally := mat.NewDense(ds.Rows(), 2, nil)
	dt.Vote(ds.Features(), tally)
	dt.Vote(ds.Features(), tally)
	for r := 0; r < ds.Rows(); r++ {
		assert.Equal(t, 2.0, mat.Sum(tally.RowView(r)))
	}
}

func TestLeafLimitAndDepthStopGrowth(t *testing.T) {
	ds := informative(t, 100)

	stump := New(ds, Options{LeafLimit: 1, MaxDepth: 0}, allFeatures{0, 1})
	depth, leaves := stump.Stats()
	assert.Zero(t, depth)
	assert.Equal(t, 1, leaves)

	big := New(ds, Options{LeafLimit: 1000, MaxDepth: 10}, allFeatures{0, 1})
	_, leaves = big.Stats()
	assert.Equal(t, 1, leaves)
}

func TestConstantCandidateYieldsLeaf(t *testing.T) {
	features := mat.NewDense(4, 2, []float64{1, 0, 1, 1, 1, 0, 1, 1})
	ds, err := dataset.FromClasses(features, []int{0, 1, 0, 1}, 2)
	require.NoError(t, err)

	dt := New(ds, Options{LeafLimit: 1, MaxDepth: 5}, allFeatures{0})
	_, leaves := dt.Stats()
	assert.Equal(t, 1, leaves)
	assert.InDelta(t, 0.5, dt.Score(), 1e-9)
}

func TestAdjacentFloatsSplitCleanly(t *testing.T) {
	a := 1.0
	b := 1.0000000000000002
	features := mat.NewDense(2, 1, []float64{a, b})
	ds, err := dataset.FromClasses(features, []int{0, 1}, 2)
	require.NoError(t, err)

	dt := New(ds, Options{LeafLimit: 1, MaxDepth: 3}, allFeatures{0})
	assert.Equal(t, 0, dt.Predict(features, 0))
	assert.Equal(t, 1, dt.Predict(features, 1))
}

func TestSnapshotRoundTripAndValidation(t *testing.T) {
	ds := informative(t, 80)
	dt := New(ds, Options{LeafLimit: 1, MaxDepth: 5}, allFeatures{0, 1})

	restored, err := FromSnapshot(dt.Snapshot(), 2, 2)
	require.NoError(t, err)
	assert.Equal(t, dt.Score(), restored.Score())
	for r := 0; r < ds.Rows(); r++ {
		assert.Equal(t, dt.Predict(ds.Features(), r), restored.Predict(ds.Features(), r))
	}

	_, err = FromSnapshot(Snapshot{}, 2, 2)
	assert.Error(t, err)
	_, err = FromSnapshot(Snapshot{Root: &TreeNode{IsLeaf: true, Label: 4}}, 2, 2)
	assert.Error(t, err)
	_, err = FromSnapshot(Snapshot{Root: &TreeNode{Feature: 0, Left: &TreeNode{IsLeaf: true}}}, 2, 2)
	assert.Error(t, err)
}
