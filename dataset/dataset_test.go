package dataset

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/wyfcoding/randforest/xerrors"
)

func TestNewRejectsRowMismatch(t *testing.T) {
	_, err := New(mat.NewDense(3, 2, nil), mat.NewDense(2, 2, nil))
	assert.ErrorIs(t, err, xerrors.ErrDimMismatch)
}

func TestNewCopiesInput(t *testing.T) {
	features := mat.NewDense(2, 2, []float64{1, 2, 3, 4})
	labels := mat.NewDense(2, 2, []float64{1, 0, 0, 1})
	ds, err := New(features, labels)
	require.NoError(t, err)

	features.Set(0, 0, 99)
	assert.Equal(t, 1.0, ds.Features().At(0, 0))
	assert.Equal(t, 2, ds.Rows())
	assert.Equal(t, 2, ds.NumInputs())
	assert.Equal(t, 2, ds.NumLabels())
	assert.Equal(t, 1, ds.Label(1))
}

func TestFromClasses(t *testing.T) {
	ds, err := FromClasses(mat.NewDense(3, 1, []float64{0, 1, 2}), []int{2, 0, 1}, 3)
	require.NoError(t, err)
	assert.Equal(t, []int{2, 0, 1}, []int{ds.Label(0), ds.Label(1), ds.Label(2)})

	_, err = FromClasses(mat.NewDense(1, 1, nil), []int{5}, 3)
	assert.ErrorIs(t, err, xerrors.ErrLabelNotFound)
}

func TestSubsetAllowsRepeatsAndLeavesSourceAlone(t *testing.T) {
	ds, err := FromClasses(mat.NewDense(3, 2, []float64{1, 1, 2, 2, 3, 3}), []int{0, 1, 0}, 2)
	require.NoError(t, err)

	sub := ds.Subset([]int{2, 2, 1})
	require.Equal(t, 3, sub.Rows())
	assert.Equal(t, 3.0, sub.Features().At(0, 0))
	assert.Equal(t, 3.0, sub.Features().At(1, 1))
	assert.Equal(t, 1, sub.Label(2))
	assert.Equal(t, 1.0, ds.Features().At(0, 0))

	assert.Zero(t, ds.Subset(nil).Rows())
}

func TestComputeBestTieTakesLowestIndex(t *testing.T) {
	m := mat.NewDense(2, 3, []float64{
		2, 5, 5,
		4, 1, 4,
	})
	assert.Equal(t, 1, ComputeBest(m, 0))
	assert.Equal(t, 0, ComputeBest(m, 1))
}

func TestUsefulFeaturesDropsConstantColumns(t *testing.T) {
	features := mat.NewDense(4, 4, []float64{
		1, 7, 0, 3,
		2, 7, 0, 3,
		3, 7, 1, 3,
		4, 7, 0, 3.5,
	})
	ds, err := FromClasses(features, []int{0, 1, 0, 1}, 2)
	require.NoError(t, err)

	assert.Equal(t, []int{0, 2, 3}, UsefulFeatures(ds))
}

func TestUsefulFeaturesSingleRow(t *testing.T) {
	ds, err := FromClasses(mat.NewDense(1, 3, []float64{1, 2, 3}), []int{0}, 1)
	require.NoError(t, err)
	assert.Empty(t, UsefulFeatures(ds))
}
