package evaluation

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/wyfcoding/randforest/xerrors"
)

func oneHot(classes []int, n int) *mat.Dense {
	m := mat.NewDense(len(classes), n, nil)
	for r, c := range classes {
		m.Set(r, c, 1)
	}
	return m
}

func TestBinaryMetrics(t *testing.T) {
	actual := []int{0, 0, 0, 0, 1, 1, 1, 1, 1, 1}
	predicted := []int{0, 0, 0, 1, 1, 1, 1, 1, 0, 0}

	c, err := NewConfusion(oneHot(predicted, 2), oneHot(actual, 2))
	require.NoError(t, err)

	assert.Equal(t, 4, c.TruePositive())
	assert.Equal(t, 3, c.TrueNegative())
	assert.Equal(t, 1, c.FalsePositive())
	assert.Equal(t, 2, c.FalseNegative())

	assert.InDelta(t, 0.7, Accuracy.Value(c), 1e-12)
	assert.InDelta(t, 0.8, Precision.Value(c), 1e-12)
	assert.InDelta(t, 0.6, NPV.Value(c), 1e-12)
	assert.InDelta(t, 0.75, Specificity.Value(c), 1e-12)
	assert.InDelta(t, 4.0/6.0, Sensitivity.Value(c), 1e-12)
}

func TestMulticlassPositives(t *testing.T) {
	actual := []int{1, 2, 2, 0}
	predicted := []int{2, 2, 1, 0}
	c, err := NewConfusion(oneHot(predicted, 3), oneHot(actual, 3))
	require.NoError(t, err)

	assert.Equal(t, 1, c.TruePositive())
	assert.Equal(t, 2, c.FalsePositive())
	assert.Equal(t, 0, c.FalseNegative())
	assert.Equal(t, "1\t0\t0\n0\t0\t1\n0\t1\t1\n", c.String())
}

func TestRatioZeroNumerator(t *testing.T) {
	c, err := NewConfusion(oneHot([]int{0, 0}, 2), oneHot([]int{1, 1}, 2))
	require.NoError(t, err)
	assert.Zero(t, Sensitivity.Value(c))
	assert.Zero(t, Precision.Value(c))
}

func TestTallyArgmax(t *testing.T) {
	tally := mat.NewDense(2, 2, []float64{3, 7, 5, 5})
	c, err := NewConfusion(tally, oneHot([]int{1, 0}, 2))
	require.NoError(t, err)
	assert.Equal(t, 1, c.Count(1, 1))
	assert.Equal(t, 1, c.Count(0, 0), "ties go to the lowest column")
}

func TestShapeMismatch(t *testing.T) {
	_, err := NewConfusion(mat.NewDense(2, 2, nil), mat.NewDense(3, 2, nil))
	assert.True(t, errors.Is(err, xerrors.ErrDimMismatch))
}

func TestParseMetric(t *testing.T) {
	m, err := ParseMetric("npv")
	require.NoError(t, err)
	assert.Equal(t, NPV, m)
	assert.Equal(t, "NPV", m.String())

	_, err = ParseMetric("f1")
	assert.Error(t, err)
	assert.Contains(t, Report(&Confusion{counts: mat.NewDense(2, 2, []float64{1, 0, 0, 1}), n: 2}), "ACCURACY")
}
