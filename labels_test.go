package semisup

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var classScaleCases = []struct {
	labels []int
	scale  []float64
}{
	{[]int{0, 1}, []float64{1, 1}},
	{[]int{3}, []float64{1}},
	{[]int{0, 0, 1}, []float64{0.5, 0.5, 1}},
	{[]int{2, 1, 2, 2, 1}, []float64{1.0 / 3, 0.5, 1.0 / 3, 1.0 / 3, 0.5}},
	{[]int{-1, 5, 5, 5, 5}, []float64{1, 0.25, 0.25, 0.25, 0.25}},
}

func TestClassScale(t *testing.T) {
	for _, c := range classScaleCases {
		scale, err := ClassScale(c.labels)
		if err != nil {
			t.Errorf("%v: %v", c.labels, err)
			continue
		}
		assert.InDeltaSlice(t, c.scale, scale, 1e-12, "%v", c.labels)

		indicator, err := ClassScaleFromIndicator(c.labels)
		if err != nil {
			t.Errorf("%v: %v", c.labels, err)
			continue
		}
		assert.InDeltaSlice(t, scale, indicator, 1e-12, "the diagonal of the same class matrix should agree with the frequency table for %v", c.labels)
	}
}

func TestClassScale_Empty(t *testing.T) {
	var shapeErr ShapeMismatchError
	_, err := ClassScale(nil)
	assert.True(t, errors.As(err, &shapeErr))
	_, err = SameClassMatrix([]int{})
	assert.True(t, errors.As(err, &shapeErr))
}

func TestSameClassMatrix(t *testing.T) {
	same, err := SameClassMatrix([]int{0, 1, 0})
	require.NoError(t, err)
	want := []float64{
		0.5, 0, 0.5,
		0, 1, 0,
		0.5, 0, 0.5,
	}
	assert.Equal(t, want, float64s(same))

	ok, err := IsRowStochastic(same, 1e-12)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestClassCounts(t *testing.T) {
	assert.Equal(t, map[int]int{0: 2, 1: 1, 4: 3}, ClassCounts([]int{4, 0, 4, 1, 0, 4}))
	assert.Empty(t, ClassCounts(nil))
}
