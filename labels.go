package semisup

import (
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
	"gorgonia.org/tensor"
)

// ClassCounts is the frequency table of the labels.
func ClassCounts(labels []int) map[int]int {
	retVal := make(map[int]int)
	for _, l := range labels {
		retVal[l]++
	}
	return retVal
}

// ClassScale returns the per-sample scale factor 1/count(labels[i]).
// A sample from a rare class gets a larger weight.
func ClassScale(labels []int) ([]float64, error) {
	if len(labels) == 0 {
		return nil, errors.WithStack(ShapeMismatchError{Op: "ClassScale", A: tensor.Shape{0}, Msg: "no labels"})
	}
	counts := ClassCounts(labels)
	retVal := make([]float64, len(labels))
	for i, l := range labels {
		c := counts[l]
		if c == 0 {
			return nil, errors.WithStack(DegenerateClassError{Label: l, Sample: i})
		}
		retVal[i] = 1 / float64(c)
	}
	return retVal, nil
}

// SameClassMatrix builds the m×m indicator matrix of equal labels, with each row normalized by its
// sum. Row i is therefore uniform over the samples that share sample i's class.
//
// This is also the target distribution of the walker loss.
func SameClassMatrix(labels []int) (*tensor.Dense, error) {
	m := len(labels)
	if m == 0 {
		return nil, errors.WithStack(ShapeMismatchError{Op: "SameClassMatrix", A: tensor.Shape{0}, Msg: "no labels"})
	}
	backing := make([]float64, m*m)
	rows := rowsOf(backing, m, m)
	defer returnRows(rows)
	for i, row := range rows {
		for j := range row {
			if labels[i] == labels[j] {
				row[j] = 1
			}
		}
		sum := floats.Sum(row)
		if sum == 0 {
			return nil, errors.WithStack(DegenerateClassError{Label: labels[i], Sample: i})
		}
		floats.Scale(1/sum, row)
	}
	return tensor.New(tensor.WithShape(m, m), tensor.WithBacking(backing)), nil
}

// ClassScaleFromIndicator reads the per-sample scale off the diagonal of SameClassMatrix.
// It agrees with ClassScale but costs O(m²).
func ClassScaleFromIndicator(labels []int) ([]float64, error) {
	same, err := SameClassMatrix(labels)
	if err != nil {
		return nil, err
	}
	m := len(labels)
	data := float64s(same)
	retVal := make([]float64, m)
	for i := range retVal {
		retVal[i] = data[i*m+i]
	}
	return retVal, nil
}
