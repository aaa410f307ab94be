package semisup

import (
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
	"gorgonia.org/tensor"
)

// VisitProbability is the unnormalized visit probability: the column-wise mean of the rows of p.
//
// If every row of p sums to 1, so does the result. The result implicitly assumes that the
// classes of the rows of p are equinumerous.
func VisitProbability(p *tensor.Dense) (*tensor.Dense, error) {
	const op = "VisitProbability"
	p, err := ValidateAssignment(op, p)
	if err != nil {
		return nil, err
	}
	return rowMean(p), nil
}

// ClassNormalizedVisitProbability weighs every row i of p by 1/count(labels[i]) before summing the
// rows, and then renormalizes the sum into a distribution. This removes the assumption that the
// supervised classes are equinumerous.
func ClassNormalizedVisitProbability(p *tensor.Dense, labels []int) (*tensor.Dense, error) {
	const op = "ClassNormalizedVisitProbability"
	p, err := ValidateAssignment(op, p)
	if err != nil {
		return nil, err
	}
	m, n := p.Shape()[0], p.Shape()[1]
	if len(labels) != m {
		return nil, errors.WithStack(ShapeMismatchError{Op: op, A: p.Shape().Clone(), B: tensor.Shape{len(labels)}, Msg: "one label per row required"})
	}
	scale, err := ClassScale(labels)
	if err != nil {
		return nil, errors.WithMessage(err, op)
	}

	scaled := make([]float64, m*n)
	copy(scaled, float64s(p))
	rows := rowsOf(scaled, m, n)
	for i, row := range rows {
		floats.Scale(scale[i], row)
	}
	data := columnSum(rows, n)
	returnRows(rows)

	total := floats.Sum(data)
	if total == 0 {
		return nil, errors.WithStack(ZeroMassError{Op: op})
	}
	floats.Scale(1/total, data)
	return tensor.New(tensor.WithShape(n), tensor.WithBacking(data)), nil
}

// ProximityProbability routes through the two hop transition P_bab = P_ba × P_ab and returns its row
// mean. This removes the assumption that the unsupervised samples are equinumerous across classes.
//
// When pab and pba are both row-stochastic, so is P_bab, hence no renormalization is done.
func ProximityProbability(pab, pba *tensor.Dense) (*tensor.Dense, error) {
	const op = "ProximityProbability"
	pab, err := ValidateAssignment(op, pab)
	if err != nil {
		return nil, errors.WithMessage(err, "P_ab")
	}
	if pba, err = ValidateAssignment(op, pba); err != nil {
		return nil, errors.WithMessage(err, "P_ba")
	}
	if pba.Shape()[1] != pab.Shape()[0] {
		return nil, errors.WithStack(ShapeMismatchError{Op: op, A: pba.Shape().Clone(), B: pab.Shape().Clone(), Msg: "inner dimensions of P_ba × P_ab differ"})
	}
	pbab, err := TwoHop(pba, pab)
	if err != nil {
		return nil, err
	}
	return rowMean(pbab), nil
}

// TwoHop composes two assignment matrices: it returns first × second.
func TwoHop(first, second *tensor.Dense) (*tensor.Dense, error) {
	prod, err := tensor.MatMul(first, second)
	if err != nil {
		return nil, errors.Wrapf(err, "TwoHop: %v × %v", first.Shape(), second.Shape())
	}
	return prod.(*tensor.Dense), nil
}

// ValidateAssignment checks that p is a non-empty float64 matrix with finite, non-negative entries.
// Float32 matrices are converted. The returned matrix is the one that should be used from here on.
func ValidateAssignment(op string, p *tensor.Dense) (*tensor.Dense, error) {
	if p == nil {
		return nil, errors.WithStack(ShapeMismatchError{Op: op, Msg: "nil matrix"})
	}
	if p.Dims() != 2 {
		return nil, errors.WithStack(ShapeMismatchError{Op: op, A: p.Shape().Clone(), Msg: "expected a matrix"})
	}
	if p.Shape()[0] == 0 || p.Shape()[1] == 0 {
		return nil, errors.WithStack(ShapeMismatchError{Op: op, A: p.Shape().Clone(), Msg: "empty matrix"})
	}
	p, err := asFloat64(p)
	if err != nil {
		return nil, errors.WithMessage(err, op)
	}
	n := p.Shape()[1]
	for i, v := range float64s(p) {
		if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, errors.WithStack(InvalidEntryError{Op: op, Row: i / n, Col: i % n, Value: v})
		}
	}
	return p, nil
}

// IsRowStochastic reports whether every row of p sums to 1 within tol.
func IsRowStochastic(p *tensor.Dense, tol float64) (bool, error) {
	p, err := ValidateAssignment("IsRowStochastic", p)
	if err != nil {
		return false, err
	}
	m, n := p.Shape()[0], p.Shape()[1]
	rows := rowsOf(float64s(p), m, n)
	defer returnRows(rows)
	for _, row := range rows {
		if math.Abs(floats.Sum(row)-1) > tol {
			return false, nil
		}
	}
	return true, nil
}

func rowMean(p *tensor.Dense) *tensor.Dense {
	m, n := p.Shape()[0], p.Shape()[1]
	rows := rowsOf(float64s(p), m, n)
	data := columnSum(rows, n)
	returnRows(rows)
	floats.Scale(1/float64(m), data)
	return tensor.New(tensor.WithShape(n), tensor.WithBacking(data))
}

// columnSum sums the rows. Rows are added in order, so the result is deterministic.
func columnSum(rows [][]float64, n int) []float64 {
	retVal := make([]float64, n)
	for _, row := range rows {
		floats.Add(retVal, row)
	}
	return retVal
}

// asFloat64 returns a materialized float64 version of p.
func asFloat64(p *tensor.Dense) (*tensor.Dense, error) {
	if p.IsMaterializable() {
		p = p.Materialize().(*tensor.Dense)
	}
	switch p.Dtype() {
	case tensor.Float64:
		return p, nil
	case tensor.Float32:
		data := float32s(p)
		backing := make([]float64, len(data))
		for i, v := range data {
			backing[i] = float64(v)
		}
		return tensor.New(tensor.WithShape(p.Shape().Clone()...), tensor.WithBacking(backing)), nil
	default:
		return nil, errors.Errorf("unsupported dtype %v", p.Dtype())
	}
}

// float64s returns the backing data of a float64 tensor. Single element tensors may report their
// data as a scalar.
func float64s(t *tensor.Dense) []float64 {
	switch data := t.Data().(type) {
	case []float64:
		return data
	case float64:
		return []float64{data}
	}
	return nil
}

func float32s(t *tensor.Dense) []float32 {
	switch data := t.Data().(type) {
	case []float32:
		return data
	case float32:
		return []float32{data}
	}
	return nil
}
