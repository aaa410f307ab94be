package semisup

import (
	"math"

	"github.com/pkg/errors"
	"gorgonia.org/tensor"
)

// Epsilon is added inside every log so that a zero visit probability gives a large but finite loss.
const Epsilon = 1e-8

// Uniform returns the uniform distribution over n entries. It is the target of the visit loss.
func Uniform(n int) *tensor.Dense {
	backing := make([]float64, n)
	for i := range backing {
		backing[i] = 1 / float64(n)
	}
	return tensor.New(tensor.WithShape(n), tensor.WithBacking(backing))
}

// VisitLoss is the cross entropy between the uniform distribution and the visit probability v:
//	-1/n Σ log(v_j + ε)
func VisitLoss(v *tensor.Dense) (float64, error) {
	if v == nil || v.Dims() != 1 || v.Shape()[0] == 0 {
		var s tensor.Shape
		if v != nil {
			s = v.Shape().Clone()
		}
		return 0, errors.WithStack(ShapeMismatchError{Op: "VisitLoss", A: s, Msg: "expected a non-empty vector"})
	}
	if v.Dtype() != tensor.Float64 {
		return 0, errors.Errorf("VisitLoss: unsupported dtype %v", v.Dtype())
	}
	data := float64s(v)
	target := float64s(Uniform(len(data)))
	var retVal float64
	for j, p := range data {
		retVal -= target[j] * math.Log(p+Epsilon)
	}
	return retVal, nil
}
