package assoc

import (
	"bytes"
	"fmt"

	"github.com/gorgonia/semisup"
	"github.com/pkg/errors"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// rowsFrom makes a rows×cols matrix over rows [start, start+rows) of the row-major matrix x.
// The returned matrix shares its backing with x.
func rowsFrom(x *tensor.Dense, start, rows int) *tensor.Dense {
	cols := x.Shape()[1]
	data := f32s(x)
	return tensor.New(tensor.WithShape(rows, cols), tensor.WithBacking(data[start*cols:(start+rows)*cols]))
}

// asFloat32 converts x to a materialized float32 matrix.
func asFloat32(x *tensor.Dense) (*tensor.Dense, error) {
	if x == nil {
		return nil, errors.New("nil matrix")
	}
	if x.IsMaterializable() {
		x = x.Materialize().(*tensor.Dense)
	}
	switch x.Dtype() {
	case tensor.Float32:
		return x, nil
	case tensor.Float64:
		var data []float64
		switch d := x.Data().(type) {
		case []float64:
			data = d
		case float64:
			data = []float64{d}
		}
		backing := make([]float32, len(data))
		for i, v := range data {
			backing[i] = float32(v)
		}
		return tensor.New(tensor.WithShape(x.Shape().Clone()...), tensor.WithBacking(backing)), nil
	}
	return nil, errors.Errorf("unsupported dtype %v", x.Dtype())
}

// f32s returns the backing data of a float32 tensor. Single element tensors may report their data as a scalar.
func f32s(x *tensor.Dense) []float32 {
	switch d := x.Data().(type) {
	case []float32:
		return d
	case float32:
		return []float32{d}
	}
	return nil
}

// diag32 makes a float32 diagonal matrix.
func diag32(d []float64) *tensor.Dense {
	n := len(d)
	backing := make([]float32, n*n)
	for i, v := range d {
		backing[i*n+i] = float32(v)
	}
	return tensor.New(tensor.WithShape(n, n), tensor.WithBacking(backing))
}

func scalarOf(v G.Value) (float32, error) {
	if v == nil {
		return 0, errors.New("value was not computed")
	}
	switch d := v.Data().(type) {
	case float32:
		return d, nil
	case []float32:
		if len(d) == 1 {
			return d[0], nil
		}
	}
	return 0, errors.Errorf("expected a float32 scalar. Got %v of %T", v, v.Data())
}

func cloneValue(v G.Value) (*tensor.Dense, error) {
	t, ok := v.(*tensor.Dense)
	if !ok {
		return nil, errors.Errorf("expected a *tensor.Dense. Got %T", v)
	}
	return t.Clone().(*tensor.Dense), nil
}

func checkShape(op string, x *tensor.Dense, rows, cols int) error {
	if x.Dims() != 2 || x.Shape()[0] != rows || x.Shape()[1] != cols {
		return errors.WithStack(semisup.ShapeMismatchError{Op: op, A: x.Shape().Clone(), B: tensor.Shape{rows, cols}, Msg: "input does not fit the configured graph"})
	}
	return nil
}

type manyErr []error

func (err manyErr) Error() string {
	var buf bytes.Buffer
	for _, e := range err {
		fmt.Fprintln(&buf, e.Error())
	}
	return buf.String()
}

func appendErr(err, more error) error {
	switch {
	case more == nil:
		return err
	case err == nil:
		return more
	}
	if me, ok := err.(manyErr); ok {
		return append(me, more)
	}
	return manyErr{err, more}
}
