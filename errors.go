package semisup

import (
	"fmt"

	"gorgonia.org/tensor"
)

// ShapeMismatchError is returned when the operands of an operation have incompatible shapes.
type ShapeMismatchError struct {
	Op   string
	A, B tensor.Shape
	Msg  string
}

func (err ShapeMismatchError) Error() string {
	if err.B == nil {
		return fmt.Sprintf("%s: bad shape %v: %s", err.Op, err.A, err.Msg)
	}
	return fmt.Sprintf("%s: shape mismatch between %v and %v: %s", err.Op, err.A, err.B, err.Msg)
}

// DegenerateClassError is returned when a class has no members during class normalization.
type DegenerateClassError struct {
	Label  int // the class
	Sample int // the sample whose class count came out as zero
}

func (err DegenerateClassError) Error() string {
	return fmt.Sprintf("class %d of sample %d has no members", err.Label, err.Sample)
}

// ZeroMassError is returned when a vector that needs renormalizing sums to zero.
type ZeroMassError struct {
	Op string
}

func (err ZeroMassError) Error() string {
	return fmt.Sprintf("%s: probability mass is zero, cannot renormalize", err.Op)
}

// InvalidEntryError is returned when an assignment matrix holds a negative, NaN or infinite entry.
type InvalidEntryError struct {
	Op       string
	Row, Col int
	Value    float64
}

func (err InvalidEntryError) Error() string {
	return fmt.Sprintf("%s: entry (%d, %d) = %v is not a valid assignment weight", err.Op, err.Row, err.Col, err.Value)
}
