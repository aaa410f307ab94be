package gif

import (
	"fmt"

	"github.com/gorgonia/semisup"
	"gorgonia.org/tensor"
)

// ComparisonFrames makes one frame per strategy of the comparison.
func ComparisonFrames(c *semisup.Comparison) []Frame {
	retVal := make([]Frame, 0, len(c.Strategies))
	for i, s := range c.Strategies {
		retVal = append(retVal, Frame{
			Title: fmt.Sprintf("%v visit probability", s),
			Visit: values(c.Visits[i]),
			Loss:  c.Losses[i],
		})
	}
	return retVal
}

func values(v *tensor.Dense) []float64 {
	switch d := v.Data().(type) {
	case []float64:
		return d
	case float64:
		return []float64{d}
	}
	return nil
}
