package semisup

import (
	"fmt"

	"github.com/pkg/errors"
	"gorgonia.org/tensor"
)

// Strategy is a way of computing the visit probability.
//
// The strategies are not drop-in replacements for each other. They exist side by side so that they
// can be compared.
type Strategy byte

const (
	// Unnormalized is the row mean of P_ab. It assumes equinumerous supervised classes.
	Unnormalized Strategy = iota
	// ClassNormalized weighs each supervised sample by the inverse of its class count.
	ClassNormalized
	// Proximity uses the row mean of the two hop matrix P_ba × P_ab.
	Proximity

	MAXSTRATEGY
)

// AllStrategies lists the strategies in their canonical order.
var AllStrategies = []Strategy{Unnormalized, ClassNormalized, Proximity}

func (s Strategy) String() string {
	switch s {
	case Unnormalized:
		return "unnormalized"
	case ClassNormalized:
		return "class-normalized"
	case Proximity:
		return "proximity"
	}
	return fmt.Sprintf("Strategy(%d)", byte(s))
}

// ParseStrategy is the inverse of String.
func ParseStrategy(s string) (Strategy, error) {
	for _, st := range AllStrategies {
		if st.String() == s {
			return st, nil
		}
	}
	return MAXSTRATEGY, errors.Errorf("unknown visit strategy %q", s)
}

// MarshalText implements encoding.TextMarshaler
func (s Strategy) MarshalText() ([]byte, error) {
	if s >= MAXSTRATEGY {
		return nil, errors.Errorf("unknown visit strategy %d", byte(s))
	}
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (s *Strategy) UnmarshalText(text []byte) error {
	parsed, err := ParseStrategy(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// Inputs are the operands that the strategies draw from. Not every strategy uses every field:
// Unnormalized only reads Pab, ClassNormalized reads Pab and Labels, Proximity reads Pab and Pba.
type Inputs struct {
	Pab    *tensor.Dense // supervised → unsupervised
	Pba    *tensor.Dense // unsupervised → supervised
	Labels []int         // one per row of Pab
}

// Visit computes the visit probability of the inputs using the strategy.
func (s Strategy) Visit(in Inputs) (*tensor.Dense, error) {
	switch s {
	case Unnormalized:
		return VisitProbability(in.Pab)
	case ClassNormalized:
		return ClassNormalizedVisitProbability(in.Pab, in.Labels)
	case Proximity:
		return ProximityProbability(in.Pab, in.Pba)
	}
	return nil, errors.Errorf("unknown visit strategy %d", byte(s))
}
