// Package semisup computes the visit probabilities used by the visit loss of association based
// semi-supervised learning, in three variants that can be compared side by side.
package semisup

import (
	"bytes"
	"log"

	"github.com/pkg/errors"
	"gorgonia.org/tensor"
)

// Comparison holds the visit probabilities of several strategies evaluated on the same inputs.
type Comparison struct {
	Statistics
	Inputs

	buf    bytes.Buffer
	logger *log.Logger
}

// Compare evaluates each of the strategies on the inputs. If no strategies are given, all of them are
// evaluated. The first failing strategy aborts the comparison.
func Compare(in Inputs, strategies ...Strategy) (*Comparison, error) {
	if len(strategies) == 0 {
		strategies = AllStrategies
	}
	retVal := &Comparison{
		Statistics: makeStatistics(len(strategies)),
		Inputs:     in,
	}
	retVal.logger = log.New(&retVal.buf, "", 0)
	if in.Pab != nil {
		retVal.logger.Printf("P_ab %v", in.Pab.Shape())
	}
	if in.Pba != nil {
		retVal.logger.Printf("P_ba %v", in.Pba.Shape())
	}
	if len(in.Labels) > 0 {
		retVal.logger.Printf("class counts %v", ClassCounts(in.Labels))
	}

	retVal.logger.SetPrefix("\t")
	for _, s := range strategies {
		v, err := s.Visit(in)
		if err != nil {
			return nil, errors.WithMessagef(err, "strategy %v", s)
		}
		loss, err := VisitLoss(v)
		if err != nil {
			return nil, errors.WithMessagef(err, "strategy %v", s)
		}
		retVal.logger.Printf("%v: %1.4f (loss %1.4f)", s, float64s(v), loss)
		retVal.update(s, v, loss)
	}
	retVal.logger.SetPrefix("")
	return retVal, nil
}

// Visit returns the visit probability computed for s, or nil if s was not compared.
func (c *Comparison) Visit(s Strategy) *tensor.Dense {
	for i, st := range c.Strategies {
		if st == s {
			return c.Visits[i]
		}
	}
	return nil
}

// Log returns what was logged during the comparison.
func (c *Comparison) Log() string { return c.buf.String() }
