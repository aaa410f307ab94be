package semisup

import (
	"encoding/csv"
	"io"
	"strconv"

	"gorgonia.org/tensor"
)

// Statistics records, per strategy, the visit probability and the visit loss.
type Statistics struct {
	Strategies []Strategy
	Visits     []*tensor.Dense
	Losses     []float64
}

func makeStatistics(n int) Statistics {
	return Statistics{
		Strategies: make([]Strategy, 0, n),
		Visits:     make([]*tensor.Dense, 0, n),
		Losses:     make([]float64, 0, n),
	}
}

func (s *Statistics) update(st Strategy, v *tensor.Dense, loss float64) {
	s.Strategies = append(s.Strategies, st)
	s.Visits = append(s.Visits, v)
	s.Losses = append(s.Losses, loss)
}

// Dump writes the statistics as CSV: a header, then one record per strategy holding the strategy,
// its visit loss and the entries of its visit probability.
func (s *Statistics) Dump(w io.Writer) error {
	var width int
	for _, v := range s.Visits {
		if l := len(float64s(v)); l > width {
			width = l
		}
	}
	header := make([]string, 0, width+2)
	header = append(header, "strategy", "loss")
	for j := 0; j < width; j++ {
		header = append(header, "v"+strconv.Itoa(j))
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return err
	}
	records := make([][]string, 0, len(s.Strategies))
	for i, st := range s.Strategies {
		record := make([]string, len(header))
		record[0] = st.String()
		record[1] = strconv.FormatFloat(s.Losses[i], 'f', 4, 64)
		for j, p := range float64s(s.Visits[i]) {
			record[j+2] = strconv.FormatFloat(p, 'f', 4, 64)
		}
		records = append(records, record)
	}
	if err := cw.WriteAll(records); err != nil {
		return err
	}
	cw.Flush()
	return cw.Error()
}
