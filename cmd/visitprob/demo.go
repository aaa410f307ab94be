package main

import (
	"fmt"

	"github.com/gorgonia/semisup"
	"github.com/spf13/cobra"
)

var demoCSV bool

var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Print the visit probabilities of every strategy for the worked two-sample case",
	RunE: func(cmd *cobra.Command, args []string) error {
		in := notebookInputs()
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "P_ab\n%v\nP_ba\n%v\nlabels %v\n\n", in.Pab, in.Pba, in.Labels)

		v, err := semisup.VisitProbability(mat3x2())
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "mean of [[1 0] [0 1] [0 1]]: %1.4v\n\n", v)

		c, err := semisup.Compare(in)
		if err != nil {
			return err
		}
		for i, s := range c.Strategies {
			fmt.Fprintf(out, "%-17s %1.4v (visit loss %1.4f)\n", s, c.Visits[i], c.Losses[i])
		}
		if demoCSV {
			fmt.Fprintln(out)
			return c.Dump(out)
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "%s", c.Log())
		return nil
	},
}

func init() {
	demoCmd.Flags().BoolVar(&demoCSV, "csv", false, "also write the comparison as CSV")
}
