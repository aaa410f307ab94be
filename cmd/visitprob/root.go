package main

import (
	"github.com/gorgonia/semisup"
	"github.com/spf13/cobra"
	"gorgonia.org/tensor"
)

var rootCmd = &cobra.Command{
	Use:          "visitprob",
	Short:        "visitprob compares the visit probabilities of association based semi-supervised learning",
	SilenceUsage: true,
}

func init() {
	rootCmd.AddCommand(demoCmd, renderCmd, assocCmd, stl10Cmd)
}

// notebookInputs are two supervised samples of different classes and four unsupervised samples.
// The second supervised sample spreads its walk over three unsupervised samples.
func notebookInputs() semisup.Inputs {
	return semisup.Inputs{
		Pab: tensor.New(tensor.WithShape(2, 4), tensor.WithBacking([]float64{
			1, 0, 0, 0,
			0, 0.33, 0.33, 0.33,
		})),
		Pba: tensor.New(tensor.WithShape(4, 2), tensor.WithBacking([]float64{
			1, 0,
			0, 1,
			0, 1,
			0, 1,
		})),
		Labels: []int{0, 1},
	}
}

func mat3x2() *tensor.Dense {
	return tensor.New(tensor.WithShape(3, 2), tensor.WithBacking([]float64{
		1, 0,
		0, 1,
		0, 1,
	}))
}
