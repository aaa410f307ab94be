package main

import (
	"fmt"
	"io/ioutil"
	"log"
	"math/rand"

	"github.com/gorgonia/semisup"
	"github.com/gorgonia/semisup/assoc"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
	"gorgonia.org/tensor"
)

var (
	assocConfig     string
	assocVisit      string
	assocIterations int
	assocSeed       int64
	assocDot        bool
	assocThreshold  float64
)

var assocCmd = &cobra.Command{
	Use:   "assoc",
	Short: "Train the association graph on a synthetic problem and compare the visit strategies on its walk",
	RunE: func(cmd *cobra.Command, args []string) error {
		conf, err := loadAssocConfig(cmd)
		if err != nil {
			return err
		}
		r := rand.New(rand.NewSource(assocSeed))
		xa, labels := clusters(r, conf.Sup, conf.Features, unbalanced)
		xb, _ := clusters(r, conf.Unsup, conf.Features, balanced)

		a := assoc.New(conf)
		if err = a.Init(); err != nil {
			return err
		}
		costs, err := assoc.Train(a, xa, xb, labels, assocIterations)
		if err != nil {
			return err
		}
		for i, c := range costs {
			log.Printf("iteration %d\tcost %1.4f", i, c)
		}

		e, err := assoc.Evaluate(a, false)
		if err != nil {
			return err
		}
		defer e.Close()
		res, err := e.Eval(xa, xb, labels)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "walker loss %1.4f, visit loss (%v) %1.4f, total %1.4f\n", res.WalkerLoss, conf.Visit, res.VisitLoss, res.Loss)
		c, err := semisup.Compare(res.Inputs())
		if err != nil {
			return err
		}
		for i, s := range c.Strategies {
			fmt.Fprintf(out, "%-17s %1.3v (visit loss %1.4f)\n", s, c.Visits[i], c.Losses[i])
		}

		if assocDot {
			dot, err := assoc.ToDot(res.Pab, res.Pba, assocThreshold)
			if err != nil {
				return err
			}
			fmt.Fprintln(out, dot)
		}
		return nil
	},
}

func init() {
	f := assocCmd.Flags()
	f.StringVar(&assocConfig, "config", "", "YAML file holding the association graph config")
	f.StringVar(&assocVisit, "visit", "", "visit strategy: unnormalized, class-normalized or proximity")
	f.IntVar(&assocIterations, "iterations", 50, "training iterations")
	f.Int64Var(&assocSeed, "seed", 1337, "seed of the synthetic problem")
	f.BoolVar(&assocDot, "dot", false, "print the walk as a DOT graph")
	f.Float64Var(&assocThreshold, "threshold", 0.1, "smallest transition probability drawn in the DOT graph")
}

func loadAssocConfig(cmd *cobra.Command) (assoc.Config, error) {
	conf := assoc.DefaultConf(6, 12, 4)
	if assocConfig != "" {
		raw, err := ioutil.ReadFile(assocConfig)
		if err != nil {
			return conf, errors.WithStack(err)
		}
		if err = yaml.Unmarshal(raw, &conf); err != nil {
			return conf, errors.Wrapf(err, "parsing %s", assocConfig)
		}
	}
	if cmd.Flags().Changed("visit") {
		s, err := semisup.ParseStrategy(assocVisit)
		if err != nil {
			return conf, err
		}
		conf.Visit = s
	}
	if !conf.IsValid() {
		return conf, errors.Errorf("invalid association config %+v", conf)
	}
	return conf, nil
}

type classMix func(i, n int) int

// two thirds of the samples are in class 0.
func unbalanced(i, n int) int {
	if i < (2*n+2)/3 {
		return 0
	}
	return 1 + i%2
}

func balanced(i, n int) int { return i % 3 }

// clusters makes n noisy samples around one-hot class centres.
func clusters(r *rand.Rand, n, features int, mix classMix) (*tensor.Dense, []int) {
	backing := make([]float32, n*features)
	labels := make([]int, n)
	for i := range labels {
		labels[i] = mix(i, n)
		row := backing[i*features : (i+1)*features]
		for j := range row {
			row[j] = float32(r.NormFloat64() * 0.1)
		}
		row[labels[i]%features]++
	}
	return tensor.New(tensor.WithShape(n, features), tensor.WithBacking(backing)), labels
}
