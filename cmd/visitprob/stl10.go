package main

import (
	"fmt"
	"io"
	"log"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/gorgonia/semisup"
	"github.com/gorgonia/semisup/assoc"
	"github.com/gorgonia/semisup/stl10"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"gorgonia.org/tensor"
)

var (
	stl10Dir   string
	stl10Folds string
	stl10Fold  int

	stl10Train      bool
	stl10Conv       bool
	stl10Augment    bool
	stl10Visit      string
	stl10Sup        int
	stl10Unsup      int
	stl10Unlabeled  int
	stl10Iterations int
)

var stl10Cmd = &cobra.Command{
	Use:   "stl10",
	Short: "Load the STL-10 training split, report its class balance, and optionally train the association graph on it",
	RunE: func(cmd *cobra.Command, args []string) error {
		conf := stl10.DefaultConf(stl10Dir)
		conf.MaxUnlabeled = stl10Unlabeled
		r := rand.New(rand.NewSource(time.Now().UnixNano()))
		images, labels, err := stl10.Load(conf, stl10.Train, r)
		if err != nil {
			return err
		}

		if stl10Fold != -1 {
			f, err := os.Open(foldsPath(cmd))
			if err != nil {
				return errors.WithStack(err)
			}
			folds, err := stl10.ParseFoldIndices(f)
			f.Close()
			if err != nil {
				return err
			}
			if images, labels, err = stl10.PickFold(images, labels, folds, stl10Fold); err != nil {
				return err
			}
		}

		counts := semisup.ClassCounts(labels)
		classes := make([]int, 0, len(counts))
		for c := range counts {
			classes = append(classes, c)
		}
		sort.Ints(classes)

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "images %v\n", images.Shape())
		for _, c := range classes {
			fmt.Fprintf(out, "class %d\t%d samples\tscale %1.5f\n", c, counts[c], 1/float64(counts[c]))
		}
		if !stl10Train {
			return nil
		}

		unlabeled, _, err := stl10.Load(conf, stl10.Unlabeled, r)
		if err != nil {
			return err
		}
		return trainOnImages(out, images, labels, unlabeled, r)
	},
}

func init() {
	f := stl10Cmd.Flags()
	f.StringVar(&stl10Dir, "dir", "stl10_binary", "directory holding the STL-10 binary files")
	f.StringVar(&stl10Folds, "folds", "", "fold index file (default fold_indices.txt in --dir)")
	f.IntVar(&stl10Fold, "fold", -1, "training fold in [0, 9], or -1 for all data")

	f.BoolVar(&stl10Train, "train", false, "train the association graph on the labelled images and an unlabeled subsample")
	f.BoolVar(&stl10Conv, "conv", false, "embed images with the convolutional embedding instead of the linear one")
	f.BoolVar(&stl10Augment, "augment", false, "augment the labelled images before training")
	f.StringVar(&stl10Visit, "visit", semisup.ClassNormalized.String(), "visit strategy: unnormalized, class-normalized or proximity")
	f.IntVar(&stl10Sup, "sup", 100, "labelled images per batch")
	f.IntVar(&stl10Unsup, "unsup", 100, "unlabeled images per batch")
	f.IntVar(&stl10Unlabeled, "unlabeled", 20000, "largest number of unlabeled images to load")
	f.IntVar(&stl10Iterations, "iterations", 10, "training iterations")
}

func foldsPath(cmd *cobra.Command) string {
	if cmd.Flags().Changed("folds") {
		return stl10Folds
	}
	return filepath.Join(stl10Dir, "fold_indices.txt")
}

// trainOnImages trains the association graph on whole batches of labelled and unlabeled (N, H, W, C)
// images, then compares the visit strategies on the walk of the first batch.
func trainOnImages(out io.Writer, images *tensor.Dense, labels []int, unlabeled *tensor.Dense, r *rand.Rand) error {
	visit, err := semisup.ParseStrategy(stl10Visit)
	if err != nil {
		return err
	}
	if stl10Sup < 1 || stl10Unsup < 1 {
		return errors.Errorf("batch sizes must be positive. Got %d and %d", stl10Sup, stl10Unsup)
	}
	batches := images.Shape()[0] / stl10Sup
	if bb := unlabeled.Shape()[0] / stl10Unsup; bb < batches {
		batches = bb
	}
	if batches == 0 {
		return errors.Errorf("not enough images for one batch of %d labelled and %d unlabeled images", stl10Sup, stl10Unsup)
	}
	if images, labels, err = stl10.SampleLabelled(images, labels, batches*stl10Sup, r); err != nil {
		return err
	}
	if unlabeled, err = stl10.Sample(unlabeled, batches*stl10Unsup, r); err != nil {
		return err
	}
	if stl10Augment {
		if images, err = stl10.Augment(images, stl10.DefaultAugmentation(), r); err != nil {
			return err
		}
	}

	shape := images.Shape()
	var conf assoc.Config
	var xa, xb *tensor.Dense
	if stl10Conv {
		conf = assoc.ConvConf(stl10Sup, stl10Unsup, [3]int{shape[3], shape[1], shape[2]})
		if xa, err = stl10.Planes(images); err != nil {
			return err
		}
		if xb, err = stl10.Planes(unlabeled); err != nil {
			return err
		}
	} else {
		conf = assoc.DefaultConf(stl10Sup, stl10Unsup, shape[1]*shape[2]*shape[3])
		conf.EmbSize = 128
		if xa, err = stl10.Flatten(images); err != nil {
			return err
		}
		if xb, err = stl10.Flatten(unlabeled); err != nil {
			return err
		}
	}
	conf.Visit = visit

	a := assoc.New(conf)
	if err = a.Init(); err != nil {
		return err
	}
	log.Printf("Training %v embedding on %d batches of %d labelled and %d unlabeled images", conf.Embedding, batches, stl10Sup, stl10Unsup)
	costs, err := assoc.Train(a, xa, xb, labels, stl10Iterations)
	if err != nil {
		return err
	}
	for i, c := range costs {
		fmt.Fprintf(out, "iteration %d\tcost %1.4f\n", i, c)
	}

	e, err := assoc.Evaluate(a, false)
	if err != nil {
		return err
	}
	defer e.Close()
	cols := xa.Shape()[1]
	res, err := e.Eval(
		tensor.New(tensor.WithShape(stl10Sup, cols), tensor.WithBacking(xa.Data().([]float32)[:stl10Sup*cols])),
		tensor.New(tensor.WithShape(stl10Unsup, cols), tensor.WithBacking(xb.Data().([]float32)[:stl10Unsup*cols])),
		labels[:stl10Sup],
	)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "walker loss %1.4f, visit loss (%v) %1.4f, total %1.4f\n", res.WalkerLoss, conf.Visit, res.VisitLoss, res.Loss)
	c, err := semisup.Compare(res.Inputs())
	if err != nil {
		return err
	}
	for i, s := range c.Strategies {
		fmt.Fprintf(out, "%-17s visit loss %1.4f\n", s, c.Losses[i])
	}
	return nil
}
