package stl10

import (
	"bufio"
	"io"
	"log"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"gorgonia.org/tensor"
)

// NumFolds is the number of predefined training folds.
const NumFolds = 10

// ParseFoldIndices reads the fold index file: one line per fold, holding the space separated 0-based
// indices of the training images in that fold.
func ParseFoldIndices(r io.Reader) ([][]int, error) {
	var folds [][]int
	s := bufio.NewScanner(r)
	s.Buffer(make([]byte, 64*1024), 1<<20)
	for line := 1; s.Scan(); line++ {
		fields := strings.Fields(s.Text())
		if len(fields) == 0 {
			continue
		}
		fold := make([]int, len(fields))
		for i, f := range fields {
			idx, err := strconv.ParseUint(f, 10, 16)
			if err != nil {
				return nil, errors.Wrapf(err, "fold index file line %d", line)
			}
			fold[i] = int(idx)
		}
		folds = append(folds, fold)
	}
	if err := s.Err(); err != nil {
		return nil, errors.WithStack(err)
	}
	return folds, nil
}

// PickFold chooses the subset of the labelled training data that belongs to a fold.
// fold -1 uses all the data.
func PickFold(images *tensor.Dense, labels []int, folds [][]int, fold int) (*tensor.Dense, []int, error) {
	if fold < -1 || fold >= NumFolds {
		return nil, nil, errors.Errorf("fold index %d needs to be in [0, %d] or -1 for all data", fold, NumFolds-1)
	}
	if images.Shape()[0] != len(labels) {
		return nil, nil, errors.Errorf("%d images but %d labels", images.Shape()[0], len(labels))
	}
	if fold == -1 {
		log.Printf("Using all folds.")
		return images, labels, nil
	}
	if fold >= len(folds) {
		return nil, nil, errors.Errorf("fold %d requested but only %d folds are known", fold, len(folds))
	}

	log.Printf("Selecting fold %d", fold)
	indices := folds[fold]
	picked, err := selectImages(images, indices)
	if err != nil {
		return nil, nil, errors.WithMessagef(err, "fold %d", fold)
	}
	pickedLabels := make([]int, len(indices))
	for i, idx := range indices {
		pickedLabels[i] = labels[idx]
	}
	return picked, pickedLabels, nil
}
