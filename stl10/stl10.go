// Package stl10 loads the STL-10 binary dataset for semi-supervised training: labelled train and
// test splits, the large unlabeled split, and the predefined training folds.
package stl10

import (
	"bufio"
	"io"
	"io/ioutil"
	"log"
	"math/rand"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"gorgonia.org/tensor"
)

// Config configures where and how STL-10 is read.
type Config struct {
	DataDir      string `yaml:"data_dir"`
	NumLabels    int    `yaml:"num_labels"`
	ImageShape   [3]int `yaml:"image_shape"` // height, width, depth
	MaxUnlabeled int    `yaml:"max_unlabeled"`
}

func DefaultConf(dataDir string) Config {
	return Config{
		DataDir:      dataDir,
		NumLabels:    10,
		ImageShape:   [3]int{96, 96, 3},
		MaxUnlabeled: 20000,
	}
}

func (conf Config) IsValid() bool {
	return conf.DataDir != "" &&
		conf.NumLabels > 0 &&
		conf.ImageShape[0] > 0 && conf.ImageShape[1] > 0 && conf.ImageShape[2] > 0 &&
		conf.MaxUnlabeled > 0
}

// Split names a part of the dataset.
type Split string

const (
	Train     Split = "train"
	Test      Split = "test"
	Unlabeled Split = "unlabeled"
)

// Load reads a split. Images come back as a uint8 tensor of shape (N, H, W, C). The unlabeled split has
// no labels, and is subsampled to conf.MaxUnlabeled images using r.
func Load(conf Config, split Split, r *rand.Rand) (images *tensor.Dense, labels []int, err error) {
	if !conf.IsValid() {
		return nil, nil, errors.Errorf("invalid config %+v", conf)
	}
	switch split {
	case Train, Test:
		if images, err = extractImagesFile(filepath.Join(conf.DataDir, string(split)+"_X.bin"), conf.ImageShape); err != nil {
			return nil, nil, err
		}
		if labels, err = extractLabelsFile(filepath.Join(conf.DataDir, string(split)+"_y.bin"), conf.NumLabels); err != nil {
			return nil, nil, err
		}
		if len(labels) != images.Shape()[0] {
			return nil, nil, errors.Errorf("%s split has %d images but %d labels", split, images.Shape()[0], len(labels))
		}
		return images, labels, nil
	case Unlabeled:
		if images, err = extractImagesFile(filepath.Join(conf.DataDir, "unlabeled_X.bin"), conf.ImageShape); err != nil {
			return nil, nil, err
		}
		if images.Shape()[0] > conf.MaxUnlabeled {
			if images, err = Sample(images, conf.MaxUnlabeled, r); err != nil {
				return nil, nil, err
			}
		}
		return images, nil, nil
	}
	return nil, nil, errors.Errorf("unknown split %q. Expected train, test or unlabeled", split)
}

func extractImagesFile(filename string, shape [3]int) (*tensor.Dense, error) {
	log.Printf("Extracting %s", filename)
	f, err := os.Open(filename)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	defer f.Close()
	return ExtractImages(bufio.NewReader(f), shape)
}

func extractLabelsFile(filename string, numLabels int) ([]int, error) {
	log.Printf("Extracting %s", filename)
	f, err := os.Open(filename)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	defer f.Close()
	return ExtractLabels(bufio.NewReader(f), numLabels)
}

// ExtractImages reads raw images into a uint8 tensor of shape (N, H, W, C).
//
// On disk, every image is stored channel by channel, and each channel column by column, i.e. the
// layout of an image is (C, W, H).
func ExtractImages(r io.Reader, shape [3]int) (*tensor.Dense, error) {
	raw, err := ioutil.ReadAll(r)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	h, w, c := shape[0], shape[1], shape[2]
	size := h * w * c
	if size == 0 || len(raw) == 0 || len(raw)%size != 0 {
		return nil, errors.Errorf("read %d bytes, which is not a whole number of %v images", len(raw), shape)
	}
	n := len(raw) / size

	out := make([]uint8, len(raw))
	for img := 0; img < n; img++ {
		src := raw[img*size : (img+1)*size]
		dst := out[img*size : (img+1)*size]
		for ch := 0; ch < c; ch++ {
			for x := 0; x < w; x++ {
				for y := 0; y < h; y++ {
					dst[(y*w+x)*c+ch] = src[(ch*w+x)*h+y]
				}
			}
		}
	}
	return tensor.New(tensor.WithShape(n, h, w, c), tensor.WithBacking(out)), nil
}

// ExtractLabels reads one byte per label. Labels are stored 1-based and are returned 0-based.
func ExtractLabels(r io.Reader, numLabels int) ([]int, error) {
	raw, err := ioutil.ReadAll(r)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	labels := make([]int, len(raw))
	for i, b := range raw {
		if b == 0 || int(b) > numLabels {
			return nil, errors.Errorf("label %d of sample %d is outside [1, %d]", b, i, numLabels)
		}
		labels[i] = int(b) - 1
	}
	return labels, nil
}

// Sample picks n images at random, without replacement.
func Sample(images *tensor.Dense, n int, r *rand.Rand) (*tensor.Dense, error) {
	total := images.Shape()[0]
	if n > total {
		return nil, errors.Errorf("cannot sample %d of %d images", n, total)
	}
	return selectImages(images, r.Perm(total)[:n])
}

// SampleLabelled picks n labelled images at random, without replacement, keeping every image with its label.
func SampleLabelled(images *tensor.Dense, labels []int, n int, r *rand.Rand) (*tensor.Dense, []int, error) {
	total := images.Shape()[0]
	if total != len(labels) {
		return nil, nil, errors.Errorf("%d images but %d labels", total, len(labels))
	}
	if n > total {
		return nil, nil, errors.Errorf("cannot sample %d of %d images", n, total)
	}
	indices := r.Perm(total)[:n]
	picked, err := selectImages(images, indices)
	if err != nil {
		return nil, nil, err
	}
	pickedLabels := make([]int, n)
	for i, idx := range indices {
		pickedLabels[i] = labels[idx]
	}
	return picked, pickedLabels, nil
}

// selectImages copies the images at the given indices into a new tensor.
func selectImages(images *tensor.Dense, indices []int) (*tensor.Dense, error) {
	data, ok := images.Data().([]uint8)
	if !ok {
		return nil, errors.Errorf("expected uint8 images. Got %v", images.Dtype())
	}
	shape := images.Shape().Clone()
	total := shape[0]
	size := shape.TotalSize() / total
	out := make([]uint8, 0, len(indices)*size)
	for _, i := range indices {
		if i < 0 || i >= total {
			return nil, errors.Errorf("image index %d out of range [0, %d)", i, total)
		}
		out = append(out, data[i*size:(i+1)*size]...)
	}
	shape[0] = len(indices)
	return tensor.New(tensor.WithShape(shape...), tensor.WithBacking(out)), nil
}
