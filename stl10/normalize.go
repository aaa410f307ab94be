package stl10

import (
	"github.com/pkg/errors"
	"gorgonia.org/tensor"
	"gorgonia.org/vecf32"
)

// Normalize maps pixel values from [0, 255] to roughly [-1, 1]: (x - 128) / 128.
func Normalize(images *tensor.Dense) ([]float32, error) {
	data, ok := images.Data().([]uint8)
	if !ok {
		return nil, errors.Errorf("expected uint8 images. Got %v", images.Dtype())
	}
	retVal := make([]float32, len(data))
	for i, v := range data {
		retVal[i] = float32(v)
	}
	vecf32.Trans(retVal, -128)
	vecf32.Scale(retVal, 1.0/128)
	return retVal, nil
}

// Flatten turns (N, H, W, C) images into an N × (H·W·C) float32 matrix of normalized pixels. Each row
// keeps the pixel-major layout, which suits the linear embedding of the association graph.
func Flatten(images *tensor.Dense) (*tensor.Dense, error) {
	if images.Dims() != 4 || images.Shape()[0] == 0 {
		return nil, errors.Errorf("expected a non empty batch of (H, W, C) images. Got %v", images.Shape())
	}
	data, err := Normalize(images)
	if err != nil {
		return nil, err
	}
	n := images.Shape()[0]
	return tensor.New(tensor.WithShape(n, len(data)/n), tensor.WithBacking(data)), nil
}

// Planes turns (N, H, W, C) images into an N × (C·H·W) float32 matrix of normalized pixels, with each
// row laid out channel by channel. A row reshaped to (C, H, W) is what a convolutional embedding reads.
func Planes(images *tensor.Dense) (*tensor.Dense, error) {
	flat, err := Flatten(images)
	if err != nil {
		return nil, err
	}
	shape := images.Shape()
	n, h, w, c := shape[0], shape[1], shape[2], shape[3]
	src := flat.Data().([]float32)
	dst := make([]float32, len(src))
	size := h * w * c
	for img := 0; img < n; img++ {
		s := src[img*size : (img+1)*size]
		d := dst[img*size : (img+1)*size]
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				for ch := 0; ch < c; ch++ {
					d[(ch*h+y)*w+x] = s[(y*w+x)*c+ch]
				}
			}
		}
	}
	return tensor.New(tensor.WithShape(n, size), tensor.WithBacking(dst)), nil
}
