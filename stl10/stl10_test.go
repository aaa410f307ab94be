package stl10

import (
	"bytes"
	"io/ioutil"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorgonia.org/tensor"
)

var tinyShape = [3]int{2, 3, 2} // height, width, depth

// encodeImage lays out an (H, W, C) image the way it is stored on disk: (C, W, H).
func encodeImage(img func(y, x, c int) uint8) []byte {
	h, w, c := tinyShape[0], tinyShape[1], tinyShape[2]
	var buf []byte
	for ch := 0; ch < c; ch++ {
		for x := 0; x < w; x++ {
			for y := 0; y < h; y++ {
				buf = append(buf, img(y, x, ch))
			}
		}
	}
	return buf
}

func pixel(n int) func(y, x, c int) uint8 {
	return func(y, x, c int) uint8 { return uint8(n*100 + y*10 + x*2 + c) }
}

func TestExtractImages(t *testing.T) {
	raw := append(encodeImage(pixel(0)), encodeImage(pixel(1))...)
	images, err := ExtractImages(bytes.NewReader(raw), tinyShape)
	require.NoError(t, err)
	assert.Equal(t, tensor.Shape{2, 2, 3, 2}, images.Shape())

	for n := 0; n < 2; n++ {
		for y := 0; y < 2; y++ {
			for x := 0; x < 3; x++ {
				for c := 0; c < 2; c++ {
					v, err := images.At(n, y, x, c)
					require.NoError(t, err)
					assert.Equal(t, pixel(n)(y, x, c), v.(uint8), "image %d at (%d, %d, %d)", n, y, x, c)
				}
			}
		}
	}

	_, err = ExtractImages(bytes.NewReader(raw[:5]), tinyShape)
	assert.Error(t, err)
	_, err = ExtractImages(bytes.NewReader(nil), tinyShape)
	assert.Error(t, err)
}

func TestExtractLabels(t *testing.T) {
	labels, err := ExtractLabels(bytes.NewReader([]byte{1, 10, 3}), 10)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 9, 2}, labels)

	_, err = ExtractLabels(bytes.NewReader([]byte{1, 0}), 10)
	assert.Error(t, err, "STL-10 labels are 1-based")
	_, err = ExtractLabels(bytes.NewReader([]byte{11}), 10)
	assert.Error(t, err)
}

func TestParseFoldIndices(t *testing.T) {
	src := "0 2 4 \n1 3 \n\n"
	folds, err := ParseFoldIndices(strings.NewReader(src))
	require.NoError(t, err)
	assert.Equal(t, [][]int{{0, 2, 4}, {1, 3}}, folds)

	_, err = ParseFoldIndices(strings.NewReader("1 x 3\n"))
	assert.Error(t, err)
}

func fiveImages(t *testing.T) (*tensor.Dense, []int) {
	var raw []byte
	for n := 0; n < 5; n++ {
		raw = append(raw, encodeImage(pixel(n))...)
	}
	images, err := ExtractImages(bytes.NewReader(raw), tinyShape)
	require.NoError(t, err)
	return images, []int{4, 3, 2, 1, 0}
}

func TestPickFold(t *testing.T) {
	images, labels := fiveImages(t)
	folds := [][]int{{0, 2, 4}, {1, 3}}

	all, allLabels, err := PickFold(images, labels, folds, -1)
	require.NoError(t, err)
	assert.Equal(t, images, all)
	assert.Equal(t, labels, allLabels)

	picked, pickedLabels, err := PickFold(images, labels, folds, 1)
	require.NoError(t, err)
	assert.Equal(t, tensor.Shape{2, 2, 3, 2}, picked.Shape())
	assert.Equal(t, []int{3, 1}, pickedLabels)
	v, err := picked.At(1, 0, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, pixel(3)(0, 0, 0), v.(uint8))

	_, _, err = PickFold(images, labels, folds, 10)
	assert.Error(t, err)
	_, _, err = PickFold(images, labels, folds, -2)
	assert.Error(t, err)
	_, _, err = PickFold(images, labels, folds, 5)
	assert.Error(t, err, "only two folds are known")
}

func TestSample(t *testing.T) {
	images, _ := fiveImages(t)
	r := rand.New(rand.NewSource(3))
	sampled, err := Sample(images, 3, r)
	require.NoError(t, err)
	assert.Equal(t, tensor.Shape{3, 2, 3, 2}, sampled.Shape())

	// without replacement: the first pixel identifies the image
	seen := make(map[uint8]bool)
	for i := 0; i < 3; i++ {
		v, err := sampled.At(i, 0, 0, 0)
		require.NoError(t, err)
		assert.False(t, seen[v.(uint8)], "image sampled twice")
		seen[v.(uint8)] = true
	}

	_, err = Sample(images, 6, r)
	assert.Error(t, err)
}

func TestNormalize(t *testing.T) {
	images := tensor.New(tensor.WithShape(1, 1, 2, 2), tensor.WithBacking([]uint8{0, 128, 192, 255}))
	normed, err := Normalize(images)
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float32{-1, 0, 0.5, 127.0 / 128}, normed, 1e-6)

	flat, err := Flatten(images)
	require.NoError(t, err)
	assert.Equal(t, tensor.Shape{1, 4}, flat.Shape())

	_, err = Normalize(tensor.New(tensor.WithShape(2), tensor.WithBacking([]float32{1, 2})))
	assert.Error(t, err)
}

func TestLoad(t *testing.T) {
	dir, err := ioutil.TempDir("", "stl10")
	require.NoError(t, err)
	defer os.RemoveAll(dir)

	var raw []byte
	for n := 0; n < 4; n++ {
		raw = append(raw, encodeImage(pixel(n))...)
	}
	require.NoError(t, ioutil.WriteFile(filepath.Join(dir, "train_X.bin"), raw, 0644))
	require.NoError(t, ioutil.WriteFile(filepath.Join(dir, "train_y.bin"), []byte{1, 2, 2, 3}, 0644))
	require.NoError(t, ioutil.WriteFile(filepath.Join(dir, "unlabeled_X.bin"), raw, 0644))

	conf := DefaultConf(dir)
	conf.ImageShape = tinyShape
	conf.NumLabels = 3
	conf.MaxUnlabeled = 2
	r := rand.New(rand.NewSource(1))

	images, labels, err := Load(conf, Train, r)
	require.NoError(t, err)
	assert.Equal(t, 4, images.Shape()[0])
	assert.Equal(t, []int{0, 1, 1, 2}, labels)

	unlabeled, none, err := Load(conf, Unlabeled, r)
	require.NoError(t, err)
	assert.Nil(t, none)
	assert.Equal(t, 2, unlabeled.Shape()[0])

	_, _, err = Load(conf, Test, r)
	assert.Error(t, err, "there is no test split on disk")
	_, _, err = Load(conf, Split("validation"), r)
	assert.Error(t, err)
}

func TestSampleLabelled(t *testing.T) {
	images, labels := fiveImages(t)
	r := rand.New(rand.NewSource(5))
	sampled, sampledLabels, err := SampleLabelled(images, labels, 3, r)
	require.NoError(t, err)
	assert.Equal(t, tensor.Shape{3, 2, 3, 2}, sampled.Shape())
	require.Len(t, sampledLabels, 3)

	// image n has label 4-n and starts with pixel value n*100
	for i, l := range sampledLabels {
		v, err := sampled.At(i, 0, 0, 0)
		require.NoError(t, err)
		assert.Equal(t, pixel(4-l)(0, 0, 0), v.(uint8), "image %d lost its label", i)
	}

	_, _, err = SampleLabelled(images, labels[:4], 3, r)
	assert.Error(t, err)
	_, _, err = SampleLabelled(images, labels, 6, r)
	assert.Error(t, err)
}

func TestPlanes(t *testing.T) {
	images, _ := fiveImages(t)
	planes, err := Planes(images)
	require.NoError(t, err)
	assert.Equal(t, tensor.Shape{5, 12}, planes.Shape())

	h, w := tinyShape[0], tinyShape[1]
	data := planes.Data().([]float32)
	for n := 0; n < 5; n++ {
		for c := 0; c < 2; c++ {
			for y := 0; y < h; y++ {
				for x := 0; x < w; x++ {
					want := (float32(pixel(n)(y, x, c)) - 128) / 128
					assert.InDelta(t, want, data[n*12+(c*h+y)*w+x], 1e-6, "image %d at (%d, %d, %d)", n, c, y, x)
				}
			}
		}
	}

	_, err = Planes(tensor.New(tensor.WithShape(2, 2), tensor.WithBacking([]uint8{1, 2, 3, 4})))
	assert.Error(t, err)
}

func colourImages(n, h, w int, r *rand.Rand) *tensor.Dense {
	backing := make([]uint8, n*h*w*3)
	for i := range backing {
		backing[i] = uint8(r.Intn(256))
	}
	return tensor.New(tensor.WithShape(n, h, w, 3), tensor.WithBacking(backing))
}

func TestAugmentation(t *testing.T) {
	aug := DefaultAugmentation()
	assert.True(t, aug.IsValid())
	assert.Equal(t, 0.2, aug.MaxCropPercentage)
	assert.Equal(t, 1.3, aug.BrightnessMaxDelta)
	assert.Equal(t, 0.5, aug.SaturationLower)
	assert.Equal(t, 1.2, aug.SaturationUpper)
	assert.Equal(t, 0.1, aug.HueMaxDelta)
	assert.Equal(t, 0.5, aug.GrayProb)
	assert.Equal(t, 10.0, aug.MaxRotateAngle)

	bad := aug
	bad.GrayProb = 2
	assert.False(t, bad.IsValid())
	bad = aug
	bad.SaturationLower = 1.5
	assert.False(t, bad.IsValid())
}

func TestAugment(t *testing.T) {
	images := colourImages(3, 8, 8, rand.New(rand.NewSource(1)))

	t.Run("nothing to do", func(t *testing.T) {
		noop := Augmentation{SaturationLower: 1, SaturationUpper: 1}
		out, err := Augment(images, noop, rand.New(rand.NewSource(2)))
		require.NoError(t, err)
		assert.Equal(t, images.Data(), out.Data())
	})

	t.Run("always gray", func(t *testing.T) {
		grey := Augmentation{SaturationLower: 1, SaturationUpper: 1, GrayProb: 1}
		out, err := Augment(images, grey, rand.New(rand.NewSource(2)))
		require.NoError(t, err)
		data := out.Data().([]uint8)
		for p := 0; p < len(data); p += 3 {
			assert.Equal(t, data[p], data[p+1])
			assert.Equal(t, data[p], data[p+2])
		}
	})

	t.Run("defaults", func(t *testing.T) {
		before := append([]uint8(nil), images.Data().([]uint8)...)
		out, err := Augment(images, DefaultAugmentation(), rand.New(rand.NewSource(3)))
		require.NoError(t, err)
		assert.Equal(t, images.Shape(), out.Shape())
		assert.Equal(t, before, images.Data(), "the input must not be modified")
		assert.NotEqual(t, images.Data(), out.Data())

		again, err := Augment(images, DefaultAugmentation(), rand.New(rand.NewSource(3)))
		require.NoError(t, err)
		assert.Equal(t, out.Data(), again.Data(), "the same seed should give the same images")
	})

	images2, _ := fiveImages(t)
	_, err := Augment(images2, DefaultAugmentation(), rand.New(rand.NewSource(1)))
	assert.Error(t, err, "only RGB images can be augmented")
}
