package stl10

import (
	"image"
	"image/draw"
	"math"
	"math/rand"

	"github.com/pkg/errors"
	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/math/f64"
	"gorgonia.org/tensor"
)

// Augmentation describes the random perturbations applied to labelled training images.
type Augmentation struct {
	MaxCropPercentage  float64 `yaml:"max_crop_percentage"`  // fraction of each side that may be cropped away
	BrightnessMaxDelta float64 `yaml:"brightness_max_delta"` // in pixel values
	SaturationLower    float64 `yaml:"saturation_lower"`
	SaturationUpper    float64 `yaml:"saturation_upper"`
	HueMaxDelta        float64 `yaml:"hue_max_delta"` // fraction of the hue circle
	GrayProb           float64 `yaml:"gray_prob"`
	MaxRotateAngle     float64 `yaml:"max_rotate_angle"` // degrees
}

// DefaultAugmentation returns the perturbations used for STL-10.
func DefaultAugmentation() Augmentation {
	return Augmentation{
		MaxCropPercentage:  0.2,
		BrightnessMaxDelta: 1.3,
		SaturationLower:    0.5,
		SaturationUpper:    1.2,
		HueMaxDelta:        0.1,
		GrayProb:           0.5,
		MaxRotateAngle:     10,
	}
}

func (aug Augmentation) IsValid() bool {
	return aug.MaxCropPercentage >= 0 && aug.MaxCropPercentage < 1 &&
		aug.BrightnessMaxDelta >= 0 &&
		aug.SaturationLower >= 0 && aug.SaturationLower <= aug.SaturationUpper &&
		aug.HueMaxDelta >= 0 && aug.HueMaxDelta <= 0.5 &&
		aug.GrayProb >= 0 && aug.GrayProb <= 1 &&
		aug.MaxRotateAngle >= 0
}

// Augment returns a perturbed copy of a batch of (N, H, W, 3) images. Every image is cropped, rotated,
// and has its brightness, saturation and hue jittered, then is turned gray with probability GrayProb.
func Augment(images *tensor.Dense, aug Augmentation, r *rand.Rand) (*tensor.Dense, error) {
	if !aug.IsValid() {
		return nil, errors.Errorf("invalid augmentation %+v", aug)
	}
	data, ok := images.Data().([]uint8)
	if !ok {
		return nil, errors.Errorf("expected uint8 images. Got %v", images.Dtype())
	}
	shape := images.Shape()
	if images.Dims() != 4 || shape[3] != 3 {
		return nil, errors.Errorf("expected (N, H, W, 3) images. Got %v", shape)
	}
	n, h, w := shape[0], shape[1], shape[2]
	size := h * w * 3

	out := make([]uint8, len(data))
	pixels := make([]float64, size)
	for i := 0; i < n; i++ {
		img := toRGBA(data[i*size:(i+1)*size], h, w)
		img = crop(img, aug.MaxCropPercentage*r.Float64(), r)
		img = rotate(img, aug.MaxRotateAngle*(2*r.Float64()-1))

		for p := 0; p < h*w; p++ {
			off := img.PixOffset(p%w, p/w)
			for c := 0; c < 3; c++ {
				pixels[p*3+c] = float64(img.Pix[off+c])
			}
		}

		if delta := aug.BrightnessMaxDelta * (2*r.Float64() - 1); delta != 0 {
			for p := range pixels {
				pixels[p] += delta
			}
		}
		factor := aug.SaturationLower + (aug.SaturationUpper-aug.SaturationLower)*r.Float64()
		hue := aug.HueMaxDelta * (2*r.Float64() - 1)
		if factor != 1 || hue != 0 {
			jitter(pixels, factor, hue)
		}
		if r.Float64() < aug.GrayProb {
			gray(pixels)
		}

		dst := out[i*size : (i+1)*size]
		for p, v := range pixels {
			dst[p] = uint8(math.Round(math.Max(0, math.Min(255, v))))
		}
	}
	return tensor.New(tensor.WithShape(shape.Clone()...), tensor.WithBacking(out)), nil
}

func toRGBA(pix []uint8, h, w int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for p := 0; p < h*w; p++ {
		off := img.PixOffset(p%w, p/w)
		copy(img.Pix[off:off+3], pix[p*3:p*3+3])
		img.Pix[off+3] = 0xff
	}
	return img
}

// crop cuts away up to the given fraction of each side at a random offset, and scales the rest back up.
func crop(src *image.RGBA, fraction float64, r *rand.Rand) *image.RGBA {
	b := src.Bounds()
	cw := int(math.Round(float64(b.Dx()) * (1 - fraction)))
	ch := int(math.Round(float64(b.Dy()) * (1 - fraction)))
	if cw >= b.Dx() && ch >= b.Dy() || cw < 1 || ch < 1 {
		return src
	}
	x0 := r.Intn(b.Dx() - cw + 1)
	y0 := r.Intn(b.Dy() - ch + 1)
	dst := image.NewRGBA(b)
	xdraw.BiLinear.Scale(dst, b, src, image.Rect(x0, y0, x0+cw, y0+ch), draw.Src, nil)
	return dst
}

// rotate turns the image about its centre. Corners that leave the image come back black.
func rotate(src *image.RGBA, degrees float64) *image.RGBA {
	if degrees == 0 {
		return src
	}
	b := src.Bounds()
	cx, cy := float64(b.Dx())/2, float64(b.Dy())/2
	sin, cos := math.Sincos(degrees * math.Pi / 180)
	s2d := f64.Aff3{
		cos, -sin, cx - cos*cx + sin*cy,
		sin, cos, cy - sin*cx - cos*cy,
	}
	dst := image.NewRGBA(b)
	draw.Draw(dst, b, image.Black, image.Point{}, draw.Src)
	xdraw.BiLinear.Transform(dst, s2d, src, b, draw.Over, nil)
	return dst
}

// jitter scales the saturation and shifts the hue of interleaved RGB pixels in [0, 255].
func jitter(pixels []float64, factor, hue float64) {
	for p := 0; p+2 < len(pixels); p += 3 {
		h, s, v := rgbToHSV(pixels[p]/255, pixels[p+1]/255, pixels[p+2]/255)
		h = math.Mod(h+hue+1, 1)
		s = math.Max(0, math.Min(1, s*factor))
		rr, gg, bb := hsvToRGB(h, s, v)
		pixels[p], pixels[p+1], pixels[p+2] = rr*255, gg*255, bb*255
	}
}

func gray(pixels []float64) {
	for p := 0; p+2 < len(pixels); p += 3 {
		y := 0.2989*pixels[p] + 0.587*pixels[p+1] + 0.114*pixels[p+2]
		pixels[p], pixels[p+1], pixels[p+2] = y, y, y
	}
}

func rgbToHSV(r, g, b float64) (h, s, v float64) {
	max := math.Max(r, math.Max(g, b))
	min := math.Min(r, math.Min(g, b))
	v = max
	d := max - min
	if max <= 0 || d <= 0 {
		return 0, 0, v
	}
	s = d / max
	switch max {
	case r:
		h = (g - b) / d
	case g:
		h = 2 + (b-r)/d
	default:
		h = 4 + (r-g)/d
	}
	h /= 6
	if h < 0 {
		h++
	}
	return h, s, v
}

func hsvToRGB(h, s, v float64) (r, g, b float64) {
	h6 := h * 6
	i := math.Floor(h6)
	f := h6 - i
	p := v * (1 - s)
	q := v * (1 - s*f)
	t := v * (1 - s*(1-f))
	switch int(i) % 6 {
	case 0:
		return v, t, p
	case 1:
		return q, v, p
	case 2:
		return p, v, t
	case 3:
		return p, q, v
	case 4:
		return t, p, v
	default:
		return v, p, q
	}
}
