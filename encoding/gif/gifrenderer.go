package gif

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/gif"
	"io"
	"math"
	"strings"

	"github.com/golang/freetype/truetype"
	"github.com/pkg/errors"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/math/fixed"
)

var regular *truetype.Font

const (
	dpi             = 144.0
	fontsize        = 12.0
	lineheight      = 1.2
	barWidth        = 40 // characters for a probability of 1
	dummyLongString = `v00 ######################################## 1.0000`
)

func init() {
	var err error
	if regular, err = truetype.Parse(gomono.TTF); err != nil {
		panic(err)
	}
}

var globPalette = color.Palette{
	color.Gray{0},
	color.Gray{253},
}

// Frame is one visit probability vector to be drawn.
type Frame struct {
	Title string
	Visit []float64
	Loss  float64
}

// Lines renders the frame as text: the title, the loss, then one bar per entry of the visit probability.
func (f Frame) Lines() []string {
	lines := make([]string, 0, len(f.Visit)+2)
	lines = append(lines, f.Title, fmt.Sprintf("visit loss %1.4f", f.Loss))
	for j, p := range f.Visit {
		n := int(math.Round(p * barWidth))
		if n < 0 {
			n = 0
		}
		lines = append(lines, fmt.Sprintf("v%02d %-*s %1.4f", j, barWidth, strings.Repeat("#", n), p))
	}
	return lines
}

// Encoder renders frames of visit probabilities into an animated GIF.
type Encoder struct {
	H, W int
	font.Drawer

	out *gif.GIF
	io.Writer
	face font.Face

	maxH, maxW  int // maxHeight and maxWidth
	padH, padW  int // padding so everything don't start at the topleft
	delay       int // delay per frame, in 100ths of a second
	initialized bool
}

// NewGifEncoder with maximum height and width
func NewGifEncoder(w io.Writer, maxH, maxW int) *Encoder {
	return &Encoder{
		H:    -1,
		W:    -1,
		maxH: maxH,
		maxW: maxW,
		padH: 10,
		padW: 10,

		delay: 200,

		Drawer: font.Drawer{
			Src: image.Black,
		},
		out:    &gif.GIF{LoopCount: 0},
		Writer: w,
	}
}

// Encode a frame
func (enc *Encoder) Encode(f Frame) error {
	text := f.Lines()
	dy := int(math.Ceil(fontsize * lineheight * dpi / 72))

	if !enc.initialized {
		// lazy init. All frames share the size of the first.
		enc.face = truetype.NewFace(regular, &truetype.Options{
			Size:    fontsize,
			DPI:     dpi,
			Hinting: font.HintingFull,
		})
		enc.Drawer.Face = enc.face

		maxW := font.MeasureString(enc.Face, dummyLongString).Ceil()
		for _, s := range text {
			maxW = maxInt(maxW, font.MeasureString(enc.Face, s).Ceil())
		}
		w := maxW + 2*enc.padW
		h := (len(text)+1)*dy + 2*enc.padH

		w = minInt(w, enc.maxW)
		h = minInt(h, enc.maxH)

		if w == enc.maxW {
			enc.padW = 0
		}
		if h == enc.maxH {
			enc.padH = 0
		}

		enc.H = h
		enc.W = w
		enc.initialized = true
	}

	im := image.NewPaletted(image.Rect(0, 0, enc.W, enc.H), globPalette)
	draw.Draw(im, im.Bounds(), image.White, image.Point{}, draw.Src)
	enc.Dst = im

	y := enc.padH + dy
	for _, s := range text {
		enc.Dot = fixed.P(enc.padW, y)
		enc.DrawString(s)
		y += dy
	}
	enc.out.Image = append(enc.out.Image, im)
	enc.out.Delay = append(enc.out.Delay, enc.delay)
	return nil
}

// Frames returns the number of frames encoded so far.
func (enc *Encoder) Frames() int { return len(enc.out.Image) }

// Flush writes the gif into the writer
func (enc *Encoder) Flush() error {
	if len(enc.out.Image) == 0 {
		return errors.New("no frames to write")
	}
	return gif.EncodeAll(enc.Writer, enc.out)
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
