package model

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"

	"github.com/nfnt/resize"
)

const (
	ImageSize = 224
	Channels  = 3
)

// InputShape is the batch-of-one NHWC shape the classifier expects.
var InputShape = []int64{1, ImageSize, ImageSize, Channels}

// Tensor is a dense float32 array in row-major order.
type Tensor struct {
	Shape []int64
	Data  []float32
}

// Size is the element count implied by shape.
func Size(shape []int64) int {
	if len(shape) == 0 {
		return 0
	}
	n := 1
	for _, d := range shape {
		n *= int(d)
	}
	return n
}

// NewInputTensor wraps already-normalized values, checking they fill InputShape.
func NewInputTensor(data []float32) (Tensor, error) {
	want := Size(InputShape)
	if len(data) != want {
		return Tensor{}, fmt.Errorf("expected %d values, got %d", want, len(data))
	}
	return Tensor{Shape: append([]int64(nil), InputShape...), Data: data}, nil
}

// Preprocess fits img to a 224x224 square (center crop, Lanczos3), then
// maps each RGB channel from [0,255] to [-1,1] as raw/127.5 - 1.
func Preprocess(img image.Image) (Tensor, error) {
	b := img.Bounds()
	if b.Dx() == 0 || b.Dy() == 0 {
		return Tensor{}, fmt.Errorf("empty image %dx%d", b.Dx(), b.Dy())
	}

	fitted := Fit(img, ImageSize)
	fb := fitted.Bounds()

	data := make([]float32, Size(InputShape))
	for y := 0; y < ImageSize; y++ {
		for x := 0; x < ImageSize; x++ {
			c := color.NRGBAModel.Convert(fitted.At(fb.Min.X+x, fb.Min.Y+y)).(color.NRGBA)
			i := (y*ImageSize + x) * Channels
			data[i] = normalize(c.R)
			data[i+1] = normalize(c.G)
			data[i+2] = normalize(c.B)
		}
	}
	return Tensor{Shape: append([]int64(nil), InputShape...), Data: data}, nil
}

func normalize(v uint8) float32 {
	return float32(v)/127.5 - 1
}

// Fit crops the largest centered square out of img and resamples it to
// size x size. Content outside the square is discarded.
func Fit(img image.Image, size int) image.Image {
	b := img.Bounds()
	side := b.Dx()
	if b.Dy() < side {
		side = b.Dy()
	}
	x0 := b.Min.X + (b.Dx()-side)/2
	y0 := b.Min.Y + (b.Dy()-side)/2
	square := crop(img, image.Rect(x0, y0, x0+side, y0+side))

	return resize.Resize(uint(size), uint(size), square, resize.Lanczos3)
}

type subImager interface {
	SubImage(r image.Rectangle) image.Image
}

func crop(img image.Image, r image.Rectangle) image.Image {
	if r == img.Bounds() {
		return img
	}
	if s, ok := img.(subImager); ok {
		return s.SubImage(r)
	}
	dst := image.NewNRGBA(image.Rect(0, 0, r.Dx(), r.Dy()))
	draw.Draw(dst, dst.Bounds(), img, r.Min, draw.Src)
	return dst
}
