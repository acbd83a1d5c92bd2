// Package quality rejects frames that are too dark to classify.
package quality

import (
	"image"
	"image/color"
	"math"
)

const (
	// DarkThreshold is the minimum mean sqrt(r²+g²+b²) over 8-bit channels.
	// A mean exactly at the threshold is accepted.
	DarkThreshold = 60.0

	// MaxSamplesPerSide bounds the sampling grid on each axis. Larger images
	// are sampled on a fixed stride from the top-left corner.
	MaxSamplesPerSide = 512
)

// IsAcceptable reports whether img is bright enough to classify.
func IsAcceptable(img image.Image) bool {
	mean, ok := MeanBrightness(img)
	return ok && mean >= DarkThreshold
}

// MeanBrightness returns the mean per-pixel magnitude over the sampling grid.
// ok is false for nil or empty images.
func MeanBrightness(img image.Image) (mean float64, ok bool) {
	if img == nil {
		return 0, false
	}
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= 0 || h <= 0 {
		return 0, false
	}

	step := Stride(w, h)
	var sum float64
	var n int
	for y := b.Min.Y; y < b.Max.Y; y += step {
		for x := b.Min.X; x < b.Max.X; x += step {
			c := color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
			r, g, bl := float64(c.R), float64(c.G), float64(c.B)
			sum += math.Sqrt(r*r + g*g + bl*bl)
			n++
		}
	}
	return sum / float64(n), true
}

// Stride is the sampling step used on both axes for a w×h image.
func Stride(w, h int) int {
	longest := w
	if h > longest {
		longest = h
	}
	if longest <= MaxSamplesPerSide {
		return 1
	}
	return (longest + MaxSamplesPerSide - 1) / MaxSamplesPerSide
}
