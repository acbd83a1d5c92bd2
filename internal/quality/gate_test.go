package quality

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
)

func uniform(w, h int, c color.NRGBA) image.Image {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
	return img
}

func TestBlackIsRejected(t *testing.T) {
	assert.False(t, IsAcceptable(uniform(32, 32, color.NRGBA{A: 255})))
}

func TestWhiteIsAccepted(t *testing.T) {
	assert.True(t, IsAcceptable(uniform(32, 32, color.NRGBA{R: 255, G: 255, B: 255, A: 255})))
}

func TestThresholdBoundary(t *testing.T) {
	// sqrt(60²+0+0) == 60 exactly.
	at := uniform(16, 16, color.NRGBA{R: 60, A: 255})
	mean, ok := MeanBrightness(at)
	assert.True(t, ok)
	assert.Equal(t, 60.0, mean)
	assert.True(t, IsAcceptable(at))

	below := uniform(16, 16, color.NRGBA{G: 59, A: 255})
	assert.False(t, IsAcceptable(below))
}

func TestMixedImageMean(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 2, 1))
	// magnitudes 5 and 115
	img.SetNRGBA(0, 0, color.NRGBA{R: 3, G: 4, A: 255})
	img.SetNRGBA(1, 0, color.NRGBA{B: 115, A: 255})
	mean, ok := MeanBrightness(img)
	assert.True(t, ok)
	assert.InDelta(t, 60.0, mean, 1e-9)
	assert.True(t, IsAcceptable(img))
}

func TestEmptyImage(t *testing.T) {
	assert.False(t, IsAcceptable(image.NewNRGBA(image.Rect(0, 0, 0, 0))))
	assert.False(t, IsAcceptable(nil))
}

func TestStride(t *testing.T) {
	assert.Equal(t, 1, Stride(512, 300))
	assert.Equal(t, 2, Stride(513, 10))
	assert.Equal(t, 2, Stride(1024, 1024))
	assert.Equal(t, 8, Stride(100, 4000))
}

func TestLargeImageSamplingIsDeterministic(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 1030, 700))
	for y := 0; y < 700; y++ {
		for x := 0; x < 1030; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: uint8((x * 7) % 256), G: uint8((y * 3) % 256), B: uint8(x ^ y), A: 255})
		}
	}
	first, _ := MeanBrightness(img)
	for i := 0; i < 3; i++ {
		again, _ := MeanBrightness(img)
		assert.Equal(t, first, again)
	}
}

func TestNonZeroOrigin(t *testing.T) {
	img := image.NewNRGBA(image.Rect(10, 10, 20, 20))
	for y := 10; y < 20; y++ {
		for x := 10; x < 20; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: 255, G: 255, B: 255, A: 255})
		}
	}
	assert.True(t, IsAcceptable(img))
}
