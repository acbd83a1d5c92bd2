// Package preprocess decodes images and turns them into model input tensors.
package preprocess

import (
	"context"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"

	"github.com/nfnt/resize"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// Channels is the number of values per pixel in the tensor (R, G, B).
const Channels = 3

// Filter is the resampling filter used to reach the model's input side.
// Changing it changes model input and therefore model output.
const Filter = resize.Bilinear

// Error is returned when an image cannot be decoded or converted.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("preprocess %s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Decode reads any registered image format (JPEG, PNG, GIF, BMP, TIFF, WebP).
func Decode(r io.Reader) (image.Image, string, error) {
	img, format, err := image.Decode(r)
	if err != nil {
		return nil, "", &Error{Op: "decode", Err: err}
	}
	if b := img.Bounds(); b.Dx() <= 0 || b.Dy() <= 0 {
		return nil, "", &Error{Op: "decode", Err: fmt.Errorf("zero-sized %s image", format)}
	}
	return img, format, nil
}

func DecodeFile(path string) (image.Image, string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, "", &Error{Op: "open", Err: err}
	}
	defer f.Close()

	return Decode(f)
}

// ToTensor resizes img to side×side and returns its pixels in row-major
// order as interleaved R, G, B float32 values scaled to [0,1].
func ToTensor(ctx context.Context, img image.Image, side int) ([]float32, error) {
	if side <= 0 {
		return nil, &Error{Op: "tensor", Err: fmt.Errorf("invalid side %d", side)}
	}
	if img == nil {
		return nil, &Error{Op: "tensor", Err: fmt.Errorf("nil image")}
	}
	if b := img.Bounds(); b.Dx() <= 0 || b.Dy() <= 0 {
		return nil, &Error{Op: "tensor", Err: fmt.Errorf("zero-sized image %dx%d", b.Dx(), b.Dy())}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	resized := resize.Resize(uint(side), uint(side), img, Filter)
	bounds := resized.Bounds()

	data := make([]float32, 0, side*side*Channels)
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			c := color.NRGBAModel.Convert(resized.At(x, y)).(color.NRGBA)
			data = append(data,
				float32(c.R)/255.0,
				float32(c.G)/255.0,
				float32(c.B)/255.0,
			)
		}
	}

	if len(data) != side*side*Channels {
		return nil, &Error{Op: "tensor", Err: fmt.Errorf("resized to %dx%d, want %dx%d", bounds.Dx(), bounds.Dy(), side, side)}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return data, nil
}
