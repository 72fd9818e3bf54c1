package pixelart

import (
	"errors"
	"fmt"
	"image"
)

// ErrInvalidSize is returned for a non-positive target size.
var ErrInvalidSize = errors.New("pixelart: invalid target size")

// Upscale resizes b to size×size with nearest-neighbor sampling. The result
// shares b's palette, so no color outside it can appear. When size is a
// multiple k of b.Size() every source pixel becomes an exact k×k block.
func Upscale(b *PixelBuffer, size int) (*PixelBuffer, error) {
	if size <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidSize, size)
	}
	src := b.img
	sw, sh := src.Rect.Dx(), src.Rect.Dy()
	dst := image.NewPaletted(image.Rect(0, 0, size, size), src.Palette)
	for y := 0; y < size; y++ {
		sy := y * sh / size
		srow := src.Pix[sy*src.Stride : sy*src.Stride+sw]
		drow := dst.Pix[y*dst.Stride : y*dst.Stride+size]
		for x := range drow {
			drow[x] = srow[x*sw/size]
		}
	}
	return &PixelBuffer{img: dst}, nil
}
