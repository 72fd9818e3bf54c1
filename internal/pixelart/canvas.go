package pixelart

import (
	"image"
	"image/color"
)

// PixelBuffer is a small square canvas of palette indices.
type PixelBuffer struct {
	img *image.Paletted
}

func newBuffer(size int, palette color.Palette) *PixelBuffer {
	return &PixelBuffer{img: image.NewPaletted(image.Rect(0, 0, size, size), palette)}
}

// Size returns the edge length in pixels.
func (b *PixelBuffer) Size() int { return b.img.Rect.Dx() }

// Image exposes the underlying paletted image. Callers must not modify it.
func (b *PixelBuffer) Image() *image.Paletted { return b.img }

// Palette returns a copy of the buffer palette.
func (b *PixelBuffer) Palette() color.Palette {
	return append(color.Palette(nil), b.img.Palette...)
}

// Pix returns a copy of the raw palette indices, row-major.
func (b *PixelBuffer) Pix() []uint8 {
	return append([]uint8(nil), b.img.Pix...)
}

// IndexAt returns the palette index at (x, y).
func (b *PixelBuffer) IndexAt(x, y int) uint8 {
	return b.img.ColorIndexAt(x, y)
}

func (b *PixelBuffer) fill(idx uint8) {
	for i := range b.img.Pix {
		b.img.Pix[i] = idx
	}
}

func (b *PixelBuffer) fillRows(y0, y1 int, idx uint8) {
	bounds := b.img.Rect
	for y := max(y0, bounds.Min.Y); y < min(y1, bounds.Max.Y); y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			b.img.SetColorIndex(x, y, idx)
		}
	}
}

// shape is a pixel mask. contains is evaluated on pixel coordinates and may
// be called outside the canvas.
type shape interface {
	contains(x, y int) bool
	bounds() image.Rectangle
}

// draw paints s with fill and rings it with an outline of the given width.
// A pixel is outline when any pixel within Chebyshev distance width falls
// outside the shape, so the ring width is the same for every shape.
func (b *PixelBuffer) draw(s shape, fill, outline uint8, width int) {
	r := s.bounds().Intersect(b.img.Rect)
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			if !s.contains(x, y) {
				continue
			}
			idx := fill
			if width > 0 && nearEdge(s, x, y, width) {
				idx = outline
			}
			b.img.SetColorIndex(x, y, idx)
		}
	}
}

func nearEdge(s shape, x, y, width int) bool {
	for dy := -width; dy <= width; dy++ {
		for dx := -width; dx <= width; dx++ {
			if !s.contains(x+dx, y+dy) {
				return true
			}
		}
	}
	return false
}

type rect struct{ r image.Rectangle }

func box(x0, y0, x1, y1 int) rect { return rect{image.Rect(x0, y0, x1, y1)} }

func (s rect) contains(x, y int) bool  { return image.Pt(x, y).In(s.r) }
func (s rect) bounds() image.Rectangle { return s.r }

// ellipse is inscribed in a half-open bounding box.
type ellipse struct{ r image.Rectangle }

func oval(x0, y0, x1, y1 int) ellipse { return ellipse{image.Rect(x0, y0, x1, y1)} }

func (s ellipse) contains(x, y int) bool {
	rx := float64(s.r.Dx()) / 2
	ry := float64(s.r.Dy()) / 2
	if rx <= 0 || ry <= 0 {
		return false
	}
	cx := float64(s.r.Min.X) + rx
	cy := float64(s.r.Min.Y) + ry
	dx := (float64(x) + 0.5 - cx) / rx
	dy := (float64(y) + 0.5 - cy) / ry
	return dx*dx+dy*dy <= 1
}

func (s ellipse) bounds() image.Rectangle { return s.r }

// polygon is tested at pixel centers with the even-odd rule.
type polygon struct{ pts []image.Point }

func poly(pts ...image.Point) polygon { return polygon{pts: pts} }

func (s polygon) contains(x, y int) bool {
	px, py := float64(x)+0.5, float64(y)+0.5
	inside := false
	n := len(s.pts)
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		xi, yi := float64(s.pts[i].X), float64(s.pts[i].Y)
		xj, yj := float64(s.pts[j].X), float64(s.pts[j].Y)
		if (yi > py) != (yj > py) && px < (xj-xi)*(py-yi)/(yj-yi)+xi {
			inside = !inside
		}
	}
	return inside
}

func (s polygon) bounds() image.Rectangle {
	if len(s.pts) == 0 {
		return image.Rectangle{}
	}
	r := image.Rectangle{Min: s.pts[0], Max: s.pts[0]}
	for _, p := range s.pts[1:] {
		r.Min.X = min(r.Min.X, p.X)
		r.Min.Y = min(r.Min.Y, p.Y)
		r.Max.X = max(r.Max.X, p.X)
		r.Max.Y = max(r.Max.Y, p.Y)
	}
	r.Max = r.Max.Add(image.Pt(1, 1))
	return r
}
