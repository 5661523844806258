package detection

import "image"

// BinaryMask is a thresholded mask sized to a PixelBox, stored row-major.
type BinaryMask struct {
	Width  int
	Height int
	Bits   []bool
}

// Size returns the mask dimensions.
func (m BinaryMask) Size() (int, int) { return m.Width, m.Height }

// At reports whether the pixel at column x, row y is covered.
func (m BinaryMask) At(x, y int) bool { return m.Bits[y*m.Width+x] }

// Empty reports whether the mask has no cells.
func (m BinaryMask) Empty() bool { return len(m.Bits) == 0 }

// Count returns the number of covered pixels.
func (m BinaryMask) Count() int {
	n := 0
	for _, b := range m.Bits {
		if b {
			n++
		}
	}
	return n
}

// Rasterize resamples g to width x height with nearest-neighbour lookup and
// keeps the cells whose value is strictly greater than cutoff.
//
// A non-positive target yields an empty mask and no error; degenerate boxes
// are valid input. A malformed grid returns ErrMaskDimension.
//
// Source cells are picked as floor(dst * src/dst), clamped to the last row and
// column, which matches the usual nearest-neighbour resize of image libraries.
// The comparison is done in float32, the precision of the grid itself.
func Rasterize(g Grid, width, height int, cutoff float64) (BinaryMask, error) {
	return RasterizeWindow(g, width, height, image.Rect(0, 0, width, height), cutoff)
}

// RasterizeWindow is Rasterize restricted to window, given in the
// coordinates of the full width x height mask. Cells are sampled exactly as
// Rasterize would sample them; only the part of window inside the mask is
// materialized, so the result is window.Dx() x window.Dy() at most and its
// (0,0) cell is window.Min. A window that misses the mask yields an empty
// mask and no error.
func RasterizeWindow(g Grid, width, height int, window image.Rectangle, cutoff float64) (BinaryMask, error) {
	if width <= 0 || height <= 0 {
		return BinaryMask{}, nil
	}
	if err := g.validate(); err != nil {
		return BinaryMask{}, err
	}
	window = window.Intersect(image.Rect(0, 0, width, height))
	if window.Empty() {
		return BinaryMask{}, nil
	}

	xScale := float64(g.Width) / float64(width)
	yScale := float64(g.Height) / float64(height)
	c := float32(cutoff)

	w, h := window.Dx(), window.Dy()
	bits := make([]bool, w*h)
	for y := 0; y < h; y++ {
		sy := min(int(float64(window.Min.Y+y)*yScale), g.Height-1)
		row := g.Data[sy*g.Width : (sy+1)*g.Width]
		for x := 0; x < w; x++ {
			sx := min(int(float64(window.Min.X+x)*xScale), g.Width-1)
			bits[y*w+x] = row[sx] > c
		}
	}

	return BinaryMask{Width: w, Height: h, Bits: bits}, nil
}
