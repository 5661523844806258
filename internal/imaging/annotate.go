package imaging

import (
	"image"
	"image/color"
	"image/draw"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// DrawRect outlines r on dst. Both corners are inclusive, so a box from
// (10,10) to (20,20) touches row and column 20. Lines grow inward from the
// corners by thickness pixels. A zero-area rectangle still draws its single
// point or line; pixels outside dst are skipped.
func DrawRect(dst draw.Image, r image.Rectangle, c color.Color, thickness int) {
	if thickness < 1 {
		thickness = 1
	}
	x0, y0, x1, y1 := r.Min.X, r.Min.Y, r.Max.X, r.Max.Y
	if x1 < x0 {
		x0, x1 = x1, x0
	}
	if y1 < y0 {
		y0, y1 = y1, y0
	}

	// Only walk the part of each edge that can land on dst.
	b := dst.Bounds()
	xs, xe := max(x0, b.Min.X), min(x1, b.Max.X-1)
	ys, ye := max(y0, b.Min.Y), min(y1, b.Max.Y-1)

	for k := 0; k < thickness; k++ {
		for x := xs; x <= xe; x++ {
			setClipped(dst, x, y0+k, c)
			setClipped(dst, x, y1-k, c)
		}
		for y := ys; y <= ye; y++ {
			setClipped(dst, x0+k, y, c)
			setClipped(dst, x1-k, y, c)
		}
	}
}

// LabelFace is the font used for labels.
var LabelFace font.Face = basicfont.Face7x13

// DrawLabel draws text with its baseline starting at (x, y). Glyphs are
// clipped to dst.
func DrawLabel(dst draw.Image, x, y int, text string, c color.Color) {
	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(c),
		Face: LabelFace,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(text)
}

// LabelWidth returns the advance width of text in pixels.
func LabelWidth(text string) int {
	return font.MeasureString(LabelFace, text).Ceil()
}

func setClipped(dst draw.Image, x, y int, c color.Color) {
	if (image.Point{X: x, Y: y}).In(dst.Bounds()) {
		dst.Set(x, y, c)
	}
}
