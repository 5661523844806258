package detection

import (
	"fmt"
	"image"
)

// PixelBox is a bounding box in image pixels. Start is inclusive, End is
// exclusive. Width or Height may be zero or negative.
type PixelBox struct {
	StartX int `json:"start_x"`
	StartY int `json:"start_y"`
	EndX   int `json:"end_x"`
	EndY   int `json:"end_y"`
}

// Width returns EndX - StartX.
func (b PixelBox) Width() int { return b.EndX - b.StartX }

// Height returns EndY - StartY.
func (b PixelBox) Height() int { return b.EndY - b.StartY }

// Empty reports whether the box covers no pixels.
func (b PixelBox) Empty() bool { return b.Width() <= 0 || b.Height() <= 0 }

// Min returns the top-left corner.
func (b PixelBox) Min() image.Point { return image.Pt(b.StartX, b.StartY) }

// Rect returns the box as an image.Rectangle without canonicalizing it, so a
// reversed box stays empty instead of being flipped.
func (b PixelBox) Rect() image.Rectangle {
	return image.Rectangle{Min: image.Pt(b.StartX, b.StartY), Max: image.Pt(b.EndX, b.EndY)}
}

// Clamp limits every coordinate to [0,w] x [0,h].
func (b PixelBox) Clamp(w, h int) PixelBox {
	return PixelBox{
		StartX: clamp(b.StartX, 0, w),
		StartY: clamp(b.StartY, 0, h),
		EndX:   clamp(b.EndX, 0, w),
		EndY:   clamp(b.EndY, 0, h),
	}
}

func (b PixelBox) String() string {
	return fmt.Sprintf("(%d,%d)-(%d,%d)", b.StartX, b.StartY, b.EndX, b.EndY)
}

// ResolveBox scales a normalized (x0, y0, x1, y1) box by (w, h, w, h) and
// truncates toward zero. The result is not clamped.
func ResolveBox(box [4]float64, w, h int) PixelBox {
	return PixelBox{
		StartX: int(box[0] * float64(w)),
		StartY: int(box[1] * float64(h)),
		EndX:   int(box[2] * float64(w)),
		EndY:   int(box[3] * float64(h)),
	}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
