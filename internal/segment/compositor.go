package segment

import (
	"fmt"
	"image"

	"github.com/ironsheep/mask-overlay/internal/config"
	"github.com/ironsheep/mask-overlay/internal/detection"
	"github.com/ironsheep/mask-overlay/internal/imaging"
)

// Compositor paints one instance onto the canvas: mask blend, box outline,
// label. It holds no state between calls.
type Compositor struct {
	Overlay     imaging.RGBColor
	Box         imaging.RGBColor
	Text        imaging.RGBColor
	Alpha       float64
	Thickness   int
	LabelOffset int
}

// NewCompositor builds a Compositor from cfg.
func NewCompositor(cfg config.Config) (Compositor, error) {
	p, err := cfg.Palette()
	if err != nil {
		return Compositor{}, err
	}
	return Compositor{
		Overlay:     p.Overlay,
		Box:         p.Box,
		Text:        p.Label,
		Alpha:       cfg.OverlayAlpha,
		Thickness:   cfg.BoxThickness,
		LabelOffset: cfg.LabelOffset,
	}, nil
}

// Apply blends mask into canvas with its top-left cell at origin, then
// outlines box and writes label above it. The outline and label are
// drawn even when the box is degenerate or the mask is empty. It returns the
// number of blended pixels.
func (c Compositor) Apply(canvas *image.NRGBA, box detection.PixelBox, mask detection.BinaryMask, origin image.Point, label string) int {
	n := 0
	if !mask.Empty() {
		n = imaging.Blend(canvas, origin, mask, c.Overlay, c.Alpha)
	}
	imaging.DrawRect(canvas, box.Rect(), c.Box.NRGBA(), c.Thickness)
	imaging.DrawLabel(canvas, box.StartX, box.StartY-c.LabelOffset, label, c.Text.NRGBA())
	return n
}

// LabelText formats the caption drawn above a box.
func LabelText(name string, confidence float64) string {
	return fmt.Sprintf("%s: %.4f", name, confidence)
}
