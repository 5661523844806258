package imaging

import (
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/lucasb-eyer/go-colorful"
)

// RGBColor represents an RGB color with 8-bit components.
type RGBColor struct {
	R uint8 `json:"r"` // Red component (0-255)
	G uint8 `json:"g"` // Green component (0-255)
	B uint8 `json:"b"` // Blue component (0-255)
}

// NRGBA returns the opaque color.NRGBA for c.
func (c RGBColor) NRGBA() color.NRGBA {
	return color.NRGBA{R: c.R, G: c.G, B: c.B, A: 255}
}

// Hex returns c as "#RRGGBB".
func (c RGBColor) Hex() string {
	return fmt.Sprintf("#%02X%02X%02X", c.R, c.G, c.B)
}

// ParseColor parses "#RRGGBB" or "#RGB" (case-insensitive).
func ParseColor(hex string) (RGBColor, error) {
	c, err := colorful.Hex(hex)
	if err != nil {
		return RGBColor{}, fmt.Errorf("invalid color %q: %w", hex, err)
	}
	r, g, b := c.RGB255()
	return RGBColor{R: r, G: g, B: b}, nil
}

// RGBAColor represents an RGBA color with 8-bit components including alpha.
type RGBAColor struct {
	R uint8 `json:"r"` // Red component (0-255)
	G uint8 `json:"g"` // Green component (0-255)
	B uint8 `json:"b"` // Blue component (0-255)
	A uint8 `json:"a"` // Alpha/opacity component (0-255)
}

// HSLColor represents a color in HSL (Hue, Saturation, Lightness) color space.
type HSLColor struct {
	H int `json:"h"` // Hue: 0-360 degrees (0=red, 120=green, 240=blue)
	S int `json:"s"` // Saturation: 0-100 percent (0=gray, 100=vivid)
	L int `json:"l"` // Lightness: 0-100 percent (0=black, 50=normal, 100=white)
}

// ColorResult contains a color value in multiple representations.
type ColorResult struct {
	Hex  string    `json:"hex"`  // Hex format "#RRGGBB" (no alpha)
	RGB  RGBColor  `json:"rgb"`  // RGB components
	RGBA RGBAColor `json:"rgba"` // RGBA components with alpha
	HSL  HSLColor  `json:"hsl"`  // HSL representation
}

// SampleColor extracts the color value at a specific pixel coordinate.
//
// The native color is converted to non-premultiplied 8-bit components, so a
// blended overlay pixel reads back exactly as it was written to an NRGBA
// canvas.
func SampleColor(img image.Image, x, y int) (*ColorResult, error) {
	bounds := img.Bounds()
	if x < bounds.Min.X || x >= bounds.Max.X || y < bounds.Min.Y || y >= bounds.Max.Y {
		return nil, fmt.Errorf("coordinates (%d,%d) outside image bounds", x, y)
	}

	c := color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
	rgb := RGBColor{R: c.R, G: c.G, B: c.B}

	return &ColorResult{
		Hex:  rgb.Hex(),
		RGB:  rgb,
		RGBA: RGBAColor{R: c.R, G: c.G, B: c.B, A: c.A},
		HSL:  toHSL(rgb),
	}, nil
}

func toHSL(c RGBColor) HSLColor {
	h, s, l := colorful.Color{
		R: float64(c.R) / 255.0,
		G: float64(c.G) / 255.0,
		B: float64(c.B) / 255.0,
	}.Hsl()
	return HSLColor{H: int(h), S: int(s * 100), L: int(l * 100)}
}

// Mask reports per-pixel coverage in mask-local coordinates.
type Mask interface {
	Size() (width, height int)
	At(x, y int) bool
}

// Blend alpha-blends c into every dst pixel covered by m, with the mask's
// (0,0) cell placed at origin:
//
//	out = round(alpha*c + (1-alpha)*p)
//
// per color channel, clamped to [0,255]. Alpha channels are left as they are.
// Covered cells outside dst are skipped. Blend returns the number of pixels
// it changed.
func Blend(dst *image.NRGBA, origin image.Point, m Mask, c RGBColor, alpha float64) int {
	w, h := m.Size()
	b := dst.Bounds()
	n := 0

	for y := 0; y < h; y++ {
		py := origin.Y + y
		if py < b.Min.Y || py >= b.Max.Y {
			continue
		}
		for x := 0; x < w; x++ {
			px := origin.X + x
			if px < b.Min.X || px >= b.Max.X || !m.At(x, y) {
				continue
			}
			i := dst.PixOffset(px, py)
			p := dst.Pix[i : i+3 : i+3]
			p[0] = BlendChannel(c.R, p[0], alpha)
			p[1] = BlendChannel(c.G, p[1], alpha)
			p[2] = BlendChannel(c.B, p[2], alpha)
			n++
		}
	}
	return n
}

// BlendChannel mixes one 8-bit overlay channel into one 8-bit pixel channel.
func BlendChannel(overlay, pixel uint8, alpha float64) uint8 {
	v := math.Round(alpha*float64(overlay) + (1-alpha)*float64(pixel))
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}
