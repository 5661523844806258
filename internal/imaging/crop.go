package imaging

import (
	"image"

	"github.com/disintegration/imaging"
)

// ROI copies the part of box that lies inside img.
//
// The returned image has its origin at (0,0). offset is the position of the
// copy's top-left pixel relative to box.Min, i.e. in mask coordinates: it is
// non-zero when the box hangs over the top or left border. A box that misses
// the image entirely, or that has no area, yields an empty image.
func ROI(img image.Image, box image.Rectangle) (roi *image.NRGBA, offset image.Point) {
	region := box.Intersect(img.Bounds())
	if region.Empty() {
		return &image.NRGBA{}, image.Point{}
	}
	return imaging.Crop(img, region), region.Min.Sub(box.Min)
}

// MaskedCrop returns a new image shaped like roi in which pixels covered by m
// keep their ROI value and all others are zero. offset maps roi pixel (0,0)
// to mask cell offset, as returned by ROI.
func MaskedCrop(roi *image.NRGBA, offset image.Point, m Mask) *image.NRGBA {
	b := roi.Bounds()
	out := image.NewNRGBA(b)
	if b.Empty() {
		return out
	}

	mw, mh := m.Size()
	for y := 0; y < b.Dy(); y++ {
		my := y + offset.Y
		if my < 0 || my >= mh {
			continue
		}
		for x := 0; x < b.Dx(); x++ {
			mx := x + offset.X
			if mx < 0 || mx >= mw || !m.At(mx, my) {
				continue
			}
			i := roi.PixOffset(b.Min.X+x, b.Min.Y+y)
			copy(out.Pix[i:i+4], roi.Pix[i:i+4])
		}
	}
	return out
}
