package detection

import (
	"github.com/pkg/errors"
)

var (
	// ErrInvalidGeometry marks a box or mask with no usable area.
	ErrInvalidGeometry = errors.New("invalid geometry")

	// ErrMaskDimension marks a mask grid whose data does not match its
	// declared size. It wraps ErrInvalidGeometry.
	ErrMaskDimension = errors.Wrap(ErrInvalidGeometry, "mask dimension mismatch")

	// ErrMissingMask is returned when a detection has no grid for its class.
	ErrMissingMask = errors.New("missing mask for class")
)

// Grid is a soft segmentation mask at model resolution, stored row-major.
// Values are expected in [0,1].
type Grid struct {
	Width  int       `json:"width"`
	Height int       `json:"height"`
	Data   []float32 `json:"data"`
}

// At returns the value at column x, row y.
func (g Grid) At(x, y int) float32 {
	return g.Data[y*g.Width+x]
}

func (g Grid) validate() error {
	if g.Width <= 0 || g.Height <= 0 {
		return errors.WithMessagef(ErrMaskDimension, "grid is %dx%d", g.Width, g.Height)
	}
	if len(g.Data)%g.Width != 0 || len(g.Data)/g.Width != g.Height {
		return errors.WithMessagef(ErrMaskDimension, "grid is %dx%d but holds %d values",
			g.Width, g.Height, len(g.Data))
	}
	return nil
}

// Detection is one candidate object instance reported by the detector.
type Detection struct {
	// ClassID indexes both the label table and Masks.
	ClassID int `json:"class_id"`

	// Confidence is the detector score in [0,1].
	Confidence float64 `json:"confidence"`

	// Box is (x0, y0, x1, y1) normalized to the image size.
	Box [4]float64 `json:"box"`

	// Masks holds one soft grid per class.
	Masks []Grid `json:"masks"`
}

// MaskFor returns the grid belonging to the detection's own class.
func (d Detection) MaskFor() (Grid, error) {
	if d.ClassID < 0 || d.ClassID >= len(d.Masks) {
		return Grid{}, errors.WithMessagef(ErrMissingMask, "class %d, %d grids",
			d.ClassID, len(d.Masks))
	}
	return d.Masks[d.ClassID], nil
}
