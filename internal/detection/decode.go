package detection

import (
	"encoding/json"
	"io"
	"os"

	"github.com/pkg/errors"
)

// File is the on-disk form of one detector run.
//
// Width and Height are the image size the boxes were normalized against;
// zero means "use the base image size".
type File struct {
	Width      int         `json:"width,omitempty"`
	Height     int         `json:"height,omitempty"`
	Detections []Detection `json:"detections"`
}

// Decode reads a detections document from r.
func Decode(r io.Reader) (*File, error) {
	var f File
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&f); err != nil {
		return nil, errors.Wrap(err, "decode detections")
	}
	if f.Width < 0 || f.Height < 0 {
		return nil, errors.Errorf("negative image size %dx%d", f.Width, f.Height)
	}
	return &f, nil
}

// ReadFile opens and decodes a detections document.
func ReadFile(path string) (*File, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open detections")
	}
	defer fh.Close()

	f, err := Decode(fh)
	if err != nil {
		return nil, errors.Wrapf(err, "read %s", path)
	}
	return f, nil
}

// FromTensors converts the two raw Mask R-CNN output tensors into
// Detections.
//
// boxes has shape [1, 1, N, 7], each row being
// [batchID, classID, confidence, x0, y0, x1, y1]. masks has shape
// [M, C, h, w] with M >= N; row i of boxes owns masks[i]. Grids share the
// backing array of masks, nothing is copied.
func FromTensors(boxes []float32, boxShape []int, masks []float32, maskShape []int) ([]Detection, error) {
	if len(boxShape) != 4 || boxShape[3] != 7 {
		return nil, errors.Errorf("box tensor shape %v, want [1 1 N 7]", boxShape)
	}
	if len(maskShape) != 4 {
		return nil, errors.Errorf("mask tensor shape %v, want [N C h w]", maskShape)
	}

	for _, d := range append(append([]int(nil), boxShape...), maskShape...) {
		if d < 0 {
			return nil, errors.Errorf("negative dimension in shapes %v, %v", boxShape, maskShape)
		}
	}

	n := boxShape[0] * boxShape[1] * boxShape[2]
	if len(boxes) < n*7 {
		return nil, errors.Errorf("box tensor holds %d values, shape %v needs %d", len(boxes), boxShape, n*7)
	}
	numMasks, classes, mh, mw := maskShape[0], maskShape[1], maskShape[2], maskShape[3]
	if numMasks < n {
		return nil, errors.Errorf("%d mask sets for %d detections", numMasks, n)
	}
	gridSize := mh * mw
	if len(masks) < numMasks*classes*gridSize {
		return nil, errors.Errorf("mask tensor holds %d values, shape %v needs %d",
			len(masks), maskShape, numMasks*classes*gridSize)
	}

	dets := make([]Detection, 0, n)
	for i := 0; i < n; i++ {
		row := boxes[i*7 : i*7+7]
		grids := make([]Grid, classes)
		for c := 0; c < classes; c++ {
			off := (i*classes + c) * gridSize
			grids[c] = Grid{Width: mw, Height: mh, Data: masks[off : off+gridSize : off+gridSize]}
		}
		dets = append(dets, Detection{
			ClassID:    int(row[1]),
			Confidence: float64(row[2]),
			Box:        [4]float64{float64(row[3]), float64(row[4]), float64(row[5]), float64(row[6])},
			Masks:      grids,
		})
	}
	return dets, nil
}
