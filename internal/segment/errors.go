package segment

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/ironsheep/mask-overlay/internal/detection"
	"github.com/ironsheep/mask-overlay/internal/labels"
)

var (
	// ErrArtifactWrite marks a crop or composite that could not be written.
	ErrArtifactWrite = errors.New("artifact write failed")

	// ErrNilCanvas is the only error that stops Run before any work is done.
	ErrNilCanvas = errors.New("nil canvas")
)

// Aliases so callers only need to import this package to classify errors.
var (
	ErrInvalidGeometry = detection.ErrInvalidGeometry
	ErrMaskDimension   = detection.ErrMaskDimension
	ErrMissingMask     = detection.ErrMissingMask
	ErrMissingLabel    = labels.ErrMissingLabel
)

// InstanceError ties a non-fatal problem to the instance it happened on.
// Index is the position in the filtered sequence.
type InstanceError struct {
	Index   int
	ClassID int
	Err     error
}

func (e *InstanceError) Error() string {
	return fmt.Sprintf("instance %d (class %d): %v", e.Index, e.ClassID, e.Err)
}

func (e *InstanceError) Unwrap() error { return e.Err }

// Kind is a short, stable name for err, used as a metrics label.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrMaskDimension):
		return "mask_dimension"
	case errors.Is(err, ErrInvalidGeometry):
		return "invalid_geometry"
	case errors.Is(err, ErrMissingMask):
		return "missing_mask"
	case errors.Is(err, ErrMissingLabel):
		return "missing_label"
	case errors.Is(err, ErrArtifactWrite):
		return "artifact_write"
	}
	return "other"
}

func writeError(err error) error {
	if errors.Is(err, ErrArtifactWrite) {
		return err
	}
	return errors.WithMessage(ErrArtifactWrite, err.Error())
}
