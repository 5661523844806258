package segment

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLabelText(t *testing.T) {
	assert.Equal(t, "person: 0.9000", LabelText("person", 0.9))
	assert.Equal(t, "dog: 0.1235", LabelText("dog", 0.123456))
}

func TestKind(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{ErrInvalidGeometry, "invalid_geometry"},
		{ErrMaskDimension, "mask_dimension"},
		{ErrMissingMask, "missing_mask"},
		{ErrMissingLabel, "missing_label"},
		{fmt.Errorf("x: %w", ErrArtifactWrite), "artifact_write"},
		{&InstanceError{Index: 2, Err: ErrMissingMask}, "missing_mask"},
		{errors.New("boom"), "other"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Kind(tt.err), "%v", tt.err)
	}
}

func TestInstanceError(t *testing.T) {
	err := &InstanceError{Index: 3, ClassID: 7, Err: ErrMissingLabel}
	assert.Equal(t, "instance 3 (class 7): missing label", err.Error())
	assert.ErrorIs(t, err, ErrMissingLabel)
}
