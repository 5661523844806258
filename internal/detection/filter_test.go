package detection

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAccepted(t *testing.T) {
	dets := []Detection{
		{ClassID: 1, Confidence: 0.9},
		{ClassID: 2, Confidence: 0.4},
		{ClassID: 3, Confidence: 0.5},
		{ClassID: 4, Confidence: 0.51},
		{ClassID: 5, Confidence: math.NaN()},
	}

	var idx, classes []int
	for i, d := range Accepted(dets, 0.5) {
		idx = append(idx, i)
		classes = append(classes, d.ClassID)
	}

	assert.Equal(t, []int{0, 1}, idx)
	assert.Equal(t, []int{1, 4}, classes, "threshold is exclusive and order is kept")
}

func TestAccepted_Empty(t *testing.T) {
	for range Accepted(nil, 0.5) {
		t.Fatal("empty input must yield nothing")
	}
	assert.Equal(t, 0, Count(nil, 0.5))
}

func TestAccepted_StopsEarly(t *testing.T) {
	dets := []Detection{{Confidence: 0.9}, {Confidence: 0.8}, {Confidence: 0.7}}

	seen := 0
	for range Accepted(dets, 0.5) {
		seen++
		if seen == 2 {
			break
		}
	}
	assert.Equal(t, 2, seen)
}

func TestCount(t *testing.T) {
	dets := []Detection{{Confidence: 0.9}, {Confidence: 0.1}, {Confidence: 0.6}}
	assert.Equal(t, 2, Count(dets, 0.5))
	assert.Equal(t, 0, Count(dets, 0.95))
	assert.Equal(t, 3, Count(dets, 0))
}
