package detection

import "iter"

// Accepted lazily yields the detections whose confidence is strictly greater
// than threshold. The key is the position in the filtered sequence, which is
// also the index used to name per-instance artifacts. Input order is kept.
//
// NaN confidences never pass.
func Accepted(dets []Detection, threshold float64) iter.Seq2[int, Detection] {
	return func(yield func(int, Detection) bool) {
		n := 0
		for _, d := range dets {
			if !(d.Confidence > threshold) {
				continue
			}
			if !yield(n, d) {
				return
			}
			n++
		}
	}
}

// Count returns how many detections pass threshold.
func Count(dets []Detection, threshold float64) int {
	n := 0
	for range Accepted(dets, threshold) {
		n++
	}
	return n
}
