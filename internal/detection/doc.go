// Package detection turns raw instance-segmentation output into pixel-space
// geometry.
//
// A Detection is what an upstream detector reports for one object: a class
// id, a confidence, a bounding box normalized to [0,1] and one soft mask grid
// per class at the model's mask resolution. This package provides the pure,
// allocation-light steps that sit between the detector and any drawing code:
//
//   - Accepted: lazy confidence filter that keeps input order
//   - ResolveBox: normalized box to integer PixelBox (truncating, unclamped)
//   - Rasterize: nearest-neighbour resample of a soft grid plus threshold
//   - Decode / ReadFile / FromTensors: input decoding
//
// # Coordinate System
//
// PixelBox follows the image.Rectangle convention: (StartX, StartY) is
// inclusive, (EndX, EndY) is exclusive. Boxes are not clamped to the image;
// a box may extend past the border or have zero or negative extent. Callers
// that draw must clip.
//
// # Thread Safety
//
// Every function here is stateless. Detections and grids are never mutated,
// so they can be shared between goroutines.
package detection
