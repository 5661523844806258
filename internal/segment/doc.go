// Package segment renders accepted detections onto an image.
//
// A Pipeline runs the whole chain for one image:
//
//  1. filter detections by confidence (detection.Accepted)
//  2. resolve each box to pixels and rasterize its mask, in parallel
//  3. in filtered order: snapshot the box region, blend the mask, outline
//     the box, draw the label
//  4. build and write each masked crop on a worker pool
//  5. write the composite once
//
// Step 3 is the only one that touches the canvas and is strictly sequential,
// so overlapping instances resolve exactly as a single-threaded run would:
// later instances paint over earlier ones, and a crop shows the canvas as it
// was just before its own blend.
//
// Problems with one instance (bad geometry, missing mask or label, failed
// write) never stop the run. They are collected as *InstanceError values in
// the Report and counted in metrics.
package segment
