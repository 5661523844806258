// Package imaging provides the pixel-level operations used to render
// segmentation results: loading and copying images, per-pixel alpha blending
// under a mask, region snapshots, masked crops, box outlines and text labels.
//
// All operations work on standard Go image types. Mutating operations take an
// *image.NRGBA so they can write straight into Pix; read-only operations
// accept any image.Image.
//
// # Coordinate System
//
// All pixel coordinates in this package are 0-based:
//   - X: horizontal position (0 = leftmost pixel)
//   - Y: vertical position (0 = topmost pixel)
//   - For regions, Min is inclusive and Max is exclusive, except DrawRect
//     which outlines both corners inclusively
//
// A Mask is addressed in its own local coordinates; callers pass the canvas
// position of the mask's (0,0) cell. Cells that fall outside the destination
// are skipped, never an error.
//
// # Thread Safety
//
// The ImageCache type is safe for concurrent use. Functions that write into an
// image must not run concurrently on the same image; read-only functions can.
//
// # Color Representation
//
// Colors are configured as hex strings ("#RRGGBB" or "#RGB") and handled as
// RGBColor with 8-bit components. SampleColor additionally reports RGBA and
// HSL.
//
// # Error Handling
//
// Functions return errors for invalid inputs such as:
//   - Coordinates outside image bounds (SampleColor)
//   - Unparseable color strings
//   - Unsupported output extensions and file I/O errors
package imaging
