// Package imaging provides the pixel-level building blocks of the tag
// detector: the grayscale Frame type, frame loading and caching, adaptive
// binarization, image gradients, tag crops and a debug overlay renderer.
//
// # Coordinate System
//
// All pixel coordinates in this package are 0-based:
//   - X: horizontal position (0 = leftmost pixel)
//   - Y: vertical position (0 = topmost pixel)
//   - Sub-pixel positions put pixel centres on integer coordinates, so the
//     pixel (x, y) covers [x-0.5, x+0.5] × [y-0.5, y+0.5]
//
// # Thread Safety
//
// The FrameCache type is safe for concurrent use. Frames are plain values;
// the detection pipeline only reads them, so one Frame may be shared by
// concurrent readers as long as nobody writes to it.
//
// # Binarization
//
// Binarize compares each pixel with the mean of a square window around it
// rather than with one global cutoff, so tags stay detectable under uneven
// lighting. The window side is a fraction of the frame's smaller dimension.
//
// # Error Handling
//
// Functions return errors for invalid inputs such as:
//   - Frame buffers whose length does not match width × height
//   - File I/O errors during image loading
//   - Encoding errors during image output
package imaging
