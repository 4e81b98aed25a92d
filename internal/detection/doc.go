// Package detection finds quadrilateral tag borders in grayscale frames.
//
// # Algorithm Overview
//
// The detector follows a fixed pipeline:
//
//  1. Binarization: adaptive local-mean threshold (see imaging.Binarize)
//  2. Region extraction: 8-connected flood fill over foreground pixels;
//     regions touching the frame border are dropped because their outline is
//     incomplete
//  3. Outline: convex hull of the region's boundary pixel corners
//  4. Simplification: Douglas-Peucker at 2% of the hull perimeter; only
//     outlines that reduce to exactly four convex vertices survive
//  5. Filtering: minimum side, minimum perimeter, and hull/quad area ratio
//  6. Refinement: each side is re-located on the gray frame at the gradient
//     peak along its normal, lines are fitted through those points, and
//     corners become the intersections of adjacent lines
//
// # Coordinate System
//
// All coordinates use the standard image convention:
//   - Origin (0, 0) at the centre of the top-left pixel
//   - X increases rightward
//   - Y increases downward
//
// Quads are returned with positive signed area, i.e. clockwise on screen, and
// start from the corner nearest the origin. Which corner is the tag's code
// origin is only known after decoding.
//
// # Limitations
//
// A tag whose border touches the frame edge is never reported, and neither is
// one whose border is broken by occlusion, since the outline must come from a
// single connected region.
package detection
