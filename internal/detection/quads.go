package detection

import (
	"image"
	"math"
	"sort"

	"github.com/ironsheep/fiducial-mcp/internal/geometry"
	"github.com/ironsheep/fiducial-mcp/internal/imaging"
)

// Quad is a candidate tag border: four corners with positive signed area in
// image coordinates (clockwise on screen), starting from the corner closest
// to the frame origin.
type Quad struct {
	// Corners are sub-pixel positions; pixel centres sit on integers.
	Corners [4]geometry.Point2 `json:"corners"`

	// Area is the quad's area in square pixels.
	Area float64 `json:"area"`
}

// Points returns the corners as a slice.
func (q Quad) Points() []geometry.Point2 {
	return q.Corners[:]
}

// Options controls which connected regions are accepted as quads.
type Options struct {
	// Binarize tunes the adaptive threshold applied before the search.
	Binarize imaging.BinarizeOptions

	// MinSide is the smallest accepted tag side in pixels. Quads whose area
	// is below MinSide² or whose perimeter is below 4*MinSide are dropped.
	MinSide float64

	// ApproxEpsilon is the polygon simplification tolerance as a fraction of
	// the region's hull perimeter.
	ApproxEpsilon float64

	// MinHullFill is the smallest accepted ratio of quad area to hull area;
	// it rejects round blobs that happen to simplify to four vertices.
	MinHullFill float64

	// Refine enables sub-pixel corner refinement on the gray frame.
	Refine bool

	// MaxRefineShift caps how far refinement may move a corner, as a fraction
	// of the mean side length. Refined quads moving further are discarded in
	// favour of the unrefined ones.
	MaxRefineShift float64
}

// DefaultOptions returns the detector defaults.
func DefaultOptions() Options {
	return Options{
		Binarize:       imaging.DefaultBinarizeOptions(),
		MinSide:        12,
		ApproxEpsilon:  0.02,
		MinHullFill:    0.85,
		Refine:         true,
		MaxRefineShift: 0.15,
	}
}

// Detect binarizes the frame and returns the candidate quads, largest first.
// An empty result is normal when nothing in the frame looks like a tag.
func Detect(f *imaging.Frame, opts Options) []Quad {
	if f.Empty() {
		return nil
	}
	quads := FindQuads(imaging.Binarize(f, opts.Binarize), opts)
	if opts.Refine && len(quads) > 0 {
		grad := imaging.Gradients(f)
		for i := range quads {
			quads[i] = RefineQuad(grad, quads[i], opts.MaxRefineShift)
		}
	}
	return quads
}

// component is one 8-connected foreground region.
type component struct {
	minX, minY    int
	maxX, maxY    int
	touchesBorder bool
	boundary      []image.Point
}

// FindQuads extracts quadrilateral outlines from a binary image.
//
// Every 8-connected foreground region that does not touch the frame border is
// reduced to the convex hull of its boundary pixels (taken at pixel corners,
// so a region of pixels [x0,x1] spans [x0-0.5, x1+0.5]), simplified with
// Douglas-Peucker and kept when exactly four convex vertices remain.
//
// Regions nested inside each other are all reported; choosing between an
// outer border and an inner code blob is left to the decoder.
func FindQuads(bin *imaging.BinaryImage, opts Options) []Quad {
	if bin == nil || bin.Width == 0 || bin.Height == 0 {
		return nil
	}
	if opts.MinSide <= 0 {
		opts.MinSide = 12
	}
	if opts.ApproxEpsilon <= 0 {
		opts.ApproxEpsilon = 0.02
	}

	var quads []Quad
	for _, c := range findComponents(bin) {
		if c.touchesBorder {
			continue
		}
		if float64(c.maxX-c.minX+1) < opts.MinSide || float64(c.maxY-c.minY+1) < opts.MinSide {
			continue
		}
		if q, ok := quadFromComponent(c, opts); ok {
			quads = append(quads, q)
		}
	}

	sort.SliceStable(quads, func(i, j int) bool {
		return quads[i].Area > quads[j].Area
	})
	return quads
}

func quadFromComponent(c component, opts Options) (Quad, bool) {
	// pixel corners in doubled coordinates keep the hull exact
	corners := make([]image.Point, 0, len(c.boundary)*4)
	for _, p := range c.boundary {
		corners = append(corners,
			image.Point{X: 2*p.X - 1, Y: 2*p.Y - 1},
			image.Point{X: 2*p.X + 1, Y: 2*p.Y - 1},
			image.Point{X: 2*p.X + 1, Y: 2*p.Y + 1},
			image.Point{X: 2*p.X - 1, Y: 2*p.Y + 1},
		)
	}
	hullInt := convexHull(corners)
	if len(hullInt) < 4 {
		return Quad{}, false
	}
	hull := make([]geometry.Point2, len(hullInt))
	for i, p := range hullInt {
		hull[i] = geometry.Point2{X: float64(p.X) / 2, Y: float64(p.Y) / 2}
	}
	hullArea := geometry.SignedArea(hull)

	approx := simplifyClosed(hull, opts.ApproxEpsilon*geometry.Perimeter(hull))
	if len(approx) != 4 {
		return Quad{}, false
	}
	area := geometry.SignedArea(approx)
	if area < opts.MinSide*opts.MinSide || geometry.Perimeter(approx) < 4*opts.MinSide {
		return Quad{}, false
	}
	if !geometry.IsConvex(approx) {
		return Quad{}, false
	}
	if hullArea <= 0 || area/hullArea < opts.MinHullFill {
		return Quad{}, false
	}

	return newQuad(approx), true
}

// newQuad orders four corners clockwise on screen, starting from the one
// nearest the frame origin.
func newQuad(pts []geometry.Point2) Quad {
	if geometry.SignedArea(pts) < 0 {
		pts = []geometry.Point2{pts[0], pts[3], pts[2], pts[1]}
	}
	start := 0
	for i := 1; i < 4; i++ {
		if pts[i].X+pts[i].Y < pts[start].X+pts[start].Y {
			start = i
		}
	}
	var q Quad
	for i := 0; i < 4; i++ {
		q.Corners[i] = pts[(start+i)%4]
	}
	q.Area = geometry.SignedArea(q.Points())
	return q
}

// findComponents labels the 8-connected foreground regions of bin.
func findComponents(bin *imaging.BinaryImage) []component {
	width, height := bin.Width, bin.Height
	visited := make([]bool, width*height)
	var comps []component

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			i := y*width + x
			if bin.Pix[i] && !visited[i] {
				comps = append(comps, floodFill(bin, visited, x, y))
			}
		}
	}
	return comps
}

// floodFill performs iterative flood-fill from a starting point.
//
// Uses a stack-based approach (not recursive) to avoid stack overflow
// on large regions. Marks visited pixels and records the region's bounding
// box and boundary pixels (those with a 4-neighbour in the background).
// Uses 8-connectivity (includes diagonal neighbors).
func floodFill(bin *imaging.BinaryImage, visited []bool, startX, startY int) component {
	width, height := bin.Width, bin.Height
	c := component{minX: startX, minY: startY, maxX: startX, maxY: startY}

	stack := []image.Point{{X: startX, Y: startY}}
	visited[startY*width+startX] = true

	for len(stack) > 0 {
		p := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if p.X < c.minX {
			c.minX = p.X
		}
		if p.X > c.maxX {
			c.maxX = p.X
		}
		if p.Y < c.minY {
			c.minY = p.Y
		}
		if p.Y > c.maxY {
			c.maxY = p.Y
		}
		if p.X == 0 || p.Y == 0 || p.X == width-1 || p.Y == height-1 {
			c.touchesBorder = true
		}
		if !bin.At(p.X-1, p.Y) || !bin.At(p.X+1, p.Y) || !bin.At(p.X, p.Y-1) || !bin.At(p.X, p.Y+1) {
			c.boundary = append(c.boundary, p)
		}

		// 8-connected neighbors
		for dy := -1; dy <= 1; dy++ {
			for dx := -1; dx <= 1; dx++ {
				if dx == 0 && dy == 0 {
					continue
				}
				nx, ny := p.X+dx, p.Y+dy
				if nx < 0 || nx >= width || ny < 0 || ny >= height {
					continue
				}
				j := ny*width + nx
				if visited[j] || !bin.Pix[j] {
					continue
				}
				visited[j] = true
				stack = append(stack, image.Point{X: nx, Y: ny})
			}
		}
	}
	return c
}

// meanSide returns the average side length of q.
func meanSide(q Quad) float64 {
	return geometry.Perimeter(q.Points()) / 4
}

func finiteQuad(q Quad) bool {
	for _, p := range q.Corners {
		if !p.IsFinite() {
			return false
		}
	}
	return !math.IsNaN(q.Area)
}
