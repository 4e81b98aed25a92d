package detection

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/ironsheep/fiducial-mcp/internal/geometry"
	"github.com/ironsheep/fiducial-mcp/internal/imaging"
)

const (
	// searchStep is the spacing of gradient samples along an edge normal.
	searchStep = 0.25
	// maxSearchReach bounds the normal search on each side of an edge, in px.
	maxSearchReach = 3.0
)

// line is an infinite line through Point along the unit vector Dir.
type line struct {
	Point geometry.Point2
	Dir   geometry.Point2
}

// RefineQuad moves the corners of q to sub-pixel accuracy.
//
// Along each side, the position of the strongest dark-to-bright transition is
// searched on the outward normal; a line is fitted through those positions
// and the corners are re-computed as intersections of adjacent lines. If the
// result is not a convex quad with the same winding, or if any corner moved
// more than maxShift times the mean side length, q is returned unchanged.
func RefineQuad(g *imaging.GradientField, q Quad, maxShift float64) Quad {
	if g == nil || g.Width == 0 {
		return q
	}
	var lines [4]line
	for i := 0; i < 4; i++ {
		l, ok := fitSide(g, q.Corners[i], q.Corners[(i+1)%4])
		if !ok {
			return q
		}
		lines[i] = l
	}

	var refined Quad
	for i := 0; i < 4; i++ {
		prev := lines[(i+3)%4]
		cur := lines[i]
		p, ok := geometry.LineIntersection(prev.Point, prev.Point.Add(prev.Dir), cur.Point, cur.Point.Add(cur.Dir))
		if !ok {
			return q
		}
		refined.Corners[i] = p
	}
	refined.Area = geometry.SignedArea(refined.Points())

	if !finiteQuad(refined) || refined.Area <= 0 || !geometry.IsConvex(refined.Points()) {
		return q
	}
	limit := maxShift * meanSide(q)
	for i := range q.Corners {
		if q.Corners[i].Dist(refined.Corners[i]) > limit {
			return q
		}
	}
	return refined
}

// fitSide locates the edge between a and b and fits a line to it. The quad
// interior lies on the right of a→b in image coordinates, so the outward
// normal is (dy, -dx).
func fitSide(g *imaging.GradientField, a, b geometry.Point2) (line, bool) {
	d := b.Sub(a)
	length := d.Norm()
	if length < 4 {
		return line{}, false
	}
	u := d.Scale(1 / length)
	n := geometry.Point2{X: u.Y, Y: -u.X}

	reach := math.Max(1.5, math.Min(maxSearchReach, 0.1*length))
	steps := int(reach / searchStep)
	samples := int(length / 2)
	if samples < 4 {
		samples = 4
	}
	if samples > 40 {
		samples = 40
	}

	vals := make([]float64, 2*steps+1)
	var pts []geometry.Point2
	for s := 0; s < samples; s++ {
		// stay away from the corners, where the two edges blur together
		t := 0.15 + 0.7*float64(s)/float64(samples-1)
		base := a.Add(d.Scale(t))

		best := 0
		for k := -steps; k <= steps; k++ {
			p := base.Add(n.Scale(float64(k) * searchStep))
			vals[k+steps] = g.Along(p.X, p.Y, n.X, n.Y)
			if vals[k+steps] > vals[best] {
				best = k + steps
			}
		}
		if vals[best] <= 0 {
			continue
		}
		offset := float64(best-steps) * searchStep
		if best > 0 && best < len(vals)-1 {
			denom := vals[best-1] - 2*vals[best] + vals[best+1]
			if denom < 0 {
				offset += searchStep * 0.5 * (vals[best-1] - vals[best+1]) / denom
			}
		}
		pts = append(pts, base.Add(n.Scale(offset)))
	}
	if len(pts) < 3 {
		return line{}, false
	}
	return fitLine(pts)
}

// fitLine fits a total-least-squares line: it passes through the centroid
// along the principal axis of the point scatter.
func fitLine(pts []geometry.Point2) (line, bool) {
	c := geometry.Centroid(pts)
	var sxx, sxy, syy float64
	for _, p := range pts {
		dx, dy := p.X-c.X, p.Y-c.Y
		sxx += dx * dx
		sxy += dx * dy
		syy += dy * dy
	}

	var es mat.EigenSym
	if !es.Factorize(mat.NewSymDense(2, []float64{sxx, sxy, sxy, syy}), true) {
		return line{}, false
	}
	var vecs mat.Dense
	es.VectorsTo(&vecs)

	// eigenvalues come back in ascending order
	dir := geometry.Point2{X: vecs.At(0, 1), Y: vecs.At(1, 1)}
	if dir.Norm() == 0 || !dir.IsFinite() {
		return line{}, false
	}
	return line{Point: c, Dir: dir}, true
}
