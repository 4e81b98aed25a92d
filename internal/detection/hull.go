package detection

import (
	"image"
	"sort"

	"github.com/ironsheep/fiducial-mcp/internal/geometry"
)

// convexHull returns the hull of points with Andrew's monotone chain.
// Collinear points are dropped. The result has positive signed area, which
// in image coordinates means clockwise on screen.
func convexHull(points []image.Point) []image.Point {
	if len(points) < 3 {
		return points
	}

	sorted := make([]image.Point, len(points))
	copy(sorted, points)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].X != sorted[j].X {
			return sorted[i].X < sorted[j].X
		}
		return sorted[i].Y < sorted[j].Y
	})

	cross := func(o, a, b image.Point) int {
		return (a.X-o.X)*(b.Y-o.Y) - (a.Y-o.Y)*(b.X-o.X)
	}

	var lower []image.Point
	for _, p := range sorted {
		for len(lower) >= 2 && cross(lower[len(lower)-2], lower[len(lower)-1], p) <= 0 {
			lower = lower[:len(lower)-1]
		}
		lower = append(lower, p)
	}

	var upper []image.Point
	for i := len(sorted) - 1; i >= 0; i-- {
		p := sorted[i]
		for len(upper) >= 2 && cross(upper[len(upper)-2], upper[len(upper)-1], p) <= 0 {
			upper = upper[:len(upper)-1]
		}
		upper = append(upper, p)
	}

	return append(lower[:len(lower)-1], upper[:len(upper)-1]...)
}

// simplifyClosed reduces a closed polygon with Douglas-Peucker. The polygon is
// split at its first vertex and the vertex farthest from it, and each half is
// simplified on its own.
func simplifyClosed(poly []geometry.Point2, epsilon float64) []geometry.Point2 {
	n := len(poly)
	if n < 4 {
		return poly
	}

	far := 0
	var best float64
	for i := 1; i < n; i++ {
		if d := poly[i].Dist(poly[0]); d > best {
			best = d
			far = i
		}
	}

	first := append([]geometry.Point2(nil), poly[:far+1]...)
	second := append(append([]geometry.Point2(nil), poly[far:]...), poly[0])

	a := douglasPeucker(first, epsilon)
	b := douglasPeucker(second, epsilon)

	// both halves repeat the split points
	out := append([]geometry.Point2(nil), a[:len(a)-1]...)
	out = append(out, b[:len(b)-1]...)

	// the split vertex is always kept by the halves; drop it, or any other
	// vertex, when it lies within epsilon of the chord of its neighbours
	for len(out) > 3 {
		removed := false
		for i := range out {
			prev := out[(i+len(out)-1)%len(out)]
			next := out[(i+1)%len(out)]
			if segmentDistance(out[i], prev, next) <= epsilon {
				out = append(out[:i], out[i+1:]...)
				removed = true
				break
			}
		}
		if !removed {
			break
		}
	}
	return out
}

func douglasPeucker(pts []geometry.Point2, epsilon float64) []geometry.Point2 {
	if len(pts) < 3 {
		return append([]geometry.Point2(nil), pts...)
	}
	a, b := pts[0], pts[len(pts)-1]
	idx := 0
	var best float64
	for i := 1; i < len(pts)-1; i++ {
		if d := segmentDistance(pts[i], a, b); d > best {
			best = d
			idx = i
		}
	}
	if best <= epsilon {
		return []geometry.Point2{a, b}
	}
	left := douglasPeucker(pts[:idx+1], epsilon)
	right := douglasPeucker(pts[idx:], epsilon)
	return append(left[:len(left)-1], right...)
}

// segmentDistance is the distance from p to the segment ab.
func segmentDistance(p, a, b geometry.Point2) float64 {
	ab := b.Sub(a)
	l2 := ab.Dot(ab)
	if l2 == 0 {
		return p.Dist(a)
	}
	t := p.Sub(a).Dot(ab) / l2
	if t < 0 {
		t = 0
	} else if t > 1 {
		t = 1
	}
	return p.Dist(a.Add(ab.Scale(t)))
}
