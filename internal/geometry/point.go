package geometry

import "math"

// Point2 is a sub-pixel position in image space. X grows rightward and Y
// grows downward, matching the pixel grid of a frame.
type Point2 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Add returns p+q.
func (p Point2) Add(q Point2) Point2 { return Point2{X: p.X + q.X, Y: p.Y + q.Y} }

// Sub returns p-q.
func (p Point2) Sub(q Point2) Point2 { return Point2{X: p.X - q.X, Y: p.Y - q.Y} }

// Scale returns p*s.
func (p Point2) Scale(s float64) Point2 { return Point2{X: p.X * s, Y: p.Y * s} }

// Dot returns the dot product of p and q.
func (p Point2) Dot(q Point2) float64 { return p.X*q.X + p.Y*q.Y }

// Cross returns the z component of the cross product of p and q.
func (p Point2) Cross(q Point2) float64 { return p.X*q.Y - p.Y*q.X }

// Norm returns the Euclidean length of p.
func (p Point2) Norm() float64 { return math.Hypot(p.X, p.Y) }

// Dist returns the Euclidean distance between p and q.
func (p Point2) Dist(q Point2) float64 { return p.Sub(q).Norm() }

// IsFinite reports whether both coordinates are finite numbers.
func (p Point2) IsFinite() bool {
	return !math.IsNaN(p.X) && !math.IsNaN(p.Y) && !math.IsInf(p.X, 0) && !math.IsInf(p.Y, 0)
}

// SignedArea returns the shoelace area of a closed polygon. In image
// coordinates (Y down) a positive value means the vertices run clockwise on
// screen.
func SignedArea(poly []Point2) float64 {
	n := len(poly)
	if n < 3 {
		return 0
	}
	var sum float64
	for i := 0; i < n; i++ {
		j := (i + 1) % n
		sum += poly[i].X*poly[j].Y - poly[j].X*poly[i].Y
	}
	return sum / 2
}

// Perimeter returns the length of a closed polygon.
func Perimeter(poly []Point2) float64 {
	var sum float64
	for i := range poly {
		sum += poly[i].Dist(poly[(i+1)%len(poly)])
	}
	return sum
}

// IsConvex reports whether a closed polygon is strictly convex, in either
// winding.
func IsConvex(poly []Point2) bool {
	n := len(poly)
	if n < 3 {
		return false
	}
	sign := 0
	for i := 0; i < n; i++ {
		a := poly[i]
		b := poly[(i+1)%n]
		c := poly[(i+2)%n]
		cross := b.Sub(a).Cross(c.Sub(b))
		if cross == 0 {
			return false
		}
		s := 1
		if cross < 0 {
			s = -1
		}
		if sign == 0 {
			sign = s
		} else if s != sign {
			return false
		}
	}
	return true
}

// Centroid returns the mean of the vertices.
func Centroid(poly []Point2) Point2 {
	var c Point2
	if len(poly) == 0 {
		return c
	}
	for _, p := range poly {
		c = c.Add(p)
	}
	return c.Scale(1 / float64(len(poly)))
}

// Contains reports whether p lies inside the convex polygon poly, whichever
// way it winds.
func Contains(poly []Point2, p Point2) bool {
	n := len(poly)
	if n < 3 {
		return false
	}
	pos, neg := false, false
	for i := 0; i < n; i++ {
		a := poly[i]
		b := poly[(i+1)%n]
		cross := b.Sub(a).Cross(p.Sub(a))
		if cross > 0 {
			pos = true
		} else if cross < 0 {
			neg = true
		}
		if pos && neg {
			return false
		}
	}
	return true
}

// LineIntersection intersects the infinite lines through a1,a2 and b1,b2.
// ok is false when the lines are parallel.
func LineIntersection(a1, a2, b1, b2 Point2) (p Point2, ok bool) {
	da := a2.Sub(a1)
	db := b2.Sub(b1)
	denom := da.Cross(db)
	if math.Abs(denom) < 1e-12 {
		return Point2{}, false
	}
	t := b1.Sub(a1).Cross(db) / denom
	return a1.Add(da.Scale(t)), true
}
