package geometry

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignedArea(t *testing.T) {
	tests := []struct {
		name string
		poly []Point2
		want float64
	}{
		{"clockwise on screen", []Point2{{0, 0}, {10, 0}, {10, 10}, {0, 10}}, 100},
		{"counter-clockwise on screen", []Point2{{0, 0}, {0, 10}, {10, 10}, {10, 0}}, -100},
		{"triangle", []Point2{{0, 0}, {4, 0}, {0, 3}}, 6},
		{"too few points", []Point2{{0, 0}, {1, 1}}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, SignedArea(tt.poly), 1e-9)
		})
	}
}

func TestIsConvex(t *testing.T) {
	square := []Point2{{0, 0}, {10, 0}, {10, 10}, {0, 10}}
	assert.True(t, IsConvex(square))

	reversed := []Point2{{0, 10}, {10, 10}, {10, 0}, {0, 0}}
	assert.True(t, IsConvex(reversed))

	dart := []Point2{{0, 0}, {10, 5}, {0, 10}, {3, 5}}
	assert.False(t, IsConvex(dart))

	withCollinear := []Point2{{0, 0}, {5, 0}, {10, 0}, {10, 10}}
	assert.False(t, IsConvex(withCollinear))
}

func TestContains(t *testing.T) {
	square := []Point2{{0, 0}, {10, 0}, {10, 10}, {0, 10}}
	assert.True(t, Contains(square, Point2{5, 5}))
	assert.False(t, Contains(square, Point2{11, 5}))
	assert.False(t, Contains(square, Point2{-0.1, 5}))
}

func TestLineIntersection(t *testing.T) {
	p, ok := LineIntersection(Point2{0, 0}, Point2{10, 10}, Point2{0, 10}, Point2{10, 0})
	require.True(t, ok)
	assert.InDelta(t, 5, p.X, 1e-9)
	assert.InDelta(t, 5, p.Y, 1e-9)

	_, ok = LineIntersection(Point2{0, 0}, Point2{10, 0}, Point2{0, 1}, Point2{10, 1})
	assert.False(t, ok)
}

func TestSolveHomographyExact(t *testing.T) {
	src := []Point2{{0, 0}, {10, 0}, {10, 10}, {0, 10}}
	dst := []Point2{{102.5, 40}, {180, 55}, {170.25, 140}, {95, 130}}

	h, err := SolveHomography(src, dst)
	require.NoError(t, err)

	for i := range src {
		got := h.Apply(src[i])
		assert.InDelta(t, dst[i].X, got.X, 1e-6, "corner %d x", i)
		assert.InDelta(t, dst[i].Y, got.Y, 1e-6, "corner %d y", i)
	}

	inv, err := h.Inverse()
	require.NoError(t, err)
	back := inv.Apply(dst[2])
	assert.InDelta(t, 10, back.X, 1e-6)
	assert.InDelta(t, 10, back.Y, 1e-6)
}

func TestSolveHomographyLeastSquares(t *testing.T) {
	truth := Homography{1.2, 0.1, 30, -0.05, 0.9, 12, 0.0001, 0.0002, 1}
	var src, dst []Point2
	for y := 0.0; y <= 100; y += 25 {
		for x := 0.0; x <= 100; x += 25 {
			p := Point2{x, y}
			src = append(src, p)
			dst = append(dst, truth.Apply(p))
		}
	}

	h, err := SolveHomography(src, dst)
	require.NoError(t, err)
	for i := range h {
		assert.InDelta(t, truth[i], h[i], 1e-6, "entry %d", i)
	}
}

func TestSolveHomographyDegenerate(t *testing.T) {
	collinear := []Point2{{0, 0}, {1, 1}, {2, 2}, {3, 3}}
	dst := []Point2{{0, 0}, {10, 0}, {10, 10}, {0, 10}}
	_, err := SolveHomography(collinear, dst)
	require.Error(t, err)

	same := []Point2{{1, 1}, {1, 1}, {1, 1}, {1, 1}}
	_, err = SolveHomography(same, dst)
	assert.True(t, errors.Is(err, ErrDegenerate))

	_, err = SolveHomography(dst[:3], dst[:3])
	assert.Error(t, err)
}

func TestPointHelpers(t *testing.T) {
	p := Point2{3, 4}
	assert.Equal(t, 5.0, p.Norm())
	assert.Equal(t, Point2{4, 6}, p.Add(Point2{1, 2}))
	assert.Equal(t, 0.0, p.Cross(p))
	assert.True(t, p.IsFinite())
	assert.False(t, Point2{math.NaN(), 0}.IsFinite())
	assert.InDelta(t, 40.0, Perimeter([]Point2{{0, 0}, {10, 0}, {10, 10}, {0, 10}}), 1e-9)
}
