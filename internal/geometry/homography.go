package geometry

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// ErrDegenerate is returned when a set of correspondences does not define a
// unique projective mapping (collinear or coincident points).
var ErrDegenerate = errors.New("degenerate point configuration")

// Homography is a 3x3 projective transform stored row-major and normalized
// so that the bottom-right entry is 1.
type Homography [9]float64

// Identity returns the identity homography.
func Identity() Homography {
	return Homography{1, 0, 0, 0, 1, 0, 0, 0, 1}
}

// Apply maps p through the homography.
func (h Homography) Apply(p Point2) Point2 {
	w := h[6]*p.X + h[7]*p.Y + h[8]
	return Point2{
		X: (h[0]*p.X + h[1]*p.Y + h[2]) / w,
		Y: (h[3]*p.X + h[4]*p.Y + h[5]) / w,
	}
}

// Matrix returns the homography as a gonum matrix.
func (h Homography) Matrix() *mat.Dense {
	return mat.NewDense(3, 3, h[:])
}

// Inverse returns the inverse mapping.
func (h Homography) Inverse() (Homography, error) {
	var inv mat.Dense
	if err := inv.Inverse(h.Matrix()); err != nil {
		return Homography{}, fmt.Errorf("failed to invert homography: %w", err)
	}
	return fromDense(&inv)
}

// SolveHomography computes the homography mapping each src point onto the
// matching dst point. Four correspondences give an exact solution; more are
// solved in the least-squares sense.
//
// Both point sets are normalized first (centroid at the origin, mean distance
// sqrt(2)) which keeps the linear system well conditioned for pixel-sized
// coordinates.
func SolveHomography(src, dst []Point2) (Homography, error) {
	n := len(src)
	if n != len(dst) {
		return Homography{}, fmt.Errorf("point count mismatch: %d vs %d", len(src), len(dst))
	}
	if n < 4 {
		return Homography{}, fmt.Errorf("need at least 4 points, got %d", n)
	}

	srcN, srcT, err := normalize(src)
	if err != nil {
		return Homography{}, err
	}
	dstN, dstT, err := normalize(dst)
	if err != nil {
		return Homography{}, err
	}

	// u = (h0 x + h1 y + h2) / (h6 x + h7 y + 1), same for v with h3..h5
	A := mat.NewDense(n*2, 8, nil)
	B := mat.NewVecDense(n*2, nil)
	for i := 0; i < n; i++ {
		x, y := srcN[i].X, srcN[i].Y
		u, v := dstN[i].X, dstN[i].Y

		A.Set(i*2, 0, x)
		A.Set(i*2, 1, y)
		A.Set(i*2, 2, 1)
		A.Set(i*2, 6, -u*x)
		A.Set(i*2, 7, -u*y)
		B.SetVec(i*2, u)

		A.Set(i*2+1, 3, x)
		A.Set(i*2+1, 4, y)
		A.Set(i*2+1, 5, 1)
		A.Set(i*2+1, 6, -v*x)
		A.Set(i*2+1, 7, -v*y)
		B.SetVec(i*2+1, v)
	}

	var params mat.VecDense
	if n == 4 {
		if err := params.SolveVec(A, B); err != nil {
			return Homography{}, fmt.Errorf("%w: %v", ErrDegenerate, err)
		}
	} else {
		var qr mat.QR
		qr.Factorize(A)
		if err := qr.SolveVecTo(&params, false, B); err != nil {
			return Homography{}, fmt.Errorf("%w: %v", ErrDegenerate, err)
		}
	}

	hn := mat.NewDense(3, 3, []float64{
		params.AtVec(0), params.AtVec(1), params.AtVec(2),
		params.AtVec(3), params.AtVec(4), params.AtVec(5),
		params.AtVec(6), params.AtVec(7), 1,
	})

	// H = inv(dstT) * Hn * srcT
	var dstInv mat.Dense
	if err := dstInv.Inverse(dstT); err != nil {
		return Homography{}, fmt.Errorf("%w: %v", ErrDegenerate, err)
	}
	var tmp, full mat.Dense
	tmp.Mul(hn, srcT)
	full.Mul(&dstInv, &tmp)

	return fromDense(&full)
}

// normalize returns the Hartley-normalized points and the 3x3 similarity that
// produced them.
func normalize(pts []Point2) ([]Point2, *mat.Dense, error) {
	c := Centroid(pts)
	var mean float64
	for _, p := range pts {
		mean += p.Dist(c)
	}
	mean /= float64(len(pts))
	if mean < 1e-12 || math.IsNaN(mean) || math.IsInf(mean, 0) {
		return nil, nil, ErrDegenerate
	}
	s := math.Sqrt2 / mean

	out := make([]Point2, len(pts))
	for i, p := range pts {
		out[i] = p.Sub(c).Scale(s)
	}
	T := mat.NewDense(3, 3, []float64{
		s, 0, -s * c.X,
		0, s, -s * c.Y,
		0, 0, 1,
	})
	return out, T, nil
}

func fromDense(m *mat.Dense) (Homography, error) {
	w := m.At(2, 2)
	if math.Abs(w) < 1e-15 {
		return Homography{}, ErrDegenerate
	}
	var h Homography
	for r := 0; r < 3; r++ {
		for c := 0; c < 3; c++ {
			v := m.At(r, c) / w
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return Homography{}, ErrDegenerate
			}
			h[r*3+c] = v
		}
	}
	return h, nil
}
