package pose

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// Point3 is a point in a 3D frame.
type Point3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Transform is a rigid 4x4 homogeneous transform, row-major. The upper-left
// 3x3 block is a rotation and the last column holds the translation.
type Transform [16]float64

// Identity returns the identity transform.
func Identity() Transform {
	return Transform{
		1, 0, 0, 0,
		0, 1, 0, 0,
		0, 0, 1, 0,
		0, 0, 0, 1,
	}
}

// FromRotation builds a transform from a row-major rotation and a translation.
func FromRotation(r [9]float64, t [3]float64) Transform {
	return Transform{
		r[0], r[1], r[2], t[0],
		r[3], r[4], r[5], t[1],
		r[6], r[7], r[8], t[2],
		0, 0, 0, 1,
	}
}

// FromEulerDegrees builds the placement used by object layouts: rotations of
// rx, ry, rz degrees about X, then Y, then Z (R = Rx*Ry*Rz) followed by the
// translation.
func FromEulerDegrees(rot, trans [3]float64) Transform {
	const deg = math.Pi / 180
	a, b := math.Cos(rot[0]*deg), math.Sin(rot[0]*deg)
	c, d := math.Cos(rot[1]*deg), math.Sin(rot[1]*deg)
	e, f := math.Cos(rot[2]*deg), math.Sin(rot[2]*deg)
	return FromRotation([9]float64{
		c * e, -c * f, d,
		b*d*e + a*f, -b*d*f + a*e, -b * c,
		-a*d*e + b*f, a*d*f + b*e, a * c,
	}, trans)
}

// Rotation returns the rotation block, row-major.
func (t Transform) Rotation() [9]float64 {
	return [9]float64{t[0], t[1], t[2], t[4], t[5], t[6], t[8], t[9], t[10]}
}

// Translation returns the translation column.
func (t Transform) Translation() [3]float64 {
	return [3]float64{t[3], t[7], t[11]}
}

// Mul returns t*o: o is applied first.
func (t Transform) Mul(o Transform) Transform {
	var out Transform
	for r := 0; r < 4; r++ {
		for c := 0; c < 4; c++ {
			var s float64
			for k := 0; k < 4; k++ {
				s += t[r*4+k] * o[k*4+c]
			}
			out[r*4+c] = s
		}
	}
	return out
}

// Inverse returns the inverse of a rigid transform.
func (t Transform) Inverse() Transform {
	r := t.Rotation()
	tr := t.Translation()
	rt := [9]float64{r[0], r[3], r[6], r[1], r[4], r[7], r[2], r[5], r[8]}
	return FromRotation(rt, [3]float64{
		-(rt[0]*tr[0] + rt[1]*tr[1] + rt[2]*tr[2]),
		-(rt[3]*tr[0] + rt[4]*tr[1] + rt[5]*tr[2]),
		-(rt[6]*tr[0] + rt[7]*tr[1] + rt[8]*tr[2]),
	})
}

// Apply maps p through t.
func (t Transform) Apply(p Point3) Point3 {
	return Point3{
		X: t[0]*p.X + t[1]*p.Y + t[2]*p.Z + t[3],
		Y: t[4]*p.X + t[5]*p.Y + t[6]*p.Z + t[7],
		Z: t[8]*p.X + t[9]*p.Y + t[10]*p.Z + t[11],
	}
}

// IsFinite reports whether every element is a number.
func (t Transform) IsFinite() bool {
	for _, v := range t {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// NearestRotation projects m onto the closest rotation matrix in the
// Frobenius sense, using an SVD: R = U*diag(1, 1, det(U*Vᵀ))*Vᵀ.
func NearestRotation(m [9]float64) ([9]float64, bool) {
	var svd mat.SVD
	if !svd.Factorize(mat.NewDense(3, 3, m[:]), mat.SVDFull) {
		return [9]float64{}, false
	}
	var u, v mat.Dense
	svd.UTo(&u)
	svd.VTo(&v)

	var r mat.Dense
	r.Mul(&u, v.T())
	if mat.Det(&r) < 0 {
		for i := 0; i < 3; i++ {
			u.Set(i, 2, -u.At(i, 2))
		}
		r.Mul(&u, v.T())
	}

	var out [9]float64
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			out[i*3+j] = r.At(i, j)
		}
	}
	return out, true
}

// rodrigues converts a rotation vector (axis times angle) to a matrix.
func rodrigues(v [3]float64) [9]float64 {
	theta := math.Sqrt(v[0]*v[0] + v[1]*v[1] + v[2]*v[2])
	if theta < 1e-12 {
		return [9]float64{
			1, -v[2], v[1],
			v[2], 1, -v[0],
			-v[1], v[0], 1,
		}
	}
	x, y, z := v[0]/theta, v[1]/theta, v[2]/theta
	c, s := math.Cos(theta), math.Sin(theta)
	k := 1 - c
	return [9]float64{
		c + x*x*k, x*y*k - z*s, x*z*k + y*s,
		y*x*k + z*s, c + y*y*k, y*z*k - x*s,
		z*x*k - y*s, z*y*k + x*s, c + z*z*k,
	}
}

// rotationVector converts a rotation matrix to axis times angle.
func rotationVector(r [9]float64) [3]float64 {
	cos := (r[0] + r[4] + r[8] - 1) / 2
	cos = math.Max(-1, math.Min(1, cos))
	theta := math.Acos(cos)
	if theta < 1e-9 {
		return [3]float64{(r[7] - r[5]) / 2, (r[2] - r[6]) / 2, (r[3] - r[1]) / 2}
	}
	if math.Pi-theta < 1e-6 {
		// axis from the diagonal when sin(theta) vanishes
		x := math.Sqrt(math.Max(0, (r[0]+1)/2))
		y := math.Sqrt(math.Max(0, (r[4]+1)/2))
		z := math.Sqrt(math.Max(0, (r[8]+1)/2))
		if r[1] < 0 {
			y = -y
		}
		if r[2] < 0 {
			z = -z
		}
		if x == 0 && r[5] < 0 {
			z = -z
		}
		return [3]float64{x * theta, y * theta, z * theta}
	}
	s := 2 * math.Sin(theta)
	return [3]float64{
		(r[7] - r[5]) / s * theta,
		(r[2] - r[6]) / s * theta,
		(r[3] - r[1]) / s * theta,
	}
}
