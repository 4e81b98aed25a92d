// Package camera holds the pinhole camera model with Brown-Conrady lens
// distortion, the calibration descriptor parser, and frame rectification.
//
// Pixel coordinates follow the frame convention (pixel centres on integers).
// Normalized coordinates are (x/z, y/z) of a point in the camera frame, before
// distortion.
package camera

import (
	"math"

	"github.com/pkg/errors"

	"github.com/ironsheep/fiducial-mcp/internal/geometry"
)

const (
	// DefaultFocal is the focal length, in pixels, of the uncalibrated camera.
	DefaultFocal = 700.0
	// DefaultWidth and DefaultHeight are the frame size assumed before any
	// calibration is loaded.
	DefaultWidth  = 640
	DefaultHeight = 480

	// MaxDistortion is the longest accepted coefficient vector, the OpenCV
	// layout k1, k2, p1, p2, k3, k4, k5, k6, s1, s2, s3, s4, tx, ty.
	MaxDistortion = 14

	// supportedDistortion counts the coefficients the lens model applies:
	// the rational radial model with thin prism terms. The sensor tilt terms
	// tx, ty must be zero.
	supportedDistortion = 12
)

// ErrInvalidModel is returned when a camera model cannot be used for pose
// estimation.
var ErrInvalidModel = errors.New("invalid camera model")

// Model is an intrinsic matrix with distortion coefficients.
type Model struct {
	// Matrix is the 3x3 intrinsic matrix, row-major.
	Matrix [9]float64 `json:"camera_matrix"`

	// Distortion holds OpenCV coefficients k1, k2, p1, p2[, k3[, k4, k5, k6
	// [, s1, s2, s3, s4[, tx, ty]]]] in that order; missing trailing
	// coefficients are zero. The vector is kept as read.
	Distortion []float64 `json:"distortion_coefficients"`

	// Width and Height are the calibrated frame size, zero when unknown.
	Width  int `json:"image_width,omitempty"`
	Height int `json:"image_height,omitempty"`
}

// Default returns the uncalibrated model for a width x height frame: focal
// length DefaultFocal, principal point at the frame centre, no distortion.
func Default(width, height int) Model {
	if width <= 0 || height <= 0 {
		width, height = DefaultWidth, DefaultHeight
	}
	return Model{
		Matrix: [9]float64{
			DefaultFocal, 0, float64(width) / 2,
			0, DefaultFocal, float64(height) / 2,
			0, 0, 1,
		},
		Distortion: []float64{},
		Width:      width,
		Height:     height,
	}
}

// Clone returns a deep copy of m.
func (m Model) Clone() Model {
	out := m
	out.Distortion = append([]float64{}, m.Distortion...)
	return out
}

// Fx returns the horizontal focal length.
func (m Model) Fx() float64 { return m.Matrix[0] }

// Fy returns the vertical focal length.
func (m Model) Fy() float64 { return m.Matrix[4] }

// Cx returns the principal point abscissa.
func (m Model) Cx() float64 { return m.Matrix[2] }

// Cy returns the principal point ordinate.
func (m Model) Cy() float64 { return m.Matrix[5] }

// Validate reports whether m can map between pixels and rays.
func (m Model) Validate() error {
	for i, v := range m.Matrix {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return errors.Wrapf(ErrInvalidModel, "matrix element %d is not finite", i)
		}
	}
	if m.Fx() <= 0 || m.Fy() <= 0 {
		return errors.Wrapf(ErrInvalidModel, "focal lengths must be positive, got fx=%g fy=%g", m.Fx(), m.Fy())
	}
	if m.Matrix[3] != 0 {
		return errors.Wrap(ErrInvalidModel, "matrix element (1, 0) must be zero")
	}
	if m.Matrix[6] != 0 || m.Matrix[7] != 0 || m.Matrix[8] == 0 {
		return errors.Wrap(ErrInvalidModel, "matrix last row must be [0 0 w] with w != 0")
	}
	if len(m.Distortion) > MaxDistortion {
		return errors.Wrapf(ErrInvalidModel, "expected at most %d distortion coefficients, got %d", MaxDistortion, len(m.Distortion))
	}
	for i, v := range m.Distortion {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return errors.Wrapf(ErrInvalidModel, "distortion coefficient %d is not finite", i)
		}
		if i >= supportedDistortion && v != 0 {
			return errors.Wrapf(ErrInvalidModel, "sensor tilt coefficient %d = %g is not supported", i, v)
		}
	}
	return nil
}

// lens holds the distortion coefficients in use, zero when absent.
type lens struct {
	k1, k2, p1, p2, k3 float64
	k4, k5, k6         float64
	s1, s2, s3, s4     float64
}

func (m Model) coeffs() lens {
	var c [supportedDistortion]float64
	copy(c[:], m.Distortion)
	return lens{
		k1: c[0], k2: c[1], p1: c[2], p2: c[3], k3: c[4],
		k4: c[5], k5: c[6], k6: c[7],
		s1: c[8], s2: c[9], s3: c[10], s4: c[11],
	}
}

// radial returns the radial factor at r2 and its derivative with respect to
// r2.
func (l lens) radial(r2 float64) (float64, float64) {
	r4 := r2 * r2
	num := 1 + l.k1*r2 + l.k2*r4 + l.k3*r4*r2
	den := 1 + l.k4*r2 + l.k5*r4 + l.k6*r4*r2
	dNum := l.k1 + 2*l.k2*r2 + 3*l.k3*r4
	dDen := l.k4 + 2*l.k5*r2 + 3*l.k6*r4
	return num / den, (dNum*den - num*dDen) / (den * den)
}

// apply distorts normalized coordinates (x, y).
func (l lens) apply(x, y float64) (float64, float64) {
	r2 := x*x + y*y
	r4 := r2 * r2
	radial, _ := l.radial(r2)
	return x*radial + 2*l.p1*x*y + l.p2*(r2+2*x*x) + l.s1*r2 + l.s2*r4,
		y*radial + l.p1*(r2+2*y*y) + 2*l.p2*x*y + l.s3*r2 + l.s4*r4
}

// HasDistortion reports whether any coefficient is non-zero.
func (m Model) HasDistortion() bool {
	for _, v := range m.Distortion {
		if v != 0 {
			return true
		}
	}
	return false
}

// scale returns the matrix with its last row normalized to [0 0 1].
func (m Model) scale() [9]float64 {
	k := m.Matrix
	if w := k[8]; w != 1 && w != 0 {
		for i := range k {
			k[i] /= w
		}
	}
	return k
}

// Distort applies the lens model to normalized coordinates.
func (m Model) Distort(p geometry.Point2) geometry.Point2 {
	x, y := m.coeffs().apply(p.X, p.Y)
	return geometry.Point2{X: x, Y: y}
}

// Undistort inverts Distort with Newton-Raphson iterations, starting from the
// distorted point itself.
func (m Model) Undistort(d geometry.Point2) geometry.Point2 {
	if !m.HasDistortion() {
		return d
	}
	l := m.coeffs()

	const (
		maxIterations = 20
		tolerance     = 1e-12
	)
	xu, yu := d.X, d.Y
	for i := 0; i < maxIterations; i++ {
		dx, dy := l.apply(xu, yu)
		errX, errY := dx-d.X, dy-d.Y
		if errX*errX+errY*errY < tolerance*tolerance {
			break
		}

		r2 := xu*xu + yu*yu
		radial, dRad := l.radial(r2)
		dRadDx := 2 * xu * dRad
		dRadDy := 2 * yu * dRad
		prismX := 2 * (l.s1 + 2*l.s2*r2)
		prismY := 2 * (l.s3 + 2*l.s4*r2)

		j00 := radial + xu*dRadDx + 2*l.p1*yu + 6*l.p2*xu + prismX*xu
		j01 := xu*dRadDy + 2*l.p1*xu + 2*l.p2*yu + prismX*yu
		j10 := yu*dRadDx + 2*l.p1*xu + 2*l.p2*yu + prismY*xu
		j11 := radial + yu*dRadDy + 6*l.p1*yu + 2*l.p2*xu + prismY*yu

		det := j00*j11 - j01*j10
		if det == 0 || math.IsNaN(det) {
			break
		}
		xu -= (j11*errX - j01*errY) / det
		yu -= (-j10*errX + j00*errY) / det
	}
	return geometry.Point2{X: xu, Y: yu}
}

// ToPixel maps normalized undistorted coordinates to a pixel, applying the
// lens model.
func (m Model) ToPixel(p geometry.Point2) geometry.Point2 {
	k := m.scale()
	d := m.Distort(p)
	return geometry.Point2{
		X: k[0]*d.X + k[1]*d.Y + k[2],
		Y: k[4]*d.Y + k[5],
	}
}

// FromPixel maps a pixel to normalized undistorted coordinates.
func (m Model) FromPixel(p geometry.Point2) geometry.Point2 {
	k := m.scale()
	y := (p.Y - k[5]) / k[4]
	x := (p.X - k[2] - k[1]*y) / k[0]
	return m.Undistort(geometry.Point2{X: x, Y: y})
}

// Project maps a camera-frame point to a pixel. ok is false for points at or
// behind the camera plane.
func (m Model) Project(x, y, z float64) (geometry.Point2, bool) {
	if z <= 0 {
		return geometry.Point2{}, false
	}
	return m.ToPixel(geometry.Point2{X: x / z, Y: y / z}), true
}
