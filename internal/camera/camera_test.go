package camera

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ironsheep/fiducial-mcp/internal/geometry"
	"github.com/ironsheep/fiducial-mcp/internal/imaging"
)

const opencvCalibration = `%YAML:1.0
---
image_width: 800
image_height: 600
camera_matrix: !!opencv-matrix
   rows: 3
   cols: 3
   dt: d
   data: [ 812.5, 0., 401.2, 0., 810.1, 299.7, 0., 0., 1. ]
distortion_coefficients: !!opencv-matrix
   rows: 1
   cols: 5
   dt: d
   data: [ -0.21, 0.05, 0.001, -0.002, 0. ]
`

func TestDefault(t *testing.T) {
	m := Default(640, 480)
	require.NoError(t, m.Validate())
	assert.Equal(t, [9]float64{700, 0, 320, 0, 700, 240, 0, 0, 1}, m.Matrix)
	assert.Empty(t, m.Distortion)

	assert.Equal(t, Default(DefaultWidth, DefaultHeight), Default(0, 0))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(m *Model)
	}{
		{"zero focal", func(m *Model) { m.Matrix[0] = 0 }},
		{"negative focal", func(m *Model) { m.Matrix[4] = -1 }},
		{"nan", func(m *Model) { m.Matrix[2] = math.NaN() }},
		{"bad last row", func(m *Model) { m.Matrix[6] = 1 }},
		{"singular", func(m *Model) { m.Matrix[8] = 0 }},
		{"skewed row", func(m *Model) { m.Matrix[3] = 0.5 }},
		{"too many coefficients", func(m *Model) { m.Distortion = make([]float64, 15) }},
		{"sensor tilt", func(m *Model) {
			m.Distortion = make([]float64, 14)
			m.Distortion[12] = 0.01
		}},
		{"infinite coefficient", func(m *Model) { m.Distortion = []float64{math.Inf(1)} }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := Default(640, 480)
			tt.mutate(&m)
			err := m.Validate()
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidModel))
		})
	}
}

func TestUndistortInvertsDistort(t *testing.T) {
	m := Default(640, 480)
	m.Distortion = []float64{-0.25, 0.08, 0.001, -0.0015, -0.01}

	for _, p := range []geometry.Point2{{X: 0, Y: 0}, {X: 0.3, Y: -0.2}, {X: -0.4, Y: 0.35}, {X: 0.1, Y: 0.45}} {
		got := m.Undistort(m.Distort(p))
		assert.InDelta(t, p.X, got.X, 1e-9, "point %v", p)
		assert.InDelta(t, p.Y, got.Y, 1e-9, "point %v", p)
	}
}

func TestValidateAcceptsOpenCVLengths(t *testing.T) {
	for _, n := range []int{0, 4, 5, 8, 12, 14} {
		m := Default(640, 480)
		m.Distortion = make([]float64, n)
		for i := 0; i < n && i < 12; i++ {
			m.Distortion[i] = 0.001 * float64(i+1)
		}
		assert.NoError(t, m.Validate(), "%d coefficients", n)
	}
}

func TestUndistortInvertsRationalModel(t *testing.T) {
	m := Default(640, 480)
	m.Distortion = []float64{0.1, 0.01, 0.001, -0.0005, 0.001, 0.05, 0.001, 0.0001, 0.002, -0.001, 0.0015, 0.0005}

	for _, p := range []geometry.Point2{{X: 0, Y: 0}, {X: 0.3, Y: -0.2}, {X: -0.4, Y: 0.35}, {X: 0.1, Y: 0.45}} {
		got := m.Undistort(m.Distort(p))
		assert.InDelta(t, p.X, got.X, 1e-9, "point %v", p)
		assert.InDelta(t, p.Y, got.Y, 1e-9, "point %v", p)
	}

	// k4..k6 divide the radial factor
	plain := Default(640, 480)
	plain.Distortion = []float64{0.1}
	rational := Default(640, 480)
	rational.Distortion = []float64{0.1, 0, 0, 0, 0, 0.1}
	p := geometry.Point2{X: 0.3, Y: 0.4}
	r2 := 0.25
	assert.InDelta(t, 0.3*(1+0.1*r2), plain.Distort(p).X, 1e-12)
	assert.InDelta(t, 0.3*(1+0.1*r2)/(1+0.1*r2), rational.Distort(p).X, 1e-12)
}

func TestPixelRoundTrip(t *testing.T) {
	m := Default(640, 480)
	m.Distortion = []float64{0.1, -0.02}
	for _, px := range []geometry.Point2{{X: 320, Y: 240}, {X: 10, Y: 20}, {X: 600, Y: 450}} {
		got := m.ToPixel(m.FromPixel(px))
		assert.InDelta(t, px.X, got.X, 1e-6)
		assert.InDelta(t, px.Y, got.Y, 1e-6)
	}

	_, ok := m.Project(1, 1, 0)
	assert.False(t, ok)
	p, ok := m.Project(0, 0, 2)
	require.True(t, ok)
	assert.InDelta(t, 320, p.X, 1e-9)
	assert.InDelta(t, 240, p.Y, 1e-9)
}

func TestParseCalibrationOpenCV(t *testing.T) {
	m, err := ParseCalibration([]byte(opencvCalibration))
	require.NoError(t, err)

	want := Model{
		Matrix:     [9]float64{812.5, 0, 401.2, 0, 810.1, 299.7, 0, 0, 1},
		Distortion: []float64{-0.21, 0.05, 0.001, -0.002, 0},
		Width:      800,
		Height:     600,
	}
	if diff := cmp.Diff(want, m, cmpopts.EquateApprox(0, 1e-12)); diff != "" {
		t.Errorf("ParseCalibration mismatch (-want +got):\n%s", diff)
	}
}

func TestParseCalibrationRationalModel(t *testing.T) {
	doc := `camera_matrix: !!opencv-matrix
   rows: 3
   cols: 3
   dt: d
   data: [ 700., 0., 320., 0., 700., 240., 0., 0., 1. ]
distortion_coefficients: !!opencv-matrix
   rows: 1
   cols: 8
   dt: d
   data: [ 0.1, 0.01, 0., 0., 0.001, 0.05, 0.001, 0.0001 ]
`
	m, err := ParseCalibration([]byte(doc))
	require.NoError(t, err)
	assert.Equal(t, []float64{0.1, 0.01, 0, 0, 0.001, 0.05, 0.001, 0.0001}, m.Distortion)
	assert.True(t, m.HasDistortion())
}

func TestParseCalibrationJSON(t *testing.T) {
	doc := `{"camera_matrix": {"rows": 3, "cols": 3, "data": [500, 0, 100, 0, 500, 80, 0, 0, 1]}}`
	m, err := ParseCalibration([]byte(doc))
	require.NoError(t, err)
	assert.Equal(t, 500.0, m.Fx())
	assert.Empty(t, m.Distortion)
}

func TestParseCalibrationMalformed(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"not yaml", "camera_matrix: [unterminated"},
		{"missing matrix", "image_width: 10\n"},
		{"short matrix", "camera_matrix:\n  data: [1, 2, 3]\n"},
		{"shape mismatch", "camera_matrix:\n  rows: 2\n  cols: 2\n  data: [700, 0, 320, 0, 700, 240, 0, 0, 1]\n"},
		{"zero focal", "camera_matrix:\n  data: [0, 0, 320, 0, 700, 240, 0, 0, 1]\n"},
		{"non-numeric", "camera_matrix:\n  data: [a, 0, 320, 0, 700, 240, 0, 0, 1]\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseCalibration([]byte(tt.doc))
			assert.Error(t, err)
		})
	}
}

func TestMarshalCalibrationRoundTrip(t *testing.T) {
	in, err := ParseCalibration([]byte(opencvCalibration))
	require.NoError(t, err)
	data, err := MarshalCalibration(in)
	require.NoError(t, err)
	out, err := ParseCalibration(data)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestRectifyWithoutDistortionCopies(t *testing.T) {
	f := imaging.BlankFrame(40, 30, 0)
	for i := range f.Pix {
		f.Pix[i] = uint8(i % 251)
	}
	out, err := Rectify(f, Default(40, 30))
	require.NoError(t, err)
	assert.Equal(t, f.Pix, out.Pix)

	out.Pix[0] = 99
	assert.NotEqual(t, uint8(99), f.Pix[0], "input must not be modified")
}

func TestRectifyStraightensLines(t *testing.T) {
	m := Default(200, 160)
	m.Matrix[0], m.Matrix[4] = 150, 150
	m.Distortion = []float64{-0.3}

	// draw the distorted image of a vertical line x = 40
	f := imaging.BlankFrame(200, 160, 255)
	for y := 0; y < 160; y++ {
		ny := (float64(y) - m.Cy()) / m.Fy()
		nx := (40 - m.Cx()) / m.Fx()
		p := m.ToPixel(geometry.Point2{X: nx, Y: ny})
		xi := int(p.X + 0.5)
		yi := int(p.Y + 0.5)
		if xi >= 0 && xi < 200 && yi >= 0 && yi < 160 {
			f.Set(xi, yi, 0)
		}
	}

	out, err := Rectify(f, m)
	require.NoError(t, err)
	assert.Equal(t, f.Width, out.Width)

	// away from the top and bottom edges the line is back at x = 40
	for y := 40; y < 120; y += 10 {
		darkest := 10
		for x := 11; x < 190; x++ {
			if out.At(x, y) < out.At(darkest, y) {
				darkest = x
			}
		}
		assert.InDelta(t, 40, darkest, 1, "row %d", y)
	}
}

func TestRectifyRejectsInvalidModel(t *testing.T) {
	m := Default(10, 10)
	m.Matrix[0] = 0
	_, err := Rectify(imaging.BlankFrame(10, 10, 1), m)
	assert.Error(t, err)

	out, err := Rectify(&imaging.Frame{}, m)
	require.NoError(t, err)
	assert.True(t, out.Empty())
}
