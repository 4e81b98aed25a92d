package pose

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ironsheep/fiducial-mcp/internal/camera"
	"github.com/ironsheep/fiducial-mcp/internal/geometry"
)

// projectSquare renders the pixel corners of a tag of the given side placed
// by t.
func projectSquare(t *testing.T, cam camera.Model, tr Transform, size float64) [4]geometry.Point2 {
	t.Helper()
	var out [4]geometry.Point2
	for i, p := range SquareCorners(size) {
		c := tr.Apply(p)
		px, ok := cam.Project(c.X, c.Y, c.Z)
		require.True(t, ok)
		out[i] = px
	}
	return out
}

func assertTransformNear(t *testing.T, want, got Transform, rotTol, transTol float64) {
	t.Helper()
	wr, gr := want.Rotation(), got.Rotation()
	for i := range wr {
		assert.InDelta(t, wr[i], gr[i], rotTol, "rotation element %d", i)
	}
	wt, gt := want.Translation(), got.Translation()
	for i := range wt {
		assert.InDelta(t, wt[i], gt[i], transTol, "translation element %d", i)
	}
	assert.Equal(t, [4]float64{0, 0, 0, 1}, [4]float64{got[12], got[13], got[14], got[15]})
}

func TestEstimateSquareFrontal(t *testing.T) {
	cam := camera.Default(640, 480)
	corners := [4]geometry.Point2{{X: 285, Y: 205}, {X: 355, Y: 205}, {X: 355, Y: 275}, {X: 285, Y: 275}}

	got, ok := EstimateSquare(corners, 100, cam)
	require.True(t, ok)
	assert.Greater(t, got[11], 0.0, "tag must be in front of the camera")
	assertTransformNear(t, FromRotation(Identity().Rotation(), [3]float64{-50, -50, 1000}), got, 1e-6, 1e-3)
}

func TestEstimateSquareRecoversPose(t *testing.T) {
	cam := camera.Default(640, 480)
	tests := []struct {
		name  string
		rot   [3]float64
		trans [3]float64
	}{
		{"tilted", [3]float64{20, -15, 30}, [3]float64{10, -20, 800}},
		{"upside down", [3]float64{0, 0, 180}, [3]float64{40, 40, 600}},
		{"steep", [3]float64{-50, 10, -100}, [3]float64{-80, 30, 1200}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			want := FromEulerDegrees(tt.rot, tt.trans)
			corners := projectSquare(t, cam, want, 80)
			got, ok := EstimateSquare(corners, 80, cam)
			require.True(t, ok)
			assertTransformNear(t, want, got, 1e-4, 1e-2)
		})
	}
}

func TestEstimateSquareWithDistortion(t *testing.T) {
	cam := camera.Default(640, 480)
	cam.Distortion = []float64{-0.2, 0.05, 0.001, 0.002}
	want := FromEulerDegrees([3]float64{10, 25, -5}, [3]float64{120, 90, 700})
	corners := projectSquare(t, cam, want, 60)

	got, ok := EstimateSquare(corners, 60, cam)
	require.True(t, ok)
	assertTransformNear(t, want, got, 1e-4, 1e-2)

	points := make([]Correspondence, 4)
	for i, p := range SquareCorners(60) {
		points[i] = Correspondence{Object: p, Image: corners[i]}
	}
	assert.Less(t, ReprojectionError(points, cam, got), 1e-3)
}

func TestEstimateSquareRejects(t *testing.T) {
	good := [4]geometry.Point2{{X: 285, Y: 205}, {X: 355, Y: 205}, {X: 355, Y: 275}, {X: 285, Y: 275}}

	bad := camera.Default(640, 480)
	bad.Matrix[0] = 0
	_, ok := EstimateSquare(good, 100, bad)
	assert.False(t, ok, "invalid camera")

	_, ok = EstimateSquare(good, 0, camera.Default(640, 480))
	assert.False(t, ok, "zero size")

	_, ok = EstimateSquare(good, math.NaN(), camera.Default(640, 480))
	assert.False(t, ok, "nan size")

	var collapsed [4]geometry.Point2
	_, ok = EstimateSquare(collapsed, 100, camera.Default(640, 480))
	assert.False(t, ok, "degenerate corners")
}

func TestEstimateObject(t *testing.T) {
	cam := camera.Default(640, 480)
	want := FromEulerDegrees([3]float64{15, -20, 10}, [3]float64{-40, 20, 900})

	members := []Member{
		{Size: 50, Placement: Identity()},
		{Size: 50, Placement: FromEulerDegrees([3]float64{0, 0, 0}, [3]float64{120, 0, 0})},
		{Size: 30, Placement: FromEulerDegrees([3]float64{0, 0, 90}, [3]float64{60, 100, 0})},
	}
	for i := range members {
		corners := members[i].ObjectCorners()
		for j, p := range corners {
			c := want.Apply(p)
			px, ok := cam.Project(c.X, c.Y, c.Z)
			require.True(t, ok)
			members[i].Corners[j] = px
		}
	}

	got, ok := EstimateObject(members, cam)
	require.True(t, ok)
	assertTransformNear(t, want, got, 1e-4, 1e-2)

	// any single member still locates the object
	got, ok = EstimateObject(members[1:2], cam)
	require.True(t, ok)
	assertTransformNear(t, want, got, 1e-3, 0.5)

	_, ok = EstimateObject(nil, cam)
	assert.False(t, ok)
}

func TestTransformAlgebra(t *testing.T) {
	a := FromEulerDegrees([3]float64{30, 40, 50}, [3]float64{1, 2, 3})
	b := FromEulerDegrees([3]float64{-10, 5, 70}, [3]float64{-4, 0, 9})

	assertTransformNear(t, Identity(), a.Mul(a.Inverse()), 1e-12, 1e-12)

	p := Point3{X: 0.5, Y: -2, Z: 7}
	viaMul := a.Mul(b).Apply(p)
	viaApply := a.Apply(b.Apply(p))
	assert.InDelta(t, viaApply.X, viaMul.X, 1e-12)
	assert.InDelta(t, viaApply.Y, viaMul.Y, 1e-12)
	assert.InDelta(t, viaApply.Z, viaMul.Z, 1e-12)

	quarter := FromEulerDegrees([3]float64{0, 0, 90}, [3]float64{})
	x := quarter.Apply(Point3{X: 1})
	assert.InDelta(t, 0, x.X, 1e-12)
	assert.InDelta(t, 1, x.Y, 1e-12)

	assert.True(t, a.IsFinite())
	a[3] = math.Inf(1)
	assert.False(t, a.IsFinite())
}

func TestNearestRotation(t *testing.T) {
	r := FromEulerDegrees([3]float64{12, -33, 71}, [3]float64{}).Rotation()
	noisy := r
	for i := range noisy {
		noisy[i] = noisy[i]*1.3 + 0.01*float64(i%3)
	}
	got, ok := NearestRotation(noisy)
	require.True(t, ok)
	for i := range r {
		assert.InDelta(t, r[i], got[i], 0.05)
	}

	// a reflection is turned into a proper rotation
	got, ok = NearestRotation([9]float64{1, 0, 0, 0, 1, 0, 0, 0, -1})
	require.True(t, ok)
	det := got[0]*(got[4]*got[8]-got[5]*got[7]) - got[1]*(got[3]*got[8]-got[5]*got[6]) + got[2]*(got[3]*got[7]-got[4]*got[6])
	assert.InDelta(t, 1, det, 1e-9)
}

func TestRotationVectorRoundTrip(t *testing.T) {
	for _, rot := range [][3]float64{{0, 0, 0}, {10, 20, 30}, {179, 0, 0}, {0, 180, 0}, {-90, 45, 10}} {
		r := FromEulerDegrees(rot, [3]float64{}).Rotation()
		back := rodrigues(rotationVector(r))
		for i := range r {
			assert.InDelta(t, r[i], back[i], 1e-6, "euler %v element %d", rot, i)
		}
	}
}
