// Package pose recovers the rigid transform placing a tag, or a rigid object
// made of several tags, in camera coordinates.
//
// A closed-form estimate comes from the homography between the tag plane and
// the undistorted image. It is then refined by minimizing the reprojection
// error in pixels, lens distortion included, with a Nelder-Mead search over a
// rotation vector and a translation. The refined pose replaces the
// closed-form one only when it reprojects better.
//
// Transforms map object coordinates to camera coordinates: camera X right,
// Y down, Z forward. A tag's own frame has its origin on corner 0, X towards
// corner 1, Y towards corner 3, so a tag facing the camera upright has an
// identity rotation.
package pose

import (
	"math"

	"gonum.org/v1/gonum/optimize"

	"github.com/ironsheep/fiducial-mcp/internal/camera"
	"github.com/ironsheep/fiducial-mcp/internal/geometry"
)

const (
	// maxEvaluations bounds the cost evaluations of one refinement.
	maxEvaluations = 4000

	// behindCamera is the cost charged per point that projects behind the
	// camera during refinement.
	behindCamera = 1e12
)

// Correspondence pairs an object point with its observed pixel.
type Correspondence struct {
	Object Point3
	Image  geometry.Point2
}

// SquareCorners returns the corners of a tag of the given side in its own
// frame, in tag corner order.
func SquareCorners(size float64) [4]Point3 {
	return [4]Point3{
		{X: 0, Y: 0, Z: 0},
		{X: size, Y: 0, Z: 0},
		{X: size, Y: size, Z: 0},
		{X: 0, Y: size, Z: 0},
	}
}

// EstimateSquare returns the pose of a single square tag of the given side.
// ok is false when the camera model is invalid, the corners are degenerate or
// the result is not finite.
func EstimateSquare(corners [4]geometry.Point2, size float64, cam camera.Model) (Transform, bool) {
	if size <= 0 || math.IsNaN(size) || math.IsInf(size, 0) {
		return Transform{}, false
	}
	obj := SquareCorners(size)
	points := make([]Correspondence, 4)
	for i := range corners {
		points[i] = Correspondence{Object: obj[i], Image: corners[i]}
	}
	return Estimate(points, cam, nil)
}

// Estimate solves for the pose of a set of correspondences.
//
// When init is nil the object points must be coplanar on z = 0 (at least four
// of them), and a closed-form estimate starts the refinement. Otherwise init
// is the starting pose.
func Estimate(points []Correspondence, cam camera.Model, init *Transform) (Transform, bool) {
	if len(points) < 4 || cam.Validate() != nil {
		return Transform{}, false
	}

	var start Transform
	if init != nil {
		start = *init
	} else {
		var ok bool
		if start, ok = planarPose(points, cam); !ok {
			return Transform{}, false
		}
	}
	if !start.IsFinite() {
		return Transform{}, false
	}

	best := refine(points, cam, start)
	if !best.IsFinite() || best[11] <= 0 {
		return Transform{}, false
	}
	return best, true
}

// planarPose decomposes the homography between the z = 0 object plane and the
// normalized image into a rotation and a translation.
func planarPose(points []Correspondence, cam camera.Model) (Transform, bool) {
	src := make([]geometry.Point2, len(points))
	dst := make([]geometry.Point2, len(points))
	for i, p := range points {
		if p.Object.Z != 0 {
			return Transform{}, false
		}
		src[i] = geometry.Point2{X: p.Object.X, Y: p.Object.Y}
		dst[i] = cam.FromPixel(p.Image)
	}
	h, err := geometry.SolveHomography(src, dst)
	if err != nil {
		return Transform{}, false
	}

	h1 := [3]float64{h[0], h[3], h[6]}
	h2 := [3]float64{h[1], h[4], h[7]}
	h3 := [3]float64{h[2], h[5], h[8]}
	n1, n2 := norm3(h1), norm3(h2)
	if n1 == 0 || n2 == 0 {
		return Transform{}, false
	}
	lambda := 2 / (n1 + n2)
	if h3[2] < 0 {
		lambda = -lambda
	}

	r1 := scale3(h1, lambda)
	r2 := scale3(h2, lambda)
	r3 := cross3(r1, r2)
	t := scale3(h3, lambda)

	r, ok := NearestRotation([9]float64{
		r1[0], r2[0], r3[0],
		r1[1], r2[1], r3[1],
		r1[2], r2[2], r3[2],
	})
	if !ok {
		return Transform{}, false
	}
	out := FromRotation(r, t)
	return out, out.IsFinite() && t[2] > 0
}

// refine minimizes the squared pixel reprojection error starting from start.
func refine(points []Correspondence, cam camera.Model, start Transform) Transform {
	cost := func(x []float64) float64 {
		tr := fromParams(x)
		var sum float64
		for _, p := range points {
			c := tr.Apply(p.Object)
			px, ok := cam.Project(c.X, c.Y, c.Z)
			if !ok {
				sum += behindCamera
				continue
			}
			dx, dy := px.X-p.Image.X, px.Y-p.Image.Y
			sum += dx*dx + dy*dy
		}
		return sum
	}

	x0 := toParams(start)
	f0 := cost(x0)
	if f0 == 0 || math.IsNaN(f0) {
		return start
	}

	problem := optimize.Problem{
		Func: cost,
	}
	settings := &optimize.Settings{
		FuncEvaluations: maxEvaluations,
		Converger: &optimize.FunctionConverge{
			Absolute:   1e-12,
			Relative:   1e-12,
			Iterations: 100,
		},
	}
	result, err := optimize.Minimize(problem, x0, settings, &optimize.NelderMead{})
	if err != nil || result == nil || !(result.F < f0) {
		return start
	}
	return fromParams(result.X)
}

func toParams(t Transform) []float64 {
	rv := rotationVector(t.Rotation())
	tr := t.Translation()
	return []float64{rv[0], rv[1], rv[2], tr[0], tr[1], tr[2]}
}

func fromParams(x []float64) Transform {
	return FromRotation(rodrigues([3]float64{x[0], x[1], x[2]}), [3]float64{x[3], x[4], x[5]})
}

// ReprojectionError returns the RMS pixel distance between the observed
// pixels and the projected object points.
func ReprojectionError(points []Correspondence, cam camera.Model, t Transform) float64 {
	if len(points) == 0 {
		return 0
	}
	var sum float64
	for _, p := range points {
		c := t.Apply(p.Object)
		px, ok := cam.Project(c.X, c.Y, c.Z)
		if !ok {
			return math.Inf(1)
		}
		sum += px.Dist(p.Image) * px.Dist(p.Image)
	}
	return math.Sqrt(sum / float64(len(points)))
}

func norm3(v [3]float64) float64 {
	return math.Sqrt(v[0]*v[0] + v[1]*v[1] + v[2]*v[2])
}

func scale3(v [3]float64, s float64) [3]float64 {
	return [3]float64{v[0] * s, v[1] * s, v[2] * s}
}

func cross3(a, b [3]float64) [3]float64 {
	return [3]float64{
		a[1]*b[2] - a[2]*b[1],
		a[2]*b[0] - a[0]*b[2],
		a[0]*b[1] - a[1]*b[0],
	}
}
