package filter

import (
	"github.com/ironsheep/fiducial-mcp/internal/geometry"
	"github.com/ironsheep/fiducial-mcp/internal/pose"
)

// Corners smooths the 2D corners of tags, keyed by tag identifier.
type Corners = Smoother[int, [4]geometry.Point2]

// Transforms smooths 3D poses, keyed by pose name.
type Transforms = Smoother[string, pose.Transform]

// NewCorners returns an empty 2D filter.
func NewCorners() *Corners {
	return NewSmoother[int, [4]geometry.Point2](BlendCorners)
}

// NewTransforms returns an empty 3D filter.
func NewTransforms() *Transforms {
	return NewSmoother[string, pose.Transform](BlendTransform)
}

// BlendCorners smooths each corner coordinate independently.
func BlendCorners(prev, raw [4]geometry.Point2, p Params) [4]geometry.Point2 {
	var out [4]geometry.Point2
	for i := range out {
		out[i] = geometry.Point2{
			X: blendScalar(prev[i].X, raw[i].X, p),
			Y: blendScalar(prev[i].Y, raw[i].Y, p),
		}
	}
	return out
}

// BlendTransform smooths the translation and the rotation elements, then
// projects the rotation back onto the nearest proper rotation. If that
// projection fails the raw transform is kept.
func BlendTransform(prev, raw pose.Transform, p Params) pose.Transform {
	pr, rr := prev.Rotation(), raw.Rotation()
	var r [9]float64
	for i := range r {
		r[i] = blendScalar(pr[i], rr[i], p)
	}
	rot, ok := pose.NearestRotation(r)
	if !ok {
		return raw
	}

	pt, rt := prev.Translation(), raw.Translation()
	var t [3]float64
	for i := range t {
		t[i] = blendScalar(pt[i], rt[i], p)
	}
	out := pose.FromRotation(rot, t)
	if !out.IsFinite() {
		return raw
	}
	return out
}
