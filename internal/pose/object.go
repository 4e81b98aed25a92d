package pose

import (
	"github.com/ironsheep/fiducial-mcp/internal/camera"
	"github.com/ironsheep/fiducial-mcp/internal/geometry"
)

// Member is one tag of a rigid object as seen in a frame.
type Member struct {
	// Size is the tag side length.
	Size float64

	// Placement maps the tag's own frame into the object frame.
	Placement Transform

	// Corners are the observed pixel corners in tag corner order.
	Corners [4]geometry.Point2
}

// ObjectCorners returns the member's corners in object coordinates.
func (m Member) ObjectCorners() [4]Point3 {
	local := SquareCorners(m.Size)
	var out [4]Point3
	for i, p := range local {
		out[i] = m.Placement.Apply(p)
	}
	return out
}

// EstimateObject returns the pose of a rigid object from all of its visible
// tags. The first member whose own pose can be solved seeds the estimate,
// which is then refined over every member's corners.
func EstimateObject(members []Member, cam camera.Model) (Transform, bool) {
	if len(members) == 0 {
		return Transform{}, false
	}
	if len(members) == 1 && members[0].Placement == Identity() {
		return EstimateSquare(members[0].Corners, members[0].Size, cam)
	}

	var init Transform
	found := false
	for _, m := range members {
		if tagPose, ok := EstimateSquare(m.Corners, m.Size, cam); ok {
			init = tagPose.Mul(m.Placement.Inverse())
			found = true
			break
		}
	}
	if !found {
		return Transform{}, false
	}

	points := make([]Correspondence, 0, 4*len(members))
	for _, m := range members {
		obj := m.ObjectCorners()
		for i := range obj {
			points = append(points, Correspondence{Object: obj[i], Image: m.Corners[i]})
		}
	}
	return Estimate(points, cam, &init)
}
