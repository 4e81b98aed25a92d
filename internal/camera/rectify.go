package camera

import (
	"math"

	"github.com/ironsheep/fiducial-mcp/internal/geometry"
	"github.com/ironsheep/fiducial-mcp/internal/imaging"
)

// Rectify returns an undistorted copy of f.
//
// The output has the same size and intrinsic matrix as the input; each output
// pixel is looked up at its distorted position in f with bilinear
// interpolation. Lookups falling outside f read black. f is not modified.
func Rectify(f *imaging.Frame, m Model) (*imaging.Frame, error) {
	if f.Empty() {
		return &imaging.Frame{}, nil
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	if !m.HasDistortion() {
		return f.Clone(), nil
	}

	k := m.scale()
	out := imaging.BlankFrame(f.Width, f.Height, 0)
	maxX, maxY := float64(f.Width)-0.5, float64(f.Height)-0.5
	for y := 0; y < f.Height; y++ {
		ny := (float64(y) - k[5]) / k[4]
		for x := 0; x < f.Width; x++ {
			nx := (float64(x) - k[2] - k[1]*ny) / k[0]
			src := m.ToPixel(geometry.Point2{X: nx, Y: ny})
			if !src.IsFinite() || src.X < -0.5 || src.Y < -0.5 || src.X > maxX || src.Y > maxY {
				continue
			}
			out.Pix[y*f.Width+x] = uint8(math.Round(f.Bilinear(src.X, src.Y)))
		}
	}
	return out, nil
}
