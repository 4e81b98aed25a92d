package imaging

import (
	"fmt"
	"image"
	"math"

	"github.com/disintegration/imaging"

	"github.com/ironsheep/fiducial-mcp/internal/geometry"
)

// Crop extracts a rectangular region of a frame as a PNG, optionally scaled.
// The rectangle is [x1, x2) × [y1, y2).
func Crop(f *Frame, x1, y1, x2, y2 int, scale float64) (*EncodedImage, error) {
	if f.Empty() {
		return nil, fmt.Errorf("cannot crop an empty frame")
	}
	if x1 < 0 || y1 < 0 || x2 > f.Width || y2 > f.Height {
		return nil, fmt.Errorf("crop region (%d,%d)-(%d,%d) outside frame bounds (0,0)-(%d,%d)",
			x1, y1, x2, y2, f.Width, f.Height)
	}
	if x1 >= x2 || y1 >= y2 {
		return nil, fmt.Errorf("invalid crop region: x1 must be < x2, y1 must be < y2")
	}

	cropped := imaging.Crop(f.Gray(), image.Rect(x1, y1, x2, y2))

	if scale != 1.0 && scale > 0 {
		newWidth := int(float64(cropped.Bounds().Dx()) * scale)
		newHeight := int(float64(cropped.Bounds().Dy()) * scale)
		if newWidth < 1 || newHeight < 1 {
			return nil, fmt.Errorf("scale %g leaves an empty image", scale)
		}
		cropped = imaging.Resize(cropped, newWidth, newHeight, imaging.Lanczos)
	}

	return EncodePNG(cropped)
}

// CropQuad crops the bounding box of a quad grown by margin times its mean
// side on every side, clipped to the frame. It is used to zoom into a tag.
func CropQuad(f *Frame, corners [4]geometry.Point2, margin, scale float64) (*EncodedImage, error) {
	if f.Empty() {
		return nil, fmt.Errorf("cannot crop an empty frame")
	}
	for _, p := range corners {
		if !p.IsFinite() {
			return nil, fmt.Errorf("quad corner %v is not finite", p)
		}
	}
	pad := margin * geometry.Perimeter(corners[:]) / 4

	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, p := range corners {
		minX, maxX = math.Min(minX, p.X), math.Max(maxX, p.X)
		minY, maxY = math.Min(minY, p.Y), math.Max(maxY, p.Y)
	}
	x1 := clamp(int(math.Floor(minX-pad)), 0, f.Width)
	y1 := clamp(int(math.Floor(minY-pad)), 0, f.Height)
	x2 := clamp(int(math.Ceil(maxX+pad))+1, 0, f.Width)
	y2 := clamp(int(math.Ceil(maxY+pad))+1, 0, f.Height)
	return Crop(f, x1, y1, x2, y2, scale)
}
