// Package tagtest renders synthetic frames containing tags, for tests of the
// detection pipeline.
package tagtest

import (
	"fmt"
	"math"

	"github.com/ironsheep/fiducial-mcp/internal/codec"
	"github.com/ironsheep/fiducial-mcp/internal/geometry"
	"github.com/ironsheep/fiducial-mcp/internal/imaging"
)

// Tag places one tag in a scene. Corners[0] is the top-left corner of the
// code as printed, followed clockwise by the other three.
type Tag struct {
	ID      int
	Corners [4]geometry.Point2
}

// Scene describes a synthetic frame.
type Scene struct {
	Width      int
	Height     int
	Background uint8 // default 255 when Light and Dark are both zero
	Light      uint8 // white cells, default 255
	Dark       uint8 // black cells, default 0
	Tags       []Tag
}

var sharedCodec = codec.New(-1)

// Render rasterizes the scene with 4x4 supersampling per pixel. Pixel (x, y)
// covers [x-0.5, x+0.5] × [y-0.5, y+0.5].
func Render(s Scene) (*imaging.Frame, error) {
	light, dark, bg := s.Light, s.Dark, s.Background
	if light == 0 && dark == 0 {
		light = 255
		if bg == 0 {
			bg = 255
		}
	}

	f := imaging.BlankFrame(s.Width, s.Height, bg)
	grid := []geometry.Point2{{X: 0, Y: 0}, {X: 10, Y: 0}, {X: 10, Y: 10}, {X: 0, Y: 10}}

	for _, tag := range s.Tags {
		code, err := sharedCodec.Encode(tag.ID)
		if err != nil {
			return nil, err
		}
		toGrid, err := geometry.SolveHomography(tag.Corners[:], grid)
		if err != nil {
			return nil, fmt.Errorf("failed to place tag %d: %w", tag.ID, err)
		}

		minX, minY := math.Inf(1), math.Inf(1)
		maxX, maxY := math.Inf(-1), math.Inf(-1)
		for _, p := range tag.Corners {
			minX, maxX = math.Min(minX, p.X), math.Max(maxX, p.X)
			minY, maxY = math.Min(minY, p.Y), math.Max(maxY, p.Y)
		}
		x0 := clampInt(int(math.Floor(minX))-1, 0, s.Width-1)
		x1 := clampInt(int(math.Ceil(maxX))+1, 0, s.Width-1)
		y0 := clampInt(int(math.Floor(minY))-1, 0, s.Height-1)
		y1 := clampInt(int(math.Ceil(maxY))+1, 0, s.Height-1)

		for y := y0; y <= y1; y++ {
			for x := x0; x <= x1; x++ {
				var sum float64
				covered := 0
				for sy := 0; sy < 4; sy++ {
					for sx := 0; sx < 4; sx++ {
						p := geometry.Point2{
							X: float64(x) - 0.5 + (float64(sx)+0.5)/4,
							Y: float64(y) - 0.5 + (float64(sy)+0.5)/4,
						}
						g := toGrid.Apply(p)
						if g.X < 0 || g.Y < 0 || g.X >= 10 || g.Y >= 10 {
							sum += float64(f.At(x, y))
							continue
						}
						covered++
						if cellIsLight(code, int(g.Y), int(g.X)) {
							sum += float64(light)
						} else {
							sum += float64(dark)
						}
					}
				}
				if covered > 0 {
					f.Set(x, y, uint8(math.Round(sum/16)))
				}
			}
		}
	}
	return f, nil
}

// MustRender is Render for fixed test scenes.
func MustRender(s Scene) *imaging.Frame {
	f, err := Render(s)
	if err != nil {
		panic(err)
	}
	return f
}

// Square returns the corners of a square tag of the given side centred on
// (cx, cy) and rotated clockwise on screen by angle degrees.
func Square(cx, cy, side, angle float64) [4]geometry.Point2 {
	rad := angle * math.Pi / 180
	cos, sin := math.Cos(rad), math.Sin(rad)
	h := side / 2
	local := [4]geometry.Point2{{X: -h, Y: -h}, {X: h, Y: -h}, {X: h, Y: h}, {X: -h, Y: h}}
	var out [4]geometry.Point2
	for i, p := range local {
		out[i] = geometry.Point2{
			X: cx + p.X*cos - p.Y*sin,
			Y: cy + p.X*sin + p.Y*cos,
		}
	}
	return out
}

// cellIsLight reports the colour of grid cell (row, col) of a 10x10 tag:
// a two-cell black border around the 6x6 code.
func cellIsLight(code codec.Codeword, row, col int) bool {
	if row < 2 || col < 2 || row >= 8 || col >= 8 {
		return false
	}
	return code.Bit(row-2, col-2)
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
