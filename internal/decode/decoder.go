// Package decode reads tag identifiers from candidate quads.
//
// The interior of each quad is sampled on the 10x10 tag grid, thresholded,
// and matched against the code table under the four rotations of the grid.
// A quad that matches nothing is simply not a tag.
package decode

import (
	"github.com/ironsheep/fiducial-mcp/internal/codec"
	"github.com/ironsheep/fiducial-mcp/internal/geometry"
	"github.com/ironsheep/fiducial-mcp/internal/imaging"
)

// Tag is a decoded quad.
type Tag struct {
	// ID is the tag identifier.
	ID int `json:"id"`

	// Corners start at the top-left corner of the code as printed and run
	// clockwise on screen.
	Corners [4]geometry.Point2 `json:"corners"`

	// Distance is the number of cells that disagreed with the codeword.
	Distance int `json:"distance"`

	// Rotation is the index of the quad corner that became Corners[0].
	Rotation int `json:"rotation"`
}

// Decoder matches sampled grids against a codec. It holds no per-frame
// state and is safe for concurrent use.
type Decoder struct {
	codec *codec.Codec
}

// NewDecoder returns a decoder over c; nil selects a codec with the default
// Hamming tolerance.
func NewDecoder(c *codec.Codec) *Decoder {
	if c == nil {
		c = codec.New(-1)
	}
	return &Decoder{codec: c}
}

// Codec returns the code table used for matching.
func (d *Decoder) Codec() *codec.Codec { return d.codec }

// Decode samples quad in f and returns the tag it carries.
//
// Every rotation of the sampled grid is tried. The closest match wins; on
// equal distance the lower rotation index wins, and the codec already
// prefers the lower identifier.
func (d *Decoder) Decode(f *imaging.Frame, quad [4]geometry.Point2) (Tag, bool) {
	grid, ok := ReadBits(f, quad)
	if !ok {
		return Tag{}, false
	}
	return d.Match(grid, quad)
}

// Match finds the rotation of grid that best matches a codeword and orders
// quad accordingly.
func (d *Decoder) Match(grid Grid, quad [4]geometry.Point2) (Tag, bool) {
	best := codec.Match{ID: -1, Distance: codec.Bits + 1}
	rotation := -1
	g := grid
	for k := 0; k < 4; k++ {
		if m, ok := d.codec.Decode(g.Codeword()); ok && m.Distance < best.Distance {
			best = m
			rotation = k
		}
		g = g.Rotate()
	}
	if rotation < 0 {
		return Tag{}, false
	}

	t := Tag{ID: best.ID, Distance: best.Distance, Rotation: rotation}
	for p := 0; p < 4; p++ {
		t.Corners[p] = quad[(p+rotation)%4]
	}
	return t, true
}
