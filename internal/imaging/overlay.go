package imaging

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math"
	"strconv"

	"github.com/lucasb-eyer/go-colorful"

	"github.com/ironsheep/fiducial-mcp/internal/geometry"
)

// OverlayTag is one outline to draw: a labelled quadrilateral.
type OverlayTag struct {
	ID      int
	Corners [4]geometry.Point2
}

// OverlayResult contains the annotated frame.
type OverlayResult struct {
	EncodedImage
	TagCount int `json:"tag_count"`
}

// Overlay draws each tag outline on top of the frame in its own colour, marks
// corner 0 with a filled square and prints the identifier next to it.
//
// outlineHex overrides the per-identifier colours when it parses as a hex
// colour ("#RRGGBB" or "#RRGGBBAA"); pass "" to keep them.
func Overlay(f *Frame, tags []OverlayTag, outlineHex string) (*OverlayResult, error) {
	if f.Empty() {
		return nil, fmt.Errorf("cannot draw on an empty frame")
	}
	bounds := image.Rect(0, 0, f.Width, f.Height)

	override, err := parseHexColor(outlineHex)
	useOverride := err == nil

	result := image.NewRGBA(bounds)
	draw.Draw(result, bounds, f.Gray(), bounds.Min, draw.Src)

	labelColor := color.RGBA{255, 255, 255, 255}
	bgColor := color.RGBA{0, 0, 0, 180}

	for _, tag := range tags {
		c := TagColor(tag.ID)
		if useOverride {
			c = override
		}
		for i := 0; i < 4; i++ {
			drawLine(result, tag.Corners[i], tag.Corners[(i+1)%4], c)
		}
		origin := tag.Corners[0]
		ox, oy := int(math.Round(origin.X)), int(math.Round(origin.Y))
		for dy := -2; dy <= 2; dy++ {
			for dx := -2; dx <= 2; dx++ {
				setClipped(result, ox+dx, oy+dy, c)
			}
		}
		drawLabel(result, ox+4, oy+4, strconv.Itoa(tag.ID), labelColor, bgColor)
	}

	enc, err := EncodePNG(result)
	if err != nil {
		return nil, err
	}
	return &OverlayResult{EncodedImage: *enc, TagCount: len(tags)}, nil
}

// TagColor returns a stable, saturated colour for an identifier. Hues are
// spread by the golden angle so consecutive identifiers stay distinguishable.
func TagColor(id int) color.RGBA {
	hue := math.Mod(float64(id)*137.508, 360)
	r, g, b := colorful.Hsv(hue, 0.85, 1).RGB255()
	return color.RGBA{R: r, G: g, B: b, A: 255}
}

// drawLine rasterizes a segment with one sample per pixel step.
func drawLine(img *image.RGBA, a, b geometry.Point2, c color.RGBA) {
	steps := int(math.Ceil(math.Max(math.Abs(b.X-a.X), math.Abs(b.Y-a.Y))))
	if steps == 0 {
		setClipped(img, int(math.Round(a.X)), int(math.Round(a.Y)), c)
		return
	}
	for i := 0; i <= steps; i++ {
		t := float64(i) / float64(steps)
		x := a.X + (b.X-a.X)*t
		y := a.Y + (b.Y-a.Y)*t
		setClipped(img, int(math.Round(x)), int(math.Round(y)), c)
	}
}

func setClipped(img *image.RGBA, x, y int, c color.RGBA) {
	if image.Pt(x, y).In(img.Bounds()) {
		img.SetRGBA(x, y, c)
	}
}

// parseHexColor parses a hex color string like "#FF0000" or "#FF000080"
func parseHexColor(hex string) (color.RGBA, error) {
	if len(hex) == 0 {
		return color.RGBA{}, fmt.Errorf("empty color string")
	}
	if hex[0] == '#' {
		hex = hex[1:]
	}

	var r, g, b, a uint8 = 0, 0, 0, 255

	switch len(hex) {
	case 6:
		val, err := strconv.ParseUint(hex, 16, 32)
		if err != nil {
			return color.RGBA{}, err
		}
		r = uint8(val >> 16)
		g = uint8(val >> 8)
		b = uint8(val)
	case 8:
		val, err := strconv.ParseUint(hex, 16, 32)
		if err != nil {
			return color.RGBA{}, err
		}
		r = uint8(val >> 24)
		g = uint8(val >> 16)
		b = uint8(val >> 8)
		a = uint8(val)
	default:
		return color.RGBA{}, fmt.Errorf("invalid hex color length")
	}

	return color.RGBA{R: r, G: g, B: b, A: a}, nil
}

// drawLabel draws a simple text label at the given position using a 3x5
// pixel font. Only digits and '-' are known; other runes leave a gap.
func drawLabel(img *image.RGBA, x, y int, text string, fg, bg color.RGBA) {
	glyphs := map[rune][]string{
		'0': {"111", "101", "101", "101", "111"},
		'1': {"010", "110", "010", "010", "111"},
		'2': {"111", "001", "111", "100", "111"},
		'3': {"111", "001", "111", "001", "111"},
		'4': {"101", "101", "111", "001", "001"},
		'5': {"111", "100", "111", "001", "111"},
		'6': {"111", "100", "111", "101", "111"},
		'7': {"111", "001", "001", "001", "001"},
		'8': {"111", "101", "111", "101", "111"},
		'9': {"111", "101", "111", "001", "111"},
		'-': {"000", "000", "111", "000", "000"},
	}

	charWidth := 4
	labelWidth := len(text) * charWidth
	labelHeight := 7

	for dy := -1; dy < labelHeight; dy++ {
		for dx := -1; dx < labelWidth; dx++ {
			setClipped(img, x+dx, y+dy, bg)
		}
	}

	cx := x
	for _, ch := range text {
		glyph, ok := glyphs[ch]
		if !ok {
			cx += charWidth
			continue
		}
		for row, line := range glyph {
			for col, pixel := range line {
				if pixel == '1' {
					setClipped(img, cx+col, y+row, fg)
				}
			}
		}
		cx += charWidth
	}
}
