package decode

import (
	"math"

	"github.com/ironsheep/fiducial-mcp/internal/codec"
	"github.com/ironsheep/fiducial-mcp/internal/geometry"
	"github.com/ironsheep/fiducial-mcp/internal/imaging"
)

const (
	dataSize = codec.GridSize
	margin   = 2
	tagSize  = 2*margin + dataSize

	// ringCells is the number of cells in the border ring touching the data.
	ringCells = 4 * (dataSize + 1)

	// minRingDark is the fraction of ring samples that must read dark.
	minRingDark = 0.85

	// minContrast is the smallest accepted spread between the darkest and
	// brightest sample, in intensity levels.
	minContrast = 20
)

// gridSquare is the tag outline in grid units.
var gridSquare = []geometry.Point2{
	{X: 0, Y: 0},
	{X: tagSize, Y: 0},
	{X: tagSize, Y: tagSize},
	{X: 0, Y: tagSize},
}

// Grid holds the data cells of one sampled quad; true is a white cell.
type Grid [dataSize][dataSize]bool

// Codeword packs the grid in row-major order.
func (g Grid) Codeword() codec.Codeword {
	var w codec.Codeword
	for r := 0; r < dataSize; r++ {
		for c := 0; c < dataSize; c++ {
			if g[r][c] {
				w |= 1 << uint(r*dataSize+c)
			}
		}
	}
	return w
}

// Rotate returns the grid as it reads when started from the next corner of the
// quad: cell (r, c) of the result is cell (c, 5-r) of g.
func (g Grid) Rotate() Grid {
	var out Grid
	for r := 0; r < dataSize; r++ {
		for c := 0; c < dataSize; c++ {
			out[r][c] = g[c][dataSize-1-r]
		}
	}
	return out
}

// ReadBits samples the data cells of the tag whose outer border is corners.
//
// Cell centres are mapped into the frame with the homography from the 10x10
// tag grid to the quad and read with bilinear interpolation. The threshold is
// chosen by Otsu's method over the data cells and the ring of border cells
// around them. ok is false when the quad does not look like a tag: too little
// contrast, or a border ring that is not dark.
func ReadBits(f *imaging.Frame, corners [4]geometry.Point2) (g Grid, ok bool) {
	if f.Empty() {
		return g, false
	}
	h, err := geometry.SolveHomography(gridSquare, corners[:])
	if err != nil {
		return g, false
	}
	sample := func(col, row int) float64 {
		p := h.Apply(geometry.Point2{X: float64(col) + 0.5, Y: float64(row) + 0.5})
		return f.Bilinear(p.X, p.Y)
	}

	var data [dataSize * dataSize]float64
	for r := 0; r < dataSize; r++ {
		for c := 0; c < dataSize; c++ {
			data[r*dataSize+c] = sample(margin+c, margin+r)
		}
	}

	ring := make([]float64, 0, ringCells)
	lo, hi := margin-1, margin+dataSize
	for r := lo; r <= hi; r++ {
		for c := lo; c <= hi; c++ {
			if r == lo || r == hi || c == lo || c == hi {
				ring = append(ring, sample(c, r))
			}
		}
	}

	all := append(data[:], ring...)
	minV, maxV := math.Inf(1), math.Inf(-1)
	for _, v := range all {
		minV = math.Min(minV, v)
		maxV = math.Max(maxV, v)
	}
	if maxV-minV < minContrast {
		return g, false
	}

	threshold := otsu(all)

	dark := 0
	for _, v := range ring {
		if v <= threshold {
			dark++
		}
	}
	if float64(dark) < minRingDark*float64(len(ring)) {
		return g, false
	}

	for r := 0; r < dataSize; r++ {
		for c := 0; c < dataSize; c++ {
			g[r][c] = data[r*dataSize+c] > threshold
		}
	}
	return g, true
}

// otsu splits values into two classes maximising the between-class variance
// and returns the midpoint of the two class means.
func otsu(values []float64) float64 {
	var count [256]float64
	var levelSum [256]float64
	var sum float64
	for _, v := range values {
		l := clampLevel(v)
		count[l]++
		levelSum[l] += v
		sum += v
	}
	total := float64(len(values))

	best := -1.0
	var threshold float64
	var w0, sum0 float64
	for t := 0; t < 255; t++ {
		w0 += count[t]
		sum0 += levelSum[t]
		w1 := total - w0
		if w0 == 0 || w1 == 0 {
			continue
		}
		m0 := sum0 / w0
		m1 := (sum - sum0) / w1
		if between := w0 * w1 * (m1 - m0) * (m1 - m0); between > best {
			best = between
			threshold = (m0 + m1) / 2
		}
	}
	if best < 0 {
		return sum / total
	}
	return threshold
}

func clampLevel(v float64) int {
	l := int(math.Round(v))
	if l < 0 {
		return 0
	}
	if l > 255 {
		return 255
	}
	return l
}
