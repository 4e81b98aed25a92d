package imaging

// BinaryImage is a per-pixel foreground mask. Foreground (true) marks pixels
// darker than their neighbourhood, which is where tag borders and black code
// cells end up.
type BinaryImage struct {
	Width  int
	Height int
	Pix    []bool
}

// At reports whether (x, y) is foreground. Out-of-range coordinates are
// background.
func (b *BinaryImage) At(x, y int) bool {
	if x < 0 || y < 0 || x >= b.Width || y >= b.Height {
		return false
	}
	return b.Pix[y*b.Width+x]
}

// Count returns the number of foreground pixels.
func (b *BinaryImage) Count() int {
	n := 0
	for _, v := range b.Pix {
		if v {
			n++
		}
	}
	return n
}

// BinarizeOptions tunes the adaptive threshold.
type BinarizeOptions struct {
	// WindowFraction is the side of the averaging window as a fraction of the
	// smaller frame dimension. Default 0.1.
	WindowFraction float64

	// Threshold is the fraction of the local mean below which a pixel is
	// foreground. Default 0.9.
	Threshold float64
}

// DefaultBinarizeOptions returns the thresholds used by the detector.
func DefaultBinarizeOptions() BinarizeOptions {
	return BinarizeOptions{WindowFraction: 0.1, Threshold: 0.9}
}

// Binarize thresholds every pixel against the mean of a square window around
// it, which keeps working when one side of the frame is lit much more than
// the other.
//
// Window sums come from an integral image, so the cost is linear in the
// number of pixels whatever the window size.
func Binarize(f *Frame, opts BinarizeOptions) *BinaryImage {
	if f.Empty() {
		return &BinaryImage{}
	}
	if opts.WindowFraction <= 0 {
		opts.WindowFraction = 0.1
	}
	if opts.Threshold <= 0 {
		opts.Threshold = 0.9
	}

	w, h := f.Width, f.Height
	smaller := w
	if h < smaller {
		smaller = h
	}
	half := int(opts.WindowFraction * float64(smaller) / 2)
	if half < 1 {
		half = 1
	}

	// integral has one extra row and column of zeros
	stride := w + 1
	integral := make([]uint64, stride*(h+1))
	for y := 0; y < h; y++ {
		var rowSum uint64
		for x := 0; x < w; x++ {
			rowSum += uint64(f.Pix[y*w+x])
			integral[(y+1)*stride+x+1] = integral[y*stride+x+1] + rowSum
		}
	}

	// compare in fixed point: value*count*256 < sum*threshold*256. The strict
	// inequality keeps flat regions, black ones included, in the background.
	tq := uint64(opts.Threshold*256 + 0.5)
	out := &BinaryImage{Width: w, Height: h, Pix: make([]bool, w*h)}
	for y := 0; y < h; y++ {
		y0 := clamp(y-half, 0, h-1)
		y1 := clamp(y+half, 0, h-1) + 1
		for x := 0; x < w; x++ {
			x0 := clamp(x-half, 0, w-1)
			x1 := clamp(x+half, 0, w-1) + 1
			count := uint64((x1 - x0) * (y1 - y0))
			sum := integral[y1*stride+x1] - integral[y0*stride+x1] - integral[y1*stride+x0] + integral[y0*stride+x0]
			v := uint64(f.Pix[y*w+x])
			out.Pix[y*w+x] = v*count*256 < sum*tq
		}
	}
	return out
}
