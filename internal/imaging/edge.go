package imaging

// GradientField holds the Sobel derivatives of a smoothed frame.
//
// GX grows where the frame brightens to the right, GY where it brightens
// downwards. Values are in gray levels per pixel (scaled by the Sobel weight
// of 4 along each axis, which cancels out in every use of the field).
type GradientField struct {
	Width  int
	Height int
	GX     []float64
	GY     []float64
}

// Gradients computes the image gradient after a 5x5 Gaussian blur.
//
// # Algorithm
//
//  1. Gaussian blur: 5x5 kernel (sigma ≈ 1.4) to reduce noise
//
//  2. Gradient computation: Sobel operators for X and Y gradients
//     magnitude = sqrt(Gx² + Gy²)
//
// Border pixels use clamped (replicated) edge values.
func Gradients(f *Frame) *GradientField {
	if f.Empty() {
		return &GradientField{}
	}
	width, height := f.Width, f.Height

	gray := make([][]float64, height)
	for y := 0; y < height; y++ {
		gray[y] = make([]float64, width)
		for x := 0; x < width; x++ {
			gray[y][x] = float64(f.At(x, y))
		}
	}
	blurred := gaussianBlur(gray, width, height)

	sobelX := [][]float64{
		{-1, 0, 1},
		{-2, 0, 2},
		{-1, 0, 1},
	}
	sobelY := [][]float64{
		{-1, -2, -1},
		{0, 0, 0},
		{1, 2, 1},
	}

	g := &GradientField{
		Width:  width,
		Height: height,
		GX:     make([]float64, width*height),
		GY:     make([]float64, width*height),
	}
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			var gx, gy float64
			for ky := -1; ky <= 1; ky++ {
				for kx := -1; kx <= 1; kx++ {
					py := clamp(y+ky, 0, height-1)
					px := clamp(x+kx, 0, width-1)
					gx += blurred[py][px] * sobelX[ky+1][kx+1]
					gy += blurred[py][px] * sobelY[ky+1][kx+1]
				}
			}
			g.GX[y*width+x] = gx
			g.GY[y*width+x] = gy
		}
	}
	return g
}

// Along returns the bilinearly interpolated gradient at (x, y) projected on
// the direction (dx, dy). Positions outside the field return 0.
func (g *GradientField) Along(x, y, dx, dy float64) float64 {
	if x < 0 || y < 0 || x > float64(g.Width-1) || y > float64(g.Height-1) {
		return 0
	}
	x0 := int(x)
	y0 := int(y)
	x1 := clamp(x0+1, 0, g.Width-1)
	y1 := clamp(y0+1, 0, g.Height-1)
	fx := x - float64(x0)
	fy := y - float64(y0)

	at := func(px, py int) float64 {
		i := py*g.Width + px
		return g.GX[i]*dx + g.GY[i]*dy
	}
	top := at(x0, y0)*(1-fx) + at(x1, y0)*fx
	bottom := at(x0, y1)*(1-fx) + at(x1, y1)*fx
	return top*(1-fy) + bottom*fy
}

// gaussianBlur applies a 5x5 Gaussian blur to reduce noise before gradient
// computation.
//
// Uses a standard 5x5 Gaussian kernel with sigma ≈ 1.4:
//
//	1  4  7  4  1
//	4 16 26 16  4
//	7 26 41 26  7
//	4 16 26 16  4
//	1  4  7  4  1
//
// Total kernel sum = 273, used for normalization.
// Border pixels use clamped (replicated) edge values.
func gaussianBlur(img [][]float64, width, height int) [][]float64 {
	kernel := [][]float64{
		{1, 4, 7, 4, 1},
		{4, 16, 26, 16, 4},
		{7, 26, 41, 26, 7},
		{4, 16, 26, 16, 4},
		{1, 4, 7, 4, 1},
	}
	kernelSum := 273.0

	result := make([][]float64, height)
	for y := 0; y < height; y++ {
		result[y] = make([]float64, width)
		for x := 0; x < width; x++ {
			var sum float64
			for ky := -2; ky <= 2; ky++ {
				for kx := -2; kx <= 2; kx++ {
					py := clamp(y+ky, 0, height-1)
					px := clamp(x+kx, 0, width-1)
					sum += img[py][px] * kernel[ky+2][kx+2]
				}
			}
			result[y][x] = sum / kernelSum
		}
	}
	return result
}

// clamp constrains an integer value to the range [min, max].
// Used for boundary handling in convolution operations.
func clamp(val, min, max int) int {
	if val < min {
		return min
	}
	if val > max {
		return max
	}
	return val
}
