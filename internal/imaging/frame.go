package imaging

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"math"

	"github.com/anthonynsimon/bild/effect"
	"github.com/disintegration/imaging"
)

// Frame is an 8-bit grayscale image stored row-major with no padding.
//
// A Frame handed to a detection pass is borrowed for the duration of the call;
// nothing in the pipeline keeps a reference to Pix afterwards, and nothing
// writes to it.
type Frame struct {
	// Width is the number of columns.
	Width int

	// Height is the number of rows.
	Height int

	// Pix holds Width*Height intensity samples, 0 = black, 255 = white.
	Pix []uint8
}

// NewFrame wraps pix as a Frame after checking its length.
func NewFrame(width, height int, pix []uint8) (*Frame, error) {
	if width < 0 || height < 0 {
		return nil, fmt.Errorf("invalid frame size %dx%d", width, height)
	}
	if len(pix) != width*height {
		return nil, fmt.Errorf("frame buffer has %d bytes, want %d for %dx%d", len(pix), width*height, width, height)
	}
	return &Frame{Width: width, Height: height, Pix: pix}, nil
}

// BlankFrame returns a frame filled with a single intensity.
func BlankFrame(width, height int, value uint8) *Frame {
	pix := make([]uint8, width*height)
	if value != 0 {
		for i := range pix {
			pix[i] = value
		}
	}
	return &Frame{Width: width, Height: height, Pix: pix}
}

// FrameFromImage converts any image to a grayscale Frame.
func FrameFromImage(img image.Image) *Frame {
	// Grayscale writes the luminance to all three colour channels; R is read.
	gray := effect.Grayscale(img)
	b := gray.Bounds()
	w, h := b.Dx(), b.Dy()
	pix := make([]uint8, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			pix[y*w+x] = gray.Pix[y*gray.Stride+x*4]
		}
	}
	return &Frame{Width: w, Height: h, Pix: pix}
}

// DecodeFrameBase64 decodes a raw base64 grayscale buffer of the given size.
func DecodeFrameBase64(data string, width, height int) (*Frame, error) {
	pix, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode frame buffer: %w", err)
	}
	return NewFrame(width, height, pix)
}

// Empty reports whether the frame has no pixels.
func (f *Frame) Empty() bool {
	return f == nil || f.Width == 0 || f.Height == 0
}

// At returns the sample at (x, y). Coordinates must be inside the frame.
func (f *Frame) At(x, y int) uint8 {
	return f.Pix[y*f.Width+x]
}

// Set writes the sample at (x, y).
func (f *Frame) Set(x, y int, v uint8) {
	f.Pix[y*f.Width+x] = v
}

// Bilinear samples the frame at a sub-pixel position. Pixel centres sit on
// integer coordinates and samples outside the frame are clamped to the edge.
func (f *Frame) Bilinear(x, y float64) float64 {
	if f.Empty() {
		return 0
	}
	x = math.Max(0, math.Min(x, float64(f.Width-1)))
	y = math.Max(0, math.Min(y, float64(f.Height-1)))

	x0 := int(x)
	y0 := int(y)
	x1 := clamp(x0+1, 0, f.Width-1)
	y1 := clamp(y0+1, 0, f.Height-1)
	fx := x - float64(x0)
	fy := y - float64(y0)

	top := float64(f.At(x0, y0))*(1-fx) + float64(f.At(x1, y0))*fx
	bottom := float64(f.At(x0, y1))*(1-fx) + float64(f.At(x1, y1))*fx
	return top*(1-fy) + bottom*fy
}

// Clone returns a deep copy.
func (f *Frame) Clone() *Frame {
	pix := make([]uint8, len(f.Pix))
	copy(pix, f.Pix)
	return &Frame{Width: f.Width, Height: f.Height, Pix: pix}
}

// Gray returns the frame as an *image.Gray sharing no memory with f.
func (f *Frame) Gray() *image.Gray {
	img := image.NewGray(image.Rect(0, 0, f.Width, f.Height))
	copy(img.Pix, f.Pix)
	return img
}

// EncodedImage is a PNG rendering of a frame, ready for JSON transport.
type EncodedImage struct {
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	ImageBase64 string `json:"image_base64"`
	MimeType    string `json:"mime_type"`
}

// EncodePNG renders img as a base64 PNG.
func EncodePNG(img image.Image) (*EncodedImage, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}
	b := img.Bounds()
	return &EncodedImage{
		Width:       b.Dx(),
		Height:      b.Dy(),
		ImageBase64: base64.StdEncoding.EncodeToString(buf.Bytes()),
		MimeType:    "image/png",
	}, nil
}
