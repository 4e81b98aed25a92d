package imaging

import (
	"encoding/base64"
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewFrame(t *testing.T) {
	f, err := NewFrame(3, 2, []uint8{1, 2, 3, 4, 5, 6})
	require.NoError(t, err)
	assert.Equal(t, uint8(6), f.At(2, 1))
	assert.Equal(t, uint8(2), f.At(1, 0))

	_, err = NewFrame(3, 2, []uint8{1, 2})
	assert.Error(t, err)

	_, err = NewFrame(-1, 2, nil)
	assert.Error(t, err)
}

func TestFrameEmpty(t *testing.T) {
	var nilFrame *Frame
	assert.True(t, nilFrame.Empty())
	assert.True(t, BlankFrame(0, 10, 0).Empty())
	assert.False(t, BlankFrame(1, 1, 0).Empty())
}

func TestFrameBilinear(t *testing.T) {
	f, err := NewFrame(2, 2, []uint8{0, 100, 100, 200})
	require.NoError(t, err)

	assert.InDelta(t, 0, f.Bilinear(0, 0), 1e-9)
	assert.InDelta(t, 50, f.Bilinear(0.5, 0), 1e-9)
	assert.InDelta(t, 100, f.Bilinear(0.5, 0.5), 1e-9)
	assert.InDelta(t, 200, f.Bilinear(1, 1), 1e-9)
	// clamped outside
	assert.InDelta(t, 200, f.Bilinear(5, 5), 1e-9)
	assert.InDelta(t, 0, f.Bilinear(-3, -3), 1e-9)
}

func TestFrameFromImage(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 4, 3))
	for y := 0; y < 3; y++ {
		for x := 0; x < 4; x++ {
			img.Set(x, y, color.White)
		}
	}
	img.Set(1, 1, color.Black)

	f := FrameFromImage(img)
	assert.Equal(t, 4, f.Width)
	assert.Equal(t, 3, f.Height)
	assert.Equal(t, uint8(255), f.At(0, 0))
	assert.Equal(t, uint8(0), f.At(1, 1))
}

func TestDecodeFrameBase64(t *testing.T) {
	raw := []uint8{10, 20, 30, 40}
	f, err := DecodeFrameBase64(base64.StdEncoding.EncodeToString(raw), 2, 2)
	require.NoError(t, err)
	assert.Equal(t, raw, f.Pix)

	_, err = DecodeFrameBase64("!!!", 2, 2)
	assert.Error(t, err)

	_, err = DecodeFrameBase64(base64.StdEncoding.EncodeToString(raw), 3, 3)
	assert.Error(t, err)
}

func TestFrameCloneAndGray(t *testing.T) {
	f := BlankFrame(3, 3, 7)
	c := f.Clone()
	c.Set(0, 0, 99)
	assert.Equal(t, uint8(7), f.At(0, 0), "clone must not alias")

	g := f.Gray()
	g.Pix[0] = 1
	assert.Equal(t, uint8(7), f.At(0, 0), "gray copy must not alias")
}

func TestEncodePNG(t *testing.T) {
	enc, err := EncodePNG(BlankFrame(8, 6, 128).Gray())
	require.NoError(t, err)
	assert.Equal(t, 8, enc.Width)
	assert.Equal(t, 6, enc.Height)
	assert.Equal(t, "image/png", enc.MimeType)
	_, err = base64.StdEncoding.DecodeString(enc.ImageBase64)
	assert.NoError(t, err)
}
