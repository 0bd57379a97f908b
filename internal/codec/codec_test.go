package codec

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func gradient(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 255 / w), G: uint8(y * 255 / h), B: 128, A: 255})
		}
	}
	return img
}

func TestEncodeDecode(t *testing.T) {
	src := gradient(64, 48)

	data, err := Encode(src, DefaultQuality)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xff, 0xd8}, data[:2], "JPEG SOI marker")

	got, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, src.Bounds(), got.Bounds())

	// Lossy, but a smooth gradient should survive closely.
	c := got.RGBAAt(32, 24)
	want := src.RGBAAt(32, 24)
	assert.InDelta(t, int(want.R), int(c.R), 12)
	assert.InDelta(t, int(want.G), int(c.G), 12)
}

func TestQualityAffectsSize(t *testing.T) {
	src := gradient(128, 128)

	low, err := Encode(src, 10)
	require.NoError(t, err)
	high, err := Encode(src, 95)
	require.NoError(t, err)
	assert.Less(t, len(low), len(high))

	// Out of range values are passed through and clamped by the encoder.
	_, err = Encode(src, 250)
	require.NoError(t, err)
}

func TestEmptyFrames(t *testing.T) {
	_, err := Encode(image.NewRGBA(image.Rect(0, 0, 0, 10)), 80)
	assert.ErrorIs(t, err, ErrEmptyFrame)

	_, err = Decode([]byte("not a jpeg"))
	assert.ErrorIs(t, err, ErrEmptyFrame)

	_, err = Decode(nil)
	assert.ErrorIs(t, err, ErrEmptyFrame)
}

func TestToRGBAOffsetBounds(t *testing.T) {
	src := gradient(10, 10).SubImage(image.Rect(2, 2, 6, 8))
	got := ToRGBA(src)
	assert.Equal(t, image.Rect(0, 0, 4, 6), got.Bounds())
	assert.Equal(t, src.(*image.RGBA).RGBAAt(2, 2), got.RGBAAt(0, 0))
}
