// Package codec compresses frames for the wire and restores them on receipt.
// The wire container is a baseline JPEG byte stream.
package codec

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/draw"
	"image/jpeg"
)

// DefaultQuality is used when a stream does not set "encode".
const DefaultQuality = 80

// ErrEmptyFrame marks a frame with no pixels.
var ErrEmptyFrame = errors.New("empty frame")

// Encode compresses img as JPEG. quality is handed to the encoder as its only
// parameter; the encoder clamps it to 1..100.
func Encode(img image.Image, quality int) ([]byte, error) {
	if img == nil || img.Bounds().Dx() == 0 || img.Bounds().Dy() == 0 {
		return nil, ErrEmptyFrame
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("jpeg encode: %w", err)
	}
	return buf.Bytes(), nil
}

// Decode restores a frame from JPEG bytes. Undecodable data and images with a
// zero dimension both report ErrEmptyFrame so callers can skip the iteration.
func Decode(data []byte) (*image.RGBA, error) {
	img, err := jpeg.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEmptyFrame, err)
	}
	if img.Bounds().Dx() == 0 || img.Bounds().Dy() == 0 {
		return nil, ErrEmptyFrame
	}
	return ToRGBA(img), nil
}

// ToRGBA returns img as an *image.RGBA anchored at the origin, converting
// only when needed.
func ToRGBA(img image.Image) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok && rgba.Bounds().Min == (image.Point{}) {
		return rgba
	}
	b := img.Bounds()
	rgba := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(rgba, rgba.Bounds(), img, b.Min, draw.Src)
	return rgba
}
