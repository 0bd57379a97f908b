package transform

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	red   = color.RGBA{R: 255, A: 255}
	green = color.RGBA{G: 255, A: 255}
	blue  = color.RGBA{B: 255, A: 255}
	white = color.RGBA{R: 255, G: 255, B: 255, A: 255}
)

// row builds a 1-pixel-high image from the given colours.
func row(colors ...color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, len(colors), 1))
	for x, c := range colors {
		img.SetRGBA(x, 0, c)
	}
	return img
}

// grid builds a 2x2 image: a b / c d.
func grid(a, b, c, d color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	img.SetRGBA(0, 0, a)
	img.SetRGBA(1, 0, b)
	img.SetRGBA(0, 1, c)
	img.SetRGBA(1, 1, d)
	return img
}

func noisy(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = uint8(i * 37)
	}
	return img
}

func TestDisabledPipelineIsIdentity(t *testing.T) {
	p := New(Options{Gamma: -1})
	assert.Empty(t, p.Stages())

	src := noisy(16, 9)
	orig := append([]byte(nil), src.Pix...)

	got, err := p.Apply(src)
	require.NoError(t, err)
	assert.Same(t, src, got, "no stage means no copy")
	assert.True(t, bytes.Equal(orig, got.Pix))
}

func TestStageOrder(t *testing.T) {
	p := New(Options{Width: 4, Height: 2, Flip: "h", Angle: 90, Gamma: 2.2})
	assert.Equal(t, []string{"resize(4x2)", "flip(h)", "rotate(90)", "gamma(2.2)"}, p.Stages())

	// Resize needs both dimensions.
	assert.Empty(t, New(Options{Width: 4, Gamma: -1}).Stages())
	assert.Empty(t, New(Options{Height: 4, Gamma: -1}).Stages())
}

func TestResizeExactDimensions(t *testing.T) {
	got := Resize{Width: 7, Height: 3}.Apply(noisy(20, 20))
	assert.Equal(t, image.Rect(0, 0, 7, 3), got.Bounds())

	up := Resize{Width: 8, Height: 8}.Apply(grid(white, white, white, white))
	assert.Equal(t, white, up.RGBAAt(4, 4))
}

func TestFlipModes(t *testing.T) {
	tests := []struct {
		flip string
		mode FlipMode
		want *image.RGBA
	}{
		{"h", FlipHorizontal, grid(green, red, white, blue)},
		{"v", FlipVertical, grid(blue, white, red, green)},
		{"hv", FlipBoth, grid(white, blue, green, red)},
		{"vh", FlipBoth, grid(white, blue, green, red)},
		// Neither marker present still flips both axes.
		{"x", FlipBoth, grid(white, blue, green, red)},
	}

	for _, tt := range tests {
		t.Run(tt.flip, func(t *testing.T) {
			f := NewFlip(tt.flip)
			assert.Equal(t, tt.mode, f.Mode)

			src := grid(red, green, blue, white)
			got := f.Apply(src)
			assert.Equal(t, tt.want.Pix, got.Pix)
			assert.Equal(t, red, src.RGBAAt(0, 0), "input untouched")
		})
	}
}

func TestRotateGrowsToBoundingBox(t *testing.T) {
	src := row(red, green, blue)

	got := Rotate{Degrees: 90}.Apply(src)
	require.Equal(t, image.Rect(0, 0, 1, 3), got.Bounds())

	// Counter-clockwise: the right end ends up on top.
	assertNear(t, blue, got.RGBAAt(0, 0))
	assertNear(t, green, got.RGBAAt(0, 1))
	assertNear(t, red, got.RGBAAt(0, 2))

	cw := Rotate{Degrees: -90}.Apply(src)
	assertNear(t, red, cw.RGBAAt(0, 0))
	assertNear(t, blue, cw.RGBAAt(0, 2))

	half := Rotate{Degrees: 180}.Apply(src)
	require.Equal(t, image.Rect(0, 0, 3, 1), half.Bounds())
	assertNear(t, blue, half.RGBAAt(0, 0))
	assertNear(t, red, half.RGBAAt(2, 0))
}

func TestRotate45(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 100, 50))
	for i := range src.Pix {
		src.Pix[i] = 255
	}

	got := Rotate{Degrees: 45}.Apply(src)
	// |100 cos45| + |50 sin45| = 106.07
	assert.Equal(t, image.Rect(0, 0, 106, 106), got.Bounds())

	// Centre is content, corners are black background.
	assertNear(t, white, got.RGBAAt(53, 53))
	assert.Equal(t, color.RGBA{A: 255}, got.RGBAAt(0, 0))
}

func TestGammaLUT(t *testing.T) {
	identity := NewGamma(1.0).LUT()
	for i, v := range identity {
		assert.Equal(t, uint8(i), v)
	}

	dark := NewGamma(2.0).LUT()
	assert.Equal(t, uint8(0), dark[0])
	assert.Equal(t, uint8(64), dark[128]) // 255 * (128/255)^2 = 64.25
	assert.Equal(t, uint8(255), dark[255])

	flat := NewGamma(0).LUT()
	assert.Equal(t, uint8(255), flat[0])
	assert.Equal(t, uint8(255), flat[100])
}

func TestGammaIdentityLeavesPixels(t *testing.T) {
	src := noisy(10, 10)
	for i := 3; i < len(src.Pix); i += 4 {
		src.Pix[i] = 255
	}

	got, err := New(Options{Gamma: 1.0}).Apply(src)
	require.NoError(t, err)
	assert.Equal(t, src.Pix, got.Pix)
}

func TestGammaKeepsAlpha(t *testing.T) {
	src := row(color.RGBA{R: 128, G: 128, B: 128, A: 200})
	got := NewGamma(2).Apply(src)
	assert.Equal(t, color.RGBA{R: 64, G: 64, B: 64, A: 200}, got.RGBAAt(0, 0))
}

func TestCorruptFrames(t *testing.T) {
	p := New(Options{Gamma: 1})

	_, err := p.Apply(image.NewRGBA(image.Rect(0, 0, 0, 5)))
	assert.True(t, errors.Is(err, ErrCorruptFrame))

	_, err = p.Apply(nil)
	assert.ErrorIs(t, err, ErrCorruptFrame)

	_, err = New(Options{Gamma: -1}).Apply(image.NewRGBA(image.Rect(0, 0, 4, 0)))
	assert.ErrorIs(t, err, ErrCorruptFrame)
}

func TestStageProducingEmptyFrameIsCorrupt(t *testing.T) {
	p := &Pipeline{stages: []Stage{Resize{Width: 0, Height: 3}}}
	_, err := p.Apply(noisy(4, 4))
	assert.ErrorIs(t, err, ErrCorruptFrame)
	assert.Contains(t, err.Error(), "resize")
}

func assertNear(t *testing.T, want, got color.RGBA) {
	t.Helper()
	assert.InDelta(t, int(want.R), int(got.R), 2, "R want %v got %v", want, got)
	assert.InDelta(t, int(want.G), int(got.G), 2, "G want %v got %v", want, got)
	assert.InDelta(t, int(want.B), int(got.B), 2, "B want %v got %v", want, got)
}
