package transform

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"strings"

	"golang.org/x/image/draw"
	"golang.org/x/image/math/f64"
)

// Resize scales to exactly Width x Height with bilinear interpolation.
// Aspect ratio is not preserved.
type Resize struct {
	Width, Height int
}

func (r Resize) Name() string { return fmt.Sprintf("resize(%dx%d)", r.Width, r.Height) }

func (r Resize) Apply(src *image.RGBA) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, r.Width, r.Height))
	draw.BiLinear.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)
	return dst
}

// FlipMode mirrors the cv::flip codes.
type FlipMode int

const (
	FlipVertical   FlipMode = 0  // around the x axis
	FlipHorizontal FlipMode = 1  // around the y axis
	FlipBoth       FlipMode = -1 // point reflection
)

// Flip reflects the frame.
type Flip struct {
	Mode FlipMode
}

// NewFlip parses a flip string: 'h' requests a horizontal flip and 'v' a
// vertical one. A string with both, or with neither, flips both axes.
func NewFlip(s string) Flip {
	h := strings.ContainsRune(s, 'h')
	v := strings.ContainsRune(s, 'v')
	switch {
	case h && !v:
		return Flip{Mode: FlipHorizontal}
	case v && !h:
		return Flip{Mode: FlipVertical}
	default:
		return Flip{Mode: FlipBoth}
	}
}

func (f Flip) Name() string {
	switch f.Mode {
	case FlipHorizontal:
		return "flip(h)"
	case FlipVertical:
		return "flip(v)"
	default:
		return "flip(hv)"
	}
}

func (f Flip) Apply(src *image.RGBA) *image.RGBA {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	mirrorX := f.Mode == FlipHorizontal || f.Mode == FlipBoth
	mirrorY := f.Mode == FlipVertical || f.Mode == FlipBoth

	for y := 0; y < h; y++ {
		sy := y
		if mirrorY {
			sy = h - 1 - y
		}
		srow := src.Pix[src.PixOffset(b.Min.X, b.Min.Y+sy):]
		drow := dst.Pix[dst.PixOffset(0, y):]
		if !mirrorX {
			copy(drow[:w*4], srow[:w*4])
			continue
		}
		for x := 0; x < w; x++ {
			copy(drow[x*4:x*4+4], srow[(w-1-x)*4:(w-1-x)*4+4])
		}
	}
	return dst
}

// Rotate turns the frame counter-clockwise by Degrees about its centre. The
// output grows to the rotated bounding box so no content is cut off; the
// uncovered background is black.
type Rotate struct {
	Degrees float64
}

func (r Rotate) Name() string { return fmt.Sprintf("rotate(%g)", r.Degrees) }

func (r Rotate) Apply(src *image.RGBA) *image.RGBA {
	b := src.Bounds()
	w, h := float64(b.Dx()), float64(b.Dy())

	rad := r.Degrees * math.Pi / 180
	cos, sin := snap(math.Cos(rad)), snap(math.Sin(rad))

	bw := math.Abs(w*cos) + math.Abs(h*sin)
	bh := math.Abs(w*sin) + math.Abs(h*cos)

	// Rotation about the centre of the source, in integer pixel coordinates,
	// then shifted so the bounding box starts at the origin.
	cx, cy := (w-1)/2, (h-1)/2
	tx := (1-cos)*cx - sin*cy + bw/2 - w/2
	ty := sin*cx + (1-cos)*cy + bh/2 - h/2

	// x/image/draw samples at pixel centres (x+0.5); move the translation
	// into that convention.
	tx += 0.5 - 0.5*(cos+sin)
	ty += 0.5 - 0.5*(cos-sin)

	minX, minY := float64(b.Min.X), float64(b.Min.Y)
	s2d := f64.Aff3{
		cos, sin, tx - cos*minX - sin*minY,
		-sin, cos, ty + sin*minX - cos*minY,
	}

	dst := image.NewRGBA(image.Rect(0, 0, int(math.Round(bw)), int(math.Round(bh))))
	draw.Draw(dst, dst.Bounds(), image.NewUniform(color.RGBA{A: 0xff}), image.Point{}, draw.Src)
	draw.BiLinear.Transform(dst, s2d, src, b, draw.Src, nil)
	return dst
}

// snap removes floating point noise so multiples of 90 degrees stay exact.
func snap(v float64) float64 {
	const eps = 1e-12
	switch {
	case math.Abs(v) < eps:
		return 0
	case math.Abs(v-1) < eps:
		return 1
	case math.Abs(v+1) < eps:
		return -1
	}
	return v
}

// Gamma remaps every colour channel through a 256-entry lookup table.
type Gamma struct {
	Value float64
	lut   [256]uint8
}

// NewGamma precomputes lut[i] = clamp(round(255 * (i/255)^g), 0, 255).
func NewGamma(g float64) *Gamma {
	gm := &Gamma{Value: g}
	for i := range gm.lut {
		v := math.Round(255 * math.Pow(float64(i)/255, g))
		gm.lut[i] = uint8(math.Max(0, math.Min(255, v)))
	}
	return gm
}

func (g *Gamma) Name() string { return fmt.Sprintf("gamma(%g)", g.Value) }

// LUT exposes the table for inspection.
func (g *Gamma) LUT() [256]uint8 { return g.lut }

func (g *Gamma) Apply(src *image.RGBA) *image.RGBA {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		srow := src.Pix[src.PixOffset(b.Min.X, b.Min.Y+y):]
		drow := dst.Pix[dst.PixOffset(0, y):]
		for i := 0; i < w*4; i += 4 {
			drow[i] = g.lut[srow[i]]
			drow[i+1] = g.lut[srow[i+1]]
			drow[i+2] = g.lut[srow[i+2]]
			drow[i+3] = srow[i+3]
		}
	}
	return dst
}
