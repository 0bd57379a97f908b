// Package transform post-processes decoded frames before they are rendered.
//
// The order is fixed: resize, flip, rotate, gamma. Resizing first keeps the
// later stages cheap, flipping before rotating keeps the flip axes in image
// space, and the gamma remap sees the final pixel layout. Disabled stages are
// not part of the pipeline at all.
package transform

import (
	"errors"
	"fmt"
	"image"
)

// ErrCorruptFrame is returned when a frame has no pixels before or after a stage.
var ErrCorruptFrame = errors.New("corrupt frame")

// Options selects the stages. Zero values disable a stage, except Gamma where
// any negative value disables it.
type Options struct {
	Width  uint
	Height uint
	Flip   string
	Angle  int
	Gamma  float64
}

// Stage is a single frame transform. Stages return a new image and never
// modify their input.
type Stage interface {
	Name() string
	Apply(src *image.RGBA) *image.RGBA
}

// Pipeline applies its stages in order.
type Pipeline struct {
	stages []Stage
}

// New builds the pipeline for opts.
func New(opts Options) *Pipeline {
	var stages []Stage
	if opts.Width != 0 && opts.Height != 0 {
		stages = append(stages, Resize{Width: int(opts.Width), Height: int(opts.Height)})
	}
	if opts.Flip != "" {
		stages = append(stages, NewFlip(opts.Flip))
	}
	if opts.Angle != 0 {
		stages = append(stages, Rotate{Degrees: float64(opts.Angle)})
	}
	if opts.Gamma >= 0 {
		stages = append(stages, NewGamma(opts.Gamma))
	}
	return &Pipeline{stages: stages}
}

// Stages returns the active stage names in application order.
func (p *Pipeline) Stages() []string {
	names := make([]string, len(p.stages))
	for i, s := range p.stages {
		names[i] = s.Name()
	}
	return names
}

// Apply runs every stage. With no active stages the input is returned as is.
func (p *Pipeline) Apply(frame *image.RGBA) (*image.RGBA, error) {
	if empty(frame) {
		return nil, ErrCorruptFrame
	}
	for _, stage := range p.stages {
		frame = stage.Apply(frame)
		if empty(frame) {
			return nil, fmt.Errorf("after %s: %w", stage.Name(), ErrCorruptFrame)
		}
	}
	return frame, nil
}

func empty(img *image.RGBA) bool {
	return img == nil || img.Bounds().Dx() <= 0 || img.Bounds().Dy() <= 0
}
