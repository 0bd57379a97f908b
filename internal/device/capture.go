package device

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"strings"

	"github.com/smazurov/zmqls/internal/config"
)

var (
	// ErrOpen is returned when a capture source cannot be opened or started.
	ErrOpen = errors.New("cannot open capture device")
	// ErrEndOfStream is returned by Read once a finite source is exhausted.
	ErrEndOfStream = errors.New("end of stream")
	// ErrCaptureFailed is returned by Read when the capture process dies
	// after delivering frames.
	ErrCaptureFailed = errors.New("capture process failed")
)

// Capture is a frame source with adjustable settings.
type Capture interface {
	Controller
	// Read returns the next frame. ErrEndOfStream, ErrOpen and
	// ErrCaptureFailed end the stream; other errors only affect the current
	// frame.
	Read() (*image.RGBA, error)
	Close() error
}

// Starter is implemented by captures that need an explicit start once the
// settings are applied.
type Starter interface {
	Start(ctx context.Context) error
}

// Open opens the source named by ref. "pattern:WxH" selects the built-in
// test pattern; anything else goes through ffmpeg.
func Open(ref config.DeviceRef, logger *slog.Logger) (Capture, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if !ref.IsIndex() && strings.HasPrefix(ref.Path, PatternScheme+":") {
		p, err := NewPattern(ref.Path)
		if err != nil {
			return nil, fmt.Errorf("%w %s: %w", ErrOpen, ref, err)
		}
		return p, nil
	}
	c, err := openFFmpeg(ref, logger)
	if err != nil {
		return nil, fmt.Errorf("%w %s: %w", ErrOpen, ref, err)
	}
	return c, nil
}
