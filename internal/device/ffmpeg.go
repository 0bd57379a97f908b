package device

import (
	"bufio"
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"image"
	"io"
	"log/slog"
	"math"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/image/bmp"

	"github.com/smazurov/zmqls/internal/codec"
	"github.com/smazurov/zmqls/internal/config"
)

// FFmpegBinary is the executable used for capture.
var FFmpegBinary = "ffmpeg"

const (
	stopTimeout   = 5 * time.Second
	bmpHeaderLen  = 14
	maxFrameBytes = 256 << 20
)

var errFrameSync = errors.New("lost bmp frame boundary")

// FFmpegCapture decodes any ffmpeg input into raw frames read from a pipe.
// V4L2 nodes also get their controls set directly through the kernel.
type FFmpegCapture struct {
	ref    config.DeviceRef
	node   string
	logger *slog.Logger
	ctrl   controls // nil unless the source is a V4L2 node

	width, height uint
	fps           float64

	mu        sync.Mutex
	open      bool
	ctx       context.Context
	cmd       *exec.Cmd
	stderr    *logWriter
	frames    *frameReader
	delivered int
	waitOnce  sync.Once
	waitErr   error
}

func openFFmpeg(ref config.DeviceRef, logger *slog.Logger) (*FFmpegCapture, error) {
	if _, err := exec.LookPath(FFmpegBinary); err != nil {
		return nil, err
	}

	c := &FFmpegCapture{ref: ref, node: ref.Node(), logger: logger}
	if isV4L2(ref) {
		ctrl, err := openControls(c.node)
		if err != nil {
			return nil, err
		}
		c.ctrl = ctrl
	} else if !strings.Contains(c.node, "://") {
		if _, err := os.Stat(c.node); err != nil {
			return nil, err
		}
	}
	c.open = true
	return c, nil
}

func isV4L2(ref config.DeviceRef) bool {
	return ref.IsIndex() || strings.HasPrefix(ref.Path, "/dev/video")
}

func (c *FFmpegCapture) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.open
}

// Set records width, height and fps for the ffmpeg input options and writes
// the other settings as V4L2 controls. Files and URLs accept nothing.
func (c *FFmpegCapture) Set(id SettingID, value float64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.open || c.ctrl == nil {
		return false
	}

	switch id {
	case FrameWidth:
		w := uint(math.Round(value))
		if !c.ctrl.hasWidth(w) {
			return false
		}
		c.width = w
		return true
	case FrameHeight:
		h := uint(math.Round(value))
		if !c.ctrl.hasHeight(h) {
			return false
		}
		c.height = h
		return true
	case FPS:
		if value <= 0 {
			return false
		}
		c.fps = value
		return true
	default:
		return c.ctrl.set(id, value)
	}
}

// Args returns the ffmpeg command line for the current settings.
func (c *FFmpegCapture) Args() []string {
	args := []string{"-hide_banner", "-nostdin", "-loglevel", "level+warning"}
	if c.ctrl != nil {
		args = append(args, "-f", "v4l2")
		if c.width > 0 && c.height > 0 {
			args = append(args, "-video_size", fmt.Sprintf("%dx%d", c.width, c.height))
		}
		if c.fps > 0 {
			args = append(args, "-framerate", strconv.FormatFloat(c.fps, 'f', -1, 64))
		}
	}
	return append(args,
		"-i", c.node,
		"-an",
		"-f", "image2pipe",
		"-c:v", "bmp",
		"-pix_fmt", "bgr24",
		"-",
	)
}

// Start launches ffmpeg. The process is interrupted when ctx ends.
func (c *FFmpegCapture) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.open {
		return fmt.Errorf("%w: capture closed", ErrOpen)
	}
	if c.cmd != nil {
		return nil
	}

	args := c.Args()
	cmd := exec.CommandContext(ctx, FFmpegBinary, args...)
	cmd.Cancel = func() error { return cmd.Process.Signal(os.Interrupt) }
	cmd.WaitDelay = stopTimeout
	stderr := &logWriter{logger: c.logger.With("component", "ffmpeg")}
	cmd.Stderr = stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrOpen, err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("%w: start ffmpeg: %w", ErrOpen, err)
	}
	c.logger.Info("Capture process started", "pid", cmd.Process.Pid, "args", strings.Join(args, " "))

	c.ctx = ctx
	c.cmd = cmd
	c.stderr = stderr
	c.frames = newFrameReader(stdout)
	return nil
}

// Read returns the next decoded frame. When ffmpeg goes away before its
// first frame the input could not be opened and Read returns ErrOpen; a
// failure after that is ErrCaptureFailed. Only a clean exit, or one caused by
// cancelling the start context, is ErrEndOfStream.
func (c *FFmpegCapture) Read() (*image.RGBA, error) {
	c.mu.Lock()
	frames := c.frames
	c.mu.Unlock()
	if frames == nil {
		return nil, errors.New("capture not started")
	}

	data, err := frames.next()
	if err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, os.ErrClosed) {
			return nil, c.exited()
		}
		return nil, err
	}
	c.mu.Lock()
	c.delivered++
	c.mu.Unlock()
	c.stderr.markStarted()

	img, err := bmp.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode frame: %w", err)
	}
	return codec.ToRGBA(img), nil
}

func (c *FFmpegCapture) exited() error {
	werr := c.wait()
	c.mu.Lock()
	ctx, delivered := c.ctx, c.delivered
	c.mu.Unlock()

	if ctx != nil && ctx.Err() != nil {
		return ErrEndOfStream
	}
	if werr != nil {
		c.logger.Warn("Capture process exited", "error", werr, "frames", delivered)
	}
	switch {
	case delivered == 0:
		if werr == nil {
			werr = errors.New("exited without a frame")
		}
		return fmt.Errorf("%w %s: ffmpeg %w%s", ErrOpen, c.ref, werr, c.stderr.detail())
	case werr != nil:
		return fmt.Errorf("%w: ffmpeg %w%s", ErrCaptureFailed, werr, c.stderr.detail())
	}
	return ErrEndOfStream
}

func (c *FFmpegCapture) wait() error {
	c.waitOnce.Do(func() { c.waitErr = c.cmd.Wait() })
	return c.waitErr
}

// Close stops ffmpeg, killing it if it ignores the interrupt, and releases
// the control handle.
func (c *FFmpegCapture) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.open {
		return nil
	}
	c.open = false

	var errs []error
	if c.cmd != nil && c.cmd.Process != nil {
		_ = c.cmd.Process.Signal(os.Interrupt)
		done := make(chan error, 1)
		go func() { done <- c.wait() }()
		select {
		case <-done:
		case <-time.After(stopTimeout):
			c.logger.Warn("Capture process ignored interrupt, killing", "pid", c.cmd.Process.Pid)
			if err := c.cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
				errs = append(errs, err)
			}
			<-done
		}
	}
	if c.ctrl != nil {
		errs = append(errs, c.ctrl.close())
	}
	return errors.Join(errs...)
}

// frameReader splits ffmpeg's image2pipe output into whole BMP files using
// the size field of each file header.
type frameReader struct {
	r *bufio.Reader
}

func newFrameReader(r io.Reader) *frameReader {
	return &frameReader{r: bufio.NewReaderSize(r, 1<<20)}
}

func (f *frameReader) next() ([]byte, error) {
	hdr, err := f.r.Peek(bmpHeaderLen)
	if err != nil {
		if errors.Is(err, io.EOF) && len(hdr) > 0 {
			return nil, io.ErrUnexpectedEOF
		}
		return nil, err
	}
	if hdr[0] != 'B' || hdr[1] != 'M' {
		if err := f.resync(); err != nil {
			return nil, err
		}
		return nil, errFrameSync
	}

	size := binary.LittleEndian.Uint32(hdr[2:6])
	if size < bmpHeaderLen || size > maxFrameBytes {
		if _, err := f.r.Discard(2); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("%w: bad size %d", errFrameSync, size)
	}

	buf := make([]byte, size)
	if _, err := io.ReadFull(f.r, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// resync drops bytes up to the next "BM" marker.
func (f *frameReader) resync() error {
	if _, err := f.r.Discard(1); err != nil {
		return err
	}
	for {
		b, err := f.r.Peek(2)
		if err != nil {
			return err
		}
		if b[0] == 'B' && b[1] == 'M' {
			return nil
		}
		if _, err := f.r.Discard(1); err != nil {
			return err
		}
	}
}
