//go:build linux

package v4l2

import (
	"errors"
	"fmt"
	"math"
	"syscall"
	"testing"
)

func TestFormatFourCC(t *testing.T) {
	tests := []struct {
		format uint32
		want   string
	}{
		{PixFmtYUYV, "YUYV"},
		{PixFmtMJPEG, "MJPG"},
		{PixFmtH264, "H264"},
		{PixFmtHEVC, "HEVC"},
		{PixFmtNV12, "NV12"},
		{0x01020304, "\x04\x03\x02\x01"},
	}
	for _, tt := range tests {
		if got := FormatFourCC(tt.format); got != tt.want {
			t.Errorf("FormatFourCC(0x%08X) = %q, want %q", tt.format, got, tt.want)
		}
	}
}

func TestFramerateFPS(t *testing.T) {
	tests := []struct {
		f    Framerate
		want float64
	}{
		{Framerate{1, 30}, 30},
		{Framerate{1001, 30000}, 29.97},
		{Framerate{2, 25}, 12.5},
		{Framerate{0, 30}, 0},
	}
	for _, tt := range tests {
		if got := tt.f.FPS(); math.Abs(got-tt.want) > 0.01 {
			t.Errorf("%v.FPS() = %v, want %v", tt.f, got, tt.want)
		}
	}
}

func TestControlInRange(t *testing.T) {
	c := ControlInfo{Min: -10, Max: 100}
	tests := map[int32]bool{
		-11: false,
		-10: true,
		0:   true,
		100: true,
		101: false,
	}
	for in, want := range tests {
		if got := c.InRange(in); got != want {
			t.Errorf("InRange(%d) = %v, want %v", in, got, want)
		}
	}
}

func TestCanCapture(t *testing.T) {
	if !(DeviceInfo{Caps: 0x84200001}).CanCapture() {
		t.Error("capture bit set but CanCapture is false")
	}
	if (DeviceInfo{Caps: 0x04000000}).CanCapture() {
		t.Error("streaming-only node reported as capture")
	}
}

func TestControlIDs(t *testing.T) {
	tests := map[uint32]uint32{
		CIDBrightness:       0x00980900,
		CIDHue:              0x00980903,
		CIDGain:             0x00980913,
		CIDExposureAbsolute: 0x009a0902,
	}
	for got, want := range tests {
		if got != want {
			t.Errorf("control id 0x%08x, want 0x%08x", got, want)
		}
	}
}

func TestNodeIndex(t *testing.T) {
	if idx, ok := nodeIndex("video12"); !ok || idx != 12 {
		t.Errorf("video12 = %d, %v", idx, ok)
	}
	for _, name := range []string{"vbi0", "video", "videoX"} {
		if _, ok := nodeIndex(name); ok {
			t.Errorf("%q should not parse", name)
		}
	}
}

func TestControlErrorWrapping(t *testing.T) {
	for _, errno := range []syscall.Errno{syscall.EINVAL, syscall.ERANGE, syscall.EACCES} {
		err := controlError(CIDGain, errno)
		if !errors.Is(err, ErrControlUnsupported) || !errors.Is(err, errno) {
			t.Errorf("%v: got %v", errno, err)
		}
	}
	if err := controlError(CIDGain, syscall.EIO); errors.Is(err, ErrControlUnsupported) {
		t.Errorf("EIO should not be reported as unsupported: %v", err)
	}
}

func TestQueryctrlDecoding(t *testing.T) {
	q := v4l2Queryctrl{
		id:           CIDBrightness,
		typ:          uint32(ControlInteger),
		minimum:      0,
		maximum:      255,
		step:         1,
		defaultValue: 128,
		flags:        ctrlFlagInactive,
	}
	copy(q.name[:], "Brightness")

	got := controlInfo(&q)
	if got.Name != "Brightness" || got.Max != 255 || got.Default != 128 || !got.Inactive || got.Disabled {
		t.Errorf("controlInfo = %+v", got)
	}
	if fmt.Sprint(got.Type) != "int" {
		t.Errorf("Type = %v", got.Type)
	}
}

func TestOpenMissingDevice(t *testing.T) {
	if _, err := Open("/dev/video-does-not-exist"); err == nil {
		t.Fatal("expected error")
	}
}
