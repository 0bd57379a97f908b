//go:build linux

package v4l2

import (
	"errors"
	"fmt"
	"syscall"
	"unsafe"
)

// commonResolutions are offered for stepwise or continuous frame sizes.
var commonResolutions = []Resolution{
	{320, 240},
	{640, 480},
	{800, 600},
	{1024, 768},
	{1280, 720},
	{1280, 960},
	{1280, 1024},
	{1920, 1080},
	{1920, 1200},
	{2560, 1440},
	{3840, 2160},
}

// commonFramerates are offered for stepwise or continuous frame intervals.
var commonFramerates = []Framerate{
	{1, 60}, {1, 50}, {1, 30}, {1, 25}, {1, 20}, {1, 15}, {1, 10}, {1, 5},
}

// GetFormats lists the capture pixel formats of a device.
func GetFormats(devicePath string) ([]FormatInfo, error) {
	fd, err := openFd(devicePath)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", devicePath, err)
	}
	defer closeFd(fd)

	var formats []FormatInfo
	for i := uint32(0); ; i++ {
		desc := v4l2Fmtdesc{index: i, typ: bufTypeVideoCapture}
		if err := ioctl(fd, vidiocEnumFmt, unsafe.Pointer(&desc)); err != nil {
			if errors.Is(err, syscall.EINVAL) {
				break
			}
			return nil, fmt.Errorf("enumerate format %d: %w", i, err)
		}
		formats = append(formats, FormatInfo{
			PixelFormat: desc.pixelFormat,
			FormatName:  cstr(desc.description[:]),
			Emulated:    desc.flags&fmtFlagEmulated != 0,
		})
	}
	return formats, nil
}

// GetResolutions lists the frame sizes for a pixel format.
func GetResolutions(devicePath string, pixelFormat uint32) ([]Resolution, error) {
	fd, err := openFd(devicePath)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", devicePath, err)
	}
	defer closeFd(fd)

	var out []Resolution
	for i := uint32(0); ; i++ {
		fs := v4l2Frmsizeenum{index: i, pixelFormat: pixelFormat}
		if err := ioctl(fd, vidiocEnumFramesizes, unsafe.Pointer(&fs)); err != nil {
			switch {
			case errors.Is(err, syscall.EINVAL):
				return out, nil
			case errors.Is(err, syscall.ENOTTY):
				return []Resolution{}, nil
			}
			return nil, fmt.Errorf("enumerate frame size %d: %w", i, err)
		}

		switch fs.typ {
		case frmsizeTypeDiscrete:
			d := fs.discrete()
			out = append(out, Resolution{Width: d.width, Height: d.height})
		case frmsizeTypeContinuous, frmsizeTypeStepwise:
			return append(out, stepwiseResolutions(fs.stepwise())...), nil
		}
	}
}

// GetFramerates lists the frame intervals for a format and size.
func GetFramerates(devicePath string, pixelFormat, width, height uint32) ([]Framerate, error) {
	fd, err := openFd(devicePath)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", devicePath, err)
	}
	defer closeFd(fd)

	var out []Framerate
	for i := uint32(0); ; i++ {
		fi := v4l2Frmivalenum{index: i, pixelFormat: pixelFormat, width: width, height: height}
		if err := ioctl(fd, vidiocEnumFrameintervals, unsafe.Pointer(&fi)); err != nil {
			if errors.Is(err, syscall.EINVAL) {
				return out, nil
			}
			return nil, fmt.Errorf("enumerate frame interval %d: %w", i, err)
		}

		switch fi.typ {
		case frmivalTypeDiscrete:
			d := fi.discrete()
			out = append(out, Framerate{Numerator: d.numerator, Denominator: d.denominator})
		case frmivalTypeContinuous, frmivalTypeStepwise:
			return append(out, commonFramerates...), nil
		}
	}
}

func stepwiseResolutions(sw *v4l2FrmsizeStepwise) []Resolution {
	var out []Resolution
	for _, r := range commonResolutions {
		if r.Width >= sw.minWidth && r.Width <= sw.maxWidth &&
			r.Height >= sw.minHeight && r.Height <= sw.maxHeight {
			out = append(out, r)
		}
	}
	return out
}

// SupportsResolution reports whether any capture format offers w x h.
func SupportsResolution(devicePath string, w, h uint32) (bool, error) {
	formats, err := GetFormats(devicePath)
	if err != nil {
		return false, err
	}
	for _, f := range formats {
		res, err := GetResolutions(devicePath, f.PixelFormat)
		if err != nil {
			return false, err
		}
		for _, r := range res {
			if r.Width == w && r.Height == h {
				return true, nil
			}
		}
	}
	return false, nil
}

// FormatFourCC renders a pixel format code as its four characters.
func FormatFourCC(format uint32) string {
	return string([]byte{
		byte(format),
		byte(format >> 8),
		byte(format >> 16),
		byte(format >> 24),
	})
}
