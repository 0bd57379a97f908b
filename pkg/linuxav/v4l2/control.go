//go:build linux

package v4l2

import (
	"errors"
	"fmt"
	"syscall"
	"unsafe"
)

// ErrControlUnsupported is returned for controls the driver does not know or
// has disabled.
var ErrControlUnsupported = errors.New("control not supported")

// Device is an open V4L2 node used for control access.
type Device struct {
	path string
	fd   int
}

// Open opens path for control ioctls. It does not start streaming.
func Open(path string) (*Device, error) {
	fd, err := openFd(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	return &Device{path: path, fd: fd}, nil
}

func (d *Device) Path() string { return d.path }

func (d *Device) Close() error {
	if d.fd < 0 {
		return nil
	}
	err := closeFd(d.fd)
	d.fd = -1
	return err
}

// QueryControl describes one control.
func (d *Device) QueryControl(id uint32) (ControlInfo, error) {
	q := v4l2Queryctrl{id: id}
	if err := ioctl(d.fd, vidiocQueryctrl, unsafe.Pointer(&q)); err != nil {
		if errors.Is(err, syscall.EINVAL) {
			return ControlInfo{}, fmt.Errorf("control 0x%08x: %w", id, ErrControlUnsupported)
		}
		return ControlInfo{}, fmt.Errorf("query control 0x%08x: %w", id, err)
	}
	return controlInfo(&q), nil
}

// Controls enumerates every control the driver exposes, skipping class
// headers.
func (d *Device) Controls() ([]ControlInfo, error) {
	var out []ControlInfo
	id := uint32(ctrlFlagNextCtrl)
	for {
		q := v4l2Queryctrl{id: id}
		if err := ioctl(d.fd, vidiocQueryctrl, unsafe.Pointer(&q)); err != nil {
			if errors.Is(err, syscall.EINVAL) {
				return out, nil
			}
			return nil, fmt.Errorf("enumerate controls: %w", err)
		}
		if ControlType(q.typ) != ControlClass {
			out = append(out, controlInfo(&q))
		}
		id = q.id | ctrlFlagNextCtrl
	}
}

// GetControl reads the current value.
func (d *Device) GetControl(id uint32) (int32, error) {
	c := v4l2Control{id: id}
	if err := ioctl(d.fd, vidiocGCtrl, unsafe.Pointer(&c)); err != nil {
		return 0, controlError(id, err)
	}
	return c.value, nil
}

// SetControl writes value as is; the driver may clamp it.
func (d *Device) SetControl(id uint32, value int32) error {
	info, err := d.QueryControl(id)
	if err != nil {
		return err
	}
	if info.Disabled || info.ReadOnly {
		return fmt.Errorf("control %q: %w", info.Name, ErrControlUnsupported)
	}
	c := v4l2Control{id: id, value: value}
	if err := ioctl(d.fd, vidiocSCtrl, unsafe.Pointer(&c)); err != nil {
		return controlError(id, err)
	}
	return nil
}

func controlError(id uint32, err error) error {
	if errors.Is(err, syscall.EINVAL) || errors.Is(err, syscall.ERANGE) || errors.Is(err, syscall.EACCES) {
		return fmt.Errorf("control 0x%08x: %w: %w", id, ErrControlUnsupported, err)
	}
	return fmt.Errorf("control 0x%08x: %w", id, err)
}

func controlInfo(q *v4l2Queryctrl) ControlInfo {
	return ControlInfo{
		ID:       q.id,
		Name:     cstr(q.name[:]),
		Type:     ControlType(q.typ),
		Min:      q.minimum,
		Max:      q.maximum,
		Step:     q.step,
		Default:  q.defaultValue,
		Disabled: q.flags&ctrlFlagDisabled != 0,
		ReadOnly: q.flags&ctrlFlagReadOnly != 0,
		Inactive: q.flags&ctrlFlagInactive != 0,
	}
}
