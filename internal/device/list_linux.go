//go:build linux

package device

import (
	"context"

	"github.com/smazurov/zmqls/pkg/linuxav/hotplug"
	"github.com/smazurov/zmqls/pkg/linuxav/v4l2"
)

// List enumerates the V4L2 capture devices with their modes and controls.
// Per-device query failures leave the corresponding fields empty.
func List() ([]Info, error) {
	devices, err := v4l2.FindDevices()
	if err != nil {
		return nil, err
	}

	out := make([]Info, 0, len(devices))
	for _, d := range devices {
		info := Info{
			Index:   d.Index,
			Path:    d.DevicePath,
			Name:    d.DeviceName,
			Driver:  d.Driver,
			BusInfo: d.BusInfo,
		}
		info.Formats = listFormats(d.DevicePath)
		info.Controls = listControls(d.DevicePath)
		out = append(out, info)
	}
	return out, nil
}

func listFormats(path string) []Format {
	formats, err := v4l2.GetFormats(path)
	if err != nil {
		return nil
	}
	out := make([]Format, 0, len(formats))
	for _, f := range formats {
		format := Format{
			FourCC:      v4l2.FormatFourCC(f.PixelFormat),
			Description: f.FormatName,
			Emulated:    f.Emulated,
		}
		sizes, _ := v4l2.GetResolutions(path, f.PixelFormat)
		for _, s := range sizes {
			mode := Mode{Width: s.Width, Height: s.Height}
			rates, _ := v4l2.GetFramerates(path, f.PixelFormat, s.Width, s.Height)
			for _, r := range rates {
				mode.FPS = append(mode.FPS, r.FPS())
			}
			format.Modes = append(format.Modes, mode)
		}
		out = append(out, format)
	}
	return out
}

func listControls(path string) []ControlInfo {
	dev, err := v4l2.Open(path)
	if err != nil {
		return nil
	}
	defer dev.Close()

	ctrls, err := dev.Controls()
	if err != nil {
		return nil
	}
	out := make([]ControlInfo, 0, len(ctrls))
	for _, c := range ctrls {
		if c.Disabled {
			continue
		}
		value, _ := dev.GetControl(c.ID)
		out = append(out, ControlInfo{
			Name:    c.Name,
			Type:    c.Type.String(),
			Min:     c.Min,
			Max:     c.Max,
			Default: c.Default,
			Value:   value,
		})
	}
	return out
}

// Watch reports capture device nodes being added or removed until ctx ends.
func Watch(ctx context.Context, fn func(action, node string)) error {
	m, err := hotplug.NewMonitor(hotplug.SubsystemVideo4Linux)
	if err != nil {
		return err
	}
	defer m.Close()
	return m.Watch(ctx, func(ev hotplug.Event) {
		if ev.Node != "" && (ev.Action == hotplug.ActionAdd || ev.Action == hotplug.ActionRemove) {
			fn(ev.Action, ev.Node)
		}
	})
}
