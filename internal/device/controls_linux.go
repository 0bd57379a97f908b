//go:build linux

package device

import (
	"errors"
	"math"

	"github.com/smazurov/zmqls/pkg/linuxav/v4l2"
)

var controlIDs = map[SettingID]uint32{
	Brightness: v4l2.CIDBrightness,
	Contrast:   v4l2.CIDContrast,
	Saturation: v4l2.CIDSaturation,
	Hue:        v4l2.CIDHue,
	Gain:       v4l2.CIDGain,
}

type v4l2Controls struct {
	dev   *v4l2.Device
	sizes []v4l2.Resolution
}

func openControls(node string) (controls, error) {
	info, err := v4l2.QueryDevice(node)
	if err != nil {
		return nil, err
	}
	if !info.CanCapture() {
		return nil, errors.New("not a video capture device")
	}
	dev, err := v4l2.Open(node)
	if err != nil {
		return nil, err
	}

	c := &v4l2Controls{dev: dev}
	if formats, err := v4l2.GetFormats(node); err == nil {
		for _, f := range formats {
			if res, err := v4l2.GetResolutions(node, f.PixelFormat); err == nil {
				c.sizes = append(c.sizes, res...)
			}
		}
	}
	return c, nil
}

// hasWidth is permissive when the driver does not enumerate sizes.
func (c *v4l2Controls) hasWidth(w uint) bool {
	if len(c.sizes) == 0 {
		return true
	}
	for _, r := range c.sizes {
		if uint(r.Width) == w {
			return true
		}
	}
	return false
}

func (c *v4l2Controls) hasHeight(h uint) bool {
	if len(c.sizes) == 0 {
		return true
	}
	for _, r := range c.sizes {
		if uint(r.Height) == h {
			return true
		}
	}
	return false
}

func (c *v4l2Controls) set(id SettingID, value float64) bool {
	v := int32(math.Round(value))
	if id == Exposure {
		// Manual exposure has to be selected before the absolute value sticks.
		_ = c.write(v4l2.CIDExposureAuto, v4l2.ExposureManual)
		return c.write(v4l2.CIDExposureAbsolute, v) || c.write(v4l2.CIDExposure, v)
	}
	cid, ok := controlIDs[id]
	if !ok {
		return false
	}
	return c.write(cid, v)
}

func (c *v4l2Controls) write(cid uint32, v int32) bool {
	info, err := c.dev.QueryControl(cid)
	if err != nil || !info.InRange(v) {
		return false
	}
	return c.dev.SetControl(cid, v) == nil
}

func (c *v4l2Controls) close() error {
	return c.dev.Close()
}
