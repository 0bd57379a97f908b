// Package device opens capture sources and applies the requested camera
// settings to them.
package device

// SettingID identifies a capture property.
type SettingID int

const (
	FrameWidth SettingID = iota
	FrameHeight
	FPS
	Brightness
	Contrast
	Saturation
	Hue
	Gain
	Exposure
)

// Setting is one catalog entry. Settings with UsesPositiveDefault are only
// written when the requested value is strictly positive.
type Setting struct {
	ID                  SettingID
	Name                string
	UsesPositiveDefault bool
}

// Catalog lists the settings in the order they are applied.
var Catalog = [...]Setting{
	{FrameWidth, "width", true},
	{FrameHeight, "height", true},
	{FPS, "fps", true},
	{Brightness, "brightness", false},
	{Contrast, "contrast", false},
	{Saturation, "saturation", false},
	{Hue, "hue", false},
	{Gain, "gain", false},
	{Exposure, "exposure", false},
}

// Lookup finds the catalog entry for id.
func Lookup(id SettingID) (Setting, bool) {
	for _, s := range Catalog {
		if s.ID == id {
			return s, true
		}
	}
	return Setting{}, false
}

func (id SettingID) String() string {
	if s, ok := Lookup(id); ok {
		return s.Name
	}
	return "unknown"
}
