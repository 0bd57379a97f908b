package device

// Info describes a capture device for the devices command.
type Info struct {
	Index    int
	Path     string
	Name     string
	Driver   string
	BusInfo  string
	Formats  []Format
	Controls []ControlInfo
}

// Format is a pixel format with its frame sizes and rates.
type Format struct {
	FourCC      string
	Description string
	Emulated    bool
	Modes       []Mode
}

type Mode struct {
	Width, Height uint32
	FPS           []float64
}

// ControlInfo is a user control and its range.
type ControlInfo struct {
	Name    string
	Type    string
	Min     int32
	Max     int32
	Default int32
	Value   int32
}
