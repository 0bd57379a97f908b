//go:build linux

package v4l2

// DeviceInfo describes a video capture node.
type DeviceInfo struct {
	DevicePath string
	DeviceName string
	Driver     string
	BusInfo    string
	Index      int // /dev/video<Index>
	Caps       uint32
}

// CanCapture reports whether the node supports video capture.
func (d DeviceInfo) CanCapture() bool { return d.Caps&capVideoCapture != 0 }

// FormatInfo is one pixel format reported by VIDIOC_ENUM_FMT.
type FormatInfo struct {
	PixelFormat uint32
	FormatName  string
	Emulated    bool
}

type Resolution struct {
	Width  uint32
	Height uint32
}

// Framerate is a frame interval, Numerator/Denominator seconds per frame.
type Framerate struct {
	Numerator   uint32
	Denominator uint32
}

// FPS converts the interval to frames per second.
func (f Framerate) FPS() float64 {
	if f.Numerator == 0 {
		return 0
	}
	return float64(f.Denominator) / float64(f.Numerator)
}

// ControlType mirrors enum v4l2_ctrl_type.
type ControlType uint32

const (
	ControlInteger   ControlType = 1
	ControlBoolean   ControlType = 2
	ControlMenu      ControlType = 3
	ControlButton    ControlType = 4
	ControlInteger64 ControlType = 5
	ControlClass     ControlType = 6
	ControlString    ControlType = 7
)

func (t ControlType) String() string {
	switch t {
	case ControlInteger:
		return "int"
	case ControlBoolean:
		return "bool"
	case ControlMenu:
		return "menu"
	case ControlButton:
		return "button"
	case ControlInteger64:
		return "int64"
	case ControlClass:
		return "class"
	case ControlString:
		return "string"
	default:
		return "unknown"
	}
}

// ControlInfo is the result of VIDIOC_QUERYCTRL.
type ControlInfo struct {
	ID       uint32
	Name     string
	Type     ControlType
	Min      int32
	Max      int32
	Step     int32
	Default  int32
	Disabled bool
	ReadOnly bool
	Inactive bool
}

// InRange reports whether v lies within the control's limits.
func (c ControlInfo) InRange(v int32) bool {
	return v >= c.Min && v <= c.Max
}

// Control IDs.
const (
	cidBase       = 0x00980900
	cidCameraBase = 0x009a0900

	CIDBrightness       uint32 = cidBase + 0
	CIDContrast         uint32 = cidBase + 1
	CIDSaturation       uint32 = cidBase + 2
	CIDHue              uint32 = cidBase + 3
	CIDExposure         uint32 = cidBase + 17
	CIDGain             uint32 = cidBase + 19
	CIDExposureAuto     uint32 = cidCameraBase + 1
	CIDExposureAbsolute uint32 = cidCameraBase + 2
)

// Control flags.
const (
	ctrlFlagDisabled = 0x0001
	ctrlFlagReadOnly = 0x0004
	ctrlFlagInactive = 0x0010
	ctrlFlagNextCtrl = 0x80000000
)

// Exposure modes for CIDExposureAuto.
const (
	ExposureAuto     int32 = 0
	ExposureManual   int32 = 1
	ExposureShutter  int32 = 2
	ExposureAperture int32 = 3
)

const (
	capVideoCapture = 0x00000001
	capDeviceCaps   = 0x80000000
)

const fmtFlagEmulated = 0x0002

const bufTypeVideoCapture = 1

const (
	frmsizeTypeDiscrete   = 1
	frmsizeTypeContinuous = 2
	frmsizeTypeStepwise   = 3
)

const (
	frmivalTypeDiscrete   = 1
	frmivalTypeContinuous = 2
	frmivalTypeStepwise   = 3
)

// Pixel formats, little-endian fourcc.
const (
	PixFmtYUYV  uint32 = 0x56595559
	PixFmtMJPEG uint32 = 0x47504A4D
	PixFmtH264  uint32 = 0x34363248
	PixFmtHEVC  uint32 = 0x43564548
	PixFmtNV12  uint32 = 0x3231564E
)
