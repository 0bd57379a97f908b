package device

// controls is the V4L2 side of an FFmpegCapture.
type controls interface {
	hasWidth(w uint) bool
	hasHeight(h uint) bool
	set(id SettingID, value float64) bool
	close() error
}
