//go:build linux

// Package v4l2 is a small cgo-free binding to the Video4Linux2 API: capture
// device enumeration, format queries and user controls.
//
//	devices, _ := v4l2.FindDevices()
//	for _, d := range devices {
//	    formats, _ := v4l2.GetFormats(d.DevicePath)
//	    ...
//	}
//
// Controls are set through an open Device:
//
//	dev, err := v4l2.Open("/dev/video0")
//	if err != nil { ... }
//	defer dev.Close()
//	err = dev.SetControl(v4l2.CIDBrightness, 128)
//
// Struct layouts and request numbers are identical on amd64, arm64 and arm
// because none of the structs used here embed pointers or timespecs.
package v4l2
