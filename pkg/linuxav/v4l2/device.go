//go:build linux

package v4l2

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"unsafe"
)

const sysfsVideo = "/sys/class/video4linux"

// FindDevices returns every node that advertises video capture, ordered by
// index.
func FindDevices() ([]DeviceInfo, error) {
	entries, err := os.ReadDir(sysfsVideo)
	if err != nil {
		if os.IsNotExist(err) {
			return []DeviceInfo{}, nil
		}
		return nil, fmt.Errorf("read %s: %w", sysfsVideo, err)
	}

	logger := slog.With("component", "v4l2")
	devices := make([]DeviceInfo, 0, len(entries))
	for _, entry := range entries {
		path := "/dev/" + entry.Name()
		info, err := QueryDevice(path)
		if err != nil {
			logger.Debug("Skipping video node", "path", path, "error", err)
			continue
		}
		if !info.CanCapture() {
			continue
		}
		if idx, ok := nodeIndex(entry.Name()); ok {
			info.Index = idx
		}
		devices = append(devices, info)
	}

	sort.Slice(devices, func(i, j int) bool { return devices[i].Index < devices[j].Index })
	return devices, nil
}

// QueryDevice runs VIDIOC_QUERYCAP on path.
func QueryDevice(path string) (DeviceInfo, error) {
	fd, err := openFd(path)
	if err != nil {
		return DeviceInfo{}, fmt.Errorf("open %s: %w", path, err)
	}
	defer closeFd(fd)

	var c v4l2Capability
	if err := ioctl(fd, vidiocQuerycap, unsafe.Pointer(&c)); err != nil {
		return DeviceInfo{}, fmt.Errorf("query capabilities of %s: %w", path, err)
	}

	caps := c.capabilities
	if caps&capDeviceCaps != 0 {
		caps = c.deviceCaps
	}
	info := DeviceInfo{
		DevicePath: path,
		DeviceName: cstr(c.card[:]),
		Driver:     cstr(c.driver[:]),
		BusInfo:    cstr(c.busInfo[:]),
		Index:      -1,
		Caps:       caps,
	}
	if idx, ok := nodeIndex(filepath.Base(path)); ok {
		info.Index = idx
	}
	return info, nil
}

// nodeIndex parses the N out of "videoN".
func nodeIndex(name string) (int, bool) {
	n, ok := strings.CutPrefix(name, "video")
	if !ok {
		return 0, false
	}
	idx, err := strconv.Atoi(n)
	return idx, err == nil
}

func cstr(b []byte) string {
	if i := bytes.IndexByte(b, 0); i >= 0 {
		return string(b[:i])
	}
	return string(b)
}
