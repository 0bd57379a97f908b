//go:build linux

// Package hotplug reports capture devices appearing and disappearing by
// listening to kernel uevents on a netlink socket.
package hotplug

import (
	"bytes"
	"context"
	"errors"
	"path"
	"syscall"
	"time"
)

const (
	ActionAdd    = "add"
	ActionRemove = "remove"
	ActionChange = "change"

	SubsystemVideo4Linux = "video4linux"
)

const (
	netlinkKobjectUEvent = 15
	kernelGroup          = 1
	recvTimeout          = 500 * time.Millisecond
)

// Event is one kernel uevent.
type Event struct {
	Action    string
	Subsystem string
	// Node is the device file, e.g. /dev/video0. Empty for events without
	// a DEVNAME.
	Node string
	Env  map[string]string
}

// Monitor reads uevents for a set of subsystems.
type Monitor struct {
	fd         int
	subsystems map[string]bool
}

// NewMonitor subscribes to kernel uevents. With no subsystems every event is
// reported.
func NewMonitor(subsystems ...string) (*Monitor, error) {
	fd, err := syscall.Socket(syscall.AF_NETLINK, syscall.SOCK_DGRAM|syscall.SOCK_CLOEXEC, netlinkKobjectUEvent)
	if err != nil {
		return nil, err
	}
	if err := syscall.Bind(fd, &syscall.SockaddrNetlink{Family: syscall.AF_NETLINK, Groups: kernelGroup}); err != nil {
		syscall.Close(fd)
		return nil, err
	}
	tv := syscall.NsecToTimeval(int64(recvTimeout))
	if err := syscall.SetsockoptTimeval(fd, syscall.SOL_SOCKET, syscall.SO_RCVTIMEO, &tv); err != nil {
		syscall.Close(fd)
		return nil, err
	}

	m := &Monitor{fd: fd, subsystems: make(map[string]bool)}
	for _, s := range subsystems {
		m.subsystems[s] = true
	}
	return m, nil
}

func (m *Monitor) Close() error { return syscall.Close(m.fd) }

// Watch calls fn for each matching event until ctx ends. It returns nil on
// cancellation.
func (m *Monitor) Watch(ctx context.Context, fn func(Event)) error {
	buf := make([]byte, 8192)
	for ctx.Err() == nil {
		n, _, err := syscall.Recvfrom(m.fd, buf, 0)
		switch {
		case errors.Is(err, syscall.EAGAIN), errors.Is(err, syscall.EINTR):
			continue
		case err != nil:
			return err
		}

		ev, ok := Parse(buf[:n])
		if !ok {
			continue
		}
		if len(m.subsystems) > 0 && !m.subsystems[ev.Subsystem] {
			continue
		}
		fn(ev)
	}
	return nil
}

// Parse decodes "ACTION@DEVPATH\0KEY=VALUE\0...". Messages re-broadcast by
// udev carry a binary header and are rejected.
func Parse(msg []byte) (Event, bool) {
	header, rest, _ := bytes.Cut(msg, []byte{0})
	action, _, ok := bytes.Cut(header, []byte("@"))
	if !ok || len(action) == 0 || bytes.HasPrefix(header, []byte("libudev")) {
		return Event{}, false
	}

	ev := Event{Action: string(action), Env: make(map[string]string)}
	for len(rest) > 0 {
		var field []byte
		field, rest, _ = bytes.Cut(rest, []byte{0})
		k, v, ok := bytes.Cut(field, []byte("="))
		if !ok || len(k) == 0 {
			continue
		}
		ev.Env[string(k)] = string(v)
	}
	ev.Subsystem = ev.Env["SUBSYSTEM"]
	if name := ev.Env["DEVNAME"]; name != "" {
		if path.IsAbs(name) {
			ev.Node = name
		} else {
			ev.Node = "/dev/" + name
		}
	}
	return ev, true
}
