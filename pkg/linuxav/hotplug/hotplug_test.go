//go:build linux

package hotplug

import (
	"testing"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name      string
		msg       string
		ok        bool
		action    string
		subsystem string
		node      string
	}{
		{name: "empty", msg: "", ok: false},
		{name: "no separator", msg: "garbage", ok: false},
		{name: "no action", msg: "@/devices/x\x00SUBSYSTEM=usb\x00", ok: false},
		{name: "udev rebroadcast", msg: "libudev\x00\xfe\xed", ok: false},
		{
			name:      "video add",
			msg:       "add@/devices/pci0000:00/usb1/1-1/video4linux/video0\x00ACTION=add\x00SUBSYSTEM=video4linux\x00DEVNAME=video0\x00MAJOR=81\x00",
			ok:        true,
			action:    ActionAdd,
			subsystem: SubsystemVideo4Linux,
			node:      "/dev/video0",
		},
		{
			name:      "absolute devname",
			msg:       "remove@/devices/x\x00SUBSYSTEM=video4linux\x00DEVNAME=/dev/video2\x00",
			ok:        true,
			action:    ActionRemove,
			subsystem: SubsystemVideo4Linux,
			node:      "/dev/video2",
		},
		{
			name:      "usb without node",
			msg:       "change@/devices/usb1\x00SUBSYSTEM=usb\x00BROKEN\x00=x\x00",
			ok:        true,
			action:    ActionChange,
			subsystem: "usb",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev, ok := Parse([]byte(tt.msg))
			if ok != tt.ok {
				t.Fatalf("ok = %v, want %v", ok, tt.ok)
			}
			if !ok {
				return
			}
			if ev.Action != tt.action || ev.Subsystem != tt.subsystem || ev.Node != tt.node {
				t.Errorf("got %+v", ev)
			}
		})
	}
}

func TestParseKeepsEnv(t *testing.T) {
	ev, ok := Parse([]byte("add@/x\x00SUBSYSTEM=video4linux\x00ID_MODEL=C920\x00"))
	if !ok {
		t.Fatal("not parsed")
	}
	if ev.Env["ID_MODEL"] != "C920" {
		t.Errorf("Env = %v", ev.Env)
	}
}
