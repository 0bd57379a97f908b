//go:build linux

package v4l2

import "unsafe"

// Request numbers from linux/videodev2.h.
const (
	vidiocQuerycap           = 0x80685600
	vidiocEnumFmt            = 0xc0405602
	vidiocGCtrl              = 0xc008561b
	vidiocSCtrl              = 0xc008561c
	vidiocQueryctrl          = 0xc0445624
	vidiocEnumFramesizes     = 0xc02c564a
	vidiocEnumFrameintervals = 0xc034564b
)

var (
	_ [104]byte = [unsafe.Sizeof(v4l2Capability{})]byte{}
	_ [64]byte  = [unsafe.Sizeof(v4l2Fmtdesc{})]byte{}
	_ [24]byte  = [unsafe.Sizeof(v4l2FrmsizeStepwise{})]byte{}
	_ [44]byte  = [unsafe.Sizeof(v4l2Frmsizeenum{})]byte{}
	_ [52]byte  = [unsafe.Sizeof(v4l2Frmivalenum{})]byte{}
	_ [8]byte   = [unsafe.Sizeof(v4l2Control{})]byte{}
	_ [68]byte  = [unsafe.Sizeof(v4l2Queryctrl{})]byte{}
)

type v4l2Capability struct {
	driver       [16]byte
	card         [32]byte
	busInfo      [32]byte
	version      uint32
	capabilities uint32
	deviceCaps   uint32
	reserved     [3]uint32
}

type v4l2Fmtdesc struct {
	index       uint32
	typ         uint32
	flags       uint32
	description [32]byte
	pixelFormat uint32
	mbusCode    uint32
	reserved    [3]uint32
}

type v4l2FrmsizeDiscrete struct {
	width  uint32
	height uint32
}

type v4l2FrmsizeStepwise struct {
	minWidth   uint32
	maxWidth   uint32
	stepWidth  uint32
	minHeight  uint32
	maxHeight  uint32
	stepHeight uint32
}

// v4l2Frmsizeenum holds a union of discrete and stepwise at offset 12.
type v4l2Frmsizeenum struct {
	index       uint32
	pixelFormat uint32
	typ         uint32
	union       [24]byte
	reserved    [2]uint32
}

func (f *v4l2Frmsizeenum) discrete() *v4l2FrmsizeDiscrete {
	return (*v4l2FrmsizeDiscrete)(unsafe.Pointer(&f.union[0]))
}

func (f *v4l2Frmsizeenum) stepwise() *v4l2FrmsizeStepwise {
	return (*v4l2FrmsizeStepwise)(unsafe.Pointer(&f.union[0]))
}

type v4l2Fract struct {
	numerator   uint32
	denominator uint32
}

// v4l2Frmivalenum holds a union of discrete and stepwise at offset 20.
type v4l2Frmivalenum struct {
	index       uint32
	pixelFormat uint32
	width       uint32
	height      uint32
	typ         uint32
	union       [24]byte
	reserved    [2]uint32
}

func (f *v4l2Frmivalenum) discrete() *v4l2Fract {
	return (*v4l2Fract)(unsafe.Pointer(&f.union[0]))
}

type v4l2Control struct {
	id    uint32
	value int32
}

type v4l2Queryctrl struct {
	id           uint32
	typ          uint32
	name         [32]byte
	minimum      int32
	maximum      int32
	step         int32
	defaultValue int32
	flags        uint32
	reserved     [2]uint32
}
