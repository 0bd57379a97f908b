//go:build !linux

package device

import "errors"

func openControls(string) (controls, error) {
	return nil, errors.New("V4L2 devices are only available on Linux")
}
