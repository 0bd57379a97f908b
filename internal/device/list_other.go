//go:build !linux

package device

import (
	"context"
	"errors"
)

// List returns no devices outside Linux.
func List() ([]Info, error) {
	return []Info{}, nil
}

// Watch is unsupported outside Linux.
func Watch(context.Context, func(action, node string)) error {
	return errors.ErrUnsupported
}
