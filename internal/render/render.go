// Package render shows decoded frames to the user. The consumer loop talks to
// a Renderer; the browser Viewer and the headless Discard sink implement it.
package render

import (
	"context"
	"image"
	"time"
)

// KeyEscape ends a consumer loop when PollKey reports it.
const KeyEscape = 27

// Renderer displays frames and reports key presses.
type Renderer interface {
	// Show displays img in the window titled name.
	Show(name string, img *image.RGBA) error
	// PollKey waits up to wait for a key press. ok is false when no key
	// arrived in time.
	PollKey(ctx context.Context, wait time.Duration) (key int, ok bool)
	Close() error
}

// Discard drops every frame and never reports a key.
type Discard struct{}

func (Discard) Show(string, *image.RGBA) error { return nil }

func (Discard) PollKey(ctx context.Context, wait time.Duration) (int, bool) {
	if wait <= 0 {
		return 0, false
	}
	t := time.NewTimer(wait)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
	return 0, false
}

func (Discard) Close() error { return nil }
