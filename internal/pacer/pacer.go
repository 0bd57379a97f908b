// Package pacer limits a loop to a target frame rate.
//
// Each iteration waits until start+1000/fps milliseconds, where start is the
// instant the previous completed iteration finished. The pacer never
// schedules against a fixed timeline: slow iterations lower the achieved rate
// and are not made up with bursts later.
package pacer

import (
	"context"
	"time"
)

// Clock abstracts time so tests can drive the pacer deterministically.
type Clock interface {
	Now() time.Time
	SleepUntil(ctx context.Context, t time.Time) error
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) SleepUntil(ctx context.Context, t time.Time) error {
	d := time.Until(t)
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Deadline is the earliest instant the next iteration may start.
type Deadline struct {
	Start   time.Time
	At      time.Time
	Limited bool
}

// Pacer is not safe for concurrent use; each stream loop owns one.
type Pacer struct {
	fps    uint
	period time.Duration
	clock  Clock
	last   time.Time
}

// Option configures a Pacer.
type Option func(*Pacer)

// WithClock replaces the wall clock.
func WithClock(c Clock) Option {
	return func(p *Pacer) { p.clock = c }
}

// New creates a pacer for fps frames per second. fps 0 disables waiting.
func New(fps uint, opts ...Option) *Pacer {
	p := &Pacer{fps: fps, clock: realClock{}}
	for _, opt := range opts {
		opt(p)
	}
	if fps > 0 {
		// Integer milliseconds: 30 fps paces at 33ms, not 33.3ms.
		p.period = time.Duration(1000/fps) * time.Millisecond
	}
	p.last = p.clock.Now()
	return p
}

// FPS returns the configured limit.
func (p *Pacer) FPS() uint { return p.fps }

// Period returns the per-iteration budget, zero when unlimited.
func (p *Pacer) Period() time.Duration { return p.period }

// Begin computes the deadline for the iteration starting now.
func (p *Pacer) Begin() Deadline {
	d := Deadline{Start: p.last}
	if p.fps > 0 {
		d.At = p.last.Add(p.period)
		d.Limited = true
	}
	return d
}

// Await blocks until the deadline when the pacer is limited. It returns early
// with the context error if ctx is cancelled.
func (p *Pacer) Await(ctx context.Context, d Deadline) error {
	if !d.Limited {
		return nil
	}
	return p.clock.SleepUntil(ctx, d.At)
}

// Complete marks the end of an iteration and samples the achieved rate.
// Skipped iterations must not call Complete.
func (p *Pacer) Complete() (float64, bool) {
	next := p.clock.Now()
	fps, ok := Sample(p.last, next)
	p.last = next
	return fps, ok
}

// Sample returns 1000/elapsed_ms between two iteration starts. Elapsed time
// is truncated to whole milliseconds; ok is false when it truncates to zero.
func Sample(prev, next time.Time) (float64, bool) {
	ms := next.Sub(prev).Milliseconds()
	if ms <= 0 {
		return 0, false
	}
	return 1000 / float64(ms), true
}
