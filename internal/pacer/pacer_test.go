package pacer

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock advances only when slept on or explicitly moved.
type fakeClock struct {
	now    time.Time
	sleeps []time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Unix(1700000000, 0)}
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) SleepUntil(ctx context.Context, t time.Time) error {
	c.sleeps = append(c.sleeps, t)
	if t.After(c.now) {
		c.now = t
	}
	return ctx.Err()
}

func (c *fakeClock) advance(d time.Duration) { c.now = c.now.Add(d) }

func TestPeriodTruncates(t *testing.T) {
	tests := []struct {
		fps  uint
		want time.Duration
	}{
		{0, 0},
		{1, time.Second},
		{10, 100 * time.Millisecond},
		{30, 33 * time.Millisecond},
		{60, 16 * time.Millisecond},
		{1000, time.Millisecond},
		{2000, 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, New(tt.fps).Period(), "fps=%d", tt.fps)
	}
}

func TestDeadlinesAreSpacedByPeriod(t *testing.T) {
	clock := newFakeClock()
	p := New(10, WithClock(clock))
	ctx := context.Background()

	var prev time.Time
	for i := 0; i < 5; i++ {
		d := p.Begin()
		require.True(t, d.Limited)
		clock.advance(20 * time.Millisecond) // work shorter than the budget
		require.NoError(t, p.Await(ctx, d))

		if i > 0 {
			assert.GreaterOrEqual(t, clock.Now().Sub(prev), 100*time.Millisecond)
		}
		prev = clock.Now()

		fps, ok := p.Complete()
		require.True(t, ok)
		assert.InDelta(t, 10.0, fps, 0.001)
	}
	assert.Len(t, clock.sleeps, 5)
}

func TestSlowIterationsDriftWithoutBursts(t *testing.T) {
	clock := newFakeClock()
	p := New(10, WithClock(clock))
	ctx := context.Background()

	d := p.Begin()
	clock.advance(250 * time.Millisecond) // overran the 100ms budget
	require.NoError(t, p.Await(ctx, d))
	fps, ok := p.Complete()
	require.True(t, ok)
	assert.InDelta(t, 4.0, fps, 0.001)

	// The next deadline is based on the late start, not on the missed slot.
	next := p.Begin()
	assert.Equal(t, clock.Now().Add(100*time.Millisecond), next.At)
}

func TestUnlimitedNeverBlocks(t *testing.T) {
	clock := newFakeClock()
	p := New(0, WithClock(clock))

	for i := 0; i < 3; i++ {
		d := p.Begin()
		assert.False(t, d.Limited)
		require.NoError(t, p.Await(context.Background(), d))
		clock.advance(5 * time.Millisecond)
		p.Complete()
	}
	assert.Empty(t, clock.sleeps)
}

func TestUnlimitedRealClockReturnsImmediately(t *testing.T) {
	p := New(0)
	start := time.Now()
	require.NoError(t, p.Await(context.Background(), p.Begin()))
	assert.Less(t, time.Since(start), 50*time.Millisecond)
}

func TestAwaitHonorsCancellation(t *testing.T) {
	p := New(1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	err := p.Await(ctx, p.Begin())
	assert.ErrorIs(t, err, context.Canceled)
	assert.Less(t, time.Since(start), 500*time.Millisecond)
}

func TestSkippedIterationKeepsPreviousStart(t *testing.T) {
	clock := newFakeClock()
	p := New(10, WithClock(clock))

	first := p.Begin()
	clock.advance(30 * time.Millisecond)
	// iteration skipped: no Await, no Complete
	second := p.Begin()
	assert.Equal(t, first.At, second.At)
}

func TestSample(t *testing.T) {
	base := time.Unix(0, 0)

	fps, ok := Sample(base, base.Add(40*time.Millisecond))
	require.True(t, ok)
	assert.InDelta(t, 25.0, fps, 0.0001)

	_, ok = Sample(base, base.Add(900*time.Microsecond))
	assert.False(t, ok, "sub-millisecond elapsed time has no rate")

	_, ok = Sample(base, base)
	assert.False(t, ok)
}
