// Package stream runs the producer and consumer loops.
//
// Every iteration follows the same shape: take the pacing deadline, do the
// work, skip the rest of the iteration on a bad frame, wait for the deadline
// and sample the achieved rate. Skipped iterations are not made up.
package stream

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/smazurov/zmqls/internal/config"
	"github.com/smazurov/zmqls/internal/device"
	"github.com/smazurov/zmqls/internal/events"
	"github.com/smazurov/zmqls/internal/pacer"
	"github.com/smazurov/zmqls/internal/render"
	"github.com/smazurov/zmqls/internal/transport"
)

// Stream is one producer or consumer bound to a stream file.
type Stream interface {
	Name() string
	// Run blocks until the loop ends. A cancelled ctx is a clean stop and
	// returns nil.
	Run(ctx context.Context) error
}

// Options are the collaborators shared by both loops. Zero values pick the
// real implementations.
type Options struct {
	Logger *slog.Logger
	Bus    *events.Bus
	Clock  pacer.Clock

	// Producer.
	Listen     func(ctx context.Context, address string, opts ...transport.Option) (transport.Publisher, error)
	OpenDevice func(ref config.DeviceRef, logger *slog.Logger) (device.Capture, error)

	// Consumer.
	Dial     func(ctx context.Context, address string, prefix []byte, opts ...transport.Option) (transport.Subscriber, error)
	Renderer render.Renderer
}

func (o Options) withDefaults() Options {
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	if o.Listen == nil {
		o.Listen = transport.Listen
	}
	if o.OpenDevice == nil {
		o.OpenDevice = device.Open
	}
	if o.Dial == nil {
		o.Dial = transport.Dial
	}
	if o.Renderer == nil {
		o.Renderer = render.Discard{}
	}
	return o
}

// New returns the loop for cfg.Role.
func New(cfg *config.StreamConfig, opts Options) (Stream, error) {
	switch cfg.Role {
	case config.RoleProducer:
		return NewProducer(cfg, opts), nil
	case config.RoleConsumer:
		return NewConsumer(cfg, opts), nil
	default:
		return nil, fmt.Errorf("unknown stream role %s", cfg.Role)
	}
}

// base holds what both loops share.
type base struct {
	cfg    *config.StreamConfig
	opts   Options
	logger *slog.Logger
	role   string
}

func newBase(cfg *config.StreamConfig, opts Options) base {
	opts = opts.withDefaults()
	return base{
		cfg:    cfg,
		opts:   opts,
		logger: opts.Logger.With("stream", cfg.Name),
		role:   cfg.Role.String(),
	}
}

func (b *base) Name() string { return b.cfg.Name }

func (b *base) newPacer() *pacer.Pacer {
	if b.opts.Clock != nil {
		return pacer.New(b.cfg.FPS, pacer.WithClock(b.opts.Clock))
	}
	return pacer.New(b.cfg.FPS)
}

func (b *base) transportOptions() []transport.Option {
	return []transport.Option{
		transport.WithLogger(b.logger),
		transport.WithName("zmqls " + b.role + " " + b.cfg.Name),
	}
}

func (b *base) setState(state string, err error) {
	ev := events.StreamStateChangedEvent{Stream: b.cfg.Name, Role: b.role, State: state}
	if err != nil {
		ev.Error = err.Error()
	}
	b.opts.Bus.Publish(ev)
}

// fail records a fatal error and returns it unchanged.
func (b *base) fail(err error) error {
	b.logger.Error("Stream failed", "role", b.role, "error", err)
	b.setState(events.StateFailed, err)
	return err
}

func (b *base) stop() error {
	b.logger.Info("Stream stopped", "role", b.role)
	b.setState(events.StateStopped, nil)
	return nil
}

// skip abandons the current iteration.
func (b *base) skip(reason string, err error) {
	b.logger.Debug("Skipping frame", "reason", reason, "error", err)
	b.opts.Bus.Publish(events.FrameSkippedEvent{Stream: b.cfg.Name, Role: b.role, Reason: reason})
}

func (b *base) processed(n int) {
	b.opts.Bus.Publish(events.FrameProcessedEvent{Stream: b.cfg.Name, Role: b.role, Bytes: n})
}

// complete closes a finished iteration and reports its rate.
func (b *base) complete(p *pacer.Pacer) {
	fps, ok := p.Complete()
	if !ok {
		return
	}
	b.opts.Bus.Publish(events.RateSampledEvent{Stream: b.cfg.Name, Role: b.role, FPS: fps})
	if b.cfg.Verbose {
		b.logger.Info("FPS", "fps", fps)
	}
}
