package stream

import (
	"context"
	"errors"
	"fmt"

	"github.com/smazurov/zmqls/internal/codec"
	"github.com/smazurov/zmqls/internal/config"
	"github.com/smazurov/zmqls/internal/device"
	"github.com/smazurov/zmqls/internal/events"
	"github.com/smazurov/zmqls/internal/framing"
)

// Producer captures, encodes and publishes frames.
type Producer struct {
	base
}

func NewProducer(cfg *config.StreamConfig, opts Options) *Producer {
	return &Producer{base: newBase(cfg, opts)}
}

// Run binds the publisher, opens the device, applies the device settings and
// loops until ctx ends or a finite source runs out (device.ErrEndOfStream).
// A source that fails inside the capture process ends Run with device.ErrOpen
// or device.ErrCaptureFailed.
func (p *Producer) Run(ctx context.Context) error {
	cfg := p.cfg
	p.setState(events.StateStarting, nil)
	p.logger.Info("Starting producer", "config", cfg)

	pub, err := p.opts.Listen(ctx, cfg.Address, p.transportOptions()...)
	if err != nil {
		return p.fail(err)
	}
	defer pub.Close()
	p.logger.Info("Publishing", "address", pub.Addr(), "prefix", cfg.Prefix)

	dev, err := p.opts.OpenDevice(cfg.Device, p.logger)
	if err != nil {
		return p.fail(err)
	}
	defer dev.Close()

	reconciler := device.Reconciler{
		Logger:  p.logger,
		Bus:     p.opts.Bus,
		Stream:  cfg.Name,
		Verbose: cfg.Verbose,
	}
	reconciler.Run(dev, cfg)

	if s, ok := dev.(device.Starter); ok {
		if err := s.Start(ctx); err != nil {
			return p.fail(fmt.Errorf("%w %s: %w", device.ErrOpen, cfg.Device, err))
		}
	}

	p.setState(events.StateRunning, nil)
	return p.loop(ctx, pub.Send, dev)
}

func (p *Producer) loop(ctx context.Context, send func([]byte) error, dev device.Capture) error {
	prefix := []byte(p.cfg.Prefix)
	quality := int(p.cfg.EncodeQuality)
	pace := p.newPacer()

	for {
		if ctx.Err() != nil {
			return p.stop()
		}
		deadline := pace.Begin()

		frame, err := dev.Read()
		switch {
		case err == nil:
		case ctx.Err() != nil:
			return p.stop()
		case errors.Is(err, device.ErrEndOfStream):
			p.logger.Info("Capture source exhausted")
			p.setState(events.StateStopped, err)
			return err
		case errors.Is(err, device.ErrOpen), errors.Is(err, device.ErrCaptureFailed):
			return p.fail(err)
		}
		if err != nil {
			p.skip("capture", err)
			continue
		}
		if frame == nil || frame.Bounds().Dx() == 0 {
			p.skip("empty", codec.ErrEmptyFrame)
			continue
		}

		data, err := codec.Encode(frame, quality)
		if err != nil {
			p.skip("encode", err)
			continue
		}
		msg := framing.Frame(prefix, data)
		if err := send(msg); err != nil {
			if ctx.Err() != nil {
				return p.stop()
			}
			return p.fail(fmt.Errorf("send: %w", err))
		}
		p.processed(len(data))

		if err := pace.Await(ctx, deadline); err != nil {
			return p.stop()
		}
		p.complete(pace)
	}
}
