package stream

import (
	"context"
	"fmt"
	"time"

	"github.com/smazurov/zmqls/internal/codec"
	"github.com/smazurov/zmqls/internal/config"
	"github.com/smazurov/zmqls/internal/events"
	"github.com/smazurov/zmqls/internal/framing"
	"github.com/smazurov/zmqls/internal/render"
	"github.com/smazurov/zmqls/internal/transform"
)

// KeyWait is how long each iteration polls the renderer for a key.
const KeyWait = time.Millisecond

// Consumer receives, decodes, transforms and renders frames.
type Consumer struct {
	base
	pipeline *transform.Pipeline
}

func NewConsumer(cfg *config.StreamConfig, opts Options) *Consumer {
	return &Consumer{
		base: newBase(cfg, opts),
		pipeline: transform.New(transform.Options{
			Width:  cfg.Width,
			Height: cfg.Height,
			Flip:   cfg.Flip,
			Angle:  cfg.Angle,
			Gamma:  cfg.Gamma,
		}),
	}
}

// Run subscribes to the prefix and renders until Escape is pressed or ctx
// ends.
func (c *Consumer) Run(ctx context.Context) error {
	cfg := c.cfg
	c.setState(events.StateStarting, nil)

	sub, err := c.opts.Dial(ctx, cfg.Address, []byte(cfg.Prefix), c.transportOptions()...)
	if err != nil {
		return c.fail(err)
	}
	defer sub.Close()

	if cfg.Verbose {
		c.logger.Info("Consumer settings", "config", cfg, "stages", c.pipeline.Stages())
	}
	c.logger.Info("Subscribed", "address", cfg.Address, "prefix", cfg.Prefix)

	c.setState(events.StateRunning, nil)
	return c.loop(ctx, sub.Recv)
}

func (c *Consumer) loop(ctx context.Context, recv func() ([]byte, error)) error {
	prefixLen := len(c.cfg.Prefix)
	r := c.opts.Renderer
	pace := c.newPacer()

	for {
		if ctx.Err() != nil {
			return c.stop()
		}
		deadline := pace.Begin()

		if c.cfg.Verbose {
			c.logger.Debug("Waiting for " + c.cfg.Address + "...")
		}
		msg, err := recv()
		if err != nil {
			if ctx.Err() != nil {
				return c.stop()
			}
			return c.fail(fmt.Errorf("receive: %w", err))
		}

		payload, err := framing.Strip(msg, prefixLen)
		if err != nil {
			c.skip("framing", err)
			continue
		}
		frame, err := codec.Decode(payload)
		if err != nil {
			c.skip("decode", err)
			continue
		}
		out, err := c.pipeline.Apply(frame)
		if err != nil {
			c.skip("transform", err)
			continue
		}
		if err := r.Show(c.cfg.Name, out); err != nil {
			c.skip("render", err)
			continue
		}
		c.processed(len(payload))

		if key, ok := r.PollKey(ctx, KeyWait); ok && key == render.KeyEscape {
			c.logger.Info("Quitting")
			return c.stop()
		}

		if err := pace.Await(ctx, deadline); err != nil {
			return c.stop()
		}
		c.complete(pace)
	}
}
