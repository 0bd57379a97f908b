package cmd

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/smazurov/zmqls/internal/config"
	"github.com/smazurov/zmqls/internal/device"
	"github.com/smazurov/zmqls/internal/events"
	"github.com/smazurov/zmqls/internal/logging"
	"github.com/smazurov/zmqls/internal/metrics"
	"github.com/smazurov/zmqls/internal/render"
	"github.com/smazurov/zmqls/internal/stream"
	"github.com/smazurov/zmqls/internal/systemd"
	"github.com/smazurov/zmqls/internal/version"
)

// runner drives one stream file for the server and client commands.
type runner struct {
	opts   *config.Options
	path   string
	role   config.Role
	logger *slog.Logger
}

func (r *runner) load(path string) (*config.StreamConfig, error) {
	cfg, err := config.Load(path, r.role)
	if err != nil {
		return nil, err
	}
	if r.opts.Verbose {
		cfg.Verbose = true
	}
	return cfg, nil
}

func (r *runner) run(parent context.Context) error {
	if parent == nil {
		parent = context.Background()
	}
	cfg, err := r.load(r.path)
	if err != nil {
		return err
	}
	r.logger.Info("Starting", "role", r.role.String(), "file", r.path, "threads", r.opts.Threads, "build", version.Get())

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	bus := events.New()
	defer metrics.Subscribe(bus)()

	notifier := systemd.NewNotifier(logging.GetLogger("main"))
	defer notifier.Stopping()
	defer bus.Subscribe(func(e events.StreamStateChangedEvent) {
		if e.State == events.StateRunning {
			notifier.Ready(r.role.String() + " " + e.Stream)
		}
	})()

	so := stream.Options{Logger: r.logger, Bus: bus}
	metricsOnViewer := false
	if r.role == config.RoleConsumer && !r.opts.Headless {
		vo := render.ViewerOptions{Addr: r.opts.Listen, Logger: logging.GetLogger("render")}
		if r.opts.MetricsAddr != "" && r.opts.MetricsAddr == r.opts.Listen {
			vo.Metrics = metrics.Handler()
			metricsOnViewer = true
		}
		viewer := render.NewViewer(vo)
		if err := viewer.Start(ctx); err != nil {
			return err
		}
		defer viewer.Close()
		so.Renderer = viewer
	}
	if r.opts.MetricsAddr != "" && !metricsOnViewer {
		if err := metrics.Serve(ctx, r.opts.MetricsAddr, logging.GetLogger("main")); err != nil {
			return err
		}
	}

	reloads := make(chan *config.StreamConfig, 1)
	if r.opts.Watch {
		w := config.NewWatcher(r.path, r.load, logging.GetLogger("config"))
		w.OnReload(func(next *config.StreamConfig) {
			select {
			case <-reloads:
			default:
			}
			reloads <- next
		})
		if err := w.Start(ctx); err != nil {
			r.logger.Warn("Failed to watch stream file, hot reload disabled", "error", err)
		} else {
			defer func() { _ = w.Stop() }()
		}
	}

	for {
		s, err := stream.New(cfg, so)
		if err != nil {
			return err
		}

		runCtx, cancel := context.WithCancel(ctx)
		done := make(chan error, 1)
		go func() { done <- s.Run(runCtx) }()

		select {
		case err := <-done:
			cancel()
			return r.finish(err)
		case next := <-reloads:
			r.logger.Info("Stream file changed, restarting", "file", r.path)
			notifier.Reloading("restarting " + s.Name())
			cancel()
			if err := <-done; err != nil && !errors.Is(err, device.ErrEndOfStream) {
				r.logger.Warn("Stream ended with error before restart", "error", err)
			}
			cfg = next
		}
	}
}

// finish maps the loop result to the command result. An exhausted file
// source is a normal end.
func (r *runner) finish(err error) error {
	if errors.Is(err, device.ErrEndOfStream) {
		r.logger.Info("Capture source finished")
		return nil
	}
	return err
}
