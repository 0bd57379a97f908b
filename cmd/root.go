// Package cmd holds the zmqls command tree.
package cmd

import (
	"runtime"

	"github.com/smazurov/zmqls/internal/config"
	"github.com/smazurov/zmqls/internal/logging"
	"github.com/spf13/cobra"
)

// NewRootCmd builds the zmqls command with its subcommands.
func NewRootCmd() *cobra.Command {
	opts := config.DefaultOptions()

	root := &cobra.Command{
		Use:   "zmqls",
		Short: "Live video streaming over ZeroMQ publish/subscribe",
		Long: `zmqls captures frames from a video device, JPEG-compresses them and publishes
them behind a topic prefix. Clients subscribe to a prefix, then decode,
transform and display the frames.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := config.LoadConfig(&opts, cmd); err != nil {
				return err
			}
			logging.Initialize(config.LoggingConfig(&opts))
			if opts.Threads > 0 {
				runtime.GOMAXPROCS(opts.Threads)
			}
			logging.GetLogger("main").Debug("Options loaded",
				"config", opts.Config,
				"threads", opts.Threads,
				"watch", opts.Watch)
			return nil
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&opts.Config, "config", opts.Config, "Path to the TOML settings file (optional)")
	flags.BoolVarP(&opts.Verbose, "verbose", "v", opts.Verbose, "Enable debug logging")
	flags.IntVarP(&opts.Threads, "threads", "t", opts.Threads, "Transport worker threads (maps to GOMAXPROCS)")
	flags.StringVar(&opts.LogLevel, "log-level", opts.LogLevel, "Log level (debug, info, warn, error)")
	flags.StringVar(&opts.LogFormat, "log-format", opts.LogFormat, "Log format (text, json)")
	flags.StringVar(&opts.MetricsAddr, "metrics-addr", opts.MetricsAddr, "Serve Prometheus metrics on this address (empty disables)")
	flags.BoolVar(&opts.Watch, "watch", opts.Watch, "Restart the stream when its file changes")

	root.AddCommand(
		newServerCmd(&opts),
		newClientCmd(&opts),
		newDevicesCmd(),
		newVersionCmd(),
	)
	return root
}
