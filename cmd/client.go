package cmd

import (
	"github.com/smazurov/zmqls/internal/config"
	"github.com/smazurov/zmqls/internal/logging"
	"github.com/spf13/cobra"
)

func newClientCmd(opts *config.Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "client [file]",
		Short: "Subscribe to a stream and display it",
		Long: `Reads the stream file, subscribes to "prefix" at "address" and shows the
decoded frames in the browser viewer after resize, flip, rotate and gamma.
Press Escape in the viewer to quit.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r := &runner{
				opts:   opts,
				path:   streamFile(args),
				role:   config.RoleConsumer,
				logger: logging.GetLogger("stream"),
			}
			return r.run(cmd.Context())
		},
	}

	cmd.Flags().StringVar(&opts.Listen, "listen", opts.Listen, "Viewer listen address")
	cmd.Flags().BoolVar(&opts.Headless, "headless", opts.Headless, "Discard frames instead of serving the viewer")
	return cmd
}
