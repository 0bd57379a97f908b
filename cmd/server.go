package cmd

import (
	"github.com/smazurov/zmqls/internal/config"
	"github.com/smazurov/zmqls/internal/logging"
	"github.com/spf13/cobra"
)

// DefaultStreamFile is used when no file argument is given.
const DefaultStreamFile = "stream.json"

func newServerCmd(opts *config.Options) *cobra.Command {
	return &cobra.Command{
		Use:   "server [file]",
		Short: "Capture from a device and publish frames",
		Long: `Reads the stream file (JSON, or TOML when it ends in .toml), binds the
publisher on "address", applies the device settings and publishes JPEG frames
prefixed with "prefix" until interrupted.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := streamFile(args)
			r := &runner{
				opts:   opts,
				path:   path,
				role:   config.RoleProducer,
				logger: logging.GetLogger("stream"),
			}
			return r.run(cmd.Context())
		},
	}
}

func streamFile(args []string) string {
	if len(args) == 0 {
		return DefaultStreamFile
	}
	return args[0]
}
