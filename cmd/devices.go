package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/smazurov/zmqls/internal/device"
	"github.com/spf13/cobra"
)

func newDevicesCmd() *cobra.Command {
	var asJSON, follow bool

	cmd := &cobra.Command{
		Use:   "devices",
		Short: "List V4L2 capture devices with their modes and controls",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			list, err := device.List()
			if err != nil {
				return fmt.Errorf("list devices: %w", err)
			}
			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(list)
			}
			if err := printDevices(out, list); err != nil || !follow {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			fmt.Fprintln(out, "Watching for capture devices, press Ctrl+C to stop")
			return device.Watch(ctx, func(action, node string) {
				fmt.Fprintf(out, "%s %s\n", action, node)
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON")
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Keep running and report devices being plugged or unplugged")
	return cmd
}

func printDevices(out io.Writer, list []device.Info) error {
	if len(list) == 0 {
		_, err := fmt.Fprintln(out, "No capture devices found")
		return err
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	for _, d := range list {
		fmt.Fprintf(tw, "[%d] %s\t%s\t%s\t%s\n", d.Index, d.Path, d.Name, d.Driver, d.BusInfo)
		for _, f := range d.Formats {
			emulated := ""
			if f.Emulated {
				emulated = " (emulated)"
			}
			fmt.Fprintf(tw, "    %s\t%s%s\n", f.FourCC, f.Description, emulated)
			for _, m := range f.Modes {
				fmt.Fprintf(tw, "      %dx%d\t%s\n", m.Width, m.Height, formatRates(m.FPS))
			}
		}
		if len(d.Controls) > 0 {
			fmt.Fprintln(tw, "    controls:")
		}
		for _, c := range d.Controls {
			fmt.Fprintf(tw, "      %s\t%s\tmin=%d max=%d default=%d value=%d\n",
				c.Name, c.Type, c.Min, c.Max, c.Default, c.Value)
		}
	}
	return tw.Flush()
}

func formatRates(rates []float64) string {
	if len(rates) == 0 {
		return "-"
	}
	parts := make([]string, len(rates))
	for i, r := range rates {
		parts[i] = fmt.Sprintf("%g", r)
	}
	return strings.Join(parts, ", ") + " fps"
}
