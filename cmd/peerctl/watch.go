package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/bazelment/yoloswe/peerapi/connector"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Print every line and status change until interrupted",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := openConnector()
		if err != nil {
			return err
		}
		defer c.Close()

		ctx := cmd.Context()
		sub, err := c.AddListener(ctx, printer(cmd.OutOrStdout()), connector.Ordered())
		if err != nil {
			return err
		}
		defer sub.Cancel()

		<-ctx.Done()
		return nil
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

// printer writes peer traffic to w, one event per line.
func printer(w io.Writer) connector.Listener {
	return connector.ListenerFuncs{
		OnLineReceived:  func(line string) { fmt.Fprintln(w, "<- "+line) },
		OnStatusChanged: func(s connector.Status) { fmt.Fprintf(w, "== %s\n", s) },
	}
}
