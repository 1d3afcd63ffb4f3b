package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bazelment/yoloswe/peerapi/connector"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Connect and print the connection status",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := openConnector()
		if err != nil {
			return err
		}
		defer c.Close()

		status, err := c.Connect(cmd.Context())
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "status:   %s\n", status)
		if status == connector.StatusAttached {
			fmt.Fprintf(out, "protocol: %d\n", c.ProtocolVersion())
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
