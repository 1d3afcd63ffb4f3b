package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/bazelment/yoloswe/peerapi/connector"
)

var (
	execHeader string
	execSeq    bool
)

var execCmd = &cobra.Command{
	Use:   "exec <command...>",
	Short: "Send one command and print the reply",
	Long: `Send a command and print the first reply line starting with --header.
Without --header the peer is expected to echo the command. With --seq the
command is tagged so concurrent replies cannot be confused.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := openConnector()
		if err != nil {
			return err
		}
		defer c.Close()

		reply, err := runExec(cmd.Context(), c, strings.Join(args, " "), execHeader, execSeq)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), reply)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(execCmd)
	execCmd.Flags().StringVar(&execHeader, "header", "", "Reply header to wait for (default: the command itself)")
	execCmd.Flags().BoolVar(&execSeq, "seq", false, "Tag the command with a sequence number")
}

func runExec(ctx context.Context, c *connector.Connector, command, header string, seq bool) (string, error) {
	if header == "" {
		header = command
	}
	if seq {
		return c.ExecuteWithID(ctx, command, header)
	}
	return c.Execute(ctx, command, header)
}
