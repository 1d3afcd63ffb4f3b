package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/bazelment/yoloswe/peerapi/connector"
)

var consoleCmd = &cobra.Command{
	Use:   "console",
	Short: "Interactive session with the peer",
	Long: `Read commands from the terminal and send them to the peer. Every
line the peer emits is printed as it arrives. Lines starting with a dot
are handled locally: .status prints the connection status, .quit exits.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := openConnector()
		if err != nil {
			return err
		}
		defer c.Close()

		editor := newLineEditor(cmd.InOrStdin(), cmd.OutOrStdout())
		defer editor.Close()

		ctx := cmd.Context()
		sub, err := c.AddListener(ctx, printer(editor.Stdout()), connector.Ordered())
		if err != nil {
			return err
		}
		defer sub.Cancel()

		for {
			line, err := editor.ReadLine("peer> ")
			if errors.Is(err, io.EOF) {
				return nil
			}
			if err != nil {
				return err
			}
			quit, err := handleConsoleLine(ctx, c, line, editor.Stdout())
			if err != nil {
				fmt.Fprintf(editor.Stdout(), "error: %v\n", err)
				if !connector.IsRecoverable(err) && !errors.Is(err, connector.ErrCommandFailed) {
					return err
				}
			}
			if quit {
				return nil
			}
		}
	},
}

func init() {
	rootCmd.AddCommand(consoleCmd)
}

// handleConsoleLine runs one line of console input. It reports whether the
// console should exit.
func handleConsoleLine(ctx context.Context, c *connector.Connector, line string, out io.Writer) (bool, error) {
	line = strings.TrimSpace(line)
	switch line {
	case "":
		return false, nil
	case ".quit", ".exit":
		return true, nil
	case ".status":
		fmt.Fprintf(out, "status: %s protocol: %d\n", c.Status(), c.ProtocolVersion())
		return false, nil
	}
	if strings.HasPrefix(line, ".") {
		return false, fmt.Errorf("unknown console command %q", line)
	}
	return false, c.Send(ctx, line)
}
