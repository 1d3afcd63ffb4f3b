package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/bazelment/yoloswe/peerapi/internal/peerproc"
)

var psCmd = &cobra.Command{
	Use:   "ps",
	Short: "List running processes of the peer executable",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		found, err := peerproc.Find(cmd.Context(), cfg.Peer.Path)
		if err != nil {
			return fmt.Errorf("list processes: %w", err)
		}
		if len(found) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "no peer running")
			return nil
		}

		width := terminalWidth(cmd.OutOrStdout())
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "PID\tCOMMAND")
		for _, info := range found {
			pid := fmt.Sprint(info.PID)
			fmt.Fprintf(w, "%s\t%s\n", pid, fitColumn(info.Cmdline, width-len(pid)-2))
		}
		return w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(psCmd)
}

// terminalWidth returns the column count of w, or 0 when w is not a
// terminal.
func terminalWidth(w io.Writer) int {
	f, ok := w.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return 0
	}
	width, _, err := term.GetSize(int(f.Fd()))
	if err != nil {
		return 0
	}
	return width
}

// fitColumn truncates s to width display columns. A width of zero or less
// leaves s unchanged.
func fitColumn(s string, width int) string {
	if width <= 0 {
		return s
	}
	return runewidth.Truncate(s, width, "…")
}
