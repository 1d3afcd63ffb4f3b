//go:build linux

// Package procgroup runs the peer in its own process group and stops the
// whole group when the peer is closed.
package procgroup

import (
	"os/exec"
	"syscall"
)

// Configure starts cmd in a new process group. On Linux the peer also gets
// SIGTERM when this process dies, so an abandoned peer does not linger.
func Configure(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Setpgid:   true,
		Pdeathsig: syscall.SIGTERM,
	}
}
