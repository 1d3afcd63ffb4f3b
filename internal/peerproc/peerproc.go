// Package peerproc looks up peer processes on the local machine.
package peerproc

import (
	"context"
	"path/filepath"

	"github.com/shirou/gopsutil/v3/process"
)

// Info describes a running process.
type Info struct {
	Name    string
	Cmdline string
	PID     int32
}

// IsRunning reports whether a process with pid exists.
func IsRunning(ctx context.Context, pid int) (bool, error) {
	if pid <= 0 {
		return false, nil
	}
	return process.PidExistsWithContext(ctx, int32(pid))
}

// Find lists running processes whose executable name equals the base name
// of binary. Processes that vanish or deny access during the scan are
// skipped.
func Find(ctx context.Context, binary string) ([]Info, error) {
	want := filepath.Base(binary)
	procs, err := process.ProcessesWithContext(ctx)
	if err != nil {
		return nil, err
	}

	var found []Info
	for _, p := range procs {
		name, err := p.NameWithContext(ctx)
		if err != nil || name != want {
			continue
		}
		cmdline, _ := p.CmdlineWithContext(ctx)
		found = append(found, Info{PID: p.Pid, Name: name, Cmdline: cmdline})
	}
	return found, nil
}
