package procgroup

import (
	"errors"
	"os"
	"syscall"
	"time"
)

// ErrStillRunning is returned by Stop when the group survived SIGKILL for
// the whole kill stage.
var ErrStillRunning = errors.New("process group still running")

// Stages bounds each step of Stop.
type Stages struct {
	// Exit is how long the peer may take to exit on its own after its
	// input was closed.
	Exit time.Duration
	// Interrupt is the grace period after SIGINT.
	Interrupt time.Duration
	// Kill is how long to wait for the group to die after SIGKILL.
	Kill time.Duration
}

// DefaultStages are the grace periods used by the stdio transport.
var DefaultStages = Stages{
	Exit:      500 * time.Millisecond,
	Interrupt: 500 * time.Millisecond,
	Kill:      200 * time.Millisecond,
}

// Signal sends sig to the process group led by p. A nil p is a no-op.
func Signal(p *os.Process, sig syscall.Signal) error {
	if p == nil {
		return nil
	}
	return syscall.Kill(-p.Pid, sig)
}

// Kill sends SIGKILL to the process group led by p.
func Kill(p *os.Process) error {
	return Signal(p, syscall.SIGKILL)
}

// Stop waits for exited to close, escalating to SIGINT and then SIGKILL
// on the process group when a stage runs out.
func Stop(p *os.Process, exited <-chan struct{}, stages Stages) error {
	if waitFor(exited, stages.Exit) {
		return nil
	}
	_ = Signal(p, syscall.SIGINT)
	if waitFor(exited, stages.Interrupt) {
		return nil
	}
	_ = Kill(p)
	if waitFor(exited, stages.Kill) {
		return nil
	}
	return ErrStillRunning
}

func waitFor(exited <-chan struct{}, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-exited:
		return true
	case <-timer.C:
		return false
	}
}
