// Package stdio runs the peer as a subprocess and exchanges lines with it
// over its standard input and output.
package stdio

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/bazelment/yoloswe/peerapi/connector"
	"github.com/bazelment/yoloswe/peerapi/internal/peerproc"
	"github.com/bazelment/yoloswe/peerapi/internal/procgroup"
)

// Transport implements connector.Transport over a subprocess.
type Transport struct {
	stdin       io.WriteCloser
	sink        connector.Sink
	logger      *slog.Logger
	cmd         *exec.Cmd
	exited      chan struct{}
	config      Config
	mu          sync.Mutex
	discovering atomic.Bool
	started     bool
	stopping    bool
}

var _ connector.Transport = (*Transport)(nil)

// New creates a Transport. The peer is started by Open.
func New(opts ...Option) *Transport {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Transport{config: cfg, logger: logger, exited: make(chan struct{})}
}

// Open starts the peer process.
func (t *Transport) Open(_ context.Context, sink connector.Sink) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.started {
		return ErrAlreadyOpen
	}
	if t.config.BinaryPath == "" {
		return ErrNoBinary
	}

	// The peer outlives the Open call, so it is not bound to ctx.
	cmd := exec.Command(t.config.BinaryPath, t.config.BinaryArgs...)
	procgroup.Configure(cmd)

	if len(t.config.Env) > 0 {
		cmd.Env = os.Environ()
		for k, v := range t.config.Env {
			cmd.Env = append(cmd.Env, k+"="+v)
		}
	}

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return &ProcessError{Message: "failed to get stdin pipe", Cause: err}
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return &ProcessError{Message: "failed to get stdout pipe", Cause: err}
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return &ProcessError{Message: "failed to get stderr pipe", Cause: err}
	}

	if err := cmd.Start(); err != nil {
		return &ProcessError{Message: "failed to start peer process", Cause: err}
	}
	t.logger.Debug("peer started", "path", t.config.BinaryPath, "pid", cmd.Process.Pid)

	t.cmd = cmd
	t.stdin = stdin
	t.sink = sink
	t.started = true

	go t.run(stdout, stderr)
	return nil
}

// run pumps the peer's output until it closes, then reaps the process.
func (t *Transport) run(stdout, stderr io.Reader) {
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		t.readStderr(stderr)
	}()

	reader := bufio.NewReader(stdout)
	for {
		line, err := reader.ReadString('\n')
		if line = strings.TrimRight(line, "\r\n"); line != "" || err == nil {
			t.handleLine(line)
		}
		if err != nil {
			if err != io.EOF {
				t.logger.Debug("peer output closed", "error", err)
			}
			break
		}
	}

	wg.Wait()
	err := t.cmd.Wait()
	t.logger.Debug("peer exited", "error", err)

	t.mu.Lock()
	t.stopping = true
	t.mu.Unlock()
	close(t.exited)
	t.sink.StatusHintChanged(connector.StatusNotRunning)
}

func (t *Transport) handleLine(line string) {
	if t.discovering.Load() {
		if status, ok := t.config.AttachReplies[line]; ok && t.discovering.CompareAndSwap(true, false) {
			t.sink.LineReceived(line)
			t.sink.StatusHintChanged(status)
			return
		}
	}
	t.sink.LineReceived(line)
}

func (t *Transport) readStderr(stderr io.Reader) {
	buf := make([]byte, 4096)
	for {
		n, err := stderr.Read(buf)
		if n > 0 && t.config.StderrHandler != nil {
			t.config.StderrHandler(buf[:n])
		}
		if err != nil {
			return
		}
	}
}

// Discover sends the discovery line when the peer is alive. The reply is
// looked up in the attach table and reported as a status hint.
func (t *Transport) Discover(ctx context.Context, applicationName string) error {
	t.mu.Lock()
	started := t.started
	sink := t.sink
	var pid int
	if t.cmd != nil && t.cmd.Process != nil {
		pid = t.cmd.Process.Pid
	}
	t.mu.Unlock()

	if !started {
		return ErrNotOpen
	}
	if t.hasExited() {
		sink.StatusHintChanged(connector.StatusNotRunning)
		return nil
	}
	running, err := peerproc.IsRunning(ctx, pid)
	if err != nil {
		return &ProcessError{Message: "failed to check peer process", Cause: err}
	}
	if !running {
		sink.StatusHintChanged(connector.StatusNotRunning)
		return nil
	}

	t.discovering.Store(true)
	sink.StatusHintChanged(connector.StatusPendingAuthorization)
	return t.SendLine(fmt.Sprintf(t.config.DiscoveryLine, applicationName))
}

// SendLine writes line followed by a newline to the peer's input.
func (t *Transport) SendLine(line string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.started {
		return ErrNotOpen
	}
	if t.stopping {
		return ErrClosed
	}
	if _, err := io.WriteString(t.stdin, line+"\n"); err != nil {
		return &ProcessError{Message: "failed to write to peer", Cause: err}
	}
	return nil
}

// Close closes the peer's input and stops its process group if it does
// not exit on its own.
func (t *Transport) Close() error {
	t.mu.Lock()
	if !t.started {
		t.mu.Unlock()
		return nil
	}
	alreadyStopping := t.stopping
	t.stopping = true
	t.mu.Unlock()

	if !alreadyStopping {
		_ = t.stdin.Close()
	}
	if err := procgroup.Stop(t.cmd.Process, t.exited, t.config.Stages); err != nil {
		return &ProcessError{Message: "failed to stop peer", Cause: err}
	}
	return nil
}

// PID returns the peer's process id, or 0 before Open.
func (t *Transport) PID() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.cmd == nil || t.cmd.Process == nil {
		return 0
	}
	return t.cmd.Process.Pid
}

func (t *Transport) hasExited() bool {
	select {
	case <-t.exited:
		return true
	default:
		return false
	}
}
