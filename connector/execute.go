package connector

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"
)

// request describes one command waiting for a reply.
type request struct {
	command string
	// tag is stripped from the matched reply before it is interpreted.
	tag     string
	headers []string
	// timeout of zero waits until ctx is done.
	timeout time.Duration
	attach  bool
}

// pendingCall is the one-shot correlation listener of a request. Once
// abandoned it claims no more lines, so a reply it did not take stays
// available to other pending calls.
type pendingCall struct {
	result    chan string
	headers   []string
	mu        sync.Mutex
	delivered bool
	abandoned bool
}

func newPendingCall(headers []string) *pendingCall {
	return &pendingCall{
		headers: headers,
		result:  make(chan string, 1),
	}
}

func (p *pendingCall) matches(line string) bool {
	for _, h := range p.headers {
		if strings.HasPrefix(line, h) {
			return true
		}
	}
	return false
}

func (p *pendingCall) offer(ev *lineEvent) {
	if !p.matches(ev.text) {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.delivered || p.abandoned || !ev.claim() {
		return
	}
	p.delivered = true
	p.result <- ev.text
}

// abandon stops the call from claiming lines. It returns the reply if one
// was delivered before the call gave up.
func (p *pendingCall) abandon() (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.abandoned = true
	select {
	case line := <-p.result:
		return line, true
	default:
		return "", false
	}
}

// Execute sends command and returns the first received line that starts
// with responseHeader. An "ERROR " reply is returned as *CommandFailedError.
func (c *Connector) Execute(ctx context.Context, command, responseHeader string) (string, error) {
	if err := checkCommand(command, responseHeader); err != nil {
		return "", err
	}
	return c.execute(ctx, request{
		command: command,
		headers: []string{responseHeader, errorPrefix},
		timeout: c.config.CommandTimeout,
		attach:  true,
	})
}

// ExecuteHeaders is like Execute but accepts any of headers. The generic
// error marker is not added.
func (c *Connector) ExecuteHeaders(ctx context.Context, command string, headers []string) (string, error) {
	return c.execute(ctx, request{
		command: command,
		headers: headers,
		timeout: c.config.CommandTimeout,
		attach:  true,
	})
}

// ExecuteEcho sends command and waits for the peer to echo it back.
func (c *Connector) ExecuteEcho(ctx context.Context, command string) (string, error) {
	return c.Execute(ctx, command, command)
}

// ExecuteWithoutTimeout is like Execute but waits until a reply arrives or
// ctx is done.
func (c *Connector) ExecuteWithoutTimeout(ctx context.Context, command, responseHeader string) (string, error) {
	if err := checkCommand(command, responseHeader); err != nil {
		return "", err
	}
	return c.execute(ctx, request{
		command: command,
		headers: []string{responseHeader, errorPrefix},
		attach:  true,
	})
}

// Send writes command without waiting for any reply.
func (c *Connector) Send(ctx context.Context, command string) error {
	if command == "" {
		return ErrEmptyCommand
	}
	if c.closed.Load() {
		return ErrClosed
	}
	if err := c.ensureAttached(ctx); err != nil {
		return err
	}
	return c.sendLine(command)
}

func (c *Connector) sendLine(line string) error {
	c.registry.publishSent(line)
	if err := c.transport.SendLine(line); err != nil {
		return &TransportError{Op: "send", Cause: err}
	}
	return nil
}

func (c *Connector) execute(ctx context.Context, req request) (string, error) {
	if req.command == "" {
		return "", ErrEmptyCommand
	}
	if !hasHeader(req.headers) {
		return "", ErrNoResponseHeaders
	}
	if c.closed.Load() {
		return "", ErrClosed
	}
	if req.attach {
		if err := c.ensureAttached(ctx); err != nil {
			return "", err
		}
	}

	call := newPendingCall(nonEmpty(req.headers))
	entry := &listenerEntry{mode: deliverCorrelation, onLine: call.offer}
	c.registry.add(entry)
	defer c.registry.remove(entry)

	if err := c.sendLine(req.command); err != nil {
		return "", err
	}

	var timeout <-chan time.Time
	if req.timeout > 0 {
		timer := time.NewTimer(req.timeout)
		defer timer.Stop()
		timeout = timer.C
	}

	var failure error
	select {
	case line := <-call.result:
		return interpretReply(strings.TrimPrefix(line, req.tag))
	case <-timeout:
		failure = &TimeoutError{Command: req.command, Timeout: req.timeout}
	case <-c.done:
		failure = ErrClosed
	case <-ctx.Done():
		failure = &InterruptedError{Command: req.command, Cause: ctx.Err()}
	}

	// A reply that raced the deadline still answers the command.
	if line, ok := call.abandon(); ok {
		return interpretReply(strings.TrimPrefix(line, req.tag))
	}
	if errors.Is(failure, ErrTimeout) {
		c.logger.Warn("command timed out, peer presumed gone", "command", req.command, "timeout", req.timeout)
		c.setStatus(StatusNotRunning)
	}
	return "", failure
}

func interpretReply(line string) (string, error) {
	if !IsErrorReply(line) {
		return line, nil
	}
	failed, err := ParseCommandFailed(line)
	if err != nil {
		return "", err
	}
	return "", failed
}

func checkCommand(command, responseHeader string) error {
	if command == "" {
		return ErrEmptyCommand
	}
	if responseHeader == "" {
		return ErrNoResponseHeaders
	}
	return nil
}

func hasHeader(headers []string) bool {
	for _, h := range headers {
		if h != "" {
			return true
		}
	}
	return false
}

// nonEmpty drops empty headers, which would otherwise match every line.
func nonEmpty(headers []string) []string {
	out := make([]string, 0, len(headers))
	for _, h := range headers {
		if h != "" {
			out = append(out, h)
		}
	}
	return out
}
