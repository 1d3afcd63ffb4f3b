package connector

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// Connector owns the connection to one peer: its status, its listeners and
// the commands in flight.
type Connector struct {
	transport Transport
	logger    *slog.Logger
	registry  *registry
	status    *statusManager
	done      chan struct{}
	debugSub  *Subscription
	config    Config
	protocol  atomic.Int64
	seq       atomic.Uint64
	connectMu sync.Mutex
	debugMu   sync.Mutex
	closeOnce sync.Once
	closed    atomic.Bool
	opened    bool
}

// New creates a Connector that talks to the peer through transport. The
// transport is opened lazily by the first Connect.
func New(transport Transport, opts ...Option) *Connector {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.Logger == nil {
		cfg.Logger = discardLogger
	}

	c := &Connector{
		transport: transport,
		config:    cfg,
		logger:    cfg.Logger,
		done:      make(chan struct{}),
	}
	if c.config.ErrorHandler == nil {
		c.config.ErrorHandler = func(err error) {
			c.logger.Error("listener failed", "error", err)
		}
	}
	c.registry = newRegistry(c.config.ErrorHandler)
	c.status = newStatusManager(c.registry.publishStatus)
	return c
}

// Status returns the current connection status.
func (c *Connector) Status() Status {
	return c.status.Current()
}

// ProtocolVersion returns the version the peer replied with during the
// last successful handshake, or 0 before any.
func (c *Connector) ProtocolVersion() int {
	return int(c.protocol.Load())
}

// Connect attaches to the peer and performs the handshake. It returns
// immediately when the connection is already attached and handshaken.
//
// A status other than StatusAttached with a nil error means the peer
// answered (refused, not available) or the connect budget ran out while
// waiting for authorization.
func (c *Connector) Connect(ctx context.Context) (Status, error) {
	c.connectMu.Lock()
	defer c.connectMu.Unlock()

	if c.closed.Load() {
		return c.Status(), ErrClosed
	}
	if c.status.Ready() {
		return StatusAttached, nil
	}

	if !c.opened {
		if err := c.transport.Open(ctx, transportSink{c: c}); err != nil {
			return c.Status(), &TransportError{Op: "open", Cause: err}
		}
		c.opened = true
	}

	status, err := c.attach(ctx)
	if err != nil || status != StatusAttached {
		return status, err
	}

	if err := c.handshake(ctx); err != nil {
		if !isInterrupted(err) {
			c.logger.Warn("handshake failed", "error", err)
			c.setStatus(StatusNotRunning)
		}
		return c.Status(), err
	}
	c.logger.Debug("attached", "protocol", c.ProtocolVersion())
	return StatusAttached, nil
}

// attach runs discovery until the peer gives a decision or the connect
// budget is spent.
func (c *Connector) attach(ctx context.Context) (Status, error) {
	if c.status.Current() == StatusAttached {
		return StatusAttached, nil
	}

	budget := time.NewTimer(c.config.ConnectTimeout)
	defer budget.Stop()

	for attempt := 1; ; attempt++ {
		c.logger.Debug("discovering peer", "attempt", attempt, "application", c.config.ApplicationName)
		if err := c.transport.Discover(ctx, c.config.ApplicationName); err != nil {
			return c.Status(), &TransportError{Op: "discover", Cause: err}
		}

		retry := time.NewTimer(c.config.RetryInterval)
		status, final, err := c.awaitDecision(ctx, retry.C, budget.C)
		retry.Stop()
		if err != nil || final {
			return status, err
		}
	}
}

// awaitDecision waits for a terminal status. It reports false when the retry
// interval elapsed and discovery should be sent again.
func (c *Connector) awaitDecision(ctx context.Context, retry, budget <-chan time.Time) (Status, bool, error) {
	for {
		status, changed := c.status.Watch()
		if status.terminal() {
			return status, true, nil
		}
		select {
		case <-changed:
		case <-retry:
			return status, false, nil
		case <-budget:
			c.logger.Debug("connect budget exhausted", "status", status, "timeout", c.config.ConnectTimeout)
			return status, true, nil
		case <-c.done:
			return status, true, ErrClosed
		case <-ctx.Done():
			return status, true, &InterruptedError{Cause: ctx.Err()}
		}
	}
}

func (c *Connector) handshake(ctx context.Context) error {
	name := "NAME " + c.config.ApplicationName
	if _, err := c.execute(ctx, request{
		command: name,
		headers: []string{name, "OK", errorPrefix},
		timeout: c.config.CommandTimeout,
	}); err != nil {
		return &HandshakeError{Step: "name", Cause: err}
	}

	const protocolHeader = "PROTOCOL "
	reply, err := c.execute(ctx, request{
		command: protocolHeader + strconv.Itoa(c.config.ProtocolVersion),
		headers: []string{protocolHeader, errorPrefix},
		timeout: c.config.CommandTimeout,
	})
	if err != nil {
		return &HandshakeError{Step: "protocol", Cause: err}
	}
	version, err := strconv.Atoi(strings.TrimSpace(strings.TrimPrefix(reply, protocolHeader)))
	if err != nil {
		return &HandshakeError{Step: "protocol", Cause: &ProtocolError{Message: "malformed protocol version", Line: reply}}
	}
	c.protocol.Store(int64(version))

	if !c.status.MarkHandshaken() {
		return &HandshakeError{Step: "protocol", Cause: &NotAttachedError{Status: c.Status()}}
	}
	return nil
}

// ensureAttached connects if needed and fails unless the connection ends
// up attached.
func (c *Connector) ensureAttached(ctx context.Context) error {
	if c.status.Ready() {
		return nil
	}
	status, err := c.Connect(ctx)
	if err != nil && (isInterrupted(err) || errors.Is(err, ErrClosed)) {
		return err
	}
	if status != StatusAttached || err != nil {
		return &NotAttachedError{Status: status, Cause: err}
	}
	return nil
}

// Close closes the transport and fails every blocked call with ErrClosed.
// A closed Connector cannot be reconnected.
func (c *Connector) Close() error {
	c.closeOnce.Do(func() {
		c.closed.Store(true)
		close(c.done)
	})

	c.connectMu.Lock()
	defer c.connectMu.Unlock()

	var err error
	if c.opened {
		c.opened = false
		if cerr := c.transport.Close(); cerr != nil {
			err = &TransportError{Op: "close", Cause: cerr}
		}
	}
	c.setStatus(StatusNotRunning)
	return err
}

func (c *Connector) setStatus(status Status) {
	if c.status.Set(status) {
		c.logger.Debug("status changed", "status", status)
	}
}

func isInterrupted(err error) bool {
	var interrupted *InterruptedError
	return errors.As(err, &interrupted)
}
