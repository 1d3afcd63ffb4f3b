package connector

import (
	"context"
	"log/slog"
	"time"
)

// Config holds Connector configuration.
type Config struct {
	// Logger receives diagnostic records. Defaults to a discarding logger.
	Logger *slog.Logger

	// ErrorHandler receives panics recovered from listener callbacks.
	// Defaults to logging them at error level.
	ErrorHandler func(error)

	// ApplicationName is announced to the peer during the handshake and
	// passed to Transport.Discover.
	ApplicationName string

	// ConnectTimeout bounds a whole Connect call, retries included.
	ConnectTimeout time.Duration

	// CommandTimeout bounds the wait for each command's reply.
	CommandTimeout time.Duration

	// RetryInterval is how long Connect waits for an authorization decision
	// before sending discovery again.
	RetryInterval time.Duration

	// ProtocolVersion is the version requested with the PROTOCOL command.
	ProtocolVersion int
}

func defaultConfig() Config {
	return Config{
		ApplicationName: "peerapi-go",
		ProtocolVersion: 9999,
		ConnectTimeout:  10 * time.Second,
		CommandTimeout:  10 * time.Second,
		RetryInterval:   time.Second,
	}
}

// Option is a functional option for configuring a Connector.
type Option func(*Config)

// WithApplicationName sets the name announced to the peer.
func WithApplicationName(name string) Option {
	return func(c *Config) { c.ApplicationName = name }
}

// WithProtocolVersion sets the protocol version requested during the handshake.
func WithProtocolVersion(version int) Option {
	return func(c *Config) { c.ProtocolVersion = version }
}

// WithConnectTimeout sets the overall budget of Connect.
func WithConnectTimeout(d time.Duration) Option {
	return func(c *Config) { c.ConnectTimeout = d }
}

// WithCommandTimeout sets the per-command reply deadline.
func WithCommandTimeout(d time.Duration) Option {
	return func(c *Config) { c.CommandTimeout = d }
}

// WithRetryInterval sets the wait between discovery attempts.
func WithRetryInterval(d time.Duration) Option {
	return func(c *Config) { c.RetryInterval = d }
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Config) { c.Logger = logger }
}

// WithErrorHandler sets the handler for listener panics.
func WithErrorHandler(h func(error)) Option {
	return func(c *Config) { c.ErrorHandler = h }
}

// discardHandler is a slog.Handler that drops all records.
type discardHandler struct{}

func (discardHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (discardHandler) Handle(context.Context, slog.Record) error { return nil }
func (h discardHandler) WithAttrs([]slog.Attr) slog.Handler      { return h }
func (h discardHandler) WithGroup(string) slog.Handler           { return h }

var discardLogger = slog.New(discardHandler{})
