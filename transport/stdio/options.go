package stdio

import (
	"log/slog"

	"github.com/bazelment/yoloswe/peerapi/connector"
	"github.com/bazelment/yoloswe/peerapi/internal/procgroup"
)

// Config holds Transport configuration.
type Config struct {
	Logger        *slog.Logger
	StderrHandler func([]byte)
	Env           map[string]string
	AttachReplies map[string]connector.Status
	BinaryPath    string
	DiscoveryLine string
	BinaryArgs    []string
	Stages        procgroup.Stages
}

func defaultConfig() Config {
	return Config{
		DiscoveryLine: "NAME %s",
		AttachReplies: DefaultAttachReplies(),
		Stages:        procgroup.DefaultStages,
	}
}

// DefaultAttachReplies maps the replies a peer gives to discovery onto
// statuses.
func DefaultAttachReplies() map[string]connector.Status {
	return map[string]connector.Status{
		"OK":                 connector.StatusAttached,
		"CONNSTATUS OFFLINE": connector.StatusNotAvailable,
		"ERROR 68":           connector.StatusRefused,
	}
}

// Option is a functional option for configuring a Transport.
type Option func(*Config)

// WithBinaryPath sets the peer executable.
func WithBinaryPath(path string) Option {
	return func(c *Config) { c.BinaryPath = path }
}

// WithBinaryArgs sets the peer's arguments.
func WithBinaryArgs(args ...string) Option {
	return func(c *Config) { c.BinaryArgs = args }
}

// WithEnv adds environment variables to the peer's inherited environment.
func WithEnv(env map[string]string) Option {
	return func(c *Config) { c.Env = env }
}

// WithDiscoveryLine sets the discovery message. format receives the
// application name as its only argument.
func WithDiscoveryLine(format string) Option {
	return func(c *Config) { c.DiscoveryLine = format }
}

// WithAttachReplies replaces the table of discovery replies.
func WithAttachReplies(replies map[string]connector.Status) Option {
	return func(c *Config) { c.AttachReplies = replies }
}

// WithStderrHandler receives raw chunks the peer writes to stderr.
func WithStderrHandler(h func([]byte)) Option {
	return func(c *Config) { c.StderrHandler = h }
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Config) { c.Logger = logger }
}

// WithStopStages overrides the grace periods used by Close.
func WithStopStages(stages procgroup.Stages) Option {
	return func(c *Config) { c.Stages = stages }
}
