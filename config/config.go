// Package config loads peerctl settings from a YAML file.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/bazelment/yoloswe/peerapi/connector"
	"github.com/bazelment/yoloswe/peerapi/transport/stdio"
)

// DefaultPath is the configuration file read when none is given.
const DefaultPath = ".peerapi.yaml"

// Config holds connector and peer settings.
type Config struct {
	ApplicationName string        `yaml:"application_name"`
	Peer            PeerConfig    `yaml:"peer"`
	ProtocolVersion int           `yaml:"protocol_version"`
	ConnectTimeout  time.Duration `yaml:"connect_timeout"`
	CommandTimeout  time.Duration `yaml:"command_timeout"`
	RetryInterval   time.Duration `yaml:"retry_interval"`
	Debug           bool          `yaml:"debug"`
}

// PeerConfig describes how to launch the peer process.
type PeerConfig struct {
	Env           map[string]string `yaml:"env"`
	Path          string            `yaml:"path"`
	DiscoveryLine string            `yaml:"discovery_line"`
	Args          []string          `yaml:"args"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		ApplicationName: "peerctl",
		ProtocolVersion: 9999,
		ConnectTimeout:  10 * time.Second,
		CommandTimeout:  10 * time.Second,
		RetryInterval:   time.Second,
	}
}

// Load reads the YAML file at path. Returns the default config if the file
// doesn't exist. Fields missing from the file keep their defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid %s: %w", path, err)
	}
	return cfg, nil
}

// Validate rejects settings the connector cannot work with.
func (c *Config) Validate() error {
	if c.ApplicationName == "" {
		return errors.New("application_name must not be empty")
	}
	if c.ConnectTimeout <= 0 || c.CommandTimeout <= 0 || c.RetryInterval <= 0 {
		return errors.New("timeouts must be positive")
	}
	return nil
}

// ConnectorOptions converts the settings into connector options.
func (c *Config) ConnectorOptions(logger *slog.Logger) []connector.Option {
	opts := []connector.Option{
		connector.WithApplicationName(c.ApplicationName),
		connector.WithProtocolVersion(c.ProtocolVersion),
		connector.WithConnectTimeout(c.ConnectTimeout),
		connector.WithCommandTimeout(c.CommandTimeout),
		connector.WithRetryInterval(c.RetryInterval),
	}
	if logger != nil {
		opts = append(opts, connector.WithLogger(logger))
	}
	return opts
}

// TransportOptions converts the peer settings into stdio transport options.
func (c *Config) TransportOptions(logger *slog.Logger) []stdio.Option {
	opts := []stdio.Option{
		stdio.WithBinaryPath(c.Peer.Path),
		stdio.WithBinaryArgs(c.Peer.Args...),
	}
	if len(c.Peer.Env) > 0 {
		opts = append(opts, stdio.WithEnv(c.Peer.Env))
	}
	if c.Peer.DiscoveryLine != "" {
		opts = append(opts, stdio.WithDiscoveryLine(c.Peer.DiscoveryLine))
	}
	if logger != nil {
		opts = append(opts, stdio.WithLogger(logger))
	}
	return opts
}
