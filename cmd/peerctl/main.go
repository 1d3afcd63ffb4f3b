// Command peerctl drives a line protocol peer from the command line.
package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/bazelment/yoloswe/peerapi/config"
	"github.com/bazelment/yoloswe/peerapi/connector"
	"github.com/bazelment/yoloswe/peerapi/transport/stdio"
)

var (
	configPath     string
	peerPath       string
	appName        string
	commandTimeout time.Duration
	verbose        bool
)

var rootCmd = &cobra.Command{
	Use:   "peerctl",
	Short: "Talk to a line protocol peer",
	Long: `peerctl starts a peer process, attaches to it and exchanges commands
over its standard input and output. Settings come from a YAML file
(default .peerapi.yaml) and can be overridden with flags.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", config.DefaultPath, "Path to the configuration file")
	rootCmd.PersistentFlags().StringVar(&peerPath, "peer", "", "Peer executable (overrides peer.path)")
	rootCmd.PersistentFlags().StringVar(&appName, "app-name", "", "Application name announced to the peer")
	rootCmd.PersistentFlags().DurationVar(&commandTimeout, "command-timeout", 0, "Reply deadline per command")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newLogger() *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// loadConfig reads the configuration file and applies flag overrides.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if peerPath != "" {
		cfg.Peer.Path = peerPath
	}
	if appName != "" {
		cfg.ApplicationName = appName
	}
	if commandTimeout > 0 {
		cfg.CommandTimeout = commandTimeout
	}
	if cfg.Peer.Path == "" {
		return nil, errors.New("no peer configured: set --peer or peer.path")
	}
	return cfg, nil
}

// openConnector builds a Connector for the configured peer. The caller
// must Close it.
func openConnector() (*connector.Connector, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	logger := newLogger()
	tr := stdio.New(append(cfg.TransportOptions(logger), stdio.WithStderrHandler(func(b []byte) {
		logger.Debug("peer stderr", "output", string(b))
	}))...)
	c := connector.New(tr, cfg.ConnectorOptions(logger)...)
	c.SetDebug(cfg.Debug)
	return c, nil
}
