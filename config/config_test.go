package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bazelment/yoloswe/peerapi/connector"
	"github.com/bazelment/yoloswe/peerapi/connector/connectortest"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), DefaultPath)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad(t *testing.T) {
	t.Parallel()
	t.Run("missing file returns defaults", func(t *testing.T) {
		cfg, err := Load(filepath.Join(t.TempDir(), DefaultPath))
		require.NoError(t, err)
		assert.Equal(t, Default(), cfg)
	})

	t.Run("valid yaml file", func(t *testing.T) {
		path := writeConfig(t, `
application_name: notes
protocol_version: 8
connect_timeout: 30s
command_timeout: 1500ms
debug: true
peer:
  path: /usr/bin/peer
  args: ["--quiet"]
  env:
    PEER_HOME: /tmp/peer
  discovery_line: "HELLO %s"
`)
		cfg, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, "notes", cfg.ApplicationName)
		assert.Equal(t, 8, cfg.ProtocolVersion)
		assert.Equal(t, 30*time.Second, cfg.ConnectTimeout)
		assert.Equal(t, 1500*time.Millisecond, cfg.CommandTimeout)
		assert.Equal(t, time.Second, cfg.RetryInterval, "unset fields keep defaults")
		assert.True(t, cfg.Debug)
		assert.Equal(t, "/usr/bin/peer", cfg.Peer.Path)
		assert.Equal(t, []string{"--quiet"}, cfg.Peer.Args)
		assert.Equal(t, map[string]string{"PEER_HOME": "/tmp/peer"}, cfg.Peer.Env)
		assert.Equal(t, "HELLO %s", cfg.Peer.DiscoveryLine)
	})

	t.Run("malformed yaml", func(t *testing.T) {
		_, err := Load(writeConfig(t, "application_name: [unterminated"))
		assert.Error(t, err)
	})

	t.Run("bad duration", func(t *testing.T) {
		_, err := Load(writeConfig(t, "command_timeout: soon"))
		assert.Error(t, err)
	})

	t.Run("empty application name", func(t *testing.T) {
		_, err := Load(writeConfig(t, `application_name: ""`))
		assert.ErrorContains(t, err, "application_name")
	})
}

func TestConnectorOptions(t *testing.T) {
	t.Parallel()
	cfg := Default()
	cfg.ApplicationName = "configured"
	cfg.ProtocolVersion = 5

	peer := connectortest.NewPeer()
	c := connector.New(peer, cfg.ConnectorOptions(nil)...)
	t.Cleanup(func() { _ = c.Close() })

	_, err := c.Connect(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"NAME configured", "PROTOCOL 5"}, peer.Sent())
}

func TestTransportOptions(t *testing.T) {
	t.Parallel()
	cfg := Default()
	cfg.Peer.Path = "/usr/bin/peer"
	assert.Len(t, cfg.TransportOptions(nil), 2)

	cfg.Peer.Env = map[string]string{"A": "b"}
	cfg.Peer.DiscoveryLine = "HELLO %s"
	assert.Len(t, cfg.TransportOptions(nil), 4)
}
