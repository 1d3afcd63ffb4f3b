package connectortest

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bazelment/yoloswe/peerapi/connector"
)

type recordingSink struct {
	lines    []string
	statuses []connector.Status
	mu       sync.Mutex
}

func (s *recordingSink) LineReceived(line string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lines = append(s.lines, line)
}

func (s *recordingSink) StatusHintChanged(status connector.Status) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.statuses = append(s.statuses, status)
}

func TestPeer_DefaultBehaviour(t *testing.T) {
	t.Parallel()
	p := NewPeer()
	sink := &recordingSink{}
	require.NoError(t, p.Open(context.Background(), sink))

	require.NoError(t, p.Discover(context.Background(), "app"))
	require.NoError(t, p.SendLine("NAME app"))
	require.NoError(t, p.SendLine("PROTOCOL 9999"))
	require.NoError(t, p.SendLine("UNKNOWN"))

	assert.Equal(t, []connector.Status{connector.StatusPendingAuthorization, connector.StatusAttached}, sink.statuses)
	assert.Equal(t, []string{"OK", "PROTOCOL 6"}, sink.lines)
	assert.Equal(t, []string{"NAME app", "PROTOCOL 9999", "UNKNOWN"}, p.Sent())
	assert.Equal(t, 1, p.DiscoverCount())
}

func TestPeer_LaterHandlersWin(t *testing.T) {
	t.Parallel()
	p := NewPeer()
	sink := &recordingSink{}
	require.NoError(t, p.Open(context.Background(), sink))

	p.Handle("GET ", func(string) []string { return []string{"generic"} })
	p.Reply("GET FOO", "FOO 1", "FOO 2")

	require.NoError(t, p.SendLine("GET FOO"))
	require.NoError(t, p.SendLine("GET BAR"))
	assert.Equal(t, []string{"FOO 1", "FOO 2", "generic"}, sink.lines)
}

func TestPeer_EventsDroppedBeforeOpen(t *testing.T) {
	t.Parallel()
	p := NewPeer()
	p.Emit("ignored")
	p.SetStatus(connector.StatusAttached)
	assert.False(t, p.Opened())
	require.NoError(t, p.Close())
	assert.True(t, p.Closed())
}

func TestPeer_WaitSent(t *testing.T) {
	t.Parallel()
	p := NewPeer()
	go func() {
		time.Sleep(10 * time.Millisecond)
		_ = p.SendLine("PING")
	}()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, p.WaitSent(ctx, "PING"))

	short, cancelShort := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancelShort()
	assert.ErrorIs(t, p.WaitSent(short, "NEVER"), context.DeadlineExceeded)
}
