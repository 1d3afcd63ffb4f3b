package connector_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bazelment/yoloswe/peerapi/connector"
	"github.com/bazelment/yoloswe/peerapi/connector/connectortest"
)

func newTestConnector(t *testing.T, peer *connectortest.Peer, opts ...connector.Option) *connector.Connector {
	t.Helper()
	opts = append([]connector.Option{
		connector.WithApplicationName("tester"),
		connector.WithConnectTimeout(time.Second),
		connector.WithCommandTimeout(time.Second),
		connector.WithRetryInterval(20 * time.Millisecond),
	}, opts...)
	c := connector.New(peer, opts...)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

// statusLog collects status changes delivered in order.
type statusLog struct {
	statuses []connector.Status
	mu       sync.Mutex
}

func (l *statusLog) add(s connector.Status) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.statuses = append(l.statuses, s)
}

func (l *statusLog) get() []connector.Status {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]connector.Status(nil), l.statuses...)
}

func TestConnect_AttachesAndHandshakes(t *testing.T) {
	t.Parallel()
	peer := connectortest.NewPeer()
	c := newTestConnector(t, peer)

	var log statusLog
	_, err := c.AddStatusListener(context.Background(), log.add, connector.WithoutAttach(), connector.Ordered())
	require.NoError(t, err)
	assert.Equal(t, connector.StatusNotRunning, c.Status())

	status, err := c.Connect(context.Background())
	require.NoError(t, err)
	assert.Equal(t, connector.StatusAttached, status)
	assert.Equal(t, 6, c.ProtocolVersion())
	assert.True(t, peer.Opened())
	assert.Equal(t, []string{"NAME tester", "PROTOCOL 9999"}, peer.Sent())

	require.Eventually(t, func() bool { return len(log.get()) == 2 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []connector.Status{connector.StatusPendingAuthorization, connector.StatusAttached}, log.get())
}

func TestConnect_AcceptsEchoedName(t *testing.T) {
	t.Parallel()
	peer := connectortest.NewPeer()
	peer.Handle("NAME ", func(cmd string) []string { return []string{cmd} })
	c := newTestConnector(t, peer)

	status, err := c.Connect(context.Background())
	require.NoError(t, err)
	assert.Equal(t, connector.StatusAttached, status)
}

func TestConnect_Idempotent(t *testing.T) {
	t.Parallel()
	peer := connectortest.NewPeer()
	c := newTestConnector(t, peer)

	_, err := c.Connect(context.Background())
	require.NoError(t, err)
	sent := len(peer.Sent())

	status, err := c.Connect(context.Background())
	require.NoError(t, err)
	assert.Equal(t, connector.StatusAttached, status)
	assert.Len(t, peer.Sent(), sent, "second connect must not send anything")
	assert.Equal(t, 1, peer.DiscoverCount())
}

func TestConnect_Refused(t *testing.T) {
	t.Parallel()
	peer := connectortest.NewPeer(connectortest.WithDiscover(func(p *connectortest.Peer) {
		p.SetStatus(connector.StatusPendingAuthorization)
		p.SetStatus(connector.StatusRefused)
	}))
	c := newTestConnector(t, peer)

	status, err := c.Connect(context.Background())
	require.NoError(t, err)
	assert.Equal(t, connector.StatusRefused, status)
	assert.Empty(t, peer.Sent(), "no handshake without attachment")

	_, err = c.Execute(context.Background(), "GET FOO", "FOO")
	var notAttached *connector.NotAttachedError
	require.ErrorAs(t, err, &notAttached)
	assert.Equal(t, connector.StatusRefused, notAttached.Status)
}

func TestConnect_RetriesDiscoveryUntilBudgetExhausted(t *testing.T) {
	t.Parallel()
	peer := connectortest.NewPeer(connectortest.WithDiscover(func(p *connectortest.Peer) {
		p.SetStatus(connector.StatusPendingAuthorization)
	}))
	c := newTestConnector(t, peer, connector.WithConnectTimeout(200*time.Millisecond))

	status, err := c.Connect(context.Background())
	require.NoError(t, err)
	assert.Equal(t, connector.StatusPendingAuthorization, status)
	assert.Greater(t, peer.DiscoverCount(), 1)
}

func TestConnect_AuthorizedLater(t *testing.T) {
	t.Parallel()
	peer := connectortest.NewPeer(connectortest.WithDiscover(func(p *connectortest.Peer) {
		p.SetStatus(connector.StatusPendingAuthorization)
		if p.DiscoverCount() == 3 {
			p.SetStatus(connector.StatusAttached)
		}
	}))
	c := newTestConnector(t, peer)

	status, err := c.Connect(context.Background())
	require.NoError(t, err)
	assert.Equal(t, connector.StatusAttached, status)
	assert.Equal(t, 3, peer.DiscoverCount())
}

func TestConnect_HandshakeFailureDemotes(t *testing.T) {
	t.Parallel()
	peer := connectortest.NewPeer()
	peer.Handle("PROTOCOL ", func(string) []string { return []string{"ERROR 2 Unknown command"} })
	c := newTestConnector(t, peer)

	status, err := c.Connect(context.Background())
	var handshakeErr *connector.HandshakeError
	require.ErrorAs(t, err, &handshakeErr)
	assert.Equal(t, "protocol", handshakeErr.Step)
	assert.ErrorIs(t, err, connector.ErrCommandFailed)
	assert.Equal(t, connector.StatusNotRunning, status)
	assert.Equal(t, connector.StatusNotRunning, c.Status())
}

func TestConnect_HandshakeTimeout(t *testing.T) {
	t.Parallel()
	peer := connectortest.NewPeer(connectortest.WithoutHandshakeReplies())
	c := newTestConnector(t, peer, connector.WithCommandTimeout(50*time.Millisecond))

	status, err := c.Connect(context.Background())
	assert.ErrorIs(t, err, connector.ErrTimeout)
	assert.Equal(t, connector.StatusNotRunning, status)
}

func TestConnect_Interrupted(t *testing.T) {
	t.Parallel()
	peer := connectortest.NewPeer(connectortest.WithDiscover(func(p *connectortest.Peer) {
		p.SetStatus(connector.StatusPendingAuthorization)
	}))
	c := newTestConnector(t, peer, connector.WithConnectTimeout(10*time.Second))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := c.Connect(ctx)
	assert.ErrorIs(t, err, connector.ErrInterrupted)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestConnect_OpenFailure(t *testing.T) {
	t.Parallel()
	peer := connectortest.NewPeer(connectortest.WithOpenError(errors.New("no such peer")))
	c := newTestConnector(t, peer)

	_, err := c.Connect(context.Background())
	var transportErr *connector.TransportError
	require.ErrorAs(t, err, &transportErr)
	assert.Equal(t, "open", transportErr.Op)
}

func TestConnect_ReattachNeedsNewHandshake(t *testing.T) {
	t.Parallel()
	peer := connectortest.NewPeer()
	c := newTestConnector(t, peer)

	_, err := c.Connect(context.Background())
	require.NoError(t, err)

	peer.SetStatus(connector.StatusNotAvailable)
	peer.SetStatus(connector.StatusAPIAvailable)

	status, err := c.Connect(context.Background())
	require.NoError(t, err)
	assert.Equal(t, connector.StatusAttached, status)
	assert.Equal(t, 2, peer.DiscoverCount())
	assert.Equal(t, []string{"NAME tester", "PROTOCOL 9999", "NAME tester", "PROTOCOL 9999"}, peer.Sent())
}

func TestClose(t *testing.T) {
	t.Parallel()
	peer := connectortest.NewPeer()
	c := newTestConnector(t, peer)

	_, err := c.Connect(context.Background())
	require.NoError(t, err)

	require.NoError(t, c.Close())
	assert.True(t, peer.Closed())
	assert.Equal(t, connector.StatusNotRunning, c.Status())

	_, err = c.Connect(context.Background())
	assert.ErrorIs(t, err, connector.ErrClosed)
	_, err = c.Execute(context.Background(), "GET FOO", "FOO")
	assert.ErrorIs(t, err, connector.ErrClosed)
	assert.NoError(t, c.Close(), "second close is a no-op")
}

func TestClose_UnblocksPendingCall(t *testing.T) {
	t.Parallel()
	peer := connectortest.NewPeer()
	c := newTestConnector(t, peer)
	_, err := c.Connect(context.Background())
	require.NoError(t, err)

	errs := make(chan error, 1)
	go func() {
		_, err := c.ExecuteWithoutTimeout(context.Background(), "WAIT", "DONE")
		errs <- err
	}()
	require.NoError(t, peer.WaitSent(context.Background(), "WAIT"))
	require.NoError(t, c.Close())

	select {
	case err := <-errs:
		assert.ErrorIs(t, err, connector.ErrClosed)
	case <-time.After(time.Second):
		t.Fatal("pending call not released by Close")
	}
}
