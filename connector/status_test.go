package connector

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusString(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "NOT_RUNNING", StatusNotRunning.String())
	assert.Equal(t, "PENDING_AUTHORIZATION", StatusPendingAuthorization.String())
	assert.Equal(t, "ATTACHED", StatusAttached.String())
	assert.Equal(t, "UNKNOWN", Status(42).String())
}

func TestParseRawStatus(t *testing.T) {
	t.Parallel()
	tests := []struct {
		code int
		want Status
	}{
		{0, StatusPendingAuthorization},
		{1, StatusAttached},
		{2, StatusRefused},
		{3, StatusNotAvailable},
		{4, StatusAPIAvailable},
		{5, StatusNotRunning},
		{-1, StatusNotRunning},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseRawStatus(tt.code), "code %d", tt.code)
	}
}

func TestStatusManager_SetBroadcastsOnlyChanges(t *testing.T) {
	t.Parallel()
	var seen []Status
	m := newStatusManager(func(s Status) { seen = append(seen, s) })

	assert.False(t, m.Set(StatusNotRunning), "setting the current value is a no-op")
	assert.True(t, m.Set(StatusPendingAuthorization))
	assert.False(t, m.Set(StatusPendingAuthorization))
	assert.True(t, m.Set(StatusAttached))

	assert.Equal(t, []Status{StatusPendingAuthorization, StatusAttached}, seen)
}

func TestStatusManager_WatchClosesOnChange(t *testing.T) {
	t.Parallel()
	m := newStatusManager(nil)
	status, changed := m.Watch()
	require.Equal(t, StatusNotRunning, status)

	select {
	case <-changed:
		t.Fatal("changed closed before any change")
	default:
	}

	m.Set(StatusRefused)
	select {
	case <-changed:
	default:
		t.Fatal("changed not closed after a change")
	}
}

func TestStatusManager_HandshakeResetOnLeavingAttached(t *testing.T) {
	t.Parallel()
	m := newStatusManager(nil)
	assert.False(t, m.MarkHandshaken(), "cannot handshake while not attached")

	m.Set(StatusAttached)
	assert.False(t, m.Ready())
	require.True(t, m.MarkHandshaken())
	assert.True(t, m.Ready())

	m.Set(StatusNotRunning)
	m.Set(StatusAttached)
	assert.False(t, m.Ready(), "a new attachment needs a new handshake")
}
