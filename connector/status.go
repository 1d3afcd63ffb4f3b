package connector

import "sync"

// Status is the attachment state of the connection to the peer.
type Status int

const (
	// StatusNotRunning means the peer is absent or presumed gone.
	StatusNotRunning Status = iota
	// StatusPendingAuthorization means the peer exists but its user has not
	// yet granted or denied control.
	StatusPendingAuthorization
	// StatusRefused means the peer's user denied control.
	StatusRefused
	// StatusNotAvailable means the peer API is presently unusable (for
	// example, no user session).
	StatusNotAvailable
	// StatusAPIAvailable means the API became usable again. A fresh
	// discovery is needed before the connection is attached.
	StatusAPIAvailable
	// StatusAttached means commands can be exchanged with the peer.
	StatusAttached
)

func (s Status) String() string {
	switch s {
	case StatusNotRunning:
		return "NOT_RUNNING"
	case StatusPendingAuthorization:
		return "PENDING_AUTHORIZATION"
	case StatusRefused:
		return "REFUSED"
	case StatusNotAvailable:
		return "NOT_AVAILABLE"
	case StatusAPIAvailable:
		return "API_AVAILABLE"
	case StatusAttached:
		return "ATTACHED"
	default:
		return "UNKNOWN"
	}
}

// terminal reports whether connect should stop retrying discovery.
func (s Status) terminal() bool {
	switch s {
	case StatusAttached, StatusRefused, StatusNotAvailable:
		return true
	default:
		return false
	}
}

// ParseRawStatus maps a transport's numeric attach code to a Status.
// Unknown codes map to StatusNotRunning.
func ParseRawStatus(code int) Status {
	switch code {
	case 0:
		return StatusPendingAuthorization
	case 1:
		return StatusAttached
	case 2:
		return StatusRefused
	case 3:
		return StatusNotAvailable
	case 4:
		return StatusAPIAvailable
	default:
		return StatusNotRunning
	}
}

// statusManager owns the current status. Every change is handed to
// broadcast while the lock is held, so broadcasts are queued in the order
// the transitions happened and each listener observes them in that order.
// broadcast must not block.
type statusManager struct {
	broadcast  func(Status)
	changed    chan struct{}
	mu         sync.Mutex
	status     Status
	handshaken bool
}

func newStatusManager(broadcast func(Status)) *statusManager {
	return &statusManager{
		status:    StatusNotRunning,
		broadcast: broadcast,
		changed:   make(chan struct{}),
	}
}

func (m *statusManager) Current() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

// Set stores s and reports whether it differed from the previous value.
func (m *statusManager) Set(s Status) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.status == s {
		return false
	}
	m.status = s
	if s != StatusAttached {
		m.handshaken = false
	}
	close(m.changed)
	m.changed = make(chan struct{})
	if m.broadcast != nil {
		m.broadcast(s)
	}
	return true
}

// Watch returns the current status and a channel closed on the next change.
func (m *statusManager) Watch() (Status, <-chan struct{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status, m.changed
}

// Ready reports whether the connection is attached and the handshake for
// this attachment has completed.
func (m *statusManager) Ready() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status == StatusAttached && m.handshaken
}

// MarkHandshaken records a completed handshake. It returns false if the
// status left StatusAttached while the handshake was running.
func (m *statusManager) MarkHandshaken() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.status != StatusAttached {
		return false
	}
	m.handshaken = true
	return true
}
