// Package connectortest provides an in-memory peer for testing code built
// on package connector.
package connectortest

import (
	"context"
	"slices"
	"strings"
	"sync"

	"github.com/bazelment/yoloswe/peerapi/connector"
)

// Handler produces the reply lines for a command the peer received.
type Handler func(command string) []string

type handler struct {
	fn     Handler
	match  string
	prefix bool
}

// Peer is a scripted peer implementing connector.Transport. Replies to a
// command are delivered from inside SendLine, before it returns.
type Peer struct {
	sink          connector.Sink
	openErr       error
	sendErr       error
	discover      func(p *Peer)
	sentCh        chan struct{}
	handlers      []handler
	sent          []string
	discoverCount int
	mu            sync.Mutex
	opened        bool
	closed        bool
}

// PeerOption configures a Peer.
type PeerOption func(*Peer)

// WithDiscover replaces the discovery behaviour. The default hints
// StatusPendingAuthorization followed by StatusAttached.
func WithDiscover(fn func(p *Peer)) PeerOption {
	return func(p *Peer) { p.discover = fn }
}

// WithoutHandshakeReplies leaves NAME and PROTOCOL unanswered.
func WithoutHandshakeReplies() PeerOption {
	return func(p *Peer) { p.handlers = nil }
}

// WithOpenError makes Open fail with err.
func WithOpenError(err error) PeerOption {
	return func(p *Peer) { p.openErr = err }
}

// NewPeer returns a peer that authorizes every discovery and answers the
// handshake with "OK" and "PROTOCOL 6".
func NewPeer(opts ...PeerOption) *Peer {
	p := &Peer{
		sentCh: make(chan struct{}),
		discover: func(p *Peer) {
			p.SetStatus(connector.StatusPendingAuthorization)
			p.SetStatus(connector.StatusAttached)
		},
		handlers: []handler{
			{match: "NAME ", prefix: true, fn: func(string) []string { return []string{"OK"} }},
			{match: "PROTOCOL ", prefix: true, fn: func(string) []string { return []string{"PROTOCOL 6"} }},
		},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Open implements connector.Transport.
func (p *Peer) Open(_ context.Context, sink connector.Sink) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.openErr != nil {
		return p.openErr
	}
	p.sink = sink
	p.opened = true
	return nil
}

// Discover implements connector.Transport.
func (p *Peer) Discover(context.Context, string) error {
	p.mu.Lock()
	p.discoverCount++
	discover := p.discover
	p.mu.Unlock()

	if discover != nil {
		discover(p)
	}
	return nil
}

// SendLine implements connector.Transport. It records line and delivers
// the replies of the handler that matches it.
func (p *Peer) SendLine(line string) error {
	p.mu.Lock()
	if p.sendErr != nil {
		err := p.sendErr
		p.mu.Unlock()
		return err
	}
	p.sent = append(p.sent, line)
	close(p.sentCh)
	p.sentCh = make(chan struct{})
	fn := p.lookup(line)
	p.mu.Unlock()

	if fn == nil {
		return nil
	}
	for _, reply := range fn(line) {
		p.Emit(reply)
	}
	return nil
}

// Close implements connector.Transport.
func (p *Peer) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

// lookup returns the most recently registered matching handler.
func (p *Peer) lookup(line string) Handler {
	for i := len(p.handlers) - 1; i >= 0; i-- {
		h := p.handlers[i]
		if (h.prefix && strings.HasPrefix(line, h.match)) || line == h.match {
			return h.fn
		}
	}
	return nil
}

// Handle answers every command starting with prefix using fn. Later
// registrations take precedence.
func (p *Peer) Handle(prefix string, fn Handler) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.handlers = append(p.handlers, handler{match: prefix, prefix: true, fn: fn})
}

// Reply answers the exact command with lines.
func (p *Peer) Reply(command string, lines ...string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.handlers = append(p.handlers, handler{match: command, fn: func(string) []string { return lines }})
}

// FailSends makes SendLine return err. A nil err restores normal sending.
func (p *Peer) FailSends(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sendErr = err
}

// Emit delivers an unsolicited line. It is dropped before Open.
func (p *Peer) Emit(line string) {
	if sink := p.currentSink(); sink != nil {
		sink.LineReceived(line)
	}
}

// SetStatus hints a status change. It is dropped before Open.
func (p *Peer) SetStatus(status connector.Status) {
	if sink := p.currentSink(); sink != nil {
		sink.StatusHintChanged(status)
	}
}

func (p *Peer) currentSink() connector.Sink {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.sink
}

// Sent returns the lines written to the peer so far.
func (p *Peer) Sent() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return slices.Clone(p.sent)
}

// WaitSent blocks until line has been sent or ctx is done.
func (p *Peer) WaitSent(ctx context.Context, line string) error {
	for {
		p.mu.Lock()
		found := slices.Contains(p.sent, line)
		ch := p.sentCh
		p.mu.Unlock()
		if found {
			return nil
		}
		select {
		case <-ch:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// DiscoverCount returns how many discoveries were requested.
func (p *Peer) DiscoverCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.discoverCount
}

// Opened reports whether Open succeeded.
func (p *Peer) Opened() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.opened
}

// Closed reports whether Close was called.
func (p *Peer) Closed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}
