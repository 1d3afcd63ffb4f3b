package connector

import (
	"context"
	"sync"
)

// Listener observes traffic and status of a Connector.
type Listener interface {
	LineReceived(line string)
	LineSent(line string)
	StatusChanged(status Status)
}

// ListenerFuncs adapts plain functions to Listener. Nil fields are ignored.
type ListenerFuncs struct {
	OnLineReceived  func(line string)
	OnLineSent      func(line string)
	OnStatusChanged func(status Status)
}

func (f ListenerFuncs) LineReceived(line string) {
	if f.OnLineReceived != nil {
		f.OnLineReceived(line)
	}
}

func (f ListenerFuncs) LineSent(line string) {
	if f.OnLineSent != nil {
		f.OnLineSent(line)
	}
}

func (f ListenerFuncs) StatusChanged(status Status) {
	if f.OnStatusChanged != nil {
		f.OnStatusChanged(status)
	}
}

type listenerOptions struct {
	ordered       bool
	withoutAttach bool
}

// ListenerOption configures a listener registration.
type ListenerOption func(*listenerOptions)

// WithoutAttach registers the listener without connecting to the peer.
func WithoutAttach() ListenerOption {
	return func(o *listenerOptions) { o.withoutAttach = true }
}

// Ordered puts the listener on a queue shared by all ordered listeners, so
// events reach them one at a time in publication order across listeners.
// A callback must return promptly and must not wait on Execute.
//
// Without Ordered, each listener still sees its own events one at a time
// and in order, but different listeners run in parallel.
func Ordered() ListenerOption {
	return func(o *listenerOptions) { o.ordered = true }
}

// Subscription is a registered listener. Cancel it to stop delivery.
type Subscription struct {
	registry *registry
	entry    *listenerEntry
	once     sync.Once
}

// Cancel removes the listener. Events not yet delivered are dropped.
// Calling Cancel more than once is a no-op.
func (s *Subscription) Cancel() {
	if s == nil {
		return
	}
	s.once.Do(func() { s.registry.remove(s.entry) })
}

// AddListener registers l. Unless WithoutAttach is given, the Connector is
// connected first and the registration is undone if that fails.
func (c *Connector) AddListener(ctx context.Context, l Listener, opts ...ListenerOption) (*Subscription, error) {
	return c.register(ctx, &listenerEntry{
		onLine:   func(ev *lineEvent) { l.LineReceived(ev.text) },
		onSent:   l.LineSent,
		onStatus: l.StatusChanged,
	}, opts)
}

// AddLineListener registers fn for every received line.
func (c *Connector) AddLineListener(ctx context.Context, fn func(line string), opts ...ListenerOption) (*Subscription, error) {
	return c.register(ctx, &listenerEntry{
		onLine: func(ev *lineEvent) { fn(ev.text) },
	}, opts)
}

// AddStatusListener registers fn for every status change.
func (c *Connector) AddStatusListener(ctx context.Context, fn func(status Status), opts ...ListenerOption) (*Subscription, error) {
	return c.register(ctx, &listenerEntry{onStatus: fn}, opts)
}

// RemoveListener cancels sub. A nil or already cancelled sub is ignored.
func (c *Connector) RemoveListener(sub *Subscription) {
	sub.Cancel()
}

func (c *Connector) register(ctx context.Context, entry *listenerEntry, opts []ListenerOption) (*Subscription, error) {
	var o listenerOptions
	for _, opt := range opts {
		opt(&o)
	}
	if o.ordered {
		entry.mode = deliverOrdered
	}

	c.registry.add(entry)
	sub := &Subscription{registry: c.registry, entry: entry}
	if o.withoutAttach {
		return sub, nil
	}
	if err := c.ensureAttached(ctx); err != nil {
		sub.Cancel()
		return nil, err
	}
	return sub, nil
}
