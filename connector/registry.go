package connector

import (
	"runtime/debug"
	"sync"
	"sync/atomic"
)

// deliveryMode selects how a registry entry receives events.
type deliveryMode int

const (
	// deliverConcurrent gives every entry its own queue. An entry sees its
	// events one at a time in publication order; entries run in parallel.
	deliverConcurrent deliveryMode = iota
	// deliverOrdered runs events for all ordered entries on one shared
	// queue in publication order.
	deliverOrdered
	// deliverCorrelation is reserved for pending calls. Its queue never
	// runs user callbacks, so replies can always be matched.
	deliverCorrelation
)

// lineEvent is one received line as seen by a single publication. The
// claim flag is shared by every pending call that sees the event so that
// a line satisfies at most one of them.
type lineEvent struct {
	text    string
	claimed atomic.Bool
}

func (e *lineEvent) claim() bool {
	return e.claimed.CompareAndSwap(false, true)
}

// listenerEntry is one registration. queue is only used in
// deliverConcurrent mode.
type listenerEntry struct {
	onLine   func(ev *lineEvent)
	onSent   func(line string)
	onStatus func(status Status)
	queue    serialQueue
	id       uint64
	mode     deliveryMode
	removed  atomic.Bool
}

// registry is a copy-on-write list of listener entries. Writers are
// serialised by mu; publishers only load the current snapshot.
type registry struct {
	onPanic     func(error)
	entries     atomic.Pointer[[]*listenerEntry]
	ordered     serialQueue
	correlation serialQueue
	mu          sync.Mutex
	nextID      atomic.Uint64
}

func newRegistry(onPanic func(error)) *registry {
	r := &registry{onPanic: onPanic}
	empty := []*listenerEntry{}
	r.entries.Store(&empty)
	return r
}

func (r *registry) snapshot() []*listenerEntry {
	return *r.entries.Load()
}

func (r *registry) add(e *listenerEntry) {
	e.id = r.nextID.Add(1)

	r.mu.Lock()
	defer r.mu.Unlock()
	old := r.snapshot()
	next := make([]*listenerEntry, len(old), len(old)+1)
	copy(next, old)
	next = append(next, e)
	r.entries.Store(&next)
}

// remove deletes e. Events already snapshotted but not yet delivered to e
// are skipped. Removing an absent entry is a no-op.
func (r *registry) remove(e *listenerEntry) {
	if e == nil {
		return
	}
	e.removed.Store(true)

	r.mu.Lock()
	defer r.mu.Unlock()
	old := r.snapshot()
	next := make([]*listenerEntry, 0, len(old))
	for _, cur := range old {
		if cur != e {
			next = append(next, cur)
		}
	}
	if len(next) != len(old) {
		r.entries.Store(&next)
	}
}

func (r *registry) contains(e *listenerEntry) bool {
	for _, cur := range r.snapshot() {
		if cur == e {
			return true
		}
	}
	return false
}

func (r *registry) len() int {
	return len(r.snapshot())
}

func (r *registry) publishLine(line string) {
	ev := &lineEvent{text: line}
	r.publish("line received", func(e *listenerEntry) bool { return e.onLine != nil }, func(e *listenerEntry) {
		e.onLine(ev)
	})
}

func (r *registry) publishSent(line string) {
	r.publish("line sent", func(e *listenerEntry) bool { return e.onSent != nil }, func(e *listenerEntry) {
		e.onSent(line)
	})
}

func (r *registry) publishStatus(status Status) {
	r.publish("status changed", func(e *listenerEntry) bool { return e.onStatus != nil }, func(e *listenerEntry) {
		e.onStatus(status)
	})
}

// publish snapshots the interested entries now and queues the delivery
// off the calling goroutine. It never blocks. Every entry receives events
// in the order they were published.
func (r *registry) publish(event string, wants func(*listenerEntry) bool, call func(*listenerEntry)) {
	var correlation, ordered, concurrent []*listenerEntry
	for _, e := range r.snapshot() {
		if !wants(e) {
			continue
		}
		switch e.mode {
		case deliverCorrelation:
			correlation = append(correlation, e)
		case deliverOrdered:
			ordered = append(ordered, e)
		default:
			concurrent = append(concurrent, e)
		}
	}

	if len(correlation) > 0 {
		r.correlation.push(func() { r.deliver(event, correlation, call) })
	}
	if len(ordered) > 0 {
		r.ordered.push(func() { r.deliver(event, ordered, call) })
	}
	for _, e := range concurrent {
		e.queue.push(func() { r.invoke(event, e, call) })
	}
}

func (r *registry) deliver(event string, entries []*listenerEntry, call func(*listenerEntry)) {
	for _, e := range entries {
		r.invoke(event, e, call)
	}
}

func (r *registry) invoke(event string, e *listenerEntry, call func(*listenerEntry)) {
	if e.removed.Load() {
		return
	}
	defer func() {
		if v := recover(); v != nil && r.onPanic != nil {
			r.onPanic(&ListenerPanicError{Value: v, Event: event, Stack: debug.Stack()})
		}
	}()
	call(e)
}

// serialQueue runs queued functions one at a time on a goroutine that is
// started on demand and exits once the queue is drained.
type serialQueue struct {
	items   []func()
	mu      sync.Mutex
	running bool
}

func (q *serialQueue) push(fn func()) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = append(q.items, fn)
	if !q.running {
		q.running = true
		go q.drain()
	}
}

func (q *serialQueue) drain() {
	for {
		q.mu.Lock()
		if len(q.items) == 0 {
			q.running = false
			q.mu.Unlock()
			return
		}
		fn := q.items[0]
		q.items[0] = nil
		q.items = q.items[1:]
		q.mu.Unlock()

		fn()
	}
}
