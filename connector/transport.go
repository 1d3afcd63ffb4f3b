package connector

import "context"

// Transport moves lines between the Connector and the peer. Implementations
// deliver received lines and status hints to the Sink given to Open, from
// any goroutine. Sink methods never block.
type Transport interface {
	// Open prepares the transport. It is called once, before the first
	// discovery.
	Open(ctx context.Context, sink Sink) error

	// Discover sends the discovery message announcing applicationName.
	// The outcome is reported later through Sink.StatusHintChanged.
	Discover(ctx context.Context, applicationName string) error

	// SendLine writes one line to the peer.
	SendLine(line string) error

	// Close releases the transport.
	Close() error
}

// Sink receives events from a Transport.
type Sink interface {
	LineReceived(line string)
	StatusHintChanged(status Status)
}

// transportSink adapts a Connector to the Sink interface without exposing
// the methods on Connector itself.
type transportSink struct {
	c *Connector
}

func (s transportSink) LineReceived(line string) {
	s.c.registry.publishLine(line)
}

func (s transportSink) StatusHintChanged(status Status) {
	s.c.setStatus(status)
}
