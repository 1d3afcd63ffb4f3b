package connector

// ListenerCount exposes the number of registered entries, pending calls
// included.
func ListenerCount(c *Connector) int {
	return c.registry.len()
}
