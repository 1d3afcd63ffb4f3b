package connector

import "context"

// SetDebug turns tracing of all peer traffic on or off. Sent lines are
// logged as "-> <line>" and received lines as "<- <line>" at info level.
func (c *Connector) SetDebug(on bool) {
	c.debugMu.Lock()
	defer c.debugMu.Unlock()

	if !on {
		c.debugSub.Cancel()
		c.debugSub = nil
		return
	}
	if c.debugSub != nil {
		return
	}
	// Registration without attach cannot fail.
	c.debugSub, _ = c.AddListener(context.Background(), ListenerFuncs{
		OnLineReceived: func(line string) { c.logger.Info("<- " + line) },
		OnLineSent:     func(line string) { c.logger.Info("-> " + line) },
	}, WithoutAttach(), Ordered())
}
