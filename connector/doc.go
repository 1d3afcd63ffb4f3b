// Package connector drives a peer that speaks a line oriented command
// protocol with no request ids.
//
// A Connector attaches to the peer through a Transport, waits for the
// peer's user to authorize the connection, and announces itself with the
// NAME and PROTOCOL handshake. Execute and its variants turn the
// asynchronous line stream into blocking calls by matching reply headers:
//
//	c := connector.New(transport, connector.WithApplicationName("notes"))
//	defer c.Close()
//
//	reply, err := c.Execute(ctx, "GET USERSTATUS", "USERSTATUS ")
//	if errors.Is(err, connector.ErrCommandFailed) {
//		...
//	}
//
// Replies are matched by prefix only, so two identical commands in flight
// may receive each other's replies. ExecuteWithID tags the command with a
// sequence number for peers that echo it.
//
// Listeners observe every received line, sent line and status change.
// Delivery happens on goroutines owned by the Connector and a panicking
// listener is reported to the ErrorHandler.
package connector
