package connector

import (
	"context"
	"strconv"
)

// ExecuteWithID sends command prefixed with a fresh "#<n> " tag and waits
// for a reply carrying the same tag. The tag is removed from the returned
// line. Tags start at 0 and are never reused by a Connector.
func (c *Connector) ExecuteWithID(ctx context.Context, command, responseHeader string) (string, error) {
	if err := checkCommand(command, responseHeader); err != nil {
		return "", err
	}
	tag := c.nextTag()
	return c.execute(ctx, request{
		command: tag + command,
		tag:     tag,
		headers: []string{tag + responseHeader, tag + errorPrefix},
		timeout: c.config.CommandTimeout,
		attach:  true,
	})
}

func (c *Connector) nextTag() string {
	n := c.seq.Add(1) - 1
	return "#" + strconv.FormatUint(n, 10) + " "
}
