package stdio

import (
	"errors"
	"fmt"
)

var (
	// ErrAlreadyOpen is returned when Open is called twice.
	ErrAlreadyOpen = errors.New("transport already open")

	// ErrNotOpen is returned when writing before Open.
	ErrNotOpen = errors.New("transport not open")

	// ErrClosed is returned when writing after Close or after the peer exited.
	ErrClosed = errors.New("transport closed")

	// ErrNoBinary is returned by Open when no peer executable is configured.
	ErrNoBinary = errors.New("no peer binary configured")
)

// ProcessError reports a failure to manage the peer subprocess.
type ProcessError struct {
	Cause   error
	Message string
}

func (e *ProcessError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *ProcessError) Unwrap() error { return e.Cause }
