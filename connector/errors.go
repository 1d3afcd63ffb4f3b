package connector

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Sentinel errors for common error conditions.
var (
	// ErrNotAttached is returned when the connection could not be attached.
	ErrNotAttached = errors.New("not attached to peer")

	// ErrTimeout is returned when no matching reply arrived in time.
	ErrTimeout = errors.New("command timed out")

	// ErrCommandFailed is returned when the peer replied with an ERROR line.
	ErrCommandFailed = errors.New("command failed")

	// ErrInterrupted is returned when the caller's context ended while waiting.
	ErrInterrupted = errors.New("command interrupted")

	// ErrEmptyCommand is returned when a command has no text.
	ErrEmptyCommand = errors.New("empty command")

	// ErrNoResponseHeaders is returned when a command has no usable reply header.
	ErrNoResponseHeaders = errors.New("no response headers")

	// ErrClosed is returned by operations on a closed connector.
	ErrClosed = errors.New("connector is closed")
)

// NotAttachedError reports the status observed after an attach attempt.
// Cause is set when the attempt itself failed, for example in the handshake.
type NotAttachedError struct {
	Cause  error
	Status Status
}

func (e *NotAttachedError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("not attached to peer (status %s): %v", e.Status, e.Cause)
	}
	return fmt.Sprintf("not attached to peer (status %s)", e.Status)
}

func (e *NotAttachedError) Is(target error) bool { return target == ErrNotAttached }

func (e *NotAttachedError) Unwrap() error { return e.Cause }

// TimeoutError reports a command that got no matching reply before its
// deadline. The connection is demoted to StatusNotRunning when it happens.
type TimeoutError struct {
	Command string
	Timeout time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("command %q got no reply within %s", e.Command, e.Timeout)
}

func (e *TimeoutError) Is(target error) bool { return target == ErrTimeout }

// CommandFailedError is the structured form of an "ERROR <code> <message>"
// reply.
type CommandFailedError struct {
	Message string
	Code    int
}

func (e *CommandFailedError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("command failed with error %d", e.Code)
	}
	return fmt.Sprintf("command failed with error %d: %s", e.Code, e.Message)
}

func (e *CommandFailedError) Is(target error) bool { return target == ErrCommandFailed }

// InterruptedError reports a wait that ended because the caller's context
// was done.
type InterruptedError struct {
	Cause   error
	Command string
}

func (e *InterruptedError) Error() string {
	if e.Command == "" {
		return fmt.Sprintf("connect interrupted: %v", e.Cause)
	}
	return fmt.Sprintf("command %q interrupted: %v", e.Command, e.Cause)
}

func (e *InterruptedError) Is(target error) bool { return target == ErrInterrupted }

func (e *InterruptedError) Unwrap() error { return e.Cause }

// HandshakeError reports a failed name or protocol step after attaching.
type HandshakeError struct {
	Cause error
	Step  string
}

func (e *HandshakeError) Error() string {
	return fmt.Sprintf("handshake %s failed: %v", e.Step, e.Cause)
}

func (e *HandshakeError) Unwrap() error { return e.Cause }

// TransportError wraps a failure reported by the Transport.
type TransportError struct {
	Cause error
	Op    string
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport %s: %v", e.Op, e.Cause)
}

func (e *TransportError) Unwrap() error { return e.Cause }

// ProtocolError represents a reply the engine could not interpret.
type ProtocolError struct {
	Message string
	Line    string
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("protocol error: %s: %q", e.Message, e.Line)
}

// ListenerPanicError carries a panic recovered from a listener callback.
type ListenerPanicError struct {
	Value any
	Event string
	Stack []byte
}

func (e *ListenerPanicError) Error() string {
	return fmt.Sprintf("listener panicked handling %s: %v", e.Event, e.Value)
}

// errorPrefix is the generic failure marker of the protocol.
const errorPrefix = "ERROR "

// IsErrorReply reports whether line is a generic failure reply.
func IsErrorReply(line string) bool {
	return strings.HasPrefix(line, errorPrefix)
}

// ParseCommandFailed parses "ERROR <code> <message>". A reply with a code
// and no message ("ERROR 68") is accepted with an empty message.
func ParseCommandFailed(line string) (*CommandFailedError, error) {
	if !IsErrorReply(line) {
		return nil, &ProtocolError{Message: "not an error reply", Line: line}
	}
	rest := line[len(errorPrefix):]
	codeText, message, _ := strings.Cut(rest, " ")
	code, err := strconv.Atoi(codeText)
	if err != nil {
		return nil, &ProtocolError{Message: "malformed error code", Line: line}
	}
	return &CommandFailedError{Code: code, Message: message}, nil
}

// IsRecoverable reports whether retrying the operation later may succeed.
func IsRecoverable(err error) bool {
	if err == nil {
		return true
	}

	var failed *CommandFailedError
	if errors.As(err, &failed) {
		return false
	}

	var protoErr *ProtocolError
	if errors.As(err, &protoErr) {
		return false
	}

	if errors.Is(err, ErrClosed) || errors.Is(err, ErrEmptyCommand) || errors.Is(err, ErrNoResponseHeaders) {
		return false
	}

	return true
}
