package imap

import (
	"fmt"
	"time"

	"github.com/pkg/errors"
)

var (
	// ErrNotConnected is returned by operations that need a live connection.
	ErrNotConnected = errors.New("imap: not connected")
	// ErrNoMailboxSelected is returned by operations that need a selected mailbox.
	ErrNoMailboxSelected = errors.New("imap: no mailbox selected")
	// ErrMechanismNotImplemented is returned for declared but unsupported
	// authentication mechanisms (OAUTH2, XOAUTH2).
	ErrMechanismNotImplemented = errors.New("imap: authentication mechanism not implemented")
	// ErrReconnectExhausted is wrapped in a ConnectionError once every
	// reconnect attempt has failed.
	ErrReconnectExhausted = errors.New("imap: reconnect attempts exhausted")
	// ErrReconnectInProgress is returned when a reconnect is requested while
	// another one is already running.
	ErrReconnectInProgress = errors.New("imap: reconnect already in progress")
	// ErrSessionClosed is the cancellation cause given to in-flight commands
	// when the session is closed.
	ErrSessionClosed = errors.New("imap: session closed")
)

// CapabilityError reports that the server does not advertise a capability an
// operation requires. It is returned before anything is sent.
type CapabilityError struct {
	Name string
}

func (e *CapabilityError) Error() string {
	return fmt.Sprintf("imap: server does not advertise %s", e.Name)
}

// AuthError reports a rejected authentication exchange.
type AuthError struct {
	Mechanism Mechanism
	Detail    string
	Err       error
}

func (e *AuthError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("imap: %s authentication failed", e.Mechanism)
	}
	return fmt.Sprintf("imap: %s authentication failed: %s", e.Mechanism, e.Detail)
}

func (e *AuthError) Unwrap() error { return e.Err }

// CommandError is a NO or BAD tagged completion. Command has credentials
// redacted.
type CommandError struct {
	Command  string
	Status   string
	Code     string
	Response string
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("imap command failed: %s: %s", e.Command, e.Response)
}

// TimeoutError reports a command whose deadline elapsed before its tagged
// completion arrived.
type TimeoutError struct {
	Operation string
	Timeout   time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("imap: %s timed out after %dms", e.Operation, e.Timeout.Milliseconds())
}

// ConnectionError wraps transport failures and reconnect exhaustion.
type ConnectionError struct {
	Err error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("imap: connection lost: %v", e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// ParseError reports wire data that could not be decoded.
type ParseError struct {
	Data string
	Err  error
}

func (e *ParseError) Error() string {
	if e.Data == "" {
		return fmt.Sprintf("imap: parse failed: %v", e.Err)
	}
	data := e.Data
	if len(data) > 80 {
		data = data[:80] + "..."
	}
	return fmt.Sprintf("imap: parse failed: %v in %q", e.Err, data)
}

func (e *ParseError) Unwrap() error { return e.Err }

func parseErrorf(data, format string, v ...any) *ParseError {
	return &ParseError{Data: data, Err: fmt.Errorf(format, v...)}
}

func isConnectionError(err error) bool {
	var ce *ConnectionError
	return errors.As(err, &ce)
}
