package magnetar

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptySequence indicates a batch with no command codes.
	ErrEmptySequence = errors.New("command sequence is empty")

	// ErrUnknownAction indicates an action key that is not in the catalog.
	ErrUnknownAction = errors.New("unknown action")

	// ErrCannotConnect indicates the device did not answer the pairing probe
	// with an acknowledgement.
	ErrCannotConnect = errors.New("cannot connect")
)

// InvalidCodeError reports a code outside the closed catalog
type InvalidCodeError struct {
	Index int
	Code  string
}

func (e *InvalidCodeError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("invalid command code %q", e.Code)
	}
	return fmt.Sprintf("invalid command code %q at position %d", e.Code, e.Index)
}

// ConnectionError indicates the session could not be opened. No command was
// written when this error is returned.
type ConnectionError struct {
	Address string
	Cause   error
}

func (e *ConnectionError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("connection to %s failed: %v", e.Address, e.Cause)
	}
	return fmt.Sprintf("connection to %s failed", e.Address)
}

// Unwrap returns the underlying dial error.
func (e *ConnectionError) Unwrap() error {
	return e.Cause
}

// TransportError indicates an I/O failure in the middle of a batch. Commands
// after Index were not sent.
type TransportError struct {
	Op    string // "write" or "read"
	Index int
	Code  CommandCode
	Cause error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s failed for command %s (position %d): %v", e.Op, e.Code, e.Index, e.Cause)
}

// Unwrap returns the underlying I/O error.
func (e *TransportError) Unwrap() error {
	return e.Cause
}

// AckMismatchError is returned by the pairing check when the device answered
// with something other than the acknowledgement literal.
type AckMismatchError struct {
	Response string
}

func (e *AckMismatchError) Error() string {
	return fmt.Sprintf("cannot connect: expected %q, got %s", Ack, describeLine(e.Response))
}

// Is lets errors.Is(err, ErrCannotConnect) match an ack mismatch.
func (e *AckMismatchError) Is(target error) bool {
	return target == ErrCannotConnect
}
