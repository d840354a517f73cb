package rpc

import (
	"fmt"

	"emperror.dev/errors"
)

var (
	// ErrTimeoutExceeded is returned when no reply arrives within the call timeout.
	ErrTimeoutExceeded = errors.NewPlain("rpc: timeout exceeded")

	// ErrDuplicateHandler is returned when a call type is registered twice on one RPC.
	ErrDuplicateHandler = errors.NewPlain("rpc: duplicate handler")

	// ErrEmptyType is returned for an empty call type.
	ErrEmptyType = errors.NewPlain("rpc: empty call type")

	// ErrNoItem is returned by a Broker when a blocking pop timed out empty.
	ErrNoItem = errors.NewPlain("rpc: no item in queue")

	// ErrClosed is returned for operations on a closed RPC.
	ErrClosed = errors.NewPlain("rpc: closed")
)

var errMissingType = errors.NewPlain("message has no call type")

// DecodeError reports a message that could not be decoded.
type DecodeError struct {
	Queue string
	Err   error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("rpc: decode message from %s: %v", e.Queue, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// WorkerError reports a failed or panicking worker.
type WorkerError struct {
	Type string
	Err  error
}

func (e *WorkerError) Error() string {
	return fmt.Sprintf("rpc: worker for %q failed: %v", e.Type, e.Err)
}

func (e *WorkerError) Unwrap() error { return e.Err }

// TransportError reports a failed broker operation.
type TransportError struct {
	Op    string // "push" or "pop"
	Queue string
	Err   error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("rpc: %s %s: %v", e.Op, e.Queue, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// IsTimeout reports whether err is, or wraps, ErrTimeoutExceeded.
func IsTimeout(err error) bool {
	return errors.Is(err, ErrTimeoutExceeded)
}
