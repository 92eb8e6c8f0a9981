package tracking

import (
	"context"
	"fmt"
)

// Dispatcher sends assembled payloads to a remote collector.
type Dispatcher interface {
	Send(ctx context.Context, p Payload) error
}

// DispatchError is any transport or server failure while sending a payload.
// Tracking callers log and drop it.
type DispatchError struct {
	Sink   string
	Status int // 0 when no response was received
	Err    error
}

func NewDispatchError(sink string, status int, err error) *DispatchError {
	return &DispatchError{Sink: sink, Status: status, Err: err}
}

func (e *DispatchError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("dispatch to %s failed (status %d): %v", e.Sink, e.Status, e.Err)
	}
	return fmt.Sprintf("dispatch to %s failed: %v", e.Sink, e.Err)
}

func (e *DispatchError) Unwrap() error {
	return e.Err
}
