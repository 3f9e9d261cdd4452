package catalog

import (
	"errors"
	"fmt"
)

// Sentinel errors for catalog failures.
var (
	ErrTransport = errors.New("catalog unavailable")
	ErrNotFound  = errors.New("game not found")
)

// TransportError describes a failed catalog call. It matches ErrTransport
// with errors.Is as well as the underlying cause.
type TransportError struct {
	Op     string // e.g. "fetch page"
	Status int    // HTTP status, 0 when no response was received
	Err    error
}

func (e *TransportError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s: status %d: %v", e.Op, e.Status, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() []error {
	return []error{ErrTransport, e.Err}
}
