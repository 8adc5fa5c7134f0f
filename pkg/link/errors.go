package link

import (
	"errors"
	"fmt"
)

var (
	// ErrNotReady indicates the link has no usable device.
	ErrNotReady = errors.New("link not ready")
	// ErrPayloadTooLarge indicates a packet exceeds the negotiated maximum.
	ErrPayloadTooLarge = errors.New("payload too large")
	// ErrLinkFault matches any *Fault.
	ErrLinkFault = errors.New("link fault")
)

// Fault wraps an error reported by the underlying driver.
type Fault struct {
	Op  string
	Err error
}

// Error implements error.
func (e *Fault) Error() string {
	return fmt.Sprintf("link fault: %s: %v", e.Op, e.Err)
}

// Unwrap returns the driver error.
func (e *Fault) Unwrap() error { return e.Err }

// Is matches ErrLinkFault.
func (e *Fault) Is(target error) bool { return target == ErrLinkFault }

func fault(op string, err error) error {
	if err == nil {
		return nil
	}
	return &Fault{Op: op, Err: err}
}
