package daqwire

import (
	"errors"
	"fmt"

	"github.com/daqwire/daqwire/catalog"
)

var (
	// ErrTimeout resolves every command of a transaction whose reply did
	// not arrive within the configured timeout. The engine never retries;
	// retry policy belongs to the caller, because writes cannot be assumed
	// idempotent.
	ErrTimeout = errors.New("daqwire: request timed out")

	// ErrConnectionLost resolves every outstanding command when the
	// transport fails, and every submission attempted after that. The
	// connection is terminal once lost; reconnecting is the caller's (or
	// the pool's) concern.
	ErrConnectionLost = errors.New("daqwire: connection lost")
)

// AccessError reports an operation that violates a register's declared
// access mode. It is raised client-side, before any bytes reach the
// transport.
type AccessError struct {
	Register string
	Access   catalog.Access
	Op       string
}

func (e *AccessError) Error() string {
	return fmt.Sprintf("daqwire: register %q does not allow %s (access mode %s)",
		e.Register, e.Op, e.Access)
}
