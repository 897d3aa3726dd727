package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for domain-level error discrimination.
// Services wrap these so handlers can map to HTTP status codes without leaking infrastructure details.
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrBadRequest   = errors.New("bad request")

	// ErrStore marks a read/write failure against a backing store.
	ErrStore = errors.New("store error")
	// ErrDelivery marks a notification that could not be handed to a channel.
	ErrDelivery = errors.New("delivery error")
)

// PartialCommitError is returned by a chunked commit that failed after some
// chunks were already written. Committed lists the ids that were persisted, in
// commit order. Err carries the failure and wraps ErrStore.
type PartialCommitError struct {
	Committed []string
	Err       error
}

func (e *PartialCommitError) Error() string {
	return fmt.Sprintf("%d changes committed before failure: %v", len(e.Committed), e.Err)
}

func (e *PartialCommitError) Unwrap() error { return e.Err }
