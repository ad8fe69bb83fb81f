package domain

import "errors"

var (
	// ErrValidation marks malformed or incomplete input.
	ErrValidation = errors.New("validation error")
	// ErrNotFound marks a missing sample, change request, or catalog.
	ErrNotFound = errors.New("not found")
	// ErrConflict marks an operation rejected by the current persisted state,
	// e.g. deleting a sample that already entered processing.
	ErrConflict = errors.New("conflict")
	// ErrUnknownCatalogEntry marks a package or add-on reference that does not
	// resolve in the active catalog. Callers must surface it, never price it
	// as zero.
	ErrUnknownCatalogEntry = errors.New("unknown catalog entry")
	// ErrIllegalTransition marks an attempt to move a sample backward or out
	// of a terminal status.
	ErrIllegalTransition = errors.New("illegal status transition")
	// ErrRateLimited marks a submission rejected by the per-farm limiter.
	ErrRateLimited = errors.New("rate limited")
)
