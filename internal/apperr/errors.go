// Package apperr defines the error conditions shared across versemark.
package apperr

import "errors"

var (
	// ErrMalformedIdentifier marks an unparseable verse key. Callers drop the
	// offending record and continue.
	ErrMalformedIdentifier = errors.New("malformed identifier")
	// ErrInvalidInput marks a structurally wrong mark, draft, or request.
	ErrInvalidInput = errors.New("invalid input")
	// ErrNotFound marks a reference to an unknown mark or verse.
	ErrNotFound = errors.New("not found")
	// ErrUpstream marks a failure reported by the data source or mutation sink.
	ErrUpstream = errors.New("upstream failure")
	// ErrStaleView marks a completed fetch that no longer targets the current chapter.
	ErrStaleView = errors.New("stale view")
)
