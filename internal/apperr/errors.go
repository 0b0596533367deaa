// Package apperr defines the business error kinds shared across layers.
// Environment failures (I/O errors, permissions, disk full) are never mapped
// onto these; they propagate as the underlying platform error so callers can
// tell a rule violation from a broken environment via errors.Is.
package apperr

import "errors"

var (
	// ErrNotFound signals that a document folder or its content file is absent.
	ErrNotFound = errors.New("not found")
	// ErrConflict signals that the target of a create or move already exists.
	ErrConflict = errors.New("conflict")
	// ErrInvalidArgument signals an empty or unsafe required input.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrNoContent signals that no usable content could be extracted from any source.
	ErrNoContent = errors.New("no content")
)
