package shared

import "errors"

var (
	// ErrNotFound indicates a referenced resource does not exist.
	ErrNotFound = errors.New("not found")
	// ErrConflict indicates an optimistic write conflict on shared state.
	// The whole composed operation is safe to retry a bounded number of times.
	ErrConflict = errors.New("concurrency conflict")
)
