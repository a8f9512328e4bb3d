// Package sentinel holds the store-level facts services translate into
// domain errors. Validation failures belong in pkg/domain-errors instead.
package sentinel

import "errors"

var (
	// ErrNotFound: no profile, report or screening result under that key.
	// Caches also return it for expired or corrupt entries.
	ErrNotFound = errors.New("not found")
	// ErrConflict: a version check failed or a unique key is taken.
	ErrConflict = errors.New("conflict")
	// ErrUnavailable: cache, database or bus could not be reached.
	ErrUnavailable = errors.New("unavailable")
)
