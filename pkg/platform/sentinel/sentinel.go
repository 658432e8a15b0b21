// Package sentinel holds the storage-level facts stores report. Services map
// them onto domain error codes; stores never return domain errors themselves.
package sentinel

import "errors"

var (
	// ErrNotFound: the row does not exist.
	ErrNotFound = errors.New("not found")
	// ErrConflict: a concurrent writer won (serialization failure, deadlock,
	// duplicate version number, stale head).
	ErrConflict = errors.New("conflict")
	// ErrAlreadyUsed: a unique value such as a verification token is taken.
	ErrAlreadyUsed = errors.New("already used")
	// ErrInvalidState: the database refused the write on a constraint or trigger.
	ErrInvalidState = errors.New("invalid state")
	// ErrUnavailable: the backend could not be reached or the transaction timed out.
	ErrUnavailable = errors.New("unavailable")
)
