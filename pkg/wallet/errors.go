package wallet

import "errors"

var (
	// ErrNotFound is returned when no wallet exists for the user.
	ErrNotFound = errors.New("wallet: not found")
	// ErrConflict is returned when an optimistic write kept losing to
	// concurrent writers.
	ErrConflict = errors.New("wallet: concurrent update conflict")
	// ErrStoreUnavailable wraps backend I/O failures.
	ErrStoreUnavailable = errors.New("wallet: store unavailable")
	// ErrCorruptRecord is returned when a stored record cannot be decoded.
	ErrCorruptRecord = errors.New("wallet: corrupt record")
)
