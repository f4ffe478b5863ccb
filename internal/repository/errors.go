package repository

import "errors"

var (
	ErrNotFound = errors.New("not found")
	// ErrConflict is a unique constraint violation.
	ErrConflict = errors.New("conflict")
	// ErrStaleVersion means a conditional update matched no row because the row changed.
	ErrStaleVersion = errors.New("stale version")
	// ErrSerialization is a transaction aborted by the database to keep it serializable.
	ErrSerialization = errors.New("serialization failure")
)

// IsRetryable reports whether the whole unit of work may be retried after err.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrStaleVersion) || errors.Is(err, ErrSerialization)
}
