package ledger

import "fmt"

// StorageError indicates a ledger storage failure: the database could not be
// opened, locked, read or written within its bounded wait.
//
// Callers on the request path must treat a StorageError on commit as loud
// but non-fatal: the client response already succeeded and is not taken
// back because bookkeeping failed.
type StorageError struct {
	// Op is the failed operation (open, lock, append, sum, ...).
	Op string

	// Cause is the underlying error.
	Cause error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("ledger storage %s: %v", e.Op, e.Cause)
}

func (e *StorageError) Unwrap() error {
	return e.Cause
}

// NewStorageError wraps cause as a StorageError for operation op.
func NewStorageError(op string, cause error) *StorageError {
	return &StorageError{Op: op, Cause: cause}
}
