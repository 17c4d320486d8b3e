package routing

import (
	"errors"
	"fmt"
)

// ErrClassification can be matched with errors.Is() against any
// classification failure.
var ErrClassification = errors.New("classification failed")

// ClassificationError is returned when the escalation call could not
// produce a usable answer. It is always recovered inside the router: the
// caller sees a mid-tier fallback Decision, never this error. It exists
// so logs and tests can distinguish classifier trouble from other
// upstream failures.
type ClassificationError struct {
	// Model is the classifier model that was called.
	Model string

	// Cause is the underlying transport or API error.
	Cause error
}

// Error implements the error interface.
func (e *ClassificationError) Error() string {
	return fmt.Sprintf("classification call to %s failed: %v", e.Model, e.Cause)
}

// Is implements error matching for errors.Is().
func (e *ClassificationError) Is(target error) bool {
	return target == ErrClassification
}

// Unwrap returns the wrapped error for error chain traversal.
func (e *ClassificationError) Unwrap() error {
	return e.Cause
}
