package errors

import (
	"errors"
	"fmt"
)

// Common error types for the flow checker
var (
	// Stage assertion errors
	ErrUnexpectedStatus  = errors.New("unexpected status")
	ErrMalformedResponse = errors.New("malformed response")
	ErrStateMismatch     = errors.New("state mismatch")
	ErrStaleToken        = errors.New("stale token")

	// Fixture errors
	ErrSeedFailed = errors.New("fixture seeding failed")
)

// Wrapf wraps an error with context using fmt.Errorf
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return errors.Is(err, target)
}
