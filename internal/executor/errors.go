package executor

import (
	"errors"
	"fmt"
)

// ErrExecutionFailed matches every *MigrationError.
var ErrExecutionFailed = errors.New("migration execution failed")

// ErrChecksumMismatch indicates an applied migration whose declared
// operations changed after it ran.
var ErrChecksumMismatch = errors.New("migration checksum mismatch")

// ErrInvalidSteps indicates a rollback step count below one.
var ErrInvalidSteps = errors.New("rollback steps must be positive")

// ErrNoRegistry indicates a rollback on an executor built without WithRegistry.
var ErrNoRegistry = errors.New("rollback requires a migration registry")

// MigrationError reports a failed migration. Err is the original cause.
// Suppressed is set when recording the failure in the history table also
// failed.
type MigrationError struct {
	Version     int64
	Description string
	Err         error
	Suppressed  error
}

func (e *MigrationError) Error() string {
	msg := fmt.Sprintf("migration %d (%s): %v", e.Version, e.Description, e.Err)
	if e.Suppressed != nil {
		msg += fmt.Sprintf("; recording the failure also failed: %v", e.Suppressed)
	}

	return msg
}

func (e *MigrationError) Unwrap() []error {
	if e.Suppressed == nil {
		return []error{e.Err}
	}

	return []error{e.Err, e.Suppressed}
}

// Is reports whether target is ErrExecutionFailed.
func (e *MigrationError) Is(target error) bool {
	return target == ErrExecutionFailed
}
