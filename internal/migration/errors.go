package migration

import "errors"

// ErrInvalidName indicates a name that does not follow V{version}_{timestamp}_{description}.
var ErrInvalidName = errors.New("invalid migration name")

// ErrInvalidVersion indicates a version that is not a positive integer.
var ErrInvalidVersion = errors.New("invalid migration version")

// ErrDuplicateVersion indicates two migrations sharing a version.
var ErrDuplicateVersion = errors.New("duplicate migration version")

// ErrNotRegistered indicates a rollback target missing from the registry.
var ErrNotRegistered = errors.New("rollback requires the original migration definition: version not registered")

// ErrIrreversible indicates a migration without down operations.
var ErrIrreversible = errors.New("migration has no down operations")

// ErrNoOperations indicates a migration without up operations.
var ErrNoOperations = errors.New("migration has no up operations")

// ErrInvalidFile indicates a migration file that cannot be decoded.
var ErrInvalidFile = errors.New("invalid migration file")
