package database

import (
	"errors"
	"fmt"
)

// ErrInvalidDatabaseURL indicates the provided database URL could not be parsed.
var ErrInvalidDatabaseURL = errors.New("invalid database URL")

// ErrConnectionFailed indicates a connection to the database could not be established.
var ErrConnectionFailed = errors.New("database connection failed")

// ErrLockNotAcquired indicates the migration lock is already held by another process.
var ErrLockNotAcquired = errors.New("migration lock not acquired")

// ErrNoRows indicates a QueryRow that matched nothing.
var ErrNoRows = errors.New("no rows in result set")

// ErrUnsupportedDriver indicates a dialect Connect cannot open.
var ErrUnsupportedDriver = errors.New("unsupported database driver")

func wrapf(err error, format string, args ...any) error {
	return fmt.Errorf(format+": %w", append(args, err)...)
}
