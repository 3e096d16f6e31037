package ledger

import "errors"

// ErrRecordNotFound indicates no history record exists for the given version.
var ErrRecordNotFound = errors.New("migration not found in history table")

// ErrTableCreation indicates the history table could not be created.
var ErrTableCreation = errors.New("creating history table")
