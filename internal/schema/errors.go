package schema

import (
	"errors"
	"fmt"
)

// ErrEmptyName indicates a table, column or constraint declared without a name.
var ErrEmptyName = errors.New("empty name")

// ErrDuplicateColumn indicates a column declared twice in the same table.
var ErrDuplicateColumn = errors.New("duplicate column")

// ErrUnknownColumn indicates a constraint or index referencing an undeclared column.
var ErrUnknownColumn = errors.New("column not declared in table")

// ErrInvalidType indicates an unknown or malformed column type.
var ErrInvalidType = errors.New("invalid column type")

// ErrInvalidForeignKey indicates a malformed foreign key declaration.
var ErrInvalidForeignKey = errors.New("invalid foreign key")

// ErrNoColumns indicates a CREATE TABLE without columns.
var ErrNoColumns = errors.New("table has no columns")

// ErrEmptyAlter indicates an ALTER COLUMN that changes nothing.
var ErrEmptyAlter = errors.New("alter column changes nothing")

func typeError(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrInvalidType}, args...)...)
}
