package dialect

import (
	"errors"
	"fmt"
)

// ErrUnsupportedDialect indicates a dialect name New does not know.
var ErrUnsupportedDialect = errors.New("unsupported dialect")

// ErrUnsupportedOperation indicates an operation the dialect cannot express.
var ErrUnsupportedOperation = errors.New("operation not supported by dialect")

// ErrUnsupportedType indicates a logical type the dialect cannot map.
var ErrUnsupportedType = errors.New("type not supported by dialect")

// ErrInvalidOperation indicates an operation missing a field the dialect needs.
var ErrInvalidOperation = errors.New("invalid operation")

func unsupported(dialect, what string) error {
	return fmt.Errorf("%w: %s: %s", ErrUnsupportedOperation, dialect, what)
}
