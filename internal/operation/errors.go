package operation

import "errors"

// ErrNilOperation indicates a nil Operation inside an operation list.
var ErrNilOperation = errors.New("nil operation")
