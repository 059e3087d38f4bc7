package bus

import "errors"

// ErrBusClosed is returned by operations on a closed bus.
var ErrBusClosed = errors.New("bus is closed")

// errMissingID marks an envelope published without a task identifier.
var errMissingID = errors.New("envelope has no task id")
