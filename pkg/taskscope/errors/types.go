package errors

import "fmt"

// TransportError indicates the broker or result store could not be reached.
// It is always retryable.
type TransportError struct {
	// Op names the failing operation, e.g. "subscribe" or "get-outcome".
	Op string

	// Addr is the endpoint that could not be reached, when known.
	Addr string

	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *TransportError) Error() string {
	if e.Addr != "" {
		return fmt.Sprintf("transport error during %s (%s): %v", e.Op, e.Addr, e.Err)
	}
	return fmt.Sprintf("transport error during %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error.
func (e *TransportError) Unwrap() error {
	return e.Err
}

// DecodeError indicates a payload that could not be interpreted: a malformed
// envelope or an unreadable result record. Retrying cannot help.
type DecodeError struct {
	// Subject describes what was being decoded, e.g. "envelope" or
	// "result meta".
	Subject string

	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s: %v", e.Subject, e.Err)
}

// Unwrap returns the underlying error.
func (e *DecodeError) Unwrap() error {
	return e.Err
}
