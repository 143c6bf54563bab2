package db

import "errors"

// Sentinel errors for index operations.
var (
	ErrCoreNotFound      = errors.New("db: core not found")
	ErrMalformedResponse = errors.New("db: malformed response")
)

// Op constants name the index request handlers for error context.
const (
	OpSelect = "select"
	OpFields = "admin/luke"
	OpPing   = "admin/info/system"
)

// Error wraps an underlying error with the operation name for diagnostics.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string { return e.Op + ": " + e.Err.Error() }
func (e *Error) Unwrap() error { return e.Err }
