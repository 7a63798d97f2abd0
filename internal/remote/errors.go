package remote

import (
	"errors"
	"fmt"
)

// Sentinel errors for sync server operations.
var (
	ErrUnauthorized  = errors.New("remote: unauthorized")
	ErrRateLimited   = errors.New("remote: rate limited by server")
	ErrBadRequest    = errors.New("remote: bad request")
	ErrNotFound      = errors.New("remote: endpoint not found")
	ErrServer        = errors.New("remote: server error")
	ErrNotConfigured = errors.New("remote: no sync server configured")
)

// Error wraps an underlying error with operation context.
type Error struct {
	Op     string // "fetch" or "push"
	BookID string
	Err    error
}

func (e *Error) Error() string {
	return fmt.Sprintf("remote %s [%s]: %v", e.Op, e.BookID, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func wrapError(op, bookID string, err error) error {
	return &Error{Op: op, BookID: bookID, Err: err}
}
