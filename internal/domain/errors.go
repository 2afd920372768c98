package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound covers a missing post, a missing user, and a post whose
	// author cannot be resolved to a user with a username.
	ErrNotFound = errors.New("not found")
	// ErrUnauthorized indicates a mutating call without an authenticated identity.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrTooManyRequests indicates the rate limiter denied the operation.
	ErrTooManyRequests = errors.New("too many requests")
	// ErrAlreadyExists is returned when registering an already-taken username.
	ErrAlreadyExists = errors.New("already exists")
	// ErrInvalidCredentials indicates that provided login credentials are incorrect.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrMissingParameter indicates a page route invoked without a required path value.
	ErrMissingParameter = errors.New("missing required parameter")
)

// ValidationError reports bad input on a named field so the UI can surface
// a field-level message.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}
