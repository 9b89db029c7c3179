package domain

import "errors"

var (
	// ErrValidation marks client-input errors that map to HTTP 400.
	ErrValidation = errors.New("validation error")
	// ErrNotFound marks lookups for records that do not exist.
	ErrNotFound = errors.New("not found")
)
