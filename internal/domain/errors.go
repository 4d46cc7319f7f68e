package domain

import "errors"

var (
	// ErrValidation marks input that fails domain validation.
	ErrValidation = errors.New("validation error")
	// ErrNotFound marks a lookup that matched nothing.
	ErrNotFound = errors.New("not found")
)
