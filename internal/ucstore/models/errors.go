package models

import "errors"

// Error classes surfaced to clients. Wrap them with fmt.Errorf("...: %w", Err...)
// and match with errors.Is.
var (
	ErrValidation   = errors.New("validation failed")
	ErrNotFound     = errors.New("not found")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
)
