package service

import "errors"

// Sentinel errors shared by all services. Handlers map them to HTTP statuses;
// everything else is treated as an internal error. These outcomes are
// recoverable, never fatal.
var (
	ErrNotFound           = errors.New("resource not found")
	ErrConflict           = errors.New("conflict")
	ErrValidation         = errors.New("validation failed")
	ErrForbidden          = errors.New("forbidden")
	ErrInvalidCredentials = errors.New("invalid credentials")
)
