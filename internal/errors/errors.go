package errors

import (
	"errors"
)

// Common error types
var (
	ErrValidation       = errors.New("validation failed")
	ErrNotFound         = errors.New("not found")
	ErrStoreUnavailable = errors.New("store unavailable")
	ErrNoPrivileges     = errors.New("no privileges")
)
