package shared

import "errors"

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrInvalidCredentials indicates login failure.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrDuplicate indicates a uniqueness violation.
	ErrDuplicate = errors.New("duplicate record")
	// ErrProtected indicates an operation against a protected record.
	ErrProtected = errors.New("record is protected")
	// ErrInUse indicates the record is still referenced elsewhere.
	ErrInUse = errors.New("record is referenced by other records")
	// ErrValidationFailed indicates invalid input rejected before any mutation.
	ErrValidationFailed = errors.New("validation failed")
)
