// Package auth implements credential checks, opaque bearer tokens and the
// password recovery flow.
package auth

import "time"

// User represents an authenticated user account joined with its role.
type User struct {
	ID           int64
	Username     string
	Email        string
	FullName     string
	PasswordHash string
	RoleID       int64
	RoleName     string
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
