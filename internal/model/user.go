package model

import (
	"fmt"
	"slices"
	"time"
)

// User represents an authenticated account. The marketplace only ever sees
// its id and role.
type User struct {
	ID           int64      `json:"id"`
	Username     string     `json:"username"`
	PasswordHash string     `json:"-"`
	Role         string     `json:"role"`
	CreatedAt    time.Time  `json:"created_at"`
	DeletedAt    *time.Time `json:"deleted_at,omitempty"`
}

// Roles.
const (
	RoleAdmin    = "admin"
	RoleOwner    = "owner"
	RoleInvestor = "investor"
)

// MinPasswordLength is the minimum accepted password length.
const MinPasswordLength = 8

// ValidRole reports whether role is one of the known roles.
func ValidRole(role string) bool {
	return role == RoleAdmin || role == RoleOwner || role == RoleInvestor
}

// HasRole reports whether role is one of allowed. Unknown roles fail closed.
func HasRole(role string, allowed ...string) bool {
	return ValidRole(role) && slices.Contains(allowed, role)
}

// ValidatePassword checks password strength requirements.
func ValidatePassword(password string) error {
	if len(password) < MinPasswordLength {
		return fmt.Errorf("password must be at least %d characters", MinPasswordLength)
	}
	return nil
}
