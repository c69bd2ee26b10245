package domain

import (
	"strings"
	"time"
)

// User is both a directory record and, when PasswordHash is set, a
// principal that can log in.
type User struct {
	ID           string
	Email        string
	Name         string
	Role         Role
	PasswordHash string // argon2id PHC string, empty for directory-only users
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// CanLogin reports whether the user has a credential on file.
func (u User) CanLogin() bool { return u.PasswordHash != "" }

// NormalizeEmail is the canonical form used for lookups and the
// uniqueness check.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// UserPatch carries a partial update; nil fields are left alone.
type UserPatch struct {
	Name  *string
	Email *string
	Role  *Role
}

// IsEmpty reports whether the patch changes nothing.
func (p UserPatch) IsEmpty() bool {
	return p.Name == nil && p.Email == nil && p.Role == nil
}
