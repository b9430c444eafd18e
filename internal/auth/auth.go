package auth

import (
	"context"
)

// Role values mirrored from the account package. auth does not import
// account so that stores can depend on auth without a cycle.
const (
	RoleAdmin   = "admin"
	RoleDancer  = "dancer"
	RoleManager = "manager"
)

// User represents an authenticated session user.
type User struct {
	ID    string
	Email string
	Name  string
	Role  string
}

// IsAdmin returns true if the user's stored role is admin.
func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}

// CanActFor returns true if the user may act on data owned by ownerID
// without an explicit permission grant.
func (u *User) CanActFor(ownerID string) bool {
	return u != nil && (u.ID == ownerID || u.IsAdmin())
}

// SessionLookup is the interface for resolving session tokens to users.
// Implementations must read the role from the store on every call so admin
// routes re-check the caller's stored role server-side.
type SessionLookup interface {
	LookupSession(ctx context.Context, token string) (*User, error)
}
