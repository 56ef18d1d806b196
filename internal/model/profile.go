package model

import "time"

// Role is the access level stored on a profile.
type Role string

const (
	RoleMember Role = "member"
	RoleAdmin  Role = "admin"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleMember || r == RoleAdmin
}

// Profile is the application-level record attached to a principal.
// Watchlist and progress rows are keyed by Profile.ID, not by the principal.
type Profile struct {
	ID          string    `json:"id"          db:"id"`
	UserID      string    `json:"userId"      db:"user_id"` // principal (account) id
	DisplayName string    `json:"displayName" db:"display_name"`
	Role        Role      `json:"role"        db:"role"`
	CreatedAt   time.Time `json:"createdAt"   db:"created_at"`
}

// IsAdmin is the only access rule in the app: a nil profile is never admin.
func IsAdmin(p *Profile) bool {
	return p != nil && p.Role == RoleAdmin
}
