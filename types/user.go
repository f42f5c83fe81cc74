package types

import "time"

// Role is the catalog role assigned to a user account.
type Role string

const (
	RoleUser      Role = "user"
	RoleModerator Role = "moderator"
	RoleAdmin     Role = "admin"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleModerator, RoleAdmin:
		return true
	}
	return false
}

// User represents an account in the system.
// It contains identity, role, privilege flags, and audit metadata.
type User struct {
	// ID is the unique identifier of the user.
	ID int64 `json:"-" db:"id"`

	// Username is the unique login name chosen by the user.
	Username string `json:"username" db:"username"`

	// Email is the user's unique email address.
	Email string `json:"email" db:"email"`

	FirstName string `json:"first_name" db:"first_name"`
	LastName  string `json:"last_name" db:"last_name"`
	Bio       string `json:"bio" db:"bio"`

	// Role indicates the user's catalog role. Only admins may change it.
	Role Role `json:"role" db:"role"`

	// IsActive is false for deactivated accounts; their tokens are rejected.
	IsActive bool `json:"-" db:"is_active"`

	// IsStaff and IsSuperuser are privilege flags independent of Role.
	IsStaff     bool `json:"-" db:"is_staff"`
	IsSuperuser bool `json:"-" db:"is_superuser"`

	// PasswordHash stores the bcrypt hash of the confirmation secret.
	// This field is never exposed in API responses.
	PasswordHash string `json:"-" db:"password_hash"`

	CreatedAt time.Time `json:"-" db:"created_at"`
	UpdatedAt time.Time `json:"-" db:"updated_at"`
}
