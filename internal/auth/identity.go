package auth

import (
	"context"

	"github.com/yamdb/apiserver/types"
)

// Privilege is the single privilege level of a request, derived once from a
// user's role and its is_staff / is_superuser flags. Staff administers
// accounts but holds no moderation rights; see Identity.Moderates.
type Privilege int

const (
	PrivilegeAnonymous Privilege = iota
	PrivilegeUser
	PrivilegeModerator
	PrivilegeStaff
	PrivilegeAdmin
)

func (p Privilege) String() string {
	switch p {
	case PrivilegeUser:
		return "user"
	case PrivilegeModerator:
		return "moderator"
	case PrivilegeStaff:
		return "staff"
	case PrivilegeAdmin:
		return "admin"
	default:
		return "anonymous"
	}
}

// PrivilegeOf resolves the privilege level of u.
func PrivilegeOf(u types.User) Privilege {
	switch {
	case u.IsSuperuser || u.Role == types.RoleAdmin:
		return PrivilegeAdmin
	case u.IsStaff:
		return PrivilegeStaff
	case u.Role == types.RoleModerator:
		return PrivilegeModerator
	default:
		return PrivilegeUser
	}
}

// Identity is the resolved caller of a request. The zero value is anonymous.
type Identity struct {
	User      *types.User
	Privilege Privilege
}

// Anonymous is the identity of a request without usable credentials.
var Anonymous = Identity{}

// Authenticated returns the identity of u.
func Authenticated(u types.User) Identity {
	return Identity{User: &u, Privilege: PrivilegeOf(u)}
}

// IsAuthenticated reports whether the identity carries a user.
func (id Identity) IsAuthenticated() bool {
	return id.User != nil
}

// UserID returns the caller's id, or 0 when anonymous.
func (id Identity) UserID() int64 {
	if id.User == nil {
		return 0
	}
	return id.User.ID
}

// Moderates reports whether the caller may change content authored by
// others: superusers, administrators and moderators. is_staff alone does
// not grant it.
func (id Identity) Moderates() bool {
	if id.User == nil {
		return false
	}
	return id.Privilege == PrivilegeAdmin || id.User.Role == types.RoleModerator
}

type ctxKeyIdentity struct{}

// WithIdentity returns a context carrying id.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, ctxKeyIdentity{}, id)
}

// IdentityFrom returns the identity stored in ctx, or Anonymous.
func IdentityFrom(ctx context.Context) Identity {
	id, ok := ctx.Value(ctxKeyIdentity{}).(Identity)
	if !ok {
		return Anonymous
	}
	return id
}
