// Package policy holds the authorization rules attached to API endpoints.
// A policy is a pure function of the caller, the action and, for checks on
// a specific object, the object's owner.
package policy

import (
	"github.com/yamdb/apiserver/internal/apperr"
	"github.com/yamdb/apiserver/internal/auth"
)

// Action is an operation on a resource collection or instance.
type Action int

const (
	ActionList Action = iota
	ActionRetrieve
	ActionCreate
	ActionUpdate
	ActionDelete
)

func (a Action) String() string {
	switch a {
	case ActionList:
		return "list"
	case ActionRetrieve:
		return "retrieve"
	case ActionCreate:
		return "create"
	case ActionUpdate:
		return "update"
	case ActionDelete:
		return "delete"
	default:
		return "unknown"
	}
}

// Safe reports whether the action only reads.
func (a Action) Safe() bool {
	return a == ActionList || a == ActionRetrieve
}

// Decision is the outcome of a policy check.
type Decision int

const (
	Allow Decision = iota
	// Unauthenticated denies an anonymous caller that could be allowed
	// after presenting credentials.
	Unauthenticated
	Forbidden
)

func (d Decision) String() string {
	switch d {
	case Allow:
		return "allow"
	case Unauthenticated:
		return "unauthenticated"
	default:
		return "forbidden"
	}
}

// Policy decides whether id may perform action. owner is the id of the user
// owning the target object, or nil for a collection-level check.
type Policy func(id auth.Identity, action Action, owner *int64) Decision

// Owner is a convenience for passing an owner id to a Policy.
func Owner(userID int64) *int64 {
	return &userID
}

// AdminOnly admits staff and administrators for every action.
func AdminOnly(id auth.Identity, _ Action, _ *int64) Decision {
	if !id.IsAuthenticated() {
		return Unauthenticated
	}
	if id.Privilege >= auth.PrivilegeStaff {
		return Allow
	}
	return Forbidden
}

// AdminOrReadOnly lets anyone read and only administrators write.
func AdminOrReadOnly(id auth.Identity, action Action, _ *int64) Decision {
	if action.Safe() {
		return Allow
	}
	if !id.IsAuthenticated() {
		return Unauthenticated
	}
	if id.Privilege == auth.PrivilegeAdmin {
		return Allow
	}
	return Forbidden
}

// AuthorOrReadOnly lets anyone read and any authenticated caller create.
// Changing an existing object requires being its author or a moderator.
func AuthorOrReadOnly(id auth.Identity, action Action, owner *int64) Decision {
	if action.Safe() {
		return Allow
	}
	if !id.IsAuthenticated() {
		return Unauthenticated
	}
	if owner == nil {
		return Allow
	}
	if id.UserID() == *owner || id.Moderates() {
		return Allow
	}
	return Forbidden
}

// Authenticated admits any caller with credentials.
func Authenticated(id auth.Identity, _ Action, _ *int64) Decision {
	if id.IsAuthenticated() {
		return Allow
	}
	return Unauthenticated
}

// Authorize evaluates p and converts a denial into the matching error.
func Authorize(p Policy, id auth.Identity, action Action, owner *int64) error {
	return Err(p(id, action, owner))
}

// Err returns nil for Allow and the boundary error for a denial.
func Err(d Decision) error {
	switch d {
	case Allow:
		return nil
	case Unauthenticated:
		return apperr.ErrNotAuthenticated
	default:
		return apperr.ErrPermissionDenied
	}
}
