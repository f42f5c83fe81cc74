package services

import (
	"context"
	"strings"

	"github.com/yamdb/apiserver/internal/apperr"
	"github.com/yamdb/apiserver/internal/validation"
	"github.com/yamdb/apiserver/types"
)

// ReservedUsername is the path segment of the current-user endpoint and
// can never be registered.
const ReservedUsername = "me"

// UserRepository defines persistence operations for users.
type UserRepository interface {
	GetByID(ctx context.Context, id int64) (types.User, error)
	GetByUsername(ctx context.Context, username string) (types.User, error)
	List(ctx context.Context, offset, limit int) ([]types.User, int, error)
	Taken(ctx context.Context, username, email string) (usernameTaken, emailTaken bool, err error)
	CreateWith(ctx context.Context, user types.User, after func(ctx context.Context, user types.User) error) (types.User, error)
	Update(ctx context.Context, user types.User) (types.User, error)
}

// UserPatch is a partial update of a user profile. Nil fields are left
// unchanged.
type UserPatch struct {
	Username  *string     `json:"username" validate:"omitempty,max=150,username"`
	Email     *string     `json:"email" validate:"omitempty,max=254,email"`
	FirstName *string     `json:"first_name" validate:"omitempty,max=150"`
	LastName  *string     `json:"last_name" validate:"omitempty,max=150"`
	Bio       *string     `json:"bio"`
	Role      *types.Role `json:"role" validate:"omitempty,oneof=user moderator admin"`
}

// withoutAccountFields drops the fields only administrators may change.
func (p UserPatch) withoutAccountFields() UserPatch {
	p.Username = nil
	p.Email = nil
	p.Role = nil
	return p
}

func (p UserPatch) apply(u types.User) types.User {
	if p.Username != nil {
		u.Username = strings.TrimSpace(*p.Username)
	}
	if p.Email != nil {
		u.Email = strings.TrimSpace(*p.Email)
	}
	if p.FirstName != nil {
		u.FirstName = *p.FirstName
	}
	if p.LastName != nil {
		u.LastName = *p.LastName
	}
	if p.Bio != nil {
		u.Bio = *p.Bio
	}
	if p.Role != nil {
		u.Role = *p.Role
	}
	return u
}

// UserService encapsulates user management use-cases.
type UserService struct {
	repo UserRepository
}

func NewUserService(repo UserRepository) *UserService {
	return &UserService{repo: repo}
}

func (s *UserService) List(ctx context.Context, offset, limit int) ([]types.User, int, error) {
	return s.repo.List(ctx, offset, clampLimit(limit))
}

func (s *UserService) Get(ctx context.Context, username string) (types.User, error) {
	user, err := s.repo.GetByUsername(ctx, username)
	if err != nil {
		return types.User{}, notFound(err)
	}
	return user, nil
}

// Update applies patch to the user named username.
func (s *UserService) Update(ctx context.Context, username string, patch UserPatch) (types.User, error) {
	user, err := s.Get(ctx, username)
	if err != nil {
		return types.User{}, err
	}
	return s.save(ctx, user, patch)
}

// UpdateSelf applies patch to the caller's own profile. Username, email and
// role are ignored unless the caller is an administrator.
func (s *UserService) UpdateSelf(ctx context.Context, self types.User, isAdmin bool, patch UserPatch) (types.User, error) {
	if !isAdmin {
		patch = patch.withoutAccountFields()
	}
	return s.save(ctx, self, patch)
}

func (s *UserService) save(ctx context.Context, user types.User, patch UserPatch) (types.User, error) {
	if patch.Username != nil && strings.TrimSpace(*patch.Username) == ReservedUsername {
		return types.User{}, apperr.ErrReservedUsername
	}
	if err := validation.Struct(patch); err != nil {
		return types.User{}, err
	}

	updated, err := s.repo.Update(ctx, patch.apply(user))
	if err != nil {
		return types.User{}, conflict(notFound(err), userConflicts)
	}
	return updated, nil
}

// Deactivate disables the account. Users are never deleted; their reviews
// and comments stay attributed to them.
func (s *UserService) Deactivate(ctx context.Context, username string) error {
	user, err := s.Get(ctx, username)
	if err != nil {
		return err
	}
	if !user.IsActive {
		return nil
	}
	user.IsActive = false
	_, err = s.repo.Update(ctx, user)
	return notFound(err)
}
