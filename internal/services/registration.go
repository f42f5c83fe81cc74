package services

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/yamdb/apiserver/internal/apperr"
	"github.com/yamdb/apiserver/internal/logging"
	"github.com/yamdb/apiserver/internal/mail"
	"github.com/yamdb/apiserver/internal/validation"
	"github.com/yamdb/apiserver/types"
	"golang.org/x/crypto/bcrypt"
)

const (
	secretLength   = 10
	secretAlphabet = "abcdefghjkmnpqrstuvwxyzABCDEFGHJKLMNPQRSTUVWXYZ23456789"
)

// SignupRequest is the self-registration payload.
type SignupRequest struct {
	Username string `json:"username" validate:"required,max=150,username"`
	Email    string `json:"email" validate:"required,max=254,email"`
}

// TokenRequest exchanges a confirmation code for an access token.
type TokenRequest struct {
	Username         string `json:"username" validate:"required"`
	ConfirmationCode string `json:"confirmation_code" validate:"required"`
}

// NewUserRequest is an administrator creating an account.
type NewUserRequest struct {
	Username  string     `json:"username" validate:"required,max=150,username"`
	Email     string     `json:"email" validate:"required,max=254,email"`
	FirstName string     `json:"first_name" validate:"max=150"`
	LastName  string     `json:"last_name" validate:"max=150"`
	Bio       string     `json:"bio"`
	Role      types.Role `json:"role" validate:"omitempty,oneof=user moderator admin"`
}

// TokenIssuer mints access tokens.
type TokenIssuer interface {
	Issue(userID int64, now time.Time) (string, error)
}

// RegistrationService creates accounts, delivers their confirmation codes
// and exchanges codes for tokens.
type RegistrationService struct {
	users    UserRepository
	mailer   mail.Sender
	tokens   TokenIssuer
	from     string
	now      func() time.Time
	secret   func() (string, error)
	hashCost int
}

func NewRegistrationService(users UserRepository, mailer mail.Sender, tokens TokenIssuer, from string) *RegistrationService {
	return &RegistrationService{
		users:    users,
		mailer:   mailer,
		tokens:   tokens,
		from:     from,
		now:      time.Now,
		secret:   GenerateSecret,
		hashCost: bcrypt.DefaultCost,
	}
}

// GenerateSecret returns a random confirmation code.
func GenerateSecret() (string, error) {
	size := big.NewInt(int64(len(secretAlphabet)))
	buf := make([]byte, secretLength)
	for i := range buf {
		n, err := rand.Int(rand.Reader, size)
		if err != nil {
			return "", fmt.Errorf("generate secret: %w", err)
		}
		buf[i] = secretAlphabet[n.Int64()]
	}
	return string(buf), nil
}

// Signup registers an active user with the default role and mails its
// confirmation code. The account is not created when delivery fails.
func (s *RegistrationService) Signup(ctx context.Context, req SignupRequest) (types.User, error) {
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(req.Email)

	if req.Username == ReservedUsername {
		return types.User{}, apperr.ErrReservedUsername
	}
	if err := validation.Struct(req); err != nil {
		return types.User{}, err
	}

	user, _, err := s.create(ctx, types.User{
		Username: req.Username,
		Email:    req.Email,
		Role:     types.RoleUser,
		IsActive: true,
	}, true)
	return user, err
}

// CreateUser is the administrator flavour of Signup: profile fields and
// role may be set, and the code is mailed the same way.
func (s *RegistrationService) CreateUser(ctx context.Context, req NewUserRequest) (types.User, error) {
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(req.Email)

	if req.Username == ReservedUsername {
		return types.User{}, apperr.ErrReservedUsername
	}
	if err := validation.Struct(req); err != nil {
		return types.User{}, err
	}
	if req.Role == "" {
		req.Role = types.RoleUser
	}

	user, _, err := s.create(ctx, types.User{
		Username:  req.Username,
		Email:     req.Email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Bio:       req.Bio,
		Role:      req.Role,
		IsActive:  true,
	}, true)
	return user, err
}

// CreateSuperuser creates an administrator with staff and superuser flags
// and returns its confirmation code instead of mailing it.
func (s *RegistrationService) CreateSuperuser(ctx context.Context, username, email string) (types.User, string, error) {
	req := SignupRequest{Username: strings.TrimSpace(username), Email: strings.TrimSpace(email)}
	if req.Username == ReservedUsername {
		return types.User{}, "", apperr.ErrReservedUsername
	}
	if err := validation.Struct(req); err != nil {
		return types.User{}, "", err
	}
	return s.create(ctx, types.User{
		Username:    req.Username,
		Email:       req.Email,
		Role:        types.RoleAdmin,
		IsActive:    true,
		IsStaff:     true,
		IsSuperuser: true,
	}, false)
}

func (s *RegistrationService) create(ctx context.Context, user types.User, deliver bool) (types.User, string, error) {
	usernameTaken, emailTaken, err := s.users.Taken(ctx, user.Username, user.Email)
	if err != nil {
		return types.User{}, "", err
	}
	var taken []error
	if usernameTaken {
		taken = append(taken, apperr.ErrUsernameTaken)
	}
	if emailTaken {
		taken = append(taken, apperr.ErrEmailTaken)
	}
	if err := apperr.Join(taken...); err != nil {
		return types.User{}, "", err
	}

	secret, err := s.secret()
	if err != nil {
		return types.User{}, "", err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), s.hashCost)
	if err != nil {
		return types.User{}, "", fmt.Errorf("hash secret: %w", err)
	}
	user.PasswordHash = string(hash)

	var after func(ctx context.Context, user types.User) error
	if deliver {
		after = func(ctx context.Context, user types.User) error {
			if err := s.mailer.Send(ctx, mail.Confirmation(s.from, user.Email, secret, s.now())); err != nil {
				logging.Error().Err(err).Str("username", user.Username).Msg("confirmation code delivery failed")
				return fmt.Errorf("deliver confirmation code: %w", err)
			}
			return nil
		}
	}

	created, err := s.users.CreateWith(ctx, user, after)
	if err != nil {
		return types.User{}, "", conflict(err, userConflicts)
	}
	return created, secret, nil
}

// ExchangeToken verifies the confirmation code of username and returns a
// fresh access token. Codes are not consumed and may be reused.
func (s *RegistrationService) ExchangeToken(ctx context.Context, req TokenRequest) (string, error) {
	if err := validation.Struct(req); err != nil {
		return "", err
	}

	user, err := s.users.GetByUsername(ctx, req.Username)
	if err != nil {
		return "", notFound(err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.ConfirmationCode)); err != nil {
		return "", apperr.ErrWrongSecret
	}

	return s.tokens.Issue(user.ID, s.now())
}
