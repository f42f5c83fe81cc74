// Package auth resolves the caller of a request from its Authorization header.
package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/yamdb/apiserver/internal/apperr"
	"github.com/yamdb/apiserver/internal/store"
	"github.com/yamdb/apiserver/internal/token"
	"github.com/yamdb/apiserver/types"
)

// Reason explains why a presented credential was rejected.
type Reason string

const (
	ReasonBadSignature Reason = "bad-signature"
	ReasonExpired      Reason = "expired"
	ReasonMalformed    Reason = "malformed"
	ReasonUnknownUser  Reason = "unknown-user"
	ReasonInactiveUser Reason = "inactive-user"
)

var reasonMessages = map[Reason]string{
	ReasonBadSignature: "wrong token",
	ReasonExpired:      "token has expired",
	ReasonMalformed:    "wrong token",
	ReasonUnknownUser:  "user does not exist, check token",
	ReasonInactiveUser: "user is deactivated",
}

// Failed returns the authentication failure for reason, wrapping cause.
func Failed(reason Reason, cause error) error {
	return apperr.New(apperr.KindAuthentication, string(reason), reasonMessages[reason], cause)
}

// ReasonOf extracts the failure reason from an error returned by Resolve.
func ReasonOf(err error) (Reason, bool) {
	var appErr *apperr.Error
	if !errors.As(err, &appErr) || appErr.Kind != apperr.KindAuthentication {
		return "", false
	}
	return Reason(appErr.Code), true
}

// Decoder verifies a token and returns the embedded user id.
type Decoder interface {
	Decode(tokenString string, now time.Time) (int64, error)
}

// UserLookup loads users by id.
type UserLookup interface {
	GetByID(ctx context.Context, id int64) (types.User, error)
}

// Resolver turns an Authorization header into an Identity.
type Resolver struct {
	decoder Decoder
	users   UserLookup
	scheme  string
	now     func() time.Time
}

// NewResolver constructs a Resolver accepting headers of the form
// "<scheme> <token>".
func NewResolver(decoder Decoder, users UserLookup, scheme string) *Resolver {
	return &Resolver{
		decoder: decoder,
		users:   users,
		scheme:  scheme,
		now:     time.Now,
	}
}

// WithClock replaces the resolver's time source.
func (r *Resolver) WithClock(now func() time.Time) *Resolver {
	r.now = now
	return r
}

// Resolve returns Anonymous when the header is absent, is not exactly two
// space-separated parts, or names another scheme. A credential that fails to
// decode or points at a missing or inactive user is an authentication
// failure, never a downgrade to anonymous.
func (r *Resolver) Resolve(ctx context.Context, header string) (Identity, error) {
	parts := strings.Fields(header)
	if len(parts) != 2 || parts[0] != r.scheme {
		return Anonymous, nil
	}

	userID, err := r.decoder.Decode(parts[1], r.now())
	if err != nil {
		switch {
		case errors.Is(err, token.ErrExpired):
			return Anonymous, Failed(ReasonExpired, err)
		case errors.Is(err, token.ErrInvalidSignature):
			return Anonymous, Failed(ReasonBadSignature, err)
		default:
			return Anonymous, Failed(ReasonMalformed, err)
		}
	}

	user, err := r.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return Anonymous, Failed(ReasonUnknownUser, err)
		}
		return Anonymous, err
	}
	if !user.IsActive {
		return Anonymous, Failed(ReasonInactiveUser, nil)
	}
	return Authenticated(user), nil
}
