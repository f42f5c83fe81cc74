// Package token issues and decodes the signed, time-limited identity
// assertions used as bearer credentials. It knows nothing about users:
// a token is valid when its signature verifies and it has not expired.
// There is no server-side state, so a token cannot be revoked before expiry.
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrMalformed        = errors.New("token is malformed")
	ErrInvalidSignature = errors.New("token signature is invalid")
	ErrExpired          = errors.New("token is expired")
)

// Claims is the token payload: {"id": <user id>, "exp": <unix time>}.
// Tokens minted elsewhere may carry "user_id" instead of "id".
type Claims struct {
	ID        int64            `json:"id,omitempty"`
	UserID    int64            `json:"user_id,omitempty"`
	ExpiresAt *jwt.NumericDate `json:"exp"`
}

// Subject returns the embedded user id, preferring "user_id" over "id".
func (c Claims) Subject() int64 {
	if c.UserID != 0 {
		return c.UserID
	}
	return c.ID
}

func (c Claims) GetExpirationTime() (*jwt.NumericDate, error) { return c.ExpiresAt, nil }
func (c Claims) GetIssuedAt() (*jwt.NumericDate, error)       { return nil, nil }
func (c Claims) GetNotBefore() (*jwt.NumericDate, error)      { return nil, nil }
func (c Claims) GetIssuer() (string, error)                   { return "", nil }
func (c Claims) GetSubject() (string, error)                  { return "", nil }
func (c Claims) GetAudience() (jwt.ClaimStrings, error)       { return nil, nil }

// Codec signs and verifies tokens with a symmetric secret.
type Codec struct {
	secret   []byte
	method   jwt.SigningMethod
	lifetime time.Duration
}

// New constructs a Codec. algorithm must name an HMAC method
// (HS256, HS384 or HS512).
func New(secret, algorithm string, lifetime time.Duration) (*Codec, error) {
	if secret == "" {
		return nil, errors.New("token secret is required")
	}
	if lifetime <= 0 {
		return nil, errors.New("token lifetime must be positive")
	}
	method, ok := jwt.GetSigningMethod(algorithm).(*jwt.SigningMethodHMAC)
	if !ok {
		return nil, fmt.Errorf("unsupported token algorithm %q", algorithm)
	}
	return &Codec{
		secret:   []byte(secret),
		method:   method,
		lifetime: lifetime,
	}, nil
}

// Lifetime returns the configured validity window.
func (c *Codec) Lifetime() time.Duration {
	return c.lifetime
}

// Issue returns a signed token for userID that expires at now + lifetime.
// "exp" has second precision, so the expiry is rounded up to the next whole
// second and the token never lives shorter than lifetime.
func (c *Codec) Issue(userID int64, now time.Time) (string, error) {
	if userID < 1 {
		return "", errors.New("invalid user id")
	}
	exp := now.Add(c.lifetime)
	if whole := exp.Truncate(time.Second); !whole.Equal(exp) {
		exp = whole.Add(time.Second)
	}
	claims := Claims{
		ID:        userID,
		ExpiresAt: jwt.NewNumericDate(exp),
	}
	signed, err := jwt.NewWithClaims(c.method, claims).SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Decode verifies tokenString against now and returns the embedded user id.
// The token is expired once now reaches its "exp" instant.
func (c *Codec) Decode(tokenString string, now time.Time) (int64, error) {
	var claims Claims
	_, err := jwt.ParseWithClaims(tokenString, &claims, func(*jwt.Token) (any, error) {
		return c.secret, nil
	},
		jwt.WithValidMethods([]string{c.method.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithStrictDecoding(),
		jwt.WithTimeFunc(func() time.Time { return now }),
	)
	if err != nil {
		return 0, classify(tokenString, err)
	}
	if claims.Subject() < 1 {
		return 0, ErrMalformed
	}
	return claims.Subject(), nil
}

// classify maps a parse failure onto the package errors. A token whose
// header and claims decode but whose signature segment does not is a bad
// signature, not a malformed token.
func classify(tokenString string, err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenMalformed) && signatureOnly(tokenString):
		return fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	case errors.Is(err, jwt.ErrTokenMalformed):
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
		return fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	case errors.Is(err, jwt.ErrTokenExpired):
		return ErrExpired
	default:
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
}

// signatureOnly reports whether the header and claims segments of
// tokenString parse, leaving the signature segment as the failing part.
func signatureOnly(tokenString string) bool {
	_, _, err := jwt.NewParser(jwt.WithStrictDecoding()).ParseUnverified(tokenString, &Claims{})
	return err == nil
}
