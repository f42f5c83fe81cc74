package token

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var epoch = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

func newCodec(t *testing.T) *Codec {
	t.Helper()
	c, err := New("s3cret", "HS256", time.Hour)
	require.NoError(t, err)
	return c
}

func TestNew_Validation(t *testing.T) {
	_, err := New("", "HS256", time.Hour)
	assert.Error(t, err)

	_, err = New("s", "HS256", 0)
	assert.Error(t, err)

	_, err = New("s", "RS256", time.Hour)
	assert.ErrorContains(t, err, "unsupported token algorithm")
}

func TestIssueDecode_RoundTrip(t *testing.T) {
	c := newCodec(t)

	tok, err := c.Issue(42, epoch)
	require.NoError(t, err)

	id, err := c.Decode(tok, epoch.Add(59*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)
}

func TestIssue_RejectsInvalidUser(t *testing.T) {
	_, err := newCodec(t).Issue(0, epoch)
	assert.Error(t, err)
}

func TestDecode_ExpiresAtBoundary(t *testing.T) {
	c := newCodec(t)
	tok, err := c.Issue(1, epoch)
	require.NoError(t, err)

	_, err = c.Decode(tok, epoch.Add(time.Hour))
	assert.ErrorIs(t, err, ErrExpired)

	_, err = c.Decode(tok, epoch.Add(2*time.Hour))
	assert.ErrorIs(t, err, ErrExpired)
}

func TestDecode_SubSecondIssueKeepsFullLifetime(t *testing.T) {
	c, err := New("s3cret", "HS256", 10*time.Second)
	require.NoError(t, err)
	now := epoch.Add(900 * time.Millisecond)

	tok, err := c.Issue(1, now)
	require.NoError(t, err)

	id, err := c.Decode(tok, now.Add(9500*time.Millisecond))
	require.NoError(t, err)
	assert.Equal(t, int64(1), id)

	_, err = c.Decode(tok, now.Add(11*time.Second))
	assert.ErrorIs(t, err, ErrExpired)
}

func TestDecode_TamperedSignatureIsInvalid(t *testing.T) {
	c := newCodec(t)
	tok, err := c.Issue(7, epoch)
	require.NoError(t, err)

	sigStart := strings.LastIndex(tok, ".") + 1
	for i := sigStart; i < len(tok); i++ {
		for _, repl := range []byte{'A', 'B', 'Q', '!', '-', '_'} {
			if tok[i] == repl {
				continue
			}
			tampered := tok[:i] + string(repl) + tok[i+1:]

			_, err := c.Decode(tampered, epoch)
			assert.ErrorIs(t, err, ErrInvalidSignature, "byte %d replaced with %q", i, repl)
		}
	}
}

func TestDecode_WrongSecret(t *testing.T) {
	other, err := New("another", "HS256", time.Hour)
	require.NoError(t, err)
	tok, err := other.Issue(1, epoch)
	require.NoError(t, err)

	_, err = newCodec(t).Decode(tok, epoch)
	assert.ErrorIs(t, err, ErrInvalidSignature)
}

func TestDecode_Malformed(t *testing.T) {
	for _, tok := range []string{"", "abc", "a.b.c"} {
		_, err := newCodec(t).Decode(tok, epoch)
		assert.ErrorIs(t, err, ErrMalformed, "token %q", tok)
	}
}

func TestDecode_RejectsOtherAlgorithm(t *testing.T) {
	claims := Claims{ID: 1, ExpiresAt: jwt.NewNumericDate(epoch.Add(time.Hour))}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte("s3cret"))
	require.NoError(t, err)

	_, err = newCodec(t).Decode(tok, epoch)
	assert.Error(t, err)
}

func TestDecode_RequiresExpiry(t *testing.T) {
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{ID: 1}).SignedString([]byte("s3cret"))
	require.NoError(t, err)

	_, err = newCodec(t).Decode(tok, epoch)
	assert.Error(t, err)
}

func TestDecode_AcceptsUserIDClaim(t *testing.T) {
	claims := Claims{UserID: 9, ExpiresAt: jwt.NewNumericDate(epoch.Add(time.Hour))}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("s3cret"))
	require.NoError(t, err)

	id, err := newCodec(t).Decode(tok, epoch)
	require.NoError(t, err)
	assert.Equal(t, int64(9), id)
}

func TestDecode_MissingSubject(t *testing.T) {
	claims := Claims{ExpiresAt: jwt.NewNumericDate(epoch.Add(time.Hour))}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("s3cret"))
	require.NoError(t, err)

	_, err = newCodec(t).Decode(tok, epoch)
	assert.ErrorIs(t, err, ErrMalformed)
}
