package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/yamdb/apiserver/internal/apperr"
	"github.com/yamdb/apiserver/internal/mail"
	"github.com/yamdb/apiserver/types"
	"golang.org/x/crypto/bcrypt"
)

func newRegistration(users *fakeUsers, sender *mockSender) (*RegistrationService, *stubIssuer) {
	issuer := &stubIssuer{}
	svc := NewRegistrationService(users, sender, issuer, "noreply@yamdb.local")
	svc.hashCost = bcrypt.MinCost
	svc.secret = func() (string, error) { return "Secret1234", nil }
	return svc, issuer
}

func TestGenerateSecret(t *testing.T) {
	a, err := GenerateSecret()
	require.NoError(t, err)
	b, err := GenerateSecret()
	require.NoError(t, err)

	assert.Len(t, a, secretLength)
	assert.NotEqual(t, a, b)
}

func TestSignup_CreatesUserAndMailsCode(t *testing.T) {
	users := newFakeUsers()
	sender := new(mockSender)
	sender.On("Send", mock.Anything, mock.MatchedBy(func(msg mail.Message) bool {
		return msg.To == "ann@example.com" && msg.Body == "Secret1234"
	})).Return(nil).Once()
	svc, _ := newRegistration(users, sender)

	user, err := svc.Signup(context.Background(), SignupRequest{Username: "ann", Email: "ann@example.com"})
	require.NoError(t, err)

	assert.Equal(t, "ann", user.Username)
	assert.Equal(t, types.RoleUser, user.Role)
	assert.True(t, user.IsActive)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("Secret1234")))
	sender.AssertExpectations(t)
}

func TestSignup_ReservedUsername(t *testing.T) {
	sender := new(mockSender)
	svc, _ := newRegistration(newFakeUsers(), sender)

	_, err := svc.Signup(context.Background(), SignupRequest{Username: "me", Email: "me@example.com"})
	assert.ErrorIs(t, err, apperr.ErrReservedUsername)
	sender.AssertNotCalled(t, "Send", mock.Anything, mock.Anything)
}

func TestSignup_ValidationErrors(t *testing.T) {
	svc, _ := newRegistration(newFakeUsers(), new(mockSender))

	_, err := svc.Signup(context.Background(), SignupRequest{Username: "bad name!", Email: "not-an-email"})
	require.Error(t, err)

	var appErr *apperr.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, apperr.KindValidation, appErr.Kind)
	assert.Contains(t, appErr.Fields, "username")
	assert.Contains(t, appErr.Fields, "email")
}

func TestSignup_TakenUsernameAndEmailReportedTogether(t *testing.T) {
	users := newFakeUsers(
		types.User{Username: "ann", Email: "a@example.com"},
		types.User{Username: "bob", Email: "bob@example.com"},
	)
	svc, _ := newRegistration(users, new(mockSender))

	_, err := svc.Signup(context.Background(), SignupRequest{Username: "ann", Email: "bob@example.com"})
	assert.ErrorIs(t, err, apperr.ErrUsernameTaken)
	assert.ErrorIs(t, err, apperr.ErrEmailTaken)
}

func TestSignup_DeliveryFailureRollsBack(t *testing.T) {
	users := newFakeUsers()
	sender := new(mockSender)
	sender.On("Send", mock.Anything, mock.Anything).Return(errors.New("smtp down"))
	svc, _ := newRegistration(users, sender)

	_, err := svc.Signup(context.Background(), SignupRequest{Username: "ann", Email: "ann@example.com"})
	require.Error(t, err)
	assert.Equal(t, apperr.KindInternal, apperr.KindOf(err))

	_, err = users.GetByUsername(context.Background(), "ann")
	assert.Error(t, err)
}

func TestCreateUser_AppliesRoleAndProfile(t *testing.T) {
	sender := new(mockSender)
	sender.On("Send", mock.Anything, mock.Anything).Return(nil)
	svc, _ := newRegistration(newFakeUsers(), sender)

	user, err := svc.CreateUser(context.Background(), NewUserRequest{
		Username:  "mod",
		Email:     "mod@example.com",
		FirstName: "Mo",
		Role:      types.RoleModerator,
	})
	require.NoError(t, err)
	assert.Equal(t, types.RoleModerator, user.Role)
	assert.Equal(t, "Mo", user.FirstName)
}

func TestCreateSuperuser_ReturnsSecretWithoutMail(t *testing.T) {
	sender := new(mockSender)
	svc, _ := newRegistration(newFakeUsers(), sender)

	user, secret, err := svc.CreateSuperuser(context.Background(), "root", "root@example.com")
	require.NoError(t, err)
	assert.Equal(t, "Secret1234", secret)
	assert.True(t, user.IsSuperuser)
	assert.True(t, user.IsStaff)
	assert.Equal(t, types.RoleAdmin, user.Role)
	sender.AssertNotCalled(t, "Send", mock.Anything, mock.Anything)
}

func TestExchangeToken(t *testing.T) {
	sender := new(mockSender)
	sender.On("Send", mock.Anything, mock.Anything).Return(nil)
	users := newFakeUsers()
	svc, issuer := newRegistration(users, sender)

	user, err := svc.Signup(context.Background(), SignupRequest{Username: "ann", Email: "ann@example.com"})
	require.NoError(t, err)

	t.Run("issues token for correct code", func(t *testing.T) {
		tok, err := svc.ExchangeToken(context.Background(), TokenRequest{Username: "ann", ConfirmationCode: "Secret1234"})
		require.NoError(t, err)
		assert.Equal(t, "token-for-user", tok)
		assert.Contains(t, issuer.issued, user.ID)
	})

	t.Run("code can be reused", func(t *testing.T) {
		_, err := svc.ExchangeToken(context.Background(), TokenRequest{Username: "ann", ConfirmationCode: "Secret1234"})
		assert.NoError(t, err)
	})

	t.Run("wrong code", func(t *testing.T) {
		_, err := svc.ExchangeToken(context.Background(), TokenRequest{Username: "ann", ConfirmationCode: "nope"})
		assert.ErrorIs(t, err, apperr.ErrWrongSecret)
	})

	t.Run("unknown user", func(t *testing.T) {
		_, err := svc.ExchangeToken(context.Background(), TokenRequest{Username: "ghost", ConfirmationCode: "Secret1234"})
		assert.ErrorIs(t, err, apperr.ErrNotFound)
	})

	t.Run("missing fields", func(t *testing.T) {
		_, err := svc.ExchangeToken(context.Background(), TokenRequest{})
		assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
	})
}
