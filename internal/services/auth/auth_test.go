// Copyright 2026 Optic Labs
// Licensed under the EUPL-1.2

package auth_test

import (
	"context"
	"testing"
	"time"

	"github.com/opticlabs/console/internal/models"
	"github.com/opticlabs/console/internal/repository"
	"github.com/opticlabs/console/internal/services/auth"
	"github.com/opticlabs/console/internal/services/token"
	"github.com/opticlabs/console/internal/services/verification"
	"github.com/opticlabs/console/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const testSecret = "test-secret-key-that-is-at-least-32-bytes-long"

type fakeMailer struct {
	resetTo     string
	resetToken  string
	resetCalls  int
	verifyTo    string
	verifyToken string
	verifyCalls int
	err         error
}

func (m *fakeMailer) SendPasswordReset(_ context.Context, to, _, token string) error {
	m.resetCalls++
	m.resetTo = to
	m.resetToken = token
	return m.err
}

func (m *fakeMailer) SendEmailVerification(_ context.Context, to, _, token string) error {
	m.verifyCalls++
	m.verifyTo = to
	m.verifyToken = token
	return m.err
}

func newTestService(t *testing.T) (*auth.Service, *repository.Repository, *verification.Service, *token.Issuer, *fakeMailer) {
	t.Helper()
	_, repo := testutil.NewTestDB(t)
	tokens := verification.NewService(repo)
	issuer, err := token.NewIssuer(testSecret, time.Hour)
	require.NoError(t, err)
	mailer := &fakeMailer{}
	svc := auth.NewService(repo, tokens, issuer, mailer)
	return svc, repo, tokens, issuer, mailer
}

func register(t *testing.T, svc *auth.Service, email, password string) *models.User {
	t.Helper()
	user, err := svc.Register(context.Background(), auth.RegisterParams{
		Email:     email,
		Password:  password,
		FirstName: "Alice",
		LastName:  "Smith",
	})
	require.NoError(t, err)
	return user
}

func TestRegister(t *testing.T) {
	svc, _, _, _, mailer := newTestService(t)
	ctx := context.Background()

	user, err := svc.Register(ctx, auth.RegisterParams{
		Email:     "Alice@Example.com",
		Password:  "Passw0rd!",
		FirstName: "Alice",
		LastName:  "Smith",
	})

	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", user.Email, "email is lowercased")
	assert.Equal(t, models.StatusActive, user.Status)
	assert.NotEmpty(t, user.PublicID)
	assert.False(t, user.EmailVerified)

	// The hash never holds the plaintext
	assert.NotEqual(t, "Passw0rd!", user.PasswordHash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("Passw0rd!")))

	// A verification mail with the token was dispatched
	assert.Equal(t, 1, mailer.verifyCalls)
	assert.Equal(t, "alice@example.com", mailer.verifyTo)
	assert.NotEmpty(t, mailer.verifyToken)
}

func TestRegister_DuplicateEmail(t *testing.T) {
	svc, _, _, _, _ := newTestService(t)
	ctx := context.Background()

	register(t, svc, "alice@example.com", "Passw0rd!")

	_, err := svc.Register(ctx, auth.RegisterParams{Email: "alice@example.com", Password: "Passw0rd!"})
	assert.ErrorIs(t, err, auth.ErrUserExists)
}

func TestRegister_DuplicateEmailDifferentCase(t *testing.T) {
	svc, _, _, _, _ := newTestService(t)
	ctx := context.Background()

	register(t, svc, "alice@example.com", "Passw0rd!")

	_, err := svc.Register(ctx, auth.RegisterParams{Email: "ALICE@example.com", Password: "Passw0rd!"})
	assert.ErrorIs(t, err, auth.ErrUserExists)
}

func TestRegister_MailFailureDoesNotUnwindRegistration(t *testing.T) {
	svc, repo, _, _, mailer := newTestService(t)
	mailer.err = assert.AnError
	ctx := context.Background()

	user := register(t, svc, "alice@example.com", "Passw0rd!")

	stored, err := repo.GetUserByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", stored.Email)
}

func TestRegister_Validation(t *testing.T) {
	svc, _, _, _, _ := newTestService(t)
	ctx := context.Background()

	tests := []struct {
		name   string
		params auth.RegisterParams
		field  string
	}{
		{"missing email", auth.RegisterParams{Password: "Passw0rd!"}, "email"},
		{"malformed email", auth.RegisterParams{Email: "not-an-email", Password: "Passw0rd!"}, "email"},
		{"missing password", auth.RegisterParams{Email: "alice@example.com"}, "password"},
		{"short password", auth.RegisterParams{Email: "alice@example.com", Password: "short"}, "password"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Register(ctx, tt.params)

			var verr *auth.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Contains(t, verr.Messages(), tt.field)
		})
	}
}

func TestLogin(t *testing.T) {
	svc, _, _, issuer, _ := newTestService(t)
	ctx := context.Background()

	register(t, svc, "alice@example.com", "Passw0rd!")

	result, err := svc.Login(ctx, "alice@example.com", "Passw0rd!", false)

	require.NoError(t, err)
	assert.NotEmpty(t, result.Token)
	assert.Equal(t, "alice@example.com", result.User.Email)

	claims, err := issuer.Parse(result.Token)
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", claims.Subject)
}

func TestLogin_MixedCaseEmail(t *testing.T) {
	svc, _, _, issuer, _ := newTestService(t)
	ctx := context.Background()

	register(t, svc, "alice@example.com", "Passw0rd!")

	result, err := svc.Login(ctx, "ALICE@Example.com", "Passw0rd!", false)

	require.NoError(t, err)
	claims, err := issuer.Parse(result.Token)
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", claims.Subject, "subject is the lowercased email")
}

func TestLogin_WrongPasswordAndUnknownEmailFailIdentically(t *testing.T) {
	svc, _, _, _, _ := newTestService(t)
	ctx := context.Background()

	register(t, svc, "alice@example.com", "Passw0rd!")

	_, wrongPassword := svc.Login(ctx, "alice@example.com", "not-the-password", false)
	_, unknownEmail := svc.Login(ctx, "nobody@example.com", "Passw0rd!", false)

	assert.ErrorIs(t, wrongPassword, auth.ErrInvalidCredentials)
	assert.ErrorIs(t, unknownEmail, auth.ErrInvalidCredentials)
	assert.Equal(t, wrongPassword.Error(), unknownEmail.Error())
}

func TestLogin_RememberMeExtendsLifetime(t *testing.T) {
	svc, _, _, issuer, _ := newTestService(t)
	ctx := context.Background()

	register(t, svc, "alice@example.com", "Passw0rd!")

	result, err := svc.Login(ctx, "alice@example.com", "Passw0rd!", true)
	require.NoError(t, err)

	claims, err := issuer.Parse(result.Token)
	require.NoError(t, err)
	assert.Equal(t, 7*time.Hour, claims.ExpiresAt.Sub(claims.IssuedAt.Time))
}

func TestForgotPassword(t *testing.T) {
	svc, _, tokens, _, mailer := newTestService(t)
	ctx := context.Background()

	register(t, svc, "alice@example.com", "Passw0rd!")

	err := svc.ForgotPassword(ctx, "Alice@Example.com")

	require.NoError(t, err)
	assert.Equal(t, 1, mailer.resetCalls)
	assert.Equal(t, "alice@example.com", mailer.resetTo)

	// The mailed token is an active password-reset token
	_, err = tokens.Peek(ctx, mailer.resetToken, models.TokenTypePasswordReset)
	assert.NoError(t, err)
}

func TestForgotPassword_UnknownEmailSilentlyNoOps(t *testing.T) {
	svc, _, _, _, mailer := newTestService(t)
	ctx := context.Background()

	err := svc.ForgotPassword(ctx, "nobody@example.com")

	require.NoError(t, err)
	assert.Zero(t, mailer.resetCalls)
}

func TestVerifyResetToken_DoesNotConsume(t *testing.T) {
	svc, _, _, _, mailer := newTestService(t)
	ctx := context.Background()

	register(t, svc, "alice@example.com", "Passw0rd!")
	require.NoError(t, svc.ForgotPassword(ctx, "alice@example.com"))

	// The pre-check may run repeatedly without burning the token
	require.NoError(t, svc.VerifyResetToken(ctx, mailer.resetToken))
	require.NoError(t, svc.VerifyResetToken(ctx, mailer.resetToken))

	// The actual reset still works
	err := svc.ResetPassword(ctx, mailer.resetToken, "NewPassw0rd!", "NewPassw0rd!")
	assert.NoError(t, err)
}

func TestVerifyResetToken_Invalid(t *testing.T) {
	svc, _, _, _, _ := newTestService(t)
	ctx := context.Background()

	err := svc.VerifyResetToken(ctx, "no-such-token")

	assert.ErrorIs(t, err, auth.ErrInvalidToken)
}

func TestResetPassword(t *testing.T) {
	svc, _, _, _, mailer := newTestService(t)
	ctx := context.Background()

	register(t, svc, "alice@example.com", "Passw0rd!")
	require.NoError(t, svc.ForgotPassword(ctx, "alice@example.com"))

	err := svc.ResetPassword(ctx, mailer.resetToken, "NewPassw0rd!", "NewPassw0rd!")
	require.NoError(t, err)

	// Old password no longer works, new one does
	_, err = svc.Login(ctx, "alice@example.com", "Passw0rd!", false)
	assert.ErrorIs(t, err, auth.ErrInvalidCredentials)

	_, err = svc.Login(ctx, "alice@example.com", "NewPassw0rd!", false)
	assert.NoError(t, err)

	// The token was consumed; a replay fails
	err = svc.ResetPassword(ctx, mailer.resetToken, "AnotherPass1!", "AnotherPass1!")
	assert.ErrorIs(t, err, auth.ErrInvalidToken)
}

func TestResetPassword_ConfirmationMismatch(t *testing.T) {
	svc, _, _, _, mailer := newTestService(t)
	ctx := context.Background()

	register(t, svc, "alice@example.com", "Passw0rd!")
	require.NoError(t, svc.ForgotPassword(ctx, "alice@example.com"))

	err := svc.ResetPassword(ctx, mailer.resetToken, "NewPassw0rd!", "Different1!")

	var verr *auth.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Messages(), "password_confirmation")

	// The token survives a failed validation
	assert.NoError(t, svc.VerifyResetToken(ctx, mailer.resetToken))
}

func TestResetPassword_InvalidToken(t *testing.T) {
	svc, _, _, _, _ := newTestService(t)
	ctx := context.Background()

	err := svc.ResetPassword(ctx, "no-such-token", "NewPassw0rd!", "NewPassw0rd!")

	assert.ErrorIs(t, err, auth.ErrInvalidToken)
}

func TestVerifyEmail(t *testing.T) {
	svc, repo, _, _, mailer := newTestService(t)
	ctx := context.Background()

	user := register(t, svc, "alice@example.com", "Passw0rd!")
	require.NotEmpty(t, mailer.verifyToken)

	err := svc.VerifyEmail(ctx, mailer.verifyToken)
	require.NoError(t, err)

	stored, err := repo.GetUserByID(ctx, user.ID)
	require.NoError(t, err)
	assert.True(t, stored.EmailVerified)
	assert.NotNil(t, stored.EmailVerifiedAt)

	// Single-use: the link cannot be replayed
	err = svc.VerifyEmail(ctx, mailer.verifyToken)
	assert.ErrorIs(t, err, auth.ErrInvalidToken)
}

func TestVerifyEmail_InvalidToken(t *testing.T) {
	svc, _, _, _, _ := newTestService(t)
	ctx := context.Background()

	err := svc.VerifyEmail(ctx, "no-such-token")

	assert.ErrorIs(t, err, auth.ErrInvalidToken)
}
