// Copyright 2026 Optic Labs
// Licensed under the EUPL-1.2

// Package auth orchestrates registration, login, password reset and email
// verification over the persistence, token and email collaborators.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/opticlabs/console/internal/models"
	"github.com/opticlabs/console/internal/repository"
	"github.com/opticlabs/console/internal/services/token"
	"github.com/opticlabs/console/internal/services/verification"
	"golang.org/x/crypto/bcrypt"
)

var (
	// ErrUserExists is returned when the email is already registered.
	ErrUserExists = errors.New("email is already registered")

	// ErrInvalidCredentials is returned for both unknown email and wrong
	// password, so callers cannot probe which accounts exist.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrInvalidToken mirrors the verification service's error for callers
	// of the auth API.
	ErrInvalidToken = verification.ErrInvalidToken
)

const (
	// PasswordResetValidity bounds how long a reset link works.
	PasswordResetValidity = time.Hour

	// EmailVerificationValidity bounds how long a verification link works.
	EmailVerificationValidity = 24 * time.Hour
)

// dummyHash is used for constant-time login to prevent timing attacks
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("dummy-password-for-timing"), bcrypt.DefaultCost)

// Mailer dispatches account emails. Implementations must not be relied on
// for transactional outcomes: a failed send never unwinds a registration.
type Mailer interface {
	SendPasswordReset(ctx context.Context, to, name, token string) error
	SendEmailVerification(ctx context.Context, to, name, token string) error
}

// Service is the credential service.
type Service struct {
	repo   *repository.Repository
	tokens *verification.Service
	issuer *token.Issuer
	mailer Mailer
	now    func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the service clock, used by tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates a credential service.
func NewService(repo *repository.Repository, tokens *verification.Service, issuer *token.Issuer, mailer Mailer, opts ...Option) *Service {
	s := &Service{
		repo:   repo,
		tokens: tokens,
		issuer: issuer,
		mailer: mailer,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RegisterParams holds the parameters for user registration.
type RegisterParams struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
}

// Register creates a new user account. The email existence pre-check is an
// optimization; the database unique constraint is the final authority, and
// a commit-time race surfaces as a store error rather than ErrUserExists.
func (s *Service) Register(ctx context.Context, params RegisterParams) (*models.User, error) {
	if err := validateRegister(params); err != nil {
		return nil, err
	}

	email := strings.ToLower(strings.TrimSpace(params.Email))

	exists, err := s.repo.EmailExists(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("checking existing user: %w", err)
	}
	if exists {
		return nil, ErrUserExists
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(params.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}

	now := s.now().UTC()
	user := &models.User{
		PublicID:     uuid.NewString(),
		Email:        email,
		PasswordHash: string(passwordHash),
		FirstName:    strings.TrimSpace(params.FirstName),
		LastName:     strings.TrimSpace(params.LastName),
		Status:       models.StatusActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.repo.CreateUser(ctx, user); err != nil {
		return nil, fmt.Errorf("creating user: %w", err)
	}

	slog.Info("register_success", "user_id", user.ID, "email", email)

	s.sendVerificationEmail(ctx, user)

	return user, nil
}

// sendVerificationEmail issues an email-verification token and dispatches
// the mail. Failures are logged and never unwind the registration.
func (s *Service) sendVerificationEmail(ctx context.Context, user *models.User) {
	vt, err := s.tokens.Create(ctx, user.ID, models.TokenTypeEmailVerification, EmailVerificationValidity)
	if err != nil {
		slog.Error("verification_token_failed", "user_id", user.ID, "error", err)
		return
	}
	if err := s.mailer.SendEmailVerification(ctx, user.Email, user.FullName(), vt.Token); err != nil {
		slog.Error("verification_email_failed", "user_id", user.ID, "error", err)
	}
}

// LoginResult is the successful outcome of a login.
type LoginResult struct {
	Token string
	User  *models.User
}

// Login authenticates a user and issues a signed bearer token. Unknown
// email and wrong password fail identically.
func (s *Service) Login(ctx context.Context, email, password string, rememberMe bool) (*LoginResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	user, err := s.repo.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			// Constant-time: always perform bcrypt comparison to prevent timing attacks
			_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
			slog.Warn("login_failed", "email", email, "reason", "user_not_found")
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("getting user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		slog.Warn("login_failed", "email", email, "reason", "invalid_password")
		return nil, ErrInvalidCredentials
	}

	signed, err := s.issuer.Issue(user.Email, rememberMe)
	if err != nil {
		return nil, fmt.Errorf("issuing token: %w", err)
	}

	slog.Info("login_success", "user_id", user.ID, "email", email)
	return &LoginResult{Token: signed, User: user}, nil
}

// ForgotPassword creates a password-reset token and dispatches the reset
// mail. An unknown email silently no-ops so the endpoint cannot be used to
// enumerate accounts.
func (s *Service) ForgotPassword(ctx context.Context, email string) error {
	email = strings.ToLower(strings.TrimSpace(email))

	user, err := s.repo.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			slog.Debug("forgot_password_unknown_email", "email", email)
			return nil
		}
		return fmt.Errorf("getting user: %w", err)
	}

	vt, err := s.tokens.Create(ctx, user.ID, models.TokenTypePasswordReset, PasswordResetValidity)
	if err != nil {
		return fmt.Errorf("creating reset token: %w", err)
	}

	if err := s.mailer.SendPasswordReset(ctx, user.Email, user.FullName(), vt.Token); err != nil {
		// The token mutation stands; the mail is fire-and-forget
		slog.Error("reset_email_failed", "user_id", user.ID, "error", err)
	}

	slog.Info("forgot_password_requested", "user_id", user.ID)
	return nil
}

// VerifyResetToken checks a password-reset token without consuming it, so
// a reset form pre-check does not burn the token before submission.
func (s *Service) VerifyResetToken(ctx context.Context, tokenString string) error {
	if _, err := s.tokens.Peek(ctx, tokenString, models.TokenTypePasswordReset); err != nil {
		return err
	}
	return nil
}

// ResetPassword consumes a password-reset token and replaces the user's
// password hash in one transaction.
func (s *Service) ResetPassword(ctx context.Context, tokenString, newPassword, confirmation string) error {
	if err := validateResetPassword(newPassword, confirmation); err != nil {
		return err
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hashing password: %w", err)
	}

	var userID int64
	err = s.repo.InTx(ctx, func(r *repository.Repository) error {
		vt, err := s.tokens.ConsumeWith(ctx, r, tokenString, models.TokenTypePasswordReset)
		if err != nil {
			return err
		}
		userID = vt.UserID
		return r.UpdateUserPassword(ctx, vt.UserID, string(passwordHash))
	})
	if err != nil {
		return err
	}

	slog.Info("password_reset_success", "user_id", userID)
	return nil
}

// VerifyEmail consumes an email-verification token and marks the owning
// user's email verified in one transaction.
func (s *Service) VerifyEmail(ctx context.Context, tokenString string) error {
	var userID int64
	err := s.repo.InTx(ctx, func(r *repository.Repository) error {
		vt, err := s.tokens.ConsumeWith(ctx, r, tokenString, models.TokenTypeEmailVerification)
		if err != nil {
			return err
		}
		userID = vt.UserID
		return r.MarkEmailVerified(ctx, vt.UserID, s.now().UTC())
	})
	if err != nil {
		return err
	}

	slog.Info("email_verified", "user_id", userID)
	return nil
}
