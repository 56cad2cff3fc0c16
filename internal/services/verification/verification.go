// Copyright 2026 Optic Labs
// Licensed under the EUPL-1.2

// Package verification manages the lifecycle of single-use, typed,
// expiring verification tokens: password reset and email verification.
package verification

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/opticlabs/console/internal/models"
	"github.com/opticlabs/console/internal/repository"
	"github.com/opticlabs/console/internal/services/token"
)

// ErrInvalidToken is returned when a token is missing, expired, already
// used, or of the wrong type. The caller cannot tell which.
var ErrInvalidToken = errors.New("invalid verification token")

const (
	// TokenBytes is the entropy of the opaque token string.
	TokenBytes = 32

	// RetentionWindow is how long expired tokens are kept for auditing
	// before the sweep deletes them.
	RetentionWindow = 7 * 24 * time.Hour

	// DefaultCleanupInterval is how often the sweep runs.
	DefaultCleanupInterval = 24 * time.Hour
)

// Service owns verification token state transitions:
// created → active → used | expired.
type Service struct {
	repo *repository.Repository
	now  func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the service clock, used by tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates a verification token service.
func NewService(repo *repository.Repository, opts ...Option) *Service {
	s := &Service{repo: repo, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create issues a new token for the (user, type) pair. Any prior active
// token of the same pair is marked used in the same transaction, so at most
// one active token per pair ever exists.
func (s *Service) Create(ctx context.Context, userID int64, tokenType models.TokenType, validity time.Duration) (*models.VerificationToken, error) {
	opaque, err := token.Generate(TokenBytes)
	if err != nil {
		return nil, fmt.Errorf("generating token: %w", err)
	}

	now := s.now().UTC()
	t := &models.VerificationToken{
		UserID:    userID,
		Token:     opaque,
		Type:      tokenType,
		ExpiresAt: now.Add(validity),
		CreatedAt: now,
	}

	err = s.repo.InTx(ctx, func(r *repository.Repository) error {
		if err := r.InvalidateActiveTokens(ctx, userID, tokenType, now); err != nil {
			return fmt.Errorf("invalidating previous tokens: %w", err)
		}
		return r.CreateVerificationToken(ctx, t)
	})
	if err != nil {
		return nil, err
	}
	return t, nil
}

// Peek checks validity without consuming the token. Used for pre-checks
// such as showing a password-reset form.
func (s *Service) Peek(ctx context.Context, tokenString string, tokenType models.TokenType) (*models.VerificationToken, error) {
	t, err := s.repo.GetVerificationToken(ctx, tokenString, tokenType)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, err
	}
	if !t.IsValid(s.now()) {
		return nil, ErrInvalidToken
	}
	return t, nil
}

// Consume validates the token and atomically marks it used. Validation is
// single-use: a second Consume of the same token fails. Expired tokens are
// reported invalid without being mutated.
func (s *Service) Consume(ctx context.Context, tokenString string, tokenType models.TokenType) (*models.VerificationToken, error) {
	var consumed *models.VerificationToken
	err := s.repo.InTx(ctx, func(r *repository.Repository) error {
		t, err := s.ConsumeWith(ctx, r, tokenString, tokenType)
		if err != nil {
			return err
		}
		consumed = t
		return nil
	})
	if err != nil {
		return nil, err
	}
	return consumed, nil
}

// ConsumeWith is Consume against a caller-supplied repository, allowing the
// consumption to join an enclosing transaction (e.g. a password reset that
// must mark the token used and replace the hash atomically).
func (s *Service) ConsumeWith(ctx context.Context, r *repository.Repository, tokenString string, tokenType models.TokenType) (*models.VerificationToken, error) {
	t, err := r.GetVerificationToken(ctx, tokenString, tokenType)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, err
	}

	now := s.now().UTC()
	if !t.IsValid(now) {
		return nil, ErrInvalidToken
	}

	claimed, err := r.MarkTokenUsed(ctx, t.ID, now)
	if err != nil {
		return nil, fmt.Errorf("marking token used: %w", err)
	}
	if !claimed {
		// Lost the race against a concurrent consumer
		return nil, ErrInvalidToken
	}

	t.UsedAt = &now
	return t, nil
}

// MarkUsed sets used_at on a token. Idempotent.
func (s *Service) MarkUsed(ctx context.Context, t *models.VerificationToken) error {
	now := s.now().UTC()
	if _, err := s.repo.MarkTokenUsed(ctx, t.ID, now); err != nil {
		return err
	}
	if t.UsedAt == nil {
		t.UsedAt = &now
	}
	return nil
}

// CleanupExpired deletes tokens that expired more than RetentionWindow ago
// and returns the number of rows removed.
func (s *Service) CleanupExpired(ctx context.Context) (int64, error) {
	cutoff := s.now().UTC().Add(-RetentionWindow)
	return s.repo.DeleteTokensExpiredBefore(ctx, cutoff)
}

// RunCleanup runs the periodic sweep until the context is canceled. It is
// best-effort maintenance: failures are logged, never propagated, and the
// sweep never blocks request paths.
func (s *Service) RunCleanup(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultCleanupInterval
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			deleted, err := s.CleanupExpired(ctx)
			if err != nil {
				slog.Error("token_cleanup_failed", "error", err)
				continue
			}
			if deleted > 0 {
				slog.Info("token_cleanup", "deleted", deleted)
			}
		}
	}
}
