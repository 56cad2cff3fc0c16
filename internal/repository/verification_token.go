// Copyright 2026 Optic Labs
// Licensed under the EUPL-1.2

package repository

import (
	"context"
	"time"

	"github.com/opticlabs/console/internal/models"
)

// CreateVerificationToken inserts a new verification token and fills in its
// generated ID. CreatedAt is taken from the caller so one clock governs the
// whole row; it defaults to the wall clock only when unset.
func (r *Repository) CreateVerificationToken(ctx context.Context, token *models.VerificationToken) error {
	if token.CreatedAt.IsZero() {
		token.CreatedAt = time.Now().UTC()
	}

	res, err := r.q.ExecContext(ctx,
		`INSERT INTO verification_tokens (user_id, token, type, expires_at, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		token.UserID, token.Token, token.Type, token.ExpiresAt, token.CreatedAt)
	if err != nil {
		return wrapError(err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	token.ID = id
	return nil
}

// GetVerificationToken retrieves a token by its opaque string and type.
func (r *Repository) GetVerificationToken(ctx context.Context, token string, tokenType models.TokenType) (*models.VerificationToken, error) {
	var t models.VerificationToken
	err := r.q.GetContext(ctx, &t,
		`SELECT * FROM verification_tokens WHERE token = ? AND type = ?`, token, tokenType)
	if err != nil {
		return nil, wrapError(err)
	}
	return &t, nil
}

// InvalidateActiveTokens marks every active token of the given (user, type)
// pair as used, enforcing the single-active-token invariant before a new
// token is created. Active means unused and unexpired at the given instant;
// expired rows keep used_at null until the retention sweep removes them.
func (r *Repository) InvalidateActiveTokens(ctx context.Context, userID int64, tokenType models.TokenType, at time.Time) error {
	_, err := r.q.ExecContext(ctx,
		`UPDATE verification_tokens SET used_at = ? WHERE user_id = ? AND type = ? AND used_at IS NULL AND expires_at > ?`,
		at, userID, tokenType, at)
	return wrapError(err)
}

// MarkTokenUsed sets used_at on a token and reports whether this call
// claimed it. Idempotent: a token that is already used keeps its original
// used_at and reports false.
func (r *Repository) MarkTokenUsed(ctx context.Context, id int64, at time.Time) (bool, error) {
	res, err := r.q.ExecContext(ctx,
		`UPDATE verification_tokens SET used_at = ? WHERE id = ? AND used_at IS NULL`,
		at, id)
	if err != nil {
		return false, wrapError(err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows > 0, nil
}

// DeleteTokensExpiredBefore deletes tokens whose expiry is strictly older
// than the cutoff and returns the number of rows removed.
func (r *Repository) DeleteTokensExpiredBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.q.ExecContext(ctx,
		`DELETE FROM verification_tokens WHERE expires_at < ?`, cutoff)
	if err != nil {
		return 0, wrapError(err)
	}
	return res.RowsAffected()
}

// CountTokens returns the number of stored tokens for a user, used or not.
func (r *Repository) CountTokens(ctx context.Context, userID int64) (int64, error) {
	var count int64
	err := r.q.GetContext(ctx, &count,
		`SELECT COUNT(*) FROM verification_tokens WHERE user_id = ?`, userID)
	return count, err
}
