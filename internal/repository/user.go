// Copyright 2026 Optic Labs
// Licensed under the EUPL-1.2

package repository

import (
	"context"
	"time"

	"github.com/opticlabs/console/internal/models"
)

// CreateUser inserts a new user and fills in its generated ID. A unique
// constraint violation on the email column surfaces as ErrDuplicate.
// Timestamps are taken from the caller and default to the wall clock only
// when unset.
func (r *Repository) CreateUser(ctx context.Context, user *models.User) error {
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	if user.UpdatedAt.IsZero() {
		user.UpdatedAt = user.CreatedAt
	}

	res, err := r.q.ExecContext(ctx,
		`INSERT INTO users (public_id, email, password_hash, first_name, last_name, status, email_verified, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		user.PublicID, user.Email, user.PasswordHash, user.FirstName, user.LastName,
		user.Status, user.EmailVerified, user.CreatedAt, user.UpdatedAt)
	if err != nil {
		return wrapError(err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	user.ID = id
	return nil
}

// GetUserByID retrieves a user by their internal ID.
func (r *Repository) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	var user models.User
	if err := r.q.GetContext(ctx, &user, `SELECT * FROM users WHERE id = ?`, id); err != nil {
		return nil, wrapError(err)
	}
	return &user, nil
}

// GetUserByEmail retrieves a user by email. The email column uses NOCASE
// collation, so the lookup is case-insensitive.
func (r *Repository) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := r.q.GetContext(ctx, &user, `SELECT * FROM users WHERE email = ?`, email); err != nil {
		return nil, wrapError(err)
	}
	return &user, nil
}

// EmailExists checks if a user with the given email exists, ignoring case.
func (r *Repository) EmailExists(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := r.q.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM users WHERE email = ?)`, email)
	return exists, err
}

// UpdateUserPassword replaces a user's password hash.
func (r *Repository) UpdateUserPassword(ctx context.Context, id int64, passwordHash string) error {
	_, err := r.q.ExecContext(ctx,
		`UPDATE users SET password_hash = ?, updated_at = ? WHERE id = ?`,
		passwordHash, time.Now().UTC(), id)
	return wrapError(err)
}

// MarkEmailVerified sets the email-verified flag and timestamp.
func (r *Repository) MarkEmailVerified(ctx context.Context, id int64, at time.Time) error {
	_, err := r.q.ExecContext(ctx,
		`UPDATE users SET email_verified = 1, email_verified_at = ?, updated_at = ? WHERE id = ?`,
		at, at, id)
	return wrapError(err)
}
