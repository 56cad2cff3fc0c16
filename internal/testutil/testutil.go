// Copyright 2026 Optic Labs
// Licensed under the EUPL-1.2

// Package testutil provides test helpers and fixtures.
package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/opticlabs/console/internal/database"
	"github.com/opticlabs/console/internal/models"
	"github.com/opticlabs/console/internal/repository"
	"github.com/stretchr/testify/require"
	"github.com/vinovest/sqlx"
)

// NewTestDB creates an in-memory SQLite database for tests.
// Returns both the database connection and the repository for convenience.
func NewTestDB(t *testing.T) (*sqlx.DB, *repository.Repository) {
	t.Helper()
	db, err := database.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = db.Close()
	})
	repo := repository.New(db)
	return db, repo
}

// NewTestUser creates an active test user in the database.
func NewTestUser(t *testing.T, repo *repository.Repository, email string) *models.User {
	t.Helper()
	ctx := context.Background()
	user := &models.User{
		PublicID:     uuid.NewString(),
		Email:        email,
		PasswordHash: "$2a$10$not.a.real.hash.for.tests",
		Status:       models.StatusActive,
	}
	err := repo.CreateUser(ctx, user)
	require.NoError(t, err)
	return user
}

// NewTestToken creates a verification token row for a user.
func NewTestToken(t *testing.T, repo *repository.Repository, userID int64, tokenType models.TokenType, expiresAt time.Time) *models.VerificationToken {
	t.Helper()
	ctx := context.Background()
	token := &models.VerificationToken{
		UserID:    userID,
		Token:     uuid.NewString(),
		Type:      tokenType,
		ExpiresAt: expiresAt,
	}
	err := repo.CreateVerificationToken(ctx, token)
	require.NoError(t, err)
	return token
}
