// Copyright 2026 Optic Labs
// Licensed under the EUPL-1.2

package models

import "time"

// TokenType distinguishes what follow-up action a verification token
// authorizes.
type TokenType string

const (
	TokenTypePasswordReset     TokenType = "password_reset"
	TokenTypeEmailVerification TokenType = "email_verification"
)

// VerificationToken is a server-stored, single-use, typed, expiring opaque
// token tied to a user. At most one active (unused, unexpired) token per
// (user, type) pair exists at any time.
type VerificationToken struct { //nolint:govet // fieldalignment: readability over optimization
	ID        int64      `db:"id" json:"-"`
	UserID    int64      `db:"user_id" json:"-"`
	Token     string     `db:"token" json:"-"`
	Type      TokenType  `db:"type" json:"type"`
	ExpiresAt time.Time  `db:"expires_at" json:"expires_at"`
	UsedAt    *time.Time `db:"used_at" json:"used_at,omitempty"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
}

// IsUsed reports whether the token has been consumed.
func (t *VerificationToken) IsUsed() bool {
	return t.UsedAt != nil
}

// IsExpired reports whether the token has expired as of the given instant.
func (t *VerificationToken) IsExpired(at time.Time) bool {
	return !at.Before(t.ExpiresAt)
}

// IsValid reports whether the token is active: unused and unexpired.
func (t *VerificationToken) IsValid(at time.Time) bool {
	return !t.IsUsed() && !t.IsExpired(at)
}
