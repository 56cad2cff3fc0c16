// Copyright 2026 Optic Labs
// Licensed under the EUPL-1.2

package token_test

import (
	"testing"
	"time"

	"github.com/opticlabs/console/internal/services/token"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testSecret is at least 32 bytes, as HS256 requires.
const testSecret = "test-secret-key-that-is-at-least-32-bytes-long"

func TestNewIssuer_MissingSecret(t *testing.T) {
	_, err := token.NewIssuer("", time.Hour)

	assert.ErrorIs(t, err, token.ErrSecretMissing)
}

func TestNewIssuer_ShortSecret(t *testing.T) {
	// 16 bytes is below the 256-bit minimum
	_, err := token.NewIssuer("sixteen-byte-key", time.Hour)

	assert.ErrorIs(t, err, token.ErrSecretTooShort)
}

func TestIssue_Subject(t *testing.T) {
	issuer, err := token.NewIssuer(testSecret, time.Hour)
	require.NoError(t, err)

	signed, err := issuer.Issue("alice@example.com", false)
	require.NoError(t, err)
	assert.NotEmpty(t, signed)

	claims, err := issuer.Parse(signed)
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", claims.Subject)
	assert.NotNil(t, claims.IssuedAt)
	assert.NotNil(t, claims.ExpiresAt)
	assert.True(t, claims.ExpiresAt.After(time.Now()))
}

func TestIssue_BlankSubject(t *testing.T) {
	issuer, err := token.NewIssuer(testSecret, time.Hour)
	require.NoError(t, err)

	for _, subject := range []string{"", "   ", "\t"} {
		_, err := issuer.Issue(subject, false)
		assert.ErrorIs(t, err, token.ErrEmptySubject)
	}
}

func TestIssue_DefaultExpirationIsOneDay(t *testing.T) {
	issuer, err := token.NewIssuer(testSecret, 0)
	require.NoError(t, err)

	signed, err := issuer.Issue("alice@example.com", false)
	require.NoError(t, err)

	claims, err := issuer.Parse(signed)
	require.NoError(t, err)
	assert.Equal(t, 24*time.Hour, claims.ExpiresAt.Sub(claims.IssuedAt.Time))
}

func TestIssue_ExtendedLifetimeIsSevenfold(t *testing.T) {
	issuer, err := token.NewIssuer(testSecret, time.Hour)
	require.NoError(t, err)

	signed, err := issuer.Issue("alice@example.com", true)
	require.NoError(t, err)

	claims, err := issuer.Parse(signed)
	require.NoError(t, err)
	assert.Equal(t, 7*time.Hour, claims.ExpiresAt.Sub(claims.IssuedAt.Time))
}

func TestIssue_UsesInjectedClock(t *testing.T) {
	// Claim timestamps have second precision
	fixed := time.Now().UTC().Truncate(time.Second)
	issuer, err := token.NewIssuer(testSecret, time.Hour,
		token.WithClock(func() time.Time { return fixed }))
	require.NoError(t, err)

	signed, err := issuer.Issue("alice@example.com", false)
	require.NoError(t, err)

	claims, err := issuer.Parse(signed)
	require.NoError(t, err)
	assert.True(t, claims.IssuedAt.Time.Equal(fixed))
	assert.True(t, claims.ExpiresAt.Time.Equal(fixed.Add(time.Hour)))
}

func TestIssue_DifferentSubjectsProduceDifferentTokens(t *testing.T) {
	issuer, err := token.NewIssuer(testSecret, time.Hour)
	require.NoError(t, err)

	first, err := issuer.Issue("user1@example.com", false)
	require.NoError(t, err)

	second, err := issuer.Issue("user2@example.com", false)
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
}

func TestParse_WrongSecret(t *testing.T) {
	issuer, err := token.NewIssuer(testSecret, time.Hour)
	require.NoError(t, err)

	other, err := token.NewIssuer("another-secret-key-that-is-32-bytes-plus", time.Hour)
	require.NoError(t, err)

	signed, err := issuer.Issue("alice@example.com", false)
	require.NoError(t, err)

	_, err = other.Parse(signed)
	assert.ErrorIs(t, err, token.ErrInvalidSignedToken)
}

func TestParse_Expired(t *testing.T) {
	issuer, err := token.NewIssuer(testSecret, time.Millisecond)
	require.NoError(t, err)

	signed, err := issuer.Issue("alice@example.com", false)
	require.NoError(t, err)

	time.Sleep(5 * time.Millisecond)

	_, err = issuer.Parse(signed)
	assert.ErrorIs(t, err, token.ErrInvalidSignedToken)
}

func TestParse_Malformed(t *testing.T) {
	issuer, err := token.NewIssuer(testSecret, time.Hour)
	require.NoError(t, err)

	_, err = issuer.Parse("not.a.jwt")
	assert.ErrorIs(t, err, token.ErrInvalidSignedToken)
}
