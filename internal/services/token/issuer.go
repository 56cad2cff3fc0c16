// Copyright 2026 Optic Labs
// Licensed under the EUPL-1.2

package token

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	// DefaultExpiration applies when no token expiration is configured.
	DefaultExpiration = 24 * time.Hour

	// extendedMultiplier stretches the lifetime for "remember me" logins.
	extendedMultiplier = 7

	// minSecretBytes is the minimum key strength HS256 requires.
	minSecretBytes = 32
)

var (
	// ErrEmptySubject is returned when a token is requested for a blank subject.
	ErrEmptySubject = errors.New("token subject must not be blank")

	// ErrSecretMissing is returned when no signing secret is configured.
	ErrSecretMissing = errors.New("signing secret is required")

	// ErrSecretTooShort is returned when the signing secret is weaker than
	// the algorithm allows.
	ErrSecretTooShort = errors.New("signing secret is too short")

	// ErrInvalidSignedToken is returned by Parse for any token that fails
	// signature or expiry checks.
	ErrInvalidSignedToken = errors.New("invalid signed token")
)

// Issuer mints stateless HS256-signed bearer tokens carrying a subject
// claim. It is constructed once at startup from injected configuration.
type Issuer struct {
	secret     []byte
	expiration time.Duration
	now        func() time.Time
}

// Option configures an Issuer.
type Option func(*Issuer)

// WithClock overrides the issuer clock, used by tests.
func WithClock(now func() time.Time) Option {
	return func(i *Issuer) { i.now = now }
}

// NewIssuer validates the signing secret and returns an Issuer. A missing
// or sub-256-bit secret is a configuration error and fatal at startup.
// A non-positive expiration falls back to DefaultExpiration.
func NewIssuer(secret string, expiration time.Duration, opts ...Option) (*Issuer, error) {
	if secret == "" {
		return nil, ErrSecretMissing
	}
	if len(secret) < minSecretBytes {
		return nil, fmt.Errorf("%w: need at least %d bytes, got %d", ErrSecretTooShort, minSecretBytes, len(secret))
	}
	if expiration <= 0 {
		expiration = DefaultExpiration
	}

	i := &Issuer{
		secret:     []byte(secret),
		expiration: expiration,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(i)
	}
	return i, nil
}

// Issue signs a bearer token for the given subject. With extended set, the
// expiry is stretched by the remember-me multiplier.
func (i *Issuer) Issue(subject string, extended bool) (string, error) {
	if strings.TrimSpace(subject) == "" {
		return "", ErrEmptySubject
	}

	lifetime := i.expiration
	if extended {
		lifetime *= extendedMultiplier
	}

	now := i.now()
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(lifetime)),
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
}

// Parse verifies signature and expiry of a token issued by this Issuer and
// returns its claims.
func (i *Issuer) Parse(tokenString string) (*jwt.RegisteredClaims, error) {
	claims := &jwt.RegisteredClaims{}
	parsed, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		return i.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidSignedToken, err)
	}
	if !parsed.Valid {
		return nil, ErrInvalidSignedToken
	}
	return claims, nil
}
