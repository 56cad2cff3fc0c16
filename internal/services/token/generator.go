// Copyright 2026 Optic Labs
// Licensed under the EUPL-1.2

// Package token provides opaque verification token generation and signed
// bearer token issuance.
package token

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
)

// ErrInvalidLength is returned when a non-positive byte length is requested.
var ErrInvalidLength = errors.New("token byte length must be positive")

// Generate returns byteLength cryptographically secure random bytes encoded
// as URL-safe base64 without padding.
func Generate(byteLength int) (string, error) {
	if byteLength <= 0 {
		return "", fmt.Errorf("%w: got %d", ErrInvalidLength, byteLength)
	}

	buf := make([]byte, byteLength)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("reading random bytes: %w", err)
	}

	return base64.RawURLEncoding.EncodeToString(buf), nil
}
