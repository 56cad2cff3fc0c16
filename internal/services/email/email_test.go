// Copyright 2026 Optic Labs
// Licensed under the EUPL-1.2

package email

import (
	"testing"

	"github.com/opticlabs/console/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validSMTPConfig() *config.SMTPConfig {
	return &config.SMTPConfig{
		Host:     "smtp.example.com",
		Port:     587,
		Username: "testuser",
		Password: "testpass",
		From:     "noreply@example.com",
		FromName: "Optic Console",
		TLS:      true,
	}
}

func TestNewService(t *testing.T) {
	svc, err := NewService(validSMTPConfig(), "https://app.example.com")

	require.NoError(t, err)
	assert.NotNil(t, svc)
}

func TestNewService_MissingHost(t *testing.T) {
	cfg := validSMTPConfig()
	cfg.Host = ""

	_, err := NewService(cfg, "https://app.example.com")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "SMTP host is required")
}

func TestNewService_MissingFrom(t *testing.T) {
	cfg := validSMTPConfig()
	cfg.From = ""

	_, err := NewService(cfg, "https://app.example.com")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "SMTP from address is required")
}

func TestResetURL(t *testing.T) {
	svc, err := NewService(validSMTPConfig(), "https://app.example.com/")
	require.NoError(t, err)

	// Trailing slash on the frontend URL is trimmed
	assert.Equal(t,
		"https://app.example.com/reset-password?token=abc123",
		svc.resetURL("abc123"),
	)
}

func TestVerifyURL(t *testing.T) {
	svc, err := NewService(validSMTPConfig(), "https://app.example.com")
	require.NoError(t, err)

	assert.Equal(t,
		"https://app.example.com/verify-email?token=abc123",
		svc.verifyURL("abc123"),
	)
}

func TestURLTokenIsEscaped(t *testing.T) {
	svc, err := NewService(validSMTPConfig(), "https://app.example.com")
	require.NoError(t, err)

	assert.Equal(t,
		"https://app.example.com/reset-password?token=a%2Bb%2Fc%3D",
		svc.resetURL("a+b/c="),
	)
}

func TestDisplayName(t *testing.T) {
	assert.Equal(t, "Alice Smith", displayName("Alice Smith"))
	assert.Equal(t, "there", displayName(""))
	assert.Equal(t, "there", displayName("   "))
}
