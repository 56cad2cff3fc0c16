// Copyright 2026 Optic Labs
// Licensed under the EUPL-1.2

// Package email delivers the account emails (password reset and email
// verification) over SMTP.
package email

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/opticlabs/console/internal/config"
	"github.com/opticlabs/console/internal/i18n"
	"github.com/wneessen/go-mail"
)

// Service sends account emails. It satisfies the Mailer interface of the
// auth service.
type Service struct {
	cfg         *config.SMTPConfig
	frontendURL string
}

// NewService creates an email service. frontendURL is where the links in
// the emails point, typically the SPA that hosts the reset and verify pages.
func NewService(cfg *config.SMTPConfig, frontendURL string) (*Service, error) {
	if cfg.Host == "" {
		return nil, fmt.Errorf("SMTP host is required")
	}
	if cfg.From == "" {
		return nil, fmt.Errorf("SMTP from address is required")
	}

	return &Service{
		cfg:         cfg,
		frontendURL: strings.TrimSuffix(frontendURL, "/"),
	}, nil
}

// SendPasswordReset mails the password-reset link for the given token.
func (s *Service) SendPasswordReset(ctx context.Context, to, name, token string) error {
	subject := i18n.T(ctx, "password_reset_subject")
	body := i18n.TData(ctx, "password_reset_body", map[string]any{
		"Name":     displayName(name),
		"ResetURL": s.resetURL(token),
	})

	return s.send(ctx, to, subject, body)
}

// SendEmailVerification mails the address-confirmation link for the given
// token.
func (s *Service) SendEmailVerification(ctx context.Context, to, name, token string) error {
	subject := i18n.T(ctx, "email_verification_subject")
	body := i18n.TData(ctx, "email_verification_body", map[string]any{
		"Name":      displayName(name),
		"VerifyURL": s.verifyURL(token),
	})

	return s.send(ctx, to, subject, body)
}

func (s *Service) resetURL(token string) string {
	return fmt.Sprintf("%s/reset-password?token=%s", s.frontendURL, url.QueryEscape(token))
}

func (s *Service) verifyURL(token string) string {
	return fmt.Sprintf("%s/verify-email?token=%s", s.frontendURL, url.QueryEscape(token))
}

func displayName(name string) string {
	if strings.TrimSpace(name) == "" {
		return "there"
	}
	return name
}

// send delivers a plain-text email via SMTP using go-mail.
func (s *Service) send(ctx context.Context, to, subject, body string) error {
	msg := mail.NewMsg()

	if s.cfg.FromName != "" {
		if err := msg.FromFormat(s.cfg.FromName, s.cfg.From); err != nil {
			return fmt.Errorf("setting from address: %w", err)
		}
	} else {
		if err := msg.From(s.cfg.From); err != nil {
			return fmt.Errorf("setting from address: %w", err)
		}
	}

	if err := msg.To(to); err != nil {
		return fmt.Errorf("setting to address: %w", err)
	}

	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextPlain, body)

	opts := []mail.Option{
		mail.WithPort(s.cfg.Port),
	}

	if s.cfg.TLS {
		opts = append(opts, mail.WithTLSPolicy(mail.TLSMandatory))
		// Implicit TLS (SSL) for port 465, STARTTLS otherwise
		if s.cfg.Port == 465 {
			opts = append(opts, mail.WithSSL())
		}
	} else {
		opts = append(opts, mail.WithTLSPolicy(mail.NoTLS))
	}

	if s.cfg.Username != "" && s.cfg.Password != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(s.cfg.Username),
			mail.WithPassword(s.cfg.Password),
		)
	}

	client, err := mail.NewClient(s.cfg.Host, opts...)
	if err != nil {
		return fmt.Errorf("creating mail client: %w", err)
	}

	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("sending email: %w", err)
	}

	return nil
}
