// Copyright 2026 Optic Labs
// Licensed under the EUPL-1.2

// Package server wires configuration, storage, services and HTTP routing
// into a runnable API server.
package server

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/opticlabs/console/internal/config"
	"github.com/opticlabs/console/internal/database"
	"github.com/opticlabs/console/internal/handlers"
	"github.com/opticlabs/console/internal/i18n"
	"github.com/opticlabs/console/internal/repository"
	authsvc "github.com/opticlabs/console/internal/services/auth"
	"github.com/opticlabs/console/internal/services/email"
	"github.com/opticlabs/console/internal/services/token"
	"github.com/opticlabs/console/internal/services/verification"
	"github.com/urfave/cli/v3"
)

// Run starts the server with the given CLI command.
func Run(ctx context.Context, cmd *cli.Command) error {
	cfg := config.NewFromCLI(cmd)
	setupLogger(cfg.Log.Level, cfg.Log.Format)

	slog.Info("starting server",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
		"base_url", cfg.Server.BaseURL,
	)

	// Database (migrations run on open)
	db, err := database.Open(cfg.Database.DSN)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			slog.Error("failed to close database", "error", closeErr)
		}
	}()

	// i18n
	if initErr := i18n.Init(); initErr != nil {
		return fmt.Errorf("failed to init i18n: %w", initErr)
	}

	repo := repository.New(db)

	// Token issuer; a missing or weak secret is fatal at startup
	issuer, err := token.NewIssuer(cfg.Token.Secret, cfg.TokenExpiration())
	if err != nil {
		return fmt.Errorf("token issuer: %w", err)
	}

	tokens := verification.NewService(repo)

	mailer, err := buildMailer(cfg)
	if err != nil {
		return fmt.Errorf("mailer: %w", err)
	}

	accounts := authsvc.NewService(repo, tokens, issuer, mailer)

	// Periodic token sweep, stopped on shutdown
	cleanupCtx, stopCleanup := context.WithCancel(context.Background())
	defer stopCleanup()
	go tokens.RunCleanup(cleanupCtx, verification.DefaultCleanupInterval)

	// Echo
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	setupMiddleware(e, cfg)
	setupRoutes(e, repo, accounts, issuer)

	return startWithGracefulShutdown(e, cfg)
}

// buildMailer returns the SMTP mailer, or a log-only fallback when SMTP is
// not configured so local development works without a mail server.
func buildMailer(cfg *config.Config) (authsvc.Mailer, error) {
	if cfg.SMTP.Host == "" {
		slog.Warn("SMTP not configured, account emails will only be logged")
		return logMailer{}, nil
	}
	return email.NewService(&cfg.SMTP, cfg.Server.FrontendURL)
}

// logMailer logs instead of sending. Development fallback only.
type logMailer struct{}

func (logMailer) SendPasswordReset(_ context.Context, to, _, token string) error {
	slog.Info("password_reset_email_skipped", "to", to, "token", token)
	return nil
}

func (logMailer) SendEmailVerification(_ context.Context, to, _, token string) error {
	slog.Info("verification_email_skipped", "to", to, "token", token)
	return nil
}

func setupRoutes(e *echo.Echo, repo *repository.Repository, accounts *authsvc.Service, issuer *token.Issuer) {
	h := handlers.New(repo)
	ah := handlers.NewAuth(accounts)

	e.GET("/health", h.Health)

	api := e.Group("/api")

	a := api.Group("/auth")
	a.POST("/register", ah.Register)
	a.POST("/login", ah.Login)
	a.POST("/forgot-password", ah.ForgotPassword)
	a.POST("/verify-reset-token", ah.VerifyResetToken)
	a.POST("/reset-password", ah.ResetPassword)
	a.POST("/verify-email", ah.VerifyEmail)

	protected := api.Group("", bearerAuth(issuer, repo))
	protected.GET("/me", ah.Me)
}

func startWithGracefulShutdown(e *echo.Echo, cfg *config.Config) error {
	tlsResult, err := SetupTLS(cfg)
	if err != nil {
		return fmt.Errorf("TLS setup failed: %w", err)
	}

	errChan := make(chan error, 2)

	// HTTP redirect server for ACME mode
	var httpServer *http.Server

	switch tlsResult.Mode {
	case TLSModeOff:
		addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		go func() {
			slog.Info("Server running", "url", cfg.Server.BaseURL)
			if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errChan <- err
			}
		}()

	case TLSModeACME:
		go func() {
			slog.Info("Server running", "url", cfg.Server.BaseURL)
			if err := startTLSServer(e, ":443", tlsResult.TLSConfig); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errChan <- err
			}
		}()

		// HTTP-01 challenge and redirect server on :80
		httpServer = &http.Server{
			Addr:              ":80",
			Handler:           tlsResult.HTTPHandler,
			ReadHeaderTimeout: 10 * time.Second,
		}
		go func() {
			slog.Info("HTTP to HTTPS redirect active", "addr", ":80")
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errChan <- err
			}
		}()

	case TLSModeManual:
		addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		go func() {
			slog.Info("Server running", "url", cfg.Server.BaseURL)
			if err := startTLSServer(e, addr, tlsResult.TLSConfig); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errChan <- err
			}
		}()
	}

	// Wait for interrupt signal or error
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
		slog.Info("shutting down server")
	case err := <-errChan:
		slog.Error("server error", "error", err)
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		slog.Error("failed to shutdown main server", "error", err)
	}

	if httpServer != nil {
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			slog.Error("failed to shutdown HTTP redirect server", "error", err)
		}
	}

	slog.Info("server stopped")
	return nil
}

// startTLSServer starts the Echo server with a custom TLS configuration.
func startTLSServer(e *echo.Echo, addr string, tlsConfig *tls.Config) error {
	lc := &net.ListenConfig{}
	ln, err := lc.Listen(context.Background(), "tcp", addr)
	if err != nil {
		return err
	}
	e.TLSListener = tls.NewListener(ln, tlsConfig)
	e.TLSServer.TLSConfig = tlsConfig
	return e.Server.Serve(e.TLSListener)
}
