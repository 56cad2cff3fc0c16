// Copyright 2026 Optic Labs
// Licensed under the EUPL-1.2

package handlers

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/opticlabs/console/internal/auth"
	"github.com/opticlabs/console/internal/models"
	authsvc "github.com/opticlabs/console/internal/services/auth"
)

// AuthHandlers contains handlers for the authentication endpoints.
type AuthHandlers struct {
	auth *authsvc.Service
}

// NewAuth creates a new AuthHandlers instance.
func NewAuth(svc *authsvc.Service) *AuthHandlers {
	return &AuthHandlers{auth: svc}
}

// userResponse is the public view of a user. The numeric row ID and the
// password hash never leave the API.
type userResponse struct {
	ID            string     `json:"id"`
	Email         string     `json:"email"`
	FirstName     string     `json:"first_name,omitempty"`
	LastName      string     `json:"last_name,omitempty"`
	Status        string     `json:"status"`
	EmailVerified bool       `json:"email_verified"`
	CreatedAt     time.Time  `json:"created_at"`
	VerifiedAt    *time.Time `json:"email_verified_at,omitempty"`
}

func toUserResponse(u *models.User) userResponse {
	return userResponse{
		ID:            u.PublicID,
		Email:         u.Email,
		FirstName:     u.FirstName,
		LastName:      u.LastName,
		Status:        string(u.Status),
		EmailVerified: u.EmailVerified,
		CreatedAt:     u.CreatedAt,
		VerifiedAt:    u.EmailVerifiedAt,
	}
}

// RegisterRequest is the request body for registration.
type RegisterRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// Register creates a new user account.
func (h *AuthHandlers) Register(c echo.Context) error {
	var req RegisterRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid request body"})
	}

	user, err := h.auth.Register(c.Request().Context(), authsvc.RegisterParams{
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	})
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusCreated, map[string]any{
		"user": toUserResponse(user),
	})
}

// LoginRequest is the request body for login.
type LoginRequest struct {
	Email      string `json:"email"`
	Password   string `json:"password"`
	RememberMe bool   `json:"remember_me"`
}

// Login authenticates a user and returns a signed bearer token.
func (h *AuthHandlers) Login(c echo.Context) error {
	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid request body"})
	}

	result, err := h.auth.Login(c.Request().Context(), req.Email, req.Password, req.RememberMe)
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, map[string]any{
		"token": result.Token,
		"user":  toUserResponse(result.User),
	})
}

// ForgotPasswordRequest is the request body for requesting a reset link.
type ForgotPasswordRequest struct {
	Email string `json:"email"`
}

// ForgotPassword requests a password-reset email. The response is the same
// whether or not the email is registered.
func (h *AuthHandlers) ForgotPassword(c echo.Context) error {
	var req ForgotPasswordRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid request body"})
	}

	if err := h.auth.ForgotPassword(c.Request().Context(), req.Email); err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, map[string]string{
		"status": "ok",
	})
}

// VerifyResetTokenRequest is the request body for the reset-token pre-check.
type VerifyResetTokenRequest struct {
	Token string `json:"token"`
}

// VerifyResetToken checks a reset token without consuming it, so the
// frontend can decide whether to show the reset form.
func (h *AuthHandlers) VerifyResetToken(c echo.Context) error {
	var req VerifyResetTokenRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid request body"})
	}

	if err := h.auth.VerifyResetToken(c.Request().Context(), req.Token); err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, map[string]string{
		"status": "ok",
	})
}

// ResetPasswordRequest is the request body for completing a password reset.
type ResetPasswordRequest struct {
	Token                string `json:"token"`
	NewPassword          string `json:"new_password"`
	PasswordConfirmation string `json:"password_confirmation"`
}

// ResetPassword consumes a reset token and sets the new password.
func (h *AuthHandlers) ResetPassword(c echo.Context) error {
	var req ResetPasswordRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid request body"})
	}

	if err := h.auth.ResetPassword(c.Request().Context(), req.Token, req.NewPassword, req.PasswordConfirmation); err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, map[string]string{
		"status": "ok",
	})
}

// VerifyEmailRequest is the request body for email verification.
type VerifyEmailRequest struct {
	Token string `json:"token"`
}

// VerifyEmail consumes a verification token and marks the email verified.
func (h *AuthHandlers) VerifyEmail(c echo.Context) error {
	var req VerifyEmailRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid request body"})
	}

	if err := h.auth.VerifyEmail(c.Request().Context(), req.Token); err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, map[string]string{
		"status": "ok",
	})
}

// Me returns the authenticated user. The bearer middleware guarantees the
// user is present.
func (h *AuthHandlers) Me(c echo.Context) error {
	user := auth.GetUser(c.Request().Context())
	if user == nil {
		return c.JSON(http.StatusUnauthorized, errorResponse{Error: "not authenticated"})
	}

	return c.JSON(http.StatusOK, map[string]any{
		"user": toUserResponse(user),
	})
}
