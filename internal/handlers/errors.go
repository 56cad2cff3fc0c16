// Copyright 2026 Optic Labs
// Licensed under the EUPL-1.2

package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
	authsvc "github.com/opticlabs/console/internal/services/auth"
)

// errorResponse is the JSON body of every error reply.
type errorResponse struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

// writeError maps service errors to HTTP responses. Anything unrecognized
// is treated as an internal error and logged without leaking details.
func writeError(c echo.Context, err error) error {
	var verr *authsvc.ValidationError
	switch {
	case errors.As(err, &verr):
		return c.JSON(http.StatusUnprocessableEntity, errorResponse{
			Error:  "validation failed",
			Fields: verr.Messages(),
		})
	case errors.Is(err, authsvc.ErrUserExists):
		return c.JSON(http.StatusConflict, errorResponse{Error: err.Error()})
	case errors.Is(err, authsvc.ErrInvalidCredentials):
		return c.JSON(http.StatusUnauthorized, errorResponse{Error: err.Error()})
	case errors.Is(err, authsvc.ErrInvalidToken):
		return c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
	default:
		slog.Error("request_failed",
			"method", c.Request().Method,
			"uri", c.Request().RequestURI,
			"error", err,
		)
		return c.JSON(http.StatusInternalServerError, errorResponse{Error: "internal server error"})
	}
}
