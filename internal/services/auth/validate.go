// Copyright 2026 Optic Labs
// Licensed under the EUPL-1.2

package auth

import (
	"fmt"
	"net/mail"
	"strings"
)

// MinPasswordLength is the minimum accepted password length.
const MinPasswordLength = 8

// FieldError is a single field-level validation failure.
type FieldError struct {
	Field   string
	Message string
}

func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationError carries all field-level failures of one request.
type ValidationError struct {
	Errors []FieldError
}

func (e *ValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "validation failed"
	}
	return e.Errors[0].Error()
}

// Messages returns a field → message map for API responses.
func (e *ValidationError) Messages() map[string]string {
	messages := make(map[string]string, len(e.Errors))
	for _, err := range e.Errors {
		messages[err.Field] = err.Message
	}
	return messages
}

// errsOrNil wraps collected failures, or returns nil when there are none.
func errsOrNil(errs []FieldError) error {
	if len(errs) == 0 {
		return nil
	}
	return &ValidationError{Errors: errs}
}

func validateRegister(params RegisterParams) error {
	var errs []FieldError

	if strings.TrimSpace(params.Email) == "" {
		errs = append(errs, FieldError{Field: "email", Message: "Email is required."})
	} else if _, err := mail.ParseAddress(params.Email); err != nil {
		errs = append(errs, FieldError{Field: "email", Message: "Email is not a valid address."})
	}

	errs = append(errs, validatePassword("password", params.Password)...)

	return errsOrNil(errs)
}

func validatePassword(field, password string) []FieldError {
	var errs []FieldError

	if password == "" {
		errs = append(errs, FieldError{Field: field, Message: "Password is required."})
	} else if len(password) < MinPasswordLength {
		errs = append(errs, FieldError{
			Field:   field,
			Message: fmt.Sprintf("Password must be at least %d characters long.", MinPasswordLength),
		})
	}

	return errs
}

func validateResetPassword(newPassword, confirmation string) error {
	errs := validatePassword("new_password", newPassword)

	if newPassword != confirmation {
		errs = append(errs, FieldError{
			Field:   "password_confirmation",
			Message: "Password confirmation does not match.",
		})
	}

	return errsOrNil(errs)
}
