package services

import (
	"errors"
	"fmt"
	"strings"

	"github.com/isdelr/ender-tasks/internal/validator"
)

var (
	ErrDuplicateUser      = errors.New("user already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserNotFound       = errors.New("user not found")
	ErrTaskNotFound       = errors.New("task not found")
	ErrValidation         = errors.New("validation failed")
)

// ValidationError lists the fields that failed validation. It matches
// ErrValidation with errors.Is.
type ValidationError struct {
	Fields map[string]string
}

func newValidationError(v *validator.Validator) *ValidationError {
	return &ValidationError{Fields: v.Errors}
}

func (e *ValidationError) Error() string {
	v := validator.Validator{Errors: e.Fields}
	return fmt.Sprintf("%s: %s", ErrValidation, v.String())
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// Summary renders the failures as "field message" pairs in field order,
// e.g. "description must be provided; title must be provided".
func (e *ValidationError) Summary() string {
	v := validator.Validator{Errors: e.Fields}
	parts := make([]string, 0, len(e.Fields))
	for _, field := range v.Fields() {
		parts = append(parts, field+" "+e.Fields[field])
	}
	return strings.Join(parts, "; ")
}
