package services

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound covers both missing readings and readings owned by someone else.
	ErrNotFound           = errors.New("reading not found")
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidCredentials = errors.New("incorrect email or password")
	ErrForbidden          = errors.New("not enough permissions")
	ErrEmailTaken         = errors.New("email already registered")
)

// ValidationError reports malformed or out-of-range client input.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func invalid(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

func indexed(name string, i int) string {
	return fmt.Sprintf("%s[%d]", name, i)
}

// IsValidation reports whether err is, or wraps, a ValidationError.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}
