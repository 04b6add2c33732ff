// Package apperror defines the error kinds the bot reports back to users.
//
// Services return *AppError values wrapping one of the sentinel kinds; the
// transport layer matches them with errors.Is and replies with Message.
// Anything else is treated as a transient failure: logged, generic reply.
package apperror

import (
	"errors"
	"fmt"
)

var (
	ErrValidation = errors.New("validation error")
	ErrNotFound   = errors.New("not found")
	ErrPolicy     = errors.New("policy violation")
	ErrForbidden  = errors.New("forbidden")
)

type AppError struct {
	Err     error  // one of the sentinel kinds
	Message string // user-facing text
	Field   string // optional: argument that failed validation
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func ValidationFailed(field, message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: message,
		Field:   field,
	}
}

func NotFound(resource string, id any) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("%s not found: %v", resource, id),
	}
}

// Policy returns a rejection that is reported to the user as is.
func Policy(message string) *AppError {
	return &AppError{
		Err:     ErrPolicy,
		Message: message,
	}
}

func Forbidden(message string) *AppError {
	return &AppError{
		Err:     ErrForbidden,
		Message: message,
	}
}

// UserMessage returns the user-facing text of err when it is an *AppError.
func UserMessage(err error) (string, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Message, true
	}
	return "", false
}
