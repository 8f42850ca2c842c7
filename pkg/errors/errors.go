// Package errors provides the error helpers shared by the collabtext client.
// Errors created here wrap their cause, so the standard library's errors.Is
// and errors.As see through them.
package errors

import (
	goerrors "errors"
	"fmt"
)

// New returns an error with the given message.
func New(msg string, args ...interface{}) error {
	if len(args) == 0 {
		return goerrors.New(msg)
	}
	return fmt.Errorf(msg, args...)
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return goerrors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target interface{}) bool {
	return goerrors.As(err, target)
}

// contextError annotates an error with a short description of what was being
// attempted when it occurred.
type contextError struct {
	context string
	cause   error
}

// WithContext annotates err with what the caller was doing. It returns nil if
// err is nil.
func WithContext(err error, context string) error {
	if err == nil {
		return nil
	}
	return contextError{context: context, cause: err}
}

func (err contextError) Error() string {
	return fmt.Sprintf("%s: %s", err.context, err.cause)
}

func (err contextError) Unwrap() error {
	return err.cause
}

// FriendlyError is an error whose message is meant to be shown to the user
// as-is, without the chain of contexts that led to it.
type FriendlyError struct {
	msg   string
	cause error
}

// NewFriendlyError creates a FriendlyError. If the last argument is an error,
// it is recorded as the cause.
func NewFriendlyError(template string, args ...interface{}) error {
	var cause error
	if len(args) > 0 {
		if err, ok := args[len(args)-1].(error); ok {
			cause = err
		}
	}
	return FriendlyError{msg: fmt.Sprintf(template, args...), cause: cause}
}

func (err FriendlyError) Error() string {
	return err.msg
}

func (err FriendlyError) Unwrap() error {
	return err.cause
}

// GetFriendlyError returns the first FriendlyError in err's chain.
func GetFriendlyError(err error) (FriendlyError, bool) {
	var friendly FriendlyError
	ok := goerrors.As(err, &friendly)
	return friendly, ok
}

// MissingFieldError represents a missing required field.
type MissingFieldError struct {
	Field string
}

func (err MissingFieldError) Error() string {
	return fmt.Sprintf("missing required field: %s", err.Field)
}
