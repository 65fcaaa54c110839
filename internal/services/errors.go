package services

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// Error kinds. Every error returned by this package matches exactly one of
// these with errors.Is.
var (
	ErrValidation   = errors.New("validation error")
	ErrNotFound     = errors.New("not found")
	ErrInvalidState = errors.New("invalid state")
	ErrForbidden    = errors.New("not authorized")
	ErrDependency   = errors.New("dependency unavailable")
)

var (
	ErrEventNotFound  = newError(ErrNotFound, "event not found")
	ErrPledgeNotFound = newError(ErrNotFound, "pledge not found")
	ErrReportNotFound = newError(ErrNotFound, "report not found")
	ErrUserNotFound   = newError(ErrNotFound, "user not found")

	ErrEventNotActive = newError(ErrInvalidState, "event is not accepting pledges")
	ErrNotEventOwner  = newError(ErrForbidden, "you do not organize this event")

	ErrEmailTaken         = newError(ErrInvalidState, "email already registered")
	ErrInvalidCredentials = newError(ErrForbidden, "invalid email or password")
	ErrInvalidToken       = newError(ErrForbidden, "invalid or expired refresh token")
)

// Error carries a kind, a caller-safe message and an optional cause.
type Error struct {
	Kind error
	Msg  string
	Err  error
}

func newError(kind error, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Msg + ": " + e.Err.Error()
	}
	return e.Msg
}

func (e *Error) Unwrap() []error {
	if e.Err != nil {
		return []error{e.Kind, e.Err}
	}
	return []error{e.Kind}
}

func validationf(format string, args ...any) error {
	return &Error{Kind: ErrValidation, Msg: fmt.Sprintf(format, args...)}
}

func invalidStatef(format string, args ...any) error {
	return &Error{Kind: ErrInvalidState, Msg: fmt.Sprintf(format, args...)}
}

func forbiddenf(format string, args ...any) error {
	return &Error{Kind: ErrForbidden, Msg: fmt.Sprintf(format, args...)}
}

// wrapped returns sentinel with cause attached, still matching sentinel via errors.Is.
func wrapped(sentinel *Error, cause error) error {
	return &Error{Kind: sentinel, Msg: sentinel.Msg, Err: cause}
}

// storeErr classifies a persistence failure. Already-typed errors pass through,
// record-not-found becomes notFound, everything else is a dependency error.
func storeErr(err error, notFound *Error, op string) error {
	if err == nil {
		return nil
	}
	var typed *Error
	if errors.As(err, &typed) {
		return err
	}
	if notFound != nil && errors.Is(err, gorm.ErrRecordNotFound) {
		return notFound
	}
	return &Error{Kind: ErrDependency, Msg: op + " failed", Err: err}
}

// Retryable reports whether the caller may retry with backoff.
func Retryable(err error) bool {
	return errors.Is(err, ErrDependency)
}

// Message returns the caller-safe message for err.
func Message(err error) string {
	var typed *Error
	if errors.As(err, &typed) {
		if errors.Is(err, ErrDependency) {
			if errors.Is(err, context.DeadlineExceeded) {
				return "database timeout, please retry"
			}
			return "database unavailable, please retry"
		}
		return typed.Msg
	}
	return "internal server error"
}
