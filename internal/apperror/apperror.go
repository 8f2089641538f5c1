// Package apperror holds the error taxonomy shared by services, repositories
// and the central gin error handler. Every error that reaches a client is
// either an *AppError or one of the sentinels below; anything else is treated
// as a programming error and reported generically.
package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// AppError is an operational error: something the client can act on.
type AppError struct {
	StatusCode int
	Message    string
	// Err is the underlying cause, kept for logs and errors.Is.
	Err error
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Status is "fail" for client errors and "error" for server errors.
func (e *AppError) Status() string {
	if e.StatusCode >= 400 && e.StatusCode < 500 {
		return "fail"
	}
	return "error"
}

func New(statusCode int, message string) *AppError {
	return &AppError{StatusCode: statusCode, Message: message}
}

func Wrap(statusCode int, message string, err error) *AppError {
	return &AppError{StatusCode: statusCode, Message: message, Err: err}
}

// Authentication and authorization errors.
var (
	ErrInvalidCredentials    = New(http.StatusUnauthorized, "Incorrect email or password")
	ErrUnauthenticated       = New(http.StatusUnauthorized, "You are not logged in! Please log in to get access.")
	ErrInvalidToken          = New(http.StatusUnauthorized, "Invalid token. Please log in again!")
	ErrTokenExpired          = New(http.StatusUnauthorized, "Your token has expired! Please log in again.")
	ErrUserNotFound          = New(http.StatusUnauthorized, "The user belonging to this token does no longer exist.")
	ErrStalePassword         = New(http.StatusUnauthorized, "User recently changed password! Please log in again.")
	ErrWrongPassword         = New(http.StatusUnauthorized, "Your current password is wrong.")
	ErrForbidden             = New(http.StatusForbidden, "You do not have permission to perform this action")
	ErrNoSuchUser            = New(http.StatusNotFound, "There is no user with that email address.")
	ErrInvalidOrExpiredToken = New(http.StatusBadRequest, "Token is invalid or has expired")
	ErrDeliveryFailed        = New(http.StatusInternalServerError, "There was an error sending the email. Try again later!")
)

// ErrNotFound is returned by repositories when no row matches.
var ErrNotFound = errors.New("not found")

// NotFound builds the client-facing 404 for a resource.
func NotFound(resource string) *AppError {
	return Wrap(http.StatusNotFound, fmt.Sprintf("No %s found with that ID", resource), ErrNotFound)
}

// ValidationError reports malformed input, either caught by the service layer
// or rejected by the database.
type ValidationError struct {
	Messages []string
}

func (e *ValidationError) Error() string {
	if len(e.Messages) == 1 {
		return "Invalid input data. " + e.Messages[0]
	}
	msg := "Invalid input data."
	for _, m := range e.Messages {
		msg += " " + m
	}
	return msg
}

func Validation(messages ...string) *ValidationError {
	return &ValidationError{Messages: messages}
}

// StatusOf maps any error to the HTTP status the central handler uses.
func StatusOf(err error) int {
	var appErr *AppError
	var valErr *ValidationError
	switch {
	case errors.As(err, &appErr):
		return appErr.StatusCode
	case errors.As(err, &valErr):
		return http.StatusBadRequest
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// IsOperational reports whether err is safe to show to clients verbatim.
func IsOperational(err error) bool {
	var appErr *AppError
	var valErr *ValidationError
	return errors.As(err, &appErr) || errors.As(err, &valErr) || errors.Is(err, ErrNotFound)
}
