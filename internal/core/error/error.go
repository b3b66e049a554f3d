package errx

import (
	"errors"
	"fmt"
	"net/http"
)

const (
	// SystemErrorMessage is a user-facing fallback when internal errors occur.
	SystemErrorMessage = "internal server error"
	// RedisErrorMessage describes Redis related failures.
	RedisErrorMessage = "redis operation failed"
	// RedisNotFoundMessage is returned when a Redis key does not exist.
	RedisNotFoundMessage = "redis key not found"
	// MongoErrorMessage describes MongoDB related failures.
	MongoErrorMessage = "database operation failed"
	// MongoNotFoundMessage is returned when no document matches.
	MongoNotFoundMessage = "document not found"
	// MongoDuplicateMessage is returned on unique index violations.
	MongoDuplicateMessage = "document already exists"
)

// Error wraps an underlying error with an HTTP status and a message that is
// safe to show to API clients.
type Error struct {
	Err     error
	Status  int
	Message string
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Err)
}

// Unwrap exposes the underlying error for errors.Is / errors.As support.
func (e *Error) Unwrap() error {
	return e.Err
}

// New creates a new Error with the provided information.
func New(err error, status int, message string) *Error {
	return &Error{
		Err:     err,
		Status:  status,
		Message: message,
	}
}

func BadRequest(message string) *Error {
	return New(nil, http.StatusBadRequest, message)
}

func Unauthorized(message string) *Error {
	return New(nil, http.StatusUnauthorized, message)
}

func NotFound(message string) *Error {
	return New(nil, http.StatusNotFound, message)
}

func Conflict(message string) *Error {
	return New(nil, http.StatusConflict, message)
}

// Internal hides err behind the generic system message.
func Internal(err error) *Error {
	return New(err, http.StatusInternalServerError, SystemErrorMessage)
}

// StatusOf returns the HTTP status carried by the first *Error in the chain,
// or 500 when there is none.
func StatusOf(err error) int {
	var e *Error
	if errors.As(err, &e) && e.Status != 0 {
		return e.Status
	}
	return http.StatusInternalServerError
}

// MessageOf returns the safe message carried by the first *Error in the chain.
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Message != "" {
		return e.Message
	}
	return SystemErrorMessage
}

// HasStatus reports whether err carries the given HTTP status.
func HasStatus(err error, status int) bool {
	var e *Error
	return errors.As(err, &e) && e.Status == status
}
