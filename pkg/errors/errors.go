package errors

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Kind classifies an application error
type Kind int

const (
	KindUnknown Kind = iota
	// KindNetwork: request never reached the server or the response body was malformed
	KindNetwork
	// KindAuth: missing, expired or rejected bearer token
	KindAuth
	// KindNotFound: the server signalled that no entity with the given id exists
	KindNotFound
	// KindValidation: a client-side field check failed before any network call
	KindValidation
	// KindServer: any other non-2xx response, carrying the server's message if present
	KindServer
)

func (k Kind) String() string {
	switch k {
	case KindNetwork:
		return "network"
	case KindAuth:
		return "auth"
	case KindNotFound:
		return "not_found"
	case KindValidation:
		return "validation"
	case KindServer:
		return "server"
	default:
		return "unknown"
	}
}

// AppError represents an application error
type AppError struct {
	Kind    Kind              `json:"kind"`
	Message string            `json:"message"`
	Status  int               `json:"status,omitempty"`
	Fields  map[string]string `json:"fields,omitempty"`
	Err     error             `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Error constructors
func Network(err error) *AppError {
	return &AppError{
		Kind:    KindNetwork,
		Message: "request failed to reach the server",
		Err:     err,
	}
}

func Unauthorized(err error) *AppError {
	return &AppError{
		Kind:    KindAuth,
		Message: "unauthorized",
		Err:     err,
	}
}

func NotFound(resource string, err error) *AppError {
	return &AppError{
		Kind:    KindNotFound,
		Message: fmt.Sprintf("%s not found", resource),
		Err:     err,
	}
}

func Server(status int, message string) *AppError {
	if message == "" {
		message = fmt.Sprintf("server returned status %d", status)
	}
	return &AppError{
		Kind:    KindServer,
		Message: message,
		Status:  status,
	}
}

// Validation wraps per-field messages from a failed client-side check.
// The summary lists the offending fields so the error is usable as a
// notification message without further unpacking.
func Validation(fields map[string]string) *AppError {
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return &AppError{
		Kind:    KindValidation,
		Message: fmt.Sprintf("invalid fields: %s", strings.Join(names, ", ")),
		Fields:  fields,
	}
}

// KindOf returns the Kind of err, or KindUnknown for foreign errors.
func KindOf(err error) Kind {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindUnknown
}

func IsAuth(err error) bool       { return KindOf(err) == KindAuth }
func IsNetwork(err error) bool    { return KindOf(err) == KindNetwork }
func IsNotFound(err error) bool   { return KindOf(err) == KindNotFound }
func IsValidation(err error) bool { return KindOf(err) == KindValidation }
func IsServer(err error) bool     { return KindOf(err) == KindServer }

// FieldsOf returns the per-field messages of a validation error, or nil.
func FieldsOf(err error) map[string]string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Fields
	}
	return nil
}
