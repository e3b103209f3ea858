// Package domain defines core types, interfaces, and errors for the account
// and delegated-credential services.
package domain

import (
	"errors"
	"fmt"
)

// NotFoundError indicates a resource was not found.
type NotFoundError struct {
	Message string
}

func (e *NotFoundError) Error() string { return e.Message }

// AccessDeniedError indicates insufficient permissions.
type AccessDeniedError struct {
	Message string
}

func (e *AccessDeniedError) Error() string { return e.Message }

// ValidationError indicates invalid input.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// ConflictError indicates a conflict (e.g., duplicate resource).
type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string { return e.Message }

// ErrNotFound creates a NotFoundError with a formatted message.
func ErrNotFound(format string, args ...interface{}) *NotFoundError {
	return &NotFoundError{Message: fmt.Sprintf(format, args...)}
}

// ErrAccessDenied creates an AccessDeniedError with a formatted message.
func ErrAccessDenied(format string, args ...interface{}) *AccessDeniedError {
	return &AccessDeniedError{Message: fmt.Sprintf(format, args...)}
}

// ErrValidation creates a ValidationError with a formatted message.
func ErrValidation(format string, args ...interface{}) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// ErrConflict creates a ConflictError with a formatted message.
func ErrConflict(format string, args ...interface{}) *ConflictError {
	return &ConflictError{Message: fmt.Sprintf(format, args...)}
}

// Kind classifies failures of the provisioning and delegated-token flows.
// Every Kind is terminal for the current request; nothing is retried.
type Kind string

// Error kinds surfaced to callers.
const (
	KindDuplicatePrincipal   Kind = "DUPLICATE_PRINCIPAL"
	KindSelfDeleteForbidden  Kind = "SELF_DELETE_FORBIDDEN"
	KindIdentityServiceError Kind = "IDENTITY_SERVICE_ERROR"
	KindAuthExchangeFailed   Kind = "AUTH_EXCHANGE_FAILED"
	KindNotConnected         Kind = "NOT_CONNECTED"
	KindReauthRequired       Kind = "REAUTH_REQUIRED"
	KindDeliveryFailed       Kind = "DELIVERY_FAILED"
)

// Error is a (kind, message) pair with an optional underlying cause.
//
//	var kindErr *domain.Error
//	if errors.As(err, &kindErr) && kindErr.Kind == domain.KindReauthRequired { ... }
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf returns the Kind carried by err, or "" when err is not a *Error.
func KindOf(err error) Kind {
	var kindErr *Error
	if errors.As(err, &kindErr) {
		return kindErr.Kind
	}
	return ""
}

// IsKind reports whether err carries the given Kind.
func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

func newKindError(kind Kind, cause error, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Err: cause}
}

// ErrDuplicatePrincipal reports that the identity service already holds the email.
func ErrDuplicatePrincipal(format string, args ...interface{}) *Error {
	return newKindError(KindDuplicatePrincipal, nil, format, args...)
}

// ErrSelfDeleteForbidden reports an administrator trying to delete their own account.
func ErrSelfDeleteForbidden(format string, args ...interface{}) *Error {
	return newKindError(KindSelfDeleteForbidden, nil, format, args...)
}

// ErrIdentityService wraps any other identity-service failure.
func ErrIdentityService(cause error, format string, args ...interface{}) *Error {
	return newKindError(KindIdentityServiceError, cause, format, args...)
}

// ErrAuthExchangeFailed reports a rejected authorization-code exchange.
func ErrAuthExchangeFailed(cause error, format string, args ...interface{}) *Error {
	return newKindError(KindAuthExchangeFailed, cause, format, args...)
}

// ErrNotConnected reports that the principal never authorized the messaging provider.
func ErrNotConnected(format string, args ...interface{}) *Error {
	return newKindError(KindNotConnected, nil, format, args...)
}

// ErrReauthRequired reports that the stored credential cannot be recovered
// without the user running the consent flow again.
func ErrReauthRequired(cause error, format string, args ...interface{}) *Error {
	return newKindError(KindReauthRequired, cause, format, args...)
}

// ErrDeliveryFailed reports a message the provider refused to deliver.
func ErrDeliveryFailed(cause error, format string, args ...interface{}) *Error {
	return newKindError(KindDeliveryFailed, cause, format, args...)
}
