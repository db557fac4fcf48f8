// Package errors defines the typed service errors used across the gateway.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorCode identifies the category of a service error.
type ErrorCode string

// Error codes used by the gateway.
const (
	CodeValidation   ErrorCode = "VALIDATION_ERROR"
	CodeConflict     ErrorCode = "CONFLICT"
	CodeUnauthorized ErrorCode = "UNAUTHORIZED"
	CodeAuthFailed   ErrorCode = "AUTHENTICATION_FAILED"
	CodeInvalidToken ErrorCode = "INVALID_TOKEN"
	CodeTokenExpired ErrorCode = "TOKEN_EXPIRED"
	CodeNotFound     ErrorCode = "NOT_FOUND"
	CodeRateLimited  ErrorCode = "RATE_LIMIT_EXCEEDED"
	CodeLedgerCall   ErrorCode = "LEDGER_CALL_FAILED"
	CodeInternal     ErrorCode = "INTERNAL_ERROR"
)

// ServiceError carries an error category, a caller-facing message and the HTTP
// status the routing layer should emit. Components below the router never write
// HTTP responses themselves; they fail with a ServiceError and let the router map it.
type ServiceError struct {
	Code       ErrorCode
	Message    string
	HTTPStatus int
	Details    map[string]interface{}
	cause      error
}

func (e *ServiceError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap exposes the underlying cause for errors.Is/As chains.
func (e *ServiceError) Unwrap() error {
	return e.cause
}

// Is matches two service errors by code so sentinel-style comparisons work.
func (e *ServiceError) Is(target error) bool {
	var se *ServiceError
	if errors.As(target, &se) {
		return e.Code == se.Code
	}
	return false
}

// WithDetails attaches a key/value pair to the error for structured reporting.
func (e *ServiceError) WithDetails(key string, value interface{}) *ServiceError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// Validation reports a malformed or missing request field.
func Validation(message string) *ServiceError {
	return &ServiceError{Code: CodeValidation, Message: message, HTTPStatus: http.StatusBadRequest}
}

// Conflict reports a duplicate-resource failure such as a taken username.
func Conflict(message string) *ServiceError {
	return &ServiceError{Code: CodeConflict, Message: message, HTTPStatus: http.StatusBadRequest}
}

// Unauthorized reports a missing or unusable credential.
func Unauthorized(message string) *ServiceError {
	return &ServiceError{Code: CodeUnauthorized, Message: message, HTTPStatus: http.StatusUnauthorized}
}

// AuthenticationFailed reports a login attempt against an unknown user or
// with a wrong password. Reported as 400 on the login route, matching the
// gateway's historical surface.
func AuthenticationFailed(message string) *ServiceError {
	return &ServiceError{Code: CodeAuthFailed, Message: message, HTTPStatus: http.StatusBadRequest}
}

// InvalidToken reports a malformed or tampered session token.
func InvalidToken(cause error) *ServiceError {
	return &ServiceError{Code: CodeInvalidToken, Message: "invalid token", HTTPStatus: http.StatusUnauthorized, cause: cause}
}

// TokenExpired reports a structurally valid token past its expiry.
func TokenExpired(cause error) *ServiceError {
	return &ServiceError{Code: CodeTokenExpired, Message: "token expired", HTTPStatus: http.StatusUnauthorized, cause: cause}
}

// NotFound reports a missing resource.
func NotFound(message string) *ServiceError {
	return &ServiceError{Code: CodeNotFound, Message: message, HTTPStatus: http.StatusNotFound}
}

// RateLimited reports a client exceeding its request allowance.
func RateLimited(message string) *ServiceError {
	return &ServiceError{Code: CodeRateLimited, Message: message, HTTPStatus: http.StatusTooManyRequests}
}

// LedgerCall reports a ledger-side rejection: reverted execution, node error,
// connectivity failure or bounded-wait timeout. The ledger's detail is preserved.
func LedgerCall(message string, cause error) *ServiceError {
	return &ServiceError{Code: CodeLedgerCall, Message: message, HTTPStatus: http.StatusInternalServerError, cause: cause}
}

// Internal reports an unexpected gateway-side failure.
func Internal(message string, cause error) *ServiceError {
	return &ServiceError{Code: CodeInternal, Message: message, HTTPStatus: http.StatusInternalServerError, cause: cause}
}

// GetServiceError extracts a ServiceError from an error chain, or nil.
func GetServiceError(err error) *ServiceError {
	var se *ServiceError
	if errors.As(err, &se) {
		return se
	}
	return nil
}
