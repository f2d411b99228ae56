package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// AppError represents a structured application error with context
type AppError struct {
	Code     string `json:"code"`
	Message  string `json:"message"`
	Details  string `json:"details,omitempty"`
	HTTPCode int    `json:"-"`
	Cause    error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Common error codes
const (
	CodeValidationFailed = "VALIDATION_FAILED"
	CodeInternalError    = "INTERNAL_ERROR"
	CodeConfigError      = "CONFIG_ERROR"

	// Token refresh error codes
	CodeRefreshTokenInvalid      = "REFRESH_TOKEN_INVALID"
	CodeRefreshTransportError    = "REFRESH_TRANSPORT_ERROR"
	CodeRefreshMalformedResponse = "REFRESH_MALFORMED_RESPONSE"

	// Downstream API error codes
	CodeTokenRejected      = "TOKEN_REJECTED"
	CodeUpstreamError      = "UPSTREAM_ERROR"
	CodeUpstreamShapeError = "UPSTREAM_SHAPE_ERROR"
	CodeNoTokenAndNoCache  = "NO_TOKEN_AND_NO_CACHE"

	// Store error codes
	CodeStoreError       = "STORE_ERROR"
	CodeStoreUnavailable = "STORE_UNAVAILABLE"
)

// Error constructors
func ValidationError(message string, cause error) *AppError {
	return &AppError{
		Code:     CodeValidationFailed,
		Message:  message,
		HTTPCode: http.StatusBadRequest,
		Cause:    cause,
	}
}

func InternalError(message string, cause error) *AppError {
	return &AppError{
		Code:     CodeInternalError,
		Message:  message,
		HTTPCode: http.StatusInternalServerError,
		Cause:    cause,
	}
}

func ConfigError(message string, cause error) *AppError {
	return &AppError{
		Code:     CodeConfigError,
		Message:  message,
		HTTPCode: http.StatusInternalServerError,
		Cause:    cause,
	}
}

// Refresh-specific error constructors
func RefreshTokenInvalidError(message string, cause error) *AppError {
	return &AppError{
		Code:     CodeRefreshTokenInvalid,
		Message:  message,
		HTTPCode: http.StatusUnauthorized,
		Cause:    cause,
	}
}

func RefreshTransportError(message string, cause error) *AppError {
	return &AppError{
		Code:     CodeRefreshTransportError,
		Message:  message,
		HTTPCode: http.StatusBadGateway,
		Cause:    cause,
	}
}

func RefreshMalformedResponseError(message string, cause error) *AppError {
	return &AppError{
		Code:     CodeRefreshMalformedResponse,
		Message:  message,
		HTTPCode: http.StatusBadGateway,
		Cause:    cause,
	}
}

// Downstream-specific error constructors
func TokenRejectedError(message string, cause error) *AppError {
	return &AppError{
		Code:     CodeTokenRejected,
		Message:  message,
		HTTPCode: http.StatusUnauthorized,
		Cause:    cause,
	}
}

func UpstreamError(message string, cause error) *AppError {
	return &AppError{
		Code:     CodeUpstreamError,
		Message:  message,
		HTTPCode: http.StatusBadGateway,
		Cause:    cause,
	}
}

func UpstreamShapeError(message string, cause error) *AppError {
	return &AppError{
		Code:     CodeUpstreamShapeError,
		Message:  message,
		HTTPCode: http.StatusBadGateway,
		Cause:    cause,
	}
}

func NoTokenAndNoCacheError(message string, cause error) *AppError {
	return &AppError{
		Code:     CodeNoTokenAndNoCache,
		Message:  message,
		HTTPCode: http.StatusUnauthorized,
		Cause:    cause,
	}
}

// Store-specific error constructors
func StoreError(message string, cause error) *AppError {
	return &AppError{
		Code:     CodeStoreError,
		Message:  message,
		HTTPCode: http.StatusInternalServerError,
		Cause:    cause,
	}
}

func StoreUnavailableError(message string, cause error) *AppError {
	return &AppError{
		Code:     CodeStoreUnavailable,
		Message:  message,
		HTTPCode: http.StatusServiceUnavailable,
		Cause:    cause,
	}
}

// Wrap wraps an existing error with additional context
func Wrap(err error, code, message string) *AppError {
	if err == nil {
		return nil
	}

	// If it's already an AppError, preserve the original code but update message
	var appErr *AppError
	if errors.As(err, &appErr) {
		return &AppError{
			Code:     appErr.Code,
			Message:  fmt.Sprintf("%s: %s", message, appErr.Message),
			HTTPCode: appErr.HTTPCode,
			Cause:    appErr.Cause,
		}
	}

	// Determine HTTP code based on error code
	httpCode := http.StatusInternalServerError
	switch code {
	case CodeValidationFailed:
		httpCode = http.StatusBadRequest
	case CodeRefreshTokenInvalid, CodeTokenRejected, CodeNoTokenAndNoCache:
		httpCode = http.StatusUnauthorized
	case CodeRefreshTransportError, CodeRefreshMalformedResponse,
		CodeUpstreamError, CodeUpstreamShapeError:
		httpCode = http.StatusBadGateway
	case CodeStoreUnavailable:
		httpCode = http.StatusServiceUnavailable
	}

	return &AppError{
		Code:     code,
		Message:  message,
		HTTPCode: httpCode,
		Cause:    err,
	}
}

// IsType checks if an error is of a specific type/code
func IsType(err error, code string) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}

// GetHTTPCode extracts the HTTP status code from an error
func GetHTTPCode(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.HTTPCode
	}
	return http.StatusInternalServerError
}
