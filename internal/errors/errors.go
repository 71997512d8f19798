package errors

import (
	"net/http"
)

// ErrorCode represents a standardized error code
type ErrorCode string

const (
	// Authentication errors (401xx)
	ErrInvalidCredentials ErrorCode = "40101"
	ErrTokenExpired       ErrorCode = "40102"
	ErrInvalidAPIKey      ErrorCode = "40103"

	// Authorization errors (403xx)
	ErrForbidden        ErrorCode = "40301"
	ErrCampaignNotOwned ErrorCode = "40302"

	// Resource errors (404xx)
	ErrCampaignNotFound   ErrorCode = "40401"
	ErrUserNotFound       ErrorCode = "40402"
	ErrSubmissionNotFound ErrorCode = "40403"
	ErrResourceNotFound   ErrorCode = "40404"

	// Request errors (400xx)
	ErrInvalidRequest   ErrorCode = "40001"
	ErrValidationFailed ErrorCode = "40002"

	// Conflict errors (409xx)
	ErrConflict          ErrorCode = "40901"
	ErrInvalidTransition ErrorCode = "40902"

	// Rate limit errors (429xx)
	ErrRateLimited ErrorCode = "42901"

	// Server errors (500xx)
	ErrInternalServer      ErrorCode = "50001"
	ErrUpstreamUnavailable ErrorCode = "50301"
	ErrUpstreamTimeout     ErrorCode = "50401"
)

// APIError represents a standardized API error
type APIError struct {
	Code       ErrorCode `json:"code"`
	Message    string    `json:"message"`
	Details    any       `json:"details,omitempty"`
	HTTPStatus int       `json:"-"`
}

// Error implements the error interface
func (e *APIError) Error() string {
	return e.Message
}

// ErrorResponse represents the error response format for the /api/v1 surface
type ErrorResponse struct {
	Error     APIError `json:"error"`
	RequestID string   `json:"request_id"`
}

// Common errors
var (
	ErrInvalidCredentialsError = &APIError{
		Code:       ErrInvalidCredentials,
		Message:    "Invalid email or password",
		HTTPStatus: http.StatusUnauthorized,
	}

	ErrTokenExpiredError = &APIError{
		Code:       ErrTokenExpired,
		Message:    "Token has expired",
		HTTPStatus: http.StatusUnauthorized,
	}

	ErrInvalidAPIKeyError = &APIError{
		Code:       ErrInvalidAPIKey,
		Message:    "Invalid API key",
		HTTPStatus: http.StatusUnauthorized,
	}

	ErrForbiddenError = &APIError{
		Code:       ErrForbidden,
		Message:    "Access denied",
		HTTPStatus: http.StatusForbidden,
	}

	ErrCampaignNotFoundError = &APIError{
		Code:       ErrCampaignNotFound,
		Message:    "Campaign not found",
		HTTPStatus: http.StatusNotFound,
	}

	ErrUserNotFoundError = &APIError{
		Code:       ErrUserNotFound,
		Message:    "User not found",
		HTTPStatus: http.StatusNotFound,
	}

	ErrSubmissionNotFoundError = &APIError{
		Code:       ErrSubmissionNotFound,
		Message:    "Submission not found",
		HTTPStatus: http.StatusNotFound,
	}

	ErrRateLimitedError = &APIError{
		Code:       ErrRateLimited,
		Message:    "Rate limit exceeded",
		HTTPStatus: http.StatusTooManyRequests,
	}

	ErrInternalServerError = &APIError{
		Code:       ErrInternalServer,
		Message:    "Internal server error",
		HTTPStatus: http.StatusInternalServerError,
	}

	ErrUpstreamUnavailableError = &APIError{
		Code:       ErrUpstreamUnavailable,
		Message:    "Upstream service unavailable",
		HTTPStatus: http.StatusServiceUnavailable,
	}

	ErrUpstreamTimeoutError = &APIError{
		Code:       ErrUpstreamTimeout,
		Message:    "Upstream service timeout",
		HTTPStatus: http.StatusGatewayTimeout,
	}
)

// NewValidationError creates a validation error with details
func NewValidationError(details any) *APIError {
	return &APIError{
		Code:       ErrValidationFailed,
		Message:    "Validation failed",
		Details:    details,
		HTTPStatus: http.StatusBadRequest,
	}
}

// NewNotFoundError creates a not-found error for a named resource
func NewNotFoundError(message string) *APIError {
	return &APIError{
		Code:       ErrResourceNotFound,
		Message:    message,
		HTTPStatus: http.StatusNotFound,
	}
}

// NewInvalidRequestError creates an invalid request error
func NewInvalidRequestError(message string) *APIError {
	return &APIError{
		Code:       ErrInvalidRequest,
		Message:    message,
		HTTPStatus: http.StatusBadRequest,
	}
}

// NewConflictError creates a conflict error
func NewConflictError(message string) *APIError {
	return &APIError{
		Code:       ErrConflict,
		Message:    message,
		HTTPStatus: http.StatusConflict,
	}
}

// NewTransitionError creates an invalid status transition error
func NewTransitionError(message string) *APIError {
	return &APIError{
		Code:       ErrInvalidTransition,
		Message:    message,
		HTTPStatus: http.StatusConflict,
	}
}
