package api

import "fmt"

// ErrorType represents the category of an API error.
type ErrorType string

const (
	ErrorTypeServerError        ErrorType = "server_error"
	ErrorTypeInvalidRequest     ErrorType = "invalid_request"
	ErrorTypeNotFound           ErrorType = "not_found"
	ErrorTypeUnauthorized       ErrorType = "unauthorized"
	ErrorTypePaymentRequired    ErrorType = "payment_required"
	ErrorTypeServiceUnavailable ErrorType = "service_unavailable"
)

// APIError represents a structured API error with type, code, param, and message.
type APIError struct {
	Type    ErrorType `json:"type"`
	Code    string    `json:"code,omitempty"`
	Param   string    `json:"param,omitempty"`
	Message string    `json:"message"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Param != "" {
		return fmt.Sprintf("%s: %s (param: %s)", e.Type, e.Message, e.Param)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// ErrorResponse wraps an APIError for JSON serialization as the top-level error response.
type ErrorResponse struct {
	Error *APIError `json:"error"`
}

// NewInvalidRequestError creates an APIError for invalid request parameters.
func NewInvalidRequestError(param, message string) *APIError {
	return &APIError{
		Type:    ErrorTypeInvalidRequest,
		Param:   param,
		Message: message,
	}
}

// NewNotFoundError creates an APIError for resources that cannot be found.
func NewNotFoundError(message string) *APIError {
	return &APIError{
		Type:    ErrorTypeNotFound,
		Message: message,
	}
}

// NewServerError creates an APIError for internal server errors.
func NewServerError(message string) *APIError {
	return &APIError{
		Type:    ErrorTypeServerError,
		Message: message,
	}
}

// NewUnauthorizedError creates an APIError for missing or invalid credentials.
func NewUnauthorizedError(message string) *APIError {
	return &APIError{
		Type:    ErrorTypeUnauthorized,
		Message: message,
	}
}

// NewPaymentRequiredError creates an APIError for quota denials.
func NewPaymentRequiredError(message string) *APIError {
	return &APIError{
		Type:    ErrorTypePaymentRequired,
		Message: message,
	}
}

// NewServiceUnavailableError creates an APIError for failing dependencies
// (identity provider, metering API).
func NewServiceUnavailableError(code, message string) *APIError {
	return &APIError{
		Type:    ErrorTypeServiceUnavailable,
		Code:    code,
		Message: message,
	}
}
