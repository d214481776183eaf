package transport

import (
	"context"
	"errors"
	"net/http"

	"github.com/rhuss/lakegate/pkg/api"
	"github.com/rhuss/lakegate/pkg/auth"
	"github.com/rhuss/lakegate/pkg/metering"
	"github.com/rhuss/lakegate/pkg/storage"
)

// HTTPStatusFromError maps an APIError type to the corresponding HTTP status
// code.
func HTTPStatusFromError(err *api.APIError) int {
	switch err.Type {
	case api.ErrorTypeInvalidRequest:
		return http.StatusBadRequest
	case api.ErrorTypeUnauthorized:
		return http.StatusUnauthorized
	case api.ErrorTypePaymentRequired:
		return http.StatusPaymentRequired
	case api.ErrorTypeNotFound:
		return http.StatusNotFound
	case api.ErrorTypeServiceUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// ErrorFromDomain classifies an error returned by the auth, metering, or
// storage packages. Authentication failures are checked before service
// failures so that a rejection is never reported as an outage.
func ErrorFromDomain(err error) *api.APIError {
	var apiErr *api.APIError
	switch {
	case errors.As(err, &apiErr):
		return apiErr
	case errors.Is(err, auth.ErrUnauthenticated):
		return api.NewUnauthorizedError("authentication failed")
	case errors.Is(err, auth.ErrServiceUnavailable):
		return api.NewServiceUnavailableError("identity_provider_unavailable",
			"identity provider is temporarily unavailable")
	case errors.Is(err, metering.ErrInsufficientBalance):
		return api.NewPaymentRequiredError(metering.InsufficientBalanceMessage)
	case errors.Is(err, metering.ErrMeteringUnavailable):
		return api.NewServiceUnavailableError("metering_unavailable",
			"metering service is temporarily unavailable")
	case errors.Is(err, storage.ErrInvalidRealm):
		return api.NewInvalidRequestError("realm", "invalid realm identifier")
	case errors.Is(err, storage.ErrRealmNotFound):
		return api.NewNotFoundError("realm not found")
	case errors.Is(err, storage.ErrClosed):
		return api.NewServiceUnavailableError("persistence_unavailable", "persistence is unavailable")
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return api.NewServiceUnavailableError("request_aborted", "request could not be completed")
	default:
		return api.NewServerError("internal server error")
	}
}

// WriteAPIError writes an APIError response, deriving the HTTP status code
// from the error type.
func WriteAPIError(w http.ResponseWriter, apiErr *api.APIError) {
	api.WriteError(w, apiErr, HTTPStatusFromError(apiErr))
}

// WriteError classifies err and writes the matching error response.
func WriteError(w http.ResponseWriter, err error) {
	WriteAPIError(w, ErrorFromDomain(err))
}
