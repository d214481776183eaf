package metering

import (
	"errors"
	"fmt"
)

// InsufficientBalanceMessage is the user-facing text for a quota denial.
const InsufficientBalanceMessage = "Insufficient tokens. Please purchase more tokens to access data."

var (
	// ErrInsufficientBalance is returned by Gate.Ensure when the metering
	// API denies the principal.
	ErrInsufficientBalance = errors.New("insufficient token balance")

	// ErrMeteringUnavailable matches every *ServiceError via errors.Is.
	ErrMeteringUnavailable = errors.New("metering service unavailable")
)

// ServiceError reports that the metering API could not produce a verdict:
// retries were exhausted, it answered with an unexpected status, or the
// caller's context ended while waiting to retry.
type ServiceError struct {
	Principal string
	Attempts  int
	Message   string
	Err       error
}

func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the underlying cause.
func (e *ServiceError) Unwrap() error { return e.Err }

// Is reports whether target is ErrMeteringUnavailable.
func (e *ServiceError) Is(target error) bool { return target == ErrMeteringUnavailable }

// StatusError records a non-success status returned by the metering API.
type StatusError struct {
	StatusCode int
}

func (e *StatusError) Error() string {
	if e.StatusCode >= 500 {
		return fmt.Sprintf("metering service API returned server error: %d", e.StatusCode)
	}
	return fmt.Sprintf("metering service API returned unexpected status: %d", e.StatusCode)
}
