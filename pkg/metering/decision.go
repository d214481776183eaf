package metering

import "net/http"

// Decision is the outcome of interpreting one balance-check response.
type Decision int

const (
	// Allow means the principal has sufficient balance.
	Allow Decision = iota

	// Deny means the principal lacks balance (or is unknown to billing).
	Deny

	// RetryableError means the metering API is struggling; try again.
	RetryableError

	// FatalError means the metering API answered in a way retries cannot fix.
	FatalError
)

// String returns the metric label for the decision.
func (d Decision) String() string {
	switch d {
	case Allow:
		return "allow"
	case Deny:
		return "deny"
	case RetryableError:
		return "retryable"
	case FatalError:
		return "fatal"
	default:
		return "unknown"
	}
}

// Decide maps a metering API status code to a Decision.
// 400 is treated as a denial: billing answers it for unknown users.
func Decide(status int) Decision {
	switch {
	case status == http.StatusOK:
		return Allow
	case status == http.StatusBadRequest, status == http.StatusPaymentRequired:
		return Deny
	case status >= http.StatusInternalServerError:
		return RetryableError
	default:
		return FatalError
	}
}
