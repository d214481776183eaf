package metering

import (
	"errors"
	"net/http"
	"time"
)

// DefaultSystemPrincipal is the administrative principal that is never metered.
const DefaultSystemPrincipal = "root"

// Config holds the metering gate settings. It is a read-only snapshot;
// the gate never mutates it after construction.
type Config struct {
	// Enabled turns balance checks on. When false every check is allowed
	// without contacting the metering API.
	Enabled bool

	// APIBaseURL is the base URL of the metering API. Required when enabled.
	APIBaseURL string

	// APIKey is sent as the x-api-key header when non-empty.
	APIKey string

	// Timeout bounds each attempt (connect through response). Default: 5s.
	Timeout time.Duration

	// MaxRetries is the total number of attempts for retryable failures. Default: 3.
	MaxRetries int

	// MinimumTokensRequired is asserted as required_tokens in the request body. Default: 1.0.
	MinimumTokensRequired float64

	// SystemPrincipal is never metered. Default: "root".
	SystemPrincipal string

	// HTTPClient allows injecting a custom HTTP client (useful for testing).
	// If nil, a client with Timeout is created.
	HTTPClient *http.Client
}

// applyDefaults fills in zero-value fields.
func (c *Config) applyDefaults() {
	if c.Timeout == 0 {
		c.Timeout = 5 * time.Second
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = 3
	}
	if c.MinimumTokensRequired == 0 {
		c.MinimumTokensRequired = 1.0
	}
	if c.SystemPrincipal == "" {
		c.SystemPrincipal = DefaultSystemPrincipal
	}
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: c.Timeout}
	}
}

func (c *Config) validate() error {
	var errs []error
	if c.Enabled && c.APIBaseURL == "" {
		errs = append(errs, errors.New("metering: api base url is required when metering is enabled"))
	}
	if c.MaxRetries < 0 {
		errs = append(errs, errors.New("metering: max retries must not be negative"))
	}
	if c.Timeout < 0 {
		errs = append(errs, errors.New("metering: timeout must not be negative"))
	}
	if c.MinimumTokensRequired < 0 {
		errs = append(errs, errors.New("metering: minimum tokens required must not be negative"))
	}
	return errors.Join(errs...)
}
