package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Validate checks the configuration for required fields and valid values.
// Returns an error with a descriptive field path on failure.
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Port <= 0 {
		errs = append(errs, fmt.Errorf("server.port must be > 0, got %d", c.Server.Port))
	}

	if c.Upstream.URL != "" {
		if err := validateURL(c.Upstream.URL); err != nil {
			errs = append(errs, fmt.Errorf("upstream.url: %w", err))
		}
	}

	if c.Realm.Header == "" {
		errs = append(errs, fmt.Errorf("realm.header is required"))
	}
	if c.Realm.Default == "" {
		errs = append(errs, fmt.Errorf("realm.default is required"))
	}

	switch c.Auth.Type {
	case "none", "apikey", "jwt", "chain":
		// valid
	default:
		errs = append(errs, fmt.Errorf("auth.type must be \"none\", \"apikey\", \"jwt\", or \"chain\", got %q", c.Auth.Type))
	}
	if (c.Auth.Type == "jwt" || c.Auth.Type == "chain") && c.Auth.JWT.JWKSURL == "" {
		errs = append(errs, fmt.Errorf("auth.jwt.jwks_url is required when auth.type is %q", c.Auth.Type))
	}
	for i, k := range c.Auth.APIKeys {
		if k.Key == "" {
			errs = append(errs, fmt.Errorf("auth.api_keys[%d].key or key_file is required", i))
		}
		if k.Principal == "" {
			errs = append(errs, fmt.Errorf("auth.api_keys[%d].principal is required", i))
		}
	}

	if c.Metering.Enabled {
		if c.Metering.APIBaseURL == "" {
			errs = append(errs, fmt.Errorf("metering.api_base_url is required when metering is enabled"))
		} else if err := validateURL(c.Metering.APIBaseURL); err != nil {
			errs = append(errs, fmt.Errorf("metering.api_base_url: %w", err))
		}
	}
	if c.Metering.TimeoutMS < 0 {
		errs = append(errs, fmt.Errorf("metering.timeout_ms must be >= 0, got %d", c.Metering.TimeoutMS))
	}
	if c.Metering.MaxRetries < 0 {
		errs = append(errs, fmt.Errorf("metering.max_retries must be >= 0, got %d", c.Metering.MaxRetries))
	}
	if c.Metering.MinimumTokensRequired < 0 {
		errs = append(errs, fmt.Errorf("metering.minimum_tokens_required must be >= 0, got %v", c.Metering.MinimumTokensRequired))
	}
	for i, p := range c.Metering.EnforcedPathPrefixes {
		if !strings.HasPrefix(p, "/") {
			errs = append(errs, fmt.Errorf("metering.enforced_path_prefixes[%d] must start with \"/\", got %q", i, p))
		}
	}

	switch c.Storage.Type {
	case "memory", "postgres":
		// valid
	default:
		errs = append(errs, fmt.Errorf("storage.type must be \"memory\" or \"postgres\", got %q", c.Storage.Type))
	}
	if c.Storage.Type == "postgres" && c.Storage.Postgres.DSN == "" {
		errs = append(errs, fmt.Errorf("storage.postgres.dsn or storage.postgres.dsn_file is required when storage.type is \"postgres\""))
	}

	if c.Workers.Size <= 0 {
		errs = append(errs, fmt.Errorf("workers.size must be > 0, got %d", c.Workers.Size))
	}

	switch strings.ToLower(c.Logging.Format) {
	case "text", "json":
		// valid
	default:
		errs = append(errs, fmt.Errorf("logging.format must be \"text\" or \"json\", got %q", c.Logging.Format))
	}

	return errors.Join(errs...)
}

func validateURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("scheme must be http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("host is required")
	}
	return nil
}
