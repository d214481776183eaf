package metering

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rhuss/lakegate/pkg/debug"
	"github.com/rhuss/lakegate/pkg/observability"
)

// EnsureSufficientPath is the metering API endpoint, relative to APIBaseURL.
const EnsureSufficientPath = "/api/v1/integration/metering/ensure_sufficient"

// Gate checks principal balances against the metering API.
// A Gate holds no per-principal state and is safe for concurrent use.
type Gate struct {
	cfg      Config
	endpoint string
	sleep    SleepFunc
}

// Option configures a Gate.
type Option func(*Gate)

// WithSleep replaces the backoff wait. Tests use it to observe delays
// without sleeping.
func WithSleep(fn SleepFunc) Option {
	return func(g *Gate) { g.sleep = fn }
}

// New creates a Gate from cfg.
func New(cfg Config, opts ...Option) (*Gate, error) {
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	g := &Gate{
		cfg:      cfg,
		endpoint: strings.TrimRight(cfg.APIBaseURL, "/") + EnsureSufficientPath,
		sleep:    sleepContext,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// Enabled reports whether balance checks are performed at all.
func (g *Gate) Enabled() bool { return g.cfg.Enabled }

// Ensure returns nil when the principal may proceed, ErrInsufficientBalance
// on a denial, or a *ServiceError when no verdict could be obtained.
func (g *Gate) Ensure(ctx context.Context, principal string) error {
	ok, err := g.CheckBalance(ctx, principal)
	if err != nil {
		return err
	}
	if !ok {
		return ErrInsufficientBalance
	}
	return nil
}

// CheckBalance reports whether principal holds at least the configured
// minimum token balance. It returns false only on an explicit denial and
// a *ServiceError when the metering API could not be consulted.
//
// Cancelling ctx during a backoff wait aborts with a *ServiceError that
// wraps ctx.Err().
func (g *Gate) CheckBalance(ctx context.Context, principal string) (bool, error) {
	if !g.cfg.Enabled {
		slog.Debug("metering disabled, allowing request", "principal", principal)
		observability.MeteringChecksTotal.WithLabelValues("disabled").Inc()
		return true, nil
	}

	if principal == g.cfg.SystemPrincipal {
		slog.Debug("skipping metering for system principal", "principal", principal)
		observability.MeteringChecksTotal.WithLabelValues("system").Inc()
		return true, nil
	}

	var lastErr error
	for attempt := 1; attempt <= g.cfg.MaxRetries; attempt++ {
		if attempt > 1 {
			delay := Backoff(attempt - 1)
			debug.Log("metering", "backing off", "principal", principal, "attempt", attempt, "delay", delay)
			if err := g.sleep(ctx, delay); err != nil {
				observability.MeteringChecksTotal.WithLabelValues("error").Inc()
				return false, &ServiceError{
					Principal: principal,
					Attempts:  attempt - 1,
					Message:   "interrupted while retrying balance check",
					Err:       err,
				}
			}
			observability.MeteringBackoffSeconds.Add(delay.Seconds())
		}

		decision, err := g.attempt(ctx, principal)
		observability.MeteringAttemptsTotal.WithLabelValues(decision.String()).Inc()

		switch decision {
		case Allow:
			slog.Info("balance check", "principal", principal, "result", "sufficient")
			observability.MeteringChecksTotal.WithLabelValues("allow").Inc()
			return true, nil

		case Deny:
			slog.Info("balance check", "principal", principal, "result", "insufficient")
			observability.MeteringChecksTotal.WithLabelValues("deny").Inc()
			return false, nil

		case FatalError:
			if ctx.Err() != nil {
				slog.Warn("balance check aborted", "principal", principal, "error", err)
			} else {
				slog.Error("unexpected error checking balance", "principal", principal, "error", err)
			}
			observability.MeteringChecksTotal.WithLabelValues("error").Inc()
			return false, &ServiceError{
				Principal: principal,
				Attempts:  attempt,
				Message:   "failed to check balance",
				Err:       err,
			}
		}

		lastErr = err
		slog.Warn("failed to check balance",
			"principal", principal,
			"attempt", attempt,
			"max_attempts", g.cfg.MaxRetries,
			"error", err,
		)
	}

	observability.MeteringChecksTotal.WithLabelValues("error").Inc()
	return false, &ServiceError{
		Principal: principal,
		Attempts:  g.cfg.MaxRetries,
		Message:   fmt.Sprintf("failed to check balance for principal %q after %d attempts", principal, g.cfg.MaxRetries),
		Err:       lastErr,
	}
}

// ensureSufficientRequest is the request body of the ensure_sufficient call.
type ensureSufficientRequest struct {
	UserEmail      string      `json:"user_email"`
	RequiredTokens json.Number `json:"required_tokens"`
}

// attempt performs one call and classifies it. The returned error is
// non-nil for RetryableError and FatalError.
func (g *Gate) attempt(ctx context.Context, principal string) (Decision, error) {
	body, err := json.Marshal(ensureSufficientRequest{
		UserEmail:      principal,
		RequiredTokens: decimal(g.cfg.MinimumTokensRequired),
	})
	if err != nil {
		return FatalError, fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.endpoint, bytes.NewReader(body))
	if err != nil {
		return FatalError, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if g.cfg.APIKey != "" {
		req.Header.Set("x-api-key", g.cfg.APIKey)
	}

	debug.Trace("metering", "ensure_sufficient request", "url", g.endpoint, "body", string(body))

	start := time.Now()
	resp, err := g.cfg.HTTPClient.Do(req)
	observability.MeteringLatency.Observe(time.Since(start).Seconds())
	if err != nil {
		// The caller gave up; retrying cannot succeed.
		if ctx.Err() != nil {
			return FatalError, fmt.Errorf("calling metering API: %w", ctx.Err())
		}
		return RetryableError, fmt.Errorf("calling metering API: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	decision := Decide(resp.StatusCode)
	debug.Log("metering", "ensure_sufficient response", "principal", principal, "status", resp.StatusCode, "decision", decision)

	switch decision {
	case Allow, Deny:
		return decision, nil
	default:
		return decision, &StatusError{StatusCode: resp.StatusCode}
	}
}

// decimal renders v as a JSON decimal that always carries a fractional
// part, e.g. 1 -> 1.0, 2.5 -> 2.5.
func decimal(v float64) json.Number {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return json.Number(s)
}
