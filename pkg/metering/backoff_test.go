package metering

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBackoff(t *testing.T) {
	tests := []struct {
		failures int
		want     time.Duration
	}{
		{0, 0},
		{1, time.Second},
		{2, 2 * time.Second},
		{3, 4 * time.Second},
		{4, 5 * time.Second},
		{5, 5 * time.Second},
		{40, 5 * time.Second},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Backoff(tt.failures), "Backoff(%d)", tt.failures)
	}
}

func TestSleepContext(t *testing.T) {
	assert.NoError(t, sleepContext(context.Background(), time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, sleepContext(ctx, time.Hour), context.Canceled)
}

func TestDecide(t *testing.T) {
	tests := []struct {
		status int
		want   Decision
	}{
		{http.StatusOK, Allow},
		{http.StatusBadRequest, Deny},
		{http.StatusPaymentRequired, Deny},
		{http.StatusInternalServerError, RetryableError},
		{http.StatusBadGateway, RetryableError},
		{http.StatusServiceUnavailable, RetryableError},
		{599, RetryableError},
		{http.StatusCreated, FatalError},
		{http.StatusNoContent, FatalError},
		{http.StatusMovedPermanently, FatalError},
		{http.StatusUnauthorized, FatalError},
		{http.StatusForbidden, FatalError},
		{http.StatusNotFound, FatalError},
		{http.StatusTooManyRequests, FatalError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Decide(tt.status), "Decide(%d)", tt.status)
	}
}

func TestDecisionString(t *testing.T) {
	assert.Equal(t, "allow", Allow.String())
	assert.Equal(t, "deny", Deny.String())
	assert.Equal(t, "retryable", RetryableError.String())
	assert.Equal(t, "fatal", FatalError.String())
	assert.Equal(t, "unknown", Decision(42).String())
}

func TestDecimal(t *testing.T) {
	assert.Equal(t, "1.0", string(decimal(1)))
	assert.Equal(t, "2.5", string(decimal(2.5)))
	assert.Equal(t, "0.001", string(decimal(0.001)))
	assert.Equal(t, "100.0", string(decimal(100)))
}
