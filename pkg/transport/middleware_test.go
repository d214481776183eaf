package transport

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/rhuss/lakegate/pkg/api"
	"github.com/rhuss/lakegate/pkg/callctx"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestChainAppliesMiddlewareInOrder(t *testing.T) {
	var order []string

	mw := func(name string) Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name+":before")
				next.ServeHTTP(w, r)
				order = append(order, name+":after")
			})
		}
	}

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		order = append(order, "handler")
	})

	wrapped := Chain(mw("first"), mw("second"), mw("third"))(handler)
	wrapped.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	expected := []string{
		"first:before", "second:before", "third:before",
		"handler",
		"third:after", "second:after", "first:after",
	}

	if len(order) != len(expected) {
		t.Fatalf("execution order length = %d, want %d: %v", len(order), len(expected), order)
	}
	for i, got := range order {
		if got != expected[i] {
			t.Errorf("order[%d] = %q, want %q", i, got, expected[i])
		}
	}
}

func TestRecoveryCatchesPanic(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("test panic")
	})

	rec := httptest.NewRecorder()
	Recovery()(handler).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusInternalServerError)
	}

	var resp api.ErrorResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Error.Type != api.ErrorTypeServerError {
		t.Errorf("error type = %q, want %q", resp.Error.Type, api.ErrorTypeServerError)
	}
	if strings.Contains(resp.Error.Message, "test panic") {
		t.Errorf("panic value leaked into response: %q", resp.Error.Message)
	}
}

func TestRecoveryPassesThroughNormalExecution(t *testing.T) {
	rec := httptest.NewRecorder()
	Recovery()(okHandler()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
}

func TestRequestIDGeneratesNewID(t *testing.T) {
	var capturedID string

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		capturedID = RequestIDFromContext(r.Context())
	})

	rec := httptest.NewRecorder()
	RequestID()(handler).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if capturedID == "" {
		t.Fatal("expected a generated request ID, got empty string")
	}
	if _, err := uuid.Parse(capturedID); err != nil {
		t.Errorf("request ID %q is not a UUID: %v", capturedID, err)
	}
	if got := rec.Header().Get(RequestIDHeader); got != capturedID {
		t.Errorf("response header = %q, want %q", got, capturedID)
	}
}

func TestRequestIDPropagatesExisting(t *testing.T) {
	var capturedID string

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		capturedID = RequestIDFromContext(r.Context())
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "existing-id-123")
	RequestID()(handler).ServeHTTP(httptest.NewRecorder(), req)

	if capturedID != "existing-id-123" {
		t.Errorf("request ID = %q, want %q", capturedID, "existing-id-123")
	}
}

func TestRequestIDReplacesOversizedHeader(t *testing.T) {
	var capturedID string

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		capturedID = RequestIDFromContext(r.Context())
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, strings.Repeat("a", maxRequestIDLen+1))
	RequestID()(handler).ServeHTTP(httptest.NewRecorder(), req)

	if len(capturedID) > maxRequestIDLen {
		t.Errorf("oversized request ID was kept (%d chars)", len(capturedID))
	}
}

func TestRequestIDUniqueness(t *testing.T) {
	ids := make(map[string]bool)
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ids[RequestIDFromContext(r.Context())] = true
	})

	wrapped := RequestID()(handler)
	for i := 0; i < 100; i++ {
		wrapped.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	}

	if len(ids) != 100 {
		t.Errorf("expected 100 unique IDs, got %d", len(ids))
	}
}

func TestLoggingEmitsFields(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}))

	wrapped := Chain(RequestID(), Logging(logger))(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/api/catalog/v1/config", nil)
	req.Header.Set(RequestIDHeader, "req-log-test")
	wrapped.ServeHTTP(httptest.NewRecorder(), req)

	output := buf.String()
	for _, expected := range []string{
		"request_id=req-log-test",
		"method=GET",
		"path=/api/catalog/v1/config",
		"status=200",
		"request completed",
	} {
		if !strings.Contains(output, expected) {
			t.Errorf("log output missing %q in:\n%s", expected, output)
		}
	}
}

func TestLoggingIncludesRealmAndPrincipal(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}))

	// Stands in for the realm and auth middleware further down the chain.
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cc := callctx.New(callctx.StaticRealm("acme"), nil, nil)
		publishCallContext(r.Context(), cc)
		_ = cc.AttachPrincipal("alice@example.com")
		w.WriteHeader(http.StatusNoContent)
	})

	Logging(logger)(inner).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	output := buf.String()
	for _, expected := range []string{"realm=acme", "principal=alice@example.com", "status=204"} {
		if !strings.Contains(output, expected) {
			t.Errorf("log output missing %q in:\n%s", expected, output)
		}
	}
}

func TestLoggingLevelByStatus(t *testing.T) {
	tests := []struct {
		status int
		level  string
	}{
		{http.StatusOK, "level=INFO"},
		{http.StatusPaymentRequired, "level=WARN"},
		{http.StatusServiceUnavailable, "level=ERROR"},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			var buf bytes.Buffer
			logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}))

			handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			})
			Logging(logger)(handler).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

			if !strings.Contains(buf.String(), tt.level) {
				t.Errorf("log output missing %q in:\n%s", tt.level, buf.String())
			}
		})
	}
}
