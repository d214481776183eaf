package http

import (
	"encoding/json"
	"io"
	gohttp "net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/rhuss/lakegate/pkg/api"
	"github.com/rhuss/lakegate/pkg/auth"
	"github.com/rhuss/lakegate/pkg/auth/apikey"
	"github.com/rhuss/lakegate/pkg/auth/bearer"
	"github.com/rhuss/lakegate/pkg/config"
	"github.com/rhuss/lakegate/pkg/metering"
	"github.com/rhuss/lakegate/pkg/storage/memory"
	"github.com/rhuss/lakegate/pkg/worker"
)

// gateway bundles a router with fake metering and catalog backends.
type gateway struct {
	handler        gohttp.Handler
	meteringCalls  *atomic.Int32
	upstreamCalls  *atomic.Int32

	mu             sync.Mutex
	upstreamHeader gohttp.Header
}

func (gw *gateway) lastUpstreamHeader() gohttp.Header {
	gw.mu.Lock()
	defer gw.mu.Unlock()
	return gw.upstreamHeader
}

func newGateway(t *testing.T, mutate func(*config.Config)) *gateway {
	t.Helper()
	gw := &gateway{meteringCalls: new(atomic.Int32), upstreamCalls: new(atomic.Int32)}

	// Balances: alice has tokens, bob has none, carol hits an outage.
	meteringAPI := httptest.NewServer(gohttp.HandlerFunc(func(w gohttp.ResponseWriter, r *gohttp.Request) {
		gw.meteringCalls.Add(1)
		var body struct {
			UserEmail string `json:"user_email"`
		}
		json.NewDecoder(r.Body).Decode(&body)
		switch body.UserEmail {
		case "alice@example.com":
			w.WriteHeader(gohttp.StatusOK)
		case "bob@example.com":
			w.WriteHeader(gohttp.StatusPaymentRequired)
		default:
			w.WriteHeader(gohttp.StatusInternalServerError)
		}
	}))
	t.Cleanup(meteringAPI.Close)

	catalog := httptest.NewServer(gohttp.HandlerFunc(func(w gohttp.ResponseWriter, r *gohttp.Request) {
		gw.upstreamCalls.Add(1)
		gw.mu.Lock()
		gw.upstreamHeader = r.Header.Clone()
		gw.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"path":"`+r.URL.Path+`"}`)
	}))
	t.Cleanup(catalog.Close)

	cfg := config.Defaults()
	cfg.Upstream.URL = catalog.URL
	cfg.Metering.Enabled = true
	cfg.Metering.APIBaseURL = meteringAPI.URL
	cfg.Metering.MaxRetries = 1
	if mutate != nil {
		mutate(&cfg)
	}

	store, err := memory.New(cfg.Realm.Default, "acme")
	if err != nil {
		t.Fatalf("memory.New: %v", err)
	}

	pool := worker.NewPool("test", 4)
	authn := apikey.New([]apikey.RawKeyEntry{
		{Key: "alice-key", Principal: auth.Principal{Name: "alice@example.com", Roles: []string{"analyst"}}},
		{Key: "bob-key", Principal: auth.Principal{Name: "bob@example.com"}},
		{Key: "carol-key", Principal: auth.Principal{Name: "carol@example.com"}},
		{Key: "root-key", Principal: auth.Principal{Name: "root"}},
	})

	gate, err := metering.New(metering.Config{
		Enabled:    cfg.Metering.Enabled,
		APIBaseURL: cfg.Metering.APIBaseURL,
		MaxRetries: cfg.Metering.MaxRetries,
	})
	if err != nil {
		t.Fatalf("metering.New: %v", err)
	}

	handler, err := NewRouter(RouterConfig{
		Config:    &cfg,
		Store:     store,
		Provider:  bearer.Provider{},
		Augmentor: auth.NewAugmentor(authn, pool),
		Gate:      gate,
		Pool:      pool,
	})
	if err != nil {
		t.Fatalf("NewRouter: %v", err)
	}
	gw.handler = handler
	return gw
}

func (gw *gateway) do(method, path, key string, header ...string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if key != "" {
		req.Header.Set("Authorization", "Bearer "+key)
	}
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	rec := httptest.NewRecorder()
	gw.handler.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) *api.APIError {
	t.Helper()
	var resp api.ErrorResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decoding error body: %v", err)
	}
	return resp.Error
}

func TestRouterOpenEndpoints(t *testing.T) {
	gw := newGateway(t, nil)

	for _, path := range []string{"/healthz", "/readyz", "/metrics"} {
		rec := gw.do(gohttp.MethodGet, path, "")
		if rec.Code != gohttp.StatusOK {
			t.Errorf("GET %s = %d, want %d", path, rec.Code, gohttp.StatusOK)
		}
	}
	if gw.meteringCalls.Load() != 0 {
		t.Errorf("open endpoints called metering %d times", gw.meteringCalls.Load())
	}
}

func TestRouterWhoAmI(t *testing.T) {
	gw := newGateway(t, nil)

	rec := gw.do(gohttp.MethodGet, "/api/v1/whoami", "alice-key", "Polaris-Realm", "acme")
	if rec.Code != gohttp.StatusOK {
		t.Fatalf("status = %d, want %d: %s", rec.Code, gohttp.StatusOK, rec.Body.String())
	}

	var got WhoAmI
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Realm != "acme" {
		t.Errorf("realm = %q, want %q", got.Realm, "acme")
	}
	if got.Principal != "alice@example.com" {
		t.Errorf("principal = %q, want %q", got.Principal, "alice@example.com")
	}
	if len(got.Roles) != 1 || got.Roles[0] != "analyst" {
		t.Errorf("roles = %v, want [analyst]", got.Roles)
	}
	if got.Attributes[auth.PrincipalNameAttribute] != "alice@example.com" {
		t.Errorf("attribute %s = %q", auth.PrincipalNameAttribute, got.Attributes[auth.PrincipalNameAttribute])
	}
}

func TestRouterGateOutcomes(t *testing.T) {
	tests := []struct {
		name         string
		key          string
		wantStatus   int
		wantType     api.ErrorType
		wantMetering int32
	}{
		{"no credentials", "", gohttp.StatusUnauthorized, api.ErrorTypeUnauthorized, 0},
		{"unknown key", "nope", gohttp.StatusUnauthorized, api.ErrorTypeUnauthorized, 0},
		{"insufficient balance", "bob-key", gohttp.StatusPaymentRequired, api.ErrorTypePaymentRequired, 1},
		{"metering outage", "carol-key", gohttp.StatusServiceUnavailable, api.ErrorTypeServiceUnavailable, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gw := newGateway(t, nil)

			rec := gw.do(gohttp.MethodGet, "/api/catalog/v1/config", tt.key)
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d: %s", rec.Code, tt.wantStatus, rec.Body.String())
			}
			if got := decodeError(t, rec); got.Type != tt.wantType {
				t.Errorf("error type = %q, want %q", got.Type, tt.wantType)
			}
			if got := gw.meteringCalls.Load(); got != tt.wantMetering {
				t.Errorf("metering calls = %d, want %d", got, tt.wantMetering)
			}
			if gw.upstreamCalls.Load() != 0 {
				t.Error("rejected request reached the catalog")
			}
		})
	}
}

func TestRouterQuotaMessage(t *testing.T) {
	gw := newGateway(t, nil)

	rec := gw.do(gohttp.MethodGet, "/api/catalog/v1/config", "bob-key")
	if got := decodeError(t, rec); got.Message != metering.InsufficientBalanceMessage {
		t.Errorf("message = %q, want %q", got.Message, metering.InsufficientBalanceMessage)
	}
}

func TestRouterProxiesAllowedRequests(t *testing.T) {
	gw := newGateway(t, nil)

	rec := gw.do(gohttp.MethodGet, "/api/catalog/v1/acme/namespaces", "alice-key",
		PrincipalHeader, "spoofed@example.com")
	if rec.Code != gohttp.StatusOK {
		t.Fatalf("status = %d, want %d: %s", rec.Code, gohttp.StatusOK, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "/api/catalog/v1/acme/namespaces") {
		t.Errorf("upstream saw unexpected path: %s", rec.Body.String())
	}
	if got := gw.lastUpstreamHeader().Get(PrincipalHeader); got != "alice@example.com" {
		t.Errorf("%s = %q, want %q", PrincipalHeader, got, "alice@example.com")
	}
}

func TestRouterSystemPrincipalBypassesMetering(t *testing.T) {
	gw := newGateway(t, nil)

	rec := gw.do(gohttp.MethodGet, "/api/catalog/v1/config", "root-key")
	if rec.Code != gohttp.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, gohttp.StatusOK)
	}
	if gw.meteringCalls.Load() != 0 {
		t.Errorf("system principal was metered %d times", gw.meteringCalls.Load())
	}
}

func TestRouterUnknownRealm(t *testing.T) {
	gw := newGateway(t, nil)

	rec := gw.do(gohttp.MethodGet, "/api/v1/whoami", "alice-key", "Polaris-Realm", "globex")
	if rec.Code != gohttp.StatusNotFound {
		t.Fatalf("status = %d, want %d", rec.Code, gohttp.StatusNotFound)
	}
	if gw.meteringCalls.Load() != 0 {
		t.Error("metering ran for an unknown realm")
	}
}

func TestRouterEnforcedPrefixes(t *testing.T) {
	gw := newGateway(t, func(cfg *config.Config) {
		cfg.Metering.EnforcedPathPrefixes = []string{"/api/catalog/v1/"}
	})

	// bob has no tokens but whoami is outside the enforced prefixes.
	rec := gw.do(gohttp.MethodGet, "/api/v1/whoami", "bob-key")
	if rec.Code != gohttp.StatusOK {
		t.Fatalf("whoami status = %d, want %d", rec.Code, gohttp.StatusOK)
	}

	rec = gw.do(gohttp.MethodGet, "/api/catalog/v1/config", "bob-key")
	if rec.Code != gohttp.StatusPaymentRequired {
		t.Fatalf("catalog status = %d, want %d", rec.Code, gohttp.StatusPaymentRequired)
	}
}

func TestRouterWithoutUpstream(t *testing.T) {
	gw := newGateway(t, func(cfg *config.Config) {
		cfg.Upstream.URL = ""
	})

	rec := gw.do(gohttp.MethodGet, "/api/catalog/v1/config", "alice-key")
	if rec.Code != gohttp.StatusNotFound {
		t.Errorf("status = %d, want %d", rec.Code, gohttp.StatusNotFound)
	}
}

func TestRouterUpstreamDown(t *testing.T) {
	gw := newGateway(t, func(cfg *config.Config) {
		cfg.Upstream.URL = "http://127.0.0.1:1"
	})

	rec := gw.do(gohttp.MethodGet, "/api/catalog/v1/config", "alice-key")
	if rec.Code != gohttp.StatusBadGateway {
		t.Errorf("status = %d, want %d", rec.Code, gohttp.StatusBadGateway)
	}
}

func TestNewRouterValidation(t *testing.T) {
	_, err := NewRouter(RouterConfig{})
	if err == nil {
		t.Fatal("expected error for empty router config")
	}
	for _, want := range []string{"config", "store", "identity provider", "augmentor", "metering gate", "worker pool"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q does not mention %q", err, want)
		}
	}
}
