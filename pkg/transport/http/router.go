package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rhuss/lakegate/pkg/api"
	"github.com/rhuss/lakegate/pkg/auth"
	"github.com/rhuss/lakegate/pkg/callctx"
	"github.com/rhuss/lakegate/pkg/config"
	"github.com/rhuss/lakegate/pkg/metering"
	"github.com/rhuss/lakegate/pkg/observability"
	"github.com/rhuss/lakegate/pkg/storage"
	"github.com/rhuss/lakegate/pkg/transport"
	"github.com/rhuss/lakegate/pkg/worker"
)

// CatalogPrefix is the path prefix proxied to the upstream catalog.
const CatalogPrefix = "/api/catalog"

// readinessTimeout bounds the persistence ping behind /readyz.
const readinessTimeout = 2 * time.Second

// RouterConfig collects the components the router wires together.
type RouterConfig struct {
	Config    *config.Config
	Store     storage.Persistence
	Provider  auth.IdentityProvider
	Augmentor *auth.Augmentor
	Gate      *metering.Gate
	Pool      *worker.Pool
	Logger    *slog.Logger
}

func (rc RouterConfig) validate() error {
	var errs []error
	if rc.Config == nil {
		errs = append(errs, errors.New("config is required"))
	}
	if rc.Store == nil {
		errs = append(errs, errors.New("store is required"))
	}
	if rc.Provider == nil {
		errs = append(errs, errors.New("identity provider is required"))
	}
	if rc.Augmentor == nil {
		errs = append(errs, errors.New("augmentor is required"))
	}
	if rc.Gate == nil {
		errs = append(errs, errors.New("metering gate is required"))
	}
	if rc.Pool == nil {
		errs = append(errs, errors.New("worker pool is required"))
	}
	return errors.Join(errs...)
}

// NewRouter builds the gateway's HTTP handler.
//
// Health, readiness, and metrics endpoints are open. Everything else runs
// through realm resolution, identity augmentation, and the metering gate
// before reaching /api/v1/whoami or the catalog proxy.
func NewRouter(rc RouterConfig) (http.Handler, error) {
	if err := rc.validate(); err != nil {
		return nil, fmt.Errorf("router: %w", err)
	}
	logger := rc.Logger
	if logger == nil {
		logger = slog.Default()
	}
	cfg := rc.Config

	var proxy http.Handler
	if cfg.Upstream.URL != "" {
		target, err := url.Parse(cfg.Upstream.URL)
		if err != nil {
			return nil, fmt.Errorf("router: parsing upstream url: %w", err)
		}
		proxy = newCatalogProxy(target, logger)
	}

	r := chi.NewRouter()
	r.Use(
		transport.RequestID(),
		middleware.RealIP,
		transport.Logging(logger),
		transport.Recovery(),
	)
	if cfg.Observability.Metrics.Enabled {
		r.Use(observability.MetricsMiddleware)
		r.Handle(cfg.Observability.Metrics.Path, promhttp.Handler())
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/readyz", readiness(rc.Store))

	r.Group(func(r chi.Router) {
		r.Use(
			transport.Realm(rc.Store, cfg),
			auth.Middleware(rc.Provider, rc.Augmentor),
			metering.Middleware(rc.Gate, rc.Pool, cfg.Metering.EnforcedPathPrefixes),
		)

		r.Get("/api/v1/whoami", whoami)
		if proxy != nil {
			r.Handle(CatalogPrefix+"/*", proxy)
		}
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		transport.WriteAPIError(w, api.NewNotFoundError("no route for "+r.URL.Path))
	})

	return r, nil
}

func readiness(store storage.Persistence) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
		defer cancel()

		if err := store.Ping(ctx); err != nil {
			slog.Warn("readiness check failed", "error", err)
			transport.WriteAPIError(w, api.NewServiceUnavailableError("persistence_unavailable", "persistence is unavailable"))
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

// WhoAmI is the response body of /api/v1/whoami.
type WhoAmI struct {
	Realm      string            `json:"realm"`
	Principal  string            `json:"principal"`
	Roles      []string          `json:"roles"`
	Attributes map[string]string `json:"attributes,omitempty"`
}

func whoami(w http.ResponseWriter, r *http.Request) {
	id := auth.IdentityFromContext(r.Context())
	cc := callctx.FromContext(r.Context())
	if id == nil || cc == nil {
		transport.WriteAPIError(w, api.NewServerError("request was not authenticated"))
		return
	}

	roles := id.Roles()
	if roles == nil {
		roles = []string{}
	}
	writeJSON(w, http.StatusOK, WhoAmI{
		Realm:      cc.RealmID(),
		Principal:  cc.MustPrincipalName(),
		Roles:      roles,
		Attributes: id.Attributes(),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
