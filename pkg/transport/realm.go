package transport

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/rhuss/lakegate/pkg/api"
	"github.com/rhuss/lakegate/pkg/callctx"
	"github.com/rhuss/lakegate/pkg/config"
	"github.com/rhuss/lakegate/pkg/debug"
	"github.com/rhuss/lakegate/pkg/storage"
)

// Realm returns middleware that resolves the realm of each request and
// stores a fresh callctx.CallContext in the request context. The realm is
// taken from cfg.Realm.Header, falling back to cfg.Realm.Default, and must
// be registered in store.
//
// The principal slot of the call context is left empty; the
// authentication middleware attaches it after augmentation.
func Realm(store storage.Persistence, cfg *config.Config) Middleware {
	header := cfg.Realm.Header
	fallback := cfg.Realm.Default

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			realm := r.Header.Get(header)
			if realm == "" {
				realm = fallback
			}

			if err := storage.ValidateRealmID(realm); err != nil {
				WriteError(w, err)
				return
			}

			ok, err := store.RealmExists(r.Context(), realm)
			if err != nil {
				slog.Error("realm lookup failed", "realm", realm, "error", err)
				WriteAPIError(w, api.NewServiceUnavailableError("persistence_unavailable", "persistence is unavailable"))
				return
			}
			if !ok {
				debug.Log("transport", "unknown realm", "realm", realm)
				WriteError(w, fmt.Errorf("%w: %q", storage.ErrRealmNotFound, realm))
				return
			}

			cc := callctx.New(callctx.StaticRealm(realm), store, cfg)
			publishCallContext(r.Context(), cc)
			next.ServeHTTP(w, r.WithContext(callctx.WithCallContext(r.Context(), cc)))
		})
	}
}
