package auth

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/rhuss/lakegate/pkg/api"
	"github.com/rhuss/lakegate/pkg/callctx"
)

// Middleware gates requests on an augmented identity. It builds the raw
// identity with provider, augments it on the worker pool, and waits for
// the result before calling next. On success the identity is stored in
// the request context and its principal attached to the call context.
//
// Anonymous callers are rejected with 401; identity provider outages
// with 503.
func Middleware(provider IdentityProvider, augmentor *Augmentor) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			raw := provider.Identify(r)
			id, err := augmentor.AugmentAsync(ctx, raw).Await(ctx)
			if err != nil {
				writeAuthError(w, r, err)
				return
			}

			if id.IsAnonymous() {
				slog.Debug("rejecting anonymous request", "path", r.URL.Path, "remote_addr", r.RemoteAddr)
				api.WriteError(w, api.NewUnauthorizedError("authentication required"), http.StatusUnauthorized)
				return
			}

			if cc := callctx.FromContext(ctx); cc != nil {
				if err := cc.AttachPrincipal(id.PrincipalName()); err != nil {
					slog.Error("attaching principal to call context", "principal", id.PrincipalName(), "error", err)
					api.WriteError(w, api.NewServerError("internal authentication error"), http.StatusInternalServerError)
					return
				}
			}

			slog.Debug("authentication succeeded",
				"principal", id.PrincipalName(),
				"path", r.URL.Path,
				"remote_addr", r.RemoteAddr,
			)

			next.ServeHTTP(w, r.WithContext(SetIdentity(ctx, id)))
		})
	}
}

// writeAuthError maps an augmentation failure to a response.
func writeAuthError(w http.ResponseWriter, r *http.Request, err error) {
	var authErr *AuthenticationError
	switch {
	case errors.As(err, &authErr):
		slog.Warn("authentication failed",
			"path", r.URL.Path,
			"remote_addr", r.RemoteAddr,
			"error", err,
		)
		api.WriteError(w, api.NewUnauthorizedError("authentication failed"), http.StatusUnauthorized)

	case errors.Is(err, ErrServiceUnavailable):
		slog.Error("identity provider unavailable", "path", r.URL.Path, "error", err)
		api.WriteError(w, api.NewServiceUnavailableError("identity_provider_unavailable",
			"identity provider is temporarily unavailable"), http.StatusServiceUnavailable)

	default:
		// Cancelled while waiting for a worker, or the client went away.
		slog.Warn("authentication aborted", "path", r.URL.Path, "error", err)
		api.WriteError(w, api.NewServiceUnavailableError("authentication_aborted",
			"authentication could not be completed"), http.StatusServiceUnavailable)
	}
}
