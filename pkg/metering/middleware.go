package metering

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/rhuss/lakegate/pkg/api"
	"github.com/rhuss/lakegate/pkg/callctx"
	"github.com/rhuss/lakegate/pkg/worker"
)

// Middleware enforces the token balance of the request's principal. It
// must run after authentication: the principal is read from the call
// context, and a request without one is a server error.
//
// The check runs on pool. Requests whose path matches none of
// enforcedPrefixes skip it; an empty list enforces every path.
func Middleware(gate *Gate, pool *worker.Pool, enforcedPrefixes []string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !enforced(r.URL.Path, enforcedPrefixes) {
				next.ServeHTTP(w, r)
				return
			}

			ctx := r.Context()
			cc := callctx.FromContext(ctx)
			if cc == nil {
				slog.Error("metering without call context", "path", r.URL.Path)
				api.WriteError(w, api.NewServerError("request context not initialized"), http.StatusInternalServerError)
				return
			}
			principal, err := cc.PrincipalName()
			if err != nil {
				slog.Error("metering before authentication", "path", r.URL.Path, "error", err)
				api.WriteError(w, api.NewServerError("principal not resolved"), http.StatusInternalServerError)
				return
			}

			_, err = worker.Submit(ctx, pool, func(ctx context.Context) (struct{}, error) {
				return struct{}{}, gate.Ensure(ctx, principal)
			}).Await(ctx)

			switch {
			case err == nil:
				next.ServeHTTP(w, r)

			case errors.Is(err, ErrInsufficientBalance):
				api.WriteError(w, api.NewPaymentRequiredError(InsufficientBalanceMessage), http.StatusPaymentRequired)

			case errors.Is(err, ErrMeteringUnavailable):
				api.WriteError(w, api.NewServiceUnavailableError("metering_unavailable",
					"metering service is temporarily unavailable"), http.StatusServiceUnavailable)

			default:
				slog.Warn("balance check aborted", "principal", principal, "error", err)
				api.WriteError(w, api.NewServiceUnavailableError("metering_aborted",
					"balance check could not be completed"), http.StatusServiceUnavailable)
			}
		})
	}
}

func enforced(path string, prefixes []string) bool {
	if len(prefixes) == 0 {
		return true
	}
	for _, p := range prefixes {
		if strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}
