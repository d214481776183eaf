package http

import (
	"log/slog"
	"net/http"
	"net/http/httputil"
	"net/url"

	"github.com/rhuss/lakegate/pkg/api"
	"github.com/rhuss/lakegate/pkg/callctx"
	"github.com/rhuss/lakegate/pkg/transport"
)

// PrincipalHeader carries the augmented principal name to the catalog.
// Any client-supplied value is replaced.
const PrincipalHeader = "X-Lakegate-Principal"

// newCatalogProxy forwards gated requests to the catalog at target. The
// request path is kept as is; the realm header passes through unchanged.
func newCatalogProxy(target *url.URL, logger *slog.Logger) http.Handler {
	return &httputil.ReverseProxy{
		Rewrite: func(pr *httputil.ProxyRequest) {
			pr.SetURL(target)
			pr.Out.Host = target.Host
			pr.SetXForwarded()

			pr.Out.Header.Del(PrincipalHeader)
			if cc := callctx.FromContext(pr.In.Context()); cc != nil {
				if name, err := cc.PrincipalName(); err == nil {
					pr.Out.Header.Set(PrincipalHeader, name)
				}
			}
		},
		// Stream catalog responses (e.g. large scan plans) without buffering.
		FlushInterval: -1,
		ErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			logger.Error("catalog upstream error",
				"request_id", transport.RequestIDFromContext(r.Context()),
				"path", r.URL.Path,
				"error", err,
			)
			api.WriteError(w, api.NewServiceUnavailableError("upstream_unavailable",
				"catalog service is unavailable"), http.StatusBadGateway)
		},
	}
}
