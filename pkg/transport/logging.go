package transport

import (
	"context"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/rhuss/lakegate/pkg/callctx"
)

// Logging returns middleware that emits one structured log entry per
// request with method, path, status, duration, request ID, and, once
// authentication ran, realm and principal.
//
// Server errors are logged at ERROR, rejections (4xx) at WARN.
func Logging(logger *slog.Logger) Middleware {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w}

			// Realm runs further down the chain; it publishes the call
			// context into slot so it can be logged here.
			slot := new(atomic.Pointer[callctx.CallContext])
			next.ServeHTTP(rec, r.WithContext(context.WithValue(r.Context(), callContextSlotKey{}, slot)))

			status := rec.status
			if status == 0 {
				status = http.StatusOK
			}

			attrs := []slog.Attr{
				slog.String("request_id", RequestIDFromContext(r.Context())),
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", status),
				slog.Duration("duration", time.Since(start)),
			}

			if cc := slot.Load(); cc != nil {
				attrs = append(attrs, slog.String("realm", cc.RealmID()))
				if p, err := cc.PrincipalName(); err == nil {
					attrs = append(attrs, slog.String("principal", p))
				}
			}

			level := slog.LevelInfo
			switch {
			case status >= 500:
				level = slog.LevelError
			case status >= 400:
				level = slog.LevelWarn
			}
			logger.LogAttrs(r.Context(), level, "request completed", attrs...)
		})
	}
}

type callContextSlotKey struct{}

// publishCallContext makes cc visible to an enclosing Logging middleware.
func publishCallContext(ctx context.Context, cc *callctx.CallContext) {
	if slot, ok := ctx.Value(callContextSlotKey{}).(*atomic.Pointer[callctx.CallContext]); ok {
		slot.Store(cc)
	}
}
