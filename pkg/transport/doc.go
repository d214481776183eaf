// Package transport provides the HTTP middleware chain that runs in
// front of the gate and the mapping of domain errors to API errors.
//
// # Middleware
//
// Middleware has the standard func(http.Handler) http.Handler shape and
// composes with Chain. Built-in middleware provides panic recovery,
// request ID assignment (X-Request-ID), structured access logging via
// log/slog, and realm resolution, which creates the request's
// callctx.CallContext.
//
// # Errors
//
// ErrorFromDomain classifies the errors produced by pkg/auth,
// pkg/metering and pkg/storage into an *api.APIError and HTTP status:
// authentication failures are 401, quota denials 402, unknown realms
// 404, and outages of the identity provider or metering API 503.
package transport
