// Package api defines the wire-level error types returned by the lakegate
// HTTP surface.
//
// Every rejection produced by the gate (authentication, upstream outage,
// quota denial) is serialized as an [ErrorResponse] wrapping an [APIError]
// via [WriteError]. Mapping of domain errors to API errors lives in
// pkg/transport.
package api
