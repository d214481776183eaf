// Package http serves the gateway: a chi router with open health,
// readiness, and metrics endpoints, and a gated group (realm resolution,
// identity augmentation, metering) in front of /api/v1/whoami and the
// reverse proxy to the catalog.
package http
