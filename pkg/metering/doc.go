// Package metering enforces a minimum token balance against an external
// billing API before a request is allowed to reach the catalog.
//
// A [Gate] issues one POST to
// {api_base_url}/api/v1/integration/metering/ensure_sufficient per attempt
// and interprets the status code:
//
//	200        allow, stop
//	400, 402   deny, stop
//	>= 500     retryable; back off min(2^(n-1)s, 5s) and try again
//	other      fatal; fail immediately with a ServiceError
//
// Transport failures are retryable. When every attempt fails the gate
// returns a *ServiceError wrapping the last cause; it never fails open.
// Verdicts are not cached: every call is authoritative.
//
// The gate is bypassed entirely when metering is disabled or when the
// principal is the reserved system principal.
package metering
