// Package auth turns raw, transport-level identities into augmented
// identities backed by a validated Principal.
//
// An IdentityProvider builds the raw identity from a request. The
// Augmentor extracts the Credential it carries, hands it to an
// Authenticator and rebuilds the identity from the resulting Principal.
// Authenticators can be combined in a Chain: each one either decides or
// abstains (ErrAbstain), and the first decision wins.
//
// Failures are classified: *AuthenticationError (the caller is not who
// they claim, HTTP 401) and *ServiceFailureError (the identity provider
// could not be reached, HTTP 503). The Middleware performs augmentation
// on the worker pool and attaches the principal to the request's call
// context.
package auth
