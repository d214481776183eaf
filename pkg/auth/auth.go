package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// Credential is the token a caller presented, plus an optional principal
// name hint taken from it before validation.
type Credential struct {
	PrincipalName string
	Token         string
}

// Principal is a caller validated by an Authenticator.
type Principal struct {
	// Name is the unique principal name (required, non-empty). It is
	// also the key used for balance checks.
	Name string

	// Roles lists the roles granted to the principal.
	Roles []string

	// Properties carries authenticator-specific data such as the tenant.
	Properties map[string]string
}

// Authenticator validates a credential.
//
// Implementations return ErrAbstain when they cannot handle the credential
// type, a *ServiceFailureError when their backing identity provider is
// unreachable, and any other error when the credential is invalid.
type Authenticator interface {
	Authenticate(ctx context.Context, cred Credential) (*Principal, error)
}

// IdentityProvider builds the raw identity for a request. It does not
// validate credentials; a request without any is anonymous.
type IdentityProvider interface {
	Identify(r *http.Request) *Identity
}

// Sentinel errors.
var (
	// ErrUnauthenticated matches every *AuthenticationError.
	ErrUnauthenticated = errors.New("authentication required")

	// ErrServiceUnavailable matches every *ServiceFailureError.
	ErrServiceUnavailable = errors.New("identity provider unavailable")

	// ErrAbstain is returned by an Authenticator that cannot handle a credential.
	ErrAbstain = errors.New("authenticator abstained")
)

// AuthenticationError reports that a credential is missing or invalid.
type AuthenticationError struct {
	Message string
	Err     error
}

func (e *AuthenticationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AuthenticationError) Unwrap() error { return e.Err }

// Is reports whether target is ErrUnauthenticated.
func (e *AuthenticationError) Is(target error) bool { return target == ErrUnauthenticated }

// ServiceFailureError reports that the identity provider behind an
// Authenticator could not be consulted. It says nothing about the
// credential itself.
type ServiceFailureError struct {
	Message string
	Err     error
}

func (e *ServiceFailureError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ServiceFailureError) Unwrap() error { return e.Err }

// Is reports whether target is ErrServiceUnavailable.
func (e *ServiceFailureError) Is(target error) bool { return target == ErrServiceUnavailable }

// Chain evaluates authenticators in order. The first one that does not
// abstain decides; if all abstain the credential is rejected.
type Chain struct {
	Authenticators []Authenticator
}

// Authenticate runs the chain.
func (c *Chain) Authenticate(ctx context.Context, cred Credential) (*Principal, error) {
	for _, authn := range c.Authenticators {
		p, err := authn.Authenticate(ctx, cred)
		if errors.Is(err, ErrAbstain) {
			continue
		}
		return p, err
	}
	return nil, &AuthenticationError{Message: "no authenticator accepted the credential"}
}
