// Package noop provides an authenticator that accepts every credential.
// It is meant for local development only.
package noop

import (
	"context"

	"github.com/rhuss/lakegate/pkg/auth"
)

// Authenticator accepts any non-empty token. The principal is the
// credential's name hint, or Principal when there is none.
type Authenticator struct {
	Principal string
	Roles     []string
}

// Ensure Authenticator implements auth.Authenticator at compile time.
var _ auth.Authenticator = (*Authenticator)(nil)

func (a *Authenticator) Authenticate(_ context.Context, cred auth.Credential) (*auth.Principal, error) {
	if cred.Token == "" {
		return nil, auth.ErrUnauthenticated
	}
	name := cred.PrincipalName
	if name == "" {
		name = a.Principal
	}
	return &auth.Principal{Name: name, Roles: append([]string(nil), a.Roles...)}, nil
}
