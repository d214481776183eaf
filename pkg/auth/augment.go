package auth

import (
	"context"
	"errors"
	"log/slog"
	"maps"

	"github.com/rhuss/lakegate/pkg/debug"
	"github.com/rhuss/lakegate/pkg/observability"
	"github.com/rhuss/lakegate/pkg/worker"
)

// Augmentor converts raw identities into augmented ones.
type Augmentor struct {
	authn Authenticator
	pool  *worker.Pool
}

// NewAugmentor creates an Augmentor that validates credentials with authn
// and runs asynchronous augmentation on pool.
func NewAugmentor(authn Authenticator, pool *worker.Pool) *Augmentor {
	return &Augmentor{authn: authn, pool: pool}
}

// Augment validates the credential carried by id and returns the
// augmented identity. Anonymous identities are returned as is without
// consulting the authenticator. id is never modified.
//
// Errors are either a *ServiceFailureError returned by the authenticator,
// passed through unchanged, or an *AuthenticationError.
func (a *Augmentor) Augment(ctx context.Context, id *Identity) (*Identity, error) {
	if id == nil {
		observability.AugmentationsTotal.WithLabelValues("unauthenticated").Inc()
		return nil, &AuthenticationError{Message: "no identity"}
	}
	if id.IsAnonymous() {
		observability.AugmentationsTotal.WithLabelValues("anonymous").Inc()
		return id, nil
	}

	cred, ok := id.Credential()
	if !ok {
		observability.AugmentationsTotal.WithLabelValues("unauthenticated").Inc()
		return nil, &AuthenticationError{Message: "no credential found in identity"}
	}

	principal, err := a.authn.Authenticate(ctx, cred)
	if err != nil {
		if errors.Is(err, ErrServiceUnavailable) {
			slog.Warn("identity provider unavailable", "error", err)
			observability.AugmentationsTotal.WithLabelValues("service_failure").Inc()
			return nil, err
		}
		debug.Log("auth", "credential rejected", "hint", cred.PrincipalName, "error", err)
		observability.AugmentationsTotal.WithLabelValues("unauthenticated").Inc()
		return nil, &AuthenticationError{Message: "unable to authenticate", Err: err}
	}
	if principal == nil || principal.Name == "" {
		observability.AugmentationsTotal.WithLabelValues("unauthenticated").Inc()
		return nil, &AuthenticationError{Message: "authenticator returned no principal"}
	}

	attrs := id.Attributes()
	if attrs == nil {
		attrs = make(map[string]string, len(principal.Properties)+1)
	}
	maps.Copy(attrs, principal.Properties)
	attrs[PrincipalNameAttribute] = principal.Name

	augmented := NewIdentity(IdentityParams{
		Subject:     principal.Name,
		Roles:       principal.Roles,
		Attributes:  attrs,
		Credentials: id.credentials,
	})

	debug.Log("auth", "identity augmented", "principal", principal.Name, "roles", principal.Roles)
	observability.AugmentationsTotal.WithLabelValues("augmented").Inc()
	return augmented, nil
}

// AugmentAsync runs Augment on the worker pool. The caller must await
// the future before using the principal.
func (a *Augmentor) AugmentAsync(ctx context.Context, id *Identity) *worker.Future[*Identity] {
	return worker.Submit(ctx, a.pool, func(ctx context.Context) (*Identity, error) {
		return a.Augment(ctx, id)
	})
}
