package auth

import (
	"maps"
	"slices"
)

// PrincipalNameAttribute is the attribute an augmented identity carries
// with the validated principal name.
const PrincipalNameAttribute = "catalog.principal.name"

// Identity is a caller identity, either raw (as built from the request)
// or augmented (rebuilt from a validated Principal). It is immutable:
// every accessor returns a copy.
type Identity struct {
	anonymous   bool
	subject     string
	roles       []string
	attributes  map[string]string
	credentials []any
}

// IdentityParams describes an identity for NewIdentity.
type IdentityParams struct {
	Anonymous   bool
	Subject     string
	Roles       []string
	Attributes  map[string]string
	Credentials []any
}

// NewIdentity creates an identity, copying every collection in p.
func NewIdentity(p IdentityParams) *Identity {
	return &Identity{
		anonymous:   p.Anonymous,
		subject:     p.Subject,
		roles:       slices.Clone(p.Roles),
		attributes:  maps.Clone(p.Attributes),
		credentials: slices.Clone(p.Credentials),
	}
}

// AnonymousIdentity returns an identity for a caller without credentials.
func AnonymousIdentity() *Identity {
	return &Identity{anonymous: true}
}

// IsAnonymous reports whether the caller presented no credentials.
func (id *Identity) IsAnonymous() bool { return id.anonymous }

// Subject returns the caller's name. For an augmented identity this is
// the principal name.
func (id *Identity) Subject() string { return id.subject }

// Roles returns a copy of the identity's roles.
func (id *Identity) Roles() []string { return slices.Clone(id.roles) }

// HasRole reports whether the identity holds role.
func (id *Identity) HasRole(role string) bool { return slices.Contains(id.roles, role) }

// Attributes returns a copy of the identity's attributes.
func (id *Identity) Attributes() map[string]string { return maps.Clone(id.attributes) }

// Attribute returns a single attribute.
func (id *Identity) Attribute(key string) (string, bool) {
	v, ok := id.attributes[key]
	return v, ok
}

// Credentials returns a copy of the opaque credentials attached to the identity.
func (id *Identity) Credentials() []any { return slices.Clone(id.credentials) }

// Credential returns the first Credential among the identity's credentials.
func (id *Identity) Credential() (Credential, bool) {
	return extractCredential(id.credentials)
}

// PrincipalName returns the validated principal name of an augmented
// identity, or "" for a raw or anonymous one.
func (id *Identity) PrincipalName() string {
	return id.attributes[PrincipalNameAttribute]
}

func extractCredential(credentials []any) (Credential, bool) {
	for _, c := range credentials {
		switch v := c.(type) {
		case Credential:
			return v, true
		case *Credential:
			if v != nil {
				return *v, true
			}
		}
	}
	return Credential{}, false
}
