// Package apikey provides an API key authenticator that validates
// bearer tokens against a static key store using SHA-256 hashing
// and constant-time comparison.
package apikey

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"maps"
	"slices"

	"github.com/rhuss/lakegate/pkg/auth"
)

// KeyEntry maps a key hash to a principal.
type KeyEntry struct {
	KeyHash   [32]byte
	Principal auth.Principal
}

// RawKeyEntry is the configuration format for API keys.
type RawKeyEntry struct {
	Key       string
	Principal auth.Principal
}

// Authenticator validates bearer tokens against a static key store.
type Authenticator struct {
	keys []KeyEntry
}

// Ensure Authenticator implements auth.Authenticator at compile time.
var _ auth.Authenticator = (*Authenticator)(nil)

// New creates an API key authenticator. Keys are hashed immediately;
// plaintext keys are not stored.
func New(entries []RawKeyEntry) *Authenticator {
	a := &Authenticator{}
	for _, e := range entries {
		a.keys = append(a.keys, KeyEntry{
			KeyHash:   sha256.Sum256([]byte(e.Key)),
			Principal: e.Principal,
		})
	}
	return a
}

// Authenticate looks up cred.Token. Every stored hash is compared so the
// timing does not reveal which entry matched.
func (a *Authenticator) Authenticate(_ context.Context, cred auth.Credential) (*auth.Principal, error) {
	if cred.Token == "" {
		return nil, auth.ErrUnauthenticated
	}

	tokenHash := sha256.Sum256([]byte(cred.Token))

	var match *KeyEntry
	for i := range a.keys {
		if subtle.ConstantTimeCompare(tokenHash[:], a.keys[i].KeyHash[:]) == 1 && match == nil {
			match = &a.keys[i]
		}
	}
	if match == nil {
		return nil, auth.ErrUnauthenticated
	}

	// Copy so callers cannot mutate the stored entry.
	return &auth.Principal{
		Name:       match.Principal.Name,
		Roles:      slices.Clone(match.Principal.Roles),
		Properties: maps.Clone(match.Principal.Properties),
	}, nil
}
