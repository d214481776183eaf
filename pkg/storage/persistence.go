package storage

import (
	"context"
	"fmt"
	"regexp"
)

// Persistence is the handle to the realm-scoped backing store shared by
// every call context. Implementations must be safe for concurrent use.
type Persistence interface {
	// Ping verifies the backing store is reachable.
	Ping(ctx context.Context) error

	// RealmExists reports whether realm is registered.
	RealmExists(ctx context.Context, realm string) (bool, error)

	// ListRealms returns all registered realms in ascending order.
	ListRealms(ctx context.Context) ([]string, error)

	// EnsureRealm registers realm if it is not yet known.
	EnsureRealm(ctx context.Context, realm string) error

	// Close releases the handle.
	Close() error
}

var realmPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_.-]{0,62}$`)

// ValidateRealmID checks that id is usable as a realm identifier.
func ValidateRealmID(id string) error {
	if !realmPattern.MatchString(id) {
		return fmt.Errorf("%w: %q", ErrInvalidRealm, id)
	}
	return nil
}
