// Package memory provides an in-memory implementation of
// storage.Persistence for tests and single-node deployments. Realms are
// held in a map and lost when the process restarts.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/rhuss/lakegate/pkg/debug"
	"github.com/rhuss/lakegate/pkg/storage"
)

// Store is an in-memory realm registry.
type Store struct {
	mu     sync.RWMutex
	realms map[string]struct{}
	closed bool
}

// Ensure Store implements storage.Persistence at compile time.
var _ storage.Persistence = (*Store)(nil)

// New creates a store with the given realms registered. Invalid realm
// identifiers are rejected.
func New(realms ...string) (*Store, error) {
	s := &Store{realms: make(map[string]struct{}, len(realms))}
	for _, r := range realms {
		if err := storage.ValidateRealmID(r); err != nil {
			return nil, err
		}
		s.realms[r] = struct{}{}
	}
	return s, nil
}

// Ping reports ErrClosed after Close.
func (s *Store) Ping(_ context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return storage.ErrClosed
	}
	return nil
}

// RealmExists reports whether realm is registered.
func (s *Store) RealmExists(_ context.Context, realm string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return false, storage.ErrClosed
	}
	_, ok := s.realms[realm]
	return ok, nil
}

// ListRealms returns the registered realms, sorted.
func (s *Store) ListRealms(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, storage.ErrClosed
	}
	out := make([]string, 0, len(s.realms))
	for r := range s.realms {
		out = append(out, r)
	}
	sort.Strings(out)
	return out, nil
}

// EnsureRealm registers realm. Registering a known realm is a no-op.
func (s *Store) EnsureRealm(_ context.Context, realm string) error {
	if err := storage.ValidateRealmID(realm); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return storage.ErrClosed
	}
	if _, ok := s.realms[realm]; !ok {
		debug.Log("storage", "realm registered", "realm", realm)
		s.realms[realm] = struct{}{}
	}
	return nil
}

// Close marks the store closed. Further calls fail with storage.ErrClosed.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
