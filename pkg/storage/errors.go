package storage

import "errors"

// Sentinel errors for storage operations.
var (
	// ErrRealmNotFound is returned when a realm is not registered.
	ErrRealmNotFound = errors.New("realm not found")

	// ErrInvalidRealm is returned for a malformed realm identifier.
	ErrInvalidRealm = errors.New("invalid realm identifier")

	// ErrClosed is returned by a handle after Close.
	ErrClosed = errors.New("persistence closed")
)
