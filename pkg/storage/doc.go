// Package storage defines the persistence handle a call context carries
// and the types shared by its implementations (memory, postgres).
//
// The gate does not store catalog data. Persistence exposes only what
// request handling needs: liveness and the registry of known realms.
package storage
