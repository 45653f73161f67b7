// Package storage defines the string-keyed persistence abstraction the
// entity stores write their snapshots through.
package storage

// Provider is the interface for persisted key-value state. Each store
// serializes its entire state as JSON under one fixed key and hydrates it
// once at startup.
type Provider interface {
	// Get returns the bytes stored under key. A missing key yields an error
	// wrapping apperr.ErrNotFound.
	Get(key string) ([]byte, error)
	// Set durably stores value under key, replacing any previous value.
	Set(key string, value []byte) error
	// Remove deletes key. Removing a missing key is not an error.
	Remove(key string) error
	// Close releases backend resources.
	Close() error
}
