// Package kv provides string key-value storage backends for the cart.
package kv

import "context"

// Storage is an asynchronous string-keyed key-value store.
type Storage interface {
	// Get returns the value stored under key.
	// Returns ErrKeyNotFound if nothing is stored under key.
	Get(ctx context.Context, key string) (string, error)

	// Set stores value under key, unconditionally overwriting any previous value.
	Set(ctx context.Context, key, value string) error

	// Ping checks that the backend is reachable.
	Ping(ctx context.Context) error
}
