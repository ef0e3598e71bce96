// Package errors provides custom error types for cart-related operations.
package errors

import "errors"

// ErrNoStoreInScope is returned when the cart is accessed from a context that carries no store.
var ErrNoStoreInScope = errors.New("cart store is not in scope: wrap the caller with cart.Provider or cart.WithStore")

// ErrStoreClosed is returned by mutations issued after the store has been closed.
var ErrStoreClosed = errors.New("cart store is closed")

// ErrKeyNotFound is returned by storage backends when no value is stored under a key.
var ErrKeyNotFound = errors.New("key not found")

// ErrUnsynced is returned by Flush when the latest cart state could not be persisted.
var ErrUnsynced = errors.New("cart state is not persisted")

// ErrInvalidProduct is returned by AddToCart for a product that cannot be stored.
var ErrInvalidProduct = errors.New("invalid product")

// ErrInvalidCart is returned when a stored cart breaks the collection invariants.
var ErrInvalidCart = errors.New("invalid cart")
