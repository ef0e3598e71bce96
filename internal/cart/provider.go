package cart

import (
	"context"
	"net/http"

	carterrors "github.com/abgdnv/gomarketplace/internal/errors"
)

type storeKey struct{}

// WithStore returns a copy of ctx that carries store.
func WithStore(ctx context.Context, store *Store) context.Context {
	return context.WithValue(ctx, storeKey{}, store)
}

// FromContext returns the store carried by ctx.
// Returns ErrNoStoreInScope if ctx carries none.
func FromContext(ctx context.Context) (*Store, error) {
	store, ok := ctx.Value(storeKey{}).(*Store)
	if !ok || store == nil {
		return nil, carterrors.ErrNoStoreInScope
	}
	return store, nil
}

// MustFromContext is like FromContext but panics when no store is in scope.
func MustFromContext(ctx context.Context) *Store {
	store, err := FromContext(ctx)
	if err != nil {
		panic(err)
	}
	return store
}

// Provider creates a middleware that puts store into every request context.
func Provider(store *Store) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(WithStore(r.Context(), store)))
		})
	}
}
