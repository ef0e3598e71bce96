package kv

import (
	"context"
	"testing"

	carterrors "github.com/abgdnv/gomarketplace/internal/errors"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// skipIntegrationTests is the environment variable that controls whether to skip integration tests.
const skipIntegrationTests = "CART_SVC_SKIP_INTEGRATION_TESTS"

// assertStorageContract checks the behavior every backend must share.
func assertStorageContract(t *testing.T, storage Storage) {
	t.Helper()
	ctx := context.Background()

	t.Run("ping", func(t *testing.T) {
		require.NoError(t, storage.Ping(ctx))
	})

	t.Run("missing key", func(t *testing.T) {
		_, err := storage.Get(ctx, "missing-"+uuid.NewString())
		assert.ErrorIs(t, err, carterrors.ErrKeyNotFound)
	})

	t.Run("set then get", func(t *testing.T) {
		key := "@GoMarketplace:products-" + uuid.NewString()
		value := `[{"id":"a","title":"x","image_url":"y","price":3,"quantity":3}]`

		require.NoError(t, storage.Set(ctx, key, value))
		got, err := storage.Get(ctx, key)

		require.NoError(t, err)
		assert.Equal(t, value, got)
	})

	t.Run("set overwrites", func(t *testing.T) {
		key := "@GoMarketplace:products-" + uuid.NewString()

		require.NoError(t, storage.Set(ctx, key, "[]"))
		require.NoError(t, storage.Set(ctx, key, `[{"id":"b","quantity":1}]`))
		got, err := storage.Get(ctx, key)

		require.NoError(t, err)
		assert.Equal(t, `[{"id":"b","quantity":1}]`, got)
	})
}
