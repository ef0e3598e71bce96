package kv

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"

	carterrors "github.com/abgdnv/gomarketplace/internal/errors"
	"github.com/nats-io/nats.go/jetstream"
)

// NATS implements Storage using a JetStream key-value bucket.
type NATS struct {
	kv jetstream.KeyValue
}

// NewNATS creates or updates the bucket and returns a storage backed by it.
func NewNATS(ctx context.Context, js jetstream.JetStream, bucket string) (*NATS, error) {
	kv, err := js.CreateOrUpdateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket:      bucket,
		Description: "cart state",
		History:     1,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create key-value bucket %q: %w", bucket, err)
	}
	return &NATS{kv: kv}, nil
}

// Get retrieves the value stored under key.
// Returns ErrKeyNotFound if the key does not exist.
func (n *NATS) Get(ctx context.Context, key string) (string, error) {
	entry, err := n.kv.Get(ctx, encodeKey(key))
	if err != nil {
		if errors.Is(err, jetstream.ErrKeyNotFound) {
			return "", carterrors.ErrKeyNotFound
		}
		return "", fmt.Errorf("nats kv get %q failed: %w", key, err)
	}
	return string(entry.Value()), nil
}

// Set stores value under key.
func (n *NATS) Set(ctx context.Context, key, value string) error {
	if _, err := n.kv.Put(ctx, encodeKey(key), []byte(value)); err != nil {
		return fmt.Errorf("nats kv put %q failed: %w", key, err)
	}
	return nil
}

// Ping checks that the bucket is reachable.
func (n *NATS) Ping(ctx context.Context) error {
	if _, err := n.kv.Status(ctx); err != nil {
		return fmt.Errorf("nats kv status failed: %w", err)
	}
	return nil
}

// encodeKey maps arbitrary keys onto the characters JetStream accepts in key names.
func encodeKey(key string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(key))
}
