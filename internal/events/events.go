// Package events publishes cart changes to the message bus.
package events

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/abgdnv/gomarketplace/internal/cart"
	"github.com/abgdnv/gomarketplace/pkg/messaging"
)

// CartUpdatedEvent carries the full cart after a committed mutation.
type CartUpdatedEvent struct {
	Version   uint64      `json:"version"`
	Items     []cart.Item `json:"items"`
	Count     int         `json:"count"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// NewCartUpdatedEvent builds an event from a store snapshot.
func NewCartUpdatedEvent(snap cart.Snapshot, at time.Time) CartUpdatedEvent {
	items := snap.Items
	if items == nil {
		items = []cart.Item{}
	}
	count := 0
	for _, it := range items {
		count += it.Quantity
	}
	return CartUpdatedEvent{
		Version:   snap.Version,
		Items:     items,
		Count:     count,
		UpdatedAt: at.UTC(),
	}
}

func (e CartUpdatedEvent) Subject() string {
	return messaging.CartUpdatedSubject
}

func (e CartUpdatedEvent) Payload() ([]byte, error) {
	return json.Marshal(e)
}

// Forward publishes every snapshot the store emits until ctx ends or the store
// closes. Publish failures are logged and the next snapshot is still sent.
func Forward(ctx context.Context, store *cart.Store, publisher messaging.Publisher, logger *slog.Logger) {
	logger = logger.With("component", "events")
	updates, unsubscribe := store.Subscribe()
	defer unsubscribe()

	for {
		select {
		case <-ctx.Done():
			return
		case snap, ok := <-updates:
			if !ok {
				logger.Info("Cart store closed, stopping event forwarding")
				return
			}
			event := NewCartUpdatedEvent(snap, time.Now())
			if err := publisher.Publish(ctx, event); err != nil {
				logger.ErrorContext(ctx, "Failed to publish cart event", "version", snap.Version, "error", err)
				continue
			}
			logger.DebugContext(ctx, "Cart event published", "version", snap.Version, "subject", event.Subject())
		}
	}
}
