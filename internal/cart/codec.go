package cart

import (
	"encoding/json"
	"fmt"
)

// Encode serializes the collection into the textual form kept in storage.
// An empty collection is encoded as "[]".
func Encode(items []Item) (string, error) {
	if items == nil {
		items = []Item{}
	}
	data, err := json.Marshal(items)
	if err != nil {
		return "", fmt.Errorf("failed to encode cart: %w", err)
	}
	return string(data), nil
}

// Decode parses a stored blob back into a collection.
func Decode(raw string) ([]Item, error) {
	var items []Item
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		return nil, fmt.Errorf("failed to decode cart: %w", err)
	}
	if items == nil {
		items = []Item{}
	}
	return items, nil
}
