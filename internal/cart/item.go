// Package cart holds the cart state container and keeps it in sync with a key-value store.
package cart

import (
	"fmt"
	"math"

	carterrors "github.com/abgdnv/gomarketplace/internal/errors"
)

// Item is one distinct product held in the cart together with its quantity.
type Item struct {
	ID       string  `json:"id"`
	Title    string  `json:"title"`
	ImageURL string  `json:"image_url"`
	Price    float64 `json:"price"`
	Quantity int     `json:"quantity"`
}

// Product is the descriptor accepted by AddToCart: an Item without a quantity.
type Product struct {
	ID       string  `json:"id"        validate:"required,max=100"`
	Title    string  `json:"title"     validate:"max=200"`
	ImageURL string  `json:"image_url" validate:"omitempty,url"`
	Price    float64 `json:"price"     validate:"min=0"`
}

// Snapshot is a committed state of the cart as delivered to subscribers.
type Snapshot struct {
	Items   []Item
	Version uint64
}

// validateProduct rejects products whose fields could not be encoded or break the price invariant.
func validateProduct(p Product) error {
	if p.ID == "" {
		return fmt.Errorf("%w: id is required", carterrors.ErrInvalidProduct)
	}
	if !validPrice(p.Price) {
		return fmt.Errorf("%w: price %v of %q must be a finite non-negative number", carterrors.ErrInvalidProduct, p.Price, p.ID)
	}
	return nil
}

// validateItems checks a decoded collection: unique ids, quantities of at least one, valid prices.
func validateItems(items []Item) error {
	seen := make(map[string]struct{}, len(items))
	for _, it := range items {
		if _, ok := seen[it.ID]; ok {
			return fmt.Errorf("%w: duplicate id %q", carterrors.ErrInvalidCart, it.ID)
		}
		seen[it.ID] = struct{}{}
		if it.Quantity < 1 {
			return fmt.Errorf("%w: quantity %d of %q is below 1", carterrors.ErrInvalidCart, it.Quantity, it.ID)
		}
		if !validPrice(it.Price) {
			return fmt.Errorf("%w: price %v of %q", carterrors.ErrInvalidCart, it.Price, it.ID)
		}
	}
	return nil
}

func validPrice(price float64) bool {
	return !math.IsNaN(price) && !math.IsInf(price, 0) && price >= 0
}

// addItem merges p into items. An existing entry is replaced in place by p with its
// quantity increased by one, otherwise p is appended with quantity one.
// The input slice is never modified.
func addItem(items []Item, p Product) []Item {
	out := make([]Item, 0, len(items)+1)
	found := false
	for _, it := range items {
		if it.ID == p.ID {
			out = append(out, fromProduct(p, it.Quantity+1))
			found = true
			continue
		}
		out = append(out, it)
	}
	if !found {
		out = append(out, fromProduct(p, 1))
	}
	return out
}

// incrementItem raises the quantity of the entry with the given id by one.
func incrementItem(items []Item, id string) []Item {
	out := make([]Item, len(items))
	for i, it := range items {
		if it.ID == id {
			it.Quantity++
		}
		out[i] = it
	}
	return out
}

// decrementItem lowers the quantity of the entry with the given id when it is above zero,
// then removes the first entry whose quantity is exactly zero.
// A single call can zero out at most one entry, so one removal per call is enough.
func decrementItem(items []Item, id string) []Item {
	out := make([]Item, len(items))
	for i, it := range items {
		if it.ID == id && it.Quantity > 0 {
			it.Quantity--
		}
		out[i] = it
	}
	for i, it := range out {
		if it.Quantity == 0 {
			return append(out[:i], out[i+1:]...)
		}
	}
	return out
}

func fromProduct(p Product, quantity int) Item {
	return Item{
		ID:       p.ID,
		Title:    p.Title,
		ImageURL: p.ImageURL,
		Price:    p.Price,
		Quantity: quantity,
	}
}

func cloneItems(items []Item) []Item {
	out := make([]Item, len(items))
	copy(out, items)
	return out
}
