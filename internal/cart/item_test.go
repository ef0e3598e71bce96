package cart

import (
	"fmt"
	"math"
	"testing"

	carterrors "github.com/abgdnv/gomarketplace/internal/errors"
	"github.com/stretchr/testify/assert"
)

func Test_addItem(t *testing.T) {
	testCases := []struct {
		name     string
		items    []Item
		product  Product
		expected []Item
	}{
		{
			name:     "empty cart - item appended with quantity 1",
			items:    []Item{},
			product:  Product{ID: "a", Title: "Shirt", Price: 10},
			expected: []Item{{ID: "a", Title: "Shirt", Price: 10, Quantity: 1}},
		},
		{
			name:     "existing item - fields replaced, quantity increased",
			items:    []Item{{ID: "a", Title: "Old", Price: 5, Quantity: 1}},
			product:  Product{ID: "a", Title: "New", ImageURL: "http://img/a.png", Price: 7},
			expected: []Item{{ID: "a", Title: "New", ImageURL: "http://img/a.png", Price: 7, Quantity: 2}},
		},
		{
			name:    "existing item keeps its position",
			items:   []Item{{ID: "a", Quantity: 1}, {ID: "b", Quantity: 3}, {ID: "c", Quantity: 1}},
			product: Product{ID: "b", Title: "B"},
			expected: []Item{
				{ID: "a", Quantity: 1},
				{ID: "b", Title: "B", Quantity: 4},
				{ID: "c", Quantity: 1},
			},
		},
		{
			name:     "new item appended at the end",
			items:    []Item{{ID: "a", Quantity: 2}},
			product:  Product{ID: "b"},
			expected: []Item{{ID: "a", Quantity: 2}, {ID: "b", Quantity: 1}},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// given
			before := cloneItems(tc.items)
			// when
			got := addItem(tc.items, tc.product)
			// then
			assert.Equal(t, tc.expected, got)
			assert.Equal(t, before, tc.items, "input must not be modified")
		})
	}
}

func Test_addItem_DistinctIDs(t *testing.T) {
	// given
	var items []Item
	// when
	for i := range 25 {
		items = addItem(items, Product{ID: fmt.Sprintf("p-%d", i)})
	}
	// then
	assert.Len(t, items, 25)
	for i, it := range items {
		assert.Equal(t, fmt.Sprintf("p-%d", i), it.ID)
		assert.Equal(t, 1, it.Quantity)
	}
}

func Test_incrementItem(t *testing.T) {
	testCases := []struct {
		name     string
		items    []Item
		id       string
		expected []Item
	}{
		{
			name:     "existing item increased by exactly one",
			items:    []Item{{ID: "a", Quantity: 1}, {ID: "b", Quantity: 5}},
			id:       "a",
			expected: []Item{{ID: "a", Quantity: 2}, {ID: "b", Quantity: 5}},
		},
		{
			name:     "unknown id - unchanged",
			items:    []Item{{ID: "a", Quantity: 1}},
			id:       "x",
			expected: []Item{{ID: "a", Quantity: 1}},
		},
		{
			name:     "empty cart - unchanged",
			items:    []Item{},
			id:       "a",
			expected: []Item{},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// when
			got := incrementItem(tc.items, tc.id)
			// then
			assert.Equal(t, tc.expected, got)
		})
	}
}

func Test_decrementItem(t *testing.T) {
	testCases := []struct {
		name     string
		items    []Item
		id       string
		expected []Item
	}{
		{
			name:     "quantity 1 - entry removed",
			items:    []Item{{ID: "a", Quantity: 1}},
			id:       "a",
			expected: []Item{},
		},
		{
			name:     "quantity 2 - reduced and kept",
			items:    []Item{{ID: "a", Quantity: 2}},
			id:       "a",
			expected: []Item{{ID: "a", Quantity: 1}},
		},
		{
			name:     "unknown id - unchanged",
			items:    []Item{{ID: "a", Quantity: 2}},
			id:       "x",
			expected: []Item{{ID: "a", Quantity: 2}},
		},
		{
			name:     "removal keeps order of the remaining entries",
			items:    []Item{{ID: "a", Quantity: 1}, {ID: "b", Quantity: 1}, {ID: "c", Quantity: 1}},
			id:       "b",
			expected: []Item{{ID: "a", Quantity: 1}, {ID: "c", Quantity: 1}},
		},
		{
			name:     "only the first zero-quantity entry is removed per call",
			items:    []Item{{ID: "a", Quantity: 0}, {ID: "b", Quantity: 0}},
			id:       "x",
			expected: []Item{{ID: "b", Quantity: 0}},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// given
			before := cloneItems(tc.items)
			// when
			got := decrementItem(tc.items, tc.id)
			// then
			assert.Equal(t, tc.expected, got)
			assert.Equal(t, before, tc.items, "input must not be modified")
		})
	}
}

func Test_validateProduct(t *testing.T) {
	testCases := []struct {
		name        string
		product     Product
		expectError bool
	}{
		{name: "zero price", product: Product{ID: "a"}},
		{name: "regular price", product: Product{ID: "a", Price: 19.9}},
		{name: "missing id", product: Product{Price: 1}, expectError: true},
		{name: "negative price", product: Product{ID: "a", Price: -1}, expectError: true},
		{name: "infinite price", product: Product{ID: "a", Price: math.Inf(1)}, expectError: true},
		{name: "NaN price", product: Product{ID: "a", Price: math.NaN()}, expectError: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := validateProduct(tc.product)
			if tc.expectError {
				assert.ErrorIs(t, err, carterrors.ErrInvalidProduct)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func Test_validateItems(t *testing.T) {
	testCases := []struct {
		name        string
		items       []Item
		expectError bool
	}{
		{name: "empty", items: []Item{}},
		{name: "distinct ids", items: []Item{{ID: "a", Quantity: 1}, {ID: "b", Quantity: 4, Price: 2}}},
		{name: "duplicate id", items: []Item{{ID: "b", Quantity: 1}, {ID: "b", Quantity: 2}}, expectError: true},
		{name: "zero quantity", items: []Item{{ID: "a", Quantity: 0}}, expectError: true},
		{name: "negative price", items: []Item{{ID: "a", Quantity: 1, Price: -3}}, expectError: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := validateItems(tc.items)
			if tc.expectError {
				assert.ErrorIs(t, err, carterrors.ErrInvalidCart)
				return
			}
			assert.NoError(t, err)
		})
	}
}
