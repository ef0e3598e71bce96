package cart

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_Codec_RoundTrip(t *testing.T) {
	testCases := []struct {
		name  string
		items []Item
	}{
		{name: "empty", items: []Item{}},
		{
			name: "several items keep fields and order",
			items: []Item{
				{ID: "b", Title: "Bag", ImageURL: "https://img/b.png", Price: 19.9, Quantity: 3},
				{ID: "a", Title: "Apple", ImageURL: "https://img/a.png", Price: 0, Quantity: 1},
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// when
			raw, err := Encode(tc.items)
			require.NoError(t, err)
			decoded, err := Decode(raw)
			// then
			require.NoError(t, err)
			assert.Equal(t, tc.items, decoded)
		})
	}
}

func Test_Encode_FieldNames(t *testing.T) {
	// when
	raw, err := Encode([]Item{{ID: "a", Title: "T", ImageURL: "u", Price: 1.5, Quantity: 2}})
	// then
	require.NoError(t, err)
	assert.JSONEq(t, `[{"id":"a","title":"T","image_url":"u","price":1.5,"quantity":2}]`, raw)
}

func Test_Encode_Nil(t *testing.T) {
	raw, err := Encode(nil)
	require.NoError(t, err)
	assert.Equal(t, "[]", raw)
}

func Test_Decode(t *testing.T) {
	testCases := []struct {
		name        string
		raw         string
		expected    []Item
		expectError bool
	}{
		{name: "null is an empty cart", raw: "null", expected: []Item{}},
		{name: "stored by another client", raw: `[{"id":"a","title":"x","image_url":"y","price":3,"quantity":3}]`,
			expected: []Item{{ID: "a", Title: "x", ImageURL: "y", Price: 3, Quantity: 3}}},
		{name: "corrupted", raw: `[{"id":`, expectError: true},
		{name: "empty string", raw: "", expectError: true},
		{name: "wrong shape", raw: `{"id":"a"}`, expectError: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Decode(tc.raw)
			if tc.expectError {
				assert.Error(t, err)
				assert.Nil(t, got)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.expected, got)
		})
	}
}
