package etl

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pricewatch/price-scraper/internal/models"
)

func newTestNormalizer() *Normalizer {
	return NewNormalizer(slog.Default())
}

func TestNormalizeFullRecord(t *testing.T) {
	n := newTestNormalizer()

	p, err := n.Normalize(models.RawAttributes{
		"title":     "Widget",
		"price":     "$19.99",
		"listPrice": "$29.99",
		"store":     "Acme",
		"link":      "http://x/1",
		"asin":      "W1",
	})
	require.NoError(t, err)

	assert.Equal(t, "Widget", p.Name)
	assert.Equal(t, "Acme", p.Retailer)
	assert.Equal(t, "http://x/1", p.URL)
	assert.Equal(t, "W1", p.ProductID)
	require.NotNil(t, p.CurrentPrice)
	assert.InDelta(t, 19.99, *p.CurrentPrice, 0.001)
	require.NotNil(t, p.OriginalPrice)
	assert.InDelta(t, 29.99, *p.OriginalPrice, 0.001)
	assert.InDelta(t, 10.0, p.Discount, 0.001)
	assert.InDelta(t, 33.3, p.DiscountPercentage, 0.001)
	assert.False(t, p.Timestamp.IsZero())
}

func TestNormalizeCanonicalKeyWins(t *testing.T) {
	n := newTestNormalizer()

	p, err := n.Normalize(models.RawAttributes{
		"name":     "X",
		"title":    "Y",
		"retailer": "Acme",
		"url":      "http://x/1",
	})
	require.NoError(t, err)
	assert.Equal(t, "X", p.Name)
}

func TestNormalizeRequiredFields(t *testing.T) {
	n := newTestNormalizer()

	tests := []struct {
		name string
		raw  models.RawAttributes
	}{
		{"missing name", models.RawAttributes{"retailer": "Acme", "url": "http://x/1"}},
		{"missing retailer", models.RawAttributes{"name": "Widget", "url": "http://x/1"}},
		{"missing url", models.RawAttributes{"name": "Widget", "retailer": "Acme"}},
		{"nil name", models.RawAttributes{"name": nil, "retailer": "Acme", "url": "http://x/1"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := n.Normalize(tt.raw)
			assert.Nil(t, p)
			assert.ErrorIs(t, err, ErrIncomplete)
		})
	}

	t.Run("product_id is not required", func(t *testing.T) {
		p, err := n.Normalize(models.RawAttributes{
			"name": "Widget", "retailer": "Acme", "url": "http://x/1",
		})
		require.NoError(t, err)
		assert.Empty(t, p.ProductID)
	})
}

func TestNormalizeOriginalPriceDefaultsToCurrent(t *testing.T) {
	n := newTestNormalizer()

	p, err := n.Normalize(models.RawAttributes{
		"name": "Widget", "retailer": "Acme", "url": "http://x/1",
		"price": 19.99,
	})
	require.NoError(t, err)

	require.NotNil(t, p.OriginalPrice)
	assert.InDelta(t, 19.99, *p.OriginalPrice, 0.001)
	assert.Equal(t, 0.0, p.Discount)
	assert.Equal(t, 0.0, p.DiscountPercentage)
}

func TestNormalizeRepairsInvertedPrices(t *testing.T) {
	n := newTestNormalizer()

	p, err := n.Normalize(models.RawAttributes{
		"name": "Widget", "retailer": "Acme", "url": "http://x/1",
		"current_price":  29.99,
		"original_price": 19.99,
	})
	require.NoError(t, err)

	assert.InDelta(t, 19.99, *p.CurrentPrice, 0.001)
	assert.InDelta(t, 29.99, *p.OriginalPrice, 0.001)
	assert.InDelta(t, 10.0, p.Discount, 0.001)
}

func TestNormalizeKeepsUpstreamDiscountPercentage(t *testing.T) {
	n := newTestNormalizer()

	p, err := n.Normalize(models.RawAttributes{
		"name": "Widget", "retailer": "Acme", "url": "http://x/1",
		"current_price":       50.0,
		"original_price":      100.0,
		"discount_percentage": 25.0,
	})
	require.NoError(t, err)

	// The upstream figure is trusted over re-derivation, and the absolute
	// discount follows from it rather than from the price spread.
	assert.InDelta(t, 25.0, p.DiscountPercentage, 0.001)
	assert.InDelta(t, 25.0, p.Discount, 0.001)
}

func TestNormalizeUpstreamZeroDiscountPercentage(t *testing.T) {
	n := newTestNormalizer()

	p, err := n.Normalize(models.RawAttributes{
		"name": "Widget", "retailer": "Acme", "url": "http://x/1",
		"current_price":       19.99,
		"original_price":      29.99,
		"discount_percentage": 0.0,
	})
	require.NoError(t, err)

	// A price spread never contradicts an upstream zero percentage.
	assert.InDelta(t, 0.0, p.DiscountPercentage, 0.001)
	assert.InDelta(t, 0.0, p.Discount, 0.001)
}

func TestNormalizeStockCoercion(t *testing.T) {
	n := newTestNormalizer()

	tests := []struct {
		name     string
		value    any
		expected *bool
	}{
		{"bool true", true, boolPtr(true)},
		{"bool false", false, boolPtr(false)},
		{"In Stock text", "In Stock", boolPtr(true)},
		{"yes", "yes", boolPtr(true)},
		{"one", "1", boolPtr(true)},
		{"out of stock text", "Out of Stock", boolPtr(false)},
		{"absent", nil, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := n.Normalize(models.RawAttributes{
				"name": "Widget", "retailer": "Acme", "url": "http://x/1",
				"availability": tt.value,
			})
			require.NoError(t, err)
			if tt.expected == nil {
				assert.Nil(t, p.InStock)
			} else {
				require.NotNil(t, p.InStock)
				assert.Equal(t, *tt.expected, *p.InStock)
			}
		})
	}
}

func TestNormalizeRatingBounds(t *testing.T) {
	n := newTestNormalizer()

	valid, err := n.Normalize(models.RawAttributes{
		"name": "Widget", "retailer": "Acme", "url": "http://x/1",
		"stars": "4.5 out of 5",
	})
	require.NoError(t, err)
	require.NotNil(t, valid.Rating)
	assert.InDelta(t, 4.5, *valid.Rating, 0.001)

	invalid, err := n.Normalize(models.RawAttributes{
		"name": "Widget", "retailer": "Acme", "url": "http://x/1",
		"rating": 11.0,
	})
	require.NoError(t, err)
	assert.Nil(t, invalid.Rating)
}

func TestNormalizeCategoryFromBreadcrumbs(t *testing.T) {
	n := newTestNormalizer()

	t.Run("string slice", func(t *testing.T) {
		p, err := n.Normalize(models.RawAttributes{
			"name": "Widget", "retailer": "Acme", "url": "http://x/1",
			"breadcrumbs": []string{"Home", "Electronics", "Phones"},
		})
		require.NoError(t, err)
		require.NotNil(t, p.Category)
		assert.Equal(t, "Electronics", *p.Category)
	})

	t.Run("decoded JSON slice", func(t *testing.T) {
		p, err := n.Normalize(models.RawAttributes{
			"name": "Widget", "retailer": "Acme", "url": "http://x/1",
			"breadcrumbs": []any{"Home", "Garden"},
		})
		require.NoError(t, err)
		require.NotNil(t, p.Category)
		assert.Equal(t, "Garden", *p.Category)
	})

	t.Run("single crumb yields nothing", func(t *testing.T) {
		p, err := n.Normalize(models.RawAttributes{
			"name": "Widget", "retailer": "Acme", "url": "http://x/1",
			"breadcrumbs": []string{"Home"},
		})
		require.NoError(t, err)
		assert.Nil(t, p.Category)
	})
}

func TestNormalizeTimestamp(t *testing.T) {
	n := newTestNormalizer()

	t.Run("parses RFC3339", func(t *testing.T) {
		p, err := n.Normalize(models.RawAttributes{
			"name": "Widget", "retailer": "Acme", "url": "http://x/1",
			"timestamp": "2026-08-01T12:30:00Z",
		})
		require.NoError(t, err)
		assert.Equal(t, time.Date(2026, 8, 1, 12, 30, 0, 0, time.UTC), p.Timestamp)
	})

	t.Run("defaults to now", func(t *testing.T) {
		before := time.Now().UTC()
		p, err := n.Normalize(models.RawAttributes{
			"name": "Widget", "retailer": "Acme", "url": "http://x/1",
		})
		require.NoError(t, err)
		assert.False(t, p.Timestamp.Before(before))
	})
}

func TestNormalizeIdempotent(t *testing.T) {
	n := newTestNormalizer()

	first, err := n.Normalize(models.RawAttributes{
		"title": "Widget", "store": "Acme", "link": "http://x/1",
		"price": "$19.99", "listPrice": "$29.99", "asin": "W1",
		"timestamp": "2026-08-01T12:30:00Z",
	})
	require.NoError(t, err)

	// Feeding the canonical output back in changes nothing.
	second, err := n.Normalize(models.RawAttributes{
		"name": first.Name, "retailer": first.Retailer, "url": first.URL,
		"product_id":          first.ProductID,
		"current_price":       *first.CurrentPrice,
		"original_price":      *first.OriginalPrice,
		"discount":            first.Discount,
		"discount_percentage": first.DiscountPercentage,
		"timestamp":           first.Timestamp.Format(time.RFC3339),
	})
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestNormalizeNilInput(t *testing.T) {
	n := newTestNormalizer()

	p, err := n.Normalize(nil)
	assert.Nil(t, p)
	assert.ErrorIs(t, err, ErrIncomplete)
}

func boolPtr(b bool) *bool { return &b }
