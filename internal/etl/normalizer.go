package etl

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/pricewatch/price-scraper/internal/models"
	"github.com/pricewatch/price-scraper/internal/parser"
)

// ErrIncomplete marks a record that lacks one of the required identity
// fields and cannot be turned into a product row.
var ErrIncomplete = errors.New("record missing required fields")

// fieldSynonyms folds the attribute names different capture sources use
// onto the canonical schema. A canonical key already present in the
// input always wins over its synonyms.
var fieldSynonyms = map[string]string{
	"title":               "name",
	"productName":         "name",
	"price":               "current_price",
	"currentPrice":        "current_price",
	"sale_price":          "current_price",
	"listPrice":           "original_price",
	"regular_price":       "original_price",
	"list_price":          "original_price",
	"msrp":                "original_price",
	"availability":        "in_stock",
	"inStock":             "in_stock",
	"is_available":        "in_stock",
	"productId":           "product_id",
	"asin":                "product_id",
	"sku":                 "product_id",
	"store":               "retailer",
	"vendor":              "retailer",
	"link":                "url",
	"productUrl":          "url",
	"stars":               "rating",
	"averageRating":       "rating",
	"reviewCount":         "review_count",
	"numReviews":          "review_count",
	"brand_name":          "brand",
	"manufacturer":        "brand",
	"discountPercentage":  "discount_percentage",
	"image":               "image_url",
	"imageUrl":            "image_url",
}

var truthyTokens = map[string]bool{
	"true":     true,
	"yes":      true,
	"y":        true,
	"in stock": true,
	"instock":  true,
	"1":        true,
}

// Normalizer turns raw capture maps into canonical product records.
type Normalizer struct {
	logger *slog.Logger
}

func NewNormalizer(logger *slog.Logger) *Normalizer {
	return &Normalizer{logger: logger.With("component", "normalizer")}
}

// Normalize maps one raw record onto the canonical schema. Records
// missing any of name, retailer or url are rejected with ErrIncomplete.
// A panic while coercing a hostile input is contained and reported as
// an error instead of taking the batch down.
func (n *Normalizer) Normalize(raw models.RawAttributes) (p *models.NormalizedProduct, err error) {
	defer func() {
		if r := recover(); r != nil {
			n.logger.Error("normalization panicked", "error", fmt.Sprint(r))
			p = nil
			err = fmt.Errorf("normalize: %v", r)
		}
	}()

	rec := foldSynonyms(raw)

	name := asString(rec["name"])
	retailer := asString(rec["retailer"])
	sourceURL := asString(rec["url"])
	if name == "" || retailer == "" || sourceURL == "" {
		return nil, ErrIncomplete
	}

	current := asPrice(rec["current_price"])
	original := asPrice(rec["original_price"])
	if original == nil {
		original = current
	}
	// A list price below the sale price is a capture artifact; repair by
	// swapping so every derived discount stays non-negative.
	if current != nil && original != nil && *original < *current {
		current, original = original, current
	}

	// Both discount figures come from one source: either upstream supplied
	// the percentage (and the absolute amount follows from it) or both are
	// derived from the price pair.
	var discount, pct float64
	if v := asFloat(rec["discount_percentage"]); v != nil {
		pct = round1(*v)
		if v := asFloat(rec["discount"]); v != nil {
			discount = round2(*v)
		} else if original != nil {
			discount = round2(*original * pct / 100)
		}
	} else if current != nil && original != nil && *original > *current {
		discount = round2(*original - *current)
		pct = round1((*original - *current) / *original * 100)
	}

	out := &models.NormalizedProduct{
		ProductID:          asString(rec["product_id"]),
		Retailer:           retailer,
		Name:               name,
		Brand:              asStringPtr(rec["brand"]),
		Category:           category(rec),
		URL:                sourceURL,
		CurrentPrice:       current,
		OriginalPrice:      original,
		Discount:           discount,
		DiscountPercentage: pct,
		InStock:            asBool(rec["in_stock"]),
		Rating:             asRating(rec["rating"]),
		ReviewCount:        asCount(rec["review_count"]),
		Timestamp:          asTime(rec["timestamp"]),
	}

	return out, nil
}

// foldSynonyms rewrites every synonym key onto its canonical name
// without clobbering a canonical value that is already populated.
func foldSynonyms(raw models.RawAttributes) models.RawAttributes {
	rec := make(models.RawAttributes, len(raw))
	for k, v := range raw {
		if _, isSyn := fieldSynonyms[k]; !isSyn {
			rec[k] = v
		}
	}
	for k, v := range raw {
		canonical, isSyn := fieldSynonyms[k]
		if !isSyn {
			continue
		}
		if existing, ok := rec[canonical]; ok && existing != nil {
			continue
		}
		rec[canonical] = v
	}
	return rec
}

func category(rec models.RawAttributes) *string {
	if s := asString(rec["category"]); s != "" {
		return &s
	}
	switch crumbs := rec["breadcrumbs"].(type) {
	case []string:
		if len(crumbs) > 1 && crumbs[1] != "" {
			c := crumbs[1]
			return &c
		}
	case []any:
		if len(crumbs) > 1 {
			if c := asString(crumbs[1]); c != "" {
				return &c
			}
		}
	}
	return nil
}

func asString(v any) string {
	switch s := v.(type) {
	case string:
		return strings.TrimSpace(s)
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	default:
		return ""
	}
}

func asStringPtr(v any) *string {
	if s := asString(v); s != "" {
		return &s
	}
	return nil
}

func asPrice(v any) *float64 {
	switch p := v.(type) {
	case float64:
		if p < 0 {
			return nil
		}
		r := round2(p)
		return &r
	case int:
		if p < 0 {
			return nil
		}
		r := float64(p)
		return &r
	case string:
		if f := parser.CleanPrice(p); f != nil {
			r := round2(*f)
			return &r
		}
	}
	return nil
}

func asFloat(v any) *float64 {
	switch f := v.(type) {
	case float64:
		return &f
	case int:
		r := float64(f)
		return &r
	case string:
		return parser.ParseRating(f)
	}
	return nil
}

func asRating(v any) *float64 {
	f := asFloat(v)
	if f == nil || *f < 0 || *f > 5 {
		return nil
	}
	return f
}

func asCount(v any) int {
	switch c := v.(type) {
	case int:
		if c > 0 {
			return c
		}
	case float64:
		if c > 0 {
			return int(c)
		}
	case string:
		return parser.ParseCount(c)
	}
	return 0
}

func asBool(v any) *bool {
	switch b := v.(type) {
	case bool:
		return &b
	case string:
		r := truthyTokens[strings.ToLower(strings.TrimSpace(b))]
		return &r
	}
	return nil
}

func asTime(v any) time.Time {
	if s, ok := v.(string); ok {
		if t, err := time.Parse(time.RFC3339, s); err == nil {
			return t
		}
	}
	return time.Now().UTC()
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
