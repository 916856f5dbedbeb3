package models

import (
	"time"
)

// Retailers with extraction rule sets.
const (
	RetailerAmazon     = "Amazon"
	RetailerWalmart    = "Walmart"
	RetailerNewegg     = "Newegg"
	RetailerTarget     = "Target"
	RetailerCurrys     = "Currys"
	RetailerTesco      = "Tesco"
	RetailerMorrisons  = "Morrisons"
	RetailerSainsburys = "Sainsburys"
)

// RawAttributes is the untyped field mapping produced by one extraction
// pass over one page. Keys may be retailer-specific synonyms and values
// may be strings, numbers, booleans, slices or nil. It carries no
// invariants; the normalizer is responsible for making sense of it.
type RawAttributes map[string]any

// NormalizedProduct is the canonical, typed record produced by the
// normalizer and handed to the record store.
type NormalizedProduct struct {
	ProductID          string    `json:"product_id"`
	Retailer           string    `json:"retailer"`
	Name               string    `json:"name"`
	Brand              *string   `json:"brand"`
	Category           *string   `json:"category"`
	URL                string    `json:"url"`
	CurrentPrice       *float64  `json:"current_price"`
	OriginalPrice      *float64  `json:"original_price"`
	Discount           float64   `json:"discount"`
	DiscountPercentage float64   `json:"discount_percentage"`
	InStock            *bool     `json:"in_stock"`
	Rating             *float64  `json:"rating"`
	ReviewCount        int       `json:"review_count"`
	Timestamp          time.Time `json:"timestamp"`
}

// PriceRecord is an append-only price observation keyed by the store's
// internal product identifier.
type PriceRecord struct {
	ProductRef         int64     `json:"product_ref"`
	CurrentPrice       *float64  `json:"current_price"`
	OriginalPrice      *float64  `json:"original_price"`
	DiscountPercentage float64   `json:"discount_percentage"`
	InStock            *bool     `json:"in_stock"`
	Timestamp          time.Time `json:"timestamp"`
}

// ReviewRecord is an append-only review observation keyed by the store's
// internal product identifier.
type ReviewRecord struct {
	ProductRef  int64     `json:"product_ref"`
	Rating      *float64  `json:"rating"`
	ReviewCount int       `json:"review_count"`
	Timestamp   time.Time `json:"timestamp"`
}

// HasPrices reports whether both price fields were obtained.
func (p *NormalizedProduct) HasPrices() bool {
	return p.CurrentPrice != nil && p.OriginalPrice != nil
}
