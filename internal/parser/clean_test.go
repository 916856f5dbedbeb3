package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCleanPrice(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected float64
		isNil    bool
	}{
		{"dollar with thousands separator", "$1,234.50", 1234.50, false},
		{"range takes lower bound", "£12.00 - £15.00", 12.00, false},
		{"not available", "N/A", 0, true},
		{"empty string", "", 0, true},
		{"plain number", "19.99", 19.99, false},
		{"euro symbol", "€45.50", 45.50, false},
		{"currency code", "GBP 9.99", 9.99, false},
		{"surrounding whitespace", "  $5.00  ", 5.00, false},
		{"leading text", "Now 19.99", 19.99, false},
		{"whole pounds", "£3", 3.00, false},
		{"negative amount", "-5.00", 0, true},
		{"negative with symbol", "$-5.00", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := CleanPrice(tt.input)
			if tt.isNil {
				assert.Nil(t, result)
			} else {
				require.NotNil(t, result)
				assert.InDelta(t, tt.expected, *result, 0.001)
			}
		})
	}
}

func TestParseRating(t *testing.T) {
	tests := []struct {
		input    string
		expected float64
		isNil    bool
	}{
		{"4.5 out of 5 stars", 4.5, false},
		{"3.0", 3.0, false},
		{"Rated 4 stars", 4.0, false},
		{"no rating here", 0, true},
		{"", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result := ParseRating(tt.input)
			if tt.isNil {
				assert.Nil(t, result)
			} else {
				require.NotNil(t, result)
				assert.InDelta(t, tt.expected, *result, 0.001)
			}
		})
	}
}

func TestParseCount(t *testing.T) {
	tests := []struct {
		input    string
		expected int
	}{
		{"1,234 ratings", 1234},
		{"567 reviews", 567},
		{"(89)", 89},
		{"no number", 0},
		{"", 0},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, ParseCount(tt.input))
		})
	}
}

func TestStockFromText(t *testing.T) {
	assert.True(t, stockFromText("In Stock"))
	assert.True(t, stockFromText("Only 3 left in stock"))
	assert.False(t, stockFromText("Out of Stock"))
	assert.False(t, stockFromText("Currently unavailable"))
	assert.False(t, stockFromText("SOLD OUT"))
}
