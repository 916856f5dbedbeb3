package parser

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	numberToken = regexp.MustCompile(`\d+(?:\.\d+)?`)
	countToken  = regexp.MustCompile(`\d[\d,]*`)
)

var currencyTokens = []string{"$", "£", "€", "USD", "GBP", "EUR"}

var negativeStockTokens = []string{
	"out of stock",
	"currently unavailable",
	"unavailable",
	"sold out",
}

// CleanPrice converts a scraped price string to a non-negative amount.
// Currency symbols, thousands separators and surrounding whitespace are
// stripped; a range like "£12.00 - £15.00" takes its lower bound.
// Returns nil when nothing parseable remains.
func CleanPrice(s string) *float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}

	if i := strings.Index(s, " - "); i >= 0 {
		s = s[:i]
	}
	for _, tok := range currencyTokens {
		s = strings.ReplaceAll(s, tok, "")
	}
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", ""))

	if v, err := strconv.ParseFloat(s, 64); err == nil {
		if v < 0 {
			return nil
		}
		return &v
	}

	// Mixed text such as "Now 19.99" keeps its first numeric token.
	if m := numberToken.FindString(s); m != "" {
		if v, err := strconv.ParseFloat(m, 64); err == nil {
			return &v
		}
	}

	return nil
}

// ParseRating extracts the first numeric token from free text, e.g.
// "4.5 out of 5 stars" -> 4.5.
func ParseRating(s string) *float64 {
	if m := numberToken.FindString(s); m != "" {
		if v, err := strconv.ParseFloat(m, 64); err == nil {
			return &v
		}
	}
	return nil
}

// ParseCount extracts a non-negative integer from free text, stripping
// thousands separators: "1,234 ratings" -> 1234. Unparseable text
// counts as zero.
func ParseCount(s string) int {
	if m := countToken.FindString(s); m != "" {
		if v, err := strconv.Atoi(strings.ReplaceAll(m, ",", "")); err == nil {
			return v
		}
	}
	return 0
}

// stockFromText interprets an availability status line: negating
// keywords mean out of stock, anything else means available.
func stockFromText(s string) bool {
	t := strings.ToLower(s)
	for _, tok := range negativeStockTokens {
		if strings.Contains(t, tok) {
			return false
		}
	}
	return true
}

func isAlnum(s string) bool {
	for _, r := range s {
		if (r < 'a' || r > 'z') && (r < 'A' || r > 'Z') && (r < '0' || r > '9') {
			return false
		}
	}
	return len(s) > 0
}
