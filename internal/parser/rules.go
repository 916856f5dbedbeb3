package parser

import (
	"regexp"
)

// Rule is a single DOM lookup: a CSS selector plus an optional
// attribute to read instead of the element text.
type Rule struct {
	Selector string
	Attr     string
}

// FieldRules is an ordered fallback chain for one field. A JSONLD path
// (dotted keys into the page's ld+json Product block) is consulted
// before the DOM rules, since structured data drifts less than markup.
// Pattern, when set, keeps the first submatch of the winning text and
// falls back to the whole text when it does not match.
type FieldRules struct {
	JSONLD  string
	Rules   []Rule
	Pattern *regexp.Regexp
}

// StockRules drives availability inference: an explicit status text is
// preferred, then the structured-data availability token, then the
// presence of an add-to-cart affordance.
type StockRules struct {
	JSONLD    string
	Status    []Rule
	AddToCart []Rule
}

// IDRules drives product identifier extraction: a URL pattern first
// (path segment grammars are the most stable signal), then on-page
// fields, then a whole-page text pattern for retailers that print the
// identifier in prose.
type IDRules struct {
	URLPattern  *regexp.Regexp
	Rules       []Rule
	TextPattern *regexp.Regexp
}

// RuleSet is one retailer's complete extraction rule table. Rule sets
// differ only in locations and patterns; the extraction algorithm
// lives once in Extractor.
type RuleSet struct {
	Retailer string
	Hosts    []string

	Name          FieldRules
	CurrentPrice  FieldRules
	OriginalPrice FieldRules
	Brand         FieldRules
	Rating        FieldRules
	ReviewCount   FieldRules
	Image         FieldRules
	Stock         StockRules
	ProductID     IDRules
	Breadcrumbs   Rule
	Features      Rule
}
