package parser

import (
	"log/slog"
	"math"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/pricewatch/price-scraper/internal/models"
)

// Extractor applies one retailer's rule set to parsed pages. Every
// field lookup is independently fault tolerant: a selector or parse
// miss leaves a nil value behind and extraction of the remaining
// fields continues. Extract never fails outright.
type Extractor struct {
	rules  RuleSet
	logger *slog.Logger
}

func New(rules RuleSet, logger *slog.Logger) *Extractor {
	return &Extractor{
		rules:  rules,
		logger: logger.With("component", "parser", "retailer", rules.Retailer),
	}
}

func (e *Extractor) Retailer() string {
	return e.rules.Retailer
}

// Extract produces the raw attribute mapping for one page.
func (e *Extractor) Extract(doc *goquery.Document, sourceURL string) models.RawAttributes {
	ld := productJSONLD(doc)
	raw := models.RawAttributes{}

	if name := e.text(doc, ld, e.rules.Name); name != "" {
		raw["name"] = name
	} else {
		e.logger.Warn("could not extract product name", "url", sourceURL)
		raw["name"] = nil
	}

	current := e.priceField(doc, ld, e.rules.CurrentPrice)
	original := e.priceField(doc, ld, e.rules.OriginalPrice)
	if original == nil {
		// No separate list price on the page means no markdown.
		original = current
	}
	putFloat(raw, "current_price", current)
	putFloat(raw, "original_price", original)

	// Discount is computed here, not re-derived downstream: zero means
	// "no discount" while nil prices mean "unknown".
	if current != nil && original != nil && *original > *current {
		diff := *original - *current
		raw["discount"] = round2(diff)
		raw["discount_percentage"] = round1(diff / *original * 100)
	} else {
		raw["discount"] = 0.0
		raw["discount_percentage"] = 0.0
	}

	raw["in_stock"] = e.stock(doc, ld)

	if id := e.productID(doc, sourceURL); id != "" {
		raw["product_id"] = id
	} else {
		raw["product_id"] = nil
	}

	if s := e.text(doc, ld, e.rules.Rating); s != "" {
		putFloat(raw, "rating", ParseRating(s))
	} else {
		raw["rating"] = nil
	}

	if s := e.text(doc, ld, e.rules.ReviewCount); s != "" {
		raw["review_count"] = ParseCount(s)
	} else {
		raw["review_count"] = 0
	}

	if brand := e.text(doc, ld, e.rules.Brand); brand != "" {
		raw["brand"] = brand
	} else {
		raw["brand"] = nil
	}

	if img := e.text(doc, ld, e.rules.Image); img != "" {
		raw["image_url"] = img
	}

	if crumbs := e.list(doc, e.rules.Breadcrumbs); len(crumbs) > 0 {
		raw["breadcrumbs"] = crumbs
	}
	if feats := e.list(doc, e.rules.Features); len(feats) > 0 {
		raw["features"] = feats
	}

	raw["retailer"] = e.rules.Retailer
	raw["url"] = sourceURL
	raw["timestamp"] = time.Now().Format(time.RFC3339)

	return raw
}

// text resolves a field through its fallback chain and returns the
// first non-empty value, or "".
func (e *Extractor) text(doc *goquery.Document, ld map[string]any, f FieldRules) string {
	if f.JSONLD != "" && ld != nil {
		switch v := jsonldLookup(ld, f.JSONLD).(type) {
		case string:
			if s := strings.TrimSpace(v); s != "" {
				return s
			}
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64)
		}
	}

	for _, r := range f.Rules {
		sel := doc.Find(r.Selector).First()
		if sel.Length() == 0 {
			continue
		}
		var s string
		if r.Attr != "" {
			s, _ = sel.Attr(r.Attr)
		} else {
			s = sel.Text()
		}
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if f.Pattern != nil {
			if m := f.Pattern.FindStringSubmatch(s); len(m) > 1 {
				return strings.TrimSpace(m[1])
			}
		}
		return s
	}

	return ""
}

func (e *Extractor) priceField(doc *goquery.Document, ld map[string]any, f FieldRules) *float64 {
	s := e.text(doc, ld, f)
	if s == "" {
		return nil
	}
	return CleanPrice(s)
}

// stock infers availability: explicit status text first, then the
// add-to-cart affordance, then the structured-data token. No signal at
// all means unknown (nil), which is distinct from confirmed false.
func (e *Extractor) stock(doc *goquery.Document, ld map[string]any) any {
	for _, r := range e.rules.Stock.Status {
		sel := doc.Find(r.Selector).First()
		if sel.Length() == 0 {
			continue
		}
		if s := strings.TrimSpace(sel.Text()); s != "" {
			return stockFromText(s)
		}
	}

	if e.rules.Stock.JSONLD != "" && ld != nil {
		if v, ok := jsonldLookup(ld, e.rules.Stock.JSONLD).(string); ok && v != "" {
			return strings.Contains(v, "InStock")
		}
	}

	for _, r := range e.rules.Stock.AddToCart {
		if doc.Find(r.Selector).Length() > 0 {
			return true
		}
	}

	return nil
}

func (e *Extractor) productID(doc *goquery.Document, sourceURL string) string {
	r := e.rules.ProductID

	if r.URLPattern != nil {
		if m := r.URLPattern.FindStringSubmatch(sourceURL); len(m) > 1 {
			return m[1]
		}
	}

	for _, rule := range r.Rules {
		sel := doc.Find(rule.Selector).First()
		if sel.Length() == 0 {
			continue
		}
		var s string
		if rule.Attr != "" {
			s, _ = sel.Attr(rule.Attr)
		} else {
			s = sel.Text()
		}
		if s = strings.TrimSpace(s); s != "" {
			return s
		}
	}

	if r.TextPattern != nil {
		if m := r.TextPattern.FindStringSubmatch(doc.Text()); len(m) > 1 {
			return m[1]
		}
	}

	return genericID(sourceURL)
}

// genericID is the cross-retailer last resort: the first sufficiently
// long alphanumeric path segment of the source URL.
func genericID(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	for _, part := range strings.Split(u.Path, "/") {
		if len(part) > 5 && isAlnum(part) {
			return part
		}
	}
	return ""
}

func (e *Extractor) list(doc *goquery.Document, r Rule) []string {
	if r.Selector == "" {
		return nil
	}
	var out []string
	doc.Find(r.Selector).Each(func(_ int, s *goquery.Selection) {
		if t := strings.TrimSpace(s.Text()); t != "" {
			out = append(out, t)
		}
	})
	return out
}

func putFloat(raw models.RawAttributes, key string, v *float64) {
	if v != nil {
		raw[key] = *v
	} else {
		raw[key] = nil
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
