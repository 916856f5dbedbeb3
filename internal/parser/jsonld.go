package parser

import (
	"encoding/json"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// productJSONLD returns the first ld+json block on the page whose @type
// is Product, or nil when none decodes. Blocks wrapped in @graph arrays
// are searched too.
func productJSONLD(doc *goquery.Document) map[string]any {
	var found map[string]any

	doc.Find(`script[type="application/ld+json"]`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		var data map[string]any
		if err := json.Unmarshal([]byte(s.Text()), &data); err != nil {
			return true
		}
		if isProductBlock(data) {
			found = data
			return false
		}
		if graph, ok := data["@graph"].([]any); ok {
			for _, item := range graph {
				if m, ok := item.(map[string]any); ok && isProductBlock(m) {
					found = m
					return false
				}
			}
		}
		return true
	})

	return found
}

func isProductBlock(data map[string]any) bool {
	t, _ := data["@type"].(string)
	return t == "Product"
}

// jsonldLookup walks a dotted path like "offers.price" through nested
// objects. Returns nil on any missing step.
func jsonldLookup(data map[string]any, path string) any {
	var cur any = data
	for _, key := range strings.Split(path, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		cur = m[key]
		if cur == nil {
			return nil
		}
	}
	return cur
}
