package parser

import (
	"log/slog"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pricewatch/price-scraper/internal/models"
)

func docFromHTML(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)
	return doc
}

func testExtractor(t *testing.T, retailer string) *Extractor {
	t.Helper()
	rules, ok := ForRetailer(retailer)
	require.True(t, ok)
	return New(rules, slog.Default())
}

const amazonProductPage = `<!DOCTYPE html>
<html>
<body>
	<span id="productTitle"> Apple iPhone 15 Pro Max 256GB </span>
	<div id="bylineInfo">Brand: Apple</div>
	<span class="a-price"><span class="a-offscreen">$999.00</span></span>
	<span class="a-text-price"><span class="a-offscreen">$1,099.00</span></span>
	<div id="availability"><span> In Stock </span></div>
	<span id="acrPopover" title="4.5 out of 5 stars"></span>
	<span id="acrCustomerReviewText">1,234 ratings</span>
	<div id="wayfinding-breadcrumbs_feature_div">
		<span class="a-list-item">Electronics</span>
		<span class="a-list-item">Mobile Phones</span>
	</div>
	<div id="feature-bullets"><ul>
		<li>256GB storage</li>
		<li>Titanium body</li>
	</ul></div>
</body>
</html>`

func TestExtractAmazonProduct(t *testing.T) {
	e := testExtractor(t, models.RetailerAmazon)
	doc := docFromHTML(t, amazonProductPage)

	raw := e.Extract(doc, "https://www.amazon.co.uk/Apple-iPhone/dp/B0DGHZ1MC2?th=1")

	assert.Equal(t, "Apple iPhone 15 Pro Max 256GB", raw["name"])
	assert.Equal(t, "Apple", raw["brand"])
	assert.Equal(t, 999.00, raw["current_price"])
	assert.Equal(t, 1099.00, raw["original_price"])
	assert.Equal(t, 100.00, raw["discount"])
	assert.Equal(t, 9.1, raw["discount_percentage"])
	assert.Equal(t, true, raw["in_stock"])
	assert.Equal(t, "B0DGHZ1MC2", raw["product_id"])
	assert.Equal(t, 4.5, raw["rating"])
	assert.Equal(t, 1234, raw["review_count"])
	assert.Equal(t, []string{"Electronics", "Mobile Phones"}, raw["breadcrumbs"])
	assert.Equal(t, models.RetailerAmazon, raw["retailer"])
	assert.Equal(t, "https://www.amazon.co.uk/Apple-iPhone/dp/B0DGHZ1MC2?th=1", raw["url"])
	assert.NotEmpty(t, raw["timestamp"])
}

func TestExtractToleratesMissingFields(t *testing.T) {
	e := testExtractor(t, models.RetailerAmazon)
	doc := docFromHTML(t, `<html><body><div>nothing useful here</div></body></html>`)

	raw := e.Extract(doc, "http://x/1")

	assert.Nil(t, raw["name"])
	assert.Nil(t, raw["current_price"])
	assert.Nil(t, raw["original_price"])
	assert.Nil(t, raw["in_stock"])
	assert.Nil(t, raw["product_id"])
	assert.Nil(t, raw["rating"])
	assert.Equal(t, 0, raw["review_count"])
	assert.Equal(t, 0.0, raw["discount"])
	assert.Equal(t, 0.0, raw["discount_percentage"])
	assert.Equal(t, models.RetailerAmazon, raw["retailer"])
}

func TestExtractNoListPriceMeansNoDiscount(t *testing.T) {
	e := testExtractor(t, models.RetailerAmazon)
	doc := docFromHTML(t, `<html><body>
		<span id="productTitle">Widget</span>
		<span class="a-price"><span class="a-offscreen">$19.99</span></span>
	</body></html>`)

	raw := e.Extract(doc, "https://www.amazon.com/dp/B000TEST01")

	assert.Equal(t, 19.99, raw["current_price"])
	assert.Equal(t, 19.99, raw["original_price"])
	assert.Equal(t, 0.0, raw["discount"])
	assert.Equal(t, 0.0, raw["discount_percentage"])
}

func TestExtractStockInference(t *testing.T) {
	e := testExtractor(t, models.RetailerAmazon)

	t.Run("negating status text means false", func(t *testing.T) {
		doc := docFromHTML(t, `<html><body><div id="availability">Currently unavailable.</div></body></html>`)
		raw := e.Extract(doc, "http://x/1")
		assert.Equal(t, false, raw["in_stock"])
	})

	t.Run("status text without negation means true", func(t *testing.T) {
		doc := docFromHTML(t, `<html><body><div id="availability">Only 2 left in stock</div></body></html>`)
		raw := e.Extract(doc, "http://x/1")
		assert.Equal(t, true, raw["in_stock"])
	})

	t.Run("add to cart affordance means true", func(t *testing.T) {
		doc := docFromHTML(t, `<html><body><input id="add-to-cart-button"/></body></html>`)
		raw := e.Extract(doc, "http://x/1")
		assert.Equal(t, true, raw["in_stock"])
	})

	t.Run("no signal at all means unknown", func(t *testing.T) {
		doc := docFromHTML(t, `<html><body><p>hello</p></body></html>`)
		raw := e.Extract(doc, "http://x/1")
		assert.Nil(t, raw["in_stock"])
	})
}

func TestExtractTargetStructuredData(t *testing.T) {
	e := testExtractor(t, models.RetailerTarget)
	doc := docFromHTML(t, `<html><body>
		<h1 data-test="product-title">Keurig K-Elite Coffee Maker</h1>
		<script type="application/ld+json">
		{
			"@type": "Product",
			"image": "https://img.example/k-elite.jpg",
			"brand": {"name": "Keurig"},
			"aggregateRating": {"ratingValue": 4.3, "reviewCount": 875},
			"offers": {"price": "129.99", "availability": "https://schema.org/InStock"}
		}
		</script>
	</body></html>`)

	raw := e.Extract(doc, "https://www.target.com/p/keurig-k-elite/-/A-53737584")

	assert.Equal(t, "Keurig K-Elite Coffee Maker", raw["name"])
	assert.Equal(t, 129.99, raw["current_price"])
	assert.Equal(t, true, raw["in_stock"])
	assert.Equal(t, "Keurig", raw["brand"])
	assert.Equal(t, 4.3, raw["rating"])
	assert.Equal(t, 875, raw["review_count"])
	assert.Equal(t, "53737584", raw["product_id"])
	assert.Equal(t, "https://img.example/k-elite.jpg", raw["image_url"])
}

func TestExtractProductIDFallbacks(t *testing.T) {
	t.Run("on-page field when URL has no marker", func(t *testing.T) {
		e := testExtractor(t, models.RetailerAmazon)
		doc := docFromHTML(t, `<html><body><input name="ASIN" value="B0FALLBACK"/></body></html>`)
		raw := e.Extract(doc, "http://x/1")
		assert.Equal(t, "B0FALLBACK", raw["product_id"])
	})

	t.Run("whole-page text pattern", func(t *testing.T) {
		e := testExtractor(t, models.RetailerTesco)
		doc := docFromHTML(t, `<html><body><p>Item details TPNB: 81234567 and more</p></body></html>`)
		raw := e.Extract(doc, "https://www.tesco.com/groceries/en-GB/products/x")
		assert.Equal(t, "81234567", raw["product_id"])
	})

	t.Run("generic path segment heuristic", func(t *testing.T) {
		assert.Equal(t, "N82E16868110291", genericID("https://www.newegg.com/x/N82E16868110291"))
		assert.Equal(t, "", genericID("http://x/1"))
	})
}

func TestForURL(t *testing.T) {
	tests := []struct {
		url      string
		retailer string
		found    bool
	}{
		{"https://www.amazon.co.uk/dp/B0DGHZ1MC2", models.RetailerAmazon, true},
		{"https://www.walmart.com/ip/Instant-Pot/45918917", models.RetailerWalmart, true},
		{"https://www.newegg.com/p/N82E16868110291", models.RetailerNewegg, true},
		{"https://www.target.com/p/x/-/A-93179365", models.RetailerTarget, true},
		{"https://www.currys.co.uk/products/laptop-10226234.html", models.RetailerCurrys, true},
		{"https://www.tesco.com/groceries/en-GB/products/254656543", models.RetailerTesco, true},
		{"https://groceries.morrisons.com/products/milk/110378231", models.RetailerMorrisons, true},
		{"https://www.sainsburys.co.uk/gol-ui/product/milk-227875", models.RetailerSainsburys, true},
		{"https://www.example.com/product/1", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			rules, ok := ForURL(tt.url)
			assert.Equal(t, tt.found, ok)
			if tt.found {
				assert.Equal(t, tt.retailer, rules.Retailer)
			}
		})
	}
}

func TestRegistryCoversAllRetailers(t *testing.T) {
	names := make(map[string]bool)
	for _, rs := range Registry() {
		names[rs.Retailer] = true
		assert.NotEmpty(t, rs.Hosts, rs.Retailer)
		assert.NotEmpty(t, rs.Name.Rules, rs.Retailer)
	}
	assert.Len(t, names, 8)
}
