package parser

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/pricewatch/price-scraper/internal/models"
)

// Selector locations below track the retailer page layouts these rules
// were written against; they are expected to rot and the ordered
// fallback chains are the only mitigation.

var registry = []RuleSet{
	amazonRules(),
	walmartRules(),
	neweggRules(),
	targetRules(),
	currysRules(),
	tescoRules(),
	morrisonsRules(),
	sainsburysRules(),
}

// Registry returns every known retailer rule set.
func Registry() []RuleSet {
	out := make([]RuleSet, len(registry))
	copy(out, registry)
	return out
}

// ForRetailer returns the rule set for a retailer name.
func ForRetailer(name string) (RuleSet, bool) {
	for _, rs := range registry {
		if strings.EqualFold(rs.Retailer, name) {
			return rs, true
		}
	}
	return RuleSet{}, false
}

// ForURL picks the rule set whose host fragment matches the URL.
func ForURL(rawURL string) (RuleSet, bool) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return RuleSet{}, false
	}
	host := strings.ToLower(u.Hostname())
	for _, rs := range registry {
		for _, h := range rs.Hosts {
			if strings.Contains(host, h) {
				return rs, true
			}
		}
	}
	return RuleSet{}, false
}

func amazonRules() RuleSet {
	return RuleSet{
		Retailer: models.RetailerAmazon,
		Hosts:    []string{"amazon."},
		Name: FieldRules{
			Rules: []Rule{{Selector: "#productTitle"}},
		},
		CurrentPrice: FieldRules{
			Rules: []Rule{
				{Selector: ".a-price .a-offscreen"},
				{Selector: "#priceblock_ourprice"},
				{Selector: "#priceblock_dealprice"},
				{Selector: ".a-price-whole"},
			},
		},
		OriginalPrice: FieldRules{
			Rules: []Rule{{Selector: ".a-text-price .a-offscreen"}},
		},
		Brand: FieldRules{
			Rules:   []Rule{{Selector: "#bylineInfo"}},
			Pattern: regexp.MustCompile(`(?i)(?:visit the|by|brand:)[:\s]*(.+?)(?:\s+store)?$`),
		},
		Rating: FieldRules{
			Rules: []Rule{
				{Selector: "#acrPopover", Attr: "title"},
				{Selector: "span.a-icon-alt"},
			},
		},
		ReviewCount: FieldRules{
			Rules: []Rule{{Selector: "#acrCustomerReviewText"}},
		},
		Image: FieldRules{
			Rules: []Rule{{Selector: "#landingImage", Attr: "src"}},
		},
		Stock: StockRules{
			Status:    []Rule{{Selector: "#availability"}},
			AddToCart: []Rule{{Selector: "#add-to-cart-button"}},
		},
		ProductID: IDRules{
			URLPattern: regexp.MustCompile(`/dp/([A-Z0-9]{10})`),
			Rules: []Rule{
				{Selector: `input[name="ASIN"]`, Attr: "value"},
				{Selector: `input[name="asin"]`, Attr: "value"},
			},
		},
		Breadcrumbs: Rule{Selector: "#wayfinding-breadcrumbs_feature_div .a-list-item"},
		Features:    Rule{Selector: "#feature-bullets li"},
	}
}

func walmartRules() RuleSet {
	return RuleSet{
		Retailer: models.RetailerWalmart,
		Hosts:    []string{"walmart."},
		Name: FieldRules{
			Rules: []Rule{
				{Selector: `h1[data-automation="product-title"]`},
				{Selector: "h1.prod-ProductTitle"},
				{Selector: "h1.lh-copy"},
			},
		},
		CurrentPrice: FieldRules{
			JSONLD: "offers.price",
			Rules: []Rule{
				{Selector: `span[data-automation="buybox-price"]`},
				{Selector: "span.price-characteristic"},
				{Selector: `span[itemprop="price"]`},
				{Selector: `[data-testid="price-value"]`},
			},
		},
		OriginalPrice: FieldRules{
			Rules: []Rule{
				{Selector: `span[data-automation="strikethrough-price"]`},
				{Selector: "span.price-old"},
			},
		},
		Brand: FieldRules{
			JSONLD: "brand.name",
			Rules:  []Rule{{Selector: `a[data-automation="product-brand"]`}},
		},
		Rating: FieldRules{
			JSONLD: "aggregateRating.ratingValue",
			Rules:  []Rule{{Selector: `span[data-testid="reviews-rating"]`}},
		},
		ReviewCount: FieldRules{
			JSONLD: "aggregateRating.reviewCount",
			Rules:  []Rule{{Selector: `a[data-testid="item-review-section-link"]`}},
		},
		Image: FieldRules{
			Rules: []Rule{{Selector: `img[data-testid="primary-image"]`, Attr: "src"}},
		},
		Stock: StockRules{
			JSONLD: "offers.availability",
			AddToCart: []Rule{
				{Selector: `button[data-testid="add-to-cart-button"]`},
				{Selector: "button.add-to-cart-btn"},
			},
		},
		ProductID: IDRules{
			URLPattern: regexp.MustCompile(`/ip/(?:[^/]+/)?(\d+)`),
		},
		Breadcrumbs: Rule{Selector: `nav[aria-label="breadcrumb"] li`},
	}
}

func neweggRules() RuleSet {
	return RuleSet{
		Retailer: models.RetailerNewegg,
		Hosts:    []string{"newegg."},
		Name: FieldRules{
			Rules: []Rule{
				{Selector: "h1.product-title"},
				{Selector: `h1[itemprop="name"]`},
				{Selector: "h1.product-name"},
			},
		},
		CurrentPrice: FieldRules{
			Rules: []Rule{
				{Selector: "li.price-current strong"},
				{Selector: "li.price-current"},
				{Selector: `span[data-testid="item-price"]`},
			},
		},
		OriginalPrice: FieldRules{
			Rules: []Rule{{Selector: "li.price-was"}},
		},
		Brand: FieldRules{
			Rules: []Rule{{Selector: "div.product-view-brand img", Attr: "alt"}},
		},
		Rating: FieldRules{
			Rules: []Rule{{Selector: "i.rating", Attr: "aria-label"}},
		},
		ReviewCount: FieldRules{
			Rules: []Rule{{Selector: "span.item-rating-num"}},
		},
		Image: FieldRules{
			Rules: []Rule{{Selector: "div.swiper-zoom-container img", Attr: "src"}},
		},
		Stock: StockRules{
			Status: []Rule{
				{Selector: "div.product-inventory strong"},
				{Selector: "div.product-inventory"},
			},
			AddToCart: []Rule{{Selector: "div.product-buy button.btn-primary"}},
		},
		ProductID: IDRules{
			URLPattern: regexp.MustCompile(`/p/([A-Za-z0-9-]+)`),
		},
		Breadcrumbs: Rule{Selector: "ol.breadcrumb li"},
		Features:    Rule{Selector: "div.product-bullets li"},
	}
}

func targetRules() RuleSet {
	return RuleSet{
		Retailer: models.RetailerTarget,
		Hosts:    []string{"target."},
		Name: FieldRules{
			Rules: []Rule{
				{Selector: `h1[data-test="product-title"]`},
				{Selector: `span[data-test="product-title"]`},
			},
		},
		// Target renders through React; structured data is the reliable
		// source and the DOM selectors are the fallback.
		CurrentPrice: FieldRules{
			JSONLD: "offers.price",
			Rules: []Rule{
				{Selector: `span[data-test="product-price"]`},
				{Selector: `div[data-test="product-price"] span`},
			},
		},
		OriginalPrice: FieldRules{
			Rules: []Rule{{Selector: `span[data-test="product-regular-price"]`}},
		},
		Brand: FieldRules{
			JSONLD: "brand.name",
			Rules:  []Rule{{Selector: `a[data-test="brand-link"]`}},
		},
		Rating: FieldRules{
			JSONLD: "aggregateRating.ratingValue",
			Rules:  []Rule{{Selector: `span[data-test="rating-value"]`}},
		},
		ReviewCount: FieldRules{
			JSONLD: "aggregateRating.reviewCount",
			Rules:  []Rule{{Selector: `span[data-test="rating-count"]`}},
		},
		Image: FieldRules{
			JSONLD: "image",
			Rules:  []Rule{{Selector: `img[data-test="product-image"]`, Attr: "src"}},
		},
		Stock: StockRules{
			JSONLD: "offers.availability",
			AddToCart: []Rule{
				{Selector: `button[data-test="shipItButton"]`},
				{Selector: `button[data-test="orderPickupButton"]`},
			},
		},
		ProductID: IDRules{
			URLPattern: regexp.MustCompile(`/-/A-(\d+)`),
		},
		Breadcrumbs: Rule{Selector: `nav[data-test="breadcrumb"] li`},
	}
}

func currysRules() RuleSet {
	return RuleSet{
		Retailer: models.RetailerCurrys,
		Hosts:    []string{"currys."},
		Name: FieldRules{
			Rules: []Rule{{Selector: "h1.product-title"}},
		},
		CurrentPrice: FieldRules{
			Rules:   []Rule{{Selector: "span.current"}},
			Pattern: regexp.MustCompile(`£([\d,]+\.\d+)`),
		},
		OriginalPrice: FieldRules{
			Rules:   []Rule{{Selector: "span.was"}},
			Pattern: regexp.MustCompile(`£([\d,]+\.\d+)`),
		},
		Brand: FieldRules{
			Rules: []Rule{{Selector: "span.brand-name"}},
		},
		Rating: FieldRules{
			Rules: []Rule{{Selector: ".rating", Attr: "data-rating"}},
		},
		ReviewCount: FieldRules{
			Rules: []Rule{{Selector: ".review-count"}},
		},
		Stock: StockRules{
			Status:    []Rule{{Selector: ".stock-status"}},
			AddToCart: []Rule{{Selector: ".delivery-available"}},
		},
		ProductID: IDRules{
			Rules:      []Rule{{Selector: ".product-sku span"}},
			URLPattern: regexp.MustCompile(`(\d{10})`),
		},
		Features: Rule{Selector: "div.key-specs ul li"},
	}
}

func tescoRules() RuleSet {
	return RuleSet{
		Retailer: models.RetailerTesco,
		Hosts:    []string{"tesco."},
		Name: FieldRules{
			Rules: []Rule{{Selector: "h1.product-details-tile__title"}},
		},
		CurrentPrice: FieldRules{
			Rules: []Rule{{Selector: "div.price-control-wrapper span.value"}},
		},
		OriginalPrice: FieldRules{
			Rules: []Rule{{Selector: "div.price-control-wrapper span.strike-through"}},
		},
		Brand: FieldRules{
			Rules: []Rule{{Selector: "a.product-brand"}},
		},
		Rating: FieldRules{
			Rules: []Rule{{Selector: "div.review-overview span.average-rating"}},
		},
		ReviewCount: FieldRules{
			Rules: []Rule{{Selector: "div.review-overview a.review-count"}},
		},
		Stock: StockRules{
			Status: []Rule{{Selector: "div.stock-wrapper span.stock-message"}},
		},
		ProductID: IDRules{
			// Tesco prints its product number in prose, not the URL.
			TextPattern: regexp.MustCompile(`TPNB: (\d+)`),
		},
		Features: Rule{Selector: "div.product-info-block ul.product-features li"},
	}
}

func morrisonsRules() RuleSet {
	return RuleSet{
		Retailer: models.RetailerMorrisons,
		Hosts:    []string{"morrisons."},
		Name: FieldRules{
			Rules: []Rule{{Selector: "h1.bop-title"}},
		},
		CurrentPrice: FieldRules{
			Rules: []Rule{{Selector: "span.bop-price__current"}},
		},
		OriginalPrice: FieldRules{
			Rules:   []Rule{{Selector: "span.bop-price__was"}},
			Pattern: regexp.MustCompile(`£(\d+\.\d+)`),
		},
		Brand: FieldRules{
			Rules: []Rule{{Selector: "div.bop-brand"}},
		},
		Rating: FieldRules{
			Rules: []Rule{{Selector: ".bop-stars__rating"}},
		},
		ReviewCount: FieldRules{
			Rules: []Rule{{Selector: "span.bop-reviews__count"}},
		},
		Stock: StockRules{
			Status: []Rule{{Selector: ".bop-stock__message"}},
		},
		ProductID: IDRules{
			URLPattern: regexp.MustCompile(`/product/(\d+)`),
			Rules:      []Rule{{Selector: "span.bop-sku"}},
		},
	}
}

func sainsburysRules() RuleSet {
	return RuleSet{
		Retailer: models.RetailerSainsburys,
		Hosts:    []string{"sainsburys."},
		Name: FieldRules{
			Rules: []Rule{{Selector: "h1.pd__header"}},
		},
		CurrentPrice: FieldRules{
			Rules:   []Rule{{Selector: "div.pd__cost__total"}},
			Pattern: regexp.MustCompile(`£(\d+\.\d+)`),
		},
		OriginalPrice: FieldRules{
			Rules:   []Rule{{Selector: "div.pd__cost__was-price"}},
			Pattern: regexp.MustCompile(`£(\d+\.\d+)`),
		},
		Brand: FieldRules{
			Rules: []Rule{{Selector: "a.pd__brand"}},
		},
		Rating: FieldRules{
			Rules: []Rule{{Selector: "div.pd-reviews__summary .review__star-rating", Attr: "title"}},
		},
		ReviewCount: FieldRules{
			Rules: []Rule{{Selector: "div.pd-reviews__summary .review__count"}},
		},
		Stock: StockRules{
			Status: []Rule{{Selector: "div.pd__availability"}},
		},
		ProductID: IDRules{
			URLPattern: regexp.MustCompile(`/(\d+)$`),
		},
	}
}
