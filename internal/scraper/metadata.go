package scraper

import (
	"encoding/json"
	"io"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// embeddedProduct holds whatever product fields could be recovered from a
// page's embedded metadata (JSON-LD blocks, then meta tags) after the
// structured JSON extraction path has failed.
type embeddedProduct struct {
	Title       string
	Price       float64
	Image       string
	URL         string
	Rating      float64
	ReviewCount int
	SellerName  string
	InStock     *bool
}

// jsonLDProduct mirrors the schema.org Product shape marketplaces embed in
// script[type="application/ld+json"] blocks.
type jsonLDProduct struct {
	Type   string `json:"@type"`
	Name   string `json:"name"`
	Image  any    `json:"image"`
	URL    string `json:"url"`
	Offers struct {
		Price        any    `json:"price"`
		PriceCurrency string `json:"priceCurrency"`
		Availability string `json:"availability"`
		URL          string `json:"url"`
	} `json:"offers"`
	AggregateRating struct {
		RatingValue any `json:"ratingValue"`
		ReviewCount any `json:"reviewCount"`
	} `json:"aggregateRating"`
	Brand struct {
		Name string `json:"name"`
	} `json:"brand"`
}

// parseEmbeddedProduct recovers product metadata from an HTML document.
// JSON-LD product blocks are preferred; og:/product: meta tags fill any
// fields still missing. Returns nil when neither source yields a title.
func parseEmbeddedProduct(r io.Reader) *embeddedProduct {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil
	}

	product := &embeddedProduct{}

	doc.Find(`script[type="application/ld+json"]`).EachWithBreak(func(i int, s *goquery.Selection) bool {
		var ld jsonLDProduct
		if err := json.Unmarshal([]byte(s.Text()), &ld); err != nil {
			return true
		}
		if !strings.EqualFold(ld.Type, "Product") {
			return true
		}

		product.Title = ld.Name
		product.URL = ld.URL
		product.Price = anyToFloat(ld.Offers.Price)
		product.Rating = anyToFloat(ld.AggregateRating.RatingValue)
		product.ReviewCount = int(anyToFloat(ld.AggregateRating.ReviewCount))
		product.Image = firstImage(ld.Image)
		product.SellerName = ld.Brand.Name

		if ld.Offers.Availability != "" {
			inStock := strings.Contains(ld.Offers.Availability, "InStock")
			product.InStock = &inStock
		}

		return false
	})

	// Meta tags fill the gaps
	if product.Title == "" {
		product.Title, _ = doc.Find(`meta[property="og:title"]`).Attr("content")
	}
	if product.Image == "" {
		product.Image, _ = doc.Find(`meta[property="og:image"]`).Attr("content")
	}
	if product.URL == "" {
		product.URL, _ = doc.Find(`meta[property="og:url"]`).Attr("content")
	}
	if product.Price == 0 {
		if content, ok := doc.Find(`meta[property="product:price:amount"]`).Attr("content"); ok {
			product.Price = parsePriceString(content)
		}
	}
	if product.Price == 0 {
		if content, ok := doc.Find(`meta[itemprop="price"]`).Attr("content"); ok {
			product.Price = parsePriceString(content)
		}
	}

	if product.Title == "" {
		return nil
	}

	return product
}

// parsePriceString extracts a numeric price from display strings such as
// "₫1.299.000", "1,299,000đ" or "1299000". Separator dots/commas are
// thousands separators in VND display prices, never decimals.
func parsePriceString(s string) float64 {
	var digits strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	if digits.Len() == 0 {
		return 0
	}

	v, err := strconv.ParseFloat(digits.String(), 64)
	if err != nil {
		return 0
	}
	return v
}

func anyToFloat(v any) float64 {
	switch t := v.(type) {
	case float64:
		return t
	case string:
		f, err := strconv.ParseFloat(t, 64)
		if err != nil {
			return parsePriceString(t)
		}
		return f
	default:
		return 0
	}
}

func firstImage(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case []any:
		if len(t) > 0 {
			if s, ok := t[0].(string); ok {
				return s
			}
		}
	}
	return ""
}
