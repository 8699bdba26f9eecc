package scraper

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"dnanh/shopradar/helpers"
	"dnanh/shopradar/pkg/errors"
	"dnanh/shopradar/services/cache"
)

// pageDataRegex extracts the window.pageData JSON Lazada embeds in its
// search and listing pages.
var pageDataRegex = regexp.MustCompile(`(?s)window\.pageData\s*=\s*(\{.*?\})\s*</script>`)

// LazadaScraper scrapes lazada.vn through its ajax catalog endpoint, with
// embedded page metadata as the degraded path.
type LazadaScraper struct {
	baseScraper
	fetchFunc     func(ctx context.Context, url string) ([]byte, error)
	fetchHTMLFunc func(ctx context.Context, url string) ([]byte, error)
}

// NewLazadaScraper creates a Lazada scraper backed by the given cache
func NewLazadaScraper(baseURL string, cacheSvc cache.CacheService, rps float64) *LazadaScraper {
	s := &LazadaScraper{
		baseScraper: newBaseScraper(PlatformLazada, baseURL, cacheSvc, rps),
	}
	s.fetchFunc = helpers.FetchJSON
	s.fetchHTMLFunc = fetchHTMLBytes
	return s
}

// lazadaListItem is one entry of mods.listItems. Lazada serializes nearly
// everything as display strings.
type lazadaListItem struct {
	Name          string `json:"name"`
	Price         string `json:"price"`
	PriceShow     string `json:"priceShow"`
	OriginalPrice string `json:"originalPrice"`
	Discount      string `json:"discount"`
	RatingScore   string `json:"ratingScore"`
	Review        string `json:"review"`
	SellerName    string `json:"sellerName"`
	ProductURL    string `json:"productUrl"`
	Image         string `json:"image"`
	InStock       *bool  `json:"inStock"`
	FreeShipping  *bool  `json:"freeShipping"`
	OfficialStore bool   `json:"officialStore"`
}

type lazadaSearchResponse struct {
	Mods struct {
		ListItems []lazadaListItem `json:"listItems"`
	} `json:"mods"`
}

// SearchByQuery queries the ajax catalog endpoint. When the JSON payload is
// malformed (bot interception pages), the HTML search page's embedded
// pageData is tried before giving up.
func (s *LazadaScraper) SearchByQuery(ctx context.Context, q ProductQuery) []ProductCandidate {
	keyword := strings.TrimSpace(q.TitleHint)
	if keyword == "" {
		return nil
	}

	if cached := s.cachedSearch(keyword); cached != nil {
		return cached
	}

	searchURL := fmt.Sprintf("%s/catalog/?ajax=true&q=%s", s.baseURL, url.QueryEscape(keyword))
	if !s.pathAllowed(searchURL) {
		return nil
	}

	if err := s.acquire(ctx); err != nil {
		return nil
	}
	body, err := s.fetchFunc(ctx, searchURL)
	s.release()
	if err != nil {
		if !abortedByContext(ctx) {
			s.log.Warn().Err(s.classifyFetchError(err)).Str("keyword", keyword).Msg("Lazada search fetch failed")
		}
		return nil
	}

	var resp lazadaSearchResponse
	if err := json.Unmarshal(body, &resp); err != nil || len(resp.Mods.ListItems) == 0 {
		// Bot interception returns an HTML page; pageData may still be inside.
		if match := pageDataRegex.FindSubmatch(body); match != nil {
			if err := json.Unmarshal(match[1], &resp); err != nil {
				s.log.Warn().Err(errors.NewParsing(s.platform, "embedded pageData malformed", err)).Str("keyword", keyword).Msg("Lazada pageData malformed")
				return nil
			}
		}
	}

	candidates := make([]ProductCandidate, 0, len(resp.Mods.ListItems))
	for _, item := range resp.Mods.ListItems {
		if c := s.normalizeItem(item); c != nil {
			candidates = append(candidates, *c)
		}
		if len(candidates) >= maxSearchResults {
			break
		}
	}

	s.storeSearch(keyword, candidates)
	return candidates
}

// GetByURL fetches the product page and recovers the listing from its
// embedded metadata.
func (s *LazadaScraper) GetByURL(ctx context.Context, q ProductQuery) *ProductCandidate {
	if q.Platform != "" && q.Platform != PlatformLazada {
		return nil
	}
	if q.CanonicalURL == "" || !s.pathAllowed(q.CanonicalURL) {
		return nil
	}

	if err := s.acquire(ctx); err != nil {
		return nil
	}
	body, err := s.fetchHTMLFunc(ctx, q.CanonicalURL)
	s.release()
	if err != nil {
		if !abortedByContext(ctx) {
			s.log.Warn().Err(s.classifyFetchError(err)).Str("url", q.CanonicalURL).Msg("Lazada page fetch failed")
		}
		return nil
	}

	meta := parseEmbeddedProduct(strings.NewReader(string(body)))
	if meta == nil {
		s.log.Warn().Str("url", q.CanonicalURL).Msg("Lazada page carried no product metadata")
		return nil
	}

	c := &ProductCandidate{
		Platform:     PlatformLazada,
		Title:        meta.Title,
		Price:        normalizePrice(meta.Price),
		ShopName:     meta.SellerName,
		ShopRating:   meta.Rating,
		SoldCount:    meta.ReviewCount,
		ProductURL:   q.CanonicalURL,
		ThumbnailURL: meta.Image,
		IsOutOfStock: invertStock(meta.InStock),
	}
	return c
}

func (s *LazadaScraper) normalizeItem(item lazadaListItem) *ProductCandidate {
	if item.Name == "" {
		return nil
	}

	price := parsePriceString(item.Price)
	if price == 0 {
		price = parsePriceString(item.PriceShow)
	}

	c := &ProductCandidate{
		Platform:     PlatformLazada,
		Title:        item.Name,
		Price:        normalizePrice(price),
		ShopName:     item.SellerName,
		SoldCount:    parseLeadingInt(item.Review),
		ProductURL:   absoluteURL(item.ProductURL),
		ThumbnailURL: item.Image,
		IsOutOfStock: invertStock(item.InStock),
		IsFreeShip:   item.FreeShipping,
		SellerType:   "reseller",
	}

	if rating, err := strconv.ParseFloat(item.RatingScore, 64); err == nil {
		c.ShopRating = rating
	}
	if item.OfficialStore || strings.Contains(strings.ToLower(item.SellerName), "official") {
		c.SellerType = "official"
	}
	if original := parsePriceString(item.OriginalPrice); original > 0 {
		normalized := normalizePrice(original)
		c.OriginalPrice = &normalized
	}
	if pct := parseLeadingInt(strings.TrimLeft(item.Discount, "-")); pct > 0 && pct <= 100 {
		discount := float64(pct) / 100
		c.DiscountPercent = &discount
	}

	return c
}

// parseLeadingInt reads the integer prefix of strings like "120 reviews"
// or "15% Off".
func parseLeadingInt(s string) int {
	s = strings.TrimSpace(s)
	end := 0
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == 0 {
		return 0
	}
	n, _ := strconv.Atoi(s[:end])
	return n
}

// absoluteURL fixes Lazada's protocol-relative product links.
func absoluteURL(u string) string {
	if strings.HasPrefix(u, "//") {
		return "https:" + u
	}
	return u
}
