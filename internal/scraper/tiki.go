package scraper

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"dnanh/shopradar/helpers"
	"dnanh/shopradar/pkg/errors"
	"dnanh/shopradar/services/cache"
)

// TikiScraper scrapes tiki.vn through its public listing API. Tiki is the
// friendliest of the three upstreams: plain JSON, prices already in VND.
type TikiScraper struct {
	baseScraper
	fetchFunc func(ctx context.Context, url string) ([]byte, error)
}

// NewTikiScraper creates a Tiki scraper backed by the given cache
func NewTikiScraper(baseURL string, cacheSvc cache.CacheService, rps float64) *TikiScraper {
	s := &TikiScraper{
		baseScraper: newBaseScraper(PlatformTiki, baseURL, cacheSvc, rps),
	}
	s.fetchFunc = helpers.FetchJSON
	return s
}

type tikiProduct struct {
	ID            int64   `json:"id"`
	Name          string  `json:"name"`
	URLPath       string  `json:"url_path"`
	Price         float64 `json:"price"`
	OriginalPrice float64 `json:"original_price"`
	DiscountRate  float64 `json:"discount_rate"`
	RatingAverage float64 `json:"rating_average"`
	ReviewCount   int     `json:"review_count"`
	QuantitySold  *struct {
		Value int `json:"value"`
	} `json:"quantity_sold"`
	ThumbnailURL    string `json:"thumbnail_url"`
	SellerName      string `json:"seller_name"`
	InventoryStatus string `json:"inventory_status"`
	CurrentSeller   *struct {
		Name         string `json:"name"`
		IsBestStore  bool   `json:"is_best_store"`
		StoreLevel   string `json:"store_level"`
		FreeShipping bool   `json:"is_freeship_xtra"`
	} `json:"current_seller"`
}

type tikiSearchResponse struct {
	Data []tikiProduct `json:"data"`
}

// SearchByQuery queries the listing API for the title hint.
func (s *TikiScraper) SearchByQuery(ctx context.Context, q ProductQuery) []ProductCandidate {
	keyword := strings.TrimSpace(q.TitleHint)
	if keyword == "" {
		return nil
	}

	if cached := s.cachedSearch(keyword); cached != nil {
		return cached
	}

	searchURL := fmt.Sprintf("%s/api/v2/products?limit=%d&q=%s", s.baseURL, maxSearchResults, url.QueryEscape(keyword))
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
			s.log.Warn().Err(s.classifyFetchError(err)).Str("keyword", keyword).Msg("Tiki search fetch failed")
		}
		return nil
	}

	var resp tikiSearchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		s.log.Warn().Err(errors.NewParsing(s.platform, "payload malformed", err)).Str("keyword", keyword).Msg("Tiki search payload malformed")
		return nil
	}

	candidates := make([]ProductCandidate, 0, len(resp.Data))
	for _, item := range resp.Data {
		if c := s.normalizeProduct(item); c != nil {
			candidates = append(candidates, *c)
		}
		if len(candidates) >= maxSearchResults {
			break
		}
	}

	s.storeSearch(keyword, candidates)
	return candidates
}

// GetByURL fetches one product through the detail API using the numeric id
// extracted by the link processor.
func (s *TikiScraper) GetByURL(ctx context.Context, q ProductQuery) *ProductCandidate {
	if q.Platform != "" && q.Platform != PlatformTiki {
		return nil
	}
	if q.ProductID == "" {
		return nil
	}

	detailURL := fmt.Sprintf("%s/api/v2/products/%s", s.baseURL, url.PathEscape(q.ProductID))
	if !s.pathAllowed(detailURL) {
		return nil
	}

	if err := s.acquire(ctx); err != nil {
		return nil
	}
	body, err := s.fetchFunc(ctx, detailURL)
	s.release()
	if err != nil {
		if !abortedByContext(ctx) {
			s.log.Warn().Err(s.classifyFetchError(err)).Str("product_id", q.ProductID).Msg("Tiki product fetch failed")
		}
		return nil
	}

	var product tikiProduct
	if err := json.Unmarshal(body, &product); err != nil || product.ID == 0 {
		s.log.Warn().Str("product_id", q.ProductID).Msg("Tiki product payload malformed")
		return nil
	}

	return s.normalizeProduct(product)
}

func (s *TikiScraper) normalizeProduct(item tikiProduct) *ProductCandidate {
	if item.Name == "" {
		return nil
	}

	c := &ProductCandidate{
		Platform:     PlatformTiki,
		Title:        item.Name,
		Price:        normalizePrice(item.Price),
		ShopName:     item.SellerName,
		ShopRating:   item.RatingAverage,
		SoldCount:    item.ReviewCount,
		ProductURL:   fmt.Sprintf("%s/%s", s.baseURL, strings.TrimPrefix(item.URLPath, "/")),
		ThumbnailURL: item.ThumbnailURL,
		SellerType:   "reseller",
	}

	if item.QuantitySold != nil && item.QuantitySold.Value > 0 {
		c.SoldCount = item.QuantitySold.Value
	}
	if item.CurrentSeller != nil {
		if item.CurrentSeller.Name != "" {
			c.ShopName = item.CurrentSeller.Name
		}
		if item.CurrentSeller.FreeShipping {
			freeShip := true
			c.IsFreeShip = &freeShip
		}
	}
	if strings.EqualFold(c.ShopName, "tiki trading") || strings.Contains(strings.ToLower(c.ShopName), "official") {
		c.SellerType = "official"
	}
	if item.OriginalPrice > 0 {
		original := normalizePrice(item.OriginalPrice)
		c.OriginalPrice = &original
	}
	if item.DiscountRate > 0 {
		discount := item.DiscountRate / 100
		c.DiscountPercent = &discount
	}
	if item.InventoryStatus != "" {
		outOfStock := !strings.EqualFold(item.InventoryStatus, "available")
		c.IsOutOfStock = &outOfStock
	}

	return c
}
