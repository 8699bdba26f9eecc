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

// Shopee search prices arrive multiplied by up to 100 000 depending on the
// endpoint version; normalizePrice snaps them back into the VND band.

// ShopeeScraper scrapes shopee.vn through its JSON search and item APIs.
type ShopeeScraper struct {
	baseScraper
	fetchFunc     func(ctx context.Context, url string) ([]byte, error)
	fetchHTMLFunc func(ctx context.Context, url string) ([]byte, error)
}

// NewShopeeScraper creates a Shopee scraper backed by the given cache
func NewShopeeScraper(baseURL string, cacheSvc cache.CacheService, rps float64) *ShopeeScraper {
	s := &ShopeeScraper{
		baseScraper: newBaseScraper(PlatformShopee, baseURL, cacheSvc, rps),
	}
	s.fetchFunc = helpers.FetchJSON
	s.fetchHTMLFunc = fetchHTMLBytes
	return s
}

type shopeeItem struct {
	ItemID              int64   `json:"itemid"`
	ShopID              int64   `json:"shopid"`
	Name                string  `json:"name"`
	Price               float64 `json:"price"`
	PriceBeforeDiscount float64 `json:"price_before_discount"`
	RawDiscount         float64 `json:"raw_discount"`
	ShopRating          float64 `json:"shop_rating"`
	HistoricalSold      int     `json:"historical_sold"`
	Image               string  `json:"image"`
	ShopName            string  `json:"shop_name"`
	IsOfficialShop      bool    `json:"is_official_shop"`
	ShowFreeShipping    bool    `json:"show_free_shipping"`
	Stock               int     `json:"stock"`
}

type shopeeSearchResponse struct {
	Items []struct {
		ItemBasic shopeeItem `json:"item_basic"`
	} `json:"items"`
}

type shopeeItemResponse struct {
	Data *shopeeItem `json:"data"`
}

// SearchByQuery searches Shopee's search_items endpoint for the title hint.
func (s *ShopeeScraper) SearchByQuery(ctx context.Context, q ProductQuery) []ProductCandidate {
	keyword := strings.TrimSpace(q.TitleHint)
	if keyword == "" {
		return nil
	}

	if cached := s.cachedSearch(keyword); cached != nil {
		return cached
	}

	searchURL := fmt.Sprintf("%s/api/v4/search/search_items?by=relevancy&keyword=%s&limit=%d&newest=0&order=desc&page_type=search",
		s.baseURL, url.QueryEscape(keyword), maxSearchResults)
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
			s.log.Warn().Err(s.classifyFetchError(err)).Str("keyword", keyword).Msg("Shopee search fetch failed")
		}
		return nil
	}

	var resp shopeeSearchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		s.log.Warn().Err(errors.NewParsing(s.platform, "payload malformed", err)).Str("keyword", keyword).Msg("Shopee search payload malformed")
		return nil
	}

	candidates := make([]ProductCandidate, 0, len(resp.Items))
	for _, item := range resp.Items {
		if c := s.normalizeItem(item.ItemBasic); c != nil {
			candidates = append(candidates, *c)
		}
		if len(candidates) >= maxSearchResults {
			break
		}
	}

	s.storeSearch(keyword, candidates)
	return candidates
}

// GetByURL fetches one item through the item detail API. The query's
// ProductID carries "shopid.itemid" as produced by the link processor.
func (s *ShopeeScraper) GetByURL(ctx context.Context, q ProductQuery) *ProductCandidate {
	if q.Platform != "" && q.Platform != PlatformShopee {
		return nil
	}

	shopID, itemID, err := splitShopeeID(q.ProductID)
	if err != nil {
		return nil
	}

	itemURL := fmt.Sprintf("%s/api/v4/item/get?itemid=%s&shopid=%s", s.baseURL, itemID, shopID)
	if !s.pathAllowed(itemURL) {
		return nil
	}

	if err := s.acquire(ctx); err != nil {
		return nil
	}
	body, err := s.fetchFunc(ctx, itemURL)
	s.release()
	if err != nil {
		if !abortedByContext(ctx) {
			s.log.Warn().Err(s.classifyFetchError(err)).Str("item", q.ProductID).Msg("Shopee item fetch failed")
		}
		return s.getByPageMetadata(ctx, q)
	}

	var resp shopeeItemResponse
	if err := json.Unmarshal(body, &resp); err != nil || resp.Data == nil {
		s.log.Warn().Str("item", q.ProductID).Msg("Shopee item payload malformed, trying page metadata")
		return s.getByPageMetadata(ctx, q)
	}

	return s.normalizeItem(*resp.Data)
}

// getByPageMetadata is the degraded path: fetch the product page itself and
// recover what the embedded JSON-LD/meta tags provide.
func (s *ShopeeScraper) getByPageMetadata(ctx context.Context, q ProductQuery) *ProductCandidate {
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
			s.log.Warn().Err(s.classifyFetchError(err)).Str("url", q.CanonicalURL).Msg("Shopee page fetch failed")
		}
		return nil
	}

	meta := parseEmbeddedProduct(strings.NewReader(string(body)))
	if meta == nil {
		return nil
	}

	return &ProductCandidate{
		Platform:     PlatformShopee,
		Title:        meta.Title,
		Price:        normalizePrice(meta.Price),
		ShopRating:   meta.Rating,
		SoldCount:    meta.ReviewCount,
		ProductURL:   q.CanonicalURL,
		ThumbnailURL: meta.Image,
		ShopName:     meta.SellerName,
		IsOutOfStock: invertStock(meta.InStock),
	}
}

func (s *ShopeeScraper) normalizeItem(item shopeeItem) *ProductCandidate {
	if item.Name == "" {
		return nil
	}

	c := &ProductCandidate{
		Platform:     PlatformShopee,
		Title:        item.Name,
		Price:        normalizePrice(item.Price),
		ShopName:     item.ShopName,
		ShopRating:   item.ShopRating,
		SoldCount:    item.HistoricalSold,
		ProductURL:   fmt.Sprintf("%s/product/%d/%d", s.baseURL, item.ShopID, item.ItemID),
		ThumbnailURL: "https://down-vn.img.susercontent.com/file/" + item.Image,
		SellerType:   "reseller",
	}

	if item.IsOfficialShop {
		c.SellerType = "official"
	}
	if item.PriceBeforeDiscount > 0 {
		original := normalizePrice(item.PriceBeforeDiscount)
		c.OriginalPrice = &original
	}
	if item.RawDiscount > 0 {
		discount := item.RawDiscount / 100
		c.DiscountPercent = &discount
	}
	outOfStock := item.Stock == 0
	c.IsOutOfStock = &outOfStock
	freeShip := item.ShowFreeShipping
	c.IsFreeShip = &freeShip

	return c
}

// splitShopeeID splits a "shopid.itemid" product id.
func splitShopeeID(id string) (shopID, itemID string, err error) {
	shopID, err = helpers.GetSplitPart(id, ".", 0)
	if err != nil {
		return "", "", err
	}
	itemID, err = helpers.GetSplitPart(id, ".", 1)
	if err != nil {
		return "", "", err
	}
	if shopID == "" || itemID == "" {
		return "", "", fmt.Errorf("incomplete shopee id: %q", id)
	}
	return shopID, itemID, nil
}

func invertStock(inStock *bool) *bool {
	if inStock == nil {
		return nil
	}
	out := !*inStock
	return &out
}
