package scraper

import "context"

// Platform tags for the supported marketplaces. An empty platform on a
// query means "all platforms".
const (
	PlatformShopee = "shopee"
	PlatformLazada = "lazada"
	PlatformTiki   = "tiki"
)

// Labels assigned by the ranking stage. Additive: a candidate may carry
// several at once.
const (
	LabelBestDeal      = "BestDeal"
	LabelTrustedShop   = "TrustedShop"
	LabelOfficialStore = "OfficialStore"
)

// ProductQuery describes a search or direct-fetch request.
type ProductQuery struct {
	// Platform restricts the query to one marketplace; empty = all.
	Platform string `json:"platform,omitempty"`
	// ProductID is the marketplace-specific external id, may be empty.
	// For Shopee it has the form "shopid.itemid".
	ProductID string `json:"product_id,omitempty"`
	// CanonicalURL is the tracking-stripped product URL, used as a
	// deduplication and direct-fetch key.
	CanonicalURL string `json:"canonical_url,omitempty"`
	// TitleHint is a free-text search term derived from a parsed URL,
	// filename, or user keyword.
	TitleHint string `json:"title_hint,omitempty"`
	// Metadata is an open bag for paging/limit hints.
	Metadata map[string]string `json:"metadata,omitempty"`
}

// IsEmpty reports whether the query carries neither a URL nor a title hint.
// A scraper receiving such a query returns an empty result, not an error.
func (q ProductQuery) IsEmpty() bool {
	return q.CanonicalURL == "" && q.TitleHint == ""
}

// ProductCandidate is one normalized product listing gathered from a single
// marketplace. It lives for the duration of one recommendation request;
// MatchScore, FitReason and Labels are written only by the ranking stage.
type ProductCandidate struct {
	Platform        string   `json:"platform"`
	Title           string   `json:"title"`
	Price           float64  `json:"price"`
	ShippingCost    float64  `json:"shipping_cost"`
	ShopName        string   `json:"shop_name,omitempty"`
	ShopRating      float64  `json:"shop_rating"`
	SoldCount       int      `json:"sold_count"`
	ProductURL      string   `json:"product_url"`
	ThumbnailURL    string   `json:"thumbnail_url,omitempty"`
	OriginalPrice   *float64 `json:"original_price,omitempty"`
	DiscountPercent *float64 `json:"discount_percent,omitempty"`
	IsOutOfStock    *bool    `json:"is_out_of_stock,omitempty"`
	IsFreeShip      *bool    `json:"is_free_ship,omitempty"`
	SellerType      string   `json:"seller_type,omitempty"`
	MatchScore      float64  `json:"match_score,omitempty"`
	FitReason       string   `json:"fit_reason,omitempty"`
	Labels          []string `json:"labels,omitempty"`
}

// TotalCost is the effective price including shipping. Always derived,
// never stored.
func (c ProductCandidate) TotalCost() float64 {
	return c.Price + c.ShippingCost
}

// Scraper is the capability every marketplace adapter implements.
//
// Adapters uphold the degrade-to-empty contract: upstream HTTP errors and
// malformed response bodies are logged and yield an empty result, never an
// error or panic to the caller.
type Scraper interface {
	// SearchByQuery returns best-effort matching candidates for the query's
	// title hint, capped at an implementation limit.
	SearchByQuery(ctx context.Context, q ProductQuery) []ProductCandidate

	// GetByURL fetches the single-product detail endpoint for a canonical
	// URL or platform-specific product id. Returns nil when not found or on
	// platform mismatch.
	GetByURL(ctx context.Context, q ProductQuery) *ProductCandidate

	// Platform returns the marketplace tag for registry lookup and metrics.
	Platform() string
}
