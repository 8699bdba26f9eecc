package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"dnanh/shopradar/internal/recommend"
	"dnanh/shopradar/internal/scraper"
	"dnanh/shopradar/services/cache"
	"dnanh/shopradar/services/metrics"

	"github.com/stretchr/testify/assert"
)

const shopeeSearchFixture = `{
	"items": [
		{"item_basic": {
			"itemid": 7392710521,
			"shopid": 88201679,
			"name": "Tai nghe Bluetooth ABC Pro",
			"price": 249000000000,
			"shop_rating": 4.9,
			"historical_sold": 1200,
			"shop_name": "ABC Official Store",
			"is_official_shop": true,
			"stock": 10
		}}
	]
}`

const lazadaSearchFixture = `{
	"mods": {
		"listItems": [
			{
				"name": "Tai nghe Bluetooth ABC Pro",
				"price": "2390000",
				"ratingScore": "4.7",
				"review": "321 reviews",
				"sellerName": "ABC Vietnam",
				"productUrl": "//www.lazada.vn/products/tai-nghe-i123.html"
			}
		]
	}
}`

const tikiSearchFixture = `{
	"data": [
		{
			"id": 187979129,
			"name": "Tai nghe Bluetooth ABC Pro",
			"url_path": "tai-nghe-bluetooth-abc-pro-p187979129.html",
			"price": 2290000,
			"rating_average": 4.8,
			"review_count": 540,
			"seller_name": "Tiki Trading",
			"inventory_status": "available"
		}
	]
}`

// newMarketplaceServer serves canned search responses for all three
// marketplace API shapes so the real adapters can be driven end to end.
func newMarketplaceServer(t *testing.T) *httptest.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v4/search/search_items", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(shopeeSearchFixture))
	})
	mux.HandleFunc("/catalog/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(lazadaSearchFixture))
	})
	mux.HandleFunc("/api/v2/products", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(tikiSearchFixture))
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func TestSearchPipelineEndToEnd(t *testing.T) {
	server := newMarketplaceServer(t)
	cacheSvc := cache.NewMemoryCache()

	scrapers := []scraper.Scraper{
		scraper.NewShopeeScraper(server.URL, cacheSvc, 100),
		scraper.NewLazadaScraper(server.URL, cacheSvc, 100),
		scraper.NewTikiScraper(server.URL, cacheSvc, 100),
	}

	m := metrics.NewService()
	opts := recommend.DefaultOptions()
	opts.BranchTimeout = 2 * time.Second
	svc := recommend.NewService(scrapers, m, opts)
	search := recommend.NewMultiPlatformSearchService(svc)

	results := search.Search(context.Background(), "tai nghe bluetooth", 10)
	assert.Len(t, results, 3, "one candidate per marketplace")

	// Tiki's listing is the cheapest total cost: it leads and owns BestDeal
	assert.Equal(t, scraper.PlatformTiki, results[0].Platform)
	assert.Contains(t, results[0].Labels, scraper.LabelBestDeal)

	// Every candidate was scored against the keyword
	for _, c := range results {
		assert.Greater(t, c.MatchScore, 0.0, c.Platform)
		assert.Contains(t, c.FitReason, "Tên khớp", c.Platform)
	}

	// The absurdly encoded Shopee price snapped back into the price band
	for _, c := range results {
		if c.Platform == scraper.PlatformShopee {
			assert.Equal(t, float64(24_900_000), c.Price)
		}
	}

	// All three platforms show up in the metrics
	stats := m.Snapshot()
	for _, platform := range []string{scraper.PlatformShopee, scraper.PlatformLazada, scraper.PlatformTiki} {
		assert.Equal(t, int64(1), stats[platform].Calls, platform)
	}
}

func TestSearchPipelineSurvivesDeadMarketplace(t *testing.T) {
	live := newMarketplaceServer(t)
	dead := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	t.Cleanup(dead.Close)

	cacheSvc := cache.NewMemoryCache()
	scrapers := []scraper.Scraper{
		scraper.NewShopeeScraper(dead.URL, cacheSvc, 100),
		scraper.NewTikiScraper(live.URL, cacheSvc, 100),
	}

	opts := recommend.DefaultOptions()
	opts.BranchTimeout = 2 * time.Second
	svc := recommend.NewService(scrapers, nil, opts)

	results := svc.Recommend(context.Background(), scraper.ProductQuery{TitleHint: "tai nghe"}, 10)
	assert.Len(t, results, 1)
	assert.Equal(t, scraper.PlatformTiki, results[0].Platform)
}
