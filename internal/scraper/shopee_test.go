package scraper

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

const shopeeSearchPayload = `{
	"items": [
		{"item_basic": {
			"itemid": 7392710521,
			"shopid": 88201679,
			"name": "Tai nghe Bluetooth ABC Pro",
			"price": 25000000000,
			"price_before_discount": 50000000000,
			"raw_discount": 50,
			"shop_rating": 4.9,
			"historical_sold": 1200,
			"image": "abc123",
			"shop_name": "ABC Official Store",
			"is_official_shop": true,
			"show_free_shipping": true,
			"stock": 37
		}},
		{"item_basic": {
			"itemid": 2,
			"shopid": 3,
			"name": "",
			"price": 100000
		}}
	]
}`

func newTestShopeeScraper(payload string, fetchErr error) *ShopeeScraper {
	s := NewShopeeScraper("https://shopee.vn", NewMockCacheService(), 100)
	s.fetchFunc = func(ctx context.Context, url string) ([]byte, error) {
		if fetchErr != nil {
			return nil, fetchErr
		}
		return []byte(payload), nil
	}
	s.fetchHTMLFunc = func(ctx context.Context, url string) ([]byte, error) {
		return nil, errors.New("no html fixture")
	}
	return s
}

func TestShopeeSearchByQuery(t *testing.T) {
	s := newTestShopeeScraper(shopeeSearchPayload, nil)

	candidates := s.SearchByQuery(context.Background(), ProductQuery{TitleHint: "tai nghe bluetooth"})
	assert.Len(t, candidates, 1, "nameless items are dropped")

	c := candidates[0]
	assert.Equal(t, PlatformShopee, c.Platform)
	assert.Equal(t, "Tai nghe Bluetooth ABC Pro", c.Title)
	assert.Equal(t, float64(2_500_000), c.Price, "x10000 encoded price snaps into band")
	assert.Equal(t, "ABC Official Store", c.ShopName)
	assert.Equal(t, 4.9, c.ShopRating)
	assert.Equal(t, 1200, c.SoldCount)
	assert.Equal(t, "https://shopee.vn/product/88201679/7392710521", c.ProductURL)
	assert.Equal(t, "https://down-vn.img.susercontent.com/file/abc123", c.ThumbnailURL)
	assert.Equal(t, "official", c.SellerType)

	assert.NotNil(t, c.OriginalPrice)
	assert.Equal(t, float64(5_000_000), *c.OriginalPrice)
	assert.NotNil(t, c.DiscountPercent)
	assert.InDelta(t, 0.5, *c.DiscountPercent, 1e-9)
	assert.NotNil(t, c.IsOutOfStock)
	assert.False(t, *c.IsOutOfStock)
	assert.NotNil(t, c.IsFreeShip)
	assert.True(t, *c.IsFreeShip)
}

func TestShopeeSearchFetchFailureDegradesToEmpty(t *testing.T) {
	s := newTestShopeeScraper("", errors.New("connection refused"))
	candidates := s.SearchByQuery(context.Background(), ProductQuery{TitleHint: "tv"})
	assert.Empty(t, candidates)
}

func TestShopeeSearchMalformedPayloadDegradesToEmpty(t *testing.T) {
	s := newTestShopeeScraper("<html>blocked</html>", nil)
	candidates := s.SearchByQuery(context.Background(), ProductQuery{TitleHint: "tv"})
	assert.Empty(t, candidates)
}

func TestShopeeSearchEmptyKeyword(t *testing.T) {
	s := newTestShopeeScraper(shopeeSearchPayload, nil)
	assert.Nil(t, s.SearchByQuery(context.Background(), ProductQuery{}))
}

func TestShopeeSearchUsesCache(t *testing.T) {
	s := newTestShopeeScraper(shopeeSearchPayload, nil)

	calls := 0
	inner := s.fetchFunc
	s.fetchFunc = func(ctx context.Context, url string) ([]byte, error) {
		calls++
		return inner(ctx, url)
	}

	first := s.SearchByQuery(context.Background(), ProductQuery{TitleHint: "tai nghe"})
	second := s.SearchByQuery(context.Background(), ProductQuery{TitleHint: " TAI  NGHE "})
	assert.Equal(t, first, second)
	assert.Equal(t, 1, calls, "second search must come from cache")
}

func TestShopeeGetByURL(t *testing.T) {
	payload := `{"data": {
		"itemid": 7392710521,
		"shopid": 88201679,
		"name": "Tai nghe Bluetooth ABC Pro",
		"price": 2500000,
		"shop_rating": 4.8,
		"stock": 0
	}}`
	s := newTestShopeeScraper(payload, nil)

	c := s.GetByURL(context.Background(), ProductQuery{
		Platform:  PlatformShopee,
		ProductID: "88201679.7392710521",
	})
	assert.NotNil(t, c)
	assert.Equal(t, "Tai nghe Bluetooth ABC Pro", c.Title)
	assert.Equal(t, float64(2_500_000), c.Price)
	assert.NotNil(t, c.IsOutOfStock)
	assert.True(t, *c.IsOutOfStock, "zero stock means out of stock")
}

func TestShopeeGetByURLPlatformMismatch(t *testing.T) {
	s := newTestShopeeScraper(shopeeSearchPayload, nil)
	assert.Nil(t, s.GetByURL(context.Background(), ProductQuery{
		Platform:  PlatformTiki,
		ProductID: "1.2",
	}))
}

func TestShopeeGetByURLFallsBackToPageMetadata(t *testing.T) {
	s := newTestShopeeScraper("", errors.New("api blocked"))
	s.fetchHTMLFunc = func(ctx context.Context, url string) ([]byte, error) {
		return []byte(`<html><head>
			<script type="application/ld+json">
			{"@type":"Product","name":"Tai nghe Bluetooth ABC Pro","offers":{"price":"2490000","availability":"https://schema.org/InStock"}}
			</script>
		</head></html>`), nil
	}

	c := s.GetByURL(context.Background(), ProductQuery{
		Platform:     PlatformShopee,
		ProductID:    "88201679.7392710521",
		CanonicalURL: "https://shopee.vn/tai-nghe-i.88201679.7392710521",
	})
	assert.NotNil(t, c)
	assert.Equal(t, "Tai nghe Bluetooth ABC Pro", c.Title)
	assert.Equal(t, float64(2_490_000), c.Price)
	assert.Equal(t, "https://shopee.vn/tai-nghe-i.88201679.7392710521", c.ProductURL)
	assert.NotNil(t, c.IsOutOfStock)
	assert.False(t, *c.IsOutOfStock)
}

func TestSplitShopeeID(t *testing.T) {
	shopID, itemID, err := splitShopeeID("88201679.7392710521")
	assert.NoError(t, err)
	assert.Equal(t, "88201679", shopID)
	assert.Equal(t, "7392710521", itemID)

	_, _, err = splitShopeeID("12345")
	assert.Error(t, err)

	_, _, err = splitShopeeID(".123")
	assert.Error(t, err)
}
