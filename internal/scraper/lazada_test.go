package scraper

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

const lazadaAjaxPayload = `{
	"mods": {
		"listItems": [
			{
				"name": "Tai nghe Bluetooth ABC Pro",
				"price": "2499000",
				"priceShow": "₫2.499.000",
				"originalPrice": "2999000",
				"discount": "-17% Off",
				"ratingScore": "4.7",
				"review": "321 reviews",
				"sellerName": "ABC Việt Nam",
				"productUrl": "//www.lazada.vn/products/tai-nghe-i123456.html",
				"image": "https://img.lazcdn.com/abc.jpg",
				"inStock": true,
				"freeShipping": true,
				"officialStore": false
			},
			{"name": "", "price": "100"}
		]
	}
}`

func newTestLazadaScraper(payload string, fetchErr error) *LazadaScraper {
	s := NewLazadaScraper("https://www.lazada.vn", NewMockCacheService(), 100)
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

func TestLazadaSearchByQuery(t *testing.T) {
	s := newTestLazadaScraper(lazadaAjaxPayload, nil)

	candidates := s.SearchByQuery(context.Background(), ProductQuery{TitleHint: "tai nghe"})
	assert.Len(t, candidates, 1)

	c := candidates[0]
	assert.Equal(t, PlatformLazada, c.Platform)
	assert.Equal(t, "Tai nghe Bluetooth ABC Pro", c.Title)
	assert.Equal(t, float64(2_499_000), c.Price)
	assert.Equal(t, 4.7, c.ShopRating)
	assert.Equal(t, 321, c.SoldCount)
	assert.Equal(t, "https://www.lazada.vn/products/tai-nghe-i123456.html", c.ProductURL, "protocol-relative links become https")
	assert.Equal(t, "reseller", c.SellerType)

	assert.NotNil(t, c.OriginalPrice)
	assert.Equal(t, float64(2_999_000), *c.OriginalPrice)
	assert.NotNil(t, c.DiscountPercent)
	assert.InDelta(t, 0.17, *c.DiscountPercent, 1e-9)
	assert.NotNil(t, c.IsOutOfStock)
	assert.False(t, *c.IsOutOfStock)
	assert.NotNil(t, c.IsFreeShip)
	assert.True(t, *c.IsFreeShip)
}

func TestLazadaSearchPageDataFallback(t *testing.T) {
	page := `<html><head><script>
		window.pageData = {"mods":{"listItems":[{"name":"Loa mini","price":"150000","ratingScore":"4.2","productUrl":"//www.lazada.vn/products/loa-i77.html"}]}}
	</script></head></html>`
	s := newTestLazadaScraper(page, nil)

	candidates := s.SearchByQuery(context.Background(), ProductQuery{TitleHint: "loa"})
	assert.Len(t, candidates, 1)
	assert.Equal(t, "Loa mini", candidates[0].Title)
	assert.Equal(t, float64(150_000), candidates[0].Price)
}

func TestLazadaSearchFetchFailureDegradesToEmpty(t *testing.T) {
	s := newTestLazadaScraper("", errors.New("blocked"))
	assert.Empty(t, s.SearchByQuery(context.Background(), ProductQuery{TitleHint: "tv"}))
}

func TestLazadaOfficialStoreSellerType(t *testing.T) {
	s := newTestLazadaScraper("", nil)

	c := s.normalizeItem(lazadaListItem{Name: "X", Price: "100000", OfficialStore: true})
	assert.Equal(t, "official", c.SellerType)

	c = s.normalizeItem(lazadaListItem{Name: "X", Price: "100000", SellerName: "Samsung Official Store"})
	assert.Equal(t, "official", c.SellerType)
}

func TestLazadaGetByURL(t *testing.T) {
	s := newTestLazadaScraper("", nil)
	s.fetchHTMLFunc = func(ctx context.Context, url string) ([]byte, error) {
		return []byte(`<html><head>
			<meta property="og:title" content="Tai nghe Bluetooth ABC Pro"/>
			<meta property="og:image" content="https://img.lazcdn.com/abc.jpg"/>
			<meta property="product:price:amount" content="2499000"/>
		</head></html>`), nil
	}

	c := s.GetByURL(context.Background(), ProductQuery{
		Platform:     PlatformLazada,
		CanonicalURL: "https://www.lazada.vn/products/tai-nghe-i123456.html",
	})
	assert.NotNil(t, c)
	assert.Equal(t, "Tai nghe Bluetooth ABC Pro", c.Title)
	assert.Equal(t, float64(2_499_000), c.Price)
	assert.Equal(t, "https://img.lazcdn.com/abc.jpg", c.ThumbnailURL)
}

func TestLazadaGetByURLNoMetadata(t *testing.T) {
	s := newTestLazadaScraper("", nil)
	s.fetchHTMLFunc = func(ctx context.Context, url string) ([]byte, error) {
		return []byte(`<html><body>captcha</body></html>`), nil
	}
	assert.Nil(t, s.GetByURL(context.Background(), ProductQuery{
		Platform:     PlatformLazada,
		CanonicalURL: "https://www.lazada.vn/products/x-i1.html",
	}))
}

func TestParseLeadingInt(t *testing.T) {
	assert.Equal(t, 120, parseLeadingInt("120 reviews"))
	assert.Equal(t, 15, parseLeadingInt("15% Off"))
	assert.Equal(t, 0, parseLeadingInt("no digits"))
	assert.Equal(t, 7, parseLeadingInt("  7"))
}

func TestAbsoluteURL(t *testing.T) {
	assert.Equal(t, "https://www.lazada.vn/x", absoluteURL("//www.lazada.vn/x"))
	assert.Equal(t, "https://www.lazada.vn/x", absoluteURL("https://www.lazada.vn/x"))
}
