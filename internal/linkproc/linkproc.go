// Package linkproc turns marketplace product URLs into canonical
// ProductQuery values. It is state-free: pure pattern matching over the
// host and path, no network access.
package linkproc

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"dnanh/shopradar/internal/scraper"
	"dnanh/shopradar/pkg/errors"
)

// Per-marketplace product id conventions. Each pattern captures the id
// portion of a product path; category and seller pages intentionally do
// not match.
var (
	// shopee.vn/ten-san-pham-i.88201679.7392710521
	shopeeSlugRegex = regexp.MustCompile(`-i\.(\d+)\.(\d+)$`)
	// shopee.vn/product/88201679/7392710521
	shopeePathRegex = regexp.MustCompile(`^/product/(\d+)/(\d+)$`)
	// lazada.vn/products/ten-san-pham-i2071195884-s9517356289.html
	lazadaRegex = regexp.MustCompile(`^/products/(?:pdp-i|.*-i)(\d+)(?:-s(\d+))?\.html$`)
	// tiki.vn/ten-san-pham-p187979129.html
	tikiRegex = regexp.MustCompile(`-p(\d+)\.html$`)
)

// idTokenRegex strips the trailing id token off a slug when deriving the
// title hint.
var idTokenRegex = regexp.MustCompile(`(-i\.\d+\.\d+|-i\d+(-s\d+)?|-p\d+)$`)

// Parse inspects an absolute marketplace URL and builds the ProductQuery
// that routes it to the right scraper.
//
// Returns *errors.UnsupportedPlatformError for hosts outside the known
// marketplaces and *errors.MalformedProductURLError when the host matches
// but the product id convention is absent.
func Parse(rawURL string) (scraper.ProductQuery, error) {
	u, err := url.Parse(rawURL)
	if err != nil || !u.IsAbs() || u.Host == "" {
		return scraper.ProductQuery{}, &errors.MalformedProductURLError{Platform: "", URL: rawURL}
	}

	host := strings.ToLower(u.Hostname())
	platform := platformForHost(host)
	if platform == "" {
		return scraper.ProductQuery{}, &errors.UnsupportedPlatformError{Host: host}
	}

	productID := extractProductID(platform, u.Path)
	if productID == "" {
		return scraper.ProductQuery{}, &errors.MalformedProductURLError{Platform: platform, URL: rawURL}
	}

	return scraper.ProductQuery{
		Platform:     platform,
		ProductID:    productID,
		CanonicalURL: canonicalURL(u),
		TitleHint:    titleHint(u.Path),
	}, nil
}

// platformForHost maps a hostname to its marketplace tag, or "".
func platformForHost(host string) string {
	switch {
	case host == "shopee.vn" || strings.HasSuffix(host, ".shopee.vn"):
		return scraper.PlatformShopee
	case host == "lazada.vn" || strings.HasSuffix(host, ".lazada.vn"):
		return scraper.PlatformLazada
	case host == "tiki.vn" || strings.HasSuffix(host, ".tiki.vn"):
		return scraper.PlatformTiki
	default:
		return ""
	}
}

func extractProductID(platform, path string) string {
	switch platform {
	case scraper.PlatformShopee:
		if m := shopeePathRegex.FindStringSubmatch(path); m != nil {
			return m[1] + "." + m[2]
		}
		if m := shopeeSlugRegex.FindStringSubmatch(path); m != nil {
			return m[1] + "." + m[2]
		}
	case scraper.PlatformLazada:
		if m := lazadaRegex.FindStringSubmatch(path); m != nil {
			return m[1]
		}
	case scraper.PlatformTiki:
		if m := tikiRegex.FindStringSubmatch(path); m != nil {
			return m[1]
		}
	}
	return ""
}

// canonicalURL rebuilds the URL without tracking query parameters and
// fragments so it can serve as a stable identity key.
func canonicalURL(u *url.URL) string {
	return fmt.Sprintf("https://%s%s", strings.ToLower(u.Hostname()), u.EscapedPath())
}

// titleHint derives a fuzzy search term from the last path segment:
// id token and .html suffix stripped, hyphens turned into spaces.
func titleHint(path string) string {
	segment := path
	if idx := strings.LastIndex(segment, "/"); idx >= 0 {
		segment = segment[idx+1:]
	}
	segment = strings.TrimSuffix(segment, ".html")
	segment = idTokenRegex.ReplaceAllString(segment, "")
	segment = strings.ReplaceAll(segment, "-", " ")
	hint := strings.Join(strings.Fields(segment), " ")

	// Id-only paths (shopee's /product/shop/item form) carry no usable words.
	if hint == "" || !strings.ContainsFunc(hint, func(r rune) bool { return r < '0' || r > '9' }) {
		return ""
	}
	return hint
}
