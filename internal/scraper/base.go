package scraper

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"net/url"
	"strings"
	"time"

	"dnanh/shopradar/helpers"
	"dnanh/shopradar/logger"
	"dnanh/shopradar/pkg/errors"
	"dnanh/shopradar/services/cache"

	"golang.org/x/time/rate"
)

const (
	// maxSearchResults caps how many candidates one search call may return
	maxSearchResults = 20

	// maxConcurrentRequests bounds simultaneous upstream requests per
	// scraper instance to avoid triggering marketplace rate limiting
	maxConcurrentRequests = 5

	// searchCacheTTL is how long a normalized keyword's results are reused
	searchCacheTTL = 120 * time.Second
)

// Plausible VND price band for the band-snap normalization heuristic.
const (
	priceBandLow  = 1_000
	priceBandHigh = 50_000_000
)

// baseScraper provides common state for all marketplace adapters: the
// request semaphore, the per-instance rate limiter, the short-TTL search
// result cache and the robots.txt disallow list. All of it is
// constructor-injected, scraper-private state; nothing is shared across
// instances.
type baseScraper struct {
	platform   string
	baseURL    string
	cacheSvc   cache.CacheService
	sem        chan struct{}
	limiter    *rate.Limiter
	disallowed []string
	log        *logger.Logger
}

func newBaseScraper(platform, baseURL string, cacheSvc cache.CacheService, rps float64) baseScraper {
	return baseScraper{
		platform: platform,
		baseURL:  baseURL,
		cacheSvc: cacheSvc,
		sem:      make(chan struct{}, maxConcurrentRequests),
		limiter:  rate.NewLimiter(rate.Limit(rps), maxConcurrentRequests),
		log:      logger.ForScraper(platform),
	}
}

// Platform returns the marketplace tag
func (b *baseScraper) Platform() string {
	return b.platform
}

// acquire claims a semaphore slot and waits on the rate limiter. Callers
// must call release after the upstream request finishes.
func (b *baseScraper) acquire(ctx context.Context) error {
	select {
	case b.sem <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}

	if err := b.limiter.Wait(ctx); err != nil {
		<-b.sem
		return err
	}
	return nil
}

func (b *baseScraper) release() {
	<-b.sem
}

// pathAllowed checks the request path against the robots.txt-derived
// disallow list. Disallowed paths are skipped, not retried elsewhere.
func (b *baseScraper) pathAllowed(rawURL string) bool {
	if len(b.disallowed) == 0 {
		return true
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	for _, prefix := range b.disallowed {
		if strings.HasPrefix(u.Path, prefix) {
			b.log.Debug().Str("path", u.Path).Str("rule", prefix).Msg("Path disallowed by robots rules, skipping")
			return false
		}
	}
	return true
}

// searchCacheKey normalizes a keyword into a cache key so near-identical
// queries within a burst hit the same entry.
func (b *baseScraper) searchCacheKey(keyword string) string {
	normalized := strings.Join(strings.Fields(strings.ToLower(keyword)), " ")
	return b.platform + ":search:" + normalized
}

// cachedSearch returns previously cached candidates for the keyword, or nil.
func (b *baseScraper) cachedSearch(keyword string) []ProductCandidate {
	if b.cacheSvc == nil || keyword == "" {
		return nil
	}

	data, err := b.cacheSvc.Get(b.searchCacheKey(keyword))
	if err != nil {
		return nil
	}

	var candidates []ProductCandidate
	if err := json.Unmarshal(data, &candidates); err != nil {
		b.log.Warn().Err(err).Msg("Failed to decode cached search results")
		return nil
	}

	b.log.Debug().Str("keyword", keyword).Int("count", len(candidates)).Msg("Search cache hit")
	return candidates
}

// storeSearch caches the candidates for the keyword with the search TTL.
func (b *baseScraper) storeSearch(keyword string, candidates []ProductCandidate) {
	if b.cacheSvc == nil || keyword == "" {
		return
	}

	data, err := json.Marshal(candidates)
	if err != nil {
		b.log.Warn().Err(err).Msg("Failed to encode search results for cache")
		return
	}

	if err := b.cacheSvc.Set(b.searchCacheKey(keyword), data, searchCacheTTL); err != nil {
		b.log.Warn().Err(err).Msg("Failed to cache search results")
	}
}

// normalizePrice snaps a raw upstream price into the plausible VND band
// [1 000, 50 000 000] by testing successive order-of-magnitude divisors.
// Marketplace endpoints encode prices x1, x100, x10 000 or x100 000
// depending on endpoint and version; the first divisor landing the price
// in-band wins. Out-of-band values that no divisor can rescue are returned
// divided as far as the ladder goes (tiny prices pass through unchanged so
// the outlier filter can judge them).
func normalizePrice(raw float64) float64 {
	if raw <= 0 {
		return 0
	}

	divisors := []float64{1, 100, 10_000, 100_000}
	for _, d := range divisors {
		v := raw / d
		if v >= priceBandLow && v <= priceBandHigh {
			return v
		}
	}

	// Beyond the known encodings, keep peeling orders of magnitude.
	v := raw / 100_000
	for v > priceBandHigh {
		v /= 10
	}
	if v >= priceBandLow {
		return v
	}

	return raw
}

// parseRobots extracts the Disallow rules applying to all user agents from
// a robots.txt body.
func parseRobots(r io.Reader) []string {
	var rules []string
	applies := false

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		key, value, found := strings.Cut(line, ":")
		if !found {
			continue
		}
		key = strings.ToLower(strings.TrimSpace(key))
		value = strings.TrimSpace(value)

		switch key {
		case "user-agent":
			applies = value == "*"
		case "disallow":
			if applies && value != "" {
				rules = append(rules, value)
			}
		}
	}

	return rules
}

// classifyFetchError tags an upstream fetch failure with its error type so
// log consumers can separate rate limiting from ordinary network trouble.
func (b *baseScraper) classifyFetchError(err error) *errors.ScrapeError {
	if strings.Contains(err.Error(), "rate limited") {
		return errors.New(errors.ErrorTypeRateLimit, b.platform, "upstream rate limited", err)
	}
	return errors.NewNetwork(b.platform, "fetch failed", err)
}

// abortedByContext reports whether an upstream fetch failed only because
// the caller cancelled; such failures are not worth a warning.
func abortedByContext(ctx context.Context) bool {
	return ctx.Err() != nil
}

// fetchHTMLBytes fetches a page with browser-like headers and returns the
// UTF-8 body. Default HTML fetch function for the adapters; tests inject
// their own.
func fetchHTMLBytes(ctx context.Context, url string) ([]byte, error) {
	reader, err := helpers.FetchWithRandomHeaders(ctx, url)
	if err != nil {
		return nil, err
	}
	return io.ReadAll(reader)
}
