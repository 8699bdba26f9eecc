package scraper

import (
	"bytes"
	"context"
	"time"

	"dnanh/shopradar/config"
	"dnanh/shopradar/helpers"
	"dnanh/shopradar/services/cache"
)

// CreateScrapers creates the scraper registry based on the configuration.
// Order matters only for deterministic fan-out logging.
func CreateScrapers(cfg *config.Config, cacheSvc cache.CacheService) []Scraper {
	shopee := NewShopeeScraper(cfg.ShopeeBaseURL, cacheSvc, cfg.RequestsPerSecond)
	lazada := NewLazadaScraper(cfg.LazadaBaseURL, cacheSvc, cfg.RequestsPerSecond)
	tiki := NewTikiScraper(cfg.TikiBaseURL, cacheSvc, cfg.RequestsPerSecond)

	if cfg.RespectRobots {
		shopee.disallowed = loadRobotsRules(cfg.ShopeeBaseURL)
		lazada.disallowed = loadRobotsRules(cfg.LazadaBaseURL)
		tiki.disallowed = loadRobotsRules(cfg.TikiBaseURL)
	}

	return []Scraper{shopee, lazada, tiki}
}

// FindByPlatform returns the scraper registered for the platform tag, or nil.
func FindByPlatform(scrapers []Scraper, platform string) Scraper {
	for _, s := range scrapers {
		if s.Platform() == platform {
			return s
		}
	}
	return nil
}

// loadRobotsRules fetches and parses a marketplace's robots.txt. Best
// effort: an unreachable or malformed robots.txt gates nothing.
func loadRobotsRules(baseURL string) []string {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	body, err := helpers.FetchJSON(ctx, baseURL+"/robots.txt")
	if err != nil {
		return nil
	}
	return parseRobots(bytes.NewReader(body))
}
