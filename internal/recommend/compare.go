package recommend

import (
	"context"
	"strings"

	"dnanh/shopradar/internal/linkproc"
	"dnanh/shopradar/internal/scraper"
)

const defaultTopN = 10

// CompareService answers "where else can I buy this, cheaper?" for a
// single pasted product link.
type CompareService struct {
	recommender *Service
}

// NewCompareService wraps a recommendation service for URL-driven comparison.
func NewCompareService(recommender *Service) *CompareService {
	return &CompareService{recommender: recommender}
}

// Compare parses the product URL and returns ranked alternatives across
// all supported marketplaces. Unsupported hosts and malformed product
// paths surface as errors; marketplace outages do not.
func (s *CompareService) Compare(ctx context.Context, rawURL string) ([]scraper.ProductCandidate, error) {
	q, err := linkproc.Parse(rawURL)
	if err != nil {
		return nil, err
	}
	return s.recommender.Recommend(ctx, q, defaultTopN), nil
}

// MultiPlatformSearchService runs free-text keyword searches across every
// registered marketplace and ranks the merged results.
type MultiPlatformSearchService struct {
	recommender *Service
}

// NewMultiPlatformSearchService wraps a recommendation service for
// keyword-driven search.
func NewMultiPlatformSearchService(recommender *Service) *MultiPlatformSearchService {
	return &MultiPlatformSearchService{recommender: recommender}
}

// Search fans the keyword out to all platforms and returns at most limit
// ranked candidates. A blank keyword or non-positive limit yields an
// empty result.
func (s *MultiPlatformSearchService) Search(ctx context.Context, keyword string, limit int) []scraper.ProductCandidate {
	keyword = strings.TrimSpace(keyword)
	if keyword == "" || limit <= 0 {
		return []scraper.ProductCandidate{}
	}
	q := scraper.ProductQuery{TitleHint: keyword}
	return s.recommender.Recommend(ctx, q, limit)
}
