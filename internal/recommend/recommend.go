// Package recommend ranks product candidates gathered from the marketplace
// scrapers. The pipeline is Gather, Filter, Score, Order, Label: concurrent
// fan-out to independently-failing scrapers, median-based outlier
// rejection, multi-criteria weighted scoring and a cost-ordered top-N.
package recommend

import (
	"context"
	"sync"
	"time"

	"dnanh/shopradar/internal/scraper"
	"dnanh/shopradar/logger"
	"dnanh/shopradar/services/metrics"
)

// Weights are the scoring knobs. The title similarity weight is an
// independent knob; the weights are intentionally not normalized to sum to
// 1.0 and downstream display thresholds depend on the resulting magnitudes.
type Weights struct {
	Price           float64
	Rating          float64
	Shipping        float64
	TitleSimilarity float64
}

// DefaultWeights returns the production scoring weights
func DefaultWeights() Weights {
	return Weights{
		Price:           0.7,
		Rating:          0.2,
		Shipping:        0.1,
		TitleSimilarity: 0.3,
	}
}

// Options configures the recommendation service
type Options struct {
	Weights Weights
	// TrustedShopSalesThreshold is the minimum sold count for the
	// TrustedShop label
	TrustedShopSalesThreshold int
	// BranchTimeout bounds each scraper call; zero disables the per-branch
	// timeout and leaves only the caller's context budget
	BranchTimeout time.Duration
}

// DefaultOptions returns the production ranking options
func DefaultOptions() Options {
	return Options{
		Weights:                   DefaultWeights(),
		TrustedShopSalesThreshold: 50,
		BranchTimeout:             500 * time.Millisecond,
	}
}

// Service is the cross-platform recommendation engine.
type Service struct {
	scrapers []scraper.Scraper
	metrics  *metrics.Service
	opts     Options
	log      *logger.Logger
}

// NewService creates a recommendation service over the scraper registry.
// metricsSvc may be nil; metrics are purely observational.
func NewService(scrapers []scraper.Scraper, metricsSvc *metrics.Service, opts Options) *Service {
	return &Service{
		scrapers: scrapers,
		metrics:  metricsSvc,
		opts:     opts,
		log:      logger.ForRecommender(),
	}
}

// Recommend gathers, filters, scores and orders candidates for the query
// and returns at most topN of them, best first. An empty slice is a valid
// "no matches found" outcome; upstream failures never surface as errors.
func (s *Service) Recommend(ctx context.Context, q scraper.ProductQuery, topN int) []scraper.ProductCandidate {
	if topN <= 0 || q.IsEmpty() {
		return nil
	}

	candidates, fannedOut := s.gather(ctx, q)

	// A URL-specific lookup that found nothing may still be searchable on
	// the other marketplaces by title.
	if len(candidates) == 0 && !fannedOut && q.TitleHint != "" {
		s.log.Debug().Str("title_hint", q.TitleHint).Msg("Direct gather empty, retrying with cross-platform fan-out")
		candidates = s.fanOut(ctx, scraper.ProductQuery{TitleHint: q.TitleHint, Metadata: q.Metadata})
	}

	if len(candidates) == 0 {
		return []scraper.ProductCandidate{}
	}

	survivors := s.filterOutliers(candidates)
	scoreCandidates(survivors, q.TitleHint, s.opts.Weights)
	orderCandidates(survivors)
	assignLabels(survivors, s.opts.TrustedShopSalesThreshold)

	if len(survivors) > topN {
		survivors = survivors[:topN]
	}
	return survivors
}

// gather collects raw candidates. With a canonical URL and a matching
// scraper it runs that scraper's search and direct fetch concurrently;
// otherwise it fans out to every registered scraper. The second return
// reports whether a full fan-out already happened.
func (s *Service) gather(ctx context.Context, q scraper.ProductQuery) ([]scraper.ProductCandidate, bool) {
	target := scraper.FindByPlatform(s.scrapers, q.Platform)
	if q.CanonicalURL != "" && target != nil {
		return s.gatherDirect(ctx, target, q), false
	}
	return s.fanOut(ctx, q), true
}

// gatherDirect merges the platform scraper's direct fetch (precision) with
// its keyword search (alternatives), both running concurrently.
func (s *Service) gatherDirect(ctx context.Context, target scraper.Scraper, q scraper.ProductQuery) []scraper.ProductCandidate {
	var mu sync.Mutex
	var merged []scraper.ProductCandidate

	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		result := s.invoke(ctx, target.Platform(), func(branchCtx context.Context) []scraper.ProductCandidate {
			if c := target.GetByURL(branchCtx, q); c != nil {
				return []scraper.ProductCandidate{*c}
			}
			return nil
		})
		mu.Lock()
		merged = append(merged, result...)
		mu.Unlock()
	}()

	go func() {
		defer wg.Done()
		result := s.invoke(ctx, target.Platform(), func(branchCtx context.Context) []scraper.ProductCandidate {
			return target.SearchByQuery(branchCtx, q)
		})
		mu.Lock()
		merged = append(merged, result...)
		mu.Unlock()
	}()

	wg.Wait()
	return dedupeByURL(merged)
}

// fanOut dispatches SearchByQuery to every registered scraper in parallel.
// Each branch fails independently; a slow or broken marketplace only costs
// its own candidates.
func (s *Service) fanOut(ctx context.Context, q scraper.ProductQuery) []scraper.ProductCandidate {
	var mu sync.Mutex
	var merged []scraper.ProductCandidate

	var wg sync.WaitGroup
	for _, sc := range s.scrapers {
		wg.Add(1)
		go func(sc scraper.Scraper) {
			defer wg.Done()
			result := s.invoke(ctx, sc.Platform(), func(branchCtx context.Context) []scraper.ProductCandidate {
				return sc.SearchByQuery(branchCtx, q)
			})
			mu.Lock()
			merged = append(merged, result...)
			mu.Unlock()
		}(sc)
	}
	wg.Wait()

	return dedupeByURL(merged)
}

// invoke runs one scraper branch with the per-branch timeout, records
// metrics and contains panics so a misbehaving adapter cannot take down
// the whole gather.
func (s *Service) invoke(ctx context.Context, platform string, call func(context.Context) []scraper.ProductCandidate) (result []scraper.ProductCandidate) {
	branchCtx := ctx
	if s.opts.BranchTimeout > 0 {
		var cancel context.CancelFunc
		branchCtx, cancel = context.WithTimeout(ctx, s.opts.BranchTimeout)
		defer cancel()
	}

	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			if s.metrics != nil {
				s.metrics.RecordFailure(platform)
			}
			s.log.Error().Interface("panic", r).Str("platform", platform).Msg("Scraper branch panicked")
			result = nil
		}
	}()

	result = call(branchCtx)
	if s.metrics != nil {
		s.metrics.RecordCall(platform, time.Since(start))
	}
	return result
}

// dedupeByURL drops later candidates sharing an earlier one's product URL.
// Candidates without a URL are kept as-is.
func dedupeByURL(candidates []scraper.ProductCandidate) []scraper.ProductCandidate {
	seen := make(map[string]struct{}, len(candidates))
	out := candidates[:0]
	for _, c := range candidates {
		if c.ProductURL != "" {
			if _, dup := seen[c.ProductURL]; dup {
				continue
			}
			seen[c.ProductURL] = struct{}{}
		}
		out = append(out, c)
	}
	return out
}
