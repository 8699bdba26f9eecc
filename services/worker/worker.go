// Package worker runs the background watch loop: periodically re-rank the
// configured watch keywords and publish the results downstream.
package worker

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"dnanh/shopradar/internal/recommend"
	"dnanh/shopradar/internal/scraper"
	"dnanh/shopradar/logger"
	"dnanh/shopradar/services/publisher"
)

// WatchResult is the payload published for one keyword round.
type WatchResult struct {
	Keyword    string                     `json:"keyword"`
	FetchedAt  time.Time                  `json:"fetched_at"`
	Candidates []scraper.ProductCandidate `json:"candidates"`
}

// Worker re-runs the watch keywords on an interval and publishes ranked
// results.
type Worker struct {
	search    *recommend.MultiPlatformSearchService
	publisher publisher.Publisher
	keywords  []string
	interval  time.Duration
	topN      int
	log       *logger.Logger
}

// NewWorker creates a watch worker. It does nothing until Start is called.
func NewWorker(
	search *recommend.MultiPlatformSearchService,
	pub publisher.Publisher,
	keywords []string,
	interval time.Duration,
	topN int,
) *Worker {
	return &Worker{
		search:    search,
		publisher: pub,
		keywords:  keywords,
		interval:  interval,
		topN:      topN,
		log:       logger.ForWorker(),
	}
}

// Start blocks running watch rounds until ctx is cancelled. The first
// round runs immediately.
func (w *Worker) Start(ctx context.Context) {
	if len(w.keywords) == 0 {
		w.log.Info().Msg("No watch keywords configured, worker idle")
		<-ctx.Done()
		return
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.runRound(ctx)
	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Watch worker stopping")
			return
		case <-ticker.C:
			w.runRound(ctx)
		}
	}
}

// runRound ranks every watch keyword in parallel, publishes the results
// and trims the streams once the round completes.
func (w *Worker) runRound(ctx context.Context) {
	start := time.Now()

	var wg sync.WaitGroup
	for _, keyword := range w.keywords {
		wg.Add(1)
		go func(keyword string) {
			defer wg.Done()
			w.searchAndPublish(ctx, keyword)
		}(keyword)
	}
	wg.Wait()

	if err := w.publisher.TrimStreams(); err != nil {
		w.log.Error().Err(err).Msg("Failed to trim streams")
	}
	w.log.Debug().Dur("elapsed", time.Since(start)).Int("keywords", len(w.keywords)).Msg("Watch round finished")
}

// searchAndPublish ranks one keyword and publishes the result set. Empty
// result sets are published too so consumers can observe delisting.
func (w *Worker) searchAndPublish(ctx context.Context, keyword string) {
	candidates := w.search.Search(ctx, keyword, w.topN)
	if ctx.Err() != nil {
		return
	}

	result := WatchResult{
		Keyword:    keyword,
		FetchedAt:  time.Now().UTC(),
		Candidates: candidates,
	}
	payload, err := json.Marshal(result)
	if err != nil {
		w.log.Error().Err(err).Str("keyword", keyword).Msg("Failed to encode watch result")
		return
	}

	if err := w.publisher.Publish(keyword, payload); err != nil {
		w.log.Error().Err(err).Str("keyword", keyword).Msg("Failed to publish watch result")
		return
	}
	w.log.Info().Str("keyword", keyword).Int("candidates", len(candidates)).Msg("Published watch result")
}
