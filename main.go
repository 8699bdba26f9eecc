package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"dnanh/shopradar/config"
	"dnanh/shopradar/internal/recommend"
	"dnanh/shopradar/internal/scraper"
	"dnanh/shopradar/logger"
	"dnanh/shopradar/services/cache"
	"dnanh/shopradar/services/metrics"
	"dnanh/shopradar/services/publisher"
	"dnanh/shopradar/services/worker"

	"github.com/joho/godotenv"
)

func main() {
	// Load environment variables
	godotenv.Load()

	// Initialize logger first
	logger.Init()
	log := logger.Default

	// Load and validate configuration
	cfg := config.LoadConfig()
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	log.Info().
		Str("environment", cfg.Environment).
		Dur("watch_interval", cfg.WatchInterval).
		Strs("watch_keywords", cfg.WatchKeywords).
		Msg("Starting application")

	// Set up context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Set up signal handling
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	// Initialize services
	services, err := initializeServices(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize services")
	}
	defer services.Cleanup()

	// Create scrapers
	scrapers := scraper.CreateScrapers(cfg, services.Cache)
	if len(scrapers) == 0 {
		log.Fatal().Msg("No scrapers were created")
	}

	log.Info().
		Int("scraper_count", len(scrapers)).
		Msg("Created scrapers")

	// Assemble the recommendation pipeline
	recommender := recommend.NewService(scrapers, services.Metrics, recommend.Options{
		Weights: recommend.Weights{
			Price:           cfg.PriceWeight,
			Rating:          cfg.RatingWeight,
			Shipping:        cfg.ShippingWeight,
			TitleSimilarity: cfg.TitleWeight,
		},
		TrustedShopSalesThreshold: cfg.TrustedShopSalesThreshold,
		BranchTimeout:             cfg.BranchTimeout,
	})
	search := recommend.NewMultiPlatformSearchService(recommender)

	// Create and start the watch worker
	w := worker.NewWorker(
		search,
		services.Publisher,
		cfg.WatchKeywords,
		cfg.WatchInterval,
		cfg.WatchTopN,
	)

	workerDone := make(chan struct{}, 1)
	go func() {
		log.Info().Msg("Starting watch worker")
		w.Start(ctx)
		workerDone <- struct{}{}
	}()

	// Wait for shutdown signal or worker exit
	select {
	case sig := <-sigChan:
		log.Info().
			Str("signal", sig.String()).
			Msg("Received shutdown signal")
		cancel()
		<-workerDone
	case <-workerDone:
		log.Info().Msg("Worker exited")
	}

	log.Info().Interface("platform_stats", services.Metrics.Snapshot()).Msg("Final scraper stats")
	log.Info().Msg("Shutting down gracefully...")
}

// Services holds all the initialized services
type Services struct {
	Cache     cache.CacheService
	Publisher publisher.Publisher
	Metrics   *metrics.Service
}

// Cleanup cleans up all services
func (s *Services) Cleanup() {
	if s.Publisher != nil {
		s.Publisher.Close()
	}
}

// initializeServices initializes all required services
func initializeServices(ctx context.Context, cfg *config.Config) (*Services, error) {
	services := &Services{
		Metrics: metrics.NewService(),
	}

	// Initialize cache service
	switch cfg.CacheBackend {
	case "memcache":
		cacheService := cache.NewMemcacheService(cfg.MemcacheAddr)
		if cacheService == nil {
			return nil, fmt.Errorf("failed to create cache service")
		}
		services.Cache = cacheService
		logger.Info("Connected to Memcache at %s", cfg.MemcacheAddr)
	default:
		services.Cache = cache.NewMemoryCache()
		logger.Info("Using in-memory cache")
	}

	// Initialize publisher
	redisPublisher := publisher.NewRedisPublisher(
		ctx,
		cfg.RedisAddr,
		cfg.RedisDB,
		cfg.RedisStreamPrefix,
		cfg.RedisStreamCount,
		cfg.RedisStreamMaxLength,
	)
	if redisPublisher == nil {
		return nil, fmt.Errorf("failed to create redis publisher")
	}
	services.Publisher = redisPublisher

	logger.Info("Connected to Redis at %s (DB: %d, Stream prefix: %s)",
		cfg.RedisAddr, cfg.RedisDB, cfg.RedisStreamPrefix)

	return services, nil
}
