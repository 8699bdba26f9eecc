package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config represents the application configuration
type Config struct {
	// Redis configuration
	RedisAddr            string
	RedisDB              int
	RedisStreamPrefix    string
	RedisStreamCount     int
	RedisStreamMaxLength int

	// Cache configuration
	CacheBackend string // "memory" or "memcache"
	MemcacheAddr string

	// Marketplace base URLs
	ShopeeBaseURL string
	LazadaBaseURL string
	TikiBaseURL   string

	// Scraper behaviour
	RespectRobots     bool
	RequestsPerSecond float64

	// Ranking configuration
	PriceWeight               float64
	RatingWeight              float64
	ShippingWeight            float64
	TitleWeight               float64
	TrustedShopSalesThreshold int
	BranchTimeout             time.Duration

	// Watch worker configuration
	WatchInterval time.Duration
	WatchKeywords []string
	WatchTopN     int

	// Environment
	Environment string
}

// LoadConfig loads the configuration from environment variables with defaults
func LoadConfig() *Config {
	redisDB, _ := strconv.Atoi(getEnv("REDIS_DB", "0"))
	streamCount, _ := strconv.Atoi(getEnv("REDIS_STREAM_COUNT", "1"))
	streamMaxLen, _ := strconv.Atoi(getEnv("REDIS_STREAM_MAX_LENGTH", "500"))
	watchInterval, _ := strconv.Atoi(getEnv("WATCH_INTERVAL_SECONDS", "300"))
	watchTopN, _ := strconv.Atoi(getEnv("WATCH_TOP_N", "10"))
	branchTimeout, _ := strconv.Atoi(getEnv("SCRAPE_BRANCH_TIMEOUT_MS", "500"))
	trustedSales, _ := strconv.Atoi(getEnv("TRUSTED_SHOP_SALES_THRESHOLD", "50"))

	return &Config{
		RedisAddr:            getEnv("REDIS_ADDR", "localhost:6379"),
		RedisDB:              redisDB,
		RedisStreamPrefix:    getEnv("REDIS_STREAM_PREFIX", "recommendations"),
		RedisStreamCount:     streamCount,
		RedisStreamMaxLength: streamMaxLen,

		CacheBackend: getEnv("CACHE_BACKEND", "memory"),
		MemcacheAddr: getEnv("MEMCACHE_ADDR", "localhost:11211"),

		ShopeeBaseURL: getEnv("SHOPEE_BASE_URL", "https://shopee.vn"),
		LazadaBaseURL: getEnv("LAZADA_BASE_URL", "https://www.lazada.vn"),
		TikiBaseURL:   getEnv("TIKI_BASE_URL", "https://tiki.vn"),

		RespectRobots:     getEnvBool("RESPECT_ROBOTS", true),
		RequestsPerSecond: getEnvFloat("REQUESTS_PER_SECOND", 2),

		PriceWeight:               getEnvFloat("PRICE_WEIGHT", 0.7),
		RatingWeight:              getEnvFloat("RATING_WEIGHT", 0.2),
		ShippingWeight:            getEnvFloat("SHIPPING_WEIGHT", 0.1),
		TitleWeight:               getEnvFloat("TITLE_WEIGHT", 0.3),
		TrustedShopSalesThreshold: trustedSales,
		BranchTimeout:             time.Duration(branchTimeout) * time.Millisecond,

		WatchInterval: time.Duration(watchInterval) * time.Second,
		WatchKeywords: splitList(getEnv("WATCH_KEYWORDS", "")),
		WatchTopN:     watchTopN,

		Environment: getEnv("SHOPRADAR_ENVIRONMENT", "development"),
	}
}

// Validate reports the first configuration value that cannot work.
func (c *Config) Validate() error {
	switch c.CacheBackend {
	case "memory", "memcache":
	default:
		return fmt.Errorf("unknown cache backend %q", c.CacheBackend)
	}
	if c.PriceWeight < 0 || c.RatingWeight < 0 || c.ShippingWeight < 0 || c.TitleWeight < 0 {
		return fmt.Errorf("scoring weights must be non-negative")
	}
	if c.RequestsPerSecond <= 0 {
		return fmt.Errorf("requests per second must be positive, got %v", c.RequestsPerSecond)
	}
	if c.RedisStreamCount < 1 {
		return fmt.Errorf("redis stream count must be at least 1, got %d", c.RedisStreamCount)
	}
	if c.WatchInterval <= 0 {
		return fmt.Errorf("watch interval must be positive, got %v", c.WatchInterval)
	}
	return nil
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// getEnvBool parses a boolean environment variable, falling back on the
// default for unset or unparseable values
func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}

// getEnvFloat parses a float environment variable, falling back on the
// default for unset or unparseable values
func getEnvFloat(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return defaultValue
	}
	return parsed
}

// splitList splits a comma-separated environment value into trimmed,
// non-empty entries
func splitList(value string) []string {
	if value == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
