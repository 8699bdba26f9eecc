package errors

import (
	"fmt"
	"time"
)

// ErrorType represents the type of error
type ErrorType string

const (
	// ErrorTypeNetwork represents network-related errors
	ErrorTypeNetwork ErrorType = "network"
	// ErrorTypeParsing represents payload parsing errors
	ErrorTypeParsing ErrorType = "parsing"
	// ErrorTypeRateLimit represents rate limiting errors
	ErrorTypeRateLimit ErrorType = "rate_limit"
	// ErrorTypeCache represents cache-related errors
	ErrorTypeCache ErrorType = "cache"
	// ErrorTypePublisher represents publisher-related errors
	ErrorTypePublisher ErrorType = "publisher"
	// ErrorTypeValidation represents validation errors
	ErrorTypeValidation ErrorType = "validation"
	// ErrorTypeConfiguration represents configuration errors
	ErrorTypeConfiguration ErrorType = "configuration"
)

// ScrapeError represents a scraper-specific error
type ScrapeError struct {
	Type     ErrorType
	Platform string
	Message  string
	Err      error
	Time     time.Time
}

// Error implements the error interface
func (e *ScrapeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %s - %v", e.Type, e.Platform, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Type, e.Platform, e.Message)
}

// Unwrap returns the underlying error
func (e *ScrapeError) Unwrap() error {
	return e.Err
}

// IsRetryable returns true if the error is retryable
func (e *ScrapeError) IsRetryable() bool {
	switch e.Type {
	case ErrorTypeNetwork:
		return true
	case ErrorTypeRateLimit:
		return false
	case ErrorTypeParsing:
		return false
	default:
		return false
	}
}

// New creates a new ScrapeError
func New(errType ErrorType, platform, message string, err error) *ScrapeError {
	return &ScrapeError{
		Type:     errType,
		Platform: platform,
		Message:  message,
		Err:      err,
		Time:     time.Now(),
	}
}

// NewNetwork creates a new network error
func NewNetwork(platform, message string, err error) *ScrapeError {
	return New(ErrorTypeNetwork, platform, message, err)
}

// NewParsing creates a new parsing error
func NewParsing(platform, message string, err error) *ScrapeError {
	return New(ErrorTypeParsing, platform, message, err)
}

// NewRateLimit creates a new rate limit error
func NewRateLimit(platform string, duration time.Duration) *ScrapeError {
	message := fmt.Sprintf("rate limited for %v", duration)
	return New(ErrorTypeRateLimit, platform, message, nil)
}

// NewCache creates a new cache error
func NewCache(platform, message string, err error) *ScrapeError {
	return New(ErrorTypeCache, platform, message, err)
}

// NewValidation creates a new validation error
func NewValidation(platform, message string) *ScrapeError {
	return New(ErrorTypeValidation, platform, message, nil)
}

// NewConfiguration creates a new configuration error
func NewConfiguration(message string, err error) *ScrapeError {
	return New(ErrorTypeConfiguration, "", message, err)
}

// UnsupportedPlatformError is returned when a URL's host does not belong to
// any known marketplace. This is a permanent condition for the given input.
type UnsupportedPlatformError struct {
	Host string
}

func (e *UnsupportedPlatformError) Error() string {
	return fmt.Sprintf("unsupported platform host: %s", e.Host)
}

// MalformedProductURLError is returned when the host matches a known
// marketplace but the expected product id pattern is absent, e.g. a category
// page instead of a product page. Distinct from UnsupportedPlatformError
// because the marketplace may have changed its URL scheme and a pattern
// update could make the same input parseable again.
type MalformedProductURLError struct {
	Platform string
	URL      string
}

func (e *MalformedProductURLError) Error() string {
	return fmt.Sprintf("malformed %s product url: %s", e.Platform, e.URL)
}
