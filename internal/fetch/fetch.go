// Package fetch obtains raw index history payloads from the producer.
package fetch

import (
	"fmt"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/huangsam/indexhist/internal/contract"
	"github.com/huangsam/indexhist/schema"
)

const (
	DefaultBaseURL   = "https://www.tbank.ru"
	DefaultTimeout   = contract.DefaultFetchTimeout
	DefaultRateLimit = contract.DefaultRateLimit // requests per second
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"

	// maxBodyBytes caps how much of a response is read into memory.
	maxBodyBytes = 32 << 20
)

// settings holds what every client shares, whatever its strategy.
type settings struct {
	baseURL    string
	userAgent  string
	timeout    time.Duration
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *contract.Logger
}

// Option configures a client.
type Option func(*settings)

// WithBaseURL sets the producer origin, mainly for tests.
func WithBaseURL(baseURL string) Option {
	return func(s *settings) {
		s.baseURL = baseURL
	}
}

// WithTimeout sets the per-request timeout
func WithTimeout(timeout time.Duration) Option {
	return func(s *settings) {
		if timeout > 0 {
			s.timeout = timeout
		}
	}
}

// WithRateLimit sets the rate limit. A non-positive value disables limiting.
func WithRateLimit(requestsPerSecond int) Option {
	return func(s *settings) {
		if requestsPerSecond <= 0 {
			s.limiter = rate.NewLimiter(rate.Inf, 1)
			return
		}
		s.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond)
	}
}

// WithLogger sets the logger
func WithLogger(logger *contract.Logger) Option {
	return func(s *settings) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithHTTPClient replaces the HTTP client. Its Timeout is overridden by WithTimeout.
func WithHTTPClient(client *http.Client) Option {
	return func(s *settings) {
		if client != nil {
			s.httpClient = client
		}
	}
}

// WithUserAgent sets the User-Agent sent to the producer.
func WithUserAgent(userAgent string) Option {
	return func(s *settings) {
		s.userAgent = userAgent
	}
}

func newSettings(opts []Option) *settings {
	s := &settings{
		baseURL:    DefaultBaseURL,
		userAgent:  DefaultUserAgent,
		timeout:    DefaultTimeout,
		httpClient: &http.Client{},
		limiter:    rate.NewLimiter(rate.Limit(DefaultRateLimit), DefaultRateLimit),
		logger:     contract.NewSilentLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.httpClient.Timeout = s.timeout
	return s
}

// NewFetcher returns the fetcher for a strategy.
func NewFetcher(strategy schema.FetchStrategy, opts ...Option) (contract.Fetcher, error) {
	switch strategy {
	case schema.PageStrategy, "":
		return NewPageClient(opts...), nil
	case schema.APIStrategy:
		return NewAPIClient(opts...), nil
	case schema.BrowserStrategy:
		return NewBrowserClient(opts...), nil
	default:
		return nil, fmt.Errorf("unsupported fetch strategy: %s. Must be page, api, or browser", strategy)
	}
}

// PageURL returns the public page of an index.
func PageURL(baseURL string, key schema.SeriesKey) string {
	return fmt.Sprintf("%s/invest/indexes/%s/", baseURL, key.Slug())
}

// HistoryURL returns the producer API endpoint for the history of an index.
func HistoryURL(baseURL string, key schema.SeriesKey) string {
	return fmt.Sprintf("%s/api/invest-gw/capital/funds/v1/indexes/%s/history?period=%s", baseURL, key.Slug(), key.Period)
}
