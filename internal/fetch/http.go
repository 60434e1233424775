package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/huangsam/indexhist/internal/contract"
	"github.com/huangsam/indexhist/schema"
)

// get performs one rate-limited GET and returns the body of a 2xx response.
// Every failure is a *contract.TransportError.
func (s *settings) get(ctx context.Context, reqURL, accept string) ([]byte, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, &contract.TransportError{URL: reqURL, Err: fmt.Errorf("rate limit wait: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, &contract.TransportError{URL: reqURL, Err: fmt.Errorf("failed to create request: %w", err)}
	}
	req.Header.Set("User-Agent", s.userAgent)
	req.Header.Set("Accept", accept)

	s.logger.Debug().Str("url", reqURL).Msg("producer request")

	start := time.Now()
	resp, err := s.httpClient.Do(req)
	elapsed := time.Since(start)
	if err != nil {
		s.logger.Error().Err(err).Str("url", reqURL).Dur("elapsed", elapsed).Msg("producer request failed")
		return nil, &contract.TransportError{URL: reqURL, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		s.logger.Warn().Str("url", reqURL).Int("status", resp.StatusCode).Dur("elapsed", elapsed).Msg("producer non-OK response")
		return nil, &contract.TransportError{URL: reqURL, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, &contract.TransportError{URL: reqURL, Err: fmt.Errorf("failed to read response: %w", err)}
	}

	s.logger.Info().Str("url", reqURL).Int("status", resp.StatusCode).Int("bytes", len(body)).Dur("elapsed", elapsed).Msg("producer call")
	return body, nil
}

// PageClient reads the public index page and returns its markup.
type PageClient struct {
	*settings
}

var _ contract.Fetcher = (*PageClient)(nil) // Compile-time check

// NewPageClient creates a client for the page strategy.
func NewPageClient(opts ...Option) *PageClient {
	return &PageClient{settings: newSettings(opts)}
}

// Fetch implements the Fetcher interface.
func (c *PageClient) Fetch(ctx context.Context, key schema.SeriesKey) (contract.Payload, error) {
	reqURL := PageURL(c.baseURL, key)
	body, err := c.get(ctx, reqURL, "text/html,application/xhtml+xml")
	if err != nil {
		return contract.Payload{}, err
	}
	return contract.Payload{Format: schema.MarkupPayload, Body: body, Source: reqURL}, nil
}

// Strategy implements the Fetcher interface.
func (c *PageClient) Strategy() schema.FetchStrategy {
	return schema.PageStrategy
}

// APIClient reads the producer JSON API, which already filters by period.
type APIClient struct {
	*settings
}

var _ contract.Fetcher = (*APIClient)(nil) // Compile-time check

// NewAPIClient creates a client for the api strategy.
func NewAPIClient(opts ...Option) *APIClient {
	return &APIClient{settings: newSettings(opts)}
}

// Fetch implements the Fetcher interface.
func (c *APIClient) Fetch(ctx context.Context, key schema.SeriesKey) (contract.Payload, error) {
	reqURL := HistoryURL(c.baseURL, key)
	body, err := c.get(ctx, reqURL, "application/json")
	if err != nil {
		return contract.Payload{}, err
	}
	return contract.Payload{Format: schema.APIPayload, Body: body, Source: reqURL}, nil
}

// Strategy implements the Fetcher interface.
func (c *APIClient) Strategy() schema.FetchStrategy {
	return schema.APIStrategy
}
