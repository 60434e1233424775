package fetch

import (
	"context"
	"fmt"

	"github.com/chromedp/chromedp"

	"github.com/huangsam/indexhist/internal/contract"
	"github.com/huangsam/indexhist/internal/series"
	"github.com/huangsam/indexhist/schema"
)

// BrowserClient renders the index page in headless Chrome and returns the resulting markup.
// It is the fallback for when the plain page response does not carry the state block.
type BrowserClient struct {
	*settings
	allocatorOptions []chromedp.ExecAllocatorOption
}

var _ contract.Fetcher = (*BrowserClient)(nil) // Compile-time check

// NewBrowserClient creates a client for the browser strategy.
func NewBrowserClient(opts ...Option) *BrowserClient {
	s := newSettings(opts)
	allocatorOptions := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Headless,
		chromedp.DisableGPU,
		chromedp.NoSandbox,
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.UserAgent(s.userAgent),
	)
	return &BrowserClient{settings: s, allocatorOptions: allocatorOptions}
}

// Fetch implements the Fetcher interface.
func (c *BrowserClient) Fetch(ctx context.Context, key schema.SeriesKey) (contract.Payload, error) {
	reqURL := PageURL(c.baseURL, key)
	if err := c.limiter.Wait(ctx); err != nil {
		return contract.Payload{}, &contract.TransportError{URL: reqURL, Err: fmt.Errorf("rate limit wait: %w", err)}
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, c.allocatorOptions...)
	defer cancelAlloc()
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()
	runCtx, cancelRun := context.WithTimeout(browserCtx, c.timeout)
	defer cancelRun()

	c.logger.Debug().Str("url", reqURL).Msg("browser navigation")

	var markup string
	err := chromedp.Run(runCtx,
		chromedp.Navigate(reqURL),
		chromedp.WaitReady("#"+series.StateBlockID, chromedp.ByQuery),
		chromedp.OuterHTML("html", &markup, chromedp.ByQuery),
	)
	if err != nil {
		c.logger.Error().Err(err).Str("url", reqURL).Msg("browser navigation failed")
		return contract.Payload{}, &contract.TransportError{URL: reqURL, Err: err}
	}
	return contract.Payload{Format: schema.MarkupPayload, Body: []byte(markup), Source: reqURL}, nil
}

// Strategy implements the Fetcher interface.
func (c *BrowserClient) Strategy() schema.FetchStrategy {
	return schema.BrowserStrategy
}
