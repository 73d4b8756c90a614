package fetcher

import (
	"context"

	"github.com/chromedp/chromedp"

	"github.com/carhound/carhound/internal/logger"
)

// Dynamic fetches pages with a headless browser, for when the marketplace
// only renders listing data client-side.
type Dynamic struct {
	config    Config
	allocCtx  context.Context
	cancelCtx context.CancelFunc
}

// NewDynamic creates a dynamic fetcher backed by a browser instance.
func NewDynamic(cfg Config) (*Dynamic, error) {
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultConfig().UserAgent
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultConfig().Timeout
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.UserAgent(cfg.UserAgent),
		chromedp.WindowSize(1920, 1080),
	)

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.Background(), opts...)

	logger.Debug("dynamic fetcher created", "user_agent", cfg.UserAgent, "timeout", cfg.Timeout)

	return &Dynamic{
		config:    cfg,
		allocCtx:  allocCtx,
		cancelCtx: cancelAlloc,
	}, nil
}

// Fetch retrieves the rendered HTML for a URL.
func (f *Dynamic) Fetch(ctx context.Context, targetURL string) (string, error) {
	browserCtx, cancelBrowser := chromedp.NewContext(f.allocCtx)
	defer cancelBrowser()

	timeoutCtx, cancelTimeout := context.WithTimeout(browserCtx, f.config.Timeout)
	defer cancelTimeout()

	// Stop the navigation if the caller's context is cancelled first.
	go func() {
		select {
		case <-ctx.Done():
			cancelTimeout()
		case <-timeoutCtx.Done():
		}
	}()

	var html string
	err := chromedp.Run(timeoutCtx,
		chromedp.Navigate(targetURL),
		chromedp.WaitVisible("body"),
		chromedp.OuterHTML("html", &html),
	)
	if err != nil {
		return "", &FetchError{URL: targetURL, Err: err}
	}

	logger.Debug("dynamic fetch complete", "url", targetURL, "html_size", len(html))
	return html, nil
}

// Close shuts down the browser allocator.
func (f *Dynamic) Close() error {
	f.cancelCtx()
	return nil
}

// Type returns the fetcher type.
func (f *Dynamic) Type() string {
	return "dynamic"
}
