package services

import (
	"context"
	"net/url"

	"github.com/chromedp/chromedp"
	"github.com/fenilmodi00/ipo-calendar-sync/shared"
	"github.com/sirupsen/logrus"
)

// BrowserDocumentFetcher renders GET sources in headless Chrome for pages that build
// their tables client-side. Form posts are delegated to formFetcher.
type BrowserDocumentFetcher struct {
	config      shared.ServiceConfig
	formFetcher DocumentFetcher
	rateLimiter *shared.HTTPRequestRateLimiter
}

func NewBrowserDocumentFetcher(cfg shared.ServiceConfig, formFetcher DocumentFetcher) *BrowserDocumentFetcher {
	return &BrowserDocumentFetcher{
		config:      cfg,
		formFetcher: formFetcher,
		rateLimiter: shared.NewHTTPRequestRateLimiter(cfg.RequestRateLimit),
	}
}

func (f *BrowserDocumentFetcher) Get(ctx context.Context, rawURL string, opts RequestOptions) ([]byte, error) {
	ctx, cancel := withRequestTimeout(ctx, opts.Timeout, f.config.HTTPRequestTimeout)
	defer cancel()

	logger := logrus.WithFields(logrus.Fields{
		"component": "BrowserDocumentFetcher",
		"url":       rawURL,
	})

	if err := f.rateLimiter.Wait(ctx); err != nil {
		return nil, newTransportError("browser", "GET", rawURL, 0, err)
	}

	allocatorOptions := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-images", true),
		chromedp.Flag("mute-audio", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.UserAgent(f.config.UserAgent),
	)

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, allocatorOptions...)
	defer cancelAlloc()

	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()

	var html string
	err := chromedp.Run(browserCtx,
		chromedp.Navigate(rawURL),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	if err != nil {
		logger.WithError(err).Debug("Browser render failed")
		return nil, newTransportError("browser", "GET", rawURL, 0, err)
	}

	logger.WithField("bytes", len(html)).Debug("Document rendered")
	return []byte(html), nil
}

func (f *BrowserDocumentFetcher) Post(ctx context.Context, rawURL string, form url.Values, opts RequestOptions) ([]byte, error) {
	if f.formFetcher == nil {
		return nil, shared.NewServiceError(
			shared.ErrorCategoryConfiguration,
			"POST_UNSUPPORTED",
			"browser fetch driver has no form fetcher configured",
			"browser",
			"POST",
			false,
			nil,
		)
	}
	return f.formFetcher.Post(ctx, rawURL, form, opts)
}
