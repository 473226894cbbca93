package services

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/fenilmodi00/ipo-calendar-sync/shared"
	"github.com/gocolly/colly/v2"
	"github.com/sirupsen/logrus"
)

// CollyDocumentFetcher fetches documents through a colly collector.
// Colly transcodes the body itself using the charset hint set in OnRequest.
type CollyDocumentFetcher struct {
	config      shared.ServiceConfig
	rateLimiter *shared.HTTPRequestRateLimiter
	metrics     *shared.HTTPMetrics
}

func NewCollyDocumentFetcher(cfg shared.ServiceConfig, metrics *shared.HTTPMetrics) *CollyDocumentFetcher {
	if metrics == nil {
		metrics = shared.NewHTTPMetrics()
	}
	return &CollyDocumentFetcher{
		config:      cfg,
		rateLimiter: shared.NewHTTPRequestRateLimiter(cfg.RequestRateLimit),
		metrics:     metrics,
	}
}

func (f *CollyDocumentFetcher) Get(ctx context.Context, rawURL string, opts RequestOptions) ([]byte, error) {
	return f.execute(ctx, http.MethodGet, rawURL, nil, opts)
}

func (f *CollyDocumentFetcher) Post(ctx context.Context, rawURL string, form url.Values, opts RequestOptions) ([]byte, error) {
	return f.execute(ctx, http.MethodPost, rawURL, form, opts)
}

func (f *CollyDocumentFetcher) execute(ctx context.Context, method, rawURL string, form url.Values, opts RequestOptions) ([]byte, error) {
	ctx, cancel := withRequestTimeout(ctx, opts.Timeout, f.config.HTTPRequestTimeout)
	defer cancel()

	headers := shared.BrowserLikeHeaders(f.config.UserAgent, "", opts.Headers)

	var body []byte
	err := shared.RetryWithBackoff(ctx, f.config.MaxRetryAttempts, f.config.RetryBaseDelay,
		func(int, error) { f.metrics.RecordRetryAttempt() },
		func() error {
			if err := f.rateLimiter.Wait(ctx); err != nil {
				return newTransportError("colly", method, rawURL, 0, err)
			}

			var attemptErr error
			body, attemptErr = f.collect(ctx, method, rawURL, form, headers, opts.Charset)
			return attemptErr
		})
	if err != nil {
		return nil, err
	}
	return body, nil
}

// collect runs one request on a fresh collector so concurrent sources never share callbacks
func (f *CollyDocumentFetcher) collect(ctx context.Context, method, rawURL string, form url.Values, headers map[string]string, charset string) ([]byte, error) {
	logger := logrus.WithFields(logrus.Fields{
		"component": "CollyDocumentFetcher",
		"method":    method,
		"url":       rawURL,
	})

	c := colly.NewCollector(
		colly.StdlibContext(ctx),
		colly.AllowURLRevisit(),
		colly.UserAgent(headers["User-Agent"]),
	)
	c.SetRequestTimeout(f.config.HTTPRequestTimeout)

	c.OnRequest(func(r *colly.Request) {
		for k, v := range headers {
			r.Headers.Set(k, v)
		}
		if charset != "" {
			r.ResponseCharacterEncoding = charset
		}
		logger.Debug("Requesting document")
	})

	var body []byte
	var statusCode int
	var requestErr error

	c.OnResponse(func(r *colly.Response) {
		statusCode = r.StatusCode
		body = r.Body
	})

	c.OnError(func(r *colly.Response, err error) {
		if r != nil {
			statusCode = r.StatusCode
		}
		requestErr = err
	})

	startTime := time.Now()
	var err error
	if method == http.MethodPost {
		hdr := http.Header{}
		hdr.Set("Content-Type", "application/x-www-form-urlencoded")
		err = c.Request(http.MethodPost, rawURL, strings.NewReader(form.Encode()), nil, hdr)
	} else {
		err = c.Visit(rawURL)
	}
	elapsed := time.Since(startTime)

	if err == nil {
		err = requestErr
	}
	if err != nil {
		f.metrics.RecordHTTPRequest(false, statusCode, elapsed, ctx.Err() != nil)
		if statusCode >= http.StatusBadRequest {
			return nil, newTransportError("colly", method, rawURL, statusCode, err)
		}
		return nil, newTransportError("colly", method, rawURL, 0, err)
	}

	f.metrics.RecordHTTPRequest(true, statusCode, elapsed, false)
	logger.WithField("bytes", len(body)).Debug("Document fetched")
	return body, nil
}
