package services

import (
	"context"
	"net/url"
	"time"

	"github.com/fenilmodi00/ipo-calendar-sync/shared"
	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"
)

// RestyDocumentFetcher is the default fetch driver
type RestyDocumentFetcher struct {
	client      *resty.Client
	config      shared.ServiceConfig
	rateLimiter *shared.HTTPRequestRateLimiter
	metrics     *shared.HTTPMetrics
}

func NewRestyDocumentFetcher(cfg shared.ServiceConfig, metrics *shared.HTTPMetrics) *RestyDocumentFetcher {
	if metrics == nil {
		metrics = shared.NewHTTPMetrics()
	}

	client := resty.New().
		SetTimeout(cfg.HTTPRequestTimeout).
		SetRedirectPolicy(resty.FlexibleRedirectPolicy(5))

	return &RestyDocumentFetcher{
		client:      client,
		config:      cfg,
		rateLimiter: shared.NewHTTPRequestRateLimiter(cfg.RequestRateLimit),
		metrics:     metrics,
	}
}

func (f *RestyDocumentFetcher) Get(ctx context.Context, rawURL string, opts RequestOptions) ([]byte, error) {
	return f.execute(ctx, resty.MethodGet, rawURL, nil, opts)
}

func (f *RestyDocumentFetcher) Post(ctx context.Context, rawURL string, form url.Values, opts RequestOptions) ([]byte, error) {
	return f.execute(ctx, resty.MethodPost, rawURL, form, opts)
}

func (f *RestyDocumentFetcher) execute(ctx context.Context, method, rawURL string, form url.Values, opts RequestOptions) ([]byte, error) {
	ctx, cancel := withRequestTimeout(ctx, opts.Timeout, f.config.HTTPRequestTimeout)
	defer cancel()

	logger := logrus.WithFields(logrus.Fields{
		"component": "RestyDocumentFetcher",
		"method":    method,
		"url":       rawURL,
	})

	headers := shared.BrowserLikeHeaders(f.config.UserAgent, "", opts.Headers)

	var body []byte
	err := shared.RetryWithBackoff(ctx, f.config.MaxRetryAttempts, f.config.RetryBaseDelay,
		func(int, error) { f.metrics.RecordRetryAttempt() },
		func() error {
			if err := f.rateLimiter.Wait(ctx); err != nil {
				return newTransportError("resty", method, rawURL, 0, err)
			}

			req := f.client.R().SetContext(ctx).SetHeaders(headers)
			if form != nil {
				req.SetFormDataFromValues(form)
			}

			startTime := time.Now()
			resp, err := req.Execute(method, rawURL)
			elapsed := time.Since(startTime)

			if err != nil {
				f.metrics.RecordHTTPRequest(false, 0, elapsed, ctx.Err() != nil)
				return newTransportError("resty", method, rawURL, 0, err)
			}

			f.metrics.RecordHTTPRequest(!resp.IsError(), resp.StatusCode(), elapsed, false)
			if resp.IsError() {
				return newTransportError("resty", method, rawURL, resp.StatusCode(), nil)
			}

			body = resp.Body()
			return nil
		})
	if err != nil {
		logger.WithError(err).Debug("Document request failed")
		return nil, err
	}

	logger.WithField("bytes", len(body)).Debug("Document fetched")
	return shared.DecodeToUTF8(body, opts.Charset)
}
