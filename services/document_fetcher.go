package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/fenilmodi00/ipo-calendar-sync/shared"
)

// RequestOptions tunes a single document request
type RequestOptions struct {
	// Headers are added on top of the browser-like defaults
	Headers map[string]string

	// Timeout bounds the whole request including retries; zero uses the fetcher default
	Timeout time.Duration

	// Charset names the encoding of the source document. Fetchers always return UTF-8.
	Charset string
}

// DocumentFetcher retrieves raw markup from a source
type DocumentFetcher interface {
	Get(ctx context.Context, rawURL string, opts RequestOptions) ([]byte, error)
	Post(ctx context.Context, rawURL string, form url.Values, opts RequestOptions) ([]byte, error)
}

// NewDocumentFetcher builds the fetcher selected by cfg.FetchDriver
func NewDocumentFetcher(cfg shared.ServiceConfig, metrics *shared.HTTPMetrics) DocumentFetcher {
	switch cfg.FetchDriver {
	case "colly":
		return NewCollyDocumentFetcher(cfg, metrics)
	case "browser":
		return NewBrowserDocumentFetcher(cfg, NewRestyDocumentFetcher(cfg, metrics))
	default:
		return NewRestyDocumentFetcher(cfg, metrics)
	}
}

func withRequestTimeout(ctx context.Context, timeout, fallback time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		timeout = fallback
	}
	return context.WithTimeout(ctx, timeout)
}

// newTransportError classifies a failed request. Server errors, throttling and
// network timeouts are retryable; other client errors are not.
func newTransportError(driver, operation, rawURL string, statusCode int, cause error) *shared.ServiceError {
	if statusCode > 0 {
		retryable := statusCode >= http.StatusInternalServerError || statusCode == http.StatusTooManyRequests
		return shared.NewServiceError(
			shared.ErrorCategoryNetwork,
			"HTTP_STATUS",
			fmt.Sprintf("%s %s returned HTTP %d", operation, rawURL, statusCode),
			driver,
			operation,
			retryable,
			cause,
		).WithDetails(map[string]interface{}{"status_code": statusCode})
	}

	if errors.Is(cause, context.DeadlineExceeded) {
		return shared.NewServiceError(
			shared.ErrorCategoryTimeout,
			"REQUEST_TIMEOUT",
			fmt.Sprintf("%s %s timed out", operation, rawURL),
			driver,
			operation,
			false,
			cause,
		)
	}

	return shared.NewServiceError(
		shared.ErrorCategoryNetwork,
		"REQUEST_FAILED",
		fmt.Sprintf("%s %s failed: %v", operation, rawURL, cause),
		driver,
		operation,
		shared.IsRetryableError(cause),
		cause,
	)
}
