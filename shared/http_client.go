package shared

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/transform"
)

// DefaultUserAgent is sent to sources that reject non-browser clients
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// BrowserLikeHeaders returns request headers that mimic a desktop browser.
// Entries in extra override the defaults.
func BrowserLikeHeaders(userAgent, acceptHeader string, extra map[string]string) map[string]string {
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	if acceptHeader == "" {
		acceptHeader = "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8"
	}

	headers := map[string]string{
		"User-Agent":      userAgent,
		"Accept":          acceptHeader,
		"Accept-Language": "ko-KR,ko;q=0.9,en-US;q=0.8,en;q=0.7",
		"Cache-Control":   "no-cache",
		"Connection":      "keep-alive",
	}
	for k, v := range extra {
		headers[k] = v
	}
	return headers
}

// RetryWithBackoff runs operation until it succeeds, returns a non-retryable error,
// or maxRetryAttempts retries have been spent. Backoff doubles from baseDelay with a small jitter.
func RetryWithBackoff(ctx context.Context, maxRetryAttempts int, baseDelay time.Duration, onRetry func(attempt int, err error), operation func() error) error {
	logger := logrus.WithFields(logrus.Fields{
		"component": "RetryWithBackoff",
	})

	var lastExecutionError error

	for attemptNumber := 0; attemptNumber <= maxRetryAttempts; attemptNumber++ {
		if attemptNumber > 0 {
			baseBackoffDuration := time.Duration(1<<uint(attemptNumber-1)) * baseDelay
			jitterDuration := time.Duration(float64(baseBackoffDuration) * 0.1 * (0.5 + 0.5*float64(attemptNumber%3)/2))
			totalBackoffDuration := baseBackoffDuration + jitterDuration

			logger.WithFields(logrus.Fields{
				"attempt":          attemptNumber + 1,
				"backoff_duration": totalBackoffDuration,
				"error":            lastExecutionError,
			}).Debug("Retrying after backoff")

			if onRetry != nil {
				onRetry(attemptNumber, lastExecutionError)
			}

			timer := time.NewTimer(totalBackoffDuration)
			select {
			case <-ctx.Done():
				timer.Stop()
				return fmt.Errorf("retry aborted after %d attempts: %w", attemptNumber, ctx.Err())
			case <-timer.C:
			}
		}

		lastExecutionError = operation()
		if lastExecutionError == nil {
			return nil
		}

		if ctx.Err() != nil || !IsRetryableError(lastExecutionError) {
			return lastExecutionError
		}
	}

	return fmt.Errorf("request failed after %d attempts: %w", maxRetryAttempts+1, lastExecutionError)
}

// DecodeToUTF8 converts body from the named charset (WHATWG label, e.g. "euc-kr") to UTF-8.
// An empty or UTF-8 charset returns body unchanged.
func DecodeToUTF8(body []byte, charset string) ([]byte, error) {
	charset = strings.ToLower(strings.TrimSpace(charset))
	if charset == "" || charset == "utf-8" || charset == "utf8" {
		return body, nil
	}

	enc, err := htmlindex.Get(charset)
	if err != nil {
		return nil, fmt.Errorf("unsupported charset %q: %w", charset, err)
	}

	decoded, err := io.ReadAll(transform.NewReader(bytes.NewReader(body), enc.NewDecoder()))
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s body: %w", charset, err)
	}
	return decoded, nil
}
