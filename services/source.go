package services

import (
	"context"
	"time"

	"github.com/fenilmodi00/ipo-calendar-sync/models"
	"github.com/fenilmodi00/ipo-calendar-sync/shared"
	"github.com/sirupsen/logrus"
)

// Clock returns the current time in the calendar's timezone
type Clock func() time.Time

// SystemClock returns a Clock reading the wall clock in loc
func SystemClock(loc *time.Location) Clock {
	return func() time.Time {
		return time.Now().In(loc)
	}
}

// Source is one external calendar. Fetch never fails outright: on any transport or
// document failure it returns a result with no records and Err set.
type Source interface {
	Name() string
	Fetch(ctx context.Context) SourceResult
}

// SourceResult is the outcome of one source fetch
type SourceResult struct {
	Source   string                 `json:"source"`
	Records  []models.ScrapedRecord `json:"records"`
	Err      error                  `json:"-"`
	Duration time.Duration          `json:"duration"`
}

// OK reports whether the fetch succeeded
func (r SourceResult) OK() bool {
	return r.Err == nil
}

func failedSourceResult(source string, startTime time.Time, err error) SourceResult {
	logrus.WithFields(logrus.Fields{
		"component": "Source",
		"source":    source,
		"category":  shared.ErrorCategoryOf(err),
		"error":     err,
	}).Warn("Source fetch failed, contributing no records")

	return SourceResult{
		Source:   source,
		Records:  []models.ScrapedRecord{},
		Err:      err,
		Duration: time.Since(startTime),
	}
}

func documentError(source, code, message string, cause error) *shared.ServiceError {
	return shared.NewServiceError(
		shared.ErrorCategoryDocument,
		code,
		message,
		source,
		"Fetch",
		false,
		cause,
	)
}

func int64Ptr(v int64) *int64 {
	return &v
}

func timePtr(t time.Time) *time.Time {
	return &t
}
