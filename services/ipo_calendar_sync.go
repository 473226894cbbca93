package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/fenilmodi00/ipo-calendar-sync/models"
	"github.com/fenilmodi00/ipo-calendar-sync/shared"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

const syncFlightKey = "ipo-calendar-sync"

// SyncSummary is the outcome of one sync run as returned to the admin endpoint and the scheduled job
type SyncSummary struct {
	Message string   `json:"message"`
	Added   int      `json:"added"`
	Updated int      `json:"updated"`
	Errors  []string `json:"errors"`
}

// IPOCalendarSyncService fetches every source, merges the results in source order
// and reconciles the merged set against the store.
type IPOCalendarSyncService struct {
	sources       []Source
	reconciler    *Reconciler
	strategy      MergeStrategy
	sourceTimeout time.Duration
	metrics       *shared.ServiceMetrics

	flight singleflight.Group

	mutex       sync.RWMutex
	hooks       []func(SyncSummary)
	lastSummary *SyncSummary
	lastRunAt   time.Time
}

// NewIPOCalendarSyncService creates the orchestrator. sources must be given in priority order:
// for a company reported by several sources, the first source's record wins.
func NewIPOCalendarSyncService(reconciler *Reconciler, strategy MergeStrategy, sourceTimeout time.Duration, sources ...Source) *IPOCalendarSyncService {
	if sourceTimeout <= 0 {
		sourceTimeout = 10 * time.Second
	}
	return &IPOCalendarSyncService{
		sources:       sources,
		reconciler:    reconciler,
		strategy:      strategy,
		sourceTimeout: sourceTimeout,
		metrics:       shared.NewServiceMetrics("IPOCalendarSyncService"),
	}
}

// OnSyncCompleted registers fn to be called with the summary after every finished run
func (s *IPOCalendarSyncService) OnSyncCompleted(fn func(SyncSummary)) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.hooks = append(s.hooks, fn)
}

// GetMetrics returns the run and per-source counters
func (s *IPOCalendarSyncService) GetMetrics() shared.MetricsSnapshot {
	return s.metrics.GetSnapshot()
}

// LastSummary returns the summary of the most recent run, if any
func (s *IPOCalendarSyncService) LastSummary() (SyncSummary, time.Time, bool) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	if s.lastSummary == nil {
		return SyncSummary{}, time.Time{}, false
	}
	return cloneSummary(*s.lastSummary), s.lastRunAt, true
}

// RunSync runs one full sync and returns its summary. It never fails: every problem is carried
// in the summary's Errors. Concurrent calls share the run already in flight.
func (s *IPOCalendarSyncService) RunSync(ctx context.Context) SyncSummary {
	v, _, joined := s.flight.Do(syncFlightKey, func() (interface{}, error) {
		return s.runSync(ctx), nil
	})
	if joined {
		logrus.WithField("component", "IPOCalendarSyncService").Debug("Shared result of a concurrent sync run")
	}
	return cloneSummary(v.(SyncSummary))
}

func (s *IPOCalendarSyncService) runSync(ctx context.Context) (summary SyncSummary) {
	startTime := time.Now()
	logger := logrus.WithFields(logrus.Fields{
		"component": "IPOCalendarSyncService",
		"sources":   len(s.sources),
		"strategy":  s.strategy,
	})

	defer func() {
		if p := recover(); p != nil {
			logger.WithField("panic", p).Error("IPO calendar sync aborted")
			summary = SyncSummary{
				Message: "IPO calendar sync failed",
				Errors:  []string{fmt.Sprintf("sync aborted: %v", p)},
			}
		}
		s.finishRun(summary, time.Since(startTime))
	}()

	logger.Info("Starting IPO calendar sync")

	results := s.fetchAll(ctx)

	lists := make([][]models.ScrapedRecord, 0, len(results))
	for _, result := range results {
		s.recordSourceMetrics(result)
		lists = append(lists, result.Records)
	}

	merged := MergeByPrecedence(s.strategy, lists...)

	// The store pass runs to completion even if the trigger goes away.
	reconciled := s.reconciler.Reconcile(context.WithoutCancel(ctx), merged)

	summary = SyncSummary{
		Message: fmt.Sprintf("IPO calendar sync completed: %d added, %d updated, %d errors",
			reconciled.Added, reconciled.Updated, len(reconciled.Errors)),
		Added:   reconciled.Added,
		Updated: reconciled.Updated,
		Errors:  reconciled.Errors,
	}

	logger.WithFields(logrus.Fields{
		"merged_records": len(merged),
		"added":          summary.Added,
		"updated":        summary.Updated,
		"errors":         len(summary.Errors),
		"duration":       time.Since(startTime),
	}).Info("IPO calendar sync finished")

	return summary
}

// fetchAll queries every source concurrently. Results keep the source order regardless of completion order.
func (s *IPOCalendarSyncService) fetchAll(ctx context.Context) []SourceResult {
	results := make([]SourceResult, len(s.sources))

	var g errgroup.Group
	for i, source := range s.sources {
		g.Go(func() error {
			results[i] = s.fetchSource(ctx, source)
			return nil
		})
	}
	_ = g.Wait()

	return results
}

// fetchSource bounds one source by sourceTimeout. A source that ignores its context is abandoned
// once the deadline passes, and a panicking source counts as a failed fetch.
func (s *IPOCalendarSyncService) fetchSource(ctx context.Context, source Source) SourceResult {
	ctx, cancel := context.WithTimeout(ctx, s.sourceTimeout)
	defer cancel()

	startTime := time.Now()
	done := make(chan SourceResult, 1)

	go func() {
		defer func() {
			if p := recover(); p != nil {
				done <- failedSourceResult(source.Name(), startTime, shared.NewServiceError(
					shared.ErrorCategoryProcessing,
					"SOURCE_PANIC",
					fmt.Sprintf("source panicked: %v", p),
					source.Name(),
					"Fetch",
					false,
					nil,
				))
			}
		}()
		done <- source.Fetch(ctx)
	}()

	select {
	case result := <-done:
		if result.Source == "" {
			result.Source = source.Name()
		}
		if result.Records == nil {
			result.Records = []models.ScrapedRecord{}
		}
		return result
	case <-ctx.Done():
		return failedSourceResult(source.Name(), startTime, shared.NewServiceError(
			shared.ErrorCategoryTimeout,
			"SOURCE_TIMEOUT",
			fmt.Sprintf("source did not respond within %s", s.sourceTimeout),
			source.Name(),
			"Fetch",
			true,
			ctx.Err(),
		))
	}
}

func (s *IPOCalendarSyncService) recordSourceMetrics(result SourceResult) {
	s.metrics.AddToCustomCounter(fmt.Sprintf("source_%s_records", result.Source), int64(len(result.Records)))
	if !result.OK() {
		s.metrics.IncrementCustomCounter(fmt.Sprintf("source_%s_failures", result.Source))
	}
}

func (s *IPOCalendarSyncService) finishRun(summary SyncSummary, duration time.Duration) {
	if summary.Errors == nil {
		summary.Errors = []string{}
	}

	s.metrics.RecordRequest(len(summary.Errors) == 0, duration)
	s.metrics.AddToCustomCounter("records_added", int64(summary.Added))
	s.metrics.AddToCustomCounter("records_updated", int64(summary.Updated))
	s.metrics.AddToCustomCounter("record_errors", int64(len(summary.Errors)))
	s.metrics.LogSummary()

	s.mutex.Lock()
	stored := cloneSummary(summary)
	s.lastSummary = &stored
	s.lastRunAt = time.Now()
	hooks := append([]func(SyncSummary){}, s.hooks...)
	s.mutex.Unlock()

	for _, hook := range hooks {
		hook(cloneSummary(summary))
	}
}

func cloneSummary(summary SyncSummary) SyncSummary {
	errs := make([]string, len(summary.Errors))
	copy(errs, summary.Errors)
	summary.Errors = errs
	return summary
}
