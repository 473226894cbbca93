package jobs

import (
	"context"
	"time"

	"github.com/fenilmodi00/ipo-calendar-sync/services"
	"github.com/fenilmodi00/ipo-calendar-sync/shared"
	"github.com/sirupsen/logrus"
)

// CalendarSyncer is the operation the job triggers
type CalendarSyncer interface {
	RunSync(ctx context.Context) services.SyncSummary
}

// IPOCalendarSyncJob runs the calendar sync on a schedule and logs the summary
type IPOCalendarSyncJob struct {
	Syncer  CalendarSyncer
	Timeout time.Duration
}

func NewIPOCalendarSyncJob(syncer CalendarSyncer) *IPOCalendarSyncJob {
	return &IPOCalendarSyncJob{
		Syncer:  syncer,
		Timeout: 15 * time.Minute,
	}
}

// Register schedules the job with scheduler
func (j *IPOCalendarSyncJob) Register(scheduler Scheduler, spec string) error {
	return scheduler.Schedule(spec, j.Run)
}

func (j *IPOCalendarSyncJob) Run() {
	logrus.Info("Starting scheduled IPO calendar sync")
	ctx, cancel := context.WithTimeout(context.Background(), j.Timeout)
	defer cancel()

	startTime := time.Now()
	summary := j.Syncer.RunSync(ctx)

	entry := logrus.WithFields(logrus.Fields{
		"component": "IPOCalendarSyncJob",
		"added":     summary.Added,
		"updated":   summary.Updated,
		"errors":    len(summary.Errors),
		"duration":  time.Since(startTime),
	})

	if len(summary.Errors) > 0 {
		entry.Warn(shared.BuildBatchProcessingErrorSummary(summary.Added+summary.Updated, len(summary.Errors), summary.Errors))
		return
	}
	entry.Info(summary.Message)
}
