package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// Scheduler runs jobs on a cron-style schedule.
// Jobs depend on this interface so they can be run and tested without a live clock.
type Scheduler interface {
	Schedule(spec string, job func()) error
	Start()
	// Stop halts scheduling; the returned context is done once running jobs finish
	Stop() context.Context
}

// CronScheduler is the robfig/cron implementation of Scheduler
type CronScheduler struct {
	cron     *cron.Cron
	location *time.Location
}

func NewCronScheduler(location *time.Location) *CronScheduler {
	if location == nil {
		location = time.Local
	}
	return &CronScheduler{
		cron:     cron.New(cron.WithLocation(location)),
		location: location,
	}
}

func (s *CronScheduler) Schedule(spec string, job func()) error {
	id, err := s.cron.AddFunc(spec, job)
	if err != nil {
		return fmt.Errorf("invalid schedule %q: %w", spec, err)
	}

	logrus.WithFields(logrus.Fields{
		"component": "CronScheduler",
		"spec":      spec,
		"entry_id":  id,
		"location":  s.location.String(),
	}).Info("Job scheduled")
	return nil
}

func (s *CronScheduler) Start() {
	s.cron.Start()
	logrus.WithField("component", "CronScheduler").Info("Scheduler started")
}

func (s *CronScheduler) Stop() context.Context {
	logrus.WithField("component", "CronScheduler").Info("Stopping scheduler")
	return s.cron.Stop()
}

// NextRun returns the next activation time of the first scheduled job
func (s *CronScheduler) NextRun() (time.Time, bool) {
	entries := s.cron.Entries()
	if len(entries) == 0 {
		return time.Time{}, false
	}
	return entries[0].Next, true
}
