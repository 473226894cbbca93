package jobs

import (
	"github.com/sirupsen/logrus"
)

// CacheInvalidator drops cached calendar reads
type CacheInvalidator interface {
	InvalidateCache() int
}

// CacheCleanupJob clears the calendar read cache at a fixed time, so lists
// never outlive the day they were built on
type CacheCleanupJob struct {
	Cache CacheInvalidator
}

func NewCacheCleanupJob(cache CacheInvalidator) *CacheCleanupJob {
	return &CacheCleanupJob{Cache: cache}
}

func (j *CacheCleanupJob) Register(scheduler Scheduler, spec string) error {
	return scheduler.Schedule(spec, j.Run)
}

func (j *CacheCleanupJob) Run() {
	removed := j.Cache.InvalidateCache()
	logrus.WithFields(logrus.Fields{
		"component": "CacheCleanupJob",
		"removed":   removed,
	}).Info("Cache Cleanup Job completed")
}
