package config

import (
	"testing"
	"time"

	"github.com/fenilmodi00/ipo-calendar-sync/shared"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func TestLoadConfigDefaults(t *testing.T) {
	for _, key := range []string{"SERVER_PORT", "SYNC_CRON", "FETCH_DRIVER", "MERGE_STRATEGY", "SYNC_ON_STARTUP", "CACHE_CLEANUP_CRON"} {
		t.Setenv(key, "")
	}
	t.Setenv("SERVER_PORT", "9090")

	cfg := LoadConfig()

	assert.Equal(t, "9090", cfg.ServerPort)
	assert.Equal(t, "", cfg.SyncCron)
	assert.Equal(t, "Asia/Seoul", cfg.SyncTimezone)
	assert.Equal(t, shared.DefaultThirtyEightURL, cfg.ThirtyEightURL)
}

func TestToUnifiedConfiguration(t *testing.T) {
	cfg := &Config{
		CacheTTLMinutes:  "10",
		CacheCleanupCron: "0 0 * * *",
		SyncCron:         "*/30 * * * *",
		SyncTimezone:     "Asia/Seoul",
		SyncOnStartup:    true,
		SourceTimeout:    "20",
		MergeStrategy:    "FILL-GAPS",
		StatusOwnership:  "sync",
		FetchDriver:      "Colly",
		UserAgent:        "test-agent",
		RequestDelayMs:   "250",
		MaxRetryAttempts: "4",
		ThirtyEightURL:   "http://38.test/",
		KINDURL:          "http://kind.test/",
		LogLevel:         "debug",
		LogFormat:        "json",
	}

	unified := cfg.ToUnifiedConfiguration()

	assert.Equal(t, "colly", unified.Service.FetchDriver)
	assert.Equal(t, "test-agent", unified.Service.UserAgent)
	assert.Equal(t, 250*time.Millisecond, unified.Service.RequestRateLimit)
	assert.Equal(t, 4, unified.Service.MaxRetryAttempts)
	assert.Equal(t, 20*time.Second, unified.Service.HTTPRequestTimeout)
	assert.Equal(t, "http://38.test/", unified.Sources.ThirtyEightURL)
	assert.Equal(t, "http://kind.test/", unified.Sources.KINDURL)
	assert.Equal(t, "*/30 * * * *", unified.Sync.CronSpec)
	assert.True(t, unified.Sync.RunOnStartup)
	assert.Equal(t, 20*time.Second, unified.Sync.SourceTimeout)
	assert.Equal(t, "fill-gaps", unified.Sync.MergeStrategy)
	assert.Equal(t, "sync", unified.Sync.StatusOwnership)
	assert.Equal(t, 10*time.Minute, unified.Cache.DefaultTTL)
	assert.Equal(t, "0 0 * * *", unified.Cache.CleanupCron)
	assert.Equal(t, "debug", unified.Logging.Level)
}

func TestToUnifiedConfigurationFallsBackOnInvalidValues(t *testing.T) {
	cfg := &Config{
		CacheTTLMinutes:  "soon",
		SourceTimeout:    "-3",
		MergeStrategy:    "last-wins",
		StatusOwnership:  "nobody",
		FetchDriver:      "curl",
		RequestDelayMs:   "fast",
		MaxRetryAttempts: "many",
	}

	unified := cfg.ToUnifiedConfiguration()
	defaults := shared.NewDefaultUnifiedConfiguration()

	assert.Equal(t, defaults.Service.FetchDriver, unified.Service.FetchDriver)
	assert.Equal(t, defaults.Service.RequestRateLimit, unified.Service.RequestRateLimit)
	assert.Equal(t, defaults.Service.MaxRetryAttempts, unified.Service.MaxRetryAttempts)
	assert.Equal(t, defaults.Sync.SourceTimeout, unified.Sync.SourceTimeout)
	assert.Equal(t, defaults.Sync.MergeStrategy, unified.Sync.MergeStrategy)
	assert.Equal(t, defaults.Sync.StatusOwnership, unified.Sync.StatusOwnership)
	assert.Equal(t, defaults.Sync.CronSpec, unified.Sync.CronSpec)
	assert.Equal(t, defaults.Cache.DefaultTTL, unified.Cache.DefaultTTL)
	assert.Equal(t, defaults.Cache.CleanupCron, unified.Cache.CleanupCron)
}

func TestGetEnvBool(t *testing.T) {
	t.Setenv("SYNC_ON_STARTUP", "true")
	assert.True(t, getEnvBool("SYNC_ON_STARTUP", false))

	t.Setenv("SYNC_ON_STARTUP", "maybe")
	assert.True(t, getEnvBool("SYNC_ON_STARTUP", true))
	assert.False(t, getEnvBool("UNSET_BOOL_FOR_TEST", false))
}

func TestConfigureLogging(t *testing.T) {
	previousLevel := logrus.GetLevel()
	previousFormatter := logrus.StandardLogger().Formatter
	defer func() {
		logrus.SetLevel(previousLevel)
		logrus.SetFormatter(previousFormatter)
	}()

	ConfigureLogging(&shared.LoggingConfig{Level: "debug", Format: "JSON"})
	assert.Equal(t, logrus.DebugLevel, logrus.GetLevel())
	assert.IsType(t, &logrus.JSONFormatter{}, logrus.StandardLogger().Formatter)

	ConfigureLogging(&shared.LoggingConfig{Level: "chatty", Format: "text"})
	assert.Equal(t, logrus.InfoLevel, logrus.GetLevel())
	assert.IsType(t, &logrus.TextFormatter{}, logrus.StandardLogger().Formatter)
}
