package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/fenilmodi00/ipo-calendar-sync/shared"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

type Config struct {
	ServerPort       string
	DatabaseURL      string
	AdminToken       string
	LogLevel         string
	LogFormat        string
	CacheTTLMinutes  string
	CacheCleanupCron string

	SyncCron        string
	SyncTimezone    string
	SyncOnStartup   bool
	SourceTimeout   string
	MergeStrategy   string
	StatusOwnership string

	FetchDriver      string
	UserAgent        string
	RequestDelayMs   string
	MaxRetryAttempts string
	ThirtyEightURL   string
	KINDURL          string
}

func LoadConfig() *Config {
	err := godotenv.Load()
	if err != nil {
		logrus.Warn("Error loading .env file, using system environment variables")
	}

	return &Config{
		ServerPort:       getEnv("SERVER_PORT", "8080"),
		DatabaseURL:      getEnv("DATABASE_URL", ""),
		AdminToken:       getEnv("ADMIN_TOKEN", ""),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
		LogFormat:        getEnv("LOG_FORMAT", "text"),
		CacheTTLMinutes:  getEnv("CACHE_TTL_MINUTES", "5"),
		CacheCleanupCron: getEnv("CACHE_CLEANUP_CRON", "@midnight"),

		SyncCron:        getEnv("SYNC_CRON", "0 6 * * *"),
		SyncTimezone:    getEnv("SYNC_TIMEZONE", "Asia/Seoul"),
		SyncOnStartup:   getEnvBool("SYNC_ON_STARTUP", false),
		SourceTimeout:   getEnv("SOURCE_TIMEOUT_SECONDS", "10"),
		MergeStrategy:   getEnv("MERGE_STRATEGY", "first-wins"),
		StatusOwnership: getEnv("STATUS_OWNERSHIP", "admin-lock"),

		FetchDriver:      getEnv("FETCH_DRIVER", "resty"),
		UserAgent:        getEnv("USER_AGENT", shared.DefaultUserAgent),
		RequestDelayMs:   getEnv("REQUEST_DELAY_MS", "500"),
		MaxRetryAttempts: getEnv("MAX_RETRY_ATTEMPTS", "2"),
		ThirtyEightURL:   getEnv("THIRTY_EIGHT_URL", shared.DefaultThirtyEightURL),
		KINDURL:          getEnv("KIND_URL", shared.DefaultKINDURL),
	}
}

// ToUnifiedConfiguration converts the raw environment values into the typed
// configuration consumed by services. Invalid values fall back to defaults.
func (c *Config) ToUnifiedConfiguration() *shared.UnifiedConfiguration {
	unified := shared.NewDefaultUnifiedConfiguration()

	unified.Service.FetchDriver = strings.ToLower(c.FetchDriver)
	unified.Service.UserAgent = c.UserAgent
	unified.Service.RequestRateLimit = parseDuration("REQUEST_DELAY_MS", c.RequestDelayMs, time.Millisecond, unified.Service.RequestRateLimit)
	unified.Service.MaxRetryAttempts = parseInt("MAX_RETRY_ATTEMPTS", c.MaxRetryAttempts, unified.Service.MaxRetryAttempts)

	unified.Sources.ThirtyEightURL = c.ThirtyEightURL
	unified.Sources.KINDURL = c.KINDURL

	unified.Sync.CronSpec = c.SyncCron
	unified.Sync.Timezone = c.SyncTimezone
	unified.Sync.RunOnStartup = c.SyncOnStartup
	unified.Sync.SourceTimeout = parseDuration("SOURCE_TIMEOUT_SECONDS", c.SourceTimeout, time.Second, unified.Sync.SourceTimeout)
	unified.Sync.MergeStrategy = strings.ToLower(c.MergeStrategy)
	unified.Sync.StatusOwnership = strings.ToLower(c.StatusOwnership)

	unified.Service.HTTPRequestTimeout = unified.Sync.SourceTimeout
	unified.Cache.DefaultTTL = c.GetCacheTTL()
	unified.Cache.CleanupCron = c.CacheCleanupCron

	unified.Logging.Level = c.LogLevel
	unified.Logging.Format = c.LogFormat

	unified.ValidateAndApplyDefaults()
	return unified
}

// GetCacheTTL returns the cache TTL from environment or default
func (c *Config) GetCacheTTL() time.Duration {
	return parseDuration("CACHE_TTL_MINUTES", c.CacheTTLMinutes, time.Minute, 5*time.Minute)
}

// ConfigureLogging applies the log level and formatter to the standard logrus logger
func ConfigureLogging(cfg *shared.LoggingConfig) {
	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		logrus.Warnf("Invalid LOG_LEVEL value: %s, using info", cfg.Level)
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)

	if strings.EqualFold(cfg.Format, "json") {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
}

func parseDuration(key, raw string, unit time.Duration, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	value, err := strconv.Atoi(raw)
	if err != nil || value < 0 {
		logrus.Warnf("Invalid %s value: %s, using default %v", key, raw, fallback)
		return fallback
	}

	return time.Duration(value) * unit
}

func parseInt(key, raw string, fallback int) int {
	value, err := strconv.Atoi(raw)
	if err != nil || value < 0 {
		logrus.Warnf("Invalid %s value: %s, using default %d", key, raw, fallback)
		return fallback
	}
	return value
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	value, exists := os.LookupEnv(key)
	if !exists {
		return fallback
	}

	parsed, err := strconv.ParseBool(value)
	if err != nil {
		logrus.Warnf("Invalid %s value: %s, using default %t", key, value, fallback)
		return fallback
	}
	return parsed
}
