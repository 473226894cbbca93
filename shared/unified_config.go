package shared

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	DefaultThirtyEightURL = "http://www.38.co.kr/html/fund/index.htm?o=k"
	DefaultKINDURL        = "https://kind.krx.co.kr/listinvstg/pubofrprogcom.do"
)

// UnifiedConfiguration holds all configuration parameters for the entire application
type UnifiedConfiguration struct {
	Service  ServiceConfig  `json:"service"`
	Sources  SourcesConfig  `json:"sources"`
	Database DatabaseConfig `json:"database"`
	Sync     SyncConfig     `json:"sync"`
	Cache    CacheConfig    `json:"cache"`
	Logging  LoggingConfig  `json:"logging"`
}

// ServiceConfig holds outgoing HTTP configuration shared by the document fetchers
type ServiceConfig struct {
	FetchDriver        string        `json:"fetch_driver"`
	UserAgent          string        `json:"user_agent"`
	HTTPRequestTimeout time.Duration `json:"http_timeout"`
	RequestRateLimit   time.Duration `json:"rate_limit"`
	MaxRetryAttempts   int           `json:"max_retries"`
	RetryBaseDelay     time.Duration `json:"retry_base_delay"`
}

// SourcesConfig holds the endpoints of the calendar sources
type SourcesConfig struct {
	ThirtyEightURL string `json:"thirty_eight_url"`
	KINDURL        string `json:"kind_url"`
}

// DatabaseConfig holds database connection configuration
type DatabaseConfig struct {
	MaxOpenConns    int           `json:"max_open_conns"`
	MaxIdleConns    int           `json:"max_idle_conns"`
	ConnMaxLifetime time.Duration `json:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `json:"conn_max_idle_time"`
	PingTimeout     time.Duration `json:"ping_timeout"`
	MaxRetries      int           `json:"max_retries"`
}

// SyncConfig holds calendar synchronization configuration
type SyncConfig struct {
	CronSpec        string        `json:"cron_spec"`
	Timezone        string        `json:"timezone"`
	SourceTimeout   time.Duration `json:"source_timeout"`
	MergeStrategy   string        `json:"merge_strategy"`
	StatusOwnership string        `json:"status_ownership"`
	RunOnStartup    bool          `json:"run_on_startup"`
}

// CacheConfig holds cache configuration
type CacheConfig struct {
	DefaultTTL  time.Duration `json:"default_ttl"`
	MaxSize     int           `json:"max_size"`
	CleanupCron string        `json:"cleanup_cron"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level       string `json:"level"`
	Format      string `json:"format"`
	ServiceName string `json:"service_name"`
}

// NewDefaultUnifiedConfiguration returns production-ready default configuration
func NewDefaultUnifiedConfiguration() *UnifiedConfiguration {
	return &UnifiedConfiguration{
		Service: ServiceConfig{
			FetchDriver:        "resty",
			UserAgent:          DefaultUserAgent,
			HTTPRequestTimeout: 10 * time.Second,
			RequestRateLimit:   500 * time.Millisecond,
			MaxRetryAttempts:   2,
			RetryBaseDelay:     500 * time.Millisecond,
		},
		Sources: SourcesConfig{
			ThirtyEightURL: DefaultThirtyEightURL,
			KINDURL:        DefaultKINDURL,
		},
		Database: DatabaseConfig{
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: 5 * time.Minute,
			ConnMaxIdleTime: 5 * time.Minute,
			PingTimeout:     5 * time.Second,
			MaxRetries:      3,
		},
		Sync: SyncConfig{
			CronSpec:        "0 6 * * *",
			Timezone:        "Asia/Seoul",
			SourceTimeout:   10 * time.Second,
			MergeStrategy:   "first-wins",
			StatusOwnership: "admin-lock",
		},
		Cache: CacheConfig{
			DefaultTTL:  5 * time.Minute,
			MaxSize:     1000,
			CleanupCron: "@midnight",
		},
		Logging: LoggingConfig{
			Level:       "info",
			Format:      "text",
			ServiceName: "ipo-calendar-sync",
		},
	}
}

// ValidateAndApplyDefaults validates configuration and applies defaults for invalid values
func (c *UnifiedConfiguration) ValidateAndApplyDefaults() {
	logger := logrus.WithField("component", "UnifiedConfiguration")
	defaults := NewDefaultUnifiedConfiguration()

	switch c.Service.FetchDriver {
	case "resty", "colly", "browser":
	default:
		logger.Warnf("Unknown fetch driver %q, using %s", c.Service.FetchDriver, defaults.Service.FetchDriver)
		c.Service.FetchDriver = defaults.Service.FetchDriver
	}

	if c.Service.UserAgent == "" {
		c.Service.UserAgent = defaults.Service.UserAgent
		logger.Debug("Applied default Service.UserAgent")
	}

	if c.Service.HTTPRequestTimeout <= 0 {
		c.Service.HTTPRequestTimeout = defaults.Service.HTTPRequestTimeout
		logger.Debug("Applied default Service.HTTPRequestTimeout")
	}

	if c.Service.RequestRateLimit < 0 {
		c.Service.RequestRateLimit = defaults.Service.RequestRateLimit
		logger.Debug("Applied default Service.RequestRateLimit")
	}

	if c.Service.MaxRetryAttempts < 0 {
		c.Service.MaxRetryAttempts = defaults.Service.MaxRetryAttempts
		logger.Debug("Applied default Service.MaxRetryAttempts")
	}

	if c.Service.RetryBaseDelay <= 0 {
		c.Service.RetryBaseDelay = defaults.Service.RetryBaseDelay
		logger.Debug("Applied default Service.RetryBaseDelay")
	}

	if c.Sources.ThirtyEightURL == "" {
		c.Sources.ThirtyEightURL = defaults.Sources.ThirtyEightURL
		logger.Debug("Applied default Sources.ThirtyEightURL")
	}

	if c.Sources.KINDURL == "" {
		c.Sources.KINDURL = defaults.Sources.KINDURL
		logger.Debug("Applied default Sources.KINDURL")
	}

	if c.Database.MaxOpenConns <= 0 {
		c.Database.MaxOpenConns = defaults.Database.MaxOpenConns
		logger.Debug("Applied default Database.MaxOpenConns")
	}

	if c.Database.MaxIdleConns <= 0 {
		c.Database.MaxIdleConns = defaults.Database.MaxIdleConns
		logger.Debug("Applied default Database.MaxIdleConns")
	}

	if c.Database.ConnMaxLifetime <= 0 {
		c.Database.ConnMaxLifetime = defaults.Database.ConnMaxLifetime
		logger.Debug("Applied default Database.ConnMaxLifetime")
	}

	if c.Database.ConnMaxIdleTime <= 0 {
		c.Database.ConnMaxIdleTime = defaults.Database.ConnMaxIdleTime
		logger.Debug("Applied default Database.ConnMaxIdleTime")
	}

	if c.Database.PingTimeout <= 0 {
		c.Database.PingTimeout = defaults.Database.PingTimeout
		logger.Debug("Applied default Database.PingTimeout")
	}

	if c.Database.MaxRetries < 0 {
		c.Database.MaxRetries = defaults.Database.MaxRetries
		logger.Debug("Applied default Database.MaxRetries")
	}

	if c.Sync.CronSpec == "" {
		c.Sync.CronSpec = defaults.Sync.CronSpec
		logger.Debug("Applied default Sync.CronSpec")
	}

	if c.Sync.Timezone == "" {
		c.Sync.Timezone = defaults.Sync.Timezone
		logger.Debug("Applied default Sync.Timezone")
	}

	if c.Sync.SourceTimeout <= 0 {
		c.Sync.SourceTimeout = defaults.Sync.SourceTimeout
		logger.Debug("Applied default Sync.SourceTimeout")
	}

	switch c.Sync.MergeStrategy {
	case "first-wins", "fill-gaps":
	default:
		logger.Warnf("Unknown merge strategy %q, using %s", c.Sync.MergeStrategy, defaults.Sync.MergeStrategy)
		c.Sync.MergeStrategy = defaults.Sync.MergeStrategy
	}

	switch c.Sync.StatusOwnership {
	case "sync", "admin-lock":
	default:
		logger.Warnf("Unknown status ownership %q, using %s", c.Sync.StatusOwnership, defaults.Sync.StatusOwnership)
		c.Sync.StatusOwnership = defaults.Sync.StatusOwnership
	}

	if c.Cache.DefaultTTL <= 0 {
		c.Cache.DefaultTTL = defaults.Cache.DefaultTTL
		logger.Debug("Applied default Cache.DefaultTTL")
	}

	if c.Cache.MaxSize <= 0 {
		c.Cache.MaxSize = defaults.Cache.MaxSize
		logger.Debug("Applied default Cache.MaxSize")
	}

	if c.Cache.CleanupCron == "" {
		c.Cache.CleanupCron = defaults.Cache.CleanupCron
		logger.Debug("Applied default Cache.CleanupCron")
	}

	if c.Logging.Level == "" {
		c.Logging.Level = defaults.Logging.Level
		logger.Debug("Applied default Logging.Level")
	}

	if c.Logging.Format == "" {
		c.Logging.Format = defaults.Logging.Format
		logger.Debug("Applied default Logging.Format")
	}

	if c.Logging.ServiceName == "" {
		c.Logging.ServiceName = defaults.Logging.ServiceName
		logger.Debug("Applied default Logging.ServiceName")
	}
}

// Location resolves the sync timezone, falling back to a fixed KST offset
func (c *SyncConfig) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"component": "UnifiedConfiguration",
			"timezone":  c.Timezone,
		}).Warn("Failed to load timezone, using fixed KST offset")
		return time.FixedZone("KST", 9*60*60)
	}
	return loc
}

// ToJSON serializes the configuration to JSON
func (c *UnifiedConfiguration) ToJSON() ([]byte, error) {
	return json.MarshalIndent(c, "", "  ")
}

// LoadFromJSON deserializes configuration from JSON
func (c *UnifiedConfiguration) LoadFromJSON(jsonData []byte) error {
	if err := json.Unmarshal(jsonData, c); err != nil {
		return fmt.Errorf("failed to unmarshal configuration: %w", err)
	}
	c.ValidateAndApplyDefaults()
	return nil
}

// Clone creates a deep copy of the configuration
func (c *UnifiedConfiguration) Clone() *UnifiedConfiguration {
	clone := *c
	return &clone
}
