// Package config loads gateway configuration at process startup. The core
// packages (upstream, store, assemble, syncjob, ...) never import viper
// themselves; they only ever see the Config value this package produces.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// MaterialClass is a configured prefix rule, loaded from configuration at
// startup. The classifier is built from it once, so a change takes effect
// only after a process restart.
type MaterialClass struct {
	ID          string `mapstructure:"id"`
	Pattern     string `mapstructure:"pattern"`
	DisplayName string `mapstructure:"display_name"`
	SourceForm  string `mapstructure:"source_form"`
	MTOField    string `mapstructure:"mto_field"`
}

// Config holds all gateway configuration.
type Config struct {
	AppEnv  string
	AppPort int

	DBPath string

	UpstreamURL            string
	UpstreamAccount         string
	UpstreamUser            string
	UpstreamAppID           string
	UpstreamAppSecret       string
	UpstreamLCID            string
	UpstreamConnectTimeout  time.Duration
	UpstreamRequestTimeout  time.Duration
	UpstreamPageSize        int

	AutoSyncEnabled     bool
	AutoSyncSchedule    []string
	AutoSyncDaysBack    int
	ManualSyncDefault   int
	ManualSyncMinDays   int
	ManualSyncMaxDays   int

	ChunkDays       int
	BatchSize       int
	ParallelChunks  int
	RetryCount      int

	MemoryCacheMaxSize int
	MemoryCacheTTL     time.Duration

	PersistentFreshnessSeconds int

	MaterialClasses []MaterialClass

	NATSURL  string
	CORSOrigins string

	LogLevel  string
	LogFormat string
}

func defaults(v *viper.Viper) {
	v.SetDefault("app_env", "development")
	v.SetDefault("app_port", 8080)

	v.SetDefault("db_path", "./data/gateway.db")

	v.SetDefault("upstream.url", "")
	v.SetDefault("upstream.account", "")
	v.SetDefault("upstream.user", "")
	v.SetDefault("upstream.app_id", "")
	v.SetDefault("upstream.app_secret", "")
	v.SetDefault("upstream.lcid", "")
	v.SetDefault("upstream.connect_timeout", "10s")
	v.SetDefault("upstream.request_timeout", "30s")
	v.SetDefault("upstream.page_size", 2000)

	v.SetDefault("sync.auto_sync.enabled", true)
	v.SetDefault("sync.auto_sync.schedule", []string{"07:00", "12:00", "16:00", "18:00"})
	v.SetDefault("sync.auto_sync.days_back", 90)
	v.SetDefault("sync.manual_sync.default_days", 90)
	v.SetDefault("sync.manual_sync.min_days", 1)
	v.SetDefault("sync.manual_sync.max_days", 365)

	v.SetDefault("sync.performance.chunk_days", 7)
	v.SetDefault("sync.performance.batch_size", 500)
	v.SetDefault("sync.performance.parallel_chunks", 2)
	v.SetDefault("sync.performance.retry_count", 3)

	v.SetDefault("memory_cache.max_size", 200)
	v.SetDefault("memory_cache.ttl_seconds", 300)

	v.SetDefault("persistent_freshness_seconds", 3600)

	v.SetDefault("nats_url", "nats://localhost:4222")
	v.SetDefault("cors_allowed_origins", "http://localhost:3000")

	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "json")

	v.SetDefault("material_classes", []map[string]string{
		{"id": "finished", "pattern": `^07\.`, "display_name": "Finished Goods", "source_form": "sales-order", "mto_field": "mto_c"},
		{"id": "self-made", "pattern": `^05\.`, "display_name": "Self-Made", "source_form": "production-bom", "mto_field": "mto_b"},
		{"id": "purchased", "pattern": `^03\.`, "display_name": "Purchased", "source_form": "purchase-order", "mto_field": "mto_c"},
	})
}

// Load reads configuration from (in increasing priority) defaults, an
// optional config file, and environment variables prefixed GATEWAY_.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	defaults(v)

	v.SetEnvPrefix("GATEWAY")
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
		}
	}

	var classes []MaterialClass
	if err := v.UnmarshalKey("material_classes", &classes); err != nil {
		return nil, fmt.Errorf("failed to decode material_classes: %w", err)
	}

	cfg := &Config{
		AppEnv:  v.GetString("app_env"),
		AppPort: v.GetInt("app_port"),

		DBPath: v.GetString("db_path"),

		UpstreamURL:            v.GetString("upstream.url"),
		UpstreamAccount:        v.GetString("upstream.account"),
		UpstreamUser:           v.GetString("upstream.user"),
		UpstreamAppID:          v.GetString("upstream.app_id"),
		UpstreamAppSecret:      v.GetString("upstream.app_secret"),
		UpstreamLCID:           v.GetString("upstream.lcid"),
		UpstreamConnectTimeout: v.GetDuration("upstream.connect_timeout"),
		UpstreamRequestTimeout: v.GetDuration("upstream.request_timeout"),
		UpstreamPageSize:       v.GetInt("upstream.page_size"),

		AutoSyncEnabled:   v.GetBool("sync.auto_sync.enabled"),
		AutoSyncSchedule:  v.GetStringSlice("sync.auto_sync.schedule"),
		AutoSyncDaysBack:  v.GetInt("sync.auto_sync.days_back"),
		ManualSyncDefault: v.GetInt("sync.manual_sync.default_days"),
		ManualSyncMinDays: v.GetInt("sync.manual_sync.min_days"),
		ManualSyncMaxDays: v.GetInt("sync.manual_sync.max_days"),

		ChunkDays:      v.GetInt("sync.performance.chunk_days"),
		BatchSize:      v.GetInt("sync.performance.batch_size"),
		ParallelChunks: v.GetInt("sync.performance.parallel_chunks"),
		RetryCount:     v.GetInt("sync.performance.retry_count"),

		MemoryCacheMaxSize: v.GetInt("memory_cache.max_size"),
		MemoryCacheTTL:     time.Duration(v.GetInt("memory_cache.ttl_seconds")) * time.Second,

		PersistentFreshnessSeconds: v.GetInt("persistent_freshness_seconds"),

		MaterialClasses: classes,

		NATSURL:     v.GetString("nats_url"),
		CORSOrigins: v.GetString("cors_allowed_origins"),

		LogLevel:  v.GetString("log_level"),
		LogFormat: v.GetString("log_format"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks required configuration and range-bounds the tunables.
func (c *Config) Validate() error {
	if c.DBPath == "" {
		return fmt.Errorf("db_path is required")
	}
	if c.UpstreamURL == "" {
		return fmt.Errorf("upstream.url is required")
	}
	if c.ManualSyncMinDays < 1 || c.ManualSyncMaxDays > 365 || c.ManualSyncMinDays > c.ManualSyncMaxDays {
		return fmt.Errorf("sync.manual_sync.{min_days,max_days} must satisfy 1 <= min <= max <= 365")
	}
	if c.ChunkDays < 1 || c.ChunkDays > 30 {
		return fmt.Errorf("sync.performance.chunk_days must be in [1, 30]")
	}
	if c.ParallelChunks < 1 {
		return fmt.Errorf("sync.performance.parallel_chunks must be >= 1")
	}
	if len(c.MaterialClasses) == 0 {
		return fmt.Errorf("material_classes must not be empty")
	}
	return nil
}
