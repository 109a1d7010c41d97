// Package config loads and validates supervisor configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Remote    RemoteConfig    `mapstructure:"remote"`
	DB        DBConfig        `mapstructure:"db"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Pipeline  PipelineConfig  `mapstructure:"pipeline"`
	Ranking   RankingConfig   `mapstructure:"ranking"`
	Linking   LinkingTable    `mapstructure:"linking"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// RemoteConfig locates the upstream scrape/grouping/summarization services.
type RemoteConfig struct {
	ScraperHost    string `mapstructure:"scraper_host"`
	ScraperPort    int    `mapstructure:"scraper_port"`
	LinkerHost     string `mapstructure:"linker_host"`
	LinkerPort     int    `mapstructure:"linker_port"`
	SummarizerHost string `mapstructure:"summarizer_host"`
	SummarizerPort int    `mapstructure:"summarizer_port"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

// DBConfig controls access to the relational database.
type DBConfig struct {
	DSN      string `mapstructure:"dsn"`
	MaxConns int32  `mapstructure:"max_conns"`
	MinConns int32  `mapstructure:"min_conns"`
}

// RedisConfig locates the broadcast channel backend.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	PoolSize int    `mapstructure:"pool_size"`
}

// PipelineConfig governs the category fan-out stage.
type PipelineConfig struct {
	CategoryPoolSize       int    `mapstructure:"category_pool_size"`
	FinalizeTimeoutSeconds int    `mapstructure:"finalize_timeout_seconds"`
	FailurePolicy          string `mapstructure:"failure_policy"`
}

// FinalizeTimeout returns the bound on the finalizer's total wait.
func (c PipelineConfig) FinalizeTimeout() time.Duration {
	return time.Duration(c.FinalizeTimeoutSeconds) * time.Second
}

// RankingConfig maps scorer names to their weights.
type RankingConfig struct {
	Weights map[string]float64 `mapstructure:"weights"`
}

// MethodSettings holds the grouping parameters for one embedding source and
// clustering method pair.
type MethodSettings struct {
	Scorer string         `mapstructure:"scorer"`
	Metric string         `mapstructure:"metric"`
	Config map[string]any `mapstructure:"config"`
}

// LinkingTable nests MethodSettings by embedding source, then clustering
// method.
type LinkingTable map[string]map[string]MethodSettings

// Settings resolves the grouping parameters for an embedding source and
// method pair.
func (t LinkingTable) Settings(embeddingSource, method string) (MethodSettings, error) {
	methods, ok := t[embeddingSource]
	if !ok {
		return MethodSettings{}, fmt.Errorf("unknown embedding source %q", embeddingSource)
	}
	settings, ok := methods[method]
	if !ok {
		return MethodSettings{}, fmt.Errorf("unknown clustering method %q for source %q", method, embeddingSource)
	}
	return settings, nil
}

// SchedulerConfig governs the schedule sweep loop.
type SchedulerConfig struct {
	Channel                string `mapstructure:"channel"`
	IntervalSeconds        int    `mapstructure:"interval_seconds"`
	TimeoutSeconds         int    `mapstructure:"timeout_seconds"`
	ShutdownTimeoutSeconds int    `mapstructure:"shutdown_timeout_seconds"`
	UTCOffsetHours         int    `mapstructure:"utc_offset_hours"`
}

// Interval returns the minimum gap between two sweeps.
func (c SchedulerConfig) Interval() time.Duration {
	return time.Duration(c.IntervalSeconds) * time.Second
}

// Timeout returns the sleep between loop iterations.
func (c SchedulerConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// ShutdownTimeout bounds how long shutdown waits for the loop to exit.
func (c SchedulerConfig) ShutdownTimeout() time.Duration {
	return time.Duration(c.ShutdownTimeoutSeconds) * time.Second
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("SUPERVISOR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("remote.timeout_seconds", 300)
	v.SetDefault("db.max_conns", 8)
	v.SetDefault("db.min_conns", 1)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.pool_size", 8)
	v.SetDefault("pipeline.category_pool_size", 4)
	v.SetDefault("pipeline.finalize_timeout_seconds", 300)
	v.SetDefault("pipeline.failure_policy", "cancel")
	v.SetDefault("ranking.weights", map[string]float64{
		"size_scorer":     1.0,
		"reaction_scorer": 1.0,
		"comment_scorer":  1.0,
		"view_scorer":     1.0,
	})
	v.SetDefault("scheduler.channel", "scheduled")
	v.SetDefault("scheduler.interval_seconds", 60)
	v.SetDefault("scheduler.timeout_seconds", 10)
	v.SetDefault("scheduler.shutdown_timeout_seconds", 10)
	v.SetDefault("scheduler.utc_offset_hours", 0)
	v.SetDefault("logging.development", true)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Remote.TimeoutSeconds <= 0 {
		return fmt.Errorf("remote.timeout_seconds must be > 0")
	}
	if c.Pipeline.CategoryPoolSize <= 0 {
		return fmt.Errorf("pipeline.category_pool_size must be > 0")
	}
	if c.Pipeline.FinalizeTimeoutSeconds <= 0 {
		return fmt.Errorf("pipeline.finalize_timeout_seconds must be > 0")
	}
	switch c.Pipeline.FailurePolicy {
	case "cancel", "isolate":
	default:
		return fmt.Errorf("pipeline.failure_policy must be cancel or isolate, got %q", c.Pipeline.FailurePolicy)
	}
	if c.Scheduler.IntervalSeconds <= 0 {
		return fmt.Errorf("scheduler.interval_seconds must be > 0")
	}
	if c.Scheduler.TimeoutSeconds <= 0 {
		return fmt.Errorf("scheduler.timeout_seconds must be > 0")
	}
	return nil
}

// MethodSettings resolves the grouping parameters for an embedding source
// and method pair from the nested settings table.
func (c Config) MethodSettings(embeddingSource, method string) (MethodSettings, error) {
	return c.Linking.Settings(embeddingSource, method)
}

// RemoteTimeout returns the HTTP client timeout for upstream calls.
func (c Config) RemoteTimeout() time.Duration {
	return time.Duration(c.Remote.TimeoutSeconds) * time.Second
}
