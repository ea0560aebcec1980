package config

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// Config represents the complete akb configuration
type Config struct {
	Version int `json:"version" mapstructure:"version"`

	Cache    CacheConfig    `json:"cache" mapstructure:"cache"`
	Analyzer AnalyzerConfig `json:"analyzer" mapstructure:"analyzer"`
	Sync     SyncConfig     `json:"sync" mapstructure:"sync"`
	Logging  LoggingConfig  `json:"logging" mapstructure:"logging"`
}

// CacheConfig governs snapshot staleness and request memoization
type CacheConfig struct {
	// MaxAgeMs is the staleness bound for on-disk snapshots
	MaxAgeMs int64 `json:"maxAgeMs" mapstructure:"maxAgeMs"`
	// ClockSkewToleranceMs bounds how far in the future a producer-written
	// timestamp may sit before the snapshot is treated as a miss
	ClockSkewToleranceMs int64 `json:"clockSkewToleranceMs" mapstructure:"clockSkewToleranceMs"`
	// MemoTtlMs is the TTL of the single-slot request memoizer
	MemoTtlMs int64 `json:"memoTtlMs" mapstructure:"memoTtlMs"`
}

// AnalyzerConfig describes how to invoke the external analyzer when the
// cache misses. An empty Command means the analyzer is unavailable.
type AnalyzerConfig struct {
	Command   string   `json:"command" mapstructure:"command" toml:"command"`
	Args      []string `json:"args" mapstructure:"args" toml:"args"`
	TimeoutMs int      `json:"timeoutMs" mapstructure:"timeoutMs" toml:"timeout-ms"`
}

// SyncConfig configures the knowledge-graph sync bridge
type SyncConfig struct {
	// Backend selects the store implementation: "local" (sqlite) or "none"
	Backend string `json:"backend" mapstructure:"backend"`
	// StorePath is the sqlite database path for the local backend;
	// empty means <cache-dir>/graph.db
	StorePath string `json:"storePath" mapstructure:"storePath"`
	// CreatedBy is the producer tag stamped on generated graph edges
	CreatedBy string `json:"createdBy" mapstructure:"createdBy"`
	// DefaultScope is the project scope tag used when a command omits one
	DefaultScope string `json:"defaultScope" mapstructure:"defaultScope"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Format string `json:"format" mapstructure:"format"`
	Level  string `json:"level" mapstructure:"level"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Version: 1,
		Cache: CacheConfig{
			MaxAgeMs:             600_000,
			ClockSkewToleranceMs: 60_000,
			MemoTtlMs:            30_000,
		},
		Analyzer: AnalyzerConfig{
			Command:   "",
			Args:      []string{},
			TimeoutMs: 120_000,
		},
		Sync: SyncConfig{
			Backend:      "local",
			StorePath:    "",
			CreatedBy:    "akb-analysis",
			DefaultScope: "",
		},
		Logging: LoggingConfig{
			Format: "human",
			Level:  "info",
		},
	}
}

// LoadConfig loads configuration from <configDir>/config.json, falling back
// to defaults when the file is absent. The AKB_LOG_LEVEL env var overrides
// the configured log level.
func LoadConfig(configDir string) (*Config, error) {
	v := viper.New()

	def := DefaultConfig()
	v.SetDefault("version", def.Version)
	v.SetDefault("cache.maxAgeMs", def.Cache.MaxAgeMs)
	v.SetDefault("cache.clockSkewToleranceMs", def.Cache.ClockSkewToleranceMs)
	v.SetDefault("cache.memoTtlMs", def.Cache.MemoTtlMs)
	v.SetDefault("analyzer.command", def.Analyzer.Command)
	v.SetDefault("analyzer.timeoutMs", def.Analyzer.TimeoutMs)
	v.SetDefault("sync.backend", def.Sync.Backend)
	v.SetDefault("sync.createdBy", def.Sync.CreatedBy)
	v.SetDefault("logging.format", def.Logging.Format)
	v.SetDefault("logging.level", def.Logging.Level)

	v.SetConfigName("config")
	v.SetConfigType("json")
	v.AddConfigPath(configDir)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if level := os.Getenv("AKB_LOG_LEVEL"); level != "" {
		cfg.Logging.Level = level
	}

	return &cfg, nil
}

// Save writes the configuration to <configDir>/config.json
func (c *Config) Save(configDir string) error {
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(filepath.Join(configDir, "config.json"), data, 0644)
}
