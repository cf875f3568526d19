// Package config provides layered configuration for seismicd: defaults,
// yaml file, then SEISMICD_* environment overrides.
package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/Aman-CERP/seismicd/internal/errors"
	"github.com/Aman-CERP/seismicd/internal/logging"
)

// Config represents the complete seismicd configuration.
type Config struct {
	Version int           `yaml:"version" json:"version"`
	Search  SearchConfig  `yaml:"search" json:"search"`
	Cache   CacheConfig   `yaml:"cache" json:"cache"`
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// SearchConfig holds default query parameters, applied when the query
// DSL omits method_parameters.
type SearchConfig struct {
	// DefaultTopN is the number of query tokens considered by the scorer.
	DefaultTopN int `yaml:"default_top_n" json:"default_top_n"`

	// DefaultK is the default result count.
	DefaultK int `yaml:"default_k" json:"default_k"`

	// DefaultHeapFactor controls cluster skipping. 1.0 means a cluster is
	// entered only when its summary score reaches the current heap minimum.
	DefaultHeapFactor float64 `yaml:"default_heap_factor" json:"default_heap_factor"`
}

// CacheConfig expresses the forward-index cache limit.
type CacheConfig struct {
	// MemoryPercent is the share of MemoryBudgetBytes available to the
	// forward-index cache. 0 disables the cache entirely; lookups then
	// always fall through to the segment reader and results must be
	// identical (only latency differs).
	MemoryPercent float64 `yaml:"memory_percent" json:"memory_percent"`

	// MemoryBudgetBytes is the process memory budget the percentage
	// applies to.
	MemoryBudgetBytes int64 `yaml:"memory_budget_bytes" json:"memory_budget_bytes"`
}

// LoggingConfig mirrors logging.Config in yaml form.
type LoggingConfig struct {
	Level    string `yaml:"level" json:"level"`
	FilePath string `yaml:"file_path" json:"file_path"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Version: 1,
		Search: SearchConfig{
			DefaultTopN:       10,
			DefaultK:          10,
			DefaultHeapFactor: 1.0,
		},
		Cache: CacheConfig{
			MemoryPercent:     10,
			MemoryBudgetBytes: 1 << 30,
		},
		Logging: LoggingConfig{
			Level:    "info",
			FilePath: logging.DefaultLogPath(),
		},
	}
}

// Load reads configuration from the given yaml file, layered over the
// defaults and under environment overrides. A missing file is not an
// error; the defaults apply.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, errors.ConfigError("reading "+path, err)
			}
		} else if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, errors.ConfigError(fmt.Sprintf("parsing %s", path), err)
		}
	}

	applyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv applies SEISMICD_* environment variable overrides.
func applyEnv(cfg *Config) {
	if v := os.Getenv("SEISMICD_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("SEISMICD_CACHE_PERCENT"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Cache.MemoryPercent = f
		}
	}
	if v := os.Getenv("SEISMICD_DEFAULT_K"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Search.DefaultK = n
		}
	}
}

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	if c.Search.DefaultTopN <= 0 {
		return errors.ConfigError("search.default_top_n must be positive", nil)
	}
	if c.Search.DefaultK <= 0 {
		return errors.ConfigError("search.default_k must be positive", nil)
	}
	if c.Search.DefaultHeapFactor <= 0 {
		return errors.ConfigError("search.default_heap_factor must be positive", nil)
	}
	if c.Cache.MemoryPercent < 0 || c.Cache.MemoryPercent > 100 {
		return errors.ConfigError("cache.memory_percent must be in [0, 100]", nil)
	}
	if c.Cache.MemoryBudgetBytes < 0 {
		return errors.ConfigError("cache.memory_budget_bytes must be non-negative", nil)
	}
	return nil
}

// CacheLimitBytes returns the byte limit for the forward-index cache.
// Zero means the cache is disabled.
func (c *Config) CacheLimitBytes() int64 {
	return int64(float64(c.Cache.MemoryBudgetBytes) * c.Cache.MemoryPercent / 100)
}
