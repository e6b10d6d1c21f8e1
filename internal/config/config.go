// Package config loads strata settings from YAML with environment
// overrides.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/roach88/strata/internal/cache"
	"github.com/roach88/strata/internal/rowlog"
	"github.com/roach88/strata/internal/store"
)

// EnvPrefix prefixes every environment override, e.g. STRATA_LOG_LEVEL.
const EnvPrefix = "STRATA"

// Config is the full settings tree.
type Config struct {
	Store  StoreConfig  `yaml:"store"`
	Cache  CacheConfig  `yaml:"cache"`
	Replay ReplayConfig `yaml:"replay"`
	Log    LogConfig    `yaml:"log"`
}

// StoreConfig configures the in-memory store.
type StoreConfig struct {
	// Maximum rows per bucket before a split is attempted.
	IndexedBucketNumRows int `yaml:"indexed_bucket_num_rows"`

	// Register store metrics with the default Prometheus registry.
	Metrics bool `yaml:"metrics"`
}

// CacheConfig configures the query cache.
type CacheConfig struct {
	Shards int `yaml:"shards"`
}

// ReplayConfig configures replay of a recording into a store.
type ReplayConfig struct {
	BatchSize int `yaml:"batch_size"`
}

// LogConfig configures the slog handler.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text, json
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		Store: StoreConfig{
			IndexedBucketNumRows: store.DefaultIndexedBucketNumRows,
		},
		Cache: CacheConfig{
			Shards: cache.DefaultShards,
		},
		Replay: ReplayConfig{
			BatchSize: rowlog.DefaultReplayBatchSize,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads path over the defaults, applies STRATA_* environment
// overrides and validates the result. An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("load config: %w", err)
		}
		defer f.Close()

		if err := cfg.decode(f); err != nil {
			return nil, fmt.Errorf("load config %s: %w", path, err)
		}
	}

	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Parse decodes YAML over the defaults and validates. Environment
// overrides are not applied.
func Parse(r io.Reader) (*Config, error) {
	cfg := Default()
	if err := cfg.decode(r); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) decode(r io.Reader) error {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// ApplyEnv overrides settings from environment variables found by lookup:
//
//	STRATA_INDEXED_BUCKET_NUM_ROWS
//	STRATA_CACHE_SHARDS
//	STRATA_REPLAY_BATCH_SIZE
//	STRATA_LOG_LEVEL
//	STRATA_LOG_FORMAT
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	ints := []struct {
		name string
		dst  *int
	}{
		{"INDEXED_BUCKET_NUM_ROWS", &c.Store.IndexedBucketNumRows},
		{"CACHE_SHARDS", &c.Cache.Shards},
		{"REPLAY_BATCH_SIZE", &c.Replay.BatchSize},
	}
	for _, v := range ints {
		key := EnvPrefix + "_" + v.name
		raw, ok := lookup(key)
		if !ok || raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		*v.dst = n
	}

	if raw, ok := lookup(EnvPrefix + "_LOG_LEVEL"); ok && raw != "" {
		c.Log.Level = raw
	}
	if raw, ok := lookup(EnvPrefix + "_LOG_FORMAT"); ok && raw != "" {
		c.Log.Format = raw
	}
	return nil
}

// ValidationError lists every invalid setting.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "invalid config: " + strings.Join(e.Problems, "; ")
}

// Validate checks every setting and reports all problems at once.
func (c *Config) Validate() error {
	var problems []string
	if c.Store.IndexedBucketNumRows < 1 {
		problems = append(problems, fmt.Sprintf("store.indexed_bucket_num_rows must be at least 1, got %d", c.Store.IndexedBucketNumRows))
	}
	if c.Cache.Shards < 1 {
		problems = append(problems, fmt.Sprintf("cache.shards must be at least 1, got %d", c.Cache.Shards))
	}
	if c.Replay.BatchSize < 1 {
		problems = append(problems, fmt.Sprintf("replay.batch_size must be at least 1, got %d", c.Replay.BatchSize))
	}
	if _, err := parseLevel(c.Log.Level); err != nil {
		problems = append(problems, err.Error())
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		problems = append(problems, fmt.Sprintf("log.format must be text or json, got %q", c.Log.Format))
	}
	if len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}
	return nil
}

// StoreOptions returns the store options for these settings.
func (c *Config) StoreOptions() []store.Option {
	return []store.Option{
		store.WithIndexedBucketNumRows(c.Store.IndexedBucketNumRows),
	}
}

// CacheOptions returns the query cache options for these settings.
func (c *Config) CacheOptions() []cache.Option {
	return []cache.Option{
		cache.WithShards(c.Cache.Shards),
	}
}

// NewLogger builds a slog logger writing to w. verbose forces debug level.
func (c *Config) NewLogger(w io.Writer, verbose bool) *slog.Logger {
	level, err := parseLevel(c.Log.Level)
	if err != nil {
		level = slog.LevelInfo
	}
	if verbose {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{Level: level}
	if c.Log.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func parseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("log.level must be debug, info, warn or error, got %q", s)
	}
}
