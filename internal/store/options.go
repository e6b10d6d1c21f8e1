package store

import "log/slog"

// DefaultIndexedBucketNumRows is the default maximum number of rows a
// bucket may hold before the next insert splits it.
const DefaultIndexedBucketNumRows = 512

// Config holds the store's tuning knobs.
type Config struct {
	// IndexedBucketNumRows trades lookup speed against insert cost.
	// Smaller buckets make latest-at scans cheaper and splits more frequent.
	IndexedBucketNumRows int
}

// DefaultConfig returns the configuration used when no option overrides it.
func DefaultConfig() Config {
	return Config{IndexedBucketNumRows: DefaultIndexedBucketNumRows}
}

// Option configures a Store.
type Option func(*Store)

// WithConfig replaces the whole configuration.
func WithConfig(cfg Config) Option {
	return func(s *Store) {
		if cfg.IndexedBucketNumRows > 0 {
			s.config = cfg
		}
	}
}

// WithIndexedBucketNumRows sets the bucket split threshold.
// Non-positive values are ignored.
func WithIndexedBucketNumRows(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.config.IndexedBucketNumRows = n
		}
	}
}

// WithRegistry makes the store notify an existing registry instead of a
// private one. Several stores may share a registry.
func WithRegistry(r *Registry) Option {
	return func(s *Store) {
		if r != nil {
			s.registry = r
		}
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetrics attaches Prometheus collectors created by NewMetrics.
func WithMetrics(m *Metrics) Option {
	return func(s *Store) {
		s.metrics = m
	}
}
