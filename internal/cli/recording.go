package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/roach88/strata/internal/cache"
	"github.com/roach88/strata/internal/config"
	"github.com/roach88/strata/internal/rowlog"
	"github.com/roach88/strata/internal/store"
)

// recording is a store rebuilt from a recording log on disk.
type recording struct {
	log      *rowlog.Log
	shared   *store.Shared
	cfg      *config.Config
	logger   *slog.Logger
	metrics  *prometheus.Registry
	observed bool // collectors are registered with metrics
	replayed rowlog.ReplayResult
}

type openOptions struct {
	// create allows a missing recording file to be created.
	create bool
	// metrics registers store collectors even when the config does not.
	metrics bool
}

// openRecording opens the recording at path and replays it into a fresh
// store configured from the global settings.
func openRecording(ctx context.Context, opts *RootOptions, path string, errOut io.Writer, oo openOptions) (*recording, error) {
	if path == "" {
		return nil, NewExitError(ExitCommandError, "--db is required")
	}
	if !oo.create {
		if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
			return nil, NewExitError(ExitCommandError, fmt.Sprintf("recording not found: %s", path))
		}
	}

	cfg, err := opts.Settings()
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "invalid configuration", err)
	}
	logger := cfg.NewLogger(errOut, opts.Verbose)

	l, err := rowlog.Open(path)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open recording", err)
	}

	reg := prometheus.NewRegistry()
	storeOpts := append(cfg.StoreOptions(), store.WithLogger(logger))
	observed := cfg.Store.Metrics || oo.metrics
	if observed {
		m, err := store.NewMetrics(reg, l.RecordingID())
		if err != nil {
			l.Close()
			return nil, WrapExitError(ExitCommandError, "failed to register metrics", err)
		}
		storeOpts = append(storeOpts, store.WithMetrics(m))
	}
	st := store.New(l.RecordingID(), storeOpts...)

	res, err := l.Replay(ctx, st, cfg.Replay.BatchSize)
	if err != nil {
		l.Close()
		return nil, WrapExitError(ExitCommandError, "failed to replay recording", err)
	}
	logger.Debug("recording replayed",
		"path", path,
		"recording", l.RecordingID(),
		"rows", res.Rows,
		"batches", res.Batches)

	return &recording{
		log:      l,
		shared:   store.NewShared(st),
		cfg:      cfg,
		logger:   logger,
		metrics:  reg,
		observed: observed,
		replayed: res,
	}, nil
}

// newCache attaches a query cache to the recording's store.
func (r *recording) newCache() (*cache.Cache, error) {
	opts := append(r.cfg.CacheOptions(), cache.WithLogger(r.logger))
	if r.observed {
		m, err := cache.NewMetrics(r.metrics, r.log.RecordingID())
		if err != nil {
			return nil, fmt.Errorf("register cache metrics: %w", err)
		}
		opts = append(opts, cache.WithMetrics(m))
	}
	return cache.New(r.shared, opts...), nil
}

func (r *recording) Close() {
	if err := r.log.Close(); err != nil {
		r.logger.Error("error closing recording", "error", err)
	}
}
