package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/roach88/strata/internal/archetype"
	"github.com/roach88/strata/internal/engine"
	"github.com/roach88/strata/internal/store"
	"github.com/roach88/strata/internal/types"
)

// Option configures a run.
type Option func(*runConfig)

type runConfig struct {
	logger     *slog.Logger
	archetypes *archetype.Registry
}

// WithLogger sets the logger handed to the store and engine. Runs are
// silent by default.
func WithLogger(logger *slog.Logger) Option {
	return func(c *runConfig) {
		c.logger = logger
	}
}

// WithArchetypes sets the registry used by archetype assertions. Defaults
// to the built-in archetypes.
func WithArchetypes(r *archetype.Registry) Option {
	return func(c *runConfig) {
		c.archetypes = r
	}
}

// Harness holds the state of one scenario run.
type Harness struct {
	scenario *Scenario
	shared   *store.Shared
	engine   *engine.Engine
	gen      *types.SequentialGenerator
	trace    *traceRecorder
	outcomes chan error
	config   runConfig
}

// traceRecorder is the store subscriber that builds the trace.
type traceRecorder struct {
	mu     sync.Mutex
	step   int
	events []TraceEvent
}

func (r *traceRecorder) Name() string { return "harness-trace" }

func (r *traceRecorder) OnEvents(events []store.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range events {
		r.events = append(r.events, newTraceEvent(r.step, e))
	}
}

func (r *traceRecorder) setStep(step int) {
	r.mu.Lock()
	r.step = step
	r.mu.Unlock()
}

func (r *traceRecorder) snapshot() []TraceEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]TraceEvent{}, r.events...)
}

// Run executes a scenario against a fresh store and returns the result.
//
// Execution flow:
//  1. Create a store with the scenario's settings and a trace subscriber
//  2. Start the ingestion engine
//  3. Run steps in order, waiting for each insert batch to be applied
//  4. Stop the engine and evaluate assertions on a sorted view
//
// The error is non-nil only when the scenario cannot be executed at all.
// Failed steps and assertions are reported in Result.Errors.
func Run(ctx context.Context, sc *Scenario, opts ...Option) (*Result, error) {
	cfg := runConfig{
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.archetypes == nil {
		reg, err := archetype.Builtins()
		if err != nil {
			return nil, fmt.Errorf("load builtin archetypes: %w", err)
		}
		cfg.archetypes = reg
	}

	storeOpts := []store.Option{store.WithLogger(cfg.logger)}
	if n := sc.Store.IndexedBucketNumRows; n > 0 {
		storeOpts = append(storeOpts, store.WithIndexedBucketNumRows(n))
	}
	st := store.New(sc.Name, storeOpts...)

	h := &Harness{
		scenario: sc,
		shared:   store.NewShared(st),
		gen:      types.NewSequentialGenerator(1),
		trace:    &traceRecorder{},
		outcomes: make(chan error, 1),
		config:   cfg,
	}
	h.shared.Registry().Register(h.trace)
	h.engine = engine.New(h.shared,
		engine.WithLogger(cfg.logger),
		engine.WithBatchHook(func(_ engine.Batch, err error) { h.outcomes <- err }),
	)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	engineDone := make(chan error, 1)
	go func() { engineDone <- h.engine.Run(runCtx) }()

	result := NewResult(sc.Name)
	stepErr := h.runSteps(runCtx, result)

	h.engine.Stop()
	if err := <-engineDone; err != nil && !errors.Is(err, context.Canceled) {
		return nil, fmt.Errorf("engine: %w", err)
	}
	if stepErr != nil {
		return nil, stepErr
	}

	result.Trace = h.trace.snapshot()
	err := h.shared.Read(func(v *store.View) error {
		result.Topology = v.Topology()
		for _, msg := range evaluateAssertions(v, sc, cfg.archetypes) {
			result.AddError(msg)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// runSteps executes every step. Step failures are recorded on result; the
// returned error means the run itself broke (bad scenario, cancellation).
func (h *Harness) runSteps(ctx context.Context, result *Result) error {
	for i, step := range h.scenario.Steps {
		if err := ctx.Err(); err != nil {
			return err
		}
		h.trace.setStep(i + 1)

		var err error
		switch {
		case step.Insert != nil:
			err = h.insert(ctx, step.Insert)
		case step.GC != nil:
			err = h.gc(step.GC)
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		var buildErr *rowBuildError
		if errors.As(err, &buildErr) {
			return fmt.Errorf("steps[%d]: %w", i, buildErr.err)
		}

		got := errorCode(err)
		switch {
		case step.ExpectError == "" && err != nil:
			result.AddError(fmt.Sprintf("steps[%d]: unexpected error: %v", i, err))
		case step.ExpectError != "" && err == nil:
			result.AddError(fmt.Sprintf("steps[%d]: expected error %s, step succeeded", i, step.ExpectError))
		case step.ExpectError != "" && got != step.ExpectError:
			result.AddError(fmt.Sprintf("steps[%d]: expected error %s, got %s (%v)", i, step.ExpectError, got, err))
		}
	}
	return nil
}

// rowBuildError marks a scenario that cannot be turned into rows.
type rowBuildError struct{ err error }

func (e *rowBuildError) Error() string { return e.err.Error() }

func (h *Harness) insert(ctx context.Context, in *InsertStep) error {
	rows, err := buildRows(h.scenario, in, h.gen)
	if err != nil {
		return &rowBuildError{err: err}
	}
	if _, ok := h.engine.Enqueue(rows...); !ok {
		return fmt.Errorf("engine stopped")
	}
	select {
	case err := <-h.outcomes:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (h *Harness) gc(step *GCStep) error {
	return h.shared.Write(func(s *store.Store) error {
		s.GC(store.GCOptions{MaxRowsToDrop: step.MaxRows, ProtectLatest: step.ProtectLatest})
		return nil
	})
}

// errorCode returns the innermost error code in err's chain, or "".
func errorCode(err error) string {
	code := ""
	for e := err; e != nil; e = errors.Unwrap(e) {
		if c, ok := e.(interface{ Code() string }); ok {
			code = c.Code()
		}
	}
	return code
}

// RunAll runs scenarios concurrently, at most limit at a time (limit <= 0
// means no limit). Results are returned in input order.
func RunAll(ctx context.Context, scenarios []*Scenario, limit int, opts ...Option) ([]*Result, error) {
	results := make([]*Result, len(scenarios))

	g, gctx := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}
	for i, sc := range scenarios {
		g.Go(func() error {
			res, err := Run(gctx, sc, opts...)
			if err != nil {
				return fmt.Errorf("scenario %s: %w", sc.Name, err)
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// Summary counts passing and failing results.
func Summary(results []*Result) (passed, failed int, failedNames []string) {
	for _, r := range results {
		if r.Pass {
			passed++
			continue
		}
		failed++
		failedNames = append(failedNames, r.Name)
	}
	sort.Strings(failedNames)
	return passed, failed, failedNames
}
