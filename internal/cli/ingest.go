package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/roach88/strata/internal/engine"
	"github.com/roach88/strata/internal/types"
)

// IngestOptions holds flags for the ingest command.
type IngestOptions struct {
	*RootOptions
	Database  string
	BatchSize int

	// Generator overrides the row id generator (for testing).
	// If nil, defaults to UUIDv7Generator.
	Generator types.RowIDGenerator
}

// IngestResult summarises an ingest run.
type IngestResult struct {
	RecordingID string   `json:"recording_id"`
	Files       int      `json:"files"`
	Rows        int      `json:"rows"`
	Batches     int64    `json:"batches"`
	Rejected    int64    `json:"rejected_batches"`
	Appended    int      `json:"appended"`
	Total       int      `json:"total_rows"`
	Errors      []string `json:"errors,omitempty"`
}

// NewIngestCommand creates the ingest command.
func NewIngestCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &IngestOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "ingest <rows.yaml>...",
		Short: "Append rows to a recording",
		Long: `Append rows from YAML row files to a recording, creating it if needed.

The recording is replayed into a store first. Rows then go through the
ingestion engine in batches: each batch is validated, appended to the
recording and inserted into the store. A rejected batch is reported and
skipped; later batches are still applied. Re-ingesting a row id is a no-op.

Exit codes:
  0 - All batches applied
  1 - One or more batches rejected
  2 - Command error (unreadable file, bad recording, etc.)

Example:
  strata ingest --db rec.db rows.yaml
  strata ingest --db rec.db --batch-size 100 a.yaml b.yaml`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIngest(cmd.Context(), opts, args, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to the recording (required)")
	cmd.Flags().IntVar(&opts.BatchSize, "batch-size", 256, "rows per engine batch")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runIngest(ctx context.Context, opts *IngestOptions, files []string, out, errOut io.Writer) error {
	if opts.BatchSize <= 0 {
		return NewExitError(ExitCommandError, "--batch-size must be positive")
	}
	gen := opts.Generator
	if gen == nil {
		gen = types.UUIDv7Generator{}
	}

	var rows []types.DataRow
	for _, path := range files {
		f, err := LoadRowFile(path)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to load rows", err)
		}
		built, err := f.Build(gen)
		if err != nil {
			return WrapExitError(ExitCommandError, fmt.Sprintf("failed to build rows from %s", path), err)
		}
		rows = append(rows, built...)
	}

	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	rec, err := openRecording(ctx, opts.RootOptions, opts.Database, errOut, openOptions{create: true})
	if err != nil {
		return err
	}
	defer rec.Close()

	before, err := rec.log.Count(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to count rows", err)
	}

	lastSeq, err := rec.log.LastSeq(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read recording sequence", err)
	}

	result := IngestResult{RecordingID: rec.log.RecordingID(), Files: len(files), Rows: len(rows)}
	var (
		mu       sync.Mutex
		errs     []string
		firstErr error
	)
	eng := engine.New(rec.shared,
		engine.WithClock(engine.ResumeClock(lastSeq)),
		engine.WithSink(rec.log),
		engine.WithLogger(rec.logger),
		engine.WithBatchHook(func(_ engine.Batch, err error) {
			if err == nil {
				return
			}
			mu.Lock()
			if firstErr == nil {
				firstErr = err
			}
			errs = append(errs, err.Error())
			mu.Unlock()
		}),
	)

	for start := 0; start < len(rows); start += opts.BatchSize {
		end := min(start+opts.BatchSize, len(rows))
		eng.Enqueue(rows[start:end]...)
	}
	eng.Stop()

	// The queue is closed, so Run drains every batch and returns.
	if err := eng.Run(ctx); err != nil {
		return WrapExitError(ExitCommandError, "ingest interrupted", err)
	}

	after, err := rec.log.Count(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to count rows", err)
	}
	result.Batches = eng.Processed() + eng.Failed()
	result.Rejected = eng.Failed()
	result.Appended = after - before
	result.Total = after
	result.Errors = errs

	f := newFormatter(opts.RootOptions, out, errOut)
	text := func(w io.Writer) {
		fmt.Fprintf(w, "Recording %s\n", result.RecordingID)
		fmt.Fprintf(w, "  %d rows from %d file(s) in %d batch(es)\n", result.Rows, result.Files, result.Batches)
		fmt.Fprintf(w, "  %d appended, %d total\n", result.Appended, result.Total)
		for _, e := range result.Errors {
			fmt.Fprintf(w, "  ✗ %s\n", e)
		}
	}
	if result.Rejected > 0 {
		return f.Failure(ExitFailure, result,
			fmt.Errorf("%d of %d batches rejected: %w", result.Rejected, result.Batches, firstErr), text)
	}
	return f.Success(result, text)
}
