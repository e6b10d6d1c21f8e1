package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/roach88/strata/internal/harness"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Parallel      int
	Filter        string // scenario name glob
	GoldenDir     string
	Update        bool // regenerate golden files
	ArchetypesDir string
}

// ScenarioResult holds the result of a single scenario execution.
type ScenarioResult struct {
	Name   string   `json:"name"`
	Pass   bool     `json:"pass"`
	Errors []string `json:"errors,omitempty"`
}

// TestResult holds the overall result of a run.
type TestResult struct {
	Scenarios []ScenarioResult `json:"scenarios"`
	Passed    int              `json:"passed"`
	Failed    int              `json:"failed"`
	Total     int              `json:"total"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <scenario.yaml|dir>...",
		Short: "Run conformance scenarios",
		Long: `Run YAML scenarios against a fresh in-memory store each.

A scenario inserts rows through the ingestion engine, optionally garbage
collects, then checks latest-at, range, topology and archetype assertions.
With --golden each run's event trace and topology are also compared with
<dir>/<scenario>.golden.

Exit codes:
  0 - All scenarios passed
  1 - One or more scenarios failed
  2 - Command error (invalid paths, malformed scenario, etc.)

Examples:
  strata run ./scenarios
  strata run ./scenarios --filter "pathological_*"
  strata run ./scenarios --golden ./scenarios/golden --update`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScenarios(cmd.Context(), opts, args, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}

	cmd.Flags().IntVar(&opts.Parallel, "parallel", 4, "scenarios run at once (0 = unlimited)")
	cmd.Flags().StringVar(&opts.Filter, "filter", "", "filter scenarios by name glob")
	cmd.Flags().StringVar(&opts.GoldenDir, "golden", "", "directory of golden files")
	cmd.Flags().BoolVar(&opts.Update, "update", false, "regenerate golden files")
	cmd.Flags().StringVar(&opts.ArchetypesDir, "archetypes", "", "directory of extra CUE archetype definitions")

	return cmd
}

func runScenarios(ctx context.Context, opts *RunOptions, paths []string, out, errOut io.Writer) error {
	if opts.Update && opts.GoldenDir == "" {
		return NewExitError(ExitCommandError, "--update requires --golden")
	}

	scenarios, err := loadScenarios(paths, opts.Filter)
	if err != nil {
		return err
	}

	logger, err := opts.Logger(errOut)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid configuration", err)
	}
	reg, err := loadArchetypes(opts.ArchetypesDir)
	if err != nil {
		return err
	}

	if ctx == nil {
		ctx = context.Background()
	}
	results, err := harness.RunAll(ctx, scenarios, opts.Parallel,
		harness.WithLogger(logger),
		harness.WithArchetypes(reg),
	)
	if err != nil {
		return WrapExitError(ExitCommandError, "scenario execution failed", err)
	}

	if opts.GoldenDir != "" {
		for _, r := range results {
			if err := checkGolden(opts, r); err != nil {
				return WrapExitError(ExitCommandError, "golden file error", err)
			}
		}
	}

	result := TestResult{
		Scenarios: make([]ScenarioResult, 0, len(results)),
		Total:     len(results),
	}
	for _, r := range results {
		result.Scenarios = append(result.Scenarios, ScenarioResult{Name: r.Name, Pass: r.Pass, Errors: r.Errors})
	}
	result.Passed, result.Failed, _ = harness.Summary(results)

	f := newFormatter(opts.RootOptions, out, errOut)
	text := func(w io.Writer) {
		for _, s := range result.Scenarios {
			if s.Pass {
				fmt.Fprintf(w, "✓ %s\n", s.Name)
				continue
			}
			fmt.Fprintf(w, "✗ %s\n", s.Name)
			for _, e := range s.Errors {
				fmt.Fprintf(w, "  %s\n", e)
			}
		}
		fmt.Fprintln(w)
		fmt.Fprintf(w, "Test Summary: %d passed, %d failed, %d total\n", result.Passed, result.Failed, result.Total)
		if result.Failed == 0 {
			fmt.Fprintln(w, "✓ All scenarios passed")
		}
	}
	if result.Failed > 0 {
		return f.Failure(ExitFailure, result, fmt.Errorf("%d scenario(s) failed", result.Failed), text)
	}
	return f.Success(result, text)
}

// loadScenarios reads every path (a file or a directory of *.yaml files)
// and keeps the scenarios whose name matches filter.
func loadScenarios(paths []string, filter string) ([]*harness.Scenario, error) {
	if filter != "" {
		if _, err := filepath.Match(filter, "scenario"); err != nil {
			return nil, WrapExitError(ExitCommandError, "invalid filter pattern", err)
		}
	}

	var all []*harness.Scenario
	for _, p := range paths {
		info, err := os.Stat(p)
		if errors.Is(err, fs.ErrNotExist) {
			return nil, NewExitError(ExitCommandError, fmt.Sprintf("scenario path not found: %s", p))
		}
		if err != nil {
			return nil, WrapExitError(ExitCommandError, "failed to stat scenario path", err)
		}

		if info.IsDir() {
			scs, err := harness.LoadDir(p)
			if err != nil {
				return nil, WrapExitError(ExitCommandError, "failed to load scenarios", err)
			}
			all = append(all, scs...)
			continue
		}
		sc, err := harness.LoadScenario(p)
		if err != nil {
			return nil, WrapExitError(ExitCommandError, "failed to load scenario", err)
		}
		all = append(all, sc)
	}

	if filter == "" {
		return all, nil
	}
	kept := all[:0]
	for _, sc := range all {
		if ok, _ := filepath.Match(filter, sc.Name); ok {
			kept = append(kept, sc)
		}
	}
	return kept, nil
}

// checkGolden compares or rewrites the golden file of one result. A
// mismatch is recorded on the result.
func checkGolden(opts *RunOptions, r *harness.Result) error {
	data, err := harness.MarshalSnapshot(r)
	if err != nil {
		return err
	}
	path := filepath.Join(opts.GoldenDir, r.Name+".golden")

	if opts.Update {
		if err := os.MkdirAll(opts.GoldenDir, 0o755); err != nil {
			return fmt.Errorf("create golden directory: %w", err)
		}
		return os.WriteFile(path, data, 0o644)
	}

	want, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		r.AddError(fmt.Sprintf("golden file missing: %s (run with --update)", path))
		return nil
	}
	if err != nil {
		return fmt.Errorf("read golden file: %w", err)
	}
	if !bytes.Equal(want, data) {
		r.AddError("trace does not match golden file (run with --update to regenerate)")
	}
	return nil
}
