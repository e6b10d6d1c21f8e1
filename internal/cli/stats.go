package cli

import (
	"context"
	"fmt"
	"io"
	"sort"

	"github.com/prometheus/common/expfmt"
	"github.com/spf13/cobra"

	"github.com/roach88/strata/internal/store"
)

// StatsOptions holds flags for the stats command.
type StatsOptions struct {
	*RootOptions
	Database string
	Topology bool
	Metrics  bool
}

// RecordingStats summarises the recording file itself.
type RecordingStats struct {
	Rows       int            `json:"rows"`
	LastSeq    int64          `json:"last_seq"`
	Entities   []string       `json:"entities"`
	Components map[string]int `json:"components"`
}

// StatsResult is the output of the stats command.
type StatsResult struct {
	RecordingID string                `json:"recording_id"`
	Recording   RecordingStats        `json:"recording"`
	Store       store.Stats           `json:"store"`
	Topology    []store.TableTopology `json:"topology,omitempty"`
	Metrics     map[string]float64    `json:"metrics,omitempty"`
}

// NewStatsCommand creates the stats command.
func NewStatsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &StatsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show recording and store statistics",
		Long: `Replay a recording into a store and report its size.

--topology lists the time buckets of every (entity, timeline) table.
--metrics reports the store counters collected during replay.

Example:
  strata stats --db rec.db --topology`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStats(cmd.Context(), opts, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to the recording (required)")
	cmd.Flags().BoolVar(&opts.Topology, "topology", false, "include the bucket topology")
	cmd.Flags().BoolVar(&opts.Metrics, "metrics", false, "include store metrics")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runStats(ctx context.Context, opts *StatsOptions, out, errOut io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	rec, err := openRecording(ctx, opts.RootOptions, opts.Database, errOut, openOptions{metrics: opts.Metrics})
	if err != nil {
		return err
	}
	defer rec.Close()

	result := StatsResult{RecordingID: rec.log.RecordingID()}
	if result.Recording, err = recordingStats(ctx, rec); err != nil {
		return WrapExitError(ExitCommandError, "failed to read recording", err)
	}

	err = rec.shared.Read(func(v *store.View) error {
		if opts.Topology {
			result.Topology = v.Topology()
		}
		return nil
	})
	if err != nil {
		return err
	}
	_ = rec.shared.Write(func(s *store.Store) error {
		result.Store = s.Stats()
		return nil
	})

	families, err := rec.metrics.Gather()
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to gather metrics", err)
	}
	if opts.Metrics {
		result.Metrics = make(map[string]float64)
		for _, mf := range families {
			for _, m := range mf.GetMetric() {
				result.Metrics[mf.GetName()] += m.GetCounter().GetValue()
			}
		}
	}

	f := newFormatter(opts.RootOptions, out, errOut)
	return f.Success(result, func(w io.Writer) {
		fmt.Fprintf(w, "Recording %s\n", result.RecordingID)
		fmt.Fprintf(w, "  rows:       %d (last seq %d)\n", result.Recording.Rows, result.Recording.LastSeq)
		fmt.Fprintf(w, "  entities:   %d\n", len(result.Recording.Entities))
		names := make([]string, 0, len(result.Recording.Components))
		for name := range result.Recording.Components {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Fprintf(w, "    %-40s %d\n", name, result.Recording.Components[name])
		}
		fmt.Fprintf(w, "Store\n")
		fmt.Fprintf(w, "  tables:     %d\n", result.Store.NumTables)
		fmt.Fprintf(w, "  buckets:    %d\n", result.Store.NumBuckets)
		fmt.Fprintf(w, "  rows:       %d\n", result.Store.NumRows)
		fmt.Fprintf(w, "  size:       %d bytes\n", result.Store.SizeBytes)
		for _, t := range result.Topology {
			fmt.Fprintf(w, "%s @ %s: %d bucket(s)\n", t.Entity, t.Timeline, len(t.Buckets))
			for _, b := range t.Buckets {
				fmt.Fprintf(w, "  [%s] %d row(s)", b.Key, b.NumRows)
				if b.NumRows > 0 {
					fmt.Fprintf(w, " %s..%s", b.Min, b.Max)
				}
				fmt.Fprintln(w)
			}
		}
		if opts.Metrics {
			for _, mf := range families {
				_, _ = expfmt.MetricFamilyToText(w, mf)
			}
		}
	})
}

func recordingStats(ctx context.Context, rec *recording) (RecordingStats, error) {
	var st RecordingStats
	var err error
	if st.Rows, err = rec.log.Count(ctx); err != nil {
		return st, err
	}
	if st.LastSeq, err = rec.log.LastSeq(ctx); err != nil {
		return st, err
	}
	entities, err := rec.log.Entities(ctx)
	if err != nil {
		return st, err
	}
	st.Entities = make([]string, len(entities))
	for i, e := range entities {
		st.Entities[i] = e.String()
	}
	counts, err := rec.log.ComponentCounts(ctx)
	if err != nil {
		return st, err
	}
	st.Components = make(map[string]int, len(counts))
	for name, n := range counts {
		st.Components[string(name)] = n
	}
	return st, nil
}
