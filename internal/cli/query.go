package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/strata/internal/archetype"
	"github.com/roach88/strata/internal/cache"
	"github.com/roach88/strata/internal/join"
	"github.com/roach88/strata/internal/query"
	"github.com/roach88/strata/internal/store"
	"github.com/roach88/strata/internal/types"
)

// QueryOptions holds the flags shared by latest-at and range.
type QueryOptions struct {
	*RootOptions
	Database string
	Entity   string
	Timeline string
}

func (o *QueryOptions) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&o.Database, "db", "", "path to the recording (required)")
	cmd.Flags().StringVar(&o.Entity, "entity", "", "entity path (required)")
	cmd.Flags().StringVar(&o.Timeline, "timeline", "", "timeline name (required)")
	_ = cmd.MarkFlagRequired("db")
	_ = cmd.MarkFlagRequired("entity")
	_ = cmd.MarkFlagRequired("timeline")
}

// ComponentValue is one resolved component in command output.
type ComponentValue struct {
	Component string   `json:"component"`
	Found     bool     `json:"found"`
	Time      string   `json:"time,omitempty"`
	RowID     string   `json:"row_id,omitempty"`
	Instances int      `json:"instances,omitempty"`
	Values    []string `json:"values,omitempty"`
	// Pending is set when the value is found but not yet decodable.
	Pending bool `json:"pending,omitempty"`
}

// LatestAtResult is the output of the latest-at command.
type LatestAtResult struct {
	Entity     string           `json:"entity"`
	Timeline   string           `json:"timeline"`
	At         string           `json:"at"`
	Archetype  string           `json:"archetype,omitempty"`
	Instances  int              `json:"instances,omitempty"`
	Components []ComponentValue `json:"components"`
}

// LatestAtOptions holds flags for the latest-at command.
type LatestAtOptions struct {
	QueryOptions
	At            int64
	Archetype     string
	ArchetypesDir string
}

// NewLatestAtCommand creates the latest-at command.
func NewLatestAtCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &LatestAtOptions{QueryOptions: QueryOptions{RootOptions: rootOpts}}

	cmd := &cobra.Command{
		Use:   "latest-at [component...]",
		Short: "Resolve the latest value of components at a time",
		Long: `Resolve, for each component independently, the most recent value logged
at or before --at on the given timeline.

With --archetype the components of that archetype are resolved and joined
into one row: the primary component sets the instance count and the others
are clamped to it.

Example:
  strata latest-at --db rec.db --entity world/points --timeline frame_nr --at 10 strata.components.Position2D
  strata latest-at --db rec.db --entity world/points --timeline frame_nr --at 10 --archetype Points2D`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLatestAt(cmd.Context(), opts, args, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}

	opts.bind(cmd)
	cmd.Flags().Int64Var(&opts.At, "at", 0, "query time")
	cmd.Flags().StringVar(&opts.Archetype, "archetype", "", "join the components of this archetype")
	cmd.Flags().StringVar(&opts.ArchetypesDir, "archetypes", "", "directory of extra CUE archetype definitions")
	_ = cmd.MarkFlagRequired("at")

	return cmd
}

func runLatestAt(ctx context.Context, opts *LatestAtOptions, components []string, out, errOut io.Writer) error {
	if len(components) == 0 && opts.Archetype == "" {
		return NewExitError(ExitCommandError, "give at least one component or --archetype")
	}
	if len(components) > 0 && opts.Archetype != "" {
		return NewExitError(ExitCommandError, "components and --archetype are mutually exclusive")
	}

	var arch types.Archetype
	if opts.Archetype != "" {
		reg, err := loadArchetypes(opts.ArchetypesDir)
		if err != nil {
			return err
		}
		a, ok := reg.Get(opts.Archetype)
		if !ok {
			return NewExitError(ExitCommandError, fmt.Sprintf("unknown archetype %q (known: %s)",
				opts.Archetype, strings.Join(reg.Names(), ", ")))
		}
		arch = a
	}

	if ctx == nil {
		ctx = context.Background()
	}
	rec, err := openRecording(ctx, opts.RootOptions, opts.Database, errOut, openOptions{})
	if err != nil {
		return err
	}
	defer rec.Close()

	c, err := rec.newCache()
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to create query cache", err)
	}
	defer c.Close()

	entity := types.ParseEntityPath(opts.Entity)
	result := LatestAtResult{Entity: entity.String(), Archetype: opts.Archetype}
	var joinErr error

	err = rec.shared.Read(func(v *store.View) error {
		tl, err := findTimeline(v, entity, opts.Timeline)
		if err != nil {
			return err
		}
		result.Timeline = tl.Name
		result.At = tl.Type.Format(types.TimeInt(opts.At))
		q := query.LatestAtQuery{Timeline: tl, At: types.TimeInt(opts.At)}

		if opts.Archetype == "" {
			for _, name := range components {
				cv, err := latestAtValue(c, v, entity, q, types.ComponentName(name))
				if err != nil {
					return WrapExitError(ExitFailure, "latest-at query failed", err)
				}
				result.Components = append(result.Components, cv)
			}
			return nil
		}

		res := query.LatestAt(v, entity, q, arch.ComponentNames()...)
		row, err := join.LatestAtArchetype(res, arch, nil)
		if err != nil {
			joinErr = err
			return nil
		}
		result.Instances = row.NumInstances
		for _, name := range arch.ComponentNames() {
			cell, ok := row.Cells[name]
			if !ok {
				result.Components = append(result.Components, ComponentValue{Component: string(name)})
				continue
			}
			result.Components = append(result.Components, ComponentValue{
				Component: string(name),
				Found:     true,
				Time:      tl.Type.Format(row.Index.Time),
				RowID:     row.Index.RowID.String(),
				Instances: cell.Len(),
				Values:    formatCell(cell),
			})
		}
		return nil
	})
	if err != nil {
		return err
	}

	f := newFormatter(opts.RootOptions, out, errOut)
	text := func(w io.Writer) {
		fmt.Fprintf(w, "%s @ %s = %s\n", result.Entity, result.Timeline, result.At)
		if result.Archetype != "" && joinErr == nil {
			fmt.Fprintf(w, "  %s (%d instances)\n", result.Archetype, result.Instances)
		}
		writeComponents(w, result.Components)
	}
	if joinErr != nil {
		return f.Failure(ExitFailure, result, joinErr, text)
	}
	return f.Success(result, text)
}

func latestAtValue(c *cache.Cache, v *store.View, entity types.EntityPath, q query.LatestAtQuery, name types.ComponentName) (ComponentValue, error) {
	val := cache.LatestAt(c, v, entity, q, name, textDecoder())
	if !val.Found {
		return ComponentValue{Component: string(name)}, nil
	}
	return componentValue(name, q.Timeline, val)
}

// componentValue renders a found latest-at value in each of its three
// promise states.
func componentValue(name types.ComponentName, tl types.Timeline, val cache.LatestAtValue[string]) (ComponentValue, error) {
	cv := ComponentValue{
		Component: string(name),
		Found:     true,
		Time:      tl.Type.Format(val.Index.Time),
		RowID:     val.Index.RowID.String(),
		Instances: val.NumInstances,
	}
	switch val.Values.Outcome() {
	case cache.Failed:
		return ComponentValue{}, val.Values.Err()
	case cache.Pending:
		cv.Pending = true
	default:
		cv.Values, _ = val.Values.Value()
	}
	return cv, nil
}

// RangeRow is one hit of a range query in command output.
type RangeRow struct {
	Time   string   `json:"time"`
	RowID  string   `json:"row_id"`
	Values []string `json:"values"`
}

// RangeComponent holds the hits of one component.
type RangeComponent struct {
	Component string     `json:"component"`
	Rows      []RangeRow `json:"rows"`
	// Pending is set when some row is not yet decodable; Rows is then empty.
	Pending bool `json:"pending,omitempty"`
}

// RangeResult is the output of the range command.
type RangeResult struct {
	Entity     string           `json:"entity"`
	Timeline   string           `json:"timeline"`
	Min        string           `json:"min"`
	Max        string           `json:"max"`
	Components []RangeComponent `json:"components"`
}

// RangeOptions holds flags for the range command.
type RangeOptions struct {
	QueryOptions
	Min int64
	Max int64
}

// NewRangeCommand creates the range command.
func NewRangeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RangeOptions{QueryOptions: QueryOptions{RootOptions: rootOpts}}

	cmd := &cobra.Command{
		Use:   "range <component>...",
		Short: "List every value of components in a time range",
		Long: `List every row logged for each component with a time in [--min, --max],
ordered by time and then row id.

Example:
  strata range --db rec.db --entity sensor --timeline frame_nr --min 0 --max 100 strata.components.Scalar`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRange(cmd.Context(), opts, args, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}

	opts.bind(cmd)
	cmd.Flags().Int64Var(&opts.Min, "min", 0, "inclusive range start")
	cmd.Flags().Int64Var(&opts.Max, "max", 0, "inclusive range end")
	_ = cmd.MarkFlagRequired("min")
	_ = cmd.MarkFlagRequired("max")

	return cmd
}

func runRange(ctx context.Context, opts *RangeOptions, components []string, out, errOut io.Writer) error {
	if opts.Min > opts.Max {
		return NewExitError(ExitCommandError, "--min must not exceed --max")
	}

	if ctx == nil {
		ctx = context.Background()
	}
	rec, err := openRecording(ctx, opts.RootOptions, opts.Database, errOut, openOptions{})
	if err != nil {
		return err
	}
	defer rec.Close()

	c, err := rec.newCache()
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to create query cache", err)
	}
	defer c.Close()

	entity := types.ParseEntityPath(opts.Entity)
	result := RangeResult{Entity: entity.String()}

	err = rec.shared.Read(func(v *store.View) error {
		tl, err := findTimeline(v, entity, opts.Timeline)
		if err != nil {
			return err
		}
		result.Timeline = tl.Name
		result.Min = tl.Type.Format(types.TimeInt(opts.Min))
		result.Max = tl.Type.Format(types.TimeInt(opts.Max))
		q := query.RangeQuery{Timeline: tl, Range: types.NewTimeRange(types.TimeInt(opts.Min), types.TimeInt(opts.Max))}

		for _, name := range components {
			p := cache.Range(c, v, entity, q, types.ComponentName(name), textDecoder())
			rc, err := rangeComponent(name, tl, p)
			if err != nil {
				return WrapExitError(ExitFailure, "range query failed", err)
			}
			result.Components = append(result.Components, rc)
		}
		return nil
	})
	if err != nil {
		return err
	}

	f := newFormatter(opts.RootOptions, out, errOut)
	return f.Success(result, func(w io.Writer) {
		fmt.Fprintf(w, "%s @ %s in [%s, %s]\n", result.Entity, result.Timeline, result.Min, result.Max)
		for _, rc := range result.Components {
			if rc.Pending {
				fmt.Fprintf(w, "  %s: <pending>\n", rc.Component)
				continue
			}
			fmt.Fprintf(w, "  %s: %d row(s)\n", rc.Component, len(rc.Rows))
			for _, r := range rc.Rows {
				fmt.Fprintf(w, "    %s  %s  [%s]\n", r.Time, r.RowID, strings.Join(r.Values, ", "))
			}
		}
	})
}

// rangeComponent renders one component's range promise. A pending promise
// is reported as such rather than as an empty range.
func rangeComponent(name string, tl types.Timeline, p cache.Promise[[]cache.RangeValue[string]]) (RangeComponent, error) {
	rc := RangeComponent{Component: name, Rows: []RangeRow{}}
	switch p.Outcome() {
	case cache.Failed:
		return RangeComponent{}, p.Err()
	case cache.Pending:
		rc.Pending = true
		return rc, nil
	}
	items, _ := p.Value()
	for _, it := range items {
		rc.Rows = append(rc.Rows, RangeRow{
			Time:   tl.Type.Format(it.Index.Time),
			RowID:  it.Index.RowID.String(),
			Values: it.Values,
		})
	}
	return rc, nil
}

// findTimeline resolves a timeline name against the entity's tables.
func findTimeline(v *store.View, entity types.EntityPath, name string) (types.Timeline, error) {
	timelines := v.Timelines(entity)
	if len(timelines) == 0 {
		return types.Timeline{}, NewExitError(ExitCommandError, fmt.Sprintf("entity not found: %s", entity))
	}
	names := make([]string, len(timelines))
	for i, tl := range timelines {
		if tl.Name == name {
			return tl, nil
		}
		names[i] = tl.Name
	}
	return types.Timeline{}, NewExitError(ExitCommandError,
		fmt.Sprintf("entity %s has no timeline %q (has: %s)", entity, name, strings.Join(names, ", ")))
}

// textDecoder renders cells as display strings.
func textDecoder() cache.Decoder[string] {
	return cache.NewDecoder("text", func(cell types.Cell) cache.Promise[[]string] {
		return cache.ReadyPromise(formatCell(cell))
	})
}

func formatCell(cell types.Cell) []string {
	out := make([]string, cell.Len())
	for i := range out {
		out[i] = types.FormatValue(cell, i)
	}
	return out
}

func writeComponents(w io.Writer, components []ComponentValue) {
	for _, cv := range components {
		if !cv.Found {
			fmt.Fprintf(w, "  %s: <none>\n", cv.Component)
			continue
		}
		if cv.Pending {
			fmt.Fprintf(w, "  %s @ %s (%s): <pending>\n", cv.Component, cv.Time, cv.RowID)
			continue
		}
		fmt.Fprintf(w, "  %s @ %s (%s): [%s]\n", cv.Component, cv.Time, cv.RowID, strings.Join(cv.Values, ", "))
	}
}

// loadArchetypes returns the builtin archetypes plus any defined in dir.
func loadArchetypes(dir string) (*archetype.Registry, error) {
	reg, err := archetype.Builtins()
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load builtin archetypes", err)
	}
	if dir != "" {
		if _, err := reg.LoadDir(dir); err != nil {
			return nil, WrapExitError(ExitCommandError, "failed to load archetypes", err)
		}
	}
	return reg, nil
}
