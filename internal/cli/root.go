package cli

import (
	"fmt"
	"io"
	"log/slog"
	"slices"

	"github.com/spf13/cobra"

	"github.com/roach88/strata/internal/config"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose    bool
	Format     string // "json" | "text"
	ConfigPath string

	settings *config.Config
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// Settings loads the configuration once. An empty ConfigPath uses the
// defaults plus STRATA_* environment overrides.
func (o *RootOptions) Settings() (*config.Config, error) {
	if o.settings != nil {
		return o.settings, nil
	}
	cfg, err := config.Load(o.ConfigPath)
	if err != nil {
		return nil, err
	}
	o.settings = cfg
	return cfg, nil
}

// Logger builds the command logger. Diagnostics go to w so JSON output on
// stdout stays parseable.
func (o *RootOptions) Logger(w io.Writer) (*slog.Logger, error) {
	cfg, err := o.Settings()
	if err != nil {
		return nil, err
	}
	return cfg.NewLogger(w, o.Verbose), nil
}

// NewRootCommand creates the root command for the strata CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "strata",
		Short: "strata - time-series columnar store",
		Long: `An embedded store for multi-timeline, multi-component entity data.

Rows are appended to a SQLite recording and replayed into an in-memory
store that answers latest-at and range queries.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			if _, err := opts.Settings(); err != nil {
				return WrapExitError(ExitCommandError, "invalid configuration", err)
			}
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "path to a YAML config file")

	cmd.AddCommand(NewIngestCommand(opts))
	cmd.AddCommand(NewLatestAtCommand(opts))
	cmd.AddCommand(NewRangeCommand(opts))
	cmd.AddCommand(NewStatsCommand(opts))
	cmd.AddCommand(NewRunCommand(opts))
	cmd.AddCommand(NewArchetypesCommand(opts))

	return cmd
}

func isValidFormat(format string) bool {
	return slices.Contains(ValidFormats, format)
}
