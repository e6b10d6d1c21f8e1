package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

// ArchetypesOptions holds flags for the archetypes command.
type ArchetypesOptions struct {
	*RootOptions
	Dir string
}

// ArchetypeInfo describes one archetype in command output.
type ArchetypeInfo struct {
	Name       string          `json:"name"`
	Components []ComponentInfo `json:"components"`
}

// ComponentInfo describes one component slot of an archetype.
type ComponentInfo struct {
	Name string `json:"name"`
	Role string `json:"role"`
	Type string `json:"type"`
}

// NewArchetypesCommand creates the archetypes command.
func NewArchetypesCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ArchetypesOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "archetypes [name...]",
		Short: "List archetype definitions",
		Long: `List the builtin archetypes plus any CUE definitions in --dir.

Example:
  strata archetypes
  strata archetypes --dir ./defs Points2D`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runArchetypes(opts, args, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}

	cmd.Flags().StringVar(&opts.Dir, "dir", "", "directory of extra CUE archetype definitions")

	return cmd
}

func runArchetypes(opts *ArchetypesOptions, names []string, out, errOut io.Writer) error {
	reg, err := loadArchetypes(opts.Dir)
	if err != nil {
		return err
	}
	if len(names) == 0 {
		names = reg.Names()
	}

	infos := make([]ArchetypeInfo, 0, len(names))
	for _, name := range names {
		a, ok := reg.Get(name)
		if !ok {
			return NewExitError(ExitCommandError, fmt.Sprintf("unknown archetype %q", name))
		}
		info := ArchetypeInfo{Name: a.Name}
		for _, c := range a.Components {
			info.Components = append(info.Components, ComponentInfo{
				Name: string(c.Name),
				Role: c.Role.String(),
				Type: c.DataType.String(),
			})
		}
		infos = append(infos, info)
	}

	f := newFormatter(opts.RootOptions, out, errOut)
	return f.Success(infos, func(w io.Writer) {
		for _, info := range infos {
			fmt.Fprintln(w, info.Name)
			for _, c := range info.Components {
				fmt.Fprintf(w, "  %-12s %-8s %s\n", c.Role, c.Type, c.Name)
			}
		}
	})
}
