package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/alexanderramin/planmigrate/internal/cli/formatter"
	"github.com/alexanderramin/planmigrate/internal/domain"
	"github.com/alexanderramin/planmigrate/internal/report"
	"github.com/alexanderramin/planmigrate/internal/repository"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

func newRelationsCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "relations",
		Short: "Inspect and transfer recorded source to destination relations",
	}

	cmd.AddCommand(
		newRelationsListCmd(app),
		newRelationsExportCmd(app),
		newRelationsImportCmd(app),
	)

	return cmd
}

// kindValue is a flag value that only accepts known entity kinds.
type kindValue domain.EntityKind

var _ pflag.Value = (*kindValue)(nil)

func (k *kindValue) String() string { return string(*k) }
func (k *kindValue) Type() string { return "kind" }

func (k *kindValue) Set(s string) error {
	kind, err := domain.ParseEntityKind(s)
	if err != nil {
		return err
	}
	*k = kindValue(kind)
	return nil
}

type relationFilterFlags struct {
	kind  kindValue
	scope int
}

func (f *relationFilterFlags) register(cmd *cobra.Command) {
	cmd.Flags().Var(&f.kind, "kind", "only this kind (area, iteration, plan, suite, case, work_item)")
	cmd.Flags().IntVar(&f.scope, "scope", -1, "only this scope: a source plan id, or 0 for global relations")
}

func (f *relationFilterFlags) filter() repository.RelationFilter {
	filter := repository.RelationFilter{Kind: domain.EntityKind(f.kind)}
	if f.scope >= 0 {
		scope := f.scope
		filter.Scope = &scope
	}
	return filter
}

func listRelations(cmd *cobra.Command, app *App, flags *relationFilterFlags) ([]domain.Relation, error) {
	env, err := app.environment(cmd)
	if err != nil {
		return nil, err
	}
	return env.Relations.List(cmd.Context(), flags.filter())
}

func newRelationsListCmd(app *App) *cobra.Command {
	var flags relationFilterFlags

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recorded relations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rels, err := listRelations(cmd, app, &flags)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), formatter.FormatRelations(rels))
			return nil
		},
	}

	flags.register(cmd)
	return cmd
}

func newRelationsExportCmd(app *App) *cobra.Command {
	var flags relationFilterFlags
	var out string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write recorded relations as YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rels, err := listRelations(cmd, app, &flags)
			if err != nil {
				return err
			}
			write := func(w io.Writer) error { return report.WriteRelations(w, rels) }
			if out == "" || out == "-" {
				return write(cmd.OutOrStdout())
			}
			if err := report.WriteFile(out, write); err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Exported %d relations to %s\n", len(rels), out)
			return nil
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file (default stdout)")
	return cmd
}

func newRelationsImportCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file.yaml>",
		Short: "Load relations exported from another database",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			rels, err := report.ReadRelations(f)
			if err != nil {
				return fmt.Errorf("%s: %w", args[0], err)
			}
			env, err := app.environment(cmd)
			if err != nil {
				return err
			}
			added, err := env.Relations.Import(cmd.Context(), rels)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d of %d relations (%d already present)\n",
				added, len(rels), len(rels)-added)
			return nil
		},
	}
}
