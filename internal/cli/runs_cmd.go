package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/alexanderramin/planmigrate/internal/cli/formatter"
	"github.com/spf13/cobra"
)

// resolveRunID expands a run id prefix, as printed by "runs", to the full id.
func resolveRunID(ctx context.Context, env *Env, input string) (string, error) {
	if input == "" {
		return "", fmt.Errorf("run ID is required")
	}

	runs, err := env.Runs.List(ctx, 0)
	if err != nil {
		return "", err
	}

	var matches []string
	for _, r := range runs {
		if r.ID == input {
			return r.ID, nil
		}
		if strings.HasPrefix(r.ID, input) {
			matches = append(matches, r.ID)
		}
	}

	switch len(matches) {
	case 0:
		return "", fmt.Errorf("run not found: %q", input)
	case 1:
		return matches[0], nil
	default:
		return "", fmt.Errorf("run ID prefix %q is ambiguous (%d matches)", input, len(matches))
	}
}

func newRunsCmd(app *App) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recorded migration runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := app.environment(cmd)
			if err != nil {
				return err
			}
			runs, err := env.Runs.List(cmd.Context(), limit)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), formatter.FormatRuns(runs, app.now()))
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "how many runs to show (0 for all)")
	cmd.AddCommand(newRunsShowCmd(app))

	return cmd
}

func newRunsShowCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "show <run-id>",
		Short: "Show the entities of one run that need follow-up",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := app.environment(cmd)
			if err != nil {
				return err
			}
			id, err := resolveRunID(cmd.Context(), env, args[0])
			if err != nil {
				return err
			}
			issues, err := env.Runs.Issues(cmd.Context(), id)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Run %s\n\n", id)
			fmt.Fprint(out, formatter.FormatIssues(issues))
			return nil
		},
	}
}
