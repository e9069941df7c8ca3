package cli

import (
	"fmt"
	"strconv"

	"github.com/alexanderramin/planmigrate/internal/cli/formatter"
	"github.com/alexanderramin/planmigrate/internal/domain"
	"github.com/spf13/cobra"
)

func newPlansCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "plans",
		Short: "List the test plans of the source project",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := app.environment(cmd)
			if err != nil {
				return err
			}
			inspect, err := env.Inspect(cmd.Context())
			if err != nil {
				return err
			}
			plans, err := inspect.Plans(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), formatter.FormatPlans(plans))
			return nil
		},
	}
}

func newTreeCmd(app *App) *cobra.Command {
	var areas, iterations bool

	cmd := &cobra.Command{
		Use:   "tree [plan-id]",
		Short: "Show a source plan's suite tree, or the area or iteration tree",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if (len(args) == 1) == (areas || iterations) {
				return fmt.Errorf("give either a plan id or one of --areas, --iterations")
			}
			env, err := app.environment(cmd)
			if err != nil {
				return err
			}
			inspect, err := env.Inspect(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			if len(args) == 0 {
				structure := domain.StructureAreas
				if iterations {
					structure = domain.StructureIterations
				}
				root, err := inspect.Tree(cmd.Context(), structure)
				if err != nil {
					return err
				}
				fmt.Fprint(out, formatter.FormatNodeTree(root))
				return nil
			}

			planID, err := strconv.Atoi(args[0])
			if err != nil || planID <= 0 {
				return fmt.Errorf("invalid plan id %q", args[0])
			}
			root, err := inspect.SuiteTree(cmd.Context(), planID)
			if err != nil {
				return err
			}
			fmt.Fprint(out, formatter.FormatSuiteTree(root))
			return nil
		},
	}

	cmd.Flags().BoolVar(&areas, "areas", false, "show the area tree")
	cmd.Flags().BoolVar(&iterations, "iterations", false, "show the iteration tree")
	cmd.MarkFlagsMutuallyExclusive("areas", "iterations")

	return cmd
}
