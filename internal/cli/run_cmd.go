package cli

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/alexanderramin/planmigrate/internal/cli/formatter"
	"github.com/alexanderramin/planmigrate/internal/report"
	"github.com/alexanderramin/planmigrate/internal/service"
	"github.com/spf13/cobra"
)

type runFlags struct {
	yes        bool
	reportPath string
}

func (f *runFlags) register(cmd *cobra.Command) {
	cmd.Flags().BoolVarP(&f.yes, "yes", "y", false, "do not ask for confirmation")
	cmd.Flags().StringVar(&f.reportPath, "report", "", "write the YAML run report here (overrides report_path)")
}

func newRunCmd(app *App) *cobra.Command {
	var flags runFlags
	var plans []int
	var skipAreas, skipIterations, skipPlans, skipWI bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the full migration: areas, iterations, plans, then work items",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := service.RunOptions{
				Areas:      !skipAreas,
				Iterations: !skipIterations,
				Plans:      !skipPlans,
				WorkItems:  !skipWI,
				PlanIDs:    plans,
			}
			return executeRun(cmd, app, opts, flags)
		},
	}

	flags.register(cmd)
	cmd.Flags().IntSliceVar(&plans, "plans", nil, "source plan ids to migrate (overrides migrate.plans)")
	cmd.Flags().BoolVar(&skipAreas, "skip-areas", false, "do not migrate the area tree")
	cmd.Flags().BoolVar(&skipIterations, "skip-iterations", false, "do not migrate the iteration tree")
	cmd.Flags().BoolVar(&skipPlans, "skip-plans", false, "do not migrate test plans")
	cmd.Flags().BoolVar(&skipWI, "skip-work-items", false, "do not migrate work items")

	return cmd
}

func newPhaseCmd(app *App, use, short string, opts service.RunOptions) *cobra.Command {
	var flags runFlags
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return executeRun(cmd, app, opts, flags)
		},
	}
	flags.register(cmd)
	return cmd
}

func executeRun(cmd *cobra.Command, app *App, opts service.RunOptions, flags runFlags) error {
	env, err := app.environment(cmd)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()

	if !flags.yes && app.interactive() && app.Confirm != nil {
		ok, err := app.Confirm("Start migration?", describeRun(env, opts))
		if err != nil {
			return err
		}
		if !ok {
			fmt.Fprintln(out, "Aborted.")
			return nil
		}
	}

	result, runErr := env.Runs.Run(cmd.Context(), opts)
	if env.Progress != nil {
		env.Progress.Finish()
	}
	if result == nil {
		return runErr
	}
	fmt.Fprint(out, formatter.FormatRunResult(result))

	path := flags.reportPath
	if path == "" {
		path = env.ReportPath
	}
	if path != "" {
		err := report.WriteFile(path, func(w io.Writer) error {
			return report.WriteRun(w, result)
		})
		if err != nil && runErr == nil {
			return err
		}
		if err == nil {
			fmt.Fprintf(out, "\nReport written to %s\n", path)
		}
	}
	return runErr
}

func describeRun(env *Env, opts service.RunOptions) string {
	var phases []string
	for _, p := range []struct {
		on   bool
		name string
	}{
		{opts.Areas, "areas"},
		{opts.Iterations, "iterations"},
		{opts.Plans, "plans"},
		{opts.WorkItems, "work items"},
	} {
		if p.on {
			phases = append(phases, p.name)
		}
	}
	pairs := [][2]string{
		{"from", env.SourceProject},
		{"to", env.TargetProject},
		{"phases", strings.Join(phases, ", ")},
	}
	if opts.Plans && len(opts.PlanIDs) > 0 {
		ids := make([]string, len(opts.PlanIDs))
		for i, id := range opts.PlanIDs {
			ids[i] = strconv.Itoa(id)
		}
		pairs = append(pairs, [2]string{"plans", strings.Join(ids, ", ")})
	}
	return formatter.KeyValues(pairs...)
}
