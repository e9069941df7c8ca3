package cli

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/alexanderramin/planmigrate/internal/cli/formatter"
	"github.com/alexanderramin/planmigrate/internal/service"
	"github.com/spf13/cobra"
)

// GlobalOptions are the persistent flags plus what the terminal tells us.
type GlobalOptions struct {
	ConfigPath  string
	DBPath      string
	Verbose     bool
	Quiet       bool
	Interactive bool
	Stderr      io.Writer
}

// Level returns the slog level the flags select. An interactive terminal
// shows a progress bar, so per-entity Info lines are dropped there.
func (o GlobalOptions) Level() slog.Level {
	switch {
	case o.Verbose:
		return slog.LevelDebug
	case o.Quiet, o.Interactive:
		return slog.LevelWarn
	default:
		return slog.LevelInfo
	}
}

// Env is the service graph of one invocation.
type Env struct {
	Runs      service.RunService
	Relations service.RelationService

	// Inspect connects to the source on demand. Commands that only read the
	// local database never call it, so they work without credentials.
	Inspect func(ctx context.Context) (service.InspectService, error)

	// Progress is non-nil when a progress bar is drawn during runs.
	Progress *formatter.ProgressReporter

	SourceProject string
	TargetProject string
	ReportPath    string

	Close func() error
}

// App holds what CLI commands need. The service graph is built lazily on the
// first command that needs it, after flags are parsed.
type App struct {
	Bootstrap     func(ctx context.Context, opts GlobalOptions) (*Env, error)
	Confirm       func(title, description string) (bool, error)
	IsInteractive func() bool
	Now           func() time.Time

	opts GlobalOptions
	env  *Env
}

func (a *App) interactive() bool {
	return a.IsInteractive != nil && a.IsInteractive()
}

func (a *App) now() time.Time {
	if a.Now != nil {
		return a.Now()
	}
	return time.Now()
}

func (a *App) environment(cmd *cobra.Command) (*Env, error) {
	if a.env != nil {
		return a.env, nil
	}
	if a.Bootstrap == nil {
		return nil, errors.New("no service wiring configured")
	}
	opts := a.opts
	opts.Interactive = a.interactive()
	opts.Stderr = cmd.ErrOrStderr()
	env, err := a.Bootstrap(cmd.Context(), opts)
	if err != nil {
		return nil, err
	}
	a.env = env
	return env, nil
}

// Close releases whatever the bootstrap opened.
func (a *App) Close() error {
	if a.env == nil || a.env.Close == nil {
		return nil
	}
	err := a.env.Close()
	a.env = nil
	return err
}

// NewRootCmd creates the top-level "planmigrate" command and registers all
// subcommands against the provided App.
func NewRootCmd(app *App) *cobra.Command {
	root := &cobra.Command{
		Use:   "planmigrate",
		Short: "Migrate test plans, classification trees and work items between projects",
		Long: `planmigrate copies test plans with their suite hierarchy and test cases,
area and iteration trees, and selected work items from a source project to a
destination project. Every created entity is recorded, so an interrupted run
can simply be started again.`,
		SilenceUsage: true,
	}

	flags := root.PersistentFlags()
	flags.StringVar(&app.opts.ConfigPath, "config", "", "config file (default ~/.planmigrate/config.yaml)")
	flags.StringVar(&app.opts.DBPath, "db", "", "relation database path (overrides db_path)")
	flags.BoolVarP(&app.opts.Verbose, "verbose", "v", false, "log every read and reused entity")
	flags.BoolVarP(&app.opts.Quiet, "quiet", "q", false, "log warnings and errors only")
	root.MarkFlagsMutuallyExclusive("verbose", "quiet")

	root.AddCommand(
		newRunCmd(app),
		newPhaseCmd(app, "areas", "Migrate the area tree", service.RunOptions{Areas: true}),
		newPhaseCmd(app, "iterations", "Migrate the iteration tree", service.RunOptions{Iterations: true}),
		newPhaseCmd(app, "workitems", "Migrate Tasks, Bugs and User Stories", service.RunOptions{WorkItems: true}),
		newPlansCmd(app),
		newTreeCmd(app),
		newRelationsCmd(app),
		newRunsCmd(app),
	)

	return root
}
