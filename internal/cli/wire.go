package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/alexanderramin/planmigrate/internal/cli/formatter"
	"github.com/alexanderramin/planmigrate/internal/config"
	"github.com/alexanderramin/planmigrate/internal/db"
	"github.com/alexanderramin/planmigrate/internal/repository"
	"github.com/alexanderramin/planmigrate/internal/service"
	"github.com/alexanderramin/planmigrate/internal/source"
	"github.com/alexanderramin/planmigrate/internal/target"
	"github.com/alexanderramin/planmigrate/internal/transport"
	"github.com/juju/clock"
)

// Bootstrap loads the configuration, opens the relation database and wires
// the services. Remote connections are only made when a command needs them.
func Bootstrap(_ context.Context, opts GlobalOptions) (*Env, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, err
	}
	if opts.DBPath != "" {
		cfg.DBPath = opts.DBPath
	}
	level := opts.Level()

	database, err := db.OpenDB(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	relations := repository.NewSQLiteRelationRepo(database)
	runs := repository.NewSQLiteRunRepo(database)
	issues := repository.NewSQLiteIssueRepo(database)
	uow := db.NewSQLiteUnitOfWork(database)

	reporters := service.MultiReporter{service.NewLogReporter(opts.Stderr, level)}
	var progress *formatter.ProgressReporter
	if opts.Interactive && !opts.Quiet {
		progress = formatter.NewProgressReporter(opts.Stderr)
		reporters = append(reporters, progress)
	}

	w := &wiring{cfg: cfg, stderr: opts.Stderr, level: level, relations: relations}

	return &Env{
		Runs: service.NewRunService(runs, issues, uow, w.buildPhases, reporters,
			service.NewLogUseCaseObserver(opts.Stderr, level)),
		Relations: service.NewRelationService(relations, uow),
		Inspect: func(ctx context.Context) (service.InspectService, error) {
			if err := cfg.ValidateSource(); err != nil {
				return nil, fmt.Errorf("invalid configuration:\n%w", err)
			}
			src, err := w.sourceReader(service.NewLogReporter(opts.Stderr, level))
			if err != nil {
				return nil, err
			}
			return service.NewInspectService(src), nil
		},
		Progress:      progress,
		SourceProject: cfg.Source.Project,
		TargetProject: cfg.Target.Project,
		ReportPath:    cfg.ReportPath,
		Close:         database.Close,
	}, nil
}

type wiring struct {
	cfg       *config.Config
	stderr    io.Writer
	level     slog.Level
	relations repository.RelationRepo
}

// buildPhases is the run's PhaseBuilder: it opens the destination session
// and hands its Close back as the release func.
func (w *wiring) buildPhases(ctx context.Context, opts service.RunOptions, reporter service.Reporter) (service.Phases, func(), error) {
	if err := w.cfg.Validate(); err != nil {
		return service.Phases{}, nil, fmt.Errorf("invalid configuration:\n%w", err)
	}
	src, err := w.sourceReader(reporter)
	if err != nil {
		return service.Phases{}, nil, err
	}
	session, err := target.Open(ctx, target.Config{
		Config:  endpointConfig(w.cfg.Target),
		Project: w.cfg.Target.Project,
	})
	if err != nil {
		return service.Phases{}, nil, err
	}

	settings := w.settings(opts)
	stores := service.NewRelationStores(w.relations, reporter)
	phases := service.Phases{
		Areas:     service.NewAreaService(src, session, stores, reporter, settings),
		Plans:     service.NewMigrationService(src, session, stores, reporter, settings),
		WorkItems: service.NewWorkItemService(src, session, stores, reporter, settings),
	}
	return phases, func() { _ = session.Close() }, nil
}

func (w *wiring) sourceReader(reporter service.Reporter) (service.SourceReader, error) {
	tc, err := transport.New(endpointConfig(w.cfg.Source.Endpoint))
	if err != nil {
		return nil, fmt.Errorf("source: %w", err)
	}
	client := source.NewClient(tc, w.cfg.Source.Project, w.cfg.Source.PageSize)
	return source.NewRetrying(client, source.RetryConfig{
		Attempts:          w.cfg.Retry.Attempts,
		Delay:             w.cfg.Retry.Delay,
		RequestsPerSecond: w.cfg.Source.RequestsPerSecond,
		Clock:             clock.WallClock,
	}, retryObserver{LogObserver: source.NewLogObserver(w.stderr, w.level), reporter: reporter}), nil
}

func (w *wiring) settings(opts service.RunOptions) service.Settings {
	plans := w.cfg.Migrate.Plans
	if len(opts.PlanIDs) > 0 {
		plans = opts.PlanIDs
	}
	return service.Settings{
		SourceProject: w.cfg.Source.Project,
		TargetProject: w.cfg.Target.Project,
		PlanIDs:       plans,
		Iterations:    w.cfg.Migrate.Iterations,
		Users:         w.cfg.Migrate.UserMap(),
		FallbackUser:  w.cfg.Migrate.FallbackUser,
		WorkItemTypes: w.cfg.Migrate.WorkItemTypes,
	}
}

func endpointConfig(e config.Endpoint) transport.Config {
	return transport.Config{BaseURL: e.URL, User: e.User, Token: e.Token, Timeout: e.Timeout}
}

// retryObserver sends retries through the run's reporter. Call outcomes go
// to the source log.
type retryObserver struct {
	*source.LogObserver
	reporter service.Reporter
}

func (o retryObserver) OnRetry(e source.RetryEvent) {
	o.reporter.RetryAttempted(context.Background(), service.RetryEvent{Op: e.Op, Attempt: e.Attempt, Err: e.Err})
}
