package service

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/alexanderramin/planmigrate/internal/domain"
)

// EntityEvent describes an entity that exists at the destination after this
// call, either newly created or reused.
type EntityEvent struct {
	Kind     domain.EntityKind
	Scope    int
	SourceID int
	DestID   int
	Name     string
}

// SkipEvent describes an entity that was not migrated.
type SkipEvent struct {
	Kind     domain.EntityKind
	Scope    int
	SourceID int
	Name     string
	Severity domain.IssueSeverity
	Err      error
}

// WarningEvent flags something that needs follow-up without skipping an
// entity.
type WarningEvent struct {
	Kind     domain.EntityKind
	SourceID int
	Name     string
	Message  string
}

// RetryEvent mirrors a failed read attempt that is about to be retried.
type RetryEvent struct {
	Op      string
	Attempt int
	Err     error
}

// ProgressEvent reports how much of a phase is done.
type ProgressEvent struct {
	Phase string
	Done  int
	Total int
}

// Reporter observes migration lifecycle events.
type Reporter interface {
	EntityCreated(ctx context.Context, e EntityEvent)
	EntityReused(ctx context.Context, e EntityEvent)
	EntitySkipped(ctx context.Context, e SkipEvent)
	RetryAttempted(ctx context.Context, e RetryEvent)
	Warning(ctx context.Context, e WarningEvent)
	Progress(ctx context.Context, e ProgressEvent)
}

// NoopReporter ignores all events.
type NoopReporter struct{}

func (NoopReporter) EntityCreated(context.Context, EntityEvent) {}
func (NoopReporter) EntityReused(context.Context, EntityEvent)  {}
func (NoopReporter) EntitySkipped(context.Context, SkipEvent)   {}
func (NoopReporter) RetryAttempted(context.Context, RetryEvent) {}
func (NoopReporter) Warning(context.Context, WarningEvent)      {}
func (NoopReporter) Progress(context.Context, ProgressEvent)    {}

type logReporter struct {
	logger *slog.Logger
}

// NewLogReporter writes migration events to w through slog.
func NewLogReporter(w io.Writer, level slog.Level) Reporter {
	if w == nil {
		return NoopReporter{}
	}
	return &logReporter{
		logger: slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})),
	}
}

func (r *logReporter) EntityCreated(ctx context.Context, e EntityEvent) {
	r.logger.InfoContext(ctx, "entity_created",
		"kind", e.Kind, "scope", e.Scope, "source_id", e.SourceID, "dest_id", e.DestID, "name", e.Name)
}

func (r *logReporter) EntityReused(ctx context.Context, e EntityEvent) {
	r.logger.DebugContext(ctx, "entity_reused",
		"kind", e.Kind, "scope", e.Scope, "source_id", e.SourceID, "dest_id", e.DestID, "name", e.Name)
}

func (r *logReporter) EntitySkipped(ctx context.Context, e SkipEvent) {
	attrs := []any{"kind", e.Kind, "scope", e.Scope, "source_id", e.SourceID, "name", e.Name}
	if e.Err != nil {
		attrs = append(attrs, "error", e.Err.Error())
	}
	if e.Severity == domain.SeverityWarning {
		r.logger.WarnContext(ctx, "entity_skipped", attrs...)
		return
	}
	r.logger.ErrorContext(ctx, "entity_skipped", attrs...)
}

func (r *logReporter) RetryAttempted(ctx context.Context, e RetryEvent) {
	r.logger.WarnContext(ctx, "read_retry", "op", e.Op, "attempt", e.Attempt, "error", e.Err)
}

func (r *logReporter) Warning(ctx context.Context, e WarningEvent) {
	r.logger.WarnContext(ctx, "migration_warning",
		"kind", e.Kind, "source_id", e.SourceID, "name", e.Name, "message", e.Message)
}

func (r *logReporter) Progress(ctx context.Context, e ProgressEvent) {
	r.logger.DebugContext(ctx, "progress", "phase", e.Phase, "done", e.Done, "total", e.Total)
}

// MultiReporter fans every event out to each of its reporters in order.
type MultiReporter []Reporter

func (m MultiReporter) EntityCreated(ctx context.Context, e EntityEvent) {
	for _, r := range m {
		r.EntityCreated(ctx, e)
	}
}

func (m MultiReporter) EntityReused(ctx context.Context, e EntityEvent) {
	for _, r := range m {
		r.EntityReused(ctx, e)
	}
}

func (m MultiReporter) EntitySkipped(ctx context.Context, e SkipEvent) {
	for _, r := range m {
		r.EntitySkipped(ctx, e)
	}
}

func (m MultiReporter) RetryAttempted(ctx context.Context, e RetryEvent) {
	for _, r := range m {
		r.RetryAttempted(ctx, e)
	}
}

func (m MultiReporter) Warning(ctx context.Context, e WarningEvent) {
	for _, r := range m {
		r.Warning(ctx, e)
	}
}

func (m MultiReporter) Progress(ctx context.Context, e ProgressEvent) {
	for _, r := range m {
		r.Progress(ctx, e)
	}
}

func reporterOrNoop(r Reporter) Reporter {
	if r == nil {
		return NoopReporter{}
	}
	return r
}

// UseCaseEvent captures timing of one migration phase.
type UseCaseEvent struct {
	Name      string
	Duration  time.Duration
	Success   bool
	Err       error
	Fields    map[string]any
	StartedAt time.Time
}

// UseCaseObserver receives phase execution events.
type UseCaseObserver interface {
	ObserveUseCase(ctx context.Context, event UseCaseEvent)
}

// NoopUseCaseObserver ignores all events.
type NoopUseCaseObserver struct{}

func (NoopUseCaseObserver) ObserveUseCase(context.Context, UseCaseEvent) {}

type logUseCaseObserver struct {
	logger *slog.Logger
}

// NewLogUseCaseObserver writes phase events to the provided writer.
func NewLogUseCaseObserver(w io.Writer, level slog.Level) UseCaseObserver {
	if w == nil {
		return NoopUseCaseObserver{}
	}
	return &logUseCaseObserver{
		logger: slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})),
	}
}

func (o *logUseCaseObserver) ObserveUseCase(ctx context.Context, event UseCaseEvent) {
	attrs := make([]any, 0, 8+len(event.Fields)*2)
	attrs = append(attrs,
		"use_case", event.Name,
		"duration_ms", event.Duration.Milliseconds(),
		"success", event.Success,
	)
	for k, v := range event.Fields {
		attrs = append(attrs, k, v)
	}
	if event.Err != nil {
		attrs = append(attrs, "error", event.Err.Error())
		o.logger.ErrorContext(ctx, "service_use_case", attrs...)
		return
	}
	o.logger.InfoContext(ctx, "service_use_case", attrs...)
}

func useCaseObserverOrNoop(observers []UseCaseObserver) UseCaseObserver {
	for _, obs := range observers {
		if obs != nil {
			return obs
		}
	}
	return NoopUseCaseObserver{}
}
