package source

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/alexanderramin/planmigrate/internal/domain"
	"github.com/juju/clock"
	"github.com/juju/retry"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"
)

const (
	DefaultAttempts = 10
	DefaultDelay    = 50 * time.Millisecond
)

// RetryConfig bounds how reads are retried and paced.
type RetryConfig struct {
	// Attempts is the total number of tries per read, first one included.
	Attempts int
	// Delay is the constant pause between attempts.
	Delay time.Duration
	// RequestsPerSecond caps the request rate. Zero means unlimited.
	RequestsPerSecond float64
	Clock             clock.Clock
}

func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		Attempts: DefaultAttempts,
		Delay:    DefaultDelay,
		Clock:    clock.WallClock,
	}
}

// Retrying decorates a Reader with the retry budget. Only failures marked
// domain.ErrTransientTransport are retried. Every failure it returns is a
// *domain.ReadError.
type Retrying struct {
	inner   Reader
	cfg     RetryConfig
	limiter *rate.Limiter
	tracer  trace.Tracer
	obs     Observer
}

func NewRetrying(inner Reader, cfg RetryConfig, obs Observer) *Retrying {
	if cfg.Attempts <= 0 {
		cfg.Attempts = DefaultAttempts
	}
	if cfg.Delay <= 0 {
		cfg.Delay = time.Millisecond
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.WallClock
	}
	if obs == nil {
		obs = NoopObserver{}
	}
	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	return &Retrying{
		inner:   inner,
		cfg:     cfg,
		limiter: rate.NewLimiter(limit, 1),
		tracer:  otel.Tracer("github.com/alexanderramin/planmigrate/internal/source"),
		obs:     obs,
	}
}

func (r *Retrying) call(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	ctx, span := r.tracer.Start(ctx, "source."+op)
	defer span.End()

	start := time.Now()
	attempts := 0
	var lastErr error
	err := retry.Call(retry.CallArgs{
		Func: func() error {
			attempts++
			if err := r.limiter.Wait(ctx); err != nil {
				return err
			}
			return fn(ctx)
		},
		IsFatalError: func(err error) bool {
			return !errors.Is(err, domain.ErrTransientTransport)
		},
		NotifyFunc: func(err error, attempt int) {
			lastErr = err
			r.obs.OnRetry(RetryEvent{Op: op, Attempt: attempt, Err: err})
		},
		Attempts: r.cfg.Attempts,
		Delay:    r.cfg.Delay,
		Clock:    r.cfg.Clock,
		Stop:     ctx.Done(),
	})
	switch {
	case err == nil:
	case retry.IsAttemptsExceeded(err):
		err = fmt.Errorf("%w after %d attempts: %w", domain.ErrRetryExhausted, attempts, lastErr)
	case retry.IsRetryStopped(err):
		err = ctx.Err()
	}

	span.SetAttributes(attribute.String("source.op", op), attribute.Int("source.attempts", attempts))
	r.obs.OnCallComplete(CallEvent{
		Op:        op,
		Attempts:  attempts,
		LatencyMs: time.Since(start).Milliseconds(),
		Success:   err == nil,
		Err:       err,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return &domain.ReadError{Op: op, Err: err}
	}
	return nil
}

func (r *Retrying) ListPlans(ctx context.Context) ([]domain.Plan, error) {
	var out []domain.Plan
	err := r.call(ctx, "list plans", func(ctx context.Context) error {
		var err error
		out, err = r.inner.ListPlans(ctx)
		return err
	})
	return out, err
}

func (r *Retrying) ListSuites(ctx context.Context, planID int) ([]domain.Suite, error) {
	var out []domain.Suite
	err := r.call(ctx, fmt.Sprintf("suites of plan %d", planID), func(ctx context.Context) error {
		var err error
		out, err = r.inner.ListSuites(ctx, planID)
		return err
	})
	return out, err
}

func (r *Retrying) GetSuiteWithChildren(ctx context.Context, planID, suiteID int) (*domain.Suite, error) {
	var out *domain.Suite
	err := r.call(ctx, fmt.Sprintf("suite %d of plan %d", suiteID, planID), func(ctx context.Context) error {
		var err error
		out, err = r.inner.GetSuiteWithChildren(ctx, planID, suiteID)
		return err
	})
	return out, err
}

func (r *Retrying) ListCases(ctx context.Context, planID, suiteID int) ([]int, error) {
	var out []int
	err := r.call(ctx, fmt.Sprintf("cases of suite %d", suiteID), func(ctx context.Context) error {
		var err error
		out, err = r.inner.ListCases(ctx, planID, suiteID)
		return err
	})
	return out, err
}

func (r *Retrying) GetWorkItems(ctx context.Context, ids []int) ([]domain.WorkItem, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var out []domain.WorkItem
	err := r.call(ctx, fmt.Sprintf("details of %d work items", len(ids)), func(ctx context.Context) error {
		var err error
		out, err = r.inner.GetWorkItems(ctx, ids)
		return err
	})
	return out, err
}

func (r *Retrying) GetAreaTree(ctx context.Context, structure domain.StructureType) (*domain.Node, error) {
	var out *domain.Node
	err := r.call(ctx, string(structure)+" tree", func(ctx context.Context) error {
		var err error
		out, err = r.inner.GetAreaTree(ctx, structure)
		return err
	})
	return out, err
}

func (r *Retrying) QueryWorkItems(ctx context.Context, wiql string) ([]int, error) {
	var out []int
	err := r.call(ctx, "work item query", func(ctx context.Context) error {
		var err error
		out, err = r.inner.QueryWorkItems(ctx, wiql)
		return err
	})
	return out, err
}
