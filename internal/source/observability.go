package source

import (
	"io"
	"log/slog"
)

// RetryEvent is emitted for every failed attempt of a retried read.
type RetryEvent struct {
	Op      string
	Attempt int
	Err     error
}

// CallEvent records the outcome of one logical read, retries included.
type CallEvent struct {
	Op        string
	Attempts  int
	LatencyMs int64
	Success   bool
	Err       error
}

// Observer receives events about source reads.
type Observer interface {
	OnRetry(event RetryEvent)
	OnCallComplete(event CallEvent)
}

// LogObserver writes read events through slog.
type LogObserver struct {
	logger *slog.Logger
}

// NewLogObserver creates an Observer that logs events to w at debug level,
// failures at warn.
func NewLogObserver(w io.Writer, level slog.Level) *LogObserver {
	return &LogObserver{
		logger: slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})),
	}
}

func (o *LogObserver) OnRetry(event RetryEvent) {
	o.logger.Warn("source_retry", "op", event.Op, "attempt", event.Attempt, "error", event.Err)
}

func (o *LogObserver) OnCallComplete(event CallEvent) {
	attrs := []any{
		"op", event.Op,
		"attempts", event.Attempts,
		"latency_ms", event.LatencyMs,
		"success", event.Success,
	}
	if event.Err != nil {
		o.logger.Error("source_call", append(attrs, "error", event.Err.Error())...)
		return
	}
	o.logger.Debug("source_call", attrs...)
}

// NoopObserver discards all events.
type NoopObserver struct{}

func (NoopObserver) OnRetry(RetryEvent)       {}
func (NoopObserver) OnCallComplete(CallEvent) {}
