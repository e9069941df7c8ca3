package service

import (
	"context"
	"sort"
	"time"

	"github.com/alexanderramin/planmigrate/internal/domain"
)

// KindCounts tallies outcomes for one entity kind.
type KindCounts struct {
	Created int
	Reused  int
	Skipped int
	Failed  int
}

func (c *KindCounts) add(o KindCounts) {
	c.Created += o.Created
	c.Reused += o.Reused
	c.Skipped += o.Skipped
	c.Failed += o.Failed
}

// Summary is the end-of-run account: what happened per kind and what needs
// manual follow-up.
type Summary struct {
	Counts map[domain.EntityKind]KindCounts
	Issues []domain.Issue
}

// Kinds returns the kinds with any activity, in the order entities are
// migrated.
func (s Summary) Kinds() []domain.EntityKind {
	order := map[domain.EntityKind]int{
		domain.KindArea: 0, domain.KindIteration: 1, domain.KindPlan: 2,
		domain.KindSuite: 3, domain.KindCase: 4, domain.KindWorkItem: 5,
	}
	kinds := make([]domain.EntityKind, 0, len(s.Counts))
	for k := range s.Counts {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return order[kinds[i]] < order[kinds[j]] })
	return kinds
}

func (s Summary) Totals() KindCounts {
	var t KindCounts
	for _, c := range s.Counts {
		t.add(c)
	}
	return t
}

// Recorder is a Reporter that builds a Summary.
type Recorder struct {
	counts map[domain.EntityKind]KindCounts
	issues []domain.Issue
	now    func() time.Time
}

func NewRecorder() *Recorder {
	return &Recorder{
		counts: make(map[domain.EntityKind]KindCounts),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (r *Recorder) bump(kind domain.EntityKind, fn func(*KindCounts)) {
	c := r.counts[kind]
	fn(&c)
	r.counts[kind] = c
}

func (r *Recorder) EntityCreated(_ context.Context, e EntityEvent) {
	r.bump(e.Kind, func(c *KindCounts) { c.Created++ })
}

func (r *Recorder) EntityReused(_ context.Context, e EntityEvent) {
	r.bump(e.Kind, func(c *KindCounts) { c.Reused++ })
}

func (r *Recorder) EntitySkipped(_ context.Context, e SkipEvent) {
	severity := e.Severity
	if severity == "" {
		severity = domain.SeverityError
	}
	r.bump(e.Kind, func(c *KindCounts) {
		if severity == domain.SeverityWarning {
			c.Skipped++
		} else {
			c.Failed++
		}
	})
	reason := ""
	if e.Err != nil {
		reason = e.Err.Error()
	}
	r.issues = append(r.issues, domain.Issue{
		Kind:     e.Kind,
		SourceID: e.SourceID,
		Name:     e.Name,
		Severity: severity,
		Reason:   reason,
		At:       r.now(),
	})
}

func (r *Recorder) RetryAttempted(context.Context, RetryEvent) {}

func (r *Recorder) Warning(_ context.Context, e WarningEvent) {
	r.issues = append(r.issues, domain.Issue{
		Kind:     e.Kind,
		SourceID: e.SourceID,
		Name:     e.Name,
		Severity: domain.SeverityWarning,
		Reason:   e.Message,
		At:       r.now(),
	})
}

func (r *Recorder) Progress(context.Context, ProgressEvent) {}

// Summary returns a snapshot of everything recorded so far.
func (r *Recorder) Summary() Summary {
	counts := make(map[domain.EntityKind]KindCounts, len(r.counts))
	for k, v := range r.counts {
		counts[k] = v
	}
	return Summary{Counts: counts, Issues: append([]domain.Issue(nil), r.issues...)}
}
