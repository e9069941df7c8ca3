// Package report writes run summaries and relation listings as YAML files
// meant for manual follow-up.
package report

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/alexanderramin/planmigrate/internal/domain"
	"github.com/alexanderramin/planmigrate/internal/service"
	"gopkg.in/yaml.v3"
)

type Counts struct {
	Created int `yaml:"created"`
	Reused  int `yaml:"reused"`
	Skipped int `yaml:"skipped"`
	Failed  int `yaml:"failed"`
}

type KindCounts struct {
	Kind string `yaml:"kind"`
	Counts `yaml:",inline"`
}

type Issue struct {
	Kind     string `yaml:"kind"`
	SourceID int    `yaml:"source_id"`
	Name     string `yaml:"name,omitempty"`
	Severity string `yaml:"severity"`
	Reason   string `yaml:"reason"`
}

// RunReport is the document written after a run.
type RunReport struct {
	RunID      string       `yaml:"run_id"`
	Status     string       `yaml:"status"`
	StartedAt  string       `yaml:"started_at"`
	FinishedAt string       `yaml:"finished_at,omitempty"`
	Error      string       `yaml:"error,omitempty"`
	Totals     Counts       `yaml:"totals"`
	Kinds      []KindCounts `yaml:"kinds"`
	Issues     []Issue      `yaml:"issues"`
}

type Relation struct {
	Scope    int    `yaml:"scope"`
	Kind     string `yaml:"kind"`
	SourceID int    `yaml:"source_id"`
	DestID   int    `yaml:"dest_id"`
}

func counts(c service.KindCounts) Counts {
	return Counts{Created: c.Created, Reused: c.Reused, Skipped: c.Skipped, Failed: c.Failed}
}

// NewRunReport flattens a run result into its report document.
func NewRunReport(result *service.RunResult) RunReport {
	run := result.Run
	r := RunReport{
		RunID:     run.ID,
		Status:    string(run.Status),
		StartedAt: run.StartedAt.Format(time.RFC3339),
		Error:     run.Error,
		Totals:    counts(result.Summary.Totals()),
		Kinds:     []KindCounts{},
		Issues:    make([]Issue, 0, len(result.Summary.Issues)),
	}
	if run.FinishedAt != nil {
		r.FinishedAt = run.FinishedAt.Format(time.RFC3339)
	}
	for _, kind := range result.Summary.Kinds() {
		r.Kinds = append(r.Kinds, KindCounts{Kind: string(kind), Counts: counts(result.Summary.Counts[kind])})
	}
	for _, is := range result.Summary.Issues {
		r.Issues = append(r.Issues, Issue{
			Kind:     string(is.Kind),
			SourceID: is.SourceID,
			Name:     is.Name,
			Severity: string(is.Severity),
			Reason:   is.Reason,
		})
	}
	return r
}

func encode(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode yaml: %w", err)
	}
	return enc.Close()
}

func WriteRun(w io.Writer, result *service.RunResult) error {
	return encode(w, NewRunReport(result))
}

func WriteRelations(w io.Writer, rels []domain.Relation) error {
	out := make([]Relation, len(rels))
	for i, r := range rels {
		out[i] = Relation{Scope: r.Scope, Kind: string(r.Kind), SourceID: r.SourceID, DestID: r.DestID}
	}
	return encode(w, map[string][]Relation{"relations": out})
}

// ReadRelations parses a document written by WriteRelations.
func ReadRelations(r io.Reader) ([]domain.Relation, error) {
	var doc struct {
		Relations []Relation `yaml:"relations"`
	}
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode relations: %w", err)
	}
	rels := make([]domain.Relation, 0, len(doc.Relations))
	for _, r := range doc.Relations {
		kind, err := domain.ParseEntityKind(r.Kind)
		if err != nil {
			return nil, err
		}
		rels = append(rels, domain.Relation{Scope: r.Scope, Kind: kind, SourceID: r.SourceID, DestID: r.DestID})
	}
	return rels, nil
}

// WriteFile writes with fn to path, creating parent directories.
func WriteFile(path string, fn func(io.Writer) error) (err error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create report dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create report: %w", err)
	}
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("close report: %w", cerr)
		}
	}()
	return fn(f)
}
