package repository

import (
	"context"
	"fmt"

	"github.com/alexanderramin/planmigrate/internal/db"
	"github.com/alexanderramin/planmigrate/internal/domain"
)

// SQLiteIssueRepo stores the follow-up issues of a run.
type SQLiteIssueRepo struct {
	db db.DBTX
}

func NewSQLiteIssueRepo(conn db.DBTX) *SQLiteIssueRepo {
	return &SQLiteIssueRepo{db: conn}
}

func (r *SQLiteIssueRepo) CreateBatch(ctx context.Context, issues []domain.Issue) error {
	query := `INSERT INTO run_issues (run_id, kind, source_id, name, severity, reason, at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`
	for _, is := range issues {
		_, err := r.db.ExecContext(ctx, query,
			is.RunID, string(is.Kind), is.SourceID, is.Name, string(is.Severity), is.Reason, formatTime(is.At))
		if err != nil {
			return fmt.Errorf("inserting issue for %s %d: %w", is.Kind, is.SourceID, err)
		}
	}
	return nil
}

func (r *SQLiteIssueRepo) ListByRun(ctx context.Context, runID string) ([]domain.Issue, error) {
	query := `SELECT run_id, kind, source_id, name, severity, reason, at
		FROM run_issues WHERE run_id = ? ORDER BY id`
	rows, err := r.db.QueryContext(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("listing issues: %w", err)
	}
	defer rows.Close()

	var issues []domain.Issue
	for rows.Next() {
		var is domain.Issue
		var kind, severity, at string
		if err := rows.Scan(&is.RunID, &kind, &is.SourceID, &is.Name, &severity, &is.Reason, &at); err != nil {
			return nil, fmt.Errorf("scanning issue row: %w", err)
		}
		is.Kind = domain.EntityKind(kind)
		is.Severity = domain.IssueSeverity(severity)
		if is.At, err = parseTime("at", at); err != nil {
			return nil, err
		}
		issues = append(issues, is)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating issues: %w", err)
	}
	return issues, nil
}
