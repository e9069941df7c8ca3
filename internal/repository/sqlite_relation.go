package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/alexanderramin/planmigrate/internal/db"
	"github.com/alexanderramin/planmigrate/internal/domain"
)

// SQLiteRelationRepo persists source to destination id relations.
type SQLiteRelationRepo struct {
	db db.DBTX
}

func NewSQLiteRelationRepo(conn db.DBTX) *SQLiteRelationRepo {
	return &SQLiteRelationRepo{db: conn}
}

// Create inserts a relation. Inserting an existing (scope, kind, source id)
// again leaves the stored row untouched; the relation store decides whether
// that is a conflict before calling Create.
func (r *SQLiteRelationRepo) Create(ctx context.Context, rel *domain.Relation) error {
	query := `INSERT INTO relations (scope, kind, source_id, dest_id, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(scope, kind, source_id) DO NOTHING`
	_, err := r.db.ExecContext(ctx, query,
		rel.Scope, string(rel.Kind), rel.SourceID, rel.DestID, formatTime(rel.CreatedAt))
	if err != nil {
		return fmt.Errorf("inserting relation: %w", err)
	}
	return nil
}

func (r *SQLiteRelationRepo) Get(ctx context.Context, scope int, kind domain.EntityKind, sourceID int) (*domain.Relation, error) {
	query := `SELECT scope, kind, source_id, dest_id, created_at
		FROM relations WHERE scope = ? AND kind = ? AND source_id = ?`
	row := r.db.QueryRowContext(ctx, query, scope, string(kind), sourceID)

	var rel domain.Relation
	var kindStr, createdAt string
	if err := row.Scan(&rel.Scope, &kindStr, &rel.SourceID, &rel.DestID, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("relation %s %d: %w", kind, sourceID, ErrNotFound)
		}
		return nil, fmt.Errorf("scanning relation: %w", err)
	}
	rel.Kind = domain.EntityKind(kindStr)
	t, err := parseTime("created_at", createdAt)
	if err != nil {
		return nil, err
	}
	rel.CreatedAt = t
	return &rel, nil
}

func (r *SQLiteRelationRepo) ListByScope(ctx context.Context, scope int) ([]domain.Relation, error) {
	return r.List(ctx, RelationFilter{Scope: &scope})
}

func (r *SQLiteRelationRepo) List(ctx context.Context, filter RelationFilter) ([]domain.Relation, error) {
	var where []string
	var args []any
	if filter.Scope != nil {
		where = append(where, "scope = ?")
		args = append(args, *filter.Scope)
	}
	if filter.Kind != "" {
		where = append(where, "kind = ?")
		args = append(args, string(filter.Kind))
	}

	query := `SELECT scope, kind, source_id, dest_id, created_at FROM relations`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY scope, kind, source_id"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing relations: %w", err)
	}
	defer rows.Close()

	var rels []domain.Relation
	for rows.Next() {
		var rel domain.Relation
		var kindStr, createdAt string
		if err := rows.Scan(&rel.Scope, &kindStr, &rel.SourceID, &rel.DestID, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning relation row: %w", err)
		}
		rel.Kind = domain.EntityKind(kindStr)
		if rel.CreatedAt, err = parseTime("created_at", createdAt); err != nil {
			return nil, err
		}
		rels = append(rels, rel)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating relations: %w", err)
	}
	return rels, nil
}
