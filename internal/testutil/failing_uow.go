package testutil

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/alexanderramin/planmigrate/internal/db"
)

// FailingExecUoW is a UnitOfWork that fails the first statement whose SQL
// contains Match, so tests can check that bookkeeping written in one
// transaction rolls back as a whole. Reads pass through.
type FailingExecUoW struct {
	DB    *sql.DB
	Match string
	Err   error

	// Failed reports whether the failure was injected.
	Failed bool
}

func (u *FailingExecUoW) WithinTx(ctx context.Context, fn func(ctx context.Context, tx db.DBTX) error) error {
	tx, err := u.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	if err := fn(ctx, &failingExec{DBTX: tx, uow: u}); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

type failingExec struct {
	db.DBTX
	uow *FailingExecUoW
}

func (f *failingExec) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	if !f.uow.Failed && strings.Contains(query, f.uow.Match) {
		f.uow.Failed = true
		return nil, f.uow.Err
	}
	return f.DBTX.ExecContext(ctx, query, args...)
}
