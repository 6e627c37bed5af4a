package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"admissionscheduling/internal/domain"
)

// executor abstracts *sql.DB and *sql.Tx so repositories can run either
// standalone or inside a transaction started by the TxManager.
type executor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type txKey struct{}

// exec returns the transaction carried by the context, or the plain DB
// handle. Repositories resolve their executor through this on every call.
func exec(ctx context.Context, db *sql.DB) executor {
	if tx, ok := ctx.Value(txKey{}).(*sql.Tx); ok {
		return tx
	}
	return db
}

// TxManager implements domain.TxManager on database/sql. The open
// transaction travels in the context so repositories participate without
// knowing about it.
type TxManager struct {
	DB *sql.DB
}

func NewTxManager(db *sql.DB) *TxManager {
	return &TxManager{DB: db}
}

// WithinTx begins a transaction, runs fn with the transaction in the
// context, and commits if fn returns nil. Any error (or panic) rolls the
// whole unit back. Nested calls join the outer transaction.
func (m *TxManager) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(*sql.Tx); ok {
		return fn(ctx)
	}
	tx, err := m.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()
	if err := fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

var _ domain.TxManager = (*TxManager)(nil)
