// Package database abstracts the connection used by the ledger and the
// executor. Adapters exist for pgx pools and database/sql handles.
package database

import "context"

// Querier runs statements on a session or inside a transaction.
type Querier interface {
	// Exec runs a statement and returns the number of affected rows.
	Exec(ctx context.Context, sql string, args ...any) (int64, error)
	Query(ctx context.Context, sql string, args ...any) (Rows, error)
	// QueryRow runs a query expected to return at most one row. Scan
	// fails with ErrNoRows when there is none.
	QueryRow(ctx context.Context, sql string, args ...any) Row
}

// Rows iterates a query result.
type Rows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
	Close()
}

// Row is a single-row query result.
type Row interface {
	Scan(dest ...any) error
}

// Tx is a database transaction.
type Tx interface {
	Querier
	Commit(ctx context.Context) error
	// Rollback is a no-op after Commit.
	Rollback(ctx context.Context) error
}

// Session is one dedicated connection. Session-level state such as
// advisory locks lives as long as the session.
type Session interface {
	Querier
	Begin(ctx context.Context) (Tx, error)
	Release()
}

// DB hands out sessions.
type DB interface {
	Acquire(ctx context.Context) (Session, error)
	Close()
}

// InTransaction runs fn inside a transaction on s. On success the
// transaction is committed; on error it is rolled back.
func InTransaction(ctx context.Context, s Session, fn func(tx Tx) error) error {
	tx, err := s.Begin(ctx)
	if err != nil {
		return wrapf(err, "beginning transaction")
	}

	defer tx.Rollback(ctx) //nolint:errcheck // rollback after commit is a no-op

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return wrapf(err, "committing transaction")
	}

	return nil
}
