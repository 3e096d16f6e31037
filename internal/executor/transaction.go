package executor

import (
	"context"
	"fmt"

	"github.com/aqasim81/schema-migrator/internal/database"
)

// execute runs stmts and then record on s. Normally everything shares one
// transaction. Statements that build an index concurrently cannot run in a
// transaction block; they autocommit one by one and record gets its own
// transaction afterwards.
func (e *Executor) execute(
	ctx context.Context, s database.Session, stmts []string, record func(q database.Querier) error,
) error {
	concurrent, err := e.detectConcurrent(stmts)
	if err != nil {
		return err
	}

	if concurrent {
		if err := execStatements(ctx, s, stmts); err != nil {
			return fmt.Errorf("executing outside transaction: %w", err)
		}

		return database.InTransaction(ctx, s, func(tx database.Tx) error { return record(tx) })
	}

	return database.InTransaction(ctx, s, func(tx database.Tx) error {
		if err := e.setTimeouts(ctx, tx); err != nil {
			return err
		}

		if err := execStatements(ctx, tx, stmts); err != nil {
			return err
		}

		return record(tx)
	})
}

// execStatements runs stmts in order and stops at the first error.
func execStatements(ctx context.Context, q database.Querier, stmts []string) error {
	for i, stmt := range stmts {
		if _, err := q.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("executing statement %d: %w", i+1, err)
		}
	}

	return nil
}
