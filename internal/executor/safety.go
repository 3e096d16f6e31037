package executor

import (
	"context"
	"fmt"

	"github.com/aqasim81/schema-migrator/internal/database"
)

// setTimeouts applies the configured lock and statement timeouts to the
// current transaction. This makes a migration fail fast when it cannot get
// a lock instead of blocking other queries behind it.
func (e *Executor) setTimeouts(ctx context.Context, tx database.Tx) error {
	for _, stmt := range e.renderer.SessionTimeouts(e.lockTimeout, e.statementTimeout) {
		if _, err := tx.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("setting timeouts: %w", err)
		}
	}

	return nil
}
