package executor

import (
	"github.com/aqasim81/schema-migrator/internal/dialect"
	"github.com/aqasim81/schema-migrator/internal/parser"
)

// concurrentIndexDetector returns the check deciding whether a migration's
// statements must run outside a transaction. Only Postgres builds indexes
// concurrently.
func (e *Executor) concurrentIndexDetector() func([]string) (bool, error) {
	if e.renderer == nil || e.renderer.Descriptor().Name != dialect.Postgres {
		return func([]string) (bool, error) { return false, nil }
	}

	return containsConcurrentIndex
}

// containsConcurrentIndex reports whether any statement is a
// CREATE INDEX CONCURRENTLY.
func containsConcurrentIndex(stmts []string) (bool, error) {
	for _, stmt := range stmts {
		concurrent, err := parser.ContainsConcurrentIndex(stmt)
		if err != nil {
			return false, err
		}

		if concurrent {
			return true, nil
		}
	}

	return false, nil
}
