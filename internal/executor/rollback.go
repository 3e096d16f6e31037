package executor

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/aqasim81/schema-migrator/internal/database"
	"github.com/aqasim81/schema-migrator/internal/dialect"
	"github.com/aqasim81/schema-migrator/internal/ledger"
	"github.com/aqasim81/schema-migrator/internal/migration"
)

// Rollback reverses up to steps of the most recently applied migrations,
// highest version first. Each runs its down operations in its own
// transaction and is marked ROLLED_BACK. The first execution failure is
// listed in Result.Failed and stops the run with a nil error. A version
// missing from the registry, or a migration without down operations, stops
// the run with an error before anything else executes.
func (e *Executor) Rollback(ctx context.Context, steps int) (*Result, error) {
	if steps <= 0 {
		return &Result{RunID: uuid.NewString()}, fmt.Errorf("%w: %d", ErrInvalidSteps, steps)
	}

	return e.rollback(ctx, func(ctx context.Context, q database.Querier) ([]ledger.Record, error) {
		return e.history.FindApplied(ctx, q, steps)
	})
}

// RollbackTo reverses every applied migration with a version above target,
// highest version first, with the same failure handling as Rollback.
func (e *Executor) RollbackTo(ctx context.Context, target int64) (*Result, error) {
	return e.rollback(ctx, func(ctx context.Context, q database.Querier) ([]ledger.Record, error) {
		applied, err := e.history.FindApplied(ctx, q, 0)
		if err != nil {
			return nil, err
		}

		var above []ledger.Record

		for _, rec := range applied {
			if rec.Version > target {
				above = append(above, rec)
			}
		}

		return above, nil
	})
}

type recordSelector func(ctx context.Context, q database.Querier) ([]ledger.Record, error)

func (e *Executor) rollback(ctx context.Context, selectRecords recordSelector) (*Result, error) {
	result := &Result{RunID: uuid.NewString()}
	log := e.logger.With("run_id", result.RunID, "direction", DirectionDown)

	if e.registry == nil {
		return result, ErrNoRegistry
	}

	s, closeSession, err := e.openSession(ctx, true)
	if err != nil {
		return result, err
	}
	defer closeSession()

	records, err := selectRecords(ctx, s)
	if err != nil {
		return result, fmt.Errorf("selecting migrations to roll back: %w", err)
	}

	log.Info("rollback started", "migrations", len(records), "dry_run", e.dryRun)

	for _, rec := range records {
		m, err := e.registry.Resolve(rec.Version)
		if err != nil {
			err = fmt.Errorf("rolling back migration %d (%s): %w", rec.Version, rec.Description, err)
			log.Error("rollback halted", "error", err)

			return result, err
		}

		mlog := log.With("version", m.Version(), "description", m.Description())

		outcome, err := e.rollbackOne(ctx, s, m, mlog)
		if err != nil {
			mlog.Error("rollback halted", "error", err)

			return result, err
		}

		switch {
		case outcome.Err != nil:
			result.Failed = append(result.Failed, outcome)
		case e.dryRun:
			result.Skipped = append(result.Skipped, outcome)
		default:
			result.Executed = append(result.Executed, outcome)
		}

		if outcome.Err != nil {
			break
		}
	}

	log.Info("rollback finished", "rolled_back", len(result.Executed), "failed", len(result.Failed))

	return result, nil
}

func (e *Executor) rollbackOne(
	ctx context.Context, s database.Session, m migration.Migration, log *slog.Logger,
) (Outcome, error) {
	outcome := Outcome{Version: m.Version(), Description: m.Description()}

	ops, err := m.Down()
	if err != nil {
		return outcome, fmt.Errorf("rolling back migration %d (%s): %w", m.Version(), m.Description(), err)
	}

	stmts, renderErr := dialect.RenderAll(e.renderer, ops)
	outcome.Statements = stmts

	if renderErr == nil && e.dryRun {
		log.Info("dry run: migration would be rolled back", "statements", len(stmts))
		e.fireProgress(ProgressEvent{Migration: m, Direction: DirectionDown, Status: StatusSkipped})

		return outcome, nil
	}

	start := time.Now()

	execErr := renderErr
	if execErr == nil {
		log.Info("rolling back migration", "statements", len(stmts))
		e.fireProgress(ProgressEvent{Migration: m, Direction: DirectionDown, Status: StatusStarting})

		execErr = e.execute(ctx, s, stmts, func(q database.Querier) error {
			return e.history.MarkRolledBack(ctx, q, m.Version())
		})
	}

	outcome.Duration = time.Since(start)

	if execErr != nil {
		outcome.Err = &MigrationError{Version: m.Version(), Description: m.Description(), Err: execErr}
		log.Error("rollback failed", "error", execErr)
		e.fireProgress(ProgressEvent{
			Migration: m, Direction: DirectionDown, Status: StatusFailed, Duration: outcome.Duration, Error: outcome.Err,
		})

		return outcome, nil
	}

	log.Info("migration rolled back", "duration_ms", outcome.Duration.Milliseconds())
	e.fireProgress(ProgressEvent{
		Migration: m, Direction: DirectionDown, Status: StatusCompleted, Duration: outcome.Duration,
	})

	return outcome, nil
}
