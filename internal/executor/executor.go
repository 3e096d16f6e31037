// Package executor applies, rolls back, and reports on migrations against
// a database and its history table.
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

// DefaultAppliedBy is stored in the applied_by column unless WithAppliedBy
// overrides it.
const DefaultAppliedBy = "schema-migrator"

// Progress status constants reported via ProgressEvent.
const (
	StatusStarting  = "starting"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
	StatusSkipped   = "skipped"
)

// Direction of a progress event.
const (
	DirectionUp   = "up"
	DirectionDown = "down"
)

// ProgressEvent is emitted by the executor for each migration processed.
type ProgressEvent struct {
	Migration migration.Migration
	Direction string
	Status    string
	Duration  time.Duration
	Error     error
}

// History abstracts the history table for testability.
type History interface {
	EnsureTable(ctx context.Context, q database.Querier) error
	FindAll(ctx context.Context, q database.Querier) ([]ledger.Record, error)
	IsApplied(ctx context.Context, q database.Querier, version int64) (bool, error)
	ValidateChecksum(ctx context.Context, q database.Querier, version int64, expected string) (bool, error)
	Save(ctx context.Context, q database.Querier, rec ledger.Record) (int64, error)
	MarkRolledBack(ctx context.Context, q database.Querier, version int64) error
	FindApplied(ctx context.Context, q database.Querier, limit int) ([]ledger.Record, error)
}

// lockReleaser is returned by lockFunc and must be released when done.
type lockReleaser interface {
	Release(ctx context.Context) error
}

// lockFunc takes the migration lock on the run's session.
type lockFunc func(ctx context.Context, s database.Session) (lockReleaser, error)

// Executor applies pending migrations with transaction safety, timeouts,
// and an optional advisory lock to prevent concurrent runs.
type Executor struct {
	db               database.DB
	renderer         dialect.Renderer
	history          History
	registry         *migration.Registry
	logger           *slog.Logger
	appliedBy        string
	lockTimeout      time.Duration
	statementTimeout time.Duration
	dryRun           bool
	advisoryLock     bool
	onProgress       func(ProgressEvent)
	afterMigrate     func(ctx context.Context, r *Result) error
	acquireLock      lockFunc
	detectConcurrent func(stmts []string) (bool, error)
}

// Option configures an Executor.
type Option func(*Executor)

// WithLogger sets the structured logger. The default discards everything.
func WithLogger(l *slog.Logger) Option {
	return func(e *Executor) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithProgressCallback sets a function called for each migration processed.
func WithProgressCallback(fn func(ProgressEvent)) Option {
	return func(e *Executor) { e.onProgress = fn }
}

// WithRegistry sets the registry Rollback resolves units from.
func WithRegistry(r *migration.Registry) Option {
	return func(e *Executor) { e.registry = r }
}

// WithDryRun enables dry-run mode: statements are rendered and reported
// but nothing is executed or recorded.
func WithDryRun(b bool) Option {
	return func(e *Executor) { e.dryRun = b }
}

// WithAppliedBy sets the value stored in the applied_by column.
func WithAppliedBy(name string) Option {
	return func(e *Executor) {
		if name != "" {
			e.appliedBy = name
		}
	}
}

// WithLockTimeout bounds lock waits inside each migration transaction.
func WithLockTimeout(d time.Duration) Option {
	return func(e *Executor) { e.lockTimeout = d }
}

// WithStatementTimeout bounds statement run time inside each migration transaction.
func WithStatementTimeout(d time.Duration) Option {
	return func(e *Executor) { e.statementTimeout = d }
}

// WithAdvisoryLock holds a session-level advisory lock for the duration of
// Migrate and Rollback on dialects that provide one.
func WithAdvisoryLock(b bool) Option {
	return func(e *Executor) { e.advisoryLock = b }
}

// WithAfterMigrate registers a callback run after a Migrate call that
// executed at least one migration and had no failures. Its error is
// logged and does not change the result.
func WithAfterMigrate(fn func(ctx context.Context, r *Result) error) Option {
	return func(e *Executor) { e.afterMigrate = fn }
}

// New creates an Executor over db, rendering with r and recording in h.
func New(db database.DB, r dialect.Renderer, h History, opts ...Option) *Executor {
	e := &Executor{
		db:        db,
		renderer:  r,
		history:   h,
		logger:    slog.New(slog.DiscardHandler),
		appliedBy: DefaultAppliedBy,
	}

	for _, opt := range opts {
		opt(e)
	}

	// Set defaults for injectable functions after options are applied,
	// so tests can override them via options.
	if e.acquireLock == nil {
		e.acquireLock = e.lockSession
	}

	if e.detectConcurrent == nil {
		e.detectConcurrent = e.concurrentIndexDetector()
	}

	return e
}

// Migrate applies every pending unit in ascending version order. Applied
// units are skipped after their checksum is verified; a mismatch stops the
// run before anything else executes and returns an error wrapping
// ErrChecksumMismatch. An execution failure rolls back that migration,
// records it as FAILED, lists it in Result.Failed and stops the run with a
// nil error. If the FAILED record cannot be written either, the returned
// *MigrationError carries both errors.
func (e *Executor) Migrate(ctx context.Context, units []migration.Migration) (*Result, error) {
	result := &Result{RunID: uuid.NewString()}
	log := e.logger.With("run_id", result.RunID, "direction", DirectionUp)

	if err := migration.Validate(units); err != nil {
		return result, fmt.Errorf("validating migrations: %w", err)
	}

	s, closeSession, err := e.openSession(ctx, true)
	if err != nil {
		return result, err
	}
	defer closeSession()

	sorted := migration.Sort(units)
	log.Info("migration run started", "units", len(sorted), "dry_run", e.dryRun)

	applied, err := e.verifyApplied(ctx, s, sorted)
	if err != nil {
		log.Error("migration run halted", "error", err)

		return result, err
	}

	for _, m := range sorted {
		mlog := log.With("version", m.Version(), "description", m.Description())

		if applied[m.Version()] {
			mlog.Debug("migration already applied")
			result.Skipped = append(result.Skipped, Outcome{Version: m.Version(), Description: m.Description()})
			e.fireProgress(ProgressEvent{Migration: m, Direction: DirectionUp, Status: StatusSkipped})

			continue
		}

		outcome, err := e.applyOne(ctx, s, m, mlog)
		if err != nil && outcome.Err == nil {
			mlog.Error("migration run halted", "error", err)

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

		if err != nil {
			return result, err
		}

		if outcome.Err != nil {
			break
		}
	}

	log.Info("migration run finished",
		"executed", len(result.Executed), "failed", len(result.Failed), "skipped", len(result.Skipped))

	e.runAfterMigrate(ctx, result, log)

	return result, nil
}

// verifyApplied checks the checksum of every applied unit before anything
// runs and returns the applied versions.
func (e *Executor) verifyApplied(
	ctx context.Context, q database.Querier, sorted []migration.Migration,
) (map[int64]bool, error) {
	applied := make(map[int64]bool)

	for _, m := range sorted {
		skip, err := e.shouldSkip(ctx, q, m)
		if err != nil {
			return nil, err
		}

		if skip {
			applied[m.Version()] = true
		}
	}

	return applied, nil
}

// shouldSkip returns true if the migration is already applied.
// Verifies the checksum of applied migrations to catch later edits.
func (e *Executor) shouldSkip(ctx context.Context, q database.Querier, m migration.Migration) (bool, error) {
	applied, err := e.history.IsApplied(ctx, q, m.Version())
	if err != nil {
		return false, fmt.Errorf("checking migration %d: %w", m.Version(), err)
	}

	if !applied {
		return false, nil
	}

	checksum, err := migration.Checksum(m)
	if err != nil {
		return false, fmt.Errorf("computing checksum for migration %d: %w", m.Version(), err)
	}

	ok, err := e.history.ValidateChecksum(ctx, q, m.Version(), checksum)
	if err != nil {
		return false, fmt.Errorf("getting checksum for migration %d: %w", m.Version(), err)
	}

	if !ok {
		return false, fmt.Errorf("migration %d (%s): %w: computed=%s",
			m.Version(), m.Description(), ErrChecksumMismatch, checksum)
	}

	return true, nil
}

// applyOne builds, renders and executes one pending migration. The returned
// error is non-nil only when the run must stop with an error: a
// declaration error, or a failure that could not be recorded.
func (e *Executor) applyOne(
	ctx context.Context, s database.Session, m migration.Migration, log *slog.Logger,
) (Outcome, error) {
	outcome := Outcome{Version: m.Version(), Description: m.Description()}

	ops, err := m.Up()
	if err != nil {
		return outcome, fmt.Errorf("building migration %d (%s): %w", m.Version(), m.Description(), err)
	}

	checksum, err := migration.Checksum(m)
	if err != nil {
		return outcome, fmt.Errorf("computing checksum for migration %d: %w", m.Version(), err)
	}

	stmts, renderErr := dialect.RenderAll(e.renderer, ops)
	outcome.Statements = stmts

	if e.dryRun {
		if renderErr != nil {
			outcome.Err = &MigrationError{Version: m.Version(), Description: m.Description(), Err: renderErr}
			e.fireProgress(ProgressEvent{Migration: m, Direction: DirectionUp, Status: StatusFailed, Error: outcome.Err})

			return outcome, nil
		}

		log.Info("dry run: migration pending", "statements", len(stmts))
		e.fireProgress(ProgressEvent{Migration: m, Direction: DirectionUp, Status: StatusSkipped})

		return outcome, nil
	}

	log.Info("applying migration", "statements", len(stmts))
	e.fireProgress(ProgressEvent{Migration: m, Direction: DirectionUp, Status: StatusStarting})

	start := time.Now()

	execErr := renderErr
	if execErr == nil {
		execErr = e.execute(ctx, s, stmts, func(q database.Querier) error {
			_, err := e.history.Save(ctx, q, e.record(m, checksum, ledger.StatusSuccess, time.Since(start), nil))

			return err
		})
	}

	outcome.Duration = time.Since(start)

	if execErr == nil {
		log.Info("migration applied", "duration_ms", outcome.Duration.Milliseconds())
		e.fireProgress(ProgressEvent{
			Migration: m, Direction: DirectionUp, Status: StatusCompleted, Duration: outcome.Duration,
		})

		return outcome, nil
	}

	migErr := &MigrationError{Version: m.Version(), Description: m.Description(), Err: execErr}
	outcome.Err = migErr

	log.Error("migration failed", "error", execErr, "duration_ms", outcome.Duration.Milliseconds())

	// The FAILED record is written even when ctx was cancelled mid-migration.
	recordCtx := context.WithoutCancel(ctx)
	msg := execErr.Error()

	saveErr := database.InTransaction(recordCtx, s, func(tx database.Tx) error {
		_, err := e.history.Save(recordCtx, tx, e.record(m, checksum, ledger.StatusFailed, outcome.Duration, &msg))

		return err
	})

	e.fireProgress(ProgressEvent{
		Migration: m, Direction: DirectionUp, Status: StatusFailed, Duration: outcome.Duration, Error: migErr,
	})

	if saveErr != nil {
		migErr.Suppressed = saveErr
		log.Error("recording failed migration", "error", saveErr)

		return outcome, migErr
	}

	return outcome, nil
}

func (e *Executor) record(
	m migration.Migration, checksum string, status ledger.Status, d time.Duration, errMsg *string,
) ledger.Record {
	key := migration.Key(m)

	return ledger.Record{
		Version:         m.Version(),
		Timestamp:       m.Timestamp(),
		Description:     m.Description(),
		Checksum:        checksum,
		ExecutedAt:      time.Now().UTC(),
		ExecutionTimeMs: d.Milliseconds(),
		Status:          status,
		ErrorMessage:    errMsg,
		AppliedBy:       e.appliedBy,
		ClassName:       &key,
	}
}

// openSession acquires the connection used for a whole call, takes the
// advisory lock when lock is set and enabled, and ensures the history
// table exists. The returned func releases both.
func (e *Executor) openSession(ctx context.Context, lock bool) (database.Session, func(), error) {
	s, err := e.db.Acquire(ctx)
	if err != nil {
		return nil, nil, err
	}

	var held lockReleaser

	if lock && e.advisoryLock {
		held, err = e.acquireLock(ctx, s)
		if err != nil {
			s.Release()

			return nil, nil, fmt.Errorf("acquiring migration lock: %w", err)
		}
	}

	closeSession := func() {
		if held != nil {
			if err := held.Release(context.WithoutCancel(ctx)); err != nil {
				e.logger.Warn("releasing migration lock", "error", err)
			}
		}

		s.Release()
	}

	if err := e.history.EnsureTable(ctx, s); err != nil {
		closeSession()

		return nil, nil, err
	}

	return s, closeSession, nil
}

func (e *Executor) lockSession(ctx context.Context, s database.Session) (lockReleaser, error) {
	acquire, release, ok := e.renderer.LockSQL()
	if !ok {
		e.logger.Warn("advisory lock requested but not supported", "dialect", e.renderer.Descriptor().Name)

		return noLock{}, nil
	}

	return database.TryAcquireLock(ctx, s, acquire, release)
}

type noLock struct{}

func (noLock) Release(context.Context) error { return nil }

func (e *Executor) runAfterMigrate(ctx context.Context, r *Result, log *slog.Logger) {
	if e.afterMigrate == nil || e.dryRun || r.HasFailures() || len(r.Executed) == 0 {
		return
	}

	if err := e.afterMigrate(ctx, r); err != nil {
		log.Warn("after-migrate callback failed", "error", err)
	}
}

func (e *Executor) fireProgress(event ProgressEvent) {
	if e.onProgress != nil {
		e.onProgress(event)
	}
}
