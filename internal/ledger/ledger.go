// Package ledger persists migration outcomes in the history table.
//
// Every operation takes an explicit database.Querier so callers can run it
// on a session or inside the transaction that applies a migration. The
// ledger does not lock; see the executor for the optional advisory lock.
package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/aqasim81/schema-migrator/internal/database"
	"github.com/aqasim81/schema-migrator/internal/dialect"
)

// DefaultTable is the history table name used unless WithTable overrides it.
const DefaultTable = "schema_history"

var recordColumns = []string{
	"id", "version", "timestamp", "description", "checksum", "executed_at",
	"execution_time_ms", "status", "error_message", "applied_by", "class_name",
}

// Ledger reads and writes the history table for one dialect.
type Ledger struct {
	renderer dialect.Renderer
	desc     dialect.Descriptor
	table    string
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithTable sets the history table name. A dotted name is schema-qualified.
func WithTable(name string) Option {
	return func(l *Ledger) {
		if name != "" {
			l.table = name
		}
	}
}

// New creates a Ledger rendering its SQL for r.
func New(r dialect.Renderer, opts ...Option) *Ledger {
	l := &Ledger{renderer: r, desc: r.Descriptor(), table: DefaultTable}

	for _, opt := range opts {
		opt(l)
	}

	return l
}

// Table returns the unquoted history table name.
func (l *Ledger) Table() string { return l.table }

// EnsureTable creates the history table if it does not exist.
func (l *Ledger) EnsureTable(ctx context.Context, q database.Querier) error {
	for _, stmt := range l.renderer.HistoryTableDDL(l.table) {
		if _, err := q.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("%w %s: %w", ErrTableCreation, l.table, err)
		}
	}

	return nil
}

// FindAll returns every record ordered by version ascending.
func (l *Ledger) FindAll(ctx context.Context, q database.Querier) ([]Record, error) {
	records, err := l.query(ctx, q, l.selectSQL()+" ORDER BY "+l.desc.Ident("version"))
	if err != nil {
		return nil, fmt.Errorf("querying history: %w", err)
	}

	return records, nil
}

// FindByVersion returns the record for version, or ErrRecordNotFound.
func (l *Ledger) FindByVersion(ctx context.Context, q database.Querier, version int64) (Record, error) {
	rec, err := l.scanRecord(q.QueryRow(ctx,
		l.selectSQL()+" WHERE "+l.desc.Ident("version")+" = "+l.desc.Placeholder(1),
		version,
	))
	if err != nil {
		if errors.Is(err, database.ErrNoRows) {
			return Record{}, fmt.Errorf("migration %d: %w", version, ErrRecordNotFound)
		}

		return Record{}, fmt.Errorf("finding migration %d: %w", version, err)
	}

	return rec, nil
}

// IsApplied reports whether a SUCCESS record exists for version.
func (l *Ledger) IsApplied(ctx context.Context, q database.Querier, version int64) (bool, error) {
	var count int64

	err := q.QueryRow(ctx,
		fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE %s = %s AND %s = %s",
			l.tableName(),
			l.desc.Ident("version"), l.desc.Placeholder(1),
			l.desc.Ident("status"), l.desc.Placeholder(2),
		),
		version, string(StatusSuccess),
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("checking if migration %d is applied: %w", version, err)
	}

	return count > 0, nil
}

// Save writes rec and returns its id. A prior row for the same version,
// left behind by a failure or a rollback, is updated in place.
func (l *Ledger) Save(ctx context.Context, q database.Querier, rec Record) (int64, error) {
	id, err := l.idOf(ctx, q, rec.Version)

	switch {
	case err == nil:
		if err := l.update(ctx, q, id, rec); err != nil {
			return 0, err
		}

		return id, nil
	case errors.Is(err, database.ErrNoRows):
	default:
		return 0, fmt.Errorf("saving migration %d: %w", rec.Version, err)
	}

	if err := l.insert(ctx, q, rec); err != nil {
		return 0, err
	}

	id, err = l.idOf(ctx, q, rec.Version)
	if err != nil {
		return 0, fmt.Errorf("reading id of migration %d: %w", rec.Version, err)
	}

	return id, nil
}

// GetLatest returns the highest-version SUCCESS record, or ErrRecordNotFound.
func (l *Ledger) GetLatest(ctx context.Context, q database.Querier) (Record, error) {
	applied, err := l.FindApplied(ctx, q, 1)
	if err != nil {
		return Record{}, err
	}

	if len(applied) == 0 {
		return Record{}, ErrRecordNotFound
	}

	return applied[0], nil
}

// ValidateChecksum reports false only when a record exists for version and
// its stored checksum differs from expected.
func (l *Ledger) ValidateChecksum(ctx context.Context, q database.Querier, version int64, expected string) (bool, error) {
	var stored string

	err := q.QueryRow(ctx,
		fmt.Sprintf("SELECT %s FROM %s WHERE %s = %s",
			l.desc.Ident("checksum"), l.tableName(), l.desc.Ident("version"), l.desc.Placeholder(1)),
		version,
	).Scan(&stored)
	if err != nil {
		if errors.Is(err, database.ErrNoRows) {
			return true, nil
		}

		return false, fmt.Errorf("getting checksum for migration %d: %w", version, err)
	}

	return stored == expected, nil
}

// MarkRolledBack sets the status of version's record to ROLLED_BACK.
func (l *Ledger) MarkRolledBack(ctx context.Context, q database.Querier, version int64) error {
	n, err := q.Exec(ctx,
		fmt.Sprintf("UPDATE %s SET %s = %s WHERE %s = %s",
			l.tableName(),
			l.desc.Ident("status"), l.desc.Placeholder(1),
			l.desc.Ident("version"), l.desc.Placeholder(2),
		),
		string(StatusRolledBack), version,
	)
	if err != nil {
		return fmt.Errorf("recording migration %d as rolled back: %w", version, err)
	}

	if n == 0 {
		return fmt.Errorf("migration %d: %w", version, ErrRecordNotFound)
	}

	return nil
}

// FindApplied returns up to limit SUCCESS records, highest version first.
// A limit of zero or less returns all of them.
func (l *Ledger) FindApplied(ctx context.Context, q database.Querier, limit int) ([]Record, error) {
	query := fmt.Sprintf("%s WHERE %s = %s ORDER BY %s DESC",
		l.selectSQL(), l.desc.Ident("status"), l.desc.Placeholder(1), l.desc.Ident("version"))
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	records, err := l.query(ctx, q, query, string(StatusSuccess))
	if err != nil {
		return nil, fmt.Errorf("querying applied migrations: %w", err)
	}

	return records, nil
}

func (l *Ledger) tableName() string {
	return l.desc.QualifiedName(l.table)
}

func (l *Ledger) selectSQL() string {
	return fmt.Sprintf("SELECT %s FROM %s", l.desc.List(recordColumns), l.tableName())
}

func (l *Ledger) idOf(ctx context.Context, q database.Querier, version int64) (int64, error) {
	var id int64

	err := q.QueryRow(ctx,
		fmt.Sprintf("SELECT %s FROM %s WHERE %s = %s",
			l.desc.Ident("id"), l.tableName(), l.desc.Ident("version"), l.desc.Placeholder(1)),
		version,
	).Scan(&id)

	return id, err
}

// writeValues returns the values for every column except id, in
// recordColumns order.
func writeValues(rec Record) []any {
	return []any{
		rec.Version, rec.Timestamp, rec.Description, rec.Checksum, rec.ExecutedAt.UTC(),
		rec.ExecutionTimeMs, string(rec.Status), rec.ErrorMessage, rec.AppliedBy, rec.ClassName,
	}
}

func (l *Ledger) insert(ctx context.Context, q database.Querier, rec Record) error {
	cols := recordColumns[1:]

	_, err := q.Exec(ctx,
		fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
			l.tableName(), l.desc.List(cols), l.desc.Placeholders(len(cols))),
		writeValues(rec)...,
	)
	if err != nil {
		return fmt.Errorf("recording migration %d as %s: %w", rec.Version, rec.Status, err)
	}

	return nil
}

func (l *Ledger) update(ctx context.Context, q database.Querier, id int64, rec Record) error {
	cols := recordColumns[1:]
	sets := make([]string, len(cols))

	for i, c := range cols {
		sets[i] = l.desc.Ident(c) + " = " + l.desc.Placeholder(i+1)
	}

	args := append(writeValues(rec), id)

	_, err := q.Exec(ctx,
		fmt.Sprintf("UPDATE %s SET %s WHERE %s = %s",
			l.tableName(), strings.Join(sets, ", "), l.desc.Ident("id"), l.desc.Placeholder(len(cols)+1)),
		args...,
	)
	if err != nil {
		return fmt.Errorf("recording migration %d as %s: %w", rec.Version, rec.Status, err)
	}

	return nil
}

func (l *Ledger) query(ctx context.Context, q database.Querier, query string, args ...any) ([]Record, error) {
	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []Record

	for rows.Next() {
		rec, err := l.scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning history row: %w", err)
		}

		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return records, nil
}

func (l *Ledger) scanRecord(row database.Row) (Record, error) {
	var (
		rec          Record
		status       string
		errorMessage sql.NullString
		className    sql.NullString
	)

	err := row.Scan(
		&rec.ID, &rec.Version, &rec.Timestamp, &rec.Description, &rec.Checksum,
		&timestamp{t: &rec.ExecutedAt}, &rec.ExecutionTimeMs, &status, &errorMessage,
		&rec.AppliedBy, &className,
	)
	if err != nil {
		return Record{}, err
	}

	rec.Status = Status(status)

	if errorMessage.Valid {
		rec.ErrorMessage = &errorMessage.String
	}

	if className.Valid {
		rec.ClassName = &className.String
	}

	return rec, nil
}
