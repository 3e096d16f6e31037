// Package dialect renders operations into SQL statements for a concrete
// database engine.
package dialect

import (
	"fmt"
	"strings"
	"time"

	"github.com/aqasim81/schema-migrator/internal/operation"
)

// Dialect names accepted by New.
const (
	Postgres = "postgres"
	MySQL    = "mysql"
	SQLite   = "sqlite"
)

// LockName identifies the migration lock on engines with named locks.
const LockName = "schema_migrator"

// LockID is the Postgres advisory lock key.
const LockID int64 = 723_948_112

// Descriptor describes a dialect's syntax and type mapping.
type Descriptor struct {
	Name        string
	Quote       string
	Placeholder func(n int) string
	Types       map[operation.TypeName]string
}

// Ident quotes a single identifier. Embedded quote characters are doubled.
func (d Descriptor) Ident(name string) string {
	return d.Quote + strings.ReplaceAll(name, d.Quote, d.Quote+d.Quote) + d.Quote
}

// Qualified quotes schema.name, leaving out an empty schema.
func (d Descriptor) Qualified(schema, name string) string {
	if schema == "" {
		return d.Ident(name)
	}

	return d.Ident(schema) + "." + d.Ident(name)
}

// QualifiedName quotes a dotted name part by part, e.g. "audit.history".
func (d Descriptor) QualifiedName(dotted string) string {
	parts := strings.Split(dotted, ".")
	for i, p := range parts {
		parts[i] = d.Ident(p)
	}

	return strings.Join(parts, ".")
}

// List quotes and joins identifiers.
func (d Descriptor) List(names []string) string {
	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = d.Ident(n)
	}

	return strings.Join(quoted, ", ")
}

// Placeholders returns n placeholders joined by commas.
func (d Descriptor) Placeholders(n int) string {
	ps := make([]string, n)
	for i := range ps {
		ps[i] = d.Placeholder(i + 1)
	}

	return strings.Join(ps, ", ")
}

// Renderer turns operations into ordered SQL statements for one dialect.
type Renderer interface {
	Descriptor() Descriptor

	// Render returns the statements for op. An operation the dialect
	// cannot express fails with ErrUnsupportedOperation and no SQL.
	Render(op operation.Operation) ([]string, error)

	// HistoryTableDDL returns idempotent statements creating the ledger table.
	HistoryTableDDL(table string) []string

	// LockSQL returns statements taking and releasing a session-level
	// migration lock. The acquire statement yields one boolean row.
	// ok is false when the dialect has no such lock.
	LockSQL() (acquire, release string, ok bool)

	// SessionTimeouts returns statements bounding lock waits and statement
	// run time inside the current transaction. Zero durations are skipped.
	SessionTimeouts(lock, statement time.Duration) []string
}

// New returns the renderer registered under name.
func New(name string) (Renderer, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "postgres", "postgresql", "pgx":
		return NewPostgres(), nil
	case "mysql":
		return NewMySQL(), nil
	case "sqlite", "sqlite3":
		return NewSQLite(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedDialect, name)
	}
}

// RenderAll renders ops in order and concatenates their statements.
func RenderAll(r Renderer, ops []operation.Operation) ([]string, error) {
	var out []string

	for i, op := range ops {
		stmts, err := r.Render(op)
		if err != nil {
			return nil, fmt.Errorf("rendering operation %d (%s): %w", i+1, kindOf(op), err)
		}

		out = append(out, stmts...)
	}

	return out, nil
}

func kindOf(op operation.Operation) operation.Kind {
	if op == nil {
		return "nil"
	}

	return op.Kind()
}
