// Package analyzer flags migration operations that take heavy PostgreSQL
// locks, rewrite tables or destroy data.
package analyzer

import (
	"fmt"
	"strings"

	"github.com/aqasim81/schema-migrator/internal/dialect"
	"github.com/aqasim81/schema-migrator/internal/migration"
	"github.com/aqasim81/schema-migrator/internal/operation"
	"github.com/aqasim81/schema-migrator/internal/parser"
)

// DefaultPGVersion is the PostgreSQL major version assumed when none is configured.
const DefaultPGVersion = 14

// Option configures the Analyzer.
type Option func(*Analyzer)

// Analyzer runs registered rules against the operations of migrations.
// Lock semantics are PostgreSQL's; statements are rendered with the
// Postgres dialect for display.
type Analyzer struct {
	registry  *Registry
	renderer  dialect.Renderer
	parseFn   func(string) (*parser.ParseResult, error)
	pgVersion int
}

// New creates a new Analyzer with the given options.
func New(opts ...Option) *Analyzer {
	a := &Analyzer{
		registry:  NewRegistry(),
		renderer:  dialect.NewPostgres(),
		parseFn:   parser.Parse,
		pgVersion: DefaultPGVersion,
	}

	for _, opt := range opts {
		opt(a)
	}

	return a
}

// WithRegistry sets a custom rule registry.
func WithRegistry(r *Registry) Option {
	return func(a *Analyzer) { a.registry = r }
}

// WithPGVersion sets the target PostgreSQL version. Zero keeps the default.
func WithPGVersion(v int) Option {
	return func(a *Analyzer) {
		if v > 0 {
			a.pgVersion = v
		}
	}
}

// WithParser overrides the SQL parser used for raw SQL operations.
func WithParser(fn func(string) (*parser.ParseResult, error)) Option {
	return func(a *Analyzer) { a.parseFn = fn }
}

// Analyze builds a migration's forward operations and analyzes each one.
func (a *Analyzer) Analyze(m migration.Migration) (*AnalysisResult, error) {
	key := migration.Key(m)

	ops, err := m.Up()
	if err != nil {
		return nil, fmt.Errorf("building migration %s: %w", key, err)
	}

	var findings []Finding

	maxSeverity := Safe
	created := make(map[string]bool)

	for i, op := range ops {
		stmts, err := a.renderer.Render(op)
		if err != nil {
			return nil, fmt.Errorf("rendering migration %s: %w", key, err)
		}

		ctx := &RuleContext{
			Migration:       m,
			TargetPGVersion: a.pgVersion,
			OpIndex:         i,
			NewTables:       created,
		}

		if raw, ok := op.(operation.ExecuteSQL); ok {
			result, err := a.parseFn(raw.SQL)
			if err != nil {
				return nil, fmt.Errorf("parsing migration %s: %w", key, err)
			}

			ctx.SQL = strings.TrimSpace(raw.SQL)
			ctx.Raw = result.Stmts
		}

		statement := TruncateSQL(strings.Join(stmts, "; "), maxStatementLen)

		for _, rule := range a.registry.Rules() {
			fs := rule.Check(op, ctx)
			for j := range fs {
				fs[j].OpIndex = i

				if fs[j].Statement == "" {
					fs[j].Statement = statement
				} else {
					fs[j].Statement = TruncateSQL(fs[j].Statement, maxStatementLen)
				}

				if fs[j].Severity > maxSeverity {
					maxSeverity = fs[j].Severity
				}
			}

			findings = append(findings, fs...)
		}

		if ct, ok := op.(operation.CreateTable); ok {
			created[QualifiedTable(ct.Schema, ct.Name)] = true
		}
	}

	return &AnalysisResult{
		Migration:   m,
		Findings:    findings,
		MaxSeverity: maxSeverity,
	}, nil
}

// AnalyzeAll analyzes multiple migrations and returns results for each.
func (a *Analyzer) AnalyzeAll(migrations []migration.Migration) ([]AnalysisResult, error) {
	results := make([]AnalysisResult, 0, len(migrations))

	for _, m := range migrations {
		r, err := a.Analyze(m)
		if err != nil {
			return nil, err
		}

		results = append(results, *r)
	}

	return results, nil
}
