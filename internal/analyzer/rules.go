package analyzer

import (
	"strings"

	pg_query "github.com/pganalyze/pg_query_go/v6"

	"github.com/aqasim81/schema-migrator/internal/migration"
	"github.com/aqasim81/schema-migrator/internal/operation"
)

// Rule is the interface that all danger detection rules must implement.
type Rule interface {
	// ID returns a unique kebab-case identifier for this rule.
	ID() string
	// Check examines a single operation and returns any findings.
	Check(op operation.Operation, ctx *RuleContext) []Finding
}

// RuleContext provides contextual information to rules during analysis.
type RuleContext struct {
	Migration       migration.Migration
	TargetPGVersion int
	OpIndex         int

	// SQL and Raw hold the text and parse tree of a raw SQL operation.
	// Both are empty for declarative operations.
	SQL string
	Raw []*pg_query.RawStmt

	// NewTables holds tables created earlier in the same migration,
	// keyed by QualifiedTable.
	NewTables map[string]bool
}

// IsNewTable reports whether schema.name was created earlier in the
// migration being analyzed. Nothing else can hold a lock on such a table.
func (c *RuleContext) IsNewTable(schema, name string) bool {
	return c.NewTables[QualifiedTable(schema, name)]
}

// RawSQL returns the text of the idx-th raw statement.
func (c *RuleContext) RawSQL(idx int) string {
	return ExtractStmtSQL(c.Raw, idx, c.SQL)
}

// Registry holds a collection of rules.
type Registry struct {
	rules []Rule
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register adds a rule to the registry.
func (r *Registry) Register(rule Rule) {
	r.rules = append(r.rules, rule)
}

// Rules returns all registered rules.
func (r *Registry) Rules() []Rule {
	return r.rules
}

// QualifiedTable joins an optional schema and a table name.
func QualifiedTable(schema, name string) string {
	if schema == "" {
		return name
	}

	return schema + "." + name
}

// TableName extracts a qualified table name from a RangeVar.
func TableName(rv *pg_query.RangeVar) string {
	if rv == nil {
		return "<unknown>"
	}

	return QualifiedTable(rv.Schemaname, rv.Relname)
}

// ExtractStmtSQL extracts the SQL text for a specific statement from the full SQL string.
func ExtractStmtSQL(stmts []*pg_query.RawStmt, idx int, fullSQL string) string {
	if idx < 0 || idx >= len(stmts) {
		return ""
	}

	start := int(stmts[idx].StmtLocation)

	var end int
	if idx+1 < len(stmts) {
		end = int(stmts[idx+1].StmtLocation)
	} else {
		end = len(fullSQL)
	}

	if start > len(fullSQL) || end > len(fullSQL) || start >= end {
		return ""
	}

	return strings.TrimSpace(fullSQL[start:end])
}
