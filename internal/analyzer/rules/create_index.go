package rules

import (
	pg_query "github.com/pganalyze/pg_query_go/v6"

	"github.com/aqasim81/schema-migrator/internal/analyzer"
	"github.com/aqasim81/schema-migrator/internal/operation"
)

// CreateIndexRule detects indexes built without CONCURRENTLY on existing tables.
type CreateIndexRule struct{}

// NewCreateIndexRule creates a new CreateIndexRule.
func NewCreateIndexRule() *CreateIndexRule { return &CreateIndexRule{} }

// ID returns the rule identifier.
func (r *CreateIndexRule) ID() string { return "create-index-not-concurrent" }

// Check examines an operation for a non-concurrent index build.
func (r *CreateIndexRule) Check(op operation.Operation, ctx *analyzer.RuleContext) []analyzer.Finding {
	switch o := op.(type) {
	case operation.CreateIndex:
		if o.Index.Concurrently || ctx.IsNewTable(o.Schema, o.Table) {
			return nil
		}

		return []analyzer.Finding{r.finding(analyzer.QualifiedTable(o.Schema, o.Table), "")}
	case operation.ExecuteSQL:
		var findings []analyzer.Finding

		for i, stmt := range ctx.Raw {
			node, ok := stmt.Stmt.Node.(*pg_query.Node_IndexStmt)
			if !ok || node.IndexStmt.Concurrent {
				continue
			}

			findings = append(findings, r.finding(analyzer.TableName(node.IndexStmt.Relation), ctx.RawSQL(i)))
		}

		return findings
	default:
		return nil
	}
}

func (r *CreateIndexRule) finding(table, stmt string) analyzer.Finding {
	return analyzer.Finding{
		Rule:       r.ID(),
		Severity:   analyzer.High,
		Table:      table,
		Statement:  stmt,
		Message:    "CREATE INDEX without CONCURRENTLY locks the table for writes",
		Suggestion: "Build the index concurrently; it then runs outside the migration transaction",
		LockType:   "SHARE",
	}
}
