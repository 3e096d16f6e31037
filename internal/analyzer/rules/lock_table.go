package rules

import (
	pg_query "github.com/pganalyze/pg_query_go/v6"

	"github.com/aqasim81/schema-migrator/internal/analyzer"
	"github.com/aqasim81/schema-migrator/internal/operation"
)

// LockTableRule detects explicit LOCK TABLE statements in raw SQL.
type LockTableRule struct{}

// NewLockTableRule creates a new LockTableRule.
func NewLockTableRule() *LockTableRule { return &LockTableRule{} }

// ID returns the rule identifier.
func (r *LockTableRule) ID() string { return "lock-table" }

// Check examines raw SQL for explicit LOCK TABLE.
func (r *LockTableRule) Check(op operation.Operation, ctx *analyzer.RuleContext) []analyzer.Finding {
	if _, ok := op.(operation.ExecuteSQL); !ok {
		return nil
	}

	var findings []analyzer.Finding

	for i, stmt := range ctx.Raw {
		node, ok := stmt.Stmt.Node.(*pg_query.Node_LockStmt)
		if !ok {
			continue
		}

		for _, rel := range node.LockStmt.Relations {
			rv, ok := rel.Node.(*pg_query.Node_RangeVar)
			if !ok {
				continue
			}

			findings = append(findings, analyzer.Finding{
				Rule:       r.ID(),
				Severity:   analyzer.High,
				Table:      analyzer.TableName(rv.RangeVar),
				Statement:  ctx.RawSQL(i),
				Message:    "Explicit LOCK TABLE can block other queries and cause downtime",
				Suggestion: "Avoid explicit table locks. Let PostgreSQL manage locking through normal operations",
				LockType:   "EXPLICIT",
			})
		}
	}

	return findings
}
