package rules

import (
	"github.com/aqasim81/schema-migrator/internal/analyzer"
	"github.com/aqasim81/schema-migrator/internal/operation"
)

// AlterColumnTypeRule detects column type changes, which rewrite the table.
type AlterColumnTypeRule struct{}

// NewAlterColumnTypeRule creates a new AlterColumnTypeRule.
func NewAlterColumnTypeRule() *AlterColumnTypeRule { return &AlterColumnTypeRule{} }

// ID returns the rule identifier.
func (r *AlterColumnTypeRule) ID() string { return "alter-column-type" }

// Check examines an AlterColumn operation for a type change.
func (r *AlterColumnTypeRule) Check(op operation.Operation, ctx *analyzer.RuleContext) []analyzer.Finding {
	alter, ok := op.(operation.AlterColumn)
	if !ok || alter.NewType == nil || ctx.IsNewTable(alter.Schema, alter.Table) {
		return nil
	}

	return []analyzer.Finding{{
		Rule:       r.ID(),
		Severity:   analyzer.High,
		Table:      analyzer.QualifiedTable(alter.Schema, alter.Table),
		Message:    "changing the type of " + alter.Column + " rewrites the entire table while holding an ACCESS EXCLUSIVE lock",
		Suggestion: "Use a staged approach: add new column, backfill data, swap columns, drop old column",
		LockType:   "ACCESS EXCLUSIVE",
	}}
}
