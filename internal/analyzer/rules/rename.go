package rules

import (
	"github.com/aqasim81/schema-migrator/internal/analyzer"
	"github.com/aqasim81/schema-migrator/internal/operation"
)

// RenameRule detects table and column renames, which break running clients.
type RenameRule struct{}

// NewRenameRule creates a new RenameRule.
func NewRenameRule() *RenameRule { return &RenameRule{} }

// ID returns the rule identifier.
func (r *RenameRule) ID() string { return "rename" }

// Check examines an operation for RENAME TABLE or RENAME COLUMN.
func (r *RenameRule) Check(op operation.Operation, ctx *analyzer.RuleContext) []analyzer.Finding {
	switch o := op.(type) {
	case operation.RenameTable:
		if ctx.IsNewTable(o.Schema, o.OldName) {
			return nil
		}

		return []analyzer.Finding{{
			Rule:       r.ID(),
			Severity:   analyzer.Medium,
			Table:      analyzer.QualifiedTable(o.Schema, o.OldName),
			Message:    "RENAME TABLE breaks application code that references the old name",
			Suggestion: "Use a staged approach: add new name (view), update app code, remove old name",
			LockType:   "ACCESS EXCLUSIVE",
		}}
	case operation.RenameColumn:
		if ctx.IsNewTable(o.Schema, o.Table) {
			return nil
		}

		return []analyzer.Finding{{
			Rule:       r.ID(),
			Severity:   analyzer.Medium,
			Table:      analyzer.QualifiedTable(o.Schema, o.Table),
			Message:    "RENAME COLUMN breaks application code that references the old column name",
			Suggestion: "Use a staged approach: add new column, backfill, update app code, drop old column",
			LockType:   "ACCESS EXCLUSIVE",
		}}
	default:
		return nil
	}
}
