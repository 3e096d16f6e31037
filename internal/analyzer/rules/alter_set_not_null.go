package rules

import (
	"github.com/aqasim81/schema-migrator/internal/analyzer"
	"github.com/aqasim81/schema-migrator/internal/operation"
)

const pgVersionSafeSetNotNull = 12

// SetNotNullRule detects SET NOT NULL, which scans the whole table.
type SetNotNullRule struct{}

// NewSetNotNullRule creates a new SetNotNullRule.
func NewSetNotNullRule() *SetNotNullRule { return &SetNotNullRule{} }

// ID returns the rule identifier.
func (r *SetNotNullRule) ID() string { return "set-not-null" }

// Check examines an AlterColumn operation for SET NOT NULL.
func (r *SetNotNullRule) Check(op operation.Operation, ctx *analyzer.RuleContext) []analyzer.Finding {
	alter, ok := op.(operation.AlterColumn)
	if !ok || alter.Nullable == nil || *alter.Nullable || ctx.IsNewTable(alter.Schema, alter.Table) {
		return nil
	}

	severity := analyzer.High
	suggestion := "Requires full table scan. Consider application-level enforcement instead."

	if ctx.TargetPGVersion >= pgVersionSafeSetNotNull {
		severity = analyzer.Medium
		suggestion = "First add CHECK (col IS NOT NULL) NOT VALID, then VALIDATE CONSTRAINT, then SET NOT NULL"
	}

	return []analyzer.Finding{{
		Rule:       r.ID(),
		Severity:   severity,
		Table:      analyzer.QualifiedTable(alter.Schema, alter.Table),
		Message:    "SET NOT NULL requires a full table scan to verify no NULL values exist",
		Suggestion: suggestion,
		LockType:   "ACCESS EXCLUSIVE",
	}}
}
