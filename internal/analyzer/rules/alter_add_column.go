package rules

import (
	pg_query "github.com/pganalyze/pg_query_go/v6"

	"github.com/aqasim81/schema-migrator/internal/analyzer"
	"github.com/aqasim81/schema-migrator/internal/operation"
)

const pgVersionSafeNonVolatileDefault = 11

// AddColumnRule detects added columns whose DEFAULT forces a table rewrite.
type AddColumnRule struct{}

// NewAddColumnRule creates a new AddColumnRule.
func NewAddColumnRule() *AddColumnRule { return &AddColumnRule{} }

// ID returns the rule identifier.
func (r *AddColumnRule) ID() string { return "add-column-volatile-default" }

// Check examines an AddColumn operation for a rewriting DEFAULT.
func (r *AddColumnRule) Check(op operation.Operation, ctx *analyzer.RuleContext) []analyzer.Finding {
	add, ok := op.(operation.AddColumn)
	if !ok || add.Column.Default == nil || ctx.IsNewTable(add.Schema, add.Table) {
		return nil
	}

	if ctx.TargetPGVersion >= pgVersionSafeNonVolatileDefault && !isVolatileDefault(*add.Column.Default) {
		return nil
	}

	msg := "ADD COLUMN with volatile DEFAULT rewrites the entire table"
	if ctx.TargetPGVersion < pgVersionSafeNonVolatileDefault {
		msg = "ADD COLUMN with DEFAULT rewrites the entire table on PG < 11"
	}

	return []analyzer.Finding{{
		Rule:       r.ID(),
		Severity:   analyzer.High,
		Table:      analyzer.QualifiedTable(add.Schema, add.Table),
		Message:    msg,
		Suggestion: "Add column without DEFAULT, then backfill in batches",
		LockType:   "ACCESS EXCLUSIVE",
	}}
}

// isVolatileDefault parses a DEFAULT expression. Constants and casts of
// constants are non-volatile; function calls like now() and anything
// that fails to parse are treated as volatile.
func isVolatileDefault(expr string) bool {
	tree, err := pg_query.Parse("SELECT " + expr)
	if err != nil || len(tree.Stmts) != 1 {
		return true
	}

	sel, ok := tree.Stmts[0].Stmt.Node.(*pg_query.Node_SelectStmt)
	if !ok || len(sel.SelectStmt.TargetList) != 1 {
		return true
	}

	target, ok := sel.SelectStmt.TargetList[0].Node.(*pg_query.Node_ResTarget)
	if !ok {
		return true
	}

	return isVolatileNode(target.ResTarget.Val)
}

func isVolatileNode(node *pg_query.Node) bool {
	if node == nil {
		return false
	}

	switch n := node.Node.(type) {
	case *pg_query.Node_AConst:
		return false
	case *pg_query.Node_TypeCast:
		if n.TypeCast.Arg != nil {
			if _, ok := n.TypeCast.Arg.Node.(*pg_query.Node_AConst); ok {
				return false
			}
		}

		return true
	default:
		return true
	}
}
