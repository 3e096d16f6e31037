package rules

import (
	pg_query "github.com/pganalyze/pg_query_go/v6"

	"github.com/aqasim81/schema-migrator/internal/analyzer"
	"github.com/aqasim81/schema-migrator/internal/operation"
)

// AddConstraintRule detects constraints validated against existing rows
// while a lock is held.
type AddConstraintRule struct{}

// NewAddConstraintRule creates a new AddConstraintRule.
func NewAddConstraintRule() *AddConstraintRule { return &AddConstraintRule{} }

// ID returns the rule identifier.
func (r *AddConstraintRule) ID() string { return "add-constraint-without-not-valid" }

// Check examines an operation for a validating ADD CONSTRAINT.
func (r *AddConstraintRule) Check(op operation.Operation, ctx *analyzer.RuleContext) []analyzer.Finding {
	switch o := op.(type) {
	case operation.AddForeignKey:
		if ctx.IsNewTable(o.Schema, o.Table) {
			return nil
		}

		return []analyzer.Finding{r.finding(analyzer.QualifiedTable(o.Schema, o.Table), "")}
	case operation.AddPrimaryKey:
		if ctx.IsNewTable(o.Schema, o.Table) {
			return nil
		}

		return []analyzer.Finding{{
			Rule:       r.ID(),
			Severity:   analyzer.High,
			Table:      analyzer.QualifiedTable(o.Schema, o.Table),
			Message:    "ADD PRIMARY KEY builds a unique index while blocking reads and writes",
			Suggestion: "Create a unique index concurrently first, then add the key USING INDEX in raw SQL",
			LockType:   "ACCESS EXCLUSIVE",
		}}
	case operation.ExecuteSQL:
		return r.checkRaw(ctx)
	default:
		return nil
	}
}

func (r *AddConstraintRule) checkRaw(ctx *analyzer.RuleContext) []analyzer.Finding {
	var findings []analyzer.Finding

	for i, stmt := range ctx.Raw {
		node, ok := stmt.Stmt.Node.(*pg_query.Node_AlterTableStmt)
		if !ok {
			continue
		}

		alt := node.AlterTableStmt

		for _, cmdNode := range alt.Cmds {
			cmd, ok := cmdNode.Node.(*pg_query.Node_AlterTableCmd)
			if !ok || cmd.AlterTableCmd.Subtype != pg_query.AlterTableType_AT_AddConstraint || cmd.AlterTableCmd.Def == nil {
				continue
			}

			constraintNode, ok := cmd.AlterTableCmd.Def.Node.(*pg_query.Node_Constraint)
			if !ok {
				continue
			}

			c := constraintNode.Constraint
			if c.Contype != pg_query.ConstrType_CONSTR_CHECK && c.Contype != pg_query.ConstrType_CONSTR_FOREIGN {
				continue
			}

			if c.SkipValidation {
				continue
			}

			findings = append(findings, r.finding(analyzer.TableName(alt.Relation), ctx.RawSQL(i)))
		}
	}

	return findings
}

func (r *AddConstraintRule) finding(table, stmt string) analyzer.Finding {
	return analyzer.Finding{
		Rule:       r.ID(),
		Severity:   analyzer.High,
		Table:      table,
		Statement:  stmt,
		Message:    "ADD CONSTRAINT without NOT VALID scans the entire table while holding a lock",
		Suggestion: "Add with NOT VALID, then VALIDATE CONSTRAINT in a separate statement",
		LockType:   "SHARE ROW EXCLUSIVE",
	}
}
