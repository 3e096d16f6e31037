package rules

import (
	pg_query "github.com/pganalyze/pg_query_go/v6"

	"github.com/aqasim81/schema-migrator/internal/analyzer"
	"github.com/aqasim81/schema-migrator/internal/operation"
)

// VacuumFullRule detects VACUUM FULL in raw SQL.
type VacuumFullRule struct{}

// NewVacuumFullRule creates a new VacuumFullRule.
func NewVacuumFullRule() *VacuumFullRule { return &VacuumFullRule{} }

// ID returns the rule identifier.
func (r *VacuumFullRule) ID() string { return "vacuum-full" }

// Check examines raw SQL for VACUUM FULL.
func (r *VacuumFullRule) Check(op operation.Operation, ctx *analyzer.RuleContext) []analyzer.Finding {
	if _, ok := op.(operation.ExecuteSQL); !ok {
		return nil
	}

	var findings []analyzer.Finding

	for i, stmt := range ctx.Raw {
		node, ok := stmt.Stmt.Node.(*pg_query.Node_VacuumStmt)
		if !ok || !isVacuumFull(node.VacuumStmt) {
			continue
		}

		findings = append(findings, analyzer.Finding{
			Rule:       r.ID(),
			Severity:   analyzer.High,
			Table:      vacuumTable(node.VacuumStmt),
			Statement:  ctx.RawSQL(i),
			Message:    "VACUUM FULL rewrites the entire table and holds an ACCESS EXCLUSIVE lock",
			Suggestion: "Use regular VACUUM instead, which does not block reads or writes",
			LockType:   "ACCESS EXCLUSIVE",
		})
	}

	return findings
}

func isVacuumFull(v *pg_query.VacuumStmt) bool {
	for _, opt := range v.Options {
		de, ok := opt.Node.(*pg_query.Node_DefElem)
		if ok && de.DefElem.Defname == "full" {
			return true
		}
	}

	return false
}

func vacuumTable(v *pg_query.VacuumStmt) string {
	for _, rel := range v.Rels {
		vr, ok := rel.Node.(*pg_query.Node_VacuumRelation)
		if ok && vr.VacuumRelation.Relation != nil {
			return analyzer.TableName(vr.VacuumRelation.Relation)
		}
	}

	return "<all tables>"
}
