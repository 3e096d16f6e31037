package rules

import (
	"strings"

	pg_query "github.com/pganalyze/pg_query_go/v6"

	"github.com/aqasim81/schema-migrator/internal/analyzer"
	"github.com/aqasim81/schema-migrator/internal/operation"
)

// DropTableRule detects dropped tables, dropped columns and TRUNCATE.
type DropTableRule struct{}

// NewDropTableRule creates a new DropTableRule.
func NewDropTableRule() *DropTableRule { return &DropTableRule{} }

// ID returns the rule identifier.
func (r *DropTableRule) ID() string { return "drop-table" }

// Check examines an operation for destructive drops.
func (r *DropTableRule) Check(op operation.Operation, ctx *analyzer.RuleContext) []analyzer.Finding {
	switch o := op.(type) {
	case operation.DropTable:
		msg := "DROP TABLE is irreversible and will permanently delete all data"
		if o.IfExists {
			msg = "DROP TABLE IF EXISTS is irreversible and will permanently delete all data"
		}

		return []analyzer.Finding{r.dropFinding(analyzer.QualifiedTable(o.Schema, o.Name), msg, "")}
	case operation.DropColumn:
		if ctx.IsNewTable(o.Schema, o.Table) {
			return nil
		}

		return []analyzer.Finding{{
			Rule:       r.ID(),
			Severity:   analyzer.High,
			Table:      analyzer.QualifiedTable(o.Schema, o.Table),
			Message:    "DROP COLUMN permanently deletes the data in column " + o.Column,
			Suggestion: "Stop reading and writing the column in application code before dropping it",
			LockType:   "ACCESS EXCLUSIVE",
		}}
	case operation.ExecuteSQL:
		return r.checkRaw(ctx)
	default:
		return nil
	}
}

func (r *DropTableRule) checkRaw(ctx *analyzer.RuleContext) []analyzer.Finding {
	var findings []analyzer.Finding

	for i, stmt := range ctx.Raw {
		switch node := stmt.Stmt.Node.(type) {
		case *pg_query.Node_DropStmt:
			drop := node.DropStmt
			if drop == nil || drop.RemoveType != pg_query.ObjectType_OBJECT_TABLE {
				continue
			}

			msg := "DROP TABLE is irreversible and will permanently delete all data"
			if drop.MissingOk {
				msg = "DROP TABLE IF EXISTS is irreversible and will permanently delete all data"
			}

			findings = append(findings, r.dropFinding(strings.Join(dropTableNames(drop), ", "), msg, ctx.RawSQL(i)))
		case *pg_query.Node_TruncateStmt:
			findings = append(findings, analyzer.Finding{
				Rule:       r.ID(),
				Severity:   analyzer.Critical,
				Table:      strings.Join(truncateTableNames(node.TruncateStmt), ", "),
				Statement:  ctx.RawSQL(i),
				Message:    "TRUNCATE removes all data from the table and is difficult to reverse",
				Suggestion: "Ensure you have a backup before truncating production tables",
				LockType:   "ACCESS EXCLUSIVE",
			})
		}
	}

	return findings
}

func (r *DropTableRule) dropFinding(table, msg, stmt string) analyzer.Finding {
	return analyzer.Finding{
		Rule:       r.ID(),
		Severity:   analyzer.Critical,
		Table:      table,
		Statement:  stmt,
		Message:    msg,
		Suggestion: "Ensure you have a backup and that no application code references this table",
		LockType:   "ACCESS EXCLUSIVE",
	}
}

func dropTableNames(drop *pg_query.DropStmt) []string {
	var tables []string

	for _, obj := range drop.Objects {
		listNode, ok := obj.Node.(*pg_query.Node_List)
		if !ok {
			continue
		}

		var parts []string

		for _, item := range listNode.List.Items {
			if s, ok := item.Node.(*pg_query.Node_String_); ok {
				parts = append(parts, s.String_.Sval)
			}
		}

		if len(parts) > 0 {
			tables = append(tables, strings.Join(parts, "."))
		}
	}

	return tables
}

func truncateTableNames(trunc *pg_query.TruncateStmt) []string {
	if trunc == nil {
		return nil
	}

	var tables []string

	for _, rel := range trunc.Relations {
		if rv, ok := rel.Node.(*pg_query.Node_RangeVar); ok {
			tables = append(tables, analyzer.TableName(rv.RangeVar))
		}
	}

	return tables
}
