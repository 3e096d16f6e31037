package rules_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aqasim81/schema-migrator/internal/analyzer"
	"github.com/aqasim81/schema-migrator/internal/operation"
	"github.com/aqasim81/schema-migrator/internal/parser"
)

// checkRaw runs rule against a raw SQL operation.
func checkRaw(t *testing.T, rule analyzer.Rule, sql string) []analyzer.Finding {
	t.Helper()

	result, err := parser.Parse(sql)
	require.NoError(t, err)

	ctx := &analyzer.RuleContext{
		TargetPGVersion: analyzer.DefaultPGVersion,
		SQL:             strings.TrimSpace(sql),
		Raw:             result.Stmts,
	}

	return rule.Check(operation.ExecuteSQL{SQL: sql}, ctx)
}

// checkOp runs rule against a declarative operation on an existing table.
func checkOp(rule analyzer.Rule, op operation.Operation, pgVersion int) []analyzer.Finding {
	return rule.Check(op, &analyzer.RuleContext{TargetPGVersion: pgVersion})
}

// newTable marks table as created earlier in the migration.
func newTable(table string) *analyzer.RuleContext {
	return &analyzer.RuleContext{
		TargetPGVersion: analyzer.DefaultPGVersion,
		NewTables:       map[string]bool{table: true},
	}
}

func ptr[T any](v T) *T { return &v }
