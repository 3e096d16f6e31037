package rules_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aqasim81/schema-migrator/internal/analyzer"
	"github.com/aqasim81/schema-migrator/internal/analyzer/rules"
	"github.com/aqasim81/schema-migrator/internal/operation"
)

func TestLockTableRule_Check(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		sql        string
		wantTables []string
	}{
		{name: "single table", sql: "LOCK TABLE users;", wantTables: []string{"users"}},
		{name: "with mode", sql: "LOCK TABLE users IN ACCESS EXCLUSIVE MODE;", wantTables: []string{"users"}},
		{name: "multiple tables", sql: "LOCK TABLE users, orders;", wantTables: []string{"users", "orders"}},
		{name: "non-lock statement", sql: "SELECT 1;", wantTables: nil},
	}

	rule := rules.NewLockTableRule()
	assert.Equal(t, "lock-table", rule.ID())

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			findings := checkRaw(t, rule, tt.sql)
			require.Len(t, findings, len(tt.wantTables))

			for i, table := range tt.wantTables {
				assert.Equal(t, table, findings[i].Table)
				assert.Equal(t, analyzer.High, findings[i].Severity)
				assert.Equal(t, "EXPLICIT", findings[i].LockType)
			}
		})
	}
}

func TestLockTableRule_declarativeIgnored(t *testing.T) {
	t.Parallel()

	assert.Empty(t, checkOp(rules.NewLockTableRule(), operation.DropTable{Name: "users"}, analyzer.DefaultPGVersion))
}
