package analyzer

import "github.com/aqasim81/schema-migrator/internal/migration"

const maxStatementLen = 120

// Finding represents a single dangerous pattern detected in a migration.
type Finding struct {
	Rule       string   // Rule ID (e.g., "create-index-not-concurrent")
	Severity   Severity // Danger level
	Table      string   // Affected table name
	Statement  string   // Rendered SQL, truncated for display
	Message    string   // Human-readable description of the danger
	Suggestion string   // Safe alternative approach
	LockType   string   // PostgreSQL lock type acquired (e.g., "ACCESS EXCLUSIVE")
	OpIndex    int      // Index in the migration's operation list (0-based)
}

// AnalysisResult holds all findings for a single migration.
type AnalysisResult struct {
	Migration   migration.Migration
	Findings    []Finding
	MaxSeverity Severity // Highest severity across all findings
}

// HasHighOrCritical returns true if any finding is High or Critical severity.
func (r *AnalysisResult) HasHighOrCritical() bool {
	return r.MaxSeverity >= High
}

// TruncateSQL truncates a SQL string to maxLen characters for display.
// A maxLen too small to hold the ellipsis leaves sql unchanged.
func TruncateSQL(sql string, maxLen int) string {
	if len(sql) <= maxLen || maxLen < 4 { //nolint:mnd // room for "..." plus one character
		return sql
	}

	return sql[:maxLen-3] + "..."
}
