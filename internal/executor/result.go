package executor

import (
	"fmt"
	"time"
)

// Outcome describes one migration processed by Migrate or Rollback.
type Outcome struct {
	Version     int64
	Description string
	Duration    time.Duration
	// Statements holds the rendered SQL, in execution order.
	Statements []string
	Err        error
}

// Result aggregates the outcomes of one Migrate or Rollback call.
type Result struct {
	RunID    string
	Executed []Outcome
	Failed   []Outcome
	Skipped  []Outcome
}

// HasFailures reports whether any migration failed.
func (r *Result) HasFailures() bool {
	return len(r.Failed) > 0
}

// AppliedInfo describes a migration with a SUCCESS record.
type AppliedInfo struct {
	Version         int64
	Description     string
	ExecutedAt      time.Time
	ExecutionTimeMs int64
}

// PendingInfo describes a migration not yet applied.
type PendingInfo struct {
	Version     int64
	Description string
}

// StatusReport partitions migrations into applied and pending, both
// ascending by version.
type StatusReport struct {
	AppliedCount int
	PendingCount int
	Applied      []AppliedInfo
	Pending      []PendingInfo
}

// IssueKind classifies a validation issue.
type IssueKind string

// Validation issue kinds.
const (
	IssueFailedMigration  IssueKind = "FailedMigration"
	IssueMissingMigration IssueKind = "MissingMigration"
	IssueChecksumMismatch IssueKind = "ChecksumMismatch"
)

// Issue is one problem found by Validate.
type Issue struct {
	Kind         IssueKind
	Version      int64
	Description  string
	ErrorMessage string
	Expected     string
	Actual       string
}

func (i Issue) String() string {
	switch i.Kind {
	case IssueFailedMigration:
		return fmt.Sprintf("version %d (%s) failed: %s", i.Version, i.Description, i.ErrorMessage)
	case IssueMissingMigration:
		return fmt.Sprintf("version %d (%s) is applied but has no migration definition", i.Version, i.Description)
	case IssueChecksumMismatch:
		return fmt.Sprintf("version %d (%s) changed after it was applied: expected %s, got %s",
			i.Version, i.Description, i.Expected, i.Actual)
	default:
		return fmt.Sprintf("version %d (%s): %s", i.Version, i.Description, i.Kind)
	}
}

// ValidationResult is returned by Validate. Valid is true iff Issues is empty.
type ValidationResult struct {
	Valid  bool
	Issues []Issue
}

// PlannedMigration is a pending migration rendered without executing it.
type PlannedMigration struct {
	Version     int64
	Description string
	Statements  []string
	// Transactional is false when the statements build an index
	// concurrently and must run outside a transaction.
	Transactional bool
}
