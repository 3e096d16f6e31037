package ledger

import (
	"fmt"
	"time"
)

// Status is the outcome stored for a migration.
type Status string

// Record statuses. Only SUCCESS rows count as applied.
const (
	StatusSuccess    Status = "SUCCESS"
	StatusFailed     Status = "FAILED"
	StatusRolledBack Status = "ROLLED_BACK"
)

// Record is one row of the history table. There is at most one row per version.
type Record struct {
	ID              int64
	Version         int64
	Timestamp       int64
	Description     string
	Checksum        string
	ExecutedAt      time.Time
	ExecutionTimeMs int64
	Status          Status
	ErrorMessage    *string
	AppliedBy       string
	// ClassName is the migration key used to resolve the unit for rollback.
	ClassName *string
}

// timeLayouts covers the text encodings drivers hand back for timestamp
// columns they do not parse themselves.
var timeLayouts = []string{
	"2006-01-02 15:04:05.999999999 -0700 MST",
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02T15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
	time.RFC3339Nano,
}

// timestamp scans a timestamp column from any supported driver.
type timestamp struct {
	t *time.Time
}

func (ts *timestamp) Scan(src any) error {
	switch v := src.(type) {
	case time.Time:
		*ts.t = v
	case string:
		return ts.parse(v)
	case []byte:
		return ts.parse(string(v))
	case int64:
		*ts.t = time.Unix(v, 0).UTC()
	case nil:
		*ts.t = time.Time{}
	default:
		return fmt.Errorf("unsupported timestamp value %T", src)
	}

	return nil
}

func (ts *timestamp) parse(s string) error {
	for _, layout := range timeLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			*ts.t = parsed

			return nil
		}
	}

	return fmt.Errorf("unparseable timestamp %q", s)
}
