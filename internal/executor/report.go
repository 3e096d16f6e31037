package executor

import (
	"context"
	"fmt"

	"github.com/aqasim81/schema-migrator/internal/dialect"
	"github.com/aqasim81/schema-migrator/internal/ledger"
	"github.com/aqasim81/schema-migrator/internal/migration"
)

// Status partitions units into applied (a SUCCESS record exists) and
// pending, both ascending by version.
func (e *Executor) Status(ctx context.Context, units []migration.Migration) (*StatusReport, error) {
	s, closeSession, err := e.openSession(ctx, false)
	if err != nil {
		return nil, err
	}
	defer closeSession()

	records, err := e.history.FindAll(ctx, s)
	if err != nil {
		return nil, err
	}

	succeeded := make(map[int64]ledger.Record, len(records))

	for _, rec := range records {
		if rec.Status == ledger.StatusSuccess {
			succeeded[rec.Version] = rec
		}
	}

	report := &StatusReport{}

	for _, m := range migration.Sort(units) {
		rec, ok := succeeded[m.Version()]
		if !ok {
			report.Pending = append(report.Pending, PendingInfo{Version: m.Version(), Description: m.Description()})

			continue
		}

		report.Applied = append(report.Applied, AppliedInfo{
			Version:         m.Version(),
			Description:     m.Description(),
			ExecutedAt:      rec.ExecutedAt,
			ExecutionTimeMs: rec.ExecutionTimeMs,
		})
	}

	report.AppliedCount = len(report.Applied)
	report.PendingCount = len(report.Pending)

	return report, nil
}

// Validate checks every history record against units. FAILED records,
// SUCCESS records without a unit, and SUCCESS records whose unit's checksum
// changed are reported. ROLLED_BACK records never are.
func (e *Executor) Validate(ctx context.Context, units []migration.Migration) (*ValidationResult, error) {
	s, closeSession, err := e.openSession(ctx, false)
	if err != nil {
		return nil, err
	}
	defer closeSession()

	records, err := e.history.FindAll(ctx, s)
	if err != nil {
		return nil, err
	}

	byVersion := make(map[int64]migration.Migration, len(units))
	for _, m := range units {
		byVersion[m.Version()] = m
	}

	result := &ValidationResult{}

	for _, rec := range records {
		issue, err := check(rec, byVersion)
		if err != nil {
			return nil, err
		}

		if issue != nil {
			result.Issues = append(result.Issues, *issue)
		}
	}

	result.Valid = len(result.Issues) == 0

	return result, nil
}

func check(rec ledger.Record, byVersion map[int64]migration.Migration) (*Issue, error) {
	switch rec.Status {
	case ledger.StatusFailed:
		issue := &Issue{Kind: IssueFailedMigration, Version: rec.Version, Description: rec.Description}
		if rec.ErrorMessage != nil {
			issue.ErrorMessage = *rec.ErrorMessage
		}

		return issue, nil
	case ledger.StatusSuccess:
		m, ok := byVersion[rec.Version]
		if !ok {
			return &Issue{Kind: IssueMissingMigration, Version: rec.Version, Description: rec.Description}, nil
		}

		actual, err := migration.Checksum(m)
		if err != nil {
			return nil, fmt.Errorf("computing checksum for migration %d: %w", rec.Version, err)
		}

		if actual != rec.Checksum {
			return &Issue{
				Kind:        IssueChecksumMismatch,
				Version:     rec.Version,
				Description: rec.Description,
				Expected:    rec.Checksum,
				Actual:      actual,
			}, nil
		}
	}

	return nil, nil //nolint:nilnil // a record in good standing has no issue
}

// Plan renders every pending unit without executing anything. Applied
// units are checksum-verified exactly as Migrate does.
func (e *Executor) Plan(ctx context.Context, units []migration.Migration) ([]PlannedMigration, error) {
	if err := migration.Validate(units); err != nil {
		return nil, fmt.Errorf("validating migrations: %w", err)
	}

	s, closeSession, err := e.openSession(ctx, false)
	if err != nil {
		return nil, err
	}
	defer closeSession()

	var planned []PlannedMigration

	for _, m := range migration.Sort(units) {
		skip, err := e.shouldSkip(ctx, s, m)
		if err != nil {
			return planned, err
		}

		if skip {
			continue
		}

		ops, err := m.Up()
		if err != nil {
			return planned, fmt.Errorf("building migration %d (%s): %w", m.Version(), m.Description(), err)
		}

		stmts, err := dialect.RenderAll(e.renderer, ops)
		if err != nil {
			return planned, fmt.Errorf("migration %d (%s): %w", m.Version(), m.Description(), err)
		}

		concurrent, err := e.detectConcurrent(stmts)
		if err != nil {
			return planned, fmt.Errorf("migration %d (%s): %w", m.Version(), m.Description(), err)
		}

		planned = append(planned, PlannedMigration{
			Version:       m.Version(),
			Description:   m.Description(),
			Statements:    stmts,
			Transactional: !concurrent,
		})
	}

	return planned, nil
}
