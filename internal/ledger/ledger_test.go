package ledger_test

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aqasim81/schema-migrator/internal/database"
	"github.com/aqasim81/schema-migrator/internal/dialect"
	"github.com/aqasim81/schema-migrator/internal/ledger"
)

func newLedger(t *testing.T, opts ...ledger.Option) (*ledger.Ledger, database.Session) {
	t.Helper()

	ctx := context.Background()

	db, err := database.Open(ctx, database.DriverSQLite, filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)
	t.Cleanup(db.Close)

	session, err := db.Acquire(ctx)
	require.NoError(t, err)
	t.Cleanup(session.Release)

	l := ledger.New(dialect.NewSQLite(), opts...)
	require.NoError(t, l.EnsureTable(ctx, session))

	return l, session
}

func record(version int64, status ledger.Status) ledger.Record {
	key := fmt.Sprintf("V%d_1_migration", version)

	return ledger.Record{
		Version:         version,
		Timestamp:       20240101000000 + version,
		Description:     "migration",
		Checksum:        "abc",
		ExecutedAt:      time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
		ExecutionTimeMs: 12,
		Status:          status,
		AppliedBy:       "tester",
		ClassName:       &key,
	}
}

func TestNew_defaultTable(t *testing.T) {
	t.Parallel()

	assert.Equal(t, ledger.DefaultTable, ledger.New(dialect.NewPostgres()).Table())
	assert.Equal(t, "audit.history", ledger.New(dialect.NewPostgres(), ledger.WithTable("audit.history")).Table())
	assert.Equal(t, ledger.DefaultTable, ledger.New(dialect.NewPostgres(), ledger.WithTable("")).Table())
}

func TestEnsureTable_idempotent(t *testing.T) {
	t.Parallel()

	l, s := newLedger(t, ledger.WithTable("custom_history"))

	require.NoError(t, l.EnsureTable(context.Background(), s))

	records, err := l.FindAll(context.Background(), s)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestSave_insertAndFind(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	l, s := newLedger(t)

	msg := "boom"
	rec := record(1, ledger.StatusFailed)
	rec.ErrorMessage = &msg

	id, err := l.Save(ctx, s, rec)
	require.NoError(t, err)
	assert.Positive(t, id)

	got, err := l.FindByVersion(ctx, s, 1)
	require.NoError(t, err)

	assert.Equal(t, id, got.ID)
	assert.Equal(t, rec.Timestamp, got.Timestamp)
	assert.Equal(t, "migration", got.Description)
	assert.Equal(t, "abc", got.Checksum)
	assert.True(t, rec.ExecutedAt.Equal(got.ExecutedAt), "executed_at %v", got.ExecutedAt)
	assert.Equal(t, int64(12), got.ExecutionTimeMs)
	assert.Equal(t, ledger.StatusFailed, got.Status)
	require.NotNil(t, got.ErrorMessage)
	assert.Equal(t, "boom", *got.ErrorMessage)
	assert.Equal(t, "tester", got.AppliedBy)
	require.NotNil(t, got.ClassName)
	assert.Equal(t, *rec.ClassName, *got.ClassName)
}

func TestSave_replacesFailedRowInPlace(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	l, s := newLedger(t)

	first, err := l.Save(ctx, s, record(1, ledger.StatusFailed))
	require.NoError(t, err)

	retry := record(1, ledger.StatusSuccess)
	retry.Checksum = "def"
	retry.ClassName = nil

	second, err := l.Save(ctx, s, retry)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	all, err := l.FindAll(ctx, s)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, ledger.StatusSuccess, all[0].Status)
	assert.Equal(t, "def", all[0].Checksum)
	assert.Nil(t, all[0].ErrorMessage)
	assert.Nil(t, all[0].ClassName)
}

func TestFindByVersion_missing(t *testing.T) {
	t.Parallel()

	l, s := newLedger(t)

	_, err := l.FindByVersion(context.Background(), s, 42)
	require.ErrorIs(t, err, ledger.ErrRecordNotFound)
}

func TestIsApplied_onlySuccess(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	l, s := newLedger(t)

	for _, rec := range []ledger.Record{
		record(1, ledger.StatusSuccess),
		record(2, ledger.StatusFailed),
		record(3, ledger.StatusRolledBack),
	} {
		_, err := l.Save(ctx, s, rec)
		require.NoError(t, err)
	}

	tests := []struct {
		version int64
		want    bool
	}{
		{version: 1, want: true},
		{version: 2, want: false},
		{version: 3, want: false},
		{version: 4, want: false},
	}

	for _, tt := range tests {
		got, err := l.IsApplied(ctx, s, tt.version)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "version %d", tt.version)
	}
}

func TestFindAll_ordersByVersion(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	l, s := newLedger(t)

	for _, v := range []int64{3, 1, 2} {
		_, err := l.Save(ctx, s, record(v, ledger.StatusSuccess))
		require.NoError(t, err)
	}

	all, err := l.FindAll(ctx, s)
	require.NoError(t, err)

	versions := make([]int64, len(all))
	for i, r := range all {
		versions[i] = r.Version
	}

	assert.Equal(t, []int64{1, 2, 3}, versions)
}

func TestFindApplied_andGetLatest(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	l, s := newLedger(t)

	_, err := l.GetLatest(ctx, s)
	require.ErrorIs(t, err, ledger.ErrRecordNotFound)

	for _, rec := range []ledger.Record{
		record(1, ledger.StatusSuccess),
		record(2, ledger.StatusSuccess),
		record(3, ledger.StatusSuccess),
		record(4, ledger.StatusFailed),
	} {
		_, err := l.Save(ctx, s, rec)
		require.NoError(t, err)
	}

	tests := []struct {
		limit int
		want  []int64
	}{
		{limit: 2, want: []int64{3, 2}},
		{limit: 10, want: []int64{3, 2, 1}},
		{limit: 0, want: []int64{3, 2, 1}},
	}

	for _, tt := range tests {
		got, err := l.FindApplied(ctx, s, tt.limit)
		require.NoError(t, err)

		versions := make([]int64, len(got))
		for i, r := range got {
			versions[i] = r.Version
		}

		assert.Equal(t, tt.want, versions, "limit %d", tt.limit)
	}

	latest, err := l.GetLatest(ctx, s)
	require.NoError(t, err)
	assert.Equal(t, int64(3), latest.Version)
}

func TestValidateChecksum(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	l, s := newLedger(t)

	_, err := l.Save(ctx, s, record(1, ledger.StatusSuccess))
	require.NoError(t, err)

	tests := []struct {
		name     string
		version  int64
		expected string
		want     bool
	}{
		{name: "match", version: 1, expected: "abc", want: true},
		{name: "mismatch", version: 1, expected: "xyz", want: false},
		{name: "no record", version: 9, expected: "anything", want: true},
	}

	for _, tt := range tests {
		got, err := l.ValidateChecksum(ctx, s, tt.version, tt.expected)
		require.NoError(t, err, tt.name)
		assert.Equal(t, tt.want, got, tt.name)
	}
}

func TestMarkRolledBack(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	l, s := newLedger(t)

	_, err := l.Save(ctx, s, record(1, ledger.StatusSuccess))
	require.NoError(t, err)

	require.NoError(t, l.MarkRolledBack(ctx, s, 1))

	got, err := l.FindByVersion(ctx, s, 1)
	require.NoError(t, err)
	assert.Equal(t, ledger.StatusRolledBack, got.Status)

	applied, err := l.IsApplied(ctx, s, 1)
	require.NoError(t, err)
	assert.False(t, applied)

	err = l.MarkRolledBack(ctx, s, 7)
	require.ErrorIs(t, err, ledger.ErrRecordNotFound)
}

func TestSave_insideTransaction(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	l, s := newLedger(t)

	err := database.InTransaction(ctx, s, func(tx database.Tx) error {
		if _, err := l.Save(ctx, tx, record(1, ledger.StatusSuccess)); err != nil {
			return err
		}

		return assert.AnError
	})
	require.ErrorIs(t, err, assert.AnError)

	all, err := l.FindAll(ctx, s)
	require.NoError(t, err)
	assert.Empty(t, all)
}
