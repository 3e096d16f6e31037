package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aqasim81/schema-migrator/internal/config"
)

// Every test here writes the global AppConfig and must not be parallel.

func applyFixtures(t *testing.T) {
	t.Helper()

	_, err := execute(t, runApply, applyFlags)
	require.NoError(t, err)
}

func TestCommands_noDatabaseURL_returnError(t *testing.T) { //nolint:paralleltest // writes global AppConfig
	cfg := config.New()
	cfg.MigrationsDir = fixtureDir
	useConfig(t, cfg)

	_, err := execute(t, runStatus, formatFlag)
	require.ErrorIs(t, err, errDatabaseURLRequired)

	_, err = execute(t, runRollback, rollbackFlags)
	require.ErrorIs(t, err, errDatabaseURLRequired)

	_, err = execute(t, runValidate, nil)
	require.ErrorIs(t, err, errDatabaseURLRequired)

	_, err = execute(t, runPlan, nil)
	require.ErrorIs(t, err, errDatabaseURLRequired)
}

func TestRunStatus_afterApply_listsApplied(t *testing.T) { //nolint:paralleltest // writes global AppConfig
	useSQLite(t, fixtureDir)

	out, err := execute(t, runStatus, formatFlag)
	require.NoError(t, err)
	assert.Contains(t, out, "Applied: 0  Pending: 3")
	assert.Contains(t, out, "V1 create users")

	applyFixtures(t)

	out, err = execute(t, runStatus, formatFlag)
	require.NoError(t, err)
	assert.Contains(t, out, "Applied: 3  Pending: 0")
	assert.Contains(t, out, "[applied] V3 seed admin")
}

func TestRunStatus_json(t *testing.T) { //nolint:paralleltest // writes global AppConfig
	useSQLite(t, fixtureDir)
	applyFixtures(t)

	_, err := execute(t, runRollback, rollbackFlags)
	require.NoError(t, err)

	out, err := execute(t, runStatus, formatFlag, "--format", "json")
	require.NoError(t, err)

	var doc statusJSON
	require.NoError(t, json.Unmarshal([]byte(out), &doc))

	assert.Equal(t, 2, doc.AppliedCount)
	assert.Equal(t, 1, doc.PendingCount)
	require.Len(t, doc.Applied, 2)
	assert.Equal(t, int64(1), doc.Applied[0].Version)
	assert.False(t, doc.Applied[0].ExecutedAt.IsZero())
	require.Len(t, doc.Pending, 1)
	assert.Equal(t, pendingJSON{Version: 3, Description: "seed admin"}, doc.Pending[0])
}

func TestRunStatus_unknownFormat_returnsError(t *testing.T) { //nolint:paralleltest // writes global AppConfig
	useSQLite(t, fixtureDir)

	_, err := execute(t, runStatus, formatFlag, "--format", "xml")

	require.ErrorIs(t, err, errUnknownFormat)
}

func TestRunRollback_defaultStep_rollsBackNewest(t *testing.T) { //nolint:paralleltest // writes global AppConfig
	useSQLite(t, fixtureDir)
	applyFixtures(t)

	out, err := execute(t, runRollback, rollbackFlags)

	require.NoError(t, err)
	assert.Contains(t, out, "Rolling back V3_20240103000000_seed_admin ... done")
	assert.NotContains(t, out, "V2_20240102000000")
	assert.Contains(t, out, "Rollback complete: 1 rolled back, 0 failed.")
}

func TestRunRollback_to_rollsBackAbove(t *testing.T) { //nolint:paralleltest // writes global AppConfig
	useSQLite(t, fixtureDir)
	applyFixtures(t)

	out, err := execute(t, runRollback, rollbackFlags, "--to", "1")

	require.NoError(t, err)
	assert.Contains(t, out, "Rollback complete: 2 rolled back, 0 failed.")

	out, err = execute(t, runStatus, formatFlag)
	require.NoError(t, err)
	assert.Contains(t, out, "Applied: 1  Pending: 2")
}

func TestRunRollback_dryRun_changesNothing(t *testing.T) { //nolint:paralleltest // writes global AppConfig
	useSQLite(t, fixtureDir)
	applyFixtures(t)

	out, err := execute(t, runRollback, rollbackFlags, "--steps", "2", "--dry-run")

	require.NoError(t, err)
	assert.Contains(t, out, "Would roll back V3 seed admin")
	assert.Contains(t, out, "Would roll back V2 index users email")
	assert.Contains(t, out, "Dry run complete: 2 migration(s) would be rolled back.")

	out, err = execute(t, runStatus, formatFlag)
	require.NoError(t, err)
	assert.Contains(t, out, "Applied: 3  Pending: 0")
}

func TestRunRollback_nothingApplied(t *testing.T) { //nolint:paralleltest // writes global AppConfig
	useSQLite(t, fixtureDir)

	out, err := execute(t, runRollback, rollbackFlags)

	require.NoError(t, err)
	assert.Contains(t, out, "Nothing to roll back.")
}

func TestRunRollback_invalidArguments(t *testing.T) { //nolint:paralleltest // writes global AppConfig
	useSQLite(t, fixtureDir)

	_, err := execute(t, runRollback, rollbackFlags, "--steps", "2", "--to", "1")
	require.ErrorIs(t, err, errConflictingTargets)

	_, err = execute(t, runRollback, rollbackFlags, "--steps", "0")
	require.Error(t, err)
}

func TestRunValidate_cleanHistory(t *testing.T) { //nolint:paralleltest // writes global AppConfig
	useSQLite(t, fixtureDir)
	applyFixtures(t)

	out, err := execute(t, runValidate, nil)

	require.NoError(t, err)
	assert.Contains(t, out, "History is valid.")
}

func TestRunValidate_editedMigration_reportsMismatch(t *testing.T) { //nolint:paralleltest // writes global AppConfig
	dir := copyFixtures(t)
	useSQLite(t, dir)
	applyFixtures(t)

	edited := "description: index users email\n" +
		"up:\n  - create_index: {table: users, name: users_email_idx, columns: [email], unique: true}\n" +
		"down:\n  - drop_index: {table: users, name: users_email_idx}\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "V2_20240102000000_index_users_email.yaml"), []byte(edited), 0o600))

	out, err := execute(t, runValidate, nil)

	require.ErrorIs(t, err, errValidationFailed)
	assert.Contains(t, out, "[ChecksumMismatch] version 2 (index users email) changed after it was applied")
}

func TestRunValidate_deletedMigration_reportsMissing(t *testing.T) { //nolint:paralleltest // writes global AppConfig
	dir := copyFixtures(t)
	useSQLite(t, dir)
	applyFixtures(t)

	require.NoError(t, os.Remove(filepath.Join(dir, "V3_20240103000000_seed_admin.up.sql")))
	require.NoError(t, os.Remove(filepath.Join(dir, "V3_20240103000000_seed_admin.down.sql")))

	out, err := execute(t, runValidate, nil)

	require.ErrorIs(t, err, errValidationFailed)
	assert.Contains(t, out, "[MissingMigration] version 3 (seed admin)")
}

func TestRunPlan_listsPendingInOrder(t *testing.T) { //nolint:paralleltest // writes global AppConfig
	useSQLite(t, fixtureDir)

	out, err := execute(t, runPlan, nil)

	require.NoError(t, err)
	assert.Contains(t, out, "1. V1 create users (transactional)")
	assert.Contains(t, out, "2. V2 index users email (transactional)")
	assert.Contains(t, out, "3. V3 seed admin (transactional)")
	assert.Contains(t, out, "INSERT INTO users (email) VALUES ('admin@example.com');")
	assert.Contains(t, out, "3 pending migration(s).")

	applyFixtures(t)

	out, err = execute(t, runPlan, nil)

	require.NoError(t, err)
	assert.Contains(t, out, "No pending migrations.")
}
