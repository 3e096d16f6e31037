//go:build integration

package integration

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aqasim81/schema-migrator/internal/database"
	"github.com/aqasim81/schema-migrator/internal/dialect"
)

// acquireSession returns a dedicated session released on cleanup.
func acquireSession(t *testing.T, db database.DB) database.Session {
	t.Helper()

	s, err := db.Acquire(context.Background())
	require.NoError(t, err)

	t.Cleanup(s.Release)

	return s
}

func tryLock(ctx context.Context, q database.Querier) (*database.LockHandle, error) {
	acquire, release, _ := dialect.NewPostgres().LockSQL()

	return database.TryAcquireLock(ctx, q, acquire, release)
}

func TestAdvisoryLock_acquireAndRelease(t *testing.T) {
	t.Parallel()

	_, db := SetupPostgres(t)
	ctx := context.Background()

	handle, err := tryLock(ctx, acquireSession(t, db))
	require.NoError(t, err)
	require.NotNil(t, handle)

	err = handle.Release(ctx)
	require.NoError(t, err)
}

func TestAdvisoryLock_doubleAcquire_returnsLockNotAcquired(t *testing.T) {
	t.Parallel()

	_, db := SetupPostgres(t)
	ctx := context.Background()

	handle1, err := tryLock(ctx, acquireSession(t, db))
	require.NoError(t, err)
	require.NotNil(t, handle1)

	t.Cleanup(func() {
		_ = handle1.Release(context.Background())
	})

	handle2, err := tryLock(ctx, acquireSession(t, db))
	assert.Nil(t, handle2)
	require.ErrorIs(t, err, database.ErrLockNotAcquired)
}

func TestAdvisoryLock_releaseAllowsReacquire(t *testing.T) {
	t.Parallel()

	_, db := SetupPostgres(t)
	ctx := context.Background()

	handle1, err := tryLock(ctx, acquireSession(t, db))
	require.NoError(t, err)
	require.NoError(t, handle1.Release(ctx))

	handle2, err := tryLock(ctx, acquireSession(t, db))
	require.NoError(t, err)
	require.NotNil(t, handle2)
	require.NoError(t, handle2.Release(ctx))
}

func TestAdvisoryLock_mysqlNamedLock(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	db, err := database.Connect(ctx, "mysql", SetupMySQLDSN(t))
	require.NoError(t, err)

	t.Cleanup(db.Close)

	acquire, release, ok := dialect.NewMySQL().LockSQL()
	require.True(t, ok)

	handle1, err := database.TryAcquireLock(ctx, acquireSession(t, db), acquire, release)
	require.NoError(t, err)

	_, err = database.TryAcquireLock(ctx, acquireSession(t, db), acquire, release)
	require.ErrorIs(t, err, database.ErrLockNotAcquired)

	require.NoError(t, handle1.Release(ctx))
}

func TestLockHandle_Release_idempotent(t *testing.T) {
	t.Parallel()

	_, db := SetupPostgres(t)
	ctx := context.Background()

	handle, err := tryLock(ctx, acquireSession(t, db))
	require.NoError(t, err)

	err = handle.Release(ctx)
	require.NoError(t, err)

	err = handle.Release(ctx)
	require.NoError(t, err)
}

func TestLockHandle_Release_nilHandle_noError(t *testing.T) {
	t.Parallel()

	var handle *database.LockHandle

	err := handle.Release(context.Background())
	require.NoError(t, err)
}
