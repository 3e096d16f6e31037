package database

import (
	"context"
	"fmt"
)

// Connect opens a DB for the named dialect: "postgres" goes through a pgx
// pool, "mysql" and "sqlite" through database/sql.
func Connect(ctx context.Context, dialectName, dsn string) (DB, error) {
	switch dialectName {
	case "postgres":
		pool, err := NewPool(ctx, dsn)
		if err != nil {
			return nil, err
		}

		return FromPool(pool), nil
	case DriverMySQL, DriverSQLite:
		return Open(ctx, dialectName, dsn)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedDriver, dialectName)
	}
}
