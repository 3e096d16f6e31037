package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/aqasim81/schema-migrator/internal/config"
	"github.com/aqasim81/schema-migrator/internal/database"
	"github.com/aqasim81/schema-migrator/internal/dialect"
	"github.com/aqasim81/schema-migrator/internal/executor"
	"github.com/aqasim81/schema-migrator/internal/ledger"
	"github.com/aqasim81/schema-migrator/internal/migration"
	"github.com/aqasim81/schema-migrator/internal/parser"
)

// errDatabaseURLRequired is returned when no database URL is configured.
var errDatabaseURLRequired = errors.New( //nolint:gochecknoglobals // sentinel error
	"database URL is required (set --database-url, MIGRATE_DATABASE_URL, or database_url in config)",
)

// loadAndSortMigrations reads the migration directory and orders it by
// version. Postgres SQL files are checked with the Postgres parser.
func loadAndSortMigrations(cfg *config.Config, dir string, out io.Writer) ([]migration.Migration, error) {
	var opts []migration.LoadOption

	r, err := dialect.New(cfg.Dialect)
	if err != nil {
		return nil, err
	}

	if r.Descriptor().Name == dialect.Postgres {
		opts = append(opts, migration.WithSQLValidator(parser.Validate))
	}

	defs, err := migration.LoadFromDir(dir, opts...)
	if err != nil {
		return nil, fmt.Errorf("loading migrations: %w", err)
	}

	if len(defs) == 0 {
		fmt.Fprintln(out, "No migration files found.")
		return nil, nil //nolint:nilnil // nil,nil signals "no migrations, no error"
	}

	units := make([]migration.Migration, len(defs))
	for i, d := range defs {
		units[i] = d
	}

	return migration.Sort(units), nil
}

func connectDB(ctx context.Context, cfg *config.Config, out io.Writer) (database.DB, error) {
	if cfg.DatabaseURL == "" {
		return nil, errDatabaseURLRequired
	}

	r, err := dialect.New(cfg.Dialect)
	if err != nil {
		return nil, err
	}

	fmt.Fprintf(out, "Connecting to %s\n", config.RedactURL(cfg.DatabaseURL))

	db, err := database.Connect(ctx, r.Descriptor().Name, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	return db, nil
}

// newExecutor wires the ledger, registry and run options for cfg.
func newExecutor(
	cmd *cobra.Command,
	cfg *config.Config,
	db database.DB,
	units []migration.Migration,
	opts ...executor.Option,
) (*executor.Executor, error) {
	r, err := dialect.New(cfg.Dialect)
	if err != nil {
		return nil, err
	}

	registry, err := migration.NewRegistry(units...)
	if err != nil {
		return nil, fmt.Errorf("registering migrations: %w", err)
	}

	logger, err := newLogger(cmd, cfg)
	if err != nil {
		return nil, err
	}

	base := []executor.Option{
		executor.WithLogger(logger),
		executor.WithRegistry(registry),
		executor.WithAppliedBy(cfg.AppliedBy),
		executor.WithLockTimeout(cfg.LockTimeout),
		executor.WithStatementTimeout(cfg.StatementTimeout),
		executor.WithAdvisoryLock(cfg.AdvisoryLock),
	}

	history := ledger.New(r, ledger.WithTable(cfg.HistoryTable))

	return executor.New(db, r, history, append(base, opts...)...), nil
}

// withRun loads migrations, connects and builds an executor, then calls fn.
// fn is skipped when the directory holds no migrations and allowEmpty is false.
func withRun(
	cmd *cobra.Command,
	allowEmpty bool,
	opts []executor.Option,
	fn func(ctx context.Context, exec *executor.Executor, units []migration.Migration) error,
) error {
	cfg := AppConfig
	out := cmd.OutOrStdout()

	if cfg.DatabaseURL == "" {
		return errDatabaseURLRequired
	}

	units, err := loadAndSortMigrations(cfg, cfg.MigrationsDir, out)
	if err != nil {
		return err
	}

	if units == nil && !allowEmpty {
		return nil
	}

	ctx := commandContext(cmd)

	db, err := connectDB(ctx, cfg, out)
	if err != nil {
		return err
	}
	defer db.Close()

	exec, err := newExecutor(cmd, cfg, db, units, opts...)
	if err != nil {
		return err
	}

	return fn(ctx, exec, units)
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}

	return context.Background()
}
