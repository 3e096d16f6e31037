package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/aqasim81/schema-migrator/internal/analyzer"
	"github.com/aqasim81/schema-migrator/internal/analyzer/rules"
	"github.com/aqasim81/schema-migrator/internal/config"
	"github.com/aqasim81/schema-migrator/internal/dialect"
	"github.com/aqasim81/schema-migrator/internal/executor"
	"github.com/aqasim81/schema-migrator/internal/migration"
)

// errDangerousMigrations is returned when apply is blocked by high/critical findings.
var errDangerousMigrations = errors.New("apply aborted: dangerous migrations detected (use --force to override)")

// errMigrationFailed is returned when a run stopped at a failed migration.
var errMigrationFailed = errors.New("migration failed")

var applyCmd = &cobra.Command{ //nolint:gochecknoglobals // standard Cobra pattern
	Use:   "apply",
	Short: "Apply pending migrations",
	Long: `Apply pending database migrations in version order, one transaction per
migration, with configurable lock and statement timeouts. Supports dry-run mode
and force execution past analyzer findings.`,
	RunE: runApply,
}

func init() { //nolint:gochecknoinits // standard Cobra pattern for flag registration
	applyCmd.Flags().Bool("dry-run", false, "show what would be applied without executing")
	applyCmd.Flags().Bool("force", false, "skip safety checks")
	applyCmd.Flags().Bool("advisory-lock", false, "hold a database lock for the whole run")
	applyCmd.Flags().Duration("lock-timeout", 0, "override lock timeout (e.g., 10s, 1m)")
	applyCmd.Flags().Duration("statement-timeout", 0, "override statement timeout (e.g., 30s, 5m)")
	rootCmd.AddCommand(applyCmd)
}

func runApply(cmd *cobra.Command, _ []string) error {
	cfg := *AppConfig

	if cfg.DatabaseURL == "" {
		return errDatabaseURLRequired
	}

	dryRun, _ := cmd.Flags().GetBool("dry-run")
	force, _ := cmd.Flags().GetBool("force")

	if cmd.Flags().Changed("lock-timeout") {
		cfg.LockTimeout, _ = cmd.Flags().GetDuration("lock-timeout")
	}

	if cmd.Flags().Changed("statement-timeout") {
		cfg.StatementTimeout, _ = cmd.Flags().GetDuration("statement-timeout")
	}

	if cmd.Flags().Changed("advisory-lock") {
		cfg.AdvisoryLock, _ = cmd.Flags().GetBool("advisory-lock")
	}

	out := cmd.OutOrStdout()

	sorted, err := loadAndSortMigrations(&cfg, cfg.MigrationsDir, out)
	if err != nil || sorted == nil {
		return err
	}

	ctx := commandContext(cmd)

	db, err := connectDB(ctx, &cfg, out)
	if err != nil {
		return err
	}
	defer db.Close()

	exec, err := newExecutor(cmd, &cfg, db, sorted,
		executor.WithDryRun(dryRun),
		executor.WithProgressCallback(progressPrinter(out, "Applying")),
	)
	if err != nil {
		return err
	}

	if !force && !dryRun {
		pending, pendingErr := pendingMigrations(ctx, exec, sorted)
		if pendingErr != nil {
			return pendingErr
		}

		blocked, analyzeErr := checkDangerousMigrations(cmd, pending, &cfg)
		if analyzeErr != nil {
			return analyzeErr
		}

		if blocked {
			return errDangerousMigrations
		}
	}

	return executeMigrations(ctx, out, exec, sorted, dryRun)
}

// pendingMigrations returns the units without a SUCCESS record, in order.
func pendingMigrations(
	ctx context.Context, exec *executor.Executor, sorted []migration.Migration,
) ([]migration.Migration, error) {
	report, err := exec.Status(ctx, sorted)
	if err != nil {
		return nil, fmt.Errorf("reading migration status: %w", err)
	}

	want := make(map[int64]bool, report.PendingCount)
	for _, p := range report.Pending {
		want[p.Version] = true
	}

	pending := make([]migration.Migration, 0, len(want))

	for _, m := range sorted {
		if want[m.Version()] {
			pending = append(pending, m)
		}
	}

	return pending, nil
}

func executeMigrations(
	ctx context.Context,
	out io.Writer,
	exec *executor.Executor,
	sorted []migration.Migration,
	dryRun bool,
) error {
	if dryRun {
		fmt.Fprintln(out, "\n--- DRY RUN (no changes will be made) ---")
	}

	result, err := exec.Migrate(ctx, sorted)
	if err != nil {
		return err
	}

	if dryRun {
		for _, o := range result.Skipped {
			for _, stmt := range o.Statements {
				fmt.Fprintf(out, "  %s\n", stmt)
			}
		}

		fmt.Fprintf(out, "\nDry run complete: %d migration(s) would be applied.\n", countWithStatements(result.Skipped))
	} else {
		fmt.Fprintf(out, "\nApply complete: %d applied, %d skipped, %d failed.\n",
			len(result.Executed), len(result.Skipped), len(result.Failed))
	}

	if result.HasFailures() {
		return fmt.Errorf("%w: %w", errMigrationFailed, result.Failed[0].Err)
	}

	return nil
}

// countWithStatements counts dry-run outcomes; already-applied migrations
// are skipped without rendering.
func countWithStatements(outcomes []executor.Outcome) int {
	n := 0

	for _, o := range outcomes {
		if o.Statements != nil {
			n++
		}
	}

	return n
}

// progressPrinter prints one line per migration as the executor reports it.
func progressPrinter(out io.Writer, verb string) func(executor.ProgressEvent) {
	ok := color.New(color.FgGreen)
	failed := color.New(color.FgRed, color.Bold)

	return func(event executor.ProgressEvent) {
		switch event.Status {
		case executor.StatusStarting:
			fmt.Fprintf(out, "  %s %s ... ", verb, migration.Key(event.Migration))
		case executor.StatusCompleted:
			fmt.Fprintf(out, "%s (%s)\n", ok.Sprint("done"), event.Duration.Truncate(time.Millisecond))
		case executor.StatusFailed:
			fmt.Fprintf(out, "%s\n", failed.Sprint("FAILED"))
			fmt.Fprintf(out, "    Error: %v\n", event.Error)
		case executor.StatusSkipped:
		}
	}
}

// checkDangerousMigrations runs the analyzer and returns true if
// HIGH/CRITICAL findings were found (blocking apply). Findings describe
// PostgreSQL locking, so other dialects are not analyzed.
func checkDangerousMigrations(cmd *cobra.Command, sorted []migration.Migration, cfg *config.Config) (bool, error) {
	r, err := dialect.New(cfg.Dialect)
	if err != nil {
		return false, err
	}

	if r.Descriptor().Name != dialect.Postgres {
		return false, nil
	}

	a := analyzer.New(
		analyzer.WithRegistry(rules.NewDefaultRegistry()),
		analyzer.WithPGVersion(cfg.TargetPGVersion),
	)

	results, err := a.AnalyzeAll(sorted)
	if err != nil {
		return false, fmt.Errorf("analyzing migrations: %w", err)
	}

	hasHighOrCritical := printAnalysisResults(cmd, results)

	return hasHighOrCritical, nil
}
