package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aqasim81/schema-migrator/internal/executor"
	"github.com/aqasim81/schema-migrator/internal/migration"
)

var rollbackCmd = &cobra.Command{ //nolint:gochecknoglobals // standard Cobra pattern
	Use:   "rollback",
	Short: "Roll back applied migrations",
	Long: `Roll back one or more previously applied migrations, newest first, by
running their down operations. Use --to to roll back every migration above a
version.`,
	RunE: runRollback,
}

func init() { //nolint:gochecknoinits // standard Cobra pattern for flag registration
	rollbackCmd.Flags().Int("steps", 1, "number of migrations to roll back")
	rollbackCmd.Flags().Int64("to", 0, "roll back every migration above this version")
	rollbackCmd.Flags().Bool("dry-run", false, "show what would be rolled back without executing")
	rootCmd.AddCommand(rollbackCmd)
}

// errRollbackFailed is returned when a down migration failed.
var errRollbackFailed = errors.New("rollback failed")

// errConflictingTargets is returned when both --steps and --to are set.
var errConflictingTargets = errors.New("--steps and --to cannot be combined")

func runRollback(cmd *cobra.Command, _ []string) error {
	steps, _ := cmd.Flags().GetInt("steps")
	target, _ := cmd.Flags().GetInt64("to")
	dryRun, _ := cmd.Flags().GetBool("dry-run")
	toSet := cmd.Flags().Changed("to")

	if toSet && cmd.Flags().Changed("steps") {
		return errConflictingTargets
	}

	out := cmd.OutOrStdout()
	opts := []executor.Option{
		executor.WithDryRun(dryRun),
		executor.WithProgressCallback(progressPrinter(out, "Rolling back")),
	}

	return withRun(cmd, false, opts, func(ctx context.Context, exec *executor.Executor, _ []migration.Migration) error {
		if dryRun {
			fmt.Fprintln(out, "\n--- DRY RUN (no changes will be made) ---")
		}

		var (
			result *executor.Result
			err    error
		)

		if toSet {
			result, err = exec.RollbackTo(ctx, target)
		} else {
			result, err = exec.Rollback(ctx, steps)
		}

		if err != nil {
			return err
		}

		if dryRun {
			for _, o := range result.Skipped {
				fmt.Fprintf(out, "  Would roll back V%d %s\n", o.Version, o.Description)

				for _, stmt := range o.Statements {
					fmt.Fprintf(out, "    %s\n", stmt)
				}
			}

			fmt.Fprintf(out, "\nDry run complete: %d migration(s) would be rolled back.\n", len(result.Skipped))

			return nil
		}

		switch {
		case len(result.Executed) == 0 && !result.HasFailures():
			fmt.Fprintln(out, "Nothing to roll back.")
		default:
			fmt.Fprintf(out, "\nRollback complete: %d rolled back, %d failed.\n",
				len(result.Executed), len(result.Failed))
		}

		if result.HasFailures() {
			return fmt.Errorf("%w: %w", errRollbackFailed, result.Failed[0].Err)
		}

		return nil
	})
}
