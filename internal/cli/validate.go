package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aqasim81/schema-migrator/internal/executor"
	"github.com/aqasim81/schema-migrator/internal/migration"
)

var validateCmd = &cobra.Command{ //nolint:gochecknoglobals // standard Cobra pattern
	Use:   "validate",
	Short: "Check the history table against migration files",
	Long: `Compare every history record with the migration files. Reports failed
migrations, applied versions whose file is gone, and applied migrations whose
content changed.`,
	RunE: runValidate,
}

func init() { //nolint:gochecknoinits // standard Cobra pattern for flag registration
	rootCmd.AddCommand(validateCmd)
}

// errValidationFailed is returned when validate reports at least one issue.
var errValidationFailed = errors.New("validation failed")

func runValidate(cmd *cobra.Command, _ []string) error {
	out := cmd.OutOrStdout()

	return withRun(cmd, true, nil, func(ctx context.Context, exec *executor.Executor, units []migration.Migration) error {
		result, err := exec.Validate(ctx, units)
		if err != nil {
			return err
		}

		if result.Valid {
			fmt.Fprintln(out, "History is valid.")
			return nil
		}

		for _, issue := range result.Issues {
			fmt.Fprintf(out, "  [%s] %s\n", issue.Kind, issue)
		}

		return fmt.Errorf("%w: %d issue(s)", errValidationFailed, len(result.Issues))
	})
}
