package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aqasim81/schema-migrator/internal/executor"
	"github.com/aqasim81/schema-migrator/internal/migration"
)

var planCmd = &cobra.Command{ //nolint:gochecknoglobals // standard Cobra pattern
	Use:   "plan",
	Short: "Show execution plan for pending migrations",
	Long: `Display the SQL each pending migration would run, in execution order,
and whether it runs inside a transaction. Nothing is executed.`,
	RunE: runPlan,
}

func init() { //nolint:gochecknoinits // standard Cobra pattern for flag registration
	rootCmd.AddCommand(planCmd)
}

func runPlan(cmd *cobra.Command, _ []string) error {
	out := cmd.OutOrStdout()

	return withRun(cmd, false, nil, func(ctx context.Context, exec *executor.Executor, units []migration.Migration) error {
		planned, err := exec.Plan(ctx, units)
		if err != nil {
			return err
		}

		if len(planned) == 0 {
			fmt.Fprintln(out, "No pending migrations.")
			return nil
		}

		for i, p := range planned {
			mode := "transactional"
			if !p.Transactional {
				mode = "non-transactional"
			}

			fmt.Fprintf(out, "\n%d. V%d %s (%s)\n", i+1, p.Version, p.Description, mode)

			for _, stmt := range p.Statements {
				fmt.Fprintf(out, "   %s\n", stmt)
			}
		}

		fmt.Fprintf(out, "\n%d pending migration(s).\n", len(planned))

		return nil
	})
}
