package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/aqasim81/schema-migrator/internal/executor"
	"github.com/aqasim81/schema-migrator/internal/migration"
)

var statusCmd = &cobra.Command{ //nolint:gochecknoglobals // standard Cobra pattern
	Use:   "status",
	Short: "Show migration status",
	Long: `Display the current migration status showing applied and pending
migrations.`,
	RunE: runStatus,
}

func init() { //nolint:gochecknoinits // standard Cobra pattern for flag registration
	statusCmd.Flags().String("format", formatText, "output format (text, json)")
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, _ []string) error {
	format := outputFormat(cmd)
	if format != formatText && format != formatJSON {
		return fmt.Errorf("%w: %q", errUnknownFormat, format)
	}

	out := cmd.OutOrStdout()

	return withRun(cmd, true, nil, func(ctx context.Context, exec *executor.Executor, units []migration.Migration) error {
		report, err := exec.Status(ctx, units)
		if err != nil {
			return err
		}

		if format == formatJSON {
			return writeStatusJSON(out, report)
		}

		printStatus(out, report)

		return nil
	})
}

func printStatus(out io.Writer, report *executor.StatusReport) {
	applied := color.New(color.FgGreen)
	pending := color.New(color.FgYellow)

	fmt.Fprintf(out, "\nApplied: %d  Pending: %d\n\n", report.AppliedCount, report.PendingCount)

	for _, a := range report.Applied {
		fmt.Fprintf(out, "  %s V%d %s (%s, %dms)\n",
			applied.Sprint("[applied]"), a.Version, a.Description,
			a.ExecutedAt.UTC().Format(time.RFC3339), a.ExecutionTimeMs)
	}

	for _, p := range report.Pending {
		fmt.Fprintf(out, "  %s V%d %s\n", pending.Sprint("[pending]"), p.Version, p.Description)
	}
}

type statusJSON struct {
	AppliedCount int           `json:"applied_count"`
	PendingCount int           `json:"pending_count"`
	Applied      []appliedJSON `json:"applied"`
	Pending      []pendingJSON `json:"pending"`
}

type appliedJSON struct {
	Version         int64     `json:"version"`
	Description     string    `json:"description"`
	ExecutedAt      time.Time `json:"executed_at"`
	ExecutionTimeMs int64     `json:"execution_time_ms"`
}

type pendingJSON struct {
	Version     int64  `json:"version"`
	Description string `json:"description"`
}

func writeStatusJSON(out io.Writer, report *executor.StatusReport) error {
	doc := statusJSON{
		AppliedCount: report.AppliedCount,
		PendingCount: report.PendingCount,
		Applied:      make([]appliedJSON, 0, len(report.Applied)),
		Pending:      make([]pendingJSON, 0, len(report.Pending)),
	}

	for _, a := range report.Applied {
		doc.Applied = append(doc.Applied, appliedJSON(a))
	}

	for _, p := range report.Pending {
		doc.Pending = append(doc.Pending, pendingJSON(p))
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")

	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encoding status: %w", err)
	}

	return nil
}
