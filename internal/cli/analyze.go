package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/aqasim81/schema-migrator/internal/analyzer"
	"github.com/aqasim81/schema-migrator/internal/analyzer/rules"
	"github.com/aqasim81/schema-migrator/internal/migration"
)

var analyzeCmd = &cobra.Command{ //nolint:gochecknoglobals // standard Cobra pattern
	Use:   "analyze [migration-dir]",
	Short: "Analyze migrations for dangerous operations",
	Long: `Analyze migrations for DDL that could cause table locks, downtime, or
data loss on PostgreSQL. Reports findings with severity levels and suggests
safe alternatives. No database connection is needed.`,
	RunE: runAnalyze,
}

func init() { //nolint:gochecknoinits // standard Cobra pattern for flag registration
	analyzeCmd.Flags().String("format", formatText, "output format (text, json, github-actions)")
	analyzeCmd.Flags().Bool("fail-on-high", false, "exit with non-zero code if high/critical findings exist")
	rootCmd.AddCommand(analyzeCmd)
}

const (
	formatText          = "text"
	formatJSON          = "json"
	formatGitHubActions = "github-actions"
)

// errHighSeverityFindings is returned when --fail-on-high is set and high/critical findings exist.
var errHighSeverityFindings = errors.New("high or critical severity findings detected")

// errUnknownFormat is returned for an unsupported --format value.
var errUnknownFormat = errors.New("unknown output format")

func runAnalyze(cmd *cobra.Command, args []string) error {
	dir := AppConfig.MigrationsDir
	if len(args) > 0 {
		dir = args[0]
	}

	format := outputFormat(cmd)

	if format != formatText && format != formatJSON && format != formatGitHubActions {
		return fmt.Errorf("%w: %q", errUnknownFormat, format)
	}

	sorted, err := loadAndSortMigrations(AppConfig, dir, cmd.OutOrStdout())
	if err != nil || sorted == nil {
		return err
	}

	a := analyzer.New(
		analyzer.WithRegistry(rules.NewDefaultRegistry()),
		analyzer.WithPGVersion(AppConfig.TargetPGVersion),
	)

	results, err := a.AnalyzeAll(sorted)
	if err != nil {
		return fmt.Errorf("analyzing migrations: %w", err)
	}

	var hasHighOrCritical bool

	switch format {
	case formatJSON:
		hasHighOrCritical, err = writeAnalysisJSON(cmd.OutOrStdout(), results)
		if err != nil {
			return err
		}
	case formatGitHubActions:
		hasHighOrCritical = writeAnnotations(cmd.OutOrStdout(), results)
	default:
		hasHighOrCritical = printAnalysisResults(cmd, results)
	}

	failOnHigh, _ := cmd.Flags().GetBool("fail-on-high")
	if failOnHigh && hasHighOrCritical {
		return errHighSeverityFindings
	}

	return nil
}

// outputFormat returns --format when set, then the configured format.
func outputFormat(cmd *cobra.Command) string {
	if cmd.Flags().Changed("format") || AppConfig.Format == "" {
		format, _ := cmd.Flags().GetString("format")
		if format == "" {
			return formatText
		}

		return format
	}

	return AppConfig.Format
}

func printAnalysisResults(cmd *cobra.Command, results []analyzer.AnalysisResult) bool {
	out := cmd.OutOrStdout()
	totalFindings := 0
	hasHighOrCritical := false

	for _, r := range results {
		if len(r.Findings) == 0 {
			continue
		}

		fmt.Fprintf(out, "\n=== %s ===\n", migration.Key(r.Migration))

		for _, f := range r.Findings {
			fmt.Fprintf(out, "  %s %s\n", f.Severity.Label(), f.Message)
			fmt.Fprintf(out, "    Table: %s\n", f.Table)
			fmt.Fprintf(out, "    Rule:  %s\n", f.Rule)

			if f.LockType != "" {
				fmt.Fprintf(out, "    Lock:  %s\n", f.LockType)
			}

			if f.Statement != "" {
				fmt.Fprintf(out, "    SQL:   %s\n", f.Statement)
			}

			fmt.Fprintf(out, "    Fix:   %s\n\n", f.Suggestion)
		}

		totalFindings += len(r.Findings)

		if r.HasHighOrCritical() {
			hasHighOrCritical = true
		}
	}

	if totalFindings == 0 {
		fmt.Fprintln(out, "No dangerous operations detected.")
	} else {
		fmt.Fprintf(out, "Found %d finding(s) across %d migration(s).\n", totalFindings, countMigrationsWithFindings(results))
	}

	return hasHighOrCritical
}

type findingJSON struct {
	Rule       string `json:"rule"`
	Severity   string `json:"severity"`
	Table      string `json:"table"`
	Statement  string `json:"statement,omitempty"`
	Message    string `json:"message"`
	Suggestion string `json:"suggestion"`
	LockType   string `json:"lock_type,omitempty"`
	OpIndex    int    `json:"op_index"`
}

type analysisJSON struct {
	Migration   string        `json:"migration"`
	Version     int64         `json:"version"`
	MaxSeverity string        `json:"max_severity"`
	Findings    []findingJSON `json:"findings"`
}

func writeAnalysisJSON(out io.Writer, results []analyzer.AnalysisResult) (bool, error) {
	docs := make([]analysisJSON, 0, len(results))
	hasHighOrCritical := false

	for _, r := range results {
		doc := analysisJSON{
			Migration:   migration.Key(r.Migration),
			Version:     r.Migration.Version(),
			MaxSeverity: r.MaxSeverity.String(),
			Findings:    make([]findingJSON, 0, len(r.Findings)),
		}

		for _, f := range r.Findings {
			doc.Findings = append(doc.Findings, findingJSON{
				Rule:       f.Rule,
				Severity:   f.Severity.String(),
				Table:      f.Table,
				Statement:  f.Statement,
				Message:    f.Message,
				Suggestion: f.Suggestion,
				LockType:   f.LockType,
				OpIndex:    f.OpIndex,
			})
		}

		if r.HasHighOrCritical() {
			hasHighOrCritical = true
		}

		docs = append(docs, doc)
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")

	if err := enc.Encode(docs); err != nil {
		return false, fmt.Errorf("encoding analysis: %w", err)
	}

	return hasHighOrCritical, nil
}

// writeAnnotations prints GitHub Actions workflow commands, one per finding.
func writeAnnotations(out io.Writer, results []analyzer.AnalysisResult) bool {
	hasHighOrCritical := false

	for _, r := range results {
		for _, f := range r.Findings {
			level := "warning"
			if f.Severity >= analyzer.High {
				level = "error"
				hasHighOrCritical = true
			}

			fmt.Fprintf(out, "::%s title=%s (%s)::%s: %s. %s\n",
				level, f.Rule, f.Severity, migration.Key(r.Migration), f.Message, f.Suggestion)
		}
	}

	return hasHighOrCritical
}

func countMigrationsWithFindings(results []analyzer.AnalysisResult) int {
	count := 0

	for _, r := range results {
		if len(r.Findings) > 0 {
			count++
		}
	}

	return count
}
