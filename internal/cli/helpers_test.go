package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"

	"github.com/aqasim81/schema-migrator/internal/config"
)

const fixtureDir = "./testdata/migrations"

// useConfig sets AppConfig for the duration of the test and restores it on cleanup.
func useConfig(t *testing.T, cfg *config.Config) {
	t.Helper()

	old := AppConfig
	AppConfig = cfg

	t.Cleanup(func() { AppConfig = old })
}

// useSQLite points AppConfig at a fresh SQLite file and migrationsDir.
func useSQLite(t *testing.T, migrationsDir string) *config.Config {
	t.Helper()

	cfg := config.New()
	cfg.Dialect = "sqlite"
	cfg.DatabaseURL = filepath.Join(t.TempDir(), "migrate.db")
	cfg.MigrationsDir = migrationsDir
	cfg.AppliedBy = "cli-test"
	cfg.LogLevel = "error"

	useConfig(t, cfg)

	return cfg
}

// newTestCmd builds a command around run, registering flags with addFlags.
// Logs go to a discarded buffer so only command output is captured.
func newTestCmd(
	run func(*cobra.Command, []string) error,
	addFlags func(cmd *cobra.Command),
) (*cobra.Command, *bytes.Buffer) {
	buf := new(bytes.Buffer)
	cmd := &cobra.Command{Use: "test", RunE: run, SilenceUsage: true, SilenceErrors: true}

	if addFlags != nil {
		addFlags(cmd)
	}

	cmd.SetOut(buf)
	cmd.SetErr(new(bytes.Buffer))

	return cmd, buf
}

func applyFlags(cmd *cobra.Command) {
	cmd.Flags().Bool("dry-run", false, "")
	cmd.Flags().Bool("force", false, "")
	cmd.Flags().Bool("advisory-lock", false, "")
	cmd.Flags().Duration("lock-timeout", 0, "")
	cmd.Flags().Duration("statement-timeout", 0, "")
}

func rollbackFlags(cmd *cobra.Command) {
	cmd.Flags().Int("steps", 1, "")
	cmd.Flags().Int64("to", 0, "")
	cmd.Flags().Bool("dry-run", false, "")
}

func formatFlag(cmd *cobra.Command) {
	cmd.Flags().String("format", formatText, "")
}

// execute runs a fresh command with args and returns its output.
func execute(
	t *testing.T,
	run func(*cobra.Command, []string) error,
	addFlags func(cmd *cobra.Command),
	args ...string,
) (string, error) {
	t.Helper()

	cmd, buf := newTestCmd(run, addFlags)
	cmd.SetArgs(args)

	err := cmd.Execute()

	return buf.String(), err
}

// copyFixtures copies the fixture migrations into a temp dir the test may edit.
func copyFixtures(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()

	entries, err := os.ReadDir(fixtureDir)
	require.NoError(t, err)

	for _, e := range entries {
		data, err := os.ReadFile(filepath.Join(fixtureDir, e.Name()))
		require.NoError(t, err)
		require.NoError(t, os.WriteFile(filepath.Join(dir, e.Name()), data, 0o600))
	}

	return dir
}
