package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aqasim81/schema-migrator/internal/config"
)

func TestNew_returnsDefaults(t *testing.T) {
	t.Parallel()

	cfg := config.New()

	assert.Empty(t, cfg.DatabaseURL)
	assert.Equal(t, config.DefaultMigrationsDir, cfg.MigrationsDir)
	assert.Equal(t, config.DefaultLockTimeout, cfg.LockTimeout)
	assert.Equal(t, config.DefaultStatementTimeout, cfg.StatementTimeout)
	assert.Equal(t, config.DefaultTargetPGVersion, cfg.TargetPGVersion)
	assert.Equal(t, config.DefaultFormat, cfg.Format)
	assert.Equal(t, config.DefaultDialect, cfg.Dialect)
	assert.Equal(t, config.DefaultHistoryTable, cfg.HistoryTable)
	assert.Equal(t, config.DefaultLogLevel, cfg.LogLevel)
	assert.Equal(t, config.DefaultLogFormat, cfg.LogFormat)
	assert.False(t, cfg.AdvisoryLock)
	assert.Empty(t, cfg.AppliedBy)
}

func TestLoad(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name         string
		content      string
		allowMissing bool
		writeFile    bool
		wantErr      bool
		errContains  string
		check        func(t *testing.T, cfg *config.Config)
	}{
		{
			name:      "valid file parses all fields",
			writeFile: true,
			content: `database_url: "postgres://localhost:5432/testdb"
migrations_dir: "./db/migrations"
lock_timeout: "10s"
statement_timeout: "1m"
target_pg_version: 15
format: "json"
dialect: mysql
history_table: audit.history
advisory_lock: true
applied_by: deployer
log_level: debug
log_format: json
`,
			check: func(t *testing.T, cfg *config.Config) {
				t.Helper()
				assert.Equal(t, "postgres://localhost:5432/testdb", cfg.DatabaseURL)
				assert.Equal(t, "./db/migrations", cfg.MigrationsDir)
				assert.Equal(t, 10*time.Second, cfg.LockTimeout)
				assert.Equal(t, time.Minute, cfg.StatementTimeout)
				assert.Equal(t, 15, cfg.TargetPGVersion)
				assert.Equal(t, "json", cfg.Format)
				assert.Equal(t, "mysql", cfg.Dialect)
				assert.Equal(t, "audit.history", cfg.HistoryTable)
				assert.True(t, cfg.AdvisoryLock)
				assert.Equal(t, "deployer", cfg.AppliedBy)
				assert.Equal(t, "debug", cfg.LogLevel)
				assert.Equal(t, "json", cfg.LogFormat)
			},
		},
		{
			name:      "partial file applies defaults",
			writeFile: true,
			content:   `database_url: "postgres://localhost/mydb"`,
			check: func(t *testing.T, cfg *config.Config) {
				t.Helper()
				assert.Equal(t, "postgres://localhost/mydb", cfg.DatabaseURL)
				assert.Equal(t, config.DefaultMigrationsDir, cfg.MigrationsDir)
				assert.Equal(t, config.DefaultLockTimeout, cfg.LockTimeout)
				assert.Equal(t, config.DefaultStatementTimeout, cfg.StatementTimeout)
				assert.Equal(t, config.DefaultTargetPGVersion, cfg.TargetPGVersion)
				assert.Equal(t, config.DefaultFormat, cfg.Format)
			},
		},
		{
			name:      "empty file returns defaults",
			writeFile: true,
			content:   "",
			check: func(t *testing.T, cfg *config.Config) {
				t.Helper()
				assert.Equal(t, config.DefaultMigrationsDir, cfg.MigrationsDir)
				assert.Equal(t, config.DefaultLockTimeout, cfg.LockTimeout)
			},
		},
		{
			name:         "missing file with allowMissing returns defaults",
			writeFile:    false,
			allowMissing: true,
			check: func(t *testing.T, cfg *config.Config) {
				t.Helper()
				assert.Equal(t, config.DefaultMigrationsDir, cfg.MigrationsDir)
				assert.Equal(t, config.DefaultLockTimeout, cfg.LockTimeout)
			},
		},
		{
			name:         "missing file without allowMissing returns error",
			writeFile:    false,
			allowMissing: false,
			wantErr:      true,
			errContains:  "reading config file",
		},
		{
			name:        "invalid YAML returns error",
			writeFile:   true,
			content:     "{{{invalid yaml",
			wantErr:     true,
			errContains: "parsing config file",
		},
		{
			name:        "invalid lock_timeout duration returns error",
			writeFile:   true,
			content:     `lock_timeout: "not-a-duration"`,
			wantErr:     true,
			errContains: "parsing lock_timeout",
		},
		{
			name:        "invalid statement_timeout duration returns error",
			writeFile:   true,
			content:     `statement_timeout: "garbage"`,
			wantErr:     true,
			errContains: "parsing statement_timeout",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			dir := t.TempDir()
			path := filepath.Join(dir, "migrate.yml")

			if tt.writeFile {
				require.NoError(t, os.WriteFile(path, []byte(tt.content), 0o644))
			}

			cfg, err := config.Load(path, tt.allowMissing)

			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errContains)

				return
			}

			require.NoError(t, err)
			require.NotNil(t, cfg)

			if tt.check != nil {
				tt.check(t, cfg)
			}
		})
	}
}

func TestMergeEnv_overridesFields(t *testing.T) {
	tests := []struct {
		name  string
		env   map[string]string
		check func(t *testing.T, cfg *config.Config)
	}{
		{
			name: "overrides database URL",
			env:  map[string]string{"MIGRATE_DATABASE_URL": "postgres://env-host/db"},
			check: func(t *testing.T, cfg *config.Config) {
				t.Helper()
				assert.Equal(t, "postgres://env-host/db", cfg.DatabaseURL)
			},
		},
		{
			name: "overrides migrations dir",
			env:  map[string]string{"MIGRATE_MIGRATIONS_DIR": "/custom/path"},
			check: func(t *testing.T, cfg *config.Config) {
				t.Helper()
				assert.Equal(t, "/custom/path", cfg.MigrationsDir)
			},
		},
		{
			name: "overrides lock timeout",
			env:  map[string]string{"MIGRATE_LOCK_TIMEOUT": "15s"},
			check: func(t *testing.T, cfg *config.Config) {
				t.Helper()
				assert.Equal(t, 15*time.Second, cfg.LockTimeout)
			},
		},
		{
			name: "overrides statement timeout",
			env:  map[string]string{"MIGRATE_STATEMENT_TIMEOUT": "2m"},
			check: func(t *testing.T, cfg *config.Config) {
				t.Helper()
				assert.Equal(t, 2*time.Minute, cfg.StatementTimeout)
			},
		},
		{
			name: "invalid duration preserves original",
			env:  map[string]string{"MIGRATE_LOCK_TIMEOUT": "not-valid"},
			check: func(t *testing.T, cfg *config.Config) {
				t.Helper()
				assert.Equal(t, config.DefaultLockTimeout, cfg.LockTimeout)
			},
		},
		{
			name: "overrides dialect, table and identity",
			env: map[string]string{
				"MIGRATE_DIALECT":       "sqlite",
				"MIGRATE_HISTORY_TABLE": "migrations_log",
				"MIGRATE_APPLIED_BY":    "ci",
				"MIGRATE_LOG_LEVEL":     "warn",
				"MIGRATE_LOG_FORMAT":    "json",
			},
			check: func(t *testing.T, cfg *config.Config) {
				t.Helper()
				assert.Equal(t, "sqlite", cfg.Dialect)
				assert.Equal(t, "migrations_log", cfg.HistoryTable)
				assert.Equal(t, "ci", cfg.AppliedBy)
				assert.Equal(t, "warn", cfg.LogLevel)
				assert.Equal(t, "json", cfg.LogFormat)
			},
		},
		{
			name: "overrides advisory lock",
			env:  map[string]string{"MIGRATE_ADVISORY_LOCK": "true"},
			check: func(t *testing.T, cfg *config.Config) {
				t.Helper()
				assert.True(t, cfg.AdvisoryLock)
			},
		},
		{
			name: "invalid bool preserves original",
			env:  map[string]string{"MIGRATE_ADVISORY_LOCK": "maybe"},
			check: func(t *testing.T, cfg *config.Config) {
				t.Helper()
				assert.False(t, cfg.AdvisoryLock)
			},
		},
		{
			name: "unset env vars preserve original",
			env:  map[string]string{},
			check: func(t *testing.T, cfg *config.Config) {
				t.Helper()
				assert.Equal(t, config.DefaultMigrationsDir, cfg.MigrationsDir)
				assert.Equal(t, config.DefaultLockTimeout, cfg.LockTimeout)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			cfg := config.New()
			config.MergeEnv(cfg)

			tt.check(t, cfg)
		})
	}
}

func TestLoad_toml(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		content     string
		errContains string
		check       func(t *testing.T, cfg *config.Config)
	}{
		{
			name: "all fields",
			content: `database_url = "root:pw@tcp(localhost:3306)/app"
dialect = "mysql"
lock_timeout = "2s"
advisory_lock = true
history_table = "history"
`,
			check: func(t *testing.T, cfg *config.Config) {
				t.Helper()
				assert.Equal(t, "root:pw@tcp(localhost:3306)/app", cfg.DatabaseURL)
				assert.Equal(t, "mysql", cfg.Dialect)
				assert.Equal(t, 2*time.Second, cfg.LockTimeout)
				assert.True(t, cfg.AdvisoryLock)
				assert.Equal(t, "history", cfg.HistoryTable)
				assert.Equal(t, config.DefaultStatementTimeout, cfg.StatementTimeout)
			},
		},
		{
			name:        "unknown key",
			content:     `migration_dir = "typo"`,
			errContains: "unknown config keys: migration_dir",
		},
		{
			name:        "invalid syntax",
			content:     `dialect = `,
			errContains: "parsing config file",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			path := filepath.Join(t.TempDir(), "migrate.toml")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0o644))

			cfg, err := config.Load(path, false)

			if tt.errContains != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errContains)

				return
			}

			require.NoError(t, err)
			tt.check(t, cfg)
		})
	}
}
