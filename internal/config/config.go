// Package config loads CLI configuration from a YAML or TOML file,
// MIGRATE_* environment variables and flags.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Default values for configuration fields.
const (
	DefaultDialect          = "postgres"
	DefaultMigrationsDir    = "./migrations"
	DefaultHistoryTable     = "schema_history"
	DefaultLockTimeout      = 5 * time.Second
	DefaultStatementTimeout = 30 * time.Second
	DefaultTargetPGVersion  = 14
	DefaultFormat           = "text"
	DefaultLogLevel         = "info"
	DefaultLogFormat        = "text"
)

// ErrUnknownKeys indicates a TOML file with keys no field accepts.
var ErrUnknownKeys = errors.New("unknown config keys")

// Config holds the application configuration loaded from file, environment, and flags.
type Config struct {
	DatabaseURL      string
	Dialect          string
	MigrationsDir    string
	HistoryTable     string
	LockTimeout      time.Duration
	StatementTimeout time.Duration
	AdvisoryLock     bool
	AppliedBy        string
	TargetPGVersion  int
	Format           string
	LogLevel         string
	LogFormat        string
}

// fileConfig is the raw file representation with string durations.
type fileConfig struct {
	DatabaseURL      string `yaml:"database_url"      toml:"database_url"`
	Dialect          string `yaml:"dialect"           toml:"dialect"`
	MigrationsDir    string `yaml:"migrations_dir"    toml:"migrations_dir"`
	HistoryTable     string `yaml:"history_table"     toml:"history_table"`
	LockTimeout      string `yaml:"lock_timeout"      toml:"lock_timeout"`
	StatementTimeout string `yaml:"statement_timeout" toml:"statement_timeout"`
	AdvisoryLock     *bool  `yaml:"advisory_lock"     toml:"advisory_lock"`
	AppliedBy        string `yaml:"applied_by"        toml:"applied_by"`
	TargetPGVersion  int    `yaml:"target_pg_version" toml:"target_pg_version"`
	Format           string `yaml:"format"            toml:"format"`
	LogLevel         string `yaml:"log_level"         toml:"log_level"`
	LogFormat        string `yaml:"log_format"        toml:"log_format"`
}

// New returns a Config populated with default values.
func New() *Config {
	return &Config{
		Dialect:          DefaultDialect,
		MigrationsDir:    DefaultMigrationsDir,
		HistoryTable:     DefaultHistoryTable,
		LockTimeout:      DefaultLockTimeout,
		StatementTimeout: DefaultStatementTimeout,
		TargetPGVersion:  DefaultTargetPGVersion,
		Format:           DefaultFormat,
		LogLevel:         DefaultLogLevel,
		LogFormat:        DefaultLogFormat,
	}
}

// Load reads a configuration file and returns a Config. Files ending in
// .toml are decoded as TOML, everything else as YAML.
// If allowMissing is true and the file does not exist, defaults are returned.
func Load(path string, allowMissing bool) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && allowMissing {
			return New(), nil
		}

		return nil, fmt.Errorf("reading config file %s: %w", path, err)
	}

	var raw fileConfig

	if strings.EqualFold(filepath.Ext(path), ".toml") {
		err = decodeTOML(data, &raw)
	} else {
		err = yaml.Unmarshal(data, &raw)
	}

	if err != nil {
		return nil, fmt.Errorf("parsing config file %s: %w", path, err)
	}

	return fromFile(&raw)
}

func decodeTOML(data []byte, raw *fileConfig) error {
	md, err := toml.Decode(string(data), raw)
	if err != nil {
		return err
	}

	if unknown := md.Undecoded(); len(unknown) > 0 {
		keys := make([]string, len(unknown))
		for i, k := range unknown {
			keys[i] = k.String()
		}

		return fmt.Errorf("%w: %s", ErrUnknownKeys, strings.Join(keys, ", "))
	}

	return nil
}

// fromFile converts the raw file representation to a Config with defaults applied.
func fromFile(raw *fileConfig) (*Config, error) {
	cfg := New()

	setString(&cfg.DatabaseURL, raw.DatabaseURL)
	setString(&cfg.Dialect, raw.Dialect)
	setString(&cfg.MigrationsDir, raw.MigrationsDir)
	setString(&cfg.HistoryTable, raw.HistoryTable)
	setString(&cfg.AppliedBy, raw.AppliedBy)
	setString(&cfg.Format, raw.Format)
	setString(&cfg.LogLevel, raw.LogLevel)
	setString(&cfg.LogFormat, raw.LogFormat)

	if raw.LockTimeout != "" {
		d, err := time.ParseDuration(raw.LockTimeout)
		if err != nil {
			return nil, fmt.Errorf("parsing lock_timeout %q: %w", raw.LockTimeout, err)
		}

		cfg.LockTimeout = d
	}

	if raw.StatementTimeout != "" {
		d, err := time.ParseDuration(raw.StatementTimeout)
		if err != nil {
			return nil, fmt.Errorf("parsing statement_timeout %q: %w", raw.StatementTimeout, err)
		}

		cfg.StatementTimeout = d
	}

	if raw.AdvisoryLock != nil {
		cfg.AdvisoryLock = *raw.AdvisoryLock
	}

	if raw.TargetPGVersion != 0 {
		cfg.TargetPGVersion = raw.TargetPGVersion
	}

	return cfg, nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

// MergeEnv overrides config fields from MIGRATE_* environment variables.
// Values that fail to parse leave the field unchanged.
func MergeEnv(cfg *Config) {
	setString(&cfg.DatabaseURL, os.Getenv("MIGRATE_DATABASE_URL"))
	setString(&cfg.Dialect, os.Getenv("MIGRATE_DIALECT"))
	setString(&cfg.MigrationsDir, os.Getenv("MIGRATE_MIGRATIONS_DIR"))
	setString(&cfg.HistoryTable, os.Getenv("MIGRATE_HISTORY_TABLE"))
	setString(&cfg.AppliedBy, os.Getenv("MIGRATE_APPLIED_BY"))
	setString(&cfg.LogLevel, os.Getenv("MIGRATE_LOG_LEVEL"))
	setString(&cfg.LogFormat, os.Getenv("MIGRATE_LOG_FORMAT"))

	if v := os.Getenv("MIGRATE_LOCK_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.LockTimeout = d
		}
	}

	if v := os.Getenv("MIGRATE_STATEMENT_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.StatementTimeout = d
		}
	}

	if v := os.Getenv("MIGRATE_ADVISORY_LOCK"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.AdvisoryLock = b
		}
	}
}
