package config

import (
	"net/url"
	"strings"

	"github.com/go-sql-driver/mysql"
)

const redacted = "***"

// RedactURL replaces the password in a connection string with "***".
// URL-style DSNs and MySQL DSNs (user:pass@tcp(host)/db) are understood.
// Anything else, or a DSN without a password, is returned unchanged.
func RedactURL(raw string) string {
	if raw == "" {
		return ""
	}

	if strings.Contains(raw, "://") {
		return redactURL(raw)
	}

	return redactMySQL(raw)
}

func redactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.User == nil {
		return raw
	}

	if _, hasPassword := u.User.Password(); !hasPassword {
		return raw
	}

	// Splice the raw string so the rest of the URL keeps its original encoding.
	afterScheme := strings.Index(raw, "://") + len("://")

	atIdx := strings.Index(raw[afterScheme:], "@")
	if atIdx < 0 {
		return raw
	}

	userinfo := raw[afterScheme : afterScheme+atIdx]

	colonIdx := strings.Index(userinfo, ":")
	if colonIdx < 0 {
		return raw
	}

	return raw[:afterScheme] + userinfo[:colonIdx+1] + redacted + raw[afterScheme+atIdx:]
}

func redactMySQL(raw string) string {
	cfg, err := mysql.ParseDSN(raw)
	if err != nil || cfg.Passwd == "" {
		return raw
	}

	cfg.Passwd = redacted

	return cfg.FormatDSN()
}
