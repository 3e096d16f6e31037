package migration

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var namePattern = regexp.MustCompile(`^V(\d+)_(\d+)_(.+)$`) //nolint:gochecknoglobals // compiled once

// ParseName splits V{version}_{timestamp}_{description} into its parts.
// Underscores in the description become spaces.
func ParseName(name string) (version, timestamp int64, description string, err error) {
	m := namePattern.FindStringSubmatch(name)
	if m == nil {
		return 0, 0, "", fmt.Errorf("%w: %q does not match V{version}_{timestamp}_{description}", ErrInvalidName, name)
	}

	version, err = strconv.ParseInt(m[1], 10, 64)
	if err != nil || version <= 0 {
		return 0, 0, "", fmt.Errorf("%w: %q: version must be a positive integer", ErrInvalidName, name)
	}

	timestamp, err = strconv.ParseInt(m[2], 10, 64)
	if err != nil {
		return 0, 0, "", fmt.Errorf("%w: %q: timestamp out of range", ErrInvalidName, name)
	}

	description = strings.TrimSpace(strings.ReplaceAll(m[3], "_", " "))
	if description == "" {
		return 0, 0, "", fmt.Errorf("%w: %q: empty description", ErrInvalidName, name)
	}

	return version, timestamp, description, nil
}
