package migration

import (
	"errors"
	"fmt"
	"sort"
)

// Sort returns a new slice of migrations ordered by version, then timestamp.
// The sort is stable to preserve input order for equal keys.
func Sort(units []Migration) []Migration {
	sorted := make([]Migration, len(units))
	copy(sorted, units)

	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Version() != sorted[j].Version() {
			return sorted[i].Version() < sorted[j].Version()
		}

		return sorted[i].Timestamp() < sorted[j].Timestamp()
	})

	return sorted
}

// Validate rejects non-positive and duplicate versions. Every problem is
// reported.
func Validate(units []Migration) error {
	var errs []error

	seen := make(map[int64]string, len(units))

	for _, m := range units {
		if m.Version() <= 0 {
			errs = append(errs, fmt.Errorf("%s: %w", Key(m), ErrInvalidVersion))
			continue
		}

		if prev, ok := seen[m.Version()]; ok {
			errs = append(errs, fmt.Errorf("%s and %s: %w", prev, Key(m), ErrDuplicateVersion))
			continue
		}

		seen[m.Version()] = Key(m)
	}

	return errors.Join(errs...)
}
