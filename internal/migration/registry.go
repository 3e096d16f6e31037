package migration

import (
	"fmt"
	"sort"
)

// Factory produces the Migration registered for a version.
type Factory func() Migration

// Registry maps versions to factories so rollback can re-obtain a unit
// from its ledger record.
type Registry struct {
	factories map[int64]Factory
}

// NewRegistry returns a registry holding units.
func NewRegistry(units ...Migration) (*Registry, error) {
	r := &Registry{factories: make(map[int64]Factory, len(units))}

	for _, m := range units {
		unit := m
		if err := r.Register(unit.Version(), func() Migration { return unit }); err != nil {
			return nil, err
		}
	}

	return r, nil
}

// Register adds a factory for version.
func (r *Registry) Register(version int64, f Factory) error {
	if version <= 0 {
		return fmt.Errorf("registering version %d: %w", version, ErrInvalidVersion)
	}

	if _, ok := r.factories[version]; ok {
		return fmt.Errorf("registering version %d: %w", version, ErrDuplicateVersion)
	}

	r.factories[version] = f

	return nil
}

// Resolve returns the Migration registered for version.
func (r *Registry) Resolve(version int64) (Migration, error) {
	f, ok := r.factories[version]
	if !ok {
		return nil, fmt.Errorf("version %d: %w", version, ErrNotRegistered)
	}

	return f(), nil
}

// Versions returns the registered versions in ascending order.
func (r *Registry) Versions() []int64 {
	vs := make([]int64, 0, len(r.factories))
	for v := range r.factories {
		vs = append(vs, v)
	}

	sort.Slice(vs, func(i, j int) bool { return vs[i] < vs[j] })

	return vs
}
