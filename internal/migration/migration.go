// Package migration defines the versioned migration unit, its naming
// convention and checksum, and the registry used to resolve units for
// rollback.
package migration

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/aqasim81/schema-migrator/internal/operation"
	"github.com/aqasim81/schema-migrator/internal/schema"
)

// Migration is one versioned, reversible schema change. Up and Down must
// return an equal operation sequence on every call.
type Migration interface {
	Version() int64
	Timestamp() int64
	Description() string
	Up() ([]operation.Operation, error)
	Down() ([]operation.Operation, error)
}

// BuildFunc declares operations on a fresh plan.
type BuildFunc func(p *schema.Plan)

// Definition is the standard Migration implementation. Its build functions
// run against a new schema.Plan on every Up or Down call, so nothing is
// shared between checksum computation and execution.
type Definition struct {
	version     int64
	timestamp   int64
	description string
	up          BuildFunc
	down        BuildFunc
	source      string
}

var _ Migration = (*Definition)(nil)

// Define builds a Definition from explicit identity fields. A nil down
// makes the migration irreversible.
func Define(version, timestamp int64, description string, up, down BuildFunc) *Definition {
	return &Definition{
		version:     version,
		timestamp:   timestamp,
		description: description,
		up:          up,
		down:        down,
	}
}

// FromName builds a Definition whose identity is parsed from a name of the
// form V{version}_{timestamp}_{description}.
func FromName(name string, up, down BuildFunc) (*Definition, error) {
	version, timestamp, description, err := ParseName(name)
	if err != nil {
		return nil, err
	}

	return Define(version, timestamp, description, up, down), nil
}

// MustFromName is FromName for package-level declarations. It panics on a
// malformed name.
func MustFromName(name string, up, down BuildFunc) *Definition {
	d, err := FromName(name, up, down)
	if err != nil {
		panic(err)
	}

	return d
}

func (d *Definition) Version() int64      { return d.version }
func (d *Definition) Timestamp() int64    { return d.timestamp }
func (d *Definition) Description() string { return d.description }

// Source returns the file the definition was loaded from, or "" for
// definitions declared in code.
func (d *Definition) Source() string { return d.source }

// Up returns the forward operations.
func (d *Definition) Up() ([]operation.Operation, error) {
	if d.up == nil {
		return nil, fmt.Errorf("%s up: %w", Key(d), ErrNoOperations)
	}

	return run(d.up)
}

// Down returns the reverse operations.
func (d *Definition) Down() ([]operation.Operation, error) {
	if d.down == nil {
		return nil, fmt.Errorf("%s: %w", Key(d), ErrIrreversible)
	}

	return run(d.down)
}

func run(fn BuildFunc) ([]operation.Operation, error) {
	p := schema.NewPlan()
	fn(p)

	return p.Operations()
}

// Checksum returns the SHA-256 hex digest of m's canonical forward
// operation encoding. Up is invoked afresh on every call.
func Checksum(m Migration) (string, error) {
	ops, err := m.Up()
	if err != nil {
		return "", fmt.Errorf("building %s for checksum: %w", Key(m), err)
	}

	data, err := operation.Encode(ops)
	if err != nil {
		return "", fmt.Errorf("encoding %s for checksum: %w", Key(m), err)
	}

	sum := sha256.Sum256(data)

	return hex.EncodeToString(sum[:]), nil
}

// Key returns the registry key of m, V{version}_{timestamp}_{description}.
// ParseName(Key(m)) yields m's identity back.
func Key(m Migration) string {
	return fmt.Sprintf("V%d_%d_%s", m.Version(), m.Timestamp(), strings.ReplaceAll(m.Description(), " ", "_"))
}
