package schema

import (
	"fmt"
	"strings"

	"github.com/aqasim81/schema-migrator/internal/operation"
)

// ForeignKeyBuilder accumulates a foreign key declaration.
type ForeignKeyBuilder struct {
	fk operation.ForeignKey
}

// FK starts a foreign key on the given source columns, used with Plan.AddForeignKey.
func FK(columns ...string) *ForeignKeyBuilder {
	return &ForeignKeyBuilder{fk: operation.ForeignKey{Columns: append([]string(nil), columns...)}}
}

// Named overrides the generated constraint name.
func (b *ForeignKeyBuilder) Named(name string) *ForeignKeyBuilder {
	b.fk.Name = name
	return b
}

// References sets the target table and columns.
func (b *ForeignKeyBuilder) References(table string, columns ...string) *ForeignKeyBuilder {
	b.fk.RefTable = table
	b.fk.RefColumns = append([]string(nil), columns...)

	return b
}

// InSchema sets the schema of the referenced table.
func (b *ForeignKeyBuilder) InSchema(schema string) *ForeignKeyBuilder {
	b.fk.RefSchema = schema
	return b
}

// OnDelete sets the ON DELETE action.
func (b *ForeignKeyBuilder) OnDelete(a operation.Action) *ForeignKeyBuilder {
	b.fk.OnDelete = a
	return b
}

// OnUpdate sets the ON UPDATE action.
func (b *ForeignKeyBuilder) OnUpdate(a operation.Action) *ForeignKeyBuilder {
	b.fk.OnUpdate = a
	return b
}

func (b *ForeignKeyBuilder) build(table string) (operation.ForeignKey, error) {
	fk := b.fk
	fk.Columns = append([]string(nil), fk.Columns...)
	fk.RefColumns = append([]string(nil), fk.RefColumns...)

	if len(fk.Columns) == 0 {
		return fk, fmt.Errorf("foreign key on %q: %w: no source columns", table, ErrInvalidForeignKey)
	}

	if fk.RefTable == "" || len(fk.RefColumns) == 0 {
		return fk, fmt.Errorf("foreign key on %q: %w: missing referenced table or columns", table, ErrInvalidForeignKey)
	}

	if len(fk.RefColumns) != len(fk.Columns) {
		return fk, fmt.Errorf("foreign key on %q: %w: %d source columns but %d referenced",
			table, ErrInvalidForeignKey, len(fk.Columns), len(fk.RefColumns))
	}

	if !validAction(fk.OnDelete) {
		return fk, fmt.Errorf("foreign key on %q: %w: unknown ON DELETE action %q", table, ErrInvalidForeignKey, fk.OnDelete)
	}

	if !validAction(fk.OnUpdate) {
		return fk, fmt.Errorf("foreign key on %q: %w: unknown ON UPDATE action %q", table, ErrInvalidForeignKey, fk.OnUpdate)
	}

	if fk.Name == "" {
		fk.Name = constraintName("fk", table, fk.Columns)
	}

	return fk, nil
}

// validAction reports whether a is unset or one of the referential actions.
func validAction(a operation.Action) bool {
	switch a {
	case "", operation.NoAction, operation.Restrict, operation.Cascade, operation.SetNull, operation.SetDefault:
		return true
	default:
		return false
	}
}

// IndexBuilder accumulates an index declaration.
type IndexBuilder struct {
	idx operation.Index
}

// Idx starts an index declaration, used with Plan.CreateIndex. An empty
// name is replaced by a generated one.
func Idx(name string, columns ...string) *IndexBuilder {
	return &IndexBuilder{idx: operation.Index{Name: name, Columns: append([]string(nil), columns...)}}
}

// Unique makes the index unique.
func (b *IndexBuilder) Unique() *IndexBuilder {
	b.idx.Unique = true
	return b
}

// Concurrently builds the index without blocking writes where the dialect supports it.
func (b *IndexBuilder) Concurrently() *IndexBuilder {
	b.idx.Concurrently = true
	return b
}

func (b *IndexBuilder) build(table string) (operation.Index, error) {
	idx := b.idx
	idx.Columns = append([]string(nil), idx.Columns...)

	if len(idx.Columns) == 0 {
		return idx, fmt.Errorf("index on %q: %w: no columns", table, ErrEmptyName)
	}

	if idx.Name == "" {
		prefix := "idx"
		if idx.Unique {
			prefix = "uq"
		}

		idx.Name = constraintName(prefix, table, idx.Columns)
	}

	return idx, nil
}

func constraintName(prefix, table string, columns []string) string {
	return prefix + "_" + table + "_" + strings.Join(columns, "_")
}
