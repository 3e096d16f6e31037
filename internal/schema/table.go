package schema

import (
	"errors"
	"fmt"

	"github.com/aqasim81/schema-migrator/internal/operation"
)

// TableBuilder accumulates a CREATE TABLE declaration.
type TableBuilder struct {
	name        string
	schema      string
	columns     []*ColumnBuilder
	primaryKey  []string
	foreignKeys []*ForeignKeyBuilder
	indexes     []*IndexBuilder
	uniques     []operation.Unique
}

// Column declares a column and returns its builder for chaining modifiers.
func (t *TableBuilder) Column(name string, typ operation.Type) *ColumnBuilder {
	c := Col(name, typ)
	t.columns = append(t.columns, c)

	return c
}

// PrimaryKey declares a (composite) primary key. Columns flagged with
// ColumnBuilder.PrimaryKey are merged in.
func (t *TableBuilder) PrimaryKey(columns ...string) {
	t.primaryKey = append(t.primaryKey, columns...)
}

// ForeignKey declares a foreign key on source columns of this table.
func (t *TableBuilder) ForeignKey(columns ...string) *ForeignKeyBuilder {
	fk := FK(columns...)
	t.foreignKeys = append(t.foreignKeys, fk)

	return fk
}

// Index declares an index created right after the table.
func (t *TableBuilder) Index(name string, columns ...string) *IndexBuilder {
	idx := Idx(name, columns...)
	t.indexes = append(t.indexes, idx)

	return idx
}

// Unique declares a table-level unique constraint. An empty name is generated.
func (t *TableBuilder) Unique(name string, columns ...string) {
	t.uniques = append(t.uniques, operation.Unique{Name: name, Columns: append([]string(nil), columns...)})
}

// build validates every declaration against the declared columns and
// returns the finished operation. All problems are reported together.
func (t *TableBuilder) build() (operation.CreateTable, error) {
	op := operation.CreateTable{Name: t.name, Schema: t.schema}

	if t.name == "" {
		return op, fmt.Errorf("create table: %w", ErrEmptyName)
	}

	if len(t.columns) == 0 {
		return op, fmt.Errorf("create table %q: %w", t.name, ErrNoColumns)
	}

	var errs []error

	declared := make(map[string]bool, len(t.columns))

	for _, cb := range t.columns {
		col, err := cb.build()
		if err != nil {
			errs = append(errs, err)
			continue
		}

		if declared[col.Name] {
			errs = append(errs, fmt.Errorf("column %q: %w", col.Name, ErrDuplicateColumn))
			continue
		}

		declared[col.Name] = true
		op.Columns = append(op.Columns, col)

		if col.PrimaryKey {
			op.PrimaryKey = appendUnique(op.PrimaryKey, col.Name)
		}
	}

	for _, name := range t.primaryKey {
		if !declared[name] {
			errs = append(errs, fmt.Errorf("primary key: column %q: %w", name, ErrUnknownColumn))
			continue
		}

		op.PrimaryKey = appendUnique(op.PrimaryKey, name)
	}

	for _, fb := range t.foreignKeys {
		fk, err := fb.build(t.name)
		if err != nil {
			errs = append(errs, err)
			continue
		}

		if err := checkDeclared(declared, "foreign key "+fk.Name, fk.Columns); err != nil {
			errs = append(errs, err)
			continue
		}

		op.ForeignKeys = append(op.ForeignKeys, fk)
	}

	for _, ib := range t.indexes {
		idx, err := ib.build(t.name)
		if err != nil {
			errs = append(errs, err)
			continue
		}

		if err := checkDeclared(declared, "index "+idx.Name, idx.Columns); err != nil {
			errs = append(errs, err)
			continue
		}

		op.Indexes = append(op.Indexes, idx)
	}

	for _, u := range t.uniques {
		if u.Name == "" {
			u.Name = constraintName("uq", t.name, u.Columns)
		}

		if len(u.Columns) == 0 {
			errs = append(errs, fmt.Errorf("unique %q: %w: no columns", u.Name, ErrEmptyName))
			continue
		}

		if err := checkDeclared(declared, "unique "+u.Name, u.Columns); err != nil {
			errs = append(errs, err)
			continue
		}

		op.Uniques = append(op.Uniques, u)
	}

	if len(errs) > 0 {
		return op, fmt.Errorf("create table %q: %w", t.name, errors.Join(errs...))
	}

	return op, nil
}

func checkDeclared(declared map[string]bool, what string, columns []string) error {
	for _, c := range columns {
		if !declared[c] {
			return fmt.Errorf("%s: column %q: %w", what, c, ErrUnknownColumn)
		}
	}

	return nil
}

func appendUnique(list []string, v string) []string {
	for _, existing := range list {
		if existing == v {
			return list
		}
	}

	return append(list, v)
}
