package schema

import (
	"fmt"

	"github.com/aqasim81/schema-migrator/internal/operation"
)

// ColumnBuilder accumulates a column definition. Columns are nullable
// until NotNull or PrimaryKey is called.
type ColumnBuilder struct {
	col operation.Column
}

// Col starts a standalone column definition, used with Plan.AddColumn.
func Col(name string, t operation.Type) *ColumnBuilder {
	return &ColumnBuilder{col: operation.Column{Name: name, Type: t, Nullable: true}}
}

// NotNull marks the column NOT NULL.
func (c *ColumnBuilder) NotNull() *ColumnBuilder {
	c.col.Nullable = false
	return c
}

// Nullable marks the column nullable. This is the default.
func (c *ColumnBuilder) Nullable() *ColumnBuilder {
	c.col.Nullable = true
	return c
}

// Unique adds a column-level unique constraint.
func (c *ColumnBuilder) Unique() *ColumnBuilder {
	c.col.Unique = true
	return c
}

// PrimaryKey makes the column part of the primary key. Implies NOT NULL.
func (c *ColumnBuilder) PrimaryKey() *ColumnBuilder {
	c.col.PrimaryKey = true
	c.col.Nullable = false

	return c
}

// AutoIncrement makes an integer column generate its own values.
func (c *ColumnBuilder) AutoIncrement() *ColumnBuilder {
	c.col.AutoIncrement = true
	return c
}

// Default sets a raw SQL default expression, e.g. "0", "'active'" or "now()".
func (c *ColumnBuilder) Default(expr string) *ColumnBuilder {
	c.col.Default = &expr
	return c
}

func (c *ColumnBuilder) build() (operation.Column, error) {
	col := c.col
	col.Type.Values = append([]string(nil), col.Type.Values...)

	if col.Name == "" {
		return col, fmt.Errorf("column: %w", ErrEmptyName)
	}

	if err := validateType(col.Type); err != nil {
		return col, fmt.Errorf("column %q: %w", col.Name, err)
	}

	if col.AutoIncrement && !col.Type.Name.IsInteger() {
		return col, fmt.Errorf("column %q: %w", col.Name, typeError("auto-increment requires an integer type, got %s", col.Type.Name))
	}

	return col, nil
}
