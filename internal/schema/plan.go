// Package schema provides builders that turn migration declarations into
// validated operation lists. Declaration mistakes are reported by
// Plan.Operations, before any SQL is rendered.
package schema

import (
	"errors"
	"fmt"

	"github.com/aqasim81/schema-migrator/internal/operation"
)

// Plan accumulates the operations of one migration direction. A Plan is
// single-use: build a new one for every Up or Down call.
type Plan struct {
	schema string
	ops    []operation.Operation
	errs   []error
}

// NewPlan returns an empty Plan.
func NewPlan() *Plan {
	return &Plan{}
}

// InSchema sets the schema used by every subsequent declaration.
func (p *Plan) InSchema(schema string) *Plan {
	p.schema = schema
	return p
}

// Operations returns the accumulated operations, or every declaration
// error joined together.
func (p *Plan) Operations() ([]operation.Operation, error) {
	if len(p.errs) > 0 {
		return nil, errors.Join(p.errs...)
	}

	return append([]operation.Operation(nil), p.ops...), nil
}

func (p *Plan) add(op operation.Operation) {
	p.ops = append(p.ops, op)
}

func (p *Plan) fail(err error) {
	p.errs = append(p.errs, err)
}

func (p *Plan) requireNames(what string, names ...string) bool {
	for _, n := range names {
		if n == "" {
			p.fail(fmt.Errorf("%s: %w", what, ErrEmptyName))
			return false
		}
	}

	return true
}

// CreateTable declares a table. fn declares its columns and constraints.
func (p *Plan) CreateTable(name string, fn func(t *TableBuilder)) {
	t := &TableBuilder{name: name, schema: p.schema}
	if fn != nil {
		fn(t)
	}

	op, err := t.build()
	if err != nil {
		p.fail(err)
		return
	}

	p.add(op)
}

// DropTable drops a table.
func (p *Plan) DropTable(name string) {
	if p.requireNames("drop table", name) {
		p.add(operation.DropTable{Name: name, Schema: p.schema})
	}
}

// DropTableIfExists drops a table when it exists.
func (p *Plan) DropTableIfExists(name string) {
	if p.requireNames("drop table", name) {
		p.add(operation.DropTable{Name: name, Schema: p.schema, IfExists: true})
	}
}

// RenameTable renames a table.
func (p *Plan) RenameTable(oldName, newName string) {
	if p.requireNames("rename table", oldName, newName) {
		p.add(operation.RenameTable{OldName: oldName, NewName: newName, Schema: p.schema})
	}
}

// AddColumn adds a column to an existing table.
func (p *Plan) AddColumn(table string, c *ColumnBuilder) {
	if !p.requireNames("add column", table) {
		return
	}

	col, err := c.build()
	if err != nil {
		p.fail(fmt.Errorf("add column to %q: %w", table, err))
		return
	}

	p.add(operation.AddColumn{Table: table, Schema: p.schema, Column: col})
}

// DropColumn removes a column.
func (p *Plan) DropColumn(table, column string) {
	if p.requireNames("drop column", table, column) {
		p.add(operation.DropColumn{Table: table, Schema: p.schema, Column: column})
	}
}

// DropColumnIfExists removes a column when it exists.
func (p *Plan) DropColumnIfExists(table, column string) {
	if p.requireNames("drop column", table, column) {
		p.add(operation.DropColumn{Table: table, Schema: p.schema, Column: column, IfExists: true})
	}
}

// RenameColumn renames a column.
func (p *Plan) RenameColumn(table, oldName, newName string) {
	if p.requireNames("rename column", table, oldName, newName) {
		p.add(operation.RenameColumn{Table: table, Schema: p.schema, OldName: oldName, NewName: newName})
	}
}

// AlterColumn changes a column's type, nullability or default.
func (p *Plan) AlterColumn(table, column string, fn func(a *AlterBuilder)) {
	if !p.requireNames("alter column", table, column) {
		return
	}

	a := &AlterBuilder{op: operation.AlterColumn{Table: table, Schema: p.schema, Column: column}}
	if fn != nil {
		fn(a)
	}

	op, err := a.build()
	if err != nil {
		p.fail(fmt.Errorf("alter column %q.%q: %w", table, column, err))
		return
	}

	p.add(op)
}

// AddPrimaryKey adds a named primary key.
func (p *Plan) AddPrimaryKey(table, name string, columns ...string) {
	if !p.requireNames("add primary key", table, name) {
		return
	}

	if len(columns) == 0 {
		p.fail(fmt.Errorf("add primary key %q: %w: no columns", name, ErrEmptyName))
		return
	}

	p.add(operation.AddPrimaryKey{Table: table, Schema: p.schema, Name: name, Columns: append([]string(nil), columns...)})
}

// DropPrimaryKey drops a named primary key.
func (p *Plan) DropPrimaryKey(table, name string) {
	if p.requireNames("drop primary key", table, name) {
		p.add(operation.DropPrimaryKey{Table: table, Schema: p.schema, Name: name})
	}
}

// AddForeignKey adds a foreign key to an existing table.
func (p *Plan) AddForeignKey(table string, fk *ForeignKeyBuilder) {
	if !p.requireNames("add foreign key", table) {
		return
	}

	built, err := fk.build(table)
	if err != nil {
		p.fail(err)
		return
	}

	p.add(operation.AddForeignKey{Table: table, Schema: p.schema, ForeignKey: built})
}

// DropForeignKey drops a named foreign key.
func (p *Plan) DropForeignKey(table, name string) {
	if p.requireNames("drop foreign key", table, name) {
		p.add(operation.DropForeignKey{Table: table, Schema: p.schema, Name: name})
	}
}

// CreateIndex creates an index on an existing table.
func (p *Plan) CreateIndex(table string, idx *IndexBuilder) {
	if !p.requireNames("create index", table) {
		return
	}

	built, err := idx.build(table)
	if err != nil {
		p.fail(err)
		return
	}

	p.add(operation.CreateIndex{Table: table, Schema: p.schema, Index: built})
}

// DropIndex drops an index.
func (p *Plan) DropIndex(table, name string) {
	if p.requireNames("drop index", name) {
		p.add(operation.DropIndex{Name: name, Table: table, Schema: p.schema})
	}
}

// DropIndexIfExists drops an index when it exists.
func (p *Plan) DropIndexIfExists(table, name string) {
	if p.requireNames("drop index", name) {
		p.add(operation.DropIndex{Name: name, Table: table, Schema: p.schema, IfExists: true})
	}
}

// Exec adds a raw SQL statement.
func (p *Plan) Exec(sql string) {
	if sql == "" {
		p.fail(fmt.Errorf("execute sql: %w", ErrEmptyName))
		return
	}

	p.add(operation.ExecuteSQL{SQL: sql})
}

// AlterBuilder accumulates an ALTER COLUMN change.
type AlterBuilder struct {
	op operation.AlterColumn
}

// Type changes the column type.
func (a *AlterBuilder) Type(t operation.Type) *AlterBuilder {
	a.op.NewType = &t
	return a
}

// SetNotNull adds a NOT NULL constraint.
func (a *AlterBuilder) SetNotNull() *AlterBuilder {
	nullable := false
	a.op.Nullable = &nullable

	return a
}

// DropNotNull removes the NOT NULL constraint.
func (a *AlterBuilder) DropNotNull() *AlterBuilder {
	nullable := true
	a.op.Nullable = &nullable

	return a
}

// SetDefault sets a raw SQL default expression.
func (a *AlterBuilder) SetDefault(expr string) *AlterBuilder {
	a.op.Default = &expr
	a.op.DropDefault = false

	return a
}

// DropDefault removes the column default.
func (a *AlterBuilder) DropDefault() *AlterBuilder {
	a.op.Default = nil
	a.op.DropDefault = true

	return a
}

func (a *AlterBuilder) build() (operation.AlterColumn, error) {
	op := a.op

	if op.NewType == nil && op.Nullable == nil && op.Default == nil && !op.DropDefault {
		return op, ErrEmptyAlter
	}

	if op.NewType != nil {
		t := *op.NewType
		t.Values = append([]string(nil), t.Values...)

		if err := validateType(t); err != nil {
			return op, err
		}

		op.NewType = &t
	}

	return op, nil
}
