package dialect

import (
	"fmt"
	"strings"

	"github.com/aqasim81/schema-migrator/internal/operation"
)

// columnFunc renders one column definition inside CREATE TABLE or ADD COLUMN.
type columnFunc func(c operation.Column) (string, error)

// indexFunc renders one CREATE INDEX statement.
type indexFunc func(op operation.CreateIndex) (string, error)

func literal(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

func literals(values []string) string {
	quoted := make([]string, len(values))
	for i, v := range values {
		quoted[i] = literal(v)
	}

	return strings.Join(quoted, ", ")
}

func sized(base string, n int) string {
	if n <= 0 {
		return base
	}

	return fmt.Sprintf("%s(%d)", base, n)
}

func numeric(base string, precision, scale int) string {
	if precision <= 0 {
		return base
	}

	return fmt.Sprintf("%s(%d, %d)", base, precision, scale)
}

func baseType(d Descriptor, t operation.Type) (string, error) {
	base, ok := d.Types[t.Name]
	if !ok {
		return "", fmt.Errorf("%w: %s has no mapping for %q", ErrUnsupportedType, d.Name, t.Name)
	}

	return base, nil
}

// primaryKeyColumns merges the table-level key with column-level flags.
func primaryKeyColumns(op operation.CreateTable) []string {
	cols := append([]string(nil), op.PrimaryKey...)

	for _, c := range op.Columns {
		if !c.PrimaryKey {
			continue
		}

		found := false

		for _, existing := range cols {
			if existing == c.Name {
				found = true
				break
			}
		}

		if !found {
			cols = append(cols, c.Name)
		}
	}

	return cols
}

func uniqueClause(d Descriptor, u operation.Unique) string {
	return fmt.Sprintf("CONSTRAINT %s UNIQUE (%s)", d.Ident(u.Name), d.List(u.Columns))
}

func foreignKeyClause(d Descriptor, fk operation.ForeignKey) string {
	var b strings.Builder

	fmt.Fprintf(&b, "CONSTRAINT %s FOREIGN KEY (%s) REFERENCES %s (%s)",
		d.Ident(fk.Name), d.List(fk.Columns), d.Qualified(fk.RefSchema, fk.RefTable), d.List(fk.RefColumns))

	if fk.OnDelete != "" {
		b.WriteString(" ON DELETE " + string(fk.OnDelete))
	}

	if fk.OnUpdate != "" {
		b.WriteString(" ON UPDATE " + string(fk.OnUpdate))
	}

	return b.String()
}

func checkForeignKey(fk operation.ForeignKey) error {
	if fk.Name == "" || fk.RefTable == "" || len(fk.Columns) == 0 || len(fk.Columns) != len(fk.RefColumns) {
		return fmt.Errorf("%w: foreign key %q is incomplete", ErrInvalidOperation, fk.Name)
	}

	return nil
}

func addForeignKeySQL(d Descriptor, schema, table string, fk operation.ForeignKey) (string, error) {
	if err := checkForeignKey(fk); err != nil {
		return "", err
	}

	return fmt.Sprintf("ALTER TABLE %s ADD %s", d.Qualified(schema, table), foreignKeyClause(d, fk)), nil
}

func checkTable(op operation.CreateTable) error {
	if op.Name == "" || len(op.Columns) == 0 {
		return fmt.Errorf("%w: create table %q needs a name and columns", ErrInvalidOperation, op.Name)
	}

	return nil
}

// splitCreateTable renders CREATE TABLE with columns, the inline primary
// key and unique constraints, then one ALTER TABLE per foreign key, then
// one CREATE INDEX per index.
func splitCreateTable(d Descriptor, op operation.CreateTable, column columnFunc, index indexFunc) ([]string, error) {
	if err := checkTable(op); err != nil {
		return nil, err
	}

	body := make([]string, 0, len(op.Columns)+1+len(op.Uniques))

	for _, c := range op.Columns {
		def, err := column(c)
		if err != nil {
			return nil, fmt.Errorf("column %q: %w", c.Name, err)
		}

		body = append(body, def)
	}

	if pk := primaryKeyColumns(op); len(pk) > 0 {
		body = append(body, "PRIMARY KEY ("+d.List(pk)+")")
	}

	for _, u := range op.Uniques {
		body = append(body, uniqueClause(d, u))
	}

	stmts := []string{fmt.Sprintf("CREATE TABLE %s (%s)", d.Qualified(op.Schema, op.Name), strings.Join(body, ", "))}

	for _, fk := range op.ForeignKeys {
		stmt, err := addForeignKeySQL(d, op.Schema, op.Name, fk)
		if err != nil {
			return nil, err
		}

		stmts = append(stmts, stmt)
	}

	for _, idx := range op.Indexes {
		stmt, err := index(operation.CreateIndex{Table: op.Name, Schema: op.Schema, Index: idx})
		if err != nil {
			return nil, err
		}

		stmts = append(stmts, stmt)
	}

	return stmts, nil
}

func checkIndex(op operation.CreateIndex) error {
	if op.Index.Name == "" || op.Table == "" || len(op.Index.Columns) == 0 {
		return fmt.Errorf("%w: index %q needs a name, a table and columns", ErrInvalidOperation, op.Index.Name)
	}

	return nil
}

func execSQL(op operation.ExecuteSQL) ([]string, error) {
	if strings.TrimSpace(op.SQL) == "" {
		return nil, fmt.Errorf("%w: empty SQL statement", ErrInvalidOperation)
	}

	return []string{op.SQL}, nil
}

func ifExists(b bool) string {
	if b {
		return "IF EXISTS "
	}

	return ""
}

func uniqueKeyword(b bool) string {
	if b {
		return "UNIQUE "
	}

	return ""
}
