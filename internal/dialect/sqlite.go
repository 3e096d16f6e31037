package dialect

import (
	"fmt"
	"strings"
	"time"

	"github.com/aqasim81/schema-migrator/internal/operation"
)

// sqlite cannot alter constraints or column definitions in place, so those
// operations fail with ErrUnsupportedOperation. Foreign keys are declared
// inside CREATE TABLE because SQLite has no ALTER TABLE ADD CONSTRAINT.
type sqlite struct {
	desc Descriptor
}

var _ Renderer = (*sqlite)(nil)

// NewSQLite returns the SQLite renderer.
func NewSQLite() Renderer {
	return &sqlite{desc: Descriptor{
		Name:        SQLite,
		Quote:       `"`,
		Placeholder: func(int) string { return "?" },
		Types: map[operation.TypeName]string{
			operation.TypeVarchar:     "VARCHAR",
			operation.TypeChar:        "CHAR",
			operation.TypeText:        "TEXT",
			operation.TypeSmallInt:    "INTEGER",
			operation.TypeInteger:     "INTEGER",
			operation.TypeBigInt:      "INTEGER",
			operation.TypeDecimal:     "NUMERIC",
			operation.TypeFloat:       "REAL",
			operation.TypeDouble:      "REAL",
			operation.TypeBoolean:     "BOOLEAN",
			operation.TypeDate:        "DATE",
			operation.TypeTime:        "TIME",
			operation.TypeTimestamp:   "TIMESTAMP",
			operation.TypeTimestampTZ: "TIMESTAMP",
			operation.TypeBinary:      "BLOB",
			operation.TypeBlob:        "BLOB",
			operation.TypeJSON:        "TEXT",
			operation.TypeJSONB:       "TEXT",
			operation.TypeUUID:        "TEXT",
			operation.TypeEnum:        "TEXT",
		},
	}}
}

func (s *sqlite) Descriptor() Descriptor { return s.desc }

//nolint:cyclop // one case per operation kind
func (s *sqlite) Render(op operation.Operation) ([]string, error) {
	d := s.desc

	switch o := op.(type) {
	case operation.CreateTable:
		return s.createTable(o)
	case operation.DropTable:
		if o.Cascade {
			return nil, unsupported(d.Name, "DROP TABLE ... CASCADE")
		}

		return []string{"DROP TABLE " + ifExists(o.IfExists) + d.Qualified(o.Schema, o.Name)}, nil
	case operation.RenameTable:
		return []string{fmt.Sprintf("ALTER TABLE %s RENAME TO %s", d.Qualified(o.Schema, o.OldName), d.Ident(o.NewName))}, nil
	case operation.AddColumn:
		return s.addColumn(o)
	case operation.DropColumn:
		if o.IfExists {
			return nil, unsupported(d.Name, "DROP COLUMN IF EXISTS")
		}

		return []string{fmt.Sprintf("ALTER TABLE %s DROP COLUMN %s", d.Qualified(o.Schema, o.Table), d.Ident(o.Column))}, nil
	case operation.RenameColumn:
		return []string{fmt.Sprintf("ALTER TABLE %s RENAME COLUMN %s TO %s",
			d.Qualified(o.Schema, o.Table), d.Ident(o.OldName), d.Ident(o.NewName))}, nil
	case operation.AlterColumn:
		return nil, unsupported(d.Name, "ALTER COLUMN")
	case operation.AddPrimaryKey:
		return nil, unsupported(d.Name, "ADD PRIMARY KEY")
	case operation.DropPrimaryKey:
		return nil, unsupported(d.Name, "DROP PRIMARY KEY")
	case operation.AddForeignKey:
		return nil, unsupported(d.Name, "ADD FOREIGN KEY")
	case operation.DropForeignKey:
		return nil, unsupported(d.Name, "DROP FOREIGN KEY")
	case operation.CreateIndex:
		stmt, err := s.createIndex(o)
		if err != nil {
			return nil, err
		}

		return []string{stmt}, nil
	case operation.DropIndex:
		return []string{"DROP INDEX " + ifExists(o.IfExists) + d.Qualified(o.Schema, o.Name)}, nil
	case operation.ExecuteSQL:
		return execSQL(o)
	default:
		return nil, unsupported(d.Name, string(kindOf(op)))
	}
}

func (s *sqlite) columnType(t operation.Type) (string, error) {
	base, err := baseType(s.desc, t)
	if err != nil {
		return "", err
	}

	switch t.Name { //nolint:exhaustive // unparameterised types use the base name
	case operation.TypeVarchar, operation.TypeChar:
		return sized(base, t.Length), nil
	case operation.TypeDecimal:
		return numeric(base, t.Precision, t.Scale), nil
	default:
		return base, nil
	}
}

// column renders a column. rowid is true for the single INTEGER PRIMARY
// KEY AUTOINCREMENT column, which carries the key inline.
func (s *sqlite) column(c operation.Column, rowid bool) (string, error) {
	typ, err := s.columnType(c.Type)
	if err != nil {
		return "", err
	}

	var b strings.Builder

	b.WriteString(s.desc.Ident(c.Name) + " " + typ)

	if rowid {
		b.WriteString(" PRIMARY KEY AUTOINCREMENT")
	}

	if !c.Nullable {
		b.WriteString(" NOT NULL")
	}

	if c.Default != nil {
		b.WriteString(" DEFAULT " + *c.Default)
	}

	if c.Unique {
		b.WriteString(" UNIQUE")
	}

	if c.Type.Name == operation.TypeEnum {
		fmt.Fprintf(&b, " CHECK (%s IN (%s))", s.desc.Ident(c.Name), literals(c.Type.Values))
	}

	return b.String(), nil
}

func (s *sqlite) createTable(op operation.CreateTable) ([]string, error) {
	if err := checkTable(op); err != nil {
		return nil, err
	}

	d := s.desc
	pk := primaryKeyColumns(op)

	body := make([]string, 0, len(op.Columns)+1+len(op.Uniques)+len(op.ForeignKeys))

	rowidKey := false

	for _, c := range op.Columns {
		rowid := false

		if c.AutoIncrement {
			if len(pk) != 1 || pk[0] != c.Name {
				return nil, unsupported(d.Name, fmt.Sprintf("auto-increment column %q must be the only primary key column", c.Name))
			}

			rowid = true
			rowidKey = true
		}

		def, err := s.column(c, rowid)
		if err != nil {
			return nil, fmt.Errorf("column %q: %w", c.Name, err)
		}

		body = append(body, def)
	}

	if len(pk) > 0 && !rowidKey {
		body = append(body, "PRIMARY KEY ("+d.List(pk)+")")
	}

	for _, u := range op.Uniques {
		body = append(body, uniqueClause(d, u))
	}

	for _, fk := range op.ForeignKeys {
		if err := checkForeignKey(fk); err != nil {
			return nil, err
		}

		ref := fk
		ref.RefSchema = ""
		body = append(body, foreignKeyClause(d, ref))
	}

	stmts := []string{fmt.Sprintf("CREATE TABLE %s (%s)", d.Qualified(op.Schema, op.Name), strings.Join(body, ", "))}

	for _, idx := range op.Indexes {
		stmt, err := s.createIndex(operation.CreateIndex{Table: op.Name, Schema: op.Schema, Index: idx})
		if err != nil {
			return nil, err
		}

		stmts = append(stmts, stmt)
	}

	return stmts, nil
}

func (s *sqlite) addColumn(o operation.AddColumn) ([]string, error) {
	c := o.Column

	switch {
	case c.PrimaryKey || c.AutoIncrement:
		return nil, unsupported(s.desc.Name, "adding a primary key column")
	case c.Unique:
		return nil, unsupported(s.desc.Name, "adding a UNIQUE column")
	case !c.Nullable && c.Default == nil:
		return nil, unsupported(s.desc.Name, "adding a NOT NULL column without a default")
	}

	def, err := s.column(c, false)
	if err != nil {
		return nil, fmt.Errorf("column %q: %w", c.Name, err)
	}

	return []string{fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s", s.desc.Qualified(o.Schema, o.Table), def)}, nil
}

// createIndex qualifies the index name, not the table: SQLite places the
// index in the table's schema.
func (s *sqlite) createIndex(o operation.CreateIndex) (string, error) {
	if err := checkIndex(o); err != nil {
		return "", err
	}

	return fmt.Sprintf("CREATE %sINDEX %s ON %s (%s)",
		uniqueKeyword(o.Index.Unique), s.desc.Qualified(o.Schema, o.Index.Name),
		s.desc.Ident(o.Table), s.desc.List(o.Index.Columns)), nil
}

func (s *sqlite) HistoryTableDDL(table string) []string {
	q := s.desc.Ident

	return []string{fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
    %s INTEGER PRIMARY KEY AUTOINCREMENT,
    %s INTEGER NOT NULL UNIQUE,
    %s INTEGER NOT NULL,
    %s TEXT NOT NULL,
    %s TEXT NOT NULL,
    %s TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    %s INTEGER NOT NULL DEFAULT 0,
    %s TEXT NOT NULL,
    %s TEXT,
    %s TEXT NOT NULL DEFAULT '',
    %s TEXT,
    %s TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
)`,
		s.desc.QualifiedName(table),
		q("id"), q("version"), q("timestamp"), q("description"), q("checksum"),
		q("executed_at"), q("execution_time_ms"), q("status"), q("error_message"),
		q("applied_by"), q("class_name"), q("created_at"),
	)}
}

func (s *sqlite) LockSQL() (acquire, release string, ok bool) {
	return "", "", false
}

func (s *sqlite) SessionTimeouts(lock, _ time.Duration) []string {
	if lock <= 0 {
		return nil
	}

	return []string{fmt.Sprintf("PRAGMA busy_timeout = %d", lock.Milliseconds())}
}
