package dialect

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/aqasim81/schema-migrator/internal/operation"
)

type postgres struct {
	desc Descriptor
}

var _ Renderer = (*postgres)(nil)

// NewPostgres returns the PostgreSQL renderer.
func NewPostgres() Renderer {
	return &postgres{desc: Descriptor{
		Name:        Postgres,
		Quote:       `"`,
		Placeholder: func(n int) string { return "$" + strconv.Itoa(n) },
		Types: map[operation.TypeName]string{
			operation.TypeVarchar:     "VARCHAR",
			operation.TypeChar:        "CHAR",
			operation.TypeText:        "TEXT",
			operation.TypeSmallInt:    "SMALLINT",
			operation.TypeInteger:     "INTEGER",
			operation.TypeBigInt:      "BIGINT",
			operation.TypeDecimal:     "NUMERIC",
			operation.TypeFloat:       "REAL",
			operation.TypeDouble:      "DOUBLE PRECISION",
			operation.TypeBoolean:     "BOOLEAN",
			operation.TypeDate:        "DATE",
			operation.TypeTime:        "TIME",
			operation.TypeTimestamp:   "TIMESTAMP",
			operation.TypeTimestampTZ: "TIMESTAMPTZ",
			operation.TypeBinary:      "BYTEA",
			operation.TypeBlob:        "BYTEA",
			operation.TypeJSON:        "JSON",
			operation.TypeJSONB:       "JSONB",
			operation.TypeUUID:        "UUID",
			operation.TypeEnum:        "TEXT",
		},
	}}
}

func (p *postgres) Descriptor() Descriptor { return p.desc }

//nolint:cyclop // one case per operation kind
func (p *postgres) Render(op operation.Operation) ([]string, error) {
	d := p.desc

	switch o := op.(type) {
	case operation.CreateTable:
		return splitCreateTable(d, o, p.column, p.createIndex)
	case operation.DropTable:
		stmt := "DROP TABLE " + ifExists(o.IfExists) + d.Qualified(o.Schema, o.Name)
		if o.Cascade {
			stmt += " CASCADE"
		}

		return []string{stmt}, nil
	case operation.RenameTable:
		return []string{fmt.Sprintf("ALTER TABLE %s RENAME TO %s", d.Qualified(o.Schema, o.OldName), d.Ident(o.NewName))}, nil
	case operation.AddColumn:
		def, err := p.column(o.Column)
		if err != nil {
			return nil, fmt.Errorf("column %q: %w", o.Column.Name, err)
		}

		return []string{fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s", d.Qualified(o.Schema, o.Table), def)}, nil
	case operation.DropColumn:
		return []string{fmt.Sprintf("ALTER TABLE %s DROP COLUMN %s%s", d.Qualified(o.Schema, o.Table), ifExists(o.IfExists), d.Ident(o.Column))}, nil
	case operation.RenameColumn:
		return []string{fmt.Sprintf("ALTER TABLE %s RENAME COLUMN %s TO %s",
			d.Qualified(o.Schema, o.Table), d.Ident(o.OldName), d.Ident(o.NewName))}, nil
	case operation.AlterColumn:
		return p.alterColumn(o)
	case operation.AddPrimaryKey:
		return []string{fmt.Sprintf("ALTER TABLE %s ADD CONSTRAINT %s PRIMARY KEY (%s)",
			d.Qualified(o.Schema, o.Table), d.Ident(o.Name), d.List(o.Columns))}, nil
	case operation.DropPrimaryKey:
		return []string{fmt.Sprintf("ALTER TABLE %s DROP CONSTRAINT %s", d.Qualified(o.Schema, o.Table), d.Ident(o.Name))}, nil
	case operation.AddForeignKey:
		stmt, err := addForeignKeySQL(d, o.Schema, o.Table, o.ForeignKey)
		if err != nil {
			return nil, err
		}

		return []string{stmt}, nil
	case operation.DropForeignKey:
		return []string{fmt.Sprintf("ALTER TABLE %s DROP CONSTRAINT %s", d.Qualified(o.Schema, o.Table), d.Ident(o.Name))}, nil
	case operation.CreateIndex:
		stmt, err := p.createIndex(o)
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

func (p *postgres) columnType(t operation.Type) (string, error) {
	base, err := baseType(p.desc, t)
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

func (p *postgres) column(c operation.Column) (string, error) {
	typ, err := p.columnType(c.Type)
	if err != nil {
		return "", err
	}

	var b strings.Builder

	b.WriteString(p.desc.Ident(c.Name) + " " + typ)

	if c.AutoIncrement {
		b.WriteString(" GENERATED BY DEFAULT AS IDENTITY")
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
		fmt.Fprintf(&b, " CHECK (%s IN (%s))", p.desc.Ident(c.Name), literals(c.Type.Values))
	}

	return b.String(), nil
}

func (p *postgres) createIndex(o operation.CreateIndex) (string, error) {
	if err := checkIndex(o); err != nil {
		return "", err
	}

	concurrently := ""
	if o.Index.Concurrently {
		concurrently = "CONCURRENTLY "
	}

	return fmt.Sprintf("CREATE %sINDEX %s%s ON %s (%s)",
		uniqueKeyword(o.Index.Unique), concurrently, p.desc.Ident(o.Index.Name),
		p.desc.Qualified(o.Schema, o.Table), p.desc.List(o.Index.Columns)), nil
}

// alterColumn emits one statement per change, in the order type,
// nullability, default.
func (p *postgres) alterColumn(o operation.AlterColumn) ([]string, error) {
	table := p.desc.Qualified(o.Schema, o.Table)
	col := p.desc.Ident(o.Column)

	var stmts []string

	if o.NewType != nil {
		typ, err := p.columnType(*o.NewType)
		if err != nil {
			return nil, err
		}

		stmts = append(stmts, fmt.Sprintf("ALTER TABLE %s ALTER COLUMN %s TYPE %s USING %s::%s", table, col, typ, col, typ))
	}

	if o.Nullable != nil {
		action := "SET NOT NULL"
		if *o.Nullable {
			action = "DROP NOT NULL"
		}

		stmts = append(stmts, fmt.Sprintf("ALTER TABLE %s ALTER COLUMN %s %s", table, col, action))
	}

	switch {
	case o.DropDefault:
		stmts = append(stmts, fmt.Sprintf("ALTER TABLE %s ALTER COLUMN %s DROP DEFAULT", table, col))
	case o.Default != nil:
		stmts = append(stmts, fmt.Sprintf("ALTER TABLE %s ALTER COLUMN %s SET DEFAULT %s", table, col, *o.Default))
	}

	if len(stmts) == 0 {
		return nil, fmt.Errorf("%w: alter column %q changes nothing", ErrInvalidOperation, o.Column)
	}

	return stmts, nil
}

func (p *postgres) HistoryTableDDL(table string) []string {
	q := p.desc.Ident

	return []string{fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
    %s BIGSERIAL PRIMARY KEY,
    %s BIGINT NOT NULL UNIQUE,
    %s BIGINT NOT NULL,
    %s TEXT NOT NULL,
    %s VARCHAR(64) NOT NULL,
    %s TIMESTAMPTZ NOT NULL DEFAULT now(),
    %s BIGINT NOT NULL DEFAULT 0,
    %s VARCHAR(20) NOT NULL,
    %s TEXT,
    %s TEXT NOT NULL DEFAULT '',
    %s TEXT,
    %s TIMESTAMPTZ NOT NULL DEFAULT now()
)`,
		p.desc.QualifiedName(table),
		q("id"), q("version"), q("timestamp"), q("description"), q("checksum"),
		q("executed_at"), q("execution_time_ms"), q("status"), q("error_message"),
		q("applied_by"), q("class_name"), q("created_at"),
	)}
}

func (p *postgres) LockSQL() (acquire, release string, ok bool) {
	return fmt.Sprintf("SELECT pg_try_advisory_lock(%d)", LockID),
		fmt.Sprintf("SELECT pg_advisory_unlock(%d)", LockID),
		true
}

func (p *postgres) SessionTimeouts(lock, statement time.Duration) []string {
	var stmts []string

	if lock > 0 {
		stmts = append(stmts, fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", lock.Milliseconds()))
	}

	if statement > 0 {
		stmts = append(stmts, fmt.Sprintf("SET LOCAL statement_timeout = '%dms'", statement.Milliseconds()))
	}

	return stmts
}
