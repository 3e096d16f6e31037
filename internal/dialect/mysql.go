package dialect

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/aqasim81/schema-migrator/internal/operation"
)

type mysql struct {
	desc Descriptor
}

var _ Renderer = (*mysql)(nil)

// NewMySQL returns the MySQL 8 renderer.
func NewMySQL() Renderer {
	return &mysql{desc: Descriptor{
		Name:        MySQL,
		Quote:       "`",
		Placeholder: func(int) string { return "?" },
		Types: map[operation.TypeName]string{
			operation.TypeVarchar:     "VARCHAR",
			operation.TypeChar:        "CHAR",
			operation.TypeText:        "TEXT",
			operation.TypeSmallInt:    "SMALLINT",
			operation.TypeInteger:     "INT",
			operation.TypeBigInt:      "BIGINT",
			operation.TypeDecimal:     "DECIMAL",
			operation.TypeFloat:       "FLOAT",
			operation.TypeDouble:      "DOUBLE",
			operation.TypeBoolean:     "BOOLEAN",
			operation.TypeDate:        "DATE",
			operation.TypeTime:        "TIME",
			operation.TypeTimestamp:   "DATETIME(6)",
			operation.TypeTimestampTZ: "TIMESTAMP(6)",
			operation.TypeBinary:      "VARBINARY",
			operation.TypeBlob:        "LONGBLOB",
			operation.TypeJSON:        "JSON",
			operation.TypeJSONB:       "JSON",
			operation.TypeUUID:        "CHAR(36)",
			operation.TypeEnum:        "ENUM",
		},
	}}
}

func (m *mysql) Descriptor() Descriptor { return m.desc }

//nolint:cyclop // one case per operation kind
func (m *mysql) Render(op operation.Operation) ([]string, error) {
	d := m.desc

	switch o := op.(type) {
	case operation.CreateTable:
		return splitCreateTable(d, o, m.column, m.createIndex)
	case operation.DropTable:
		stmt := "DROP TABLE " + ifExists(o.IfExists) + d.Qualified(o.Schema, o.Name)
		if o.Cascade {
			stmt += " CASCADE"
		}

		return []string{stmt}, nil
	case operation.RenameTable:
		return []string{fmt.Sprintf("RENAME TABLE %s TO %s", d.Qualified(o.Schema, o.OldName), d.Qualified(o.Schema, o.NewName))}, nil
	case operation.AddColumn:
		def, err := m.column(o.Column)
		if err != nil {
			return nil, fmt.Errorf("column %q: %w", o.Column.Name, err)
		}

		return []string{fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s", d.Qualified(o.Schema, o.Table), def)}, nil
	case operation.DropColumn:
		if o.IfExists {
			return nil, unsupported(d.Name, "DROP COLUMN IF EXISTS")
		}

		return []string{fmt.Sprintf("ALTER TABLE %s DROP COLUMN %s", d.Qualified(o.Schema, o.Table), d.Ident(o.Column))}, nil
	case operation.RenameColumn:
		return []string{fmt.Sprintf("ALTER TABLE %s RENAME COLUMN %s TO %s",
			d.Qualified(o.Schema, o.Table), d.Ident(o.OldName), d.Ident(o.NewName))}, nil
	case operation.AlterColumn:
		return m.alterColumn(o)
	case operation.AddPrimaryKey:
		return []string{fmt.Sprintf("ALTER TABLE %s ADD CONSTRAINT %s PRIMARY KEY (%s)",
			d.Qualified(o.Schema, o.Table), d.Ident(o.Name), d.List(o.Columns))}, nil
	case operation.DropPrimaryKey:
		return []string{fmt.Sprintf("ALTER TABLE %s DROP PRIMARY KEY", d.Qualified(o.Schema, o.Table))}, nil
	case operation.AddForeignKey:
		stmt, err := addForeignKeySQL(d, o.Schema, o.Table, o.ForeignKey)
		if err != nil {
			return nil, err
		}

		return []string{stmt}, nil
	case operation.DropForeignKey:
		return []string{fmt.Sprintf("ALTER TABLE %s DROP FOREIGN KEY %s", d.Qualified(o.Schema, o.Table), d.Ident(o.Name))}, nil
	case operation.CreateIndex:
		stmt, err := m.createIndex(o)
		if err != nil {
			return nil, err
		}

		return []string{stmt}, nil
	case operation.DropIndex:
		if o.IfExists {
			return nil, unsupported(d.Name, "DROP INDEX IF EXISTS")
		}

		if o.Table == "" {
			return nil, fmt.Errorf("%w: drop index %q needs its table", ErrInvalidOperation, o.Name)
		}

		return []string{fmt.Sprintf("DROP INDEX %s ON %s", d.Ident(o.Name), d.Qualified(o.Schema, o.Table))}, nil
	case operation.ExecuteSQL:
		return execSQL(o)
	default:
		return nil, unsupported(d.Name, string(kindOf(op)))
	}
}

func (m *mysql) columnType(t operation.Type) (string, error) {
	base, err := baseType(m.desc, t)
	if err != nil {
		return "", err
	}

	switch t.Name { //nolint:exhaustive // unparameterised types use the base name
	case operation.TypeVarchar:
		if t.Length <= 0 {
			return sized(base, 255), nil
		}

		return sized(base, t.Length), nil
	case operation.TypeChar:
		return sized(base, t.Length), nil
	case operation.TypeBinary:
		if t.Length <= 0 {
			return sized(base, 255), nil
		}

		return sized("BINARY", t.Length), nil
	case operation.TypeDecimal:
		return numeric(base, t.Precision, t.Scale), nil
	case operation.TypeEnum:
		return base + "(" + literals(t.Values) + ")", nil
	default:
		return base, nil
	}
}

func (m *mysql) column(c operation.Column) (string, error) {
	typ, err := m.columnType(c.Type)
	if err != nil {
		return "", err
	}

	var b strings.Builder

	b.WriteString(m.desc.Ident(c.Name) + " " + typ)

	if !c.Nullable {
		b.WriteString(" NOT NULL")
	}

	if c.Default != nil {
		b.WriteString(" DEFAULT " + *c.Default)
	}

	if c.AutoIncrement {
		b.WriteString(" AUTO_INCREMENT")
	}

	if c.Unique {
		b.WriteString(" UNIQUE")
	}

	return b.String(), nil
}

func (m *mysql) createIndex(o operation.CreateIndex) (string, error) {
	if err := checkIndex(o); err != nil {
		return "", err
	}

	return fmt.Sprintf("CREATE %sINDEX %s ON %s (%s)",
		uniqueKeyword(o.Index.Unique), m.desc.Ident(o.Index.Name),
		m.desc.Qualified(o.Schema, o.Table), m.desc.List(o.Index.Columns)), nil
}

// alterColumn uses MODIFY COLUMN, which restates the full type; a
// nullability change therefore needs the new type.
func (m *mysql) alterColumn(o operation.AlterColumn) ([]string, error) {
	table := m.desc.Qualified(o.Schema, o.Table)
	col := m.desc.Ident(o.Column)

	if o.Nullable != nil && o.NewType == nil {
		return nil, unsupported(m.desc.Name, "changing nullability without restating the column type")
	}

	var stmts []string

	if o.NewType != nil {
		typ, err := m.columnType(*o.NewType)
		if err != nil {
			return nil, err
		}

		stmts = append(stmts, fmt.Sprintf("ALTER TABLE %s MODIFY COLUMN %s %s", table, col, typ))

		if o.Nullable != nil {
			null := " NOT NULL"
			if *o.Nullable {
				null = " NULL"
			}

			stmts = append(stmts, fmt.Sprintf("ALTER TABLE %s MODIFY COLUMN %s %s%s", table, col, typ, null))
		}
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

func (m *mysql) HistoryTableDDL(table string) []string {
	q := m.desc.Ident

	return []string{fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
    %s BIGINT AUTO_INCREMENT PRIMARY KEY,
    %s BIGINT NOT NULL UNIQUE,
    %s BIGINT NOT NULL,
    %s TEXT NOT NULL,
    %s VARCHAR(64) NOT NULL,
    %s DATETIME(6) NOT NULL DEFAULT CURRENT_TIMESTAMP(6),
    %s BIGINT NOT NULL DEFAULT 0,
    %s VARCHAR(20) NOT NULL,
    %s TEXT,
    %s VARCHAR(255) NOT NULL DEFAULT '',
    %s VARCHAR(512),
    %s DATETIME(6) NOT NULL DEFAULT CURRENT_TIMESTAMP(6)
) ENGINE=InnoDB`,
		m.desc.QualifiedName(table),
		q("id"), q("version"), q("timestamp"), q("description"), q("checksum"),
		q("executed_at"), q("execution_time_ms"), q("status"), q("error_message"),
		q("applied_by"), q("class_name"), q("created_at"),
	)}
}

func (m *mysql) LockSQL() (acquire, release string, ok bool) {
	return fmt.Sprintf("SELECT COALESCE(GET_LOCK(%s, 0), 0) = 1", literal(LockName)),
		fmt.Sprintf("SELECT RELEASE_LOCK(%s)", literal(LockName)),
		true
}

func (m *mysql) SessionTimeouts(lock, statement time.Duration) []string {
	var stmts []string

	if lock > 0 {
		secs := int64(math.Ceil(lock.Seconds()))
		stmts = append(stmts, fmt.Sprintf("SET SESSION innodb_lock_wait_timeout = %d", secs))
	}

	if statement > 0 {
		stmts = append(stmts, fmt.Sprintf("SET SESSION max_execution_time = %d", statement.Milliseconds()))
	}

	return stmts
}
