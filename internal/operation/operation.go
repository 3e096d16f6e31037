// Package operation defines the dialect-independent schema change model.
//
// Every Operation is a self-contained value: it carries every field a
// renderer needs and never refers back to other operations.
package operation

// Kind identifies an Operation variant.
type Kind string

// Operation kinds. The set is closed; renderers are tested against Kinds().
const (
	KindCreateTable    Kind = "create_table"
	KindDropTable      Kind = "drop_table"
	KindRenameTable    Kind = "rename_table"
	KindAddColumn      Kind = "add_column"
	KindDropColumn     Kind = "drop_column"
	KindRenameColumn   Kind = "rename_column"
	KindAlterColumn    Kind = "alter_column"
	KindAddPrimaryKey  Kind = "add_primary_key"
	KindDropPrimaryKey Kind = "drop_primary_key"
	KindAddForeignKey  Kind = "add_foreign_key"
	KindDropForeignKey Kind = "drop_foreign_key"
	KindCreateIndex    Kind = "create_index"
	KindDropIndex      Kind = "drop_index"
	KindExecuteSQL     Kind = "execute_sql"
)

// Kinds returns every operation kind in declaration order.
func Kinds() []Kind {
	return []Kind{
		KindCreateTable, KindDropTable, KindRenameTable,
		KindAddColumn, KindDropColumn, KindRenameColumn, KindAlterColumn,
		KindAddPrimaryKey, KindDropPrimaryKey,
		KindAddForeignKey, KindDropForeignKey,
		KindCreateIndex, KindDropIndex,
		KindExecuteSQL,
	}
}

// Operation is a single schema change. The interface is sealed: only the
// variants in this package implement it.
type Operation interface {
	Kind() Kind
	sealed()
}

// CreateTable creates a table with its columns, primary key, foreign keys,
// indexes and unique constraints.
type CreateTable struct {
	Name        string       `json:"name"`
	Schema      string       `json:"schema,omitempty"`
	Columns     []Column     `json:"columns"`
	PrimaryKey  []string     `json:"primary_key,omitempty"`
	ForeignKeys []ForeignKey `json:"foreign_keys,omitempty"`
	Indexes     []Index      `json:"indexes,omitempty"`
	Uniques     []Unique     `json:"uniques,omitempty"`
}

// DropTable drops a table.
type DropTable struct {
	Name     string `json:"name"`
	Schema   string `json:"schema,omitempty"`
	IfExists bool   `json:"if_exists,omitempty"`
	Cascade  bool   `json:"cascade,omitempty"`
}

// RenameTable renames a table within its schema.
type RenameTable struct {
	OldName string `json:"old_name"`
	NewName string `json:"new_name"`
	Schema  string `json:"schema,omitempty"`
}

// AddColumn adds a column to an existing table.
type AddColumn struct {
	Table  string `json:"table"`
	Schema string `json:"schema,omitempty"`
	Column Column `json:"column"`
}

// DropColumn removes a column.
type DropColumn struct {
	Table    string `json:"table"`
	Schema   string `json:"schema,omitempty"`
	Column   string `json:"column"`
	IfExists bool   `json:"if_exists,omitempty"`
}

// RenameColumn renames a column.
type RenameColumn struct {
	Table   string `json:"table"`
	Schema  string `json:"schema,omitempty"`
	OldName string `json:"old_name"`
	NewName string `json:"new_name"`
}

// AlterColumn changes a column's type, nullability or default. Nil fields
// are left untouched.
type AlterColumn struct {
	Table       string  `json:"table"`
	Schema      string  `json:"schema,omitempty"`
	Column      string  `json:"column"`
	NewType     *Type   `json:"new_type,omitempty"`
	Nullable    *bool   `json:"nullable,omitempty"`
	Default     *string `json:"default,omitempty"`
	DropDefault bool    `json:"drop_default,omitempty"`
}

// AddPrimaryKey adds a primary key constraint.
type AddPrimaryKey struct {
	Table   string   `json:"table"`
	Schema  string   `json:"schema,omitempty"`
	Name    string   `json:"name"`
	Columns []string `json:"columns"`
}

// DropPrimaryKey drops a primary key constraint by name.
type DropPrimaryKey struct {
	Table  string `json:"table"`
	Schema string `json:"schema,omitempty"`
	Name   string `json:"name"`
}

// AddForeignKey adds a foreign key constraint to an existing table.
type AddForeignKey struct {
	Table      string     `json:"table"`
	Schema     string     `json:"schema,omitempty"`
	ForeignKey ForeignKey `json:"foreign_key"`
}

// DropForeignKey drops a foreign key constraint by name.
type DropForeignKey struct {
	Table  string `json:"table"`
	Schema string `json:"schema,omitempty"`
	Name   string `json:"name"`
}

// CreateIndex creates an index on an existing table.
type CreateIndex struct {
	Table  string `json:"table"`
	Schema string `json:"schema,omitempty"`
	Index  Index  `json:"index"`
}

// DropIndex drops an index. Table is required by dialects that scope
// index names per table.
type DropIndex struct {
	Name     string `json:"name"`
	Table    string `json:"table,omitempty"`
	Schema   string `json:"schema,omitempty"`
	IfExists bool   `json:"if_exists,omitempty"`
}

// ExecuteSQL runs a raw statement verbatim.
type ExecuteSQL struct {
	SQL string `json:"sql"`
}

func (CreateTable) Kind() Kind    { return KindCreateTable }
func (DropTable) Kind() Kind      { return KindDropTable }
func (RenameTable) Kind() Kind    { return KindRenameTable }
func (AddColumn) Kind() Kind      { return KindAddColumn }
func (DropColumn) Kind() Kind     { return KindDropColumn }
func (RenameColumn) Kind() Kind   { return KindRenameColumn }
func (AlterColumn) Kind() Kind    { return KindAlterColumn }
func (AddPrimaryKey) Kind() Kind  { return KindAddPrimaryKey }
func (DropPrimaryKey) Kind() Kind { return KindDropPrimaryKey }
func (AddForeignKey) Kind() Kind  { return KindAddForeignKey }
func (DropForeignKey) Kind() Kind { return KindDropForeignKey }
func (CreateIndex) Kind() Kind    { return KindCreateIndex }
func (DropIndex) Kind() Kind      { return KindDropIndex }
func (ExecuteSQL) Kind() Kind     { return KindExecuteSQL }

func (CreateTable) sealed()    {}
func (DropTable) sealed()      {}
func (RenameTable) sealed()    {}
func (AddColumn) sealed()      {}
func (DropColumn) sealed()     {}
func (RenameColumn) sealed()   {}
func (AlterColumn) sealed()    {}
func (AddPrimaryKey) sealed()  {}
func (DropPrimaryKey) sealed() {}
func (AddForeignKey) sealed()  {}
func (DropForeignKey) sealed() {}
func (CreateIndex) sealed()    {}
func (DropIndex) sealed()      {}
func (ExecuteSQL) sealed()     {}

// TableOf returns the table an operation targets, or "" for raw SQL.
func TableOf(op Operation) string {
	switch o := op.(type) {
	case CreateTable:
		return o.Name
	case DropTable:
		return o.Name
	case RenameTable:
		return o.OldName
	case AddColumn:
		return o.Table
	case DropColumn:
		return o.Table
	case RenameColumn:
		return o.Table
	case AlterColumn:
		return o.Table
	case AddPrimaryKey:
		return o.Table
	case DropPrimaryKey:
		return o.Table
	case AddForeignKey:
		return o.Table
	case DropForeignKey:
		return o.Table
	case CreateIndex:
		return o.Table
	case DropIndex:
		return o.Table
	default:
		return ""
	}
}
