package operation

// TypeName is a logical column type. Dialects map it to a native type.
type TypeName string

// Logical type catalog.
const (
	TypeVarchar     TypeName = "varchar"
	TypeChar        TypeName = "char"
	TypeText        TypeName = "text"
	TypeSmallInt    TypeName = "smallint"
	TypeInteger     TypeName = "integer"
	TypeBigInt      TypeName = "bigint"
	TypeDecimal     TypeName = "decimal"
	TypeFloat       TypeName = "float"
	TypeDouble      TypeName = "double"
	TypeBoolean     TypeName = "boolean"
	TypeDate        TypeName = "date"
	TypeTime        TypeName = "time"
	TypeTimestamp   TypeName = "timestamp"
	TypeTimestampTZ TypeName = "timestamptz"
	TypeBinary      TypeName = "binary"
	TypeBlob        TypeName = "blob"
	TypeJSON        TypeName = "json"
	TypeJSONB       TypeName = "jsonb"
	TypeUUID        TypeName = "uuid"
	TypeEnum        TypeName = "enum"
)

// TypeNames returns the full logical type catalog.
func TypeNames() []TypeName {
	return []TypeName{
		TypeVarchar, TypeChar, TypeText,
		TypeSmallInt, TypeInteger, TypeBigInt,
		TypeDecimal, TypeFloat, TypeDouble,
		TypeBoolean,
		TypeDate, TypeTime, TypeTimestamp, TypeTimestampTZ,
		TypeBinary, TypeBlob,
		TypeJSON, TypeJSONB,
		TypeUUID, TypeEnum,
	}
}

// Known reports whether n is part of the catalog.
func (n TypeName) Known() bool {
	for _, t := range TypeNames() {
		if t == n {
			return true
		}
	}

	return false
}

// IsInteger reports whether n is one of the integer families.
func (n TypeName) IsInteger() bool {
	return n == TypeSmallInt || n == TypeInteger || n == TypeBigInt
}

// Type is a logical type plus its parameters.
type Type struct {
	Name      TypeName `json:"name"`
	Length    int      `json:"length,omitempty"`    // varchar, char, binary
	Precision int      `json:"precision,omitempty"` // decimal
	Scale     int      `json:"scale,omitempty"`     // decimal
	Values    []string `json:"values,omitempty"`    // enum
}

// Column is a column definition.
type Column struct {
	Name          string  `json:"name"`
	Type          Type    `json:"type"`
	Nullable      bool    `json:"nullable"`
	Unique        bool    `json:"unique,omitempty"`
	PrimaryKey    bool    `json:"primary_key,omitempty"`
	AutoIncrement bool    `json:"auto_increment,omitempty"`
	Default       *string `json:"default,omitempty"` // raw SQL expression
}

// Action is a referential action for ON DELETE / ON UPDATE.
type Action string

// Referential actions. The zero value means "not specified".
const (
	NoAction   Action = "NO ACTION"
	Restrict   Action = "RESTRICT"
	Cascade    Action = "CASCADE"
	SetNull    Action = "SET NULL"
	SetDefault Action = "SET DEFAULT"
)

// ForeignKey is a foreign key constraint definition.
type ForeignKey struct {
	Name       string   `json:"name"`
	Columns    []string `json:"columns"`
	RefTable   string   `json:"ref_table"`
	RefSchema  string   `json:"ref_schema,omitempty"`
	RefColumns []string `json:"ref_columns"`
	OnDelete   Action   `json:"on_delete,omitempty"`
	OnUpdate   Action   `json:"on_update,omitempty"`
}

// Index is an index definition.
type Index struct {
	Name         string   `json:"name"`
	Columns      []string `json:"columns"`
	Unique       bool     `json:"unique,omitempty"`
	Concurrently bool     `json:"concurrently,omitempty"`
}

// Unique is a table-level unique constraint.
type Unique struct {
	Name    string   `json:"name"`
	Columns []string `json:"columns"`
}
