package migration

import (
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/aqasim81/schema-migrator/internal/operation"
	"github.com/aqasim81/schema-migrator/internal/schema"
)

// document is the YAML form of a migration:
//
//	description: create users
//	up:
//	  - create_table:
//	      name: users
//	      columns:
//	        - {name: id, type: bigint, primary_key: true, auto_increment: true}
//	        - {name: email, type: varchar, length: 255, not_null: true}
//	down:
//	  - drop_table: {name: users}
type document struct {
	Description string `yaml:"description"`
	Schema      string `yaml:"schema"`
	Up          steps  `yaml:"up"`
	Down        steps  `yaml:"down"`
}

type steps []step

// step holds exactly one declaration.
type step struct {
	CreateTable    *tableDecl    `yaml:"create_table"`
	DropTable      *dropDecl     `yaml:"drop_table"`
	RenameTable    *renameDecl   `yaml:"rename_table"`
	AddColumn      *addColDecl   `yaml:"add_column"`
	DropColumn     *dropColDecl  `yaml:"drop_column"`
	RenameColumn   *renameDecl   `yaml:"rename_column"`
	AlterColumn    *alterDecl    `yaml:"alter_column"`
	AddPrimaryKey  *pkDecl       `yaml:"add_primary_key"`
	DropPrimaryKey *dropConsDecl `yaml:"drop_primary_key"`
	AddForeignKey  *addFKDecl    `yaml:"add_foreign_key"`
	DropForeignKey *dropConsDecl `yaml:"drop_foreign_key"`
	CreateIndex    *addIdxDecl   `yaml:"create_index"`
	DropIndex      *dropIdxDecl  `yaml:"drop_index"`
	SQL            *string       `yaml:"sql"`

	schema string
}

type typeDecl struct {
	Type      string   `yaml:"type"`
	Length    int      `yaml:"length"`
	Precision int      `yaml:"precision"`
	Scale     int      `yaml:"scale"`
	Values    []string `yaml:"values"`
}

func (t typeDecl) toType() operation.Type {
	return operation.Type{
		Name:      operation.TypeName(t.Type),
		Length:    t.Length,
		Precision: t.Precision,
		Scale:     t.Scale,
		Values:    t.Values,
	}
}

type columnDecl struct {
	Name          string  `yaml:"name"`
	typeDecl      `yaml:",inline"`
	NotNull       bool    `yaml:"not_null"`
	Unique        bool    `yaml:"unique"`
	PrimaryKey    bool    `yaml:"primary_key"`
	AutoIncrement bool    `yaml:"auto_increment"`
	Default       *string `yaml:"default"`
}

func (c columnDecl) builder() *schema.ColumnBuilder {
	b := schema.Col(c.Name, c.toType())
	applyColumn(b, c)

	return b
}

type fkDecl struct {
	Name       string   `yaml:"name"`
	Columns    []string `yaml:"columns"`
	References struct {
		Table   string   `yaml:"table"`
		Schema  string   `yaml:"schema"`
		Columns []string `yaml:"columns"`
	} `yaml:"references"`
	OnDelete string `yaml:"on_delete"`
	OnUpdate string `yaml:"on_update"`
}

func (f fkDecl) configure(b *schema.ForeignKeyBuilder) {
	b.References(f.References.Table, f.References.Columns...)

	if f.Name != "" {
		b.Named(f.Name)
	}

	if f.References.Schema != "" {
		b.InSchema(f.References.Schema)
	}

	if f.OnDelete != "" {
		b.OnDelete(operation.Action(f.OnDelete))
	}

	if f.OnUpdate != "" {
		b.OnUpdate(operation.Action(f.OnUpdate))
	}
}

type indexDecl struct {
	Name         string   `yaml:"name"`
	Columns      []string `yaml:"columns"`
	Unique       bool     `yaml:"unique"`
	Concurrently bool     `yaml:"concurrently"`
}

func (i indexDecl) builder() *schema.IndexBuilder {
	b := schema.Idx(i.Name, i.Columns...)
	applyIndex(b, i)

	return b
}

type tableDecl struct {
	Name        string       `yaml:"name"`
	Columns     []columnDecl `yaml:"columns"`
	PrimaryKey  []string     `yaml:"primary_key"`
	ForeignKeys []fkDecl     `yaml:"foreign_keys"`
	Indexes     []indexDecl  `yaml:"indexes"`
	Uniques     []indexDecl  `yaml:"uniques"`
}

type dropDecl struct {
	Name     string `yaml:"name"`
	IfExists bool   `yaml:"if_exists"`
}

type renameDecl struct {
	Table string `yaml:"table"`
	From  string `yaml:"from"`
	To    string `yaml:"to"`
}

type addColDecl struct {
	Table  string     `yaml:"table"`
	Column columnDecl `yaml:"column"`
}

type dropColDecl struct {
	Table    string `yaml:"table"`
	Column   string `yaml:"column"`
	IfExists bool   `yaml:"if_exists"`
}

type alterDecl struct {
	Table       string  `yaml:"table"`
	Column      string  `yaml:"column"`
	typeDecl    `yaml:",inline"`
	NotNull     *bool   `yaml:"not_null"`
	Default     *string `yaml:"default"`
	DropDefault bool    `yaml:"drop_default"`
}

type pkDecl struct {
	Table   string   `yaml:"table"`
	Name    string   `yaml:"name"`
	Columns []string `yaml:"columns"`
}

type dropConsDecl struct {
	Table string `yaml:"table"`
	Name  string `yaml:"name"`
}

type addFKDecl struct {
	Table  string `yaml:"table"`
	fkDecl `yaml:",inline"`
}

type addIdxDecl struct {
	Table     string `yaml:"table"`
	indexDecl `yaml:",inline"`
}

type dropIdxDecl struct {
	Table    string `yaml:"table"`
	Name     string `yaml:"name"`
	IfExists bool   `yaml:"if_exists"`
}

var errStepShape = errors.New("each step must declare exactly one operation")

func decodeDocument(data []byte) (*document, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decoding yaml: %w", err)
	}

	if len(doc.Up) == 0 {
		return nil, ErrNoOperations
	}

	for i, s := range doc.Up {
		if s.count() != 1 {
			return nil, fmt.Errorf("up step %d: %w", i+1, errStepShape)
		}
	}

	for i, s := range doc.Down {
		if s.count() != 1 {
			return nil, fmt.Errorf("down step %d: %w", i+1, errStepShape)
		}
	}

	if doc.Schema != "" {
		doc.Up = prependSchema(doc.Up, doc.Schema)
		doc.Down = prependSchema(doc.Down, doc.Schema)
	}

	return &doc, nil
}

func prependSchema(list steps, name string) steps {
	if len(list) == 0 {
		return list
	}

	return append(steps{{schema: name}}, list...)
}

func (s step) count() int {
	n := 0

	for _, set := range []bool{
		s.CreateTable != nil, s.DropTable != nil, s.RenameTable != nil,
		s.AddColumn != nil, s.DropColumn != nil, s.RenameColumn != nil, s.AlterColumn != nil,
		s.AddPrimaryKey != nil, s.DropPrimaryKey != nil,
		s.AddForeignKey != nil, s.DropForeignKey != nil,
		s.CreateIndex != nil, s.DropIndex != nil,
		s.SQL != nil,
	} {
		if set {
			n++
		}
	}

	return n
}

// rawSQL returns every sql step in both directions.
func (d *document) rawSQL() []string {
	var out []string

	for _, list := range []steps{d.Up, d.Down} {
		for _, s := range list {
			if s.SQL != nil {
				out = append(out, *s.SQL)
			}
		}
	}

	return out
}

// apply replays the declarations onto p. The decoded steps are never
// mutated, so every call yields the same operations.
func (list steps) apply(p *schema.Plan) {
	for _, s := range list {
		s.apply(p)
	}
}

//nolint:cyclop,gocyclo // one branch per declaration kind
func (s step) apply(p *schema.Plan) {
	switch {
	case s.schema != "":
		p.InSchema(s.schema)
	case s.CreateTable != nil:
		d := s.CreateTable
		p.CreateTable(d.Name, func(t *schema.TableBuilder) {
			for _, c := range d.Columns {
				applyColumn(t.Column(c.Name, c.toType()), c)
			}

			if len(d.PrimaryKey) > 0 {
				t.PrimaryKey(d.PrimaryKey...)
			}

			for _, fk := range d.ForeignKeys {
				fk.configure(t.ForeignKey(fk.Columns...))
			}

			for _, idx := range d.Indexes {
				applyIndex(t.Index(idx.Name, idx.Columns...), idx)
			}

			for _, u := range d.Uniques {
				t.Unique(u.Name, u.Columns...)
			}
		})
	case s.DropTable != nil:
		if s.DropTable.IfExists {
			p.DropTableIfExists(s.DropTable.Name)
		} else {
			p.DropTable(s.DropTable.Name)
		}
	case s.RenameTable != nil:
		p.RenameTable(s.RenameTable.From, s.RenameTable.To)
	case s.AddColumn != nil:
		p.AddColumn(s.AddColumn.Table, s.AddColumn.Column.builder())
	case s.DropColumn != nil:
		if s.DropColumn.IfExists {
			p.DropColumnIfExists(s.DropColumn.Table, s.DropColumn.Column)
		} else {
			p.DropColumn(s.DropColumn.Table, s.DropColumn.Column)
		}
	case s.RenameColumn != nil:
		p.RenameColumn(s.RenameColumn.Table, s.RenameColumn.From, s.RenameColumn.To)
	case s.AlterColumn != nil:
		d := s.AlterColumn
		p.AlterColumn(d.Table, d.Column, func(a *schema.AlterBuilder) { applyAlter(a, d) })
	case s.AddPrimaryKey != nil:
		p.AddPrimaryKey(s.AddPrimaryKey.Table, s.AddPrimaryKey.Name, s.AddPrimaryKey.Columns...)
	case s.DropPrimaryKey != nil:
		p.DropPrimaryKey(s.DropPrimaryKey.Table, s.DropPrimaryKey.Name)
	case s.AddForeignKey != nil:
		fk := schema.FK(s.AddForeignKey.Columns...)
		s.AddForeignKey.configure(fk)
		p.AddForeignKey(s.AddForeignKey.Table, fk)
	case s.DropForeignKey != nil:
		p.DropForeignKey(s.DropForeignKey.Table, s.DropForeignKey.Name)
	case s.CreateIndex != nil:
		p.CreateIndex(s.CreateIndex.Table, s.CreateIndex.builder())
	case s.DropIndex != nil:
		if s.DropIndex.IfExists {
			p.DropIndexIfExists(s.DropIndex.Table, s.DropIndex.Name)
		} else {
			p.DropIndex(s.DropIndex.Table, s.DropIndex.Name)
		}
	case s.SQL != nil:
		p.Exec(*s.SQL)
	}
}

func applyColumn(b *schema.ColumnBuilder, c columnDecl) {
	if c.NotNull {
		b.NotNull()
	}

	if c.Unique {
		b.Unique()
	}

	if c.PrimaryKey {
		b.PrimaryKey()
	}

	if c.AutoIncrement {
		b.AutoIncrement()
	}

	if c.Default != nil {
		b.Default(*c.Default)
	}
}

func applyIndex(b *schema.IndexBuilder, i indexDecl) {
	if i.Unique {
		b.Unique()
	}

	if i.Concurrently {
		b.Concurrently()
	}
}

func applyAlter(a *schema.AlterBuilder, d *alterDecl) {
	if d.Type != "" {
		a.Type(d.toType())
	}

	if d.NotNull != nil {
		if *d.NotNull {
			a.SetNotNull()
		} else {
			a.DropNotNull()
		}
	}

	if d.DropDefault {
		a.DropDefault()
	} else if d.Default != nil {
		a.SetDefault(*d.Default)
	}
}
