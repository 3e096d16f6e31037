package dialect_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aqasim81/schema-migrator/internal/dialect"
	"github.com/aqasim81/schema-migrator/internal/operation"
	"github.com/aqasim81/schema-migrator/internal/schema"
)

func TestSQLite_createTable_inlinesForeignKeys(t *testing.T) {
	t.Parallel()

	ops := buildOps(t, func(p *schema.Plan) {
		p.CreateTable("posts", func(tb *schema.TableBuilder) {
			tb.Column("id", schema.BigInt()).PrimaryKey().AutoIncrement()
			tb.Column("user_id", schema.BigInt()).NotNull()
			tb.Column("state", schema.Enum("draft", "live")).NotNull().Default("'draft'")
			tb.ForeignKey("user_id").References("users", "id").OnDelete(operation.Cascade)
			tb.Index("", "user_id")
		})
	})

	stmts, err := dialect.NewSQLite().Render(ops[0])
	require.NoError(t, err)

	assert.Equal(t, []string{
		`CREATE TABLE "posts" ("id" INTEGER PRIMARY KEY AUTOINCREMENT NOT NULL, "user_id" INTEGER NOT NULL, ` +
			`"state" TEXT NOT NULL DEFAULT 'draft' CHECK ("state" IN ('draft', 'live')), ` +
			`CONSTRAINT "fk_posts_user_id" FOREIGN KEY ("user_id") REFERENCES "users" ("id") ON DELETE CASCADE)`,
		`CREATE INDEX "idx_posts_user_id" ON "posts" ("user_id")`,
	}, stmts)
}

func TestSQLite_createTable_compositeKey(t *testing.T) {
	t.Parallel()

	ops := buildOps(t, func(p *schema.Plan) {
		p.CreateTable("memberships", func(tb *schema.TableBuilder) {
			tb.Column("user_id", schema.BigInt()).NotNull()
			tb.Column("group_id", schema.BigInt()).NotNull()
			tb.PrimaryKey("user_id", "group_id")
		})
	})

	stmts, err := dialect.NewSQLite().Render(ops[0])
	require.NoError(t, err)

	assert.Equal(t, []string{
		`CREATE TABLE "memberships" ("user_id" INTEGER NOT NULL, "group_id" INTEGER NOT NULL, PRIMARY KEY ("user_id", "group_id"))`,
	}, stmts)
}

func TestSQLite_unsupported(t *testing.T) {
	t.Parallel()

	text := operation.Type{Name: operation.TypeText}

	tests := []struct {
		name string
		op   operation.Operation
	}{
		{
			name: "auto-increment outside a single key",
			op: operation.CreateTable{Name: "t", Columns: []operation.Column{
				{Name: "a", Type: operation.Type{Name: operation.TypeInteger}, AutoIncrement: true},
				{Name: "b", Type: text},
			}, PrimaryKey: []string{"a", "b"}},
		},
		{name: "drop table cascade", op: operation.DropTable{Name: "t", Cascade: true}},
		{name: "drop column if exists", op: operation.DropColumn{Table: "t", Column: "c", IfExists: true}},
		{
			name: "add unique column",
			op:   operation.AddColumn{Table: "t", Column: operation.Column{Name: "c", Type: text, Nullable: true, Unique: true}},
		},
		{
			name: "add not null column without default",
			op:   operation.AddColumn{Table: "t", Column: operation.Column{Name: "c", Type: text}},
		},
	}

	r := dialect.NewSQLite()

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := r.Render(tt.op)
			require.ErrorIs(t, err, dialect.ErrUnsupportedOperation)
			assert.Nil(t, got)
		})
	}
}

func TestSQLite_render(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		op   operation.Operation
		want []string
	}{
		{
			name: "add nullable column",
			op: operation.AddColumn{Table: "users", Column: operation.Column{
				Name: "email", Type: operation.Type{Name: operation.TypeVarchar, Length: 255}, Nullable: true,
			}},
			want: []string{`ALTER TABLE "users" ADD COLUMN "email" VARCHAR(255)`},
		},
		{
			name: "add not null column with default",
			op: operation.AddColumn{Table: "users", Column: operation.Column{
				Name: "active", Type: operation.Type{Name: operation.TypeBoolean}, Default: strPtr("1"),
			}},
			want: []string{`ALTER TABLE "users" ADD COLUMN "active" BOOLEAN NOT NULL DEFAULT 1`},
		},
		{
			name: "index in attached schema",
			op: operation.CreateIndex{Table: "users", Schema: "aux", Index: operation.Index{
				Name: "uq_users_email", Columns: []string{"email"}, Unique: true, Concurrently: true,
			}},
			want: []string{`CREATE UNIQUE INDEX "aux"."uq_users_email" ON "users" ("email")`},
		},
		{
			name: "drop index if exists",
			op:   operation.DropIndex{Name: "uq_users_email", IfExists: true},
			want: []string{`DROP INDEX IF EXISTS "uq_users_email"`},
		},
		{
			name: "drop table if exists",
			op:   operation.DropTable{Name: "users", IfExists: true},
			want: []string{`DROP TABLE IF EXISTS "users"`},
		},
	}

	r := dialect.NewSQLite()

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := r.Render(tt.op)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
