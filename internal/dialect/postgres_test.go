package dialect_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aqasim81/schema-migrator/internal/dialect"
	"github.com/aqasim81/schema-migrator/internal/operation"
	"github.com/aqasim81/schema-migrator/internal/schema"
)

func buildOps(t *testing.T, fn func(p *schema.Plan)) []operation.Operation {
	t.Helper()

	p := schema.NewPlan()
	fn(p)

	ops, err := p.Operations()
	require.NoError(t, err)

	return ops
}

func TestPostgres_createTable_orderOfStatements(t *testing.T) {
	t.Parallel()

	ops := buildOps(t, func(p *schema.Plan) {
		p.CreateTable("users", func(tb *schema.TableBuilder) {
			tb.Column("id", schema.BigInt()).PrimaryKey().AutoIncrement()
			tb.Column("name", schema.Varchar(100)).NotNull()
			tb.Column("org_id", schema.BigInt())
			tb.ForeignKey("org_id").References("orgs", "id").OnDelete(operation.Cascade)
			tb.Index("", "name")
		})
	})

	stmts, err := dialect.NewPostgres().Render(ops[0])
	require.NoError(t, err)

	assert.Equal(t, []string{
		`CREATE TABLE "users" ("id" BIGINT GENERATED BY DEFAULT AS IDENTITY NOT NULL, "name" VARCHAR(100) NOT NULL, "org_id" BIGINT, PRIMARY KEY ("id"))`,
		`ALTER TABLE "users" ADD CONSTRAINT "fk_users_org_id" FOREIGN KEY ("org_id") REFERENCES "orgs" ("id") ON DELETE CASCADE`,
		`CREATE INDEX "idx_users_name" ON "users" ("name")`,
	}, stmts)

	assert.NotContains(t, stmts[0], "FOREIGN KEY", "foreign keys are never embedded in CREATE TABLE")
}

func TestPostgres_createTable_uniquesEnumAndSchema(t *testing.T) {
	t.Parallel()

	ops := buildOps(t, func(p *schema.Plan) {
		p.InSchema("app").CreateTable("orders", func(tb *schema.TableBuilder) {
			tb.Column("id", schema.UUID()).Default("gen_random_uuid()")
			tb.Column("status", schema.Enum("new", "it's done")).NotNull()
			tb.Column("total", schema.Decimal(10, 2)).NotNull().Default("0")
			tb.Column("code", schema.Char(3)).Unique()
			tb.PrimaryKey("id")
			tb.Unique("", "status", "total")
			tb.Index("orders_code_idx", "code").Unique().Concurrently()
		})
	})

	stmts, err := dialect.NewPostgres().Render(ops[0])
	require.NoError(t, err)

	assert.Equal(t, []string{
		`CREATE TABLE "app"."orders" (` +
			`"id" UUID DEFAULT gen_random_uuid(), ` +
			`"status" TEXT NOT NULL CHECK ("status" IN ('new', 'it''s done')), ` +
			`"total" NUMERIC(10, 2) NOT NULL DEFAULT 0, ` +
			`"code" CHAR(3) UNIQUE, ` +
			`PRIMARY KEY ("id"), ` +
			`CONSTRAINT "uq_orders_status_total" UNIQUE ("status", "total"))`,
		`CREATE UNIQUE INDEX CONCURRENTLY "orders_code_idx" ON "app"."orders" ("code")`,
	}, stmts)
}

func TestPostgres_render(t *testing.T) {
	t.Parallel()

	bigint := operation.Type{Name: operation.TypeBigInt}

	tests := []struct {
		name string
		op   operation.Operation
		want []string
	}{
		{
			name: "drop table",
			op:   operation.DropTable{Name: "users"},
			want: []string{`DROP TABLE "users"`},
		},
		{
			name: "drop table if exists cascade",
			op:   operation.DropTable{Name: "users", Schema: "app", IfExists: true, Cascade: true},
			want: []string{`DROP TABLE IF EXISTS "app"."users" CASCADE`},
		},
		{
			name: "rename table",
			op:   operation.RenameTable{OldName: "users", NewName: "accounts"},
			want: []string{`ALTER TABLE "users" RENAME TO "accounts"`},
		},
		{
			name: "add column",
			op: operation.AddColumn{Table: "users", Column: operation.Column{
				Name: "email", Type: operation.Type{Name: operation.TypeVarchar, Length: 255}, Nullable: true,
			}},
			want: []string{`ALTER TABLE "users" ADD COLUMN "email" VARCHAR(255)`},
		},
		{
			name: "drop column if exists",
			op:   operation.DropColumn{Table: "users", Column: "email", IfExists: true},
			want: []string{`ALTER TABLE "users" DROP COLUMN IF EXISTS "email"`},
		},
		{
			name: "rename column",
			op:   operation.RenameColumn{Table: "users", OldName: "email", NewName: "mail"},
			want: []string{`ALTER TABLE "users" RENAME COLUMN "email" TO "mail"`},
		},
		{
			name: "alter type and nullability emits two statements",
			op:   operation.AlterColumn{Table: "users", Column: "age", NewType: &bigint, Nullable: boolPtr(false)},
			want: []string{
				`ALTER TABLE "users" ALTER COLUMN "age" TYPE BIGINT USING "age"::BIGINT`,
				`ALTER TABLE "users" ALTER COLUMN "age" SET NOT NULL`,
			},
		},
		{
			name: "alter drop not null and set default",
			op:   operation.AlterColumn{Table: "users", Column: "age", Nullable: boolPtr(true), Default: strPtr("18")},
			want: []string{
				`ALTER TABLE "users" ALTER COLUMN "age" DROP NOT NULL`,
				`ALTER TABLE "users" ALTER COLUMN "age" SET DEFAULT 18`,
			},
		},
		{
			name: "alter drop default",
			op:   operation.AlterColumn{Table: "users", Column: "age", DropDefault: true},
			want: []string{`ALTER TABLE "users" ALTER COLUMN "age" DROP DEFAULT`},
		},
		{
			name: "add primary key",
			op:   operation.AddPrimaryKey{Table: "m", Name: "pk_m", Columns: []string{"a", "b"}},
			want: []string{`ALTER TABLE "m" ADD CONSTRAINT "pk_m" PRIMARY KEY ("a", "b")`},
		},
		{
			name: "drop primary key",
			op:   operation.DropPrimaryKey{Table: "m", Name: "pk_m"},
			want: []string{`ALTER TABLE "m" DROP CONSTRAINT "pk_m"`},
		},
		{
			name: "add foreign key across schemas",
			op: operation.AddForeignKey{Table: "posts", Schema: "app", ForeignKey: operation.ForeignKey{
				Name: "fk_posts_user", Columns: []string{"user_id"}, RefTable: "users", RefSchema: "auth",
				RefColumns: []string{"id"}, OnDelete: operation.SetNull, OnUpdate: operation.Restrict,
			}},
			want: []string{`ALTER TABLE "app"."posts" ADD CONSTRAINT "fk_posts_user" FOREIGN KEY ("user_id") ` +
				`REFERENCES "auth"."users" ("id") ON DELETE SET NULL ON UPDATE RESTRICT`},
		},
		{
			name: "drop foreign key",
			op:   operation.DropForeignKey{Table: "posts", Name: "fk_posts_user"},
			want: []string{`ALTER TABLE "posts" DROP CONSTRAINT "fk_posts_user"`},
		},
		{
			name: "create index",
			op: operation.CreateIndex{Table: "posts", Index: operation.Index{
				Name: "idx_posts_created", Columns: []string{"created_at", "id"},
			}},
			want: []string{`CREATE INDEX "idx_posts_created" ON "posts" ("created_at", "id")`},
		},
		{
			name: "drop index if exists",
			op:   operation.DropIndex{Name: "idx_posts_created", Table: "posts", Schema: "app", IfExists: true},
			want: []string{`DROP INDEX IF EXISTS "app"."idx_posts_created"`},
		},
		{
			name: "raw sql passes through",
			op:   operation.ExecuteSQL{SQL: "UPDATE users SET active = true"},
			want: []string{"UPDATE users SET active = true"},
		},
	}

	r := dialect.NewPostgres()

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := r.Render(tt.op)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPostgres_renderErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		op      operation.Operation
		wantErr error
	}{
		{
			name:    "empty alter",
			op:      operation.AlterColumn{Table: "t", Column: "c"},
			wantErr: dialect.ErrInvalidOperation,
		},
		{
			name:    "incomplete foreign key",
			op:      operation.AddForeignKey{Table: "t", ForeignKey: operation.ForeignKey{Name: "fk", Columns: []string{"a"}}},
			wantErr: dialect.ErrInvalidOperation,
		},
		{
			name:    "unknown type",
			op:      operation.AddColumn{Table: "t", Column: operation.Column{Name: "c", Type: operation.Type{Name: "money"}}},
			wantErr: dialect.ErrUnsupportedType,
		},
		{
			name:    "table without columns",
			op:      operation.CreateTable{Name: "t"},
			wantErr: dialect.ErrInvalidOperation,
		},
		{
			name:    "index without columns",
			op:      operation.CreateIndex{Table: "t", Index: operation.Index{Name: "i"}},
			wantErr: dialect.ErrInvalidOperation,
		},
	}

	r := dialect.NewPostgres()

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := r.Render(tt.op)
			require.ErrorIs(t, err, tt.wantErr)
			assert.Nil(t, got)
		})
	}
}

func TestPostgres_foreignKeyOrderFollowsDeclaration(t *testing.T) {
	t.Parallel()

	// A table referencing one created later in the same migration keeps
	// declaration order; the referenced table must be declared first.
	ops := buildOps(t, func(p *schema.Plan) {
		p.CreateTable("posts", func(tb *schema.TableBuilder) {
			tb.Column("id", schema.BigInt()).PrimaryKey()
			tb.Column("user_id", schema.BigInt())
			tb.ForeignKey("user_id").References("users", "id")
		})
		p.CreateTable("users", func(tb *schema.TableBuilder) {
			tb.Column("id", schema.BigInt()).PrimaryKey()
		})
	})

	stmts, err := dialect.RenderAll(dialect.NewPostgres(), ops)
	require.NoError(t, err)
	require.Len(t, stmts, 3)

	assert.Contains(t, stmts[0], `CREATE TABLE "posts"`)
	assert.Contains(t, stmts[1], `REFERENCES "users"`)
	assert.Contains(t, stmts[2], `CREATE TABLE "users"`)
}
