package executor_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aqasim81/schema-migrator/internal/database"
	"github.com/aqasim81/schema-migrator/internal/dialect"
	"github.com/aqasim81/schema-migrator/internal/executor"
	"github.com/aqasim81/schema-migrator/internal/ledger"
	"github.com/aqasim81/schema-migrator/internal/migration"
	"github.com/aqasim81/schema-migrator/internal/schema"
)

// testEnv is a file-backed SQLite database with its history ledger.
type testEnv struct {
	db     database.DB
	ledger *ledger.Ledger
}

func newEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := database.Open(context.Background(), database.DriverSQLite, filepath.Join(t.TempDir(), "app.db"))
	require.NoError(t, err)
	t.Cleanup(db.Close)

	return &testEnv{db: db, ledger: ledger.New(dialect.NewSQLite())}
}

func (e *testEnv) executor(opts ...executor.Option) *executor.Executor {
	return executor.New(e.db, dialect.NewSQLite(), e.ledger, opts...)
}

func (e *testEnv) session(t *testing.T) database.Session {
	t.Helper()

	s, err := e.db.Acquire(context.Background())
	require.NoError(t, err)
	t.Cleanup(s.Release)

	return s
}

func (e *testEnv) tableExists(t *testing.T, name string) bool {
	t.Helper()

	var count int

	require.NoError(t, e.session(t).QueryRow(context.Background(),
		`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?`, name).Scan(&count))

	return count > 0
}

func (e *testEnv) records(t *testing.T) []ledger.Record {
	t.Helper()

	s := e.session(t)
	require.NoError(t, e.ledger.EnsureTable(context.Background(), s))

	records, err := e.ledger.FindAll(context.Background(), s)
	require.NoError(t, err)

	return records
}

func (e *testEnv) statuses(t *testing.T) map[int64]ledger.Status {
	t.Helper()

	out := map[int64]ledger.Status{}
	for _, r := range e.records(t) {
		out[r.Version] = r.Status
	}

	return out
}

func createUsers() *migration.Definition {
	return migration.Define(1, 20240101000000, "create users",
		func(p *schema.Plan) {
			p.CreateTable("users", func(tb *schema.TableBuilder) {
				tb.Column("id", schema.BigInt()).PrimaryKey().AutoIncrement()
				tb.Column("name", schema.Varchar(100)).NotNull()
			})
		},
		func(p *schema.Plan) { p.DropTable("users") },
	)
}

func addEmail() *migration.Definition {
	return migration.Define(2, 20240102000000, "add users email",
		func(p *schema.Plan) { p.AddColumn("users", schema.Col("email", schema.Varchar(255))) },
		func(p *schema.Plan) { p.DropColumn("users", "email") },
	)
}

func createPosts() *migration.Definition {
	return migration.Define(3, 20240103000000, "create posts",
		func(p *schema.Plan) {
			p.CreateTable("posts", func(tb *schema.TableBuilder) {
				tb.Column("id", schema.BigInt()).PrimaryKey().AutoIncrement()
				tb.Column("user_id", schema.BigInt()).NotNull()
				tb.ForeignKey("user_id").References("users", "id")
				tb.Index("", "user_id")
			})
		},
		func(p *schema.Plan) { p.DropTable("posts") },
	)
}

// failing creates a table and then runs a statement that cannot succeed.
func failing(version int64) *migration.Definition {
	return migration.Define(version, 20240109000000, "broken",
		func(p *schema.Plan) {
			p.CreateTable("half_done", func(tb *schema.TableBuilder) {
				tb.Column("id", schema.Integer())
			})
			p.Exec("INSERT INTO missing_table (id) VALUES (1)")
		},
		nil,
	)
}

func units(defs ...*migration.Definition) []migration.Migration {
	out := make([]migration.Migration, len(defs))
	for i, d := range defs {
		out[i] = d
	}

	return out
}

func versions(outcomes []executor.Outcome) []int64 {
	vs := make([]int64, len(outcomes))
	for i, o := range outcomes {
		vs[i] = o.Version
	}

	return vs
}
