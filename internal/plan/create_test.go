package plan

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sqlforge/internal/core"
	"sqlforge/internal/dialect"
	"sqlforge/internal/dialect/mysql"
	"sqlforge/internal/dialect/postgres"
)

func testDatabase() *core.Database {
	return &core.Database{
		Name:    "shop",
		Dialect: "postgres",
		Tables: []*core.Table{
			{
				Name: "users",
				Columns: []*core.Column{
					{Name: "id", Type: core.DataTypeInt, PrimaryKey: true, AutoIncrement: true},
					{Name: "status", Type: core.DataTypeEnum, EnumValues: []string{"active", "banned"}},
				},
				Indexes: []*core.Index{
					{Name: "idx_status", Columns: []string{"status"}},
				},
				Constraints: []*core.Constraint{
					{Name: "uq_status", Type: core.ConstraintUnique, Columns: []string{"status"}},
					{Name: "chk_id", Type: core.ConstraintCheck, CheckExpression: "id > 0"},
				},
			},
		},
	}
}

func TestCreatePostgresEnumBeforeTable(t *testing.T) {
	gen := postgres.New(dialect.DefaultOptions())
	p, err := Create(gen, testDatabase())
	require.NoError(t, err)

	stmts := p.Statements()
	require.Len(t, stmts, 4)
	assert.Contains(t, stmts[0], "CREATE TYPE \"enum_users_status\"")
	assert.Contains(t, stmts[1], "CREATE TABLE IF NOT EXISTS \"users\"")
	assert.Contains(t, stmts[2], "CREATE INDEX \"idx_status\"")
	assert.Contains(t, stmts[3], "ADD CONSTRAINT \"chk_id\" CHECK (id > 0)")

	// Unique constraints ride inside CREATE TABLE, not as a separate step.
	assert.Contains(t, stmts[1], `CONSTRAINT "uq_status" UNIQUE ("status")`)
	for _, s := range stmts[2:] {
		assert.NotContains(t, s, "uq_status")
	}
}

func TestCreateRollbackReversed(t *testing.T) {
	gen := postgres.New(dialect.DefaultOptions())
	p, err := Create(gen, testDatabase())
	require.NoError(t, err)

	rollback := p.RollbackStatements()
	require.Len(t, rollback, 4)
	assert.Contains(t, rollback[0], "DROP CONSTRAINT \"chk_id\"")
	assert.Contains(t, rollback[1], "DROP INDEX IF EXISTS \"idx_status\"")
	assert.Contains(t, rollback[2], "DROP TABLE IF EXISTS \"users\"")
	assert.Contains(t, rollback[3], "DROP TYPE IF EXISTS \"enum_users_status\"")
}

func TestCreateMySQLHasNoEnumSteps(t *testing.T) {
	gen := mysql.New(dialect.DefaultOptions())
	p, err := Create(gen, testDatabase())
	require.NoError(t, err)

	for _, s := range p.Statements() {
		assert.False(t, strings.HasPrefix(s, "CREATE TYPE"), "unexpected enum DDL: %s", s)
	}
	// The enum column renders inline instead.
	assert.Contains(t, p.Statements()[0], "ENUM('active', 'banned')")
}

func TestCreateUnnamedConstraintHasNoRollback(t *testing.T) {
	db := testDatabase()
	db.Tables[0].Constraints = []*core.Constraint{
		{Type: core.ConstraintCheck, CheckExpression: "id > 0"},
	}
	p, err := Create(mysql.New(dialect.DefaultOptions()), db)
	require.NoError(t, err)
	for _, r := range p.RollbackStatements() {
		assert.NotContains(t, r, "DROP CONSTRAINT")
	}
}

func TestCreatePropagatesGeneratorErrors(t *testing.T) {
	db := &core.Database{
		Tables: []*core.Table{
			{
				Name:    "bad",
				Columns: []*core.Column{{Name: "state", Type: core.DataTypeEnum}},
			},
		},
	}
	_, err := Create(postgres.New(dialect.DefaultOptions()), db)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad")
}
