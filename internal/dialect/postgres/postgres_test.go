package postgres

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sqlforge/internal/core"
	"sqlforge/internal/dialect"
)

func gen() *Generator {
	return New(dialect.DefaultOptions())
}

func TestRegistered(t *testing.T) {
	g, err := dialect.New(core.DialectPostgres, dialect.DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, core.DialectPostgres, g.Dialect())
	assert.True(t, g.Descriptor().Features.Enums)
	assert.True(t, g.Descriptor().Features.Returning)
}

func TestEnumQueries(t *testing.T) {
	g := gen()
	tbl := core.TableOf("users")

	assert.Equal(t, "enum_users_status", EnumName(tbl, "status"))

	sql, err := g.CreateEnumQuery(tbl, "status", []string{"active", "banned"})
	require.NoError(t, err)
	assert.Equal(t, `CREATE TYPE "enum_users_status" AS ENUM ('active', 'banned');`, sql)

	_, err = g.CreateEnumQuery(tbl, "status", nil)
	assert.Error(t, err)

	assert.Equal(t, `ALTER TYPE "enum_users_status" ADD VALUE IF NOT EXISTS 'paused' BEFORE 'banned';`,
		g.AddEnumValueQuery(tbl, "status", "paused", "banned", ""))
	assert.Equal(t, `ALTER TYPE "enum_users_status" ADD VALUE IF NOT EXISTS 'paused' AFTER 'active';`,
		g.AddEnumValueQuery(tbl, "status", "paused", "", "active"))
	assert.Equal(t, `DROP TYPE IF EXISTS "enum_users_status";`, g.DropEnumQuery(tbl, "status"))

	labels := g.ListEnumLabelsQuery(tbl, "status")
	assert.Contains(t, labels, `e.enumlabel AS "enumLabel"`)
	assert.Contains(t, labels, "t.typname = 'enum_users_status'")
	assert.Contains(t, labels, "ORDER BY e.enumsortorder;")

	qualified := g.QuoteEnumName(core.SchemaTable("crm", "users"), "status")
	assert.Equal(t, `"crm"."enum_users_status"`, qualified)
}

func TestCreateTableQuery(t *testing.T) {
	g := gen()
	columns := []*core.Column{
		{Name: "id", Type: core.DataTypeBigInt, PrimaryKey: true, AutoIncrement: true},
		{Name: "status", Type: core.DataTypeEnum, EnumValues: []string{"active", "banned"}},
		{Name: "user_id", Type: core.DataTypeInt, References: &core.ForeignKeyRef{
			Table: core.TableOf("users"), Key: "id", OnDelete: core.RefActionSetNull,
		}},
	}
	sql, err := g.CreateTableQuery(core.TableOf("accounts"), columns, dialect.CreateTableOptions{
		IfNotExists: true, Comment: "account table",
	})
	require.NoError(t, err)

	assert.Contains(t, sql, `CREATE TABLE IF NOT EXISTS "accounts"`)
	assert.Contains(t, sql, `"id" BIGSERIAL NOT NULL`)
	assert.Contains(t, sql, `"status" "enum_accounts_status" NOT NULL`)
	assert.Contains(t, sql, `"user_id" INTEGER NOT NULL REFERENCES "users" ("id") ON DELETE SET NULL`)
	assert.Contains(t, sql, `PRIMARY KEY ("id")`)
	assert.Contains(t, sql, `COMMENT ON TABLE "accounts" IS 'account table';`)
}

func TestDropTableQuery(t *testing.T) {
	g := gen()
	assert.Equal(t, `DROP TABLE IF EXISTS "users" CASCADE;`,
		g.DropTableQuery(core.TableOf("users"), dialect.DropTableOptions{IfExists: true, Cascade: true}))
}

func TestChangeColumnQuery(t *testing.T) {
	g := gen()
	def := any(0)

	sql, err := g.ChangeColumnQuery(core.TableOf("users"), &core.Column{
		Name: "age", Type: core.DataTypeBigInt, DefaultValue: &def, Unique: true,
	}, dialect.ChangeColumnOptions{})
	require.NoError(t, err)

	// Fixed statement order: nullability, default, type cast, unique.
	notNull := strings.Index(sql, `ALTER COLUMN "age" SET NOT NULL;`)
	setDefault := strings.Index(sql, `ALTER COLUMN "age" SET DEFAULT 0;`)
	typeCast := strings.Index(sql, `ALTER COLUMN "age" TYPE BIGINT USING ("age"::BIGINT);`)
	unique := strings.Index(sql, `ADD UNIQUE ("age");`)
	require.NotEqual(t, -1, notNull)
	assert.Less(t, notNull, setDefault)
	assert.Less(t, setDefault, typeCast)
	assert.Less(t, typeCast, unique)
}

func TestChangeColumnQueryEnumCastsThroughText(t *testing.T) {
	g := gen()
	sql, err := g.ChangeColumnQuery(core.TableOf("users"), &core.Column{
		Name: "status", Type: core.DataTypeEnum, EnumValues: []string{"a"},
	}, dialect.ChangeColumnOptions{})
	require.NoError(t, err)
	assert.Contains(t, sql, `TYPE "enum_users_status" USING ("status"::text::"enum_users_status");`)
}

func TestChangeColumnQueryDropDefault(t *testing.T) {
	g := gen()
	sql, err := g.ChangeColumnQuery(core.TableOf("users"), &core.Column{
		Name: "age", Type: core.DataTypeInt,
	}, dialect.ChangeColumnOptions{DropDefault: true})
	require.NoError(t, err)
	assert.Contains(t, sql, `ALTER COLUMN "age" DROP DEFAULT;`)
}

func TestRenameColumnQuery(t *testing.T) {
	g := gen()
	sql, err := g.RenameColumnQuery(core.TableOf("users"), "age", &core.Column{Name: "years"})
	require.NoError(t, err)
	assert.Equal(t, `ALTER TABLE "users" RENAME COLUMN "age" TO "years";`, sql)
}

func TestUpdateAndDeleteLimits(t *testing.T) {
	g := gen()
	limit := 5

	sql, err := g.UpdateQuery(core.TableOf("jobs"),
		[]dialect.Assignment{{Column: "state", Value: "done"}},
		dialect.And(dialect.Eq("state", "new")),
		dialect.UpdateOptions{Limit: &limit})
	require.NoError(t, err)
	assert.Equal(t, `UPDATE "jobs" SET "state" = 'done' WHERE ctid IN (SELECT ctid FROM "jobs" WHERE "state" = 'new' LIMIT 5);`, sql)

	sql, err = g.DeleteQuery(core.TableOf("jobs"), dialect.Where{}, dialect.DeleteOptions{Limit: &limit})
	require.NoError(t, err)
	assert.Equal(t, `DELETE FROM "jobs" WHERE ctid IN (SELECT ctid FROM "jobs" LIMIT 5);`, sql)
}

func TestSelectQueryLocking(t *testing.T) {
	g := gen()
	sql, err := g.SelectQuery(core.TableOf("users"), dialect.SelectOptions{Lock: dialect.LockShare})
	require.NoError(t, err)
	assert.Equal(t, `SELECT * FROM "users" FOR SHARE;`, sql)
}

func TestArithmeticQueryReturning(t *testing.T) {
	g := gen()
	sql, err := g.ArithmeticQuery("-", core.TableOf("stock"),
		[]dialect.Assignment{{Column: "count", Value: 2}},
		dialect.And(dialect.Eq("sku", "A1")))
	require.NoError(t, err)
	assert.Equal(t, `UPDATE "stock" SET "count" = "count" - 2 WHERE "sku" = 'A1' RETURNING "count";`, sql)
}

func TestUpsertQuery(t *testing.T) {
	g := gen()
	model := &core.Table{
		Name: "users",
		Columns: []*core.Column{
			{Name: "id", Type: core.DataTypeInt, PrimaryKey: true},
			{Name: "name", Type: core.DataTypeString},
		},
	}

	sql, err := g.UpsertQuery(core.TableOf("users"),
		[]dialect.Assignment{{Column: "id", Value: 1}, {Column: "name", Value: "ada"}},
		[]dialect.Assignment{{Column: "name", Value: "ada"}},
		dialect.And(dialect.Eq("id", 1)), model)
	require.NoError(t, err)

	assert.Contains(t, sql, "CREATE OR REPLACE FUNCTION pg_temp.sqlforge_upsert(OUT created boolean, OUT primary_key text)")
	assert.Contains(t, sql, `INSERT INTO "users" ("id", "name") VALUES (1, 'ada') RETURNING "id" INTO primary_key; created := true;`)
	assert.Contains(t, sql, "EXCEPTION WHEN unique_violation THEN")
	assert.Contains(t, sql, `UPDATE "users" SET "name" = 'ada' WHERE "id" = 1 RETURNING "id" INTO primary_key; created := false;`)
	assert.Contains(t, sql, "LANGUAGE plpgsql; SELECT * FROM pg_temp.sqlforge_upsert();")
}

func TestUpsertQueryRequiresSinglePrimaryKey(t *testing.T) {
	g := gen()

	_, err := g.UpsertQuery(core.TableOf("users"), []dialect.Assignment{{Column: "id", Value: 1}}, nil, dialect.Where{}, nil)
	assert.Error(t, err)

	composite := &core.Table{
		Name: "m2m",
		Columns: []*core.Column{
			{Name: "a", PrimaryKey: true},
			{Name: "b", PrimaryKey: true},
		},
	}
	_, err = g.UpsertQuery(core.TableOf("m2m"), []dialect.Assignment{{Column: "a", Value: 1}}, nil, dialect.Where{}, composite)
	assert.Error(t, err)
}

func TestDeferConstraintsQuery(t *testing.T) {
	g := gen()

	sql, err := g.DeferConstraintsQuery(dialect.DeferConstraintsOptions{Deferred: true})
	require.NoError(t, err)
	assert.Equal(t, "SET CONSTRAINTS ALL DEFERRED;", sql)

	sql, err = g.DeferConstraintsQuery(dialect.DeferConstraintsOptions{Constraints: []string{"fk_user"}})
	require.NoError(t, err)
	assert.Equal(t, `SET CONSTRAINTS "fk_user" IMMEDIATE;`, sql)
}

func TestCatalogQueries(t *testing.T) {
	g := gen()

	assert.Equal(t, "SHOW server_version;", g.VersionQuery())
	assert.Contains(t, g.ShowTablesQuery(""), "table_schema = 'public'")
	assert.Contains(t, g.ShowTablesQuery("crm"), "table_schema = 'crm'")

	describe := g.DescribeTableQuery(core.TableOf("users"))
	assert.Contains(t, describe, `c.column_name AS "columnName"`)
	assert.Contains(t, describe, `AS "enumLabels"`)
	assert.Contains(t, describe, "ORDER BY c.ordinal_position;")

	fks := g.ForeignKeysQuery(core.TableOf("orders"), "")
	assert.Contains(t, fks, "tc.constraint_type = 'FOREIGN KEY'")
	assert.Contains(t, fks, "information_schema.constraint_column_usage ccu")
	assert.Contains(t, fks, "tc.table_schema = 'public'")

	fk := g.ForeignKeyQuery(core.TableOf("orders"), "user_id")
	assert.Contains(t, fk, "kcu.column_name = 'user_id'")
}

func TestJSONPathExtractionQuery(t *testing.T) {
	g := gen()

	expr, err := g.JSONPathExtractionQuery("data", []string{"a", "b"}, false)
	require.NoError(t, err)
	assert.Equal(t, `("data"#>'{a,b}')`, expr)

	expr, err = g.JSONPathExtractionQuery("data", []string{"a,b"}, true)
	require.NoError(t, err)
	assert.Equal(t, `("data"#>>'{a\,b}')`, expr)
}
