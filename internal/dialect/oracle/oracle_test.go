package oracle

import (
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
	g, err := dialect.New(core.DialectOracle, dialect.DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, core.DialectOracle, g.Dialect())
	assert.Equal(t, dialect.UpsertMerge, g.Descriptor().Features.Upsert)
}

func TestAttributeToSQL(t *testing.T) {
	g := gen()
	def := any("pending")

	// DEFAULT must precede NOT NULL.
	sql, err := g.AttributeToSQL(core.TableOf("jobs"), &core.Column{
		Name: "state", Type: core.DataTypeString, DefaultValue: &def,
	})
	require.NoError(t, err)
	assert.Equal(t, `"state" VARCHAR2(255) DEFAULT 'pending' NOT NULL`, sql)

	sql, err = g.AttributeToSQL(core.TableOf("jobs"), &core.Column{
		Name: "id", Type: core.DataTypeBigInt, PrimaryKey: true, AutoIncrement: true,
	})
	require.NoError(t, err)
	assert.Equal(t, `"id" NUMBER(19) GENERATED BY DEFAULT ON NULL AS IDENTITY NOT NULL`, sql)

	sql, err = g.AttributeToSQL(core.TableOf("jobs"), &core.Column{
		Name: "kind", Type: core.DataTypeEnum, EnumValues: []string{"a", "b"},
	})
	require.NoError(t, err)
	assert.Equal(t, `"kind" VARCHAR2(255) NOT NULL CHECK ("kind" IN ('a', 'b'))`, sql)

	sql, err = g.AttributeToSQL(core.TableOf("jobs"), &core.Column{
		Name: "payload", Type: core.DataTypeJSON, Nullable: true,
	})
	require.NoError(t, err)
	assert.Equal(t, `"payload" CLOB CHECK ("payload" IS JSON)`, sql)
}

func TestReferencesClauseActions(t *testing.T) {
	g := gen()

	sql, err := g.AttributeToSQL(core.TableOf("orders"), &core.Column{
		Name: "user_id", Type: core.DataTypeInt, Nullable: true,
		References: &core.ForeignKeyRef{Table: core.TableOf("users"), Key: "id", OnDelete: core.RefActionCascade},
	})
	require.NoError(t, err)
	assert.Contains(t, sql, `REFERENCES "users" ("id") ON DELETE CASCADE`)

	// RESTRICT is not expressible; the action clause is dropped.
	sql, err = g.AttributeToSQL(core.TableOf("orders"), &core.Column{
		Name: "user_id", Type: core.DataTypeInt, Nullable: true,
		References: &core.ForeignKeyRef{Table: core.TableOf("users"), Key: "id", OnDelete: core.RefActionRestrict},
	})
	require.NoError(t, err)
	assert.NotContains(t, sql, "ON DELETE")
}

func TestCreateTableQueryGuard(t *testing.T) {
	g := gen()
	columns := []*core.Column{{Name: "id", Type: core.DataTypeInt, PrimaryKey: true}}

	sql, err := g.CreateTableQuery(core.TableOf("users"), columns, dialect.CreateTableOptions{})
	require.NoError(t, err)
	assert.Equal(t, `CREATE TABLE "users" ("id" NUMBER(10) NOT NULL, PRIMARY KEY ("id"));`, sql)

	sql, err = g.CreateTableQuery(core.TableOf("users"), columns, dialect.CreateTableOptions{IfNotExists: true})
	require.NoError(t, err)
	assert.Contains(t, sql, "BEGIN EXECUTE IMMEDIATE '")
	assert.Contains(t, sql, "IF SQLCODE != -955 THEN RAISE; END IF; END;")
	assert.Contains(t, sql, `CREATE TABLE "users" ("id" NUMBER(10) NOT NULL`)
}

func TestDropTableQueryGuard(t *testing.T) {
	g := gen()

	assert.Equal(t, `DROP TABLE "users" CASCADE CONSTRAINTS;`,
		g.DropTableQuery(core.TableOf("users"), dialect.DropTableOptions{Cascade: true}))

	guarded := g.DropTableQuery(core.TableOf("users"), dialect.DropTableOptions{IfExists: true})
	assert.Contains(t, guarded, "BEGIN EXECUTE IMMEDIATE '")
	assert.Contains(t, guarded, "IF SQLCODE != -942 THEN RAISE; END IF; END;")
}

func TestColumnQueries(t *testing.T) {
	g := gen()

	sql, err := g.AddColumnQuery(core.TableOf("users"), &core.Column{Name: "age", Type: core.DataTypeInt, Nullable: true})
	require.NoError(t, err)
	assert.Equal(t, `ALTER TABLE "users" ADD ("age" NUMBER(10));`, sql)

	sql, err = g.ChangeColumnQuery(core.TableOf("users"), &core.Column{Name: "age", Type: core.DataTypeBigInt}, dialect.ChangeColumnOptions{})
	require.NoError(t, err)
	assert.Equal(t, `ALTER TABLE "users" MODIFY ("age" NUMBER(19) NOT NULL);`, sql)

	sql, err = g.ChangeColumnQuery(core.TableOf("users"), &core.Column{Name: "age", Type: core.DataTypeInt, Nullable: true}, dialect.ChangeColumnOptions{DropDefault: true})
	require.NoError(t, err)
	assert.Equal(t, `ALTER TABLE "users" MODIFY ("age" NUMBER(10) DEFAULT NULL NULL);`, sql)
}

func TestBulkInsertQueryInsertAll(t *testing.T) {
	g := gen()
	sql, err := g.BulkInsertQuery(core.TableOf("users"), []string{"name"}, [][]any{{"ada"}, {"grace"}})
	require.NoError(t, err)
	assert.Equal(t, `INSERT ALL INTO "users" ("name") VALUES ('ada') INTO "users" ("name") VALUES ('grace') SELECT 1 FROM DUAL;`, sql)
}

func TestUpdateAndDeleteRownumLimits(t *testing.T) {
	g := gen()
	limit := 5

	sql, err := g.UpdateQuery(core.TableOf("jobs"),
		[]dialect.Assignment{{Column: "state", Value: "done"}},
		dialect.And(dialect.Eq("state", "new")),
		dialect.UpdateOptions{Limit: &limit})
	require.NoError(t, err)
	assert.Equal(t, `UPDATE "jobs" SET "state" = 'done' WHERE "state" = 'new' AND ROWNUM <= 5;`, sql)

	sql, err = g.DeleteQuery(core.TableOf("jobs"), dialect.Where{}, dialect.DeleteOptions{Limit: &limit})
	require.NoError(t, err)
	assert.Equal(t, `DELETE FROM "jobs" WHERE ROWNUM <= 5;`, sql)
}

func TestSelectQueryPagination(t *testing.T) {
	g := gen()
	limit, offset := 10, 20

	sql, err := g.SelectQuery(core.TableOf("users"), dialect.SelectOptions{
		OrderBy: []dialect.Order{{Column: "id"}},
		Limit:   &limit,
		Offset:  &offset,
		Lock:    dialect.LockUpdate,
	})
	require.NoError(t, err)
	assert.Equal(t, `SELECT * FROM "users" ORDER BY "id" OFFSET 20 ROWS FETCH NEXT 10 ROWS ONLY FOR UPDATE;`, sql)
}

func TestUpsertQueryMerge(t *testing.T) {
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
		nil, dialect.Where{}, model)
	require.NoError(t, err)

	assert.Contains(t, sql, `MERGE INTO "users" "t" USING (SELECT 1 AS "id", 'ada' AS "name" FROM DUAL) "s" ON ("t"."id" = "s"."id")`)
	// Match-key columns never appear in the UPDATE SET list.
	assert.Contains(t, sql, `WHEN MATCHED THEN UPDATE SET "t"."name" = "s"."name"`)
	assert.Contains(t, sql, `WHEN NOT MATCHED THEN INSERT ("id", "name") VALUES ("s"."id", "s"."name");`)
}

func TestUpsertQueryKeyOnlyOmitsMatchedBranch(t *testing.T) {
	g := gen()
	model := &core.Table{
		Name:    "tags",
		Columns: []*core.Column{{Name: "name", Type: core.DataTypeString, PrimaryKey: true}},
	}

	sql, err := g.UpsertQuery(core.TableOf("tags"),
		[]dialect.Assignment{{Column: "name", Value: "go"}},
		nil, dialect.Where{}, model)
	require.NoError(t, err)
	assert.NotContains(t, sql, "WHEN MATCHED")
	assert.Contains(t, sql, "WHEN NOT MATCHED THEN INSERT")
}

func TestTransactionQueries(t *testing.T) {
	g := gen()

	assert.Equal(t, "SET TRANSACTION READ WRITE;", g.StartTransactionQuery())

	sql, err := g.SetIsolationLevelQuery(dialect.IsolationSerializable)
	require.NoError(t, err)
	assert.Equal(t, "SET TRANSACTION ISOLATION LEVEL SERIALIZABLE;", sql)

	_, err = g.SetIsolationLevelQuery(dialect.IsolationRepeatableRead)
	assert.Error(t, err)
}

func TestCatalogQueries(t *testing.T) {
	g := gen()

	assert.Equal(t, "SELECT banner FROM v$version;", g.VersionQuery())
	assert.Equal(t, "SELECT table_name FROM user_tables;", g.ShowTablesQuery(""))
	assert.Contains(t, g.ShowTablesQuery("crm"), "owner = 'CRM'")

	describe := g.DescribeTableQuery(core.SchemaTable("crm", "users"))
	assert.Contains(t, describe, `column_name AS "columnName"`)
	assert.Contains(t, describe, "AND owner = 'CRM'")

	fks := g.ForeignKeysQuery(core.TableOf("orders"), "")
	assert.Contains(t, fks, "c.constraint_type = 'R'")
	assert.Contains(t, fks, "all_cons_columns")

	fk := g.ForeignKeyQuery(core.TableOf("orders"), "user_id")
	assert.Contains(t, fk, "cc.column_name = 'USER_ID'")
}

func TestJSONPathExtractionQuery(t *testing.T) {
	g := gen()
	expr, err := g.JSONPathExtractionQuery("data", []string{"a"}, false)
	require.NoError(t, err)
	assert.Equal(t, `json_value("data",'$.a')`, expr)
}
