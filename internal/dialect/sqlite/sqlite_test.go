package sqlite

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
	g, err := dialect.New(core.DialectSQLite, dialect.DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, core.DialectSQLite, g.Dialect())
	assert.True(t, g.Descriptor().Features.ForeignKeyPragma)
	assert.False(t, g.Descriptor().Features.Schemas)
}

func TestCreateTableQueryInlineAutoincrement(t *testing.T) {
	g := gen()
	columns := []*core.Column{
		{Name: "id", Type: core.DataTypeInt, PrimaryKey: true, AutoIncrement: true},
		{Name: "name", Type: core.DataTypeString},
	}
	sql, err := g.CreateTableQuery(core.TableOf("users"), columns, dialect.CreateTableOptions{IfNotExists: true})
	require.NoError(t, err)
	assert.Equal(t, "CREATE TABLE IF NOT EXISTS `users` (`id` INTEGER PRIMARY KEY AUTOINCREMENT, `name` VARCHAR(255) NOT NULL);", sql)
}

func TestCreateTableQueryCompositePrimaryKey(t *testing.T) {
	g := gen()
	columns := []*core.Column{
		{Name: "user_id", Type: core.DataTypeInt, PrimaryKey: true},
		{Name: "role_id", Type: core.DataTypeInt, PrimaryKey: true},
	}
	sql, err := g.CreateTableQuery(core.TableOf("user_roles"), columns, dialect.CreateTableOptions{})
	require.NoError(t, err)
	assert.Contains(t, sql, "PRIMARY KEY (`user_id`, `role_id`)")
}

func TestAttributeToSQLEnumCheck(t *testing.T) {
	g := gen()
	sql, err := g.AttributeToSQL(core.TableOf("jobs"), &core.Column{
		Name: "state", Type: core.DataTypeEnum, EnumValues: []string{"new", "done"},
	})
	require.NoError(t, err)
	assert.Equal(t, "`state` TEXT NOT NULL CHECK (`state` IN ('new', 'done'))", sql)
}

func TestAttributeToSQLInlineReference(t *testing.T) {
	g := gen()
	sql, err := g.AttributeToSQL(core.TableOf("orders"), &core.Column{
		Name: "user_id", Type: core.DataTypeInt,
		References: &core.ForeignKeyRef{Table: core.TableOf("users"), Key: "id", OnDelete: core.RefActionCascade},
	})
	require.NoError(t, err)
	assert.Equal(t, "`user_id` INTEGER NOT NULL REFERENCES `users` (`id`) ON DELETE CASCADE", sql)
}

func TestBooleansRenderAsBits(t *testing.T) {
	g := gen()
	assert.Equal(t, "1", g.FormatValue(true))
	assert.Equal(t, "0", g.FormatValue(false))
}

func TestChangeColumnNeedsRebuild(t *testing.T) {
	g := gen()

	_, err := g.ChangeColumnQuery(core.TableOf("users"), &core.Column{Name: "age"}, dialect.ChangeColumnOptions{})
	assert.ErrorIs(t, err, ErrNeedsTableRebuild)

	_, err = g.AddConstraintQuery(core.TableOf("users"), &core.Constraint{Name: "chk", Type: core.ConstraintCheck, CheckExpression: "1"})
	assert.ErrorIs(t, err, ErrNeedsTableRebuild)

	assert.Equal(t, "", g.RemoveConstraintQuery(core.TableOf("users"), "chk"))
}

func TestToggleForeignKeyChecksQuery(t *testing.T) {
	g := gen()
	assert.Equal(t, "PRAGMA foreign_keys = OFF;", g.ToggleForeignKeyChecksQuery(false))
	assert.Equal(t, "PRAGMA foreign_keys = ON;", g.ToggleForeignKeyChecksQuery(true))
}

func TestTransactionQueries(t *testing.T) {
	g := gen()
	assert.Equal(t, "BEGIN DEFERRED TRANSACTION;", g.StartTransactionQuery())

	sql, err := g.SetIsolationLevelQuery(dialect.IsolationReadUncommitted)
	require.NoError(t, err)
	assert.Equal(t, "PRAGMA read_uncommitted = ON;", sql)

	sql, err = g.SetIsolationLevelQuery(dialect.IsolationSerializable)
	require.NoError(t, err)
	assert.Equal(t, "PRAGMA read_uncommitted = OFF;", sql)

	_, err = g.SetIsolationLevelQuery(dialect.IsolationRepeatableRead)
	assert.Error(t, err)
}

func TestUpdateAndDeleteLimits(t *testing.T) {
	g := gen()
	limit := 3

	sql, err := g.UpdateQuery(core.TableOf("jobs"),
		[]dialect.Assignment{{Column: "state", Value: "done"}},
		dialect.And(dialect.Eq("state", "new")),
		dialect.UpdateOptions{Limit: &limit})
	require.NoError(t, err)
	assert.Equal(t, "UPDATE `jobs` SET `state` = 'done' WHERE rowid IN (SELECT rowid FROM `jobs` WHERE `state` = 'new' LIMIT 3);", sql)

	sql, err = g.DeleteQuery(core.TableOf("jobs"), dialect.Where{}, dialect.DeleteOptions{Limit: &limit})
	require.NoError(t, err)
	assert.Equal(t, "DELETE FROM `jobs` WHERE rowid IN (SELECT rowid FROM `jobs` LIMIT 3);", sql)
}

func TestUpsertQueryMergesValues(t *testing.T) {
	g := gen()

	sql, err := g.UpsertQuery(core.TableOf("users"),
		[]dialect.Assignment{{Column: "id", Value: 1}, {Column: "name", Value: "ada"}},
		[]dialect.Assignment{{Column: "name", Value: "lovelace"}, {Column: "age", Value: 36}},
		dialect.Where{}, nil)
	require.NoError(t, err)
	// Update values win over insert values; extra update columns append.
	assert.Equal(t, "INSERT OR REPLACE INTO `users` (`id`, `name`, `age`) VALUES (1, 'lovelace', 36);", sql)
}

func TestCatalogQueries(t *testing.T) {
	g := gen()

	assert.Equal(t, "SELECT sqlite_version() AS version;", g.VersionQuery())
	assert.Equal(t, "PRAGMA table_info(`users`);", g.DescribeTableQuery(core.TableOf("users")))
	assert.Equal(t, "PRAGMA index_list(`users`);", g.ShowIndexesQuery(core.TableOf("users")))
	assert.Contains(t, g.ShowTablesQuery(""), "sqlite_master")
	assert.Contains(t, g.ShowConstraintsQuery(core.TableOf("users"), ""), "SELECT sql FROM sqlite_master")

	fks := g.ForeignKeysQuery(core.TableOf("orders"), "")
	assert.Contains(t, fks, "pragma_foreign_key_list('orders')")
	assert.Contains(t, fks, `'orders_fk_' || "id" AS "constraintName"`)

	fk := g.ForeignKeyQuery(core.TableOf("orders"), "user_id")
	assert.Contains(t, fk, `WHERE "from" = 'user_id'`)
}

func TestJSONPathExtractionQuery(t *testing.T) {
	g := gen()

	expr, err := g.JSONPathExtractionQuery("data", []string{"items", "0"}, true)
	require.NoError(t, err)
	assert.Equal(t, "json_extract(`data`,'$.items[0]')", expr)

	_, err = g.JSONPathExtractionQuery("data", nil, false)
	assert.Error(t, err)
}
