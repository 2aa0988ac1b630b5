package query

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sqlforge/internal/core"
	"sqlforge/internal/dialect"
	"sqlforge/internal/dialect/mssql"
	"sqlforge/internal/dialect/sqlite"
)

func accountsTable() *core.Table {
	return &core.Table{
		Name: "accounts",
		Columns: []*core.Column{
			{Name: "id", Type: core.DataTypeInt, PrimaryKey: true, AutoIncrement: true},
			{Name: "email", Type: core.DataTypeString, Unique: true},
			{Name: "name", Type: core.DataTypeString},
		},
	}
}

func TestInsertRunsGeneratedSQL(t *testing.T) {
	f := &fakeExecutor{execRes: ExecResult{RowsAffected: 1, LastInsertID: 3}}
	qi := myInterface(f)

	res, err := qi.Insert(context.Background(), core.TableOf("accounts"), []dialect.Assignment{
		{Column: "name", Value: "ada"},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(3), res.LastInsertID)
	require.Len(t, f.execs, 1)
	assert.Equal(t, "INSERT INTO `accounts` (`name`) VALUES ('ada');", f.execs[0])
}

func TestIncrementAndDecrement(t *testing.T) {
	f := &fakeExecutor{}
	qi := myInterface(f)

	where := dialect.And(dialect.Eq("id", 1))
	_, err := qi.Increment(context.Background(), core.TableOf("accounts"), []dialect.Assignment{{Column: "visits", Value: 2}}, where)
	require.NoError(t, err)
	_, err = qi.Decrement(context.Background(), core.TableOf("accounts"), []dialect.Assignment{{Column: "credit", Value: 5}}, where)
	require.NoError(t, err)

	require.Len(t, f.execs, 2)
	assert.Equal(t, "UPDATE `accounts` SET `visits` = `visits` + 2 WHERE `id` = 1;", f.execs[0])
	assert.Equal(t, "UPDATE `accounts` SET `credit` = `credit` - 5 WHERE `id` = 1;", f.execs[1])
}

func TestUpsertDuplicateKeyInfersCreated(t *testing.T) {
	f := &fakeExecutor{execRes: ExecResult{RowsAffected: 1, LastInsertID: 5}}
	qi := myInterface(f)

	res, err := qi.Upsert(context.Background(), accountsTable(),
		[]dialect.Assignment{{Column: "email", Value: "ada@lovelace.dev"}}, nil, dialect.Where{})
	require.NoError(t, err)
	require.NotNil(t, res.Created)
	assert.True(t, *res.Created)
	assert.Equal(t, int64(5), res.PrimaryKey)

	require.Len(t, f.execs, 1)
	assert.Contains(t, f.execs[0], "ON DUPLICATE KEY UPDATE")
}

func TestUpsertDuplicateKeyUpdatedRow(t *testing.T) {
	// MySQL reports 2 affected rows when the conflict row was updated.
	f := &fakeExecutor{execRes: ExecResult{RowsAffected: 2}}
	qi := myInterface(f)

	res, err := qi.Upsert(context.Background(), accountsTable(),
		[]dialect.Assignment{{Column: "email", Value: "ada@lovelace.dev"}}, nil, dialect.Where{})
	require.NoError(t, err)
	require.NotNil(t, res.Created)
	assert.False(t, *res.Created)
	assert.Nil(t, res.PrimaryKey)
}

func TestUpsertExceptionParsesResultRow(t *testing.T) {
	f := &fakeExecutor{
		rows: [][]map[string]any{
			{{"created": "true", "primary_key": int64(7)}},
		},
	}
	qi := pgInterface(f)

	res, err := qi.Upsert(context.Background(), accountsTable(),
		[]dialect.Assignment{{Column: "email", Value: "ada@lovelace.dev"}}, nil, dialect.Where{})
	require.NoError(t, err)
	require.NotNil(t, res.Created)
	assert.True(t, *res.Created)
	assert.Equal(t, int64(7), res.PrimaryKey)

	require.Len(t, f.queries, 1)
	assert.Contains(t, f.queries[0], "pg_temp.sqlforge_upsert")
}

func TestUpsertExceptionNoResultRow(t *testing.T) {
	f := &fakeExecutor{}
	qi := pgInterface(f)

	_, err := qi.Upsert(context.Background(), accountsTable(),
		[]dialect.Assignment{{Column: "email", Value: "ada@lovelace.dev"}}, nil, dialect.Where{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no result row")
}

func TestUpsertMergeReadsAction(t *testing.T) {
	f := &fakeExecutor{
		rows: [][]map[string]any{
			{{"action": "INSERT", "primaryKey": int64(3)}},
		},
	}
	qi := New(mssql.New(dialect.DefaultOptions()), f, nil)

	res, err := qi.Upsert(context.Background(), accountsTable(),
		[]dialect.Assignment{{Column: "id", Value: 3}, {Column: "name", Value: "ada"}}, nil, dialect.Where{})
	require.NoError(t, err)
	require.NotNil(t, res.Created)
	assert.True(t, *res.Created)
	assert.Equal(t, int64(3), res.PrimaryKey)
}

func TestUpsertMergeUpdateAction(t *testing.T) {
	f := &fakeExecutor{
		rows: [][]map[string]any{
			{{"action": "UPDATE", "primaryKey": int64(3)}},
		},
	}
	qi := New(mssql.New(dialect.DefaultOptions()), f, nil)

	res, err := qi.Upsert(context.Background(), accountsTable(),
		[]dialect.Assignment{{Column: "id", Value: 3}, {Column: "name", Value: "ada"}}, nil, dialect.Where{})
	require.NoError(t, err)
	require.NotNil(t, res.Created)
	assert.False(t, *res.Created)
}

func TestUpsertReplaceCannotReportCreated(t *testing.T) {
	f := &fakeExecutor{execRes: ExecResult{RowsAffected: 1, LastInsertID: 9}}
	qi := New(sqlite.New(dialect.DefaultOptions()), f, nil)

	res, err := qi.Upsert(context.Background(), accountsTable(),
		[]dialect.Assignment{{Column: "id", Value: 9}, {Column: "name", Value: "ada"}}, nil, dialect.Where{})
	require.NoError(t, err)
	assert.Nil(t, res.Created)
	assert.Equal(t, int64(9), res.PrimaryKey)
}

func TestUpsertWhereSkipsPartialKeys(t *testing.T) {
	model := &core.Table{
		Name: "members",
		Columns: []*core.Column{
			{Name: "email", Type: core.DataTypeString, Unique: true},
			{Name: "org", Type: core.DataTypeString},
			{Name: "slug", Type: core.DataTypeString},
		},
		Constraints: []*core.Constraint{
			{Name: "uq_org_slug", Type: core.ConstraintUnique, Columns: []string{"org", "slug"}},
		},
	}
	qi := myInterface(&fakeExecutor{})

	// org is provided but slug is not, so the composite key is skipped.
	insert := []dialect.Assignment{
		{Column: "email", Value: "ada@lovelace.dev"},
		{Column: "org", Value: "acme"},
	}
	out := qi.upsertWhere(model, insert, dialect.Where{})
	require.Len(t, out.Or, 1)
	require.Len(t, out.Or[0], 1)
	assert.Equal(t, "email", out.Or[0][0].Column)
}

func TestJSONExtractBuildsProjection(t *testing.T) {
	f := &fakeExecutor{}
	qi := myInterface(f)

	_, err := qi.JSONExtract(context.Background(), core.TableOf("events"), "payload", []string{"user", "id"}, false,
		dialect.And(dialect.Eq("kind", "login")))
	require.NoError(t, err)
	require.Len(t, f.queries, 1)
	assert.Equal(t,
		"SELECT json_extract(`payload`,'$.user.id') AS `value` FROM `events` WHERE `kind` = 'login';",
		f.queries[0])
}
