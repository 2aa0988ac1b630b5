package postgres

import (
	"fmt"
	"strconv"
	"strings"

	"sqlforge/internal/core"
	"sqlforge/internal/dialect"
)

// InsertQuery renders a single-row INSERT.
func (g *Generator) InsertQuery(t core.TableName, row []dialect.Assignment) (string, error) {
	if len(row) == 0 {
		return "", fmt.Errorf("insert into %s: no values", t)
	}
	cols := make([]string, len(row))
	vals := make([]string, len(row))
	for i, a := range row {
		cols[i] = g.QuoteIdentifier(a.Column, false)
		vals[i] = g.FormatValue(a.Value)
	}
	return "INSERT INTO " + g.QuoteTable(t) + " (" + strings.Join(cols, ", ") + ") VALUES (" + strings.Join(vals, ", ") + ");", nil
}

// BulkInsertQuery renders a multi-row INSERT.
func (g *Generator) BulkInsertQuery(t core.TableName, columns []string, rows [][]any) (string, error) {
	if len(columns) == 0 || len(rows) == 0 {
		return "", fmt.Errorf("bulk insert into %s: no rows", t)
	}
	tuples := make([]string, len(rows))
	for i, row := range rows {
		if len(row) != len(columns) {
			return "", fmt.Errorf("bulk insert into %s: row %d has %d values, want %d", t, i, len(row), len(columns))
		}
		vals := make([]string, len(row))
		for j, v := range row {
			vals[j] = g.FormatValue(v)
		}
		tuples[i] = "(" + strings.Join(vals, ", ") + ")"
	}
	return "INSERT INTO " + g.QuoteTable(t) + " " + g.ColumnList(columns) + " VALUES " + strings.Join(tuples, ", ") + ";", nil
}

// UpdateQuery renders an UPDATE. Postgres has no UPDATE ... LIMIT; a limit
// is applied through a ctid subquery, the same trick DeleteQuery uses.
func (g *Generator) UpdateQuery(t core.TableName, values []dialect.Assignment, where dialect.Where, opts dialect.UpdateOptions) (string, error) {
	if len(values) == 0 {
		return "", fmt.Errorf("update %s: no values", t)
	}
	var sb strings.Builder
	sb.WriteString("UPDATE ")
	sb.WriteString(g.QuoteTable(t))
	sb.WriteString(" SET ")
	sb.WriteString(g.assignments(values))
	cond := g.CompileWhere(where)
	if opts.Limit != nil {
		cond = g.ctidLimit(t, cond, *opts.Limit)
	}
	if cond != "" {
		sb.WriteString(" WHERE ")
		sb.WriteString(cond)
	}
	sb.WriteString(";")
	return sb.String(), nil
}

// DeleteQuery renders a DELETE. Postgres rejects DELETE ... LIMIT, so a
// limited delete targets the ctids of a limited subselect instead.
func (g *Generator) DeleteQuery(t core.TableName, where dialect.Where, opts dialect.DeleteOptions) (string, error) {
	var sb strings.Builder
	sb.WriteString("DELETE FROM ")
	sb.WriteString(g.QuoteTable(t))
	cond := g.CompileWhere(where)
	if opts.Limit != nil {
		cond = g.ctidLimit(t, cond, *opts.Limit)
	}
	if cond != "" {
		sb.WriteString(" WHERE ")
		sb.WriteString(cond)
	}
	sb.WriteString(";")
	return sb.String(), nil
}

func (g *Generator) ctidLimit(t core.TableName, cond string, limit int) string {
	var sub strings.Builder
	sub.WriteString("ctid IN (SELECT ctid FROM ")
	sub.WriteString(g.QuoteTable(t))
	if cond != "" {
		sub.WriteString(" WHERE ")
		sub.WriteString(cond)
	}
	sub.WriteString(" LIMIT ")
	sub.WriteString(strconv.Itoa(limit))
	sub.WriteString(")")
	return sub.String()
}

// SelectQuery renders a SELECT with projection, WHERE, grouping, ordering,
// pagination, and locking clauses.
func (g *Generator) SelectQuery(t core.TableName, opts dialect.SelectOptions) (string, error) {
	var sb strings.Builder
	sb.WriteString("SELECT ")
	sb.WriteString(projection(g, opts.Attributes))
	sb.WriteString(" FROM ")
	sb.WriteString(g.QuoteTable(t))

	where := g.CompileWhere(opts.Where)
	if opts.JSONCondition != "" {
		if _, err := dialect.CheckJSONStatement(opts.JSONCondition); err != nil {
			return "", err
		}
		if where != "" {
			where += " AND " + opts.JSONCondition
		} else {
			where = opts.JSONCondition
		}
	}
	if where != "" {
		sb.WriteString(" WHERE ")
		sb.WriteString(where)
	}
	if len(opts.GroupBy) > 0 {
		quoted := make([]string, len(opts.GroupBy))
		for i, c := range opts.GroupBy {
			quoted[i] = g.QuoteIdentifier(c, false)
		}
		sb.WriteString(" GROUP BY ")
		sb.WriteString(strings.Join(quoted, ", "))
	}
	sb.WriteString(g.CompileOrder(opts.OrderBy))
	sb.WriteString(g.AddLimitAndOffset(opts.Limit, opts.Offset, len(opts.OrderBy) > 0))
	switch opts.Lock {
	case dialect.LockUpdate:
		sb.WriteString(" FOR UPDATE")
	case dialect.LockShare:
		sb.WriteString(" FOR SHARE")
	}
	sb.WriteString(";")
	return sb.String(), nil
}

// ArithmeticQuery renders UPDATE t SET col = col <op> value for increment
// and decrement operations, returning the touched rows.
func (g *Generator) ArithmeticQuery(operator string, t core.TableName, values []dialect.Assignment, where dialect.Where) (string, error) {
	if operator != "+" && operator != "-" {
		return "", fmt.Errorf("arithmetic query: unsupported operator %q", operator)
	}
	if len(values) == 0 {
		return "", fmt.Errorf("arithmetic query on %s: no values", t)
	}
	sets := make([]string, len(values))
	cols := make([]string, len(values))
	for i, a := range values {
		col := g.QuoteIdentifier(a.Column, false)
		sets[i] = col + " = " + col + " " + operator + " " + g.FormatValue(a.Value)
		cols[i] = col
	}
	var sb strings.Builder
	sb.WriteString("UPDATE ")
	sb.WriteString(g.QuoteTable(t))
	sb.WriteString(" SET ")
	sb.WriteString(strings.Join(sets, ", "))
	if cond := g.CompileWhere(where); cond != "" {
		sb.WriteString(" WHERE ")
		sb.WriteString(cond)
	}
	sb.WriteString(" RETURNING ")
	sb.WriteString(strings.Join(cols, ", "))
	sb.WriteString(";")
	return sb.String(), nil
}

// UpsertQuery renders a temporary PL/pgSQL function that inserts and, on
// unique_violation, updates instead. The function reports whether a row was
// created and the primary key it landed on, which is how the query
// interface normalizes upsert results across dialects. pg_temp scopes the
// function to the session, so concurrent sessions never collide.
func (g *Generator) UpsertQuery(t core.TableName, insert, update []dialect.Assignment, where dialect.Where, model *core.Table) (string, error) {
	if len(insert) == 0 {
		return "", fmt.Errorf("upsert into %s: no insert values", t)
	}
	if model == nil {
		return "", fmt.Errorf("upsert into %s: table model required", t)
	}
	pk := model.PrimaryKeyColumns()
	if len(pk) != 1 {
		return "", fmt.Errorf("upsert into %s: requires exactly one primary key column, have %d", t, len(pk))
	}
	if len(update) == 0 {
		update = insert
	}
	insertSQL, err := g.InsertQuery(t, insert)
	if err != nil {
		return "", err
	}
	insertSQL = strings.TrimSuffix(insertSQL, ";")
	pkCol := g.QuoteIdentifier(pk[0], false)

	var upd strings.Builder
	upd.WriteString("UPDATE ")
	upd.WriteString(g.QuoteTable(t))
	upd.WriteString(" SET ")
	upd.WriteString(g.assignments(update))
	if cond := g.CompileWhere(where); cond != "" {
		upd.WriteString(" WHERE ")
		upd.WriteString(cond)
	}

	var sb strings.Builder
	sb.WriteString("CREATE OR REPLACE FUNCTION pg_temp.sqlforge_upsert(OUT created boolean, OUT primary_key text) AS $func$ BEGIN ")
	sb.WriteString(insertSQL)
	sb.WriteString(" RETURNING ")
	sb.WriteString(pkCol)
	sb.WriteString(" INTO primary_key; created := true; ")
	sb.WriteString("EXCEPTION WHEN unique_violation THEN ")
	sb.WriteString(upd.String())
	sb.WriteString(" RETURNING ")
	sb.WriteString(pkCol)
	sb.WriteString(" INTO primary_key; created := false; ")
	sb.WriteString("END; $func$ LANGUAGE plpgsql; SELECT * FROM pg_temp.sqlforge_upsert();")
	return sb.String(), nil
}

func (g *Generator) assignments(values []dialect.Assignment) string {
	sets := make([]string, len(values))
	for i, a := range values {
		sets[i] = g.QuoteIdentifier(a.Column, false) + " = " + g.FormatValue(a.Value)
	}
	return strings.Join(sets, ", ")
}

// ShowIndexesQuery lists the indexes of a table from pg_indexes.
func (g *Generator) ShowIndexesQuery(t core.TableName) string {
	schema := t.Schema
	if schema == "" {
		schema = "public"
	}
	var sb strings.Builder
	sb.WriteString(`SELECT indexname AS "indexName", indexdef AS "indexDefinition" FROM pg_indexes WHERE schemaname = `)
	sb.WriteString(g.QuoteString(schema))
	sb.WriteString(" AND tablename = ")
	sb.WriteString(g.QuoteString(t.Name))
	sb.WriteString(";")
	return sb.String()
}

// ShowConstraintsQuery lists table constraints from the information schema
// with canonical column aliases.
func (g *Generator) ShowConstraintsQuery(t core.TableName, constraintName string) string {
	var sb strings.Builder
	sb.WriteString(`SELECT constraint_catalog AS "constraintCatalog", constraint_schema AS "constraintSchema", `)
	sb.WriteString(`constraint_name AS "constraintName", constraint_type AS "constraintType", `)
	sb.WriteString(`table_schema AS "tableSchema", table_name AS "tableName" `)
	sb.WriteString("FROM information_schema.table_constraints WHERE table_name = ")
	sb.WriteString(g.QuoteString(t.Name))
	if constraintName != "" {
		sb.WriteString(" AND constraint_name = ")
		sb.WriteString(g.QuoteString(constraintName))
	}
	if t.Schema != "" {
		sb.WriteString(" AND table_schema = ")
		sb.WriteString(g.QuoteString(t.Schema))
	}
	sb.WriteString(";")
	return sb.String()
}

// ForeignKeysQuery lists every foreign key of a table, normalized to the
// canonical column shape shared by all dialects.
func (g *Generator) ForeignKeysQuery(t core.TableName, _ string) string {
	schema := t.Schema
	if schema == "" {
		schema = "public"
	}
	var sb strings.Builder
	sb.WriteString(`SELECT tc.constraint_name AS "constraintName", tc.constraint_schema AS "constraintSchema", `)
	sb.WriteString(`tc.constraint_catalog AS "constraintCatalog", tc.table_name AS "tableName", `)
	sb.WriteString(`tc.table_schema AS "tableSchema", tc.table_catalog AS "tableCatalog", `)
	sb.WriteString(`kcu.column_name AS "columnName", ccu.table_name AS "referencedTableName", `)
	sb.WriteString(`ccu.column_name AS "referencedColumnName" `)
	sb.WriteString("FROM information_schema.table_constraints tc ")
	sb.WriteString("JOIN information_schema.key_column_usage kcu ON tc.constraint_name = kcu.constraint_name AND tc.table_schema = kcu.table_schema ")
	sb.WriteString("JOIN information_schema.constraint_column_usage ccu ON ccu.constraint_name = tc.constraint_name AND ccu.table_schema = tc.table_schema ")
	sb.WriteString("WHERE tc.constraint_type = 'FOREIGN KEY' AND tc.table_name = ")
	sb.WriteString(g.QuoteString(t.Name))
	sb.WriteString(" AND tc.table_schema = ")
	sb.WriteString(g.QuoteString(schema))
	sb.WriteString(";")
	return sb.String()
}

// ForeignKeyQuery finds the foreign key constraints holding one column.
func (g *Generator) ForeignKeyQuery(t core.TableName, column string) string {
	schema := t.Schema
	if schema == "" {
		schema = "public"
	}
	var sb strings.Builder
	sb.WriteString(`SELECT tc.constraint_name AS "constraintName" `)
	sb.WriteString("FROM information_schema.table_constraints tc ")
	sb.WriteString("JOIN information_schema.key_column_usage kcu ON tc.constraint_name = kcu.constraint_name AND tc.table_schema = kcu.table_schema ")
	sb.WriteString("WHERE tc.constraint_type = 'FOREIGN KEY' AND tc.table_name = ")
	sb.WriteString(g.QuoteString(t.Name))
	sb.WriteString(" AND tc.table_schema = ")
	sb.WriteString(g.QuoteString(schema))
	sb.WriteString(" AND kcu.column_name = ")
	sb.WriteString(g.QuoteString(column))
	sb.WriteString(";")
	return sb.String()
}

// JSONPathExtractionQuery renders the #> path operator, or #>> when the
// result should be unquoted to text.
func (g *Generator) JSONPathExtractionQuery(column string, path []string, unquote bool) (string, error) {
	if len(path) == 0 {
		return "", fmt.Errorf("json path extraction on %q: empty path", column)
	}
	op := "#>"
	if unquote {
		op = "#>>"
	}
	escaped := make([]string, len(path))
	for i, p := range path {
		escaped[i] = strings.ReplaceAll(p, ",", "\\,")
	}
	return "(" + g.QuoteIdentifier(column, false) + op + "'{" + strings.Join(escaped, ",") + "}')", nil
}

func projection(g *Generator, attrs []string) string {
	if len(attrs) == 0 {
		return "*"
	}
	quoted := make([]string, len(attrs))
	for i, a := range attrs {
		quoted[i] = g.QuoteIdentifier(a, false)
	}
	return strings.Join(quoted, ", ")
}
