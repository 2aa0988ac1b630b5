package mysql

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

// UpdateQuery renders an UPDATE with optional LIMIT.
func (g *Generator) UpdateQuery(t core.TableName, values []dialect.Assignment, where dialect.Where, opts dialect.UpdateOptions) (string, error) {
	if len(values) == 0 {
		return "", fmt.Errorf("update %s: no values", t)
	}
	var sb strings.Builder
	sb.WriteString("UPDATE ")
	sb.WriteString(g.QuoteTable(t))
	sb.WriteString(" SET ")
	sb.WriteString(g.assignments(values))
	if cond := g.CompileWhere(where); cond != "" {
		sb.WriteString(" WHERE ")
		sb.WriteString(cond)
	}
	if opts.Limit != nil {
		sb.WriteString(" LIMIT ")
		sb.WriteString(strconv.Itoa(*opts.Limit))
	}
	sb.WriteString(";")
	return sb.String(), nil
}

// DeleteQuery renders a DELETE; MySQL supports LIMIT on DELETE natively.
func (g *Generator) DeleteQuery(t core.TableName, where dialect.Where, opts dialect.DeleteOptions) (string, error) {
	var sb strings.Builder
	sb.WriteString("DELETE FROM ")
	sb.WriteString(g.QuoteTable(t))
	if cond := g.CompileWhere(where); cond != "" {
		sb.WriteString(" WHERE ")
		sb.WriteString(cond)
	}
	if opts.Limit != nil {
		sb.WriteString(" LIMIT ")
		sb.WriteString(strconv.Itoa(*opts.Limit))
	}
	sb.WriteString(";")
	return sb.String(), nil
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
		sb.WriteString(" LOCK IN SHARE MODE")
	}
	sb.WriteString(";")
	return sb.String(), nil
}

// ArithmeticQuery renders UPDATE t SET col = col <op> value for increment
// and decrement operations.
func (g *Generator) ArithmeticQuery(operator string, t core.TableName, values []dialect.Assignment, where dialect.Where) (string, error) {
	if operator != "+" && operator != "-" {
		return "", fmt.Errorf("arithmetic query: unsupported operator %q", operator)
	}
	if len(values) == 0 {
		return "", fmt.Errorf("arithmetic query on %s: no values", t)
	}
	sets := make([]string, len(values))
	for i, a := range values {
		col := g.QuoteIdentifier(a.Column, false)
		sets[i] = col + " = " + col + " " + operator + " " + g.FormatValue(a.Value)
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
	sb.WriteString(";")
	return sb.String(), nil
}

// UpsertQuery renders INSERT ... ON DUPLICATE KEY UPDATE. The executed
// result reports 1 affected row for an insert and 2 for an update, which
// the query interface turns into the created flag.
func (g *Generator) UpsertQuery(t core.TableName, insert, update []dialect.Assignment, _ dialect.Where, _ *core.Table) (string, error) {
	if len(insert) == 0 {
		return "", fmt.Errorf("upsert into %s: no insert values", t)
	}
	base, err := g.InsertQuery(t, insert)
	if err != nil {
		return "", err
	}
	base = strings.TrimSuffix(base, ";")
	if len(update) == 0 {
		update = insert
	}
	return base + " ON DUPLICATE KEY UPDATE " + g.assignments(update) + ";", nil
}

func (g *Generator) assignments(values []dialect.Assignment) string {
	sets := make([]string, len(values))
	for i, a := range values {
		sets[i] = g.QuoteIdentifier(a.Column, false) + " = " + g.FormatValue(a.Value)
	}
	return strings.Join(sets, ", ")
}

// ShowIndexesQuery lists the indexes of a table.
func (g *Generator) ShowIndexesQuery(t core.TableName) string {
	return "SHOW INDEX FROM " + g.QuoteTable(t) + ";"
}

// ShowConstraintsQuery lists table constraints from the information schema
// with canonical column aliases.
func (g *Generator) ShowConstraintsQuery(t core.TableName, constraintName string) string {
	var sb strings.Builder
	sb.WriteString("SELECT CONSTRAINT_CATALOG AS constraintCatalog, CONSTRAINT_SCHEMA AS constraintSchema, ")
	sb.WriteString("CONSTRAINT_NAME AS constraintName, CONSTRAINT_TYPE AS constraintType, ")
	sb.WriteString("TABLE_SCHEMA AS tableSchema, TABLE_NAME AS tableName ")
	sb.WriteString("FROM INFORMATION_SCHEMA.TABLE_CONSTRAINTS WHERE TABLE_NAME = ")
	sb.WriteString(g.QuoteString(t.Name))
	if constraintName != "" {
		sb.WriteString(" AND CONSTRAINT_NAME = ")
		sb.WriteString(g.QuoteString(constraintName))
	}
	if t.Schema != "" {
		sb.WriteString(" AND TABLE_SCHEMA = ")
		sb.WriteString(g.QuoteString(t.Schema))
	}
	sb.WriteString(";")
	return sb.String()
}

// ForeignKeysQuery lists every foreign key of a table, normalized to the
// canonical column shape shared by all dialects.
func (g *Generator) ForeignKeysQuery(t core.TableName, database string) string {
	schema := t.Schema
	if schema == "" {
		schema = database
	}
	var sb strings.Builder
	sb.WriteString("SELECT CONSTRAINT_NAME AS constraintName, CONSTRAINT_SCHEMA AS constraintSchema, ")
	sb.WriteString("CONSTRAINT_CATALOG AS constraintCatalog, TABLE_NAME AS tableName, TABLE_SCHEMA AS tableSchema, ")
	sb.WriteString("TABLE_CATALOG AS tableCatalog, COLUMN_NAME AS columnName, ")
	sb.WriteString("REFERENCED_TABLE_NAME AS referencedTableName, REFERENCED_COLUMN_NAME AS referencedColumnName ")
	sb.WriteString("FROM INFORMATION_SCHEMA.KEY_COLUMN_USAGE WHERE TABLE_NAME = ")
	sb.WriteString(g.QuoteString(t.Name))
	if schema != "" {
		sb.WriteString(" AND CONSTRAINT_SCHEMA = ")
		sb.WriteString(g.QuoteString(schema))
	}
	sb.WriteString(" AND REFERENCED_TABLE_NAME IS NOT NULL;")
	return sb.String()
}

// ForeignKeyQuery finds the foreign key constraints holding one column.
func (g *Generator) ForeignKeyQuery(t core.TableName, column string) string {
	var sb strings.Builder
	sb.WriteString("SELECT CONSTRAINT_NAME AS constraintName FROM INFORMATION_SCHEMA.KEY_COLUMN_USAGE ")
	sb.WriteString("WHERE TABLE_NAME = ")
	sb.WriteString(g.QuoteString(t.Name))
	if t.Schema != "" {
		sb.WriteString(" AND CONSTRAINT_SCHEMA = ")
		sb.WriteString(g.QuoteString(t.Schema))
	}
	sb.WriteString(" AND COLUMN_NAME = ")
	sb.WriteString(g.QuoteString(column))
	sb.WriteString(" AND CONSTRAINT_NAME != 'PRIMARY' AND REFERENCED_TABLE_NAME IS NOT NULL;")
	return sb.String()
}

// JSONPathExtractionQuery renders json_extract, optionally unquoted to
// text.
func (g *Generator) JSONPathExtractionQuery(column string, path []string, unquote bool) (string, error) {
	if len(path) == 0 {
		return "", fmt.Errorf("json path extraction on %q: empty path", column)
	}
	expr := "json_extract(" + g.QuoteIdentifier(column, false) + "," + g.QuoteString(dialect.BuildJSONPath(path)) + ")"
	if unquote {
		expr = "json_unquote(" + expr + ")"
	}
	return expr, nil
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
