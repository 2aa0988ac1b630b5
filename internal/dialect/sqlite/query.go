package sqlite

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

// UpdateQuery renders an UPDATE. SQLite builds without the optional
// UPDATE-LIMIT extension reject LIMIT, so a limit targets rowids of a
// limited subselect.
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
		cond = g.rowidLimit(t, cond, *opts.Limit)
	}
	if cond != "" {
		sb.WriteString(" WHERE ")
		sb.WriteString(cond)
	}
	sb.WriteString(";")
	return sb.String(), nil
}

// DeleteQuery renders a DELETE with the same rowid-subselect limit.
func (g *Generator) DeleteQuery(t core.TableName, where dialect.Where, opts dialect.DeleteOptions) (string, error) {
	var sb strings.Builder
	sb.WriteString("DELETE FROM ")
	sb.WriteString(g.QuoteTable(t))
	cond := g.CompileWhere(where)
	if opts.Limit != nil {
		cond = g.rowidLimit(t, cond, *opts.Limit)
	}
	if cond != "" {
		sb.WriteString(" WHERE ")
		sb.WriteString(cond)
	}
	sb.WriteString(";")
	return sb.String(), nil
}

func (g *Generator) rowidLimit(t core.TableName, cond string, limit int) string {
	var sub strings.Builder
	sub.WriteString("rowid IN (SELECT rowid FROM ")
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

// SelectQuery renders a SELECT. SQLite has no row-locking clauses; lock
// modes are ignored.
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
	sb.WriteString(";")
	return sb.String(), nil
}

// ArithmeticQuery renders UPDATE t SET col = col <op> value.
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

// UpsertQuery renders INSERT OR REPLACE. The replaced row is rewritten
// wholesale, so insert and update values are merged with update taking
// precedence.
func (g *Generator) UpsertQuery(t core.TableName, insert, update []dialect.Assignment, _ dialect.Where, _ *core.Table) (string, error) {
	if len(insert) == 0 {
		return "", fmt.Errorf("upsert into %s: no insert values", t)
	}
	merged := make([]dialect.Assignment, 0, len(insert)+len(update))
	seen := make(map[string]int, len(insert))
	for _, a := range insert {
		seen[a.Column] = len(merged)
		merged = append(merged, a)
	}
	for _, a := range update {
		if i, ok := seen[a.Column]; ok {
			merged[i].Value = a.Value
		} else {
			merged = append(merged, a)
		}
	}
	base, err := g.InsertQuery(t, merged)
	if err != nil {
		return "", err
	}
	return "INSERT OR REPLACE" + strings.TrimPrefix(base, "INSERT"), nil
}

func (g *Generator) assignments(values []dialect.Assignment) string {
	sets := make([]string, len(values))
	for i, a := range values {
		sets[i] = g.QuoteIdentifier(a.Column, false) + " = " + g.FormatValue(a.Value)
	}
	return strings.Join(sets, ", ")
}

// ShowIndexesQuery lists the indexes of a table through the index_list
// pragma.
func (g *Generator) ShowIndexesQuery(t core.TableName) string {
	return "PRAGMA index_list(" + g.QuoteTable(t) + ");"
}

// ShowConstraintsQuery approximates constraint listing by returning the
// table's CREATE statement; SQLite keeps constraints only in the original
// DDL text.
func (g *Generator) ShowConstraintsQuery(t core.TableName, _ string) string {
	return "SELECT sql FROM sqlite_master WHERE type = 'table' AND name = " + g.QuoteString(t.Name) + ";"
}

// ForeignKeysQuery lists foreign keys through the pragma table-valued
// function, aliased to the canonical column shape. SQLite does not name FK
// constraints, so a name is synthesized from the table and the pragma's
// constraint ordinal.
func (g *Generator) ForeignKeysQuery(t core.TableName, _ string) string {
	var sb strings.Builder
	sb.WriteString("SELECT ")
	sb.WriteString(g.QuoteString(t.Name + "_fk_"))
	sb.WriteString(` || "id" AS "constraintName", `)
	sb.WriteString(g.QuoteString(t.Name))
	sb.WriteString(` AS "tableName", "from" AS "columnName", `)
	sb.WriteString(`"table" AS "referencedTableName", "to" AS "referencedColumnName" `)
	sb.WriteString("FROM pragma_foreign_key_list(")
	sb.WriteString(g.QuoteString(t.Name))
	sb.WriteString(");")
	return sb.String()
}

// ForeignKeyQuery finds the foreign keys holding one column.
func (g *Generator) ForeignKeyQuery(t core.TableName, column string) string {
	var sb strings.Builder
	sb.WriteString("SELECT ")
	sb.WriteString(g.QuoteString(t.Name + "_fk_"))
	sb.WriteString(` || "id" AS "constraintName" FROM pragma_foreign_key_list(`)
	sb.WriteString(g.QuoteString(t.Name))
	sb.WriteString(`) WHERE "from" = `)
	sb.WriteString(g.QuoteString(column))
	sb.WriteString(";")
	return sb.String()
}

// JSONPathExtractionQuery renders json_extract. SQLite's json_extract
// already returns bare text for string values, so unquote is a no-op.
func (g *Generator) JSONPathExtractionQuery(column string, path []string, _ bool) (string, error) {
	if len(path) == 0 {
		return "", fmt.Errorf("json path extraction on %q: empty path", column)
	}
	return "json_extract(" + g.QuoteIdentifier(column, false) + "," + g.QuoteString(dialect.BuildJSONPath(path)) + ")", nil
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
