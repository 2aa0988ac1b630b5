package mssql

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

// UpdateQuery renders an UPDATE; a limit becomes UPDATE TOP (n).
func (g *Generator) UpdateQuery(t core.TableName, values []dialect.Assignment, where dialect.Where, opts dialect.UpdateOptions) (string, error) {
	if len(values) == 0 {
		return "", fmt.Errorf("update %s: no values", t)
	}
	var sb strings.Builder
	sb.WriteString("UPDATE ")
	if opts.Limit != nil {
		sb.WriteString("TOP (")
		sb.WriteString(strconv.Itoa(*opts.Limit))
		sb.WriteString(") ")
	}
	sb.WriteString(g.QuoteTable(t))
	sb.WriteString(" SET ")
	sb.WriteString(g.assignments(values))
	if cond := g.CompileWhere(where); cond != "" {
		sb.WriteString(" WHERE ")
		sb.WriteString(cond)
	}
	sb.WriteString(";")
	return sb.String(), nil
}

// DeleteQuery renders a DELETE; a limit becomes DELETE TOP (n).
func (g *Generator) DeleteQuery(t core.TableName, where dialect.Where, opts dialect.DeleteOptions) (string, error) {
	var sb strings.Builder
	sb.WriteString("DELETE ")
	if opts.Limit != nil {
		sb.WriteString("TOP (")
		sb.WriteString(strconv.Itoa(*opts.Limit))
		sb.WriteString(") ")
	}
	sb.WriteString("FROM ")
	sb.WriteString(g.QuoteTable(t))
	if cond := g.CompileWhere(where); cond != "" {
		sb.WriteString(" WHERE ")
		sb.WriteString(cond)
	}
	sb.WriteString(";")
	return sb.String(), nil
}

// SelectQuery renders a SELECT. Row locking is expressed through table
// hints rather than a trailing FOR clause.
func (g *Generator) SelectQuery(t core.TableName, opts dialect.SelectOptions) (string, error) {
	var sb strings.Builder
	sb.WriteString("SELECT ")
	sb.WriteString(projection(g, opts.Attributes))
	sb.WriteString(" FROM ")
	sb.WriteString(g.QuoteTable(t))
	switch opts.Lock {
	case dialect.LockUpdate:
		sb.WriteString(" WITH (ROWLOCK, UPDLOCK)")
	case dialect.LockShare:
		sb.WriteString(" WITH (ROWLOCK, HOLDLOCK)")
	}

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

// UpsertQuery renders a MERGE keyed on the primary-key columns present in
// the insert values. OUTPUT $action reports 'INSERT' or 'UPDATE', which
// the query interface maps to the created flag. HOLDLOCK keeps the
// match-then-act window atomic.
func (g *Generator) UpsertQuery(t core.TableName, insert, update []dialect.Assignment, _ dialect.Where, model *core.Table) (string, error) {
	if len(insert) == 0 {
		return "", fmt.Errorf("upsert into %s: no insert values", t)
	}
	if model == nil {
		return "", fmt.Errorf("upsert into %s: table model required", t)
	}
	provided := make(map[string]bool, len(insert))
	for _, a := range insert {
		provided[a.Column] = true
	}
	var keys []string
	for _, k := range model.PrimaryKeyColumns() {
		if !provided[k] {
			keys = nil
			break
		}
		keys = append(keys, k)
	}
	if len(keys) == 0 {
		for _, uk := range model.UniqueKeys() {
			covered := true
			for _, k := range uk {
				if !provided[k] {
					covered = false
					break
				}
			}
			if covered {
				keys = uk
				break
			}
		}
	}
	if len(keys) == 0 {
		return "", fmt.Errorf("upsert into %s: values cover no primary or unique key", t)
	}
	if len(update) == 0 {
		update = insert
	}

	cols := make([]string, len(insert))
	vals := make([]string, len(insert))
	for i, a := range insert {
		cols[i] = g.QuoteIdentifier(a.Column, true)
		vals[i] = g.FormatValue(a.Value)
	}
	on := make([]string, len(keys))
	for i, k := range keys {
		q := g.QuoteIdentifier(k, true)
		on[i] = "[t]." + q + " = [s]." + q
	}
	sets := make([]string, len(update))
	for i, a := range update {
		q := g.QuoteIdentifier(a.Column, true)
		sets[i] = "[t]." + q + " = [s]." + q
	}
	srcCols := make([]string, len(insert))
	for i, a := range insert {
		srcCols[i] = "[s]." + g.QuoteIdentifier(a.Column, true)
	}
	pk := model.PrimaryKeyColumns()
	output := "$action AS [action]"
	if len(pk) == 1 {
		output += ", INSERTED." + g.QuoteIdentifier(pk[0], true) + " AS [primaryKey]"
	}

	var sb strings.Builder
	sb.WriteString("MERGE INTO ")
	sb.WriteString(g.QuoteTable(t))
	sb.WriteString(" WITH (HOLDLOCK) AS [t] USING (VALUES (")
	sb.WriteString(strings.Join(vals, ", "))
	sb.WriteString(")) AS [s] (")
	sb.WriteString(strings.Join(cols, ", "))
	sb.WriteString(") ON ")
	sb.WriteString(strings.Join(on, " AND "))
	sb.WriteString(" WHEN MATCHED THEN UPDATE SET ")
	sb.WriteString(strings.Join(sets, ", "))
	sb.WriteString(" WHEN NOT MATCHED THEN INSERT (")
	sb.WriteString(strings.Join(cols, ", "))
	sb.WriteString(") VALUES (")
	sb.WriteString(strings.Join(srcCols, ", "))
	sb.WriteString(") OUTPUT ")
	sb.WriteString(output)
	sb.WriteString(";")
	return sb.String(), nil
}

func (g *Generator) assignments(values []dialect.Assignment) string {
	sets := make([]string, len(values))
	for i, a := range values {
		sets[i] = g.QuoteIdentifier(a.Column, false) + " = " + g.FormatValue(a.Value)
	}
	return strings.Join(sets, ", ")
}

// ShowIndexesQuery lists the indexes of a table from sys.indexes.
func (g *Generator) ShowIndexesQuery(t core.TableName) string {
	var sb strings.Builder
	sb.WriteString("SELECT i.name AS [indexName], i.is_unique AS [isUnique], c.name AS [columnName] ")
	sb.WriteString("FROM sys.indexes i ")
	sb.WriteString("JOIN sys.index_columns ic ON i.object_id = ic.object_id AND i.index_id = ic.index_id ")
	sb.WriteString("JOIN sys.columns c ON ic.object_id = c.object_id AND ic.column_id = c.column_id ")
	sb.WriteString("WHERE i.object_id = OBJECT_ID(N'")
	sb.WriteString(g.objectName(t))
	sb.WriteString("');")
	return sb.String()
}

// ShowConstraintsQuery lists table constraints from the information schema
// with canonical column aliases.
func (g *Generator) ShowConstraintsQuery(t core.TableName, constraintName string) string {
	var sb strings.Builder
	sb.WriteString("SELECT CONSTRAINT_CATALOG AS [constraintCatalog], CONSTRAINT_SCHEMA AS [constraintSchema], ")
	sb.WriteString("CONSTRAINT_NAME AS [constraintName], CONSTRAINT_TYPE AS [constraintType], ")
	sb.WriteString("TABLE_SCHEMA AS [tableSchema], TABLE_NAME AS [tableName] ")
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

// ForeignKeysQuery lists every foreign key of a table from the sys
// catalog, normalized to the canonical column shape.
func (g *Generator) ForeignKeysQuery(t core.TableName, _ string) string {
	var sb strings.Builder
	sb.WriteString("SELECT fk.name AS [constraintName], SCHEMA_NAME(fk.schema_id) AS [constraintSchema], ")
	sb.WriteString("DB_NAME() AS [constraintCatalog], OBJECT_NAME(fk.parent_object_id) AS [tableName], ")
	sb.WriteString("SCHEMA_NAME(fk.schema_id) AS [tableSchema], DB_NAME() AS [tableCatalog], ")
	sb.WriteString("pc.name AS [columnName], OBJECT_NAME(fk.referenced_object_id) AS [referencedTableName], ")
	sb.WriteString("rc.name AS [referencedColumnName] ")
	sb.WriteString("FROM sys.foreign_keys fk ")
	sb.WriteString("JOIN sys.foreign_key_columns fkc ON fk.object_id = fkc.constraint_object_id ")
	sb.WriteString("JOIN sys.columns pc ON fkc.parent_object_id = pc.object_id AND fkc.parent_column_id = pc.column_id ")
	sb.WriteString("JOIN sys.columns rc ON fkc.referenced_object_id = rc.object_id AND fkc.referenced_column_id = rc.column_id ")
	sb.WriteString("WHERE fk.parent_object_id = OBJECT_ID(N'")
	sb.WriteString(g.objectName(t))
	sb.WriteString("');")
	return sb.String()
}

// ForeignKeyQuery finds the foreign keys holding one column.
func (g *Generator) ForeignKeyQuery(t core.TableName, column string) string {
	var sb strings.Builder
	sb.WriteString("SELECT fk.name AS [constraintName] FROM sys.foreign_keys fk ")
	sb.WriteString("JOIN sys.foreign_key_columns fkc ON fk.object_id = fkc.constraint_object_id ")
	sb.WriteString("JOIN sys.columns pc ON fkc.parent_object_id = pc.object_id AND fkc.parent_column_id = pc.column_id ")
	sb.WriteString("WHERE fk.parent_object_id = OBJECT_ID(N'")
	sb.WriteString(g.objectName(t))
	sb.WriteString("') AND pc.name = ")
	sb.WriteString(g.QuoteString(column))
	sb.WriteString(";")
	return sb.String()
}

// JSONPathExtractionQuery renders JSON_VALUE, which always returns text.
func (g *Generator) JSONPathExtractionQuery(column string, path []string, _ bool) (string, error) {
	if len(path) == 0 {
		return "", fmt.Errorf("json path extraction on %q: empty path", column)
	}
	return "JSON_VALUE(" + g.QuoteIdentifier(column, false) + "," + g.QuoteString(dialect.BuildJSONPath(path)) + ")", nil
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
